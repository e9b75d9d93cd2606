// Package quota derives what a user may do from their subscription row and
// the plan catalog.
package quota

import (
	"time"

	"naxovate-backend/internal/models"
	"naxovate-backend/internal/plans"
)

type Entitlement struct {
	PlanKey         string
	Tier            string
	Status          string
	Active          bool
	ImageLimit      int // plans.Unlimited for admins
	ImagesGenerated int
	StorageLimit    int64
	StorageUsed     int64
}

// Resolve builds the entitlement for a user. sub may be nil for users that
// have no subscription row yet; they are treated as free.
func Resolve(sub *models.Subscription, catalog *plans.Catalog, isAdmin bool, now time.Time) Entitlement {
	e := Entitlement{
		PlanKey:      plans.KeyFree,
		Tier:         plans.TierFree,
		Status:       models.SubscriptionCanceled,
		StorageLimit: catalog.StorageLimit(plans.TierFree),
	}

	if sub != nil {
		e.PlanKey = sub.PlanKey
		e.Tier = sub.Plan
		e.Status = sub.Status
		e.ImageLimit = sub.ImageLimit
		e.ImagesGenerated = sub.ImagesGenerated
		e.StorageUsed = sub.StorageUsed
		e.StorageLimit = catalog.StorageLimit(sub.Plan)
		e.Active = isActive(sub, now)
	}

	if isAdmin {
		e.Tier = plans.TierPremium
		e.Active = true
		e.ImageLimit = plans.Unlimited
		e.StorageLimit = catalog.StorageLimit(plans.TierPremium)
	}

	return e
}

func isActive(sub *models.Subscription, now time.Time) bool {
	if sub.Status != models.SubscriptionActive && sub.Status != models.SubscriptionTrialing {
		return false
	}
	if sub.CurrentPeriodEnd != nil && !now.Before(*sub.CurrentPeriodEnd) {
		return false
	}
	return true
}

func (e Entitlement) Unlimited() bool {
	return e.ImageLimit == plans.Unlimited
}

func (e Entitlement) IsPremium() bool {
	return e.Tier == plans.TierPremium
}

// CanGenerate reports whether n more images fit in the current period.
func (e Entitlement) CanGenerate(n int) bool {
	if n <= 0 {
		return false
	}
	if !e.IsPremium() || !e.Active {
		return false
	}
	if e.Unlimited() {
		return true
	}
	return e.ImagesGenerated+n <= e.ImageLimit
}

func (e Entitlement) CanUpload(size int64) bool {
	if size < 0 {
		return false
	}
	return e.StorageUsed+size <= e.StorageLimit
}

// RemainingGenerations is clamped at zero. Unlimited entitlements report -1.
func (e Entitlement) RemainingGenerations() int {
	if e.Unlimited() {
		return plans.Unlimited
	}
	if !e.IsPremium() || !e.Active {
		return 0
	}
	if r := e.ImageLimit - e.ImagesGenerated; r > 0 {
		return r
	}
	return 0
}

func (e Entitlement) RemainingStorage() int64 {
	if r := e.StorageLimit - e.StorageUsed; r > 0 {
		return r
	}
	return 0
}

// Response renders the entitlement for API clients.
func (e Entitlement) Response(sub *models.Subscription) models.SubscriptionResponse {
	resp := models.SubscriptionResponse{
		PlanKey:              e.PlanKey,
		Tier:                 e.Tier,
		Status:               e.Status,
		Active:               e.Active,
		Unlimited:            e.Unlimited(),
		CanGenerate:          e.CanGenerate(1),
		ImagesGenerated:      e.ImagesGenerated,
		ImageLimit:           e.ImageLimit,
		RemainingGenerations: e.RemainingGenerations(),
		StorageUsed:          e.StorageUsed,
		StorageLimit:         e.StorageLimit,
		RemainingStorage:     e.RemainingStorage(),
		Subscription:         sub,
	}
	if sub != nil {
		resp.CancelAtPeriodEnd = sub.CancelAtPeriodEnd
	}
	return resp
}
