package plans

import (
	_ "embed"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

//go:embed catalog.yaml
var defaultCatalog []byte

const (
	TierFree    = "free"
	TierPremium = "premium"

	KeyFree = "free"

	// Unlimited marks an image limit with no cap (admin accounts).
	Unlimited = -1
)

type Plan struct {
	Key           string `yaml:"key" json:"key"`
	Name          string `yaml:"name" json:"name"`
	Tier          string `yaml:"tier" json:"tier"`
	ImageLimit    int    `yaml:"image_limit" json:"image_limit"`
	PeriodDays    int    `yaml:"period_days" json:"period_days"`
	PriceCents    int64  `yaml:"price_cents" json:"price_cents"`
	StripePriceID string `yaml:"stripe_price_id" json:"stripe_price_id,omitempty"`
}

func (p Plan) Period() time.Duration {
	return time.Duration(p.PeriodDays) * 24 * time.Hour
}

func (p Plan) IsPaid() bool {
	return p.Tier == TierPremium
}

type Catalog struct {
	FreeStorageBytes    int64  `yaml:"free_storage_bytes"`
	PremiumStorageBytes int64  `yaml:"premium_storage_bytes"`
	Plans               []Plan `yaml:"plans"`

	byKey   map[string]Plan
	byPrice map[string]Plan
}

// Default returns the catalog compiled into the binary.
func Default() *Catalog {
	c, err := Parse(defaultCatalog)
	if err != nil {
		panic(fmt.Sprintf("embedded plan catalog is invalid: %v", err))
	}
	return c
}

// Load reads a catalog from path, or returns the embedded default when path is empty.
func Load(path string) (*Catalog, error) {
	if path == "" {
		return Default(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read plan catalog: %w", err)
	}
	return Parse(data)
}

func Parse(data []byte) (*Catalog, error) {
	var c Catalog
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("failed to parse plan catalog: %w", err)
	}
	if err := c.index(); err != nil {
		return nil, err
	}
	return &c, nil
}

func (c *Catalog) index() error {
	if c.FreeStorageBytes <= 0 || c.PremiumStorageBytes <= 0 {
		return fmt.Errorf("plan catalog: storage limits must be positive")
	}

	c.byKey = make(map[string]Plan, len(c.Plans))
	c.byPrice = make(map[string]Plan, len(c.Plans))
	for _, p := range c.Plans {
		if p.Key == "" {
			return fmt.Errorf("plan catalog: plan without key")
		}
		if p.Tier != TierFree && p.Tier != TierPremium {
			return fmt.Errorf("plan catalog: plan %s has unknown tier %q", p.Key, p.Tier)
		}
		if _, dup := c.byKey[p.Key]; dup {
			return fmt.Errorf("plan catalog: duplicate plan %s", p.Key)
		}
		if p.IsPaid() && (p.ImageLimit <= 0 || p.PeriodDays <= 0) {
			return fmt.Errorf("plan catalog: paid plan %s needs a positive image limit and period", p.Key)
		}
		c.byKey[p.Key] = p
		if p.StripePriceID != "" {
			c.byPrice[p.StripePriceID] = p
		}
	}
	if _, ok := c.byKey[KeyFree]; !ok {
		return fmt.Errorf("plan catalog: missing %q plan", KeyFree)
	}
	return nil
}

func (c *Catalog) Get(key string) (Plan, bool) {
	p, ok := c.byKey[key]
	return p, ok
}

func (c *Catalog) ByPriceID(priceID string) (Plan, bool) {
	p, ok := c.byPrice[priceID]
	return p, ok
}

// Paid lists the purchasable plans in catalog order.
func (c *Catalog) Paid() []Plan {
	var out []Plan
	for _, p := range c.Plans {
		if p.IsPaid() {
			out = append(out, p)
		}
	}
	return out
}

// StorageLimit returns the byte quota for a tier.
func (c *Catalog) StorageLimit(tier string) int64 {
	if tier == TierPremium {
		return c.PremiumStorageBytes
	}
	return c.FreeStorageBytes
}

// PlanForLimit finds the paid plan whose image limit matches. Subscriptions
// written before plan_key existed are identified this way.
func (c *Catalog) PlanForLimit(limit int) (Plan, bool) {
	for _, p := range c.Plans {
		if p.IsPaid() && p.ImageLimit == limit {
			return p, true
		}
	}
	return Plan{}, false
}

// MonthlyRevenue returns the price in cents of the paid plan with the given
// image limit, or zero when nothing matches.
func (c *Catalog) MonthlyRevenue(imageLimit int) int64 {
	if p, ok := c.PlanForLimit(imageLimit); ok {
		return p.PriceCents
	}
	return 0
}
