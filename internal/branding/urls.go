// Package branding rewrites raw storage URLs into links on the app's own domain.
package branding

import (
	"fmt"
	"net/url"
	"path"
	"strings"
	"time"
)

type Kind string

const (
	KindImage    Kind = "image"
	KindDownload Kind = "download"
	KindShare    Kind = "share"

	fallbackID = "naxovate-image"
)

type FileInfo struct {
	Bucket      string
	FileName    string
	OriginalURL string
}

// URLs builds branded links under a fixed public origin.
type URLs struct {
	baseURL string
}

func NewURLs(publicBaseURL string) *URLs {
	return &URLs{baseURL: strings.TrimRight(publicBaseURL, "/")}
}

// ExtractFileInfo returns the last two path segments of a storage URL as
// bucket and file name. It returns nil when the URL cannot be parsed.
func ExtractFileInfo(storageURL string) *FileInfo {
	u, err := url.Parse(storageURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil
	}
	parts := strings.Split(u.Path, "/")
	if len(parts) < 2 {
		return nil
	}
	return &FileInfo{
		Bucket:      parts[len(parts)-2],
		FileName:    parts[len(parts)-1],
		OriginalURL: storageURL,
	}
}

// ProfessionalURL maps a storage URL to {base}/api/{kind}?id={file}. Unknown
// kinds behave like image, and unparseable input is returned unchanged.
func (b *URLs) ProfessionalURL(storageURL string, kind Kind) string {
	info := ExtractFileInfo(storageURL)
	if info == nil || info.FileName == "" {
		return storageURL
	}
	return b.forID(info.FileName, kind)
}

func (b *URLs) forID(id string, kind Kind) string {
	switch kind {
	case KindDownload, KindShare:
	default:
		kind = KindImage
	}
	return fmt.Sprintf("%s/api/%s?id=%s", b.baseURL, kind, url.QueryEscape(id))
}

func (b *URLs) DisplayURL(storageURL string) string {
	info := ExtractFileInfo(storageURL)
	if info == nil || info.FileName == "" {
		return b.forID(fallbackID, KindImage)
	}
	return b.forID(info.FileName, KindImage)
}

func (b *URLs) ShareableURL(storageURL string) string {
	return b.ProfessionalURL(storageURL, KindShare)
}

func (b *URLs) DownloadURL(storageURL string) string {
	return b.ProfessionalURL(storageURL, KindDownload)
}

// DownloadFileName is the attachment name offered to browsers.
func DownloadFileName(fileName string, now time.Time) string {
	if fileName != "" {
		return path.Base(fileName)
	}
	ts := now.UTC().Format("2006-01-02T15:04:05.000Z")
	ts = strings.NewReplacer(":", "-", ".", "-").Replace(ts)
	return fmt.Sprintf("naxovate-image-%s.jpg", ts)
}
