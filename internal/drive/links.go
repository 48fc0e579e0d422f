package drive

import "fmt"

// Links builds public-facing Drive URLs for matched photos. The domain is
// configurable so self-hosted proxies can rewrite links; it defaults to the
// public Drive domain.
type Links struct {
	Domain string
}

// ViewURL returns the canonical full-view URL for a file.
func (l Links) ViewURL(id string) string {
	return fmt.Sprintf("%s/uc?id=%s", l.Domain, id)
}

// ThumbnailURL returns the canonical thumbnail URL for a file.
func (l Links) ThumbnailURL(id string) string {
	return fmt.Sprintf("%s/thumbnail?id=%s", l.Domain, id)
}
