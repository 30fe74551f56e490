package services

import (
	"strings"

	"github.com/gosimple/slug"
)

// makeSlug derives a URL-safe slug, preferring an explicit value over the
// display title.
func makeSlug(explicit, title string) string {
	source := strings.TrimSpace(explicit)
	if source == "" {
		source = strings.TrimSpace(title)
	}
	return slug.Make(source)
}
