package booru

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/samber/lo"
)

// cleanTags drops blank and whitespace-only tags and trims the rest.
func cleanTags(tags []string) []string {
	return lo.FilterMap(tags, func(tag string, _ int) (string, bool) {
		tag = strings.TrimSpace(tag)
		return tag, tag != ""
	})
}

// checkTags enforces the tag ceiling and the authentication gate on an already
// cleaned tag list.
func (d Descriptor) checkTags(tags []string, creds *Credentials) error {
	if c, ok := d.ceiling(); ok && len(tags) > c {
		return fmt.Errorf("%w: %s accepts %d tags, got %d", ErrTooManyTags, d.Name, c, len(tags))
	}
	if d.AuthAbove != nil && len(tags) > *d.AuthAbove && creds == nil {
		return fmt.Errorf("%w: %s needs credentials for more than %d tags", ErrAuthenticationRequired, d.Name, *d.AuthAbove)
	}
	return nil
}

// joinTags lower-cases, escapes and plus-joins tags into one query value.
func joinTags(tags []string) string {
	return strings.Join(lo.Map(tags, func(tag string, _ int) string {
		return url.QueryEscape(strings.ToLower(tag))
	}), "+")
}
