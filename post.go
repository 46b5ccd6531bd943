package booru

import (
	"net/url"
	"time"

	"github.com/samber/lo"
	"github.com/samber/mo"
)

type (
	// Post is one normalized search result. It is built fresh per call and never mutated.
	Post struct {
		FileURL       *url.URL
		PreviewURL    *url.URL
		Rating        Rating
		Tags          []string
		ID            uint64
		Size          mo.Option[uint64]
		Height        uint
		Width         uint
		PreviewHeight uint
		PreviewWidth  uint
		Creation      time.Time
		Source        mo.Option[string]
	}

	RelatedTag struct {
		Name  string
		Count int
	}
)

// HasTag reports whether tag is in the post's tag set.
func (p Post) HasTag(tag string) bool {
	return lo.Contains(p.Tags, tag)
}
