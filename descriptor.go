package booru

import (
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/samber/lo"
)

// URLStyle is the family of URL templates a booru answers to.
type URLStyle int

const (
	// StylePostIndex is the Moebooru layout: post/index.json, post/index.xml, tag/related.json.
	StylePostIndex URLStyle = iota + 1
	// StyleDanbooru is the Danbooru layout: posts.json, posts/<id>.json, counts/posts.json.
	StyleDanbooru
	// StyleIndexPHP is the Gelbooru layout where everything goes through index.php?page=...&s=....
	StyleIndexPHP
	// StyleSankaku is the token-authenticated Sankaku API.
	StyleSankaku
	// StyleSzurubooru is the self-hosted szurubooru REST API under api/.
	StyleSzurubooru
)

var styleNames = map[URLStyle]string{
	StylePostIndex:  "postindex",
	StyleDanbooru:   "danbooru",
	StyleIndexPHP:   "indexphp",
	StyleSankaku:    "sankaku",
	StyleSzurubooru: "szurubooru",
}

func (s URLStyle) String() string {
	if name, ok := styleNames[s]; ok {
		return name
	}
	return fmt.Sprintf("URLStyle(%d)", int(s))
}

// ParseStyle returns the style whose name matches s, case-insensitively.
func ParseStyle(s string) (URLStyle, error) {
	style, ok := lo.FindKey(styleNames, strings.ToLower(strings.TrimSpace(s)))
	if !ok {
		return 0, fmt.Errorf("unknown url style %q", s)
	}
	return style, nil
}

// Descriptor is the immutable capability record of one booru. Build it once
// from a literal and hand it to New; nothing mutates it afterwards.
type Descriptor struct {
	Name    string   `validate:"required"`
	BaseURL string   `validate:"required,url"`
	Style   URLStyle `validate:"min=1,max=5"`
	Schema  Schema   `validate:"min=1,max=7"`

	// TagCeiling is the maximum tag count per query; nil means unlimited.
	TagCeiling *int `validate:"omitempty,min=1"`

	HasCount       bool
	HasByID        bool
	HasByHash      bool
	HasMultiRandom bool
	HasRelated     bool

	// RandomModifier is the native random sort tag, e.g. "order:random".
	RandomModifier string
	// OrderUsesTagSlot marks backends where ordering modifiers count against
	// TagCeiling, so random selection uses the random=true flag instead.
	OrderUsesTagSlot bool

	// MaxOffset caps the pagination offset used when emulating random selection.
	MaxOffset *int `validate:"omitempty,min=1"`
	// AuthAbove is the tag count above which credentials are mandatory.
	AuthAbove *int `validate:"omitempty,min=0"`

	// Safe is set for boorus that only serve safe content.
	Safe bool
}

var descriptorValidator = newDescriptorValidator()

func newDescriptorValidator() *validator.Validate {
	v := validator.New()
	v.RegisterStructValidation(func(sl validator.StructLevel) {
		d := sl.Current().Interface().(Descriptor)
		if d.AuthAbove != nil && d.TagCeiling != nil && *d.AuthAbove > *d.TagCeiling {
			sl.ReportError(d.AuthAbove, "AuthAbove", "AuthAbove", "lte_ceiling", "")
		}
		if d.OrderUsesTagSlot && d.TagCeiling == nil {
			sl.ReportError(d.OrderUsesTagSlot, "OrderUsesTagSlot", "OrderUsesTagSlot", "requires_ceiling", "")
		}
	}, Descriptor{})
	return v
}

// Validate checks that the descriptor is self-consistent.
func (d Descriptor) Validate() error {
	err := descriptorValidator.Struct(d)
	if err == nil {
		return nil
	}
	if ve, ok := err.(validator.ValidationErrors); ok {
		msgs := lo.Map(ve, func(e validator.FieldError, _ int) string {
			return fmt.Sprintf("%s %s", e.Field(), e.ActualTag())
		})
		return fmt.Errorf("%w %q: %s", ErrInvalidDescriptor, d.Name, strings.Join(msgs, "; "))
	}
	return fmt.Errorf("%w %q: %s", ErrInvalidDescriptor, d.Name, err)
}

// ceiling reports the tag ceiling, or false when unlimited.
func (d Descriptor) ceiling() (int, bool) {
	if d.TagCeiling == nil {
		return 0, false
	}
	return *d.TagCeiling, true
}

func (d Descriptor) baseURL() string {
	if strings.HasSuffix(d.BaseURL, "/") {
		return d.BaseURL
	}
	return d.BaseURL + "/"
}

func limitOf(n int) *int {
	return &n
}
