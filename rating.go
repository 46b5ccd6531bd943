package booru

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

type Rating int

const (
	Safe Rating = iota
	Questionable
	Explicit
)

func (r Rating) String() string {
	switch r {
	case Safe:
		return "safe"
	case Questionable:
		return "questionable"
	case Explicit:
		return "explicit"
	}
	return fmt.Sprintf("Rating(%d)", int(r))
}

// ParseRating converts a one-letter rating code.
func ParseRating(c rune) (Rating, error) {
	switch c {
	case 's', 'S':
		return Safe, nil
	case 'q', 'Q':
		return Questionable, nil
	case 'e', 'E':
		return Explicit, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrUnrecognizedRating, c)
}

var ratingWords = map[string]Rating{
	"safe":         Safe,
	"general":      Safe,
	"questionable": Questionable,
	"sensitive":    Questionable,
	"sketchy":      Questionable,
	"explicit":     Explicit,
	"unsafe":       Explicit,
}

// parseRatingValue accepts either a one-letter code or one of the full words
// the various boorus spell ratings with.
func parseRatingValue(s string) (Rating, error) {
	s = strings.TrimSpace(s)
	if r, ok := ratingWords[strings.ToLower(s)]; ok {
		return r, nil
	}
	if utf8.RuneCountInString(s) != 1 {
		return 0, fmt.Errorf("%w: %q", ErrUnrecognizedRating, s)
	}
	c, _ := utf8.DecodeRuneInString(s)
	return ParseRating(c)
}
