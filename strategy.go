package booru

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
)

// RandomStrategy is one way of fulfilling a random-selection request.
type RandomStrategy interface {
	Name() string
	Random(ctx context.Context, c *Client, tags []string) (Post, error)
}

type (
	// NativeRandomSort appends the booru's random sort tag to the query.
	NativeRandomSort struct{ Modifier string }
	// FlagEmulated asks for random order with random=true, sparing a tag slot.
	FlagEmulated struct{}
	// RedirectIDCapture reads the post id from the random-post redirect, then looks it up.
	RedirectIDCapture struct{}
	// CountThenOffset counts the matches and fetches one at a random offset.
	CountThenOffset struct{ MaxOffset *int }
)

// Resolve picks the random-selection strategy for d. The choice depends only
// on the descriptor and on whether tags is empty.
func Resolve(d Descriptor, tags []string) (RandomStrategy, error) {
	switch {
	case d.OrderUsesTagSlot:
		return FlagEmulated{}, nil
	case d.RandomModifier != "":
		return NativeRandomSort{Modifier: d.RandomModifier}, nil
	case d.Style == StyleIndexPHP && len(tags) == 0:
		return RedirectIDCapture{}, nil
	case d.Style == StyleIndexPHP:
		return CountThenOffset{MaxOffset: d.MaxOffset}, nil
	}
	return nil, fmt.Errorf("%w: %s has no random selection", ErrFeatureUnavailable, d.Name)
}

func (NativeRandomSort) Name() string  { return "native-random-sort" }
func (FlagEmulated) Name() string      { return "flag-emulated" }
func (RedirectIDCapture) Name() string { return "redirect-id-capture" }
func (CountThenOffset) Name() string   { return "count-then-offset" }

func (s NativeRandomSort) Random(ctx context.Context, c *Client, tags []string) (Post, error) {
	return c.first(ctx, tags, Params{Limit: 1, Modifier: s.Modifier}, ErrInvalidTags)
}

func (FlagEmulated) Random(ctx context.Context, c *Client, tags []string) (Post, error) {
	return c.first(ctx, tags, Params{Limit: 1, RandomFlag: true}, ErrInvalidTags)
}

func (RedirectIDCapture) Random(ctx context.Context, c *Client, tags []string) (Post, error) {
	t, err := c.build(EndpointRandomRedirect, tags, Params{})
	if err != nil {
		return Post{}, err
	}
	r, err := c.transport.Redirect(ctx, t)
	if err != nil {
		return Post{}, err
	}
	if !r.Captured() {
		return Post{}, malformed("random post endpoint did not redirect")
	}
	id, err := redirectID(r.Location)
	if err != nil {
		return Post{}, err
	}
	return c.byID(ctx, id, ErrInvalidTags)
}

// redirectID extracts the id query parameter of a post view URL such as
// index.php?page=post&s=view&id=123.
func redirectID(location string) (uint64, error) {
	u, err := url.Parse(location)
	if err != nil {
		return 0, malformed("bad redirect location %q", location)
	}
	id, err := strconv.ParseUint(u.Query().Get("id"), 10, 64)
	if err != nil {
		return 0, malformed("no post id in redirect location %q", location)
	}
	return id, nil
}

func (s CountThenOffset) Random(ctx context.Context, c *Client, tags []string) (Post, error) {
	total, err := c.count(ctx, tags)
	if err != nil {
		return Post{}, err
	}
	offset, err := s.offset(total, c.rng)
	if err != nil {
		return Post{}, err
	}
	return c.first(ctx, tags, Params{Limit: 1, Page: offset}, ErrInvalidTags)
}

// offset draws a uniform offset in [0, min(total, MaxOffset)).
func (s CountThenOffset) offset(total int, rng RandomSource) (int, error) {
	if total <= 0 {
		return 0, ErrInvalidTags
	}
	if s.MaxOffset != nil && total > *s.MaxOffset {
		total = *s.MaxOffset
	}
	return rng.IntN(total), nil
}
