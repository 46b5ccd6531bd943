package booru

import (
	"context"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"
)

// Client runs queries against one booru. It is safe for concurrent use.
type Client struct {
	desc      Descriptor
	creds     *Credentials
	transport Transport
	rng       RandomSource
	logger    *logrus.Logger
}

type Option func(*Client)

func WithCredentials(creds Credentials) Option {
	return func(c *Client) {
		c.creds = &creds
	}
}

func WithTransport(t Transport) Option {
	return func(c *Client) {
		c.transport = t
	}
}

// WithRandom replaces the random source used for offset selection.
func WithRandom(r RandomSource) Option {
	return func(c *Client) {
		c.rng = r
	}
}

func WithLogger(l *logrus.Logger) Option {
	return func(c *Client) {
		c.logger = l
	}
}

// New validates d and returns a client for it.
func New(d Descriptor, opts ...Option) (*Client, error) {
	if err := d.Validate(); err != nil {
		return nil, err
	}
	c := &Client{desc: d}
	for _, opt := range opts {
		opt(c)
	}
	if c.logger == nil {
		c.logger = logrus.New()
	}
	if c.transport == nil {
		c.transport = NewRestyTransport(c.logger)
	}
	if c.rng == nil {
		c.rng = defaultRandomSource()
	}
	return c, nil
}

func (c *Client) Descriptor() Descriptor {
	return c.desc
}

// Safe reports whether the booru only serves safe content.
func (c *Client) Safe() bool {
	return c.desc.Safe
}

func (c *Client) unavailable(op string) error {
	return fmt.Errorf("%w: %s on %s", ErrFeatureUnavailable, op, c.desc.Name)
}

// ByID fetches the post with the given id.
func (c *Client) ByID(ctx context.Context, id uint64) (Post, error) {
	if !c.desc.HasByID {
		return Post{}, c.unavailable("post by id")
	}
	return c.byID(ctx, id, ErrPostNotFound)
}

// ByHash fetches the post whose file has the given MD5 hash.
func (c *Client) ByHash(ctx context.Context, md5 string) (Post, error) {
	if !c.desc.HasByHash {
		return Post{}, c.unavailable("post by md5")
	}
	md5 = strings.TrimSpace(md5)
	if md5 == "" {
		return Post{}, fmt.Errorf("%w: empty md5", ErrInvalidTags)
	}
	return c.first(ctx, nil, Params{Limit: 1, Modifier: "md5:" + md5}, ErrPostNotFound)
}

// Count returns how many posts match tags; no tags counts every post.
func (c *Client) Count(ctx context.Context, tags ...string) (int, error) {
	if !c.desc.HasCount {
		return 0, c.unavailable("post count")
	}
	tags, err := c.prepare(tags)
	if err != nil {
		return 0, err
	}
	return c.count(ctx, tags)
}

// Random returns one random post carrying every tag.
func (c *Client) Random(ctx context.Context, tags ...string) (Post, error) {
	tags, err := c.prepare(tags)
	if err != nil {
		return Post{}, err
	}
	s, err := Resolve(c.desc, tags)
	if err != nil {
		return Post{}, err
	}
	c.logger.WithFields(logrus.Fields{
		"booru":    c.desc.Name,
		"strategy": s.Name(),
		"tags":     tags,
	}).Debug("random post")
	return s.Random(ctx, c, tags)
}

// RandomN returns up to n random posts in one query. Fewer posts than n is not an error;
// n <= 0 returns no posts without a request.
func (c *Client) RandomN(ctx context.Context, n int, tags ...string) ([]Post, error) {
	if !c.desc.HasMultiRandom {
		return nil, c.unavailable("multiple random posts")
	}
	tags, err := c.prepare(tags)
	if err != nil {
		return nil, err
	}
	if n <= 0 {
		return []Post{}, nil
	}
	p := Params{Limit: n}
	switch {
	case c.desc.OrderUsesTagSlot:
		p.RandomFlag = true
	case c.desc.RandomModifier != "":
		p.Modifier = c.desc.RandomModifier
	default:
		return nil, c.unavailable("multiple random posts")
	}
	return c.posts(ctx, tags, p)
}

// Latest returns the newest page of posts carrying every tag.
func (c *Client) Latest(ctx context.Context, tags ...string) ([]Post, error) {
	tags, err := c.prepare(tags)
	if err != nil {
		return nil, err
	}
	return c.posts(ctx, tags, Params{})
}

// LatestN returns the n newest posts carrying every tag; n <= 0 returns no posts without a request.
func (c *Client) LatestN(ctx context.Context, n int, tags ...string) ([]Post, error) {
	tags, err := c.prepare(tags)
	if err != nil {
		return nil, err
	}
	if n <= 0 {
		return []Post{}, nil
	}
	return c.posts(ctx, tags, Params{Limit: n})
}

// Related returns the tags related to tag, in the order the booru gives them.
func (c *Client) Related(ctx context.Context, tag string) ([]RelatedTag, error) {
	if !c.desc.HasRelated {
		return nil, c.unavailable("related tags")
	}
	tag = strings.TrimSpace(tag)
	if tag == "" {
		return nil, fmt.Errorf("%w: empty tag", ErrInvalidTags)
	}
	t, err := c.build(EndpointRelated, nil, Params{Tag: tag})
	if err != nil {
		return nil, err
	}
	body, err := c.transport.Fetch(ctx, t)
	if err != nil {
		return nil, err
	}
	return c.desc.DecodeRelated(body)
}

func (c *Client) prepare(tags []string) ([]string, error) {
	tags = cleanTags(tags)
	return tags, c.desc.checkTags(tags, c.creds)
}

func (c *Client) build(kind Endpoint, tags []string, p Params) (Target, error) {
	return c.desc.Build(kind, tags, p, c.creds)
}

func (c *Client) count(ctx context.Context, tags []string) (int, error) {
	t, err := c.build(EndpointCount, tags, Params{})
	if err != nil {
		return 0, err
	}
	body, err := c.transport.Fetch(ctx, t)
	if err != nil {
		return 0, err
	}
	return c.desc.DecodeCount(body, t.Format)
}

func (c *Client) posts(ctx context.Context, tags []string, p Params) ([]Post, error) {
	t, err := c.build(EndpointPosts, tags, p)
	if err != nil {
		return nil, err
	}
	body, err := c.transport.Fetch(ctx, t)
	if err != nil {
		return nil, err
	}
	return c.desc.DecodePosts(body)
}

// first fetches a single-result query and returns empty when nothing matched.
func (c *Client) first(ctx context.Context, tags []string, p Params, empty error) (Post, error) {
	t, err := c.build(EndpointPosts, tags, p)
	if err != nil {
		return Post{}, err
	}
	return c.fetchFirst(ctx, t, empty)
}

func (c *Client) byID(ctx context.Context, id uint64, empty error) (Post, error) {
	t, err := c.build(EndpointPostByID, nil, Params{ID: id})
	if err != nil {
		return Post{}, err
	}
	return c.fetchFirst(ctx, t, empty)
}

func (c *Client) fetchFirst(ctx context.Context, t Target, empty error) (Post, error) {
	body, err := c.transport.Fetch(ctx, t)
	if err != nil {
		return Post{}, err
	}
	post, ok, err := c.desc.decodeFirst(body)
	if err != nil {
		return Post{}, err
	}
	if !ok {
		return Post{}, empty
	}
	return post, nil
}
