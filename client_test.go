package booru

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubTransport answers every request from handlers and records what was asked.
type stubTransport struct {
	mu       sync.Mutex
	targets  []Target
	fetch    func(t Target, u *url.URL) ([]byte, error)
	redirect func(t Target, u *url.URL) (Redirect, error)
}

func (s *stubTransport) record(t Target) *url.URL {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.targets = append(s.targets, t)
	u, _ := url.Parse(t.URL)
	return u
}

func (s *stubTransport) Fetch(_ context.Context, t Target) ([]byte, error) {
	u := s.record(t)
	if s.fetch == nil {
		return nil, errors.New("unexpected fetch")
	}
	return s.fetch(t, u)
}

func (s *stubTransport) Redirect(_ context.Context, t Target) (Redirect, error) {
	u := s.record(t)
	if s.redirect == nil {
		return Redirect{}, errors.New("unexpected redirect")
	}
	return s.redirect(t, u)
}

func (s *stubTransport) requests() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.targets)
}

func (s *stubTransport) last() *url.URL {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, _ := url.Parse(s.targets[len(s.targets)-1].URL)
	return u
}

// fixedRandom always draws the largest allowed value.
type fixedRandom struct{}

func (fixedRandom) IntN(n int) int { return n - 1 }

func newClient(t *testing.T, d Descriptor, tr Transport, opts ...Option) *Client {
	t.Helper()
	c, err := New(d, append([]Option{WithTransport(tr), WithRandom(NewRandomSource(1))}, opts...)...)
	require.NoError(t, err)
	return c
}

func moebooruItem(id int, tags string) string {
	return fmt.Sprintf(`{"id":%d,"tags":%q,"created_at":1500000000,"file_url":"https://files.example/%d.png",
		"preview_url":"https://files.example/p%d.jpg","preview_width":150,"preview_height":100,
		"width":1500,"height":1000,"rating":"s"}`, id, tags, id, id)
}

func gelbooru02Item(id int, tags string) string {
	return fmt.Sprintf(`{"directory":"ab","hash":"h%d","image":"h%d.png","id":%d,"change":1600000000,
		"rating":"e","tags":%q,"width":300,"height":300}`, id, id, id, tags)
}

func gelbooruItem(id int) string {
	return fmt.Sprintf(`{"id":%d,"created_at":"Sat Mar 19 18:16:17 -0500 2022",
		"file_url":"https://img3.gelbooru.com/images/%d.jpg","preview_url":"https://img3.gelbooru.com/thumbnails/%d.jpg",
		"preview_width":250,"preview_height":200,"width":1000,"height":800,"rating":"general","tags":"a"}`, id, id, id)
}

func xmlCount(n int) []byte {
	return []byte(fmt.Sprintf(`<?xml version="1.0" encoding="UTF-8"?><posts count="%d" offset="0"></posts>`, n))
}

func TestByID(t *testing.T) {
	tr := &stubTransport{fetch: func(_ Target, u *url.URL) ([]byte, error) {
		id := strings.TrimPrefix(u.Query().Get("tags"), "id:")
		return []byte("[" + moebooruItem(atoi(id), "a") + "]"), nil
	}}
	c := newClient(t, Konachan(), tr)

	for _, id := range []uint64{1, 42, 99999} {
		p, err := c.ByID(context.Background(), id)
		require.NoError(t, err)
		assert.Equal(t, id, p.ID)
	}

	tr.fetch = func(Target, *url.URL) ([]byte, error) { return []byte("[]"), nil }
	_, err := c.ByID(context.Background(), 5)
	assert.ErrorIs(t, err, ErrPostNotFound)
}

func atoi(s string) int {
	n, _ := strconv.Atoi(s)
	return n
}

func TestByHash(t *testing.T) {
	tr := &stubTransport{fetch: func(Target, *url.URL) ([]byte, error) {
		return []byte("[" + moebooruItem(3, "a") + "]"), nil
	}}
	c := newClient(t, Yandere(), tr)
	p, err := c.ByHash(context.Background(), "D41D8CD98F00B204E9800998ECF8427E")
	require.NoError(t, err)
	assert.Equal(t, uint64(3), p.ID)
	assert.Equal(t, "md5:d41d8cd98f00b204e9800998ecf8427e", tr.last().Query().Get("tags"))
}

func TestFeatureUnavailable(t *testing.T) {
	tr := &stubTransport{}
	ctx := context.Background()

	sankaku := newClient(t, SankakuComplex(), tr)
	_, err := sankaku.ByID(ctx, 1)
	assert.ErrorIs(t, err, ErrFeatureUnavailable)
	_, err = sankaku.Count(ctx, "a")
	assert.ErrorIs(t, err, ErrFeatureUnavailable)

	safebooru := newClient(t, Safebooru(), tr)
	_, err = safebooru.RandomN(ctx, 5)
	assert.ErrorIs(t, err, ErrFeatureUnavailable)
	_, err = safebooru.Related(ctx, "a")
	assert.ErrorIs(t, err, ErrFeatureUnavailable)

	szuru := newClient(t, Szurubooru("https://booru.example.org"), tr)
	_, err = szuru.ByHash(ctx, "abc")
	assert.ErrorIs(t, err, ErrFeatureUnavailable)

	assert.Zero(t, tr.requests())
}

func TestCountNarrowing(t *testing.T) {
	totals := map[int]int{0: 1000, 1: 120, 2: 7}
	tr := &stubTransport{fetch: func(_ Target, u *url.URL) ([]byte, error) {
		return xmlCount(totals[len(strings.Fields(u.Query().Get("tags")))]), nil
	}}
	c := newClient(t, Gelbooru(), tr)
	ctx := context.Background()

	all, err := c.Count(ctx)
	require.NoError(t, err)
	one, err := c.Count(ctx, "cat_ears")
	require.NoError(t, err)
	two, err := c.Count(ctx, "cat_ears", "blue_sky")
	require.NoError(t, err)
	assert.LessOrEqual(t, two, one)
	assert.LessOrEqual(t, one, all)
}

func TestTagCeiling(t *testing.T) {
	tr := &stubTransport{fetch: func(_ Target, u *url.URL) ([]byte, error) {
		if u.Path == "/counts/posts.json" {
			return []byte(`{"counts":{"posts":3}}`), nil
		}
		return []byte(danbooruPost), nil
	}}
	c := newClient(t, Danbooru(), tr)
	ctx := context.Background()

	_, err := c.Count(ctx, "a", "b", "c")
	assert.ErrorIs(t, err, ErrTooManyTags)
	_, err = c.Random(ctx, "a", "b", "c")
	assert.ErrorIs(t, err, ErrTooManyTags)
	assert.Zero(t, tr.requests())

	n, err := c.Count(ctx, "a", "b")
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	_, err = c.Random(ctx, "a", "b")
	require.NoError(t, err)

	// blank tags do not count toward the ceiling
	_, err = c.Count(ctx, "a", " ", "", "b", "\t")
	require.NoError(t, err)
	assert.Equal(t, "a b", tr.last().Query().Get("tags"))
}

func TestRandomFlagEmulated(t *testing.T) {
	tr := &stubTransport{fetch: func(Target, *url.URL) ([]byte, error) {
		return []byte("[" + danbooruPost + "]"), nil
	}}
	c := newClient(t, Danbooru(), tr)

	p, err := c.Random(context.Background(), "a", "b")
	require.NoError(t, err)
	assert.True(t, p.HasTag("a"))
	assert.True(t, p.HasTag("b"))

	q := tr.last().Query()
	assert.Equal(t, "true", q.Get("random"))
	assert.Equal(t, "a b", q.Get("tags"))
	assert.Equal(t, 1, tr.requests())
}

func TestRandomNativeSort(t *testing.T) {
	tr := &stubTransport{fetch: func(Target, *url.URL) ([]byte, error) {
		return []byte("[" + moebooruItem(1, "touhou") + "]"), nil
	}}
	c := newClient(t, Konachan(), tr)

	p, err := c.Random(context.Background(), "touhou")
	require.NoError(t, err)
	assert.True(t, p.HasTag("touhou"))
	assert.Equal(t, "touhou order:random", tr.last().Query().Get("tags"))
	assert.Equal(t, 1, tr.requests())

	tr.fetch = func(Target, *url.URL) ([]byte, error) { return []byte("[]"), nil }
	_, err = c.Random(context.Background(), "nothing_has_this")
	assert.ErrorIs(t, err, ErrInvalidTags)
}

func TestRandomRedirectCapture(t *testing.T) {
	tr := &stubTransport{
		redirect: func(_ Target, u *url.URL) (Redirect, error) {
			assert.Equal(t, "random", u.Query().Get("s"))
			return Redirect{Location: "index.php?page=post&s=view&id=77"}, nil
		},
		fetch: func(_ Target, u *url.URL) ([]byte, error) {
			assert.Equal(t, "77", u.Query().Get("id"))
			return []byte("[" + gelbooru02Item(77, "a") + "]"), nil
		},
	}
	c := newClient(t, Safebooru(), tr)

	p, err := c.Random(context.Background(), " ")
	require.NoError(t, err)
	assert.Equal(t, uint64(77), p.ID)
	assert.Equal(t, 2, tr.requests())

	tr.redirect = func(Target, *url.URL) (Redirect, error) { return Redirect{Body: []byte("<html/>")}, nil }
	_, err = c.Random(context.Background())
	assert.ErrorIs(t, err, ErrMalformedResponse)

	tr.redirect = func(Target, *url.URL) (Redirect, error) { return Redirect{Location: "index.php?page=post"}, nil }
	_, err = c.Random(context.Background())
	assert.ErrorIs(t, err, ErrMalformedResponse)
}

func TestRandomCountThenOffset(t *testing.T) {
	total := 0
	var pid string
	tr := &stubTransport{fetch: func(t Target, u *url.URL) ([]byte, error) {
		if t.Format == FormatXML {
			return xmlCount(total), nil
		}
		pid = u.Query().Get("pid")
		return []byte("[" + gelbooru02Item(5, "cat_ears blue_sky") + "]"), nil
	}}
	ctx := context.Background()

	c := newClient(t, Safebooru(), tr)
	_, err := c.Random(ctx, "cat_ears")
	assert.ErrorIs(t, err, ErrInvalidTags)
	assert.Equal(t, 1, tr.requests(), "no post request after a zero count")

	total = 10
	p, err := c.Random(ctx, "cat_ears", "blue_sky")
	require.NoError(t, err)
	assert.True(t, p.HasTag("cat_ears"))
	assert.True(t, p.HasTag("blue_sky"))
	offset := atoi(pid)
	assert.GreaterOrEqual(t, offset, 0)
	assert.Less(t, offset, 10)

	total = 1000000
	rule34 := newClient(t, Rule34(), tr, WithRandom(fixedRandom{}))
	_, err = rule34.Random(ctx, "cat_ears")
	require.NoError(t, err)
	assert.Equal(t, "20000", pid)
}

func TestCountThenOffsetBounds(t *testing.T) {
	rng := NewRandomSource(42)
	s := CountThenOffset{MaxOffset: limitOf(increasedPostLimit)}
	for _, total := range []int{1, 2, 17, increasedPostLimit, increasedPostLimit * 3} {
		bound := total
		if bound > increasedPostLimit {
			bound = increasedPostLimit
		}
		for i := 0; i < 200; i++ {
			offset, err := s.offset(total, rng)
			require.NoError(t, err)
			assert.GreaterOrEqual(t, offset, 0)
			assert.Less(t, offset, bound)
		}
	}
	_, err := s.offset(0, rng)
	assert.ErrorIs(t, err, ErrInvalidTags)
}

func TestAuthenticationGate(t *testing.T) {
	tr := &stubTransport{fetch: func(Target, *url.URL) ([]byte, error) {
		return []byte(sankakuPosts), nil
	}}
	ctx := context.Background()
	tags := []string{"a", "b", "c", "d", "e"}

	anon := newClient(t, SankakuComplex(), tr)
	_, err := anon.Random(ctx, tags...)
	assert.ErrorIs(t, err, ErrAuthenticationRequired)
	_, err = anon.RandomN(ctx, 3, tags...)
	assert.ErrorIs(t, err, ErrAuthenticationRequired)
	assert.Zero(t, tr.requests())

	_, err = anon.Random(ctx, tags[:4]...)
	require.NoError(t, err)

	authed := newClient(t, SankakuComplex(), tr, WithCredentials(Credentials{Login: "user", Key: "tok"}))
	_, err = authed.Random(ctx, tags...)
	require.NoError(t, err)
	assert.Equal(t, "Bearer tok", tr.targets[len(tr.targets)-1].Header["Authorization"])
}

func TestRandomN(t *testing.T) {
	tr := &stubTransport{fetch: func(Target, *url.URL) ([]byte, error) {
		return []byte(`{"@attributes":{"limit":5,"offset":0,"count":2},"post":[` +
			gelbooruItem(1) + "," + gelbooruItem(2) + `]}`), nil
	}}
	c := newClient(t, Gelbooru(), tr)

	posts, err := c.RandomN(context.Background(), 5, "a")
	require.NoError(t, err)
	assert.Len(t, posts, 2, "fewer posts than asked is fine")
	q := tr.last().Query()
	assert.Equal(t, "5", q.Get("limit"))
	assert.Equal(t, "a sort:random", q.Get("tags"))

	danbooru := newClient(t, Danbooru(), &stubTransport{fetch: func(Target, *url.URL) ([]byte, error) {
		return []byte("[" + danbooruPost + "]"), nil
	}})
	posts, err = danbooru.RandomN(context.Background(), 3, "a", "b")
	require.NoError(t, err)
	assert.Len(t, posts, 1)
}

func TestNonPositiveLimit(t *testing.T) {
	tr := &stubTransport{fetch: func(Target, *url.URL) ([]byte, error) {
		return []byte("[" + moebooruItem(3, "a") + "," + moebooruItem(2, "a") + "," + moebooruItem(1, "a") + "]"), nil
	}}
	c := newClient(t, Konachan(), tr)
	ctx := context.Background()

	for _, n := range []int{0, -1} {
		posts, err := c.RandomN(ctx, n, "a")
		require.NoError(t, err)
		assert.Empty(t, posts)

		posts, err = c.LatestN(ctx, n, "a")
		require.NoError(t, err)
		assert.Empty(t, posts)
	}
	assert.Zero(t, tr.requests())

	danbooru := newClient(t, Danbooru(), tr)
	_, err := danbooru.LatestN(ctx, 0, "a", "b", "c")
	assert.ErrorIs(t, err, ErrTooManyTags)
}

func TestLatest(t *testing.T) {
	tr := &stubTransport{fetch: func(Target, *url.URL) ([]byte, error) {
		return []byte("[" + moebooruItem(2, "a") + "," + moebooruItem(1, "a") + "]"), nil
	}}
	c := newClient(t, Yandere(), tr)
	ctx := context.Background()

	posts, err := c.Latest(ctx, "a", "")
	require.NoError(t, err)
	assert.Len(t, posts, 2)
	assert.False(t, tr.last().Query().Has("limit"))
	assert.NotContains(t, tr.last().Query().Get("tags"), "random")

	_, err = c.LatestN(ctx, 2, "a")
	require.NoError(t, err)
	assert.Equal(t, "2", tr.last().Query().Get("limit"))
}

func TestRelated(t *testing.T) {
	tr := &stubTransport{fetch: func(Target, *url.URL) ([]byte, error) {
		return []byte(`{"touhou":[["touhou","10"],["reimu","4"]]}`), nil
	}}
	c := newClient(t, Konachan(), tr)

	tags, err := c.Related(context.Background(), "touhou")
	require.NoError(t, err)
	assert.Equal(t, []RelatedTag{{"touhou", 10}, {"reimu", 4}}, tags)

	_, err = c.Related(context.Background(), "  ")
	assert.ErrorIs(t, err, ErrInvalidTags)
}

func TestTransportErrorsPassThrough(t *testing.T) {
	boom := &StatusError{URL: "https://konachan.com/post/index.json", Code: 503}
	tr := &stubTransport{fetch: func(Target, *url.URL) ([]byte, error) { return nil, boom }}
	c := newClient(t, Konachan(), tr)

	_, err := c.Random(context.Background(), "a")
	assert.Same(t, boom, err)
	_, err = c.Count(context.Background())
	assert.Same(t, boom, err)
}

func TestConcurrentRandom(t *testing.T) {
	tr := &stubTransport{fetch: func(t Target, _ *url.URL) ([]byte, error) {
		if t.Format == FormatXML {
			return xmlCount(50), nil
		}
		return []byte("[" + gelbooru02Item(1, "a") + "]"), nil
	}}
	c := newClient(t, Safebooru(), tr)

	var wg sync.WaitGroup
	errs := make([]error, 16)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = c.Random(context.Background(), "a")
		}(i)
	}
	wg.Wait()
	for _, err := range errs {
		assert.NoError(t, err)
	}
	assert.Equal(t, 32, tr.requests())
}
