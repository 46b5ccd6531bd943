package booru

import (
	"encoding/base64"
	"fmt"
	"net/url"
	"strconv"
	"strings"
)

// Endpoint names the kind of request a Target is built for.
type Endpoint int

const (
	EndpointPosts Endpoint = iota
	EndpointPostByID
	EndpointCount
	EndpointRelated
	EndpointRandomRedirect
)

// Format is the body encoding a Target expects back.
type Format int

const (
	FormatJSON Format = iota
	FormatXML
)

// Params carries the per-request extras appended by the builder.
type Params struct {
	Limit int
	// Page is a zero-based page index; with Limit 1 it is the post offset.
	Page int
	ID   uint64
	// Tag is the subject of a related-tag lookup.
	Tag        string
	RandomFlag bool
	// Modifier is appended to the tag query as a trailing token, e.g. "order:random".
	Modifier string
}

// Target is a concrete request ready for the transport.
type Target struct {
	URL    string
	Header map[string]string
	Format Format
}

// Credentials authenticate requests. Key is an API key, password hash or
// bearer token depending on the booru.
type Credentials struct {
	Login string
	Key   string
}

type query struct {
	path string
	args []string
}

func (q *query) add(key, value string) {
	q.args = append(q.args, key+"="+value)
}

func (q *query) addInt(key string, value int) {
	q.add(key, strconv.Itoa(value))
}

// Build produces the request target for kind against this booru. It does no I/O.
func (d Descriptor) Build(kind Endpoint, tags []string, p Params, creds *Credentials) (Target, error) {
	tokens := append([]string{}, tags...)
	if p.Modifier != "" {
		tokens = append(tokens, p.Modifier)
	}

	t := Target{Header: map[string]string{"Accept": "application/json"}, Format: FormatJSON}
	var (
		q   query
		err error
	)
	switch d.Style {
	case StyleIndexPHP:
		q, err = d.indexPHP(kind, tokens, p, &t)
	case StylePostIndex:
		q, err = d.postIndex(kind, tokens, p, &t)
	case StyleDanbooru:
		q, err = d.danbooru(kind, tokens, p, &t)
	case StyleSankaku:
		q, err = d.sankaku(kind, tokens, p)
	case StyleSzurubooru:
		q, err = d.szurubooru(kind, tokens, p)
	default:
		err = fmt.Errorf("%w: unknown url style %s", ErrInvalidDescriptor, d.Style)
	}
	if err != nil {
		return Target{}, err
	}

	if creds != nil {
		d.authenticate(&q, &t, *creds)
	}

	t.URL = d.baseURL() + q.path
	if len(q.args) > 0 {
		t.URL += "?" + strings.Join(q.args, "&")
	}
	return t, nil
}

func unsupported(d Descriptor, kind Endpoint) error {
	return fmt.Errorf("%w: %s has no endpoint %d", ErrFeatureUnavailable, d.Name, kind)
}

func (d Descriptor) indexPHP(kind Endpoint, tokens []string, p Params, t *Target) (query, error) {
	q := query{path: "index.php"}
	switch kind {
	case EndpointRandomRedirect:
		q.add("page", "post")
		q.add("s", "random")
		return q, nil
	case EndpointRelated:
		return q, unsupported(d, kind)
	}

	q.add("page", "dapi")
	q.add("s", "post")
	q.add("q", "index")
	switch kind {
	case EndpointCount:
		t.Format = FormatXML
		t.Header["Accept"] = "application/xml"
		q.addInt("limit", 1)
	case EndpointPostByID:
		q.add("json", "1")
		q.addInt("limit", 1)
		q.add("id", strconv.FormatUint(p.ID, 10))
		return q, nil
	default:
		q.add("json", "1")
		if p.Limit > 0 {
			q.addInt("limit", p.Limit)
		}
		if p.Page > 0 {
			q.addInt("pid", p.Page)
		}
	}
	q.add("tags", joinTags(tokens))
	return q, nil
}

func (d Descriptor) postIndex(kind Endpoint, tokens []string, p Params, t *Target) (query, error) {
	q := query{path: "post/index.json"}
	switch kind {
	case EndpointRelated:
		q.path = "tag/related.json"
		q.add("tags", joinTags([]string{p.Tag}))
		return q, nil
	case EndpointRandomRedirect:
		return q, unsupported(d, kind)
	case EndpointCount:
		q.path = "post/index.xml"
		t.Format = FormatXML
		t.Header["Accept"] = "application/xml"
		q.addInt("limit", 1)
	case EndpointPostByID:
		q.addInt("limit", 1)
		tokens = []string{"id:" + strconv.FormatUint(p.ID, 10)}
	default:
		addPaging(&q, p, "page", 1)
	}
	q.add("tags", joinTags(tokens))
	return q, nil
}

func (d Descriptor) danbooru(kind Endpoint, tokens []string, p Params, t *Target) (query, error) {
	q := query{path: "posts.json"}
	switch kind {
	case EndpointRelated:
		q.path = "related_tag.json"
		q.add("query", joinTags([]string{p.Tag}))
		return q, nil
	case EndpointRandomRedirect:
		return q, unsupported(d, kind)
	case EndpointPostByID:
		q.path = "posts/" + strconv.FormatUint(p.ID, 10) + ".json"
		return q, nil
	case EndpointCount:
		q.path = "counts/posts.json"
	default:
		addPaging(&q, p, "page", 1)
		if p.RandomFlag {
			q.add("random", "true")
		}
	}
	q.add("tags", joinTags(tokens))
	return q, nil
}

func (d Descriptor) sankaku(kind Endpoint, tokens []string, p Params) (query, error) {
	q := query{path: "posts"}
	switch kind {
	case EndpointCount, EndpointRelated, EndpointRandomRedirect:
		return q, unsupported(d, kind)
	case EndpointPostByID:
		q.addInt("limit", 1)
		tokens = []string{"id_range:" + strconv.FormatUint(p.ID, 10)}
	default:
		addPaging(&q, p, "page", 1)
	}
	q.add("tags", joinTags(tokens))
	return q, nil
}

func (d Descriptor) szurubooru(kind Endpoint, tokens []string, p Params) (query, error) {
	q := query{path: "api/posts/"}
	switch kind {
	case EndpointRelated:
		q.path = "api/tag-siblings/" + url.PathEscape(strings.ToLower(p.Tag))
		return q, nil
	case EndpointRandomRedirect:
		return q, unsupported(d, kind)
	case EndpointPostByID:
		q.path = "api/post/" + strconv.FormatUint(p.ID, 10)
		return q, nil
	case EndpointCount:
		q.addInt("limit", 0)
	default:
		if p.Limit > 0 {
			q.addInt("limit", p.Limit)
			if p.Page > 0 {
				q.addInt("offset", p.Page*p.Limit)
			}
		}
	}
	q.add("query", joinTags(tokens))
	return q, nil
}

// addPaging appends limit and a page parameter counted from base.
func addPaging(q *query, p Params, key string, base int) {
	if p.Limit > 0 {
		q.addInt("limit", p.Limit)
	}
	if p.Page > 0 {
		q.addInt(key, p.Page+base)
	}
}

func (d Descriptor) authenticate(q *query, t *Target, creds Credentials) {
	basic := base64.StdEncoding.EncodeToString([]byte(fmt.Sprintf("%s:%s", creds.Login, creds.Key)))
	switch d.Style {
	case StyleDanbooru:
		t.Header["Authorization"] = "Basic " + basic
	case StyleIndexPHP:
		q.add("user_id", url.QueryEscape(creds.Login))
		q.add("api_key", url.QueryEscape(creds.Key))
	case StylePostIndex:
		q.add("login", url.QueryEscape(creds.Login))
		q.add("password_hash", url.QueryEscape(creds.Key))
	case StyleSankaku:
		t.Header["Authorization"] = "Bearer " + creds.Key
	case StyleSzurubooru:
		t.Header["Authorization"] = "Token " + basic
	}
}
