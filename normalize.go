package booru

import (
	"bytes"
	"encoding/xml"
	"errors"
	"io"
	"net/url"
	"strconv"
	"strings"

	"github.com/buger/jsonparser"
	"github.com/samber/lo"
	"github.com/samber/mo"
)

// gelbooruAttributes is present on a Gelbooru envelope even when it carries no posts.
const gelbooruAttributes = "@attributes"

var errStop = errors.New("stop")

// DecodePosts normalizes a post list payload. An empty list is not an error.
func (d Descriptor) DecodePosts(body []byte) ([]Post, error) {
	items, err := d.postItems(body)
	if err != nil {
		return nil, err
	}
	posts := make([]Post, 0, len(items))
	for _, item := range items {
		p, err := d.decodePost(item)
		if err != nil {
			return nil, err
		}
		posts = append(posts, p)
	}
	return posts, nil
}

// decodeFirst normalizes the first post of a payload; ok is false when there is none.
func (d Descriptor) decodeFirst(body []byte) (post Post, ok bool, err error) {
	items, err := d.postItems(body)
	if err != nil || len(items) == 0 {
		return Post{}, false, err
	}
	post, err = d.decodePost(items[0])
	return post, err == nil, err
}

// postItems locates the raw post objects in a bare array, a wrapped object or a single object.
func (d Descriptor) postItems(body []byte) ([][]byte, error) {
	body = bytes.TrimSpace(body)
	if len(body) == 0 {
		return nil, nil
	}
	value, dataType, _, err := jsonparser.Get(body)
	if err != nil {
		return nil, malformed("%s", err)
	}
	switch dataType {
	case jsonparser.Array:
		return arrayItems(value)
	case jsonparser.Object:
	default:
		return nil, malformed("unexpected %s payload", dataType)
	}

	for _, key := range d.Schema.envelopeKeys() {
		inner, innerType, _, err := jsonparser.Get(value, key)
		if err != nil {
			continue
		}
		switch innerType {
		case jsonparser.Array:
			return arrayItems(inner)
		case jsonparser.Object:
			return [][]byte{inner}, nil
		case jsonparser.Null:
			return nil, nil
		}
		return nil, malformed("property %q is a %s", key, innerType)
	}
	if _, _, _, err := jsonparser.Get(value, "id"); err == nil {
		return [][]byte{value}, nil
	}
	if _, _, _, err := jsonparser.Get(value, gelbooruAttributes); err == nil {
		return nil, nil
	}
	return nil, malformed("no post list in object")
}

func arrayItems(value []byte) ([][]byte, error) {
	var (
		items [][]byte
		bad   error
	)
	_, err := jsonparser.ArrayEach(value, func(item []byte, dataType jsonparser.ValueType, _ int, err error) {
		if bad != nil {
			return
		}
		if err != nil || dataType != jsonparser.Object {
			bad = malformed("post entry is a %s", dataType)
			return
		}
		items = append(items, item)
	})
	if err != nil {
		return nil, malformed("%s", err)
	}
	return items, bad
}

func (d Descriptor) decodePost(item []byte) (Post, error) {
	r, err := d.Schema.decode(item)
	if err != nil {
		if errors.Is(err, ErrMalformedResponse) {
			return Post{}, err
		}
		return Post{}, malformed("%s", err)
	}
	return d.finish(r)
}

// finish checks that every mandatory field was present and builds the Post.
func (d Descriptor) finish(r rawPost) (Post, error) {
	missing := lo.Filter([]lo.Tuple2[string, bool]{
		lo.T2("id", r.id.ok),
		lo.T2("width", r.width.ok),
		lo.T2("height", r.height.ok),
		lo.T2("preview width", r.previewWidth.ok),
		lo.T2("preview height", r.previewHeight.ok),
		lo.T2("creation date", !r.created.value.IsZero()),
		lo.T2("rating", r.rating != ""),
	}, func(t lo.Tuple2[string, bool], _ int) bool {
		return !t.B
	})
	if len(missing) > 0 {
		return Post{}, malformed("post is missing %s", strings.Join(lo.Map(missing, func(t lo.Tuple2[string, bool], _ int) string {
			return t.A
		}), ", "))
	}

	rating, err := parseRatingValue(r.rating)
	if err != nil {
		return Post{}, err
	}
	fileURL, err := d.absolute(r.fileURL)
	if err != nil {
		return Post{}, err
	}
	previewURL, err := d.absolute(r.previewURL)
	if err != nil {
		return Post{}, err
	}

	p := Post{
		FileURL:       fileURL,
		PreviewURL:    previewURL,
		Rating:        rating,
		Tags:          lo.Uniq(r.tags),
		ID:            r.id.value,
		Size:          mo.None[uint64](),
		Height:        r.height.uint(),
		Width:         r.width.uint(),
		PreviewHeight: r.previewHeight.uint(),
		PreviewWidth:  r.previewWidth.uint(),
		Creation:      r.created.value,
		Source:        mo.None[string](),
	}
	if r.size.ok {
		p.Size = mo.Some(r.size.value)
	}
	if s := strings.TrimSpace(r.source); s != "" {
		p.Source = mo.Some(s)
	}
	return p, nil
}

// absolute resolves a payload URL, which may be relative or scheme-relative, against the booru.
func (d Descriptor) absolute(raw string) (*url.URL, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, malformed("post is missing a url")
	}
	ref, err := url.Parse(raw)
	if err != nil {
		return nil, malformed("bad url %q", raw)
	}
	if ref.IsAbs() {
		return ref, nil
	}
	base, err := url.Parse(d.baseURL())
	if err != nil {
		return nil, malformed("bad base url %q", d.BaseURL)
	}
	return base.ResolveReference(ref), nil
}

// DecodeCount reads a post count from an XML document or a JSON count payload.
func (d Descriptor) DecodeCount(body []byte, format Format) (int, error) {
	if format == FormatXML {
		return decodeXMLCount(body)
	}
	var (
		n   int64
		err error
	)
	switch d.Style {
	case StyleDanbooru:
		n, err = jsonparser.GetInt(body, "counts", "posts")
	case StyleSzurubooru:
		n, err = jsonparser.GetInt(body, "total")
	default:
		return 0, malformed("%s has no json count", d.Name)
	}
	if err != nil {
		return 0, malformed("count: %s", err)
	}
	return int(n), nil
}

// decodeXMLCount reads the first attribute of the root element, e.g. <posts count="12" offset="0">.
func decodeXMLCount(body []byte) (int, error) {
	dec := xml.NewDecoder(bytes.NewReader(body))
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			return 0, malformed("empty xml document")
		}
		if err != nil {
			return 0, malformed("xml: %s", err)
		}
		start, ok := tok.(xml.StartElement)
		if !ok {
			continue
		}
		if len(start.Attr) == 0 {
			return 0, malformed("<%s> has no count attribute", start.Name.Local)
		}
		n, err := strconv.Atoi(start.Attr[0].Value)
		if err != nil || n < 0 {
			return 0, malformed("count %q is not a number", start.Attr[0].Value)
		}
		return n, nil
	}
}

// DecodeRelated normalizes a related-tag payload, keeping backend order.
func (d Descriptor) DecodeRelated(body []byte) ([]RelatedTag, error) {
	switch d.Style {
	case StyleSzurubooru:
		return decodeSiblings(body)
	case StyleDanbooru:
		if list, dataType, _, err := jsonparser.Get(body, "tags"); err == nil && dataType == jsonparser.Array {
			return decodePairs(list)
		}
		return decodeDanbooruRelated(body)
	}

	// Moebooru keys the list by the queried tag, so take the first property.
	var list []byte
	err := jsonparser.ObjectEach(body, func(_ []byte, value []byte, dataType jsonparser.ValueType, _ int) error {
		if dataType != jsonparser.Array {
			return nil
		}
		list = value
		return errStop
	})
	if err != nil && !errors.Is(err, errStop) {
		return nil, malformed("related: %s", err)
	}
	if list == nil {
		return nil, malformed("related: no tag list")
	}
	return decodePairs(list)
}

// decodePairs reads [[name, count], ...] where count may be a number or a string.
func decodePairs(list []byte) ([]RelatedTag, error) {
	tags := []RelatedTag{}
	var bad error
	_, err := jsonparser.ArrayEach(list, func(pair []byte, _ jsonparser.ValueType, _ int, err error) {
		if bad != nil {
			return
		}
		name, nerr := jsonparser.GetString(pair, "[0]")
		count, _, _, cerr := jsonparser.Get(pair, "[1]")
		if err != nil || nerr != nil || cerr != nil {
			bad = malformed("related: bad pair %s", pair)
			return
		}
		n, err := strconv.Atoi(string(count))
		if err != nil {
			bad = malformed("related: bad count %s", count)
			return
		}
		tags = append(tags, RelatedTag{Name: name, Count: n})
	})
	if err != nil {
		return nil, malformed("related: %s", err)
	}
	return tags, bad
}

// decodeDanbooruRelated reads the {"related_tags":[{"tag":{"name","post_count"}}]} layout.
func decodeDanbooruRelated(body []byte) ([]RelatedTag, error) {
	return decodeObjects(body, "related_tags", func(entry []byte) (RelatedTag, error) {
		name, err := jsonparser.GetString(entry, "tag", "name")
		if err != nil {
			return RelatedTag{}, err
		}
		n, err := jsonparser.GetInt(entry, "tag", "post_count")
		return RelatedTag{Name: name, Count: int(n)}, err
	})
}

// decodeSiblings reads szurubooru's {"results":[{"tag":{"names":[...]},"occurrences":N}]}.
func decodeSiblings(body []byte) ([]RelatedTag, error) {
	return decodeObjects(body, "results", func(entry []byte) (RelatedTag, error) {
		name, err := jsonparser.GetString(entry, "tag", "names", "[0]")
		if err != nil {
			return RelatedTag{}, err
		}
		n, err := jsonparser.GetInt(entry, "occurrences")
		return RelatedTag{Name: name, Count: int(n)}, err
	})
}

func decodeObjects(body []byte, key string, fn func([]byte) (RelatedTag, error)) ([]RelatedTag, error) {
	tags := []RelatedTag{}
	var bad error
	_, err := jsonparser.ArrayEach(body, func(entry []byte, _ jsonparser.ValueType, _ int, err error) {
		if bad != nil {
			return
		}
		if err != nil {
			bad = malformed("related: %s", err)
			return
		}
		t, err := fn(entry)
		if err != nil {
			bad = malformed("related: %s", err)
			return
		}
		tags = append(tags, t)
	}, key)
	if err != nil {
		return nil, malformed("related: %s", err)
	}
	return tags, bad
}
