package booru

import (
	"bytes"
	"encoding/json"
	"math"
	"path"
	"strconv"
	"strings"
	"time"

	"github.com/samber/lo"
)

// Schema is the field layout family of a booru's post objects.
type Schema int

const (
	SchemaMoebooru Schema = iota + 1
	SchemaDanbooru
	SchemaE621
	SchemaGelbooru
	SchemaGelbooru02
	SchemaSankaku
	SchemaSzurubooru
)

const (
	gelbooru02ThumbnailBox = 150
	szurubooruThumbnailBox = 300
)

// envelopeKeys lists the properties a schema wraps its post list (or single post) in.
func (s Schema) envelopeKeys() []string {
	switch s {
	case SchemaE621:
		return []string{"posts", "post"}
	case SchemaGelbooru:
		return []string{"post"}
	case SchemaSankaku:
		return []string{"data"}
	case SchemaSzurubooru:
		return []string{"results"}
	}
	return nil
}

func (s Schema) decode(item []byte) (rawPost, error) {
	switch s {
	case SchemaMoebooru:
		return decodeMoebooru(item)
	case SchemaDanbooru:
		return decodeDanbooru(item)
	case SchemaE621:
		return decodeE621(item)
	case SchemaGelbooru:
		return decodeGelbooru(item)
	case SchemaGelbooru02:
		return decodeGelbooru02(item)
	case SchemaSankaku:
		return decodeSankaku(item)
	case SchemaSzurubooru:
		return decodeSzurubooru(item)
	}
	return rawPost{}, malformed("unknown schema %d", int(s))
}

// rawPost is the schema-independent intermediate form; presence is checked in finish.
type rawPost struct {
	fileURL, previewURL         string
	rating                      string
	tags                        []string
	id                          flexUint
	size                        flexUint
	width, height               flexUint
	previewWidth, previewHeight flexUint
	created                     flexTime
	source                      string
}

// flexUint decodes a JSON number or numeric string and remembers whether it was present.
type flexUint struct {
	value uint64
	ok    bool
}

func (f *flexUint) UnmarshalJSON(b []byte) error {
	s := strings.Trim(string(b), `"`)
	if s == "null" || s == "" {
		return nil
	}
	if v, err := strconv.ParseUint(s, 10, 64); err == nil {
		f.value, f.ok = v, true
		return nil
	}
	// integral floats such as 300.0 or 1e3
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || v < 0 || v != math.Trunc(v) || v >= math.MaxUint64 {
		return malformed("%s is not a non-negative integer", s)
	}
	f.value, f.ok = uint64(v), true
	return nil
}

func (f flexUint) uint() uint {
	return uint(f.value)
}

var timeLayouts = []string{
	time.RFC3339Nano,
	time.RubyDate,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05.999",
}

// flexTime decodes a unix timestamp, a formatted date or Sankaku's {"s": unix} object.
type flexTime struct {
	value time.Time
}

func (f *flexTime) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || string(b) == "null" {
		return nil
	}
	switch b[0] {
	case '{':
		var obj struct {
			S flexUint `json:"s"`
		}
		if err := json.Unmarshal(b, &obj); err != nil {
			return err
		}
		if obj.S.ok {
			f.value = time.Unix(int64(obj.S.value), 0).UTC()
		}
		return nil
	case '"':
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		if unix, err := strconv.ParseInt(s, 10, 64); err == nil {
			f.value = time.Unix(unix, 0).UTC()
			return nil
		}
		for _, layout := range timeLayouts {
			if t, err := time.Parse(layout, s); err == nil {
				f.value = t
				return nil
			}
		}
		return malformed("unknown date format %q", s)
	}
	unix, err := strconv.ParseInt(string(b), 10, 64)
	if err != nil {
		return malformed("unknown date %s", b)
	}
	f.value = time.Unix(unix, 0).UTC()
	return nil
}

func splitTags(s string) []string {
	return strings.Fields(s)
}

func decodeMoebooru(item []byte) (rawPost, error) {
	var p struct {
		ID            flexUint `json:"id"`
		Tags          string   `json:"tags"`
		CreatedAt     flexTime `json:"created_at"`
		Source        string   `json:"source"`
		FileURL       string   `json:"file_url"`
		FileSize      flexUint `json:"file_size"`
		PreviewURL    string   `json:"preview_url"`
		PreviewWidth  flexUint `json:"preview_width"`
		PreviewHeight flexUint `json:"preview_height"`
		Width         flexUint `json:"width"`
		Height        flexUint `json:"height"`
		Rating        string   `json:"rating"`
	}
	if err := json.Unmarshal(item, &p); err != nil {
		return rawPost{}, err
	}
	return rawPost{
		fileURL: p.FileURL, previewURL: p.PreviewURL, rating: p.Rating,
		tags: splitTags(p.Tags), id: p.ID, size: p.FileSize,
		width: p.Width, height: p.Height,
		previewWidth: p.PreviewWidth, previewHeight: p.PreviewHeight,
		created: p.CreatedAt, source: p.Source,
	}, nil
}

func decodeDanbooru(item []byte) (rawPost, error) {
	type variant struct {
		Type   string   `json:"type"`
		URL    string   `json:"url"`
		Width  flexUint `json:"width"`
		Height flexUint `json:"height"`
	}
	var p struct {
		ID             flexUint `json:"id"`
		CreatedAt      flexTime `json:"created_at"`
		Source         string   `json:"source"`
		Rating         string   `json:"rating"`
		ImageWidth     flexUint `json:"image_width"`
		ImageHeight    flexUint `json:"image_height"`
		TagString      string   `json:"tag_string"`
		FileSize       flexUint `json:"file_size"`
		FileURL        string   `json:"file_url"`
		PreviewFileURL string   `json:"preview_file_url"`
		MediaAsset     struct {
			Variants []variant `json:"variants"`
		} `json:"media_asset"`
	}
	if err := json.Unmarshal(item, &p); err != nil {
		return rawPost{}, err
	}
	r := rawPost{
		fileURL: p.FileURL, previewURL: p.PreviewFileURL, rating: p.Rating,
		tags: splitTags(p.TagString), id: p.ID, size: p.FileSize,
		width: p.ImageWidth, height: p.ImageHeight,
		created: p.CreatedAt, source: p.Source,
	}
	if v, ok := lo.Find(p.MediaAsset.Variants, func(v variant) bool { return v.Type == "180x180" }); ok {
		r.previewWidth, r.previewHeight = v.Width, v.Height
		if v.URL != "" {
			r.previewURL = v.URL
		}
	}
	return r, nil
}

func decodeE621(item []byte) (rawPost, error) {
	type image struct {
		Width  flexUint `json:"width"`
		Height flexUint `json:"height"`
		Size   flexUint `json:"size"`
		URL    string   `json:"url"`
	}
	var p struct {
		ID        flexUint            `json:"id"`
		CreatedAt flexTime            `json:"created_at"`
		File      image               `json:"file"`
		Preview   image               `json:"preview"`
		Tags      map[string][]string `json:"tags"`
		Rating    string              `json:"rating"`
		Sources   []string            `json:"sources"`
	}
	if err := json.Unmarshal(item, &p); err != nil {
		return rawPost{}, err
	}
	r := rawPost{
		fileURL: p.File.URL, previewURL: p.Preview.URL, rating: p.Rating,
		tags: lo.Flatten(lo.Values(p.Tags)), id: p.ID, size: p.File.Size,
		width: p.File.Width, height: p.File.Height,
		previewWidth: p.Preview.Width, previewHeight: p.Preview.Height,
		created: p.CreatedAt,
	}
	if len(p.Sources) > 0 {
		r.source = p.Sources[0]
	}
	return r, nil
}

func decodeGelbooru(item []byte) (rawPost, error) {
	var p struct {
		ID            flexUint `json:"id"`
		CreatedAt     flexTime `json:"created_at"`
		FileURL       string   `json:"file_url"`
		PreviewURL    string   `json:"preview_url"`
		PreviewWidth  flexUint `json:"preview_width"`
		PreviewHeight flexUint `json:"preview_height"`
		Width         flexUint `json:"width"`
		Height        flexUint `json:"height"`
		Rating        string   `json:"rating"`
		Tags          string   `json:"tags"`
		Source        string   `json:"source"`
	}
	if err := json.Unmarshal(item, &p); err != nil {
		return rawPost{}, err
	}
	return rawPost{
		fileURL: p.FileURL, previewURL: p.PreviewURL, rating: p.Rating,
		tags: splitTags(p.Tags), id: p.ID,
		width: p.Width, height: p.Height,
		previewWidth: p.PreviewWidth, previewHeight: p.PreviewHeight,
		created: p.CreatedAt, source: p.Source,
	}, nil
}

func decodeGelbooru02(item []byte) (rawPost, error) {
	var p struct {
		ID         flexUint `json:"id"`
		Directory  string   `json:"directory"`
		Hash       string   `json:"hash"`
		Image      string   `json:"image"`
		Change     flexTime `json:"change"`
		Rating     string   `json:"rating"`
		Tags       string   `json:"tags"`
		Width      flexUint `json:"width"`
		Height     flexUint `json:"height"`
		FileURL    string   `json:"file_url"`
		PreviewURL string   `json:"preview_url"`
		Source     string   `json:"source"`
	}
	if err := json.Unmarshal(item, &p); err != nil {
		return rawPost{}, err
	}
	r := rawPost{
		fileURL: p.FileURL, previewURL: p.PreviewURL, rating: p.Rating,
		tags: splitTags(p.Tags), id: p.ID,
		width: p.Width, height: p.Height,
		created: p.Change, source: p.Source,
	}
	if p.Directory != "" && p.Image != "" {
		if r.fileURL == "" {
			r.fileURL = "images/" + p.Directory + "/" + p.Image
		}
		if r.previewURL == "" {
			stem := strings.TrimSuffix(p.Image, path.Ext(p.Image))
			r.previewURL = "thumbnails/" + p.Directory + "/thumbnail_" + stem + ".jpg"
		}
	}
	r.previewWidth, r.previewHeight = fitBox(p.Width, p.Height, gelbooru02ThumbnailBox)
	return r, nil
}

func decodeSankaku(item []byte) (rawPost, error) {
	type tag struct {
		Name   string `json:"name"`
		NameEn string `json:"name_en"`
	}
	var p struct {
		ID            flexUint `json:"id"`
		Rating        string   `json:"rating"`
		FileURL       string   `json:"file_url"`
		PreviewURL    string   `json:"preview_url"`
		PreviewWidth  flexUint `json:"preview_width"`
		PreviewHeight flexUint `json:"preview_height"`
		Width         flexUint `json:"width"`
		Height        flexUint `json:"height"`
		FileSize      flexUint `json:"file_size"`
		CreatedAt     flexTime `json:"created_at"`
		Source        string   `json:"source"`
		Tags          []tag    `json:"tags"`
	}
	if err := json.Unmarshal(item, &p); err != nil {
		return rawPost{}, err
	}
	return rawPost{
		fileURL: p.FileURL, previewURL: p.PreviewURL, rating: p.Rating,
		tags: lo.FilterMap(p.Tags, func(t tag, _ int) (string, bool) {
			if t.NameEn != "" {
				return t.NameEn, true
			}
			return t.Name, t.Name != ""
		}),
		id: p.ID, size: p.FileSize,
		width: p.Width, height: p.Height,
		previewWidth: p.PreviewWidth, previewHeight: p.PreviewHeight,
		created: p.CreatedAt, source: p.Source,
	}, nil
}

func decodeSzurubooru(item []byte) (rawPost, error) {
	type tag struct {
		Names []string `json:"names"`
	}
	var p struct {
		ID           flexUint `json:"id"`
		CreationTime flexTime `json:"creationTime"`
		Safety       string   `json:"safety"`
		Source       string   `json:"source"`
		ContentURL   string   `json:"contentUrl"`
		ThumbnailURL string   `json:"thumbnailUrl"`
		CanvasWidth  flexUint `json:"canvasWidth"`
		CanvasHeight flexUint `json:"canvasHeight"`
		FileSize     flexUint `json:"fileSize"`
		Tags         []tag    `json:"tags"`
	}
	if err := json.Unmarshal(item, &p); err != nil {
		return rawPost{}, err
	}
	r := rawPost{
		fileURL: p.ContentURL, previewURL: p.ThumbnailURL, rating: p.Safety,
		tags: lo.FilterMap(p.Tags, func(t tag, _ int) (string, bool) {
			if len(t.Names) == 0 {
				return "", false
			}
			return t.Names[0], true
		}),
		id: p.ID, size: p.FileSize,
		width: p.CanvasWidth, height: p.CanvasHeight,
		created: p.CreationTime,
	}
	// szurubooru keeps one source per line
	if lines := strings.Fields(p.Source); len(lines) > 0 {
		r.source = lines[0]
	}
	r.previewWidth, r.previewHeight = fitBox(p.CanvasWidth, p.CanvasHeight, szurubooruThumbnailBox)
	return r, nil
}

// fitBox scales width and height down to fit a square thumbnail box.
func fitBox(width, height flexUint, box uint64) (flexUint, flexUint) {
	if !width.ok || !height.ok || width.value == 0 || height.value == 0 {
		return flexUint{}, flexUint{}
	}
	w, h := width.value, height.value
	if w <= box && h <= box {
		return width, height
	}
	if w >= h {
		return flexUint{box, true}, flexUint{lo.Max([]uint64{h * box / w, 1}), true}
	}
	return flexUint{lo.Max([]uint64{w * box / h, 1}), true}, flexUint{box, true}
}
