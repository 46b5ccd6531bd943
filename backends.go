package booru

import (
	"sort"
	"strings"

	"github.com/samber/lo"
)

const (
	limitedTagCount     = 2
	increasedPostLimit  = 20001
	sankakuAuthTagCount = 4
)

func Danbooru() Descriptor {
	return Descriptor{
		Name:             "Danbooru",
		BaseURL:          "https://danbooru.donmai.us",
		Style:            StyleDanbooru,
		Schema:           SchemaDanbooru,
		TagCeiling:       limitOf(limitedTagCount),
		HasCount:         true,
		HasByID:          true,
		HasByHash:        true,
		HasMultiRandom:   true,
		HasRelated:       true,
		RandomModifier:   "order:random",
		OrderUsesTagSlot: true,
	}
}

func ATFBooru() Descriptor {
	d := Danbooru()
	d.Name = "ATFBooru"
	d.BaseURL = "https://booru.allthefallen.moe"
	d.TagCeiling = nil
	d.OrderUsesTagSlot = false
	return d
}

func E621() Descriptor {
	return Descriptor{
		Name:           "E621",
		BaseURL:        "https://e621.net",
		Style:          StyleDanbooru,
		Schema:         SchemaE621,
		TagCeiling:     limitOf(40),
		HasByID:        true,
		HasByHash:      true,
		HasMultiRandom: true,
		RandomModifier: "order:random",
	}
}

func E926() Descriptor {
	d := E621()
	d.Name = "E926"
	d.BaseURL = "https://e926.net"
	d.Safe = true
	return d
}

func Gelbooru() Descriptor {
	return Descriptor{
		Name:           "Gelbooru",
		BaseURL:        "https://gelbooru.com",
		Style:          StyleIndexPHP,
		Schema:         SchemaGelbooru,
		HasCount:       true,
		HasByID:        true,
		HasByHash:      true,
		HasMultiRandom: true,
		RandomModifier: "sort:random",
		MaxOffset:      limitOf(increasedPostLimit),
	}
}

// gelbooru02 is the shared capability set of Gelbooru 0.2 installs, which have
// no native random sort and fall back to redirect capture or count-then-offset.
func gelbooru02(name, baseURL string) Descriptor {
	return Descriptor{
		Name:      name,
		BaseURL:   baseURL,
		Style:     StyleIndexPHP,
		Schema:    SchemaGelbooru02,
		HasCount:  true,
		HasByID:   true,
		HasByHash: true,
	}
}

func Rule34() Descriptor {
	d := gelbooru02("Rule34", "https://api.rule34.xxx")
	d.MaxOffset = limitOf(increasedPostLimit)
	return d
}

func Safebooru() Descriptor {
	d := gelbooru02("Safebooru", "https://safebooru.org")
	d.Safe = true
	return d
}

func Xbooru() Descriptor {
	return gelbooru02("Xbooru", "https://xbooru.com")
}

func Realbooru() Descriptor {
	d := gelbooru02("Realbooru", "https://realbooru.com")
	d.MaxOffset = limitOf(increasedPostLimit)
	return d
}

// moebooru is the shared capability set of Moebooru installs.
func moebooru(name, baseURL string) Descriptor {
	return Descriptor{
		Name:           name,
		BaseURL:        baseURL,
		Style:          StylePostIndex,
		Schema:         SchemaMoebooru,
		HasCount:       true,
		HasByID:        true,
		HasByHash:      true,
		HasMultiRandom: true,
		HasRelated:     true,
		RandomModifier: "order:random",
	}
}

func Konachan() Descriptor {
	return moebooru("Konachan", "https://konachan.com")
}

func Yandere() Descriptor {
	return moebooru("Yandere", "https://yande.re")
}

func Lolibooru() Descriptor {
	return moebooru("Lolibooru", "https://lolibooru.moe")
}

func Sakugabooru() Descriptor {
	d := moebooru("Sakugabooru", "https://www.sakugabooru.com")
	d.Safe = true
	return d
}

func SankakuComplex() Descriptor {
	return Descriptor{
		Name:           "SankakuComplex",
		BaseURL:        "https://capi-v2.sankakucomplex.com",
		Style:          StyleSankaku,
		Schema:         SchemaSankaku,
		HasByHash:      true,
		HasMultiRandom: true,
		RandomModifier: "order:random",
		AuthAbove:      limitOf(sankakuAuthTagCount),
	}
}

// Szurubooru describes a self-hosted szurubooru instance at baseURL.
func Szurubooru(baseURL string) Descriptor {
	return Descriptor{
		Name:           "Szurubooru",
		BaseURL:        baseURL,
		Style:          StyleSzurubooru,
		Schema:         SchemaSzurubooru,
		HasCount:       true,
		HasByID:        true,
		HasMultiRandom: true,
		HasRelated:     true,
		RandomModifier: "sort:random",
	}
}

// Backends returns the built-in boorus keyed by lower-case name.
func Backends() map[string]Descriptor {
	all := []Descriptor{
		Danbooru(), ATFBooru(), E621(), E926(),
		Gelbooru(), Rule34(), Safebooru(), Xbooru(), Realbooru(),
		Konachan(), Yandere(), Lolibooru(), Sakugabooru(),
		SankakuComplex(),
	}
	return lo.KeyBy(all, func(d Descriptor) string {
		return strings.ToLower(d.Name)
	})
}

// BackendNames returns the sorted keys of Backends.
func BackendNames() []string {
	names := lo.Keys(Backends())
	sort.Strings(names)
	return names
}

// Lookup finds a built-in booru by name, case-insensitively.
func Lookup(name string) (Descriptor, bool) {
	d, ok := Backends()[strings.ToLower(strings.TrimSpace(name))]
	return d, ok
}
