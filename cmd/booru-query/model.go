package main

import (
	"time"

	"github.com/dictor/booru"
)

type (
	PostOutput struct {
		Booru         string    `json:"booru"`
		Id            uint64    `json:"id"`
		FileUrl       string    `json:"fileUrl"`
		PreviewUrl    string    `json:"previewUrl"`
		Rating        string    `json:"rating"`
		Tags          []string  `json:"tags"`
		Size          *uint64   `json:"size,omitempty"`
		Width         uint      `json:"width"`
		Height        uint      `json:"height"`
		PreviewWidth  uint      `json:"previewWidth"`
		PreviewHeight uint      `json:"previewHeight"`
		Creation      time.Time `json:"creation"`
		Source        *string   `json:"source,omitempty"`
	}

	CountOutput struct {
		Booru string `json:"booru"`
		Count int    `json:"count"`
	}

	BackendOutput struct {
		Name        string `json:"name"`
		Url         string `json:"url"`
		Style       string `json:"style"`
		TagCeiling  *int   `json:"tagCeiling,omitempty"`
		Count       bool   `json:"count"`
		ById        bool   `json:"byId"`
		ByHash      bool   `json:"byHash"`
		Random      string `json:"random"`
		MultiRandom bool   `json:"multiRandom"`
		Related     bool   `json:"related"`
		Safe        bool   `json:"safe"`
	}
)

func newPostOutput(name string, p booru.Post) PostOutput {
	return PostOutput{
		Booru:         name,
		Id:            p.ID,
		FileUrl:       p.FileURL.String(),
		PreviewUrl:    p.PreviewURL.String(),
		Rating:        p.Rating.String(),
		Tags:          p.Tags,
		Size:          p.Size.ToPointer(),
		Width:         p.Width,
		Height:        p.Height,
		PreviewWidth:  p.PreviewWidth,
		PreviewHeight: p.PreviewHeight,
		Creation:      p.Creation,
		Source:        p.Source.ToPointer(),
	}
}

func newBackendOutput(d booru.Descriptor) BackendOutput {
	out := BackendOutput{
		Name:        d.Name,
		Url:         d.BaseURL,
		Style:       d.Style.String(),
		TagCeiling:  d.TagCeiling,
		Count:       d.HasCount,
		ById:        d.HasByID,
		ByHash:      d.HasByHash,
		MultiRandom: d.HasMultiRandom,
		Related:     d.HasRelated,
		Safe:        d.Safe,
	}
	if s, err := booru.Resolve(d, []string{"tag"}); err == nil {
		out.Random = s.Name()
	}
	return out
}
