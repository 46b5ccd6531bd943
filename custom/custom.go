// Package custom builds descriptors for boorus that are not in the built-in table.
package custom

import (
	"bytes"
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/dictor/booru"
)

type options struct {
	useHTTP   bool
	name      string
	transport booru.Transport
}

type Option func(*options)

// UseHTTP probes the host over plain http instead of https.
func UseHTTP() Option {
	return func(o *options) {
		o.useHTTP = true
	}
}

func WithName(name string) Option {
	return func(o *options) {
		o.name = name
	}
}

func WithTransport(t booru.Transport) Option {
	return func(o *options) {
		o.transport = t
	}
}

// Discover probes host as a booru of the given style and returns its descriptor.
// Any failure, including an unreachable host, wraps booru.ErrInvalidBackend.
func Discover(ctx context.Context, host string, style booru.URLStyle, opts ...Option) (booru.Descriptor, error) {
	o := options{}
	for _, opt := range opts {
		opt(&o)
	}
	if o.transport == nil {
		o.transport = booru.NewRestyTransport(nil)
	}

	base, err := baseURL(host, o.useHTTP)
	if err != nil {
		return booru.Descriptor{}, err
	}
	d, err := Defaults(style, base)
	if err != nil {
		return booru.Descriptor{}, err
	}
	if o.name != "" {
		d.Name = o.name
	}
	if err := d.Validate(); err != nil {
		return booru.Descriptor{}, fmt.Errorf("%w: %s", booru.ErrInvalidBackend, err)
	}

	t, err := d.Build(booru.EndpointPosts, nil, booru.Params{Limit: 1}, nil)
	if err != nil {
		return booru.Descriptor{}, fmt.Errorf("%w: %s", booru.ErrInvalidBackend, err)
	}
	body, err := o.transport.Fetch(ctx, t)
	if err != nil {
		return booru.Descriptor{}, fmt.Errorf("%w: %s unreachable: %s", booru.ErrInvalidBackend, base, err)
	}
	if len(bytes.TrimSpace(body)) == 0 {
		return booru.Descriptor{}, fmt.Errorf("%w: %s answered with an empty body", booru.ErrInvalidBackend, base)
	}
	if _, err := d.DecodePosts(body); err != nil {
		return booru.Descriptor{}, fmt.Errorf("%w: %s is not a %s booru: %s", booru.ErrInvalidBackend, base, style, err)
	}
	return d, nil
}

// baseURL turns a host name, with or without scheme, into a base URL.
func baseURL(host string, useHTTP bool) (string, error) {
	host = strings.TrimSpace(host)
	if i := strings.Index(host, "://"); i >= 0 {
		host = host[i+3:]
	}
	host = strings.TrimSuffix(host, "/")
	scheme := "https"
	if useHTTP {
		scheme = "http"
	}
	u, err := url.Parse(scheme + "://" + host)
	if err != nil || u.Host == "" || !strings.Contains(u.Hostname(), ".") && u.Hostname() != "localhost" && u.Port() == "" {
		return "", fmt.Errorf("%w: %q is not a host name", booru.ErrInvalidBackend, host)
	}
	return u.String() + "/", nil
}

// Defaults returns the capability set a fresh install of the given style offers.
func Defaults(style booru.URLStyle, base string) (booru.Descriptor, error) {
	var d booru.Descriptor
	switch style {
	case booru.StylePostIndex:
		d = booru.Konachan()
	case booru.StyleDanbooru:
		d = booru.ATFBooru()
	case booru.StyleIndexPHP:
		d = booru.Safebooru()
		d.Safe = false
	case booru.StyleSzurubooru:
		d = booru.Szurubooru(base)
	default:
		return booru.Descriptor{}, fmt.Errorf("%w: style %s cannot be discovered", booru.ErrInvalidBackend, style)
	}
	d.Name = "Custom"
	d.BaseURL = base
	return d, nil
}
