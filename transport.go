package booru

import (
	"context"
	"net/http"

	"github.com/go-resty/resty/v2"
	"github.com/sirupsen/logrus"
)

// Transport performs the HTTP round trips. Errors it returns reach the caller unchanged.
type Transport interface {
	Fetch(ctx context.Context, t Target) ([]byte, error)
	Redirect(ctx context.Context, t Target) (Redirect, error)
}

// Redirect is the result of a request that may answer with a redirect.
// Location is set when the redirect target was captured instead of followed.
type Redirect struct {
	Location string
	Body     []byte
}

func (r Redirect) Captured() bool {
	return r.Location != ""
}

// RestyTransport is the default Transport, built on resty.
type RestyTransport struct {
	client     *resty.Client
	noRedirect *resty.Client
	logger     *logrus.Logger
}

// NewRestyTransport creates a transport; a nil logger gets a fresh logrus logger.
func NewRestyTransport(logger *logrus.Logger) *RestyTransport {
	if logger == nil {
		logger = logrus.New()
	}
	noRedirect := resty.New()
	noRedirect.SetRedirectPolicy(resty.RedirectPolicyFunc(func(*http.Request, []*http.Request) error {
		return http.ErrUseLastResponse
	}))
	return &RestyTransport{
		client:     resty.New(),
		noRedirect: noRedirect,
		logger:     logger,
	}
}

func (rt *RestyTransport) request(ctx context.Context, c *resty.Client, t Target) *resty.Request {
	return c.R().SetContext(ctx).SetHeaders(t.Header)
}

func (rt *RestyTransport) logResponse(resp *resty.Response, action string) {
	rt.logger.WithFields(logrus.Fields{
		"action": action,
		"code":   resp.StatusCode(),
		"url":    resp.Request.URL,
	}).Debugf("response: %d bytes", len(resp.Body()))
}

func (rt *RestyTransport) Fetch(ctx context.Context, t Target) ([]byte, error) {
	resp, err := rt.request(ctx, rt.client, t).Get(t.URL)
	if err != nil {
		return nil, err
	}
	rt.logResponse(resp, "fetch")
	if !resp.IsSuccess() {
		return nil, &StatusError{URL: t.URL, Code: resp.StatusCode(), Body: resp.Body()}
	}
	return resp.Body(), nil
}

func (rt *RestyTransport) Redirect(ctx context.Context, t Target) (Redirect, error) {
	resp, err := rt.request(ctx, rt.noRedirect, t).Get(t.URL)
	if err != nil {
		return Redirect{}, err
	}
	rt.logResponse(resp, "redirect")
	code := resp.StatusCode()
	if code >= 300 && code < 400 {
		return Redirect{Location: resp.Header().Get("Location")}, nil
	}
	if !resp.IsSuccess() {
		return Redirect{}, &StatusError{URL: t.URL, Code: code, Body: resp.Body()}
	}
	return Redirect{Body: resp.Body()}, nil
}
