package fedora

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/ironthree/fedora-go/lib/khttp/kcookiejar"
	"github.com/ironthree/fedora-go/lib/khttp/krequest"
	"github.com/ironthree/fedora-go/lib/logger"
)

// Version of this library, reported in the default User-Agent.
const Version = "1.0.0"

const (
	// DefaultUserAgent is the User-Agent header sent with every request
	// unless overridden with WithUserAgent.
	DefaultUserAgent = "fedora-go v" + Version

	// DefaultTimeout bounds every request issued through a session.
	DefaultTimeout = 30 * time.Second
)

// Session is implemented by all session types, so authenticated and
// anonymous sessions can be used interchangeably.
//
// Every request carries the session's User-Agent and an Accept header of
// application/json. Modifiers run after the defaults are applied and can
// override them per request.
type Session interface {
	// Get issues a GET request to target.
	Get(ctx context.Context, target string, mods ...krequest.Modifier) (*http.Response, error)
	// PostForm issues a POST request to target with data as an url-encoded
	// form body.
	PostForm(ctx context.Context, target string, data url.Values, mods ...krequest.Modifier) (*http.Response, error)
	// Client exposes the underlying http.Client for uses the convenience
	// methods do not cover.
	Client() *http.Client
}

// requester is the shared implementation behind all session types.
type requester struct {
	client *http.Client
	agent  string
	log    logger.Logger
}

func newRequester(opts *Options, jar *kcookiejar.Jar) requester {
	return requester{
		client: &http.Client{
			Timeout:   opts.Timeout,
			Jar:       jar,
			Transport: opts.Transport,
		},
		agent: opts.UserAgent,
		log:   opts.Log,
	}
}

func (r *requester) Client() *http.Client {
	return r.client
}

func (r *requester) Get(ctx context.Context, target string, mods ...krequest.Modifier) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, fmt.Errorf("could not build request for %s: %w", target, err)
	}
	if err := r.prepare(req, mods); err != nil {
		return nil, err
	}
	r.log.Debugf("GET %s", target)
	return r.client.Do(req)
}

func (r *requester) PostForm(ctx context.Context, target string, data url.Values, mods ...krequest.Modifier) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, target, strings.NewReader(data.Encode()))
	if err != nil {
		return nil, fmt.Errorf("could not build request for %s: %w", target, err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	if err := r.prepare(req, mods); err != nil {
		return nil, err
	}
	r.log.Debugf("POST %s", target)
	return r.client.Do(req)
}

func (r *requester) prepare(req *http.Request, mods []krequest.Modifier) error {
	setDefaultHeaders(req, r.agent)
	return krequest.Modifiers(mods).Apply(req)
}

func setDefaultHeaders(req *http.Request, agent string) {
	req.Header.Set("User-Agent", agent)
	req.Header.Set("Accept", "application/json")
}

// drainBody discards the remainder of a response body and closes it, so
// the underlying connection can be reused.
func drainBody(resp *http.Response) {
	io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
	resp.Body.Close()
}
