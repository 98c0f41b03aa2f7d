package krequestlog

import (
	"net/http"
	"sort"
	"strings"
	"time"
)

// Headers that must never end up in a log file.
var redacted = map[string]bool{
	"Authorization": true,
	"Cookie":        true,
	"Set-Cookie":    true,
}

// NewTransport wraps base with logging of every request passing through
// it. A nil base wraps http.DefaultTransport.
func NewTransport(base http.RoundTripper, mods ...Modifier) http.RoundTripper {
	if base == nil {
		base = http.DefaultTransport
	}
	return &transport{base: base, opts: NewOptions(mods...)}
}

type transport struct {
	base http.RoundTripper
	opts *Options
}

func (t *transport) RoundTrip(req *http.Request) (*http.Response, error) {
	start := time.Now()
	if t.opts.LogStart {
		t.opts.Printer("HTTP START method=%s url=%s", req.Method, req.URL)
		if t.opts.LogHeaders {
			t.logHeaders("> ", req.Header)
		}
	}

	resp, err := t.base.RoundTrip(req)
	if err != nil {
		if t.opts.LogEnd {
			t.opts.Printer("HTTP END method=%s url=%s error=%q duration=%v",
				req.Method, req.URL, err, time.Since(start))
		}
		return resp, err
	}

	if t.opts.LogEnd {
		t.opts.Printer("HTTP END method=%s url=%s status=%d length=%d duration=%v",
			req.Method, req.URL, resp.StatusCode, resp.ContentLength, time.Since(start))
		if t.opts.LogHeaders {
			t.logHeaders("< ", resp.Header)
		}
	}
	return resp, nil
}

func (t *transport) logHeaders(prefix string, headers http.Header) {
	names := make([]string, 0, len(headers))
	for name := range headers {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if redacted[name] {
			t.opts.Printer("%s%s: [%d value(s) redacted]", prefix, name, len(headers[name]))
			continue
		}
		t.opts.Printer("%s%s: %s", prefix, name, strings.Join(headers[name], ", "))
	}
}
