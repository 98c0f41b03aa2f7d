// Package krequest provides modifiers to mangle outgoing http requests.
package krequest

import (
	"net/http"
)

// Modifier changes an http.Request before it is sent.
type Modifier func(req *http.Request) error

type Modifiers []Modifier

// Apply runs all modifiers in order, stopping at the first error.
func (mods Modifiers) Apply(req *http.Request) error {
	for _, m := range mods {
		if err := m(req); err != nil {
			return err
		}
	}
	return nil
}

// WithHeader sets the specified header, replacing any previous value.
func WithHeader(key, value string) Modifier {
	return func(req *http.Request) error {
		req.Header.Set(key, value)
		return nil
	}
}

// AddHeader appends a value to the specified header.
func AddHeader(key, value string) Modifier {
	return func(req *http.Request) error {
		req.Header.Add(key, value)
		return nil
	}
}

// WithCookie adds a cookie to the request.
func WithCookie(cookie *http.Cookie) Modifier {
	return func(req *http.Request) error {
		req.AddCookie(cookie)
		return nil
	}
}

// WithUserAgent sets the User-Agent header.
func WithUserAgent(agent string) Modifier {
	return func(req *http.Request) error {
		req.Header.Set("User-Agent", agent)
		return nil
	}
}

// WithAccept sets the Accept header.
func WithAccept(mime string) Modifier {
	return func(req *http.Request) error {
		req.Header.Set("Accept", mime)
		return nil
	}
}

// WithContentType sets the Content-Type header.
func WithContentType(mime string) Modifier {
	return func(req *http.Request) error {
		req.Header.Set("Content-Type", mime)
		return nil
	}
}

// WithBasicAuth configures basic authentication on the request.
func WithBasicAuth(username, password string) Modifier {
	return func(req *http.Request) error {
		req.SetBasicAuth(username, password)
		return nil
	}
}
