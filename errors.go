package fedora

import (
	"errors"
)

var (
	// ErrAuthenticationFailed indicates that the OpenID provider or the
	// target service rejected the login. The most common cause is a wrong
	// username / password combination, which the legacy provider only
	// signals by answering with an HTML form instead of JSON.
	ErrAuthenticationFailed = errors.New("authentication failed, possibly due to wrong username / password")

	// ErrMalformedResponse indicates that a response did not follow the
	// legacy OpenID protocol: a redirect without a usable Location, an
	// endless redirect chain, or a JSON reply missing required parameters.
	ErrMalformedResponse = errors.New("malformed response from OpenID provider")

	// ErrCacheMiss indicates that no usable cookie cache entry exists for
	// the requested login URL.
	ErrCacheMiss = errors.New("no usable cookie cache entry")

	// ErrCacheStale indicates that a cookie cache entry exists but is too
	// old to be trusted, or contains only expired cookies.
	ErrCacheStale = errors.New("cookie cache entry is stale")
)
