package fedora

import (
	"fmt"

	"github.com/ironthree/fedora-go/lib/khttp/kcookiejar"
)

// AnonymousSession issues requests without any authentication, for the
// parts of the fedora services that are public.
//
// Cookies set by the services are kept for the lifetime of the session
// but never persisted.
type AnonymousSession struct {
	requester
}

var _ Session = (*AnonymousSession)(nil)

// NewAnonymousSession creates an unauthenticated session.
func NewAnonymousSession(mods ...Modifier) (*AnonymousSession, error) {
	opts := newOptions(mods...)

	jar, err := kcookiejar.New()
	if err != nil {
		return nil, fmt.Errorf("could not initialize cookie jar: %w", err)
	}

	return &AnonymousSession{requester: newRequester(opts, jar)}, nil
}
