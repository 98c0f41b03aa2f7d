package fedora

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/ironthree/fedora-go/lib/khttp/kcookiejar"
)

const (
	// ProductionAuthURL is the OpenID authentication endpoint for
	// "production" instances of fedora services.
	ProductionAuthURL = "https://id.fedoraproject.org/api/v1/"

	// StagingAuthURL is the OpenID authentication endpoint for "staging"
	// instances of fedora services.
	StagingAuthURL = "https://id.stg.fedoraproject.org/api/v1/"
)

const (
	// Request values the FAS provider expects alongside the credentials.
	fasAuthModule = "fedoauth.auth.fas.Auth_FAS"
	fasAuthFlow   = "fedora"

	// Redirect chains longer than this are considered a loop.
	maxLoginRedirects = 10
)

// Credentials authenticate a user against the OpenID provider. They are
// used for the single login request and never stored.
type Credentials struct {
	Username string
	Password string
}

// OpenIDSession is a session carrying the cookies of a successful OpenID
// authentication.
type OpenIDSession struct {
	requester
	params *OpenIDParameters
}

var _ Session = (*OpenIDSession)(nil)

// Params returns the OpenID parameters the provider signed during login.
//
// Returns nil if the session was restored from cached cookies, since no
// login took place then.
func (s *OpenIDSession) Params() *OpenIDParameters {
	return s.params
}

// NewOpenIDSession authenticates against the OpenID provider and returns
// a session holding the resulting cookies.
//
// loginURL is the login endpoint of the service the session is for, for
// example https://bodhi.fedoraproject.org/login. If a fresh cookie cache
// entry exists for that URL, it is reused and no network traffic happens.
// Otherwise the full login flow runs: the login URL is followed through
// its redirect chain to collect the OpenID request parameters, the
// credentials are posted to the provider, and the signed response is
// posted back to the service to establish its session.
//
// Errors from a failed login are ErrAuthenticationFailed or
// ErrMalformedResponse, errors.Is-matchable through the wrapping. Cookie
// cache problems never fail the login, they only force the full flow.
func NewOpenIDSession(ctx context.Context, loginURL string, creds Credentials, mods ...Modifier) (*OpenIDSession, error) {
	opts := newOptions(mods...)

	login, err := url.Parse(loginURL)
	if err != nil {
		return nil, fmt.Errorf("could not parse login url %q: %w", loginURL, err)
	}
	if !login.IsAbs() {
		return nil, fmt.Errorf("login url %q is not absolute", loginURL)
	}

	jar, err := kcookiejar.New()
	if err != nil {
		return nil, fmt.Errorf("could not initialize cookie jar: %w", err)
	}

	var cache *CookieCache
	if opts.CacheCookies {
		if cache, err = openCookieCache(opts); err != nil {
			opts.Log.Warnf("cookie caching disabled: %v", err)
			cache = nil
		}
	}

	if cache != nil {
		if err := cache.Load(loginURL, jar); err == nil {
			opts.Log.Infof("reusing cached session cookies for %s", loginURL)
			return &OpenIDSession{requester: newRequester(opts, jar)}, nil
		} else if errors.Is(err, ErrCacheStale) {
			opts.Log.Infof("not reusing cookie cache: %v", err)
		} else {
			opts.Log.Debugf("not reusing cookie cache: %v", err)
		}
	}

	params, err := openIDLogin(ctx, opts, jar, login, creds)
	if err != nil {
		return nil, err
	}

	if cache != nil {
		if err := cache.Store(loginURL, jar); err != nil {
			opts.Log.Warnf("%v", err)
		}
	}

	return &OpenIDSession{requester: newRequester(opts, jar), params: params}, nil
}

// openIDLogin performs the scripted legacy OpenID login.
//
// The flow only works with redirect following disabled: the chain from
// the service's login URL to the provider's login form carries request
// parameters in each URL's query string, and cookies are set along the
// way. So redirects are chased manually here, merging every query into
// one parameter set, with values seen later overriding earlier ones.
func openIDLogin(ctx context.Context, opts *Options, jar *kcookiejar.Jar, login *url.URL, creds Credentials) (*OpenIDParameters, error) {
	client := &http.Client{
		Timeout:   opts.Timeout,
		Jar:       jar,
		Transport: opts.Transport,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}

	state := url.Values{}
	current := login
	for hops := 0; ; hops++ {
		if hops > maxLoginRedirects {
			return nil, fmt.Errorf("login form not reached after %d redirects: %w", maxLoginRedirects, ErrMalformedResponse)
		}

		for key, values := range current.Query() {
			for _, value := range values {
				state.Set(key, value)
			}
		}

		opts.Log.Debugf("following login chain: %s", current)
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, current.String(), nil)
		if err != nil {
			return nil, fmt.Errorf("could not build request for %s: %w", current, err)
		}
		setDefaultHeaders(req, opts.UserAgent)

		resp, err := client.Do(req)
		if err != nil {
			return nil, fmt.Errorf("could not contact %s: %w", current.Host, err)
		}
		drainBody(resp)

		if resp.StatusCode < 300 || resp.StatusCode > 399 {
			break
		}

		location := resp.Header.Get("Location")
		if location == "" {
			return nil, fmt.Errorf("redirect from %s carries no location: %w", current, ErrMalformedResponse)
		}
		next, err := current.Parse(location)
		if err != nil {
			return nil, fmt.Errorf("could not parse redirect location %q: %w", location, ErrMalformedResponse)
		}
		current = next
	}

	state.Set("username", creds.Username)
	state.Set("password", creds.Password)
	state.Set("auth_module", fasAuthModule)
	state.Set("auth_flow", fasAuthFlow)
	if !state.Has("openid.mode") {
		state.Set("openid.mode", "checkid_setup")
	}

	opts.Log.Debugf("requesting authentication from %s", opts.AuthURL)
	resp, err := postForm(ctx, client, opts, opts.AuthURL, state)
	if err != nil {
		return nil, fmt.Errorf("could not contact OpenID provider: %w", err)
	}
	body, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	if err != nil {
		return nil, fmt.Errorf("could not read OpenID provider response: %w", err)
	}

	// The provider answers a rejected login with an HTML form instead of
	// JSON, there is no cleaner signal in this protocol.
	var reply openIDResponse
	if err := json.Unmarshal(body, &reply); err != nil {
		return nil, fmt.Errorf("provider did not answer with OpenID parameters: %w", ErrAuthenticationFailed)
	}
	if !reply.Success {
		return nil, fmt.Errorf("provider reported unsuccessful authentication: %w", ErrAuthenticationFailed)
	}
	if reply.Response == nil {
		return nil, fmt.Errorf("provider reported success without parameters: %w", ErrMalformedResponse)
	}
	params := reply.Response

	returnTo := params.ReturnTo()
	if returnTo == "" {
		return nil, fmt.Errorf("provider response carries no openid.return_to: %w", ErrMalformedResponse)
	}
	if _, err := url.ParseRequestURI(returnTo); err != nil {
		return nil, fmt.Errorf("unusable openid.return_to %q: %w", returnTo, ErrMalformedResponse)
	}

	opts.Log.Debugf("completing login at %s", returnTo)
	resp, err = postForm(ctx, client, opts, returnTo, params.Values())
	if err != nil {
		return nil, fmt.Errorf("could not complete login at %s: %w", returnTo, err)
	}
	drainBody(resp)
	if resp.StatusCode < 200 || resp.StatusCode > 399 {
		return nil, fmt.Errorf("%s answered the completed login with status %d: %w", returnTo, resp.StatusCode, ErrAuthenticationFailed)
	}

	opts.Log.Infof("authenticated %s against %s", creds.Username, opts.AuthURL)
	return params, nil
}

func postForm(ctx context.Context, client *http.Client, opts *Options, target string, data url.Values) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, target, strings.NewReader(data.Encode()))
	if err != nil {
		return nil, fmt.Errorf("could not build request for %s: %w", target, err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	setDefaultHeaders(req, opts.UserAgent)
	return client.Do(req)
}
