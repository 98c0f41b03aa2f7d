package fedora

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ironthree/fedora-go/lib/config"
	"github.com/ironthree/fedora-go/lib/config/directory"
	"github.com/ironthree/fedora-go/lib/config/marshal"
	"github.com/ironthree/fedora-go/lib/khttp/kcookiejar"
)

// fakeFedora simulates a fedora service together with its OpenID
// provider: a login URL that redirects through an authorization chain, an
// API endpoint taking the credentials, and a return_to endpoint that
// establishes the service session.
type fakeFedora struct {
	t      *testing.T
	server *httptest.Server

	username string
	password string

	// Failure injection.
	omitMode       bool
	omitReturnTo   bool
	rejectLogin    bool
	emptyResponse  bool
	completeStatus int

	mu           sync.Mutex
	requests     int
	authPosts    int
	lastLogin    url.Values
	lastComplete url.Values
}

func newFakeFedora(t *testing.T) *fakeFedora {
	f := &fakeFedora{
		t:        t,
		username: "exampleuser",
		password: "correct horse battery staple",
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/login", f.handleLogin)
	mux.HandleFunc("/authorize", f.handleAuthorize)
	mux.HandleFunc("/form", f.handleForm)
	mux.HandleFunc("/api/v1/", f.handleAPI)
	mux.HandleFunc("/complete", f.handleComplete)
	mux.HandleFunc("/home", func(w http.ResponseWriter, r *http.Request) {})
	mux.HandleFunc("/whoami", f.handleWhoami)

	f.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		f.requests++
		f.mu.Unlock()
		mux.ServeHTTP(w, r)
	}))
	t.Cleanup(f.server.Close)
	return f
}

func (f *fakeFedora) loginURL() string {
	return f.server.URL + "/login"
}

func (f *fakeFedora) authURL() string {
	return f.server.URL + "/api/v1/"
}

func (f *fakeFedora) counters() (requests, authPosts int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.requests, f.authPosts
}

func (f *fakeFedora) loginForm() url.Values {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.lastLogin
}

func (f *fakeFedora) completeForm() url.Values {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.lastComplete
}

// handleLogin starts the chain like a service would, with the OpenID
// request in the query of the redirect target.
func (f *fakeFedora) handleLogin(w http.ResponseWriter, r *http.Request) {
	query := url.Values{
		"openid.mode":          {"checkid_setup"},
		"openid.ns":            {"http://specs.openid.net/auth/2.0"},
		"openid.return_to":     {f.server.URL + "/complete"},
		"openid.realm":         {f.server.URL + "/"},
		"openid.claimed_id":    {"http://specs.openid.net/auth/2.0/identifier_select"},
		"openid.identity":      {"http://specs.openid.net/auth/2.0/identifier_select"},
		"openid.ns.sreg":       {"http://openid.net/extensions/sreg/1.1"},
		"openid.sreg.required": {"email,nickname"},
		"prompt":               {"login"},
	}
	if f.omitMode {
		query.Del("openid.mode")
	}
	http.SetCookie(w, &http.Cookie{Name: "service_csrf", Value: "pre-login", Path: "/"})
	http.Redirect(w, r, "/authorize?"+query.Encode(), http.StatusFound)
}

// handleAuthorize is the middle of the chain. It sets the provider
// session cookie and hops once more, overriding one parameter.
func (f *fakeFedora) handleAuthorize(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, &http.Cookie{Name: "ipsilon_session", Value: "prov-" + uuid.NewString(), Path: "/"})
	http.Redirect(w, r, "/form?step=2&prompt=password", http.StatusFound)
}

func (f *fakeFedora) handleForm(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html")
	fmt.Fprint(w, "<html><body><form>login form</form></body></html>")
}

func (f *fakeFedora) handleAPI(w http.ResponseWriter, r *http.Request) {
	assert.NoError(f.t, r.ParseForm())
	f.mu.Lock()
	f.authPosts++
	f.lastLogin = r.PostForm
	f.mu.Unlock()

	if r.PostForm.Get("username") != f.username || r.PostForm.Get("password") != f.password {
		// The real provider serves its login form again on bad
		// credentials, with a 200 and no JSON in sight.
		w.Header().Set("Content-Type", "text/html")
		fmt.Fprint(w, "<html><body><form>try again</form></body></html>")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if f.rejectLogin {
		fmt.Fprint(w, `{"success": false, "response": null}`)
		return
	}
	if f.emptyResponse {
		fmt.Fprint(w, `{"success": true, "response": null}`)
		return
	}

	identity := fmt.Sprintf("https://%s.id.fedoraproject.org/", f.username)
	response := map[string]string{
		"openid.mode":           "id_res",
		"openid.ns":             r.PostForm.Get("openid.ns"),
		"openid.op_endpoint":    f.server.URL + "/openid/",
		"openid.claimed_id":     identity,
		"openid.identity":       identity,
		"openid.return_to":      r.PostForm.Get("openid.return_to"),
		"openid.response_nonce": time.Now().UTC().Format("2006-01-02T15:04:05Z") + uuid.NewString()[:8],
		"openid.assoc_handle":   "{HMAC-SHA256}{" + uuid.NewString() + "}",
		"openid.signed":         "assoc_handle,claimed_id,identity,mode,ns,op_endpoint,response_nonce,return_to,signed",
		"openid.sig":            "dGhpcyBpcyBub3QgYSBzaWduYXR1cmU=",
		"openid.ns.sreg":        "http://openid.net/extensions/sreg/1.1",
		"openid.sreg.email":     f.username + "@example.net",
		"openid.sreg.nickname":  f.username,
	}
	if f.omitReturnTo {
		delete(response, "openid.return_to")
	}
	http.SetCookie(w, &http.Cookie{Name: "ipsilon_session_id", Value: "authed-" + uuid.NewString(), Path: "/"})
	assert.NoError(f.t, json.NewEncoder(w).Encode(map[string]interface{}{
		"success":  true,
		"response": response,
	}))
}

func (f *fakeFedora) handleComplete(w http.ResponseWriter, r *http.Request) {
	assert.NoError(f.t, r.ParseForm())
	f.mu.Lock()
	f.lastComplete = r.PostForm
	f.mu.Unlock()

	if f.completeStatus != 0 {
		w.WriteHeader(f.completeStatus)
		return
	}
	http.SetCookie(w, &http.Cookie{Name: "service_session", Value: "tkt-authenticated", Path: "/"})
	http.Redirect(w, r, "/home", http.StatusFound)
}

func (f *fakeFedora) handleWhoami(w http.ResponseWriter, r *http.Request) {
	cookie, err := r.Cookie("service_session")
	if err != nil || cookie.Value != "tkt-authenticated" {
		w.WriteHeader(http.StatusUnauthorized)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	fmt.Fprintf(w, `{"nickname": %q}`, f.username)
}

func (f *fakeFedora) credentials() Credentials {
	return Credentials{Username: f.username, Password: f.password}
}

func TestOpenIDLogin(t *testing.T) {
	f := newFakeFedora(t)

	session, err := NewOpenIDSession(context.Background(), f.loginURL(), f.credentials(),
		WithAuthURL(f.authURL()), WithCookieCache(false))
	require.NoError(t, err)
	require.NotNil(t, session)

	params := session.Params()
	require.NotNil(t, params)
	assert.Equal(t, "id_res", params.Mode())
	assert.Equal(t, "https://exampleuser.id.fedoraproject.org/", params.Identity())
	assert.Equal(t, "exampleuser", params.Nickname())
	assert.Equal(t, "exampleuser@example.net", params.Email())

	// The credential request must carry everything collected along the
	// redirect chain plus the FAS specific values.
	form := f.loginForm()
	assert.Equal(t, f.username, form.Get("username"))
	assert.Equal(t, f.password, form.Get("password"))
	assert.Equal(t, "fedoauth.auth.fas.Auth_FAS", form.Get("auth_module"))
	assert.Equal(t, "fedora", form.Get("auth_flow"))
	assert.Equal(t, "checkid_setup", form.Get("openid.mode"))
	assert.Equal(t, f.server.URL+"/complete", form.Get("openid.return_to"))
	assert.Equal(t, "2", form.Get("step"), "parameters from later hops are collected")
	assert.Equal(t, "password", form.Get("prompt"), "later hops override earlier values")

	// The signed parameters must have been posted back to the service.
	complete := f.completeForm()
	assert.Equal(t, "id_res", complete.Get("openid.mode"))
	assert.NotEmpty(t, complete.Get("openid.sig"))

	// The session cookie from the completed login authenticates followup
	// requests.
	resp, err := session.Get(context.Background(), f.server.URL+"/whoami")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var who struct {
		Nickname string `json:"nickname"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&who))
	assert.Equal(t, f.username, who.Nickname)

	_, authPosts := f.counters()
	assert.Equal(t, 1, authPosts)
}

func TestOpenIDLoginInjectsCheckidSetup(t *testing.T) {
	f := newFakeFedora(t)
	f.omitMode = true

	_, err := NewOpenIDSession(context.Background(), f.loginURL(), f.credentials(),
		WithAuthURL(f.authURL()), WithCookieCache(false))
	require.NoError(t, err)

	assert.Equal(t, "checkid_setup", f.loginForm().Get("openid.mode"))
}

func TestOpenIDLoginWrongPassword(t *testing.T) {
	f := newFakeFedora(t)

	session, err := NewOpenIDSession(context.Background(), f.loginURL(),
		Credentials{Username: f.username, Password: "wrong"},
		WithAuthURL(f.authURL()), WithCookieCache(false))
	assert.ErrorIs(t, err, ErrAuthenticationFailed)
	assert.Nil(t, session)
}

func TestOpenIDLoginRejected(t *testing.T) {
	f := newFakeFedora(t)
	f.rejectLogin = true

	_, err := NewOpenIDSession(context.Background(), f.loginURL(), f.credentials(),
		WithAuthURL(f.authURL()), WithCookieCache(false))
	assert.ErrorIs(t, err, ErrAuthenticationFailed)
}

func TestOpenIDLoginSuccessWithoutParameters(t *testing.T) {
	f := newFakeFedora(t)
	f.emptyResponse = true

	_, err := NewOpenIDSession(context.Background(), f.loginURL(), f.credentials(),
		WithAuthURL(f.authURL()), WithCookieCache(false))
	assert.ErrorIs(t, err, ErrMalformedResponse)
}

func TestOpenIDLoginMissingReturnTo(t *testing.T) {
	f := newFakeFedora(t)
	f.omitReturnTo = true

	_, err := NewOpenIDSession(context.Background(), f.loginURL(), f.credentials(),
		WithAuthURL(f.authURL()), WithCookieCache(false))
	assert.ErrorIs(t, err, ErrMalformedResponse)
}

func TestOpenIDLoginCompletionFailure(t *testing.T) {
	f := newFakeFedora(t)
	f.completeStatus = http.StatusInternalServerError

	_, err := NewOpenIDSession(context.Background(), f.loginURL(), f.credentials(),
		WithAuthURL(f.authURL()), WithCookieCache(false))
	assert.ErrorIs(t, err, ErrAuthenticationFailed)
}

func TestOpenIDLoginRedirectLoop(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/loop", http.StatusFound)
	}))
	t.Cleanup(server.Close)

	_, err := NewOpenIDSession(context.Background(), server.URL+"/loop", Credentials{},
		WithCookieCache(false))
	assert.ErrorIs(t, err, ErrMalformedResponse)
}

func TestOpenIDLoginRedirectWithoutLocation(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusFound)
	}))
	t.Cleanup(server.Close)

	_, err := NewOpenIDSession(context.Background(), server.URL+"/login", Credentials{},
		WithCookieCache(false))
	assert.ErrorIs(t, err, ErrMalformedResponse)
}

func TestOpenIDLoginBadLoginURL(t *testing.T) {
	_, err := NewOpenIDSession(context.Background(), "://not-a-url", Credentials{}, WithCookieCache(false))
	assert.Error(t, err)

	_, err = NewOpenIDSession(context.Background(), "bodhi.fedoraproject.org/login", Credentials{}, WithCookieCache(false))
	assert.Error(t, err)
}

func TestOpenIDLoginCancelledContext(t *testing.T) {
	f := newFakeFedora(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewOpenIDSession(ctx, f.loginURL(), f.credentials(),
		WithAuthURL(f.authURL()), WithCookieCache(false))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestOpenIDSessionReusesCachedCookies(t *testing.T) {
	f := newFakeFedora(t)
	dir := t.TempDir()

	first, err := NewOpenIDSession(context.Background(), f.loginURL(), f.credentials(),
		WithAuthURL(f.authURL()), WithCacheDir(dir))
	require.NoError(t, err)
	require.NotNil(t, first.Params())

	requestsAfterLogin, authPosts := f.counters()
	require.Equal(t, 1, authPosts)

	second, err := NewOpenIDSession(context.Background(), f.loginURL(), f.credentials(),
		WithAuthURL(f.authURL()), WithCacheDir(dir))
	require.NoError(t, err)
	assert.Nil(t, second.Params(), "a restored session has no login parameters")

	requests, authPosts := f.counters()
	assert.Equal(t, requestsAfterLogin, requests, "constructing from cache must not touch the network")
	assert.Equal(t, 1, authPosts)

	// The restored cookies still authenticate.
	resp, err := second.Get(context.Background(), f.server.URL+"/whoami")
	require.NoError(t, err)
	drainBody(resp)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestOpenIDSessionIgnoresStaleCache(t *testing.T) {
	f := newFakeFedora(t)
	dir := t.TempDir()

	// Seed the cache with an entry written longer ago than the freshness
	// window allows.
	store := config.NewSimple(directory.Dir(dir), marshal.Json)
	doc := cookieCacheFile{
		Version:  cookieCacheVersion,
		LoginURL: f.loginURL(),
		Written:  time.Now().Add(-7 * time.Hour),
		Cookies: []kcookiejar.Entry{
			{Name: "service_session", Value: "tkt-ancient", Domain: "127.0.0.1", Path: "/", Host: "127.0.0.1"},
		},
	}
	require.NoError(t, store.Marshal(config.Key(cookieCacheKey), &doc))

	session, err := NewOpenIDSession(context.Background(), f.loginURL(), f.credentials(),
		WithAuthURL(f.authURL()), WithCacheDir(dir))
	require.NoError(t, err)
	require.NotNil(t, session.Params(), "a stale cache must force a full login")

	_, authPosts := f.counters()
	assert.Equal(t, 1, authPosts)

	// The fresh login replaced the stale entry.
	var updated cookieCacheFile
	_, err = store.Unmarshal(config.Key(cookieCacheKey), &updated)
	require.NoError(t, err)
	assert.Less(t, time.Since(updated.Written), time.Minute)
}

func TestOpenIDLoginSurvivesBrokenCacheDir(t *testing.T) {
	f := newFakeFedora(t)

	// Pointing the cache at a file makes every cache operation fail. The
	// login must shrug that off.
	notADir := filepath.Join(t.TempDir(), "occupied")
	require.NoError(t, os.WriteFile(notADir, []byte("in the way"), 0600))

	session, err := NewOpenIDSession(context.Background(), f.loginURL(), f.credentials(),
		WithAuthURL(f.authURL()), WithCacheDir(notADir))
	require.NoError(t, err)
	require.NotNil(t, session.Params())
}
