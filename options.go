package fedora

import (
	"net/http"
	"time"

	"github.com/ironthree/fedora-go/lib/config"
	"github.com/ironthree/fedora-go/lib/kflags"
	"github.com/ironthree/fedora-go/lib/logger"
)

// Flags holds the session settings that are typically exposed as command
// line flags.
type Flags struct {
	Timeout      time.Duration
	UserAgent    string
	AuthURL      string
	CacheCookies bool
	CacheDir     string
	CacheMaxAge  time.Duration
}

// DefaultFlags returns flags set up for the production Fedora services.
func DefaultFlags() *Flags {
	return &Flags{
		Timeout:      DefaultTimeout,
		UserAgent:    DefaultUserAgent,
		AuthURL:      ProductionAuthURL,
		CacheCookies: true,
		CacheMaxAge:  DefaultCacheMaxAge,
	}
}

// Register registers the session flags with the provided FlagSet.
func (f *Flags) Register(set kflags.FlagSet, prefix string) *Flags {
	set.DurationVar(&f.Timeout, prefix+"timeout", f.Timeout, "Timeout for requests to fedora services.")
	set.StringVar(&f.UserAgent, prefix+"user-agent", f.UserAgent, "User-Agent header sent with every request.")
	set.StringVar(&f.AuthURL, prefix+"auth-url", f.AuthURL, "OpenID API endpoint used for authentication.")
	set.BoolVar(&f.CacheCookies, prefix+"cache-cookies", f.CacheCookies, "Cache session cookies on disk and reuse them while fresh.")
	set.StringVar(&f.CacheDir, prefix+"cache-dir", f.CacheDir, "Directory holding the cookie cache. Empty uses the per user cache directory.")
	set.DurationVar(&f.CacheMaxAge, prefix+"cache-max-age", f.CacheMaxAge, "How long cached session cookies are considered fresh.")
	return f
}

// Options holds the assembled configuration of a session.
type Options struct {
	Timeout   time.Duration
	UserAgent string
	AuthURL   string
	Log       logger.Logger
	Transport http.RoundTripper

	CacheCookies bool
	CacheDir     string
	CacheStore   config.Store
	CacheMaxAge  time.Duration
}

// Modifier mutates session Options.
type Modifier func(*Options)

// WithTimeout overrides the default request timeout.
func WithTimeout(timeout time.Duration) Modifier {
	return func(o *Options) {
		o.Timeout = timeout
	}
}

// WithUserAgent overrides the default request user agent.
func WithUserAgent(agent string) Modifier {
	return func(o *Options) {
		o.UserAgent = agent
	}
}

// WithLogger sets the logger used by the session. The default discards
// all messages.
func WithLogger(log logger.Logger) Modifier {
	return func(o *Options) {
		o.Log = log
	}
}

// WithAuthURL points the session at a custom OpenID API endpoint.
func WithAuthURL(authURL string) Modifier {
	return func(o *Options) {
		o.AuthURL = authURL
	}
}

// ForStaging points the session at the staging instances of the fedora
// services instead of the production ones.
func ForStaging() Modifier {
	return func(o *Options) {
		o.AuthURL = StagingAuthURL
	}
}

// WithTransport overrides the http.RoundTripper used by the session.
func WithTransport(transport http.RoundTripper) Modifier {
	return func(o *Options) {
		o.Transport = transport
	}
}

// WithCookieCache enables or disables the on-disk cookie cache.
func WithCookieCache(enabled bool) Modifier {
	return func(o *Options) {
		o.CacheCookies = enabled
	}
}

// WithCacheDir stores the cookie cache in a custom directory instead of
// the per user cache directory.
func WithCacheDir(dir string) Modifier {
	return func(o *Options) {
		o.CacheDir = dir
	}
}

// WithCacheStore stores the cookie cache through a custom config store,
// taking precedence over WithCacheDir.
func WithCacheStore(store config.Store) Modifier {
	return func(o *Options) {
		o.CacheStore = store
	}
}

// WithCacheMaxAge overrides how long cached cookies are considered fresh.
func WithCacheMaxAge(age time.Duration) Modifier {
	return func(o *Options) {
		o.CacheMaxAge = age
	}
}

// FromFlags applies a Flags struct to the options.
func FromFlags(flags *Flags) Modifier {
	return func(o *Options) {
		if flags == nil {
			return
		}
		o.Timeout = flags.Timeout
		o.UserAgent = flags.UserAgent
		o.AuthURL = flags.AuthURL
		o.CacheCookies = flags.CacheCookies
		o.CacheDir = flags.CacheDir
		o.CacheMaxAge = flags.CacheMaxAge
	}
}

func newOptions(mods ...Modifier) *Options {
	o := &Options{
		Timeout:      DefaultTimeout,
		UserAgent:    DefaultUserAgent,
		AuthURL:      ProductionAuthURL,
		Log:          logger.Nil,
		CacheCookies: true,
		CacheMaxAge:  DefaultCacheMaxAge,
	}
	for _, m := range mods {
		m(o)
	}
	if o.Log == nil {
		o.Log = logger.Nil
	}
	return o
}
