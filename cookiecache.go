package fedora

import (
	"fmt"
	"os"
	"time"

	"github.com/ironthree/fedora-go/lib/config"
	"github.com/ironthree/fedora-go/lib/config/directory"
	"github.com/ironthree/fedora-go/lib/config/marshal"
	"github.com/ironthree/fedora-go/lib/khttp/kcookiejar"
	"github.com/ironthree/fedora-go/lib/logger"
)

// DefaultCacheMaxAge is how long cached session cookies are considered
// fresh. Fedora session cookies historically lived for a few hours, so
// anything older is assumed to need a new login anyway.
const DefaultCacheMaxAge = 6 * time.Hour

const (
	cookieCacheApp     = "fedora"
	cookieCacheKey     = "cookies"
	cookieCacheVersion = 1
)

// cookieCacheFile is the on-disk document, one cached login per file.
type cookieCacheFile struct {
	Version  int                `json:"version"`
	LoginURL string             `json:"login_url"`
	Written  time.Time          `json:"written"`
	Cookies  []kcookiejar.Entry `json:"cookies"`
}

// CookieCache persists the session cookies of one authenticated login
// between runs.
//
// The cache holds a single entry, keyed by the login URL it was created
// for: logging in somewhere else overwrites it. Entries are trusted while
// younger than the configured maximum age; anything at or beyond that age
// is stale and triggers a fresh login.
//
// OpenID sessions use the cache transparently. The type is exported for
// tooling that wants to inspect or clear the cached state.
type CookieCache struct {
	binding config.Binding
	maxAge  time.Duration
	log     logger.Logger
	now     func() time.Time
}

// OpenCookieCache gives access to the cookie cache a session with the
// same options would use.
func OpenCookieCache(mods ...Modifier) (*CookieCache, error) {
	return openCookieCache(newOptions(mods...))
}

func openCookieCache(opts *Options) (*CookieCache, error) {
	store := opts.CacheStore
	if store == nil {
		var loader directory.Dir
		var err error
		if opts.CacheDir != "" {
			loader, err = directory.OpenDir(opts.CacheDir)
		} else {
			loader, err = directory.OpenCacheDir(cookieCacheApp)
		}
		if err != nil {
			return nil, fmt.Errorf("could not open cookie cache directory: %w", err)
		}
		store = config.NewSimple(loader, marshal.Json)
	}
	return &CookieCache{
		binding: config.Bind(store, cookieCacheKey),
		maxAge:  opts.CacheMaxAge,
		log:     opts.Log,
		now:     time.Now,
	}, nil
}

// Load restores the cached cookies for loginURL into jar.
//
// Any reason the cache cannot be used resolves to an error wrapping
// ErrCacheMiss (absent, unreadable, or written for a different login URL)
// or ErrCacheStale (entry or all of its cookies expired). A corrupt cache
// file is deleted on sight so it cannot get in the way again.
func (cc *CookieCache) Load(loginURL string, jar *kcookiejar.Jar) error {
	var cached cookieCacheFile
	if err := cc.binding.Unmarshal(&cached); err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("no cookie cache file: %w", ErrCacheMiss)
		}
		if deleteErr := cc.binding.Delete(); deleteErr != nil && !os.IsNotExist(deleteErr) {
			cc.log.Warnf("cookie cache is corrupt (%v) and could not be deleted: %v", err, deleteErr)
		} else {
			cc.log.Warnf("cookie cache was corrupt and has been deleted: %v", err)
		}
		return fmt.Errorf("cookie cache was not readable: %w", ErrCacheMiss)
	}

	if cached.Version != cookieCacheVersion {
		return fmt.Errorf("cookie cache version %d is not supported: %w", cached.Version, ErrCacheMiss)
	}
	if cached.LoginURL != loginURL {
		return fmt.Errorf("cached cookies belong to %s: %w", cached.LoginURL, ErrCacheMiss)
	}

	age := cc.now().Sub(cached.Written)
	if age < 0 || age >= cc.maxAge {
		return fmt.Errorf("cached cookies were written %s ago: %w", age.Round(time.Second), ErrCacheStale)
	}

	if restored := jar.Restore(cached.Cookies); restored == 0 {
		return fmt.Errorf("all cached cookies are expired: %w", ErrCacheStale)
	}
	return nil
}

// Store persists the cookies currently held by jar as the cache entry
// for loginURL, replacing whatever was cached before.
func (cc *CookieCache) Store(loginURL string, jar *kcookiejar.Jar) error {
	cached := cookieCacheFile{
		Version:  cookieCacheVersion,
		LoginURL: loginURL,
		Written:  cc.now(),
		Cookies:  jar.Entries(),
	}
	if err := cc.binding.Marshal(&cached); err != nil {
		return fmt.Errorf("could not write cookie cache: %w", err)
	}
	return nil
}

// CookieCacheInfo describes the state of the on-disk cookie cache.
type CookieCacheInfo struct {
	// LoginURL the cached session belongs to.
	LoginURL string
	// Written is when the entry was stored.
	Written time.Time
	// Age of the entry.
	Age time.Duration
	// Cookies counts the cached cookies that have not expired yet.
	Cookies int
	// Fresh reports whether a session would reuse this entry.
	Fresh bool
}

// Info reports on the cached entry without touching it. Returns an error
// wrapping ErrCacheMiss if there is nothing usable.
func (cc *CookieCache) Info() (*CookieCacheInfo, error) {
	var cached cookieCacheFile
	if err := cc.binding.Unmarshal(&cached); err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("no cookie cache file: %w", ErrCacheMiss)
		}
		return nil, fmt.Errorf("cookie cache was not readable: %w", ErrCacheMiss)
	}
	if cached.Version != cookieCacheVersion {
		return nil, fmt.Errorf("cookie cache version %d is not supported: %w", cached.Version, ErrCacheMiss)
	}

	now := cc.now()
	live := 0
	for _, entry := range cached.Cookies {
		if !entry.Expired(now) {
			live++
		}
	}
	age := now.Sub(cached.Written)
	return &CookieCacheInfo{
		LoginURL: cached.LoginURL,
		Written:  cached.Written,
		Age:      age,
		Cookies:  live,
		Fresh:    age >= 0 && age < cc.maxAge && live > 0,
	}, nil
}

// Clear removes the cached entry. Clearing an empty cache is not an
// error.
func (cc *CookieCache) Clear() error {
	if err := cc.binding.Delete(); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("could not clear cookie cache: %w", err)
	}
	return nil
}
