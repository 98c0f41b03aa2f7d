// Package kcookiejar provides an http.CookieJar that can be saved and
// restored.
//
// The standard library jar keeps its state private, which makes persisting
// a session across process restarts impossible. Jar wraps it, delegating
// all matching decisions to it, while keeping its own record of every
// cookie accepted so the set can be serialized and replayed later.
package kcookiejar

import (
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"sort"
	"sync"
	"time"

	"golang.org/x/net/publicsuffix"
)

// Entry is one cookie in serializable form.
//
// Max-Age is converted to an absolute Expires timestamp when the cookie is
// accepted, so an entry read back later still expires at the right time.
// A nil Expires marks a session cookie.
type Entry struct {
	Name     string     `json:"name"`
	Value    string     `json:"value"`
	Domain   string     `json:"domain"`
	Path     string     `json:"path"`
	Host     string     `json:"host"`
	Expires  *time.Time `json:"expires,omitempty"`
	Secure   bool       `json:"secure,omitempty"`
	HttpOnly bool       `json:"http_only,omitempty"`
}

// Expired returns true if the entry has an expiry in the past.
func (e *Entry) Expired(now time.Time) bool {
	return e.Expires != nil && !e.Expires.After(now)
}

func (e *Entry) key() string {
	return e.Name + "\x00" + e.Domain + "\x00" + e.Path
}

// Jar is a serializable cookie jar, safe for concurrent use.
type Jar struct {
	mu      sync.Mutex
	inner   *cookiejar.Jar
	entries map[string]Entry

	// overridable in tests
	now func() time.Time
}

var _ http.CookieJar = (*Jar)(nil)

func New() (*Jar, error) {
	inner, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
	if err != nil {
		return nil, err
	}
	return &Jar{
		inner:   inner,
		entries: map[string]Entry{},
		now:     time.Now,
	}, nil
}

// SetCookies stores the cookies received in a response from u.
//
// Whether a cookie is acceptable for u at all is left to the wrapped
// standard library jar. The serializable record keeps one entry per
// (name, domain, path), later cookies replacing earlier ones, and drops
// the entry when the server sends a deletion (negative Max-Age or an
// expiry in the past).
func (j *Jar) SetCookies(u *url.URL, cookies []*http.Cookie) {
	j.inner.SetCookies(u, cookies)

	j.mu.Lock()
	defer j.mu.Unlock()
	now := j.now()
	for _, cookie := range cookies {
		entry := Entry{
			Name:     cookie.Name,
			Value:    cookie.Value,
			Domain:   cookie.Domain,
			Path:     cookie.Path,
			Host:     u.Hostname(),
			Secure:   cookie.Secure,
			HttpOnly: cookie.HttpOnly,
		}
		if entry.Domain == "" {
			entry.Domain = u.Hostname()
		}
		if entry.Path == "" {
			entry.Path = "/"
		}

		switch {
		case cookie.MaxAge < 0:
			delete(j.entries, entry.key())
			continue
		case cookie.MaxAge > 0:
			expires := now.Add(time.Duration(cookie.MaxAge) * time.Second)
			entry.Expires = &expires
		case !cookie.Expires.IsZero():
			if !cookie.Expires.After(now) {
				delete(j.entries, entry.key())
				continue
			}
			expires := cookie.Expires
			entry.Expires = &expires
		}

		j.entries[entry.key()] = entry
	}
}

// Cookies returns the cookies to send in a request to u.
func (j *Jar) Cookies(u *url.URL) []*http.Cookie {
	return j.inner.Cookies(u)
}

// Entries returns a snapshot of all recorded cookies that have not
// expired yet, in a stable order.
func (j *Jar) Entries() []Entry {
	j.mu.Lock()
	defer j.mu.Unlock()

	now := j.now()
	entries := make([]Entry, 0, len(j.entries))
	for _, entry := range j.entries {
		if entry.Expired(now) {
			continue
		}
		entries = append(entries, entry)
	}
	sort.Slice(entries, func(i, k int) bool {
		if entries[i].Domain != entries[k].Domain {
			return entries[i].Domain < entries[k].Domain
		}
		if entries[i].Path != entries[k].Path {
			return entries[i].Path < entries[k].Path
		}
		return entries[i].Name < entries[k].Name
	})
	return entries
}

// Restore replays previously serialized entries into the jar and returns
// how many were accepted. Expired entries are skipped.
func (j *Jar) Restore(entries []Entry) int {
	j.mu.Lock()
	now := j.now()

	restored := 0
	byHost := map[string][]*http.Cookie{}
	for _, entry := range entries {
		if entry.Expired(now) {
			continue
		}

		host := entry.Host
		if host == "" {
			host = entry.Domain
		}
		cookie := &http.Cookie{
			Name:     entry.Name,
			Value:    entry.Value,
			Path:     entry.Path,
			Secure:   entry.Secure,
			HttpOnly: entry.HttpOnly,
		}
		if entry.Domain != host {
			cookie.Domain = entry.Domain
		}
		if entry.Expires != nil {
			cookie.Expires = *entry.Expires
		}

		byHost[host] = append(byHost[host], cookie)
		j.entries[entry.key()] = entry
		restored++
	}
	j.mu.Unlock()

	for host, cookies := range byHost {
		j.inner.SetCookies(&url.URL{Scheme: "https", Host: host, Path: "/"}, cookies)
	}
	return restored
}
