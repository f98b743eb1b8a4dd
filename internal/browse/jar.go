package browse

import (
	"net/http"
	"net/url"
	"sync"
	"time"
)

// recordingJar wraps a real cookie jar and keeps its own flat copy of every
// cookie it has seen. net/http's jar can answer "cookies for this URL" but
// cannot enumerate, and we need the whole set to persist a session blob.
type recordingJar struct {
	mu    sync.Mutex
	inner http.CookieJar
	seen  map[string]*http.Cookie // domain|path|name
}

func newRecordingJar(inner http.CookieJar) *recordingJar {
	return &recordingJar{inner: inner, seen: make(map[string]*http.Cookie)}
}

func (j *recordingJar) SetCookies(u *url.URL, cookies []*http.Cookie) {
	j.mu.Lock()
	for _, c := range cookies {
		cc := *c
		if cc.Domain == "" {
			cc.Domain = u.Hostname()
		}
		if cc.Path == "" {
			cc.Path = "/"
		}
		key := cc.Domain + "|" + cc.Path + "|" + cc.Name
		if cc.MaxAge < 0 || (!cc.Expires.IsZero() && cc.Expires.Before(time.Now())) {
			delete(j.seen, key)
		} else {
			j.seen[key] = &cc
		}
	}
	j.mu.Unlock()
	j.inner.SetCookies(u, cookies)
}

func (j *recordingJar) Cookies(u *url.URL) []*http.Cookie {
	return j.inner.Cookies(u)
}

func (j *recordingJar) snapshot() []Cookie {
	j.mu.Lock()
	defer j.mu.Unlock()
	out := make([]Cookie, 0, len(j.seen))
	for _, c := range j.seen {
		out = append(out, Cookie{
			Name:     c.Name,
			Value:    c.Value,
			Domain:   c.Domain,
			Path:     c.Path,
			Expires:  c.Expires,
			Secure:   c.Secure,
			HTTPOnly: c.HttpOnly,
		})
	}
	return out
}
