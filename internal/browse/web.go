package browse

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
)

var (
	// ErrWaitTimeout is returned by WaitFor when the selector never matched.
	ErrWaitTimeout = errors.New("wait timeout")
	// ErrNotNavigable is returned by Click when the matched element has no
	// link to follow and no form to submit.
	ErrNotNavigable = errors.New("element is not navigable")
)

// Options tunes a web-backed surface.
type Options struct {
	UserAgent  string
	Timeout    time.Duration // per-request bound
	RatePerSec float64
	Burst      int
	PollEvery  time.Duration // WaitFor re-check interval
}

func (o Options) withDefaults() Options {
	if o.UserAgent == "" {
		o.UserAgent = "Mozilla/5.0 (X11; Linux x86_64) JobScout/1.0"
	}
	if o.Timeout <= 0 {
		o.Timeout = 25 * time.Second
	}
	if o.RatePerSec <= 0 {
		o.RatePerSec = 1
	}
	if o.Burst <= 0 {
		o.Burst = 2
	}
	if o.PollEvery <= 0 {
		o.PollEvery = 2 * time.Second
	}
	return o
}

// webSurface renders a browsing context on plain HTTP + goquery. One
// goroutine drives a surface at a time; isolation between the listing flow
// and the org worker comes from Fork, not from locking.
type webSurface struct {
	hc      *http.Client
	jar     *recordingJar
	limiter *hostLimiter
	opts    Options

	doc    *goquery.Document
	cur    *url.URL
	fills  map[string]string // selector -> value, pending form submit
	closed bool
}

// NewWebSurface builds a production surface with its own cookie jar.
func NewWebSurface(opts Options) (Surface, error) {
	opts = opts.withDefaults()
	inner, err := cookiejar.New(nil)
	if err != nil {
		return nil, fmt.Errorf("cookie jar: %w", err)
	}
	jar := newRecordingJar(inner)
	return &webSurface{
		hc: &http.Client{
			Jar:     jar,
			Timeout: opts.Timeout,
		},
		jar:     jar,
		limiter: newHostLimiter(opts.RatePerSec, opts.Burst),
		opts:    opts,
		fills:   make(map[string]string),
	}, nil
}

func (s *webSurface) Navigate(ctx context.Context, rawURL string) error {
	return s.request(ctx, http.MethodGet, rawURL, nil)
}

func (s *webSurface) request(ctx context.Context, method, rawURL string, form url.Values) error {
	if s.closed {
		return errors.New("surface is closed")
	}
	if err := s.limiter.waitURL(ctx, rawURL); err != nil {
		return err
	}

	var body *strings.Reader
	if form != nil && method != http.MethodGet {
		body = strings.NewReader(form.Encode())
	} else {
		body = strings.NewReader("")
	}
	if form != nil && method == http.MethodGet {
		u, err := url.Parse(rawURL)
		if err != nil {
			return fmt.Errorf("parse form action: %w", err)
		}
		u.RawQuery = form.Encode()
		rawURL = u.String()
	}

	req, err := http.NewRequestWithContext(ctx, method, rawURL, body)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", s.opts.UserAgent)
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")
	if form != nil && method != http.MethodGet {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}

	res, err := s.hc.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, rawURL, err)
	}
	defer res.Body.Close()
	if res.StatusCode >= 400 {
		return fmt.Errorf("%s %s: status %d", method, rawURL, res.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(res.Body)
	if err != nil {
		return fmt.Errorf("parse html: %w", err)
	}
	s.doc = doc
	s.cur = res.Request.URL // after redirects
	s.fills = make(map[string]string)
	return nil
}

func (s *webSurface) Location() string {
	if s.cur == nil {
		return ""
	}
	return s.cur.String()
}

func (s *webSurface) Select(selector string) []Element {
	if s.doc == nil {
		return nil
	}
	sel := s.doc.Find(selector)
	out := make([]Element, 0, sel.Length())
	sel.Each(func(_ int, m *goquery.Selection) {
		out = append(out, &webElement{surf: s, sel: m})
	})
	return out
}

func (s *webSurface) Fill(selector, value string) error {
	if s.doc == nil || s.doc.Find(selector).Length() == 0 {
		return fmt.Errorf("fill %q: no match", selector)
	}
	s.fills[selector] = value
	return nil
}

func (s *webSurface) Click(ctx context.Context, selector string) error {
	if s.doc == nil {
		return errors.New("no document")
	}
	m := s.doc.Find(selector).First()
	if m.Length() == 0 {
		return fmt.Errorf("click %q: no match", selector)
	}
	return s.activate(ctx, m)
}

// activate follows the element's link if it has one, otherwise submits its
// enclosing form with any pending fills.
func (s *webSurface) activate(ctx context.Context, m *goquery.Selection) error {
	for _, attr := range []string{"href", "data-href"} {
		if href, ok := m.Attr(attr); ok {
			href = strings.TrimSpace(href)
			if href != "" && href != "#" && !strings.HasPrefix(href, "javascript:") {
				return s.Navigate(ctx, s.resolve(href))
			}
		}
	}
	if form := m.Closest("form"); form.Length() > 0 {
		return s.submitForm(ctx, form)
	}
	return ErrNotNavigable
}

func (s *webSurface) submitForm(ctx context.Context, form *goquery.Selection) error {
	values := url.Values{}
	form.Find("input[name], textarea[name]").Each(func(_ int, in *goquery.Selection) {
		typ, _ := in.Attr("type")
		if typ == "checkbox" || typ == "radio" {
			if _, checked := in.Attr("checked"); !checked {
				return
			}
		}
		name, _ := in.Attr("name")
		if v, ok := in.Attr("value"); ok {
			values.Set(name, v)
		} else {
			values.Set(name, in.Text())
		}
	})

	// Pending fills win over the document's own values.
	for sel, v := range s.fills {
		node := s.doc.Find(sel).First()
		if node.Length() == 0 {
			continue
		}
		if name, ok := node.Attr("name"); ok && name != "" {
			values.Set(name, v)
		}
	}

	action, _ := form.Attr("action")
	target := s.Location()
	if strings.TrimSpace(action) != "" {
		target = s.resolve(action)
	}
	method := strings.ToUpper(strings.TrimSpace(form.AttrOr("method", "")))
	if method == "" {
		method = http.MethodGet
	}
	return s.request(ctx, method, target, values)
}

func (s *webSurface) WaitFor(ctx context.Context, selector string, timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	for {
		if s.doc != nil && s.doc.Find(selector).Length() > 0 {
			return nil
		}
		if time.Now().After(deadline) {
			return fmt.Errorf("%w: %q", ErrWaitTimeout, selector)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(s.opts.PollEvery):
		}
		// Static documents don't change under us; re-fetch and look again.
		if s.cur != nil {
			if err := s.Navigate(ctx, s.cur.String()); err != nil {
				return err
			}
		}
	}
}

func (s *webSurface) CaptureNavigation(ctx context.Context, selector string) (string, error) {
	savedDoc, savedURL := s.doc, s.cur
	defer func() {
		s.doc, s.cur = savedDoc, savedURL
	}()

	if err := s.Click(ctx, selector); err != nil {
		return "", err
	}
	return s.Location(), nil
}

func (s *webSurface) Cookies() []Cookie {
	return s.jar.snapshot()
}

func (s *webSurface) SetCookies(cs []Cookie) error {
	for _, c := range cs {
		host := strings.TrimPrefix(c.Domain, ".")
		if host == "" {
			continue
		}
		u := &url.URL{Scheme: "https", Host: host, Path: c.Path}
		s.jar.SetCookies(u, []*http.Cookie{{
			Name:     c.Name,
			Value:    c.Value,
			Domain:   c.Domain,
			Path:     c.Path,
			Expires:  c.Expires,
			Secure:   c.Secure,
			HttpOnly: c.HTTPOnly,
		}})
	}
	return nil
}

func (s *webSurface) Fork() (Surface, error) {
	forked, err := NewWebSurface(s.opts)
	if err != nil {
		return nil, err
	}
	// Share the limiter so both surfaces count against one budget.
	forked.(*webSurface).limiter = s.limiter
	if err := forked.SetCookies(s.Cookies()); err != nil {
		_ = forked.Close()
		return nil, err
	}
	return forked, nil
}

func (s *webSurface) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	s.hc.CloseIdleConnections()
	return nil
}

func (s *webSurface) resolve(href string) string {
	u, err := url.Parse(href)
	if err != nil {
		return href
	}
	if s.cur != nil {
		return s.cur.ResolveReference(u).String()
	}
	return u.String()
}

type webElement struct {
	surf *webSurface
	sel  *goquery.Selection
}

func (e *webElement) Text(selector string) string {
	m := e.sel
	if selector != "" {
		m = e.sel.Find(selector).First()
	}
	if m.Length() == 0 {
		return ""
	}
	return cleanText(m.Text())
}

func (e *webElement) Attr(selector, name string) string {
	m := e.sel
	if selector != "" {
		m = e.sel.Find(selector).First()
	}
	if m.Length() == 0 {
		return ""
	}
	v, _ := m.Attr(name)
	return strings.TrimSpace(v)
}

func (e *webElement) Click(ctx context.Context) error {
	return e.surf.activate(ctx, e.sel)
}

func cleanText(s string) string {
	s = strings.ReplaceAll(s, "\u00a0", " ")
	return strings.Join(strings.Fields(s), " ")
}
