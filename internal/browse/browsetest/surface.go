// Package browsetest provides a scriptable Surface for tests. Every method
// delegates to an optional func field; unset fields behave like an empty
// page rather than panicking.
package browsetest

import (
	"context"
	"time"

	"jobscout-engine/internal/browse"
)

type Surface struct {
	NavigateFunc   func(ctx context.Context, rawURL string) error
	LocationFunc   func() string
	SelectFunc     func(selector string) []browse.Element
	FillFunc       func(selector, value string) error
	ClickFunc      func(ctx context.Context, selector string) error
	WaitForFunc    func(ctx context.Context, selector string, timeout time.Duration) error
	CaptureFunc    func(ctx context.Context, selector string) (string, error)
	CookiesFunc    func() []browse.Cookie
	SetCookiesFunc func(cs []browse.Cookie) error
	ForkFunc       func() (browse.Surface, error)
	CloseFunc      func() error

	Closed bool
}

var _ browse.Surface = (*Surface)(nil)

func (s *Surface) Navigate(ctx context.Context, rawURL string) error {
	if s.NavigateFunc != nil {
		return s.NavigateFunc(ctx, rawURL)
	}
	return nil
}

func (s *Surface) Location() string {
	if s.LocationFunc != nil {
		return s.LocationFunc()
	}
	return ""
}

func (s *Surface) Select(selector string) []browse.Element {
	if s.SelectFunc != nil {
		return s.SelectFunc(selector)
	}
	return nil
}

func (s *Surface) Fill(selector, value string) error {
	if s.FillFunc != nil {
		return s.FillFunc(selector, value)
	}
	return nil
}

func (s *Surface) Click(ctx context.Context, selector string) error {
	if s.ClickFunc != nil {
		return s.ClickFunc(ctx, selector)
	}
	return nil
}

func (s *Surface) WaitFor(ctx context.Context, selector string, timeout time.Duration) error {
	if s.WaitForFunc != nil {
		return s.WaitForFunc(ctx, selector, timeout)
	}
	return nil
}

func (s *Surface) CaptureNavigation(ctx context.Context, selector string) (string, error) {
	if s.CaptureFunc != nil {
		return s.CaptureFunc(ctx, selector)
	}
	return "", nil
}

func (s *Surface) Cookies() []browse.Cookie {
	if s.CookiesFunc != nil {
		return s.CookiesFunc()
	}
	return nil
}

func (s *Surface) SetCookies(cs []browse.Cookie) error {
	if s.SetCookiesFunc != nil {
		return s.SetCookiesFunc(cs)
	}
	return nil
}

func (s *Surface) Fork() (browse.Surface, error) {
	if s.ForkFunc != nil {
		return s.ForkFunc()
	}
	return &Surface{}, nil
}

func (s *Surface) Close() error {
	s.Closed = true
	if s.CloseFunc != nil {
		return s.CloseFunc()
	}
	return nil
}

// Element is a static fake card or document node.
type Element struct {
	// Texts maps selector -> text; key "" is the element's own text.
	Texts map[string]string
	// Attrs maps selector -> attr name -> value; key "" is the element itself.
	Attrs     map[string]map[string]string
	ClickFunc func(ctx context.Context) error
	Clicked   int
}

var _ browse.Element = (*Element)(nil)

func (e *Element) Text(selector string) string {
	return e.Texts[selector]
}

func (e *Element) Attr(selector, name string) string {
	if m, ok := e.Attrs[selector]; ok {
		return m[name]
	}
	return ""
}

func (e *Element) Click(ctx context.Context) error {
	e.Clicked++
	if e.ClickFunc != nil {
		return e.ClickFunc(ctx)
	}
	return nil
}
