package browse

import (
	"context"
	"time"
)

// Cookie is one opaque credential record. The engine never inspects these;
// they are captured from a surface and replayed verbatim into another.
type Cookie struct {
	Name     string    `json:"name"`
	Value    string    `json:"value"`
	Domain   string    `json:"domain"`
	Path     string    `json:"path"`
	Expires  time.Time `json:"expires,omitempty"`
	Secure   bool      `json:"secure"`
	HTTPOnly bool      `json:"httpOnly"`
}

// Element is a matched node within a surface's current document.
// An empty selector means the element itself.
type Element interface {
	Text(selector string) string
	Attr(selector, name string) string
	Click(ctx context.Context) error
}

// Surface is an isolated browsing context: one document, one cookie set.
// The engine drives two of these concurrently (listing flow + org worker),
// never sharing one between goroutines.
type Surface interface {
	Navigate(ctx context.Context, rawURL string) error
	Location() string

	// Select returns every match for selector in document order.
	Select(selector string) []Element
	// Fill records a value for the form control matched by selector; the
	// value is submitted when a control of the enclosing form is clicked.
	Fill(selector, value string) error
	// Click activates the first match: follows its link or submits its form.
	Click(ctx context.Context, selector string) error
	// WaitFor blocks until selector has a match or the timeout elapses.
	WaitFor(ctx context.Context, selector string, timeout time.Duration) error
	// CaptureNavigation clicks selector, records where it led, then restores
	// the surface to the document it was on before the click.
	CaptureNavigation(ctx context.Context, selector string) (string, error)

	Cookies() []Cookie
	SetCookies(cs []Cookie) error
	// Fork returns a new independent surface seeded with this one's cookies.
	Fork() (Surface, error)

	Close() error
}

// Extractor pulls one candidate value out of an element; empty means no match.
type Extractor func(el Element) string

// Chain is an ordered list of extractors tried first-match-wins.
type Chain []Extractor

// Extract runs the chain against el and returns the first non-empty result.
func (c Chain) Extract(el Element) string {
	for _, ex := range c {
		if v := ex(el); v != "" {
			return v
		}
	}
	return ""
}

// Sel extracts the text of the first sub-match of selector.
func Sel(selector string) Extractor {
	return func(el Element) string { return el.Text(selector) }
}

// SelAttr extracts attribute name from the first sub-match of selector.
func SelAttr(selector, name string) Extractor {
	return func(el Element) string { return el.Attr(selector, name) }
}

// OwnAttr extracts attribute name from the element itself.
func OwnAttr(name string) Extractor {
	return func(el Element) string { return el.Attr("", name) }
}
