package engine

import (
	"context"
	"errors"
	"io"
	"log"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"jobscout-engine/internal/auth"
	"jobscout-engine/internal/browse"
	"jobscout-engine/internal/browse/browsetest"
	"jobscout-engine/internal/domain"
	"jobscout-engine/internal/search"
	"jobscout-engine/internal/session"
)

const (
	cardContainerSel = "ul.scaffold-layout__list-container > li.jobs-search-results__list-item"
	feedURL          = "https://www.linkedin.com/feed/"
)

func testOpts() Options {
	return Options{
		Username:      "user@example.com",
		Password:      "hunter2",
		Settle:        time.Millisecond,
		DetailWait:    time.Millisecond,
		ChallengeWait: 20 * time.Millisecond,
		Logger:        log.New(io.Discard, "", 0),
	}
}

// scriptedWorld wires a main surface that can log in and serve one result
// page, plus a forked surface serving the org about page.
func scriptedWorld() (*browsetest.Surface, *browsetest.Surface) {
	card := &browsetest.Element{
		Texts: map[string]string{
			"h3.base-search-card__title":     "Backend Engineer",
			"h4.base-search-card__subtitle":  "Acme",
			"span.job-search-card__location": "Berlin",
		},
		Attrs: map[string]map[string]string{
			"":                       {"data-entity-urn": "urn:li:jobPosting:4242"},
			"a.base-card__full-link": {"href": "https://www.linkedin.com/jobs/view/4242/"},
		},
	}
	detail := &browsetest.Element{
		Texts: map[string]string{
			"div.show-more-less-html__markup": "Build services in Go.",
			"span.posted-time-ago__text":      "2 days ago",
			"button.jobs-apply-button":        "Easy Apply",
		},
		Attrs: map[string]map[string]string{
			"a.topcard__org-name-link": {"href": "https://www.linkedin.com/company/acme/"},
		},
	}
	orgDoc := &browsetest.Element{
		Texts: map[string]string{
			"p[data-test-id='about-us__description']":    "Acme builds rockets.",
			"div[data-test-id='about-us__headquarters'] dd": "Berlin, Germany",
			"div[data-test-id='about-us__size'] dd":         "51-200 employees",
			"div[data-test-id='about-us__industry'] dd":     "Aerospace",
		},
		Attrs: map[string]map[string]string{
			"div[data-test-id='about-us__website'] dd a": {"href": "https://acme.test"},
		},
	}

	orgSurf := &browsetest.Surface{
		SelectFunc: func(sel string) []browse.Element {
			if sel == "html" {
				return []browse.Element{orgDoc}
			}
			return nil
		},
	}

	loc := ""
	onResults := func() bool { return strings.Contains(loc, "/jobs/search/") }
	main := &browsetest.Surface{}
	main.NavigateFunc = func(ctx context.Context, u string) error { loc = u; return nil }
	main.LocationFunc = func() string { return loc }
	main.ClickFunc = func(ctx context.Context, sel string) error {
		if sel == "button[type='submit']" {
			loc = feedURL
		}
		return nil
	}
	main.SelectFunc = func(sel string) []browse.Element {
		if !onResults() {
			return nil
		}
		switch sel {
		case cardContainerSel:
			return []browse.Element{card}
		case "html":
			return []browse.Element{detail}
		}
		return nil
	}
	main.CookiesFunc = func() []browse.Cookie {
		return []browse.Cookie{{Name: "li_at", Value: "tok"}}
	}
	main.ForkFunc = func() (browse.Surface, error) { return orgSurf, nil }

	return main, orgSurf
}

func TestSearchEndToEndMergesEnrichment(t *testing.T) {
	main, orgSurf := scriptedWorld()

	var orgURL string
	orgSurf.NavigateFunc = func(ctx context.Context, u string) error { orgURL = u; return nil }

	st := session.NewStore(filepath.Join(t.TempDir(), "session.json"))
	eng := New(main, st, nil, testOpts())
	defer eng.Close()

	records, err := eng.Search(context.Background(), search.Filters{Keywords: "golang"}, 10)
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("got %d records, want 1", len(records))
	}

	r := records[0]
	if r.JobID != "4242" || r.Title != "Backend Engineer" {
		t.Fatalf("unexpected record: %#v", r)
	}
	if r.OrgRef != "https://www.linkedin.com/company/acme" {
		t.Fatalf("org ref: %q", r.OrgRef)
	}
	if orgURL != "https://www.linkedin.com/company/acme/about" {
		t.Fatalf("org fetch hit %q", orgURL)
	}
	if r.OrgWebsite != "https://acme.test" || r.OrgDescription != "Acme builds rockets." ||
		r.OrgAddress != "Berlin, Germany" || r.OrgEmployeeCount != "51-200 employees" ||
		r.OrgIndustries != "Aerospace" {
		t.Fatalf("enrichment not merged: %#v", r)
	}

	// A successful login leaves a persisted session behind.
	if _, ok, _ := st.Load(); !ok {
		t.Fatal("session blob was not persisted")
	}
}

func TestSearchFailsOnlyForAuth(t *testing.T) {
	loc := ""
	surf := &browsetest.Surface{
		NavigateFunc: func(ctx context.Context, u string) error { loc = u; return nil },
		LocationFunc: func() string { return loc },
		ClickFunc: func(ctx context.Context, sel string) error {
			loc = "https://www.linkedin.com/unknown-wall"
			return nil
		},
	}

	st := session.NewStore(filepath.Join(t.TempDir(), "session.json"))
	eng := New(surf, st, nil, testOpts())
	defer eng.Close()

	_, err := eng.Search(context.Background(), search.Filters{Keywords: "golang"}, 5)
	if !errors.Is(err, auth.ErrAuthFailed) {
		t.Fatalf("want ErrAuthFailed, got %v", err)
	}
}

func TestCloseIsIdempotentAndSearchAfterCloseFails(t *testing.T) {
	main, _ := scriptedWorld()
	st := session.NewStore(filepath.Join(t.TempDir(), "session.json"))
	eng := New(main, st, nil, testOpts())

	if err := eng.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if !main.Closed {
		t.Fatal("main surface not closed")
	}
	if err := eng.Close(); err != nil {
		t.Fatalf("second close: %v", err)
	}

	if _, err := eng.Search(context.Background(), search.Filters{}, 5); !errors.Is(err, ErrClosed) {
		t.Fatalf("want ErrClosed, got %v", err)
	}
}

func TestOnJobObservesEveryRecord(t *testing.T) {
	main, _ := scriptedWorld()
	st := session.NewStore(filepath.Join(t.TempDir(), "session.json"))
	eng := New(main, st, nil, testOpts())
	defer eng.Close()

	var titles []string
	eng.OnJob = func(rec domain.JobRecord) { titles = append(titles, rec.Title) }

	if _, err := eng.Search(context.Background(), search.Filters{Keywords: "golang"}, 10); err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(titles) != 1 || titles[0] != "Backend Engineer" {
		t.Fatalf("callback saw %v", titles)
	}
}
