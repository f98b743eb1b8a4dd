package auth

import (
	"context"
	"errors"
	"io"
	"log"
	"path/filepath"
	"testing"
	"time"

	"jobscout-engine/internal/browse"
	"jobscout-engine/internal/browse/browsetest"
	"jobscout-engine/internal/session"
)

const (
	feedURL       = "https://www.linkedin.com/feed/"
	loginURL      = "https://www.linkedin.com/login"
	checkpointURL = "https://www.linkedin.com/checkpoint/challenge/abc"
)

func testLogger() *log.Logger { return log.New(io.Discard, "", 0) }

func fastOpts() Options {
	return Options{
		Username:      "user@example.com",
		Password:      "hunter2",
		Settle:        time.Millisecond,
		ChallengeWait: 50 * time.Millisecond,
		PollEvery:     5 * time.Millisecond,
	}
}

type fakeCodes struct {
	code  string
	err   error
	calls int
}

func (f *fakeCodes) FetchCode(ctx context.Context) (string, error) {
	f.calls++
	return f.code, f.err
}

// loginSurface simulates a platform where submitting the login form lands
// on afterLogin.
func loginSurface(afterLogin string) (*browsetest.Surface, *map[string]string) {
	loc := ""
	fills := map[string]string{}
	surf := &browsetest.Surface{}
	surf.NavigateFunc = func(ctx context.Context, u string) error {
		loc = u
		return nil
	}
	surf.LocationFunc = func() string { return loc }
	surf.FillFunc = func(sel, val string) error {
		fills[sel] = val
		return nil
	}
	surf.ClickFunc = func(ctx context.Context, sel string) error {
		loc = afterLogin
		return nil
	}
	surf.CookiesFunc = func() []browse.Cookie {
		return []browse.Cookie{{Name: "li_at", Value: "tok", Domain: ".linkedin.com", Path: "/"}}
	}
	return surf, &fills
}

func TestFreshLoginSucceedsAndPersists(t *testing.T) {
	surf, fills := loginSurface(feedURL)
	st := session.NewStore(filepath.Join(t.TempDir(), "session.json"))

	m := NewMachine(surf, st, nil, testLogger(), fastOpts())
	if err := m.Ensure(context.Background()); err != nil {
		t.Fatalf("ensure: %v", err)
	}
	if m.State() != StateAuthenticated {
		t.Fatalf("state = %v, want authenticated", m.State())
	}
	if (*fills)["#username"] != "user@example.com" || (*fills)["#password"] != "hunter2" {
		t.Fatalf("credentials not filled: %v", *fills)
	}

	blob, ok, err := st.Load()
	if err != nil || !ok || len(blob) == 0 {
		t.Fatalf("cookies not persisted: ok=%v err=%v blob=%v", ok, err, blob)
	}

	// Second ensure is a no-op even if the surface would now fail.
	surf.NavigateFunc = func(ctx context.Context, u string) error { return errors.New("boom") }
	if err := m.Ensure(context.Background()); err != nil {
		t.Fatalf("second ensure must be a no-op: %v", err)
	}
}

func TestSavedSessionShortCircuitsLogin(t *testing.T) {
	st := session.NewStore(filepath.Join(t.TempDir(), "session.json"))
	if err := st.Save([]browse.Cookie{{Name: "li_at", Value: "tok"}}); err != nil {
		t.Fatal(err)
	}

	loc := ""
	replayed := false
	filled := false
	surf := &browsetest.Surface{
		NavigateFunc: func(ctx context.Context, u string) error {
			loc = feedURL // replay validates: landing probe stays authenticated
			return nil
		},
		LocationFunc:   func() string { return loc },
		SetCookiesFunc: func(cs []browse.Cookie) error { replayed = true; return nil },
		FillFunc:       func(sel, val string) error { filled = true; return nil },
		CookiesFunc:    func() []browse.Cookie { return []browse.Cookie{{Name: "li_at", Value: "tok"}} },
	}

	m := NewMachine(surf, st, nil, testLogger(), fastOpts())
	if err := m.Ensure(context.Background()); err != nil {
		t.Fatalf("ensure: %v", err)
	}
	if !replayed {
		t.Fatal("saved blob was never replayed")
	}
	if filled {
		t.Fatal("login form must not be touched when the session replays")
	}
}

func TestRejectedSessionFallsThroughToLogin(t *testing.T) {
	// Scenario: replay navigates somewhere unauthenticated; the machine must
	// proceed to the login form, not fail.
	st := session.NewStore(filepath.Join(t.TempDir(), "session.json"))
	if err := st.Save([]browse.Cookie{{Name: "li_at", Value: "stale"}}); err != nil {
		t.Fatal(err)
	}

	loc := ""
	filled := false
	surf := &browsetest.Surface{}
	surf.NavigateFunc = func(ctx context.Context, u string) error {
		if u == loginURL {
			loc = loginURL
		} else {
			loc = loginURL + "?session_redirect=..." // replay bounced to login
		}
		return nil
	}
	surf.LocationFunc = func() string { return loc }
	surf.FillFunc = func(sel, val string) error { filled = true; return nil }
	surf.ClickFunc = func(ctx context.Context, sel string) error {
		loc = feedURL
		return nil
	}
	surf.CookiesFunc = func() []browse.Cookie { return []browse.Cookie{{Name: "li_at", Value: "fresh"}} }

	m := NewMachine(surf, st, nil, testLogger(), fastOpts())
	if err := m.Ensure(context.Background()); err != nil {
		t.Fatalf("ensure: %v", err)
	}
	if !filled {
		t.Fatal("machine never reached the login form")
	}
	if m.State() != StateAuthenticated {
		t.Fatalf("state = %v, want authenticated", m.State())
	}
}

func TestAmbiguousPostLoginAddressFails(t *testing.T) {
	surf, _ := loginSurface("https://www.linkedin.com/uas/consumer-email-challenge-unknown")
	st := session.NewStore(filepath.Join(t.TempDir(), "session.json"))

	m := NewMachine(surf, st, nil, testLogger(), fastOpts())
	err := m.Ensure(context.Background())
	if !errors.Is(err, ErrAuthFailed) {
		t.Fatalf("want ErrAuthFailed, got %v", err)
	}
	if m.State() != StateFailed {
		t.Fatalf("state = %v, want failed", m.State())
	}
}

func TestChallengeResolvedByEmailCode(t *testing.T) {
	loc := ""
	fills := map[string]string{}
	surf := &browsetest.Surface{}
	surf.NavigateFunc = func(ctx context.Context, u string) error { loc = u; return nil }
	surf.LocationFunc = func() string { return loc }
	surf.FillFunc = func(sel, val string) error { fills[sel] = val; return nil }
	surf.SelectFunc = func(sel string) []browse.Element {
		if sel == "input[name='pin']" || sel == "#two-step-submit-button" {
			return []browse.Element{&browsetest.Element{}}
		}
		return nil
	}
	surf.ClickFunc = func(ctx context.Context, sel string) error {
		if sel == "#two-step-submit-button" {
			loc = feedURL // code accepted
		} else {
			loc = checkpointURL // login submit hits the checkpoint
		}
		return nil
	}
	surf.CookiesFunc = func() []browse.Cookie { return []browse.Cookie{{Name: "li_at", Value: "tok"}} }

	codes := &fakeCodes{code: "123456"}
	st := session.NewStore(filepath.Join(t.TempDir(), "session.json"))

	m := NewMachine(surf, st, codes, testLogger(), fastOpts())
	if err := m.Ensure(context.Background()); err != nil {
		t.Fatalf("ensure: %v", err)
	}
	if codes.calls != 1 {
		t.Fatalf("provider called %d times, want 1", codes.calls)
	}
	if fills["input[name='pin']"] != "123456" {
		t.Fatalf("code not entered: %v", fills)
	}
	if m.State() != StateAuthenticated {
		t.Fatalf("state = %v, want authenticated", m.State())
	}
}

func TestChallengeWithoutCodeInputTimesOut(t *testing.T) {
	// Scenario: no recognizable code input, no provider; the machine waits
	// out the bound polling the landing surface and then fails.
	loc := ""
	surf := &browsetest.Surface{}
	surf.NavigateFunc = func(ctx context.Context, u string) error {
		if u == loginURL {
			loc = loginURL
		} else {
			loc = checkpointURL // every probe still shows the checkpoint
		}
		return nil
	}
	surf.LocationFunc = func() string { return loc }
	surf.ClickFunc = func(ctx context.Context, sel string) error {
		loc = checkpointURL
		return nil
	}

	st := session.NewStore(filepath.Join(t.TempDir(), "session.json"))
	m := NewMachine(surf, st, nil, testLogger(), fastOpts())

	start := time.Now()
	err := m.Ensure(context.Background())
	if !errors.Is(err, ErrChallengeTimeout) {
		t.Fatalf("want ErrChallengeTimeout, got %v", err)
	}
	if elapsed := time.Since(start); elapsed < 50*time.Millisecond {
		t.Fatalf("machine gave up before the challenge bound: %v", elapsed)
	}
	if m.State() != StateFailed {
		t.Fatalf("state = %v, want failed", m.State())
	}
}

func TestChallengeProviderEmptyFallsBackToManualWait(t *testing.T) {
	loc := ""
	surf := &browsetest.Surface{}
	surf.NavigateFunc = func(ctx context.Context, u string) error {
		if u == loginURL {
			loc = loginURL
		} else {
			loc = checkpointURL
		}
		return nil
	}
	surf.LocationFunc = func() string { return loc }
	surf.SelectFunc = func(sel string) []browse.Element {
		if sel == "input[name='pin']" {
			return []browse.Element{&browsetest.Element{}}
		}
		return nil
	}
	surf.ClickFunc = func(ctx context.Context, sel string) error {
		loc = checkpointURL
		return nil
	}

	codes := &fakeCodes{code: ""} // inbox had nothing
	st := session.NewStore(filepath.Join(t.TempDir(), "session.json"))
	m := NewMachine(surf, st, codes, testLogger(), fastOpts())

	err := m.Ensure(context.Background())
	if !errors.Is(err, ErrChallengeTimeout) {
		t.Fatalf("want ErrChallengeTimeout, got %v", err)
	}
	if codes.calls != 1 {
		t.Fatalf("provider called %d times, want exactly 1", codes.calls)
	}
}
