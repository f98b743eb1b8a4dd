package auth

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"jobscout-engine/internal/browse"
	"jobscout-engine/internal/session"
)

var (
	// ErrAuthFailed means login landed somewhere we don't recognize.
	ErrAuthFailed = errors.New("authentication failed")
	// ErrChallengeTimeout means a security challenge was never resolved.
	ErrChallengeTimeout = errors.New("security challenge timed out")
)

// State of the login machine. Transitions only move forward; a Failed
// machine (or engine) is not reusable.
type State int

const (
	StateUnauthenticated State = iota
	StateAuthenticated
	StateFailed
)

// CodeProvider hands back a verification code from an out-of-band channel
// (in practice: the account's mail inbox). Empty code means none was found.
type CodeProvider interface {
	FetchCode(ctx context.Context) (string, error)
}

// authenticatedPatterns match the address of any logged-in surface.
var authenticatedPatterns = []string{
	"linkedin.com/feed",
	"linkedin.com/mynetwork",
	"linkedin.com/jobs",
}

// challengePatterns match the security checkpoint flow.
var challengePatterns = []string{
	"/checkpoint/challenge",
	"/checkpoint/lg",
	"/checkpoint/",
}

// codeInputSelectors locate the verification-code field across checkpoint
// layouts, tried in order.
var codeInputSelectors = []string{
	"input[name='pin']",
	"#input__email_verification_pin",
	"input[autocomplete='one-time-code']",
}

var challengeSubmitSelectors = []string{
	"#two-step-submit-button",
	"button[type='submit']",
}

// Options configures the machine. Username and password are required; the
// rest default to sane values.
type Options struct {
	Username string
	Password string

	LoginURL      string
	LandingURL    string
	Settle        time.Duration // wait after submitting a form
	ChallengeWait time.Duration // manual-completion bound
	PollEvery     time.Duration
}

func (o Options) withDefaults() Options {
	if o.LoginURL == "" {
		o.LoginURL = "https://www.linkedin.com/login"
	}
	if o.LandingURL == "" {
		o.LandingURL = "https://www.linkedin.com/feed/"
	}
	if o.Settle <= 0 {
		o.Settle = 3 * time.Second
	}
	if o.ChallengeWait <= 0 {
		o.ChallengeWait = 120 * time.Second
	}
	if o.PollEvery <= 0 {
		o.PollEvery = 3 * time.Second
	}
	return o
}

// Machine drives login on one surface: replay a saved session if it still
// validates, otherwise go through the login form and, if the platform asks,
// the security challenge.
type Machine struct {
	surf  browse.Surface
	store *session.Store
	codes CodeProvider // nil means no out-of-band channel
	log   *log.Logger
	opts  Options
	state State
}

func NewMachine(surf browse.Surface, store *session.Store, codes CodeProvider, logger *log.Logger, opts Options) *Machine {
	return &Machine{
		surf:  surf,
		store: store,
		codes: codes,
		log:   logger,
		opts:  opts.withDefaults(),
	}
}

func (m *Machine) State() State { return m.state }

// Ensure brings the surface to an authenticated state. Once authenticated,
// further calls are no-ops.
func (m *Machine) Ensure(ctx context.Context) error {
	switch m.state {
	case StateAuthenticated:
		return nil
	case StateFailed:
		return ErrAuthFailed
	}

	if m.trySavedSession(ctx) {
		return nil
	}
	return m.loginForm(ctx)
}

// trySavedSession replays the persisted cookie blob and probes the landing
// surface. Any miss just falls through to the login form.
func (m *Machine) trySavedSession(ctx context.Context) bool {
	blob, ok, err := m.store.Load()
	if err != nil {
		m.log.Printf("[auth] session load failed: %v", err)
		return false
	}
	if !ok || len(blob) == 0 {
		return false
	}
	if err := m.surf.SetCookies(blob); err != nil {
		m.log.Printf("[auth] session replay failed: %v", err)
		return false
	}
	if err := m.surf.Navigate(ctx, m.opts.LandingURL); err != nil {
		m.log.Printf("[auth] landing probe failed: %v", err)
		return false
	}
	if isAuthenticated(m.surf.Location()) {
		m.log.Printf("[auth] saved session is still valid")
		m.enterAuthenticated()
		return true
	}
	m.log.Printf("[auth] saved session rejected (at %q), logging in fresh", m.surf.Location())
	return false
}

func (m *Machine) loginForm(ctx context.Context) error {
	if err := m.surf.Navigate(ctx, m.opts.LoginURL); err != nil {
		return m.fail(fmt.Errorf("open login page: %w", err))
	}
	if err := m.surf.Fill("#username", m.opts.Username); err != nil {
		return m.fail(fmt.Errorf("username field: %w", err))
	}
	if err := m.surf.Fill("#password", m.opts.Password); err != nil {
		return m.fail(fmt.Errorf("password field: %w", err))
	}
	if err := m.surf.Click(ctx, "button[type='submit']"); err != nil {
		return m.fail(fmt.Errorf("submit login: %w", err))
	}
	m.sleep(ctx, m.opts.Settle)

	loc := m.surf.Location()
	switch {
	case isAuthenticated(loc):
		m.enterAuthenticated()
		return nil
	case isChallenge(loc):
		m.log.Printf("[auth] security challenge at %q", loc)
		return m.resolveChallenge(ctx)
	default:
		return m.fail(fmt.Errorf("%w: ambiguous post-login address %q", ErrAuthFailed, loc))
	}
}

// resolveChallenge tries the verification-code path once, then falls back to
// waiting for a human to finish the challenge out-of-band.
func (m *Machine) resolveChallenge(ctx context.Context) error {
	if sel := m.findCodeInput(); sel != "" && m.codes != nil {
		code, err := m.codes.FetchCode(ctx)
		if err != nil {
			m.log.Printf("[auth] code lookup failed: %v", err)
		}
		if code != "" {
			if m.submitCode(ctx, sel, code) {
				m.enterAuthenticated()
				return nil
			}
			m.log.Printf("[auth] code %q did not clear the challenge", code)
		}
	}
	return m.manualWait(ctx)
}

func (m *Machine) findCodeInput() string {
	for _, sel := range codeInputSelectors {
		if len(m.surf.Select(sel)) > 0 {
			return sel
		}
	}
	return ""
}

func (m *Machine) submitCode(ctx context.Context, inputSel, code string) bool {
	if err := m.surf.Fill(inputSel, code); err != nil {
		m.log.Printf("[auth] code entry failed: %v", err)
		return false
	}
	for _, sub := range challengeSubmitSelectors {
		if len(m.surf.Select(sub)) == 0 {
			continue
		}
		if err := m.surf.Click(ctx, sub); err != nil {
			m.log.Printf("[auth] code submit failed: %v", err)
			return false
		}
		break
	}
	m.sleep(ctx, m.opts.Settle)
	return isAuthenticated(m.surf.Location())
}

// manualWait polls the landing surface until it looks authenticated or the
// challenge bound expires.
func (m *Machine) manualWait(ctx context.Context) error {
	m.log.Printf("[auth] waiting up to %s for manual challenge completion", m.opts.ChallengeWait)
	deadline := time.Now().Add(m.opts.ChallengeWait)
	for time.Now().Before(deadline) {
		m.sleep(ctx, m.opts.PollEvery)
		if ctx.Err() != nil {
			return m.fail(ctx.Err())
		}
		if err := m.surf.Navigate(ctx, m.opts.LandingURL); err != nil {
			m.log.Printf("[auth] challenge poll failed: %v", err)
			continue
		}
		if isAuthenticated(m.surf.Location()) {
			m.enterAuthenticated()
			return nil
		}
	}
	return m.fail(ErrChallengeTimeout)
}

// enterAuthenticated flips the state and persists the cookie blob. A save
// failure costs the next run a fresh login, not this one.
func (m *Machine) enterAuthenticated() {
	m.state = StateAuthenticated
	if err := m.store.Save(m.surf.Cookies()); err != nil {
		m.log.Printf("[auth] session save failed: %v", err)
		return
	}
	m.log.Printf("[auth] authenticated, session persisted to %s", m.store.Path())
}

func (m *Machine) fail(err error) error {
	m.state = StateFailed
	if errors.Is(err, ErrAuthFailed) || errors.Is(err, ErrChallengeTimeout) {
		return err
	}
	return fmt.Errorf("%w: %v", ErrAuthFailed, err)
}

func (m *Machine) sleep(ctx context.Context, d time.Duration) {
	select {
	case <-ctx.Done():
	case <-time.After(d):
	}
}

func isAuthenticated(loc string) bool {
	if loc == "" || isChallenge(loc) || strings.Contains(loc, "/login") {
		return false
	}
	for _, p := range authenticatedPatterns {
		if strings.Contains(loc, p) {
			return true
		}
	}
	return false
}

func isChallenge(loc string) bool {
	for _, p := range challengePatterns {
		if strings.Contains(loc, p) {
			return true
		}
	}
	return false
}
