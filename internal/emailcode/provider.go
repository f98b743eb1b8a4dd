package emailcode

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"log"
	"regexp"
	"strings"
	"time"

	"github.com/emersion/go-imap/v2"
	"github.com/emersion/go-imap/v2/imapclient"
)

// Provider looks up a six-digit verification code in the account's mail
// inbox. One FetchCode call is one bounded IMAP round trip; when no code is
// waiting it returns ("", nil) and the caller falls back to a manual wait.
type Provider struct {
	opts Options
	log  *log.Logger
}

type Options struct {
	Addr     string // host:port, port defaults to 993
	Username string
	Password string
	Mailbox  string        // defaults to INBOX
	Timeout  time.Duration // whole-lookup bound, defaults to 30s
	MaxAge   time.Duration // ignore mails older than this, defaults to 10m
}

func New(opts Options, logger *log.Logger) (*Provider, error) {
	if opts.Addr == "" {
		return nil, errors.New("imap addr is required")
	}
	if opts.Username == "" || opts.Password == "" {
		return nil, errors.New("imap username/password is required")
	}
	if !strings.Contains(opts.Addr, ":") {
		opts.Addr += ":993"
	}
	if opts.Mailbox == "" {
		opts.Mailbox = "INBOX"
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}
	if opts.MaxAge <= 0 {
		opts.MaxAge = 10 * time.Minute
	}
	return &Provider{opts: opts, log: logger}, nil
}

var reCode = regexp.MustCompile(`\b(\d{6})\b`)

// verification mails are matched by subject, not sender, since the exact
// from-address varies by region.
func looksLikeVerification(subject string) bool {
	s := strings.ToLower(subject)
	return strings.Contains(s, "verification") ||
		strings.Contains(s, "security code") ||
		strings.Contains(s, "confirm")
}

// FetchCode scans recent unseen mail, newest first, for a verification code.
func (p *Provider) FetchCode(ctx context.Context) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, p.opts.Timeout)
	defer cancel()

	c, err := imapclient.DialTLS(p.opts.Addr, &imapclient.Options{
		TLSConfig: &tls.Config{MinVersion: tls.VersionTLS12},
	})
	if err != nil {
		return "", fmt.Errorf("imap dial tls: %w", err)
	}
	defer func() {
		_ = c.Logout().Wait()
		_ = c.Close()
	}()

	// Best-effort close on context cancel.
	go func() {
		<-ctx.Done()
		_ = c.Close()
	}()

	if err := c.Login(p.opts.Username, p.opts.Password).Wait(); err != nil {
		return "", fmt.Errorf("imap login: %w", err)
	}
	if _, err := c.Select(p.opts.Mailbox, &imap.SelectOptions{ReadOnly: true}).Wait(); err != nil {
		return "", fmt.Errorf("imap select %q: %w", p.opts.Mailbox, err)
	}

	criteria := &imap.SearchCriteria{
		NotFlag: []imap.Flag{imap.FlagSeen},
		Since:   time.Now().Add(-p.opts.MaxAge),
	}
	searchData, err := c.UIDSearch(criteria, nil).Wait()
	if err != nil {
		return "", fmt.Errorf("imap uid search: %w", err)
	}
	uids := searchData.AllUIDs()
	if len(uids) == 0 {
		return "", nil
	}

	// Newest first.
	for i, j := 0, len(uids)-1; i < j; i, j = i+1, j-1 {
		uids[i], uids[j] = uids[j], uids[i]
	}

	bodyAll := &imap.FetchItemBodySection{
		Specifier: imap.PartSpecifierNone,
		Peek:      true, // don't flag \Seen; a human may still want the mail
	}
	fetchCmd := c.Fetch(imap.UIDSetNum(uids...), &imap.FetchOptions{
		UID:         true,
		Envelope:    true,
		BodySection: []*imap.FetchItemBodySection{bodyAll},
	})
	defer func() { _ = fetchCmd.Close() }()

	for {
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		default:
		}

		msgData := fetchCmd.Next()
		if msgData == nil {
			break
		}
		buf, err := msgData.Collect()
		if err != nil {
			return "", fmt.Errorf("imap fetch collect: %w", err)
		}

		subject := ""
		if buf.Envelope != nil {
			subject = buf.Envelope.Subject
		}
		if !looksLikeVerification(subject) {
			continue
		}

		// Subject usually carries the code; the body is the fallback.
		if m := reCode.FindStringSubmatch(subject); len(m) == 2 {
			p.log.Printf("[emailcode] code found in subject %q", subject)
			return m[1], nil
		}
		if body := buf.FindBodySection(bodyAll); body != nil {
			if m := reCode.FindStringSubmatch(string(body)); len(m) == 2 {
				p.log.Printf("[emailcode] code found in body of %q", subject)
				return m[1], nil
			}
		}
	}

	return "", nil
}
