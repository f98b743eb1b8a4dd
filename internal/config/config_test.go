package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

const sampleYAML = `
app:
  port: 4823
  data_dir: /tmp/jobscout
linkedin:
  username: user@example.com
  headless: true
email:
  enabled: true
  imap_host: imap.gmail.com
  imap_port: 993
  username: user@example.com
  mailbox: INBOX
scrape:
  settle_seconds: 3
  detail_wait_seconds: 8
  challenge_wait_seconds: 120
  rate_per_sec: 1
  burst: 2
`

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoad(t *testing.T) {
	cfg, err := Load(writeConfig(t, sampleYAML))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.App.Port != 4823 || cfg.LinkedIn.Username != "user@example.com" {
		t.Fatalf("unexpected config: %+v", cfg)
	}
	if !cfg.LinkedIn.Headless || !cfg.Email.Enabled {
		t.Fatalf("booleans not parsed: %+v", cfg)
	}
	if cfg.Settle() != 3*time.Second || cfg.DetailWait() != 8*time.Second || cfg.ChallengeWait() != 120*time.Second {
		t.Fatalf("duration helpers wrong: %v %v %v", cfg.Settle(), cfg.DetailWait(), cfg.ChallengeWait())
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yml")); err == nil {
		t.Fatal("missing file must error")
	}
}

func TestValidateAcceptsSample(t *testing.T) {
	cfg, err := Load(writeConfig(t, sampleYAML))
	if err != nil {
		t.Fatal(err)
	}
	if err := Validate(cfg); err != nil {
		t.Fatalf("sample config must validate: %v", err)
	}
}

func TestValidateCollectsAllProblems(t *testing.T) {
	var cfg Config
	cfg.Email.Enabled = true
	cfg.Scrape.RatePerSec = -1

	err := Validate(cfg)
	if err == nil {
		t.Fatal("expected a validation error")
	}
	for _, want := range []string{"app.port", "linkedin.username", "email.imap_host", "rate_per_sec"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("error %q does not mention %s", err, want)
		}
	}
}
