package config

import (
	"fmt"
	"strings"
)

// Validate runs before the engine is constructed. Missing platform
// credentials are a hard error here, never a mid-search surprise.
func Validate(cfg Config) error {
	var errs []string

	if cfg.App.Port <= 0 || cfg.App.Port > 65535 {
		errs = append(errs, "app.port must be 1..65535")
	}
	if strings.TrimSpace(cfg.LinkedIn.Username) == "" {
		errs = append(errs, "linkedin.username is required")
	}

	if cfg.Email.Enabled {
		if strings.TrimSpace(cfg.Email.IMAPHost) == "" {
			errs = append(errs, "email.imap_host is required when email.enabled=true")
		}
		if strings.TrimSpace(cfg.Email.Username) == "" {
			errs = append(errs, "email.username is required when email.enabled=true")
		}
	}

	if cfg.Scrape.RatePerSec < 0 {
		errs = append(errs, "scrape.rate_per_sec must be >= 0")
	}
	if cfg.Scrape.ChallengeWaitSeconds < 0 {
		errs = append(errs, "scrape.challenge_wait_seconds must be >= 0")
	}

	if len(errs) > 0 {
		return fmt.Errorf("invalid config: %s", strings.Join(errs, "; "))
	}
	return nil
}
