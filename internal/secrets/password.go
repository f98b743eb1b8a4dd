package secrets

import (
	"errors"
	"fmt"
	"strings"

	"github.com/zalando/go-keyring"

	"jobscout-engine/internal/config"
)

const (
	// KeyringService groups this app's secrets in the OS keychain.
	KeyringService = "jobscout"
)

// PlatformPassword returns the LinkedIn account password: keychain first,
// config value as fallback so headless boxes without a keyring still work.
func PlatformPassword(cfg config.Config) (string, error) {
	account := platformAccount(cfg)
	if pw, err := keyring.Get(KeyringService, account); err == nil && strings.TrimSpace(pw) != "" {
		return pw, nil
	}
	if pw := strings.TrimSpace(cfg.LinkedIn.Password); pw != "" {
		return pw, nil
	}
	return "", fmt.Errorf("no password for %s (set it in the keychain or in config)", account)
}

func SetPlatformPassword(cfg config.Config, password string) error {
	if strings.TrimSpace(password) == "" {
		return errors.New("password is empty")
	}
	return keyring.Set(KeyringService, platformAccount(cfg), password)
}

// IMAPPassword returns the inbox app password for the verification-code
// channel, same lookup order as PlatformPassword.
func IMAPPassword(cfg config.Config) (string, error) {
	account := imapAccount(cfg)
	if pw, err := keyring.Get(KeyringService, account); err == nil && strings.TrimSpace(pw) != "" {
		return pw, nil
	}
	if pw := strings.TrimSpace(cfg.Email.AppPassword); pw != "" {
		return pw, nil
	}
	return "", fmt.Errorf("no app password for %s", account)
}

func SetIMAPPassword(cfg config.Config, password string) error {
	if strings.TrimSpace(password) == "" {
		return errors.New("password is empty")
	}
	return keyring.Set(KeyringService, imapAccount(cfg), password)
}

func platformAccount(cfg config.Config) string {
	return "jobscout:linkedin:" + cfg.LinkedIn.Username
}

func imapAccount(cfg config.Config) string {
	return fmt.Sprintf("jobscout:imap:%s@%s", cfg.Email.Username, cfg.Email.IMAPHost)
}
