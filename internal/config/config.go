package config

import (
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	App struct {
		Port    int    `yaml:"port"`
		DataDir string `yaml:"data_dir"`
	} `yaml:"app"`

	LinkedIn struct {
		Username string `yaml:"username"`
		// Password may be empty here; the keychain is checked first.
		Password string `yaml:"password"`
		Headless bool   `yaml:"headless"`
	} `yaml:"linkedin"`

	Email struct {
		Enabled     bool   `yaml:"enabled"`
		IMAPHost    string `yaml:"imap_host"`
		IMAPPort    int    `yaml:"imap_port"`
		Username    string `yaml:"username"`
		AppPassword string `yaml:"app_password"`
		Mailbox     string `yaml:"mailbox"`
	} `yaml:"email"`

	Scrape struct {
		SettleSeconds        int     `yaml:"settle_seconds"`
		DetailWaitSeconds    int     `yaml:"detail_wait_seconds"`
		ChallengeWaitSeconds int     `yaml:"challenge_wait_seconds"`
		RatePerSec           float64 `yaml:"rate_per_sec"`
		Burst                int     `yaml:"burst"`
	} `yaml:"scrape"`
}

func Load(path string) (Config, error) {
	var cfg Config
	b, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	err = yaml.Unmarshal(b, &cfg)
	return cfg, err
}

func (c Config) Settle() time.Duration {
	return time.Duration(c.Scrape.SettleSeconds) * time.Second
}

func (c Config) DetailWait() time.Duration {
	return time.Duration(c.Scrape.DetailWaitSeconds) * time.Second
}

func (c Config) ChallengeWait() time.Duration {
	return time.Duration(c.Scrape.ChallengeWaitSeconds) * time.Second
}
