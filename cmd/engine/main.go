package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/joho/godotenv"

	"jobscout-engine/internal/auth"
	"jobscout-engine/internal/browse"
	"jobscout-engine/internal/config"
	"jobscout-engine/internal/domain"
	"jobscout-engine/internal/emailcode"
	"jobscout-engine/internal/engine"
	"jobscout-engine/internal/events"
	"jobscout-engine/internal/httpapi"
	"jobscout-engine/internal/secrets"
	"jobscout-engine/internal/session"
	"jobscout-engine/internal/store"
)

func main() {
	// .env is optional; real deployments use the yml config + keychain.
	_ = godotenv.Load()

	dataDir := os.Getenv("JOBSCOUT_DATA_DIR")
	if dataDir == "" {
		dataDir = "."
	}
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		log.Fatal(err)
	}

	defaultCfgPath := filepath.Join("config", "config.yml")
	userCfgPath, err := config.EnsureUserConfig(dataDir, defaultCfgPath)
	if err != nil {
		log.Fatalf("config bootstrap failed: %v", err)
	}

	cfg, err := config.Load(userCfgPath)
	if err != nil {
		log.Fatalf("config load failed (%s): %v", userCfgPath, err)
	}
	if u := os.Getenv("JOBSCOUT_USERNAME"); u != "" {
		cfg.LinkedIn.Username = u
	}
	if p := os.Getenv("JOBSCOUT_PASSWORD"); p != "" {
		cfg.LinkedIn.Password = p
	}
	if err := config.Validate(cfg); err != nil {
		log.Fatal(err)
	}

	password, err := secrets.PlatformPassword(cfg)
	if err != nil {
		log.Fatal(err)
	}

	db, err := store.Open(filepath.Join(dataDir, "jobscout.db"))
	if err != nil {
		log.Fatal(err)
	}
	defer db.Close()

	surf, err := browse.NewWebSurface(browse.Options{
		RatePerSec: cfg.Scrape.RatePerSec,
		Burst:      cfg.Scrape.Burst,
	})
	if err != nil {
		log.Fatal(err)
	}
	log.Printf("browsing surface ready (headless=%v)", cfg.LinkedIn.Headless)

	var codes auth.CodeProvider
	if cfg.Email.Enabled {
		appPassword, err := secrets.IMAPPassword(cfg)
		if err != nil {
			log.Fatal(err)
		}
		addr := cfg.Email.IMAPHost
		if cfg.Email.IMAPPort != 0 {
			addr = fmt.Sprintf("%s:%d", cfg.Email.IMAPHost, cfg.Email.IMAPPort)
		}
		codes, err = emailcode.New(emailcode.Options{
			Addr:     addr,
			Username: cfg.Email.Username,
			Password: appPassword,
			Mailbox:  cfg.Email.Mailbox,
		}, log.Default())
		if err != nil {
			log.Fatal(err)
		}
	}

	sessions := session.NewStore(filepath.Join(dataDir, "session.json"))

	eng := engine.New(surf, sessions, codes, engine.Options{
		Username:      cfg.LinkedIn.Username,
		Password:      password,
		Settle:        cfg.Settle(),
		DetailWait:    cfg.DetailWait(),
		ChallengeWait: cfg.ChallengeWait(),
		Logger:        log.Default(),
	})
	defer eng.Close()

	hub := events.NewHub()
	eng.OnJob = func(rec domain.JobRecord) {
		hub.Publish(events.MakeEvent("", events.TypeJobFound, map[string]any{
			"jobId": rec.JobID,
			"title": rec.Title,
		}))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	addr := fmt.Sprintf("127.0.0.1:%d", cfg.App.Port)
	handler := httpapi.Router(httpapi.Deps{
		Engine: eng,
		Hub:    hub,
		DB:     db.Pool,
		Log:    log.Default(),
	})
	if err := httpapi.Serve(ctx, addr, handler); err != nil {
		log.Fatal(err)
	}
}
