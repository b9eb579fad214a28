package main

import (
	"context"
	"errors"
	"log"
	"net/http"

	adapthttp "accounts/internal/adapter/http"
	"accounts/internal/adapter/memory"
	"accounts/internal/adapter/postgres"
	"accounts/internal/app"
	"accounts/internal/config"
	"accounts/internal/domain"
)

func main() {
	cfg := config.Load()

	var users domain.UserRepository
	var sessions domain.SessionRepository

	if cfg.DatabaseURL != "" {
		db, err := postgres.Open(cfg.DatabaseURL)
		if err != nil {
			log.Fatalf("db open: %v", err)
		}
		defer func() { _ = db.Close() }()
		users = db
		sessions = postgres.NewSessionRepo(db)
	} else {
		log.Print("DATABASE_URL not set, using in-memory store")
		db := memory.New()
		users = db
		sessions = db.NewSessionRepo()
	}

	authSvc := app.NewAuthService(users, sessions, cfg.SessionTTL)

	oidcCfg, err := adapthttp.NewOIDCConfig(context.Background(),
		cfg.OIDCIssuer, cfg.OIDCClientID, cfg.OIDCClientSecret, cfg.OIDCRedirectURL)
	if err != nil {
		log.Fatalf("oidc setup: %v", err)
	}

	h := adapthttp.New(authSvc, oidcCfg, cfg.WebDir, cfg.CookieSecure, cfg.SessionTTL).Handler()
	log.Printf("listening on %s", cfg.Addr)
	if err := http.ListenAndServe(cfg.Addr, h); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatal(err)
	}
}
