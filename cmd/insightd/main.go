// cmd/insightd/main.go
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"macro-journal/config"
	"macro-journal/internal/db"
	"macro-journal/internal/genai"
	"macro-journal/internal/insight"
	"macro-journal/internal/ledger"
	"macro-journal/internal/notify"
	"macro-journal/internal/session"
	"macro-journal/pkg/logger"

	"golang.org/x/oauth2/clientcredentials"
)

func main() {
	l := logger.New()
	l.Info("Starting Daily Macro Journal insight engine...")

	cfg, err := config.Load()
	if err != nil {
		l.Fatal("Failed to load config", err)
	}

	if cfg.OIDC.Issuer == "" || cfg.OIDC.ClientID == "" {
		l.Fatal("OIDC configuration is incomplete")
	}
	if cfg.Proxy.BaseURL == "" {
		l.Fatal("Text-generation proxy base URL is not configured")
	}

	// Connect to the record store with retry
	var database *db.PostgresDB
	maxRetries := 5
	for i := 0; i < maxRetries; i++ {
		database, err = db.NewPostgresDB(db.Config{
			Host:         cfg.DB.Host,
			Port:         cfg.DB.Port,
			User:         cfg.DB.User,
			Password:     cfg.DB.Password,
			DBName:       cfg.DB.DBName,
			SSLMode:      cfg.DB.SSLMode,
			MaxOpenConns: cfg.DB.MaxOpenConns,
			MaxIdleConns: cfg.DB.MaxIdleConns,
			ConnLifetime: cfg.DB.ConnLifetime,
		})
		if err == nil {
			break
		}
		l.Error("Failed to connect to database, retrying...", err)
		time.Sleep(time.Duration(i+1) * time.Second)
	}
	if database == nil {
		l.Fatal("Failed to connect to database after multiple attempts", err)
	}
	defer database.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Session provider and tracker
	creds := clientcredentials.Config{
		ClientID:     cfg.OIDC.ClientID,
		ClientSecret: cfg.OIDC.ClientSecret,
		TokenURL:     cfg.OIDC.Issuer + "/oauth/token",
	}
	provider, err := session.NewOIDCProvider(ctx, session.OIDCConfig{
		Issuer:       cfg.OIDC.Issuer,
		ClientID:     cfg.OIDC.ClientID,
		ClientSecret: cfg.OIDC.ClientSecret,
	}, creds.TokenSource(ctx))
	if err != nil {
		l.Fatal("Failed to create OIDC provider", err)
	}
	tracker := session.NewTracker(provider, l.Named("session"))

	// Notification surface: Telegram when configured, otherwise no-op
	var surface notify.Surface = notify.Noop{}
	if cfg.Telegram.Token != "" {
		tg, err := notify.NewTelegramSurface(cfg.Telegram.Token, database, l.Named("notify"))
		if err != nil {
			l.Error("Failed to create Telegram surface, pop-ups disabled", err)
		} else {
			surface = tg
		}
	}

	notifLedger := ledger.New(database, l.Named("ledger"))
	generator := genai.NewClient(cfg.Proxy.BaseURL, cfg.Proxy.Timeout)

	engine := insight.NewEngine(tracker, database, database, notifLedger, generator, surface, l.Named("insight"), insight.Config{
		SnackInterval:    cfg.Insight.SnackInterval,
		RolloverInterval: cfg.Insight.RolloverInterval,
	})

	tracker.OnSignOut(engine.Reset)

	// Session lifecycle events drive evaluation passes
	go func() {
		for ev := range provider.Events() {
			tracker.HandleEvent(ctx, ev)
			engine.Trigger(insight.TriggerUserResolved)
		}
	}()

	done := make(chan struct{})
	go func() {
		engine.Run(ctx)
		close(done)
	}()
	l.Info("Insight engine started")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	l.Info("Shutting down insight engine...")
	cancel()

	select {
	case <-done:
	case <-time.After(cfg.ShutdownTimeout):
		l.Error("Timed out waiting for evaluation loop to stop")
	}

	l.Info("Insight engine stopped")
}
