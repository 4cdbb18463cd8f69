package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/owetrack/owetrack/internal/auth"
	"github.com/owetrack/owetrack/internal/config"
	"github.com/owetrack/owetrack/internal/handlers"
	"github.com/owetrack/owetrack/internal/identity"
	"github.com/owetrack/owetrack/internal/migration"
	"github.com/owetrack/owetrack/internal/notify"
	"github.com/owetrack/owetrack/internal/storage/sqlite"
	"github.com/owetrack/owetrack/pkg/logging"
)

func main() {
	logging.Setup()
	cfg := config.Load()

	store, err := sqlite.New(cfg.DBPath)
	if err != nil {
		slog.Error("Failed to initialize storage", "error", err)
		os.Exit(1)
	}
	defer store.Close()
	slog.Info("Storage initialized", "database", cfg.DBPath)

	authenticator := auth.NewPasswordAuthenticator(store)
	jwtManager := auth.NewJWTManager(cfg.JWTSecret, cfg.TokenTTL)
	resolver := identity.NewResolver(store)
	importer := migration.NewImporter(store, resolver, cfg.SplitwiseBaseURL, nil)

	var sink notify.Sink = &notify.LogSink{}
	if cfg.MailgunDomain != "" {
		sink = notify.NewMailgunSink(cfg.MailgunDomain, cfg.MailgunAPIKey, cfg.MailgunSender)
		slog.Info("Mailgun notifications enabled", "domain", cfg.MailgunDomain)
	}
	reminder := notify.NewReminder(store, sink)

	handler := handlers.New(store, authenticator, jwtManager, importer, cfg)

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      handler.Router(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go runReminderLoop(ctx, reminder)

	go func() {
		slog.Info("Server starting", "address", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("Server failed", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	slog.Info("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.Error("Shutdown failed", "error", err)
	}
}

// runReminderLoop fires the settle-up reminder job once per calendar day.
// Days are evaluated in local time; a restart re-runs the job for the
// current day, which is harmless because sends are per-group mails.
func runReminderLoop(ctx context.Context, reminder *notify.Reminder) {
	run := func() {
		day := time.Now()
		sent, err := reminder.Run(ctx, day)
		if err != nil {
			slog.Error("Reminder run failed", "error", err)
			return
		}
		if sent > 0 {
			slog.Info("Settle-up reminders sent", "count", sent, "day", day.Format("2006-01-02"))
		}
	}

	run()
	ticker := time.NewTicker(24 * time.Hour)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			run()
		}
	}
}
