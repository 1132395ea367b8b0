package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dgallion1/cvtree/internal/api"
	"github.com/dgallion1/cvtree/internal/config"
	"github.com/dgallion1/cvtree/internal/editor"
	"github.com/dgallion1/cvtree/internal/pathstore"
	"github.com/dgallion1/cvtree/internal/session"
	"github.com/dgallion1/cvtree/internal/stats"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the document editing API",
	Args:  cobra.NoArgs,
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().String("port", "", "Listen port (overrides CVTREE_PORT)")
	serveCmd.Flags().String("log-level", "", "Log level: debug, info, warn, error")
	bindFlag(serveCmd, "port", "port")
	bindFlag(serveCmd, "log_level", "log-level")
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	level, _ := config.ParseLevel(cfg.LogLevel)
	log := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level}))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	rec := stats.New(cfg.StatsWindow)
	sessions := session.NewStore(cfg.SessionTTL, editor.Options{
		HistoryLimit: cfg.HistoryLimit,
		Stats:        rec,
		Logger:       log,
	}, log)
	sessions.Start(ctx, time.Minute)

	// Persistence is optional.
	var store api.DocumentStore
	var ps *pathstore.Client
	if cfg.PathstoreURL != "" {
		ps = pathstore.NewClient(cfg.PathstoreURL, cfg.PathstoreAPIKey)
		store = ps
	} else {
		log.Info("pathstore not configured, save and restore disabled")
	}

	srv := api.NewServer(sessions, store, rec, log, cfg)

	httpServer := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      srv,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown.
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh
		log.Info("shutting down...")

		cancel()

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		httpServer.Shutdown(shutdownCtx)

		if ps != nil {
			ps.Close()
		}
	}()

	log.Info("starting cvtree", "port", cfg.Port, "version", version, "persistence", ps != nil)
	if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Error("server error", "error", err)
		return err
	}
	return nil
}
