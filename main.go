package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/spf13/viper"

	"github.com/crowdflux/DeckLingo-AI/cli"
	"github.com/crowdflux/DeckLingo-AI/config"
	"github.com/crowdflux/DeckLingo-AI/handlers"
	"github.com/crowdflux/DeckLingo-AI/logging"
	"github.com/crowdflux/DeckLingo-AI/middleware"
	"github.com/crowdflux/DeckLingo-AI/translator"
)

// shutdownGrace bounds how long in-flight requests may run after a signal.
const shutdownGrace = 30 * time.Second

func main() {
	flags := cli.NewFlags()
	rootCmd := cli.CreateRootCommand(flags, viper.New(), serve)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		stop()
		os.Exit(1)
	}
}

func serve(ctx context.Context, cfg config.Config) error {
	logger, err := logging.New(cfg.LogLevel, cfg.LogFormat, os.Stderr)
	if err != nil {
		return err
	}
	if logger.GetLevel() > zerolog.DebugLevel {
		gin.SetMode(gin.ReleaseMode)
	}

	if err := os.MkdirAll(cfg.UploadDir, 0755); err != nil {
		return err
	}

	client := translator.NewClient(cfg, logger)
	svc := translator.NewService(client, cfg.PollInterval, cfg.JobDeadline)
	h := handlers.NewHandler(svc, handlers.Options{
		UploadDir:      cfg.UploadDir,
		MaxUploadBytes: cfg.MaxUploadBytes,
		Breaker:        client,
	})

	sessions := middleware.NewSessionManager(middleware.SessionTimeout)
	go sessions.Run(ctx, time.Hour)

	srv := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           handlers.NewRouter(h, sessions, logger, cfg.PublicDir),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info().
			Str("addr", srv.Addr).
			Str("upstream", cfg.BaseURL).
			Str("upload_dir", cfg.UploadDir).
			Msg("server listening")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warn().Err(err).Msg("graceful shutdown incomplete")
		return srv.Close()
	}
	return nil
}
