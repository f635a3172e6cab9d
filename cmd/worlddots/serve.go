package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/benoitkugler/worlddots/config"
	"github.com/benoitkugler/worlddots/logging"
	"github.com/benoitkugler/worlddots/mask"
	"github.com/benoitkugler/worlddots/server"
	"github.com/benoitkugler/worlddots/settings"
	"github.com/benoitkugler/worlddots/workflow"
)

// loadServeConfig reads the optional config file, then applies the flags
// set on the command line.
func loadServeConfig(args []string, stderr io.Writer) (*config.Config, error) {
	fs := flag.NewFlagSet("serve", flag.ContinueOnError)
	fs.SetOutput(stderr)
	configPath := fs.String("config", "", "JSON configuration file")
	listen := fs.String("listen", "", "Listen address")
	dbPath := fs.String("db", "", "Settings database")
	maskPath := fs.String("mask", "", "Mask image used when no mask was uploaded")
	logLevel := fs.String("log-level", "", "debug, info, warn or error")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	cfg := config.Default()
	if *configPath != "" {
		var err error
		if cfg, err = config.Load(*configPath); err != nil {
			return nil, err
		}
	}
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "listen":
			cfg.Listen = *listen
		case "db":
			cfg.Database = *dbPath
		case "mask":
			cfg.Mask = *maskPath
		case "log-level":
			cfg.LogLevel = *logLevel
		}
	})
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// startupMask picks the uploaded mask, then the configured one, then the
// embedded world map.
func startupMask(stored string, cfg *config.Config) mask.Source {
	if stored != "" {
		src, err := mask.DataURISource(stored)
		if err == nil {
			return src
		}
		logging.Logger().Warn("ignoring stored mask", slog.Any("err", err))
	}
	if cfg.Mask != "" {
		src, err := mask.FileSource(cfg.Mask)
		if err == nil {
			return src
		}
		logging.Logger().Warn("ignoring configured mask", slog.Any("err", err))
	}
	return mask.DefaultSource()
}

func serve(args []string, stderr io.Writer) error {
	cfg, err := loadServeConfig(args, stderr)
	if err != nil {
		return err
	}
	setupLogging(stderr, cfg.LogLevel)

	store, err := settings.Open(cfg.Database)
	if err != nil {
		return fmt.Errorf("failed to open settings database: %w", err)
	}
	defer store.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	values, err := store.Load(ctx)
	if err != nil {
		return err
	}
	session := workflow.New(workflow.Options{
		Config:          values.Config,
		Mask:            startupMask(values.Mask, cfg),
		ContainerWidth:  cfg.ContainerWidth,
		ContainerHeight: cfg.ContainerHeight,
		PixelRatio:      cfg.PixelRatio,
		ProgressDelay:   cfg.GetProgressDelay(),
	})
	sessionDone := make(chan struct{})
	go func() {
		defer close(sessionDone)
		if err := session.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			logging.Logger().Error("session stopped", slog.Any("err", err))
		}
	}()

	srv := &http.Server{
		Addr:    cfg.Listen,
		Handler: server.LoggingMiddleware(server.NewServer(session, store).ServeMux()),
	}
	serveErr := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()
	logging.Logger().Info("listening", slog.String("addr", cfg.Listen), slog.String("db", cfg.Database))

	select {
	case err = <-serveErr:
		stop()
	case <-ctx.Done():
	}
	logging.Logger().Info("shutting down HTTP server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if shutdownErr := srv.Shutdown(shutdownCtx); shutdownErr != nil {
		logging.Logger().Warn("HTTP server shutdown error", slog.Any("err", shutdownErr))
		srv.Close()
	}
	<-sessionDone
	if err != nil {
		return fmt.Errorf("failed to start server: %w", err)
	}
	return nil
}
