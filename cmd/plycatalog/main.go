// plycatalog - Point-cloud catalog server
// Serves a directory of PLY files to plyview: listing with header metadata,
// raw model download and storage totals.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/taigrr/plyview/internal/catalog"
	"github.com/taigrr/plyview/internal/config"
	"github.com/taigrr/plyview/internal/logger"
	"go.uber.org/zap"
)

func main() {
	flags := config.RegisterFlags(flag.CommandLine)
	flags.RegisterServerFlags(flag.CommandLine)

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "plycatalog - Point-cloud catalog server\n\n")
		fmt.Fprintf(os.Stderr, "Usage: plycatalog [options]\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
	}
	flag.Parse()

	cfg, err := config.Load(flags)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	if flags.SaveConfig != "" {
		if err := cfg.SaveTo(flags.SaveConfig); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		return
	}

	if err := logger.Init(cfg.Logging.Level, cfg.Logging.LogFile); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("plycatalog starting",
		zap.String("listen", cfg.Server.Listen),
		zap.String("level", cfg.Logging.Level))
	logger.Debug("server settings",
		zap.String("models", cfg.Server.ModelsDir),
		zap.String("log_file", cfg.Logging.LogFile))

	if err := run(cfg); err != nil {
		logger.Error("server stopped", zap.Error(err))
		logger.Sync()
		os.Exit(1)
	}
}

func run(cfg *config.Config) error {
	log := logger.Named("catalog")

	info, err := os.Stat(cfg.Server.ModelsDir)
	if err != nil {
		return fmt.Errorf("models dir: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("models dir %s is not a directory", cfg.Server.ModelsDir)
	}

	store := catalog.NewStore(cfg.Server.ModelsDir, log)
	srv := &http.Server{
		Addr:              cfg.Server.Listen,
		Handler:           catalog.NewServer(store, log),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errc := make(chan error, 1)
	go func() {
		log.Info("listening",
			zap.String("addr", cfg.Server.Listen),
			zap.String("models", cfg.Server.ModelsDir))
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
