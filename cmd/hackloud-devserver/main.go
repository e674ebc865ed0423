package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/me/hackloud/internal/config"
	"github.com/me/hackloud/internal/devserver"
	"github.com/me/hackloud/internal/logging"
	"github.com/spf13/pflag"
)

func main() {
	d := config.DefaultDevServerConfig()
	flags := pflag.NewFlagSet("hackloud-devserver", pflag.ExitOnError)
	configFile := flags.String("config", "", "Config file (default ~/.hackloud/devserver.yaml)")
	flags.String("addr", d.Addr, "Listen address")
	flags.String("jwt-secret", d.JWTSecret, "HMAC secret for issued tokens")
	flags.Duration("token-ttl", d.TokenTTL, "Lifetime of issued tokens")
	flags.Bool("seed", d.Seed, "Create demo accounts and files")
	flags.String("log-level", d.LogLevel, "Log level (debug, info, warn, error)")
	flags.String("log-format", d.LogFormat, "Log format (text, json)")
	debug := flags.Bool("debug", false, "Shorthand for --log-level=debug")
	flags.Parse(os.Args[1:])

	cfg, err := config.LoadDevServer(*configFile, flags)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	if *debug {
		cfg.LogLevel = "debug"
	}

	logger := logging.NewLogger(logging.ParseLevel(cfg.LogLevel), cfg.LogFormat)
	if cfg.JWTSecret == d.JWTSecret {
		logger.Warn("using the built-in JWT secret, do not expose this server")
	}

	srv := devserver.New(cfg, logger)
	if cfg.Seed {
		if err := srv.Seed(); err != nil {
			fmt.Fprintf(os.Stderr, "seed: %v\n", err)
			os.Exit(1)
		}
	}

	httpServer := &http.Server{
		Addr:              cfg.Addr,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		logger.Info("server starting", "addr", cfg.Addr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server failed", "error", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		fmt.Fprintf(os.Stderr, "shutdown error: %v\n", err)
		os.Exit(1)
	}
	logger.Info("server stopped")
}
