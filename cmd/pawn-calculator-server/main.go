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

	"github.com/iwvelando/pawn-calculator/internal/auth"
	"github.com/iwvelando/pawn-calculator/internal/calculator"
	"github.com/iwvelando/pawn-calculator/internal/config"
	"github.com/iwvelando/pawn-calculator/internal/logging"
	"github.com/iwvelando/pawn-calculator/internal/metrics"
	"github.com/iwvelando/pawn-calculator/internal/server"
	"github.com/iwvelando/pawn-calculator/internal/weights"
	"github.com/iwvelando/pawn-calculator/pkg/constants"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

const (
	storeTimeout    = 30 * time.Second
	shutdownTimeout = 10 * time.Second
)

func main() {
	configLocation := flag.String("config", constants.DefaultConfigFile, "path to configuration file")
	serverConfigLocation := flag.String("server-config", constants.DefaultServerConfigFile, "path to server configuration file")
	logLevel := flag.String("log-level", "", "log level override (debug, info, warn, error)")
	hashPassword := flag.String("hash-password", "", "print the bcrypt hash of a password for auth.users and exit")
	flag.Parse()

	if *hashPassword != "" {
		hash, err := auth.HashPassword(*hashPassword)
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to hash password: %v\n", err)
			os.Exit(1)
		}
		fmt.Println(hash)
		return
	}

	conf, err := config.LoadConfiguration(*configLocation)
	if err != nil {
		fmt.Printf("{\"op\": \"main\", \"level\": \"fatal\", \"msg\": \"failed to load configuration at %s\", \"error\": \"%v\"}\n", *configLocation, err)
		os.Exit(1)
	}

	serverConf, err := server.LoadConfig(*serverConfigLocation)
	if err != nil {
		fmt.Printf("{\"op\": \"main\", \"level\": \"fatal\", \"msg\": \"failed to load server configuration at %s\", \"error\": \"%v\"}\n", *serverConfigLocation, err)
		os.Exit(1)
	}

	// Server logging settings take precedence when present
	loggingConf := conf.Logging
	if serverConf.Logging != (config.LoggingConfig{}) {
		loggingConf = serverConf.Logging
	}
	logger, err := logging.New(loggingConf, *logLevel)
	if err != nil {
		fmt.Printf("{\"op\": \"main\", \"level\": \"fatal\", \"msg\": \"failed to initialize logger\", \"error\": \"%v\"}\n", err)
		os.Exit(1)
	}
	defer func() {
		_ = logger.Sync()
	}()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.New(registry)

	storeCtx, cancelStore := context.WithTimeout(ctx, storeTimeout)
	store, closeStore, err := weights.NewStore(storeCtx, conf.Store, logger)
	cancelStore()
	if err != nil {
		logger.Fatal("failed to open weights store",
			zap.String("op", "main"),
			zap.String("driver", conf.Store.Driver),
			zap.Error(err),
		)
	}
	defer func() {
		if err := closeStore(); err != nil {
			logger.Warn("failed to close weights store",
				zap.String("op", "main"),
				zap.Error(err),
			)
		}
	}()

	provider := weights.NewProvider(store, conf.DefaultWeights(), logger, m)
	provider.Start(ctx)

	deps := server.Dependencies{
		Logger:        logger,
		Calculator:    calculator.New(provider, logger, m),
		Weights:       provider,
		Metrics:       m,
		Gatherer:      registry,
		MaxUploadSize: serverConf.UploadSizeBytes(),
		Version:       version,
	}

	if conf.AdminEnabled() {
		verifier, err := auth.NewBcryptVerifier(conf.Auth.Users)
		if err != nil {
			logger.Fatal("failed to configure admin users",
				zap.String("op", "main"),
				zap.Error(err),
			)
		}
		tokens, err := auth.NewTokenIssuer(conf.Auth.TokenSecret, conf.Auth.TokenTTL)
		if err != nil {
			logger.Fatal("failed to configure admin tokens",
				zap.String("op", "main"),
				zap.Error(err),
			)
		}
		limiter := server.NewRateLimiter(serverConf.LoginRateLimit.Attempts, serverConf.LoginRateLimit.WindowDuration())
		defer limiter.Stop()

		deps.Verifier = verifier
		deps.Tokens = tokens
		deps.LoginLimiter = limiter
	} else {
		logger.Info("no admin users configured, weight administration is disabled",
			zap.String("op", "main"),
		)
	}

	srv := &http.Server{
		Addr:              serverConf.Address,
		Handler:           server.NewHandler(deps),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		logger.Info("starting server",
			zap.String("op", "main"),
			zap.String("address", serverConf.Address),
			zap.String("version", version),
			zap.Bool("using_default_weights", provider.UsingDefaults()),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	select {
	case err := <-serverErr:
		logger.Error("server failed",
			zap.String("op", "main"),
			zap.Error(err),
		)
		return
	case <-ctx.Done():
	}

	logger.Info("shutting down server",
		zap.String("op", "main"),
	)
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed",
			zap.String("op", "main"),
			zap.Error(err),
		)
	}
}
