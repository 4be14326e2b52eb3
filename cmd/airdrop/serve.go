package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"solana-airdrop/internal/airdrop"
	"solana-airdrop/internal/airship"
	"solana-airdrop/internal/auth"
	"solana-airdrop/internal/chain"
	"solana-airdrop/internal/config"
	"solana-airdrop/internal/crashtracker"
	"solana-airdrop/internal/observability"
	"solana-airdrop/internal/serve"
	"solana-airdrop/internal/solana"
	"solana-airdrop/internal/storage/clickhouse"
	"solana-airdrop/internal/storage/migrations"
	"solana-airdrop/internal/storage/postgres"
)

func newServeCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the airdrop HTTP API",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := opts.cfg.Validate(); err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return runServe(ctx, opts.cfg, opts.log)
		},
	}
}

func newCrashTracker(cfg *config.Config, log *logrus.Entry) (crashtracker.Client, error) {
	ctType := crashtracker.TypeDryRun
	if cfg.SentryDSN != "" {
		ctType = crashtracker.TypeSentry
	}
	return crashtracker.NewClient(crashtracker.Options{
		Type:        ctType,
		Environment: cfg.Environment,
		Release:     version,
		SentryDSN:   cfg.SentryDSN,
		Logger:      log,
	})
}

func runServe(ctx context.Context, cfg *config.Config, log *logrus.Entry) error {
	crash, err := newCrashTracker(cfg, log)
	if err != nil {
		return err
	}
	defer crash.FlushEvents(2 * time.Second)
	defer crash.Recover()

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	metrics := observability.NewMetrics(observability.DefaultNamespace, reg)

	wallet, err := chain.NewWallet(cfg.WalletPrivateKey)
	if err != nil {
		return fmt.Errorf("%w: %s: %w", config.ErrInvalidConfig, config.KeyWalletPrivateKey, err)
	}

	rpc := solana.NewHTTPClient(cfg.RPCEndpoint, solana.WithObserver(metrics.RecordRPCCall))
	confirmOpts := []solana.ConfirmerOption{solana.WithConfirmTimeout(cfg.ConfirmTimeout)}
	if cfg.WSEndpoint != "" {
		ws, err := solana.NewWSClient(ctx, cfg.WSEndpoint, nil)
		if err != nil {
			log.WithError(err).Warn("websocket unavailable, confirming by polling")
		} else {
			defer ws.Close()
			confirmOpts = append(confirmOpts, solana.WithWSClient(ws))
		}
	}

	chainClient, err := chain.NewClient(rpc, wallet,
		chain.WithConfirmer(solana.NewConfirmer(rpc, confirmOpts...)),
		chain.WithLogger(log.WithField("component", "chain")),
	)
	if err != nil {
		return fmt.Errorf("creating chain client: %w", err)
	}
	if !chainClient.ValidateAddress(cfg.TokenMintAddress) {
		return fmt.Errorf("%w: %s is not a valid address", config.ErrInvalidConfig, config.KeyTokenMintAddress)
	}

	svcOpts := airdrop.Options{
		Chain:           chainClient,
		Signer:          wallet,
		Mint:            cfg.TokenMintAddress,
		DirectThreshold: cfg.DirectThreshold,
		Retry:           airdrop.RetryPolicy{Attempts: cfg.RetryAttempts, Delay: cfg.RetryDelay},
		Metrics:         metrics,
		Logger:          log.WithField("component", "airdrop"),
	}

	if cfg.HeliusAPIKey != "" {
		provider, err := airship.NewClient(cfg.AirshipEndpoint, cfg.HeliusAPIKey,
			airship.WithRPCURL(cfg.RPCEndpoint),
			airship.WithLogger(log.WithField("component", "airship")),
		)
		if err != nil {
			return fmt.Errorf("creating airship client: %w", err)
		}
		svcOpts.Provider = provider
	} else {
		log.Warnf("%s not set, batches of %d or more recipients will fail", config.KeyHeliusAPIKey, cfg.DirectThreshold)
	}

	if cfg.PostgresDSN != "" {
		pool, err := postgres.NewPool(ctx, cfg.PostgresDSN)
		if err != nil {
			return fmt.Errorf("connecting to postgres: %w", err)
		}
		defer pool.Close()
		if err := migrations.RunPostgresMigrations(ctx, pool); err != nil {
			return err
		}
		svcOpts.Runs = postgres.NewRunStore(pool)
		svcOpts.Ledger = postgres.NewTransferLedger(pool)
	} else {
		log.Warn("POSTGRES_DSN not set, the transfer ledger is kept in memory")
	}

	if cfg.ClickHouseDSN != "" {
		conn, err := migrations.RunClickhouseMigrations(ctx, cfg.ClickHouseDSN)
		if err != nil {
			return err
		}
		defer conn.Close()
		svcOpts.Archive = clickhouse.NewOutcomeArchive(conn)
	}

	svc, err := airdrop.NewService(svcOpts)
	if err != nil {
		return err
	}

	jwtManager, err := auth.NewJWTManager(cfg.JWTSecret)
	if err != nil {
		return err
	}

	log.WithFields(logrus.Fields{
		"network": cfg.SolanaNetwork,
		"mint":    cfg.TokenMintAddress,
		"sender":  wallet.PublicKey(),
	}).Info("Airdrop service configured")

	return serve.Serve(ctx, serve.ServeOptions{
		Port:               cfg.Port,
		Service:            svc,
		TokenValidator:     jwtManager,
		CrashTracker:       crash,
		Metrics:            metrics,
		Gatherer:           reg,
		Logger:             log,
		CorsAllowedOrigins: cfg.CorsOrigins,
		RateLimitRequests:  cfg.RateLimitRequests,
		RateLimitWindow:    cfg.RateLimitWindow,
		Network:            cfg.SolanaNetwork,
		Mint:               cfg.TokenMintAddress,
		Version:            version,
	})
}
