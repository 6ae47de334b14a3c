package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"path/filepath"
	"runtime"
	"syscall"

	"github.com/gagliardetto/solana-go"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"github.com/thepaypay420/racepump/internal/config"
	"github.com/thepaypay420/racepump/internal/constants"
	"github.com/thepaypay420/racepump/internal/engine"
	"github.com/thepaypay420/racepump/internal/events"
	"github.com/thepaypay420/racepump/internal/feeconfig"
	"github.com/thepaypay420/racepump/internal/ledger"
	"github.com/thepaypay420/racepump/internal/request"
	"github.com/thepaypay420/racepump/internal/rpc"
	"github.com/thepaypay420/racepump/internal/server"
)

func loadEnv() {
	_, filename, _, _ := runtime.Caller(0)
	projectRoot := filepath.Join(filepath.Dir(filename), "../..")
	_ = godotenv.Load(filepath.Join(projectRoot, ".env"))
}

func main() {
	loadEnv()

	addr := flag.String("addr", "", "override server bind address")
	flag.Parse()

	log := logrus.New()
	log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	cfg := config.Load()
	if *addr != "" {
		cfg.ServerAddr = *addr
	}

	programID := mustKey(log, cfg.ProgramID, constants.RacepumpProgramID, "program id")
	aggregator := mustKey(log, cfg.AggregatorID, constants.JupiterProgramID, "aggregator id")
	treasury := mustKey(log, cfg.TreasuryWallet, constants.TreasuryWallet, "treasury wallet")

	sandbox := ledger.New()
	sandbox.RegisterProgram(aggregator, ledger.FillProgram())

	store, err := feeconfig.NewStore(sandbox, programID)
	if err != nil {
		log.WithError(err).Fatal("failed to create config store")
	}

	// Seed a config record when an authority was supplied so the service
	// comes up swappable; otherwise the init endpoint has to run first.
	if cfg.ConfigAuthority != "" {
		authority := mustKey(log, cfg.ConfigAuthority, "", "config authority")
		if _, err := store.Initialize(feeconfig.InitializeParams{
			Authority:        authority,
			TreasuryWallet:   treasury,
			ReflectionFeeBps: cfg.ReflectionFeeBps,
			TreasuryFeeBps:   cfg.TreasuryFeeBps,
		}); err != nil {
			log.WithError(err).Fatal("failed to initialize fee config")
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sink := buildSink(ctx, cfg, log)

	eng := engine.New(engine.Params{
		ProgramID:  programID,
		Aggregator: aggregator,
		Encoding:   parseEncoding(log, cfg.Encoding),
		Mode:       parseMode(log, cfg.AuthorityMode),
	}, store, sink, log)

	var chain *rpc.Client
	if cfg.RPCUrl != "" {
		chain = rpc.NewClient(rpc.ClientConfig{
			BaseURL:      cfg.RPCUrl,
			Timeout:      cfg.HTTPTimeout,
			MaxRetries:   cfg.MaxRetries,
			RetryBackoff: cfg.RetryBackoff,
			RateLimit:    cfg.RPCRateLimit,
			Logger:       log,
		})
	}

	handlers := &server.Handlers{
		Engine:  eng,
		Store:   store,
		Sandbox: sandbox,
		Chain:   chain,
		Sink:    sink,
		Logger:  log,
		DevMode: cfg.DevMode,
	}

	srv, err := server.NewServer(handlers, server.ServerConfig{
		Addr:    cfg.ServerAddr,
		DevMode: cfg.DevMode,
		APIKey:  cfg.APIKey,
	})
	if err != nil {
		log.WithError(err).Fatal("failed to create server")
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigCh
		log.Info("shutting down")
		_ = srv.Shutdown(context.Background())
		cancel()
	}()

	log.WithFields(logrus.Fields{
		"addr":       cfg.ServerAddr,
		"mode":       cfg.AuthorityMode,
		"encoding":   cfg.Encoding,
		"aggregator": aggregator.String(),
	}).Info("racepump listening")

	if err := srv.Start(); err != nil {
		log.WithError(err).Info("server stopped")
	}
	_ = srv.WaitClosed(ctx)
}

func buildSink(ctx context.Context, cfg *config.Config, log *logrus.Logger) events.Sink {
	sinks := []events.Sink{&events.LogSink{Logger: log}}

	if cfg.RedisAddr != "" {
		rs, err := events.NewRedisSink(ctx, cfg.RedisAddr)
		if err != nil {
			log.WithError(err).Fatal("failed to connect to redis")
		}
		sinks = append(sinks, rs)
	}
	if cfg.ClickHouseAddr != "" {
		ch, err := events.NewClickHouseSink(ctx, events.ClickHouseConfig{
			Addr:     cfg.ClickHouseAddr,
			Database: cfg.ClickHouseDatabase,
			Username: cfg.ClickHouseUsername,
			Password: cfg.ClickHousePassword,
		})
		if err != nil {
			log.WithError(err).Fatal("failed to connect to clickhouse")
		}
		sinks = append(sinks, ch)
	}

	if len(sinks) == 1 {
		return sinks[0]
	}
	return &events.MultiSink{Sinks: sinks, Logger: log}
}

func mustKey(log *logrus.Logger, value, fallback, name string) solana.PublicKey {
	if value == "" {
		value = fallback
	}
	key, err := solana.PublicKeyFromBase58(value)
	if err != nil {
		log.WithError(err).Fatalf("invalid %s: %q", name, value)
	}
	return key
}

func parseMode(log *logrus.Logger, s string) engine.AuthorityMode {
	switch s {
	case "direct":
		return engine.AuthorityDirect
	case "mediated":
		return engine.AuthorityMediated
	default:
		log.Fatalf("invalid authority mode %q (use direct|mediated)", s)
		return engine.AuthorityDirect
	}
}

func parseEncoding(log *logrus.Logger, s string) request.Encoding {
	switch s {
	case "full":
		return request.EncodingFull
	case "indexed":
		return request.EncodingIndexed
	default:
		log.Fatalf("invalid encoding %q (use full|indexed)", s)
		return request.EncodingFull
	}
}
