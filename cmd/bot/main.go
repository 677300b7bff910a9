package main

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"scalper/internal/broker"
	"scalper/internal/config"
	"scalper/internal/engine"
	"scalper/internal/md"
	"scalper/internal/metrics"
	"scalper/internal/universe"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}

	symbols, err := universe.Load(cfg.UniversePath)
	if err != nil {
		log.Fatalf("universe error: %v", err)
	}

	runID := generateRunID()
	decisions, err := engine.NewDecisionLogger(cfg.DecisionsPath, runID)
	if err != nil {
		log.Fatalf("decision logger error: %v", err)
	}
	defer func() {
		if err := decisions.Close(); err != nil {
			log.Printf("failed to close decision logger: %v", err)
		}
	}()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	signalChan := make(chan os.Signal, 1)
	signal.Notify(signalChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-signalChan
		log.Printf("shutdown signal received")
		cancel()
	}()

	brokerClient := broker.New(cfg.APIKey, cfg.APISecret, cfg.BrokerBaseURL)
	account, err := brokerClient.Account(ctx)
	if err != nil {
		log.Fatalf("account unreachable: %v", err)
	}
	log.Printf("[ACCOUNT] %s | buying power: %.2f | cash: %.2f", account.AccountNumber, account.BuyingPower, account.Cash)

	if cfg.MetricsAddr != "" {
		metricsServer := metrics.Serve(cfg.MetricsAddr)
		defer metricsServer.Close()
	}

	snapshots := md.New(cfg.APIKey, cfg.APISecret, cfg.DataBaseURL, md.DefaultRetryPolicy())
	engineImpl := engine.New(cfg, universe.NewRotator(symbols), snapshots, brokerClient, decisions)

	log.Printf("starting scan loop symbols=%d batch=%d interval=%s max_positions=%d", len(symbols), cfg.BatchSize, cfg.ScanInterval, cfg.MaxOpenPositions)
	if err := engineImpl.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		log.Printf("scan loop stopped: %v", err)
	}

	log.Printf("bot shutdown complete")
}

func generateRunID() string {
	timestamp := time.Now().UTC().Format("20060102T150405")
	randomBytes := make([]byte, 4)
	if _, err := rand.Read(randomBytes); err != nil {
		return timestamp
	}
	return timestamp + "-" + hex.EncodeToString(randomBytes)
}
