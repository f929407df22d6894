package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"wallet-activity-stats/internal/application/classifier"
	"wallet-activity-stats/internal/application/enrichment"
	appservice "wallet-activity-stats/internal/application/service"
	"wallet-activity-stats/internal/application/source"
	"wallet-activity-stats/internal/domain/entity"
	"wallet-activity-stats/internal/infrastructure/blockchain"
	"wallet-activity-stats/internal/infrastructure/config"
	"wallet-activity-stats/internal/infrastructure/explorer"
	"wallet-activity-stats/internal/infrastructure/logger"
	"wallet-activity-stats/pkg/retry"
	"wallet-activity-stats/pkg/utils"

	"go.uber.org/zap"
)

func main() {
	address := flag.String("address", "", "wallet address to scan")
	from := flag.Int64("from", 0, "window start in ms since epoch")
	to := flag.Int64("to", 0, "window end in ms since epoch, defaults to now")
	flag.Parse()

	if utils.ExtractAddress(*address) == "" {
		fmt.Fprintln(os.Stderr, "invalid -address")
		os.Exit(2)
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.NewLogger(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	policy := retry.DefaultPolicy()
	policy.MaxAttempts = cfg.Direct.RetryAttempts
	policy.BaseDelay = cfg.Direct.RetryBaseDelay
	client := explorer.NewClient(&cfg.Explorer, log).WithRetry(policy, cfg.Direct.RequestTimeout)

	opts := []enrichment.Option{}
	if cfg.RPC.Enabled {
		rpc := blockchain.NewEthereumService(&cfg.RPC, log)
		if err := rpc.Connect(ctx); err != nil {
			log.Warn("RPC fallback unavailable", zap.Error(err))
		} else {
			defer rpc.Disconnect()
			opts = append(opts, enrichment.WithRPC(rpc))
		}
	}

	provider := enrichment.NewProvider(client, client, enrichment.NewCaches(&cfg.Cache), log, opts...)
	cls := classifier.NewClassifier(classifier.NewRuleSet(&cfg.Classifier), provider, log)
	fetcher := source.NewTwoPassFetcher(client, &cfg.Direct, log)
	scanner := appservice.NewDirectScanService(fetcher, cls, &cfg.Direct, log)

	stats, err := scanner.Scan(ctx, utils.ExtractAddress(*address), entity.TimeWindow{FromMs: *from, ToMs: *to}, func(msg string) {
		fmt.Fprintln(os.Stderr, msg)
	})
	if err != nil {
		log.Error("Direct scan failed", zap.Error(err))
		os.Exit(1)
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(stats); err != nil {
		log.Error("Failed to encode result", zap.Error(err))
		os.Exit(1)
	}
}
