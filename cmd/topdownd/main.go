// Copyright 2022-2026 Consensus Shipyard
// SPDX-License-Identifier: Apache-2.0, MIT

// Command topdownd wires a FinalityProvider up to a live EVM parent chain
// and runs the polling syncer until interrupted: Config ->
// FinalityProvider/Toggle -> PollingSyncer -> ParentClient.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/consensus-shipyard/fendermint-sub001/topdown"
	"github.com/luxfi/log"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "topdownd",
		Short: "Sync a child subnet's view of parent-chain finality",
		Long: `topdownd polls an EVM-compatible parent chain for new blocks, tracks an
unconfirmed sliding window of observations, and exposes the next finality
proposal a child-subnet validator should put to its own consensus.`,
		RunE: runSyncer,
	}

	cmd.Flags().String("parent-rpc", "http://127.0.0.1:8545", "parent chain JSON-RPC endpoint")
	cmd.Flags().Uint64("chain-head-delay", 5, "confirmation depth required before a height is proposable")
	cmd.Flags().Duration("poll-interval", 5*time.Second, "minimum duration between syncer ticks")
	cmd.Flags().Uint64("cache-increment", 1, "spacing between cached parent heights")
	cmd.Flags().Uint64("committed-height", 0, "parent height already committed by this subnet at startup")
	cmd.Flags().String("metrics-addr", "", "if set, serve Prometheus metrics on this address (e.g. :9090)")

	return cmd
}

func runSyncer(cmd *cobra.Command, _ []string) error {
	parentRPC, _ := cmd.Flags().GetString("parent-rpc")
	chainHeadDelay, _ := cmd.Flags().GetUint64("chain-head-delay")
	pollInterval, _ := cmd.Flags().GetDuration("poll-interval")
	cacheIncrement, _ := cmd.Flags().GetUint64("cache-increment")
	committedHeight, _ := cmd.Flags().GetUint64("committed-height")
	metricsAddr, _ := cmd.Flags().GetString("metrics-addr")

	logger := log.NewLogger("topdownd")

	cfg := topdown.Config{
		Enabled:         true,
		ChainHeadDelay:  chainHeadDelay,
		PollingInterval: pollInterval,
		CacheIncrement:  cacheIncrement,
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	client, err := dialParent(cmd.Context(), parentRPC)
	if err != nil {
		return fmt.Errorf("dial parent %q: %w", parentRPC, err)
	}

	provider := topdown.NewFinalityProvider(cfg, topdown.IPCParentFinality{Height: committedHeight})

	var reg prometheus.Registerer
	if metricsAddr != "" {
		registry := prometheus.NewRegistry()
		reg = registry
		go serveMetrics(metricsAddr, registry, logger)
	}

	syncer, err := topdown.NewPollingSyncer(cfg, topdown.EnabledToggle(provider), client, logger, reg)
	if err != nil {
		return fmt.Errorf("construct syncer: %w", err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	syncer.Start(ctx)
	logger.Info("topdownd started", "parentRPC", parentRPC, "committedHeight", committedHeight)

	select {
	case <-ctx.Done():
		logger.Info("shutting down on signal")
	case err := <-syncer.Fatal():
		return fmt.Errorf("syncer halted: %w", err)
	}
	return nil
}

func serveMetrics(addr string, reg *prometheus.Registry, logger log.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	server := &http.Server{Addr: addr, Handler: mux}
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error("metrics server exited", "error", err)
	}
}
