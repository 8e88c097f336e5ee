package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cuemby/aaesync/pkg/clients"
	"github.com/cuemby/aaesync/pkg/clients/replrtq"
	"github.com/cuemby/aaesync/pkg/config"
	"github.com/cuemby/aaesync/pkg/coordinator"
	"github.com/cuemby/aaesync/pkg/exchange"
	"github.com/cuemby/aaesync/pkg/log"
	"github.com/cuemby/aaesync/pkg/metrics"
	"github.com/cuemby/aaesync/pkg/store"
	"github.com/cuemby/aaesync/pkg/types"
	"github.com/spf13/cobra"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Start the coordinator",
	RunE:  runCoordinator,
}

func init() {
	runCmd.Flags().String("config", "aaesync.yaml", "Path to the coordinator config file")
	runCmd.Flags().String("data-dir", "./data", "Directory for the exchange history database")
	runCmd.Flags().String("listen-addr", "127.0.0.1:7070", "Address to serve the control API on")
	runCmd.Flags().String("metrics-addr", "127.0.0.1:9090", "Address to serve /metrics, /health, /ready, /live on")
	runCmd.Flags().String("queue-url", "", "Base URL of an external replication queue service (defaults to an in-memory queue)")
}

func runCoordinator(cmd *cobra.Command, args []string) error {
	logger := log.WithComponent("cmd")

	configPath, _ := cmd.Flags().GetString("config")
	dataDir, _ := cmd.Flags().GetString("data-dir")
	listenAddr, _ := cmd.Flags().GetString("listen-addr")
	metricsAddr, _ := cmd.Flags().GetString("metrics-addr")
	queueURL, _ := cmd.Flags().GetString("queue-url")

	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return fmt.Errorf("create data dir: %w", err)
	}

	history, err := store.Open(dataDir)
	if err != nil {
		return fmt.Errorf("open history store: %w", err)
	}
	metrics.RegisterComponent("history_store", true, "")

	var queue clients.ReplicationQueue
	if queueURL != "" {
		queue = replrtq.NewHTTPQueue(queueURL)
	} else {
		queue = replrtq.NewLocalQueue()
	}

	membership := &clients.StaticMembership{Nodes: []string{"self"}, Self: "self"}

	driver := exchange.NewDriver(queue, history, log.WithComponent("exchange"))

	state := coordinator.State{
		Scope:      types.Scope(cfg.Scope),
		LocalNVal:  cfg.LocalNVal,
		RemoteNVal: cfg.RemoteNVal,
		Wants:      cfg.Wants(),
		SliceCount: cfg.Wants().SliceCount(),
		Source:     cfg.LocalEndpoint(),
		Sink:       cfg.RemoteEndpoint(),
		QueueName:  cfg.QueueName,
	}
	if state.Scope == types.ScopeBucket {
		state.Buckets = []types.BucketID{cfg.InitialBucket()}
	}

	coord := coordinator.New(state, coordinator.Deps{
		Membership: membership,
		Driver:     driver,
		Logger:     log.WithComponent("coordinator"),
	})
	metrics.RegisterComponent("coordinator", true, "")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go coord.Run(ctx)

	controlServer := &http.Server{Addr: listenAddr, Handler: coord.Handler()}
	metricsMux := http.NewServeMux()
	metricsMux.Handle("/metrics", metrics.Handler())
	metricsMux.HandleFunc("/health", metrics.HealthHandler())
	metricsMux.HandleFunc("/ready", metrics.ReadyHandler())
	metricsMux.HandleFunc("/live", metrics.LivenessHandler())
	metricsServer := &http.Server{Addr: metricsAddr, Handler: metricsMux}

	errCh := make(chan error, 2)
	go func() {
		logger.Info().Str("addr", listenAddr).Msg("control API listening")
		if err := controlServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- fmt.Errorf("control server: %w", err)
		}
	}()
	go func() {
		logger.Info().Str("addr", metricsAddr).Msg("metrics server listening")
		if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- fmt.Errorf("metrics server: %w", err)
		}
	}()

	fmt.Printf("aaesync running, scope=%s control=%s metrics=%s\n", state.Scope, listenAddr, metricsAddr)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	select {
	case <-sigCh:
		fmt.Println("\nShutting down...")
	case err := <-errCh:
		fmt.Fprintf(os.Stderr, "\nError: %v\n", err)
	}

	cancel()
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	controlServer.Shutdown(shutdownCtx)
	metricsServer.Shutdown(shutdownCtx)
	if err := history.Close(); err != nil {
		return fmt.Errorf("close history store: %w", err)
	}

	fmt.Println("Shutdown complete")
	return nil
}
