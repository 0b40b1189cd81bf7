package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/gookit/color"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/savvita/BroadcastClientServer/internal/chat"
	"github.com/savvita/BroadcastClientServer/internal/config"
	"github.com/savvita/BroadcastClientServer/internal/peerlog"
)

var (
	flagAddr        string
	flagMetricsAddr string
	flagPeerLog     string
)

var rootCmd = &cobra.Command{
	Use:          "broadcast-server",
	Short:        "Line-based TCP chat server with moderation",
	SilenceUsage: true,
	RunE:         run,
}

func init() {
	rootCmd.Flags().StringVar(&flagAddr, "addr", "", "chat listen address (overrides CHAT_ADDR)")
	rootCmd.Flags().StringVar(&flagMetricsAddr, "metrics-addr", "", "metrics listen address (overrides CHAT_METRICS_ADDR)")
	rootCmd.Flags().StringVar(&flagPeerLog, "peer-log", "", "known-peers store path (overrides CHAT_PEER_LOG_PATH)")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func run(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if flagAddr != "" {
		cfg.Addr = flagAddr
	}
	if flagMetricsAddr != "" {
		cfg.MetricsAddr = flagMetricsAddr
	}
	if flagPeerLog != "" {
		cfg.PeerLogPath = flagPeerLog
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: parseLevel(cfg.LogLevel),
	}))

	peers, err := peerlog.Open(cfg.PeerLogPath, logger)
	if err != nil {
		return fmt.Errorf("peer log: %w", err)
	}
	defer func() {
		_ = peers.Close()
	}()

	srv := chat.NewServer(chat.ServerConfig{
		Addr:         cfg.Addr,
		WriteTimeout: cfg.WriteTimeout,
		ShutdownWait: cfg.ShutdownWait,
		Peers:        peers,
	}, logger)
	if err := srv.Listen(); err != nil {
		return fmt.Errorf("listen on %s: %w", cfg.Addr, err)
	}

	go serveMetrics(cfg.MetricsAddr, logger)

	color.Green.Printf("chat server listening on %s\n", srv.Addr())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	<-ctx.Done()

	srv.Close()
	return nil
}

func serveMetrics(addr string, logger *slog.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	if err := http.ListenAndServe(addr, mux); err != nil && err != http.ErrServerClosed {
		logger.Error("metrics endpoint failed", "addr", addr, "error", err)
	}
}

func parseLevel(s string) slog.Level {
	switch s {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
