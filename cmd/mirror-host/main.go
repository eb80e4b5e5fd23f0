// Command mirror-host accepts viewer connections and streams delta-encoded
// desktop updates to each of them over the wire protocol in spec §4.1.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/breeze-rmm/mirror/internal/capture"
	"github.com/breeze-rmm/mirror/internal/metrics"
	"github.com/breeze-rmm/mirror/internal/mirrorconfig"
	"github.com/breeze-rmm/mirror/internal/session"
	"github.com/breeze-rmm/mirror/internal/statusfeed"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "mirror-host",
	Short: "Stream this host's desktop to one or more mirror-viewer clients",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runHost()
	},
}

func init() {
	flags := rootCmd.Flags()
	flags.String("bind-addr", "0.0.0.0:9999", "TCP address to accept viewer connections on")
	flags.Int("display-index", 0, "which display to capture (0 = primary; ignored by the software capturer)")
	flags.Int("width", 1280, "software capturer screen width")
	flags.Int("height", 720, "software capturer screen height")
	flags.Bool("compress", true, "DEFLATE-compress FRAME/DIRTY bodies")
	flags.String("status-addr", "127.0.0.1:9998", "HTTP address for the /status observability endpoint, empty to disable")
	flags.String("log-level", "info", "log level: debug, info, warn, error")
	flags.String("log-format", "text", "log format: text, json")
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default mirror-host.yaml in the working directory)")

	// Bound per-key rather than via BindPFlags: viper does not fold the
	// flags' dash names onto the config struct's underscore mapstructure
	// tags, so a blanket bind would silently drop every multi-word flag.
	v := viper.GetViper()
	v.BindPFlag("bind_addr", flags.Lookup("bind-addr"))
	v.BindPFlag("display_index", flags.Lookup("display-index"))
	v.BindPFlag("width", flags.Lookup("width"))
	v.BindPFlag("height", flags.Lookup("height"))
	v.BindPFlag("compress", flags.Lookup("compress"))
	v.BindPFlag("status_addr", flags.Lookup("status-addr"))
	v.BindPFlag("log_level", flags.Lookup("log-level"))
	v.BindPFlag("log_format", flags.Lookup("log-format"))
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func initLogging(cfg *mirrorconfig.HostConfig) *slog.Logger {
	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.LogLevel)); err != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if cfg.LogFormat == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}
	log := slog.New(handler)
	slog.SetDefault(log)
	return log
}

func runHost() error {
	cfg, err := mirrorconfig.LoadHost(viper.GetViper(), cfgFile)
	if err != nil {
		return fmt.Errorf("mirror-host: load config: %w", err)
	}
	log := initLogging(cfg)

	capCfg := capture.DefaultConfig()
	capCfg.DisplayIndex = cfg.DisplayIndex
	capCfg.Width = uint32(cfg.Width)
	capCfg.Height = uint32(cfg.Height)
	capr, err := capture.NewSoftware(capCfg, &capture.PatternPainter{
		Background: [4]byte{0x20, 0x20, 0x20, 0xFF},
		BarColor:   [4]byte{0x00, 0x00, 0xFF, 0xFF},
	})
	if err != nil {
		return fmt.Errorf("mirror-host: create capturer: %w", err)
	}
	defer capr.Close()

	mgr := session.NewManager(capr, cfg.Compress, log)
	mgr.ConnTuner = tuneConn

	ln, err := net.Listen("tcp", cfg.BindAddr)
	if err != nil {
		return fmt.Errorf("mirror-host: listen on %s: %w", cfg.BindAddr, err)
	}
	if tcpLn, ok := ln.(*net.TCPListener); ok {
		configureSocket(tcpLn, log)
	}
	log.Info("mirror-host listening", "addr", cfg.BindAddr, "width", cfg.Width, "height", cfg.Height)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		log.Info("mirror-host shutting down")
		cancel()
		mgr.StopAll()
	}()

	var statusSrv *http.Server
	if cfg.StatusAddr != "" {
		feed := statusfeed.New(mgr, metrics.NewHostSampler(), log)
		mux := http.NewServeMux()
		mux.Handle("/status", feed)
		statusSrv = &http.Server{Addr: cfg.StatusAddr, Handler: mux}
		go func() {
			if err := statusSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Warn("status feed stopped", "error", err)
			}
		}()
		log.Info("status feed listening", "addr", cfg.StatusAddr)
	}

	err = mgr.Serve(ctx, ln)
	if statusSrv != nil {
		_ = statusSrv.Close()
	}
	if err != nil {
		return fmt.Errorf("mirror-host: %w", err)
	}
	return nil
}
