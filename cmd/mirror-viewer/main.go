// Command mirror-viewer connects to a mirror-host, reconstructs its
// framebuffer from the wire protocol, and presents it through a reference
// sink (PNG snapshots and/or an MJPEG HTTP bridge).
package main

import (
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/breeze-rmm/mirror/internal/applier"
	"github.com/breeze-rmm/mirror/internal/mirrorconfig"
	"github.com/breeze-rmm/mirror/internal/presenter"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "mirror-viewer [host] [port]",
	Short: "Connect to a mirror-host and present its streamed desktop",
	Args:  cobra.MaximumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runViewer(args)
	},
}

func init() {
	flags := rootCmd.Flags()
	flags.String("png-out-path", "", "write each presented frame to this PNG path, empty to disable")
	flags.String("mjpeg-addr", "", "serve an MJPEG HTTP stream on this address, empty to disable")
	flags.Int("jpeg-quality", 80, "MJPEG sink JPEG quality 1-100")
	flags.String("log-level", "info", "log level: debug, info, warn, error")
	flags.String("log-format", "text", "log format: text, json")
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default mirror-viewer.yaml in the working directory)")

	// Bound per-key rather than via BindPFlags: viper does not fold the
	// flags' dash names onto the config struct's underscore mapstructure
	// tags, so a blanket bind would silently drop every multi-word flag.
	v := viper.GetViper()
	v.BindPFlag("png_out_path", flags.Lookup("png-out-path"))
	v.BindPFlag("mjpeg_addr", flags.Lookup("mjpeg-addr"))
	v.BindPFlag("jpeg_quality", flags.Lookup("jpeg-quality"))
	v.BindPFlag("log_level", flags.Lookup("log-level"))
	v.BindPFlag("log_format", flags.Lookup("log-format"))
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func initLogging(cfg *mirrorconfig.ViewerConfig) *slog.Logger {
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

// runViewer returns a non-nil error only for fatal startup failures;
// protocol/I-O errors during the run cause os.Exit directly to satisfy
// spec §6's "exit 0 on clean close, nonzero on I/O error" contract without
// cobra wrapping the exit code.
func runViewer(args []string) error {
	v := viper.GetViper()
	if len(args) > 0 {
		v.Set("host", args[0])
	}
	if len(args) > 1 {
		v.Set("port", args[1])
	}

	cfg, err := mirrorconfig.LoadViewer(v, cfgFile)
	if err != nil {
		return fmt.Errorf("mirror-viewer: load config: %w", err)
	}
	log := initLogging(cfg)

	addr := fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)
	conn, err := net.Dial("tcp", addr)
	if err != nil {
		return fmt.Errorf("mirror-viewer: dial %s: %w", addr, err)
	}
	if tc, ok := conn.(*net.TCPConn); ok {
		_ = tc.SetNoDelay(true)
	}
	log.Info("connected", "addr", addr)

	fb := applier.NewFramebuffer()

	var sinks []presenter.Sink
	if cfg.PNGOutPath != "" {
		sinks = append(sinks, presenter.NewPNGFileSink(cfg.PNGOutPath))
	}
	var mjpeg *presenter.MJPEGSink
	if cfg.MJPEGAddr != "" {
		mjpeg = presenter.NewMJPEGSink(cfg.JPEGQuality)
		sinks = append(sinks, mjpeg)
		mux := http.NewServeMux()
		mux.Handle("/stream.mjpeg", mjpeg)
		srv := &http.Server{Addr: cfg.MJPEGAddr, Handler: mux}
		go func() {
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Warn("mjpeg server stopped", "error", err)
			}
		}()
		log.Info("mjpeg stream listening", "addr", cfg.MJPEGAddr, "path", "/stream.mjpeg")
	}

	stop := make(chan struct{})
	for _, sink := range sinks {
		p := presenter.New(fb, sink)
		go p.Run(stop)
	}

	err = applier.Run(conn, fb, log)
	close(stop)
	_ = conn.Close()
	if err != nil {
		log.Error("viewer exiting on error", "error", err)
		os.Exit(1)
	}
	log.Info("viewer exiting cleanly")
	return nil
}
