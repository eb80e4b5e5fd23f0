// Package mirrorconfig loads host and viewer configuration from flags, a
// YAML file, and MIRROR_* environment variables via viper, mirroring the
// teacher's internal/config package.
package mirrorconfig

import (
	"fmt"

	"github.com/spf13/viper"
)

// HostConfig configures the mirror-host binary.
type HostConfig struct {
	BindAddr     string `mapstructure:"bind_addr"`
	DisplayIndex int    `mapstructure:"display_index"`
	Width        int    `mapstructure:"width"`
	Height       int    `mapstructure:"height"`
	Compress     bool   `mapstructure:"compress"`
	StatusAddr   string `mapstructure:"status_addr"`
	LogLevel     string `mapstructure:"log_level"`
	LogFormat    string `mapstructure:"log_format"`
}

// DefaultHostConfig mirrors spec §6's defaults.
func DefaultHostConfig() *HostConfig {
	return &HostConfig{
		BindAddr:     "0.0.0.0:9999",
		DisplayIndex: 0,
		Width:        1280,
		Height:       720,
		Compress:     true,
		StatusAddr:   "127.0.0.1:9998",
		LogLevel:     "info",
		LogFormat:    "text",
	}
}

// ViewerConfig configures the mirror-viewer binary.
type ViewerConfig struct {
	Host         string `mapstructure:"host"`
	Port         int    `mapstructure:"port"`
	PNGOutPath   string `mapstructure:"png_out_path"`
	MJPEGAddr    string `mapstructure:"mjpeg_addr"`
	JPEGQuality  int    `mapstructure:"jpeg_quality"`
	LogLevel     string `mapstructure:"log_level"`
	LogFormat    string `mapstructure:"log_format"`
}

// DefaultViewerConfig mirrors spec §6's viewer CLI defaults.
func DefaultViewerConfig() *ViewerConfig {
	return &ViewerConfig{
		Host:        "127.0.0.1",
		Port:        9999,
		JPEGQuality: 80,
		LogLevel:    "info",
		LogFormat:   "text",
	}
}

// hostKeys lists HostConfig's mapstructure keys, needed to bind each one
// to its MIRROR_* env var explicitly — see the comment in load().
var hostKeys = []string{
	"bind_addr", "display_index", "width", "height", "compress",
	"status_addr", "log_level", "log_format",
}

// viewerKeys lists ViewerConfig's mapstructure keys, same reason.
var viewerKeys = []string{
	"host", "port", "png_out_path", "mjpeg_addr", "jpeg_quality",
	"log_level", "log_format",
}

// LoadHost reads a HostConfig from cfgFile (if non-empty), mirror-host.yaml
// in the working directory, and MIRROR_* env vars, in increasing priority,
// over flag-bound viper defaults already Set by the caller's cobra command.
func LoadHost(v *viper.Viper, cfgFile string) (*HostConfig, error) {
	cfg := DefaultHostConfig()
	if err := load(v, cfgFile, "mirror-host", hostKeys, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadViewer reads a ViewerConfig the same way LoadHost does, from
// mirror-viewer.yaml.
func LoadViewer(v *viper.Viper, cfgFile string) (*ViewerConfig, error) {
	cfg := DefaultViewerConfig()
	if err := load(v, cfgFile, "mirror-viewer", viewerKeys, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func load(v *viper.Viper, cfgFile, defaultName string, keys []string, out any) error {
	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.SetConfigName(defaultName)
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	v.SetEnvPrefix("MIRROR")
	v.AutomaticEnv()
	// AutomaticEnv alone only affects Get/GetString lookups; it never adds
	// to AllKeys/AllSettings, which is what Unmarshal actually decodes
	// from. Each key needs an explicit BindEnv so a bare os.Setenv
	// ("MIRROR_BIND_ADDR", ...) is actually visible below.
	for _, k := range keys {
		if err := v.BindEnv(k); err != nil {
			return fmt.Errorf("mirrorconfig: bind env %s: %w", k, err)
		}
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return fmt.Errorf("mirrorconfig: read config: %w", err)
		}
	}

	if err := v.Unmarshal(out); err != nil {
		return fmt.Errorf("mirrorconfig: unmarshal: %w", err)
	}
	return nil
}
