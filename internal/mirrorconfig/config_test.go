package mirrorconfig

import (
	"os"
	"testing"

	"github.com/spf13/viper"
)

func TestLoadHostFallsBackToDefaultsWithNoFileOrFlags(t *testing.T) {
	v := viper.New()
	cfg, err := LoadHost(v, "")
	if err != nil {
		t.Fatalf("LoadHost: %v", err)
	}
	want := DefaultHostConfig()
	if *cfg != *want {
		t.Fatalf("LoadHost() = %+v, want defaults %+v", *cfg, *want)
	}
}

func TestLoadViewerFallsBackToDefaultsWithNoFileOrFlags(t *testing.T) {
	v := viper.New()
	cfg, err := LoadViewer(v, "")
	if err != nil {
		t.Fatalf("LoadViewer: %v", err)
	}
	want := DefaultViewerConfig()
	if *cfg != *want {
		t.Fatalf("LoadViewer() = %+v, want defaults %+v", *cfg, *want)
	}
}

func TestLoadHostEnvVarOverridesDefault(t *testing.T) {
	os.Setenv("MIRROR_BIND_ADDR", "127.0.0.1:7777")
	defer os.Unsetenv("MIRROR_BIND_ADDR")

	v := viper.New()
	cfg, err := LoadHost(v, "")
	if err != nil {
		t.Fatalf("LoadHost: %v", err)
	}
	if cfg.BindAddr != "127.0.0.1:7777" {
		t.Fatalf("BindAddr = %q, want override from MIRROR_BIND_ADDR", cfg.BindAddr)
	}
}

func TestLoadViewerRespectsFlagBoundValueOverDefault(t *testing.T) {
	v := viper.New()
	v.Set("port", 5555)
	cfg, err := LoadViewer(v, "")
	if err != nil {
		t.Fatalf("LoadViewer: %v", err)
	}
	if cfg.Port != 5555 {
		t.Fatalf("Port = %d, want 5555 from explicit Set", cfg.Port)
	}
}
