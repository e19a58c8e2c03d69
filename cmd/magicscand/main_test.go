package main

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ivlev/magicscan/internal/config"
)

func TestInitConfigRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "magicscan.yaml")

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs([]string{"init-config", path})
	if err := rootCmd.Execute(); err != nil {
		t.Fatalf("init-config failed: %v", err)
	}

	cfg, err := config.Load(path)
	if err != nil {
		t.Fatalf("written config does not load: %v", err)
	}
	if cfg != config.Default() {
		t.Errorf("round trip changed config: %+v", cfg)
	}
}

func TestEnginesCommand(t *testing.T) {
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs([]string{"engines"})
	if err := rootCmd.Execute(); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out.String(), "native") {
		t.Errorf("native engine not listed: %q", out.String())
	}
}

func TestLoadConfigOverrides(t *testing.T) {
	configPath, host, port, datasetsDir, engineName, verbose = "", "0.0.0.0", 8080, "/tmp/ds", "native", true
	t.Cleanup(func() {
		configPath, host, port, datasetsDir, engineName, verbose = "", "", 0, "", "", false
	})

	cfg, err := loadConfig()
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Server.Host != "0.0.0.0" || cfg.Server.Port != 8080 || cfg.Server.DatasetsDir != "/tmp/ds" {
		t.Errorf("server overrides not applied: %+v", cfg.Server)
	}
	if cfg.Engine != "native" || cfg.Log.Level != "debug" {
		t.Errorf("engine/log overrides not applied: %s %s", cfg.Engine, cfg.Log.Level)
	}

	port = 70000
	if _, err := loadConfig(); err == nil {
		t.Error("expected invalid port to be rejected")
	}
}
