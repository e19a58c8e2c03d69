package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
	if got := cfg.RuleKernelWidth(); got != 33 {
		t.Errorf("rule kernel width: expected 33, got %d", got)
	}
}

func TestLoadOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "magicscan.yaml")
	data := `
engine: native
detection:
  merge_tolerance_y: 45
mask:
  glue_width: 24
server:
  port: 8080
`
	if err := os.WriteFile(path, []byte(data), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Engine != "native" {
		t.Errorf("engine: got %q", cfg.Engine)
	}
	if cfg.Detection.MergeToleranceY != 45 {
		t.Errorf("merge_tolerance_y: got %d", cfg.Detection.MergeToleranceY)
	}
	if cfg.Mask.GlueWidth != 24 {
		t.Errorf("glue_width: got %d", cfg.Mask.GlueWidth)
	}
	if cfg.Server.Port != 8080 {
		t.Errorf("port: got %d", cfg.Server.Port)
	}

	// Untouched keys keep their defaults.
	if cfg.Detection.MergeToleranceX != 20 {
		t.Errorf("merge_tolerance_x: expected default 20, got %d", cfg.Detection.MergeToleranceX)
	}
	if cfg.Mask.GlueHeight != 30 {
		t.Errorf("glue_height: expected default 30, got %d", cfg.Mask.GlueHeight)
	}
}

func TestLoadEmptyPath(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load(\"\") failed: %v", err)
	}
	if cfg.Detection.TargetWidth != 1000 {
		t.Errorf("expected defaults, got target width %d", cfg.Detection.TargetWidth)
	}
}

func TestLoadRejectsInvalid(t *testing.T) {
	tests := []struct {
		name    string
		data    string
		wantErr string
	}{
		{"even blur", "mask:\n  blur_kernel: 4\n", "blur_kernel"},
		{"ratio out of range", "detection:\n  noise_area_ratio: 1.5\n", "noise_area_ratio"},
		{"zero width", "detection:\n  target_width: 0\n", "target_width"},
		{"negative tolerance", "detection:\n  merge_tolerance_x: -1\n", "tolerances"},
		{"bad yaml", "detection: [\n", "parse config"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "bad.yaml")
			if err := os.WriteFile(path, []byte(tt.data), 0644); err != nil {
				t.Fatal(err)
			}
			_, err := Load(path)
			if err == nil {
				t.Fatal("expected error, got nil")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error %q should mention %q", err, tt.wantErr)
			}
		})
	}
}

func TestWriteRead(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.yaml")
	cfg := Default()
	cfg.Engine = "opencv"
	cfg.Detection.ReadingRowBand = 80

	if err := Write(cfg, path); err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	got, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if got != cfg {
		t.Errorf("round trip mismatch:\n got %+v\nwant %+v", got, cfg)
	}
}
