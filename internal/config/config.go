package config

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config holds every tunable of the detector, the CLI and the HTTP service.
type Config struct {
	Engine    string    `yaml:"engine"`  // auto, native, opencv
	Workers   int       `yaml:"workers"` // 0 = sized from CPU and memory
	PDFDPI    int       `yaml:"pdf_dpi"`
	Log       Log       `yaml:"log"`
	Detection Detection `yaml:"detection"`
	Mask      Mask      `yaml:"mask"`
	Server    Server    `yaml:"server"`
}

type Log struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // text, json
}

// Detection covers the geometry stages: normalization, candidate filtering,
// the constrained merge and the finalizer. Lengths are in working units.
type Detection struct {
	TargetWidth             int     `yaml:"target_width"`
	MergeToleranceX         int     `yaml:"merge_tolerance_x"`
	MergeToleranceY         int     `yaml:"merge_tolerance_y"`
	NoiseAreaRatio          float64 `yaml:"noise_area_ratio"`
	MinBlockAreaRatio       float64 `yaml:"min_block_area_ratio"`
	SeparatorBand           int     `yaml:"separator_band"`
	SeparatorMinHeightRatio float64 `yaml:"separator_min_height_ratio"`
	SeparatorMaxWidthRatio  float64 `yaml:"separator_max_width_ratio"`
	ReadingRowBand          int     `yaml:"reading_row_band"`
}

// Mask covers the filter chain that turns the normalized page into an ink mask.
type Mask struct {
	BlurKernel         int     `yaml:"blur_kernel"`
	ThresholdBlockSize int     `yaml:"threshold_block_size"`
	ThresholdC         float64 `yaml:"threshold_c"`
	RuleLengthDivisor  int     `yaml:"rule_length_divisor"` // rule kernel width = target_width / divisor
	RuleEraseMargin    int     `yaml:"rule_erase_margin"`
	GlueWidth          int     `yaml:"glue_width"`
	GlueHeight         int     `yaml:"glue_height"`
	DilateWidth        int     `yaml:"dilate_width"`
	DilateHeight       int     `yaml:"dilate_height"`
}

type Server struct {
	Host        string `yaml:"host"`
	Port        int    `yaml:"port"`
	DatasetsDir string `yaml:"datasets_dir"`
	MaxUploadMB int    `yaml:"max_upload_mb"`
}

// Default returns the tuned parameters for scanned exam pages.
func Default() Config {
	return Config{
		Engine:  "auto",
		Workers: 0,
		PDFDPI:  200,
		Log: Log{
			Level:  "info",
			Format: "text",
		},
		Detection: Detection{
			TargetWidth:             1000,
			MergeToleranceX:         20,
			MergeToleranceY:         60,
			NoiseAreaRatio:          0.0002,
			MinBlockAreaRatio:       0.005,
			SeparatorBand:           50,
			SeparatorMinHeightRatio: 0.15,
			SeparatorMaxWidthRatio:  0.05,
			ReadingRowBand:          100,
		},
		Mask: Mask{
			BlurKernel:         5,
			ThresholdBlockSize: 11,
			ThresholdC:         2,
			RuleLengthDivisor:  30,
			RuleEraseMargin:    4,
			GlueWidth:          20,
			GlueHeight:         30,
			DilateWidth:        3,
			DilateHeight:       5,
		},
		Server: Server{
			Host:        "localhost",
			Port:        3001,
			DatasetsDir: "datasets/positive_samples",
			MaxUploadMB: 20,
		},
	}
}

// Load reads a YAML file over the defaults. An empty path returns the defaults.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

// Write stores cfg as YAML.
func Write(cfg Config, path string) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// RuleKernelWidth is the width of the structuring element that picks out
// horizontal ruling lines.
func (c Config) RuleKernelWidth() int {
	w := c.Detection.TargetWidth / c.Mask.RuleLengthDivisor
	if w < 1 {
		return 1
	}
	return w
}

// Validate reports every setting that cannot drive the pipeline.
func (c Config) Validate() error {
	var errs []error
	positive := func(name string, v int) {
		if v <= 0 {
			errs = append(errs, fmt.Errorf("%s must be positive, got %d", name, v))
		}
	}
	ratio := func(name string, v float64) {
		if v <= 0 || v >= 1 {
			errs = append(errs, fmt.Errorf("%s must be in (0,1), got %g", name, v))
		}
	}

	d := c.Detection
	positive("detection.target_width", d.TargetWidth)
	positive("detection.reading_row_band", d.ReadingRowBand)
	if d.MergeToleranceX < 0 || d.MergeToleranceY < 0 {
		errs = append(errs, errors.New("detection merge tolerances must not be negative"))
	}
	if d.SeparatorBand < 0 {
		errs = append(errs, fmt.Errorf("detection.separator_band must not be negative, got %d", d.SeparatorBand))
	}
	ratio("detection.noise_area_ratio", d.NoiseAreaRatio)
	ratio("detection.min_block_area_ratio", d.MinBlockAreaRatio)
	ratio("detection.separator_min_height_ratio", d.SeparatorMinHeightRatio)
	ratio("detection.separator_max_width_ratio", d.SeparatorMaxWidthRatio)

	m := c.Mask
	positive("mask.blur_kernel", m.BlurKernel)
	positive("mask.rule_length_divisor", m.RuleLengthDivisor)
	positive("mask.glue_width", m.GlueWidth)
	positive("mask.glue_height", m.GlueHeight)
	positive("mask.dilate_width", m.DilateWidth)
	positive("mask.dilate_height", m.DilateHeight)
	if m.BlurKernel%2 == 0 {
		errs = append(errs, fmt.Errorf("mask.blur_kernel must be odd, got %d", m.BlurKernel))
	}
	if m.ThresholdBlockSize < 3 || m.ThresholdBlockSize%2 == 0 {
		errs = append(errs, fmt.Errorf("mask.threshold_block_size must be odd and >= 3, got %d", m.ThresholdBlockSize))
	}
	if m.RuleEraseMargin < 0 {
		errs = append(errs, fmt.Errorf("mask.rule_erase_margin must not be negative, got %d", m.RuleEraseMargin))
	}

	if c.Workers < 0 {
		errs = append(errs, fmt.Errorf("workers must not be negative, got %d", c.Workers))
	}
	positive("pdf_dpi", c.PDFDPI)
	positive("server.max_upload_mb", c.Server.MaxUploadMB)
	if c.Server.Port < 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("server.port out of range: %d", c.Server.Port))
	}

	return errors.Join(errs...)
}
