package analyzer

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/ivlev/magicscan/internal/config"
)

var ErrUnknownEngine = errors.New("unknown engine")

type engineFactory func(cfg config.Config) Engine

var engines = map[string]engineFactory{
	"native": func(cfg config.Config) Engine { return NewNativeEngine(cfg) },
}

// registerEngine is called from the init of optional engines (see opencv.go).
func registerEngine(name string, f engineFactory) {
	engines[name] = f
}

// Engines lists the engines compiled into this binary.
func Engines() []string {
	names := make([]string, 0, len(engines))
	for name := range engines {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// NewEngine creates the engine named by cfg.Engine. "auto" (or empty)
// prefers OpenCV when it is compiled in.
func NewEngine(cfg config.Config) (Engine, error) {
	name := strings.ToLower(cfg.Engine)
	switch name {
	case "", "auto":
		if f, ok := engines["opencv"]; ok {
			return f(cfg), nil
		}
		return engines["native"](cfg), nil
	case "opencv":
		if f, ok := engines[name]; ok {
			return f(cfg), nil
		}
		return nil, fmt.Errorf("%w: %q is not compiled in, rebuild with -tags gocv", ErrUnknownEngine, name)
	default:
		if f, ok := engines[name]; ok {
			return f(cfg), nil
		}
		return nil, fmt.Errorf("%w: %q (available: %s)", ErrUnknownEngine, name, strings.Join(Engines(), ", "))
	}
}

// NewDetector creates a question block detector backed by the configured engine.
func NewDetector(cfg config.Config, log *logrus.Entry) (Detector, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	engine, err := NewEngine(cfg)
	if err != nil {
		return nil, err
	}
	return NewQuestionDetector(cfg, engine, log), nil
}
