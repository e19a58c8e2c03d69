// Command magicscan prints the question blocks found on an exam page as a
// JSON array of {x, y, width, height} in page pixels.
//
//	magicscan [options] IMAGE [X Y WIDTH HEIGHT]
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"

	"github.com/alexflint/go-arg"
	"github.com/sirupsen/logrus"

	"github.com/ivlev/magicscan/internal/analyzer"
	"github.com/ivlev/magicscan/internal/config"
	"github.com/ivlev/magicscan/internal/engine"
	"github.com/ivlev/magicscan/internal/geom"
	"github.com/ivlev/magicscan/internal/overlay"
	"github.com/ivlev/magicscan/internal/source"
	"github.com/ivlev/magicscan/internal/system"
)

type args struct {
	Image    string   `arg:"positional,required" help:"image, directory of images or PDF"`
	ROI      []string `arg:"positional" placeholder:"X Y WIDTH HEIGHT" help:"region of interest in page pixels"`
	Config   string   `arg:"-c,--config" help:"YAML config file"`
	Engine   string   `arg:"-e,--engine" help:"auto, native or opencv"`
	Page     int      `arg:"-p,--page" default:"1" help:"1-based page of a PDF or image directory"`
	AllPages bool     `arg:"-a,--all-pages" help:"scan every page and print [{page, blocks}]"`
	Workers  int      `arg:"-w,--workers" help:"parallel pages for --all-pages (0 = auto)"`
	Overlay  string   `arg:"-o,--overlay" help:"write a PNG with the detected blocks drawn in"`
	Verbose  bool     `arg:"-v,--verbose" help:"debug logging"`
}

func (args) Description() string {
	return "Detects question blocks on scanned exam pages."
}

func main() {
	var a args
	p, err := arg.NewParser(arg.Config{Program: "magicscan"}, &a)
	if err != nil {
		fail(logrus.New(), err)
	}
	switch err := p.Parse(protectROI(os.Args[1:])); {
	case errors.Is(err, arg.ErrHelp):
		p.WriteHelp(os.Stdout)
		os.Exit(0)
	case err != nil:
		p.WriteUsage(os.Stderr)
		fail(logrus.New(), err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(a.Config)
	if err != nil {
		fail(logrus.New(), err)
	}
	if a.Verbose {
		cfg.Log.Level = "debug"
	}
	log := system.NewLogger(os.Stderr, cfg.Log.Level, cfg.Log.Format)

	out, err := run(ctx, a, cfg, log)
	if err != nil {
		fail(log, err)
	}
	if err := writeJSON(os.Stdout, out); err != nil {
		fail(log, err)
	}
}

// valueFlags take the next token as their value.
var valueFlags = map[string]bool{
	"-c": true, "--config": true,
	"-e": true, "--engine": true,
	"-p": true, "--page": true,
	"-w": true, "--workers": true,
	"-o": true, "--overlay": true,
}

// protectROI inserts "--" before the trailing ROI numbers when one of them is
// negative, so "-20" is read as a value and not as an unknown flag.
func protectROI(argv []string) []string {
	start := len(argv)
	for start > 0 && len(argv)-start < 4 && isNumber(argv[start-1]) {
		start--
	}
	for start < len(argv) && start > 0 && valueFlags[argv[start-1]] {
		start++
	}

	negative := false
	for _, v := range argv[start:] {
		if strings.HasPrefix(v, "-") {
			negative = true
		}
	}
	if !negative {
		return argv
	}
	for _, v := range argv[:start] {
		if v == "--" {
			return argv
		}
	}

	out := make([]string, 0, len(argv)+1)
	out = append(out, argv[:start]...)
	out = append(out, "--")
	return append(out, argv[start:]...)
}

func isNumber(s string) bool {
	_, err := strconv.ParseFloat(s, 64)
	return err == nil
}

// fail reports err on stderr, prints an empty result and exits non-zero.
func fail(log *logrus.Logger, err error) {
	log.Errorf("[-] %v", err)
	fmt.Fprintln(os.Stdout, "[]")
	os.Exit(1)
}

func writeJSON(w io.Writer, v any) error {
	return json.NewEncoder(w).Encode(v)
}

// run returns []geom.PageRect for a single page or []engine.PageResult
// with --all-pages.
func run(ctx context.Context, a args, cfg config.Config, log *logrus.Logger) (any, error) {
	if a.Engine != "" {
		cfg.Engine = a.Engine
	}
	if a.Workers > 0 {
		cfg.Workers = a.Workers
	}
	workers := cfg.Workers
	if workers == 0 {
		workers = system.DefaultWorkers()
	}

	roi := parseROI(a.ROI, log)

	src, err := source.Open(a.Image)
	if err != nil {
		return nil, err
	}
	defer src.Close()

	det, err := analyzer.NewDetector(cfg, log.WithField("component", "detector"))
	if err != nil {
		return nil, err
	}

	scanner := engine.NewScanner(src, det, cfg.PDFDPI, workers, logrus.NewEntry(log))
	scanner.ROI = roi

	if a.AllPages {
		log.Debugf("[*] %s: %d pages, %d workers", a.Image, src.PageCount(), workers)
		if a.Overlay != "" {
			scanner.OnPage = overlayHook(a.Overlay, true)
		}
		return scanner.Scan(ctx, scanner.AllPages())
	}

	if a.Overlay != "" {
		scanner.OnPage = overlayHook(a.Overlay, false)
	}
	res, err := scanner.ScanPage(ctx, a.Page-1)
	if err != nil {
		return nil, err
	}
	return res.Rects(), nil
}

// parseROI accepts exactly four numbers. Anything else is reported and the
// whole page is scanned instead.
func parseROI(vals []string, log *logrus.Logger) *geom.ROI {
	if len(vals) == 0 {
		return nil
	}
	roi, err := geom.ParseROI(vals)
	if err != nil {
		log.Warnf("[!] ignoring region of interest: %v", err)
		return nil
	}
	return roi
}

// overlayHook saves a debug rendering per page. With perPage the page
// number is added to the file name.
func overlayHook(path string, perPage bool) engine.PageHook {
	return func(index int, img image.Image, res *analyzer.Result) error {
		out := path
		if perPage {
			ext := filepath.Ext(path)
			out = fmt.Sprintf("%s_p%d%s", strings.TrimSuffix(path, ext), index+1, ext)
		}
		return overlay.Save(out, img, res)
	}
}
