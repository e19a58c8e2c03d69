// Command magicscand serves question block detection over HTTP.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/ivlev/magicscan/internal/analyzer"
	"github.com/ivlev/magicscan/internal/config"
	"github.com/ivlev/magicscan/internal/server"
	"github.com/ivlev/magicscan/internal/system"
)

var (
	configPath  string
	host        string
	port        int
	datasetsDir string
	engineName  string
	verbose     bool
)

var rootCmd = &cobra.Command{
	Use:          "magicscand",
	Short:        "Question block detection service",
	Long:         "Serves POST /tools/magic-scan and POST /tools/feedback for the exam editor.",
	SilenceUsage: true,
	RunE:         runDaemon,
}

var enginesCmd = &cobra.Command{
	Use:   "engines",
	Short: "List the detection engines compiled into this binary",
	Run: func(cmd *cobra.Command, args []string) {
		for _, name := range analyzer.Engines() {
			fmt.Fprintln(cmd.OutOrStdout(), name)
		}
	},
}

var initConfigCmd = &cobra.Command{
	Use:   "init-config FILE",
	Short: "Write the default configuration to FILE",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := config.Write(config.Default(), args[0]); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "[*] Wrote %s\n", args[0])
		return nil
	},
}

func init() {
	rootCmd.AddCommand(enginesCmd, initConfigCmd)

	f := rootCmd.Flags()
	f.StringVarP(&configPath, "config", "c", "", "YAML config file")
	f.StringVar(&host, "host", "", "Host to bind to (overrides config)")
	f.IntVar(&port, "port", 0, "Port to listen on (overrides config)")
	f.StringVar(&datasetsDir, "datasets-dir", "", "Directory for feedback datasets (overrides config)")
	f.StringVarP(&engineName, "engine", "e", "", "auto, native or opencv (overrides config)")
	f.BoolVarP(&verbose, "verbose", "v", false, "Debug logging")
}

func loadConfig() (config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return cfg, err
	}
	if host != "" {
		cfg.Server.Host = host
	}
	if port != 0 {
		cfg.Server.Port = port
	}
	if datasetsDir != "" {
		cfg.Server.DatasetsDir = datasetsDir
	}
	if engineName != "" {
		cfg.Engine = engineName
	}
	if verbose {
		cfg.Log.Level = "debug"
	}
	return cfg, cfg.Validate()
}

func runDaemon(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	log := system.NewLogger(os.Stderr, cfg.Log.Level, cfg.Log.Format)

	engine, err := analyzer.NewEngine(cfg)
	if err != nil {
		return err
	}
	det := analyzer.NewQuestionDetector(cfg, engine, log.WithField("component", "detector"))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	srv := server.New(cfg.Server, det, det.Engine().Name(), log.WithField("service", "magicscand"))
	return srv.ListenAndServe(ctx)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
