// Package main implements the txnguard binary. It runs one flagging batch:
// read transactions, annotate them with fraud reasons and write the flagged
// rows.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/txnguard/txnguard/internal/app"
	"github.com/txnguard/txnguard/internal/config"
	"github.com/txnguard/txnguard/internal/logging"
)

var (
	version = "dev"
	commit  = "unknown"
)

// flags holds command line overrides. Zero values leave the loaded
// configuration untouched.
type flags struct {
	configFile string
	envFile    string
	input      string
	output     string
	thresholds string
	workers    int
}

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	fs := flag.NewFlagSet("txnguard", flag.ContinueOnError)
	var (
		f           flags
		showVersion bool
		showHelp    bool
	)
	fs.StringVar(&f.configFile, "config", "", "Path to configuration file (YAML or JSON)")
	fs.StringVar(&f.envFile, "env-file", ".env", "Path to a .env file loaded before the environment is read")
	fs.StringVar(&f.input, "input", "", "Input CSV file")
	fs.StringVar(&f.output, "output", "", "Output file for flagged transactions (CSV unless the config selects protobuf)")
	fs.StringVar(&f.thresholds, "thresholds", "", "Merchant thresholds file (JSON or YAML)")
	fs.IntVar(&f.workers, "workers", 0, "Number of goroutines users are sharded over")
	fs.BoolVar(&showVersion, "version", false, "Show version information")
	fs.BoolVar(&showHelp, "help", false, "Show help message")

	fs.Usage = func() {
		out := fs.Output()
		fmt.Fprintf(out, "txnguard - Multi-rule transaction flagging\n\n")
		fmt.Fprintf(out, "Usage: txnguard [options]\n\n")
		fmt.Fprintf(out, "Options:\n")
		fs.PrintDefaults()
		fmt.Fprintf(out, "\nExamples:\n")
		fmt.Fprintf(out, "  txnguard -input data/transactions.csv -output data/flagged_transactions.csv\n")
		fmt.Fprintf(out, "  txnguard -thresholds merchant_thresholds.json -workers 4\n")
		fmt.Fprintf(out, "  txnguard -config /etc/txnguard/config.yaml\n")
		fmt.Fprintf(out, "\nEnvironment Variables:\n")
		fmt.Fprintf(out, "  TXNGUARD_INPUT_TYPE       Input type (csv, sqlite, postgres)\n")
		fmt.Fprintf(out, "  TXNGUARD_INPUT_PATH       Input CSV file\n")
		fmt.Fprintf(out, "  TXNGUARD_OUTPUT_TYPE      Output type (csv, sqlite, postgres, protobuf)\n")
		fmt.Fprintf(out, "  TXNGUARD_OUTPUT_PATH      Output file\n")
		fmt.Fprintf(out, "  TXNGUARD_THRESHOLDS_PATH  Merchant thresholds file\n")
		fmt.Fprintf(out, "  TXNGUARD_BLACKLIST        Comma-separated merchant blacklist override\n")
		fmt.Fprintf(out, "  TXNGUARD_WORKERS          Number of workers\n")
		fmt.Fprintf(out, "  TXNGUARD_STORAGE_TYPE     Storage type (local, s3)\n")
		fmt.Fprintf(out, "  TXNGUARD_LOG_LEVEL        Log level (debug, info, warn, error)\n")
	}

	if err := fs.Parse(args); err != nil {
		if err == flag.ErrHelp {
			return 0
		}
		return 2
	}

	if showHelp {
		fs.Usage()
		return 0
	}

	if showVersion {
		fmt.Printf("txnguard version %s (commit: %s)\n", version, commit)
		return 0
	}

	cfg, err := loadConfig(f)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		return 1
	}

	logger, err := logging.NewLogger(logging.Config{Level: cfg.Logging.Level, Format: cfg.Logging.Format})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create logger: %v\n", err)
		return 1
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	application, err := app.New(cfg, logger)
	if err != nil {
		logger.Error("failed to create application", zap.Error(err))
		return 1
	}

	report, err := application.Run(ctx)
	if err != nil {
		return 1
	}

	fmt.Printf("Flagged %d of %d transactions -> %s\n", report.Flagged, report.Rows, report.Output)
	return 0
}

// loadConfig layers configuration: defaults or file, then the .env file and
// environment, then command line flags (highest priority).
func loadConfig(f flags) (*config.Config, error) {
	if err := config.LoadDotEnv(f.envFile); err != nil {
		return nil, err
	}

	var cfg *config.Config
	if f.configFile != "" {
		var err error
		cfg, err = config.LoadFromFile(f.configFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load config file: %w", err)
		}
	} else {
		cfg = config.DefaultConfig()
	}

	config.LoadFromEnv(cfg)

	if f.input != "" {
		cfg.Input.Type = config.TypeCSV
		cfg.Input.Path = f.input
	}
	if f.output != "" {
		if cfg.Output.Type != config.TypeProtobuf {
			cfg.Output.Type = config.TypeCSV
		}
		cfg.Output.Path = f.output
	}
	if f.thresholds != "" {
		cfg.ThresholdsPath = f.thresholds
	}
	if f.workers != 0 {
		cfg.Engine.Workers = f.workers
	}

	return cfg, nil
}
