package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/txnguard/txnguard/internal/config"
)

func TestLoadConfigPrecedence(t *testing.T) {
	dir := t.TempDir()
	configFile := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(configFile, []byte("input:\n  path: file.csv\noutput:\n  path: file-out.csv\nengine:\n  workers: 2\n"), 0644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("TXNGUARD_OUTPUT_PATH", "env-out.csv")
	t.Setenv("TXNGUARD_WORKERS", "3")

	cfg, err := loadConfig(flags{
		configFile: configFile,
		envFile:    filepath.Join(dir, "missing.env"),
		workers:    8,
	})
	if err != nil {
		t.Fatalf("loadConfig failed: %v", err)
	}

	if cfg.Input.Path != "file.csv" {
		t.Errorf("expected input from file, got %q", cfg.Input.Path)
	}
	if cfg.Output.Path != "env-out.csv" {
		t.Errorf("expected env to override file, got %q", cfg.Output.Path)
	}
	if cfg.Engine.Workers != 8 {
		t.Errorf("expected flag to override env, got %d", cfg.Engine.Workers)
	}
}

func TestLoadConfigDotEnv(t *testing.T) {
	dir := t.TempDir()
	envFile := filepath.Join(dir, ".env")
	if err := os.WriteFile(envFile, []byte("TXNGUARD_THRESHOLDS_PATH=from-dotenv.json\n"), 0644); err != nil {
		t.Fatal(err)
	}
	// godotenv sets the variable for the whole process.
	t.Setenv("TXNGUARD_THRESHOLDS_PATH", "")
	os.Unsetenv("TXNGUARD_THRESHOLDS_PATH")

	cfg, err := loadConfig(flags{envFile: envFile, input: "in.csv"})
	if err != nil {
		t.Fatalf("loadConfig failed: %v", err)
	}
	if cfg.ThresholdsPath != "from-dotenv.json" {
		t.Errorf("expected thresholds from .env, got %q", cfg.ThresholdsPath)
	}
	if cfg.Input.Path != "in.csv" {
		t.Errorf("expected input flag, got %q", cfg.Input.Path)
	}
}

func TestLoadConfigOutputFlagSelectsFile(t *testing.T) {
	dir := t.TempDir()
	configFile := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(configFile, []byte("output:\n  type: sqlite\n  dsn: flagged.db\n"), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := loadConfig(flags{
		configFile: configFile,
		envFile:    filepath.Join(dir, "missing.env"),
		output:     "out.csv",
	})
	if err != nil {
		t.Fatalf("loadConfig failed: %v", err)
	}
	if cfg.Output.Type != config.TypeCSV {
		t.Errorf("expected -output to select csv, got %q", cfg.Output.Type)
	}
	if cfg.Output.Path != "out.csv" {
		t.Errorf("expected output path from flag, got %q", cfg.Output.Path)
	}

	if err := os.WriteFile(configFile, []byte("output:\n  type: protobuf\n"), 0644); err != nil {
		t.Fatal(err)
	}
	cfg, err = loadConfig(flags{
		configFile: configFile,
		envFile:    filepath.Join(dir, "missing.env"),
		output:     "out.pb",
	})
	if err != nil {
		t.Fatalf("loadConfig failed: %v", err)
	}
	if cfg.Output.Type != config.TypeProtobuf || cfg.Output.Path != "out.pb" {
		t.Errorf("expected protobuf output at out.pb, got %q at %q", cfg.Output.Type, cfg.Output.Path)
	}
}

func TestRunEndToEnd(t *testing.T) {
	dir := t.TempDir()
	input := filepath.Join(dir, "transactions.csv")
	output := filepath.Join(dir, "flagged.csv")
	csv := "user_id,timestamp,merchant_name,amount\n7,1713182400,Fake Charity,20\n8,1713182400,Bakery,3\n"
	if err := os.WriteFile(input, []byte(csv), 0644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("TXNGUARD_WORK_DIR", filepath.Join(dir, "work"))
	t.Setenv("TXNGUARD_LOG_LEVEL", "error")

	code := run([]string{"-env-file", filepath.Join(dir, "none.env"), "-input", input, "-output", output})
	if code != 0 {
		t.Fatalf("expected exit 0, got %d", code)
	}
	if _, err := os.Stat(output); err != nil {
		t.Fatalf("expected output file: %v", err)
	}

	code = run([]string{"-env-file", filepath.Join(dir, "none.env"), "-input", filepath.Join(dir, "missing.csv"), "-output", output})
	if code == 0 {
		t.Fatal("expected non-zero exit for missing input")
	}
}

func TestRunUnknownFlag(t *testing.T) {
	if code := run([]string{"-no-such-flag"}); code != 2 {
		t.Errorf("expected exit 2, got %d", code)
	}
}
