package config

import (
	"os"
	"path/filepath"
	"testing"

	"colexpr-go/parallel"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write %s: %v", path, err)
	}
	return path
}

// TestGetConfig tests the singleton pattern
func TestGetConfig(t *testing.T) {
	Reset()

	config1 := GetConfig()
	config2 := GetConfig()

	// Should return the same instance
	if config1 != config2 {
		t.Error("GetConfig should return the same singleton instance")
	}

	// Verify default values
	if config1.Parallel.ChunkSize != 4096 {
		t.Errorf("Expected default chunk size 4096, got %d", config1.Parallel.ChunkSize)
	}
	if config1.Metrics.Namespace != "colexpr" {
		t.Errorf("Expected default namespace 'colexpr', got %s", config1.Metrics.Namespace)
	}
	if config1.Log.Level != "info" {
		t.Errorf("Expected default log level 'info', got %s", config1.Log.Level)
	}
}

// TestDecodeInvalidExtension tests file extension validation
func TestDecodeInvalidExtension(t *testing.T) {
	Reset()

	tests := []struct {
		name     string
		filename string
	}{
		{"JSON extension", "config.json"},
		{"TXT extension", "config.txt"},
		{"No extension", "config"},
		{"Wrong extension", "config.xml"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Decode(tt.filename)
			if err == nil {
				t.Fatalf("Expected error for %s, got nil", tt.filename)
			}
			expectedMsg := "file must be a .yaml or .yml file"
			if err.Error() != expectedMsg {
				t.Errorf("Expected error '%s', got '%s'", expectedMsg, err.Error())
			}
		})
	}
}

// TestDecodeMissingFile tests handling of non-existent files
func TestDecodeMissingFile(t *testing.T) {
	Reset()

	err := Decode(filepath.Join(t.TempDir(), "nonexistent.yaml"))
	if err == nil {
		t.Error("Expected error for missing file, got nil")
	}
}

// TestDecodeInvalidYAML tests handling of malformed YAML
func TestDecodeInvalidYAML(t *testing.T) {
	Reset()

	path := writeFile(t, "invalid.yaml", "parallel:\n  workers: [1, 2\n")
	if err := Decode(path); err == nil {
		t.Error("Expected error for invalid YAML, got nil")
	}
}

// TestDecodeEmptyConfig tests that an empty file fails and keeps every default
func TestDecodeEmptyConfig(t *testing.T) {
	Reset()

	path := writeFile(t, "empty.yml", "")
	if err := Decode(path); err == nil {
		t.Fatal("This operation should have failed due to EOF")
	}

	config := GetConfig()
	want := defaults()
	if config.Parallel != want.Parallel {
		t.Errorf("Expected parallel defaults %+v, got %+v", want.Parallel, config.Parallel)
	}
	if config.Batch != want.Batch {
		t.Errorf("Expected batch defaults %+v, got %+v", want.Batch, config.Batch)
	}
	if config.S3 != want.S3 {
		t.Errorf("Expected s3 defaults %+v, got %+v", want.S3, config.S3)
	}
}

// TestDecodeFullOverride tests that all values can be overridden
func TestDecodeFullOverride(t *testing.T) {
	Reset()

	path := writeFile(t, "full.yaml", `
parallel:
  workers: 3
  chunk_size: 128
  schedule: static
  min_rows: 10
log:
  level: debug
  format: json
  filename: /tmp/colexpr.log
  max_size: 64
  max_days: 7
  max_backups: 2
metrics:
  enable: false
  namespace: test
batch:
  size: 100
s3:
  provider: minio
  region: eu-west-1
  endpoint: localhost:9000
  bucket: data
  access_key: ak
  secret_key: sk
  use_ssl: false
`)
	if err := Decode(path); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	config := GetConfig()
	if config.Parallel != (parallelConfig{Workers: 3, ChunkSize: 128, Schedule: "static", MinRows: 10}) {
		t.Errorf("parallel section not overridden: %+v", config.Parallel)
	}
	if config.Log.Level != "debug" || config.Log.Format != "json" || config.Log.Filename != "/tmp/colexpr.log" {
		t.Errorf("log section not overridden: %+v", config.Log)
	}
	if config.Log.MaxSize != 64 || config.Log.MaxDays != 7 || config.Log.MaxBackups != 2 {
		t.Errorf("log rotation not overridden: %+v", config.Log)
	}
	if config.Metrics.EnableMetrics || config.Metrics.Namespace != "test" {
		t.Errorf("metrics section not overridden: %+v", config.Metrics)
	}
	if config.Batch.Size != 100 {
		t.Errorf("Expected batch size 100, got %d", config.Batch.Size)
	}
	want := s3Config{Provider: "minio", Region: "eu-west-1", Endpoint: "localhost:9000", Bucket: "data", AccessKey: "ak", SecretKey: "sk", UseSSL: false}
	if config.S3 != want {
		t.Errorf("Expected s3 %+v, got %+v", want, config.S3)
	}

	opts, err := config.ParallelOptions()
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if opts != (parallel.Options{Workers: 3, ChunkSize: 128, Schedule: parallel.Static, MinRows: 10}) {
		t.Errorf("unexpected parallel options %+v", opts)
	}
}

// TestMergeConfigPartial tests that unset keys and sections keep their defaults
func TestMergeConfigPartial(t *testing.T) {
	Reset()

	path := writeFile(t, "partial.yaml", `
parallel:
  workers: 2
log:
  level: warn
`)
	if err := Decode(path); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	config := GetConfig()
	if config.Parallel.Workers != 2 {
		t.Errorf("Expected workers 2, got %d", config.Parallel.Workers)
	}
	if config.Parallel.ChunkSize != 4096 {
		t.Errorf("Expected chunk size 4096 (default), got %d", config.Parallel.ChunkSize)
	}
	if config.Log.Level != "warn" {
		t.Errorf("Expected log level warn, got %s", config.Log.Level)
	}
	if config.Log.Format != "console" {
		t.Errorf("Expected log format console (default), got %s", config.Log.Format)
	}
	if config.Batch.Size != 8192 {
		t.Errorf("Expected batch size 8192 (default), got %d", config.Batch.Size)
	}
}

// TestMergeConfigWrongTypes tests that values of the wrong type are ignored
func TestMergeConfigWrongTypes(t *testing.T) {
	Reset()

	path := writeFile(t, "wrong.yaml", `
parallel:
  workers: "many"
metrics:
  enable: "yes please"
batch:
  size: 12.5
`)
	if err := Decode(path); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	config := GetConfig()
	if config.Parallel.Workers != 0 {
		t.Errorf("Expected workers 0 (default), got %d", config.Parallel.Workers)
	}
	if !config.Metrics.EnableMetrics {
		t.Error("Expected metrics enabled (default)")
	}
	if config.Batch.Size != 8192 {
		t.Errorf("Expected batch size 8192 (default), got %d", config.Batch.Size)
	}
}

func TestParallelOptionsBadSchedule(t *testing.T) {
	Reset()
	GetConfig().Parallel.Schedule = "guided"
	if _, err := GetConfig().ParallelOptions(); err == nil {
		t.Error("Expected error for unknown schedule")
	}
	Reset()
}

func TestApplyEnv(t *testing.T) {
	env := map[string]string{
		"COLEXPR_PARALLEL_WORKERS":  "6",
		"COLEXPR_PARALLEL_SCHEDULE": "static",
		"COLEXPR_LOG_LEVEL":         "error",
		"COLEXPR_METRICS_ENABLE":    "false",
		"COLEXPR_S3_BUCKET":         "lake",
		"COLEXPR_S3_USE_SSL":        "0",
		"UNRELATED":                 "1",
	}
	lookup := func(k string) (string, bool) {
		v, ok := env[k]
		return v, ok
	}
	cfg := defaults()
	if err := applyEnv(cfg, lookup); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if cfg.Parallel.Workers != 6 || cfg.Parallel.Schedule != "static" {
		t.Errorf("parallel env not applied: %+v", cfg.Parallel)
	}
	if cfg.Log.Level != "error" {
		t.Errorf("Expected log level error, got %s", cfg.Log.Level)
	}
	if cfg.Metrics.EnableMetrics {
		t.Error("Expected metrics disabled")
	}
	if cfg.S3.Bucket != "lake" || cfg.S3.UseSSL {
		t.Errorf("s3 env not applied: %+v", cfg.S3)
	}

	env["COLEXPR_BATCH_SIZE"] = "lots"
	if err := applyEnv(defaults(), lookup); err == nil {
		t.Error("Expected error for non numeric COLEXPR_BATCH_SIZE")
	}
}

func TestLoadEnvFile(t *testing.T) {
	Reset()
	path := writeFile(t, "test.env", "COLEXPR_BATCH_SIZE=77\nCOLEXPR_S3_REGION=ap-south-1\n")
	t.Setenv("COLEXPR_S3_REGION", "us-west-2")
	// godotenv.Load sets variables that t.Setenv does not restore
	defer os.Unsetenv("COLEXPR_BATCH_SIZE")

	if err := LoadEnv(path, filepath.Join(t.TempDir(), "missing.env")); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	config := GetConfig()
	if config.Batch.Size != 77 {
		t.Errorf("Expected batch size 77, got %d", config.Batch.Size)
	}
	// the process environment wins over the file
	if config.S3.Region != "us-west-2" {
		t.Errorf("Expected region us-west-2, got %s", config.S3.Region)
	}
	Reset()
}
