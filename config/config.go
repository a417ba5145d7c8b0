package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"colexpr-go/logutil"
	"colexpr-go/parallel"

	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// envPrefix starts every environment variable that overrides a config value,
// e.g. COLEXPR_PARALLEL_WORKERS.
const envPrefix = "COLEXPR_"

type Config struct {
	Parallel parallelConfig `yaml:"parallel"`
	Log      logutil.Config `yaml:"log"`
	Metrics  metricsConfig  `yaml:"metrics"`
	Batch    batchConfig    `yaml:"batch"`
	S3       s3Config       `yaml:"s3"`
}
type parallelConfig struct {
	Workers   int    `yaml:"workers"`    // 0 means GOMAXPROCS
	ChunkSize int    `yaml:"chunk_size"` // rows handed to a worker at a time
	Schedule  string `yaml:"schedule"`   // static | dynamic
	MinRows   int    `yaml:"min_rows"`   // below this evaluation stays on one goroutine
}
type metricsConfig struct {
	EnableMetrics bool   `yaml:"enable"`
	Namespace     string `yaml:"namespace"`
}
type batchConfig struct {
	Size int `yaml:"size"` // rows per record batch read from a source
}
type s3Config struct {
	Provider  string `yaml:"provider"` // aws | minio
	Region    string `yaml:"region"`
	Endpoint  string `yaml:"endpoint"`
	Bucket    string `yaml:"bucket"`
	AccessKey string `yaml:"access_key"`
	SecretKey string `yaml:"secret_key"`
	UseSSL    bool   `yaml:"use_ssl"`
}

func defaults() *Config {
	return &Config{
		Parallel: parallelConfig{
			Workers:   0,
			ChunkSize: 4096,
			Schedule:  "dynamic",
			MinRows:   16384,
		},
		Log: logutil.DefaultConfig(),
		Metrics: metricsConfig{
			EnableMetrics: true,
			Namespace:     "colexpr",
		},
		Batch: batchConfig{
			Size: 1024 * 8,
		},
		S3: s3Config{
			Provider: "aws",
			Region:   "us-east-1",
			UseSSL:   true,
		},
	}
}

var configInstance = defaults()

func GetConfig() *Config {
	return configInstance
}

// Reset restores the global instance to the built in defaults.
func Reset() {
	configInstance = defaults()
}

// ParallelOptions converts the parallel section into options for parallel.For.
func (c *Config) ParallelOptions() (parallel.Options, error) {
	sched, err := parallel.ParseSchedule(c.Parallel.Schedule)
	if err != nil {
		return parallel.Options{}, errors.Wrap(err, "parallel.schedule")
	}
	return parallel.Options{
		Workers:   c.Parallel.Workers,
		ChunkSize: c.Parallel.ChunkSize,
		Schedule:  sched,
		MinRows:   c.Parallel.MinRows,
	}, nil
}

// overwrite global instance with loaded config
func Decode(filePath string) error {
	ext := strings.ToLower(filepath.Ext(filePath))
	if ext != ".yaml" && ext != ".yml" {
		return errors.New("file must be a .yaml or .yml file")
	}
	r, err := os.Open(filePath)
	if err != nil {
		return err
	}
	defer r.Close()
	config := make(map[string]interface{})
	decoder := yaml.NewDecoder(r)
	if err := decoder.Decode(config); err != nil {
		return errors.Wrap(err, "failed to decode config")
	}
	mergeConfig(configInstance, config)
	return nil
}

func mergeConfig(dst *Config, src map[string]interface{}) {
	// =============================
	// PARALLEL
	// =============================
	if p, ok := src["parallel"].(map[string]interface{}); ok {
		if v, ok := p["workers"].(int); ok {
			dst.Parallel.Workers = v
		}
		if v, ok := p["chunk_size"].(int); ok {
			dst.Parallel.ChunkSize = v
		}
		if v, ok := p["schedule"].(string); ok {
			dst.Parallel.Schedule = v
		}
		if v, ok := p["min_rows"].(int); ok {
			dst.Parallel.MinRows = v
		}
	}

	// =============================
	// LOG
	// =============================
	if l, ok := src["log"].(map[string]interface{}); ok {
		if v, ok := l["level"].(string); ok {
			dst.Log.Level = v
		}
		if v, ok := l["format"].(string); ok {
			dst.Log.Format = v
		}
		if v, ok := l["filename"].(string); ok {
			dst.Log.Filename = v
		}
		if v, ok := l["max_size"].(int); ok {
			dst.Log.MaxSize = v
		}
		if v, ok := l["max_days"].(int); ok {
			dst.Log.MaxDays = v
		}
		if v, ok := l["max_backups"].(int); ok {
			dst.Log.MaxBackups = v
		}
	}

	// =============================
	// METRICS
	// =============================
	if m, ok := src["metrics"].(map[string]interface{}); ok {
		if v, ok := m["enable"].(bool); ok {
			dst.Metrics.EnableMetrics = v
		}
		if v, ok := m["namespace"].(string); ok {
			dst.Metrics.Namespace = v
		}
	}

	// =============================
	// BATCH
	// =============================
	if b, ok := src["batch"].(map[string]interface{}); ok {
		if v, ok := b["size"].(int); ok {
			dst.Batch.Size = v
		}
	}

	// =============================
	// S3
	// =============================
	if s, ok := src["s3"].(map[string]interface{}); ok {
		if v, ok := s["provider"].(string); ok {
			dst.S3.Provider = v
		}
		if v, ok := s["region"].(string); ok {
			dst.S3.Region = v
		}
		if v, ok := s["endpoint"].(string); ok {
			dst.S3.Endpoint = v
		}
		if v, ok := s["bucket"].(string); ok {
			dst.S3.Bucket = v
		}
		if v, ok := s["access_key"].(string); ok {
			dst.S3.AccessKey = v
		}
		if v, ok := s["secret_key"].(string); ok {
			dst.S3.SecretKey = v
		}
		if v, ok := s["use_ssl"].(bool); ok {
			dst.S3.UseSSL = v
		}
	}
}

// LoadEnv reads the given .env files (".env" when none are given) into the
// process environment and then applies every COLEXPR_* variable to the global
// instance. Variables already set in the environment win over the files.
// Missing files are ignored.
func LoadEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	var existing []string
	for _, p := range paths {
		if _, err := os.Stat(p); err == nil {
			existing = append(existing, p)
		}
	}
	if len(existing) > 0 {
		if err := godotenv.Load(existing...); err != nil {
			return errors.Wrap(err, "failed to load env file")
		}
	}
	return applyEnv(configInstance, os.LookupEnv)
}

func applyEnv(dst *Config, lookup func(string) (string, bool)) error {
	str := func(name string, v *string) {
		if s, ok := lookup(envPrefix + name); ok {
			*v = s
		}
	}
	num := func(name string, v *int) error {
		s, ok := lookup(envPrefix + name)
		if !ok {
			return nil
		}
		n, err := strconv.Atoi(s)
		if err != nil {
			return fmt.Errorf("%s%s: %w", envPrefix, name, err)
		}
		*v = n
		return nil
	}
	flag := func(name string, v *bool) error {
		s, ok := lookup(envPrefix + name)
		if !ok {
			return nil
		}
		b, err := strconv.ParseBool(s)
		if err != nil {
			return fmt.Errorf("%s%s: %w", envPrefix, name, err)
		}
		*v = b
		return nil
	}

	str("PARALLEL_SCHEDULE", &dst.Parallel.Schedule)
	str("LOG_LEVEL", &dst.Log.Level)
	str("LOG_FORMAT", &dst.Log.Format)
	str("LOG_FILENAME", &dst.Log.Filename)
	str("METRICS_NAMESPACE", &dst.Metrics.Namespace)
	str("S3_PROVIDER", &dst.S3.Provider)
	str("S3_REGION", &dst.S3.Region)
	str("S3_ENDPOINT", &dst.S3.Endpoint)
	str("S3_BUCKET", &dst.S3.Bucket)
	str("S3_ACCESS_KEY", &dst.S3.AccessKey)
	str("S3_SECRET_KEY", &dst.S3.SecretKey)

	for _, n := range []struct {
		name string
		v    *int
	}{
		{"PARALLEL_WORKERS", &dst.Parallel.Workers},
		{"PARALLEL_CHUNK_SIZE", &dst.Parallel.ChunkSize},
		{"PARALLEL_MIN_ROWS", &dst.Parallel.MinRows},
		{"BATCH_SIZE", &dst.Batch.Size},
	} {
		if err := num(n.name, n.v); err != nil {
			return err
		}
	}
	if err := flag("METRICS_ENABLE", &dst.Metrics.EnableMetrics); err != nil {
		return err
	}
	return flag("S3_USE_SSL", &dst.S3.UseSSL)
}
