// Package config provides configuration structures and loading logic for the
// workflow tooling.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/polisai/polis-flow/pkg/policy"
	"github.com/polisai/polis-flow/pkg/upstream"
)

// Config holds the global configuration.
type Config struct {
	Logging   LoggingConfig   `yaml:"logging"`
	Telemetry TelemetryConfig `yaml:"telemetry"`
	Collector CollectorConfig `yaml:"collector"`
	Policy    PolicyConfig    `yaml:"policy"`
	Metrics   MetricsConfig   `yaml:"metrics"`
	Workflow  WorkflowConfig  `yaml:"workflow"`
}

// LoggingConfig holds configuration for logging.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Pretty bool   `yaml:"pretty"`
}

// TelemetryConfig holds configuration for OpenTelemetry.
type TelemetryConfig struct {
	OTLPEndpoint string            `yaml:"otlp_endpoint"`
	Insecure     bool              `yaml:"insecure"`
	ServiceName  string            `yaml:"service_name"`
	Environment  string            `yaml:"environment"`
	SampleRatio  float64           `yaml:"sample_ratio"`
	Headers      map[string]string `yaml:"headers,omitempty"`
}

// CollectorConfig bounds upstream traversal and sizes the result cache.
type CollectorConfig struct {
	MaxDepth  int `yaml:"max_depth"`
	MaxNodes  int `yaml:"max_nodes"`
	CacheSize int `yaml:"cache_size"`
}

// PolicyConfig points at optional Rego modules overriding the built-in
// vision and publish policies. A path may be a file or a directory of .rego
// files.
type PolicyConfig struct {
	VisionPath        string `yaml:"vision_path"`
	VisionEntrypoint  string `yaml:"vision_entrypoint"`
	VisionMode        string `yaml:"vision_mode"`
	PublishPath       string `yaml:"publish_path"`
	PublishEntrypoint string `yaml:"publish_entrypoint"`
	PublishMode       string `yaml:"publish_mode"`
}

// MetricsConfig holds the Prometheus listener address. Empty disables it.
type MetricsConfig struct {
	Address string `yaml:"address"`
}

// WorkflowConfig names the workflow document the tools operate on.
type WorkflowConfig struct {
	File string `yaml:"file"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		Logging: LoggingConfig{Level: "info"},
		Collector: CollectorConfig{
			MaxDepth:  256,
			MaxNodes:  4096,
			CacheSize: 256,
		},
		Policy: PolicyConfig{
			VisionMode:  string(policy.DefaultMode(policy.DomainVision)),
			PublishMode: string(policy.DefaultMode(policy.DomainPublish)),
		},
	}
}

// Load reads configuration from a file and applies environment variable overrides.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		//nolint:gosec // Config file path is controlled by the operator
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	if err := applyEnvOverrides(cfg); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

func applyEnvOverrides(cfg *Config) error {
	if val := os.Getenv("FLOW_LOG_LEVEL"); val != "" {
		cfg.Logging.Level = val
	}
	if val := os.Getenv("FLOW_LOG_PRETTY"); val == "true" {
		cfg.Logging.Pretty = true
	}

	if val := os.Getenv("FLOW_OTLP_ENDPOINT"); val != "" {
		cfg.Telemetry.OTLPEndpoint = val
	}
	if val := os.Getenv("FLOW_OTLP_INSECURE"); val == "true" {
		cfg.Telemetry.Insecure = true
	}

	if val := os.Getenv("FLOW_COLLECTOR_MAX_DEPTH"); val != "" {
		n, err := strconv.Atoi(val)
		if err != nil {
			return fmt.Errorf("FLOW_COLLECTOR_MAX_DEPTH: %w", err)
		}
		cfg.Collector.MaxDepth = n
	}
	if val := os.Getenv("FLOW_COLLECTOR_MAX_NODES"); val != "" {
		n, err := strconv.Atoi(val)
		if err != nil {
			return fmt.Errorf("FLOW_COLLECTOR_MAX_NODES: %w", err)
		}
		cfg.Collector.MaxNodes = n
	}

	if val := os.Getenv("FLOW_VISION_POLICY"); val != "" {
		cfg.Policy.VisionPath = val
	}
	if val := os.Getenv("FLOW_PUBLISH_POLICY"); val != "" {
		cfg.Policy.PublishPath = val
	}

	if val := os.Getenv("FLOW_METRICS_ADDR"); val != "" {
		cfg.Metrics.Address = val
	}
	if val := os.Getenv("FLOW_WORKFLOW_FILE"); val != "" {
		cfg.Workflow.File = val
	}
	return nil
}

// Validate performs validation of the entire configuration
func (c *Config) Validate() error {
	if err := c.Logging.Validate(); err != nil {
		return fmt.Errorf("logging configuration: %w", err)
	}
	if err := c.Telemetry.Validate(); err != nil {
		return fmt.Errorf("telemetry configuration: %w", err)
	}
	if err := c.Collector.Validate(); err != nil {
		return fmt.Errorf("collector configuration: %w", err)
	}
	if err := c.Policy.Validate(); err != nil {
		return fmt.Errorf("policy configuration: %w", err)
	}
	return nil
}

// Validate performs validation of logging configuration
func (c *LoggingConfig) Validate() error {
	if strings.TrimSpace(c.Level) == "" {
		c.Level = "info"
	}

	level := strings.TrimSpace(strings.ToLower(c.Level))
	switch level {
	case "debug", "info", "warn", "error":
		c.Level = level
		return nil
	default:
		return fmt.Errorf("invalid log level %q, supported levels: debug, info, warn, error", c.Level)
	}
}

// Validate performs validation of telemetry configuration
func (c *TelemetryConfig) Validate() error {
	if c.SampleRatio < 0 || c.SampleRatio > 1 {
		return fmt.Errorf("sample_ratio must be within [0, 1], got %v", c.SampleRatio)
	}
	return nil
}

// Validate performs validation of collector configuration
func (c *CollectorConfig) Validate() error {
	if c.MaxDepth < 0 {
		return fmt.Errorf("max_depth must not be negative, got %d", c.MaxDepth)
	}
	if c.MaxNodes < 0 {
		return fmt.Errorf("max_nodes must not be negative, got %d", c.MaxNodes)
	}
	return nil
}

// Options converts the bounds into traversal options.
func (c CollectorConfig) Options(logger *slog.Logger) upstream.Options {
	return upstream.Options{MaxDepth: c.MaxDepth, MaxNodes: c.MaxNodes, Logger: logger}
}

// Validate performs validation of policy configuration
func (c *PolicyConfig) Validate() error {
	for name, mode := range map[string]*string{"vision_mode": &c.VisionMode, "publish_mode": &c.PublishMode} {
		if strings.TrimSpace(*mode) == "" {
			continue
		}
		parsed, err := policy.ParseMode(*mode)
		if err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
		*mode = string(parsed)
	}
	return nil
}

// ReadModules loads Rego modules from a file or a directory of .rego files,
// keyed by file name. An empty path yields no modules.
func ReadModules(path string) (map[string]string, error) {
	if path == "" {
		return nil, nil
	}

	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("stat policy path: %w", err)
	}

	files := []string{path}
	if info.IsDir() {
		files, err = filepath.Glob(filepath.Join(path, "*.rego"))
		if err != nil {
			return nil, fmt.Errorf("list policy files: %w", err)
		}
		sort.Strings(files)
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("no .rego files in %s", path)
	}

	modules := make(map[string]string, len(files))
	for _, f := range files {
		//nolint:gosec // Policy path is controlled by the operator
		data, err := os.ReadFile(f)
		if err != nil {
			return nil, fmt.Errorf("read policy %s: %w", f, err)
		}
		modules[filepath.Base(f)] = string(data)
	}
	return modules, nil
}
