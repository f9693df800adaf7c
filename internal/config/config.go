package config

import (
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

type DatabaseConfig struct {
	DSN   string `yaml:"dsn"`
	Debug bool   `yaml:"debug"`
}

type FewShotConfig struct {
	// Path is the on-disk location of the example store. Empty keeps the
	// store in memory for the duration of the run.
	Path           string `yaml:"path"`
	Examples       string `yaml:"examples"`
	EmbeddingModel string `yaml:"embedding_model"`
	TopK           int    `yaml:"top_k"`
}

type Config struct {
	Endpoint       string         `yaml:"endpoint"`
	APIKey         string         `yaml:"api_key"`
	Model          string         `yaml:"model"`
	Notes          string         `yaml:"notes"`
	PromptTemplate string         `yaml:"prompt_template"`
	Out            string         `yaml:"out"`
	Limit          int            `yaml:"limit"`
	BatchSize      int            `yaml:"batch_size"`
	MaxTokens      int            `yaml:"max_tokens"`
	Temperature    float64        `yaml:"temperature"`
	TimeoutSeconds int            `yaml:"timeout_seconds"`
	LogLevel       string         `yaml:"log_level"`
	Database       DatabaseConfig `yaml:"database"`
	FewShot        FewShotConfig  `yaml:"fewshot"`
}

func Default() Config {
	var cfg Config
	cfg.Endpoint = "http://127.0.0.1:8000/v1"
	cfg.APIKey = "dummy"
	cfg.Notes = "synthetic_notes.jsonl"
	cfg.PromptTemplate = "prompt_template.txt"
	cfg.Limit = 10
	cfg.BatchSize = 50
	cfg.MaxTokens = 64
	cfg.Temperature = 0
	cfg.TimeoutSeconds = 120
	cfg.LogLevel = "info"
	cfg.FewShot.TopK = 3
	return cfg
}

// Load reads the YAML config at path on top of the defaults and then applies
// environment overrides. A missing file is not an error so the tool works
// from flags and environment alone.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if !os.IsNotExist(err) {
				return cfg, err
			}
		} else {
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return cfg, err
			}
		}
	}

	applyEnv(&cfg)

	return cfg, nil
}

func applyEnv(cfg *Config) {
	if v := os.Getenv("OPENAI_API_BASE"); v != "" {
		cfg.Endpoint = v
	}
	if v := os.Getenv("VLLM_ENDPOINT"); v != "" {
		cfg.Endpoint = v
	}
	if v := os.Getenv("OPENAI_API_KEY"); v != "" {
		cfg.APIKey = v
	}
	if v := os.Getenv("CLINEX_MODEL"); v != "" {
		cfg.Model = v
	}
	if v := os.Getenv("CLINEX_DB_DSN"); v != "" {
		cfg.Database.DSN = v
	}
	if v := os.Getenv("CLINEX_BATCH_SIZE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.BatchSize = n
		}
	}
	if v := os.Getenv("CLINEX_LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}
}
