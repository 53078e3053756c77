package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	AI struct {
		Provider          string  `yaml:"provider"`
		Model             string  `yaml:"model"`
		APIKey            string  `yaml:"api_key"`
		BaseURL           string  `yaml:"base_url"`
		Temperature       float64 `yaml:"temperature"`
		MaxTokens         int     `yaml:"max_tokens"`
		RequestsPerMinute int     `yaml:"requests_per_minute"`
	} `yaml:"ai"`
	Search struct {
		APIKey        string  `yaml:"api_key"`
		BaseURL       string  `yaml:"base_url"`
		RatePerSecond float64 `yaml:"rate_per_second"`
	} `yaml:"search"`
	Output struct {
		Dir string `yaml:"dir"`
		DB  string `yaml:"db"`
	} `yaml:"output"`
	Pipeline struct {
		Level             string `yaml:"level"`
		Country           string `yaml:"country"`
		ConceptParagraphs int    `yaml:"concept_paragraphs"`
		Concurrency       int    `yaml:"concurrency"`
		MaxArticleChars   int    `yaml:"max_article_chars"`
		// SkipRetrieval runs the article without the search side pipeline.
		SkipRetrieval bool `yaml:"skip_retrieval"`
	} `yaml:"pipeline"`
	Log struct {
		Mode  string `yaml:"mode"`
		Level string `yaml:"level"`
	} `yaml:"log"`
}

var validProviders = map[string]bool{"gemini": true, "openai": true}

var validLevels = map[string]bool{"latindex": true, "scielo": true, "scopus": true}

func Default() *Config {
	var cfg Config
	cfg.AI.Provider = "gemini"
	cfg.AI.Model = "gemini-2.5-flash"
	cfg.AI.Temperature = 0.7
	cfg.AI.MaxTokens = 2048
	cfg.Search.RatePerSecond = 1
	cfg.Output.Dir = "output"
	cfg.Output.DB = "output/papergen.db"
	cfg.Pipeline.Level = "scopus"
	cfg.Pipeline.Country = "Perú"
	cfg.Pipeline.ConceptParagraphs = 3
	cfg.Pipeline.Concurrency = 4
	cfg.Pipeline.MaxArticleChars = 16000
	cfg.Log.Mode = "dev"
	cfg.Log.Level = "info"
	return &cfg
}

// LoadConfig layers defaults, the YAML file at path (skipped when it does not
// exist) and environment overrides, in that order.
func LoadConfig(path string) (*Config, error) {
	// 1. Load .env if exists
	_ = godotenv.Load()

	cfg := Default()

	// 2. Load YAML config
	if path != "" {
		file, err := os.ReadFile(path)
		switch {
		case errors.Is(err, fs.ErrNotExist):
		case err != nil:
			return nil, err
		default:
			if err := yaml.Unmarshal(file, cfg); err != nil {
				return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
			}
		}
	}

	// 3. Override with Environment Variables if present
	applyEnv(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func applyEnv(cfg *Config) {
	if provider := os.Getenv("PAPERGEN_AI_PROVIDER"); provider != "" {
		cfg.AI.Provider = provider
	}
	if model := os.Getenv("PAPERGEN_MODEL"); model != "" {
		cfg.AI.Model = model
	}
	if apiKey := os.Getenv("PAPERGEN_API_KEY"); apiKey != "" {
		cfg.AI.APIKey = apiKey
	} else if apiKey := os.Getenv("OPENAI_API_KEY"); apiKey != "" && cfg.AI.APIKey == "" && strings.EqualFold(cfg.AI.Provider, "openai") {
		cfg.AI.APIKey = apiKey
	}
	if rpm := os.Getenv("PAPERGEN_REQUESTS_PER_MINUTE"); rpm != "" {
		if n, err := strconv.Atoi(rpm); err == nil {
			cfg.AI.RequestsPerMinute = n
		}
	}
	// SERPAPI_KEY wins over SERP_API_KEY.
	if key := os.Getenv("SERPAPI_KEY"); key != "" {
		cfg.Search.APIKey = key
	} else if key := os.Getenv("SERP_API_KEY"); key != "" {
		cfg.Search.APIKey = key
	}
	if dir := os.Getenv("PAPERGEN_OUTPUT_DIR"); dir != "" {
		cfg.Output.Dir = dir
	}
	if db := os.Getenv("PAPERGEN_DB"); db != "" {
		cfg.Output.DB = db
	}
}

func (c *Config) Validate() error {
	c.AI.Provider = strings.ToLower(strings.TrimSpace(c.AI.Provider))
	if !validProviders[c.AI.Provider] {
		return fmt.Errorf("unsupported ai.provider %q", c.AI.Provider)
	}
	if c.AI.Temperature < 0 || c.AI.Temperature > 2 {
		return fmt.Errorf("ai.temperature must be within [0, 2], got %v", c.AI.Temperature)
	}
	if c.AI.MaxTokens < 0 || c.AI.RequestsPerMinute < 0 {
		return fmt.Errorf("ai.max_tokens and ai.requests_per_minute must be non-negative")
	}
	if c.Search.RatePerSecond < 0 {
		return fmt.Errorf("search.rate_per_second must be non-negative")
	}
	c.Pipeline.Level = strings.ToLower(strings.TrimSpace(c.Pipeline.Level))
	if !validLevels[c.Pipeline.Level] {
		return fmt.Errorf("unsupported pipeline.level %q", c.Pipeline.Level)
	}
	if c.Pipeline.ConceptParagraphs < 1 || c.Pipeline.ConceptParagraphs > 10 {
		return fmt.Errorf("pipeline.concept_paragraphs must be within [1, 10], got %d", c.Pipeline.ConceptParagraphs)
	}
	if c.Pipeline.Concurrency < 1 {
		return fmt.Errorf("pipeline.concurrency must be at least 1")
	}
	if c.Pipeline.MaxArticleChars < 0 {
		return fmt.Errorf("pipeline.max_article_chars must be non-negative")
	}
	if strings.TrimSpace(c.Output.Dir) == "" {
		return fmt.Errorf("output.dir is required")
	}
	return nil
}
