package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	for _, k := range []string{
		"PAPERGEN_AI_PROVIDER", "PAPERGEN_MODEL", "PAPERGEN_API_KEY", "OPENAI_API_KEY",
		"PAPERGEN_REQUESTS_PER_MINUTE", "SERPAPI_KEY", "SERP_API_KEY", "PAPERGEN_OUTPUT_DIR", "PAPERGEN_DB",
	} {
		t.Setenv(k, "")
	}
}

func TestLoadConfig_MissingFileUsesDefaults(t *testing.T) {
	clearEnv(t)
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoadConfig_YAMLThenEnv(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "papergen.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
ai:
  provider: openai
  model: gpt-4o-mini
  api_key: from-file
pipeline:
  level: SciELO
  concept_paragraphs: 2
output:
  dir: /tmp/articles
`), 0644))

	t.Setenv("PAPERGEN_API_KEY", "from-env")
	t.Setenv("SERP_API_KEY", "serp-fallback")

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "openai", cfg.AI.Provider)
	assert.Equal(t, "gpt-4o-mini", cfg.AI.Model)
	assert.Equal(t, "from-env", cfg.AI.APIKey)
	assert.Equal(t, "scielo", cfg.Pipeline.Level)
	assert.Equal(t, 2, cfg.Pipeline.ConceptParagraphs)
	assert.Equal(t, 4, cfg.Pipeline.Concurrency, "unset keys keep defaults")
	assert.Equal(t, "serp-fallback", cfg.Search.APIKey)
	assert.Equal(t, "/tmp/articles", cfg.Output.Dir)

	t.Setenv("SERPAPI_KEY", "serp-primary")
	cfg, err = LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "serp-primary", cfg.Search.APIKey)
}

func TestLoadConfig_OpenAIKeyFallback(t *testing.T) {
	clearEnv(t)
	t.Setenv("PAPERGEN_AI_PROVIDER", "openai")
	t.Setenv("OPENAI_API_KEY", "sk-openai")

	cfg, err := LoadConfig("")
	require.NoError(t, err)
	assert.Equal(t, "sk-openai", cfg.AI.APIKey)
}

func TestLoadConfig_InvalidYAML(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("ai: [unclosed"), 0644))
	_, err := LoadConfig(path)
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	cases := map[string]func(*Config){
		"provider":    func(c *Config) { c.AI.Provider = "claude" },
		"temperature": func(c *Config) { c.AI.Temperature = 3 },
		"level":       func(c *Config) { c.Pipeline.Level = "wos" },
		"concepts":    func(c *Config) { c.Pipeline.ConceptParagraphs = 0 },
		"concurrency": func(c *Config) { c.Pipeline.Concurrency = 0 },
		"output":      func(c *Config) { c.Output.Dir = " " },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			cfg := Default()
			mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
	assert.NoError(t, Default().Validate())
}
