package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{"EMBEDDING_PROVIDER", "OLLAMA_BASE_URL", "OPENAI_API_KEY", "DATABASE_URL"} {
		t.Setenv(key, "")
	}
}

func TestLoadConfig(t *testing.T) {
	clearEnv(t)
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "embeddings.yaml")

	configData := `
embedding:
  provider: "ollama"
  model: "nomic-embed-text"
  base_url: "http://localhost:11434"
  batch_size: 16
  rate_limit: 2.5

processor:
  chunk_size: 300
  chunk_overlap: 30

documents_dir: "site/docs"
output: "site/data/embeddings.json"

documents:
  - file: "cv.txt"
    metadata:
      type: "cv"
      title: "Ryan Hill - CV"
  - file: "projects.html"
    metadata:
      type: "projects"
      title: "Projects"
      year: 2024

database:
  url: "postgres://localhost:5432/test"
  table_name: "site_chunks"
  vector_dim: 768

search:
  threshold: 0.4
  max_results: 5
`
	err := os.WriteFile(configPath, []byte(configData), 0644)
	require.NoError(t, err)

	config, err := LoadConfig(configPath)
	require.NoError(t, err)

	assert.Equal(t, "ollama", config.Embedding.Provider)
	assert.Equal(t, "nomic-embed-text", config.Embedding.Model)
	assert.Equal(t, 16, config.Embedding.BatchSize)
	assert.Equal(t, 2.5, config.Embedding.RateLimit)
	assert.Equal(t, 300, config.Processor.ChunkSize)
	require.NotNil(t, config.Processor.ChunkOverlap)
	assert.Equal(t, 30, *config.Processor.ChunkOverlap)
	assert.Equal(t, "site/docs", config.DocumentsDir)
	assert.Equal(t, "site/data/embeddings.json", config.Output)
	require.Len(t, config.Documents, 2)
	assert.Equal(t, "projects", config.Documents[1].Type())
	assert.Equal(t, 2024, config.Documents[1].Metadata["year"])
	assert.Equal(t, "postgres://localhost:5432/test", config.Database.URL)
	assert.Equal(t, "site_chunks", config.Database.TableName)
	assert.Equal(t, 100, config.Database.BatchSize)
	assert.Equal(t, 0.4, config.Search.Threshold)
	assert.Equal(t, 5, config.Search.MaxResults)
	assert.Empty(t, config.Validate())
}

func TestLoadConfig_ZeroOverlapKept(t *testing.T) {
	clearEnv(t)
	configPath := filepath.Join(t.TempDir(), "embeddings.yaml")
	require.NoError(t, os.WriteFile(configPath, []byte("processor:\n  chunk_size: 100\n  chunk_overlap: 0\n"), 0644))

	config, err := LoadConfig(configPath)
	require.NoError(t, err)

	require.NotNil(t, config.Processor.ChunkOverlap)
	assert.Equal(t, 0, *config.Processor.ChunkOverlap)
	assert.Empty(t, config.Validate())
}

func TestApplyDefaults_AfterProviderSwitch(t *testing.T) {
	clearEnv(t)
	configPath := filepath.Join(t.TempDir(), "embeddings.yaml")
	require.NoError(t, os.WriteFile(configPath, []byte("embedding:\n  provider: openai\n"), 0644))

	config, err := LoadConfig(configPath)
	require.NoError(t, err)
	require.Empty(t, config.Embedding.BaseURL)

	config.Embedding.Provider = "ollama"
	ApplyDefaults(config)

	assert.Equal(t, "all-minilm", config.Embedding.Model)
	assert.Equal(t, "http://localhost:11434", config.Embedding.BaseURL)
	assert.Empty(t, config.Validate())
}

func TestLoadConfig_Errors(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorContains(t, err, "error reading config file")

	bad := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("processor: [unclosed"), 0644))
	_, err = LoadConfig(bad)
	assert.ErrorContains(t, err, "error parsing config file")
}

func TestDefaultConfig(t *testing.T) {
	clearEnv(t)

	config := getDefaultConfig()

	assert.Equal(t, "ollama", config.Embedding.Provider)
	assert.Equal(t, "all-minilm", config.Embedding.Model)
	assert.Equal(t, "http://localhost:11434", config.Embedding.BaseURL)
	assert.Equal(t, 500, config.Processor.ChunkSize)
	require.NotNil(t, config.Processor.ChunkOverlap)
	assert.Equal(t, 50, *config.Processor.ChunkOverlap)
	assert.Equal(t, filepath.Join("data", "documents"), config.DocumentsDir)
	assert.Equal(t, filepath.Join("data", "embeddings.json"), config.Output)
	assert.Equal(t, DefaultDocuments(), config.Documents)
	assert.Empty(t, config.Validate())
}

func TestConfigValidation(t *testing.T) {
	clearEnv(t)

	tests := []struct {
		name   string
		mutate func(c *Config)
		fields []string
	}{
		{
			name:   "valid config",
			mutate: func(c *Config) {},
		},
		{
			name:   "unknown provider",
			mutate: func(c *Config) { c.Embedding.Provider = "bert" },
			fields: []string{"embedding.provider"},
		},
		{
			name:   "bad base url",
			mutate: func(c *Config) { c.Embedding.BaseURL = "invalid-url" },
			fields: []string{"embedding.base_url"},
		},
		{
			name: "overlap not smaller than size",
			mutate: func(c *Config) {
				overlap := 50
				c.Processor.ChunkSize = 50
				c.Processor.ChunkOverlap = &overlap
			},
			fields: []string{"processor.chunk_overlap"},
		},
		{
			name:   "output not json",
			mutate: func(c *Config) { c.Output = "data/embeddings.yaml" },
			fields: []string{"output"},
		},
		{
			name: "duplicate document type",
			mutate: func(c *Config) {
				c.Documents = append(c.Documents, c.Documents[0])
			},
			fields: []string{"documents[2].metadata.type"},
		},
		{
			name: "document without file or type",
			mutate: func(c *Config) {
				c.Documents[1].File = ""
				c.Documents[1].Metadata = map[string]any{"title": "x"}
			},
			fields: []string{"documents[1].file", "documents[1].metadata.type"},
		},
		{
			name: "database settings",
			mutate: func(c *Config) {
				c.Database.URL = "invalid-url"
				c.Database.VectorDim = -1
			},
			fields: []string{"database.url", "database.vector_dim"},
		},
		{
			name:   "negative rate limit",
			mutate: func(c *Config) { c.Embedding.RateLimit = -1 },
			fields: []string{"embedding.rate_limit"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config := getDefaultConfig()
			tt.mutate(config)

			errors := config.Validate()
			require.Len(t, errors, len(tt.fields))
			for i, field := range tt.fields {
				assert.Equal(t, field, errors[i].Field)
			}
		})
	}
}

func TestEnvironmentOverrides(t *testing.T) {
	t.Setenv("EMBEDDING_PROVIDER", "")
	t.Setenv("OLLAMA_BASE_URL", "http://env-ollama:11434")
	t.Setenv("DATABASE_URL", "postgres://env-db:5432/test")
	t.Setenv("OPENAI_API_KEY", "sk-test")

	config := &Config{}
	mergeWithEnv(config)

	assert.Equal(t, "http://env-ollama:11434", config.Embedding.BaseURL)
	assert.Equal(t, "postgres://env-db:5432/test", config.Database.URL)
	assert.Equal(t, "sk-test", config.Embedding.APIKey)
}

func TestEnvironmentOverrides_OpenAIIgnoresOllamaURL(t *testing.T) {
	t.Setenv("EMBEDDING_PROVIDER", "openai")
	t.Setenv("OLLAMA_BASE_URL", "http://env-ollama:11434")
	t.Setenv("OPENAI_API_KEY", "")
	t.Setenv("DATABASE_URL", "")

	config := getDefaultConfig()

	assert.Equal(t, "openai", config.Embedding.Provider)
	assert.Empty(t, config.Embedding.BaseURL)
	assert.Empty(t, config.Embedding.Model)
}
