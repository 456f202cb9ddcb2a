package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/rh1/sitetools/internal/models"
)

// Config drives the embedding precomputer.
type Config struct {
	Embedding struct {
		Provider  string  `yaml:"provider"`
		Model     string  `yaml:"model"`
		BaseURL   string  `yaml:"base_url"`
		APIKey    string  `yaml:"api_key"`
		BatchSize int     `yaml:"batch_size"`
		Dimension int     `yaml:"dimension"`
		RateLimit float64 `yaml:"rate_limit"`
	} `yaml:"embedding"`

	Processor struct {
		ChunkSize int `yaml:"chunk_size"`
		// ChunkOverlap is a pointer so an explicit 0 is kept.
		ChunkOverlap *int `yaml:"chunk_overlap"`
	} `yaml:"processor"`

	DocumentsDir string                `yaml:"documents_dir"`
	Output       string                `yaml:"output"`
	Documents    []models.DocumentSpec `yaml:"documents"`

	Database struct {
		URL       string `yaml:"url"`
		TableName string `yaml:"table_name"`
		VectorDim int    `yaml:"vector_dim"`
		BatchSize int    `yaml:"batch_size"`
	} `yaml:"database"`

	Search struct {
		Threshold  float64 `yaml:"threshold"`
		MaxResults int     `yaml:"max_results"`
	} `yaml:"search"`
}

// DefaultDocuments is the corpus processed when the config names none.
func DefaultDocuments() []models.DocumentSpec {
	return []models.DocumentSpec{
		{
			File: "cv.txt",
			Metadata: map[string]any{
				"type":  "cv",
				"title": "Ryan Hill - CV",
			},
		},
		{
			File: "about.txt",
			Metadata: map[string]any{
				"type":  "about",
				"title": "About Ryan",
			},
		},
	}
}

func LoadConfig(path string) (*Config, error) {
	// If no path provided, try default locations
	if path == "" {
		locations := []string{
			"embeddings.yaml",
			"embeddings.yml",
			filepath.Join("data", "embeddings.yaml"),
		}

		for _, loc := range locations {
			if _, err := os.Stat(loc); err == nil {
				path = loc
				break
			}
		}
	}

	if path == "" {
		return getDefaultConfig(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("error parsing config file: %w", err)
	}

	mergeWithEnv(&config)
	ApplyDefaults(&config)

	return &config, nil
}

func getDefaultConfig() *Config {
	config := &Config{}
	mergeWithEnv(config)
	ApplyDefaults(config)
	return config
}

// ApplyDefaults fills every unset field. It is safe to call again after
// overriding fields, e.g. when a command line flag switches the provider.
func ApplyDefaults(config *Config) {
	if config.Embedding.Provider == "" {
		config.Embedding.Provider = "ollama"
	}
	if config.Embedding.Model == "" && config.Embedding.Provider == "ollama" {
		config.Embedding.Model = "all-minilm"
	}
	if config.Embedding.BaseURL == "" && config.Embedding.Provider == "ollama" {
		config.Embedding.BaseURL = "http://localhost:11434"
	}
	if config.Embedding.BatchSize == 0 {
		config.Embedding.BatchSize = 64
	}

	if config.Processor.ChunkSize == 0 {
		config.Processor.ChunkSize = 500
	}
	if config.Processor.ChunkOverlap == nil {
		overlap := 50
		config.Processor.ChunkOverlap = &overlap
	}

	if config.DocumentsDir == "" {
		config.DocumentsDir = filepath.Join("data", "documents")
	}
	if config.Output == "" {
		config.Output = filepath.Join("data", "embeddings.json")
	}
	if len(config.Documents) == 0 {
		config.Documents = DefaultDocuments()
	}

	if config.Database.TableName == "" {
		config.Database.TableName = "embeddings"
	}
	if config.Database.VectorDim == 0 {
		config.Database.VectorDim = 384
	}
	if config.Database.BatchSize == 0 {
		config.Database.BatchSize = 100
	}

	if config.Search.Threshold == 0 {
		config.Search.Threshold = 0.5
	}
	if config.Search.MaxResults == 0 {
		config.Search.MaxResults = 3
	}
}

func mergeWithEnv(config *Config) {
	if provider := os.Getenv("EMBEDDING_PROVIDER"); provider != "" {
		config.Embedding.Provider = provider
	}
	if baseURL := os.Getenv("OLLAMA_BASE_URL"); baseURL != "" && (config.Embedding.Provider == "" || config.Embedding.Provider == "ollama") {
		config.Embedding.BaseURL = baseURL
	}
	if apiKey := os.Getenv("OPENAI_API_KEY"); apiKey != "" && config.Embedding.APIKey == "" {
		config.Embedding.APIKey = apiKey
	}
	if dbURL := os.Getenv("DATABASE_URL"); dbURL != "" {
		config.Database.URL = dbURL
	}
}
