package llm

import (
	"context"
	"fmt"
	"math"
	"strings"

	"github.com/tmc/langchaingo/embeddings"
	"github.com/tmc/langchaingo/llms/ollama"
	"github.com/tmc/langchaingo/llms/openai"
	"golang.org/x/time/rate"

	"github.com/rh1/sitetools/internal/types"
)

const (
	ProviderOllama = "ollama"
	ProviderOpenAI = "openai"
	ProviderHash   = "hash"
)

// EmbedFunc turns an ordered batch of texts into one vector per text.
type EmbedFunc func(ctx context.Context, texts []string) ([][]float32, error)

// EmbedderConfig represents the configuration for an embedding provider.
type EmbedderConfig struct {
	Provider  string
	Model     string
	BaseURL   string // Ollama server URL or OpenAI-compatible endpoint
	APIKey    string
	BatchSize int
	Dimension int     // hash provider only
	RateLimit float64 // requests per second, 0 disables limiting
}

// Embedder produces unit-length embeddings through a langchaingo client.
type Embedder struct {
	Config EmbedderConfig
	Embed  embeddings.Embedder
}

var _ types.Embedder = (*Embedder)(nil)

func NewEmbedderWithConfig(config EmbedderConfig) (*Embedder, error) {
	if config.Provider == "" {
		config.Provider = ProviderOllama
	}
	config.Provider = strings.ToLower(config.Provider)

	if config.BatchSize <= 0 {
		config.BatchSize = 64
	}

	client, err := newClient(&config)
	if err != nil {
		return nil, err
	}

	if config.RateLimit > 0 {
		client = &rateLimitedClient{
			client:  client,
			limiter: rate.NewLimiter(rate.Limit(config.RateLimit), 1),
		}
	}

	emb, err := embeddings.NewEmbedder(client,
		embeddings.WithBatchSize(config.BatchSize),
		embeddings.WithStripNewLines(false),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize embedder: %w", err)
	}

	return &Embedder{
		Config: config,
		Embed:  emb,
	}, nil
}

func newClient(config *EmbedderConfig) (embeddings.EmbedderClient, error) {
	switch config.Provider {
	case ProviderOllama:
		if config.Model == "" {
			config.Model = "all-minilm" // all-MiniLM-L6-v2
		}
		if config.BaseURL == "" {
			config.BaseURL = "http://localhost:11434"
		}
		llm, err := ollama.New(ollama.WithModel(config.Model), ollama.WithServerURL(config.BaseURL))
		if err != nil {
			return nil, fmt.Errorf("failed to initialize ollama client: %w", err)
		}
		return llm, nil

	case ProviderOpenAI:
		if config.Model == "" {
			config.Model = "text-embedding-3-small"
		}
		opts := []openai.Option{openai.WithEmbeddingModel(config.Model)}
		if config.APIKey != "" {
			opts = append(opts, openai.WithToken(config.APIKey))
		}
		if config.BaseURL != "" {
			opts = append(opts, openai.WithBaseURL(config.BaseURL))
		}
		llm, err := openai.New(opts...)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize openai client: %w", err)
		}
		return llm, nil

	case ProviderHash:
		if config.Model == "" {
			config.Model = "md5-hash"
		}
		return NewHashEmbedder(config.Dimension), nil
	}

	return nil, fmt.Errorf("unknown embedding provider %q", config.Provider)
}

// EmbedDocuments embeds texts in order and normalizes every vector.
func (e *Embedder) EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return [][]float32{}, nil
	}

	vectors, err := e.Embed.EmbedDocuments(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("failed to create embeddings: %w", err)
	}
	if len(vectors) != len(texts) {
		return nil, fmt.Errorf("embedding provider returned %d vectors for %d texts", len(vectors), len(texts))
	}

	for _, v := range vectors {
		Normalize(v)
	}
	return vectors, nil
}

// EmbedQuery embeds a single search query.
func (e *Embedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	vectors, err := e.EmbedDocuments(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

func (e *Embedder) Provider() string {
	return e.Config.Provider
}

// Func exposes the embedder as an injectable capability.
func (e *Embedder) Func() EmbedFunc {
	return e.EmbedDocuments
}

// Normalize scales v to unit length in place. Zero vectors are left alone.
func Normalize(v []float32) []float32 {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	if sum == 0 {
		return v
	}

	norm := math.Sqrt(sum)
	for i := range v {
		v[i] = float32(float64(v[i]) / norm)
	}
	return v
}

type rateLimitedClient struct {
	client  embeddings.EmbedderClient
	limiter *rate.Limiter
}

func (c *rateLimitedClient) CreateEmbedding(ctx context.Context, texts []string) ([][]float32, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	return c.client.CreateEmbedding(ctx, texts)
}
