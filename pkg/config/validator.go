package config

import (
	"fmt"
	"net/url"
	"strings"
)

type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func (c *Config) Validate() []ValidationError {
	var errors []ValidationError

	// Validate Embedding config
	switch c.Embedding.Provider {
	case "ollama", "openai", "hash":
	default:
		errors = append(errors, ValidationError{
			Field:   "embedding.provider",
			Message: fmt.Sprintf("unknown provider %q", c.Embedding.Provider),
		})
	}

	if c.Embedding.Provider == "ollama" && c.Embedding.BaseURL == "" {
		errors = append(errors, ValidationError{
			Field:   "embedding.base_url",
			Message: "Ollama base URL is required",
		})
	}

	if c.Embedding.BaseURL != "" {
		if u, err := url.Parse(c.Embedding.BaseURL); err != nil || u.Scheme == "" || u.Host == "" {
			errors = append(errors, ValidationError{
				Field:   "embedding.base_url",
				Message: "invalid base URL",
			})
		}
	}

	if c.Embedding.BatchSize < 1 {
		errors = append(errors, ValidationError{
			Field:   "embedding.batch_size",
			Message: "batch_size must be positive",
		})
	}

	if c.Embedding.RateLimit < 0 {
		errors = append(errors, ValidationError{
			Field:   "embedding.rate_limit",
			Message: "rate_limit must not be negative",
		})
	}

	// Validate Processor config
	if c.Processor.ChunkSize < 1 {
		errors = append(errors, ValidationError{
			Field:   "processor.chunk_size",
			Message: "chunk_size must be positive",
		})
	}

	if o := c.Processor.ChunkOverlap; o != nil && (*o < 0 || *o >= c.Processor.ChunkSize) {
		errors = append(errors, ValidationError{
			Field:   "processor.chunk_overlap",
			Message: "chunk_overlap must be non-negative and less than chunk_size",
		})
	}

	// Validate documents
	if !strings.HasSuffix(c.Output, ".json") {
		errors = append(errors, ValidationError{
			Field:   "output",
			Message: "output must be a .json file",
		})
	}

	seen := map[string]bool{}
	for i, doc := range c.Documents {
		field := fmt.Sprintf("documents[%d]", i)
		if doc.File == "" {
			errors = append(errors, ValidationError{
				Field:   field + ".file",
				Message: "file is required",
			})
		}
		docType := doc.Type()
		if docType == "" {
			errors = append(errors, ValidationError{
				Field:   field + ".metadata.type",
				Message: "type is required",
			})
		} else if seen[docType] {
			errors = append(errors, ValidationError{
				Field:   field + ".metadata.type",
				Message: fmt.Sprintf("duplicate type %q would produce colliding ids", docType),
			})
		}
		seen[docType] = true
	}

	// Validate Database config
	if c.Database.URL != "" {
		if u, err := url.Parse(c.Database.URL); err != nil || u.Scheme == "" {
			errors = append(errors, ValidationError{
				Field:   "database.url",
				Message: "invalid database URL",
			})
		}
	}

	if c.Database.VectorDim < 1 {
		errors = append(errors, ValidationError{
			Field:   "database.vector_dim",
			Message: "vector_dim must be positive",
		})
	}

	if c.Database.BatchSize < 1 {
		errors = append(errors, ValidationError{
			Field:   "database.batch_size",
			Message: "batch_size must be positive",
		})
	}

	if c.Search.Threshold < -1 || c.Search.Threshold > 1 {
		errors = append(errors, ValidationError{
			Field:   "search.threshold",
			Message: "threshold must be between -1 and 1",
		})
	}

	return errors
}
