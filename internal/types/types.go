package types

import (
	"context"

	"github.com/rh1/sitetools/internal/models"
)

// Core interfaces
type RecordStore interface {
	Store(ctx context.Context, records []models.ChunkRecord) error
	Query(ctx context.Context, embedding []float32, limit int) ([]models.ChunkRecord, error)
	Close()
}

type Embedder interface {
	EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error)
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
	Provider() string
}

type Chunker interface {
	Chunk(text string) []string
}

type Loader interface {
	Load(path string) (string, error)
}

// Process is a child process that can be signalled as a group.
type Process interface {
	Pid() int
	Terminate() error
	Kill() error
	Wait() error
}
