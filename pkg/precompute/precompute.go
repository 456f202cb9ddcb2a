package precompute

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log"
	"os"
	"path/filepath"

	"github.com/rh1/sitetools/internal/models"
	"github.com/rh1/sitetools/internal/types"
	"github.com/rh1/sitetools/pkg/llm"
	"github.com/rh1/sitetools/pkg/loader"
	"github.com/rh1/sitetools/pkg/processor"
)

type PrecomputeConfig struct {
	DocumentsDir string
	Documents    []models.DocumentSpec
	Chunker      types.Chunker
	Loader       types.Loader
	Embed        llm.EmbedFunc

	// OnDocument is called before a document is embedded.
	OnDocument func(doc models.Document, chunks int)
	// OnMissing is called for documents skipped because the file does not exist.
	OnMissing func(spec models.DocumentSpec, path string)
}

type Precomputer struct {
	config PrecomputeConfig
}

func NewWithConfig(config PrecomputeConfig) (*Precomputer, error) {
	if config.Embed == nil {
		return nil, errors.New("an embedding function is required")
	}
	if config.Chunker == nil {
		config.Chunker = processor.New()
	}
	if config.Loader == nil {
		config.Loader = loader.New()
	}
	if config.OnMissing == nil {
		config.OnMissing = func(_ models.DocumentSpec, path string) {
			log.Printf("Warning: File not found: %s", path)
		}
	}
	for i, spec := range config.Documents {
		if spec.File == "" {
			return nil, fmt.Errorf("document %d: file is required", i)
		}
		if spec.Type() == "" {
			return nil, fmt.Errorf("document %s: metadata.type is required", spec.File)
		}
	}

	return &Precomputer{config: config}, nil
}

// Run produces the records for every document that exists, in document
// order and chunk order.
func (p *Precomputer) Run(ctx context.Context) ([]models.ChunkRecord, error) {
	records := []models.ChunkRecord{}

	for _, spec := range p.config.Documents {
		path := filepath.Join(p.config.DocumentsDir, spec.File)

		text, err := p.config.Loader.Load(path)
		if errors.Is(err, fs.ErrNotExist) {
			p.config.OnMissing(spec, path)
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", path, err)
		}

		doc := models.Document{Spec: spec, Path: path, Content: text}
		docRecords, err := p.processDocument(ctx, doc)
		if err != nil {
			return nil, fmt.Errorf("failed to process %s: %w", spec.File, err)
		}
		records = append(records, docRecords...)
	}

	return records, nil
}

func (p *Precomputer) processDocument(ctx context.Context, doc models.Document) ([]models.ChunkRecord, error) {
	spec := doc.Spec
	chunks := p.config.Chunker.Chunk(doc.Content)
	if p.config.OnDocument != nil {
		p.config.OnDocument(doc, len(chunks))
	}
	if len(chunks) == 0 {
		return nil, nil
	}

	vectors, err := p.config.Embed(ctx, chunks)
	if err != nil {
		return nil, err
	}
	if len(vectors) != len(chunks) {
		return nil, fmt.Errorf("got %d embeddings for %d chunks", len(vectors), len(chunks))
	}

	records := make([]models.ChunkRecord, len(chunks))
	for i, chunk := range chunks {
		records[i] = models.ChunkRecord{
			ID:        fmt.Sprintf("%s_%d", spec.Type(), i),
			Text:      chunk,
			Embedding: vectors[i],
			Metadata:  chunkMetadata(spec, i, len(chunks)),
		}
	}
	return records, nil
}

func chunkMetadata(spec models.DocumentSpec, index, total int) map[string]any {
	meta := make(map[string]any, len(spec.Metadata)+3)
	for k, v := range spec.Metadata {
		meta[k] = v
	}
	meta["chunkIndex"] = index
	meta["totalChunks"] = total
	meta["sourceFile"] = spec.File
	return meta
}

// WriteJSON writes all records to path in a single write, creating parent
// directories as needed.
func WriteJSON(path string, records []models.ChunkRecord) error {
	if records == nil {
		records = []models.ChunkRecord{}
	}

	data, err := json.MarshalIndent(models.EmbeddingsFile{Embeddings: records}, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode embeddings: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}

// ReadJSON loads an embeddings file written by WriteJSON.
func ReadJSON(path string) ([]models.ChunkRecord, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var file models.EmbeddingsFile
	if err := json.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return file.Embeddings, nil
}
