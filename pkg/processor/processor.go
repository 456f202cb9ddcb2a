package processor

import (
	"strings"
)

const (
	DefaultChunkSize    = 500
	DefaultChunkOverlap = 50
)

// ProcessorConfig sizes are counted in words.
type ProcessorConfig struct {
	ChunkSize    int
	ChunkOverlap int
}

type Processor struct {
	config ProcessorConfig
}

func NewWithConfig(config ProcessorConfig) Processor {
	if config.ChunkSize <= 0 {
		config.ChunkSize = DefaultChunkSize
	}
	if config.ChunkOverlap < 0 {
		config.ChunkOverlap = 0
	}
	// The window has to advance by at least one word.
	if config.ChunkOverlap >= config.ChunkSize {
		config.ChunkOverlap = config.ChunkSize - 1
	}

	return Processor{
		config: config,
	}
}

func New() Processor {
	return NewWithConfig(ProcessorConfig{
		ChunkSize:    DefaultChunkSize,
		ChunkOverlap: DefaultChunkOverlap,
	})
}

func (p Processor) Config() ProcessorConfig {
	return p.config
}

// Chunk splits text into overlapping windows of ChunkSize words. Window i
// starts at word i*(ChunkSize-ChunkOverlap); the last window may be short.
func (p Processor) Chunk(text string) []string {
	words := strings.Fields(text)
	chunks := []string{}

	step := p.config.ChunkSize - p.config.ChunkOverlap
	for start := 0; start < len(words); start += step {
		end := start + p.config.ChunkSize
		if end > len(words) {
			end = len(words)
		}

		chunk := strings.Join(words[start:end], " ")
		if strings.TrimSpace(chunk) != "" {
			chunks = append(chunks, chunk)
		}
	}

	return chunks
}
