package models

// DocumentSpec names a source file and the metadata attached to every
// chunk produced from it. Metadata must carry a "type" key; it is used to
// build record ids.
type DocumentSpec struct {
	File     string         `yaml:"file" json:"file"`
	Metadata map[string]any `yaml:"metadata" json:"metadata"`
}

func (d DocumentSpec) Type() string {
	if t, ok := d.Metadata["type"].(string); ok {
		return t
	}
	return ""
}

func (d DocumentSpec) Title() string {
	if t, ok := d.Metadata["title"].(string); ok {
		return t
	}
	return ""
}

// Document is a loaded source file ready to be chunked.
type Document struct {
	Spec    DocumentSpec
	Path    string
	Content string
}

// ChunkRecord is one embedded chunk as written to the embeddings file.
type ChunkRecord struct {
	ID        string         `json:"id"`
	Text      string         `json:"text"`
	Embedding []float32      `json:"embedding"`
	Metadata  map[string]any `json:"metadata"`
}

func (r ChunkRecord) ChunkIndex() int {
	return metaInt(r.Metadata, "chunkIndex")
}

func (r ChunkRecord) TotalChunks() int {
	return metaInt(r.Metadata, "totalChunks")
}

func (r ChunkRecord) Type() string {
	t, _ := r.Metadata["type"].(string)
	return t
}

func (r ChunkRecord) Title() string {
	t, _ := r.Metadata["title"].(string)
	return t
}

func (r ChunkRecord) SourceFile() string {
	s, _ := r.Metadata["sourceFile"].(string)
	return s
}

// metaInt tolerates both in-memory ints and float64 values decoded from JSON.
func metaInt(m map[string]any, key string) int {
	switch v := m[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	}
	return -1
}

// EmbeddingsFile is the on-disk envelope of the embeddings output.
type EmbeddingsFile struct {
	Embeddings []ChunkRecord `json:"embeddings"`
}
