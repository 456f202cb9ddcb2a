package store

import (
	"context"
	"fmt"
	"regexp"
	"unicode/utf8"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"

	"github.com/rh1/sitetools/internal/models"
	"github.com/rh1/sitetools/internal/types"
)

type VectorStoreConfig struct {
	ConnString  string
	TableName   string
	VectorDim   int
	BatchSize   int
	SearchLimit int
}

// VectorStore keeps chunk records in PostgreSQL with pgvector.
type VectorStore struct {
	config VectorStoreConfig
	pool   *pgxpool.Pool
}

var _ types.RecordStore = (*VectorStore)(nil)

var tableNamePattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

func (c *VectorStoreConfig) applyDefaults() error {
	if c.TableName == "" {
		c.TableName = "embeddings"
	}
	if !tableNamePattern.MatchString(c.TableName) {
		return fmt.Errorf("invalid table name %q", c.TableName)
	}
	if c.VectorDim == 0 {
		c.VectorDim = 384 // all-MiniLM-L6-v2
	}
	if c.BatchSize == 0 {
		c.BatchSize = 100
	}
	if c.SearchLimit == 0 {
		c.SearchLimit = 3
	}
	return nil
}

func NewWithConfig(ctx context.Context, config VectorStoreConfig) (*VectorStore, error) {
	if err := config.applyDefaults(); err != nil {
		return nil, err
	}

	pool, err := pgxpool.New(ctx, config.ConnString)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	vs := &VectorStore{
		config: config,
		pool:   pool,
	}

	if err := vs.initialize(ctx); err != nil {
		pool.Close()
		return nil, err
	}

	return vs, nil
}

func (vs *VectorStore) initialize(ctx context.Context) error {
	if _, err := vs.pool.Exec(ctx, "CREATE EXTENSION IF NOT EXISTS vector"); err != nil {
		return fmt.Errorf("failed to create vector extension: %w", err)
	}

	if _, err := vs.pool.Exec(ctx, createTableSQL(vs.config)); err != nil {
		return fmt.Errorf("failed to create table: %w", err)
	}

	createIndex := fmt.Sprintf(`
		CREATE INDEX IF NOT EXISTS %s_embedding_idx
		ON %s
		USING hnsw (embedding vector_cosine_ops)`,
		vs.config.TableName, vs.config.TableName)

	if _, err := vs.pool.Exec(ctx, createIndex); err != nil {
		return fmt.Errorf("failed to create index: %w", err)
	}

	return nil
}

func createTableSQL(config VectorStoreConfig) string {
	return fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			id TEXT PRIMARY KEY,
			doc_type TEXT NOT NULL,
			title TEXT,
			content TEXT,
			source_file TEXT,
			chunk_index INTEGER,
			total_chunks INTEGER,
			embedding vector(%d),
			metadata JSONB
		)`, config.TableName, config.VectorDim)
}

func upsertSQL(table string) string {
	return fmt.Sprintf(`
		INSERT INTO %s (id, doc_type, title, content, source_file, chunk_index, total_chunks, embedding, metadata)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (id) DO UPDATE SET
			doc_type = EXCLUDED.doc_type,
			title = EXCLUDED.title,
			content = EXCLUDED.content,
			source_file = EXCLUDED.source_file,
			chunk_index = EXCLUDED.chunk_index,
			total_chunks = EXCLUDED.total_chunks,
			embedding = EXCLUDED.embedding,
			metadata = EXCLUDED.metadata`,
		table)
}

// Store upserts records in batches, one transaction per batch.
func (vs *VectorStore) Store(ctx context.Context, records []models.ChunkRecord) error {
	for start := 0; start < len(records); start += vs.config.BatchSize {
		end := start + vs.config.BatchSize
		if end > len(records) {
			end = len(records)
		}
		if err := vs.storeBatch(ctx, records[start:end]); err != nil {
			return err
		}
	}
	return nil
}

func (vs *VectorStore) storeBatch(ctx context.Context, records []models.ChunkRecord) error {
	tx, err := vs.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	stmt := upsertSQL(vs.config.TableName)
	batch := &pgx.Batch{}
	for _, rec := range records {
		if len(rec.Embedding) != vs.config.VectorDim {
			return fmt.Errorf("record %s has %d dimensions, table expects %d", rec.ID, len(rec.Embedding), vs.config.VectorDim)
		}
		batch.Queue(stmt,
			rec.ID,
			rec.Type(),
			sanitizeUTF8(rec.Title()),
			sanitizeUTF8(rec.Text),
			rec.SourceFile(),
			rec.ChunkIndex(),
			rec.TotalChunks(),
			pgvector.NewVector(rec.Embedding),
			rec.Metadata,
		)
	}

	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("failed to insert records: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// Query returns the records nearest to queryEmbedding by cosine distance.
func (vs *VectorStore) Query(ctx context.Context, queryEmbedding []float32, limit int) ([]models.ChunkRecord, error) {
	if limit <= 0 {
		limit = vs.config.SearchLimit
	}

	query := fmt.Sprintf(`
		SELECT id, content, embedding, metadata
		FROM %s
		ORDER BY embedding <=> $1
		LIMIT $2`,
		vs.config.TableName)

	rows, err := vs.pool.Query(ctx, query, pgvector.NewVector(queryEmbedding), limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query records: %w", err)
	}
	defer rows.Close()

	var records []models.ChunkRecord
	for rows.Next() {
		var (
			rec       models.ChunkRecord
			embedding pgvector.Vector
		)
		if err := rows.Scan(&rec.ID, &rec.Text, &embedding, &rec.Metadata); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		rec.Embedding = embedding.Slice()
		records = append(records, rec)
	}

	return records, rows.Err()
}

func (vs *VectorStore) Close() {
	if vs.pool != nil {
		vs.pool.Close()
	}
}

func sanitizeUTF8(s string) string {
	if utf8.ValidString(s) {
		return s
	}

	v := make([]rune, 0, len(s))
	for i, r := range s {
		if r == utf8.RuneError {
			if _, size := utf8.DecodeRuneInString(s[i:]); size == 1 {
				continue
			}
		}
		v = append(v, r)
	}
	return string(v)
}
