package store

import (
	"context"
	"database/sql"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	_ "modernc.org/sqlite"
)

// State keys for the metadata key-value table. The index dimension and model
// are pinned at first embed so later opens can detect incompatible embedders.
const (
	StateKeyIndexDimension = "index_embedding_dimension"
	StateKeyIndexModel     = "index_embedding_model"
)

// Metadata persists knowledge sources, documents, chunks, and embeddings in
// SQLite.
type Metadata struct {
	mu     sync.RWMutex
	db     *sql.DB
	closed bool
}

// NewMetadata opens (or creates) the metadata database. An empty path opens
// an in-memory database for testing.
func NewMetadata(path string, maxConns int) (*Metadata, error) {
	dsn := ":memory:"
	if path != "" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create directory: %w", err)
		}
		dsn = path
	}
	if maxConns <= 0 {
		maxConns = 4
	}
	if dsn == ":memory:" {
		// A pooled in-memory database would open separate empty databases.
		maxConns = 1
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open metadata database: %w", err)
	}

	db.SetMaxOpenConns(maxConns)
	db.SetMaxIdleConns(maxConns)
	db.SetConnMaxLifetime(0)

	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA foreign_keys = ON",
		"PRAGMA cache_size = -32768",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to set pragma: %w", err)
		}
	}

	m := &Metadata{db: db}
	if err := m.initSchema(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return m, nil
}

func (m *Metadata) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS schema_version (
		version INTEGER PRIMARY KEY
	);

	CREATE TABLE IF NOT EXISTS sources (
		id          TEXT PRIMARY KEY,
		name        TEXT NOT NULL UNIQUE,
		description TEXT NOT NULL DEFAULT '',
		source_type TEXT NOT NULL DEFAULT 'document',
		active      INTEGER NOT NULL DEFAULT 1,
		created_at  INTEGER NOT NULL,
		updated_at  INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS documents (
		id         TEXT PRIMARY KEY,
		source_id  TEXT NOT NULL REFERENCES sources(id) ON DELETE CASCADE,
		title      TEXT NOT NULL,
		content    TEXT NOT NULL,
		metadata   TEXT NOT NULL DEFAULT '{}',
		created_at INTEGER NOT NULL,
		updated_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_documents_source ON documents(source_id);

	CREATE TABLE IF NOT EXISTS chunks (
		id          TEXT PRIMARY KEY,
		document_id TEXT NOT NULL REFERENCES documents(id) ON DELETE CASCADE,
		idx         INTEGER NOT NULL,
		content     TEXT NOT NULL,
		token_count INTEGER NOT NULL DEFAULT 0,
		metadata    TEXT NOT NULL DEFAULT '{}',
		embedded    INTEGER NOT NULL DEFAULT 0,
		created_at  INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_chunks_document ON chunks(document_id, idx);

	CREATE TABLE IF NOT EXISTS embeddings (
		chunk_id   TEXT PRIMARY KEY REFERENCES chunks(id) ON DELETE CASCADE,
		model      TEXT NOT NULL,
		dims       INTEGER NOT NULL,
		vector     BLOB NOT NULL,
		created_at INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS state (
		key   TEXT PRIMARY KEY,
		value TEXT NOT NULL
	);

	INSERT OR IGNORE INTO schema_version (version) VALUES (1);
	`
	_, err := m.db.Exec(schema)
	return err
}

// --- Sources ---

// SaveSource inserts or updates a knowledge source.
func (m *Metadata) SaveSource(ctx context.Context, src *KnowledgeSource) error {
	now := time.Now()
	if src.CreatedAt.IsZero() {
		src.CreatedAt = now
	}
	src.UpdatedAt = now

	_, err := m.db.ExecContext(ctx, `
		INSERT INTO sources (id, name, description, source_type, active, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			description = excluded.description,
			source_type = excluded.source_type,
			active = excluded.active,
			updated_at = excluded.updated_at`,
		src.ID, src.Name, src.Description, string(src.SourceType),
		boolToInt(src.Active), src.CreatedAt.Unix(), src.UpdatedAt.Unix())
	if err != nil {
		return fmt.Errorf("failed to save source: %w", err)
	}
	return nil
}

// GetSource returns a source by ID.
func (m *Metadata) GetSource(ctx context.Context, id string) (*KnowledgeSource, error) {
	return m.querySource(ctx, `WHERE id = ?`, id)
}

// GetSourceByName returns a source by its unique name.
func (m *Metadata) GetSourceByName(ctx context.Context, name string) (*KnowledgeSource, error) {
	return m.querySource(ctx, `WHERE name = ?`, name)
}

func (m *Metadata) querySource(ctx context.Context, where string, arg any) (*KnowledgeSource, error) {
	row := m.db.QueryRowContext(ctx, `
		SELECT id, name, description, source_type, active, created_at, updated_at
		FROM sources `+where, arg)

	var src KnowledgeSource
	var active int
	var createdAt, updatedAt int64
	err := row.Scan(&src.ID, &src.Name, &src.Description, (*string)(&src.SourceType),
		&active, &createdAt, &updatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get source: %w", err)
	}
	src.Active = active != 0
	src.CreatedAt = time.Unix(createdAt, 0)
	src.UpdatedAt = time.Unix(updatedAt, 0)
	return &src, nil
}

// ListSources returns all sources ordered by name.
func (m *Metadata) ListSources(ctx context.Context) ([]*KnowledgeSource, error) {
	rows, err := m.db.QueryContext(ctx, `
		SELECT id, name, description, source_type, active, created_at, updated_at
		FROM sources ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("failed to list sources: %w", err)
	}
	defer rows.Close()

	var sources []*KnowledgeSource
	for rows.Next() {
		var src KnowledgeSource
		var active int
		var createdAt, updatedAt int64
		if err := rows.Scan(&src.ID, &src.Name, &src.Description, (*string)(&src.SourceType),
			&active, &createdAt, &updatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan source: %w", err)
		}
		src.Active = active != 0
		src.CreatedAt = time.Unix(createdAt, 0)
		src.UpdatedAt = time.Unix(updatedAt, 0)
		sources = append(sources, &src)
	}
	return sources, rows.Err()
}

// SetSourceActive toggles a source's active flag.
func (m *Metadata) SetSourceActive(ctx context.Context, id string, active bool) error {
	res, err := m.db.ExecContext(ctx,
		`UPDATE sources SET active = ?, updated_at = ? WHERE id = ?`,
		boolToInt(active), time.Now().Unix(), id)
	if err != nil {
		return fmt.Errorf("failed to update source: %w", err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return fmt.Errorf("source %s not found", id)
	}
	return nil
}

// DeleteSource removes a source; documents, chunks, and embeddings cascade.
func (m *Metadata) DeleteSource(ctx context.Context, id string) error {
	if _, err := m.db.ExecContext(ctx, `DELETE FROM sources WHERE id = ?`, id); err != nil {
		return fmt.Errorf("failed to delete source: %w", err)
	}
	return nil
}

// --- Documents ---

// SaveDocument inserts or updates a document.
func (m *Metadata) SaveDocument(ctx context.Context, doc *Document) error {
	now := time.Now()
	if doc.CreatedAt.IsZero() {
		doc.CreatedAt = now
	}
	doc.UpdatedAt = now

	meta, err := encodeMetadata(doc.Metadata)
	if err != nil {
		return err
	}

	_, err = m.db.ExecContext(ctx, `
		INSERT INTO documents (id, source_id, title, content, metadata, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			source_id = excluded.source_id,
			title = excluded.title,
			content = excluded.content,
			metadata = excluded.metadata,
			updated_at = excluded.updated_at`,
		doc.ID, doc.SourceID, doc.Title, doc.Content, meta,
		doc.CreatedAt.Unix(), doc.UpdatedAt.Unix())
	if err != nil {
		return fmt.Errorf("failed to save document: %w", err)
	}
	return nil
}

// GetDocument returns a document by ID, or nil when not found.
func (m *Metadata) GetDocument(ctx context.Context, id string) (*Document, error) {
	row := m.db.QueryRowContext(ctx, `
		SELECT id, source_id, title, content, metadata, created_at, updated_at
		FROM documents WHERE id = ?`, id)

	doc, err := scanDocument(row.Scan)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get document: %w", err)
	}
	return doc, nil
}

// ListDocuments returns documents, optionally filtered by source.
func (m *Metadata) ListDocuments(ctx context.Context, sourceID string) ([]*Document, error) {
	query := `
		SELECT id, source_id, title, content, metadata, created_at, updated_at
		FROM documents`
	var args []any
	if sourceID != "" {
		query += ` WHERE source_id = ?`
		args = append(args, sourceID)
	}
	query += ` ORDER BY created_at DESC`

	rows, err := m.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list documents: %w", err)
	}
	defer rows.Close()

	var docs []*Document
	for rows.Next() {
		doc, err := scanDocument(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("failed to scan document: %w", err)
		}
		docs = append(docs, doc)
	}
	return docs, rows.Err()
}

func scanDocument(scan func(dest ...any) error) (*Document, error) {
	var doc Document
	var meta string
	var createdAt, updatedAt int64
	if err := scan(&doc.ID, &doc.SourceID, &doc.Title, &doc.Content, &meta,
		&createdAt, &updatedAt); err != nil {
		return nil, err
	}
	doc.Metadata = decodeMetadata(meta)
	doc.CreatedAt = time.Unix(createdAt, 0)
	doc.UpdatedAt = time.Unix(updatedAt, 0)
	return &doc, nil
}

// DeleteDocument removes a document; chunks and embeddings cascade.
func (m *Metadata) DeleteDocument(ctx context.Context, id string) error {
	if _, err := m.db.ExecContext(ctx, `DELETE FROM documents WHERE id = ?`, id); err != nil {
		return fmt.Errorf("failed to delete document: %w", err)
	}
	return nil
}

// ChunkIDsByDocument returns the chunk IDs of a document. Callers use this
// to purge keyword and vector indexes before deleting the document.
func (m *Metadata) ChunkIDsByDocument(ctx context.Context, documentID string) ([]string, error) {
	rows, err := m.db.QueryContext(ctx,
		`SELECT id FROM chunks WHERE document_id = ? ORDER BY idx`, documentID)
	if err != nil {
		return nil, fmt.Errorf("failed to query chunk ids: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// --- Chunks ---

// SaveChunks persists chunks in a single transaction.
func (m *Metadata) SaveChunks(ctx context.Context, chunks []*Chunk) error {
	if len(chunks) == 0 {
		return nil
	}

	tx, err := m.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO chunks (id, document_id, idx, content, token_count, metadata, embedded, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			content = excluded.content,
			token_count = excluded.token_count,
			metadata = excluded.metadata`)
	if err != nil {
		return fmt.Errorf("failed to prepare chunk statement: %w", err)
	}
	defer stmt.Close()

	now := time.Now()
	for _, c := range chunks {
		if c.CreatedAt.IsZero() {
			c.CreatedAt = now
		}
		meta, err := encodeMetadata(c.Metadata)
		if err != nil {
			return err
		}
		if _, err := stmt.ExecContext(ctx, c.ID, c.DocumentID, c.Index, c.Content,
			c.TokenCount, meta, boolToInt(c.Embedded), c.CreatedAt.Unix()); err != nil {
			return fmt.Errorf("failed to save chunk %s: %w", c.ID, err)
		}
	}

	return tx.Commit()
}

// GetChunk returns a chunk by ID, or nil when not found.
func (m *Metadata) GetChunk(ctx context.Context, id string) (*Chunk, error) {
	chunks, err := m.GetChunks(ctx, []string{id})
	if err != nil {
		return nil, err
	}
	if len(chunks) == 0 {
		return nil, nil
	}
	return chunks[0], nil
}

// GetChunks returns chunks by ID. Missing IDs are silently skipped.
func (m *Metadata) GetChunks(ctx context.Context, ids []string) ([]*Chunk, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	placeholders := make([]string, len(ids))
	args := make([]any, len(ids))
	for i, id := range ids {
		placeholders[i] = "?"
		args[i] = id
	}

	rows, err := m.db.QueryContext(ctx, fmt.Sprintf(`
		SELECT id, document_id, idx, content, token_count, metadata, embedded, created_at
		FROM chunks WHERE id IN (%s)`, strings.Join(placeholders, ",")), args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query chunks: %w", err)
	}
	defer rows.Close()

	return scanChunks(rows)
}

// ChunksByDocument returns a document's chunks ordered by position.
func (m *Metadata) ChunksByDocument(ctx context.Context, documentID string) ([]*Chunk, error) {
	rows, err := m.db.QueryContext(ctx, `
		SELECT id, document_id, idx, content, token_count, metadata, embedded, created_at
		FROM chunks WHERE document_id = ? ORDER BY idx`, documentID)
	if err != nil {
		return nil, fmt.Errorf("failed to query chunks: %w", err)
	}
	defer rows.Close()

	return scanChunks(rows)
}

func scanChunks(rows *sql.Rows) ([]*Chunk, error) {
	var chunks []*Chunk
	for rows.Next() {
		var c Chunk
		var meta string
		var embedded int
		var createdAt int64
		if err := rows.Scan(&c.ID, &c.DocumentID, &c.Index, &c.Content,
			&c.TokenCount, &meta, &embedded, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan chunk: %w", err)
		}
		c.Metadata = decodeMetadata(meta)
		c.Embedded = embedded != 0
		c.CreatedAt = time.Unix(createdAt, 0)
		chunks = append(chunks, &c)
	}
	return chunks, rows.Err()
}

// --- Embeddings ---

// SetChunkEmbedding stores a chunk's embedding and marks it embedded.
// Embed-once is enforced by the Store facade, not here.
func (m *Metadata) SetChunkEmbedding(ctx context.Context, chunkID string, vector []float32, model string) error {
	tx, err := m.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.ExecContext(ctx, `
		INSERT OR REPLACE INTO embeddings (chunk_id, model, dims, vector, created_at)
		VALUES (?, ?, ?, ?, ?)`,
		chunkID, model, len(vector), encodeVector(vector), time.Now().Unix())
	if err != nil {
		return fmt.Errorf("failed to save embedding: %w", err)
	}

	res, err := tx.ExecContext(ctx, `UPDATE chunks SET embedded = 1 WHERE id = ?`, chunkID)
	if err != nil {
		return fmt.Errorf("failed to mark chunk embedded: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("chunk %s not found", chunkID)
	}

	return tx.Commit()
}

// GetEmbedding returns a chunk's embedding, or nil when the chunk has none.
func (m *Metadata) GetEmbedding(ctx context.Context, chunkID string) ([]float32, error) {
	var blob []byte
	err := m.db.QueryRowContext(ctx,
		`SELECT vector FROM embeddings WHERE chunk_id = ?`, chunkID).Scan(&blob)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get embedding: %w", err)
	}
	return decodeVector(blob), nil
}

// AllEmbeddings returns every stored embedding. Used to rebuild the vector
// index at startup.
func (m *Metadata) AllEmbeddings(ctx context.Context) (map[string][]float32, error) {
	rows, err := m.db.QueryContext(ctx, `SELECT chunk_id, vector FROM embeddings`)
	if err != nil {
		return nil, fmt.Errorf("failed to query embeddings: %w", err)
	}
	defer rows.Close()

	embeddings := make(map[string][]float32)
	for rows.Next() {
		var id string
		var blob []byte
		if err := rows.Scan(&id, &blob); err != nil {
			return nil, err
		}
		embeddings[id] = decodeVector(blob)
	}
	return embeddings, rows.Err()
}

// EmbeddingStats returns counts of embedded and unembedded chunks.
func (m *Metadata) EmbeddingStats(ctx context.Context) (embedded, unembedded int, err error) {
	err = m.db.QueryRowContext(ctx, `
		SELECT
			COALESCE(SUM(CASE WHEN embedded = 1 THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN embedded = 0 THEN 1 ELSE 0 END), 0)
		FROM chunks`).Scan(&embedded, &unembedded)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to query embedding stats: %w", err)
	}
	return embedded, unembedded, nil
}

// --- Hits ---

// HitsByChunkIDs hydrates search hits with parent document fields. Chunks
// belonging to inactive sources are dropped; when sourceIDs is non-empty,
// only those sources are returned.
func (m *Metadata) HitsByChunkIDs(ctx context.Context, chunkIDs []string, sourceIDs []string) ([]*SearchHit, error) {
	if len(chunkIDs) == 0 {
		return nil, nil
	}

	placeholders := make([]string, len(chunkIDs))
	args := make([]any, 0, len(chunkIDs)+len(sourceIDs))
	for i, id := range chunkIDs {
		placeholders[i] = "?"
		args = append(args, id)
	}

	query := fmt.Sprintf(`
		SELECT c.id, c.document_id, c.idx, c.content, c.token_count, c.metadata, c.embedded, c.created_at,
		       d.title, d.source_id, d.created_at
		FROM chunks c
		JOIN documents d ON d.id = c.document_id
		JOIN sources s ON s.id = d.source_id
		WHERE c.id IN (%s) AND s.active = 1`, strings.Join(placeholders, ","))

	if len(sourceIDs) > 0 {
		srcPlaceholders := make([]string, len(sourceIDs))
		for i, id := range sourceIDs {
			srcPlaceholders[i] = "?"
			args = append(args, id)
		}
		query += fmt.Sprintf(" AND d.source_id IN (%s)", strings.Join(srcPlaceholders, ","))
	}

	rows, err := m.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to hydrate hits: %w", err)
	}
	defer rows.Close()

	var hits []*SearchHit
	for rows.Next() {
		var c Chunk
		var meta string
		var embedded int
		var chunkCreatedAt, docCreatedAt int64
		hit := &SearchHit{Chunk: &c}
		if err := rows.Scan(&c.ID, &c.DocumentID, &c.Index, &c.Content,
			&c.TokenCount, &meta, &embedded, &chunkCreatedAt,
			&hit.DocumentTitle, &hit.SourceID, &docCreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan hit: %w", err)
		}
		c.Metadata = decodeMetadata(meta)
		c.Embedded = embedded != 0
		c.CreatedAt = time.Unix(chunkCreatedAt, 0)
		hit.DocumentID = c.DocumentID
		hit.DocumentCreatedAt = time.Unix(docCreatedAt, 0)
		hits = append(hits, hit)
	}
	return hits, rows.Err()
}

// --- State ---

// GetState reads a runtime state value. Missing keys return "".
func (m *Metadata) GetState(ctx context.Context, key string) (string, error) {
	var value string
	err := m.db.QueryRowContext(ctx, `SELECT value FROM state WHERE key = ?`, key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to get state %s: %w", key, err)
	}
	return value, nil
}

// SetState writes a runtime state value.
func (m *Metadata) SetState(ctx context.Context, key, value string) error {
	_, err := m.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO state (key, value) VALUES (?, ?)`, key, value)
	if err != nil {
		return fmt.Errorf("failed to set state %s: %w", key, err)
	}
	return nil
}

// --- Stats ---

// Stats returns aggregate counts.
func (m *Metadata) Stats(ctx context.Context) (*Stats, error) {
	var s Stats
	err := m.db.QueryRowContext(ctx, `
		SELECT
			(SELECT COUNT(*) FROM sources),
			(SELECT COUNT(*) FROM sources WHERE active = 1),
			(SELECT COUNT(*) FROM documents),
			(SELECT COUNT(*) FROM chunks),
			(SELECT COUNT(*) FROM chunks WHERE embedded = 1)`).
		Scan(&s.Sources, &s.ActiveSources, &s.Documents, &s.Chunks, &s.EmbeddedChunks)
	if err != nil {
		return nil, fmt.Errorf("failed to query stats: %w", err)
	}
	return &s, nil
}

// Close checkpoints and closes the database. Idempotent.
func (m *Metadata) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return nil
	}
	m.closed = true

	_, _ = m.db.Exec("PRAGMA wal_checkpoint(TRUNCATE)")
	return m.db.Close()
}

// --- Encoding helpers ---

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func encodeMetadata(meta map[string]string) (string, error) {
	if len(meta) == 0 {
		return "{}", nil
	}
	data, err := json.Marshal(meta)
	if err != nil {
		return "", fmt.Errorf("failed to encode metadata: %w", err)
	}
	return string(data), nil
}

func decodeMetadata(s string) map[string]string {
	if s == "" || s == "{}" {
		return nil
	}
	var meta map[string]string
	if err := json.Unmarshal([]byte(s), &meta); err != nil {
		return nil
	}
	return meta
}

// encodeVector packs float32 values little-endian.
func encodeVector(vec []float32) []byte {
	buf := make([]byte, len(vec)*4)
	for i, v := range vec {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(v))
	}
	return buf
}

func decodeVector(blob []byte) []float32 {
	vec := make([]float32, len(blob)/4)
	for i := range vec {
		vec[i] = math.Float32frombits(binary.LittleEndian.Uint32(blob[i*4:]))
	}
	return vec
}
