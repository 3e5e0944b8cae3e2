package reference

import (
	"context"
	"database/sql"
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/viant/sqlite-vec/vector"
	_ "modernc.org/sqlite" // pure Go sqlite driver
)

const defaultTable = "lab_references"

// Document is one indexed reference text.
type Document struct {
	ID        string
	Name      string
	Content   string
	Hash      uint64
	Embedding []float32
	Model     string
}

// Match is a search hit with its cosine similarity.
type Match struct {
	ID      string  `json:"id"`
	Name    string  `json:"name"`
	Content string  `json:"content"`
	Score   float64 `json:"score"`
}

// Store keeps reference embeddings in SQLite and answers cosine top-k queries.
type Store struct {
	db            *sql.DB
	dsn           string
	table         string
	openedLocally bool
}

// Option configures the Store.
type Option func(*Store)

// WithDB sets an existing database handle.
func WithDB(db *sql.DB) Option {
	return func(s *Store) { s.db = db }
}

// WithDSN sets the SQLite DSN used when opening a DB.
func WithDSN(dsn string) Option {
	return func(s *Store) { s.dsn = dsn }
}

// WithTable overrides the table name (default lab_references).
func WithTable(name string) Option {
	return func(s *Store) { s.table = name }
}

// NewStore opens the database if needed and provisions the schema.
func NewStore(ctx context.Context, opts ...Option) (*Store, error) {
	s := &Store{table: defaultTable}
	for _, opt := range opts {
		opt(s)
	}
	if s.db == nil {
		if s.dsn == "" {
			return nil, fmt.Errorf("reference store: dsn required")
		}
		db, err := sql.Open("sqlite", withBusyTimeout(s.dsn))
		if err != nil {
			return nil, err
		}
		if isMemory(s.dsn) {
			// every connection to :memory: is a separate database
			db.SetMaxOpenConns(1)
		} else {
			db.SetMaxOpenConns(4)
		}
		s.db = db
		s.openedLocally = true
	}
	if err := s.Ensure(ctx); err != nil {
		_ = s.Close()
		return nil, err
	}
	return s, nil
}

// Close closes the underlying DB if Store opened it.
func (s *Store) Close() error {
	if s.openedLocally && s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Ensure creates the reference table when missing.
func (s *Store) Ensure(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
	id TEXT PRIMARY KEY,
	name TEXT NOT NULL,
	content TEXT NOT NULL,
	hash INTEGER NOT NULL,
	embedding BLOB NOT NULL,
	dims INTEGER NOT NULL,
	embedding_model TEXT NOT NULL DEFAULT '',
	updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
)`, s.table))
	if err != nil {
		return fmt.Errorf("ensure %s: %w", s.table, err)
	}
	return nil
}

// Upsert writes documents in one transaction.
func (s *Store) Upsert(ctx context.Context, docs []Document) error {
	if len(docs) == 0 {
		return nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, fmt.Sprintf(`INSERT INTO %s(id, name, content, hash, embedding, dims, embedding_model, updated_at)
VALUES(?,?,?,?,?,?,?,CURRENT_TIMESTAMP)
ON CONFLICT(id) DO UPDATE SET
	name=excluded.name,
	content=excluded.content,
	hash=excluded.hash,
	embedding=excluded.embedding,
	dims=excluded.dims,
	embedding_model=excluded.embedding_model,
	updated_at=CURRENT_TIMESTAMP`, s.table))
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, d := range docs {
		blob, err := vector.EncodeEmbedding(d.Embedding)
		if err != nil {
			return fmt.Errorf("encode embedding %s: %w", d.ID, err)
		}
		if _, err := stmt.ExecContext(ctx, d.ID, d.Name, d.Content, int64(d.Hash), blob, len(d.Embedding), d.Model); err != nil {
			return fmt.Errorf("upsert %s: %w", d.ID, err)
		}
	}
	return tx.Commit()
}

// Delete removes the documents with the given ids.
func (s *Store) Delete(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, fmt.Sprintf(`DELETE FROM %s WHERE id = ?`, s.table))
	if err != nil {
		return err
	}
	defer stmt.Close()
	for _, id := range ids {
		if _, err := stmt.ExecContext(ctx, id); err != nil {
			return fmt.Errorf("delete %s: %w", id, err)
		}
	}
	return tx.Commit()
}

// Hashes returns the content hash of every stored document keyed by id.
func (s *Store) Hashes(ctx context.Context) (map[string]uint64, error) {
	rows, err := s.db.QueryContext(ctx, fmt.Sprintf(`SELECT id, hash FROM %s`, s.table))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := map[string]uint64{}
	for rows.Next() {
		var id string
		var h int64
		if err := rows.Scan(&id, &h); err != nil {
			return nil, err
		}
		out[id] = uint64(h)
	}
	return out, rows.Err()
}

// Count returns the number of indexed documents.
func (s *Store) Count(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, fmt.Sprintf(`SELECT COUNT(*) FROM %s`, s.table)).Scan(&n)
	return n, err
}

// Search scores every stored vector against query and returns the topK best.
// Rows with a different dimensionality are ignored.
func (s *Store) Search(ctx context.Context, query []float32, topK int) ([]Match, error) {
	if len(query) == 0 {
		return nil, fmt.Errorf("empty query vector")
	}
	rows, err := s.db.QueryContext(ctx, fmt.Sprintf(`SELECT id, name, content, embedding FROM %s WHERE dims = ?`, s.table), len(query))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var hits []Match
	for rows.Next() {
		var m Match
		var emb []byte
		if err := rows.Scan(&m.ID, &m.Name, &m.Content, &emb); err != nil {
			return nil, err
		}
		vec, err := vector.DecodeEmbedding(emb)
		if err != nil {
			continue
		}
		m.Score = float64(cosine(query, vec))
		hits = append(hits, m)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	sort.SliceStable(hits, func(i, j int) bool { return hits[i].Score > hits[j].Score })
	if topK > 0 && len(hits) > topK {
		hits = hits[:topK]
	}
	return hits, nil
}

func cosine(a, b []float32) float32 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return float32(dot / (math.Sqrt(na) * math.Sqrt(nb)))
}

func isMemory(dsn string) bool {
	lower := strings.ToLower(dsn)
	return dsn == ":memory:" || strings.HasPrefix(lower, "file::memory:")
}

func withBusyTimeout(dsn string) string {
	if isMemory(dsn) || strings.Contains(strings.ToLower(dsn), "_pragma=busy_timeout") {
		return dsn
	}
	sep := "?"
	if strings.Contains(dsn, "?") {
		sep = "&"
	}
	return dsn + sep + "_pragma=busy_timeout(5000)"
}
