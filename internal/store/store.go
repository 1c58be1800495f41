package store

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	pgvector "github.com/pgvector/pgvector-go"
	"github.com/seanblong/notesearch/internal/intent"
	"github.com/seanblong/notesearch/pkg/models"
)

// Store provides methods to interact with the database.
type Store struct {
	pool *pgxpool.Pool
}

// FragmentStore defines the methods that the Store must implement.
type FragmentStore interface {
	Migrate(ctx context.Context, dim int) error
	UpsertFragment(ctx context.Context, note models.Note, frag models.Fragment, embedding []float32, contentHash string) error
	GetFragmentMeta(ctx context.Context, noteID string, index int) (FragmentMeta, bool, error)
	Search(ctx context.Context, embedding []float32, k int, expr *intent.Expression) ([]models.RawCandidate, error)
	ListTags(ctx context.Context) ([]string, error)
}

// New creates a new Store instance connected to the given database URL.
func New(ctx context.Context, url string) (*Store, error) {
	cfg, err := pgxpool.ParseConfig(url)
	if err != nil {
		return nil, err
	}
	p, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return &Store{pool: p}, nil
}

func (s *Store) Close() { s.pool.Close() }

// Migrate applies necessary database migrations and schema setup.
func (s *Store) Migrate(ctx context.Context, dim int) error {
	q := `
CREATE EXTENSION IF NOT EXISTS vector;

CREATE TABLE IF NOT EXISTS fragments (
  id           TEXT PRIMARY KEY,
  note_id      TEXT NOT NULL,
  title        TEXT,
  source_type  TEXT NOT NULL DEFAULT 'note',
  tags         TEXT[] NOT NULL DEFAULT '{}',
  url          TEXT,
  content      TEXT,
  token_count  INT,
  frag_index   INT NOT NULL,
  frag_total   INT NOT NULL,
  start_char   INT,
  end_char     INT,
  meta         JSONB NOT NULL DEFAULT '{}'::jsonb,
  embedding    vector(%d),
  content_hash TEXT,
  created_at   TIMESTAMP WITH TIME ZONE DEFAULT now()
);

CREATE UNIQUE INDEX IF NOT EXISTS fragments_note_span_uidx
  ON fragments (note_id, frag_index);

CREATE INDEX IF NOT EXISTS fragments_source_type_idx
  ON fragments (source_type);

CREATE INDEX IF NOT EXISTS fragments_tags_gin
  ON fragments USING GIN (tags);

CREATE INDEX IF NOT EXISTS fragments_embedding_idx
  ON fragments USING ivfflat (embedding vector_cosine_ops) WITH (lists = 100);
`
	_, err := s.pool.Exec(ctx, fmt.Sprintf(q, dim))
	return err
}

// UpsertFragment inserts or updates one fragment of a note.
func (s *Store) UpsertFragment(
	ctx context.Context,
	note models.Note,
	frag models.Fragment,
	embedding []float32,
	contentHash string,
) error {
	var ev any
	if embedding != nil {
		ev = pgvector.NewVector(embedding)
	} else {
		ev = (*pgvector.Vector)(nil)
	}

	tags := note.Tags
	if tags == nil {
		tags = []string{}
	}

	const q = `
		INSERT INTO fragments (
			id, note_id, title, source_type, tags, url, content,
			token_count, frag_index, frag_total, start_char, end_char,
			embedding, content_hash, created_at
		) VALUES (
			$1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,
			COALESCE($15, now())
		)
		ON CONFLICT (note_id, frag_index) DO UPDATE SET
			title        = EXCLUDED.title,
			source_type  = EXCLUDED.source_type,
			tags         = EXCLUDED.tags,
			url          = EXCLUDED.url,
			content      = EXCLUDED.content,
			token_count  = EXCLUDED.token_count,
			frag_total   = EXCLUDED.frag_total,
			start_char   = EXCLUDED.start_char,
			end_char     = EXCLUDED.end_char,
			content_hash = EXCLUDED.content_hash,
			embedding    = COALESCE(EXCLUDED.embedding, fragments.embedding),
			created_at   = fragments.created_at;`

	var createdAt any
	if !note.CreatedAt.IsZero() {
		createdAt = note.CreatedAt
	}

	_, err := s.pool.Exec(ctx, q,
		fragmentID(note.ID, frag.Index), note.ID, note.Title, note.SourceType, tags, note.URL, frag.Text,
		frag.TokenCount, frag.Index, frag.Total, frag.StartChar, frag.EndChar,
		ev, contentHash, createdAt,
	)
	return err
}

// Search runs a filtered cosine-similarity query and returns raw,
// unsanitized candidates; the ranker owns all score hygiene.
func (s *Store) Search(
	ctx context.Context,
	embedding []float32,
	k int,
	expr *intent.Expression,
) ([]models.RawCandidate, error) {
	if k <= 0 {
		return []models.RawCandidate{}, nil
	}

	var ev any
	if embedding != nil {
		ev = pgvector.NewVector(embedding)
	} else {
		ev = (*pgvector.Vector)(nil)
	}

	where, filterArgs := buildWhere(expr, 2)
	args := append([]any{ev}, filterArgs...)

	q := fmt.Sprintf(`
SELECT note_id, title, source_type, tags, url, content,
       COALESCE(1 - (embedding <=> $1), 0) AS similarity
FROM fragments
WHERE %s
ORDER BY similarity DESC, created_at DESC
LIMIT %d;
`, where, k)

	rows, err := s.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.RawCandidate
	for rows.Next() {
		var (
			noteID, title, sourceType, url, content string
			tags                                    []string
			similarity                              float64
		)
		if err := rows.Scan(&noteID, &title, &sourceType, &tags, &url, &content, &similarity); err != nil {
			return nil, err
		}
		sim := similarity
		out = append(out, models.RawCandidate{
			Content: content,
			Metadata: &models.RawMetadata{
				SourceField:    "content",
				RelevanceScore: &sim,
				ContentID:      noteID,
				Title:          title,
				Tags:           tags,
				URL:            url,
			},
			SemanticScore: &sim,
			Extra:         map[string]any{"source_type": sourceType},
		})
	}
	return out, rows.Err()
}

// ListTags returns all distinct tags across stored fragments.
func (s *Store) ListTags(ctx context.Context) ([]string, error) {
	rows, err := s.pool.Query(ctx, `SELECT DISTINCT unnest(tags) AS tag FROM fragments ORDER BY tag`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tags []string
	for rows.Next() {
		var t string
		if err := rows.Scan(&t); err != nil {
			return nil, err
		}
		tags = append(tags, t)
	}
	return tags, rows.Err()
}

// Ping checks the database connectivity.
func (s *Store) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	return s.pool.Ping(ctx)
}

// FragmentMeta holds change-detection metadata about a stored fragment.
type FragmentMeta struct {
	ContentHash  string
	HasEmbedding bool
}

// GetFragmentMeta retrieves metadata for a fragment by note and index.
func (s *Store) GetFragmentMeta(ctx context.Context, noteID string, index int) (FragmentMeta, bool, error) {
	const q = `
      SELECT COALESCE(content_hash, ''),
             embedding IS NOT NULL
      FROM fragments
      WHERE note_id = $1 AND frag_index = $2
      LIMIT 1`
	var m FragmentMeta
	err := s.pool.QueryRow(ctx, q, noteID, index).Scan(&m.ContentHash, &m.HasEmbedding)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return FragmentMeta{}, false, nil
		}
		return FragmentMeta{}, false, err
	}
	return m, true, nil
}

// fragmentID derives a stable id from the note id and fragment index.
func fragmentID(noteID string, index int) string {
	h := sha1.Sum([]byte(noteID + "#" + strconv.Itoa(index)))
	return hex.EncodeToString(h[:])
}
