package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/paperstack-io/paperstack/internal/config"
	"github.com/paperstack-io/paperstack/internal/core"
	"github.com/paperstack-io/paperstack/internal/models"
)

const docColumns = `id, owner_id, title, file_name, storage_key, previews,
	ai_keywords, ai_authors, ai_date_created, ai_journal, abstract,
	status, delete_requested, delete_reason, created_at, updated_at`

// Store is the Postgres-backed DocumentStore.
type Store struct {
	db *sql.DB
}

var _ core.DocumentStore = (*Store)(nil)

func NewStore(ctx context.Context, cfg *config.Config) (*Store, error) {
	if cfg == nil {
		return nil, fmt.Errorf("database configuration is nil")
	}
	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is empty")
	}

	db, err := sql.Open("pgx", cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	// Sensible pool settings for an API service; adjust as needed.
	db.SetMaxOpenConns(20)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(30 * time.Minute)
	db.SetConnMaxIdleTime(10 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping db: %w", err)
	}

	if err := EnsureBootstrapped(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("bootstrap: %w", err)
	}

	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

func (s *Store) Create(ctx context.Context, doc *models.Document) error {
	if doc == nil {
		return errors.New("nil document")
	}
	previews, err := json.Marshal(doc.Previews)
	if err != nil {
		return fmt.Errorf("marshal previews: %w", err)
	}
	if doc.CreatedAt.IsZero() {
		now := time.Now()
		doc.CreatedAt = now
		doc.UpdatedAt = now
	}
	const q = `
		INSERT INTO documents
			(id, owner_id, title, file_name, storage_key, previews,
			 ai_keywords, ai_authors, ai_date_created, ai_journal, abstract,
			 status, delete_requested, delete_reason, created_at, updated_at)
		VALUES
			($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
	`
	_, err = s.db.ExecContext(ctx, q,
		doc.ID, doc.OwnerID, doc.Title, doc.FileName, doc.StorageKey, previews,
		joinList(doc.Keywords), joinList(doc.Authors), doc.DateCreated, doc.Journal, doc.Abstract,
		doc.Status, doc.DeleteRequested, doc.DeleteReason, doc.CreatedAt, doc.UpdatedAt)
	return err
}

func (s *Store) GetByID(ctx context.Context, id string) (*models.Document, error) {
	q := `SELECT ` + docColumns + ` FROM documents WHERE id = $1`
	doc, err := scanDocument(s.db.QueryRowContext(ctx, q, id))
	if err == sql.ErrNoRows {
		return nil, core.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return doc, nil
}

func (s *Store) List(ctx context.Context) ([]models.Document, error) {
	q := `SELECT ` + docColumns + ` FROM documents ORDER BY created_at DESC`
	return s.queryDocuments(ctx, q)
}

func (s *Store) SearchByTerm(ctx context.Context, term string) ([]models.Document, error) {
	q := `SELECT ` + docColumns + ` FROM documents
		WHERE title ILIKE $1
		   OR ai_keywords ILIKE $1
		   OR ai_authors ILIKE $1
		   OR ai_date_created ILIKE $1
		   OR ai_journal ILIKE $1
		ORDER BY created_at DESC`
	return s.queryDocuments(ctx, q, "%"+term+"%")
}

func (s *Store) FilterByFacets(ctx context.Context, f models.FacetFilter) ([]models.Document, error) {
	where, args := buildFacetWhere(f, time.Now())
	q := `SELECT ` + docColumns + ` FROM documents` + where + ` ORDER BY created_at DESC`
	return s.queryDocuments(ctx, q, args...)
}

// UpdateFields applies the set fields of upd. When ownerID is non-empty the
// ownership check is part of the update predicate, not a separate read.
func (s *Store) UpdateFields(ctx context.Context, id, ownerID string, upd models.DocumentUpdate) (int64, error) {
	sets := []string{"updated_at = now()"}
	args := []any{id}

	bind := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if upd.Title != nil {
		sets = append(sets, "title = "+bind(*upd.Title))
	}
	if upd.Authors != nil {
		sets = append(sets, "ai_authors = "+bind(joinList(upd.Authors)))
	}
	if upd.Date != nil {
		sets = append(sets, "ai_date_created = "+bind(*upd.Date))
	}
	if upd.Keywords != nil {
		sets = append(sets, "ai_keywords = "+bind(joinList(upd.Keywords)))
	}
	if upd.Journal != nil {
		sets = append(sets, "ai_journal = "+bind(*upd.Journal))
	}
	if upd.Abstract != nil {
		sets = append(sets, "abstract = "+bind(*upd.Abstract))
	}

	q := "UPDATE documents SET " + strings.Join(sets, ", ") + " WHERE id = $1"
	if ownerID != "" {
		q += " AND owner_id = " + bind(ownerID)
	}

	res, err := s.db.ExecContext(ctx, q, args...)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (s *Store) Delete(ctx context.Context, id, ownerID string) (int64, error) {
	q := `DELETE FROM documents WHERE id = $1`
	args := []any{id}
	if ownerID != "" {
		q += ` AND owner_id = $2`
		args = append(args, ownerID)
	}
	res, err := s.db.ExecContext(ctx, q, args...)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// SetDeletionRequest flags the document. The predicate excludes rows with a
// request already pending, so at most one can be in flight.
func (s *Store) SetDeletionRequest(ctx context.Context, id, ownerID, reason string) (int64, error) {
	const q = `
		UPDATE documents
		SET delete_requested = TRUE, delete_reason = $3, updated_at = now()
		WHERE id = $1 AND owner_id = $2 AND delete_requested = FALSE
	`
	res, err := s.db.ExecContext(ctx, q, id, ownerID, reason)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (s *Store) ClearDeletionRequest(ctx context.Context, id string) error {
	const q = `
		UPDATE documents
		SET delete_requested = FALSE, delete_reason = '', updated_at = now()
		WHERE id = $1
	`
	res, err := s.db.ExecContext(ctx, q, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return core.ErrNotFound
	}
	return nil
}

func (s *Store) ArchiveOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	const q = `
		UPDATE documents
		SET status = $1, updated_at = now()
		WHERE status = $2 AND created_at < $3
	`
	res, err := s.db.ExecContext(ctx, q, models.StatusArchived, models.StatusActive, cutoff)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (s *Store) IncrementSearchTerm(ctx context.Context, term string) error {
	const q = `
		INSERT INTO search_terms (term, count, updated_at)
		VALUES ($1, 1, now())
		ON CONFLICT (term)
		DO UPDATE SET count = search_terms.count + 1, updated_at = now()
	`
	_, err := s.db.ExecContext(ctx, q, term)
	return err
}

func (s *Store) TopSearchTerms(ctx context.Context, limit int) ([]models.SearchTermCount, error) {
	const q = `
		SELECT term, count FROM search_terms
		ORDER BY count DESC, term ASC
		LIMIT $1
	`
	rows, err := s.db.QueryContext(ctx, q, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.SearchTermCount
	for rows.Next() {
		var t models.SearchTermCount
		if err := rows.Scan(&t.Term, &t.Count); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (s *Store) queryDocuments(ctx context.Context, q string, args ...any) ([]models.Document, error) {
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.Document
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *doc)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDocument(r rowScanner) (*models.Document, error) {
	var (
		d        models.Document
		previews []byte
		keywords string
		authors  string
	)
	err := r.Scan(
		&d.ID, &d.OwnerID, &d.Title, &d.FileName, &d.StorageKey, &previews,
		&keywords, &authors, &d.DateCreated, &d.Journal, &d.Abstract,
		&d.Status, &d.DeleteRequested, &d.DeleteReason, &d.CreatedAt, &d.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if len(previews) > 0 {
		if err := json.Unmarshal(previews, &d.Previews); err != nil {
			return nil, fmt.Errorf("unmarshal previews: %w", err)
		}
	}
	d.Keywords = splitList(keywords)
	d.Authors = splitList(authors)
	return &d, nil
}

// joinList serializes a list the way the search contract expects it: one
// text value that ILIKE can match against any element.
func joinList(values []string) string {
	return strings.Join(values, ", ")
}

func splitList(s string) []string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
