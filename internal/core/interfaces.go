package core

import (
	"context"
	"time"

	"github.com/paperstack-io/paperstack/internal/models"
)

// DocumentStore defines all persistence operations the services need.
// It abstracts Postgres so higher layers never depend on a specific DB.
type DocumentStore interface {
	Create(ctx context.Context, doc *models.Document) error
	GetByID(ctx context.Context, id string) (*models.Document, error)
	List(ctx context.Context) ([]models.Document, error)

	// SearchByTerm matches term case-insensitively as a substring across
	// title, keywords, authors, date and journal. Newest first.
	SearchByTerm(ctx context.Context, term string) ([]models.Document, error)

	// FilterByFacets ANDs the filter's non-empty dimensions, ORing the
	// values within each dimension. Newest first.
	FilterByFacets(ctx context.Context, f models.FacetFilter) ([]models.Document, error)

	// UpdateFields applies the non-nil fields of upd. A non-empty ownerID
	// makes the update conditional on ownership inside the row predicate.
	// Returns the number of rows changed.
	UpdateFields(ctx context.Context, id, ownerID string, upd models.DocumentUpdate) (int64, error)

	// Delete removes the row. A non-empty ownerID scopes the delete to the
	// owner. Returns the number of rows removed.
	Delete(ctx context.Context, id, ownerID string) (int64, error)

	SetDeletionRequest(ctx context.Context, id, ownerID, reason string) (int64, error)
	ClearDeletionRequest(ctx context.Context, id string) error

	// ArchiveOlderThan transitions active documents created before cutoff
	// to the archived status and reports how many rows moved.
	ArchiveOlderThan(ctx context.Context, cutoff time.Time) (int64, error)

	IncrementSearchTerm(ctx context.Context, term string) error
	TopSearchTerms(ctx context.Context, limit int) ([]models.SearchTermCount, error)

	Close() error
}

// ObjectStore defines interactions with S3 or any object storage. Keys are
// opaque, caller-chosen and unique per logical file.
type ObjectStore interface {
	Put(ctx context.Context, key string, data []byte, contentType string) error
	Get(ctx context.Context, key string) ([]byte, error)
	Delete(ctx context.Context, key string) error

	// Presign issues a time-limited GET URL for the stored object.
	Presign(ctx context.Context, key string, ttl time.Duration) (string, error)
}

// MetadataProvider derives bibliographic metadata from extracted plain text.
// Implementations signal retryable failures by wrapping ErrTransient.
type MetadataProvider interface {
	ExtractMetadata(ctx context.Context, text string) (*models.DocumentMetadata, error)
}

// TextExtractor converts a binary document into plain text for analysis.
type TextExtractor interface {
	ExtractText(ctx context.Context, data []byte) (string, error)
}

// PreviewRenderer rasterizes the leading pages of a document. A rendering
// failure is reported as an error; callers treat it as non-fatal.
type PreviewRenderer interface {
	Render(ctx context.Context, data []byte) ([]models.RenderedPage, error)
}
