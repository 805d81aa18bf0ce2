package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/paperstack-io/paperstack/internal/core"
	"github.com/paperstack-io/paperstack/internal/metrics"
	"github.com/paperstack-io/paperstack/internal/models"
)

// DocumentService exposes the read paths and the ownership-scoped mutations
// over persisted documents.
type DocumentService struct {
	store      core.DocumentStore
	objects    core.ObjectStore
	presignTTL time.Duration
	log        *zap.Logger
}

func NewDocumentService(store core.DocumentStore, objects core.ObjectStore, presignTTL time.Duration, log *zap.Logger) *DocumentService {
	if presignTTL <= 0 {
		presignTTL = time.Hour
	}
	return &DocumentService{store: store, objects: objects, presignTTL: presignTTL, log: log}
}

// Search matches term across title, keywords, authors, date and journal and
// records the normalized term for trending-term surfacing. A counter failure
// never fails the search itself.
func (s *DocumentService) Search(ctx context.Context, term string) ([]models.Document, error) {
	metrics.Searches.Inc()
	term = strings.TrimSpace(term)
	if term == "" {
		return s.store.List(ctx)
	}

	if err := s.store.IncrementSearchTerm(ctx, strings.ToLower(term)); err != nil {
		s.log.Warn("search term counter update failed", zap.String("term", term), zap.Error(err))
	}
	return s.store.SearchByTerm(ctx, term)
}

// Filter ANDs the filter's non-empty dimensions; values within one
// dimension are ORed.
func (s *DocumentService) Filter(ctx context.Context, f models.FacetFilter) ([]models.Document, error) {
	metrics.Searches.Inc()
	if f.Empty() {
		return s.store.List(ctx)
	}
	return s.store.FilterByFacets(ctx, f)
}

func (s *DocumentService) Get(ctx context.Context, id string) (*models.Document, error) {
	return s.store.GetByID(ctx, id)
}

func (s *DocumentService) PopularTerms(ctx context.Context, limit int) ([]models.SearchTermCount, error) {
	if limit <= 0 {
		limit = 10
	}
	return s.store.TopSearchTerms(ctx, limit)
}

// GetDownloadURL issues a time-limited signed URL for the original file.
// Only the owner and elevated operators may download.
func (s *DocumentService) GetDownloadURL(ctx context.Context, id string, requester models.Identity) (string, error) {
	doc, err := s.store.GetByID(ctx, id)
	if err != nil {
		return "", err
	}
	if doc.OwnerID != requester.UserID && !requester.Admin {
		return "", core.ErrForbidden
	}
	return s.objects.Presign(ctx, doc.StorageKey, s.presignTTL)
}

// Update applies an owner-scoped edit. Owners may change title, authors and
// date only; the ownership check lives inside the update predicate.
func (s *DocumentService) Update(ctx context.Context, id string, owner models.Identity, upd models.DocumentUpdate) error {
	scoped := models.DocumentUpdate{
		Title:   upd.Title,
		Authors: upd.Authors,
		Date:    upd.Date,
	}
	n, err := s.store.UpdateFields(ctx, id, owner.UserID, scoped)
	if err != nil {
		return err
	}
	if n == 0 {
		return s.missOutcome(ctx, id)
	}
	return nil
}

// AdminUpdate applies an unscoped edit of any mutable field.
func (s *DocumentService) AdminUpdate(ctx context.Context, id string, operator models.Identity, upd models.DocumentUpdate) error {
	if !operator.Admin {
		return core.ErrForbidden
	}
	n, err := s.store.UpdateFields(ctx, id, "", upd)
	if err != nil {
		return err
	}
	if n == 0 {
		return core.ErrNotFound
	}
	return nil
}

// Delete removes an owned document and reclaims its blobs. Deleting an
// already-deleted id reports not-found and is safe to repeat.
func (s *DocumentService) Delete(ctx context.Context, id string, owner models.Identity) error {
	doc, err := s.store.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if doc.OwnerID != owner.UserID {
		return core.ErrForbidden
	}
	return s.removeDocument(ctx, doc, owner.UserID)
}

// AdminDelete force-removes any document, elevated operators only.
func (s *DocumentService) AdminDelete(ctx context.Context, id string, operator models.Identity) error {
	if !operator.Admin {
		return core.ErrForbidden
	}
	doc, err := s.store.GetByID(ctx, id)
	if err != nil {
		return err
	}
	return s.removeDocument(ctx, doc, "")
}

// RequestDeletion flags an owned document for removal. At most one request
// may be pending; it stays pending until an operator resolves it.
func (s *DocumentService) RequestDeletion(ctx context.Context, id string, owner models.Identity, reason string) error {
	doc, err := s.store.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if doc.OwnerID != owner.UserID {
		return core.ErrForbidden
	}
	if doc.DeleteRequested {
		return fmt.Errorf("%w: a deletion request is already pending", core.ErrValidation)
	}
	n, err := s.store.SetDeletionRequest(ctx, id, owner.UserID, reason)
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%w: a deletion request is already pending", core.ErrValidation)
	}
	return nil
}

// ResolveDeletion settles a pending request: approval removes the document
// and reclaims storage, rejection clears the flag and keeps the document.
func (s *DocumentService) ResolveDeletion(ctx context.Context, id string, operator models.Identity, approve bool) error {
	if !operator.Admin {
		return core.ErrForbidden
	}
	doc, err := s.store.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if !doc.DeleteRequested {
		return fmt.Errorf("%w: no deletion request pending", core.ErrValidation)
	}
	if !approve {
		return s.store.ClearDeletionRequest(ctx, id)
	}
	return s.removeDocument(ctx, doc, "")
}

// removeDocument deletes the row and then reclaims the blobs. The storage
// key is a foreign reference, so reclamation is explicit; failures after the
// row is gone are logged, not rolled back.
func (s *DocumentService) removeDocument(ctx context.Context, doc *models.Document, ownerID string) error {
	n, err := s.store.Delete(ctx, doc.ID, ownerID)
	if err != nil {
		return err
	}
	if n == 0 {
		return core.ErrNotFound
	}

	_ = s.objects.Delete(ctx, doc.StorageKey)
	for _, pv := range doc.Previews {
		_ = s.objects.Delete(ctx, pv.StorageKey)
	}

	s.log.Info("document deleted",
		zap.String("doc_id", doc.ID),
		zap.Int("blobs_reclaimed", 1+len(doc.Previews)))
	return nil
}

// missOutcome distinguishes a missing row from an ownership mismatch after a
// scoped mutation matched nothing.
func (s *DocumentService) missOutcome(ctx context.Context, id string) error {
	if _, err := s.store.GetByID(ctx, id); err != nil {
		return err
	}
	return core.ErrForbidden
}
