package ingest

import (
	"bytes"
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/paperstack-io/paperstack/internal/core"
	"github.com/paperstack-io/paperstack/internal/metrics"
	"github.com/paperstack-io/paperstack/internal/models"
)

var pdfMagic = []byte("%PDF-")

// Pipeline sequences one upload through extraction, metadata, preview
// rendering, object storage and persistence. Stages run strictly in order;
// each depends on the previous stage's output. No Document row exists until
// every prior stage has succeeded.
type Pipeline struct {
	store     core.DocumentStore
	objects   core.ObjectStore
	metadata  core.MetadataProvider
	extractor core.TextExtractor
	renderer  core.PreviewRenderer
	log       *zap.Logger
}

func NewPipeline(
	store core.DocumentStore,
	objects core.ObjectStore,
	metadata core.MetadataProvider,
	extractor core.TextExtractor,
	renderer core.PreviewRenderer,
	log *zap.Logger,
) *Pipeline {
	return &Pipeline{
		store:     store,
		objects:   objects,
		metadata:  metadata,
		extractor: extractor,
		renderer:  renderer,
		log:       log,
	}
}

// Ingest processes one validated upload for ownerID and returns the persisted
// Document. Metadata failure aborts the run; preview failure degrades to an
// empty preview set. Blobs written for a run that ultimately fails to persist
// are deleted best-effort.
func (p *Pipeline) Ingest(ctx context.Context, payload []byte, fileName, ownerID string) (*models.Document, error) {
	if err := validatePDF(payload, fileName); err != nil {
		metrics.IngestFailures.WithLabelValues("validation").Inc()
		return nil, err
	}

	text, err := p.extractor.ExtractText(ctx, payload)
	if err != nil {
		metrics.IngestFailures.WithLabelValues("extract").Inc()
		return nil, err
	}

	md, err := p.metadata.ExtractMetadata(ctx, text)
	if err != nil {
		metrics.IngestFailures.WithLabelValues("metadata").Inc()
		return nil, fmt.Errorf("%w: %v", core.ErrMetadataFailed, err)
	}

	// Previews are a value-add, not a correctness requirement.
	pages, err := p.renderer.Render(ctx, payload)
	if err != nil {
		p.log.Warn("preview rendering failed, continuing without previews",
			zap.String("file", fileName), zap.Error(err))
		pages = nil
	}

	docID := uuid.NewString()
	key := originalKey(ownerID, docID, fileName)

	if err := p.objects.Put(ctx, key, payload, "application/pdf"); err != nil {
		metrics.IngestFailures.WithLabelValues("storage").Inc()
		return nil, fmt.Errorf("%w: upload original: %v", core.ErrStorageFailed, err)
	}

	previews := make([]models.PreviewImage, len(pages))
	g, gctx := errgroup.WithContext(ctx)
	for i, pg := range pages {
		pkey := previewKey(ownerID, docID, pg.Page)
		previews[i] = models.PreviewImage{
			Page:       pg.Page,
			StorageKey: pkey,
			Restricted: pg.Restricted,
		}
		data, contentType := pg.Data, pg.ContentType
		g.Go(func() error {
			return p.objects.Put(gctx, pkey, data, contentType)
		})
	}
	if err := g.Wait(); err != nil {
		metrics.IngestFailures.WithLabelValues("storage").Inc()
		p.discardBlobs(key, previews)
		return nil, fmt.Errorf("%w: upload previews: %v", core.ErrStorageFailed, err)
	}

	now := time.Now()
	doc := &models.Document{
		ID:          docID,
		OwnerID:     ownerID,
		Title:       md.Title,
		FileName:    sanitizeFileName(fileName),
		StorageKey:  key,
		Previews:    previews,
		Keywords:    md.Keywords,
		Authors:     md.Authors,
		DateCreated: md.Date,
		Journal:     md.Journal,
		Abstract:    md.Abstract,
		Status:      models.StatusActive,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := p.store.Create(ctx, doc); err != nil {
		metrics.IngestFailures.WithLabelValues("persist").Inc()
		p.discardBlobs(key, previews)
		return nil, fmt.Errorf("%w: persist document: %v", core.ErrStorageFailed, err)
	}

	metrics.DocumentsIngested.Inc()
	p.log.Info("document ingested",
		zap.String("doc_id", docID),
		zap.String("owner_id", ownerID),
		zap.Int("previews", len(previews)))
	return doc, nil
}

// discardBlobs reclaims every blob a failing run may have written. Deletes
// are best-effort and run on a fresh context so a cancelled ingestion still
// cleans up.
func (p *Pipeline) discardBlobs(originalKey string, previews []models.PreviewImage) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	_ = p.objects.Delete(ctx, originalKey)
	for _, pv := range previews {
		_ = p.objects.Delete(ctx, pv.StorageKey)
	}
}

// validatePDF fails fast on anything that is not a PDF payload: wrong
// extension, missing magic bytes, or an empty body.
func validatePDF(payload []byte, fileName string) error {
	if len(payload) == 0 {
		return fmt.Errorf("%w: empty payload", core.ErrValidation)
	}
	if !strings.EqualFold(filepath.Ext(strings.TrimSpace(fileName)), ".pdf") {
		return fmt.Errorf("%w: only PDF uploads are accepted", core.ErrValidation)
	}
	if !bytes.HasPrefix(payload, pdfMagic) {
		return fmt.Errorf("%w: payload is not a PDF", core.ErrValidation)
	}
	return nil
}
