package ingest

import (
	"context"

	"github.com/paperstack-io/paperstack/internal/models"
)

// Ingestor is the ingestion entry point consumed by the transport layer.
type Ingestor interface {
	Ingest(ctx context.Context, payload []byte, fileName, ownerID string) (*models.Document, error)
}

var _ Ingestor = (*Pipeline)(nil)
