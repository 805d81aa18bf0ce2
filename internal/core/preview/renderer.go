package preview

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/jpeg"
	"runtime"

	"github.com/disintegration/imaging"
	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"

	"github.com/paperstack-io/paperstack/internal/core"
	"github.com/paperstack-io/paperstack/internal/models"
)

const (
	defaultMaxPages   = 6
	defaultClearPages = 5
	blurSigma         = 12.0
	jpegQuality       = 80
)

// rasterizer opens a PDF payload for page-by-page rendering. The seam keeps
// the tiering logic testable without the cgo MuPDF backend.
type rasterizer interface {
	open(data []byte) (rasterDoc, error)
}

type rasterDoc interface {
	pageCount() int
	renderPage(n int) (image.Image, error) // zero-based
	close() error
}

// Renderer rasterizes the leading pages of a document and blurs every page
// past the public threshold. Rendering is CPU-bound, so concurrent renders
// are capped at the core count; one large document cannot stall every
// concurrent ingestion.
type Renderer struct {
	raster     rasterizer
	maxPages   int
	clearPages int
	sem        *semaphore.Weighted
	log        *zap.Logger
}

var _ core.PreviewRenderer = (*Renderer)(nil)

func NewRenderer(maxPages, clearPages int, log *zap.Logger) *Renderer {
	if maxPages <= 0 {
		maxPages = defaultMaxPages
	}
	if clearPages <= 0 {
		clearPages = defaultClearPages
	}
	return &Renderer{
		raster:     fitzRasterizer{},
		maxPages:   maxPages,
		clearPages: clearPages,
		sem:        semaphore.NewWeighted(int64(runtime.NumCPU())),
		log:        log,
	}
}

// Render returns up to maxPages JPEG page images. Documents shorter than the
// cap simply yield fewer pages. Any failure aborts the whole preview set;
// callers treat that as a non-fatal, empty outcome.
func (r *Renderer) Render(ctx context.Context, data []byte) ([]models.RenderedPage, error) {
	if err := r.sem.Acquire(ctx, 1); err != nil {
		return nil, err
	}
	defer r.sem.Release(1)

	doc, err := r.raster.open(data)
	if err != nil {
		return nil, fmt.Errorf("open document: %w", err)
	}
	defer doc.close()

	n := doc.pageCount()
	if n > r.maxPages {
		n = r.maxPages
	}

	pages := make([]models.RenderedPage, 0, n)
	for i := 0; i < n; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		img, err := doc.renderPage(i)
		if err != nil {
			return nil, fmt.Errorf("render page %d: %w", i+1, err)
		}

		restricted := i+1 > r.clearPages
		if restricted {
			img = imaging.Blur(img, blurSigma)
		}

		var buf bytes.Buffer
		if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: jpegQuality}); err != nil {
			return nil, fmt.Errorf("encode page %d: %w", i+1, err)
		}

		pages = append(pages, models.RenderedPage{
			Page:        i + 1,
			Data:        buf.Bytes(),
			ContentType: "image/jpeg",
			Restricted:  restricted,
		})
	}
	return pages, nil
}
