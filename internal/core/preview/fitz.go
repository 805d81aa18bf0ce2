package preview

import (
	"image"

	"github.com/gen2brain/go-fitz"
)

// fitzRasterizer backs the renderer with MuPDF. The document handle owns
// native memory and must be closed after encoding.
type fitzRasterizer struct{}

func (fitzRasterizer) open(data []byte) (rasterDoc, error) {
	d, err := fitz.NewFromMemory(data)
	if err != nil {
		return nil, err
	}
	return &fitzDoc{d: d}, nil
}

type fitzDoc struct {
	d *fitz.Document
}

func (f *fitzDoc) pageCount() int {
	return f.d.NumPage()
}

func (f *fitzDoc) renderPage(n int) (image.Image, error) {
	return f.d.Image(n)
}

func (f *fitzDoc) close() error {
	return f.d.Close()
}
