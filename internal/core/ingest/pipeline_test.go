package ingest

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/paperstack-io/paperstack/internal/core"
	db "github.com/paperstack-io/paperstack/internal/core/database"
	"github.com/paperstack-io/paperstack/internal/models"
)

var pdfPayload = []byte("%PDF-1.7 minimal payload")

type fakeObjects struct {
	mu        sync.Mutex
	blobs     map[string][]byte
	failOnKey string // Put fails for keys containing this substring
}

func newFakeObjects() *fakeObjects {
	return &fakeObjects{blobs: map[string][]byte{}}
}

func (f *fakeObjects) Put(_ context.Context, key string, data []byte, _ string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failOnKey != "" && strings.Contains(key, f.failOnKey) {
		return errors.New("injected put failure")
	}
	f.blobs[key] = data
	return nil
}

func (f *fakeObjects) Get(_ context.Context, key string) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if b, ok := f.blobs[key]; ok {
		return b, nil
	}
	return nil, errors.New("no such key")
}

func (f *fakeObjects) Delete(_ context.Context, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.blobs, key)
	return nil
}

func (f *fakeObjects) Presign(_ context.Context, key string, _ time.Duration) (string, error) {
	return "https://signed.example/" + key, nil
}

func (f *fakeObjects) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.blobs)
}

type stubExtractor struct{ err error }

func (s stubExtractor) ExtractText(context.Context, []byte) (string, error) {
	if s.err != nil {
		return "", s.err
	}
	return "extracted body text", nil
}

type stubMetadata struct {
	err   error
	calls int
}

func (s *stubMetadata) ExtractMetadata(context.Context, string) (*models.DocumentMetadata, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return &models.DocumentMetadata{
		Title:    "Graph Learning at Scale",
		Authors:  []string{"A. Lee", "B. Chen"},
		Keywords: []string{"graphs", "learning", "scale", "sampling", "systems"},
		Date:     "2020-05",
		Journal:  "Nature",
	}, nil
}

type stubRenderer struct {
	pages int
	err   error
}

func (s stubRenderer) Render(context.Context, []byte) ([]models.RenderedPage, error) {
	if s.err != nil {
		return nil, s.err
	}
	out := make([]models.RenderedPage, s.pages)
	for i := range out {
		out[i] = models.RenderedPage{
			Page:        i + 1,
			Data:        []byte{0xff, 0xd8},
			ContentType: "image/jpeg",
			Restricted:  i+1 > 5,
		}
	}
	return out, nil
}

type pipelineDeps struct {
	store    *db.MemoryStore
	objects  *fakeObjects
	metadata *stubMetadata
	renderer stubRenderer
}

func newTestPipeline(d pipelineDeps) *Pipeline {
	if d.store == nil {
		d.store = db.NewMemoryStore()
	}
	if d.objects == nil {
		d.objects = newFakeObjects()
	}
	if d.metadata == nil {
		d.metadata = &stubMetadata{}
	}
	return NewPipeline(d.store, d.objects, d.metadata, stubExtractor{}, d.renderer, zap.NewNop())
}

func TestIngest_Success(t *testing.T) {
	store := db.NewMemoryStore()
	objects := newFakeObjects()
	p := newTestPipeline(pipelineDeps{store: store, objects: objects, renderer: stubRenderer{pages: 3}})

	doc, err := p.Ingest(context.Background(), pdfPayload, "paper.pdf", "u1")
	require.NoError(t, err)
	require.NotEmpty(t, doc.ID)
	require.Equal(t, "u1", doc.OwnerID)
	require.Equal(t, "Graph Learning at Scale", doc.Title)
	require.Equal(t, []string{"A. Lee", "B. Chen"}, doc.Authors)
	require.Equal(t, "2020-05", doc.DateCreated)
	require.Equal(t, models.StatusActive, doc.Status)

	// 3 unrestricted previews, contiguous from page 1
	require.Len(t, doc.Previews, 3)
	for i, pv := range doc.Previews {
		require.Equal(t, i+1, pv.Page)
		require.False(t, pv.Restricted)
	}

	// one original + three preview blobs
	require.Equal(t, 4, objects.count())

	persisted, err := store.GetByID(context.Background(), doc.ID)
	require.NoError(t, err)
	require.Equal(t, doc.StorageKey, persisted.StorageKey)
}

func TestIngest_RestrictedFlagCarriesIntoPreviews(t *testing.T) {
	p := newTestPipeline(pipelineDeps{renderer: stubRenderer{pages: 6}})

	doc, err := p.Ingest(context.Background(), pdfPayload, "long.pdf", "u1")
	require.NoError(t, err)
	require.Len(t, doc.Previews, 6)
	for _, pv := range doc.Previews {
		require.Equal(t, pv.Page > 5, pv.Restricted, "page %d", pv.Page)
	}
}

func TestIngest_RejectsNonPDF(t *testing.T) {
	md := &stubMetadata{}
	p := newTestPipeline(pipelineDeps{metadata: md})

	cases := []struct {
		name     string
		payload  []byte
		fileName string
	}{
		{"wrong extension", pdfPayload, "paper.docx"},
		{"wrong magic", []byte("PK\x03\x04 zip bytes"), "paper.pdf"},
		{"empty payload", nil, "paper.pdf"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := p.Ingest(context.Background(), tc.payload, tc.fileName, "u1")
			require.ErrorIs(t, err, core.ErrValidation)
		})
	}
	// validation fails before any processing
	require.Zero(t, md.calls)
}

func TestIngest_MetadataFailureAborts(t *testing.T) {
	store := db.NewMemoryStore()
	objects := newFakeObjects()
	md := &stubMetadata{err: fmt.Errorf("%w: overloaded", core.ErrTransient)}
	p := newTestPipeline(pipelineDeps{store: store, objects: objects, metadata: md})

	_, err := p.Ingest(context.Background(), pdfPayload, "paper.pdf", "u1")
	require.ErrorIs(t, err, core.ErrMetadataFailed)

	// nothing written, no row created
	require.Zero(t, objects.count())
	docs, err := store.List(context.Background())
	require.NoError(t, err)
	require.Empty(t, docs)
}

func TestIngest_PreviewFailureIsNonFatal(t *testing.T) {
	objects := newFakeObjects()
	p := newTestPipeline(pipelineDeps{objects: objects, renderer: stubRenderer{err: errors.New("corrupt page tree")}})

	doc, err := p.Ingest(context.Background(), pdfPayload, "paper.pdf", "u1")
	require.NoError(t, err)
	require.Empty(t, doc.Previews)

	// only the original was written
	require.Equal(t, 1, objects.count())
}

func TestIngest_PreviewUploadFailureCleansUp(t *testing.T) {
	store := db.NewMemoryStore()
	objects := newFakeObjects()
	objects.failOnKey = "page-2"
	p := newTestPipeline(pipelineDeps{store: store, objects: objects, renderer: stubRenderer{pages: 3}})

	_, err := p.Ingest(context.Background(), pdfPayload, "paper.pdf", "u1")
	require.ErrorIs(t, err, core.ErrStorageFailed)

	// every blob written for the attempt was reclaimed
	require.Zero(t, objects.count())
	docs, err := store.List(context.Background())
	require.NoError(t, err)
	require.Empty(t, docs)
}

func TestIngest_PersistFailureCleansUpBlobs(t *testing.T) {
	objects := newFakeObjects()
	p := newTestPipeline(pipelineDeps{objects: objects, renderer: stubRenderer{pages: 2}})
	p.store = failingStore{}

	_, err := p.Ingest(context.Background(), pdfPayload, "paper.pdf", "u1")
	require.ErrorIs(t, err, core.ErrStorageFailed)
	require.Zero(t, objects.count())
}

// failingStore rejects every insert.
type failingStore struct{ core.DocumentStore }

func (failingStore) Create(context.Context, *models.Document) error {
	return errors.New("injected insert failure")
}

func TestKeyLayout(t *testing.T) {
	require.Equal(t, "documents/u1/d1/my_paper.pdf", originalKey("u1", "d1", "../tmp/my paper.pdf"))
	require.Equal(t, "previews/u1/d1/page-3.jpg", previewKey("u1", "d1", 3))
}
