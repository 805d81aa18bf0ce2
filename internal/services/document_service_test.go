package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/paperstack-io/paperstack/internal/core"
	db "github.com/paperstack-io/paperstack/internal/core/database"
	"github.com/paperstack-io/paperstack/internal/models"
)

var (
	owner    = models.Identity{UserID: "u1"}
	stranger = models.Identity{UserID: "u2"}
	admin    = models.Identity{UserID: "op1", Admin: true}
)

type recordingObjects struct {
	mu      sync.Mutex
	deleted []string
}

func (r *recordingObjects) Put(context.Context, string, []byte, string) error { return nil }
func (r *recordingObjects) Get(context.Context, string) ([]byte, error)      { return nil, core.ErrNotFound }

func (r *recordingObjects) Delete(_ context.Context, key string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.deleted = append(r.deleted, key)
	return nil
}

func (r *recordingObjects) Presign(_ context.Context, key string, _ time.Duration) (string, error) {
	return "https://signed.example/" + key, nil
}

type fixture struct {
	svc     *DocumentService
	store   *db.MemoryStore
	objects *recordingObjects
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	store := db.NewMemoryStore()
	objects := &recordingObjects{}
	return fixture{
		svc:     NewDocumentService(store, objects, time.Hour, zap.NewNop()),
		store:   store,
		objects: objects,
	}
}

func (f fixture) seed(t *testing.T, id, ownerID string) models.Document {
	t.Helper()
	doc := models.Document{
		ID:         id,
		OwnerID:    ownerID,
		Title:      "Sparse Attention",
		FileName:   "sparse.pdf",
		StorageKey: "documents/" + ownerID + "/" + id + "/sparse.pdf",
		Previews: []models.PreviewImage{
			{Page: 1, StorageKey: "previews/" + ownerID + "/" + id + "/page-1.jpg"},
		},
		Keywords:    []string{"attention", "sparsity"},
		Authors:     []string{"C. Diaz"},
		DateCreated: "2023-11",
		Journal:     "JMLR",
		Status:      models.StatusActive,
	}
	require.NoError(t, f.store.Create(context.Background(), &doc))
	return doc
}

func TestSearch_RecordsNormalizedTerm(t *testing.T) {
	f := newFixture(t)
	f.seed(t, "d1", "u1")

	docs, err := f.svc.Search(context.Background(), "  Attention ")
	require.NoError(t, err)
	require.Len(t, docs, 1)

	terms, err := f.svc.PopularTerms(context.Background(), 0)
	require.NoError(t, err)
	require.Equal(t, []models.SearchTermCount{{Term: "attention", Count: 1}}, terms)
}

func TestSearch_EmptyTermListsAll(t *testing.T) {
	f := newFixture(t)
	f.seed(t, "d1", "u1")
	f.seed(t, "d2", "u2")

	docs, err := f.svc.Search(context.Background(), "   ")
	require.NoError(t, err)
	require.Len(t, docs, 2)

	// no phantom entry for the empty query
	terms, err := f.svc.PopularTerms(context.Background(), 0)
	require.NoError(t, err)
	require.Empty(t, terms)
}

func TestFilter_EmptyFilterListsAll(t *testing.T) {
	f := newFixture(t)
	f.seed(t, "d1", "u1")

	docs, err := f.svc.Filter(context.Background(), models.FacetFilter{})
	require.NoError(t, err)
	require.Len(t, docs, 1)
}

func TestGetDownloadURL_Authorization(t *testing.T) {
	f := newFixture(t)
	doc := f.seed(t, "d1", "u1")

	url, err := f.svc.GetDownloadURL(context.Background(), "d1", owner)
	require.NoError(t, err)
	require.Equal(t, "https://signed.example/"+doc.StorageKey, url)

	url, err = f.svc.GetDownloadURL(context.Background(), "d1", admin)
	require.NoError(t, err)
	require.NotEmpty(t, url)

	_, err = f.svc.GetDownloadURL(context.Background(), "d1", stranger)
	require.ErrorIs(t, err, core.ErrForbidden)

	_, err = f.svc.GetDownloadURL(context.Background(), "missing", stranger)
	require.ErrorIs(t, err, core.ErrNotFound)
}

func TestUpdate_OwnerEditsAllowedFields(t *testing.T) {
	f := newFixture(t)
	f.seed(t, "d1", "u1")

	title := "Dense Attention"
	date := "2024-01"
	journal := "smuggled"
	err := f.svc.Update(context.Background(), "d1", owner, models.DocumentUpdate{
		Title:   &title,
		Authors: []string{"C. Diaz", "E. Okafor"},
		Date:    &date,
		Journal: &journal,
	})
	require.NoError(t, err)

	doc, err := f.svc.Get(context.Background(), "d1")
	require.NoError(t, err)
	require.Equal(t, "Dense Attention", doc.Title)
	require.Equal(t, []string{"C. Diaz", "E. Okafor"}, doc.Authors)
	require.Equal(t, "2024-01", doc.DateCreated)
	// journal is not owner-editable
	require.Equal(t, "JMLR", doc.Journal)
}

func TestUpdate_MissDistinguishesForbiddenFromNotFound(t *testing.T) {
	f := newFixture(t)
	f.seed(t, "d1", "u1")
	title := "x"

	err := f.svc.Update(context.Background(), "d1", stranger, models.DocumentUpdate{Title: &title})
	require.ErrorIs(t, err, core.ErrForbidden)

	err = f.svc.Update(context.Background(), "missing", owner, models.DocumentUpdate{Title: &title})
	require.ErrorIs(t, err, core.ErrNotFound)
}

func TestAdminUpdate_EditsAnyField(t *testing.T) {
	f := newFixture(t)
	f.seed(t, "d1", "u1")

	journal := "NeurIPS"
	err := f.svc.AdminUpdate(context.Background(), "d1", admin, models.DocumentUpdate{
		Journal:  &journal,
		Keywords: []string{"replaced"},
	})
	require.NoError(t, err)

	doc, err := f.svc.Get(context.Background(), "d1")
	require.NoError(t, err)
	require.Equal(t, "NeurIPS", doc.Journal)
	require.Equal(t, []string{"replaced"}, doc.Keywords)

	err = f.svc.AdminUpdate(context.Background(), "d1", owner, models.DocumentUpdate{Journal: &journal})
	require.ErrorIs(t, err, core.ErrForbidden)
}

func TestDelete_ReclaimsBlobsAndIsIdempotent(t *testing.T) {
	f := newFixture(t)
	doc := f.seed(t, "d1", "u1")

	require.NoError(t, f.svc.Delete(context.Background(), "d1", owner))
	require.ElementsMatch(t,
		[]string{doc.StorageKey, doc.Previews[0].StorageKey},
		f.objects.deleted)

	// repeating the delete reports not-found rather than failing oddly
	err := f.svc.Delete(context.Background(), "d1", owner)
	require.ErrorIs(t, err, core.ErrNotFound)
}

func TestDelete_StrangerForbidden(t *testing.T) {
	f := newFixture(t)
	f.seed(t, "d1", "u1")

	err := f.svc.Delete(context.Background(), "d1", stranger)
	require.ErrorIs(t, err, core.ErrForbidden)
	require.Empty(t, f.objects.deleted)
}

func TestAdminDelete_AnyOwner(t *testing.T) {
	f := newFixture(t)
	f.seed(t, "d1", "u1")

	require.NoError(t, f.svc.AdminDelete(context.Background(), "d1", admin))
	_, err := f.svc.Get(context.Background(), "d1")
	require.ErrorIs(t, err, core.ErrNotFound)

	err = f.svc.AdminDelete(context.Background(), "d1", stranger)
	require.ErrorIs(t, err, core.ErrForbidden)
}

func TestDeletionRequestLifecycle_Approved(t *testing.T) {
	f := newFixture(t)
	doc := f.seed(t, "d1", "u1")

	require.NoError(t, f.svc.RequestDeletion(context.Background(), "d1", owner, "duplicate upload"))

	// a second request while one is pending is rejected
	err := f.svc.RequestDeletion(context.Background(), "d1", owner, "again")
	require.ErrorIs(t, err, core.ErrValidation)

	require.NoError(t, f.svc.ResolveDeletion(context.Background(), "d1", admin, true))
	_, err = f.svc.Get(context.Background(), "d1")
	require.ErrorIs(t, err, core.ErrNotFound)
	require.Contains(t, f.objects.deleted, doc.StorageKey)
}

func TestDeletionRequestLifecycle_Rejected(t *testing.T) {
	f := newFixture(t)
	f.seed(t, "d1", "u1")

	require.NoError(t, f.svc.RequestDeletion(context.Background(), "d1", owner, "wrong file"))
	require.NoError(t, f.svc.ResolveDeletion(context.Background(), "d1", admin, false))

	doc, err := f.svc.Get(context.Background(), "d1")
	require.NoError(t, err)
	require.False(t, doc.DeleteRequested)
	require.Empty(t, f.objects.deleted)

	// the flag is clear again, so a new request goes through
	require.NoError(t, f.svc.RequestDeletion(context.Background(), "d1", owner, "second thoughts"))
}

func TestDeletionRequest_Guards(t *testing.T) {
	f := newFixture(t)
	f.seed(t, "d1", "u1")

	err := f.svc.RequestDeletion(context.Background(), "d1", stranger, "not mine")
	require.ErrorIs(t, err, core.ErrForbidden)

	err = f.svc.ResolveDeletion(context.Background(), "d1", owner, true)
	require.ErrorIs(t, err, core.ErrForbidden)

	// resolving without a pending request is a validation error
	err = f.svc.ResolveDeletion(context.Background(), "d1", admin, true)
	require.ErrorIs(t, err, core.ErrValidation)
}

func TestPopularTerms_DefaultLimit(t *testing.T) {
	f := newFixture(t)
	f.seed(t, "d1", "u1")
	for i := 0; i < 12; i++ {
		term := string(rune('a' + i))
		_, err := f.svc.Search(context.Background(), term)
		require.NoError(t, err)
	}

	terms, err := f.svc.PopularTerms(context.Background(), 0)
	require.NoError(t, err)
	require.Len(t, terms, 10)
}
