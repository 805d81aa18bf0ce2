package db

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/paperstack-io/paperstack/internal/core"
	"github.com/paperstack-io/paperstack/internal/models"
)

// MemoryStore is an in-memory DocumentStore used by unit tests. It mirrors
// the SQL store's matching semantics: substring search over the serialized
// list columns, AND across facet dimensions, OR within one.
type MemoryStore struct {
	mu    sync.RWMutex
	docs  map[string]models.Document
	terms map[string]int64
}

var _ core.DocumentStore = (*MemoryStore)(nil)

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		docs:  make(map[string]models.Document),
		terms: make(map[string]int64),
	}
}

func (m *MemoryStore) Create(_ context.Context, doc *models.Document) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if doc.CreatedAt.IsZero() {
		now := time.Now()
		doc.CreatedAt = now
		doc.UpdatedAt = now
	}
	m.docs[doc.ID] = *doc
	return nil
}

func (m *MemoryStore) GetByID(_ context.Context, id string) (*models.Document, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if d, ok := m.docs[id]; ok {
		return &d, nil
	}
	return nil, core.ErrNotFound
}

func (m *MemoryStore) List(_ context.Context) ([]models.Document, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.collect(func(models.Document) bool { return true }), nil
}

func (m *MemoryStore) SearchByTerm(_ context.Context, term string) ([]models.Document, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	needle := strings.ToLower(term)
	return m.collect(func(d models.Document) bool {
		for _, hay := range []string{
			d.Title, joinList(d.Keywords), joinList(d.Authors), d.DateCreated, d.Journal,
		} {
			if strings.Contains(strings.ToLower(hay), needle) {
				return true
			}
		}
		return false
	}), nil
}

func (m *MemoryStore) FilterByFacets(_ context.Context, f models.FacetFilter) ([]models.Document, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	now := time.Now()
	return m.collect(func(d models.Document) bool {
		return matchesFacets(d, f, now)
	}), nil
}

func matchesFacets(d models.Document, f models.FacetFilter, now time.Time) bool {
	anyContains := func(hay string, values []string) bool {
		hay = strings.ToLower(hay)
		for _, v := range values {
			if v = strings.TrimSpace(v); v == "" {
				continue
			}
			if strings.Contains(hay, strings.ToLower(v)) {
				return true
			}
		}
		return false
	}
	if len(f.Authors) > 0 && !anyContains(joinList(d.Authors), f.Authors) {
		return false
	}
	if len(f.Keywords) > 0 && !anyContains(joinList(d.Keywords), f.Keywords) {
		return false
	}
	if len(f.Journals) > 0 && !anyContains(d.Journal, f.Journals) {
		return false
	}
	if y := strings.TrimSpace(f.Year); y != "" {
		if !strings.Contains(strings.ToLower(d.DateCreated), strings.ToLower(y)) {
			return false
		}
	}
	if lower, ok := rangeLowerBound(f.DateRange, now); ok {
		if d.CreatedAt.Before(lower) {
			return false
		}
	}
	return true
}

func (m *MemoryStore) UpdateFields(_ context.Context, id, ownerID string, upd models.DocumentUpdate) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.docs[id]
	if !ok || (ownerID != "" && d.OwnerID != ownerID) {
		return 0, nil
	}
	if upd.Title != nil {
		d.Title = *upd.Title
	}
	if upd.Authors != nil {
		d.Authors = upd.Authors
	}
	if upd.Date != nil {
		d.DateCreated = *upd.Date
	}
	if upd.Keywords != nil {
		d.Keywords = upd.Keywords
	}
	if upd.Journal != nil {
		d.Journal = *upd.Journal
	}
	if upd.Abstract != nil {
		d.Abstract = *upd.Abstract
	}
	d.UpdatedAt = time.Now()
	m.docs[id] = d
	return 1, nil
}

func (m *MemoryStore) Delete(_ context.Context, id, ownerID string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.docs[id]
	if !ok || (ownerID != "" && d.OwnerID != ownerID) {
		return 0, nil
	}
	delete(m.docs, id)
	return 1, nil
}

func (m *MemoryStore) SetDeletionRequest(_ context.Context, id, ownerID, reason string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.docs[id]
	if !ok || d.OwnerID != ownerID || d.DeleteRequested {
		return 0, nil
	}
	d.DeleteRequested = true
	d.DeleteReason = reason
	d.UpdatedAt = time.Now()
	m.docs[id] = d
	return 1, nil
}

func (m *MemoryStore) ClearDeletionRequest(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.docs[id]
	if !ok {
		return core.ErrNotFound
	}
	d.DeleteRequested = false
	d.DeleteReason = ""
	d.UpdatedAt = time.Now()
	m.docs[id] = d
	return nil
}

func (m *MemoryStore) ArchiveOlderThan(_ context.Context, cutoff time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for id, d := range m.docs {
		if d.Status == models.StatusActive && d.CreatedAt.Before(cutoff) {
			d.Status = models.StatusArchived
			d.UpdatedAt = time.Now()
			m.docs[id] = d
			n++
		}
	}
	return n, nil
}

func (m *MemoryStore) IncrementSearchTerm(_ context.Context, term string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.terms[term]++
	return nil
}

func (m *MemoryStore) TopSearchTerms(_ context.Context, limit int) ([]models.SearchTermCount, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]models.SearchTermCount, 0, len(m.terms))
	for term, count := range m.terms {
		out = append(out, models.SearchTermCount{Term: term, Count: count})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Term < out[j].Term
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *MemoryStore) Close() error { return nil }

// collect returns matching documents newest-first, matching the SQL store's
// ordering contract.
func (m *MemoryStore) collect(match func(models.Document) bool) []models.Document {
	out := []models.Document{}
	for _, d := range m.docs {
		if match(d) {
			out = append(out, d)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out
}
