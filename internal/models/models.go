package models

import (
	"time"
)

// Document status values.
const (
	StatusActive   = "active"
	StatusArchived = "archived"
)

// Identity is the authenticated caller as supplied by the auth boundary.
// The core trusts it without re-verifying credentials.
type Identity struct {
	UserID string `json:"user_id"`
	Admin  bool   `json:"admin"`
}

// PreviewImage references one rendered page image in object storage.
// Restricted pages are blurred at render time and gated by access tier.
type PreviewImage struct {
	Page       int    `json:"page"`
	StorageKey string `json:"storage_key"`
	Restricted bool   `json:"restricted"`
}

// Document represents one ingested file together with its AI-extracted
// bibliographic fields.
type Document struct {
	ID              string         `db:"id" json:"id"`
	OwnerID         string         `db:"owner_id" json:"owner_id"`
	Title           string         `db:"title" json:"title"`
	FileName        string         `db:"file_name" json:"file_name"`
	StorageKey      string         `db:"storage_key" json:"storage_key"`
	Previews        []PreviewImage `db:"previews" json:"previews"`
	Keywords        []string       `db:"ai_keywords" json:"keywords"`
	Authors         []string       `db:"ai_authors" json:"authors"`
	DateCreated     string         `db:"ai_date_created" json:"date_created"` // free-form precision: 2020, 2020-05 or 2020-05-14
	Journal         string         `db:"ai_journal" json:"journal,omitempty"`
	Abstract        string         `db:"abstract" json:"abstract,omitempty"`
	Status          string         `db:"status" json:"status"`
	DeleteRequested bool           `db:"delete_requested" json:"delete_requested"`
	DeleteReason    string         `db:"delete_reason" json:"delete_reason,omitempty"`
	CreatedAt       time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time      `db:"updated_at" json:"updated_at"`
}

// DocumentMetadata is the structured record returned by the extraction model.
// Title, Authors, Keywords and Date are required; Journal and Abstract are
// filled when the model can identify them.
type DocumentMetadata struct {
	Title    string   `json:"title"`
	Authors  []string `json:"authors"`
	Keywords []string `json:"keywords"`
	Date     string   `json:"date"`
	Journal  string   `json:"journal,omitempty"`
	Abstract string   `json:"abstract,omitempty"`
}

// DocumentUpdate carries the mutable fields of a document. Nil pointers and
// nil slices leave the stored value untouched.
type DocumentUpdate struct {
	Title    *string
	Authors  []string
	Date     *string
	Keywords []string
	Journal  *string
	Abstract *string
}

// RenderedPage is one rasterized preview page produced by the renderer,
// before it is uploaded to object storage.
type RenderedPage struct {
	Page        int
	Data        []byte
	ContentType string
	Restricted  bool
}

// DateRange values accepted by the facet filter.
const (
	Range7Days    = "7days"
	Range30Days   = "30days"
	RangeThisYear = "thisYear"
)

// FacetFilter selects documents by ANDing its non-empty dimensions; values
// inside one dimension are ORed.
type FacetFilter struct {
	Authors   []string `json:"authors,omitempty"`
	Keywords  []string `json:"keywords,omitempty"`
	Year      string   `json:"year,omitempty"`
	Journals  []string `json:"journals,omitempty"`
	DateRange string   `json:"date_range,omitempty"`
}

// Empty reports whether no dimension is set.
func (f FacetFilter) Empty() bool {
	return len(f.Authors) == 0 && len(f.Keywords) == 0 && f.Year == "" &&
		len(f.Journals) == 0 && f.DateRange == ""
}

// SearchTermCount is one row of the trending-term counter.
type SearchTermCount struct {
	Term  string `db:"term" json:"term"`
	Count int64  `db:"count" json:"count"`
}
