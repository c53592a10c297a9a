package store

// Status of a content record
type Status string

const (
	StatusDraft     Status = "draft"
	StatusPublished Status = "published"
)

// Record is a content item row in the durable store.
// ViewCount is the last value committed durably; the live count lives in the
// volatile counter store until reconciliation catches up.
// Timestamps are unix milliseconds; PublishedAt is 0 for drafts.
type Record struct {
	ID          string `db:"id" json:"id" msgpack:"id"`
	OwnerID     string `db:"owner_id" json:"owner_id" msgpack:"owner_id"`
	Title       string `db:"title" json:"title" msgpack:"title"`
	Body        string `db:"body" json:"body" msgpack:"body"`
	Slug        string `db:"slug" json:"slug" msgpack:"slug"`
	Status      Status `db:"status" json:"status" msgpack:"status"`
	Version     int64  `db:"version" json:"version" msgpack:"version"`
	ViewCount   int64  `db:"view_count" json:"view_count" msgpack:"view_count"`
	Deleted     bool   `db:"deleted" json:"-" msgpack:"deleted"`
	CreatedAt   int64  `db:"created_at" json:"created_at" msgpack:"created_at"`
	UpdatedAt   int64  `db:"updated_at" json:"updated_at" msgpack:"updated_at"`
	PublishedAt int64  `db:"published_at" json:"published_at,omitempty" msgpack:"published_at"`
}

// Patch holds the mutable fields of a conditional update.
// Nil pointers leave the column untouched.
type Patch struct {
	Title       *string
	Body        *string
	Slug        *string
	Status      *Status
	PublishedAt *int64
	Deleted     *bool
	ViewCount   *int64 // Reconciliation path only; regular edits never set this
}

// IsEmpty reports whether the patch would change nothing
func (p Patch) IsEmpty() bool {
	return p.Title == nil && p.Body == nil && p.Slug == nil &&
		p.Status == nil && p.PublishedAt == nil && p.Deleted == nil && p.ViewCount == nil
}

// ListFilters narrows a listing query
type ListFilters struct {
	OwnerID string
	Status  Status // Empty = any status
	Search  string // Substring match on title
}

// Page selects a listing window (1-based)
type Page struct {
	Number int
	Size   int
}

// Pagination describes the window a listing returned
type Pagination struct {
	Page       int   `json:"page"`
	Size       int   `json:"size"`
	TotalItems int64 `json:"total_items"`
	TotalPages int64 `json:"total_pages"`
}
