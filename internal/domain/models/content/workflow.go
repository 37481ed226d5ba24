package content

import "time"

// ContentType names the kind of target a workflow operation acts on.
type ContentType string

const (
	ContentTypePage       ContentType = "page"
	ContentTypeAdditional ContentType = "additional"
)

// Valid reports whether t is a known content type.
func (t ContentType) Valid() bool {
	return t == ContentTypePage || t == ContentTypeAdditional
}

// PendingContent is a staged, unapproved upload. At most one exists per
// (content_type, target).
type PendingContent struct {
	ID           int64       `json:"id" db:"id"`
	ContentType  ContentType `json:"content_type" db:"content_type"`
	PageID       int64       `json:"page_id" db:"page_id"`
	AdditionalID *int64      `json:"additional_id,omitempty" db:"additional_id"`
	ObjectKey    string      `json:"object_key" db:"object_key"`
	Filename     string      `json:"filename" db:"filename"`
	FileSize     int64       `json:"file_size" db:"file_size"`
	UploadedBy   string      `json:"uploaded_by" db:"uploaded_by"`
	UploadedAt   time.Time   `json:"uploaded_at" db:"uploaded_at"`
}

// TargetID returns the id of the page or additional the pending row belongs to.
func (p *PendingContent) TargetID() int64 {
	if p.ContentType == ContentTypeAdditional && p.AdditionalID != nil {
		return *p.AdditionalID
	}
	return p.PageID
}

// ArchivedContent records a canonical object that was replaced by an approval.
// Rows are append-only.
type ArchivedContent struct {
	ID                   int64       `json:"id" db:"id"`
	ContentType          ContentType `json:"content_type" db:"content_type"`
	OriginalPageID       int64       `json:"original_page_id" db:"original_page_id"`
	OriginalAdditionalID *int64      `json:"original_additional_id,omitempty" db:"original_additional_id"`
	ObjectKey            string      `json:"object_key" db:"object_key"`
	ArchivedFilename     string      `json:"archived_filename" db:"archived_filename"`
	FileSize             int64       `json:"file_size" db:"file_size"`
	ArchivedBy           string      `json:"archived_by" db:"archived_by"`
	ArchivedAt           time.Time   `json:"archived_at" db:"archived_at"`
}

// PresenceSource tells how a ContentPresence was determined.
type PresenceSource string

const (
	PresenceSourceStore     PresenceSource = "store"
	PresenceSourceHeuristic PresenceSource = "heuristic"
)

// ContentPresence is the result of probing whether a file has a canonical object.
type ContentPresence struct {
	Present bool           `json:"present"`
	Key     string         `json:"key"`
	Source  PresenceSource `json:"source"`
}

// RenamedObject reports one object key rewritten by a rename cascade.
type RenamedObject struct {
	Type   string `json:"type"` // page, detail, additional, pending
	ID     int64  `json:"id"`
	OldKey string `json:"old_key"`
	NewKey string `json:"new_key"`
	Moved  bool   `json:"moved"`
	Error  string `json:"error,omitempty"`
}

// PendingStatus describes the review state of a target.
type PendingStatus struct {
	ContentType ContentType     `json:"content_type"`
	TargetID    int64           `json:"target_id"`
	HasPending  bool            `json:"has_pending"`
	Pending     *PendingContent `json:"pending,omitempty"`
	Published   bool            `json:"published"`
}
