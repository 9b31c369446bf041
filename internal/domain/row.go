package domain

import (
	"time"

	"github.com/google/uuid"
)

// Labels and sentinels used in report rows.
const (
	LabelInitialValue = "Initial Value"
	LabelCurrentValue = "Current Value"
	NoAuthor          = "-"
	NoTimestamp       = "-"
)

// Row is one reconstructed state of a document.
type Row struct {
	DocumentID   uuid.UUID
	DocumentName string
	// Label is LabelInitialValue, LabelCurrentValue, or the entry id.
	Label     string
	EntryID   *uuid.UUID
	Values    Snapshot
	Author    string
	Timestamp *time.Time
}

// AuthorLabel renders the author, or the "-" sentinel.
func (r Row) AuthorLabel() string {
	if r.Author == "" {
		return NoAuthor
	}
	return r.Author
}

// TimestampLabel returns the timestamp, or the "-" sentinel.
func (r Row) TimestampLabel() any {
	if r.Timestamp == nil || r.Timestamp.IsZero() {
		return NoTimestamp
	}
	return *r.Timestamp
}

// ChildRowDiff is one field change on one nested row.
type ChildRowDiff struct {
	DocumentID   uuid.UUID `json:"document_id"`
	DocumentName string    `json:"document_name"`
	EntryID      uuid.UUID `json:"entry_id"`
	Collection   string    `json:"collection"`
	RowIndex     int       `json:"row_index"`
	RowName      string    `json:"row_name,omitempty"`
	Field        string    `json:"field"`
	Old          any       `json:"old_value"`
	New          any       `json:"new_value"`
	Author       string    `json:"author"`
	Timestamp    time.Time `json:"timestamp"`
}

// FieldChangeRecord is one top-level field change, flattened.
type FieldChangeRecord struct {
	DocumentID   uuid.UUID `json:"document_id"`
	DocumentName string    `json:"document_name"`
	EntryID      uuid.UUID `json:"entry_id"`
	Field        string    `json:"field"`
	Old          any       `json:"old_value"`
	New          any       `json:"new_value"`
	Author       string    `json:"author"`
	Timestamp    time.Time `json:"timestamp"`
}
