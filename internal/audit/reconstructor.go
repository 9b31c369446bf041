package audit

import (
	"github.com/google/uuid"

	"github.com/rpattn/versionaudit/internal/domain"
)

// Diagnostic records a change-log entry that was skipped.
type Diagnostic struct {
	DocumentID uuid.UUID `json:"document_id"`
	EntryID    uuid.UUID `json:"entry_id"`
	Message    string    `json:"message"`
}

// Reconstruction is the output of BuildRows for one document.
type Reconstruction struct {
	Rows        []domain.Row
	Diagnostics []Diagnostic
}

// VersionReconstructor rebuilds per-change rows for documents sharing one
// set of tracked fields.
type VersionReconstructor struct {
	fields domain.FieldSet
}

// NewVersionReconstructor binds a reconstructor to the tracked fields.
func NewVersionReconstructor(fields domain.FieldSet) *VersionReconstructor {
	return &VersionReconstructor{fields: fields}
}

// Fields returns the tracked fields.
func (r *VersionReconstructor) Fields() domain.FieldSet {
	return r.fields
}

// ReconstructInitialValues infers the values each tracked field held before
// any recorded change. Every tracked field must be present in current.
func (r *VersionReconstructor) ReconstructInitialValues(current map[string]any, entries []domain.ChangeLogEntry) (domain.Snapshot, error) {
	currentSnapshot, err := domain.SnapshotFromValues(r.fields, current)
	if err != nil {
		return domain.Snapshot{}, err
	}
	return r.reconstructInitial(currentSnapshot, entries), nil
}

// reconstructInitial walks entries oldest first. A field's guess is replaced
// by a triple's old value only while it still equals the current value, so
// the earliest entry touching the field anchors it.
func (r *VersionReconstructor) reconstructInitial(current domain.Snapshot, entries []domain.ChangeLogEntry) domain.Snapshot {
	initial := current.Clone()
	for _, entry := range entries {
		if entry.Malformed {
			continue
		}
		for _, change := range entry.Changed {
			pos, tracked := r.fields.Position(change.Field)
			if !tracked {
				continue
			}
			if !initial.At(pos).Equal(current.At(pos)) {
				continue
			}
			initial.Set(change.Field, domain.ValueOf(change.Old))
		}
	}
	return initial
}

// BuildRows produces the initial row, one row per substantive entry, and the
// current row for doc.
func (r *VersionReconstructor) BuildRows(doc domain.Document, entries []domain.ChangeLogEntry) (Reconstruction, error) {
	current, err := domain.SnapshotFromValues(r.fields, doc.Fields)
	if err != nil {
		return Reconstruction{}, err
	}

	result := Reconstruction{
		Rows: make([]domain.Row, 0, len(entries)+2),
	}

	initialRow := domain.Row{
		DocumentID:   doc.ID,
		DocumentName: doc.Label(),
		Label:        domain.LabelInitialValue,
		Values:       r.reconstructInitial(current, entries),
		Author:       doc.Owner,
	}
	if !doc.CreatedAt.IsZero() {
		created := doc.CreatedAt
		initialRow.Timestamp = &created
	}
	result.Rows = append(result.Rows, initialRow)

	result.Diagnostics = Diagnose(doc.ID, entries)
	for _, entry := range entries {
		if entry.Malformed || !entry.IsSubstantive() {
			continue
		}
		result.Rows = append(result.Rows, r.entryRow(doc, entry))
	}

	result.Rows = append(result.Rows, domain.Row{
		DocumentID:   doc.ID,
		DocumentName: doc.Label(),
		Label:        domain.LabelCurrentValue,
		Values:       current,
		Author:       domain.NoAuthor,
	})

	return result, nil
}

func (r *VersionReconstructor) entryRow(doc domain.Document, entry domain.ChangeLogEntry) domain.Row {
	values := domain.NewSnapshot(r.fields)
	// Later triples for the same field overwrite earlier ones.
	for _, change := range entry.Changed {
		values.Set(change.Field, domain.ValueOf(change.New))
	}

	entryID := entry.ID
	timestamp := entry.Timestamp
	row := domain.Row{
		DocumentID:   doc.ID,
		DocumentName: doc.Label(),
		Label:        entry.ID.String(),
		EntryID:      &entryID,
		Values:       values,
		Author:       entry.Author,
	}
	if !timestamp.IsZero() {
		row.Timestamp = &timestamp
	}
	return row
}

// Diagnose reports every malformed entry of a document.
func Diagnose(documentID uuid.UUID, entries []domain.ChangeLogEntry) []Diagnostic {
	var diagnostics []Diagnostic
	for _, entry := range entries {
		if !entry.Malformed {
			continue
		}
		message := "malformed change-log payload"
		if entry.DecodeError != nil {
			message = entry.DecodeError.Error()
		}
		diagnostics = append(diagnostics, Diagnostic{
			DocumentID: documentID,
			EntryID:    entry.ID,
			Message:    message,
		})
	}
	return diagnostics
}

// Replay applies every entry's new values, oldest first, on top of initial.
// For fields touched by at least one entry the result matches the document's
// current values unless a field was reverted to its original value.
func Replay(initial domain.Snapshot, entries []domain.ChangeLogEntry) domain.Snapshot {
	state := initial.Clone()
	for _, entry := range entries {
		if entry.Malformed {
			continue
		}
		for _, change := range entry.Changed {
			state.Set(change.Field, domain.ValueOf(change.New))
		}
	}
	return state
}
