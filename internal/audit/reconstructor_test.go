package audit

import (
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/rpattn/versionaudit/internal/domain"
)

var baseTime = time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)

func entryWith(offset int, keys []domain.ChangeKey, changes ...domain.FieldChange) domain.ChangeLogEntry {
	return domain.ChangeLogEntry{
		ID:        uuid.New(),
		Changed:   changes,
		Keys:      keys,
		Author:    "editor@example.com",
		Timestamp: baseTime.Add(time.Duration(offset) * time.Hour),
	}
}

func changed(offset int, changes ...domain.FieldChange) domain.ChangeLogEntry {
	return entryWith(offset, []domain.ChangeKey{domain.ChangeKeyChanged}, changes...)
}

func change(field string, from, to any) domain.FieldChange {
	return domain.FieldChange{Field: field, Old: from, New: to}
}

func contact(fields map[string]any) domain.Document {
	return domain.Document{
		ID:        uuid.New(),
		DocType:   "Contact",
		Name:      "CONT-0001",
		Fields:    fields,
		Owner:     "owner@example.com",
		CreatedAt: baseTime.Add(-24 * time.Hour),
	}
}

func mustGet(t *testing.T, snapshot domain.Snapshot, field string) domain.FieldValue {
	t.Helper()
	value, ok := snapshot.Get(field)
	if !ok {
		t.Fatalf("field %q not tracked", field)
	}
	return value
}

func TestReconstructInitialValuesSubstitutesOldValue(t *testing.T) {
	r := NewVersionReconstructor(domain.NewFieldSet("Status"))
	entries := []domain.ChangeLogEntry{changed(0, change("Status", "New", "Open"))}

	initial, err := r.ReconstructInitialValues(map[string]any{"Status": "Open"}, entries)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	got := mustGet(t, initial, "Status")
	if !got.Equal(domain.ValueOf("New")) {
		t.Fatalf("expected initial Status New, got %#v", got)
	}
}

func TestReconstructInitialValuesEarliestEntryWins(t *testing.T) {
	r := NewVersionReconstructor(domain.NewFieldSet("status", "priority"))
	entries := []domain.ChangeLogEntry{
		changed(0, change("status", "Draft", "Open")),
		changed(1, change("status", "Open", "Closed"), change("priority", "Low", "High")),
	}

	initial, err := r.ReconstructInitialValues(map[string]any{"status": "Closed", "priority": "High"}, entries)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if got := mustGet(t, initial, "status"); !got.Equal(domain.ValueOf("Draft")) {
		t.Errorf("expected status Draft, got %#v", got)
	}
	if got := mustGet(t, initial, "priority"); !got.Equal(domain.ValueOf("Low")) {
		t.Errorf("expected priority Low, got %#v", got)
	}
}

func TestReconstructInitialValuesNoOpEditsKeepCurrent(t *testing.T) {
	r := NewVersionReconstructor(domain.NewFieldSet("status"))
	entries := []domain.ChangeLogEntry{
		changed(0, change("status", "Open", "Open")),
		changed(1, change("status", "Open", "Open")),
	}

	initial, err := r.ReconstructInitialValues(map[string]any{"status": "Open"}, entries)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := mustGet(t, initial, "status"); !got.Equal(domain.ValueOf("Open")) {
		t.Fatalf("expected status to stay Open, got %#v", got)
	}
}

func TestReconstructInitialValuesIgnoresUntrackedFields(t *testing.T) {
	r := NewVersionReconstructor(domain.NewFieldSet("status"))
	entries := []domain.ChangeLogEntry{changed(0, change("modified_by", "a", "b"))}

	initial, err := r.ReconstructInitialValues(map[string]any{"status": "Open"}, entries)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := initial.Get("modified_by"); ok {
		t.Fatalf("untracked field must not appear in snapshot")
	}
}

func TestReconstructInitialValuesMissingTrackedField(t *testing.T) {
	r := NewVersionReconstructor(domain.NewFieldSet("status", "email"))

	_, err := r.ReconstructInitialValues(map[string]any{"status": "Open"}, nil)
	if err == nil {
		t.Fatalf("expected error for missing tracked field")
	}
	if !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("expected invalid input error, got %v", err)
	}
}

func TestBuildRowsWithoutHistory(t *testing.T) {
	r := NewVersionReconstructor(domain.NewFieldSet("first_name", "email"))
	doc := contact(map[string]any{"first_name": "Ada", "email": nil})

	result, err := r.BuildRows(doc, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(result.Rows) != 2 {
		t.Fatalf("expected initial and current rows only, got %d", len(result.Rows))
	}

	initial, current := result.Rows[0], result.Rows[1]
	if initial.Label != domain.LabelInitialValue || current.Label != domain.LabelCurrentValue {
		t.Fatalf("unexpected labels %q / %q", initial.Label, current.Label)
	}
	for _, field := range []string{"first_name", "email"} {
		if !mustGet(t, initial.Values, field).Equal(mustGet(t, current.Values, field)) {
			t.Errorf("field %s differs between initial and current rows", field)
		}
	}
	if initial.Author != doc.Owner {
		t.Errorf("expected initial author %q, got %q", doc.Owner, initial.Author)
	}
	if initial.Timestamp == nil || !initial.Timestamp.Equal(doc.CreatedAt) {
		t.Errorf("expected initial timestamp %v, got %v", doc.CreatedAt, initial.Timestamp)
	}
	if current.AuthorLabel() != domain.NoAuthor || current.TimestampLabel() != domain.NoTimestamp {
		t.Errorf("expected sentinels on current row, got %q / %v", current.AuthorLabel(), current.TimestampLabel())
	}
}

func TestBuildRowsIntermediateRows(t *testing.T) {
	r := NewVersionReconstructor(domain.NewFieldSet("status", "email"))
	doc := contact(map[string]any{"status": "Closed", "email": "ada@example.com"})
	first := changed(0, change("status", "Open", "Closed"))
	second := changed(1, change("email", "", "ada@example.com"))
	entries := []domain.ChangeLogEntry{first, second}

	result, err := r.BuildRows(doc, entries)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(result.Rows) != 4 {
		t.Fatalf("expected 4 rows, got %d", len(result.Rows))
	}

	row := result.Rows[1]
	if row.Label != first.ID.String() {
		t.Fatalf("expected label %s, got %s", first.ID, row.Label)
	}
	if row.EntryID == nil || *row.EntryID != first.ID {
		t.Fatalf("expected entry id %s", first.ID)
	}
	if got := mustGet(t, row.Values, "status"); !got.Equal(domain.ValueOf("Closed")) {
		t.Errorf("expected status Closed, got %#v", got)
	}
	if got := mustGet(t, row.Values, "email"); !got.IsUnchanged() {
		t.Errorf("expected email unchanged, got %#v", got)
	}
	if row.Author != first.Author || row.Timestamp == nil || !row.Timestamp.Equal(first.Timestamp) {
		t.Errorf("unexpected author/timestamp %q %v", row.Author, row.Timestamp)
	}

	initial := result.Rows[0]
	if got := mustGet(t, initial.Values, "email"); !got.Equal(domain.ValueOf("")) {
		t.Errorf("expected initial email to be the empty string, got %#v", got)
	}
	if got := mustGet(t, initial.Values, "email"); got.IsUnchanged() {
		t.Errorf("empty string must stay distinct from the no-change sentinel")
	}
}

func TestBuildRowsSkipsNonSubstantiveEntries(t *testing.T) {
	r := NewVersionReconstructor(domain.NewFieldSet("status"))
	doc := contact(map[string]any{"status": "Open"})
	entries := []domain.ChangeLogEntry{
		entryWith(0, nil),
		entryWith(1, []domain.ChangeKey{domain.ChangeKeyRowChanged}),
		entryWith(2, []domain.ChangeKey{domain.ChangeKeyDataImport}),
	}

	result, err := r.BuildRows(doc, entries)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(result.Rows) != 4 {
		t.Fatalf("expected 4 rows, got %d", len(result.Rows))
	}
	for _, row := range result.Rows {
		if row.EntryID != nil && *row.EntryID == entries[0].ID {
			t.Fatalf("entry without recognized keys produced a row")
		}
	}
	if got := mustGet(t, result.Rows[1].Values, "status"); !got.IsUnchanged() {
		t.Errorf("row change entry should leave top-level fields unchanged, got %#v", got)
	}
}

func TestBuildRowsSkipsMalformedEntries(t *testing.T) {
	r := NewVersionReconstructor(domain.NewFieldSet("status"))
	doc := contact(map[string]any{"status": "Open"})
	bad, _ := domain.DecodeChangeLog(domain.RawChangeLog{ID: uuid.New(), Payload: []byte(`{"changed": [`)})
	entries := []domain.ChangeLogEntry{bad, changed(1, change("status", "New", "Open"))}

	result, err := r.BuildRows(doc, entries)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(result.Rows) != 3 {
		t.Fatalf("expected 3 rows, got %d", len(result.Rows))
	}
	if len(result.Diagnostics) != 1 || result.Diagnostics[0].EntryID != bad.ID {
		t.Fatalf("expected one diagnostic for the malformed entry, got %+v", result.Diagnostics)
	}
	if got := mustGet(t, result.Rows[0].Values, "status"); !got.Equal(domain.ValueOf("New")) {
		t.Errorf("expected initial status New, got %#v", got)
	}
}

func TestBuildRowsDuplicateFieldLastTripleWins(t *testing.T) {
	r := NewVersionReconstructor(domain.NewFieldSet("status"))
	doc := contact(map[string]any{"status": "Closed"})
	entries := []domain.ChangeLogEntry{
		changed(0, change("status", "New", "Open"), change("status", "Open", "Closed")),
	}

	result, err := r.BuildRows(doc, entries)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := mustGet(t, result.Rows[1].Values, "status"); !got.Equal(domain.ValueOf("Closed")) {
		t.Fatalf("expected last triple to win, got %#v", got)
	}
	if got := mustGet(t, result.Rows[0].Values, "status"); !got.Equal(domain.ValueOf("New")) {
		t.Fatalf("expected initial status New, got %#v", got)
	}
}

func TestBuildRowsMissingTrackedField(t *testing.T) {
	r := NewVersionReconstructor(domain.NewFieldSet("status"))
	doc := contact(map[string]any{})

	if _, err := r.BuildRows(doc, nil); !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("expected invalid input error, got %v", err)
	}
}

func TestReplayReproducesCurrentValues(t *testing.T) {
	fields := domain.NewFieldSet("status", "priority", "score", "email")
	current := map[string]any{"status": "Closed", "priority": "High", "score": float64(7), "email": "x@example.com"}
	entries := []domain.ChangeLogEntry{
		changed(0, change("status", "New", "Open"), change("score", float64(1), float64(3))),
		changed(1, change("priority", "Low", "Medium")),
		changed(2, change("status", "Open", "Closed"), change("score", float64(3), float64(7))),
		changed(3, change("priority", "Medium", "High")),
	}
	r := NewVersionReconstructor(fields)

	initial, err := r.ReconstructInitialValues(current, entries)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	replayed := Replay(initial, entries)
	want, err := domain.SnapshotFromValues(fields, current)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	for _, field := range fields.Names() {
		if !mustGet(t, replayed, field).Equal(mustGet(t, want, field)) {
			t.Errorf("replay of %s = %#v, want %#v", field, mustGet(t, replayed, field), mustGet(t, want, field))
		}
	}
	if got := mustGet(t, initial, "score"); !got.Equal(domain.ValueOf(1)) {
		t.Errorf("expected initial score 1, got %#v", got)
	}
}
