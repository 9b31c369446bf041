package audit

import (
	"reflect"
	"testing"

	"github.com/rpattn/versionaudit/internal/domain"
)

func TestPruneFieldsAcrossDocuments(t *testing.T) {
	fields := domain.NewFieldSet("status", "notes", "email", "phone")
	r := NewVersionReconstructor(fields)

	first, err := r.BuildRows(contact(map[string]any{"status": "Open", "notes": "", "email": nil, "phone": nil}),
		[]domain.ChangeLogEntry{changed(0, change("status", "New", "Open"))})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	second, err := r.BuildRows(contact(map[string]any{"status": nil, "notes": "", "email": nil, "phone": "555"}), nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	rows := append(append([]domain.Row{}, first.Rows...), second.Rows...)
	pruned := PruneFields(fields, rows)

	want := []string{"status", "phone"}
	if !reflect.DeepEqual(pruned.Names(), want) {
		t.Fatalf("expected %v, got %v", want, pruned.Names())
	}

	again := PruneFields(pruned, rows)
	if !reflect.DeepEqual(again.Names(), pruned.Names()) {
		t.Fatalf("pruning is not idempotent: %v vs %v", again.Names(), pruned.Names())
	}
}
