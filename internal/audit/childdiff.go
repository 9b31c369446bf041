package audit

import (
	"strconv"

	"github.com/rpattn/versionaudit/internal/domain"
)

// ChildRowDiffExtractor projects the row changes of one nested collection
// into flat diff records.
type ChildRowDiffExtractor struct {
	Collection string
	// RowFilter, when set, matches the row index or the row name.
	RowFilter string
}

// NewChildRowDiffExtractor scopes an extractor to collection.
func NewChildRowDiffExtractor(collection, rowFilter string) ChildRowDiffExtractor {
	return ChildRowDiffExtractor{Collection: collection, RowFilter: rowFilter}
}

// Extract emits one record per changed field of every matching row, in
// entry order.
func (x ChildRowDiffExtractor) Extract(doc domain.DocumentRef, entries []domain.ChangeLogEntry) []domain.ChildRowDiff {
	var diffs []domain.ChildRowDiff
	for _, entry := range entries {
		for _, rowChange := range entry.RowChanges {
			if rowChange.Collection != x.Collection || !x.matchesRow(rowChange) {
				continue
			}
			for _, change := range rowChange.Changed {
				diffs = append(diffs, domain.ChildRowDiff{
					DocumentID:   doc.ID,
					DocumentName: refLabel(doc),
					EntryID:      entry.ID,
					Collection:   rowChange.Collection,
					RowIndex:     rowChange.RowIndex,
					RowName:      rowChange.RowName,
					Field:        change.Field,
					Old:          change.Old,
					New:          change.New,
					Author:       entry.Author,
					Timestamp:    entry.Timestamp,
				})
			}
		}
	}
	return diffs
}

func (x ChildRowDiffExtractor) matchesRow(rowChange domain.RowChange) bool {
	if x.RowFilter == "" {
		return true
	}
	return x.RowFilter == strconv.Itoa(rowChange.RowIndex) || x.RowFilter == rowChange.RowName
}

func refLabel(doc domain.DocumentRef) string {
	if doc.Name != "" {
		return doc.Name
	}
	return doc.ID.String()
}
