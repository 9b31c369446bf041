package audit

import "github.com/rpattn/versionaudit/internal/domain"

// FieldChangeLog flattens every top-level field change of doc. When fields
// is non-empty only those fields are kept.
func FieldChangeLog(doc domain.DocumentRef, entries []domain.ChangeLogEntry, fields ...string) []domain.FieldChangeRecord {
	var filter domain.FieldSet
	if len(fields) > 0 {
		filter = domain.NewFieldSet(fields...)
	}

	var records []domain.FieldChangeRecord
	for _, entry := range entries {
		for _, change := range entry.Changed {
			if filter.Len() > 0 && !filter.Contains(change.Field) {
				continue
			}
			records = append(records, domain.FieldChangeRecord{
				DocumentID:   doc.ID,
				DocumentName: refLabel(doc),
				EntryID:      entry.ID,
				Field:        change.Field,
				Old:          change.Old,
				New:          change.New,
				Author:       entry.Author,
				Timestamp:    entry.Timestamp,
			})
		}
	}
	return records
}
