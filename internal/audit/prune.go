package audit

import "github.com/rpattn/versionaudit/internal/domain"

// PruneFields keeps the tracked fields that show real content somewhere in
// rows. It must run once over the rows of every document in a batch.
func PruneFields(fields domain.FieldSet, rows []domain.Row) domain.FieldSet {
	return fields.Subset(func(name string) bool {
		for _, row := range rows {
			value, ok := row.Values.Get(name)
			if ok && !value.IsBlank() {
				return true
			}
		}
		return false
	})
}
