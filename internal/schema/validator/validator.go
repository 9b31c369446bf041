package validator

import (
	"fmt"
	"strings"

	"github.com/rpattn/versionaudit/internal/domain"
)

// ValidateSchema ensures doctype field definitions can be tracked: data
// fields need a unique name, every kind must be known, and child tables must
// name the doctype of their rows.
func ValidateSchema(schema domain.DocTypeSchema) error {
	if strings.TrimSpace(schema.Name) == "" {
		return domain.NewInvalidInput("doctype name is required", nil)
	}

	seen := make(map[string]struct{}, len(schema.Fields))
	for i, field := range schema.Fields {
		if !field.Kind.IsKnown() {
			return domain.NewInvalidInput(
				fmt.Sprintf("field %q of doctype %s has unknown fieldtype %q", field.Name, schema.Name, field.Kind),
				map[string]any{"doctype": schema.Name, "field": field.Name},
			)
		}

		if field.Kind.IsLayoutOnly() {
			continue
		}

		name := strings.TrimSpace(field.Name)
		if name == "" {
			return domain.NewInvalidInput(
				fmt.Sprintf("field %d of doctype %s has no fieldname", i, schema.Name),
				map[string]any{"doctype": schema.Name},
			)
		}
		if _, dup := seen[name]; dup {
			return domain.NewInvalidInput(
				fmt.Sprintf("doctype %s declares field %s more than once", schema.Name, name),
				map[string]any{"doctype": schema.Name, "field": name},
			)
		}
		seen[name] = struct{}{}

		if field.Kind == domain.FieldKindTable && strings.TrimSpace(field.Options) == "" {
			return domain.NewInvalidInput(
				fmt.Sprintf("child table %s of doctype %s must name its row doctype in options", name, schema.Name),
				map[string]any{"doctype": schema.Name, "field": name},
			)
		}
	}

	return nil
}
