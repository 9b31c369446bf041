package validator

import (
	"errors"
	"testing"

	"github.com/rpattn/versionaudit/internal/domain"
)

func TestValidateSchema_AllowsLayoutFieldsWithoutNames(t *testing.T) {
	schema := domain.DocTypeSchema{
		Name: "Contact",
		Fields: []domain.FieldDefinition{
			{Name: "first_name", Kind: domain.FieldKindData},
			{Kind: domain.FieldKindSectionBreak},
			{Kind: domain.FieldKindColumnBreak},
			{Name: "phone_nos", Kind: domain.FieldKindTable, Options: "Contact Phone"},
		},
	}

	if err := ValidateSchema(schema); err != nil {
		t.Fatalf("expected validation to pass, got error: %v", err)
	}
}

func TestValidateSchema_RejectsDuplicateFields(t *testing.T) {
	schema := domain.DocTypeSchema{
		Name: "Contact",
		Fields: []domain.FieldDefinition{
			{Name: "status", Kind: domain.FieldKindSelect},
			{Name: "status", Kind: domain.FieldKindData},
		},
	}

	err := ValidateSchema(schema)
	if err == nil {
		t.Fatalf("expected duplicate field error")
	}
	if !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("expected invalid input error, got %v", err)
	}
}

func TestValidateSchema_RejectsUnknownKind(t *testing.T) {
	schema := domain.DocTypeSchema{
		Name:   "Contact",
		Fields: []domain.FieldDefinition{{Name: "geo", Kind: "Geolocation"}},
	}

	if err := ValidateSchema(schema); err == nil {
		t.Fatalf("expected unknown kind to be rejected")
	}
}

func TestValidateSchema_TableRequiresOptions(t *testing.T) {
	schema := domain.DocTypeSchema{
		Name:   "Contact",
		Fields: []domain.FieldDefinition{{Name: "phone_nos", Kind: domain.FieldKindTable}},
	}

	if err := ValidateSchema(schema); err == nil {
		t.Fatalf("expected child table without options to be rejected")
	}
}

func TestValidateSchema_RequiresName(t *testing.T) {
	if err := ValidateSchema(domain.DocTypeSchema{}); err == nil {
		t.Fatalf("expected missing doctype name to be rejected")
	}
}
