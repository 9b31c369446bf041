package domain

import (
	"encoding/json"
	"fmt"
)

// FieldKind represents the kind of a field in a doctype schema
type FieldKind string

const (
	FieldKindData     FieldKind = "Data"
	FieldKindInt      FieldKind = "Int"
	FieldKindFloat    FieldKind = "Float"
	FieldKindCheck    FieldKind = "Check"
	FieldKindDate     FieldKind = "Date"
	FieldKindDatetime FieldKind = "Datetime"
	FieldKindLink     FieldKind = "Link"
	FieldKindSelect   FieldKind = "Select"
	FieldKindText     FieldKind = "Text"
	// FieldKindTable marks a nested collection ("child table"). Options names
	// the doctype of the child rows.
	FieldKindTable FieldKind = "Table"

	// Layout-only kinds carry no data.
	FieldKindSectionBreak FieldKind = "Section Break"
	FieldKindColumnBreak  FieldKind = "Column Break"
	FieldKindTabBreak     FieldKind = "Tab Break"
)

var knownFieldKinds = map[FieldKind]struct{}{
	FieldKindData:         {},
	FieldKindInt:          {},
	FieldKindFloat:        {},
	FieldKindCheck:        {},
	FieldKindDate:         {},
	FieldKindDatetime:     {},
	FieldKindLink:         {},
	FieldKindSelect:       {},
	FieldKindText:         {},
	FieldKindTable:        {},
	FieldKindSectionBreak: {},
	FieldKindColumnBreak:  {},
	FieldKindTabBreak:     {},
}

// IsKnown reports whether the kind is one the reports understand.
func (k FieldKind) IsKnown() bool {
	_, ok := knownFieldKinds[k]
	return ok
}

// IsLayoutOnly reports whether the kind is a section, column or tab break.
func (k FieldKind) IsLayoutOnly() bool {
	switch k {
	case FieldKindSectionBreak, FieldKindColumnBreak, FieldKindTabBreak:
		return true
	default:
		return false
	}
}

// FieldDefinition represents a field definition in a doctype schema
type FieldDefinition struct {
	Name    string    `json:"fieldname" yaml:"fieldname"`
	Label   string    `json:"label,omitempty" yaml:"label,omitempty"`
	Kind    FieldKind `json:"fieldtype" yaml:"fieldtype"`
	Options string    `json:"options,omitempty" yaml:"options,omitempty"`
}

// DisplayLabel falls back to the field name when no label is set.
func (f FieldDefinition) DisplayLabel() string {
	if f.Label != "" {
		return f.Label
	}
	return f.Name
}

// DocTypeSchema describes the ordered fields of a document type.
type DocTypeSchema struct {
	Name   string            `json:"name" yaml:"name"`
	Fields []FieldDefinition `json:"fields" yaml:"fields"`
}

// TrackedFields resolves the ordered set of fields eligible for history
// reconstruction. Layout-only fields are dropped.
func (s DocTypeSchema) TrackedFields() FieldSet {
	names := make([]string, 0, len(s.Fields))
	for _, field := range s.Fields {
		if field.Kind.IsLayoutOnly() || field.Name == "" {
			continue
		}
		names = append(names, field.Name)
	}
	return NewFieldSet(names...)
}

// ChildTables returns the nested-collection fields in declaration order.
func (s DocTypeSchema) ChildTables() []FieldDefinition {
	var tables []FieldDefinition
	for _, field := range s.Fields {
		if field.Kind == FieldKindTable {
			tables = append(tables, field)
		}
	}
	return tables
}

// Field looks up a field definition by name.
func (s DocTypeSchema) Field(name string) (FieldDefinition, bool) {
	for _, field := range s.Fields {
		if field.Name == name {
			return field, true
		}
	}
	return FieldDefinition{}, false
}

// FieldsToJSON marshals the field definitions into the JSONB layout stored in Postgres.
func (s DocTypeSchema) FieldsToJSON() (json.RawMessage, error) {
	fields := s.Fields
	if fields == nil {
		fields = []FieldDefinition{}
	}
	return json.Marshal(fields)
}

// FieldsFromJSON unmarshals persisted field definitions.
func FieldsFromJSON(data []byte) ([]FieldDefinition, error) {
	if len(data) == 0 {
		return []FieldDefinition{}, nil
	}
	var fields []FieldDefinition
	if err := json.Unmarshal(data, &fields); err != nil {
		return nil, fmt.Errorf("decode doctype fields: %w", err)
	}
	if fields == nil {
		fields = []FieldDefinition{}
	}
	return fields, nil
}
