package domain

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Document is a tracked record with its current field values.
type Document struct {
	ID        uuid.UUID      `json:"id" yaml:"id"`
	DocType   string         `json:"doctype" yaml:"doctype"`
	Name      string         `json:"name" yaml:"name"`
	Fields    map[string]any `json:"fields" yaml:"fields"`
	Owner     string         `json:"owner,omitempty" yaml:"owner,omitempty"`
	CreatedAt time.Time      `json:"created_at" yaml:"created_at"`
}

// DocumentRef identifies a document without loading its fields.
type DocumentRef struct {
	ID   uuid.UUID
	Name string
}

// Ref returns the lightweight reference for d.
func (d Document) Ref() DocumentRef {
	return DocumentRef{ID: d.ID, Name: d.Name}
}

// Label returns the name used in report rows, falling back to the id.
func (d Document) Label() string {
	if d.Name != "" {
		return d.Name
	}
	return d.ID.String()
}

// FieldsAsJSON marshals the field values for JSONB storage.
func (d Document) FieldsAsJSON() (json.RawMessage, error) {
	fields := d.Fields
	if fields == nil {
		fields = map[string]any{}
	}
	return json.Marshal(fields)
}

// FieldsFromJSONB decodes stored field values.
func FieldsFromJSONB(data json.RawMessage) (map[string]any, error) {
	fields := map[string]any{}
	if len(data) == 0 {
		return fields, nil
	}
	if err := json.Unmarshal(data, &fields); err != nil {
		return nil, err
	}
	return fields, nil
}
