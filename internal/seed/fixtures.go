// Package seed loads doctypes, documents and change logs from YAML fixtures.
package seed

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"github.com/rpattn/versionaudit/internal/domain"
	"github.com/rpattn/versionaudit/internal/repository"
	"github.com/rpattn/versionaudit/pkg/validator"
)

// Fixtures is the top-level layout of a fixtures file.
type Fixtures struct {
	DocTypes  []domain.DocTypeSchema `yaml:"doctypes"`
	Documents []DocumentFixture      `yaml:"documents"`
}

// DocumentFixture is a document with its change history, oldest first.
type DocumentFixture struct {
	ID        string          `yaml:"id"`
	DocType   string          `yaml:"doctype"`
	Name      string          `yaml:"name"`
	Owner     string          `yaml:"owner"`
	CreatedAt string          `yaml:"created_at"`
	Fields    map[string]any  `yaml:"fields"`
	Changes   []ChangeFixture `yaml:"changes"`
}

// ChangeFixture describes one change-log entry. Payload, when set, is stored
// verbatim; otherwise the payload is built from the structured keys.
type ChangeFixture struct {
	ID         string             `yaml:"id"`
	Author     string             `yaml:"author"`
	Timestamp  string             `yaml:"timestamp"`
	Payload    string             `yaml:"payload"`
	Changed    [][]any            `yaml:"changed"`
	RowChanged []RowChangeFixture `yaml:"row_changed"`
	DataImport bool               `yaml:"data_import"`
}

// RowChangeFixture is a change to one nested row.
type RowChangeFixture struct {
	ParentField string  `yaml:"parentfield"`
	Idx         int     `yaml:"idx"`
	Name        string  `yaml:"name"`
	Changed     [][]any `yaml:"changed"`
}

// Summary counts what Apply stored.
type Summary struct {
	DocTypes   int
	Documents  int
	ChangeLogs int
}

// Parse decodes a fixtures file.
func Parse(r io.Reader) (Fixtures, error) {
	var fixtures Fixtures
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&fixtures); err != nil {
		if errors.Is(err, io.EOF) {
			return Fixtures{}, nil
		}
		return Fixtures{}, fmt.Errorf("decode fixtures: %w", err)
	}
	return fixtures, nil
}

// Apply stores fixtures through the repositories. Documents must match their
// doctype schema, taken from the fixtures or the repository. Callers wanting
// all-or-nothing semantics pass transaction-bound repositories.
func Apply(
	ctx context.Context,
	fixtures Fixtures,
	schemas repository.SchemaRepository,
	documents repository.DocumentRepository,
	changeLogs repository.ChangeLogRepository,
) (Summary, error) {
	var summary Summary
	known := make(map[string]domain.DocTypeSchema, len(fixtures.DocTypes))
	for _, schema := range fixtures.DocTypes {
		if err := schemas.Upsert(ctx, schema); err != nil {
			return summary, fmt.Errorf("seed doctype %s: %w", schema.Name, err)
		}
		known[schema.Name] = schema
		summary.DocTypes++
	}

	fieldValidator := validator.NewJSONBValidator()
	for i, fixture := range fixtures.Documents {
		doc, err := fixture.document()
		if err != nil {
			return summary, fmt.Errorf("document %d: %w", i+1, err)
		}
		schema, ok := known[doc.DocType]
		if !ok {
			if schema, err = schemas.GetByName(ctx, doc.DocType); err != nil {
				return summary, fmt.Errorf("document %s: %w", doc.Name, err)
			}
			known[doc.DocType] = schema
		}
		if err := fieldValidator.ValidateFields(schema, doc.Fields).Err(); err != nil {
			return summary, fmt.Errorf("document %s: %w", doc.Name, err)
		}
		created, err := documents.Create(ctx, doc)
		if err != nil {
			return summary, fmt.Errorf("seed document %s: %w", doc.Name, err)
		}
		summary.Documents++

		for j, change := range fixture.Changes {
			entry, err := change.rawChangeLog(created)
			if err != nil {
				return summary, fmt.Errorf("document %s change %d: %w", created.Name, j+1, err)
			}
			if _, err := changeLogs.Create(ctx, entry); err != nil {
				return summary, fmt.Errorf("seed change log for %s: %w", created.Name, err)
			}
			summary.ChangeLogs++
		}
	}
	return summary, nil
}

func (f DocumentFixture) document() (domain.Document, error) {
	if strings.TrimSpace(f.DocType) == "" {
		return domain.Document{}, domain.NewInvalidInput("doctype is required", nil)
	}
	id, err := parseOptionalUUID(f.ID)
	if err != nil {
		return domain.Document{}, err
	}
	createdAt, err := parseOptionalTime(f.CreatedAt)
	if err != nil {
		return domain.Document{}, err
	}
	fields := f.Fields
	if fields == nil {
		fields = map[string]any{}
	}
	return domain.Document{
		ID:        id,
		DocType:   f.DocType,
		Name:      f.Name,
		Fields:    fields,
		Owner:     f.Owner,
		CreatedAt: createdAt,
	}, nil
}

func (c ChangeFixture) rawChangeLog(doc domain.Document) (domain.RawChangeLog, error) {
	id, err := parseOptionalUUID(c.ID)
	if err != nil {
		return domain.RawChangeLog{}, err
	}
	timestamp, err := parseOptionalTime(c.Timestamp)
	if err != nil {
		return domain.RawChangeLog{}, err
	}

	payload := []byte(c.Payload)
	if strings.TrimSpace(c.Payload) == "" {
		entry := domain.ChangeLogEntry{DataImport: c.DataImport}
		if entry.Changed, err = fieldChanges(c.Changed); err != nil {
			return domain.RawChangeLog{}, err
		}
		for _, row := range c.RowChanged {
			changed, err := fieldChanges(row.Changed)
			if err != nil {
				return domain.RawChangeLog{}, fmt.Errorf("row %d: %w", row.Idx, err)
			}
			entry.RowChanges = append(entry.RowChanges, domain.RowChange{
				Collection: row.ParentField,
				RowIndex:   row.Idx,
				RowName:    row.Name,
				Changed:    changed,
			})
		}
		if payload, err = domain.EncodeChangeLogPayload(entry); err != nil {
			return domain.RawChangeLog{}, fmt.Errorf("encode payload: %w", err)
		}
	}

	return domain.RawChangeLog{
		ID:         id,
		DocType:    doc.DocType,
		DocumentID: doc.ID,
		Payload:    payload,
		Author:     c.Author,
		Timestamp:  timestamp,
	}, nil
}

func fieldChanges(triples [][]any) ([]domain.FieldChange, error) {
	changes := make([]domain.FieldChange, 0, len(triples))
	for _, triple := range triples {
		if len(triple) != 3 {
			return nil, domain.NewInvalidInput(
				fmt.Sprintf("change must be [field, old, new], got %d elements", len(triple)),
				nil,
			)
		}
		field, ok := triple[0].(string)
		if !ok {
			return nil, domain.NewInvalidInput(fmt.Sprintf("field name must be a string, got %T", triple[0]), nil)
		}
		changes = append(changes, domain.FieldChange{Field: field, Old: triple[1], New: triple[2]})
	}
	return changes, nil
}

func parseOptionalUUID(raw string) (uuid.UUID, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return uuid.Nil, nil
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, domain.NewInvalidInput(fmt.Sprintf("invalid id %q", raw), nil)
	}
	return id, nil
}

func parseOptionalTime(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, nil
	}
	for _, layout := range []string{time.RFC3339, time.DateTime} {
		if ts, err := time.Parse(layout, raw); err == nil {
			return ts.UTC(), nil
		}
	}
	return time.Time{}, domain.NewInvalidInput(fmt.Sprintf("invalid timestamp %q", raw), nil)
}
