package seed

import (
	"context"
	"errors"
	"os"
	"strings"
	"testing"

	"github.com/google/uuid"

	"github.com/rpattn/versionaudit/internal/domain"
)

type recordingSchemaRepo struct {
	upserted []domain.DocTypeSchema
}

func (r *recordingSchemaRepo) GetByName(ctx context.Context, name string) (domain.DocTypeSchema, error) {
	return domain.DocTypeSchema{}, domain.NewNotFound("doctype", nil)
}

func (r *recordingSchemaRepo) List(ctx context.Context) ([]domain.DocTypeSchema, error) {
	return r.upserted, nil
}

func (r *recordingSchemaRepo) Upsert(ctx context.Context, schema domain.DocTypeSchema) error {
	r.upserted = append(r.upserted, schema)
	return nil
}

type recordingDocumentRepo struct {
	created []domain.Document
}

func (r *recordingDocumentRepo) List(ctx context.Context, docType string, ids []uuid.UUID) ([]domain.DocumentRef, error) {
	return nil, nil
}

func (r *recordingDocumentRepo) Get(ctx context.Context, docType string, id uuid.UUID) (domain.Document, error) {
	return domain.Document{}, domain.NewNotFound("document", nil)
}

func (r *recordingDocumentRepo) GetByIDs(ctx context.Context, docType string, ids []uuid.UUID) ([]domain.Document, error) {
	return nil, nil
}

func (r *recordingDocumentRepo) Create(ctx context.Context, doc domain.Document) (domain.Document, error) {
	if doc.ID == uuid.Nil {
		doc.ID = uuid.New()
	}
	r.created = append(r.created, doc)
	return doc, nil
}

type recordingChangeLogRepo struct {
	created []domain.RawChangeLog
}

func (r *recordingChangeLogRepo) ListByDocument(ctx context.Context, docType string, documentID uuid.UUID) ([]domain.RawChangeLog, error) {
	return r.created, nil
}

func (r *recordingChangeLogRepo) Create(ctx context.Context, entry domain.RawChangeLog) (domain.RawChangeLog, error) {
	r.created = append(r.created, entry)
	return entry, nil
}

func loadContacts(t *testing.T) Fixtures {
	t.Helper()
	file, err := os.Open("testdata/contacts.yaml")
	if err != nil {
		t.Fatalf("open fixtures: %v", err)
	}
	defer file.Close()
	fixtures, err := Parse(file)
	if err != nil {
		t.Fatalf("Parse returned error: %v", err)
	}
	return fixtures
}

func TestParseContacts(t *testing.T) {
	fixtures := loadContacts(t)
	if len(fixtures.DocTypes) != 1 || len(fixtures.DocTypes[0].Fields) != 4 {
		t.Fatalf("unexpected doctypes %+v", fixtures.DocTypes)
	}
	if fixtures.DocTypes[0].Fields[3].Kind != domain.FieldKindTable {
		t.Fatalf("expected Table field, got %q", fixtures.DocTypes[0].Fields[3].Kind)
	}
	if len(fixtures.Documents) != 1 || len(fixtures.Documents[0].Changes) != 3 {
		t.Fatalf("unexpected documents %+v", fixtures.Documents)
	}
}

func TestParseRejectsUnknownKeys(t *testing.T) {
	_, err := Parse(strings.NewReader("documents:\n  - doctype: Contact\n    colour: red\n"))
	if err == nil {
		t.Fatalf("expected unknown key to be rejected")
	}
}

func TestApplyStoresDocumentsAndDecodablePayloads(t *testing.T) {
	fixtures := loadContacts(t)
	schemas := &recordingSchemaRepo{}
	documents := &recordingDocumentRepo{}
	changeLogs := &recordingChangeLogRepo{}

	summary, err := Apply(context.Background(), fixtures, schemas, documents, changeLogs)
	if err != nil {
		t.Fatalf("Apply returned error: %v", err)
	}
	if summary.DocTypes != 1 || summary.Documents != 1 || summary.ChangeLogs != 3 {
		t.Fatalf("unexpected summary %+v", summary)
	}

	doc := documents.created[0]
	if doc.ID.String() != "3f1c2a64-5b9e-4d7a-9c1e-2b8f0d6a4e11" || doc.CreatedAt.Hour() != 8 {
		t.Fatalf("unexpected document %+v", doc)
	}

	second, err := domain.DecodeChangeLog(changeLogs.created[1])
	if err != nil {
		t.Fatalf("decode seeded payload: %v", err)
	}
	if second.DocumentID != doc.ID || len(second.Changed) != 2 || len(second.RowChanges) != 1 {
		t.Fatalf("unexpected decoded entry %+v", second)
	}
	if second.RowChanges[0].Collection != "phone_nos" || second.RowChanges[0].Changed[0].New != "555-0199" {
		t.Fatalf("unexpected row change %+v", second.RowChanges[0])
	}

	if _, err := domain.DecodeChangeLog(changeLogs.created[2]); !errors.Is(err, domain.ErrMalformedPayload) {
		t.Fatalf("expected verbatim payload to stay malformed, got %v", err)
	}
}

func TestApplyRejectsBadTriple(t *testing.T) {
	fixtures := Fixtures{DocTypes: []domain.DocTypeSchema{{Name: "Contact"}}, Documents: []DocumentFixture{{
		DocType: "Contact",
		Name:    "CONTACT-0002",
		Changes: []ChangeFixture{{Changed: [][]any{{"status", "New"}}}},
	}}}

	_, err := Apply(context.Background(), fixtures, &recordingSchemaRepo{}, &recordingDocumentRepo{}, &recordingChangeLogRepo{})
	if !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("expected invalid input, got %v", err)
	}
}

func TestApplyRejectsDocumentNotMatchingSchema(t *testing.T) {
	fixtures := loadContacts(t)
	delete(fixtures.Documents[0].Fields, "phone")

	documents := &recordingDocumentRepo{}
	_, err := Apply(context.Background(), fixtures, &recordingSchemaRepo{}, documents, &recordingChangeLogRepo{})
	if !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("expected invalid input, got %v", err)
	}
	if len(documents.created) != 0 {
		t.Fatalf("invalid document must not be stored")
	}
}

func TestApplyUnknownDocType(t *testing.T) {
	fixtures := Fixtures{Documents: []DocumentFixture{{DocType: "Lead", Name: "LEAD-0001"}}}
	_, err := Apply(context.Background(), fixtures, &recordingSchemaRepo{}, &recordingDocumentRepo{}, &recordingChangeLogRepo{})
	if !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}
