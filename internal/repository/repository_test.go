package repository

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/rpattn/versionaudit/internal/domain"
)

type fakeRow struct {
	err    error
	values []any
}

func (r fakeRow) Scan(dest ...any) error {
	if r.err != nil {
		return r.err
	}
	for i, value := range r.values {
		switch target := dest[i].(type) {
		case *[]byte:
			*target = value.([]byte)
		default:
			return errors.New("unsupported scan target")
		}
	}
	return nil
}

type fakeDB struct {
	row   fakeRow
	execs int
}

func (f *fakeDB) Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	f.execs++
	return pgconn.NewCommandTag("INSERT 0 1"), nil
}

func (f *fakeDB) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	return nil, errors.New("not used")
}

func (f *fakeDB) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	return f.row
}

func TestSchemaRepositoryGetByNameNotFound(t *testing.T) {
	repo := NewSchemaRepository(&fakeDB{row: fakeRow{err: pgx.ErrNoRows}})
	_, err := repo.GetByName(context.Background(), "Lead")
	if !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestSchemaRepositoryGetByNameDecodesFields(t *testing.T) {
	fields := []byte(`[{"fieldname":"status","label":"Status","fieldtype":"Select"},{"fieldname":"phone_nos","fieldtype":"Table","options":"Contact Phone"}]`)
	repo := NewSchemaRepository(&fakeDB{row: fakeRow{values: []any{fields}}})

	schema, err := repo.GetByName(context.Background(), "Contact")
	if err != nil {
		t.Fatalf("GetByName returned error: %v", err)
	}
	if schema.Name != "Contact" || len(schema.Fields) != 2 || schema.Fields[1].Kind != domain.FieldKindTable {
		t.Fatalf("unexpected schema %+v", schema)
	}
}

func TestSchemaRepositoryUpsertValidatesFirst(t *testing.T) {
	db := &fakeDB{}
	repo := NewSchemaRepository(db)
	err := repo.Upsert(context.Background(), domain.DocTypeSchema{
		Name:   "Contact",
		Fields: []domain.FieldDefinition{{Name: "phone_nos", Kind: domain.FieldKindTable}},
	})
	if !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("expected invalid input, got %v", err)
	}
	if db.execs != 0 {
		t.Fatalf("invalid schema must not reach the database")
	}
}

func TestDocumentRepositoryGetNotFound(t *testing.T) {
	repo := NewDocumentRepository(&fakeDB{row: fakeRow{err: pgx.ErrNoRows}})
	_, err := repo.Get(context.Background(), "Contact", uuid.New())
	if !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestUUIDStrings(t *testing.T) {
	id := uuid.MustParse("3f1c2a64-5b9e-4d7a-9c1e-2b8f0d6a4e11")
	got := uuidStrings([]uuid.UUID{id})
	if len(got) != 1 || got[0] != "3f1c2a64-5b9e-4d7a-9c1e-2b8f0d6a4e11" {
		t.Fatalf("unexpected strings %v", got)
	}
}
