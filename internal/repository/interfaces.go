package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/rpattn/versionaudit/internal/domain"
)

// DBTX is satisfied by *pgxpool.Pool and pgx.Tx.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// SchemaRepository resolves doctype field layouts.
type SchemaRepository interface {
	GetByName(ctx context.Context, name string) (domain.DocTypeSchema, error)
	List(ctx context.Context) ([]domain.DocTypeSchema, error)
	Upsert(ctx context.Context, schema domain.DocTypeSchema) error
}

// DocumentRepository loads tracked documents.
type DocumentRepository interface {
	// List returns the documents of docType ordered by name. A non-empty ids
	// restricts the result to those documents.
	List(ctx context.Context, docType string, ids []uuid.UUID) ([]domain.DocumentRef, error)
	Get(ctx context.Context, docType string, id uuid.UUID) (domain.Document, error)
	// GetByIDs returns the documents found; missing ids are omitted.
	GetByIDs(ctx context.Context, docType string, ids []uuid.UUID) ([]domain.Document, error)
	Create(ctx context.Context, doc domain.Document) (domain.Document, error)
}

// ChangeLogRepository reads the change history of documents.
type ChangeLogRepository interface {
	// ListByDocument returns the raw entries of one document, oldest first.
	ListByDocument(ctx context.Context, docType string, documentID uuid.UUID) ([]domain.RawChangeLog, error)
	Create(ctx context.Context, entry domain.RawChangeLog) (domain.RawChangeLog, error)
}
