package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/rpattn/versionaudit/internal/domain"
)

type documentRepository struct {
	db DBTX
}

// NewDocumentRepository creates a document repository
func NewDocumentRepository(db DBTX) DocumentRepository {
	return &documentRepository{db: db}
}

// List retrieves document references of a doctype
func (r *documentRepository) List(ctx context.Context, docType string, ids []uuid.UUID) ([]domain.DocumentRef, error) {
	query := `SELECT id, name FROM documents WHERE doctype = $1 ORDER BY name, id`
	args := []any{docType}
	if len(ids) > 0 {
		query = `SELECT id, name FROM documents WHERE doctype = $1 AND id = ANY($2::uuid[]) ORDER BY name, id`
		args = append(args, uuidStrings(ids))
	}

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list documents: %w", err)
	}
	defer rows.Close()

	refs := []domain.DocumentRef{}
	for rows.Next() {
		var ref domain.DocumentRef
		if err := rows.Scan(&ref.ID, &ref.Name); err != nil {
			return nil, fmt.Errorf("failed to scan document: %w", err)
		}
		refs = append(refs, ref)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate documents: %w", err)
	}
	return refs, nil
}

// Get retrieves one document with all field values
func (r *documentRepository) Get(ctx context.Context, docType string, id uuid.UUID) (domain.Document, error) {
	row := r.db.QueryRow(ctx,
		`SELECT id, doctype, name, fields, owner, created_at
		 FROM documents WHERE doctype = $1 AND id = $2`,
		docType,
		id,
	)
	doc, err := scanDocument(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Document{}, domain.NewNotFound("document "+id.String(), map[string]any{"doctype": docType, "id": id})
		}
		return domain.Document{}, fmt.Errorf("failed to get document: %w", err)
	}
	return doc, nil
}

// GetByIDs retrieves multiple documents by their IDs.
func (r *documentRepository) GetByIDs(ctx context.Context, docType string, ids []uuid.UUID) ([]domain.Document, error) {
	if len(ids) == 0 {
		return []domain.Document{}, nil
	}

	rows, err := r.db.Query(ctx,
		`SELECT id, doctype, name, fields, owner, created_at
		 FROM documents WHERE doctype = $1 AND id = ANY($2::uuid[])`,
		docType,
		uuidStrings(ids),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get documents by IDs: %w", err)
	}
	defer rows.Close()

	docs := make([]domain.Document, 0, len(ids))
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan document: %w", err)
		}
		docs = append(docs, doc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate documents: %w", err)
	}
	return docs, nil
}

// Create inserts a document
func (r *documentRepository) Create(ctx context.Context, doc domain.Document) (domain.Document, error) {
	if doc.ID == uuid.Nil {
		doc.ID = uuid.New()
	}
	if doc.CreatedAt.IsZero() {
		doc.CreatedAt = time.Now().UTC()
	}
	fieldsJSON, err := doc.FieldsAsJSON()
	if err != nil {
		return domain.Document{}, fmt.Errorf("failed to marshal fields: %w", err)
	}

	_, err = r.db.Exec(ctx,
		`INSERT INTO documents (id, doctype, name, fields, owner, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		doc.ID,
		doc.DocType,
		doc.Name,
		fieldsJSON,
		doc.Owner,
		doc.CreatedAt,
	)
	if err != nil {
		return domain.Document{}, fmt.Errorf("failed to create document: %w", err)
	}
	return doc, nil
}

func scanDocument(row pgx.Row) (domain.Document, error) {
	var (
		doc        domain.Document
		fieldsJSON []byte
		owner      pgtype.Text
		createdAt  pgtype.Timestamptz
	)
	if err := row.Scan(&doc.ID, &doc.DocType, &doc.Name, &fieldsJSON, &owner, &createdAt); err != nil {
		return domain.Document{}, err
	}

	fields, err := domain.FieldsFromJSONB(fieldsJSON)
	if err != nil {
		return domain.Document{}, fmt.Errorf("failed to unmarshal fields for document %s: %w", doc.ID, err)
	}
	doc.Fields = fields
	if owner.Valid {
		doc.Owner = owner.String
	}
	if createdAt.Valid {
		doc.CreatedAt = createdAt.Time
	}
	return doc, nil
}

func uuidStrings(ids []uuid.UUID) []string {
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = id.String()
	}
	return out
}
