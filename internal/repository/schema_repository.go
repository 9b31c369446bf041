package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/rpattn/versionaudit/internal/domain"
	"github.com/rpattn/versionaudit/internal/schema/validator"
)

type schemaRepository struct {
	db DBTX
}

// NewSchemaRepository creates a doctype schema repository
func NewSchemaRepository(db DBTX) SchemaRepository {
	return &schemaRepository{db: db}
}

// GetByName retrieves a doctype schema by name
func (r *schemaRepository) GetByName(ctx context.Context, name string) (domain.DocTypeSchema, error) {
	var fieldsJSON []byte
	err := r.db.QueryRow(ctx,
		`SELECT fields FROM doctypes WHERE name = $1`,
		name,
	).Scan(&fieldsJSON)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.DocTypeSchema{}, domain.NewNotFound("doctype "+name, map[string]any{"doctype": name})
		}
		return domain.DocTypeSchema{}, fmt.Errorf("failed to get doctype schema: %w", err)
	}

	return mapSchemaRow(name, fieldsJSON)
}

// List retrieves every doctype schema ordered by name
func (r *schemaRepository) List(ctx context.Context) ([]domain.DocTypeSchema, error) {
	rows, err := r.db.Query(ctx, `SELECT name, fields FROM doctypes ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("failed to list doctype schemas: %w", err)
	}
	defer rows.Close()

	schemas := []domain.DocTypeSchema{}
	for rows.Next() {
		var (
			name       string
			fieldsJSON []byte
		)
		if err := rows.Scan(&name, &fieldsJSON); err != nil {
			return nil, fmt.Errorf("failed to scan doctype schema: %w", err)
		}
		schema, err := mapSchemaRow(name, fieldsJSON)
		if err != nil {
			return nil, err
		}
		schemas = append(schemas, schema)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate doctype schemas: %w", err)
	}
	return schemas, nil
}

// Upsert validates and stores a doctype schema
func (r *schemaRepository) Upsert(ctx context.Context, schema domain.DocTypeSchema) error {
	if err := validator.ValidateSchema(schema); err != nil {
		return err
	}
	fieldsJSON, err := schema.FieldsToJSON()
	if err != nil {
		return fmt.Errorf("failed to marshal fields: %w", err)
	}

	_, err = r.db.Exec(ctx,
		`INSERT INTO doctypes (name, fields) VALUES ($1, $2)
		 ON CONFLICT (name) DO UPDATE SET fields = EXCLUDED.fields, updated_at = NOW()`,
		schema.Name,
		fieldsJSON,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert doctype schema: %w", err)
	}
	return nil
}

func mapSchemaRow(name string, fieldsJSON []byte) (domain.DocTypeSchema, error) {
	fields, err := domain.FieldsFromJSON(fieldsJSON)
	if err != nil {
		return domain.DocTypeSchema{}, fmt.Errorf("failed to unmarshal fields for doctype %s: %w", name, err)
	}
	schema := domain.DocTypeSchema{Name: name, Fields: fields}
	if err := validator.ValidateSchema(schema); err != nil {
		return domain.DocTypeSchema{}, err
	}
	return schema, nil
}
