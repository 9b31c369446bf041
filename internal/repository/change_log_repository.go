package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/rpattn/versionaudit/internal/domain"
)

type changeLogRepository struct {
	db DBTX
}

// NewChangeLogRepository wires a repository backed by pgx.
func NewChangeLogRepository(db DBTX) ChangeLogRepository {
	return &changeLogRepository{db: db}
}

func (r *changeLogRepository) ListByDocument(ctx context.Context, docType string, documentID uuid.UUID) ([]domain.RawChangeLog, error) {
	rows, err := r.db.Query(
		ctx,
		`SELECT id, doctype, document_id, payload, author, created_at
		 FROM change_logs
		 WHERE doctype = $1
		   AND document_id = $2
		 ORDER BY created_at ASC, seq ASC`,
		docType,
		documentID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list change logs: %w", err)
	}
	defer rows.Close()

	logs := []domain.RawChangeLog{}
	for rows.Next() {
		var (
			entry     domain.RawChangeLog
			payload   pgtype.Text
			author    pgtype.Text
			createdAt pgtype.Timestamptz
		)
		if scanErr := rows.Scan(
			&entry.ID,
			&entry.DocType,
			&entry.DocumentID,
			&payload,
			&author,
			&createdAt,
		); scanErr != nil {
			return nil, fmt.Errorf("failed to scan change log: %w", scanErr)
		}

		if payload.Valid {
			entry.Payload = []byte(payload.String)
		}
		if author.Valid {
			entry.Author = author.String
		}
		if createdAt.Valid {
			entry.Timestamp = createdAt.Time
		}

		logs = append(logs, entry)
	}

	if rowsErr := rows.Err(); rowsErr != nil {
		return nil, fmt.Errorf("failed to iterate change logs: %w", rowsErr)
	}

	return logs, nil
}

func (r *changeLogRepository) Create(ctx context.Context, entry domain.RawChangeLog) (domain.RawChangeLog, error) {
	if entry.ID == uuid.Nil {
		entry.ID = uuid.New()
	}
	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now().UTC()
	}

	_, err := r.db.Exec(
		ctx,
		`INSERT INTO change_logs (id, doctype, document_id, payload, author, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		entry.ID,
		entry.DocType,
		entry.DocumentID,
		string(entry.Payload),
		entry.Author,
		entry.Timestamp,
	)
	if err != nil {
		return domain.RawChangeLog{}, fmt.Errorf("failed to record change log: %w", err)
	}
	return entry, nil
}
