package docloader

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/graph-gophers/dataloader"

	"github.com/rpattn/versionaudit/internal/domain"
	"github.com/rpattn/versionaudit/internal/repository"
)

// DocumentLoader batches document loads of one doctype. Concurrent Load
// calls issued within the wait window share a single GetByIDs query.
type DocumentLoader struct {
	docType string
	loader  *dataloader.Loader
}

// Option customizes the loader.
type Option func(*settings)

type settings struct {
	wait     time.Duration
	capacity int
}

// WithWait sets how long the loader collects keys before querying.
func WithWait(wait time.Duration) Option {
	return func(s *settings) {
		if wait > 0 {
			s.wait = wait
		}
	}
}

// WithBatchCapacity caps the number of ids per query.
func WithBatchCapacity(capacity int) Option {
	return func(s *settings) {
		if capacity > 0 {
			s.capacity = capacity
		}
	}
}

// NewDocumentLoader creates a loader for docType. Loaders cache results and
// are meant to live for a single report.
func NewDocumentLoader(repo repository.DocumentRepository, docType string, opts ...Option) *DocumentLoader {
	cfg := settings{wait: 5 * time.Millisecond, capacity: 100}
	for _, opt := range opts {
		opt(&cfg)
	}

	batchFn := func(ctx context.Context, keys dataloader.Keys) []*dataloader.Result {
		results := make([]*dataloader.Result, len(keys))

		// Convert keys to []uuid.UUID
		ids := make([]uuid.UUID, 0, len(keys))
		valid := make([]bool, len(keys))
		for i, k := range keys {
			id, err := uuid.Parse(k.String())
			if err != nil {
				results[i] = &dataloader.Result{Error: domain.NewInvalidInput(fmt.Sprintf("invalid document id %q", k.String()), nil)}
				continue
			}
			valid[i] = true
			ids = append(ids, id)
		}

		docs, err := repo.GetByIDs(ctx, docType, ids)
		if err != nil {
			for i := range results {
				if valid[i] {
					results[i] = &dataloader.Result{Error: err}
				}
			}
			return results
		}

		// Map UUID -> document for ordering
		byID := make(map[uuid.UUID]domain.Document, len(docs))
		for _, doc := range docs {
			byID[doc.ID] = doc
		}

		// Build results in the same order as keys
		for i, k := range keys {
			if !valid[i] {
				continue
			}
			id := uuid.MustParse(k.String())
			if doc, ok := byID[id]; ok {
				results[i] = &dataloader.Result{Data: doc}
			} else {
				results[i] = &dataloader.Result{Error: domain.NewNotFound("document "+id.String(), map[string]any{"doctype": docType, "id": id})}
			}
		}
		return results
	}

	loader := dataloader.NewBatchedLoader(
		batchFn,
		dataloader.WithWait(cfg.wait),
		dataloader.WithBatchCapacity(cfg.capacity),
	)

	return &DocumentLoader{docType: docType, loader: loader}
}

// Load returns one document, or a NOT_FOUND error when it does not exist.
func (l *DocumentLoader) Load(ctx context.Context, id uuid.UUID) (domain.Document, error) {
	value, err := l.loader.Load(ctx, dataloader.StringKey(id.String()))()
	if err != nil {
		return domain.Document{}, err
	}
	doc, ok := value.(domain.Document)
	if !ok {
		return domain.Document{}, fmt.Errorf("unexpected loader value %T for document %s", value, id)
	}
	return doc, nil
}
