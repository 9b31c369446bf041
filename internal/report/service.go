package report

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/rpattn/versionaudit/internal/audit"
	"github.com/rpattn/versionaudit/internal/docloader"
	"github.com/rpattn/versionaudit/internal/domain"
	"github.com/rpattn/versionaudit/internal/repository"
)

// View selects the shape of a version audit report.
type View string

const (
	ViewDocument   View = "document"
	ViewChildTable View = "child_table"
	ViewFieldLog   View = "field_log"
)

// ParseView normalizes user input. The empty string selects ViewDocument.
func ParseView(raw string) (View, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "", "document", "document level":
		return ViewDocument, nil
	case "child_table", "child table", "child table diff":
		return ViewChildTable, nil
	case "field_log", "field log":
		return ViewFieldLog, nil
	default:
		return "", domain.NewInvalidInput(fmt.Sprintf("unknown view %q", raw), map[string]any{"view": raw})
	}
}

// Request describes one report over a doctype.
type Request struct {
	DocType string
	// DocumentIDs restricts the report; empty means every document.
	DocumentIDs        []uuid.UUID
	View               View
	ChildTable         string
	RowFilter          string
	Fields             []string
	IncludeEmptyFields bool
}

// DocumentFailure records a document that could not be reported on.
type DocumentFailure struct {
	DocumentID uuid.UUID        `json:"document_id"`
	Code       domain.ErrorCode `json:"code"`
	Message    string           `json:"message"`
}

// Result is a rendered report plus what went wrong along the way.
type Result struct {
	Table       domain.Table       `json:"table"`
	Diagnostics []audit.Diagnostic `json:"diagnostics"`
	Failures    []DocumentFailure  `json:"failures"`
}

// ChildTableOption is one entry of the child-table selector.
type ChildTableOption struct {
	Label string `json:"label"`
	Value string `json:"value"`
}

// Service builds version audit reports from the document and change-log stores.
type Service struct {
	schemas    repository.SchemaRepository
	documents  repository.DocumentRepository
	changeLogs repository.ChangeLogRepository

	logger       *zap.Logger
	workers      int
	maxDocuments int
	loaderOpts   []docloader.Option
}

// Option customizes the service.
type Option func(*Service)

// WithLogger sets the logger used for diagnostics.
func WithLogger(logger *zap.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithWorkers bounds how many documents are reconstructed concurrently.
func WithWorkers(workers int) Option {
	return func(s *Service) {
		if workers > 0 {
			s.workers = workers
		}
	}
}

// WithMaxDocuments caps the number of documents per report.
func WithMaxDocuments(limit int) Option {
	return func(s *Service) {
		if limit > 0 {
			s.maxDocuments = limit
		}
	}
}

// WithLoaderOptions passes options to the per-report document loader.
func WithLoaderOptions(opts ...docloader.Option) Option {
	return func(s *Service) {
		s.loaderOpts = append(s.loaderOpts, opts...)
	}
}

// NewService wires the report service.
func NewService(
	schemas repository.SchemaRepository,
	documents repository.DocumentRepository,
	changeLogs repository.ChangeLogRepository,
	opts ...Option,
) *Service {
	service := &Service{
		schemas:      schemas,
		documents:    documents,
		changeLogs:   changeLogs,
		logger:       zap.NewNop(),
		workers:      4,
		maxDocuments: 500,
	}
	for _, opt := range opts {
		opt(service)
	}
	return service
}

// ListChildTables lists the nested-collection fields of a doctype.
func (s *Service) ListChildTables(ctx context.Context, docType string) ([]ChildTableOption, error) {
	schema, err := s.loadSchema(ctx, docType)
	if err != nil {
		return nil, err
	}
	options := []ChildTableOption{}
	for _, field := range schema.ChildTables() {
		options = append(options, ChildTableOption{Label: field.DisplayLabel(), Value: field.Name})
	}
	return options, nil
}

// documentOutcome holds everything produced for one document.
type documentOutcome struct {
	ref         domain.DocumentRef
	rows        []domain.Row
	childDiffs  []domain.ChildRowDiff
	fieldLog    []domain.FieldChangeRecord
	diagnostics []audit.Diagnostic
	failure     *DocumentFailure
}

// VersionAudit builds the report described by req. Missing documents are
// reported in Result.Failures; a contract violation aborts the report.
func (s *Service) VersionAudit(ctx context.Context, req Request) (Result, error) {
	if req.View == "" {
		req.View = ViewDocument
	}
	schema, err := s.loadSchema(ctx, req.DocType)
	if err != nil {
		return Result{}, err
	}
	if req.View == ViewChildTable {
		if err := validateChildTable(schema, req.ChildTable); err != nil {
			return Result{}, err
		}
	}

	refs, failures, err := s.resolveDocuments(ctx, req)
	if err != nil {
		return Result{}, err
	}
	if len(refs) > s.maxDocuments {
		return Result{}, domain.NewInvalidInput(
			fmt.Sprintf("report covers %d documents, limit is %d", len(refs), s.maxDocuments),
			map[string]any{"documents": len(refs), "limit": s.maxDocuments},
		)
	}

	reconstructor := audit.NewVersionReconstructor(schema.TrackedFields())
	loader := docloader.NewDocumentLoader(s.documents, req.DocType, s.loaderOpts...)

	outcomes := make([]documentOutcome, len(refs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.workers)
	for i, ref := range refs {
		i, ref := i, ref
		g.Go(func() error {
			outcome, err := s.buildDocument(gctx, req, reconstructor, loader, ref)
			if err != nil {
				return err
			}
			outcomes[i] = outcome
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return Result{}, err
	}

	result := Result{Diagnostics: []audit.Diagnostic{}, Failures: failures}
	for _, outcome := range outcomes {
		result.Diagnostics = append(result.Diagnostics, outcome.diagnostics...)
		if outcome.failure != nil {
			result.Failures = append(result.Failures, *outcome.failure)
		}
	}

	switch req.View {
	case ViewChildTable:
		result.Table = childTableTable(outcomes)
	case ViewFieldLog:
		result.Table = fieldLogTable(outcomes)
	default:
		result.Table = documentTable(schema, reconstructor.Fields(), outcomes, req.IncludeEmptyFields)
	}
	return result, nil
}

func (s *Service) loadSchema(ctx context.Context, docType string) (domain.DocTypeSchema, error) {
	docType = strings.TrimSpace(docType)
	if docType == "" {
		return domain.DocTypeSchema{}, domain.NewInvalidInput("doctype is required", nil)
	}
	schema, err := s.schemas.GetByName(ctx, docType)
	if err != nil {
		return domain.DocTypeSchema{}, fmt.Errorf("resolve doctype %s: %w", docType, err)
	}
	return schema, nil
}

func validateChildTable(schema domain.DocTypeSchema, childTable string) error {
	if strings.TrimSpace(childTable) == "" {
		return domain.NewInvalidInput("child table is required for the child table view", nil)
	}
	field, ok := schema.Field(childTable)
	if !ok || field.Kind != domain.FieldKindTable {
		return domain.NewInvalidInput(
			fmt.Sprintf("%s is not a child table of %s", childTable, schema.Name),
			map[string]any{"doctype": schema.Name, "child_table": childTable},
		)
	}
	return nil
}

// resolveDocuments lists the documents in scope. Requested ids that do not
// exist become failures rather than aborting the report.
func (s *Service) resolveDocuments(ctx context.Context, req Request) ([]domain.DocumentRef, []DocumentFailure, error) {
	refs, err := s.documents.List(ctx, req.DocType, req.DocumentIDs)
	if err != nil {
		return nil, nil, fmt.Errorf("list %s documents: %w", req.DocType, err)
	}

	failures := []DocumentFailure{}
	if len(req.DocumentIDs) == 0 {
		return refs, failures, nil
	}

	found := make(map[uuid.UUID]struct{}, len(refs))
	for _, ref := range refs {
		found[ref.ID] = struct{}{}
	}
	for _, id := range req.DocumentIDs {
		if _, ok := found[id]; ok {
			continue
		}
		failures = append(failures, DocumentFailure{
			DocumentID: id,
			Code:       domain.CodeNotFound,
			Message:    fmt.Sprintf("%s %s not found", req.DocType, id),
		})
		s.logger.Warn("document not found",
			zap.String("doctype", req.DocType),
			zap.Stringer("document_id", id),
		)
	}
	return refs, failures, nil
}

func (s *Service) buildDocument(
	ctx context.Context,
	req Request,
	reconstructor *audit.VersionReconstructor,
	loader *docloader.DocumentLoader,
	ref domain.DocumentRef,
) (documentOutcome, error) {
	outcome := documentOutcome{ref: ref}

	entries, err := s.loadEntries(ctx, req.DocType, ref)
	if err != nil {
		return s.documentFailed(outcome, req.DocType, err)
	}

	switch req.View {
	case ViewChildTable:
		outcome.diagnostics = audit.Diagnose(ref.ID, entries)
		extractor := audit.NewChildRowDiffExtractor(req.ChildTable, req.RowFilter)
		outcome.childDiffs = extractor.Extract(ref, entries)
		return outcome, nil
	case ViewFieldLog:
		outcome.diagnostics = audit.Diagnose(ref.ID, entries)
		outcome.fieldLog = audit.FieldChangeLog(ref, entries, req.Fields...)
		return outcome, nil
	}

	doc, err := loader.Load(ctx, ref.ID)
	if err != nil {
		return s.documentFailed(outcome, req.DocType, err)
	}

	reconstruction, err := reconstructor.BuildRows(doc, entries)
	if err != nil {
		return documentOutcome{}, fmt.Errorf("reconstruct %s %s: %w", req.DocType, doc.Label(), err)
	}
	outcome.rows = reconstruction.Rows
	outcome.diagnostics = reconstruction.Diagnostics
	return outcome, nil
}

// documentFailed turns a per-document NOT_FOUND into a recorded failure and
// lets every other error abort the report.
func (s *Service) documentFailed(outcome documentOutcome, docType string, err error) (documentOutcome, error) {
	if !errors.Is(err, domain.ErrNotFound) {
		return documentOutcome{}, err
	}
	s.logger.Warn("document skipped",
		zap.String("doctype", docType),
		zap.Stringer("document_id", outcome.ref.ID),
		zap.Error(err),
	)
	outcome.failure = &DocumentFailure{
		DocumentID: outcome.ref.ID,
		Code:       domain.CodeNotFound,
		Message:    err.Error(),
	}
	return outcome, nil
}

func (s *Service) loadEntries(ctx context.Context, docType string, ref domain.DocumentRef) ([]domain.ChangeLogEntry, error) {
	raws, err := s.changeLogs.ListByDocument(ctx, docType, ref.ID)
	if err != nil {
		return nil, fmt.Errorf("load change logs for %s: %w", ref.ID, err)
	}

	entries := make([]domain.ChangeLogEntry, 0, len(raws))
	for _, raw := range raws {
		entry, decodeErr := domain.DecodeChangeLog(raw)
		if decodeErr != nil {
			s.logger.Warn("skipping malformed change log",
				zap.String("doctype", docType),
				zap.Stringer("document_id", ref.ID),
				zap.Stringer("entry_id", raw.ID),
				zap.Error(decodeErr),
			)
		}
		entries = append(entries, entry)
	}
	return entries, nil
}
