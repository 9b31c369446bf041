package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/rpattn/versionaudit/internal/audit"
	"github.com/rpattn/versionaudit/internal/domain"
	"github.com/rpattn/versionaudit/internal/export"
	"github.com/rpattn/versionaudit/internal/report"
)

// ReportService is the subset of the report service the handler needs.
type ReportService interface {
	VersionAudit(ctx context.Context, req report.Request) (report.Result, error)
	ListChildTables(ctx context.Context, docType string) ([]report.ChildTableOption, error)
}

type Handler struct {
	service ReportService
	logger  *zap.Logger
	mux     *http.ServeMux
}

// NewHandler routes the report endpoints.
func NewHandler(service ReportService, logger *zap.Logger) http.Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	h := &Handler{service: service, logger: logger, mux: http.NewServeMux()}
	h.mux.HandleFunc("GET /reports/version-audit", h.handleVersionAudit)
	h.mux.HandleFunc("GET /reports/child-tables", h.handleChildTables)
	h.mux.HandleFunc("GET /healthz", h.handleHealth)
	return h
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mux.ServeHTTP(w, r)
}

type versionAuditResponse struct {
	Columns     []domain.Column          `json:"columns"`
	Rows        []domain.TableRow        `json:"rows"`
	Diagnostics []audit.Diagnostic       `json:"diagnostics"`
	Failures    []report.DocumentFailure `json:"failures"`
}

type errorResponse struct {
	Code    domain.ErrorCode `json:"code"`
	Message string           `json:"message"`
	Details map[string]any   `json:"details,omitempty"`
}

func (h *Handler) handleVersionAudit(w http.ResponseWriter, r *http.Request) {
	req, format, err := parseVersionAuditQuery(r)
	if err != nil {
		h.writeError(w, err)
		return
	}

	result, err := h.service.VersionAudit(r.Context(), req)
	if err != nil {
		h.writeError(w, err)
		return
	}

	if format == export.FormatJSON {
		writeJSON(w, http.StatusOK, versionAuditResponse{
			Columns:     result.Table.Columns,
			Rows:        nonNil(result.Table.Rows),
			Diagnostics: nonNil(result.Diagnostics),
			Failures:    nonNil(result.Failures),
		})
		return
	}

	// Render fully before writing headers so a render failure can still be reported.
	var buf bytes.Buffer
	if err := export.Render(&buf, format, result.Table); err != nil {
		h.writeError(w, err)
		return
	}
	filename := format.FileName("version-audit-" + req.DocType)
	w.Header().Set("Content-Type", format.ContentType())
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=\"%s\"", filename))
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.WriteHeader(http.StatusOK)
	_, _ = buf.WriteTo(w)
}

func (h *Handler) handleChildTables(w http.ResponseWriter, r *http.Request) {
	docType := strings.TrimSpace(r.URL.Query().Get("doctype"))
	options, err := h.service.ListChildTables(r.Context(), docType)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, nonNil(options))
}

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func parseVersionAuditQuery(r *http.Request) (report.Request, export.Format, error) {
	query := r.URL.Query()

	view, err := report.ParseView(query.Get("view"))
	if err != nil {
		return report.Request{}, "", err
	}
	format, err := export.ParseFormat(query.Get("format"))
	if err != nil {
		return report.Request{}, "", err
	}

	req := report.Request{
		DocType:    strings.TrimSpace(query.Get("doctype")),
		View:       view,
		ChildTable: strings.TrimSpace(query.Get("child_table")),
		RowFilter:  strings.TrimSpace(query.Get("row")),
	}
	for _, raw := range query["docname"] {
		id, err := uuid.Parse(strings.TrimSpace(raw))
		if err != nil {
			return report.Request{}, "", domain.NewInvalidInput(
				fmt.Sprintf("invalid docname %q", raw),
				map[string]any{"docname": raw},
			)
		}
		req.DocumentIDs = append(req.DocumentIDs, id)
	}
	for _, field := range query["field"] {
		if field = strings.TrimSpace(field); field != "" {
			req.Fields = append(req.Fields, field)
		}
	}
	if raw := strings.TrimSpace(query.Get("include_empty_fields")); raw != "" {
		include, err := strconv.ParseBool(raw)
		if err != nil {
			return report.Request{}, "", domain.NewInvalidInput(
				fmt.Sprintf("invalid include_empty_fields %q", raw),
				map[string]any{"include_empty_fields": raw},
			)
		}
		req.IncludeEmptyFields = include
	}
	return req, format, nil
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	status := statusFor(err)
	resp := errorResponse{Code: domain.CodeOf(err), Message: err.Error()}
	var domainErr *domain.Error
	if errors.As(err, &domainErr) {
		resp.Details = domainErr.Details
	}
	if status == http.StatusInternalServerError {
		h.logger.Error("report request failed", zap.Error(err))
		resp.Message = "internal error"
	}
	writeJSON(w, status, resp)
}

func statusFor(err error) int {
	switch domain.CodeOf(err) {
	case domain.CodeNotFound:
		return http.StatusNotFound
	case domain.CodeInvalidInput:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	_ = enc.Encode(payload)
}

func nonNil[T any](items []T) []T {
	if items == nil {
		return []T{}
	}
	return items
}
