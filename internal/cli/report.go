package cli

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/rpattn/versionaudit/internal/domain"
	"github.com/rpattn/versionaudit/internal/export"
	"github.com/rpattn/versionaudit/internal/report"
)

type reportOptions struct {
	docType      string
	docs         []string
	view         string
	childTable   string
	row          string
	fields       []string
	includeEmpty bool
	format       string
	out          string
}

func (o reportOptions) request() (report.Request, export.Format, error) {
	view, err := report.ParseView(o.view)
	if err != nil {
		return report.Request{}, "", err
	}
	format, err := export.ParseFormat(o.format)
	if err != nil {
		return report.Request{}, "", err
	}
	ids, err := parseDocumentIDs(o.docs)
	if err != nil {
		return report.Request{}, "", err
	}
	return report.Request{
		DocType:            o.docType,
		DocumentIDs:        ids,
		View:               view,
		ChildTable:         o.childTable,
		RowFilter:          o.row,
		Fields:             o.fields,
		IncludeEmptyFields: o.includeEmpty,
	}, format, nil
}

func newReportCommand(global *globalOptions) *cobra.Command {
	opts := &reportOptions{}
	cmd := &cobra.Command{
		Use:   "report",
		Short: "Print the version audit report for a doctype",
		Long: `Print the version audit report for a doctype.

The document view shows the initial values, one row per change, and the
current values of every listed document. Columns that are blank in every
row are dropped unless --include-empty is set.

Examples:
  auditctl report --doctype Contact
  auditctl report --doctype Contact --doc 3f1c2a64-5b9e-4d7a-9c1e-2b8f0d6a4e11 --format csv
  auditctl report --doctype Contact --view child_table --child-table phone_nos --row 1 --format xlsx --out contacts.xlsx`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReport(cmd, global, *opts)
		},
	}
	cmd.Flags().StringVar(&opts.docType, "doctype", "", "Doctype to report on (required)")
	cmd.Flags().StringArrayVar(&opts.docs, "doc", nil, "Restrict to a document id (repeatable)")
	cmd.Flags().StringVar(&opts.view, "view", "document", "Report view: document | child_table | field_log")
	cmd.Flags().StringVar(&opts.childTable, "child-table", "", "Child table field for the child_table view")
	cmd.Flags().StringVar(&opts.row, "row", "", "Child row index or name for the child_table view")
	cmd.Flags().BoolVar(&opts.includeEmpty, "include-empty", false, "Keep columns that are blank in every row")
	cmd.Flags().StringVar(&opts.format, "format", "json", "Output format: json | yaml | csv | xlsx")
	cmd.Flags().StringVar(&opts.out, "out", "", "Write to a file instead of stdout")
	_ = cmd.MarkFlagRequired("doctype")
	return cmd
}

func newFieldLogCommand(global *globalOptions) *cobra.Command {
	opts := &reportOptions{view: string(report.ViewFieldLog)}
	cmd := &cobra.Command{
		Use:   "field-log",
		Short: "Print every top-level field change of a doctype",
		Long: `Print every top-level field change of a doctype as a flat log.

Examples:
  auditctl field-log --doctype Contact
  auditctl field-log --doctype Contact --field status --field phone --format csv`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReport(cmd, global, *opts)
		},
	}
	cmd.Flags().StringVar(&opts.docType, "doctype", "", "Doctype to report on (required)")
	cmd.Flags().StringArrayVar(&opts.docs, "doc", nil, "Restrict to a document id (repeatable)")
	cmd.Flags().StringArrayVar(&opts.fields, "field", nil, "Restrict to a field (repeatable)")
	cmd.Flags().StringVar(&opts.format, "format", "json", "Output format: json | yaml | csv | xlsx")
	cmd.Flags().StringVar(&opts.out, "out", "", "Write to a file instead of stdout")
	_ = cmd.MarkFlagRequired("doctype")
	return cmd
}

func newChildTablesCommand(global *globalOptions) *cobra.Command {
	var docType string
	cmd := &cobra.Command{
		Use:   "child-tables",
		Short: "List the child tables of a doctype",
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := global.load()
			if err != nil {
				return err
			}
			defer rt.close()

			conn, err := rt.connect(cmd.Context())
			if err != nil {
				return err
			}
			defer conn.Close()

			options, err := rt.reportService(conn).ListChildTables(cmd.Context(), docType)
			if err != nil {
				return err
			}
			return writeIndentedJSON(cmd.OutOrStdout(), options)
		},
	}
	cmd.Flags().StringVar(&docType, "doctype", "", "Doctype to inspect (required)")
	_ = cmd.MarkFlagRequired("doctype")
	return cmd
}

func runReport(cmd *cobra.Command, global *globalOptions, opts reportOptions) error {
	req, format, err := opts.request()
	if err != nil {
		return err
	}
	if format == export.FormatXLSX && opts.out == "" {
		return domain.NewInvalidInput("xlsx output requires --out", nil)
	}

	rt, err := global.load()
	if err != nil {
		return err
	}
	defer rt.close()

	conn, err := rt.connect(cmd.Context())
	if err != nil {
		return err
	}
	defer conn.Close()

	result, err := rt.reportService(conn).VersionAudit(cmd.Context(), req)
	if err != nil {
		return err
	}
	reportProblems(cmd.ErrOrStderr(), rt.logger, result)

	if opts.out != "" {
		if err := export.WriteFile(opts.out, format, result.Table); err != nil {
			return err
		}
		rt.logger.Info("report written",
			zap.String("path", opts.out),
			zap.Int("rows", len(result.Table.Rows)),
		)
		return nil
	}
	return export.Render(cmd.OutOrStdout(), format, result.Table)
}

// reportProblems prints skipped entries and documents to stderr so they do
// not mix with the rendered table.
func reportProblems(w io.Writer, logger *zap.Logger, result report.Result) {
	for _, failure := range result.Failures {
		fmt.Fprintf(w, "skipped document %s: %s\n", failure.DocumentID, failure.Message)
	}
	if len(result.Diagnostics) > 0 {
		fmt.Fprintf(w, "%d change-log entries could not be decoded\n", len(result.Diagnostics))
		logger.Debug("diagnostics", zap.Any("diagnostics", result.Diagnostics))
	}
}

func parseDocumentIDs(raw []string) ([]uuid.UUID, error) {
	ids := make([]uuid.UUID, 0, len(raw))
	for _, value := range raw {
		id, err := uuid.Parse(value)
		if err != nil {
			return nil, domain.NewInvalidInput(fmt.Sprintf("invalid document id %q", value), nil)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func writeIndentedJSON(w io.Writer, payload any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(payload)
}
