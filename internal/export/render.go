package export

import (
	"bufio"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/xuri/excelize/v2"
	"gopkg.in/yaml.v3"

	"github.com/rpattn/versionaudit/internal/domain"
)

// SheetName is the worksheet used for spreadsheet exports.
const SheetName = "Version Audit"

// Render writes table to w in the requested format. CSV and XLSX output
// start with a header row of column labels.
func Render(w io.Writer, format Format, table domain.Table) error {
	switch format {
	case FormatJSON:
		return renderJSON(w, table)
	case FormatYAML:
		return renderYAML(w, table)
	case FormatCSV:
		return renderCSV(w, table)
	case FormatXLSX:
		return renderXLSX(w, table)
	default:
		return domain.NewInvalidInput(fmt.Sprintf("unsupported format %q", format), nil)
	}
}

// WriteFile renders table into path. The file is written next to its final
// location and renamed into place once complete.
func WriteFile(path string, format Format, table domain.Table) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create export directory: %w", err)
	}
	tempFile, err := os.CreateTemp(dir, "."+filepath.Base(path)+"-*")
	if err != nil {
		return fmt.Errorf("create temp export file: %w", err)
	}
	tempPath := tempFile.Name()
	cleanup := true
	defer func() {
		if cleanup {
			_ = tempFile.Close()
			_ = os.Remove(tempPath)
		}
	}()

	buffered := bufio.NewWriter(tempFile)
	if err := Render(buffered, format, table); err != nil {
		return err
	}
	if err := buffered.Flush(); err != nil {
		return fmt.Errorf("flush export file: %w", err)
	}
	if err := tempFile.Sync(); err != nil {
		return fmt.Errorf("sync export file: %w", err)
	}
	if err := tempFile.Close(); err != nil {
		return fmt.Errorf("close export file: %w", err)
	}
	if err := os.Rename(tempPath, path); err != nil {
		return fmt.Errorf("promote export file: %w", err)
	}
	cleanup = false
	return nil
}

func renderJSON(w io.Writer, table domain.Table) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(table); err != nil {
		return fmt.Errorf("encode json: %w", err)
	}
	return nil
}

func renderYAML(w io.Writer, table domain.Table) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(yamlTable(table)); err != nil {
		return fmt.Errorf("encode yaml: %w", err)
	}
	return enc.Close()
}

// yamlTable converts cells to plain values so timestamps and uuids encode
// as readable scalars.
func yamlTable(table domain.Table) domain.Table {
	out := domain.Table{Columns: table.Columns, Rows: make([]domain.TableRow, len(table.Rows))}
	for i, row := range table.Rows {
		converted := make(domain.TableRow, len(row))
		for key, value := range row {
			switch value.(type) {
			case nil, string, bool, int, int64, float64:
				converted[key] = value
			default:
				converted[key] = formatValue(value)
			}
		}
		out.Rows[i] = converted
	}
	return out
}

func renderCSV(w io.Writer, table domain.Table) error {
	csvWriter := csv.NewWriter(w)
	if err := csvWriter.Write(table.Headers()); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	record := make([]string, len(table.Columns))
	for _, row := range table.Rows {
		for i, cell := range table.Cells(row) {
			record[i] = formatValue(cell)
		}
		if err := csvWriter.Write(record); err != nil {
			return fmt.Errorf("write row: %w", err)
		}
	}
	csvWriter.Flush()
	if err := csvWriter.Error(); err != nil {
		return fmt.Errorf("flush rows: %w", err)
	}
	return nil
}

func renderXLSX(w io.Writer, table domain.Table) error {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	if err := f.SetSheetName(f.GetSheetName(0), SheetName); err != nil {
		return fmt.Errorf("name sheet: %w", err)
	}
	stream, err := f.NewStreamWriter(SheetName)
	if err != nil {
		return fmt.Errorf("open sheet writer: %w", err)
	}

	header := make([]any, len(table.Columns))
	for i, label := range table.Headers() {
		header[i] = label
	}
	if err := stream.SetRow("A1", header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for rowIdx, row := range table.Rows {
		cells := table.Cells(row)
		values := make([]any, len(cells))
		for i, cell := range cells {
			values[i] = xlsxValue(cell)
		}
		cell, err := excelize.CoordinatesToCellName(1, rowIdx+2)
		if err != nil {
			return err
		}
		if err := stream.SetRow(cell, values); err != nil {
			return fmt.Errorf("write row %d: %w", rowIdx+1, err)
		}
	}
	if err := stream.Flush(); err != nil {
		return fmt.Errorf("flush sheet: %w", err)
	}
	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

func xlsxValue(value any) any {
	switch v := value.(type) {
	case nil:
		return nil
	case int, int64, float64, bool:
		return v
	default:
		return formatValue(v)
	}
}

func formatValue(value any) string {
	switch v := value.(type) {
	case time.Time:
		return v.UTC().Format(time.RFC3339)
	case *time.Time:
		if v == nil {
			return ""
		}
		return v.UTC().Format(time.RFC3339)
	case bool:
		if v {
			return "true"
		}
		return "false"
	case json.Number:
		return v.String()
	case []byte:
		return string(v)
	default:
		return domain.FormatCell(v)
	}
}
