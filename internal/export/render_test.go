package export

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/xuri/excelize/v2"
	"gopkg.in/yaml.v3"

	"github.com/rpattn/versionaudit/internal/domain"
)

func sampleTable() domain.Table {
	return domain.Table{
		Columns: []domain.Column{
			{Label: "Document", FieldKey: "docname", Kind: domain.ColumnKindData},
			{Label: "Status", FieldKey: "status", Kind: domain.ColumnKindData},
			{Label: "Changed On", FieldKey: "timestamp", Kind: domain.ColumnKindDatetime},
		},
		Rows: []domain.TableRow{
			{"docname": "CONTACT-0001", "status": "New", "timestamp": time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)},
			{"docname": "CONTACT-0001", "status": domain.NoChangeLabel, "timestamp": "-"},
			{"docname": "CONTACT-0002", "status": nil, "timestamp": "-"},
		},
	}
}

func TestParseFormat(t *testing.T) {
	cases := map[string]Format{"": FormatJSON, "CSV": FormatCSV, "yml": FormatYAML, "xlsx": FormatXLSX}
	for input, want := range cases {
		got, err := ParseFormat(input)
		if err != nil || got != want {
			t.Fatalf("ParseFormat(%q) = %q, %v", input, got, err)
		}
	}
	if _, err := ParseFormat("pdf"); !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("expected invalid input, got %v", err)
	}
}

func TestFileName(t *testing.T) {
	if got := FormatCSV.FileName("Version Audit: Contact"); got != "version-audit--contact.csv" {
		t.Fatalf("unexpected file name %q", got)
	}
	if got := FormatXLSX.FileName(""); got != "version-audit.xlsx" {
		t.Fatalf("unexpected fallback name %q", got)
	}
}

func TestRenderCSV(t *testing.T) {
	var buf bytes.Buffer
	if err := Render(&buf, FormatCSV, sampleTable()); err != nil {
		t.Fatalf("Render returned error: %v", err)
	}
	records, err := csv.NewReader(&buf).ReadAll()
	if err != nil {
		t.Fatalf("read csv: %v", err)
	}
	if len(records) != 4 {
		t.Fatalf("expected header plus 3 rows, got %d", len(records))
	}
	if strings.Join(records[0], ",") != "Document,Status,Changed On" {
		t.Fatalf("unexpected header %v", records[0])
	}
	if records[1][2] != "2024-03-01T09:00:00Z" {
		t.Fatalf("unexpected timestamp cell %q", records[1][2])
	}
	if records[2][1] != domain.NoChangeLabel || records[3][1] != "" {
		t.Fatalf("unexpected status cells %v %v", records[2], records[3])
	}
}

func TestRenderJSON(t *testing.T) {
	var buf bytes.Buffer
	if err := Render(&buf, FormatJSON, sampleTable()); err != nil {
		t.Fatalf("Render returned error: %v", err)
	}
	var decoded struct {
		Columns []domain.Column  `json:"columns"`
		Rows    []map[string]any `json:"rows"`
	}
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("decode json: %v", err)
	}
	if len(decoded.Columns) != 3 || decoded.Columns[1].FieldKey != "status" {
		t.Fatalf("unexpected columns %+v", decoded.Columns)
	}
	if decoded.Rows[0]["status"] != "New" {
		t.Fatalf("unexpected row %+v", decoded.Rows[0])
	}
}

func TestRenderYAML(t *testing.T) {
	var buf bytes.Buffer
	if err := Render(&buf, FormatYAML, sampleTable()); err != nil {
		t.Fatalf("Render returned error: %v", err)
	}
	var decoded struct {
		Columns []domain.Column  `yaml:"columns"`
		Rows    []map[string]any `yaml:"rows"`
	}
	if err := yaml.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("decode yaml: %v", err)
	}
	if len(decoded.Rows) != 3 || decoded.Rows[0]["timestamp"] != "2024-03-01T09:00:00Z" {
		t.Fatalf("unexpected rows %+v", decoded.Rows)
	}
}

func TestRenderXLSX(t *testing.T) {
	var buf bytes.Buffer
	if err := Render(&buf, FormatXLSX, sampleTable()); err != nil {
		t.Fatalf("Render returned error: %v", err)
	}
	f, err := excelize.OpenReader(bytes.NewReader(buf.Bytes()))
	if err != nil {
		t.Fatalf("open xlsx: %v", err)
	}
	defer func() { _ = f.Close() }()

	rows, err := f.GetRows(SheetName)
	if err != nil {
		t.Fatalf("read rows: %v", err)
	}
	if len(rows) != 4 {
		t.Fatalf("expected header plus 3 rows, got %d", len(rows))
	}
	if rows[0][0] != "Document" || rows[2][1] != domain.NoChangeLabel {
		t.Fatalf("unexpected sheet contents %v", rows)
	}
}

func TestWriteFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "reports", "contact.csv")
	if err := WriteFile(path, FormatCSV, sampleTable()); err != nil {
		t.Fatalf("WriteFile returned error: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read export: %v", err)
	}
	if !strings.HasPrefix(string(data), "Document,Status,Changed On\n") {
		t.Fatalf("unexpected file contents %q", data)
	}
	entries, err := os.ReadDir(filepath.Dir(path))
	if err != nil {
		t.Fatalf("read dir: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected temp file to be promoted, found %d entries", len(entries))
	}
}
