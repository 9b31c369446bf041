package domain

// ColumnKind hints renderers about how to format a column.
type ColumnKind string

const (
	ColumnKindData     ColumnKind = "Data"
	ColumnKindLink     ColumnKind = "Link"
	ColumnKindInt      ColumnKind = "Int"
	ColumnKindDatetime ColumnKind = "Datetime"
)

// Column describes one column of a report table.
type Column struct {
	Label    string     `json:"label" yaml:"label"`
	FieldKey string     `json:"fieldname" yaml:"fieldname"`
	Kind     ColumnKind `json:"fieldtype" yaml:"fieldtype"`
	Options  string     `json:"options,omitempty" yaml:"options,omitempty"`
}

// TableRow maps column field keys to display values.
type TableRow map[string]any

// Table is the generic tabular result consumed by renderers.
type Table struct {
	Columns []Column   `json:"columns" yaml:"columns"`
	Rows    []TableRow `json:"rows" yaml:"rows"`
}

// Cells returns the row values in column order.
func (t Table) Cells(row TableRow) []any {
	cells := make([]any, len(t.Columns))
	for i, column := range t.Columns {
		cells[i] = row[column.FieldKey]
	}
	return cells
}

// Headers returns the column labels in order.
func (t Table) Headers() []string {
	headers := make([]string, len(t.Columns))
	for i, column := range t.Columns {
		headers[i] = column.Label
	}
	return headers
}
