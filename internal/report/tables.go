package report

import (
	"github.com/rpattn/versionaudit/internal/audit"
	"github.com/rpattn/versionaudit/internal/domain"
)

// Column keys shared by the report layouts.
const (
	keyDocument       = "docname"
	keyChangeInstance = "change_instance"
	keyChangedBy      = "changed_by"
	keyTimestamp      = "timestamp"
	keyRowIndex       = "idx"
	keyRowName        = "row_name"
	keyField          = "field"
	keyOldValue       = "old_value"
	keyNewValue       = "new_value"
)

const changeLogOption = "Change Log"

func documentColumn() domain.Column {
	return domain.Column{Label: "Document", FieldKey: keyDocument, Kind: domain.ColumnKindData}
}

func changeInstanceColumn() domain.Column {
	return domain.Column{Label: "Change Instance", FieldKey: keyChangeInstance, Kind: domain.ColumnKindLink, Options: changeLogOption}
}

func changedByColumn() domain.Column {
	return domain.Column{Label: "Changed By", FieldKey: keyChangedBy, Kind: domain.ColumnKindData}
}

func changedOnColumn() domain.Column {
	return domain.Column{Label: "Changed On", FieldKey: keyTimestamp, Kind: domain.ColumnKindDatetime}
}

// documentTable lays out reconstructed rows. Pruning looks at the rows of
// every document at once.
func documentTable(schema domain.DocTypeSchema, tracked domain.FieldSet, outcomes []documentOutcome, includeEmpty bool) domain.Table {
	var rows []domain.Row
	for _, outcome := range outcomes {
		rows = append(rows, outcome.rows...)
	}

	fields := tracked
	if !includeEmpty {
		fields = audit.PruneFields(tracked, rows)
	}

	columns := []domain.Column{documentColumn(), changeInstanceColumn()}
	for _, name := range fields.Names() {
		label := name
		if definition, ok := schema.Field(name); ok {
			label = definition.DisplayLabel()
		}
		columns = append(columns, domain.Column{Label: label, FieldKey: name, Kind: domain.ColumnKindData})
	}
	columns = append(columns, changedByColumn(), changedOnColumn())

	table := domain.Table{Columns: columns, Rows: make([]domain.TableRow, 0, len(rows))}
	for _, row := range rows {
		tableRow := domain.TableRow{
			keyDocument:       row.DocumentName,
			keyChangeInstance: row.Label,
			keyChangedBy:      row.AuthorLabel(),
			keyTimestamp:      row.TimestampLabel(),
		}
		for _, name := range fields.Names() {
			if value, ok := row.Values.Get(name); ok {
				tableRow[name] = value.Display()
			}
		}
		table.Rows = append(table.Rows, tableRow)
	}
	return table
}

func childTableTable(outcomes []documentOutcome) domain.Table {
	table := domain.Table{
		Columns: []domain.Column{
			documentColumn(),
			changeInstanceColumn(),
			{Label: "Row #", FieldKey: keyRowIndex, Kind: domain.ColumnKindInt},
			{Label: "Row Name", FieldKey: keyRowName, Kind: domain.ColumnKindData},
			{Label: "Field", FieldKey: keyField, Kind: domain.ColumnKindData},
			{Label: "Old Value", FieldKey: keyOldValue, Kind: domain.ColumnKindData},
			{Label: "New Value", FieldKey: keyNewValue, Kind: domain.ColumnKindData},
			changedByColumn(),
			changedOnColumn(),
		},
		Rows: []domain.TableRow{},
	}
	for _, outcome := range outcomes {
		for _, diff := range outcome.childDiffs {
			table.Rows = append(table.Rows, domain.TableRow{
				keyDocument:       diff.DocumentName,
				keyChangeInstance: diff.EntryID.String(),
				keyRowIndex:       diff.RowIndex,
				keyRowName:        diff.RowName,
				keyField:          diff.Field,
				keyOldValue:       diff.Old,
				keyNewValue:       diff.New,
				keyChangedBy:      diff.Author,
				keyTimestamp:      diff.Timestamp,
			})
		}
	}
	return table
}

func fieldLogTable(outcomes []documentOutcome) domain.Table {
	table := domain.Table{
		Columns: []domain.Column{
			documentColumn(),
			changeInstanceColumn(),
			{Label: "Field", FieldKey: keyField, Kind: domain.ColumnKindData},
			{Label: "Previous Value", FieldKey: keyOldValue, Kind: domain.ColumnKindData},
			{Label: "New Value", FieldKey: keyNewValue, Kind: domain.ColumnKindData},
			changedOnColumn(),
			changedByColumn(),
		},
		Rows: []domain.TableRow{},
	}
	for _, outcome := range outcomes {
		for _, record := range outcome.fieldLog {
			table.Rows = append(table.Rows, domain.TableRow{
				keyDocument:       record.DocumentName,
				keyChangeInstance: record.EntryID.String(),
				keyField:          record.Field,
				keyOldValue:       record.Old,
				keyNewValue:       record.New,
				keyChangedBy:      record.Author,
				keyTimestamp:      record.Timestamp,
			})
		}
	}
	return table
}
