package domain

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// ChangeKey names a recognized top-level key of a change-log payload.
type ChangeKey string

const (
	ChangeKeyAdded      ChangeKey = "added"
	ChangeKeyChanged    ChangeKey = "changed"
	ChangeKeyDataImport ChangeKey = "data_import"
	ChangeKeyRemoved    ChangeKey = "removed"
	ChangeKeyRowChanged ChangeKey = "row_changed"
)

// SubstantiveKeys lists the payload keys that make an entry worth a report row.
var SubstantiveKeys = []ChangeKey{
	ChangeKeyAdded,
	ChangeKeyChanged,
	ChangeKeyDataImport,
	ChangeKeyRemoved,
	ChangeKeyRowChanged,
}

// RawChangeLog is a change-log record as stored, before payload decoding.
type RawChangeLog struct {
	ID         uuid.UUID
	DocType    string
	DocumentID uuid.UUID
	Payload    []byte
	Author     string
	Timestamp  time.Time
}

// FieldChange is one (field, old, new) triple.
type FieldChange struct {
	Field string
	Old   any
	New   any
}

// UnmarshalJSON decodes the positional [field, old, new] form.
func (c *FieldChange) UnmarshalJSON(data []byte) error {
	var parts []json.RawMessage
	if err := json.Unmarshal(data, &parts); err != nil {
		return fmt.Errorf("field change must be an array: %w", err)
	}
	if len(parts) != 3 {
		return fmt.Errorf("field change must have 3 elements, got %d", len(parts))
	}
	var decoded FieldChange
	if err := json.Unmarshal(parts[0], &decoded.Field); err != nil {
		return fmt.Errorf("field change name: %w", err)
	}
	if err := json.Unmarshal(parts[1], &decoded.Old); err != nil {
		return fmt.Errorf("field change old value: %w", err)
	}
	if err := json.Unmarshal(parts[2], &decoded.New); err != nil {
		return fmt.Errorf("field change new value: %w", err)
	}
	*c = decoded
	return nil
}

// MarshalJSON encodes the positional [field, old, new] form.
func (c FieldChange) MarshalJSON() ([]byte, error) {
	return json.Marshal([]any{c.Field, c.Old, c.New})
}

// RowChange records field changes on one row of a nested collection.
type RowChange struct {
	Collection string
	RowIndex   int
	RowName    string
	Changed    []FieldChange
}

type rowChangeObject struct {
	ParentField string        `json:"parentfield"`
	Idx         int           `json:"idx"`
	Name        string        `json:"name"`
	Changed     []FieldChange `json:"changed"`
}

// UnmarshalJSON accepts both {"parentfield","idx","name","changed"} and the
// positional [parentfield, idx, name, changed] form.
func (r *RowChange) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) > 0 && trimmed[0] == '[' {
		var parts []json.RawMessage
		if err := json.Unmarshal(trimmed, &parts); err != nil {
			return err
		}
		if len(parts) != 4 {
			return fmt.Errorf("row change must have 4 elements, got %d", len(parts))
		}
		var decoded RowChange
		if err := json.Unmarshal(parts[0], &decoded.Collection); err != nil {
			return fmt.Errorf("row change collection: %w", err)
		}
		if err := json.Unmarshal(parts[1], &decoded.RowIndex); err != nil {
			return fmt.Errorf("row change index: %w", err)
		}
		if err := json.Unmarshal(parts[2], &decoded.RowName); err != nil {
			return fmt.Errorf("row change name: %w", err)
		}
		if err := json.Unmarshal(parts[3], &decoded.Changed); err != nil {
			return fmt.Errorf("row change fields: %w", err)
		}
		*r = decoded
		return nil
	}

	var obj rowChangeObject
	if err := json.Unmarshal(trimmed, &obj); err != nil {
		return err
	}
	*r = RowChange{
		Collection: obj.ParentField,
		RowIndex:   obj.Idx,
		RowName:    obj.Name,
		Changed:    obj.Changed,
	}
	return nil
}

// MarshalJSON encodes the object form.
func (r RowChange) MarshalJSON() ([]byte, error) {
	return json.Marshal(rowChangeObject{
		ParentField: r.Collection,
		Idx:         r.RowIndex,
		Name:        r.RowName,
		Changed:     r.Changed,
	})
}

// RowRef marks a nested row that was added or removed.
type RowRef struct {
	Collection string
	Row        map[string]any
}

// UnmarshalJSON accepts [collection, row] or a row object carrying "parentfield".
func (r *RowRef) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) > 0 && trimmed[0] == '[' {
		var parts []json.RawMessage
		if err := json.Unmarshal(trimmed, &parts); err != nil {
			return err
		}
		if len(parts) != 2 {
			return fmt.Errorf("row reference must have 2 elements, got %d", len(parts))
		}
		var decoded RowRef
		if err := json.Unmarshal(parts[0], &decoded.Collection); err != nil {
			return fmt.Errorf("row reference collection: %w", err)
		}
		if err := json.Unmarshal(parts[1], &decoded.Row); err != nil {
			return fmt.Errorf("row reference row: %w", err)
		}
		*r = decoded
		return nil
	}

	var row map[string]any
	if err := json.Unmarshal(trimmed, &row); err != nil {
		return err
	}
	collection, _ := row["parentfield"].(string)
	*r = RowRef{Collection: collection, Row: row}
	return nil
}

// MarshalJSON encodes the positional form.
func (r RowRef) MarshalJSON() ([]byte, error) {
	return json.Marshal([]any{r.Collection, r.Row})
}

// ChangeLogEntry is one decoded historical record of a document.
type ChangeLogEntry struct {
	ID         uuid.UUID
	DocType    string
	DocumentID uuid.UUID
	Changed    []FieldChange
	RowChanges []RowChange
	Added      []RowRef
	Removed    []RowRef
	DataImport bool
	Keys       []ChangeKey
	Author     string
	Timestamp  time.Time

	// Malformed is set when the payload could not be decoded; such entries
	// carry no keys and no changes.
	Malformed   bool
	DecodeError error
}

// HasKey reports whether the payload carried key.
func (e ChangeLogEntry) HasKey(key ChangeKey) bool {
	for _, k := range e.Keys {
		if k == key {
			return true
		}
	}
	return false
}

// IsSubstantive reports whether the entry carries any of the recognized
// change keys. Permission-only or otherwise unrelated version stamps are not.
func (e ChangeLogEntry) IsSubstantive() bool {
	for _, key := range SubstantiveKeys {
		if e.HasKey(key) {
			return true
		}
	}
	return false
}

// ErrMalformedPayload wraps payload decoding failures.
var ErrMalformedPayload = errors.New("malformed change-log payload")

// DecodeChangeLog decodes a raw record. A payload that cannot be parsed does
// not fail: the returned entry is marked Malformed and the error is reported
// alongside it.
func DecodeChangeLog(raw RawChangeLog) (ChangeLogEntry, error) {
	entry := ChangeLogEntry{
		ID:         raw.ID,
		DocType:    raw.DocType,
		DocumentID: raw.DocumentID,
		Author:     raw.Author,
		Timestamp:  raw.Timestamp,
	}

	if err := decodePayload(raw.Payload, &entry); err != nil {
		decodeErr := fmt.Errorf("%w: entry %s: %v", ErrMalformedPayload, raw.ID, err)
		return ChangeLogEntry{
			ID:          raw.ID,
			DocType:     raw.DocType,
			DocumentID:  raw.DocumentID,
			Author:      raw.Author,
			Timestamp:   raw.Timestamp,
			Malformed:   true,
			DecodeError: decodeErr,
		}, decodeErr
	}
	return entry, nil
}

func decodePayload(payload []byte, entry *ChangeLogEntry) error {
	var sections map[string]json.RawMessage
	if err := json.Unmarshal(payload, &sections); err != nil {
		return err
	}

	for _, key := range SubstantiveKeys {
		section, ok := sections[string(key)]
		if !ok {
			continue
		}
		entry.Keys = append(entry.Keys, key)

		var err error
		switch key {
		case ChangeKeyChanged:
			err = decodeSection(section, &entry.Changed)
		case ChangeKeyRowChanged:
			err = decodeSection(section, &entry.RowChanges)
		case ChangeKeyAdded:
			err = decodeSection(section, &entry.Added)
		case ChangeKeyRemoved:
			err = decodeSection(section, &entry.Removed)
		case ChangeKeyDataImport:
			entry.DataImport = true
		}
		if err != nil {
			return fmt.Errorf("%s: %w", key, err)
		}
	}
	return nil
}

func decodeSection[T any](section json.RawMessage, dst *[]T) error {
	if bytes.Equal(bytes.TrimSpace(section), []byte("null")) {
		return nil
	}
	return json.Unmarshal(section, dst)
}

// EncodeChangeLogPayload builds the stored JSON payload for an entry.
func EncodeChangeLogPayload(entry ChangeLogEntry) (json.RawMessage, error) {
	payload := map[string]any{}
	if len(entry.Changed) > 0 || entry.HasKey(ChangeKeyChanged) {
		payload[string(ChangeKeyChanged)] = nonNil(entry.Changed)
	}
	if len(entry.RowChanges) > 0 || entry.HasKey(ChangeKeyRowChanged) {
		payload[string(ChangeKeyRowChanged)] = nonNil(entry.RowChanges)
	}
	if len(entry.Added) > 0 || entry.HasKey(ChangeKeyAdded) {
		payload[string(ChangeKeyAdded)] = nonNil(entry.Added)
	}
	if len(entry.Removed) > 0 || entry.HasKey(ChangeKeyRemoved) {
		payload[string(ChangeKeyRemoved)] = nonNil(entry.Removed)
	}
	if entry.DataImport {
		payload[string(ChangeKeyDataImport)] = true
	}
	return json.Marshal(payload)
}

func nonNil[T any](items []T) []T {
	if items == nil {
		return []T{}
	}
	return items
}
