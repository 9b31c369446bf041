package domain

import (
	"encoding/json"
	"fmt"
	"reflect"
	"time"
)

// NoChangeLabel is how an Unchanged value is rendered.
const NoChangeLabel = "No Change"

// ValueState tags a FieldValue.
type ValueState uint8

const (
	// ValueUnchanged marks a field an entry did not touch.
	ValueUnchanged ValueState = iota
	// ValueEmpty marks a field holding no value (nil or absent).
	ValueEmpty
	// ValuePresent marks a field holding a value, including the empty string.
	ValuePresent
)

// FieldValue is a tagged field value. The zero value is Unchanged.
type FieldValue struct {
	State ValueState
	Value any
}

// Unchanged returns the "no change" sentinel.
func Unchanged() FieldValue {
	return FieldValue{State: ValueUnchanged}
}

// ValueOf wraps a raw value; nil becomes Empty.
func ValueOf(v any) FieldValue {
	if v == nil {
		return FieldValue{State: ValueEmpty}
	}
	return FieldValue{State: ValuePresent, Value: v}
}

// IsUnchanged reports whether v is the "no change" sentinel.
func (v FieldValue) IsUnchanged() bool {
	return v.State == ValueUnchanged
}

// IsBlank reports whether v carries no displayable content: the sentinel,
// an empty value, or the empty string.
func (v FieldValue) IsBlank() bool {
	switch v.State {
	case ValueUnchanged, ValueEmpty:
		return true
	default:
		s, ok := v.Value.(string)
		return ok && s == ""
	}
}

// Equal compares two values by state and deep equality of their content.
func (v FieldValue) Equal(other FieldValue) bool {
	if v.State != other.State {
		return false
	}
	if v.State != ValuePresent {
		return true
	}
	return valuesEqual(v.Value, other.Value)
}

// Display renders the value for tabular output.
func (v FieldValue) Display() any {
	switch v.State {
	case ValueUnchanged:
		return NoChangeLabel
	case ValueEmpty:
		return nil
	default:
		return v.Value
	}
}

// String renders the value as text for CSV and spreadsheet cells.
func (v FieldValue) String() string {
	return FormatCell(v.Display())
}

// FormatCell converts a display value to text.
func FormatCell(value any) string {
	switch typed := value.(type) {
	case nil:
		return ""
	case string:
		return typed
	case time.Time:
		return typed.Format(time.DateTime)
	case fmt.Stringer:
		return typed.String()
	case map[string]any, []any:
		encoded, err := json.Marshal(typed)
		if err != nil {
			return fmt.Sprintf("%v", typed)
		}
		return string(encoded)
	default:
		return fmt.Sprintf("%v", typed)
	}
}

func valuesEqual(a, b any) bool {
	// JSON numbers decode as float64 while stored values may be ints.
	if af, ok := toFloat(a); ok {
		if bf, ok := toFloat(b); ok {
			return af == bf
		}
	}
	return reflect.DeepEqual(a, b)
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	default:
		return 0, false
	}
}

// FieldSet is an ordered, fixed set of tracked field names.
type FieldSet struct {
	names []string
	index map[string]int
}

// NewFieldSet builds a FieldSet preserving first-seen order. Duplicates are ignored.
func NewFieldSet(names ...string) FieldSet {
	set := FieldSet{
		names: make([]string, 0, len(names)),
		index: make(map[string]int, len(names)),
	}
	for _, name := range names {
		if _, dup := set.index[name]; dup {
			continue
		}
		set.index[name] = len(set.names)
		set.names = append(set.names, name)
	}
	return set
}

// Len returns the number of tracked fields.
func (s FieldSet) Len() int {
	return len(s.names)
}

// Names returns a copy of the ordered field names.
func (s FieldSet) Names() []string {
	out := make([]string, len(s.names))
	copy(out, s.names)
	return out
}

// Contains reports whether name is tracked.
func (s FieldSet) Contains(name string) bool {
	_, ok := s.index[name]
	return ok
}

// Position returns the slot of name within the set.
func (s FieldSet) Position(name string) (int, bool) {
	pos, ok := s.index[name]
	return pos, ok
}

// Subset keeps only the names for which keep returns true, preserving order.
func (s FieldSet) Subset(keep func(name string) bool) FieldSet {
	kept := make([]string, 0, len(s.names))
	for _, name := range s.names {
		if keep(name) {
			kept = append(kept, name)
		}
	}
	return NewFieldSet(kept...)
}

// Snapshot holds one value per tracked field, aligned to its FieldSet.
type Snapshot struct {
	fields FieldSet
	values []FieldValue
}

// NewSnapshot returns a snapshot with every field Unchanged.
func NewSnapshot(fields FieldSet) Snapshot {
	return Snapshot{fields: fields, values: make([]FieldValue, fields.Len())}
}

// SnapshotFromValues builds a snapshot from raw values. Every tracked field
// must be present in values.
func SnapshotFromValues(fields FieldSet, values map[string]any) (Snapshot, error) {
	snapshot := NewSnapshot(fields)
	for i, name := range fields.names {
		raw, ok := values[name]
		if !ok {
			return Snapshot{}, NewInvalidInput(
				fmt.Sprintf("tracked field %q missing from current values", name),
				map[string]any{"field": name},
			)
		}
		snapshot.values[i] = ValueOf(raw)
	}
	return snapshot, nil
}

// Fields returns the FieldSet the snapshot is aligned to.
func (s Snapshot) Fields() FieldSet {
	return s.fields
}

// Get returns the value of a tracked field.
func (s Snapshot) Get(name string) (FieldValue, bool) {
	pos, ok := s.fields.Position(name)
	if !ok {
		return FieldValue{}, false
	}
	return s.values[pos], true
}

// At returns the value at a slot.
func (s Snapshot) At(pos int) FieldValue {
	return s.values[pos]
}

// Set assigns a tracked field; untracked names are ignored.
func (s Snapshot) Set(name string, value FieldValue) bool {
	pos, ok := s.fields.Position(name)
	if !ok {
		return false
	}
	s.values[pos] = value
	return true
}

// Clone returns an independent copy.
func (s Snapshot) Clone() Snapshot {
	values := make([]FieldValue, len(s.values))
	copy(values, s.values)
	return Snapshot{fields: s.fields, values: values}
}

// Map exposes the snapshot as display values keyed by field name.
func (s Snapshot) Map() map[string]any {
	out := make(map[string]any, len(s.values))
	for i, name := range s.fields.names {
		out[name] = s.values[i].Display()
	}
	return out
}
