package validator

import (
	"fmt"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/rpattn/versionaudit/internal/domain"
)

// JSONBValidator checks document field values against a doctype schema
type JSONBValidator struct{}

// NewJSONBValidator creates a new JSONB validator
func NewJSONBValidator() *JSONBValidator {
	return &JSONBValidator{}
}

// ValidationError represents a validation error
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Value   any    `json:"value,omitempty"`
}

// ValidationResult represents the result of validation
type ValidationResult struct {
	IsValid  bool              `json:"is_valid"`
	Errors   []ValidationError `json:"errors"`
	Warnings []ValidationError `json:"warnings"`
}

// Err returns an INVALID_INPUT error listing every failure, or nil.
func (r ValidationResult) Err() error {
	if r.IsValid {
		return nil
	}
	messages := make([]string, len(r.Errors))
	for i, e := range r.Errors {
		messages[i] = e.Message
	}
	return domain.NewInvalidInput(
		"document fields do not match schema: "+strings.Join(messages, "; "),
		map[string]any{"errors": r.Errors},
	)
}

// ValidateFields validates document fields against the schema. Every tracked
// field must be present, though nil is allowed. Fields the schema does not
// declare only produce warnings.
func (jv *JSONBValidator) ValidateFields(schema domain.DocTypeSchema, fields map[string]any) ValidationResult {
	result := ValidationResult{
		IsValid:  true,
		Errors:   []ValidationError{},
		Warnings: []ValidationError{},
	}

	declared := make(map[string]struct{}, len(schema.Fields))
	for _, def := range schema.Fields {
		if def.Kind.IsLayoutOnly() || def.Name == "" {
			continue
		}
		declared[def.Name] = struct{}{}

		value, exists := fields[def.Name]
		if !exists {
			result.IsValid = false
			result.Errors = append(result.Errors, ValidationError{
				Field:   def.Name,
				Message: fmt.Sprintf("field '%s' is missing", def.Name),
			})
			continue
		}
		if value == nil {
			continue
		}

		if err := jv.validateFieldKind(def.Name, value, def.Kind); err != nil {
			result.IsValid = false
			result.Errors = append(result.Errors, ValidationError{
				Field:   def.Name,
				Message: err.Error(),
				Value:   value,
			})
			continue
		}

		if def.Kind == domain.FieldKindSelect {
			if err := jv.validateSelectOption(def, value); err != nil {
				result.Warnings = append(result.Warnings, ValidationError{
					Field:   def.Name,
					Message: err.Error(),
					Value:   value,
				})
			}
		}
	}

	for name, value := range fields {
		if _, ok := declared[name]; !ok {
			result.Warnings = append(result.Warnings, ValidationError{
				Field:   name,
				Message: fmt.Sprintf("field '%s' is not defined in schema", name),
				Value:   value,
			})
		}
	}

	return result
}

// validateFieldKind validates the type of a field value
func (jv *JSONBValidator) validateFieldKind(fieldName string, value any, kind domain.FieldKind) error {
	switch kind {
	case domain.FieldKindData, domain.FieldKindText, domain.FieldKindSelect, domain.FieldKindLink:
		if _, ok := value.(string); !ok {
			return fmt.Errorf("field '%s' must be a string, got %T", fieldName, value)
		}
	case domain.FieldKindInt:
		if !jv.isInteger(value) {
			return fmt.Errorf("field '%s' must be an integer, got %T", fieldName, value)
		}
	case domain.FieldKindFloat:
		if !jv.isFloat(value) {
			return fmt.Errorf("field '%s' must be a number, got %T", fieldName, value)
		}
	case domain.FieldKindCheck:
		if !jv.isCheck(value) {
			return fmt.Errorf("field '%s' must be a boolean or 0/1, got %v", fieldName, value)
		}
	case domain.FieldKindDate:
		if err := jv.parseTime(value, time.DateOnly); err != nil {
			return fmt.Errorf("field '%s' must be a date (YYYY-MM-DD): %v", fieldName, err)
		}
	case domain.FieldKindDatetime:
		if err := jv.parseTime(value, time.RFC3339, time.DateTime); err != nil {
			return fmt.Errorf("field '%s' must be a datetime: %v", fieldName, err)
		}
	case domain.FieldKindTable:
		if !jv.isRowList(value) {
			return fmt.Errorf("field '%s' must be a list of rows, got %T", fieldName, value)
		}
	default:
		return fmt.Errorf("unknown field type: %s", kind)
	}

	return nil
}

func (jv *JSONBValidator) validateSelectOption(def domain.FieldDefinition, value any) error {
	str, _ := value.(string)
	if str == "" || strings.TrimSpace(def.Options) == "" {
		return nil
	}
	for _, option := range strings.Split(def.Options, "\n") {
		if strings.TrimSpace(option) == str {
			return nil
		}
	}
	return fmt.Errorf("field '%s' value '%s' is not one of its options", def.Name, str)
}

// Helper methods for type checking
func (jv *JSONBValidator) isInteger(value any) bool {
	switch v := value.(type) {
	case int, int8, int16, int32, int64:
		return true
	case uint, uint8, uint16, uint32, uint64:
		return true
	case float64:
		return v == float64(int64(v))
	case string:
		_, err := strconv.Atoi(v)
		return err == nil
	default:
		return false
	}
}

func (jv *JSONBValidator) isFloat(value any) bool {
	switch v := value.(type) {
	case float32, float64:
		return true
	case int, int8, int16, int32, int64:
		return true
	case uint, uint8, uint16, uint32, uint64:
		return true
	case string:
		_, err := strconv.ParseFloat(v, 64)
		return err == nil
	default:
		return false
	}
}

func (jv *JSONBValidator) isCheck(value any) bool {
	if _, ok := value.(bool); ok {
		return true
	}
	if !jv.isInteger(value) {
		return false
	}
	n, err := strconv.ParseFloat(fmt.Sprint(value), 64)
	return err == nil && (n == 0 || n == 1)
}

func (jv *JSONBValidator) parseTime(value any, layouts ...string) error {
	switch v := value.(type) {
	case time.Time:
		return nil
	case string:
		var lastErr error
		for _, layout := range layouts {
			_, err := time.Parse(layout, v)
			if err == nil {
				return nil
			}
			lastErr = err
		}
		return lastErr
	default:
		return fmt.Errorf("got %T", value)
	}
}

func (jv *JSONBValidator) isRowList(value any) bool {
	rows := reflect.ValueOf(value)
	if rows.Kind() != reflect.Slice {
		return false
	}
	for i := 0; i < rows.Len(); i++ {
		if _, ok := rows.Index(i).Interface().(map[string]any); !ok {
			return false
		}
	}
	return true
}
