package validation

import (
	"fmt"
	"strings"
)

// Field is a named form value.
type Field struct {
	Name  string
	Value string
}

// MissingFieldsError lists required fields that were left blank.
type MissingFieldsError struct {
	Fields []string
}

func (e *MissingFieldsError) Error() string {
	if len(e.Fields) == 1 {
		return fmt.Sprintf("%s is required", e.Fields[0])
	}
	return fmt.Sprintf("%s are required", strings.Join(e.Fields, ", "))
}

// Required reports every field whose value is empty or whitespace. It is
// the only check forms run before handing values to the server, which
// decides whether they are acceptable.
func Required(fields ...Field) error {
	var missing []string
	for _, f := range fields {
		if strings.TrimSpace(f.Value) == "" {
			missing = append(missing, f.Name)
		}
	}
	if len(missing) > 0 {
		return &MissingFieldsError{Fields: missing}
	}
	return nil
}
