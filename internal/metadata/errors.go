package metadata

import (
	"errors"
	"fmt"
)

// SchemaError is returned when a metadata record does not satisfy the
// schema for its metatype.
type SchemaError struct {
	Name     string
	Metatype string
	Err      error
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("metadata %s %q: schema violation: %v", e.Metatype, e.Name, e.Err)
}

func (e *SchemaError) Unwrap() error {
	return e.Err
}

// IsSchemaError returns true if err is a SchemaError.
func IsSchemaError(err error) bool {
	var e *SchemaError
	return errors.As(err, &e)
}
