package grades

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrNoData means a source produced zero usable rows.
	ErrNoData = errors.New("no usable rows")
	// ErrEmptyBatch means no source contributed any record.
	ErrEmptyBatch = errors.New("no valid data extracted")
	// ErrInvalidPolicy is returned for malformed tier policies.
	ErrInvalidPolicy = errors.New("invalid tier policy")
)

// SchemaResolutionError reports a table whose columns could not be mapped to
// Student, Subject and Grade.
type SchemaResolutionError struct {
	Source     string
	Columns    []string
	Unresolved []string
}

func (e *SchemaResolutionError) Error() string {
	msg := fmt.Sprintf("cannot resolve %s from columns [%s]", strings.Join(e.Unresolved, ", "), strings.Join(e.Columns, ", "))
	if e.Source != "" {
		return e.Source + ": " + msg
	}
	return msg
}
