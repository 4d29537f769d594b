package session

import (
	"errors"
	"fmt"
	"strings"

	"github.com/KaramelBytes/classreport-cli/internal/extract"
	"github.com/KaramelBytes/classreport-cli/internal/grades"
	"github.com/KaramelBytes/classreport-cli/internal/source"
)

// WarningKind groups per-file problems by what the user has to fix.
type WarningKind string

const (
	WarnUnreadable  WarningKind = "unreadable"
	WarnSchema      WarningKind = "schema"
	WarnNoData      WarningKind = "no-data"
	WarnCredentials WarningKind = "credentials"
	WarnService     WarningKind = "service"
)

// Warning is a skipped source. The batch continues past it.
type Warning struct {
	Source  string      `json:"source"`
	Kind    WarningKind `json:"kind"`
	Message string      `json:"message"`
}

func (w Warning) String() string {
	return fmt.Sprintf("%s: %s (%s)", w.Source, w.Message, w.Kind)
}

// warningFor classifies a per-file error.
func warningFor(name string, err error) Warning {
	w := Warning{Source: name, Message: err.Error()}
	var (
		se *grades.SchemaResolutionError
		ee *extract.ExtractionError
		ue *source.UnreadableError
	)
	switch {
	case errors.As(err, &se):
		w.Kind = WarnSchema
		w.Message = fmt.Sprintf("cannot map columns to %s (columns seen: %s)", strings.Join(se.Unresolved, ", "), strings.Join(se.Columns, ", "))
	case errors.Is(err, grades.ErrNoData):
		w.Kind = WarnNoData
		w.Message = "no usable rows"
	case errors.As(err, &ee):
		switch ee.Kind {
		case extract.KindConfig:
			w.Kind = WarnCredentials
		case extract.KindService:
			w.Kind = WarnService
		default:
			w.Kind = WarnNoData
		}
		w.Message = ee.Err.Error()
	case errors.As(err, &ue):
		w.Kind = WarnUnreadable
		w.Message = ue.Err.Error()
	default:
		w.Kind = WarnUnreadable
	}
	return w
}

// BatchError is returned when no source of a batch produced any record.
type BatchError struct {
	Warnings []Warning
}

// ConfigOnly reports whether every failure was a credentials problem.
func (e *BatchError) ConfigOnly() bool {
	if len(e.Warnings) == 0 {
		return false
	}
	for _, w := range e.Warnings {
		if w.Kind != WarnCredentials {
			return false
		}
	}
	return true
}

// Hint tells the user what to fix.
func (e *BatchError) Hint() string {
	if e.ConfigOnly() {
		return "check your API key"
	}
	return "check the file format"
}

func (e *BatchError) Error() string {
	return fmt.Sprintf("%v: %s (%d file(s) skipped)", grades.ErrEmptyBatch, e.Hint(), len(e.Warnings))
}

func (e *BatchError) Unwrap() error { return grades.ErrEmptyBatch }
