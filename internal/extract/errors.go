package extract

import (
	"errors"
	"fmt"

	"github.com/KaramelBytes/classreport-cli/internal/ai"
)

// Kind separates credential problems from service and data problems so the
// user can tell "fix your key" from "fix your file".
type Kind int

const (
	// KindData: the model answered but the answer is not a usable table.
	KindData Kind = iota
	// KindConfig: missing or rejected credentials, quota, unknown model.
	KindConfig
	// KindService: rate limits, provider errors, network failures.
	KindService
)

func (k Kind) String() string {
	switch k {
	case KindConfig:
		return "config"
	case KindService:
		return "service"
	default:
		return "data"
	}
}

var (
	// ErrNoText means the source produced no text to extract from.
	ErrNoText = errors.New("no text to extract")
	// ErrNoRows means the model output contained no delimited rows.
	ErrNoRows = errors.New("no delimited rows in model output")
)

// ExtractionError wraps a failure to turn text into a table.
type ExtractionError struct {
	Source string
	Kind   Kind
	Err    error
}

func (e *ExtractionError) Error() string {
	if e.Source != "" {
		return fmt.Sprintf("%s: extraction failed (%s): %v", e.Source, e.Kind, e.Err)
	}
	return fmt.Sprintf("extraction failed (%s): %v", e.Kind, e.Err)
}

func (e *ExtractionError) Unwrap() error { return e.Err }

// KindOf classifies a runtime error.
func KindOf(err error) Kind {
	var (
		auth  *ai.AuthError
		quota *ai.QuotaExceededError
		model *ai.ModelNotFoundError
		ee    *ExtractionError
	)
	switch {
	case errors.As(err, &ee):
		return ee.Kind
	case errors.Is(err, ai.ErrMissingAPIKey), errors.As(err, &auth), errors.As(err, &quota), errors.As(err, &model):
		return KindConfig
	case errors.Is(err, ai.ErrEmptyResponse):
		return KindData
	}
	return KindService
}

// IsConfig reports whether err is a configuration-kind extraction failure.
func IsConfig(err error) bool {
	var ee *ExtractionError
	return errors.As(err, &ee) && ee.Kind == KindConfig
}
