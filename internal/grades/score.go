package grades

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// PassThreshold is the default pass mark. A grade equal to it passes.
const PassThreshold = 5.0

// Score is an optional finite grade value. The zero value is a missing score.
type Score struct {
	Value float64
	Valid bool
}

// Missing returns an explicitly absent score.
func Missing() Score { return Score{} }

// ScoreOf wraps v. NaN and infinities are reported as missing.
func ScoreOf(v float64) Score {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return Score{}
	}
	return Score{Value: v, Valid: true}
}

// Passed reports whether the score is present and >= threshold.
func (s Score) Passed(threshold float64) bool {
	return s.Valid && s.Value >= threshold
}

// Failed reports whether the score is present and below threshold.
func (s Score) Failed(threshold float64) bool {
	return s.Valid && s.Value < threshold
}

// Or returns the value, or def when the score is missing.
func (s Score) Or(def float64) float64 {
	if !s.Valid {
		return def
	}
	return s.Value
}

// Format renders the score with the given precision; missing renders as "-".
func (s Score) Format(prec int) string {
	if !s.Valid {
		return "-"
	}
	return strconv.FormatFloat(s.Value, 'f', prec, 64)
}

// String renders the shortest exact representation, or "" when missing.
func (s Score) String() string {
	if !s.Valid {
		return ""
	}
	return strconv.FormatFloat(s.Value, 'f', -1, 64)
}

func (s Score) MarshalJSON() ([]byte, error) {
	if !s.Valid {
		return []byte("null"), nil
	}
	return json.Marshal(s.Value)
}

func (s *Score) UnmarshalJSON(b []byte) error {
	if bytes.Equal(bytes.TrimSpace(b), []byte("null")) {
		*s = Score{}
		return nil
	}
	var v float64
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	*s = ScoreOf(v)
	return nil
}

// ParseScore converts a grade token to a Score. Comma and dot decimals are
// both accepted, thousands separators are removed when they differ from the
// decimal separator. Anything that does not parse is missing.
func ParseScore(s string) Score {
	raw := strings.TrimSpace(strings.ReplaceAll(s, "\u00A0", " "))
	if raw == "" {
		return Score{}
	}
	var dec, thou rune
	cpos := strings.LastIndex(raw, ",")
	dpos := strings.LastIndex(raw, ".")
	switch {
	case cpos >= 0 && dpos >= 0:
		if cpos > dpos {
			dec, thou = ',', '.'
		} else {
			dec, thou = '.', ','
		}
	case cpos >= 0:
		dec = ','
	default:
		dec = '.'
	}
	if thou != 0 {
		raw = strings.ReplaceAll(raw, string(thou), "")
	}
	raw = strings.ReplaceAll(raw, " ", "")
	if dec != '.' {
		raw = strings.ReplaceAll(raw, string(dec), ".")
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return Score{}
	}
	return ScoreOf(f)
}
