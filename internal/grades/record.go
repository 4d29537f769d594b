package grades

import "sort"

// Record is one (student, subject, grade) fact.
type Record struct {
	Student string `json:"student"`
	Subject string `json:"subject"`
	// Raw keeps the original cell text so coercion can be re-run after a
	// correction without losing unparseable tokens.
	Raw   string `json:"raw,omitempty"`
	Grade Score  `json:"grade"`
}

type key struct{ student, subject string }

func (r Record) key() key { return key{r.Student, r.Subject} }

// RawTable is a source table before its columns are resolved. Cells are kept
// as text; nothing outside this package sees a RawTable after Ingest.
type RawTable struct {
	Source  string
	Columns []string
	Rows    [][]string
	// AllowWide enables the student-by-subject spreadsheet layout.
	AllowWide bool
}

func (t RawTable) cell(row []string, i int) string {
	if i < 0 || i >= len(row) {
		return ""
	}
	return row[i]
}

// Dataset is the canonical, deduplicated relation of one session.
type Dataset struct {
	Records []Record `json:"records"`
	// FirstSeen maps each student to the position of its first appearance in
	// the merged input, captured before deduplication.
	FirstSeen map[string]int `json:"first_seen"`
	// SubjectFirstSeen does the same for subjects (matrix column order).
	SubjectFirstSeen map[string]int `json:"subject_first_seen"`
}

// Len returns the number of records.
func (d Dataset) Len() int { return len(d.Records) }

// Students returns the distinct students in first-appearance order.
func (d Dataset) Students() []string { return orderedKeys(d.FirstSeen) }

// Subjects returns the distinct subjects in first-appearance order.
func (d Dataset) Subjects() []string { return orderedKeys(d.SubjectFirstSeen) }

func orderedKeys(m map[string]int) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Slice(out, func(i, j int) bool {
		if m[out[i]] == m[out[j]] {
			return out[i] < out[j]
		}
		return m[out[i]] < m[out[j]]
	})
	return out
}
