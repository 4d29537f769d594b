package grades

import (
	"strconv"
	"strings"
)

// MissingCell marks a grade that exists but has no value, so it is not
// confused with an absent one (a blank cell) when the matrix comes back.
const MissingCell = "-"

// Matrix is the wide student-by-subject form handed to a human for
// correction.
type Matrix struct {
	Columns []string    `json:"columns"`
	Rows    []MatrixRow `json:"rows"`
}

// MatrixRow is one student's cells, aligned with Matrix.Columns.
type MatrixRow struct {
	Student string   `json:"student"`
	Cells   []string `json:"cells"`
}

// ToMatrix pivots d into rows by student and columns by subject, both in
// first-appearance order. A missing grade keeps its raw token, or MissingCell
// when it had none, so the cell survives a round trip. When stats are given the read-only FailingColumn is
// appended.
func ToMatrix(d Dataset, stats []StudentStats) Matrix {
	subjects := d.Subjects()
	col := make(map[string]int, len(subjects))
	for i, s := range subjects {
		col[s] = i
	}
	students := d.Students()
	row := make(map[string]int, len(students))
	m := Matrix{Columns: append([]string(nil), subjects...), Rows: make([]MatrixRow, len(students))}
	width := len(subjects)
	if stats != nil {
		m.Columns = append(m.Columns, FailingColumn)
		width++
	}
	for i, s := range students {
		row[s] = i
		m.Rows[i] = MatrixRow{Student: s, Cells: make([]string, width)}
	}
	for _, r := range d.Records {
		cell := strings.TrimSpace(r.Raw)
		switch {
		case r.Grade.Valid:
			cell = r.Grade.String()
		case cell == "":
			cell = MissingCell
		}
		m.Rows[row[r.Student]].Cells[col[r.Subject]] = cell
	}
	if stats != nil {
		for _, st := range stats {
			if i, ok := row[st.Student]; ok {
				m.Rows[i].Cells[width-1] = strconv.Itoa(st.FailingCount)
			}
		}
	}
	return m
}

// Reconcile converts an edited matrix back into a coerced Dataset. Derived
// columns are ignored, blank cells are dropped and student names are
// normalized again. Subject order follows the matrix columns.
func Reconcile(m Matrix) (Dataset, error) {
	type subjectCol struct {
		idx  int
		name string
	}
	var cols []subjectCol
	for i, c := range m.Columns {
		name := cleanSubject(c)
		if name == "" || IsDerivedColumn(name) {
			continue
		}
		cols = append(cols, subjectCol{idx: i, name: name})
	}
	var recs []Record
	for _, row := range m.Rows {
		student := NormalizeName(row.Student)
		if student == "" {
			continue
		}
		for _, c := range cols {
			if c.idx >= len(row.Cells) {
				continue
			}
			raw := strings.TrimSpace(row.Cells[c.idx])
			if raw == "" {
				continue
			}
			recs = append(recs, Record{Student: student, Subject: c.name, Raw: raw})
		}
	}
	ds, err := Merge(recs)
	if err != nil {
		return Dataset{}, err
	}
	for i, c := range cols {
		if _, ok := ds.SubjectFirstSeen[c.name]; ok {
			ds.SubjectFirstSeen[c.name] = i
		}
	}
	return Coerce(ds), nil
}
