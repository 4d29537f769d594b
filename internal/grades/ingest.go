package grades

import "strings"

// Ingest converts one source table into records with normalized student
// names and untouched grade text. It never returns a partial result: either
// every resolvable row comes back, or an error explains why none did.
//
// Layout rules, in order:
//   - wide: AllowWide and no column resolves to Subject or Grade. The first
//     column is the student, every other column is a subject.
//   - exactly three columns: positional Student, Subject, Grade.
//   - more than three columns: headers resolved through the synonym table.
func Ingest(t RawTable) ([]Record, error) {
	if len(t.Columns) == 0 || len(t.Rows) == 0 {
		return nil, ErrNoData
	}
	var (
		out []Record
		err error
	)
	switch {
	case t.AllowWide && !hasLongColumn(t.Columns):
		out, err = ingestWide(t)
	case len(t.Columns) == 3:
		out = ingestLong(t, 0, 1, 2)
	case len(t.Columns) > 3:
		idx, rerr := resolveColumns(t)
		if rerr != nil {
			return nil, rerr
		}
		out = ingestLong(t, idx[RoleStudent], idx[RoleSubject], idx[RoleGrade])
	default:
		return nil, &SchemaResolutionError{Source: t.Source, Columns: t.Columns, Unresolved: unresolvedRoles(t.Columns)}
	}
	if err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, ErrNoData
	}
	return out, nil
}

// hasLongColumn reports whether a header names the subject or grade role,
// which only a long table has.
func hasLongColumn(cols []string) bool {
	for _, c := range cols {
		if r := RoleOf(c); r == RoleSubject || r == RoleGrade {
			return true
		}
	}
	return false
}

// resolveColumns maps each role to the first column carrying it.
func resolveColumns(t RawTable) (map[Role]int, error) {
	idx := map[Role]int{}
	for i, c := range t.Columns {
		r := RoleOf(c)
		if r == RoleUnknown {
			continue
		}
		if _, ok := idx[r]; !ok {
			idx[r] = i
		}
	}
	var missing []string
	for _, r := range []Role{RoleStudent, RoleSubject, RoleGrade} {
		if _, ok := idx[r]; !ok {
			missing = append(missing, r.String())
		}
	}
	if len(missing) > 0 {
		return nil, &SchemaResolutionError{Source: t.Source, Columns: t.Columns, Unresolved: missing}
	}
	return idx, nil
}

func unresolvedRoles(cols []string) []string {
	seen := map[Role]bool{}
	for _, c := range cols {
		seen[RoleOf(c)] = true
	}
	var out []string
	for _, r := range []Role{RoleStudent, RoleSubject, RoleGrade} {
		if !seen[r] {
			out = append(out, r.String())
		}
	}
	if len(out) == 0 {
		// All roles named but too few columns to hold them apart.
		out = []string{RoleStudent.String(), RoleSubject.String(), RoleGrade.String()}
	}
	return out
}

// ingestLong reads one record per row. Rows naming a derived column as their
// subject are dropped, as the wide layout drops those columns.
func ingestLong(t RawTable, si, ji, gi int) []Record {
	out := make([]Record, 0, len(t.Rows))
	for _, row := range t.Rows {
		student := NormalizeName(t.cell(row, si))
		subject := cleanSubject(t.cell(row, ji))
		if student == "" || subject == "" || IsDerivedColumn(subject) {
			continue
		}
		out = append(out, Record{Student: student, Subject: subject, Raw: strings.TrimSpace(t.cell(row, gi))})
	}
	return out
}

func ingestWide(t RawTable) ([]Record, error) {
	if len(t.Columns) < 2 {
		return nil, &SchemaResolutionError{Source: t.Source, Columns: t.Columns, Unresolved: []string{RoleSubject.String(), RoleGrade.String()}}
	}
	type subjectCol struct {
		idx  int
		name string
	}
	var subjects []subjectCol
	for i := 1; i < len(t.Columns); i++ {
		name := cleanSubject(t.Columns[i])
		if name == "" || IsDerivedColumn(name) {
			continue
		}
		subjects = append(subjects, subjectCol{idx: i, name: name})
	}
	if len(subjects) == 0 {
		return nil, &SchemaResolutionError{Source: t.Source, Columns: t.Columns, Unresolved: []string{RoleSubject.String()}}
	}
	var out []Record
	for _, row := range t.Rows {
		student := NormalizeName(t.cell(row, 0))
		if student == "" {
			continue
		}
		for _, sc := range subjects {
			out = append(out, Record{Student: student, Subject: sc.name, Raw: strings.TrimSpace(t.cell(row, sc.idx))})
		}
	}
	return out, nil
}

func cleanSubject(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
