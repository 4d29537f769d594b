package grades

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Role is the canonical meaning of a source column.
type Role int

const (
	RoleUnknown Role = iota
	RoleStudent
	RoleSubject
	RoleGrade
)

func (r Role) String() string {
	switch r {
	case RoleStudent:
		return "Student"
	case RoleSubject:
		return "Subject"
	case RoleGrade:
		return "Grade"
	default:
		return "unknown"
	}
}

// synonyms maps folded header text to a role.
var synonyms = map[string]Role{
	"student":            RoleStudent,
	"student name":       RoleStudent,
	"name":               RoleStudent,
	"nombre":             RoleStudent,
	"alumno":             RoleStudent,
	"alumna":             RoleStudent,
	"alumno/a":           RoleStudent,
	"estudiante":         RoleStudent,
	"apellidos y nombre": RoleStudent,
	"nombre y apellidos": RoleStudent,
	"nombre completo":    RoleStudent,
	"subject":            RoleSubject,
	"course":             RoleSubject,
	"asignatura":         RoleSubject,
	"materia":            RoleSubject,
	"area":               RoleSubject,
	"grade":              RoleGrade,
	"mark":               RoleGrade,
	"score":              RoleGrade,
	"nota":               RoleGrade,
	"nota final":         RoleGrade,
	"calificacion":       RoleGrade,
	"calificacion final": RoleGrade,
}

// FailingColumn is the synthetic read-only column added to exported matrices.
const FailingColumn = "Failing"

// derivedColumns are computed columns that never carry grades.
var derivedColumns = map[string]struct{}{
	"failing":       {},
	"failing count": {},
	"suspensos":     {},
	"n suspensos":   {},
	"num suspensos": {},
	"mean":          {},
	"media":         {},
	"nota media":    {},
	"average":       {},
	"mean grade":    {},
	"failing_count": {},
	"pct suspensos": {},
	"pct_suspensos": {},
	"aprobado":      {},
	"aprobados":     {},
	"promociona":    {},
	"promote":       {},
	"promotes":      {},
}

var folder = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// foldHeader lower-cases, strips accents and collapses whitespace.
func foldHeader(h string) string {
	out, _, err := transform.String(folder, h)
	if err != nil {
		out = h
	}
	out = strings.ToLower(out)
	out = strings.Trim(out, " \t:.")
	return strings.Join(strings.Fields(out), " ")
}

// RoleOf resolves a header through the synonym table.
func RoleOf(header string) Role {
	return synonyms[foldHeader(header)]
}

// IsDerivedColumn reports whether a header names a computed column.
func IsDerivedColumn(header string) bool {
	_, ok := derivedColumns[foldHeader(header)]
	return ok
}
