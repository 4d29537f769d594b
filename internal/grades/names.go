package grades

import (
	"regexp"
	"strings"
)

// listIndex matches a list-numbering prefix such as "3. ", "12 - " or "4) ".
var listIndex = regexp.MustCompile(`^\d+[.\-)\s][.\-)\s]*`)

// NormalizeName turns a raw student token into "Firstname(s) Lastname(s)".
//
// A leading list index is removed, "Lastname, Firstname" is reordered on the
// first comma and internal whitespace is collapsed. The output never contains
// a comma or a leading index, so applying it twice is a no-op.
func NormalizeName(raw string) string {
	s := stripListIndex(strings.Join(strings.Fields(raw), " "))
	if last, first, ok := strings.Cut(s, ","); ok {
		first = strings.ReplaceAll(first, ",", " ")
		s = stripListIndex(strings.TrimSpace(first) + " " + strings.TrimSpace(last))
	}
	return strings.Join(strings.Fields(s), " ")
}

func stripListIndex(s string) string {
	s = strings.TrimSpace(s)
	for {
		loc := listIndex.FindStringIndex(s)
		if loc == nil {
			return s
		}
		s = strings.TrimSpace(s[loc[1]:])
	}
}
