package grades

// Coerce parses every record's raw grade text into a Score. Unparseable
// tokens become missing grades; the records themselves are kept. The input
// dataset is not modified.
func Coerce(d Dataset) Dataset {
	out := Dataset{
		Records:          make([]Record, len(d.Records)),
		FirstSeen:        d.FirstSeen,
		SubjectFirstSeen: d.SubjectFirstSeen,
	}
	for i, r := range d.Records {
		r.Grade = ParseScore(r.Raw)
		out.Records[i] = r
	}
	return out
}
