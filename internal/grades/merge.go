package grades

// Merge concatenates per-source records in order and removes duplicate
// (student, subject) pairs, keeping the last occurrence at its own position.
// First-appearance positions are recorded before deduplication.
func Merge(sources ...[]Record) (Dataset, error) {
	total := 0
	for _, s := range sources {
		total += len(s)
	}
	if total == 0 {
		return Dataset{}, ErrEmptyBatch
	}
	all := make([]Record, 0, total)
	for _, s := range sources {
		all = append(all, s...)
	}

	ds := Dataset{
		FirstSeen:        make(map[string]int),
		SubjectFirstSeen: make(map[string]int),
	}
	last := make(map[key]int, len(all))
	for i, r := range all {
		if _, ok := ds.FirstSeen[r.Student]; !ok {
			ds.FirstSeen[r.Student] = i
		}
		if _, ok := ds.SubjectFirstSeen[r.Subject]; !ok {
			ds.SubjectFirstSeen[r.Subject] = i
		}
		last[r.key()] = i
	}
	ds.Records = make([]Record, 0, len(last))
	for i, r := range all {
		if last[r.key()] == i {
			ds.Records = append(ds.Records, r)
		}
	}
	return ds, nil
}
