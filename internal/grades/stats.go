package grades

import (
	"math"
	"sort"

	"github.com/montanaflynn/stats"
)

// tieTolerance absorbs floating point noise when comparing means for ties.
const tieTolerance = 1e-9

// StudentStats summarizes one student's graded subjects.
type StudentStats struct {
	Student      string `json:"student"`
	FailingCount int    `json:"failing_count"`
	Graded       int    `json:"graded"`
	Mean         Score  `json:"mean_grade"`
}

// SubjectStats summarizes one subject across students.
type SubjectStats struct {
	Subject string  `json:"subject"`
	Total   int     `json:"total_count"`
	Passed  int     `json:"pass_count"`
	Failed  int     `json:"fail_count"`
	Mean    Score   `json:"mean_grade"`
	PassPct float64 `json:"pass_pct"`
	FailPct float64 `json:"fail_pct"`
}

// StudentStatsOf computes per-student statistics in first-appearance order.
// Missing grades are ignored; a student without any grade has an invalid Mean.
func StudentStatsOf(d Dataset, threshold float64) []StudentStats {
	vals := map[string][]float64{}
	for _, r := range d.Records {
		if r.Grade.Valid {
			vals[r.Student] = append(vals[r.Student], r.Grade.Value)
		}
	}
	students := d.Students()
	out := make([]StudentStats, 0, len(students))
	for _, s := range students {
		st := StudentStats{Student: s, Graded: len(vals[s]), Mean: meanOf(vals[s])}
		for _, v := range vals[s] {
			if v < threshold {
				st.FailingCount++
			}
		}
		out = append(out, st)
	}
	return out
}

// SubjectStatsOf computes per-subject statistics in first-appearance order.
// Subjects without any grade are listed with zero counts and percentages.
func SubjectStatsOf(d Dataset, threshold float64) []SubjectStats {
	vals := map[string][]float64{}
	for _, r := range d.Records {
		if r.Grade.Valid {
			vals[r.Subject] = append(vals[r.Subject], r.Grade.Value)
		}
	}
	subjects := d.Subjects()
	out := make([]SubjectStats, 0, len(subjects))
	for _, name := range subjects {
		st := SubjectStats{Subject: name, Total: len(vals[name]), Mean: meanOf(vals[name])}
		for _, v := range vals[name] {
			if v >= threshold {
				st.Passed++
			} else {
				st.Failed++
			}
		}
		st.PassPct = percent(st.Passed, st.Total)
		st.FailPct = percent(st.Failed, st.Total)
		out = append(out, st)
	}
	return out
}

// BestStudents returns every student tied at the highest mean grade.
func BestStudents(in []StudentStats) []StudentStats {
	return extremes(in, func(s StudentStats) Score { return s.Mean }, 1)
}

// WorstStudents returns every student tied at the lowest mean grade.
func WorstStudents(in []StudentStats) []StudentStats {
	return extremes(in, func(s StudentStats) Score { return s.Mean }, -1)
}

// BestSubjects returns every subject tied at the highest mean grade.
func BestSubjects(in []SubjectStats) []SubjectStats {
	return extremes(in, func(s SubjectStats) Score { return s.Mean }, 1)
}

// WorstSubjects returns every subject tied at the lowest mean grade.
func WorstSubjects(in []SubjectStats) []SubjectStats {
	return extremes(in, func(s SubjectStats) Score { return s.Mean }, -1)
}

// Ranking orders subjects by failures, most failed first. Ties keep the
// input order.
func Ranking(in []SubjectStats) []SubjectStats {
	out := make([]SubjectStats, len(in))
	copy(out, in)
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Failed != out[j].Failed {
			return out[i].Failed > out[j].Failed
		}
		return out[i].FailPct > out[j].FailPct
	})
	return out
}

// extremes keeps entries whose score equals the max (dir 1) or min (dir -1).
func extremes[T any](in []T, score func(T) Score, dir float64) []T {
	best := math.Inf(-1)
	found := false
	for _, e := range in {
		s := score(e)
		if !s.Valid {
			continue
		}
		if v := dir * s.Value; !found || v > best {
			best = v
			found = true
		}
	}
	out := []T{}
	if !found {
		return out
	}
	for _, e := range in {
		s := score(e)
		if s.Valid && math.Abs(dir*s.Value-best) <= tieTolerance {
			out = append(out, e)
		}
	}
	return out
}

func meanOf(vals []float64) Score {
	m, err := stats.Mean(stats.Float64Data(vals))
	if err != nil {
		return Missing()
	}
	return ScoreOf(m)
}

func percent(n, total int) float64 {
	if total == 0 {
		return 0
	}
	return 100 * float64(n) / float64(total)
}
