package grades

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// TierPolicy buckets students by failing-subject count.
//
// Cutoffs are inclusive upper bounds: cutoffs [0 1 2] produce the tiers
// "0", "1", "2" and ">2". PromoteTiers lists the tier indexes whose students
// are promoted.
type TierPolicy struct {
	Name         string `json:"name" yaml:"name"`
	Cutoffs      []int  `json:"cutoffs" yaml:"cutoffs"`
	PromoteTiers []int  `json:"promote_tiers" yaml:"promote_tiers"`
}

// Built-in policies observed in report variants.
var (
	// LenientPolicy: 0, 1, 2, >2; students with up to two failures promote.
	LenientPolicy = TierPolicy{Name: "lenient", Cutoffs: []int{0, 1, 2}, PromoteTiers: []int{0, 1, 2}}
	// StrictPolicy keeps a separate bucket for exactly three failures.
	StrictPolicy = TierPolicy{Name: "strict", Cutoffs: []int{0, 1, 2, 3}, PromoteTiers: []int{0, 1, 2}}
)

// Policies returns the built-in policies.
func Policies() []TierPolicy { return []TierPolicy{LenientPolicy, StrictPolicy} }

// PolicyByName looks up a built-in policy.
func PolicyByName(name string) (TierPolicy, bool) {
	for _, p := range Policies() {
		if strings.EqualFold(p.Name, strings.TrimSpace(name)) {
			return p, true
		}
	}
	return TierPolicy{}, false
}

// NewTierPolicy builds and validates a custom policy.
func NewTierPolicy(name string, cutoffs, promote []int) (TierPolicy, error) {
	p := TierPolicy{Name: name, Cutoffs: append([]int(nil), cutoffs...), PromoteTiers: append([]int(nil), promote...)}
	if err := p.Validate(); err != nil {
		return TierPolicy{}, err
	}
	return p, nil
}

// Validate checks cutoffs are strictly increasing and non-negative and that
// promote indexes point at existing tiers.
func (p TierPolicy) Validate() error {
	if len(p.Cutoffs) == 0 {
		return fmt.Errorf("%w: no cutoffs", ErrInvalidPolicy)
	}
	for i, c := range p.Cutoffs {
		if c < 0 {
			return fmt.Errorf("%w: negative cutoff %d", ErrInvalidPolicy, c)
		}
		if i > 0 && c <= p.Cutoffs[i-1] {
			return fmt.Errorf("%w: cutoffs must increase (%d after %d)", ErrInvalidPolicy, c, p.Cutoffs[i-1])
		}
	}
	n := p.TierCount()
	for _, t := range p.PromoteTiers {
		if t < 0 || t >= n {
			return fmt.Errorf("%w: promote tier %d out of range [0,%d)", ErrInvalidPolicy, t, n)
		}
	}
	return nil
}

// TierCount is len(Cutoffs)+1.
func (p TierPolicy) TierCount() int { return len(p.Cutoffs) + 1 }

// TierOf returns the tier index for a failing count.
func (p TierPolicy) TierOf(failing int) int {
	return sort.SearchInts(p.Cutoffs, failing)
}

// Promotes reports whether tier i promotes.
func (p TierPolicy) Promotes(tier int) bool {
	for _, t := range p.PromoteTiers {
		if t == tier {
			return true
		}
	}
	return false
}

// bounds returns the inclusive failing-count range of tier i; max is -1 for
// the open last tier.
func (p TierPolicy) bounds(i int) (lo, hi int) {
	if i > 0 {
		lo = p.Cutoffs[i-1] + 1
	}
	if i >= len(p.Cutoffs) {
		return lo, -1
	}
	return lo, p.Cutoffs[i]
}

// TierLabel renders tier i, e.g. "0", "1-2" or ">2".
func (p TierPolicy) TierLabel(i int) string {
	lo, hi := p.bounds(i)
	switch {
	case hi < 0:
		return ">" + strconv.Itoa(lo-1)
	case lo == hi:
		return strconv.Itoa(lo)
	default:
		return fmt.Sprintf("%d-%d", lo, hi)
	}
}

// TierCount is one bucket of a cohort summary.
type TierCount struct {
	Label    string  `json:"label"`
	Min      int     `json:"min_failing"`
	Max      int     `json:"max_failing"` // -1: unbounded
	Count    int     `json:"count"`
	Pct      float64 `json:"pct"`
	Promotes bool    `json:"promotes"`
}

// CohortSummary is the group-level view of a class.
type CohortSummary struct {
	Policy           string      `json:"policy"`
	TotalStudents    int         `json:"total_students"`
	GroupMeanFailing float64     `json:"group_mean_failing"`
	GlobalMean       Score       `json:"global_mean_grade"`
	Tiers            []TierCount `json:"tiers"`
	Promote          int         `json:"promote_count"`
	NonPromote       int         `json:"non_promote_count"`
	PromotePct       float64     `json:"promote_pct"`
	NonPromotePct    float64     `json:"non_promote_pct"`
}

// Classify buckets students under policy p. With no students every count and
// percentage is zero.
func Classify(students []StudentStats, p TierPolicy) (CohortSummary, error) {
	if err := p.Validate(); err != nil {
		return CohortSummary{}, err
	}
	cs := CohortSummary{Policy: p.Name, TotalStudents: len(students), Tiers: make([]TierCount, p.TierCount())}
	for i := range cs.Tiers {
		lo, hi := p.bounds(i)
		cs.Tiers[i] = TierCount{Label: p.TierLabel(i), Min: lo, Max: hi, Promotes: p.Promotes(i)}
	}
	failing := 0
	for _, s := range students {
		failing += s.FailingCount
		t := p.TierOf(s.FailingCount)
		cs.Tiers[t].Count++
		if cs.Tiers[t].Promotes {
			cs.Promote++
		} else {
			cs.NonPromote++
		}
	}
	for i := range cs.Tiers {
		cs.Tiers[i].Pct = percent(cs.Tiers[i].Count, cs.TotalStudents)
	}
	cs.PromotePct = percent(cs.Promote, cs.TotalStudents)
	cs.NonPromotePct = percent(cs.NonPromote, cs.TotalStudents)
	if cs.TotalStudents > 0 {
		cs.GroupMeanFailing = float64(failing) / float64(cs.TotalStudents)
	}
	return cs, nil
}
