package grades

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func studentsWithFailing(counts ...int) []StudentStats {
	out := make([]StudentStats, len(counts))
	for i, c := range counts {
		out[i] = StudentStats{Student: string(rune('A' + i)), FailingCount: c}
	}
	return out
}

func TestClassifyLenient(t *testing.T) {
	cs, err := Classify(studentsWithFailing(0, 0, 1, 1, 2, 2, 3, 3, 4, 5), LenientPolicy)
	require.NoError(t, err)
	assert.Equal(t, 10, cs.TotalStudents)
	assert.Equal(t, 6, cs.Promote)
	assert.Equal(t, 4, cs.NonPromote)
	assert.InDelta(t, 60.0, cs.PromotePct, 1e-9)
	assert.InDelta(t, 40.0, cs.NonPromotePct, 1e-9)
	assert.InDelta(t, 2.1, cs.GroupMeanFailing, 1e-9)

	require.Len(t, cs.Tiers, 4)
	labels := []string{}
	counts := []int{}
	for _, tc := range cs.Tiers {
		labels = append(labels, tc.Label)
		counts = append(counts, tc.Count)
	}
	assert.Equal(t, []string{"0", "1", "2", ">2"}, labels)
	assert.Equal(t, []int{2, 2, 2, 4}, counts)
	assert.True(t, cs.Tiers[2].Promotes)
	assert.False(t, cs.Tiers[3].Promotes)
	assert.Equal(t, -1, cs.Tiers[3].Max)
}

func TestClassifyPromoteUpToTwo(t *testing.T) {
	cs, err := Classify(studentsWithFailing(0, 0, 1, 1, 1, 2, 2, 3, 4, 5), LenientPolicy)
	require.NoError(t, err)
	assert.Equal(t, 7, cs.Promote)
	assert.Equal(t, 3, cs.NonPromote)
	assert.InDelta(t, 70.0, cs.PromotePct, 1e-9)
}

func TestClassifyStrict(t *testing.T) {
	cs, err := Classify(studentsWithFailing(0, 2, 3, 3, 4), StrictPolicy)
	require.NoError(t, err)
	require.Len(t, cs.Tiers, 5)
	assert.Equal(t, "3", cs.Tiers[3].Label)
	assert.Equal(t, 2, cs.Tiers[3].Count)
	assert.False(t, cs.Tiers[3].Promotes)
	assert.Equal(t, ">3", cs.Tiers[4].Label)
	assert.Equal(t, 2, cs.Promote)
	assert.Equal(t, 3, cs.NonPromote)
}

func TestClassifyNoStudents(t *testing.T) {
	cs, err := Classify(nil, StrictPolicy)
	require.NoError(t, err)
	assert.Equal(t, 0, cs.TotalStudents)
	assert.Equal(t, 0.0, cs.PromotePct)
	assert.Equal(t, 0.0, cs.NonPromotePct)
	assert.Equal(t, 0.0, cs.GroupMeanFailing)
	for _, tc := range cs.Tiers {
		assert.Equal(t, 0.0, tc.Pct)
	}
}

func TestNewTierPolicy(t *testing.T) {
	p, err := NewTierPolicy("wide", []int{0, 2, 4}, []int{0, 1})
	require.NoError(t, err)
	assert.Equal(t, "0", p.TierLabel(0))
	assert.Equal(t, "1-2", p.TierLabel(1))
	assert.Equal(t, "3-4", p.TierLabel(2))
	assert.Equal(t, ">4", p.TierLabel(3))
	assert.Equal(t, 1, p.TierOf(2))
	assert.Equal(t, 3, p.TierOf(9))

	for _, bad := range []struct {
		cutoffs, promote []int
	}{
		{nil, nil},
		{[]int{1, 1}, nil},
		{[]int{2, 1}, nil},
		{[]int{-1, 2}, nil},
		{[]int{0, 1}, []int{3}},
		{[]int{0, 1}, []int{-1}},
	} {
		_, err := NewTierPolicy("bad", bad.cutoffs, bad.promote)
		assert.ErrorIs(t, err, ErrInvalidPolicy, "cutoffs %v promote %v", bad.cutoffs, bad.promote)
	}
}

func TestPolicyByName(t *testing.T) {
	p, ok := PolicyByName(" Strict ")
	require.True(t, ok)
	assert.Equal(t, StrictPolicy.Cutoffs, p.Cutoffs)
	_, ok = PolicyByName("nope")
	assert.False(t, ok)
}
