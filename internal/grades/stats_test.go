package grades

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dataset(t *testing.T, rows ...[3]string) Dataset {
	t.Helper()
	recs := make([]Record, 0, len(rows))
	for _, r := range rows {
		recs = append(recs, Record{Student: r[0], Subject: r[1], Raw: r[2]})
	}
	ds, err := Merge(recs)
	require.NoError(t, err)
	return Coerce(ds)
}

func TestStudentStats(t *testing.T) {
	ds := dataset(t,
		[3]string{"LUIS", "MAT", "4"},
		[3]string{"ANA", "MAT", "5"},
		[3]string{"LUIS", "LEN", "8"},
		[3]string{"ANA", "LEN", "4.999999"},
		[3]string{"EVA", "LEN", "NP"},
	)
	st := StudentStatsOf(ds, PassThreshold)
	require.Len(t, st, 3)
	assert.Equal(t, "LUIS", st[0].Student)
	assert.Equal(t, 1, st[0].FailingCount)
	assert.InDelta(t, 6.0, st[0].Mean.Value, 1e-12)
	assert.Equal(t, "ANA", st[1].Student)
	assert.Equal(t, 1, st[1].FailingCount)
	assert.Equal(t, 2, st[1].Graded)
	assert.Equal(t, "EVA", st[2].Student)
	assert.False(t, st[2].Mean.Valid, "no grades must not read as 0")
	assert.Equal(t, 0, st[2].Graded)
}

func TestSubjectStatsZeroTotal(t *testing.T) {
	ds := dataset(t,
		[3]string{"ANA", "MAT", "7"},
		[3]string{"LUIS", "MAT", "3"},
		[3]string{"ANA", "ART", ""},
		[3]string{"LUIS", "ART", "NP"},
	)
	st := SubjectStatsOf(ds, PassThreshold)
	require.Len(t, st, 2)
	mat, art := st[0], st[1]
	assert.Equal(t, SubjectStats{Subject: "MAT", Total: 2, Passed: 1, Failed: 1, Mean: ScoreOf(5), PassPct: 50, FailPct: 50}, mat)
	assert.Equal(t, "ART", art.Subject)
	assert.Equal(t, 0, art.Total)
	assert.Equal(t, 0.0, art.PassPct)
	assert.Equal(t, 0.0, art.FailPct)
	assert.False(t, art.Mean.Valid)
}

func TestBestStudentsReportsTies(t *testing.T) {
	ds := dataset(t,
		[3]string{"ANA", "MAT", "9.5"},
		[3]string{"LUIS", "MAT", "9.5"},
		[3]string{"EVA", "MAT", "6"},
		[3]string{"PAU", "MAT", "NP"},
	)
	st := StudentStatsOf(ds, PassThreshold)
	best := BestStudents(st)
	require.Len(t, best, 2)
	assert.Equal(t, "ANA", best[0].Student)
	assert.Equal(t, "LUIS", best[1].Student)

	worst := WorstStudents(st)
	require.Len(t, worst, 1)
	assert.Equal(t, "EVA", worst[0].Student)
}

func TestExtremesEmpty(t *testing.T) {
	assert.Empty(t, BestStudents(nil))
	assert.NotNil(t, BestStudents(nil))
	assert.Empty(t, WorstSubjects([]SubjectStats{{Subject: "ART"}}))
}

func TestBestWorstSubjects(t *testing.T) {
	ds := dataset(t,
		[3]string{"ANA", "MAT", "3"},
		[3]string{"ANA", "LEN", "8"},
		[3]string{"ANA", "ING", "8"},
		[3]string{"LUIS", "MAT", "4"},
		[3]string{"LUIS", "LEN", "6"},
		[3]string{"LUIS", "ING", "6"},
	)
	sub := SubjectStatsOf(ds, PassThreshold)
	best := BestSubjects(sub)
	require.Len(t, best, 2)
	assert.Equal(t, "LEN", best[0].Subject)
	assert.Equal(t, "ING", best[1].Subject)
	worst := WorstSubjects(sub)
	require.Len(t, worst, 1)
	assert.Equal(t, "MAT", worst[0].Subject)
}

func TestRanking(t *testing.T) {
	in := []SubjectStats{
		{Subject: "A", Failed: 1, FailPct: 50},
		{Subject: "B", Failed: 3, FailPct: 30},
		{Subject: "C", Failed: 1, FailPct: 100},
		{Subject: "D", Failed: 1, FailPct: 50},
	}
	out := Ranking(in)
	var names []string
	for _, s := range out {
		names = append(names, s.Subject)
	}
	assert.Equal(t, []string{"B", "C", "A", "D"}, names)
	assert.Equal(t, "A", in[0].Subject, "input order preserved")
}

func TestCustomThreshold(t *testing.T) {
	ds := dataset(t, [3]string{"ANA", "MAT", "5.5"})
	st := StudentStatsOf(ds, 6)
	assert.Equal(t, 1, st[0].FailingCount)
	sub := SubjectStatsOf(ds, 6)
	assert.Equal(t, 1, sub[0].Failed)
}
