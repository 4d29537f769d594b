package grades

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMatrixRoundTrip(t *testing.T) {
	ds := dataset(t,
		[3]string{"ANA GARCIA", "MAT", "7"},
		[3]string{"ANA GARCIA", "LEN", "6,5"},
		[3]string{"ANA GARCIA", "ING", "NP"},
		[3]string{"LUIS PEREZ", "MAT", "3"},
		[3]string{"LUIS PEREZ", "ING", "5"},
		[3]string{"EVA SOLER", "LEN", "9.25"},
		[3]string{"EVA SOLER", "ING", "4"},
	)
	students := StudentStatsOf(ds, PassThreshold)
	subjects := SubjectStatsOf(ds, PassThreshold)

	m := ToMatrix(ds, students)
	assert.Equal(t, []string{"MAT", "LEN", "ING", FailingColumn}, m.Columns)
	require.Len(t, m.Rows, 3)
	assert.Equal(t, MatrixRow{Student: "ANA GARCIA", Cells: []string{"7", "6.5", "NP", "0"}}, m.Rows[0])
	assert.Equal(t, MatrixRow{Student: "LUIS PEREZ", Cells: []string{"3", "", "5", "1"}}, m.Rows[1])

	back, err := Reconcile(m)
	require.NoError(t, err)
	assert.Equal(t, students, StudentStatsOf(back, PassThreshold))
	assert.Equal(t, subjects, SubjectStatsOf(back, PassThreshold))
	assert.Equal(t, ds.Students(), back.Students())
	assert.Equal(t, ds.Subjects(), back.Subjects())
	assert.Len(t, back.Records, len(ds.Records))
}

func TestMatrixRoundTripKeepsUngraded(t *testing.T) {
	recs, err := Ingest(RawTable{
		Source:    "acta.xlsx",
		Columns:   []string{"Alumno", "MAT", "REL"},
		Rows:      [][]string{{"GARCIA, ANA", "7", ""}, {"LOPEZ, LUIS", "", ""}, {"SOLER, EVA", "4", ""}},
		AllowWide: true,
	})
	require.NoError(t, err)
	merged, err := Merge(recs)
	require.NoError(t, err)
	ds := Coerce(merged)
	students := StudentStatsOf(ds, PassThreshold)
	subjects := SubjectStatsOf(ds, PassThreshold)
	require.Len(t, students, 3)
	require.Len(t, subjects, 2)

	m := ToMatrix(ds, students)
	assert.Equal(t, []string{MissingCell, MissingCell, "0"}, m.Rows[1].Cells)

	back, err := Reconcile(m)
	require.NoError(t, err)
	assert.Equal(t, students, StudentStatsOf(back, PassThreshold))
	assert.Equal(t, subjects, SubjectStatsOf(back, PassThreshold))

	before, err := Classify(students, LenientPolicy)
	require.NoError(t, err)
	after, err := Classify(StudentStatsOf(back, PassThreshold), LenientPolicy)
	require.NoError(t, err)
	assert.Equal(t, before, after)
}

func TestDerivedSubjectsDroppedInBothLayouts(t *testing.T) {
	recs, err := Ingest(RawTable{
		Columns: []string{"Student", "Subject", "Grade"},
		Rows: [][]string{
			{"ANA", "MAT", "7"},
			{"ANA", "Failing", "1"},
			{"ANA", "Media", "7"},
			{"LUIS", "MAT", "4"},
		},
	})
	require.NoError(t, err)
	merged, err := Merge(recs)
	require.NoError(t, err)
	ds := Coerce(merged)
	assert.Equal(t, []string{"MAT"}, ds.Subjects())

	students := StudentStatsOf(ds, PassThreshold)
	back, err := Reconcile(ToMatrix(ds, students))
	require.NoError(t, err)
	assert.Equal(t, ds.Subjects(), back.Subjects())
	assert.Equal(t, students, StudentStatsOf(back, PassThreshold))

	_, err = Ingest(RawTable{Columns: []string{"Student", "Subject", "Grade"}, Rows: [][]string{{"ANA", "Media", "7"}}})
	assert.ErrorIs(t, err, ErrNoData)
}

func TestReconcileEdits(t *testing.T) {
	m := Matrix{
		Columns: []string{"MAT", "LEN", "Failing", "Media"},
		Rows: []MatrixRow{
			{Student: "GARCIA, ANA", Cells: []string{"4", " ", "9", "9"}},
			{Student: "LUIS", Cells: []string{"", "5"}},
		},
	}
	ds, err := Reconcile(m)
	require.NoError(t, err)
	assert.Equal(t, []Record{
		{Student: "ANA GARCIA", Subject: "MAT", Raw: "4", Grade: ScoreOf(4)},
		{Student: "LUIS", Subject: "LEN", Raw: "5", Grade: ScoreOf(5)},
	}, ds.Records)
	assert.Equal(t, []string{"MAT", "LEN"}, ds.Subjects())
}

func TestReconcileEmpty(t *testing.T) {
	_, err := Reconcile(Matrix{Columns: []string{"MAT"}, Rows: []MatrixRow{{Student: "ANA", Cells: []string{""}}}})
	assert.ErrorIs(t, err, ErrEmptyBatch)
}

func TestToMatrixWithoutStats(t *testing.T) {
	ds := dataset(t, [3]string{"ANA", "MAT", "7"})
	m := ToMatrix(ds, nil)
	assert.Equal(t, []string{"MAT"}, m.Columns)
	assert.Equal(t, []string{"7"}, m.Rows[0].Cells)
}
