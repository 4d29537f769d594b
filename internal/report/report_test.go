package report

import (
	"archive/zip"
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/KaramelBytes/classreport-cli/internal/grades"
)

func analysis(t *testing.T) grades.Analysis {
	t.Helper()
	var recs []grades.Record
	add := func(student, subject, raw string) {
		recs = append(recs, grades.Record{Student: student, Subject: subject, Raw: raw})
	}
	add("Ana Perez", "MAT", "7")
	add("Ana Perez", "LEN", "4")
	add("Ana Perez", "HIS", "9")
	add("Luis Gomez", "MAT", "3")
	add("Luis Gomez", "LEN", "2")
	add("Luis Gomez", "HIS", "NP")
	add("Marta Ruiz", "MAT", "5")
	add("Marta Ruiz", "LEN", "6.5")
	ds, err := grades.Merge(recs)
	require.NoError(t, err)
	a, err := grades.Analyze(grades.Coerce(ds), grades.Options{Threshold: 5, Policy: grades.LenientPolicy})
	require.NoError(t, err)
	return a
}

func TestMarkdown(t *testing.T) {
	md := Markdown(analysis(t))
	for _, want := range []string{
		"[CLASS SUMMARY]",
		"Students: 3\n",
		"Pass mark: 5\n",
		"[PROMOTION TIERS] policy lenient",
		"| MAT | 3 | 2 | 1 | 66.7 | 33.3 | 5.00 |",
		"1. LEN: 2 failed (66.7%)",
		"| Luis Gomez | 2 | 2 | 2.50 |",
		"- Best student: Ana Perez (mean 6.67)",
		"- Worst subject: LEN (mean 4.17)",
	} {
		assert.Contains(t, md, want)
	}
}

func TestMarkdown_EscapesPipes(t *testing.T) {
	a := analysis(t)
	a.Students[0].Student = "A|B"
	assert.Contains(t, Markdown(a), "| A/B |")
}

func TestJSON(t *testing.T) {
	b, err := JSON(analysis(t))
	require.NoError(t, err)
	var got map[string]any
	require.NoError(t, json.Unmarshal(b, &got))
	cohort := got["cohort"].(map[string]any)
	assert.Equal(t, 3.0, cohort["total_students"])
	assert.Contains(t, got, "ranking")
	assert.True(t, bytes.Contains(b, []byte("\n  ")), "indented")
}

func TestWorkbook(t *testing.T) {
	a := analysis(t)
	f, err := Workbook(a)
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{SummarySheet, SubjectsSheet, RankingSheet, StudentsSheet, RecordsSheet, MatrixSheet}, f.GetSheetList())

	v, err := f.GetCellValue(SummarySheet, "B2")
	require.NoError(t, err)
	assert.Equal(t, "3", v)

	rank, err := f.GetRows(RankingSheet)
	require.NoError(t, err)
	require.Len(t, rank, 4)
	assert.Equal(t, []string{"LEN", "1", "2", "66.67"}, rank[1])

	rec, err := f.GetRows(RecordsSheet)
	require.NoError(t, err)
	require.Len(t, rec, 9)
	assert.Equal(t, []string{"Luis Gomez", "HIS", "", "NP"}, rec[6])

	buf, err := f.WriteToBuffer()
	require.NoError(t, err)
	zr, err := zip.NewReader(bytes.NewReader(buf.Bytes()), int64(buf.Len()))
	require.NoError(t, err)
	charts := 0
	for _, zf := range zr.File {
		if strings.HasPrefix(zf.Name, "xl/charts/chart") {
			charts++
		}
	}
	assert.Equal(t, 2, charts)
}

func TestMatrixRoundTrip(t *testing.T) {
	a := analysis(t)
	for _, name := range []string{"matrix.xlsx", "matrix.csv"} {
		t.Run(name, func(t *testing.T) {
			b, err := MatrixBytes(name, a.Matrix)
			require.NoError(t, err)
			m, err := ReadMatrix(name, b)
			require.NoError(t, err)
			assert.Equal(t, a.Matrix.Columns, m.Columns)
			assert.Equal(t, a.Matrix.Rows, m.Rows)

			ds, err := grades.Reconcile(m)
			require.NoError(t, err)
			assert.ElementsMatch(t, a.Records, ds.Records)
		})
	}
}

func TestReadMatrix_FullWorkbook(t *testing.T) {
	a := analysis(t)
	f, err := Workbook(a)
	require.NoError(t, err)
	buf, err := f.WriteToBuffer()
	require.NoError(t, err)

	m, err := ReadMatrix("report.xlsx", buf.Bytes())
	require.NoError(t, err)
	assert.Equal(t, a.Matrix.Columns, m.Columns)
	require.Len(t, m.Rows, 3)
	assert.Equal(t, "Luis Gomez", m.Rows[1].Student)
}

func TestReadMatrix_Edited(t *testing.T) {
	csv := "Student,MAT,LEN,Failing\n\"Perez, Ana\",8,,0\nLuis Gomez,abs,6,1\n"
	m, err := ReadMatrix("edit.csv", []byte(csv))
	require.NoError(t, err)
	ds, err := grades.Reconcile(m)
	require.NoError(t, err)
	assert.Equal(t, []string{"Ana Perez", "Luis Gomez"}, ds.Students())
	assert.Len(t, ds.Records, 3)
}

func TestMatrixFormats(t *testing.T) {
	_, err := MatrixBytes("m.json", grades.Matrix{})
	assert.ErrorIs(t, err, ErrMatrixFormat)
	_, err = ReadMatrix("m.pdf", nil)
	assert.ErrorIs(t, err, ErrMatrixFormat)
	_, err = ReadMatrix("one.csv", []byte("Student\nAna\n"))
	assert.Error(t, err)

	var buf bytes.Buffer
	require.NoError(t, WriteMatrix(&buf, "m.xlsx", grades.Matrix{Columns: []string{"MAT"}}))
	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	assert.Equal(t, []string{MatrixSheet}, f.GetSheetList())
}
