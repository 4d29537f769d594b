package report

import (
	"fmt"
	"math"

	"github.com/xuri/excelize/v2"

	"github.com/KaramelBytes/classreport-cli/internal/grades"
)

// Sheet names of the workbook. Chart ranges reference them unquoted, so they
// must stay single words.
const (
	SummarySheet  = "Summary"
	SubjectsSheet = "Subjects"
	RankingSheet  = "Ranking"
	StudentsSheet = "Students"
	RecordsSheet  = "Records"
	MatrixSheet   = "Matrix"
)

const (
	passColor = "70AD47"
	failColor = "C00000"
)

type workbook struct {
	f      *excelize.File
	header int
}

// Workbook renders the analysis into a new XLSX file with one sheet per
// table, a stacked pass/fail chart per subject and a tier distribution chart.
func Workbook(a grades.Analysis) (*excelize.File, error) {
	f := excelize.NewFile()
	w := &workbook{f: f}
	if err := f.SetSheetName("Sheet1", SummarySheet); err != nil {
		return nil, err
	}
	for _, s := range []string{SubjectsSheet, RankingSheet, StudentsSheet, RecordsSheet, MatrixSheet} {
		if _, err := f.NewSheet(s); err != nil {
			return nil, fmt.Errorf("new sheet %s: %w", s, err)
		}
	}
	hs, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Color: "FFFFFF"},
		Fill: excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"305496"}},
	})
	if err != nil {
		return nil, fmt.Errorf("header style: %w", err)
	}
	w.header = hs

	steps := []func(grades.Analysis) error{
		w.summary, w.subjects, w.ranking, w.students, w.records, w.matrix,
	}
	for _, step := range steps {
		if err := step(a); err != nil {
			_ = f.Close()
			return nil, err
		}
	}
	f.SetActiveSheet(0)
	return f, nil
}

func (w *workbook) summary(a grades.Analysis) error {
	c := a.Cohort
	rows := [][]any{
		{"Metric", "Value"},
		{"Students", c.TotalStudents},
		{"Subjects", len(a.Subjects)},
		{"Records", len(a.Records)},
		{"Pass mark", a.Threshold},
		{"Mean grade", scoreCell(c.GlobalMean)},
		{"Mean failing subjects", round2(c.GroupMeanFailing)},
		{"Promote", c.Promote},
		{"Promote %", round2(c.PromotePct)},
		{"Not promote", c.NonPromote},
		{"Not promote %", round2(c.NonPromotePct)},
		{"Tier policy", c.Policy},
	}
	if err := w.table(SummarySheet, 1, rows); err != nil {
		return err
	}
	tierRow := len(rows) + 2
	tiers := [][]any{{"Failing subjects", "Students", "%", "Promotes"}}
	for _, t := range c.Tiers {
		tiers = append(tiers, []any{t.Label, t.Count, round2(t.Pct), yesNo(t.Promotes)})
	}
	if err := w.table(SummarySheet, tierRow, tiers); err != nil {
		return err
	}
	if err := w.f.SetColWidth(SummarySheet, "A", "A", 24); err != nil {
		return err
	}
	if len(c.Tiers) == 0 {
		return nil
	}
	first, last := tierRow+1, tierRow+len(c.Tiers)
	return w.f.AddChart(SummarySheet, "F2", &excelize.Chart{
		Type: excelize.Col,
		Series: []excelize.ChartSeries{{
			Name:       fmt.Sprintf("%s!$B$%d", SummarySheet, tierRow),
			Categories: fmt.Sprintf("%s!$A$%d:$A$%d", SummarySheet, first, last),
			Values:     fmt.Sprintf("%s!$B$%d:$B$%d", SummarySheet, first, last),
		}},
		Title:     []excelize.RichTextRun{{Text: "Students by failing subjects"}},
		Legend:    excelize.ChartLegend{Position: "none"},
		PlotArea:  excelize.ChartPlotArea{ShowVal: true},
		Dimension: excelize.ChartDimension{Width: 480, Height: 290},
	})
}

func (w *workbook) subjects(a grades.Analysis) error {
	rows := [][]any{{"Subject", "Graded", "Passed", "Failed", "Pass %", "Fail %", "Mean"}}
	for _, s := range a.Subjects {
		rows = append(rows, []any{s.Subject, s.Total, s.Passed, s.Failed, round2(s.PassPct), round2(s.FailPct), scoreCell(s.Mean)})
	}
	return w.table(SubjectsSheet, 1, rows)
}

// ranking lists subjects by fail count and charts them as stacked bars.
func (w *workbook) ranking(a grades.Analysis) error {
	rows := [][]any{{"Subject", "Passed", "Failed", "Fail %"}}
	for _, s := range a.Ranking {
		rows = append(rows, []any{s.Subject, s.Passed, s.Failed, round2(s.FailPct)})
	}
	if err := w.table(RankingSheet, 1, rows); err != nil {
		return err
	}
	if len(a.Ranking) == 0 {
		return nil
	}
	last := len(a.Ranking) + 1
	cats := fmt.Sprintf("%s!$A$2:$A$%d", RankingSheet, last)
	height := uint(120 + 22*len(a.Ranking))
	if height < 290 {
		height = 290
	}
	return w.f.AddChart(RankingSheet, "F2", &excelize.Chart{
		Type: excelize.BarStacked,
		Series: []excelize.ChartSeries{
			{
				Name:       RankingSheet + "!$B$1",
				Categories: cats,
				Values:     fmt.Sprintf("%s!$B$2:$B$%d", RankingSheet, last),
				Fill:       excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{passColor}},
			},
			{
				Name:       RankingSheet + "!$C$1",
				Categories: cats,
				Values:     fmt.Sprintf("%s!$C$2:$C$%d", RankingSheet, last),
				Fill:       excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{failColor}},
			},
		},
		Title:     []excelize.RichTextRun{{Text: "Pass / fail by subject"}},
		Legend:    excelize.ChartLegend{Position: "bottom"},
		XAxis:     excelize.ChartAxis{ReverseOrder: true},
		Dimension: excelize.ChartDimension{Width: 560, Height: height},
	})
}

func (w *workbook) students(a grades.Analysis) error {
	rows := [][]any{{"Student", "Graded", "Failing", "Mean", "Promotes"}}
	p := a.Cohort.Policy
	policy, ok := grades.PolicyByName(p)
	for _, s := range a.Students {
		promotes := ""
		if ok {
			promotes = yesNo(policy.Promotes(policy.TierOf(s.FailingCount)))
		}
		rows = append(rows, []any{s.Student, s.Graded, s.FailingCount, scoreCell(s.Mean), promotes})
	}
	return w.table(StudentsSheet, 1, rows)
}

func (w *workbook) records(a grades.Analysis) error {
	rows := [][]any{{"Student", "Subject", "Grade", "Raw"}}
	for _, r := range a.Records {
		rows = append(rows, []any{r.Student, r.Subject, scoreCell(r.Grade), r.Raw})
	}
	if err := w.table(RecordsSheet, 1, rows); err != nil {
		return err
	}
	if len(a.Records) == 0 {
		return nil
	}
	return w.f.AutoFilter(RecordsSheet, fmt.Sprintf("A1:D%d", len(rows)), nil)
}

func (w *workbook) matrix(a grades.Analysis) error {
	return w.matrixSheet(MatrixSheet, a.Matrix)
}

// matrixSheet writes cells as text so a reader gets back the exact tokens.
func (w *workbook) matrixSheet(sheet string, m grades.Matrix) error {
	rows := make([][]any, 0, len(m.Rows)+1)
	head := []any{matrixStudentHeader}
	for _, c := range m.Columns {
		head = append(head, c)
	}
	rows = append(rows, head)
	for _, r := range m.Rows {
		row := []any{r.Student}
		for _, c := range r.Cells {
			row = append(row, c)
		}
		rows = append(rows, row)
	}
	if err := w.table(sheet, 1, rows); err != nil {
		return err
	}
	return w.f.SetColWidth(sheet, "A", "A", 28)
}

// table writes rows starting at row start, styles the first one as a header
// and freezes it when the table starts at the top.
func (w *workbook) table(sheet string, start int, rows [][]any) error {
	for i, r := range rows {
		cell, err := excelize.CoordinatesToCellName(1, start+i)
		if err != nil {
			return err
		}
		if err := w.f.SetSheetRow(sheet, cell, &r); err != nil {
			return fmt.Errorf("%s row %d: %w", sheet, start+i, err)
		}
	}
	if len(rows) == 0 || len(rows[0]) == 0 {
		return nil
	}
	from, _ := excelize.CoordinatesToCellName(1, start)
	to, _ := excelize.CoordinatesToCellName(len(rows[0]), start)
	if err := w.f.SetCellStyle(sheet, from, to, w.header); err != nil {
		return err
	}
	if start != 1 {
		return nil
	}
	return w.f.SetPanes(sheet, &excelize.Panes{Freeze: true, YSplit: 1, TopLeftCell: "A2", ActivePane: "bottomLeft"})
}

// scoreCell leaves missing scores blank.
func scoreCell(s grades.Score) any {
	if !s.Valid {
		return nil
	}
	return round2(s.Value)
}

func round2(v float64) float64 { return math.Round(v*100) / 100 }
