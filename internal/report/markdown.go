// Package report renders a grades.Analysis as Markdown, JSON or an XLSX
// workbook, and moves the correction matrix in and out of files.
package report

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/KaramelBytes/classreport-cli/internal/grades"
	"github.com/KaramelBytes/classreport-cli/internal/utils"
)

// Markdown renders the analysis as a plain-text report.
func Markdown(a grades.Analysis) string {
	var b strings.Builder
	c := a.Cohort

	b.WriteString("[CLASS SUMMARY]\n")
	b.WriteString(fmt.Sprintf("Students: %d\n", c.TotalStudents))
	b.WriteString(fmt.Sprintf("Subjects: %d\n", len(a.Subjects)))
	b.WriteString(fmt.Sprintf("Records: %d\n", len(a.Records)))
	b.WriteString(fmt.Sprintf("Pass mark: %s\n", num(a.Threshold)))
	b.WriteString(fmt.Sprintf("Mean grade: %s\n", c.GlobalMean.Format(2)))
	b.WriteString(fmt.Sprintf("Mean failing subjects per student: %.2f\n", c.GroupMeanFailing))
	b.WriteString(fmt.Sprintf("Promote: %d (%.1f%%), not promote: %d (%.1f%%)\n\n", c.Promote, c.PromotePct, c.NonPromote, c.NonPromotePct))

	b.WriteString(fmt.Sprintf("[PROMOTION TIERS] policy %s\n", c.Policy))
	b.WriteString("| Failing | Students | % | Promotes |\n|---|---|---|---|\n")
	for _, t := range c.Tiers {
		b.WriteString(fmt.Sprintf("| %s | %d | %.1f | %s |\n", t.Label, t.Count, t.Pct, yesNo(t.Promotes)))
	}

	b.WriteString("\n[SUBJECTS]\n")
	b.WriteString("| Subject | Graded | Passed | Failed | Pass % | Fail % | Mean |\n|---|---|---|---|---|---|---|\n")
	for _, s := range a.Subjects {
		b.WriteString(fmt.Sprintf("| %s | %d | %d | %d | %.1f | %.1f | %s |\n",
			safeVal(s.Subject), s.Total, s.Passed, s.Failed, s.PassPct, s.FailPct, s.Mean.Format(2)))
	}

	if len(a.Ranking) > 0 {
		b.WriteString("\n[SUBJECTS BY FAILURES]\n")
		for i, s := range a.Ranking {
			b.WriteString(fmt.Sprintf("%d. %s: %d failed (%.1f%%)\n", i+1, safeVal(s.Subject), s.Failed, s.FailPct))
		}
	}

	b.WriteString("\n[STUDENTS]\n")
	b.WriteString("| Student | Graded | Failing | Mean |\n|---|---|---|---|\n")
	for _, s := range a.Students {
		b.WriteString(fmt.Sprintf("| %s | %d | %d | %s |\n", safeVal(s.Student), s.Graded, s.FailingCount, s.Mean.Format(2)))
	}

	b.WriteString("\n[HIGHLIGHTS]\n")
	writeStudents(&b, "Best student", a.BestStudents)
	writeStudents(&b, "Worst student", a.WorstStudents)
	writeSubjects(&b, "Best subject", a.BestSubjects)
	writeSubjects(&b, "Worst subject", a.WorstSubjects)
	return b.String()
}

func writeStudents(b *strings.Builder, label string, in []grades.StudentStats) {
	if len(in) == 0 {
		return
	}
	names := make([]string, len(in))
	for i, s := range in {
		names[i] = safeVal(s.Student)
	}
	b.WriteString(fmt.Sprintf("- %s: %s (mean %s)\n", plural(label, len(in)), strings.Join(names, ", "), in[0].Mean.Format(2)))
}

func writeSubjects(b *strings.Builder, label string, in []grades.SubjectStats) {
	if len(in) == 0 {
		return
	}
	names := make([]string, len(in))
	for i, s := range in {
		names[i] = safeVal(s.Subject)
	}
	b.WriteString(fmt.Sprintf("- %s: %s (mean %s)\n", plural(label, len(in)), strings.Join(names, ", "), in[0].Mean.Format(2)))
}

// JSON renders the analysis as indented JSON.
func JSON(a grades.Analysis) ([]byte, error) {
	return utils.PrettyJSON(a)
}

func plural(s string, n int) string {
	if n == 1 {
		return s
	}
	return s + "s"
}

func yesNo(v bool) string {
	if v {
		return "yes"
	}
	return "no"
}

func num(v float64) string { return strconv.FormatFloat(v, 'f', -1, 64) }

func safeVal(s string) string { return strings.ReplaceAll(strings.ReplaceAll(s, "\n", " "), "|", "/") }
