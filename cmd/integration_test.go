package cmd

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// resetFlags puts every local flag of c back to its default so bound
// variables do not leak between invocations.
func resetFlags(c *cobra.Command) {
	c.Flags().VisitAll(func(fl *pflag.Flag) {
		if strings.HasSuffix(fl.Value.Type(), "Slice") {
			return
		}
		_ = fl.Value.Set(fl.DefValue)
		fl.Changed = false
	})
	for _, sub := range c.Commands() {
		resetFlags(sub)
	}
}

// runCmd executes the root command with args and returns its stdout.
func runCmd(t *testing.T, args ...string) string {
	t.Helper()
	out, err := execCmd(args...)
	if err != nil {
		t.Fatalf("command %v failed: %v", args, err)
	}
	return out
}

func execCmd(args ...string) (string, error) {
	resetFlags(rootCmd)
	var out, errOut bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&errOut)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String() + errOut.String(), err
}

func isolate(t *testing.T) string {
	t.Helper()
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("OPENROUTER_API_KEY", "")
	t.Setenv("GEMINI_API_KEY", "")
	cfg = nil
	t.Cleanup(func() { cfg = nil })
	return home
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

func TestCLI_Analyze_Correct_RoundTrip(t *testing.T) {
	home := isolate(t)
	writeFile(t, filepath.Join(home, "t1.csv"), "Alumno,Asignatura,Nota\n\"Perez, Ana\",MAT,7\n\"Perez, Ana\",LEN,4\nLuis Gomez,MAT,3\nLuis Gomez,LEN,2\n")
	writeFile(t, filepath.Join(home, "t2.csv"), "Alumno;MAT\n1. Ana Perez;8\n")
	notes := filepath.Join(home, "notes.txt")
	writeFile(t, notes, "Ana Perez: ART 9")

	jsonOut := filepath.Join(home, "out", "report.json")
	matrix := filepath.Join(home, "out", "matrix.csv")
	workbook := filepath.Join(home, "out", "class.xlsx")
	out := runCmd(t, "analyze", filepath.Join(home, "t*.csv"), notes,
		"-o", jsonOut, "--matrix", matrix, "--workbook", workbook)

	for _, want := range []string{
		"[3/3] Processing notes.txt...",
		"⚠ Skipped notes.txt",
		"(credentials)",
		"✓ Loaded 4 grades for 2 students and 2 subjects from 2 file(s)",
		"[CLASS SUMMARY]",
		"Saved report to",
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("output missing %q:\n%s", want, out)
		}
	}

	b, err := os.ReadFile(jsonOut)
	if err != nil {
		t.Fatalf("read json: %v", err)
	}
	var rep struct {
		Cohort struct {
			TotalStudents int `json:"total_students"`
		} `json:"cohort"`
		Students []struct {
			Student      string `json:"student"`
			FailingCount int    `json:"failing_count"`
		} `json:"students"`
	}
	if err := json.Unmarshal(b, &rep); err != nil {
		t.Fatalf("decode report: %v", err)
	}
	if rep.Cohort.TotalStudents != 2 || rep.Students[1].Student != "Luis Gomez" || rep.Students[1].FailingCount != 2 {
		t.Fatalf("unexpected report: %+v", rep)
	}
	if _, err := os.Stat(workbook); err != nil {
		t.Fatalf("workbook not written: %v", err)
	}

	m, err := os.ReadFile(matrix)
	if err != nil {
		t.Fatalf("read matrix: %v", err)
	}
	rows, err := csv.NewReader(bytes.NewReader(m)).ReadAll()
	if err != nil {
		t.Fatalf("parse matrix: %v", err)
	}
	if got := strings.Join(rows[0], ","); got != "Student,LEN,MAT,Failing" && got != "Student,MAT,LEN,Failing" {
		t.Fatalf("unexpected matrix header %q", got)
	}
	found := false
	for _, row := range rows[1:] {
		if row[0] != "Luis Gomez" {
			continue
		}
		found = true
		row[1], row[2] = "6", "5"
	}
	if !found {
		t.Fatalf("matrix row not found:\n%s", m)
	}
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.WriteAll(rows); err != nil {
		t.Fatalf("write matrix: %v", err)
	}
	writeFile(t, matrix, buf.String())

	fixed := filepath.Join(home, "out", "fixed.md")
	out = runCmd(t, "correct", matrix, "-o", fixed)
	if !strings.Contains(out, "✓ Reconciled 4 grades for 2 students") {
		t.Fatalf("unexpected correct output:\n%s", out)
	}
	md, err := os.ReadFile(fixed)
	if err != nil {
		t.Fatalf("read corrected report: %v", err)
	}
	if !strings.Contains(string(md), "| Luis Gomez | 2 | 0 | 5.50 |") {
		t.Fatalf("correction not applied:\n%s", md)
	}
}

func TestCLI_Analyze_NoUsableData(t *testing.T) {
	home := isolate(t)
	notes := filepath.Join(home, "notes.md")
	writeFile(t, notes, "# Grades\nAna 7")
	out, err := execCmd("analyze", notes, "--quiet")
	if err == nil {
		t.Fatalf("expected an error, got output:\n%s", out)
	}
	if !strings.Contains(err.Error(), "no valid data extracted: check your API key") {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(out, "⚠ Skipped notes.md") {
		t.Fatalf("warning not printed:\n%s", out)
	}
}

func TestCLI_Analyze_NoMatches(t *testing.T) {
	home := isolate(t)
	if _, err := execCmd("analyze", filepath.Join(home, "*.xlsx")); err == nil {
		t.Fatal("expected error for empty glob")
	}
}

func TestCLI_Analyze_StrictPolicyJSON(t *testing.T) {
	home := isolate(t)
	writeFile(t, filepath.Join(home, "g.csv"), "Student,Subject,Grade\nAna,A,1\nAna,B,1\nAna,C,1\n")
	out := runCmd(t, "analyze", filepath.Join(home, "g.csv"), "--json", "--quiet", "--policy", "strict", "--threshold", "2")
	var rep struct {
		Threshold float64 `json:"threshold"`
		Cohort    struct {
			Policy     string `json:"policy"`
			NonPromote int    `json:"non_promote_count"`
		} `json:"cohort"`
	}
	if err := json.Unmarshal([]byte(out), &rep); err != nil {
		t.Fatalf("decode: %v\n%s", err, out)
	}
	if rep.Threshold != 2 || rep.Cohort.Policy != "strict" || rep.Cohort.NonPromote != 1 {
		t.Fatalf("unexpected: %+v", rep)
	}
}

func TestCLI_Config_And_Policies(t *testing.T) {
	home := isolate(t)
	runCmd(t, "config", "set", "tier_cutoffs", "0,2,4")
	runCmd(t, "config", "set", "promote_tiers", "0,1")
	runCmd(t, "config", "set", "default_provider", "local")
	if _, err := execCmd("config", "set", "tier_cutoffs", "3,1"); err == nil {
		t.Fatal("expected invalid cutoffs to be rejected")
	}
	if _, err := execCmd("config", "set", "nope", "1"); err == nil {
		t.Fatal("expected unknown key error")
	}
	if _, err := os.Stat(filepath.Join(home, ".classreport", "config.yaml")); err != nil {
		t.Fatalf("config not saved: %v", err)
	}

	out := runCmd(t, "config", "show")
	for _, want := range []string{"default_provider: ollama", "tier_policy: custom", "tier_cutoffs: 0,2,4"} {
		if !strings.Contains(out, want) {
			t.Fatalf("config show missing %q:\n%s", want, out)
		}
	}

	out = runCmd(t, "policies")
	if !strings.Contains(out, "* custom") || !strings.Contains(out, "lenient") {
		t.Fatalf("unexpected policies output:\n%s", out)
	}
}
