package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/KaramelBytes/classreport-cli/internal/grades"
	"github.com/KaramelBytes/classreport-cli/internal/report"
)

var (
	corPolicy    string
	corThreshold float64
	corJSON      bool
	corOutput    string
	corWorkbook  string
	corMatrix    string
	corQuiet     bool
)

var correctCmd = &cobra.Command{
	Use:   "correct <matrix>",
	Short: "Rebuild the report from an edited correction matrix (.xlsx or .csv)",
	Long: `Reads a matrix written by 'analyze --matrix' after manual edits. Blank cells
are dropped, derived columns such as Failing are ignored and student names are
normalized again before the statistics are recomputed.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := args[0]
		threshold, policy, err := resolveGrading(currentConfig(), gradingFlags{
			Policy:           corPolicy,
			Threshold:        corThreshold,
			ThresholdChanged: cmd.Flags().Changed("threshold"),
		})
		if err != nil {
			return err
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("read matrix: %w", err)
		}
		m, err := report.ReadMatrix(filepath.Base(path), data)
		if err != nil {
			return err
		}
		ds, err := grades.Reconcile(m)
		if err != nil {
			return fmt.Errorf("%s: %w", filepath.Base(path), err)
		}
		out := cmd.OutOrStdout()
		if !corQuiet {
			fmt.Fprintf(out, "✓ Reconciled %d grades for %d students from %s\n\n", ds.Len(), len(ds.Students()), filepath.Base(path))
		}
		a, err := grades.Analyze(ds, grades.Options{Threshold: threshold, Policy: policy})
		if err != nil {
			return err
		}
		return writeReport(a, outputOptions{
			JSON:         corJSON,
			Quiet:        corQuiet,
			OutputPath:   corOutput,
			WorkbookPath: corWorkbook,
			MatrixPath:   corMatrix,
			Writer:       out,
		})
	},
}

func init() {
	rootCmd.AddCommand(correctCmd)
	addGradingFlags(correctCmd, &corPolicy, &corThreshold)
	addOutputFlags(correctCmd, &corJSON, &corOutput, &corWorkbook, &corMatrix, &corQuiet)
}
