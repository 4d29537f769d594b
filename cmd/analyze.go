package cmd

import (
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/KaramelBytes/classreport-cli/internal/session"
	"github.com/KaramelBytes/classreport-cli/internal/source"
	"github.com/KaramelBytes/classreport-cli/internal/utils"
)

var (
	anaPolicy     string
	anaThreshold  float64
	anaProvider   string
	anaModel      string
	anaOllamaHost string
	anaSheetName  string
	anaSheetIndex int
	anaJSON       bool
	anaOutput     string
	anaWorkbook   string
	anaMatrix     string
	anaWorkers    int
	anaQuiet      bool
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze <files...>",
	Short: "Merge grade files of one class and report pass/fail statistics",
	Long: `Reads every file (glob patterns allowed), merges them into one dataset and
prints the class report. Files that cannot be used are skipped with a warning;
the command only fails when no file produced any grade.

When a student has the same subject in several files, the file listed last wins.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		files, err := utils.ExpandInputs(args)
		if err != nil {
			return err
		}
		c := currentConfig()
		threshold, policy, err := resolveGrading(c, gradingFlags{
			Policy:           anaPolicy,
			Threshold:        anaThreshold,
			ThresholdChanged: cmd.Flags().Changed("threshold"),
		})
		if err != nil {
			return err
		}
		log := setupLogger(slog.LevelWarn)
		x, provider, err := buildExtractor(c, runtimeOptions{ProviderFlag: anaProvider, ModelFlag: anaModel, OllamaHost: anaOllamaHost}, log)
		if err != nil {
			return err
		}
		log.Debug("extractor ready", "provider", provider)

		workers := c.Workers
		if anaWorkers > 0 {
			workers = anaWorkers
		}
		out, errOut := cmd.OutOrStdout(), cmd.ErrOrStderr()
		sess := session.New(x, session.Options{
			Threshold: threshold,
			Policy:    policy,
			Workers:   workers,
			Source:    source.Options{SheetName: anaSheetName, SheetIndex: anaSheetIndex},
			Logger:    log,
			Progress: func(i, n int, name string) {
				if !anaQuiet {
					fmt.Fprintf(out, "[%d/%d] Processing %s...\n", i, n, name)
				}
			},
		})

		snap, err := sess.IngestFiles(cmd.Context(), files)
		if err != nil {
			var be *session.BatchError
			if errors.As(err, &be) {
				printWarnings(errOut, be.Warnings)
			}
			return err
		}
		printWarnings(errOut, snap.Warnings)
		if !anaQuiet {
			fmt.Fprintf(out, "✓ Loaded %d grades for %d students and %d subjects from %d file(s)\n\n",
				snap.Dataset.Len(), len(snap.Dataset.Students()), len(snap.Dataset.Subjects()), len(snap.Sources))
		}

		a, err := sess.Analysis()
		if err != nil {
			return err
		}
		return writeReport(a, outputOptions{
			JSON:         anaJSON,
			Quiet:        anaQuiet,
			OutputPath:   anaOutput,
			WorkbookPath: anaWorkbook,
			MatrixPath:   anaMatrix,
			Writer:       out,
		})
	},
}

func printWarnings(w io.Writer, ws []session.Warning) {
	for _, warn := range ws {
		fmt.Fprintf(w, "⚠ Skipped %s\n", warn)
	}
}

func init() {
	rootCmd.AddCommand(analyzeCmd)
	addGradingFlags(analyzeCmd, &anaPolicy, &anaThreshold)
	addOutputFlags(analyzeCmd, &anaJSON, &anaOutput, &anaWorkbook, &anaMatrix, &anaQuiet)
	analyzeCmd.Flags().StringVar(&anaProvider, "provider", "", "model provider for PDF/Word/text files: openrouter|gemini|ollama (default from config)")
	analyzeCmd.Flags().StringVar(&anaModel, "model", "", "model used to extract tables from documents")
	analyzeCmd.Flags().StringVar(&anaOllamaHost, "ollama-host", "", "Ollama host (default from config or CLASSREPORT_OLLAMA_HOST)")
	analyzeCmd.Flags().StringVar(&anaSheetName, "sheet-name", "", "XLSX: sheet name to read")
	analyzeCmd.Flags().IntVar(&anaSheetIndex, "sheet-index", 0, "XLSX: 1-based sheet index (used if --sheet-name not provided)")
	analyzeCmd.Flags().IntVar(&anaWorkers, "workers", 0, "files read in parallel (default from config)")
}

func addGradingFlags(cmd *cobra.Command, policy *string, threshold *float64) {
	cmd.Flags().StringVar(policy, "policy", "", "tier policy: lenient|strict|custom (default from config)")
	cmd.Flags().Float64Var(threshold, "threshold", 5, "pass mark; grades below it fail")
}

func addOutputFlags(cmd *cobra.Command, asJSON *bool, output, workbook, matrix *string, quiet *bool) {
	cmd.Flags().BoolVar(asJSON, "json", false, "print the report as JSON")
	cmd.Flags().StringVarP(output, "output", "o", "", "write the report to a file (.md, .json or .xlsx)")
	cmd.Flags().StringVar(workbook, "workbook", "", "write the XLSX workbook with charts to this path")
	cmd.Flags().StringVar(matrix, "matrix", "", "write the editable student x subject matrix (.xlsx or .csv)")
	cmd.Flags().BoolVar(quiet, "quiet", false, "suppress progress and non-essential output")
}
