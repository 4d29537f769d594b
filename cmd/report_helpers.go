package cmd

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	cfgpkg "github.com/KaramelBytes/classreport-cli/internal/config"
	"github.com/KaramelBytes/classreport-cli/internal/grades"
	"github.com/KaramelBytes/classreport-cli/internal/report"
	"github.com/KaramelBytes/classreport-cli/internal/utils"
)

type gradingFlags struct {
	Policy           string
	Threshold        float64
	ThresholdChanged bool
}

// resolveGrading applies flags over config: the pass mark and tier policy.
func resolveGrading(cfg *cfgpkg.Global, f gradingFlags) (float64, grades.TierPolicy, error) {
	threshold := grades.PassThreshold
	if cfg != nil && cfg.PassThreshold > 0 {
		threshold = cfg.PassThreshold
	}
	if f.ThresholdChanged {
		if f.Threshold <= 0 {
			return 0, grades.TierPolicy{}, fmt.Errorf("invalid --threshold: %v (must be positive)", f.Threshold)
		}
		threshold = f.Threshold
	}
	if cfg == nil {
		cfg = &cfgpkg.Global{}
	}
	if f.Policy == "" {
		p, err := cfg.Policy()
		return threshold, p, err
	}
	for _, p := range cfg.Policies() {
		if strings.EqualFold(p.Name, strings.TrimSpace(f.Policy)) {
			return threshold, p, nil
		}
	}
	return 0, grades.TierPolicy{}, fmt.Errorf("unknown --policy: %s (see 'classreport policies')", f.Policy)
}

type outputOptions struct {
	JSON         bool
	Quiet        bool
	OutputPath   string
	WorkbookPath string
	MatrixPath   string
	Writer       io.Writer
}

// writeReport prints the report and writes the requested files.
func writeReport(a grades.Analysis, opts outputOptions) error {
	w := opts.Writer
	if w == nil {
		w = os.Stdout
	}
	saved := opts.OutputPath != "" || opts.WorkbookPath != "" || opts.MatrixPath != ""
	if !opts.Quiet || !saved {
		if opts.JSON {
			b, err := report.JSON(a)
			if err != nil {
				return err
			}
			fmt.Fprintln(w, string(b))
		} else {
			fmt.Fprint(w, report.Markdown(a))
		}
	}

	if opts.OutputPath != "" {
		var (
			b   []byte
			err error
		)
		switch strings.ToLower(filepath.Ext(opts.OutputPath)) {
		case ".json":
			b, err = report.JSON(a)
		case ".xlsx":
			b, err = workbookBytes(a)
		case "", ".md", ".markdown", ".txt":
			b = []byte(report.Markdown(a))
		default:
			return fmt.Errorf("unsupported --output extension: %s (use .md, .json or .xlsx)", filepath.Ext(opts.OutputPath))
		}
		if err != nil {
			return err
		}
		if err := saveFile(opts.OutputPath, b); err != nil {
			return err
		}
		if !opts.Quiet {
			fmt.Fprintf(w, "\n💾 Saved report to %s\n", opts.OutputPath)
		}
	}
	if opts.WorkbookPath != "" {
		b, err := workbookBytes(a)
		if err != nil {
			return err
		}
		if err := saveFile(opts.WorkbookPath, b); err != nil {
			return err
		}
		if !opts.Quiet {
			fmt.Fprintf(w, "💾 Saved workbook to %s\n", opts.WorkbookPath)
		}
	}
	if opts.MatrixPath != "" {
		b, err := report.MatrixBytes(opts.MatrixPath, a.Matrix)
		if err != nil {
			return err
		}
		if err := saveFile(opts.MatrixPath, b); err != nil {
			return err
		}
		if !opts.Quiet {
			fmt.Fprintf(w, "💾 Saved correction matrix to %s (edit it and run 'classreport correct %s')\n", opts.MatrixPath, opts.MatrixPath)
		}
	}
	return nil
}

func workbookBytes(a grades.Analysis) ([]byte, error) {
	f, err := report.Workbook(a)
	if err != nil {
		return nil, fmt.Errorf("build workbook: %w", err)
	}
	defer f.Close()
	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("write workbook: %w", err)
	}
	return buf.Bytes(), nil
}

func saveFile(path string, b []byte) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := utils.EnsureDir(dir); err != nil {
			return err
		}
	}
	return utils.SafeWriteFile(path, b)
}
