package report

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"slices"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/KaramelBytes/classreport-cli/internal/grades"
	"github.com/KaramelBytes/classreport-cli/internal/source"
)

const matrixStudentHeader = "Student"

// ErrMatrixFormat is returned for matrix files that are neither xlsx nor csv.
var ErrMatrixFormat = errors.New("matrix must be .xlsx or .csv")

// WriteMatrix writes the correction matrix in the format implied by name.
func WriteMatrix(w io.Writer, name string, m grades.Matrix) error {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".xlsx":
		f := excelize.NewFile()
		defer f.Close()
		if err := f.SetSheetName("Sheet1", MatrixSheet); err != nil {
			return err
		}
		hs, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
		if err != nil {
			return err
		}
		wb := &workbook{f: f, header: hs}
		if err := wb.matrixSheet(MatrixSheet, m); err != nil {
			return err
		}
		return f.Write(w)
	case ".csv":
		cw := csv.NewWriter(w)
		if err := cw.Write(append([]string{matrixStudentHeader}, m.Columns...)); err != nil {
			return err
		}
		for _, r := range m.Rows {
			if err := cw.Write(append([]string{r.Student}, r.Cells...)); err != nil {
				return err
			}
		}
		cw.Flush()
		return cw.Error()
	default:
		return fmt.Errorf("%w: %s", ErrMatrixFormat, name)
	}
}

// MatrixBytes is WriteMatrix into memory.
func MatrixBytes(name string, m grades.Matrix) ([]byte, error) {
	var buf bytes.Buffer
	if err := WriteMatrix(&buf, name, m); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// ReadMatrix parses an edited matrix. The first column holds student names
// and the header row holds subjects. In a workbook the Matrix sheet is used
// when present, the first sheet otherwise.
func ReadMatrix(name string, data []byte) (grades.Matrix, error) {
	opt := source.Options{}
	switch strings.ToLower(filepath.Ext(name)) {
	case ".xlsx":
		if hasSheet(data, MatrixSheet) {
			opt.SheetName = MatrixSheet
		}
	case ".csv", ".tsv":
	default:
		return grades.Matrix{}, fmt.Errorf("%w: %s", ErrMatrixFormat, name)
	}
	res, err := source.Read(name, data, opt)
	if err != nil {
		return grades.Matrix{}, err
	}
	t := res.Table
	if t == nil || len(t.Columns) < 2 {
		return grades.Matrix{}, fmt.Errorf("%s: matrix needs a student column and at least one subject", filepath.Base(name))
	}
	m := grades.Matrix{Columns: slices.Clone(t.Columns[1:])}
	for _, row := range t.Rows {
		cells := make([]string, len(m.Columns))
		copy(cells, row[1:])
		m.Rows = append(m.Rows, grades.MatrixRow{Student: row[0], Cells: cells})
	}
	return m, nil
}

func hasSheet(data []byte, sheet string) bool {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return false
	}
	defer f.Close()
	return slices.Contains(f.GetSheetList(), sheet)
}
