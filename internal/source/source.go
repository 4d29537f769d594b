// Package source reads uploaded grade files into either a raw table
// (spreadsheets) or plain text (documents) for the extractor.
package source

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/KaramelBytes/classreport-cli/internal/grades"
)

// Options tune reading.
type Options struct {
	// SheetName selects a workbook sheet; empty means SheetIndex.
	SheetName string
	// SheetIndex is 1-based; 0 means the first sheet.
	SheetIndex int
}

// Result is what a reader produced: a table, or text that still needs
// extraction.
type Result struct {
	Table *grades.RawTable
	Text  string
}

// Reader parses one family of formats.
type Reader interface {
	CanRead(name string) bool
	Read(name string, data []byte, opt Options) (Result, error)
}

// ErrUnsupported indicates a format no reader accepts.
var (
	ErrUnsupported = errors.New("unsupported file format")
	errInvalidUTF8 = errors.New("text is not valid UTF-8")
)

// UnreadableError reports a file that could not be parsed at all.
type UnreadableError struct {
	Source string
	Err    error
}

func (e *UnreadableError) Error() string {
	return fmt.Sprintf("%s: unreadable: %v", e.Source, e.Err)
}

func (e *UnreadableError) Unwrap() error { return e.Err }

var registry []Reader

// Register adds a reader. The first reader accepting a name wins.
func Register(r Reader) {
	registry = append(registry, r)
}

func init() {
	Register(xlsxReader{})
	Register(csvReader{})
	Register(docxReader{})
	Register(pdfReader{})
	Register(textReader{})
}

// Supported reports whether any reader accepts name.
func Supported(name string) bool {
	return lookup(name) != nil
}

func lookup(name string) Reader {
	for _, r := range registry {
		if r.CanRead(name) {
			return r
		}
	}
	return nil
}

// Read dispatches data to the reader for name. Every failure is an
// *UnreadableError carrying the base file name.
func Read(name string, data []byte, opt Options) (res Result, err error) {
	base := filepath.Base(name)
	r := lookup(name)
	if r == nil {
		return Result{}, &UnreadableError{Source: base, Err: ErrUnsupported}
	}
	defer func() {
		// third-party format parsers panic on some corrupt inputs
		if p := recover(); p != nil {
			res, err = Result{}, &UnreadableError{Source: base, Err: fmt.Errorf("corrupt file: %v", p)}
		}
	}()
	res, err = r.Read(name, data, opt)
	if err != nil {
		var ue *UnreadableError
		if errors.As(err, &ue) {
			return Result{}, err
		}
		return Result{}, &UnreadableError{Source: base, Err: err}
	}
	if res.Table != nil {
		res.Table.Source = base
	}
	return res, nil
}

// ReadFile reads path from disk and dispatches it.
func ReadFile(path string, opt Options) (Result, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Result{}, &UnreadableError{Source: filepath.Base(path), Err: err}
	}
	return Read(path, data, opt)
}

func hasExt(name string, exts ...string) bool {
	lower := strings.ToLower(name)
	for _, e := range exts {
		if strings.HasSuffix(lower, e) {
			return true
		}
	}
	return false
}

// tableFromRows turns rows into a RawTable using the first non-empty row as
// the header. Rows are padded to the header width.
func tableFromRows(rows [][]string, wide bool) (*grades.RawTable, error) {
	start := -1
	for i, r := range rows {
		if !blankRow(r) {
			start = i
			break
		}
	}
	if start < 0 {
		return nil, grades.ErrNoData
	}
	header := trimRight(rows[start])
	t := &grades.RawTable{Columns: header, AllowWide: wide}
	for _, r := range rows[start+1:] {
		if blankRow(r) {
			continue
		}
		row := make([]string, len(header))
		copy(row, r)
		for i := range row {
			row[i] = strings.TrimSpace(row[i])
		}
		t.Rows = append(t.Rows, row)
	}
	return t, nil
}

func blankRow(r []string) bool {
	for _, c := range r {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

// trimRight drops trailing empty header cells.
func trimRight(r []string) []string {
	out := make([]string, len(r))
	for i, c := range r {
		out[i] = strings.TrimSpace(c)
	}
	n := len(out)
	for n > 0 && out[n-1] == "" {
		n--
	}
	return out[:n]
}
