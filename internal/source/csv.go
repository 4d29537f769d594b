package source

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"strings"
)

type csvReader struct{}

func (csvReader) CanRead(name string) bool { return hasExt(name, ".csv", ".tsv") }

func (csvReader) Read(name string, data []byte, _ Options) (Result, error) {
	data = bytes.TrimPrefix(data, []byte("\xef\xbb\xbf"))
	r := csv.NewReader(bytes.NewReader(data))
	r.FieldsPerRecord = -1
	r.TrimLeadingSpace = true
	r.LazyQuotes = true
	r.Comma = sniffDelimiter(name, data)
	rows, err := r.ReadAll()
	if err != nil {
		return Result{}, fmt.Errorf("read csv: %w", err)
	}
	t, err := tableFromRows(rows, true)
	if err != nil {
		return Result{}, err
	}
	return Result{Table: t}, nil
}

// sniffDelimiter picks the candidate that splits the first line most often.
// .tsv files are always tab separated.
func sniffDelimiter(name string, data []byte) rune {
	if hasExt(name, ".tsv") {
		return '\t'
	}
	line, _, _ := strings.Cut(string(data), "\n")
	best, bestN := ',', 0
	for _, d := range []rune{',', ';', '\t', '|'} {
		if n := strings.Count(line, string(d)); n > bestN {
			best, bestN = d, n
		}
	}
	return best
}
