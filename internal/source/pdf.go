package source

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/ledongthuc/pdf"
)

type pdfReader struct{}

func (pdfReader) CanRead(name string) bool { return hasExt(name, ".pdf") }

// Read returns the PDF text grouped by visual rows, one line per row, so a
// grade table keeps one student per line.
func (pdfReader) Read(name string, data []byte, _ Options) (Result, error) {
	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return Result{}, fmt.Errorf("open pdf: %w", err)
	}
	var b strings.Builder
	for i := 1; i <= r.NumPage(); i++ {
		p := r.Page(i)
		if p.V.IsNull() {
			continue
		}
		rows, err := p.GetTextByRow()
		if err != nil {
			return Result{}, fmt.Errorf("page %d: %w", i, err)
		}
		for _, row := range rows {
			parts := make([]string, 0, len(row.Content))
			for _, t := range row.Content {
				if s := strings.TrimSpace(t.S); s != "" {
					parts = append(parts, s)
				}
			}
			if len(parts) > 0 {
				b.WriteString(strings.Join(parts, " "))
				b.WriteByte('\n')
			}
		}
	}
	text := strings.TrimSpace(b.String())
	if text == "" {
		return Result{}, fmt.Errorf("pdf has no extractable text (scanned image?)")
	}
	return Result{Text: text}, nil
}
