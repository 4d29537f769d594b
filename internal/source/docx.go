package source

import (
	"archive/zip"
	"bytes"
	"fmt"
	"html"
	"io"
	"regexp"
	"strings"
)

type docxReader struct{}

func (docxReader) CanRead(name string) bool { return hasExt(name, ".docx") }

var (
	xmlTag       = regexp.MustCompile(`<[^>]+>`)
	cellEnd      = regexp.MustCompile(`</w:tc>`)
	paragraphEnd = regexp.MustCompile(`</w:p>|<w:br/>|<w:cr/>`)
	tabTag       = regexp.MustCompile(`<w:tab/>`)
	blankLines   = regexp.MustCompile(`\n{3,}`)
)

// Read extracts word/document.xml text. Paragraphs become lines and table
// cells are separated by tabs so rows stay on one line.
func (docxReader) Read(name string, data []byte, _ Options) (Result, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return Result{}, fmt.Errorf("open docx: %w", err)
	}
	var docXML []byte
	for _, f := range zr.File {
		if f.Name != "word/document.xml" {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return Result{}, fmt.Errorf("open document.xml: %w", err)
		}
		docXML, err = io.ReadAll(rc)
		_ = rc.Close()
		if err != nil {
			return Result{}, fmt.Errorf("read document.xml: %w", err)
		}
		break
	}
	if len(docXML) == 0 {
		return Result{}, fmt.Errorf("document.xml not found in DOCX")
	}
	return Result{Text: docxText(string(docXML))}, nil
}

func docxText(x string) string {
	x = tabTag.ReplaceAllString(x, "\t")
	// a cell's closing paragraph must not break the row
	x = strings.ReplaceAll(x, "</w:p></w:tc>", "</w:tc>")
	x = cellEnd.ReplaceAllString(x, "\t")
	x = strings.ReplaceAll(x, "</w:tr>", "\n")
	x = paragraphEnd.ReplaceAllString(x, "\n")
	x = xmlTag.ReplaceAllString(x, "")
	x = html.UnescapeString(x)
	lines := strings.Split(x, "\n")
	for i, l := range lines {
		lines[i] = strings.TrimRight(l, "\t ")
	}
	x = strings.Join(lines, "\n")
	x = blankLines.ReplaceAllString(x, "\n\n")
	return strings.TrimSpace(x)
}
