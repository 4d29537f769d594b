package source

import (
	"strings"
	"unicode/utf8"
)

type textReader struct{}

func (textReader) CanRead(name string) bool { return hasExt(name, ".txt", ".md") }

func (textReader) Read(name string, data []byte, _ Options) (Result, error) {
	if !utf8.Valid(data) {
		return Result{}, errInvalidUTF8
	}
	return Result{Text: strings.TrimSpace(string(data))}, nil
}
