// Package extract turns unstructured text (PDF or Word exports) into a
// candidate grade table with the help of a language model.
package extract

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/KaramelBytes/classreport-cli/internal/ai"
	"github.com/KaramelBytes/classreport-cli/internal/grades"
	"github.com/KaramelBytes/classreport-cli/internal/utils"
)

// Extractor drafts a RawTable from text. hint is usually the file name.
type Extractor interface {
	Extract(ctx context.Context, text, hint string) (grades.RawTable, error)
}

// Func adapts a function to Extractor.
type Func func(ctx context.Context, text, hint string) (grades.RawTable, error)

func (f Func) Extract(ctx context.Context, text, hint string) (grades.RawTable, error) {
	return f(ctx, text, hint)
}

const (
	defaultMaxInputTokens = 12000
	defaultMaxTokens      = 4096
)

const systemPrompt = `You convert school grade reports into a table.
Output one line per grade with exactly three fields separated by a pipe:
Student|Subject|Grade
Rules:
- Never use the pipe character inside a field.
- Keep student names exactly as written, including "Lastname, Firstname" order.
- Grade is the numeric mark as written (comma or dot decimals). Leave it empty if there is none.
- One line per (student, subject). No header, no explanations, no code fences.`

// AIExtractor prompts an ai.Runtime for pipe-delimited rows.
type AIExtractor struct {
	Runtime        ai.Runtime
	Model          string
	MaxTokens      int
	Temperature    float64
	MaxInputTokens int
	Logger         *slog.Logger
}

// NewAIExtractor returns an extractor with default budgets.
func NewAIExtractor(rt ai.Runtime, model string) *AIExtractor {
	return &AIExtractor{Runtime: rt, Model: model, MaxTokens: defaultMaxTokens, MaxInputTokens: defaultMaxInputTokens}
}

// Extract sends text (truncated to MaxInputTokens) to the runtime and parses
// its answer. Every failure is an *ExtractionError.
func (x *AIExtractor) Extract(ctx context.Context, text, hint string) (grades.RawTable, error) {
	if strings.TrimSpace(text) == "" {
		return grades.RawTable{}, &ExtractionError{Source: hint, Kind: KindData, Err: ErrNoText}
	}
	if x.Runtime == nil {
		return grades.RawTable{}, &ExtractionError{Source: hint, Kind: KindConfig, Err: errors.New("no model runtime configured")}
	}
	limit := x.MaxInputTokens
	if limit <= 0 {
		limit = defaultMaxInputTokens
	}
	input := utils.TruncateToTokenLimit(text, limit)
	log := x.logger()
	if len(input) < len(text) {
		log.Warn("source text truncated", "source", hint, "tokens", utils.CountTokens(text), "limit", limit)
	}
	req := ai.GenerateRequest{
		Model: x.Model,
		Messages: []ai.Message{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: fmt.Sprintf("File: %s\n\n%s", hint, input)},
		},
		MaxTokens:   x.MaxTokens,
		Temperature: x.Temperature,
	}
	resp, err := x.Runtime.Generate(ctx, req)
	if err != nil {
		return grades.RawTable{}, &ExtractionError{Source: hint, Kind: KindOf(err), Err: err}
	}
	log.Debug("model answered", "source", hint, "request_id", resp.RequestID, "tokens", resp.Usage.TotalTokens)
	t, err := ParseTable(resp.Text())
	if err != nil {
		return grades.RawTable{}, &ExtractionError{Source: hint, Kind: KindData, Err: err}
	}
	t.Source = hint
	return t, nil
}

func (x *AIExtractor) logger() *slog.Logger {
	if x.Logger != nil {
		return x.Logger
	}
	return slog.Default()
}

// ParseTable parses pipe-delimited model output into a three-column table.
// Code fences, prose lines and markdown separator rows are skipped; a header
// row is recognized through the column synonyms. Any row without exactly
// three fields rejects the whole output.
func ParseTable(out string) (grades.RawTable, error) {
	var lines []string
	for _, l := range strings.Split(out, "\n") {
		l = strings.TrimSpace(l)
		if l == "" || strings.HasPrefix(l, "```") || !strings.Contains(l, "|") || isSeparatorRow(l) {
			continue
		}
		lines = append(lines, l)
	}
	if len(lines) == 0 {
		return grades.RawTable{}, ErrNoRows
	}
	r := csv.NewReader(strings.NewReader(strings.Join(lines, "\n")))
	r.Comma = '|'
	r.FieldsPerRecord = -1
	r.LazyQuotes = true
	r.TrimLeadingSpace = true

	t := grades.RawTable{Columns: []string{"Student", "Subject", "Grade"}}
	for n := 1; ; n++ {
		rec, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return grades.RawTable{}, fmt.Errorf("parse model output: %w", err)
		}
		rec = trimFields(rec)
		if len(rec) != 3 {
			return grades.RawTable{}, fmt.Errorf("row %d: expected 3 fields, got %d", n, len(rec))
		}
		if n == 1 && isHeader(rec) {
			t.Columns = rec
			continue
		}
		t.Rows = append(t.Rows, rec)
	}
	if len(t.Rows) == 0 {
		return grades.RawTable{}, ErrNoRows
	}
	return t, nil
}

// trimFields drops the empty outer cells of "| a | b | c |" rows.
func trimFields(rec []string) []string {
	for i := range rec {
		rec[i] = strings.TrimSpace(rec[i])
	}
	if len(rec) >= 2 && rec[0] == "" && rec[len(rec)-1] == "" {
		rec = rec[1 : len(rec)-1]
	}
	return rec
}

func isSeparatorRow(l string) bool {
	return strings.Trim(l, "|-: ") == ""
}

func isHeader(rec []string) bool {
	return grades.RoleOf(rec[0]) == grades.RoleStudent && !grades.ParseScore(rec[2]).Valid
}
