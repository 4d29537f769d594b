package source

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"
)

type xlsxReader struct{}

func (xlsxReader) CanRead(name string) bool { return hasExt(name, ".xlsx", ".xlsm") }

// Read loads one sheet as a table. Cell values come back formatted as
// displayed, so "6,5" and "6.5" both survive to grade coercion.
func (xlsxReader) Read(name string, data []byte, opt Options) (Result, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return Result{}, fmt.Errorf("open xlsx: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return Result{}, fmt.Errorf("workbook has no sheets")
	}
	sheet := ""
	if opt.SheetName != "" {
		for _, s := range sheets {
			if strings.EqualFold(s, opt.SheetName) {
				sheet = s
				break
			}
		}
		if sheet == "" {
			return Result{}, fmt.Errorf("sheet '%s' not found; available sheets: %s", opt.SheetName, strings.Join(sheets, ", "))
		}
	} else {
		idx := opt.SheetIndex
		if idx <= 0 {
			idx = 1
		}
		if idx > len(sheets) {
			return Result{}, fmt.Errorf("sheet index %d out of range (workbook has %d)", idx, len(sheets))
		}
		sheet = sheets[idx-1]
	}
	rows, err := f.GetRows(sheet)
	if err != nil {
		return Result{}, fmt.Errorf("read sheet %s: %w", sheet, err)
	}
	t, err := tableFromRows(rows, true)
	if err != nil {
		return Result{}, err
	}
	return Result{Table: t}, nil
}
