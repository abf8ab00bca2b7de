package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/finboard/finboard/backend"
)

// exportWorkbook writes one sheet per chart card, covering only the
// rows visible in each card's current window. Cards without tabular
// data are skipped.
func exportWorkbook(w io.Writer, sheets []exportSheet) error {
	f := excelize.NewFile()
	defer f.Close()
	used := map[string]bool{}
	for i, sheet := range sheets {
		name := uniqueSheetName(sanitizeSheetName(sheet.Name, i), used)
		if i == 0 {
			f.SetSheetName("Sheet1", name)
		} else {
			if _, err := f.NewSheet(name); err != nil {
				return fmt.Errorf("adding sheet %q: %w", name, err)
			}
		}
		if err := sheet.write(f, name); err != nil {
			return err
		}
	}
	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("writing workbook: %w", err)
	}
	return nil
}

type exportSheet struct {
	Name    string
	Input   backend.ChartInput
	Candles []backend.Candle
	Lo, Hi  int
}

func (s exportSheet) write(f *excelize.File, name string) error {
	if len(s.Candles) > 0 {
		return s.writeCandles(f, name)
	}
	return s.writeSeries(f, name)
}

func (s exportSheet) writeSeries(f *excelize.File, name string) error {
	header := make([]interface{}, 0, len(s.Input.Datasets)+1)
	header = append(header, "Label")
	for _, ds := range s.Input.Datasets {
		header = append(header, ds.Label)
	}
	if err := f.SetSheetRow(name, "A1", &header); err != nil {
		return fmt.Errorf("sheet %q header: %w", name, err)
	}
	row := 2
	for i := s.Lo; i < s.Hi && i < len(s.Input.Labels); i++ {
		cells := make([]interface{}, 0, len(s.Input.Datasets)+1)
		cells = append(cells, s.Input.Labels[i])
		for _, ds := range s.Input.Datasets {
			if i < len(ds.Data) {
				cells = append(cells, ds.Data[i])
			} else {
				cells = append(cells, nil)
			}
		}
		cell, err := excelize.CoordinatesToCellName(1, row)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(name, cell, &cells); err != nil {
			return fmt.Errorf("sheet %q row %d: %w", name, row, err)
		}
		row++
	}
	return nil
}

func (s exportSheet) writeCandles(f *excelize.File, name string) error {
	header := []interface{}{"Date", "Open", "High", "Low", "Close", "Volume"}
	if err := f.SetSheetRow(name, "A1", &header); err != nil {
		return fmt.Errorf("sheet %q header: %w", name, err)
	}
	row := 2
	for i := s.Lo; i < s.Hi && i < len(s.Candles); i++ {
		c := s.Candles[i]
		cells := []interface{}{c.Date, c.Open, c.High, c.Low, c.Close, c.Volume}
		cell, err := excelize.CoordinatesToCellName(1, row)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(name, cell, &cells); err != nil {
			return fmt.Errorf("sheet %q row %d: %w", name, row, err)
		}
		row++
	}
	return nil
}

// sanitizeSheetName keeps names inside the xlsx 31-char limit and
// strips characters the format rejects. Empty names fall back to a
// positional one.
func sanitizeSheetName(name string, idx int) string {
	out := make([]rune, 0, len(name))
	for _, r := range name {
		switch r {
		case ':', '\\', '/', '?', '*', '[', ']':
			continue
		}
		out = append(out, r)
	}
	if len(out) > 31 {
		out = out[:31]
	}
	if len(out) == 0 {
		return fmt.Sprintf("Chart %d", idx+1)
	}
	return string(out)
}

// uniqueSheetName suffixes a counter when the name is already taken.
// Sheet names are case-insensitive in the xlsx format, and the suffixed
// name still has to respect the 31-character limit.
func uniqueSheetName(name string, used map[string]bool) string {
	if !used[strings.ToLower(name)] {
		used[strings.ToLower(name)] = true
		return name
	}
	base := []rune(name)
	for n := 2; ; n++ {
		suffix := fmt.Sprintf(" %d", n)
		trimmed := base
		if len(trimmed)+len(suffix) > 31 {
			trimmed = trimmed[:31-len(suffix)]
		}
		candidate := string(trimmed) + suffix
		if !used[strings.ToLower(candidate)] {
			used[strings.ToLower(candidate)] = true
			return candidate
		}
	}
}
