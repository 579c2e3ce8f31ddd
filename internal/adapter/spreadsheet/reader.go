// Package spreadsheet reads incident workbooks (.xlsx) and CSV exports into
// raw sheets.
package spreadsheet

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/xuri/excelize/v2"
	"golang.org/x/text/encoding/charmap"

	"github.com/l3boykane/Mini-Project-204721-DATA-ENGINEERING/internal/domain"
	"github.com/l3boykane/Mini-Project-204721-DATA-ENGINEERING/internal/incident"
)

// Load reads every sheet of a workbook, or the single sheet of a CSV file.
func Load(path string) ([]incident.Sheet, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx", ".xlsm":
		return loadWorkbook(path)
	case ".csv":
		s, err := loadCSV(path)
		if err != nil {
			return nil, err
		}
		return []incident.Sheet{s}, nil
	}
	return nil, fmt.Errorf("%w: %s (want .xlsx or .csv)", domain.ErrUnsupportedFile, filepath.Base(path))
}

// loadWorkbook reads raw cell values so dates arrive as Excel serials
// rather than locale-formatted text.
func loadWorkbook(path string) ([]incident.Sheet, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("open workbook %s: %w", path, err)
	}
	defer f.Close()

	var sheets []incident.Sheet
	for _, name := range f.GetSheetList() {
		rows, err := f.GetRows(name, excelize.Options{RawCellValue: true})
		if err != nil {
			return nil, fmt.Errorf("read sheet %q: %w", name, err)
		}
		sheets = append(sheets, incident.Sheet{Name: name, Cells: rows})
	}
	return sheets, nil
}

// loadCSV reads UTF-8, falling back to Windows-874 for older Thai exports.
func loadCSV(path string) (incident.Sheet, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return incident.Sheet{}, fmt.Errorf("read csv: %w", err)
	}
	data = bytes.TrimPrefix(data, []byte("\ufeff"))
	if !utf8.Valid(data) {
		if data, err = charmap.Windows874.NewDecoder().Bytes(data); err != nil {
			return incident.Sheet{}, fmt.Errorf("decode csv %s as windows-874: %w", path, err)
		}
	}

	r := csv.NewReader(bytes.NewReader(data))
	r.FieldsPerRecord = -1
	r.LazyQuotes = true
	records, err := r.ReadAll()
	if err != nil {
		return incident.Sheet{}, fmt.Errorf("parse csv %s: %w", path, err)
	}
	return incident.Sheet{Name: strings.TrimSuffix(filepath.Base(path), filepath.Ext(path)), Cells: records}, nil
}
