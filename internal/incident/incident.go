// Package incident reads landslide incident workbooks into per-day,
// per-district incident counts.
package incident

import (
	"slices"
	"strings"
	"time"

	"github.com/l3boykane/Mini-Project-204721-DATA-ENGINEERING/internal/domain"
	"github.com/l3boykane/Mini-Project-204721-DATA-ENGINEERING/internal/merge"
	"github.com/l3boykane/Mini-Project-204721-DATA-ENGINEERING/internal/reference"
)

// Column aliases, in priority order.
var (
	DateColumns     = []string{"disaster_date", "date", "event_date", "วันที่", "วันที่เกิดเหตุ", "วัน/เดือน/ปี", "วันเกิดเหตุ"}
	ProvinceColumns = []string{"province", "province_name", "จังหวัด", "prov_nam_t", "prov_nam_e", "changwat"}
	DistrictColumns = []string{"district", "district_name", "อำเภอ", "amphoe", "amp_nam_t", "amp_nam_e"}
)

// sheetHints mark the worksheet holding incidents when a workbook has
// several. Matched as lower-case substrings of the sheet name.
var sheetHints = []string{"landslide", "incident", "ดินถล่ม", "ดินโคลนถล่ม", "สถิติ"}

// genericSheetNames are only trusted once no sheet has a recognizable
// header, and only as whole names.
var genericSheetNames = []string{"data"}

// headerScanRows bounds how far down a sheet the header row is searched.
const headerScanRows = 10

// Sheet is one raw worksheet or CSV file, header rows included.
type Sheet struct {
	Name  string
	Cells [][]string
}

// Row is one incident with its parsed date.
type Row struct {
	Line     int
	Date     time.Time
	Province string
	District string
}

// Invalid is a source row skipped because of an empty district or an
// unparseable date.
type Invalid struct {
	Line   int
	Reason string
}

// Layout describes where the incident columns were found.
type Layout struct {
	Sheet     string
	HeaderRow int // -1 when columns were assigned by position
	Date      int
	Province  int
	District  int
}

// PickSheet returns the first sheet whose name carries an incident hint,
// then the first sheet with a recognizable header, then a sheet named
// "data", then the first sheet.
func PickSheet(sheets []Sheet) (Sheet, bool) {
	if len(sheets) == 0 {
		return Sheet{}, false
	}
	for _, hint := range sheetHints {
		for _, s := range sheets {
			if strings.Contains(strings.ToLower(s.Name), hint) {
				return s, true
			}
		}
	}
	for _, s := range sheets {
		if _, err := DetectLayout(s); err == nil {
			return s, true
		}
	}
	for _, s := range sheets {
		if slices.Contains(genericSheetNames, strings.ToLower(strings.TrimSpace(s.Name))) {
			return s, true
		}
	}
	return sheets[0], true
}

// DetectLayout finds the header row within the first rows of the sheet.
// Sheets without a recognizable header fall back to positional columns
// (date, province, district) when the first column holds dates.
func DetectLayout(s Sheet) (Layout, error) {
	var lastErr error
	for i := 0; i < min(headerScanRows, len(s.Cells)); i++ {
		table := domain.NewTable(s.Name, s.Cells[i], nil)
		l, err := layoutFrom(table)
		if err == nil {
			l.Sheet, l.HeaderRow = s.Name, i
			return l, nil
		}
		if lastErr == nil {
			lastErr = err
		}
	}
	if positional(s) {
		return Layout{Sheet: s.Name, HeaderRow: -1, Date: 0, Province: 1, District: 2}, nil
	}
	if lastErr == nil {
		lastErr = &domain.FieldsError{What: "incident date", Want: DateColumns}
	}
	return Layout{}, lastErr
}

func layoutFrom(t *domain.Table) (Layout, error) {
	var (
		l   Layout
		err error
	)
	if l.Date, err = t.RequireColumn("incident date", DateColumns...); err != nil {
		return l, err
	}
	if l.Province, err = t.RequireColumn("province", ProvinceColumns...); err != nil {
		return l, err
	}
	if l.District, err = t.RequireColumn("district", DistrictColumns...); err != nil {
		return l, err
	}
	return l, nil
}

func positional(s Sheet) bool {
	for _, r := range s.Cells {
		if len(r) < 3 || strings.TrimSpace(r[0]) == "" {
			continue
		}
		_, err := domain.ParseIncidentDate(r[0])
		return err == nil
	}
	return false
}

// Parse picks the incident sheet, detects its layout and parses every data
// row below the header.
func Parse(sheets []Sheet) ([]Row, []Invalid, Layout, error) {
	s, ok := PickSheet(sheets)
	if !ok {
		return nil, nil, Layout{}, &domain.FieldsError{What: "incident sheet", Want: sheetHints}
	}
	l, err := DetectLayout(s)
	if err != nil {
		return nil, nil, Layout{}, err
	}

	var (
		rows    []Row
		invalid []Invalid
	)
	width := max(l.Date, l.Province, l.District) + 1
	for i := l.HeaderRow + 1; i < len(s.Cells); i++ {
		cells := make([]string, width)
		copy(cells, s.Cells[i])
		if blank(cells) {
			continue
		}
		line := i + 1
		district := strings.TrimSpace(domain.DecodeLegacyText(cells[l.District]))
		if district == "" {
			invalid = append(invalid, Invalid{Line: line, Reason: "empty district"})
			continue
		}
		date, err := domain.ParseIncidentDate(cells[l.Date])
		if err != nil {
			invalid = append(invalid, Invalid{Line: line, Reason: err.Error()})
			continue
		}
		rows = append(rows, Row{
			Line:     line,
			Date:     date,
			Province: domain.DecodeLegacyText(cells[l.Province]),
			District: district,
		})
	}
	return rows, invalid, l, nil
}

func blank(cells []string) bool {
	for _, c := range cells {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

// Names extracts the resolver inputs of a Row.
func Names(r Row) (string, string) { return r.Province, r.District }

// Count turns resolved rows into incident records, one per (date, province,
// district), counting the rows of each.
func Count(matched []reference.Match[Row]) []domain.IncidentRecord {
	records := make([]domain.IncidentRecord, 0, len(matched))
	for _, m := range matched {
		records = append(records, domain.IncidentRecord{
			DisasterDate:     m.Row.Date,
			Year:             m.Row.Date.Year(),
			ProvinceID:       m.Key.ProvinceID,
			DistrictID:       m.Key.DistrictID,
			CountOfDisasters: 1,
		})
	}
	return merge.CountByKey(records, domain.IncidentRecord.Key, func(r domain.IncidentRecord, n int) domain.IncidentRecord {
		r.CountOfDisasters = n
		return r
	})
}

// DateRange returns the earliest and latest disaster dates of records.
func DateRange(records []domain.IncidentRecord) (from, to time.Time) {
	for i, r := range records {
		if i == 0 || r.DisasterDate.Before(from) {
			from = r.DisasterDate
		}
		if i == 0 || r.DisasterDate.After(to) {
			to = r.DisasterDate
		}
	}
	return from, to
}
