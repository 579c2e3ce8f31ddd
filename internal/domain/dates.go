package domain

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// buddhistEraOffset converts Buddhist-era years to CE.
const buddhistEraOffset = 543

var (
	// excelEpoch is day zero of the 1900 date system as Excel computes it
	// (including the phantom 1900-02-29).
	excelEpoch = time.Date(1899, time.December, 30, 0, 0, 0, 0, time.UTC)

	// dmyRe matches day-first numeric dates: "3/5/2567", "03-05-2024", "3.5.24".
	dmyRe = regexp.MustCompile(`^(\d{1,2})[/.\-](\d{1,2})[/.\-](\d{2,4})$`)

	// ymdRe matches ISO-like dates with an optional time part.
	ymdRe = regexp.MustCompile(`^(\d{4})-(\d{1,2})-(\d{1,2})(?:[ T].*)?$`)

	// thaiDateRe matches "3 พ.ค. 2567" and "3 พฤษภาคม 2567".
	thaiDateRe = regexp.MustCompile(`^(\d{1,2})\s*(\S+?)\s*(\d{2,4})$`)
)

var thaiMonths = map[string]time.Month{
	"ม.ค.": time.January, "มกราคม": time.January,
	"ก.พ.": time.February, "กุมภาพันธ์": time.February,
	"มี.ค.": time.March, "มีนาคม": time.March,
	"เม.ย.": time.April, "เมษายน": time.April,
	"พ.ค.": time.May, "พฤษภาคม": time.May,
	"มิ.ย.": time.June, "มิถุนายน": time.June,
	"ก.ค.": time.July, "กรกฎาคม": time.July,
	"ส.ค.": time.August, "สิงหาคม": time.August,
	"ก.ย.": time.September, "กันยายน": time.September,
	"ต.ค.": time.October, "ตุลาคม": time.October,
	"พ.ย.": time.November, "พฤศจิกายน": time.November,
	"ธ.ค.": time.December, "ธันวาคม": time.December,
}

// ParseIncidentDate parses the date formats found in incident workbooks and
// returns midnight UTC of that day.
func ParseIncidentDate(raw string) (time.Time, error) {
	s := collapseSpace(DecodeLegacyText(raw))
	if s == "" {
		return time.Time{}, fmt.Errorf("empty date")
	}

	if serial, err := strconv.ParseFloat(s, 64); err == nil {
		return excelSerialDate(serial)
	}
	if m := ymdRe.FindStringSubmatch(s); m != nil {
		return civilDate(atoi(m[1]), atoi(m[2]), atoi(m[3]), raw)
	}
	if m := dmyRe.FindStringSubmatch(s); m != nil {
		return civilDate(expandYear(m[3]), atoi(m[2]), atoi(m[1]), raw)
	}
	if m := thaiDateRe.FindStringSubmatch(s); m != nil {
		if month, ok := thaiMonths[m[2]]; ok {
			return civilDate(expandYear(m[3]), int(month), atoi(m[1]), raw)
		}
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return DayUTC(t), nil
	}
	return time.Time{}, fmt.Errorf("unrecognized date %q", raw)
}

func excelSerialDate(serial float64) (time.Time, error) {
	if serial < 1 || serial > 2958465 {
		return time.Time{}, fmt.Errorf("excel serial %v out of range", serial)
	}
	return excelEpoch.AddDate(0, 0, int(math.Floor(serial))), nil
}

// civilDate validates the parts and converts Buddhist-era years.
func civilDate(year, month, day int, raw string) (time.Time, error) {
	if year > 2400 {
		year -= buddhistEraOffset
	}
	if month < 1 || month > 12 || day < 1 || day > 31 {
		return time.Time{}, fmt.Errorf("invalid date %q", raw)
	}
	t := time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
	if t.Day() != day {
		return time.Time{}, fmt.Errorf("invalid date %q", raw)
	}
	return t, nil
}

// expandYear turns two-digit years into four digits. Values above 40 are
// read as Buddhist-era short years (2567 -> "67").
func expandYear(s string) int {
	y := atoi(s)
	if len(strings.TrimSpace(s)) > 2 {
		return y
	}
	if y > 40 {
		return 2500 + y
	}
	return 2000 + y
}

func atoi(s string) int {
	n, _ := strconv.Atoi(strings.TrimSpace(s))
	return n
}
