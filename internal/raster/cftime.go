package raster

import (
	"fmt"
	"math"
	"regexp"
	"strings"
	"time"
)

var cfUnitsRe = regexp.MustCompile(`^\s*(days?|hours?|minutes?|seconds?)\s+since\s+(.+?)\s*$`)

var cfBaseLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-1-2 15:4:5",
	"2006-01-02 15:04",
	"2006-01-02",
	"2006-1-2",
}

// ParseCFTimes converts CF convention time offsets ("days since
// 1980-01-01 00:00:00") to UTC instants. Calendars other than the standard
// Gregorian one are not supported.
func ParseCFTimes(units string, offsets []float64) ([]time.Time, error) {
	m := cfUnitsRe.FindStringSubmatch(strings.ToLower(units))
	if m == nil {
		return nil, fmt.Errorf("unsupported time units %q", units)
	}
	var unit time.Duration
	switch strings.TrimSuffix(m[1], "s") {
	case "day":
		unit = 24 * time.Hour
	case "hour":
		unit = time.Hour
	case "minute":
		unit = time.Minute
	case "second":
		unit = time.Second
	}

	base, err := parseCFBase(m[2])
	if err != nil {
		return nil, fmt.Errorf("time units %q: %w", units, err)
	}

	out := make([]time.Time, len(offsets))
	for i, off := range offsets {
		if math.IsNaN(off) || math.IsInf(off, 0) {
			return nil, fmt.Errorf("time offset %d is not finite", i)
		}
		whole, frac := math.Modf(off)
		if unit == 24*time.Hour {
			out[i] = base.AddDate(0, 0, int(whole)).Add(time.Duration(frac * float64(unit)))
			continue
		}
		out[i] = base.Add(time.Duration(whole) * unit).Add(time.Duration(frac * float64(unit)))
	}
	return out, nil
}

func parseCFBase(s string) (time.Time, error) {
	s = strings.TrimSuffix(strings.TrimSpace(s), " utc")
	s = strings.ReplaceAll(s, "t", "T")
	s = strings.ReplaceAll(s, "z", "Z")
	for _, layout := range cfBaseLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized reference time %q", s)
}
