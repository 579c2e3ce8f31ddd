package domain

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// riskWords maps lower-cased Thai and English class labels to levels.
var riskWords = map[string]RiskLevel{
	"ต่ำ":                 RiskLow,
	"ความเสี่ยงต่ำ":       RiskLow,
	"low":                 RiskLow,
	"ปานกลาง":             RiskMedium,
	"กลาง":                RiskMedium,
	"ความเสี่ยงปานกลาง":   RiskMedium,
	"medium":              RiskMedium,
	"moderate":            RiskMedium,
	"สูง":                 RiskHigh,
	"ความเสี่ยงสูง":       RiskHigh,
	"high":                RiskHigh,
}

// ParseRiskLevel maps a raw risk class to a level. Integers 1-3 are ordinal,
// values in [0, 1) are fractional and binned at thirds, everything else must
// be a known Thai or English label. A value of exactly 1 is always ordinal
// low, so fractional sources must keep their maximum below 1.
func ParseRiskLevel(raw string) (RiskLevel, error) {
	s := strings.ToLower(collapseSpace(DecodeLegacyText(raw)))
	if s == "" {
		return 0, fmt.Errorf("empty risk class")
	}
	if lvl, ok := riskWords[s]; ok {
		return lvl, nil
	}
	s = strings.TrimSuffix(strings.TrimSuffix(s, " risk"), " ความเสี่ยง")
	if lvl, ok := riskWords[s]; ok {
		return lvl, nil
	}

	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) {
		return 0, fmt.Errorf("unknown risk class %q", raw)
	}
	switch {
	case v >= 0 && v < 1:
		return fractionalRisk(v), nil
	case v == 1 || v == 2 || v == 3:
		return RiskLevel(v), nil
	}
	return 0, fmt.Errorf("risk class %q out of range", raw)
}

func fractionalRisk(v float64) RiskLevel {
	switch {
	case v < 1.0/3:
		return RiskLow
	case v < 2.0/3:
		return RiskMedium
	}
	return RiskHigh
}

// MeanRiskLevel averages levels and rounds half up to the nearest class.
func MeanRiskLevel(levels []RiskLevel) RiskLevel {
	if len(levels) == 0 {
		return DefaultRiskLevel
	}
	var sum int
	for _, l := range levels {
		sum += int(l)
	}
	mean := float64(sum) / float64(len(levels))
	lvl := RiskLevel(math.Floor(mean + 0.5))
	return min(max(lvl, RiskLow), RiskHigh)
}

// Label returns the English label of the level.
func (l RiskLevel) Label() string {
	switch l {
	case RiskLow:
		return "low"
	case RiskMedium:
		return "medium"
	case RiskHigh:
		return "high"
	}
	return "unknown"
}
