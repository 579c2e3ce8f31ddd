// Package risk turns categorical landslide risk tables into per-district
// risk levels.
package risk

import (
	"strings"

	"github.com/l3boykane/Mini-Project-204721-DATA-ENGINEERING/internal/domain"
	"github.com/l3boykane/Mini-Project-204721-DATA-ENGINEERING/internal/reference"
)

// Column aliases, in priority order.
var (
	ProvinceColumns = []string{"PROV_NAM_T", "PROV_NAM_E", "PROV_NAME", "PROVINCE", "CHANGWAT", "NAME_1", "ADM1_TH", "ADM1_EN", "จังหวัด"}
	DistrictColumns = []string{"AMP_NAM_T", "AMP_NAM_E", "AMP_NAME", "AMPHOE", "DISTRICT", "NAME_2", "ADM2_TH", "ADM2_EN", "อำเภอ"}
	LevelColumns    = []string{"RISK_LEVEL", "RISK", "LEVEL", "CLASS", "RISK_CLASS", "GRIDCODE", "ระดับ", "ระดับความเสี่ยง", "ความเสี่ยง"}
)

// Row is one source row with its parsed level.
type Row struct {
	Province string
	District string
	Level    domain.RiskLevel
}

// Invalid is a source row skipped because its class could not be parsed.
type Invalid struct {
	Line   int
	Raw    string
	Reason string
}

// Parse reads a risk table. A missing province, district or level column is
// an input shape error. Rows with an empty district or unparseable class are
// returned as Invalid rather than failing the table.
func Parse(t *domain.Table) ([]Row, []Invalid, error) {
	pc, err := t.RequireColumn("province", ProvinceColumns...)
	if err != nil {
		return nil, nil, err
	}
	dc, err := t.RequireColumn("district", DistrictColumns...)
	if err != nil {
		return nil, nil, err
	}
	lc, err := t.RequireColumn("risk level", LevelColumns...)
	if err != nil {
		return nil, nil, err
	}

	var (
		rows    []Row
		invalid []Invalid
	)
	for i, cells := range t.Rows {
		district := strings.TrimSpace(domain.DecodeLegacyText(cells[dc]))
		if district == "" {
			invalid = append(invalid, Invalid{Line: i + 1, Raw: cells[lc], Reason: "empty district"})
			continue
		}
		lvl, err := domain.ParseRiskLevel(cells[lc])
		if err != nil {
			invalid = append(invalid, Invalid{Line: i + 1, Raw: cells[lc], Reason: err.Error()})
			continue
		}
		rows = append(rows, Row{
			Province: domain.DecodeLegacyText(cells[pc]),
			District: district,
			Level:    lvl,
		})
	}
	return rows, invalid, nil
}

// Names extracts the resolver inputs of a Row.
func Names(r Row) (string, string) { return r.Province, r.District }

// Aggregate averages the levels of rows resolving to the same district into
// one record per district, in order of first appearance.
func Aggregate(matched []reference.Match[Row], uploadID int64) []domain.RiskRecord {
	index := make(map[int64]int)
	var (
		out    []domain.RiskRecord
		levels [][]domain.RiskLevel
	)
	for _, m := range matched {
		i, ok := index[m.Key.DistrictID]
		if !ok {
			i = len(out)
			index[m.Key.DistrictID] = i
			out = append(out, domain.RiskRecord{UploadRiskID: uploadID, ProvinceID: m.Key.ProvinceID, DistrictID: m.Key.DistrictID})
			levels = append(levels, nil)
		}
		levels[i] = append(levels[i], m.Row.Level)
	}
	for i := range out {
		out[i].RiskLevel = domain.MeanRiskLevel(levels[i])
	}
	return out
}

// Defaults returns a DefaultRiskLevel record for every district of every
// province that appears in records.
func Defaults(snap *reference.Snapshot, records []domain.RiskRecord, uploadID int64) []domain.RiskRecord {
	seen := make(map[int64]bool)
	var out []domain.RiskRecord
	for _, r := range records {
		if seen[r.ProvinceID] {
			continue
		}
		seen[r.ProvinceID] = true
		for _, d := range snap.DistrictsOf(r.ProvinceID) {
			out = append(out, domain.RiskRecord{
				UploadRiskID: uploadID,
				ProvinceID:   r.ProvinceID,
				DistrictID:   d.ID,
				RiskLevel:    domain.DefaultRiskLevel,
			})
		}
	}
	return out
}
