package postgres

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/l3boykane/Mini-Project-204721-DATA-ENGINEERING/internal/domain"
)

func TestIncidentRowKey_NormalizesScannedDate(t *testing.T) {
	bangkok := time.FixedZone("ICT", 7*3600)
	row := incidentRow{
		DisasterDate: time.Date(2024, 5, 3, 0, 0, 0, 0, time.UTC).In(bangkok),
		ProvinceID:   1,
		DistrictID:   10,
	}
	rec := domain.IncidentRecord{DisasterDate: time.Date(2024, 5, 3, 0, 0, 0, 0, time.UTC), ProvinceID: 1, DistrictID: 10}
	assert.Equal(t, rec.Key(), row.key())
}

func TestToRows(t *testing.T) {
	day := time.Date(2024, 5, 3, 0, 0, 0, 0, time.UTC)

	rain := toRainRow(domain.RainRecord{UploadID: 7, Date: day, Year: 2024, ProvinceID: 1, DistrictID: 10, WeightedMean: 2.5, AreaWeightedSum: 0.1})
	assert.Equal(t, rainRow{UploadID: 7, Date: day, Year: 2024, ProvinceID: 1, DistrictID: 10, WeightedMean: 2.5, AreaWeightedSum: 0.1}, rain)

	risk := toRiskRow(domain.RiskRecord{UploadRiskID: 3, ProvinceID: 1, DistrictID: 10, RiskLevel: domain.RiskHigh})
	assert.Equal(t, 3, risk.RiskLevel)

	inc := toIncidentRow(domain.IncidentRecord{DisasterDate: day, Year: 2024, ProvinceID: 1, DistrictID: 10, CountOfDisasters: 2})
	assert.Equal(t, 2, inc.CountOfDisasters)
	assert.Equal(t, "landslide_stats", inc.TableName())
}

func TestToUploadRow(t *testing.T) {
	created := time.Date(2024, 5, 3, 8, 0, 0, 0, time.UTC)
	row := toUploadRow(domain.Upload{
		Kind:      domain.KindRisk,
		Filename:  "risk.dbf",
		SizeBytes: 2048,
		CreatedAt: created,
		Meta:      map[string]string{"force_province": "Chiang Mai"},
	})
	assert.Equal(t, "risk", row.Kind)
	assert.Equal(t, "Chiang Mai", row.Meta["force_province"])

	bare := toUploadRow(domain.Upload{Kind: domain.KindRain, Filename: "rain.nc", CreatedAt: created})
	assert.Nil(t, bare.Meta)
}
