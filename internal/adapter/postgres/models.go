package postgres

import (
	"time"

	"gorm.io/datatypes"

	"github.com/l3boykane/Mini-Project-204721-DATA-ENGINEERING/internal/domain"
)

type provinceRow struct {
	ID     int64  `gorm:"column:province_id;primaryKey"`
	Name   string `gorm:"column:province_name;size:255;not null"`
	NameEN string `gorm:"column:province_name_en;size:255;not null;uniqueIndex"`
}

func (provinceRow) TableName() string { return "provinces" }

type districtRow struct {
	ID         int64  `gorm:"column:district_id;primaryKey"`
	Name       string `gorm:"column:district_name;size:255;not null"`
	NameEN     string `gorm:"column:district_name_en;size:255;not null;uniqueIndex:idx_districts_province_name,priority:2"`
	ProvinceID int64  `gorm:"column:province_id;not null;uniqueIndex:idx_districts_province_name,priority:1"`
}

func (districtRow) TableName() string { return "districts" }

type uploadRow struct {
	ID          int64             `gorm:"column:upload_id;primaryKey"`
	Kind        string            `gorm:"column:kind;size:32;not null"`
	Filename    string            `gorm:"column:filename;size:512;not null"`
	StoragePath string            `gorm:"column:storage_path;size:1024"`
	SizeBytes   int64             `gorm:"column:size_bytes"`
	CreatedAt   time.Time         `gorm:"column:created_at;not null"`
	Meta        datatypes.JSONMap `gorm:"column:meta;type:jsonb"`
}

func (uploadRow) TableName() string { return "uploads" }

func toUploadRow(u domain.Upload) uploadRow {
	row := uploadRow{
		Kind:        string(u.Kind),
		Filename:    u.Filename,
		StoragePath: u.StoragePath,
		SizeBytes:   u.SizeBytes,
		CreatedAt:   u.CreatedAt,
	}
	if len(u.Meta) > 0 {
		row.Meta = make(datatypes.JSONMap, len(u.Meta))
		for k, v := range u.Meta {
			row.Meta[k] = v
		}
	}
	return row
}

type rainRow struct {
	ID              int64     `gorm:"primaryKey"`
	UploadID        int64     `gorm:"column:upload_id;not null;index"`
	Date            time.Time `gorm:"column:date;type:date;not null;index"`
	Year            int       `gorm:"column:year;not null"`
	ProvinceID      int64     `gorm:"column:province_id;not null"`
	DistrictID      int64     `gorm:"column:district_id;not null;index"`
	WeightedMean    float64   `gorm:"column:rain_mm_wmean"`
	AreaWeightedSum float64   `gorm:"column:rain_area_sum"`
}

func (rainRow) TableName() string { return "rain_points" }

func toRainRow(r domain.RainRecord) rainRow {
	return rainRow{
		UploadID:        r.UploadID,
		Date:            r.Date,
		Year:            r.Year,
		ProvinceID:      r.ProvinceID,
		DistrictID:      r.DistrictID,
		WeightedMean:    r.WeightedMean,
		AreaWeightedSum: r.AreaWeightedSum,
	}
}

type riskRow struct {
	ID           int64 `gorm:"primaryKey"`
	UploadRiskID int64 `gorm:"column:upload_risk_id;not null;index"`
	ProvinceID   int64 `gorm:"column:province_id;not null"`
	DistrictID   int64 `gorm:"column:district_id;not null"`
	RiskLevel    int   `gorm:"column:risk_level;not null"`
}

func (riskRow) TableName() string { return "landslide_risks" }

func toRiskRow(r domain.RiskRecord) riskRow {
	return riskRow{
		UploadRiskID: r.UploadRiskID,
		ProvinceID:   r.ProvinceID,
		DistrictID:   r.DistrictID,
		RiskLevel:    int(r.RiskLevel),
	}
}

// incidentRow is unique on (disaster_date, province_id, district_id); the
// index backs the advisory-locked existence check.
type incidentRow struct {
	ID               int64     `gorm:"primaryKey"`
	DisasterDate     time.Time `gorm:"column:disaster_date;type:date;not null;uniqueIndex:idx_landslide_stats_key,priority:1"`
	Year             int       `gorm:"column:year;not null"`
	ProvinceID       int64     `gorm:"column:province_id;not null;uniqueIndex:idx_landslide_stats_key,priority:2"`
	DistrictID       int64     `gorm:"column:district_id;not null;uniqueIndex:idx_landslide_stats_key,priority:3"`
	CountOfDisasters int       `gorm:"column:count_of_disasters;not null"`
}

func (incidentRow) TableName() string { return "landslide_stats" }

func toIncidentRow(r domain.IncidentRecord) incidentRow {
	return incidentRow{
		DisasterDate:     r.DisasterDate,
		Year:             r.Year,
		ProvinceID:       r.ProvinceID,
		DistrictID:       r.DistrictID,
		CountOfDisasters: r.CountOfDisasters,
	}
}

func (r incidentRow) key() domain.IncidentKey {
	return domain.IncidentKey{DisasterDate: domain.DayUTC(r.DisasterDate), ProvinceID: r.ProvinceID, DistrictID: r.DistrictID}
}
