package domain

import "time"

// Province is a canonical first-level administrative region.
type Province struct {
	ID     int64  `json:"province_id"`
	Name   string `json:"province_name"`
	NameEN string `json:"province_name_en"`
}

// District is a canonical second-level administrative region.
type District struct {
	ID         int64  `json:"district_id"`
	Name       string `json:"district_name"`
	NameEN     string `json:"district_name_en"`
	ProvinceID int64  `json:"province_id"`
}

// ReferenceEntry is one district of a boundary source together with its
// province, as written by reference initialization.
type ReferenceEntry struct {
	Province   string
	ProvinceEN string
	District   string
	DistrictEN string
}

// UploadKind identifies which source family an upload belongs to.
type UploadKind string

const (
	KindRain      UploadKind = "rain"
	KindRisk      UploadKind = "risk"
	KindIncident  UploadKind = "incident"
	KindReference UploadKind = "reference"
)

// Valid reports whether k is one of the known upload kinds.
func (k UploadKind) Valid() bool {
	switch k {
	case KindRain, KindRisk, KindIncident, KindReference:
		return true
	}
	return false
}

// Upload records one ingested source file. Rain and risk rows reference it.
type Upload struct {
	ID          int64      `json:"upload_id"`
	Kind        UploadKind `json:"kind"`
	Filename    string     `json:"filename"`
	StoragePath string     `json:"storage_path"`
	SizeBytes   int64      `json:"size_bytes"`
	CreatedAt   time.Time  `json:"created_at"`
	// Meta carries job settings that shaped the rows, such as a forced
	// province or the raster variable.
	Meta map[string]string `json:"meta,omitempty"`
}

// DistrictAggregate is one joined and aggregated raster output row, keyed by
// boundary names rather than reference IDs.
type DistrictAggregate struct {
	Time            time.Time
	Province        string
	District        string
	WeightedMean    float64
	AreaWeightedSum float64
	Points          int
}

// RainRecord is a per-district rainfall aggregate for one time step.
type RainRecord struct {
	UploadID        int64     `json:"upload_id"`
	Date            time.Time `json:"date"`
	Year            int       `json:"year"`
	ProvinceID      int64     `json:"province_id"`
	DistrictID      int64     `json:"district_id"`
	WeightedMean    float64   `json:"rain_mm_wmean"`
	AreaWeightedSum float64   `json:"rain_area_sum"`
}

// RainKey is the in-batch uniqueness key of a RainRecord.
type RainKey struct {
	Date       time.Time
	ProvinceID int64
	DistrictID int64
}

// Key returns the record's dedup key.
func (r RainRecord) Key() RainKey {
	return RainKey{Date: r.Date, ProvinceID: r.ProvinceID, DistrictID: r.DistrictID}
}

// RiskLevel is a landslide risk class: 1 low, 2 medium, 3 high.
type RiskLevel int

const (
	RiskLow    RiskLevel = 1
	RiskMedium RiskLevel = 2
	RiskHigh   RiskLevel = 3

	// DefaultRiskLevel is assigned to districts a risk source does not list.
	DefaultRiskLevel = RiskLow
)

// RiskRecord is the risk level of one district in one risk upload.
type RiskRecord struct {
	UploadRiskID int64     `json:"upload_risk_id"`
	ProvinceID   int64     `json:"province_id"`
	DistrictID   int64     `json:"district_id"`
	RiskLevel    RiskLevel `json:"risk_level"`
}

// RiskKey is the in-batch uniqueness key of a RiskRecord.
type RiskKey struct {
	DistrictID   int64
	UploadRiskID int64
}

// Key returns the record's dedup key.
func (r RiskRecord) Key() RiskKey {
	return RiskKey{DistrictID: r.DistrictID, UploadRiskID: r.UploadRiskID}
}

// IncidentRecord counts landslide incidents in one district on one day.
type IncidentRecord struct {
	DisasterDate     time.Time `json:"disaster_date"`
	Year             int       `json:"year"`
	ProvinceID       int64     `json:"province_id"`
	DistrictID       int64     `json:"district_id"`
	CountOfDisasters int       `json:"count_of_disasters"`
}

// IncidentKey is the global uniqueness key of an IncidentRecord.
type IncidentKey struct {
	DisasterDate time.Time
	ProvinceID   int64
	DistrictID   int64
}

// Key returns the record's dedup key.
func (r IncidentRecord) Key() IncidentKey {
	return IncidentKey{DisasterDate: r.DisasterDate, ProvinceID: r.ProvinceID, DistrictID: r.DistrictID}
}

// DayUTC truncates t to midnight UTC of its calendar day.
func DayUTC(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
