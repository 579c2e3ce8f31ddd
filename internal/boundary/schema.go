package boundary

import (
	"slices"
	"strings"

	"github.com/l3boykane/Mini-Project-204721-DATA-ENGINEERING/internal/domain"
)

// Names are the administrative names extracted from one boundary feature.
// Province and District are the primary (English where the schema has one)
// names; the Alt fields carry the second language when present.
type Names struct {
	Province    string
	ProvinceAlt string
	District    string
	DistrictAlt string
}

// SchemaAdapter recognizes one attribute naming scheme of a boundary source.
type SchemaAdapter interface {
	// Name identifies the scheme in logs and errors.
	Name() string
	// Applies reports whether the scheme's columns exist in fields.
	Applies(fields []string) bool
	// Extract reads names from one feature's attributes. ok is false when the
	// feature carries no usable province or district name.
	Extract(attrs map[string]string) (names Names, ok bool)
}

// FieldSchema is a SchemaAdapter over fixed column names.
type FieldSchema struct {
	Label       string
	Province    string
	ProvinceAlt string
	District    string
	DistrictAlt string
}

var (
	// GADM is the schema of gadm.org level-2 exports.
	GADM = FieldSchema{Label: "gadm", Province: "NAME_1", ProvinceAlt: "NL_NAME_1", District: "NAME_2", DistrictAlt: "NL_NAME_2"}
	// OCHA is the schema of the HDX/OCHA common operational datasets.
	OCHA = FieldSchema{Label: "ocha", Province: "ADM1_EN", ProvinceAlt: "ADM1_TH", District: "ADM2_EN", DistrictAlt: "ADM2_TH"}
	// RTSD is the schema of Royal Thai Survey Department amphoe layers.
	RTSD = FieldSchema{Label: "rtsd", Province: "PROV_NAM_E", ProvinceAlt: "PROV_NAM_T", District: "AMP_NAM_E", DistrictAlt: "AMP_NAM_T"}
)

// DefaultSchemas is the order in which schemas are tried.
var DefaultSchemas = []SchemaAdapter{GADM, OCHA, RTSD}

func (s FieldSchema) Name() string { return s.Label }

func (s FieldSchema) Applies(fields []string) bool {
	has := func(name string) bool {
		return name != "" && slices.ContainsFunc(fields, func(f string) bool { return strings.EqualFold(f, name) })
	}
	return (has(s.Province) || has(s.ProvinceAlt)) && (has(s.District) || has(s.DistrictAlt))
}

func (s FieldSchema) Extract(attrs map[string]string) (Names, bool) {
	n := Names{
		Province:    attr(attrs, s.Province),
		ProvinceAlt: attr(attrs, s.ProvinceAlt),
		District:    attr(attrs, s.District),
		DistrictAlt: attr(attrs, s.DistrictAlt),
	}
	if n.Province == "" {
		n.Province, n.ProvinceAlt = n.ProvinceAlt, ""
	}
	if n.District == "" {
		n.District, n.DistrictAlt = n.DistrictAlt, ""
	}
	return n, n.Province != "" && n.District != ""
}

// SelectSchema returns the first adapter that applies to fields.
func SelectSchema(schemas []SchemaAdapter, fields []string) (SchemaAdapter, error) {
	for _, s := range schemas {
		if s.Applies(fields) {
			return s, nil
		}
	}
	want := make([]string, 0, len(schemas))
	for _, s := range schemas {
		want = append(want, s.Name())
	}
	return nil, &domain.FieldsError{What: "province/district", Want: want, Found: fields}
}

func attr(attrs map[string]string, name string) string {
	if name == "" {
		return ""
	}
	if v, ok := attrs[name]; ok {
		return domain.NormalizeName(domain.DecodeLegacyText(v))
	}
	for k, v := range attrs {
		if strings.EqualFold(k, name) {
			return domain.NormalizeName(domain.DecodeLegacyText(v))
		}
	}
	return ""
}
