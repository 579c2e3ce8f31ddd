// Package domain models Thai administrative reference data and the disaster
// records reconciled against it: district rainfall aggregates, landslide risk
// levels and landslide incident counts.
//
// # Administrative Hierarchy
//
// Two levels only: province (จังหวัด, changwat) and district (อำเภอ, amphoe).
// Every district belongs to exactly one province. Reference rows carry a Thai
// name and an English transliteration; the English name is the canonical key.
//
// # Name Conventions
//
// Source files disagree on how names are written:
//
//	"จังหวัดเชียงใหม่"      Thai with the province honorific
//	"จ.เชียงใหม่"           Thai with the abbreviated honorific
//	"Changwat Chiang Mai"  RTGS transliteration with honorific
//	"CHIANG MAI"           upper-case English
//	"Amphoe Muang Nan"     older "Muang" spelling of "Mueang"
//
// [NormalizeName] strips honorifics, collapses whitespace, applies Unicode NFC,
// title-cases pure-ASCII names and applies a short fixed list of spelling
// substitutions. [NameKey] folds the normalized form further (case, spaces,
// hyphens, dots) so "Lop Buri" and "Lopburi" meet on the same key. Both are
// idempotent.
//
// # Risk Vocabulary
//
// Landslide risk classes arrive in three encodings, all mapped to 1 (low),
// 2 (medium) or 3 (high) by [ParseRiskLevel]:
//
//	Text:       "ต่ำ"/"low", "ปานกลาง"/"กลาง"/"medium"/"moderate", "สูง"/"high"
//	Ordinal:    integers 1, 2, 3
//	Fractional: values in [0, 1) binned at thirds
//
// Districts of a touched province that the source does not list receive
// [DefaultRiskLevel]. Absence is treated as low risk.
//
// # Incident Dates
//
// Incident workbooks mix Excel serial dates, ISO dates, day-first slash dates
// and Buddhist-era years (CE + 543). [ParseIncidentDate] accepts all of them
// and returns a UTC midnight.
//
// # Uniqueness
//
// Rain aggregates are unique per (date, province, district) within one upload
// only; re-ingesting a file as a new upload adds sibling history. Risk levels
// are unique per (district, upload). Incident counts are unique per
// (date, province, district) across all uploads.
package domain
