package reference

import (
	"fmt"

	"github.com/l3boykane/Mini-Project-204721-DATA-ENGINEERING/internal/domain"
)

// Reason explains why a row failed to resolve.
type Reason string

const (
	ReasonUnknownProvince Reason = "unknown_province"
	ReasonUnknownDistrict Reason = "unknown_district"
	ReasonOutsideRegion   Reason = "outside_region"
)

// Key is a resolved (province, district) pair.
type Key struct {
	ProvinceID int64
	DistrictID int64
}

// Options configures a Resolver.
type Options struct {
	// AllowRegions restricts resolution to these provinces. Empty allows
	// every province in the reference.
	AllowRegions []string
	// ForceProvince replaces the province of every row whose province does
	// not resolve. The district is then matched within the forced province.
	ForceProvince string
}

// Resolver maps names to reference keys against one Snapshot.
type Resolver struct {
	snap    *Snapshot
	allow   map[int64]bool
	missing []string
	force   int64
}

// NewResolver validates opts against snap. Allow-list names that are not in
// the reference are skipped and reported by MissingRegions; if none resolve
// every row falls outside the region. A force name that is not in the
// reference is a configuration error.
func NewResolver(snap *Snapshot, opts Options) (*Resolver, error) {
	r := &Resolver{snap: snap}
	if len(opts.AllowRegions) > 0 {
		r.allow = make(map[int64]bool, len(opts.AllowRegions))
		for _, name := range opts.AllowRegions {
			id, ok := snap.ProvinceID(name)
			if !ok {
				r.missing = append(r.missing, name)
				continue
			}
			r.allow[id] = true
		}
	}
	if opts.ForceProvince != "" {
		id, ok := snap.ProvinceID(opts.ForceProvince)
		if !ok {
			return nil, fmt.Errorf("forced province %q is not a reference province", opts.ForceProvince)
		}
		r.force = id
	}
	return r, nil
}

// Snapshot returns the reference the resolver reads.
func (r *Resolver) Snapshot() *Snapshot { return r.snap }

// MissingRegions lists the allow-list names absent from the reference.
func (r *Resolver) MissingRegions() []string { return r.missing }

// Allowed reports whether a province passes the region filter.
func (r *Resolver) Allowed(provinceID int64) bool {
	return r.allow == nil || r.allow[provinceID]
}

// Resolution is the outcome of resolving one name pair.
type Resolution struct {
	Key    Key
	Reason Reason // empty on success
	Forced bool
}

// OK reports whether the pair resolved.
func (res Resolution) OK() bool { return res.Reason == "" }

// Resolve matches a province, then the district within that province.
func (r *Resolver) Resolve(province, district string) Resolution {
	var res Resolution
	pid, ok := r.snap.ProvinceID(province)
	if !ok {
		if r.force == 0 {
			res.Reason = ReasonUnknownProvince
			return res
		}
		pid, res.Forced = r.force, true
	}
	if !r.Allowed(pid) {
		res.Reason = ReasonOutsideRegion
		return res
	}
	did, ok := r.snap.DistrictID(pid, district)
	if !ok {
		res.Reason = ReasonUnknownDistrict
		return res
	}
	res.Key = Key{ProvinceID: pid, DistrictID: did}
	return res
}

// Match is a resolved row.
type Match[T any] struct {
	Row    T
	Key    Key
	Forced bool
}

// Miss is a row that did not resolve, with the names it carried.
type Miss[T any] struct {
	Row      T
	Province string
	District string
	Reason   Reason
}

// String renders the miss as "province/district (reason)" using normalized
// names, which is the form the ingest report samples.
func (m Miss[T]) String() string {
	return fmt.Sprintf("%s/%s (%s)", domain.NormalizeName(m.Province), domain.NormalizeName(m.District), m.Reason)
}

// ResolveAll splits rows into matches and misses, preserving input order in
// both.
func ResolveAll[T any](r *Resolver, rows []T, names func(T) (province, district string)) ([]Match[T], []Miss[T]) {
	var (
		matched []Match[T]
		missed  []Miss[T]
	)
	for _, row := range rows {
		province, district := names(row)
		res := r.Resolve(province, district)
		if !res.OK() {
			missed = append(missed, Miss[T]{Row: row, Province: province, District: district, Reason: res.Reason})
			continue
		}
		matched = append(matched, Match[T]{Row: row, Key: res.Key, Forced: res.Forced})
	}
	return matched, missed
}
