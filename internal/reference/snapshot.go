// Package reference resolves free-text province and district names to the
// canonical reference IDs.
package reference

import (
	"context"
	"fmt"

	"github.com/l3boykane/Mini-Project-204721-DATA-ENGINEERING/internal/domain"
)

// Reader reads the full reference tables. No filtering is pushed down.
type Reader interface {
	Provinces(ctx context.Context) ([]domain.Province, error)
	Districts(ctx context.Context) ([]domain.District, error)
}

// mueangKeys are the bare "capital district" names that spreadsheets use
// without the province suffix ("อ.เมือง" for "อำเภอเมืองเชียงใหม่").
var mueangKeys = map[string]bool{
	domain.NameKey("Mueang"): true,
	domain.NameKey("เมือง"):   true,
}

// Snapshot is an immutable, keyed view of the reference tables.
type Snapshot struct {
	provinces     map[int64]domain.Province
	provinceOrder []int64
	provinceByKey map[string]int64
	districts     map[int64][]domain.District
	districtByKey map[int64]map[string]int64
}

// Load reads both tables and builds a Snapshot.
func Load(ctx context.Context, r Reader) (*Snapshot, error) {
	provinces, err := r.Provinces(ctx)
	if err != nil {
		return nil, fmt.Errorf("read provinces: %w", err)
	}
	districts, err := r.Districts(ctx)
	if err != nil {
		return nil, fmt.Errorf("read districts: %w", err)
	}
	return NewSnapshot(provinces, districts)
}

// NewSnapshot indexes provinces by the keys of both their names and
// districts by key within their province. Conflicting keys and districts
// without a province are errors.
func NewSnapshot(provinces []domain.Province, districts []domain.District) (*Snapshot, error) {
	s := &Snapshot{
		provinces:     make(map[int64]domain.Province, len(provinces)),
		provinceByKey: make(map[string]int64, 2*len(provinces)),
		districts:     make(map[int64][]domain.District, len(provinces)),
		districtByKey: make(map[int64]map[string]int64, len(provinces)),
	}
	for _, p := range provinces {
		s.provinces[p.ID] = p
		s.provinceOrder = append(s.provinceOrder, p.ID)
		for _, name := range []string{p.NameEN, p.Name} {
			if err := bind(s.provinceByKey, name, p.ID, "province"); err != nil {
				return nil, err
			}
		}
		s.districtByKey[p.ID] = make(map[string]int64)
	}
	for _, d := range districts {
		keys, ok := s.districtByKey[d.ProvinceID]
		if !ok {
			return nil, fmt.Errorf("district %d (%s) references unknown province %d", d.ID, d.NameEN, d.ProvinceID)
		}
		for _, name := range []string{d.NameEN, d.Name} {
			if err := bind(keys, name, d.ID, "district"); err != nil {
				return nil, err
			}
		}
		s.districts[d.ProvinceID] = append(s.districts[d.ProvinceID], d)
	}
	return s, nil
}

func bind(keys map[string]int64, name string, id int64, what string) error {
	key := domain.NameKey(name)
	if key == "" {
		return nil
	}
	if prev, ok := keys[key]; ok && prev != id {
		return fmt.Errorf("%s name %q is ambiguous: ids %d and %d", what, name, prev, id)
	}
	keys[key] = id
	return nil
}

// Province returns the province with id.
func (s *Snapshot) Province(id int64) (domain.Province, bool) {
	p, ok := s.provinces[id]
	return p, ok
}

// Provinces returns all provinces in reference order.
func (s *Snapshot) Provinces() []domain.Province {
	out := make([]domain.Province, 0, len(s.provinceOrder))
	for _, id := range s.provinceOrder {
		out = append(out, s.provinces[id])
	}
	return out
}

// DistrictsOf returns the districts of one province in reference order.
func (s *Snapshot) DistrictsOf(provinceID int64) []domain.District {
	return s.districts[provinceID]
}

// ProvinceID matches a province by either of its names.
func (s *Snapshot) ProvinceID(name string) (int64, bool) {
	id, ok := s.provinceByKey[domain.NameKey(name)]
	return id, ok
}

// DistrictID matches a district within one province only. A bare
// "Mueang"/"เมือง" resolves to the province's capital district.
func (s *Snapshot) DistrictID(provinceID int64, name string) (int64, bool) {
	keys := s.districtByKey[provinceID]
	key := domain.NameKey(name)
	if id, ok := keys[key]; ok {
		return id, true
	}
	if !mueangKeys[key] {
		return 0, false
	}
	p := s.provinces[provinceID]
	for _, candidate := range []string{"Mueang " + p.NameEN, "เมือง" + p.Name} {
		if id, ok := keys[domain.NameKey(candidate)]; ok {
			return id, true
		}
	}
	return 0, false
}
