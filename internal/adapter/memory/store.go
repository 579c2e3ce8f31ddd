// Package memory is an in-process implementation of the storage ports, used
// for dry runs and tests.
package memory

import (
	"context"
	"slices"
	"sync"

	"github.com/l3boykane/Mini-Project-204721-DATA-ENGINEERING/internal/domain"
	"github.com/l3boykane/Mini-Project-204721-DATA-ENGINEERING/internal/merge"
)

// Table holds the rows of one record type. Transactions are serialized and
// only their committed writes become visible.
type Table[T any, K comparable] struct {
	key func(T) K

	mu   sync.Mutex
	rows []T
}

// NewTable creates an empty table keyed by key.
func NewTable[T any, K comparable](key func(T) K) *Table[T, K] {
	return &Table[T, K]{key: key}
}

// Atomically implements merge.Sink.
func (t *Table[T, K]) Atomically(ctx context.Context, fn func(ctx context.Context, tx merge.Store[T, K]) error) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	tx := &tableTx[T, K]{table: t}
	if err := fn(ctx, tx); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	t.rows = append(t.rows, tx.staged...)
	return nil
}

// Rows returns a copy of the committed rows in insertion order.
func (t *Table[T, K]) Rows() []T {
	t.mu.Lock()
	defer t.mu.Unlock()
	return slices.Clone(t.rows)
}

// Len returns the number of committed rows.
func (t *Table[T, K]) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.rows)
}

type tableTx[T any, K comparable] struct {
	table  *Table[T, K]
	staged []T
}

func (tx *tableTx[T, K]) ExistingKeys(_ context.Context, batch []T) (map[K]struct{}, error) {
	want := make(map[K]struct{}, len(batch))
	for _, r := range batch {
		want[tx.table.key(r)] = struct{}{}
	}
	out := make(map[K]struct{})
	for _, r := range tx.table.rows {
		if k := tx.table.key(r); hasKey(want, k) {
			out[k] = struct{}{}
		}
	}
	return out, nil
}

func (tx *tableTx[T, K]) WriteBatch(ctx context.Context, rows []T) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	tx.staged = append(tx.staged, rows...)
	return nil
}

func hasKey[K comparable](m map[K]struct{}, k K) bool {
	_, ok := m[k]
	return ok
}

type districtKey struct {
	province int64
	name     string
}

// Store is the full set of in-memory tables.
type Store struct {
	Rain      *Table[domain.RainRecord, domain.RainKey]
	Risk      *Table[domain.RiskRecord, domain.RiskKey]
	Incidents *Table[domain.IncidentRecord, domain.IncidentKey]

	mu        sync.Mutex
	provinces []domain.Province
	districts []domain.District
	uploads   []domain.Upload
}

// New creates an empty store.
func New() *Store {
	return &Store{
		Rain:      NewTable(domain.RainRecord.Key),
		Risk:      NewTable(domain.RiskRecord.Key),
		Incidents: NewTable(domain.IncidentRecord.Key),
	}
}

// Seed replaces the reference tables.
func (s *Store) Seed(provinces []domain.Province, districts []domain.District) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.provinces = slices.Clone(provinces)
	s.districts = slices.Clone(districts)
}

func (s *Store) Provinces(_ context.Context) ([]domain.Province, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.provinces), nil
}

func (s *Store) Districts(_ context.Context) ([]domain.District, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.districts), nil
}

// EnsureReference inserts the provinces and districts of entries that do
// not exist yet, matching existing rows by English name key.
func (s *Store) EnsureReference(_ context.Context, entries []domain.ReferenceEntry) (int, int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	provinceIDs := make(map[string]int64, len(s.provinces))
	var nextProvince int64
	for _, p := range s.provinces {
		provinceIDs[domain.NameKey(p.NameEN)] = p.ID
		nextProvince = max(nextProvince, p.ID)
	}
	districtIDs := make(map[districtKey]int64, len(s.districts))
	var nextDistrict int64
	for _, d := range s.districts {
		districtIDs[districtKey{d.ProvinceID, domain.NameKey(d.NameEN)}] = d.ID
		nextDistrict = max(nextDistrict, d.ID)
	}

	var provinces, districts int
	for _, e := range entries {
		pk := domain.NameKey(e.ProvinceEN)
		pid, ok := provinceIDs[pk]
		if !ok {
			nextProvince++
			pid = nextProvince
			provinceIDs[pk] = pid
			s.provinces = append(s.provinces, domain.Province{ID: pid, Name: e.Province, NameEN: e.ProvinceEN})
			provinces++
		}
		dk := districtKey{pid, domain.NameKey(e.DistrictEN)}
		if _, ok := districtIDs[dk]; ok {
			continue
		}
		nextDistrict++
		districtIDs[dk] = nextDistrict
		s.districts = append(s.districts, domain.District{ID: nextDistrict, Name: e.District, NameEN: e.DistrictEN, ProvinceID: pid})
		districts++
	}
	return provinces, districts, nil
}

// RecordUpload stores u and returns its new id.
func (s *Store) RecordUpload(_ context.Context, u domain.Upload) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u.ID = int64(len(s.uploads) + 1)
	s.uploads = append(s.uploads, u)
	return u.ID, nil
}

// Uploads returns the recorded uploads.
func (s *Store) Uploads() []domain.Upload {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.uploads)
}
