// Package postgres persists reference tables, uploads and ingested records
// with gorm.
package postgres

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	pgdriver "gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"

	"github.com/l3boykane/Mini-Project-204721-DATA-ENGINEERING/internal/domain"
	"github.com/l3boykane/Mini-Project-204721-DATA-ENGINEERING/internal/incident"
	"github.com/l3boykane/Mini-Project-204721-DATA-ENGINEERING/internal/ingest"
	"github.com/l3boykane/Mini-Project-204721-DATA-ENGINEERING/internal/merge"
)

// incidentLockKey serializes incident check-then-write transactions.
const incidentLockKey int64 = 0x6c616e64736c6964

// insertBatchSize bounds rows per INSERT statement.
const insertBatchSize = 1000

// Open connects to dsn and tunes the pool for a single worker.
func Open(dsn string) (*gorm.DB, error) {
	lg := logger.New(
		log.New(os.Stderr, "\r\n", log.LstdFlags),
		logger.Config{
			SlowThreshold:             500 * time.Millisecond,
			LogLevel:                  logger.Warn,
			IgnoreRecordNotFoundError: true,
		},
	)
	db, err := gorm.Open(pgdriver.Open(dsn), &gorm.Config{Logger: lg})
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("get sql.DB: %w", err)
	}
	sqlDB.SetMaxOpenConns(5)
	sqlDB.SetMaxIdleConns(5)
	sqlDB.SetConnMaxLifetime(30 * time.Minute)
	return db, nil
}

// Store implements the reference, upload and record ports over one database.
type Store struct {
	db *gorm.DB
}

// New wraps an open connection.
func New(db *gorm.DB) *Store {
	return &Store{db: db}
}

// Migrate creates or updates every table and index.
func (s *Store) Migrate(ctx context.Context) error {
	err := s.db.WithContext(ctx).AutoMigrate(
		&provinceRow{}, &districtRow{}, &uploadRow{}, &rainRow{}, &riskRow{}, &incidentRow{},
	)
	if err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	return nil
}

// CheckReadiness pings the database.
func (s *Store) CheckReadiness(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// Close releases the connection pool.
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func (s *Store) Provinces(ctx context.Context) ([]domain.Province, error) {
	var rows []provinceRow
	if err := s.db.WithContext(ctx).Order("province_id").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("select provinces: %w", err)
	}
	out := make([]domain.Province, 0, len(rows))
	for _, r := range rows {
		out = append(out, domain.Province{ID: r.ID, Name: r.Name, NameEN: r.NameEN})
	}
	return out, nil
}

func (s *Store) Districts(ctx context.Context) ([]domain.District, error) {
	var rows []districtRow
	if err := s.db.WithContext(ctx).Order("district_id").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("select districts: %w", err)
	}
	out := make([]domain.District, 0, len(rows))
	for _, r := range rows {
		out = append(out, domain.District{ID: r.ID, Name: r.Name, NameEN: r.NameEN, ProvinceID: r.ProvinceID})
	}
	return out, nil
}

// EnsureReference inserts missing provinces and districts in one
// transaction. Rows are matched by normalized English name first so that
// spelling variants do not create duplicates; the unique indexes catch
// concurrent inserts.
func (s *Store) EnsureReference(ctx context.Context, entries []domain.ReferenceEntry) (provinces, districts int, err error) {
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existingP []provinceRow
		if err := tx.Find(&existingP).Error; err != nil {
			return fmt.Errorf("select provinces: %w", err)
		}
		pids := make(map[string]int64, len(existingP))
		for _, p := range existingP {
			pids[domain.NameKey(p.NameEN)] = p.ID
		}

		var existingD []districtRow
		if err := tx.Find(&existingD).Error; err != nil {
			return fmt.Errorf("select districts: %w", err)
		}
		type dkey struct {
			province int64
			name     string
		}
		dids := make(map[dkey]bool, len(existingD))
		for _, d := range existingD {
			dids[dkey{d.ProvinceID, domain.NameKey(d.NameEN)}] = true
		}

		for _, e := range entries {
			pk := domain.NameKey(e.ProvinceEN)
			pid, ok := pids[pk]
			if !ok {
				row := provinceRow{Name: e.Province, NameEN: e.ProvinceEN}
				res := tx.Clauses(clause.OnConflict{
					Columns:   []clause.Column{{Name: "province_name_en"}},
					DoNothing: true,
				}).Create(&row)
				if res.Error != nil {
					return fmt.Errorf("insert province %q: %w", e.ProvinceEN, res.Error)
				}
				if res.RowsAffected == 0 {
					if err := tx.Where("province_name_en = ?", e.ProvinceEN).First(&row).Error; err != nil {
						return fmt.Errorf("select province %q: %w", e.ProvinceEN, err)
					}
				} else {
					provinces++
				}
				pid = row.ID
				pids[pk] = pid
			}

			dk := dkey{pid, domain.NameKey(e.DistrictEN)}
			if dids[dk] {
				continue
			}
			row := districtRow{Name: e.District, NameEN: e.DistrictEN, ProvinceID: pid}
			res := tx.Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "province_id"}, {Name: "district_name_en"}},
				DoNothing: true,
			}).Create(&row)
			if res.Error != nil {
				return fmt.Errorf("insert district %q: %w", e.DistrictEN, res.Error)
			}
			districts += int(res.RowsAffected)
			dids[dk] = true
		}
		return nil
	})
	return provinces, districts, err
}

// RecordUpload inserts u into the upload log.
func (s *Store) RecordUpload(ctx context.Context, u domain.Upload) (int64, error) {
	row := toUploadRow(u)
	if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
		return 0, fmt.Errorf("insert upload: %w", err)
	}
	return row.ID, nil
}

// IngestStores exposes the store as the ingest service's ports. ref, when
// non-nil, replaces the store as the reference reader, typically a cache
// in front of it.
func (s *Store) IngestStores(ref ingest.ReferenceReader) ingest.Stores {
	if ref == nil {
		ref = s
	}
	return ingest.Stores{
		Reference:       ref,
		ReferenceWriter: s,
		Uploads:         s,
		Rain:            s.Rain(),
		Risk:            s.Risk(),
		Incidents:       s.Incidents(),
	}
}

// Rain returns the rain_points sink.
func (s *Store) Rain() merge.Sink[domain.RainRecord, domain.RainKey] {
	return &sink[domain.RainRecord, domain.RainKey, rainRow]{db: s.db, toRow: toRainRow}
}

// Risk returns the landslide_risks sink.
func (s *Store) Risk() merge.Sink[domain.RiskRecord, domain.RiskKey] {
	return &sink[domain.RiskRecord, domain.RiskKey, riskRow]{db: s.db, toRow: toRiskRow}
}

// Incidents returns the landslide_stats sink. Its transactions hold an
// advisory lock so concurrent ingestions cannot both pass the existence
// check for the same key.
func (s *Store) Incidents() merge.Sink[domain.IncidentRecord, domain.IncidentKey] {
	return &sink[domain.IncidentRecord, domain.IncidentKey, incidentRow]{
		db:       s.db,
		toRow:    toIncidentRow,
		lock:     incidentLockKey,
		existing: existingIncidents,
	}
}

// sink writes records of type T as gorm models M.
type sink[T any, K comparable, M any] struct {
	db       *gorm.DB
	toRow    func(T) M
	lock     int64
	existing func(tx *gorm.DB, batch []T) (map[K]struct{}, error)
}

func (s *sink[T, K, M]) Atomically(ctx context.Context, fn func(ctx context.Context, tx merge.Store[T, K]) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if s.lock != 0 {
			if err := tx.Exec("SELECT pg_advisory_xact_lock(?)", s.lock).Error; err != nil {
				return fmt.Errorf("acquire advisory lock: %w", err)
			}
		}
		return fn(ctx, &sinkTx[T, K, M]{sink: s, tx: tx})
	})
}

type sinkTx[T any, K comparable, M any] struct {
	sink *sink[T, K, M]
	tx   *gorm.DB
}

func (t *sinkTx[T, K, M]) ExistingKeys(_ context.Context, batch []T) (map[K]struct{}, error) {
	if t.sink.existing == nil {
		return map[K]struct{}{}, nil
	}
	return t.sink.existing(t.tx, batch)
}

func (t *sinkTx[T, K, M]) WriteBatch(_ context.Context, rows []T) error {
	if len(rows) == 0 {
		return nil
	}
	models := make([]M, 0, len(rows))
	for _, r := range rows {
		models = append(models, t.sink.toRow(r))
	}
	return t.tx.CreateInBatches(models, insertBatchSize).Error
}

// existingIncidents loads the stored keys inside the batch's date range.
func existingIncidents(tx *gorm.DB, batch []domain.IncidentRecord) (map[domain.IncidentKey]struct{}, error) {
	out := make(map[domain.IncidentKey]struct{})
	if len(batch) == 0 {
		return out, nil
	}
	from, to := incident.DateRange(batch)
	var rows []incidentRow
	err := tx.Select("disaster_date", "province_id", "district_id").
		Where("disaster_date BETWEEN ? AND ?", from, to).
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("select existing incident keys: %w", err)
	}
	for _, r := range rows {
		out[r.key()] = struct{}{}
	}
	return out, nil
}
