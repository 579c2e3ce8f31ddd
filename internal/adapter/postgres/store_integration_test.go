//go:build integration

package postgres

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"

	"github.com/l3boykane/Mini-Project-204721-DATA-ENGINEERING/internal/domain"
	"github.com/l3boykane/Mini-Project-204721-DATA-ENGINEERING/internal/merge"
)

func startStore(ctx context.Context, t *testing.T) *Store {
	t.Helper()
	ctr, err := tcpostgres.Run(ctx, "postgres:16-alpine",
		tcpostgres.WithDatabase("geo"),
		tcpostgres.WithUsername("geo"),
		tcpostgres.WithPassword("geo"),
		tcpostgres.BasicWaitStrategies(),
	)
	require.NoError(t, err, "start postgres container")
	t.Cleanup(func() { _ = ctr.Terminate(context.Background()) })

	dsn, err := ctr.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	db, err := Open(dsn)
	require.NoError(t, err)
	s := New(db)
	t.Cleanup(func() { _ = s.Close() })
	require.NoError(t, s.Migrate(ctx))
	return s
}

func TestStore_Postgres(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()
	s := startStore(ctx, t)

	require.NoError(t, s.CheckReadiness(ctx))

	entries := []domain.ReferenceEntry{
		{Province: "เชียงใหม่", ProvinceEN: "Chiang Mai", District: "แม่ริม", DistrictEN: "Mae Rim"},
		{Province: "เชียงใหม่", ProvinceEN: "Chiang Mai", District: "สันทราย", DistrictEN: "San Sai"},
	}
	p, d, err := s.EnsureReference(ctx, entries)
	require.NoError(t, err)
	assert.Equal(t, 1, p)
	assert.Equal(t, 2, d)

	p, d, err = s.EnsureReference(ctx, entries)
	require.NoError(t, err)
	assert.Zero(t, p)
	assert.Zero(t, d)

	provinces, err := s.Provinces(ctx)
	require.NoError(t, err)
	require.Len(t, provinces, 1)
	districts, err := s.Districts(ctx)
	require.NoError(t, err)
	require.Len(t, districts, 2)

	t.Run("incidents resubmission", func(t *testing.T) {
		day := time.Date(2024, 5, 3, 0, 0, 0, 0, time.UTC)
		batch := []domain.IncidentRecord{{
			DisasterDate: day, Year: 2024, ProvinceID: provinces[0].ID, DistrictID: districts[0].ID, CountOfDisasters: 2,
		}}
		opts := merge.Options{Scope: merge.CrossBatch}

		first, err := merge.MergeAndWrite(ctx, batch, domain.IncidentRecord.Key, s.Incidents(), opts)
		require.NoError(t, err)
		assert.Equal(t, 1, first.Written)

		second, err := merge.MergeAndWrite(ctx, batch, domain.IncidentRecord.Key, s.Incidents(), opts)
		require.NoError(t, err)
		assert.Zero(t, second.Written)
		assert.Equal(t, 1, second.AlreadyPersisted)
	})

	t.Run("concurrent incident writers", func(t *testing.T) {
		day := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
		batch := []domain.IncidentRecord{{
			DisasterDate: day, Year: 2024, ProvinceID: provinces[0].ID, DistrictID: districts[1].ID, CountOfDisasters: 1,
		}}
		var (
			wg      sync.WaitGroup
			mu      sync.Mutex
			written int
		)
		for range 4 {
			wg.Add(1)
			go func() {
				defer wg.Done()
				res, err := merge.MergeAndWrite(ctx, batch, domain.IncidentRecord.Key, s.Incidents(), merge.Options{Scope: merge.CrossBatch})
				assert.NoError(t, err)
				mu.Lock()
				written += res.Written
				mu.Unlock()
			}()
		}
		wg.Wait()
		assert.Equal(t, 1, written)
	})

	t.Run("rain in chunks", func(t *testing.T) {
		id, err := s.RecordUpload(ctx, domain.Upload{
			Kind:      domain.KindRain,
			Filename:  "rain.nc",
			CreatedAt: time.Now().UTC(),
			Meta:      map[string]string{"variable": "precip"},
		})
		require.NoError(t, err)

		var stored uploadRow
		require.NoError(t, s.db.WithContext(ctx).First(&stored, id).Error)
		assert.Equal(t, "precip", stored.Meta["variable"])

		var rows []domain.RainRecord
		for i := range 5 {
			day := time.Date(2024, 1, 1+i, 0, 0, 0, 0, time.UTC)
			rows = append(rows, domain.RainRecord{
				UploadID: id, Date: day, Year: 2024, ProvinceID: provinces[0].ID, DistrictID: districts[0].ID, WeightedMean: float64(i),
			})
		}
		res, err := merge.MergeAndWrite(ctx, rows, domain.RainRecord.Key, s.Rain(), merge.Options{ChunkSize: 2})
		require.NoError(t, err)
		assert.Equal(t, 5, res.Written)
		assert.Equal(t, 3, res.Chunks)

		var count int64
		require.NoError(t, s.db.Model(&rainRow{}).Where("upload_id = ?", id).Count(&count).Error)
		assert.Equal(t, int64(5), count)
	})
}
