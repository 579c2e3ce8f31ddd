package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/l3boykane/Mini-Project-204721-DATA-ENGINEERING/internal/domain"
	"github.com/l3boykane/Mini-Project-204721-DATA-ENGINEERING/internal/merge"
)

func incidentAt(day, district int64, n int) domain.IncidentRecord {
	d := time.Date(2024, 5, int(day), 0, 0, 0, 0, time.UTC)
	return domain.IncidentRecord{DisasterDate: d, Year: 2024, ProvinceID: 1, DistrictID: district, CountOfDisasters: n}
}

func TestTable_CrossBatchResubmission(t *testing.T) {
	s := New()
	batch := []domain.IncidentRecord{incidentAt(3, 10, 2), incidentAt(4, 11, 1)}
	opts := merge.Options{Scope: merge.CrossBatch}

	first, err := merge.MergeAndWrite(context.Background(), batch, domain.IncidentRecord.Key, s.Incidents, opts)
	require.NoError(t, err)
	assert.Equal(t, 2, first.Written)

	second, err := merge.MergeAndWrite(context.Background(), batch, domain.IncidentRecord.Key, s.Incidents, opts)
	require.NoError(t, err)
	assert.Equal(t, 0, second.Written)
	assert.Equal(t, 2, second.AlreadyPersisted)
	assert.Equal(t, 2, s.Incidents.Len())
}

func TestTable_RollbackOnError(t *testing.T) {
	s := New()
	boom := errors.New("boom")
	err := s.Incidents.Atomically(context.Background(), func(ctx context.Context, tx merge.Store[domain.IncidentRecord, domain.IncidentKey]) error {
		require.NoError(t, tx.WriteBatch(ctx, []domain.IncidentRecord{incidentAt(3, 10, 1)}))
		return boom
	})
	require.ErrorIs(t, err, boom)
	assert.Zero(t, s.Incidents.Len())
}

func TestStore_EnsureReference(t *testing.T) {
	s := New()
	s.Seed(
		[]domain.Province{{ID: 1, Name: "เชียงใหม่", NameEN: "Chiang Mai"}},
		[]domain.District{{ID: 10, Name: "แม่ริม", NameEN: "Mae Rim", ProvinceID: 1}},
	)
	entries := []domain.ReferenceEntry{
		{Province: "เชียงใหม่", ProvinceEN: "Chiang Mai", District: "แม่ริม", DistrictEN: "Mae Rim"},
		{Province: "เชียงใหม่", ProvinceEN: "Chiang Mai", District: "สันทราย", DistrictEN: "San Sai"},
		{Province: "ลำพูน", ProvinceEN: "Lamphun", District: "เมืองลำพูน", DistrictEN: "Mueang Lamphun"},
	}

	provinces, districts, err := s.EnsureReference(context.Background(), entries)
	require.NoError(t, err)
	assert.Equal(t, 1, provinces)
	assert.Equal(t, 2, districts)

	again, dAgain, err := s.EnsureReference(context.Background(), entries)
	require.NoError(t, err)
	assert.Zero(t, again)
	assert.Zero(t, dAgain)

	all, err := s.Districts(context.Background())
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, int64(11), all[1].ID)
	assert.Equal(t, int64(2), all[2].ProvinceID)
}

func TestStore_RecordUpload(t *testing.T) {
	s := New()
	id1, err := s.RecordUpload(context.Background(), domain.Upload{Kind: domain.KindRain, Filename: "a.nc"})
	require.NoError(t, err)
	id2, err := s.RecordUpload(context.Background(), domain.Upload{Kind: domain.KindRisk, Filename: "b.dbf"})
	require.NoError(t, err)
	assert.Equal(t, int64(1), id1)
	assert.Equal(t, int64(2), id2)
	assert.Equal(t, "b.dbf", s.Uploads()[1].Filename)
}
