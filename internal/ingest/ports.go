package ingest

import (
	"context"

	"github.com/l3boykane/Mini-Project-204721-DATA-ENGINEERING/internal/boundary"
	"github.com/l3boykane/Mini-Project-204721-DATA-ENGINEERING/internal/domain"
	"github.com/l3boykane/Mini-Project-204721-DATA-ENGINEERING/internal/incident"
	"github.com/l3boykane/Mini-Project-204721-DATA-ENGINEERING/internal/merge"
	"github.com/l3boykane/Mini-Project-204721-DATA-ENGINEERING/internal/raster"
	"github.com/l3boykane/Mini-Project-204721-DATA-ENGINEERING/internal/reference"
)

// ReferenceReader reads the province and district tables.
type ReferenceReader = reference.Reader

// ReferenceWriter inserts reference rows that do not exist yet.
type ReferenceWriter interface {
	// EnsureReference inserts missing provinces and districts and reports
	// how many of each it created.
	EnsureReference(ctx context.Context, entries []domain.ReferenceEntry) (provinces, districts int, err error)
}

// UploadRecorder logs an ingested source file and returns its id.
type UploadRecorder interface {
	RecordUpload(ctx context.Context, u domain.Upload) (int64, error)
}

// Invalidator is implemented by reference readers that cache.
type Invalidator interface {
	Invalidate()
}

// Stores are the persistence ports of the service.
type Stores struct {
	Reference       ReferenceReader
	ReferenceWriter ReferenceWriter
	Uploads         UploadRecorder
	Rain            merge.Sink[domain.RainRecord, domain.RainKey]
	Risk            merge.Sink[domain.RiskRecord, domain.RiskKey]
	Incidents       merge.Sink[domain.IncidentRecord, domain.IncidentKey]
}

// ClosableGrid is a raster that holds an open file.
type ClosableGrid interface {
	raster.Grid
	Close() error
}

// Sources are the file readers of the service, one per source family.
type Sources struct {
	Boundary  func(path string) (*boundary.Collection, error)
	Raster    func(path, variable string) (ClosableGrid, error)
	Risk      func(path string) (*domain.Table, error)
	Incidents func(path string) ([]incident.Sheet, error)
}
