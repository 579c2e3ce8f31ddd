// Package files wires the file adapters into the ingest service's source
// ports, choosing a reader by file extension.
package files

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/l3boykane/Mini-Project-204721-DATA-ENGINEERING/internal/adapter/dbf"
	"github.com/l3boykane/Mini-Project-204721-DATA-ENGINEERING/internal/adapter/geojson"
	"github.com/l3boykane/Mini-Project-204721-DATA-ENGINEERING/internal/adapter/netcdf"
	"github.com/l3boykane/Mini-Project-204721-DATA-ENGINEERING/internal/adapter/shapefile"
	"github.com/l3boykane/Mini-Project-204721-DATA-ENGINEERING/internal/adapter/spreadsheet"
	"github.com/l3boykane/Mini-Project-204721-DATA-ENGINEERING/internal/boundary"
	"github.com/l3boykane/Mini-Project-204721-DATA-ENGINEERING/internal/domain"
	"github.com/l3boykane/Mini-Project-204721-DATA-ENGINEERING/internal/ingest"
)

// Sources returns the on-disk readers. dbfEncoding is passed to the risk
// table reader.
func Sources(dbfEncoding string, logger *slog.Logger) ingest.Sources {
	return ingest.Sources{
		Boundary: func(path string) (*boundary.Collection, error) {
			return LoadBoundary(path, logger)
		},
		Raster: func(path, variable string) (ingest.ClosableGrid, error) {
			if !isNetCDF(path) {
				return nil, fmt.Errorf("%w: %s (want .nc)", domain.ErrUnsupportedFile, filepath.Base(path))
			}
			g, err := netcdf.Open(path, variable)
			if err != nil {
				return nil, err
			}
			return g, nil
		},
		Risk: func(path string) (*domain.Table, error) {
			return dbf.Load(path, dbfEncoding)
		},
		Incidents: spreadsheet.Load,
	}
}

// LoadBoundary reads a shapefile or a GeoJSON collection.
func LoadBoundary(path string, logger *slog.Logger) (*boundary.Collection, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".shp":
		return shapefile.Load(path, logger)
	case ".geojson", ".json":
		return geojson.Load(path)
	}
	return nil, fmt.Errorf("%w: %s (want .shp or .geojson)", domain.ErrUnsupportedFile, filepath.Base(path))
}

func isNetCDF(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".nc", ".nc4", ".netcdf":
		return true
	}
	return false
}
