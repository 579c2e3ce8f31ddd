// Package raster clips gridded time series to a region of interest.
package raster

import (
	"fmt"
	"math"
	"time"
)

// Grid is a read-only gridded variable over (time, lat, lon). Lat and Lon
// are monotonic in either direction. Times is empty when the source has no
// time axis; the grid is then a single implicit step.
type Grid interface {
	Lat() []float64
	Lon() []float64
	Times() []time.Time
	// ReadWindow returns latCount*lonCount values for one step in row-major
	// (lat, lon) order. Missing and fill values are NaN.
	ReadWindow(step, latStart, latCount, lonStart, lonCount int) ([]float64, error)
}

// MemoryGrid is a Grid held in memory.
type MemoryGrid struct {
	LatAxis  []float64
	LonAxis  []float64
	TimeAxis []time.Time
	// Values holds one row-major (lat, lon) slab per step.
	Values [][]float64
}

func (g *MemoryGrid) Lat() []float64     { return g.LatAxis }
func (g *MemoryGrid) Lon() []float64     { return g.LonAxis }
func (g *MemoryGrid) Times() []time.Time { return g.TimeAxis }

func (g *MemoryGrid) ReadWindow(step, latStart, latCount, lonStart, lonCount int) ([]float64, error) {
	if step < 0 || step >= len(g.Values) {
		return nil, fmt.Errorf("step %d out of range [0, %d)", step, len(g.Values))
	}
	nLat, nLon := len(g.LatAxis), len(g.LonAxis)
	if latStart < 0 || lonStart < 0 || latStart+latCount > nLat || lonStart+lonCount > nLon {
		return nil, fmt.Errorf("window [%d+%d, %d+%d] outside grid %dx%d", latStart, latCount, lonStart, lonCount, nLat, nLon)
	}
	slab := g.Values[step]
	if len(slab) != nLat*nLon {
		return nil, fmt.Errorf("step %d has %d values, want %d", step, len(slab), nLat*nLon)
	}
	out := make([]float64, 0, latCount*lonCount)
	for i := latStart; i < latStart+latCount; i++ {
		out = append(out, slab[i*nLon+lonStart:i*nLon+lonStart+lonCount]...)
	}
	return out, nil
}

// NormalizeLon maps a longitude in [0, 360) convention to [-180, 180].
func NormalizeLon(lon float64) float64 {
	if lon > 180 {
		return lon - 360*math.Ceil((lon-180)/360)
	}
	return lon
}
