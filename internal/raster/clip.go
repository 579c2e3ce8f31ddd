package raster

import (
	"fmt"
	"math"
	"slices"
	"time"

	"github.com/paulmach/orb"
)

// Stride decimates each axis before the join. Zero means 1 (no decimation).
type Stride struct {
	Lat int
	Lon int
}

func (s Stride) normalized() (Stride, error) {
	if s.Lat < 0 || s.Lon < 0 {
		return s, fmt.Errorf("stride must be >= 1, got lat=%d lon=%d", s.Lat, s.Lon)
	}
	return Stride{Lat: max(s.Lat, 1), Lon: max(s.Lon, 1)}, nil
}

// View is the part of a Grid inside a bounding box, after decimation.
type View struct {
	Lat []float64
	Lon []float64

	grid   Grid
	latIdx []int
	lonIdx []int
}

// Clip selects the grid indices whose coordinates fall inside bound,
// inclusive, and keeps every stride-th of them. No overlap yields an empty
// view, not an error.
func Clip(g Grid, bound orb.Bound, stride Stride) (*View, error) {
	stride, err := stride.normalized()
	if err != nil {
		return nil, err
	}
	v := &View{grid: g}

	for i, lat := range g.Lat() {
		if lat >= bound.Min[1] && lat <= bound.Max[1] {
			v.latIdx = append(v.latIdx, i)
		}
	}
	for j, lon := range g.Lon() {
		lon = NormalizeLon(lon)
		if lon >= bound.Min[0] && lon <= bound.Max[0] {
			v.lonIdx = append(v.lonIdx, j)
		}
	}
	if len(v.latIdx) == 0 || len(v.lonIdx) == 0 {
		v.latIdx, v.lonIdx = nil, nil
		return v, nil
	}

	v.latIdx = decimate(v.latIdx, stride.Lat)
	v.lonIdx = decimate(v.lonIdx, stride.Lon)
	for _, i := range v.latIdx {
		v.Lat = append(v.Lat, g.Lat()[i])
	}
	for _, j := range v.lonIdx {
		v.Lon = append(v.Lon, NormalizeLon(g.Lon()[j]))
	}
	return v, nil
}

func decimate(idx []int, step int) []int {
	if step <= 1 {
		return idx
	}
	out := make([]int, 0, (len(idx)+step-1)/step)
	for k := 0; k < len(idx); k += step {
		out = append(out, idx[k])
	}
	return out
}

// Empty reports whether the view selected no cells.
func (v *View) Empty() bool { return len(v.Lat) == 0 || len(v.Lon) == 0 }

// Size returns the number of cells per step.
func (v *View) Size() int { return len(v.Lat) * len(v.Lon) }

// Steps returns the number of time steps, at least one.
func (v *View) Steps() int { return max(1, len(v.grid.Times())) }

// Time returns the timestamp of step, or the zero time without a time axis.
func (v *View) Time(step int) time.Time {
	times := v.grid.Times()
	if step < len(times) {
		return times[step]
	}
	return time.Time{}
}

// Read returns the decimated values of one step, row-major over (Lat, Lon).
func (v *View) Read(step int) ([]float64, error) {
	if v.Empty() {
		return nil, nil
	}
	latStart, latEnd := slices.Min(v.latIdx), slices.Max(v.latIdx)
	lonStart, lonEnd := slices.Min(v.lonIdx), slices.Max(v.lonIdx)
	latCount, lonCount := latEnd-latStart+1, lonEnd-lonStart+1

	window, err := v.grid.ReadWindow(step, latStart, latCount, lonStart, lonCount)
	if err != nil {
		return nil, fmt.Errorf("read step %d: %w", step, err)
	}
	out := make([]float64, 0, v.Size())
	for _, i := range v.latIdx {
		row := (i - latStart) * lonCount
		for _, j := range v.lonIdx {
			out = append(out, window[row+j-lonStart])
		}
	}
	return out, nil
}

// LatSpacing returns the smallest positive distance between selected
// latitudes, or 0 with fewer than two.
func (v *View) LatSpacing() float64 { return MinSpacing(v.Lat) }

// LonSpacing is LatSpacing for longitudes.
func (v *View) LonSpacing() float64 { return MinSpacing(v.Lon) }

// MinSpacing returns the smallest positive gap between distinct values.
func MinSpacing(values []float64) float64 {
	if len(values) < 2 {
		return 0
	}
	sorted := slices.Clone(values)
	slices.Sort(sorted)
	best := math.Inf(1)
	for k := 1; k < len(sorted); k++ {
		if d := sorted[k] - sorted[k-1]; d > 0 && d < best {
			best = d
		}
	}
	if math.IsInf(best, 1) {
		return 0
	}
	return best
}
