package raster

import (
	"math"
	"testing"
	"time"

	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newGrid builds a grid whose value at (i, j) is i*100 + j + step*10000.
func newGrid(lat, lon []float64, steps int) *MemoryGrid {
	g := &MemoryGrid{LatAxis: lat, LonAxis: lon}
	for s := 0; s < steps; s++ {
		slab := make([]float64, len(lat)*len(lon))
		for i := range lat {
			for j := range lon {
				slab[i*len(lon)+j] = float64(i*100 + j + s*10000)
			}
		}
		g.Values = append(g.Values, slab)
		g.TimeAxis = append(g.TimeAxis, time.Date(2024, 1, 1+s, 0, 0, 0, 0, time.UTC))
	}
	return g
}

func axis(start, step float64, n int) []float64 {
	out := make([]float64, n)
	for k := range out {
		out[k] = start + float64(k)*step
	}
	return out
}

var region = orb.Bound{Min: orb.Point{98, 17}, Max: orb.Point{99, 18}}

func TestClip_AscendingAxes(t *testing.T) {
	g := newGrid(axis(16, 0.5, 6), axis(97, 0.5, 6), 1) // lat 16..18.5, lon 97..99.5
	v, err := Clip(g, region, Stride{})
	require.NoError(t, err)

	assert.Equal(t, []float64{17, 17.5, 18}, v.Lat)
	assert.Equal(t, []float64{98, 98.5, 99}, v.Lon)
	assert.Equal(t, 1, v.Steps())

	vals, err := v.Read(0)
	require.NoError(t, err)
	assert.Equal(t, []float64{202, 203, 204, 302, 303, 304, 402, 403, 404}, vals)
}

func TestClip_DescendingLatitude(t *testing.T) {
	g := newGrid(axis(18.5, -0.5, 6), axis(97, 0.5, 6), 1) // lat 18.5..16
	v, err := Clip(g, region, Stride{})
	require.NoError(t, err)

	assert.Equal(t, []float64{18, 17.5, 17}, v.Lat)
	vals, err := v.Read(0)
	require.NoError(t, err)
	assert.Equal(t, []float64{102, 103, 104, 202, 203, 204, 302, 303, 304}, vals)
}

func TestClip_Stride(t *testing.T) {
	g := newGrid(axis(16, 0.25, 12), axis(97, 0.25, 12), 1)
	v, err := Clip(g, region, Stride{Lat: 2, Lon: 3})
	require.NoError(t, err)

	assert.Equal(t, []float64{17, 17.5, 18}, v.Lat)
	assert.Equal(t, []float64{98, 98.75}, v.Lon)
	assert.InDelta(t, 0.5, v.LatSpacing(), 1e-12)
	assert.InDelta(t, 0.75, v.LonSpacing(), 1e-12)
}

func TestClip_NegativeStride(t *testing.T) {
	g := newGrid(axis(16, 1, 3), axis(97, 1, 3), 1)
	_, err := Clip(g, region, Stride{Lat: -1})
	assert.Error(t, err)
}

func TestClip_NoOverlapIsEmpty(t *testing.T) {
	g := newGrid(axis(40, 1, 5), axis(10, 1, 5), 2)
	v, err := Clip(g, region, Stride{})
	require.NoError(t, err)

	assert.True(t, v.Empty())
	assert.Zero(t, v.Size())
	vals, err := v.Read(0)
	require.NoError(t, err)
	assert.Empty(t, vals)
}

func TestClip_PartialAxisOverlapIsEmpty(t *testing.T) {
	// latitudes overlap, longitudes do not
	g := newGrid(axis(17, 0.5, 3), axis(120, 1, 3), 1)
	v, err := Clip(g, region, Stride{})
	require.NoError(t, err)
	assert.True(t, v.Empty())
}

func TestClip_Longitude360(t *testing.T) {
	// 0..359 degrees east; 98 and 99 survive after normalization
	g := newGrid(axis(17, 1, 2), axis(0, 1, 360), 1)
	v, err := Clip(g, region, Stride{})
	require.NoError(t, err)
	assert.Equal(t, []float64{98, 99}, v.Lon)

	g = newGrid(axis(17, 1, 2), axis(180, 1, 180), 1) // 180..359 -> -180..-1
	v, err = Clip(g, orb.Bound{Min: orb.Point{-90, 17}, Max: orb.Point{-89, 18}}, Stride{})
	require.NoError(t, err)
	assert.Equal(t, []float64{-90, -89}, v.Lon)
}

func TestClip_TimeSteps(t *testing.T) {
	g := newGrid(axis(17, 1, 2), axis(98, 1, 2), 3)
	v, err := Clip(g, region, Stride{})
	require.NoError(t, err)

	assert.Equal(t, 3, v.Steps())
	assert.Equal(t, time.Date(2024, 1, 3, 0, 0, 0, 0, time.UTC), v.Time(2))
	vals, err := v.Read(2)
	require.NoError(t, err)
	assert.Equal(t, []float64{20000, 20001, 20100, 20101}, vals)
}

func TestClip_NoTimeAxis(t *testing.T) {
	g := newGrid(axis(17, 1, 2), axis(98, 1, 2), 1)
	g.TimeAxis = nil
	v, err := Clip(g, region, Stride{})
	require.NoError(t, err)
	assert.Equal(t, 1, v.Steps())
	assert.True(t, v.Time(0).IsZero())
}

func TestNormalizeLon(t *testing.T) {
	assert.Equal(t, 100.0, NormalizeLon(100))
	assert.Equal(t, 180.0, NormalizeLon(180))
	assert.Equal(t, -170.0, NormalizeLon(190))
	assert.Equal(t, 0.0, NormalizeLon(360))
	assert.Equal(t, -100.0, NormalizeLon(-100))
}

func TestMinSpacing(t *testing.T) {
	assert.Zero(t, MinSpacing(nil))
	assert.Zero(t, MinSpacing([]float64{5}))
	assert.Zero(t, MinSpacing([]float64{5, 5}))
	assert.InDelta(t, 0.05, MinSpacing([]float64{18.1, 18.0, 18.05, 18.2}), 1e-9)
	assert.False(t, math.IsInf(MinSpacing([]float64{1, 1, 1}), 0))
}
