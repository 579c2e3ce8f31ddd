package spatial

import (
	"context"
	"io"
	"log/slog"
	"math"
	"testing"
	"time"

	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/l3boykane/Mini-Project-204721-DATA-ENGINEERING/internal/boundary"
	"github.com/l3boykane/Mini-Project-204721-DATA-ENGINEERING/internal/raster"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func rect(minX, minY, maxX, maxY float64) orb.Polygon {
	return orb.Polygon{orb.Ring{{minX, minY}, {maxX, minY}, {maxX, maxY}, {minX, maxY}, {minX, minY}}}
}

func buildIndex(t *testing.T, features ...boundary.Feature) *boundary.Index {
	t.Helper()
	ix, err := boundary.Build(&boundary.Collection{
		Fields:   []string{"NAME_1", "NAME_2"},
		Features: features,
	}, boundary.Options{})
	require.NoError(t, err)
	return ix
}

func feature(province, district string, g orb.Geometry) boundary.Feature {
	return boundary.Feature{Attributes: map[string]string{"NAME_1": province, "NAME_2": district}, Geometry: g}
}

func TestJoin_SinglePoint(t *testing.T) {
	ix := buildIndex(t, feature("P", "A", rect(98, 18, 99, 19)))
	grid := &raster.MemoryGrid{
		LatAxis:  []float64{18.5},
		LonAxis:  []float64{98.5},
		TimeAxis: []time.Time{time.Date(2024, 5, 3, 0, 0, 0, 0, time.UTC)},
		Values:   [][]float64{{10}},
	}
	view, err := raster.Clip(grid, ix.Bound(), raster.Stride{})
	require.NoError(t, err)

	for _, strategy := range []Strategy{Tiled, Bulk} {
		t.Run(string(strategy), func(t *testing.T) {
			rows, stats, err := Join(context.Background(), ix, view, Options{Strategy: strategy}, discardLogger())
			require.NoError(t, err)
			require.Len(t, rows, 1)

			cos := math.Cos(18.5 * math.Pi / 180)
			want := 10 * (111.32 * 0.05) * (111.32 * 0.05) * cos * 1000 / 1e6

			assert.Equal(t, "P", rows[0].Province)
			assert.Equal(t, "A", rows[0].District)
			assert.InDelta(t, 10.0, rows[0].WeightedMean, 1e-12)
			assert.InDelta(t, want, rows[0].AreaWeightedSum, 1e-12)
			assert.Equal(t, 1, rows[0].Points)
			assert.Equal(t, time.Date(2024, 5, 3, 0, 0, 0, 0, time.UTC), rows[0].Time)
			assert.Equal(t, 1, stats.Matched)
		})
	}
}

// checkerGrid covers two districts side by side plus cells outside both,
// with NaN cells inside each district and one outside, over two time
// steps.
func checkerGrid() *raster.MemoryGrid {
	lat := []float64{18.9, 18.7, 18.5, 18.3, 18.1} // descending
	lon := []float64{97.9, 98.1, 98.3, 98.5, 98.7, 98.9, 99.1, 99.3}
	g := &raster.MemoryGrid{
		LatAxis:  lat,
		LonAxis:  lon,
		TimeAxis: []time.Time{time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)},
	}
	for s := 0; s < 2; s++ {
		slab := make([]float64, len(lat)*len(lon))
		for i := range lat {
			for j := range lon {
				slab[i*len(lon)+j] = float64((i+1)*(j+2)) + float64(s)
			}
		}
		slab[0] = math.NaN()
		slab[1*len(lon)+2] = math.NaN()
		slab[3*len(lon)+6] = math.NaN()
		g.Values = append(g.Values, slab)
	}
	return g
}

func TestJoin_StrategiesAgree(t *testing.T) {
	ix := buildIndex(t,
		feature("Chiang Mai", "Mae Rim", rect(98, 18, 98.6, 19)),
		feature("Chiang Mai", "San Sai", rect(98.6, 18, 99.2, 19)),
	)
	view, err := raster.Clip(checkerGrid(), orb.Bound{Min: orb.Point{97, 17}, Max: orb.Point{100, 20}}, raster.Stride{})
	require.NoError(t, err)

	bulk, bulkStats, err := Join(context.Background(), ix, view, Options{Strategy: Bulk}, discardLogger())
	require.NoError(t, err)

	for _, opts := range []Options{
		{Strategy: Tiled},
		{Strategy: Tiled, TileHeight: 2, TileWidth: 3},
		{Strategy: Tiled, TileHeight: 1, TileWidth: 1, Workers: 4},
	} {
		tiled, tiledStats, err := Join(context.Background(), ix, view, opts, discardLogger())
		require.NoError(t, err)
		require.Len(t, tiled, len(bulk))
		for k := range bulk {
			assert.Equal(t, bulk[k].Province, tiled[k].Province)
			assert.Equal(t, bulk[k].District, tiled[k].District)
			assert.Equal(t, bulk[k].Time, tiled[k].Time)
			assert.Equal(t, bulk[k].Points, tiled[k].Points)
			assert.InDelta(t, bulk[k].WeightedMean, tiled[k].WeightedMean, 1e-9)
			assert.InDelta(t, bulk[k].AreaWeightedSum, tiled[k].AreaWeightedSum, 1e-9)
		}
		assert.Equal(t, bulkStats.Points, tiledStats.Points)
		assert.Equal(t, bulkStats.Matched, tiledStats.Matched)
		assert.Equal(t, bulkStats.Missing, tiledStats.Missing)
		assert.Equal(t, bulkStats.Outside(), tiledStats.Outside())
	}

	require.Len(t, bulk, 4)
	assert.Equal(t, "Mae Rim", bulk[0].District)
	assert.Equal(t, "San Sai", bulk[1].District)
	// 5 rows x 3 columns per district, one NaN in each
	assert.Equal(t, 14, bulk[0].Points)
	assert.Equal(t, 14, bulk[1].Points)
	assert.Equal(t, 80, bulkStats.Points)
	assert.Equal(t, 6, bulkStats.Missing)
	assert.Equal(t, 18, bulkStats.Outside())
}

func TestJoin_SkipsDisjointTiles(t *testing.T) {
	ix := buildIndex(t, feature("Chiang Mai", "Mae Rim", rect(98, 18, 98.6, 19)))
	view, err := raster.Clip(checkerGrid(), orb.Bound{Min: orb.Point{97, 17}, Max: orb.Point{100, 20}}, raster.Stride{})
	require.NoError(t, err)

	j := NewJoiner(ix, Options{TileHeight: 5, TileWidth: 4}, discardLogger())
	rows, stats, err := j.Step(context.Background(), view, 0)
	require.NoError(t, err)
	assert.Len(t, rows, 1)
	assert.Equal(t, 2, stats.Tiles)
	assert.Equal(t, 1, stats.TilesSkipped)
}

func TestJoin_EmptyView(t *testing.T) {
	ix := buildIndex(t, feature("P", "A", rect(98, 18, 99, 19)))
	grid := &raster.MemoryGrid{LatAxis: []float64{40}, LonAxis: []float64{10}, Values: [][]float64{{1}}}
	view, err := raster.Clip(grid, ix.Bound(), raster.Stride{})
	require.NoError(t, err)

	rows, stats, err := Join(context.Background(), ix, view, Options{}, discardLogger())
	require.NoError(t, err)
	assert.Empty(t, rows)
	assert.Zero(t, stats.Points)
}

func TestJoin_Cancelled(t *testing.T) {
	ix := buildIndex(t, feature("P", "A", rect(98, 18, 99, 19)))
	view, err := raster.Clip(checkerGrid(), ix.Bound(), raster.Stride{})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, _, err = Join(ctx, ix, view, Options{Strategy: Bulk}, discardLogger())
	assert.ErrorIs(t, err, context.Canceled)
}

func TestJoin_SpacingFromSurvivingPoints(t *testing.T) {
	ix := buildIndex(t, feature("P", "A", rect(98, 18, 99, 19)))
	grid := &raster.MemoryGrid{
		LatAxis: []float64{18.2, 18.3},
		LonAxis: []float64{98.1, 98.3, 98.4},
		Values:  [][]float64{{1, 1, 1, 1, 1, 1}},
	}
	view, err := raster.Clip(grid, ix.Bound(), raster.Stride{})
	require.NoError(t, err)

	rows, _, err := Join(context.Background(), ix, view, Options{}, discardLogger())
	require.NoError(t, err)
	require.Len(t, rows, 1)

	var cosSum float64
	for _, lat := range grid.LatAxis {
		cosSum += 3 * math.Cos(lat*math.Pi/180)
	}
	want := cosSum * (111.32 * 0.1) * (111.32 * 0.1) * 1000 / 1e6
	assert.InDelta(t, want, rows[0].AreaWeightedSum, 1e-9)
}

func TestParseStrategy(t *testing.T) {
	s, err := ParseStrategy("BULK")
	require.NoError(t, err)
	assert.Equal(t, Bulk, s)
	_, err = ParseStrategy("grid")
	assert.Error(t, err)
}

func TestJoin_HoleBoundaryIsCovered(t *testing.T) {
	donut := rect(0, 0, 10, 10)
	donut = append(donut, orb.Ring{{4, 4}, {4, 6}, {6, 6}, {6, 4}, {4, 4}})
	ix := buildIndex(t, feature("P", "A", donut))
	grid := &raster.MemoryGrid{
		LatAxis: []float64{5},
		LonAxis: []float64{4, 5, 10},
		Values:  [][]float64{{7, 100, 3}},
	}
	view, err := raster.Clip(grid, ix.Bound(), raster.Stride{})
	require.NoError(t, err)

	for _, strategy := range []Strategy{Tiled, Bulk} {
		t.Run(string(strategy), func(t *testing.T) {
			rows, stats, err := Join(context.Background(), ix, view, Options{Strategy: strategy}, discardLogger())
			require.NoError(t, err)
			require.Len(t, rows, 1)
			assert.Equal(t, 2, rows[0].Points)
			assert.InDelta(t, 5.0, rows[0].WeightedMean, 1e-12)
			assert.Equal(t, 1, stats.Outside())
		})
	}
}
