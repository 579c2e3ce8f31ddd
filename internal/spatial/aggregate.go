package spatial

import (
	"math"

	"github.com/l3boykane/Mini-Project-204721-DATA-ENGINEERING/internal/boundary"
	"github.com/l3boykane/Mini-Project-204721-DATA-ENGINEERING/internal/raster"
)

const (
	// kmPerDegree is the length of one degree of latitude.
	kmPerDegree = 111.32

	// volumeFactor converts mm·km² to million m³ (1 mm over 1 km² is 1000 m³).
	volumeFactor = 1000 / 1e6
)

// accumulator holds the running sums of one polygon within one step.
type accumulator struct {
	sumWV float64 // Σ v·cos φ
	sumW  float64 // Σ cos φ
	n     int
}

func (a *accumulator) add(v, lat float64) {
	w := math.Cos(lat * math.Pi / 180)
	a.sumWV += v * w
	a.sumW += w
	a.n++
}

func (a *accumulator) merge(b *accumulator) {
	a.sumWV += b.sumWV
	a.sumW += b.sumW
	a.n += b.n
}

// weightedMean is Σ v·cos φ / Σ cos φ.
func (a *accumulator) weightedMean() float64 {
	return a.sumWV / a.sumW
}

// areaWeightedSum is Σ v·(111.32·Δlat)(111.32·Δlon)·cos φ·1000/1e6. The
// cell area factors out of the sum because Δlat and Δlon are per-step
// constants.
func (a *accumulator) areaWeightedSum(dLat, dLon float64) float64 {
	return a.sumWV * (kmPerDegree * dLat) * (kmPerDegree * dLon) * volumeFactor
}

// group is the aggregation key. Multi-part districts stored as several
// features share one group.
type group struct {
	province string
	district string
}

// partial is the aggregation state of one tile or one whole step.
type partial struct {
	groups map[group]*accumulator
	order  []group
	rows   map[int]struct{}
	cols   map[int]struct{}
	stats  Stats
}

func newPartial() *partial {
	return &partial{
		groups: make(map[group]*accumulator),
		rows:   make(map[int]struct{}),
		cols:   make(map[int]struct{}),
	}
}

func (p *partial) add(poly *boundary.Polygon, row, col int, v, lat float64) {
	key := group{province: poly.Province, district: poly.District}
	acc, ok := p.groups[key]
	if !ok {
		acc = &accumulator{}
		p.groups[key] = acc
		p.order = append(p.order, key)
	}
	acc.add(v, lat)
	p.rows[row] = struct{}{}
	p.cols[col] = struct{}{}
	p.stats.Matched++
}

// merge folds b into p. Merging is commutative up to float rounding; callers
// merge in tile order so results do not depend on worker scheduling.
func (p *partial) merge(b *partial) {
	for _, key := range b.order {
		acc, ok := p.groups[key]
		if !ok {
			acc = &accumulator{}
			p.groups[key] = acc
			p.order = append(p.order, key)
		}
		acc.merge(b.groups[key])
	}
	for r := range b.rows {
		p.rows[r] = struct{}{}
	}
	for c := range b.cols {
		p.cols[c] = struct{}{}
	}
	p.stats.add(b.stats)
}

// spacing returns Δlat and Δlon over the points that contributed, falling
// back to the view's axis spacing and then to the configured cell size.
func (p *partial) spacing(view *raster.View, fallback float64) (float64, float64) {
	pick := func(used map[int]struct{}, axis []float64, axisSpacing float64) float64 {
		coords := make([]float64, 0, len(used))
		for k := range used {
			coords = append(coords, axis[k])
		}
		if d := raster.MinSpacing(coords); d > 0 {
			return d
		}
		if axisSpacing > 0 {
			return axisSpacing
		}
		return fallback
	}
	return pick(p.rows, view.Lat, view.LatSpacing()), pick(p.cols, view.Lon, view.LonSpacing())
}
