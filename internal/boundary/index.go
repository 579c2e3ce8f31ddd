// Package boundary builds the administrative boundary index: polygons
// restricted to a region of interest, an R-tree over their bounds and the
// combined geometry used to clip rasters.
package boundary

import (
	"fmt"
	"math"
	"slices"

	"github.com/dhconnelly/rtreego"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"

	"github.com/l3boykane/Mini-Project-204721-DATA-ENGINEERING/internal/domain"
)

// NorthernProvinces is the default region of interest.
var NorthernProvinces = []string{
	"Chiang Mai", "Chiang Rai", "Lamphun", "Lampang", "Mae Hong Son", "Phayao",
	"Phrae", "Nan", "Uttaradit", "Phitsanulok", "Sukhothai", "Tak",
	"Kamphaeng Phet", "Nakhon Sawan", "Phichit", "Phetchabun", "Uthai Thani",
}

const (
	// sampleSize bounds the province names reported when nothing matches.
	sampleSize = 15

	// rectPad widens R-tree rectangles so boundary points are never lost to
	// rounding and degenerate bounds keep a positive extent.
	rectPad = 1e-9
)

// Feature is one record of a boundary source in WGS84 longitude/latitude.
type Feature struct {
	Attributes map[string]string
	Geometry   orb.Geometry
}

// Collection is a loaded boundary source.
type Collection struct {
	Fields   []string
	Features []Feature
}

// Options configures Build.
type Options struct {
	// Regions lists canonical English province names to keep. Empty keeps all.
	Regions []string
	// Schemas overrides DefaultSchemas.
	Schemas []SchemaAdapter
}

// Polygon is one district boundary that survived the region filter.
type Polygon struct {
	Names
	Geometry orb.MultiPolygon

	seq   int
	bound orb.Bound
	rect  rtreego.Rect
}

// Bounds implements rtreego.Spatial.
func (p *Polygon) Bounds() rtreego.Rect { return p.rect }

// Bound returns the polygon's bounding box.
func (p *Polygon) Bound() orb.Bound { return p.bound }

// Covers reports whether pt lies inside the polygon or on its boundary.
// Hole rings count as boundary too.
func (p *Polygon) Covers(pt orb.Point) bool {
	if !p.bound.Contains(pt) {
		return false
	}
	for _, poly := range p.Geometry {
		if polygonCovers(poly, pt) {
			return true
		}
	}
	return false
}

func polygonCovers(poly orb.Polygon, pt orb.Point) bool {
	if len(poly) == 0 || !planar.RingContains(poly[0], pt) {
		return false
	}
	for _, hole := range poly[1:] {
		if planar.RingContains(hole, pt) && !onRing(hole, pt) {
			return false
		}
	}
	return true
}

// onRing reports whether pt lies on one of the ring's segments.
func onRing(r orb.Ring, pt orb.Point) bool {
	const eps = 1e-12
	for i := 1; i < len(r); i++ {
		a, b := r[i-1], r[i]
		cross := (b[0]-a[0])*(pt[1]-a[1]) - (b[1]-a[1])*(pt[0]-a[0])
		if math.Abs(cross) > eps {
			continue
		}
		if pt[0] >= math.Min(a[0], b[0])-eps && pt[0] <= math.Max(a[0], b[0])+eps &&
			pt[1] >= math.Min(a[1], b[1])-eps && pt[1] <= math.Max(a[1], b[1])+eps {
			return true
		}
	}
	return false
}

// Index answers bounding-box, containment and nearest queries over the
// polygons of one region. It is read-only after Build.
type Index struct {
	schema   string
	polygons []*Polygon
	tree     *rtreego.Rtree
	union    orb.MultiPolygon
	bound    orb.Bound
	skipped  int
}

// Build filters the collection to opts.Regions and indexes what remains.
// It fails with *domain.FieldsError when no schema applies and with
// *domain.RegionMatchError when no polygon matches the filter.
func Build(c *Collection, opts Options) (*Index, error) {
	schemas := opts.Schemas
	if len(schemas) == 0 {
		schemas = DefaultSchemas
	}
	schema, err := SelectSchema(schemas, c.Fields)
	if err != nil {
		return nil, err
	}

	allow := make(map[string]bool, len(opts.Regions))
	for _, r := range opts.Regions {
		allow[domain.NameKey(r)] = true
	}

	ix := &Index{schema: schema.Name(), tree: rtreego.NewTree(2, 25, 50)}
	var seen []string
	for _, f := range c.Features {
		names, ok := schema.Extract(f.Attributes)
		mp := asMultiPolygon(f.Geometry)
		if !ok || len(mp) == 0 {
			ix.skipped++
			continue
		}
		if len(seen) < sampleSize && !slices.Contains(seen, names.Province) {
			seen = append(seen, names.Province)
		}
		if len(allow) > 0 && !allow[domain.NameKey(names.Province)] && !allow[domain.NameKey(names.ProvinceAlt)] {
			continue
		}

		p, err := newPolygon(len(ix.polygons), names, mp)
		if err != nil {
			return nil, err
		}
		ix.polygons = append(ix.polygons, p)
		ix.tree.Insert(p)
		ix.union = append(ix.union, mp...)
		if len(ix.polygons) == 1 {
			ix.bound = p.bound
		} else {
			ix.bound = ix.bound.Union(p.bound)
		}
	}

	if len(ix.polygons) == 0 {
		return nil, &domain.RegionMatchError{Regions: opts.Regions, Sample: seen}
	}
	return ix, nil
}

func newPolygon(seq int, names Names, mp orb.MultiPolygon) (*Polygon, error) {
	b := mp.Bound()
	rect, err := rectFor(b)
	if err != nil {
		return nil, fmt.Errorf("index polygon %s/%s: %w", names.Province, names.District, err)
	}
	return &Polygon{Names: names, Geometry: mp, seq: seq, bound: b, rect: rect}, nil
}

// Schema names the attribute schema the source was read with.
func (ix *Index) Schema() string { return ix.schema }

// Len returns the number of indexed polygons.
func (ix *Index) Len() int { return len(ix.polygons) }

// Skipped counts features dropped for missing names or non-polygonal geometry.
func (ix *Index) Skipped() int { return ix.skipped }

// Polygons returns the indexed polygons in source order.
func (ix *Index) Polygons() []*Polygon { return ix.polygons }

// Union returns every indexed polygon as one multi-polygon. District
// polygons do not overlap, so this is their union up to shared edges.
func (ix *Index) Union() orb.MultiPolygon { return ix.union }

// Bound returns the bounding box of the union.
func (ix *Index) Bound() orb.Bound { return ix.bound }

// Search returns polygons whose bounds intersect b, in source order.
func (ix *Index) Search(b orb.Bound) []*Polygon {
	if !ix.bound.Intersects(b) {
		return nil
	}
	rect, err := rectFor(b)
	if err != nil {
		return nil
	}
	return sorted(ix.tree.SearchIntersect(rect))
}

// Locate returns the first polygon covering pt, or nil.
func (ix *Index) Locate(pt orb.Point) *Polygon {
	return FirstCovering(ix.Search(orb.Bound{Min: pt, Max: pt}), pt)
}

// Nearest returns the polygon whose bounds are closest to pt.
func (ix *Index) Nearest(pt orb.Point) *Polygon {
	s := ix.tree.NearestNeighbor(rtreego.Point{pt[0], pt[1]})
	if s == nil {
		return nil
	}
	return s.(*Polygon)
}

// FirstCovering returns the first candidate covering pt, or nil.
func FirstCovering(candidates []*Polygon, pt orb.Point) *Polygon {
	for _, p := range candidates {
		if p.Covers(pt) {
			return p
		}
	}
	return nil
}

func sorted(found []rtreego.Spatial) []*Polygon {
	out := make([]*Polygon, len(found))
	for i, s := range found {
		out[i] = s.(*Polygon)
	}
	slices.SortFunc(out, func(a, b *Polygon) int { return a.seq - b.seq })
	return out
}

func rectFor(b orb.Bound) (rtreego.Rect, error) {
	return rtreego.NewRect(
		rtreego.Point{b.Min[0] - rectPad, b.Min[1] - rectPad},
		[]float64{b.Max[0] - b.Min[0] + 2*rectPad, b.Max[1] - b.Min[1] + 2*rectPad},
	)
}

func asMultiPolygon(g orb.Geometry) orb.MultiPolygon {
	switch v := g.(type) {
	case orb.Polygon:
		if len(v) == 0 {
			return nil
		}
		return orb.MultiPolygon{v}
	case orb.MultiPolygon:
		return v
	case orb.Collection:
		var out orb.MultiPolygon
		for _, sub := range v {
			out = append(out, asMultiPolygon(sub)...)
		}
		return out
	}
	return nil
}
