// Package shapefile loads boundary collections from ESRI shapefiles,
// reprojecting them to WGS84 longitude/latitude.
package shapefile

import (
	"bytes"
	"fmt"
	"log/slog"
	"strings"

	"github.com/ctessum/geom"
	"github.com/ctessum/geom/encoding/shp"
	"github.com/ctessum/geom/proj"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"

	"github.com/l3boykane/Mini-Project-204721-DATA-ENGINEERING/internal/boundary"
)

// wgs84 is the coordinate system the boundary index works in.
const wgs84 = "+proj=longlat +datum=WGS84 +no_defs"

// Load decodes every record of the shapefile at path. A shapefile without a
// .prj is assumed to be in WGS84 already.
func Load(path string, logger *slog.Logger) (*boundary.Collection, error) {
	d, err := shp.NewDecoder(path)
	if err != nil {
		return nil, fmt.Errorf("open shapefile %s: %w", path, err)
	}
	defer d.Close()

	trans, err := transformer(d)
	if err != nil {
		logger.Warn("shapefile has no usable projection, assuming WGS84", "path", path, "error", err)
		trans = nil
	}

	var fields []string
	for _, f := range d.Fields() {
		fields = append(fields, fieldName(f.Name))
	}

	out := &boundary.Collection{Fields: fields}
	for {
		g, attrs, more := d.DecodeRowFields(fields...)
		if !more {
			break
		}
		if g != nil && trans != nil {
			if g, err = g.Transform(trans); err != nil {
				return nil, fmt.Errorf("reproject record %d: %w", len(out.Features), err)
			}
		}
		for k, v := range attrs {
			attrs[k] = strings.TrimSpace(strings.Trim(v, "\x00"))
		}
		out.Features = append(out.Features, boundary.Feature{Attributes: attrs, Geometry: toOrb(g)})
	}
	if err := d.Error(); err != nil {
		return nil, fmt.Errorf("decode shapefile %s: %w", path, err)
	}
	return out, nil
}

func transformer(d *shp.Decoder) (proj.Transformer, error) {
	src, err := d.SR()
	if err != nil {
		return nil, err
	}
	dst, err := proj.Parse(wgs84)
	if err != nil {
		return nil, err
	}
	return src.NewTransform(dst)
}

// fieldName trims the NUL padding of a dBase field name.
func fieldName(name [11]byte) string {
	b := bytes.Trim(name[:], "\x00")
	if n := bytes.IndexByte(b, 0); n >= 0 {
		b = b[:n]
	}
	return strings.TrimSpace(string(b))
}

// toOrb converts polygonal geometries. Shapefile polygons carry all parts as
// one ring list: clockwise rings are shells, counter-clockwise rings are
// holes of the shell that contains them. Other geometry types become nil and
// are skipped by the index.
func toOrb(g geom.Geom) orb.Geometry {
	switch p := g.(type) {
	case geom.Polygon:
		return fromRings(p)
	case geom.MultiPolygon:
		var out orb.MultiPolygon
		for _, part := range p {
			out = append(out, fromRings(part)...)
		}
		return out
	}
	return nil
}

func fromRings(rings geom.Polygon) orb.MultiPolygon {
	var (
		shells orb.MultiPolygon
		holes  []orb.Ring
	)
	for _, r := range rings {
		ring := make(orb.Ring, len(r))
		for i, pt := range r {
			ring[i] = orb.Point{pt.X, pt.Y}
		}
		if len(ring) < 4 {
			continue
		}
		if ring.Orientation() == orb.CW {
			shells = append(shells, orb.Polygon{ring})
		} else {
			holes = append(holes, ring)
		}
	}
	for _, h := range holes {
		placed := false
		for i := range shells {
			if planar.RingContains(shells[i][0], h[0]) {
				shells[i] = append(shells[i], h)
				placed = true
				break
			}
		}
		// A lone counter-clockwise ring is a shell written with the
		// wrong winding.
		if !placed {
			shells = append(shells, orb.Polygon{h})
		}
	}
	return shells
}
