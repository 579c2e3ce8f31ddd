// Package geojson loads boundary collections from GeoJSON files.
package geojson

import (
	"fmt"
	"os"
	"slices"
	"strconv"

	"github.com/paulmach/orb/geojson"

	"github.com/l3boykane/Mini-Project-204721-DATA-ENGINEERING/internal/boundary"
)

// Load reads a FeatureCollection. Coordinates are taken as WGS84
// longitude/latitude, which RFC 7946 mandates.
func Load(path string) (*boundary.Collection, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read geojson: %w", err)
	}
	fc, err := geojson.UnmarshalFeatureCollection(data)
	if err != nil {
		return nil, fmt.Errorf("decode geojson %s: %w", path, err)
	}
	return Collect(fc), nil
}

// Collect converts decoded features. Fields lists every property key in
// order of first appearance, each feature's keys taken in sorted order.
func Collect(fc *geojson.FeatureCollection) *boundary.Collection {
	out := &boundary.Collection{Features: make([]boundary.Feature, 0, len(fc.Features))}
	seen := make(map[string]bool)
	for _, f := range fc.Features {
		keys := make([]string, 0, len(f.Properties))
		for k := range f.Properties {
			keys = append(keys, k)
		}
		slices.Sort(keys)

		attrs := make(map[string]string, len(keys))
		for _, k := range keys {
			if !seen[k] {
				seen[k] = true
				out.Fields = append(out.Fields, k)
			}
			attrs[k] = stringify(f.Properties[k])
		}
		out.Features = append(out.Features, boundary.Feature{Attributes: attrs, Geometry: f.Geometry})
	}
	return out
}

func stringify(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(x)
	}
	return fmt.Sprint(v)
}
