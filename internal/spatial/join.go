// Package spatial joins raster cells to district polygons and aggregates
// them per district and time step.
package spatial

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"slices"
	"strings"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/encoding/wkt"
	"golang.org/x/sync/errgroup"

	"github.com/l3boykane/Mini-Project-204721-DATA-ENGINEERING/internal/boundary"
	"github.com/l3boykane/Mini-Project-204721-DATA-ENGINEERING/internal/domain"
	"github.com/l3boykane/Mini-Project-204721-DATA-ENGINEERING/internal/raster"
)

// Strategy selects how cells are matched to polygons. Both strategies
// produce the same rows.
type Strategy string

const (
	// Tiled queries the index once per tile and tests the tile's points
	// against that candidate set only.
	Tiled Strategy = "tiled"
	// Bulk queries the index once per point.
	Bulk Strategy = "bulk"
)

// ParseStrategy validates a strategy name.
func ParseStrategy(s string) (Strategy, error) {
	switch Strategy(strings.ToLower(s)) {
	case Tiled:
		return Tiled, nil
	case Bulk:
		return Bulk, nil
	}
	return "", fmt.Errorf("unknown join strategy %q", s)
}

// Options configures a Joiner.
type Options struct {
	Strategy   Strategy
	TileHeight int
	TileWidth  int
	// Workers bounds concurrent tiles within one step. 1 is sequential.
	Workers int
	// DefaultCellDeg is the cell size used when a step has a single
	// distinct coordinate on an axis.
	DefaultCellDeg float64
}

// DefaultOptions returns a sequential tiled join over 256x256 tiles.
func DefaultOptions() Options {
	return Options{Strategy: Tiled, TileHeight: 256, TileWidth: 256, Workers: 1, DefaultCellDeg: 0.05}
}

// Stats counts what happened to the cells of a join.
type Stats struct {
	Points       int
	Matched      int
	Missing      int
	Tiles        int
	TilesSkipped int
}

// Outside is the number of valid cells that fell in no polygon.
func (s Stats) Outside() int { return s.Points - s.Matched - s.Missing }

func (s *Stats) add(o Stats) {
	s.Points += o.Points
	s.Matched += o.Matched
	s.Missing += o.Missing
	s.Tiles += o.Tiles
	s.TilesSkipped += o.TilesSkipped
}

// Joiner aggregates clipped raster views against a boundary index.
type Joiner struct {
	index  *boundary.Index
	opts   Options
	logger *slog.Logger
}

// NewJoiner creates a Joiner. Zero option fields take DefaultOptions values.
func NewJoiner(index *boundary.Index, opts Options, logger *slog.Logger) *Joiner {
	def := DefaultOptions()
	if opts.Strategy == "" {
		opts.Strategy = def.Strategy
	}
	if opts.TileHeight <= 0 {
		opts.TileHeight = def.TileHeight
	}
	if opts.TileWidth <= 0 {
		opts.TileWidth = def.TileWidth
	}
	if opts.Workers <= 0 {
		opts.Workers = def.Workers
	}
	if opts.DefaultCellDeg <= 0 {
		opts.DefaultCellDeg = def.DefaultCellDeg
	}
	return &Joiner{index: index, opts: opts, logger: logger}
}

// Join aggregates every step of view. Rows are ordered by time, province
// and district.
func Join(ctx context.Context, index *boundary.Index, view *raster.View, opts Options, logger *slog.Logger) ([]domain.DistrictAggregate, Stats, error) {
	j := NewJoiner(index, opts, logger)
	var (
		out   []domain.DistrictAggregate
		total Stats
	)
	err := j.Each(ctx, view, func(rows []domain.DistrictAggregate, stats Stats) error {
		out = append(out, rows...)
		total.add(stats)
		return nil
	})
	return out, total, err
}

// Each aggregates view step by step and hands each step's rows to fn.
func (j *Joiner) Each(ctx context.Context, view *raster.View, fn func([]domain.DistrictAggregate, Stats) error) error {
	if view.Empty() {
		return nil
	}
	for step := 0; step < view.Steps(); step++ {
		rows, stats, err := j.Step(ctx, view, step)
		if err != nil {
			return err
		}
		if err := fn(rows, stats); err != nil {
			return err
		}
	}
	return nil
}

// Step aggregates one time step.
func (j *Joiner) Step(ctx context.Context, view *raster.View, step int) ([]domain.DistrictAggregate, Stats, error) {
	if view.Empty() {
		return nil, Stats{}, nil
	}
	values, err := view.Read(step)
	if err != nil {
		return nil, Stats{}, err
	}

	var acc *partial
	switch j.opts.Strategy {
	case Bulk:
		acc, err = j.bulk(ctx, view, values)
	default:
		acc, err = j.tiled(ctx, view, values, step)
	}
	if err != nil {
		return nil, Stats{}, err
	}
	acc.stats.Points = len(values)
	return j.rows(view, step, acc), acc.stats, nil
}

type tile struct {
	row0, row1 int
	col0, col1 int
}

func (j *Joiner) tiles(view *raster.View) []tile {
	var out []tile
	for r := 0; r < len(view.Lat); r += j.opts.TileHeight {
		for c := 0; c < len(view.Lon); c += j.opts.TileWidth {
			out = append(out, tile{
				row0: r, row1: min(r+j.opts.TileHeight, len(view.Lat)),
				col0: c, col1: min(c+j.opts.TileWidth, len(view.Lon)),
			})
		}
	}
	return out
}

func (j *Joiner) tiled(ctx context.Context, view *raster.View, values []float64, step int) (*partial, error) {
	tiles := j.tiles(view)
	parts := make([]*partial, len(tiles))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(j.opts.Workers)
	for k, t := range tiles {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			parts[k] = j.joinTile(view, values, t, step)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	acc := newPartial()
	for _, p := range parts {
		acc.merge(p)
	}
	return acc, nil
}

func (j *Joiner) joinTile(view *raster.View, values []float64, t tile, step int) *partial {
	p := newPartial()
	p.stats.Tiles = 1

	bound := tileBound(view, t)
	candidates := j.index.Search(bound)
	width := len(view.Lon)
	if len(candidates) == 0 {
		p.stats.TilesSkipped = 1
		for r := t.row0; r < t.row1; r++ {
			for c := t.col0; c < t.col1; c++ {
				if math.IsNaN(values[r*width+c]) {
					p.stats.Missing++
				}
			}
		}
		return p
	}

	for r := t.row0; r < t.row1; r++ {
		lat := view.Lat[r]
		for c := t.col0; c < t.col1; c++ {
			v := values[r*width+c]
			if math.IsNaN(v) {
				p.stats.Missing++
				continue
			}
			if poly := boundary.FirstCovering(candidates, orb.Point{view.Lon[c], lat}); poly != nil {
				p.add(poly, r, c, v, lat)
			}
		}
	}

	if unmatched := (t.row1-t.row0)*(t.col1-t.col0) - p.stats.Matched - p.stats.Missing; unmatched > 0 {
		j.logger.Debug("tile has unmatched cells",
			"step", step,
			"tile", wkt.MarshalString(bound.ToPolygon()),
			"candidates", len(candidates),
			"unmatched", unmatched,
		)
	}
	return p
}

func (j *Joiner) bulk(ctx context.Context, view *raster.View, values []float64) (*partial, error) {
	p := newPartial()
	width := len(view.Lon)
	for r, lat := range view.Lat {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		for c, lon := range view.Lon {
			v := values[r*width+c]
			if math.IsNaN(v) {
				p.stats.Missing++
				continue
			}
			if poly := j.index.Locate(orb.Point{lon, lat}); poly != nil {
				p.add(poly, r, c, v, lat)
			}
		}
	}
	return p, nil
}

func (j *Joiner) rows(view *raster.View, step int, acc *partial) []domain.DistrictAggregate {
	dLat, dLon := acc.spacing(view, j.opts.DefaultCellDeg)
	ts := view.Time(step)

	out := make([]domain.DistrictAggregate, 0, len(acc.order))
	for _, key := range acc.order {
		a := acc.groups[key]
		if a.sumW == 0 {
			continue
		}
		out = append(out, domain.DistrictAggregate{
			Time:            ts,
			Province:        key.province,
			District:        key.district,
			WeightedMean:    a.weightedMean(),
			AreaWeightedSum: a.areaWeightedSum(dLat, dLon),
			Points:          a.n,
		})
	}
	slices.SortFunc(out, func(a, b domain.DistrictAggregate) int {
		if c := strings.Compare(a.Province, b.Province); c != 0 {
			return c
		}
		return strings.Compare(a.District, b.District)
	})
	return out
}

func tileBound(view *raster.View, t tile) orb.Bound {
	lats := view.Lat[t.row0:t.row1]
	lons := view.Lon[t.col0:t.col1]
	return orb.Bound{
		Min: orb.Point{slices.Min(lons), slices.Min(lats)},
		Max: orb.Point{slices.Max(lons), slices.Max(lats)},
	}
}
