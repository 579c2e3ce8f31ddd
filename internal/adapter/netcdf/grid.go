// Package netcdf exposes a NetCDF precipitation variable as a raster.Grid.
package netcdf

import (
	"fmt"
	"math"
	"slices"
	"strings"
	"time"

	"github.com/fhs/go-netcdf/netcdf"

	"github.com/l3boykane/Mini-Project-204721-DATA-ENGINEERING/internal/domain"
	"github.com/l3boykane/Mini-Project-204721-DATA-ENGINEERING/internal/raster"
)

// Axis name aliases, matched case-insensitively against dimension names.
var (
	latNames  = []string{"lat", "latitude", "y"}
	lonNames  = []string{"lon", "longitude", "x"}
	timeNames = []string{"time", "t"}
)

// Grid reads one variable of an open dataset. Close releases the file.
type Grid struct {
	ds      netcdf.Dataset
	v       netcdf.Var
	typ     netcdf.Type
	hasTime bool

	lat, lon []float64
	times    []time.Time

	fill   []float64
	scale  float64
	offset float64
}

var _ raster.Grid = (*Grid)(nil)

// Open opens path and prepares variable for windowed reads. The variable
// must be laid out as (time, lat, lon) or (lat, lon).
func Open(path, variable string) (*Grid, error) {
	ds, err := netcdf.OpenFile(path, netcdf.NOWRITE)
	if err != nil {
		return nil, fmt.Errorf("open netcdf %s: %w", path, err)
	}
	g, err := open(ds, variable)
	if err != nil {
		_ = ds.Close()
		return nil, fmt.Errorf("netcdf %s: %w", path, err)
	}
	return g, nil
}

func open(ds netcdf.Dataset, variable string) (*Grid, error) {
	v, err := ds.Var(variable)
	if err != nil {
		return nil, fmt.Errorf("%w: variable %q: %v", domain.ErrInputShape, variable, err)
	}
	typ, err := v.Type()
	if err != nil {
		return nil, err
	}
	if typ != netcdf.FLOAT && typ != netcdf.DOUBLE {
		return nil, fmt.Errorf("%w: variable %q has type %v, want float or double", domain.ErrInputShape, variable, typ)
	}

	dims, err := v.Dims()
	if err != nil {
		return nil, err
	}
	names := make([]string, len(dims))
	for i, d := range dims {
		if names[i], err = d.Name(); err != nil {
			return nil, err
		}
	}

	g := &Grid{ds: ds, v: v, typ: typ, scale: 1}
	switch {
	case len(names) == 3 && is(names[0], timeNames) && is(names[1], latNames) && is(names[2], lonNames):
		g.hasTime = true
	case len(names) == 2 && is(names[0], latNames) && is(names[1], lonNames):
	default:
		return nil, fmt.Errorf("%w: variable %q has dimensions (%s), want (time, lat, lon) or (lat, lon)",
			domain.ErrInputShape, variable, strings.Join(names, ", "))
	}

	off := len(names) - 2
	if g.lat, err = readAxis(ds, names[off]); err != nil {
		return nil, err
	}
	if g.lon, err = readAxis(ds, names[off+1]); err != nil {
		return nil, err
	}
	if g.hasTime {
		if g.times, err = readTimes(ds, names[0]); err != nil {
			return nil, err
		}
	}

	for _, name := range []string{"_FillValue", "missing_value"} {
		if f, ok := attrFloat(v, name); ok {
			g.fill = append(g.fill, f)
		}
	}
	if s, ok := attrFloat(v, "scale_factor"); ok {
		g.scale = s
	}
	if o, ok := attrFloat(v, "add_offset"); ok {
		g.offset = o
	}
	return g, nil
}

func is(name string, aliases []string) bool {
	return slices.Contains(aliases, strings.ToLower(name))
}

func (g *Grid) Lat() []float64     { return g.lat }
func (g *Grid) Lon() []float64     { return g.lon }
func (g *Grid) Times() []time.Time { return g.times }

// Close closes the dataset.
func (g *Grid) Close() error { return g.ds.Close() }

func (g *Grid) ReadWindow(step, latStart, latCount, lonStart, lonCount int) ([]float64, error) {
	start := []uint64{uint64(latStart), uint64(lonStart)}
	count := []uint64{uint64(latCount), uint64(lonCount)}
	if g.hasTime {
		if step < 0 || step >= len(g.times) {
			return nil, fmt.Errorf("step %d out of range [0, %d)", step, len(g.times))
		}
		start = append([]uint64{uint64(step)}, start...)
		count = append([]uint64{1}, count...)
	} else if step != 0 {
		return nil, fmt.Errorf("step %d out of range: variable has no time axis", step)
	}

	n := latCount * lonCount
	out := make([]float64, n)
	switch g.typ {
	case netcdf.DOUBLE:
		if err := g.v.ReadFloat64Slice(out, start, count); err != nil {
			return nil, fmt.Errorf("read window: %w", err)
		}
	default:
		buf := make([]float32, n)
		if err := g.v.ReadFloat32Slice(buf, start, count); err != nil {
			return nil, fmt.Errorf("read window: %w", err)
		}
		for i, x := range buf {
			out[i] = float64(x)
		}
	}

	for i, x := range out {
		if g.missing(x) {
			out[i] = math.NaN()
			continue
		}
		out[i] = x*g.scale + g.offset
	}
	return out, nil
}

func (g *Grid) missing(x float64) bool {
	if math.IsNaN(x) || math.IsInf(x, 0) {
		return true
	}
	for _, f := range g.fill {
		// Fill values are compared at the precision they were stored in.
		if x == f || float32(x) == float32(f) {
			return true
		}
	}
	return false
}

func readAxis(ds netcdf.Dataset, name string) ([]float64, error) {
	v, err := ds.Var(name)
	if err != nil {
		return nil, fmt.Errorf("%w: coordinate variable %q: %v", domain.ErrInputShape, name, err)
	}
	return readFloats(v)
}

func readFloats(v netcdf.Var) ([]float64, error) {
	n, err := v.Len()
	if err != nil {
		return nil, err
	}
	typ, err := v.Type()
	if err != nil {
		return nil, err
	}
	out := make([]float64, n)
	switch typ {
	case netcdf.DOUBLE:
		err = v.ReadFloat64s(out)
	case netcdf.FLOAT:
		buf := make([]float32, n)
		err = v.ReadFloat32s(buf)
		for i, x := range buf {
			out[i] = float64(x)
		}
	case netcdf.INT:
		buf := make([]int32, n)
		err = v.ReadInt32s(buf)
		for i, x := range buf {
			out[i] = float64(x)
		}
	case netcdf.INT64:
		buf := make([]int64, n)
		err = v.ReadInt64s(buf)
		for i, x := range buf {
			out[i] = float64(x)
		}
	default:
		return nil, fmt.Errorf("%w: coordinate type %v not supported", domain.ErrInputShape, typ)
	}
	if err != nil {
		return nil, err
	}
	return out, nil
}

func readTimes(ds netcdf.Dataset, name string) ([]time.Time, error) {
	v, err := ds.Var(name)
	if err != nil {
		return nil, fmt.Errorf("%w: time variable %q: %v", domain.ErrInputShape, name, err)
	}
	offsets, err := readFloats(v)
	if err != nil {
		return nil, err
	}
	units, ok := attrString(v, "units")
	if !ok {
		return nil, fmt.Errorf("%w: time variable %q has no units", domain.ErrInputShape, name)
	}
	return raster.ParseCFTimes(units, offsets)
}

func attrString(v netcdf.Var, name string) (string, bool) {
	a := v.Attr(name)
	n, err := a.Len()
	if err != nil || n == 0 {
		return "", false
	}
	buf := make([]byte, n)
	if err := a.ReadBytes(buf); err != nil {
		return "", false
	}
	return strings.TrimRight(string(buf), "\x00"), true
}

func attrFloat(v netcdf.Var, name string) (float64, bool) {
	a := v.Attr(name)
	n, err := a.Len()
	if err != nil || n == 0 {
		return 0, false
	}
	typ, err := a.Type()
	if err != nil {
		return 0, false
	}
	switch typ {
	case netcdf.DOUBLE:
		buf := make([]float64, n)
		if a.ReadFloat64s(buf) == nil {
			return buf[0], true
		}
	case netcdf.FLOAT:
		buf := make([]float32, n)
		if a.ReadFloat32s(buf) == nil {
			return float64(buf[0]), true
		}
	case netcdf.SHORT:
		buf := make([]int16, n)
		if a.ReadInt16s(buf) == nil {
			return float64(buf[0]), true
		}
	case netcdf.INT:
		buf := make([]int32, n)
		if a.ReadInt32s(buf) == nil {
			return float64(buf[0]), true
		}
	}
	return 0, false
}
