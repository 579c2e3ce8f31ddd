package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	sharedcfg "github.com/couchcryptid/storm-data-shared/config"

	"github.com/l3boykane/Mini-Project-204721-DATA-ENGINEERING/internal/adapter/dbf"
	"github.com/l3boykane/Mini-Project-204721-DATA-ENGINEERING/internal/boundary"
	"github.com/l3boykane/Mini-Project-204721-DATA-ENGINEERING/internal/ingest"
	"github.com/l3boykane/Mini-Project-204721-DATA-ENGINEERING/internal/raster"
	"github.com/l3boykane/Mini-Project-204721-DATA-ENGINEERING/internal/reference"
	"github.com/l3boykane/Mini-Project-204721-DATA-ENGINEERING/internal/spatial"
)

// Config holds all service settings, populated from environment variables.
type Config struct {
	KafkaBrokers     []string
	KafkaJobTopic    string
	KafkaReportTopic string
	KafkaGroupID     string
	HTTPAddr         string
	LogLevel         string
	LogFormat        string
	ShutdownTimeout  time.Duration

	BatchSize          int
	BatchFlushInterval time.Duration

	DatabaseURL string

	// Boundary and raster settings.
	BoundaryPath    string
	RegionProvinces []string
	RasterVariable  string
	LatStride       int
	LonStride       int

	// Spatial join settings.
	JoinStrategy   spatial.Strategy
	TileHeight     int
	TileWidth      int
	JoinWorkers    int
	DefaultCellDeg float64

	RainChunkSize     int
	ForceProvince     string
	RiskDBFEncoding   string
	ReferenceCacheTTL time.Duration
}

// Load reads configuration from environment variables, applying defaults where unset.
func Load() (*Config, error) {
	shutdownTimeout, err := sharedcfg.ParseShutdownTimeout()
	if err != nil {
		return nil, err
	}

	batchSize, err := sharedcfg.ParseBatchSize()
	if err != nil {
		return nil, err
	}

	flushInterval, err := sharedcfg.ParseBatchFlushInterval()
	if err != nil {
		return nil, err
	}

	strategy, err := spatial.ParseStrategy(sharedcfg.EnvOrDefault("JOIN_STRATEGY", string(spatial.Tiled)))
	if err != nil {
		return nil, fmt.Errorf("invalid JOIN_STRATEGY: %w", err)
	}

	cacheTTL, err := time.ParseDuration(sharedcfg.EnvOrDefault("REFERENCE_CACHE_TTL", "5m"))
	if err != nil || cacheTTL < 0 {
		return nil, errors.New("invalid REFERENCE_CACHE_TTL")
	}

	cellDeg, err := strconv.ParseFloat(sharedcfg.EnvOrDefault("DEFAULT_CELL_DEG", "0.05"), 64)
	if err != nil || cellDeg <= 0 {
		return nil, errors.New("invalid DEFAULT_CELL_DEG")
	}

	cfg := &Config{
		KafkaBrokers:       sharedcfg.ParseBrokers(sharedcfg.EnvOrDefault("KAFKA_BROKERS", "localhost:9092")),
		KafkaJobTopic:      sharedcfg.EnvOrDefault("KAFKA_JOB_TOPIC", "ingest-jobs"),
		KafkaReportTopic:   sharedcfg.EnvOrDefault("KAFKA_REPORT_TOPIC", "ingest-reports"),
		KafkaGroupID:       sharedcfg.EnvOrDefault("KAFKA_GROUP_ID", "geo-ingest"),
		HTTPAddr:           sharedcfg.EnvOrDefault("HTTP_ADDR", ":8080"),
		LogLevel:           sharedcfg.EnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:          sharedcfg.EnvOrDefault("LOG_FORMAT", "json"),
		ShutdownTimeout:    shutdownTimeout,
		BatchSize:          batchSize,
		BatchFlushInterval: flushInterval,

		DatabaseURL:     os.Getenv("DATABASE_URL"),
		BoundaryPath:    sharedcfg.EnvOrDefault("BOUNDARY_PATH", "/data/storage/admin/gadm41_THA_2.shp"),
		RegionProvinces: parseList(sharedcfg.EnvOrDefault("REGION_PROVINCES", strings.Join(boundary.NorthernProvinces, ","))),
		RasterVariable:  sharedcfg.EnvOrDefault("RASTER_VARIABLE", "precip"),

		JoinStrategy:   strategy,
		DefaultCellDeg: cellDeg,

		ForceProvince:     os.Getenv("FORCE_PROVINCE"),
		RiskDBFEncoding:   sharedcfg.EnvOrDefault("RISK_DBF_ENCODING", dbf.DefaultEncoding),
		ReferenceCacheTTL: cacheTTL,
	}
	for _, p := range []struct {
		key string
		def int
		dst *int
	}{
		{"RASTER_LAT_STRIDE", 1, &cfg.LatStride},
		{"RASTER_LON_STRIDE", 1, &cfg.LonStride},
		{"TILE_HEIGHT", 256, &cfg.TileHeight},
		{"TILE_WIDTH", 256, &cfg.TileWidth},
		{"JOIN_WORKERS", 1, &cfg.JoinWorkers},
		{"RAIN_CHUNK_SIZE", 200000, &cfg.RainChunkSize},
	} {
		n, err := parsePositiveInt(p.key, p.def)
		if err != nil {
			return nil, err
		}
		*p.dst = n
	}

	if len(cfg.KafkaBrokers) == 0 {
		return nil, errors.New("KAFKA_BROKERS is required")
	}
	if cfg.KafkaJobTopic == "" {
		return nil, errors.New("KAFKA_JOB_TOPIC is required")
	}
	if cfg.KafkaReportTopic == "" {
		return nil, errors.New("KAFKA_REPORT_TOPIC is required")
	}

	return cfg, nil
}

// BoundaryOptions returns the region filter for the boundary index.
func (c *Config) BoundaryOptions() boundary.Options {
	return boundary.Options{Regions: c.RegionProvinces}
}

// ClipStride returns the raster decimation.
func (c *Config) ClipStride() raster.Stride {
	return raster.Stride{Lat: c.LatStride, Lon: c.LonStride}
}

// JoinOptions returns the spatial join settings.
func (c *Config) JoinOptions() spatial.Options {
	return spatial.Options{
		Strategy:       c.JoinStrategy,
		TileHeight:     c.TileHeight,
		TileWidth:      c.TileWidth,
		Workers:        c.JoinWorkers,
		DefaultCellDeg: c.DefaultCellDeg,
	}
}

// ResolveOptions scopes name resolution to the same region as the boundary
// filter.
func (c *Config) ResolveOptions() reference.Options {
	return reference.Options{AllowRegions: c.RegionProvinces, ForceProvince: c.ForceProvince}
}

// IngestOptions assembles the ingest service settings.
func (c *Config) IngestOptions() ingest.Options {
	return ingest.Options{
		BoundaryPath:  c.BoundaryPath,
		Boundary:      c.BoundaryOptions(),
		Variable:      c.RasterVariable,
		Stride:        c.ClipStride(),
		Join:          c.JoinOptions(),
		Resolve:       c.ResolveOptions(),
		RainChunkSize: c.RainChunkSize,
	}
}

func parsePositiveInt(key string, def int) (int, error) {
	s := os.Getenv(key)
	if s == "" {
		return def, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("invalid %s: must be a positive integer", key)
	}
	return n, nil
}

// parseList splits a comma-separated list, dropping blanks. A lone "*"
// means no filter.
func parseList(s string) []string {
	if strings.TrimSpace(s) == "*" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
