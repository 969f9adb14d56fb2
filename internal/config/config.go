package config

import (
	"errors"
	"fmt"
	"math"
	"os"
	"strconv"
	"time"

	sharedcfg "github.com/couchcryptid/storm-data-shared/config"

	"github.com/couchcryptid/storm-hazard-impact/internal/domain"
)

// Config holds all service settings, populated from environment variables.
type Config struct {
	KafkaBrokers     []string
	KafkaSourceTopic string
	KafkaSinkTopic   string
	KafkaGroupID     string
	HTTPAddr         string
	LogLevel         string
	LogFormat        string
	ShutdownTimeout  time.Duration

	BatchSize          int
	BatchFlushInterval time.Duration

	// Analysis parameters.
	NeighborhoodRadius int
	HazardValue        float64

	// Overpass road source configuration.
	OverpassURL       string
	OverpassEnabled   bool
	OverpassTimeout   time.Duration
	OverpassCacheSize int
}

// Params returns the analysis parameters carried by the config.
func (c *Config) Params() domain.Params {
	return domain.Params{
		NeighborhoodRadius: c.NeighborhoodRadius,
		HazardValue:        c.HazardValue,
	}
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

	radius, err := parseNeighborhoodRadius()
	if err != nil {
		return nil, err
	}

	hazardValue, err := parseHazardValue()
	if err != nil {
		return nil, err
	}

	overpassTimeout, err := time.ParseDuration(sharedcfg.EnvOrDefault("OVERPASS_TIMEOUT", "25s"))
	if err != nil || overpassTimeout <= 0 {
		return nil, errors.New("invalid OVERPASS_TIMEOUT")
	}

	cfg := &Config{
		KafkaBrokers:       sharedcfg.ParseBrokers(sharedcfg.EnvOrDefault("KAFKA_BROKERS", "localhost:9092")),
		KafkaSourceTopic:   sharedcfg.EnvOrDefault("KAFKA_SOURCE_TOPIC", "hazard-analysis-requests"),
		KafkaSinkTopic:     sharedcfg.EnvOrDefault("KAFKA_SINK_TOPIC", "hazard-impact-reports"),
		KafkaGroupID:       sharedcfg.EnvOrDefault("KAFKA_GROUP_ID", "storm-hazard-impact"),
		HTTPAddr:           sharedcfg.EnvOrDefault("HTTP_ADDR", ":8080"),
		LogLevel:           sharedcfg.EnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:          sharedcfg.EnvOrDefault("LOG_FORMAT", "json"),
		ShutdownTimeout:    shutdownTimeout,
		BatchSize:          batchSize,
		BatchFlushInterval: flushInterval,

		NeighborhoodRadius: radius,
		HazardValue:        hazardValue,

		OverpassURL:       sharedcfg.EnvOrDefault("OVERPASS_URL", "https://overpass-api.de/api/interpreter"),
		OverpassEnabled:   os.Getenv("OVERPASS_ENABLED") == "true",
		OverpassTimeout:   overpassTimeout,
		OverpassCacheSize: parseOverpassCacheSize(),
	}

	if len(cfg.KafkaBrokers) == 0 {
		return nil, errors.New("KAFKA_BROKERS is required")
	}
	if cfg.KafkaSourceTopic == "" {
		return nil, errors.New("KAFKA_SOURCE_TOPIC is required")
	}
	if cfg.KafkaSinkTopic == "" {
		return nil, errors.New("KAFKA_SINK_TOPIC is required")
	}

	return cfg, nil
}

func parseNeighborhoodRadius() (int, error) {
	s := os.Getenv("NEIGHBORHOOD_RADIUS_PX")
	if s == "" {
		return domain.DefaultNeighborhoodRadius, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 || n > maxNeighborhoodRadius {
		return 0, fmt.Errorf("invalid NEIGHBORHOOD_RADIUS_PX: must be an integer between 0 and %d", maxNeighborhoodRadius)
	}
	return n, nil
}

// maxNeighborhoodRadius bounds the proximity window to 2001x2001 pixels.
const maxNeighborhoodRadius = 1000

func parseHazardValue() (float64, error) {
	s := os.Getenv("HAZARD_VALUE")
	if s == "" {
		return domain.DefaultHazardValue, nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, errors.New("invalid HAZARD_VALUE: must be a finite number")
	}
	return v, nil
}

func parseOverpassCacheSize() int {
	if s := os.Getenv("OVERPASS_CACHE_SIZE"); s != "" {
		if n, err := strconv.Atoi(s); err == nil && n > 0 {
			return n
		}
	}
	return 100
}
