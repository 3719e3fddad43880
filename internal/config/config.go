package config

import (
	"errors"
	"fmt"
	"os"
	"slices"
	"strconv"
	"strings"
	"time"

	sharedcfg "github.com/couchcryptid/storm-data-shared/config"
	"github.com/spf13/viper"

	"github.com/couchcryptid/quake-dashboard/internal/domain"
)

// Config holds all service settings. Values come from, in order of
// precedence, environment variables, an optional YAML file and defaults.
// A YAML key such as refresh.interval maps to REFRESH_INTERVAL.
type Config struct {
	HTTPAddr        string
	LogLevel        string
	LogFormat       string
	ShutdownTimeout time.Duration

	// USGS feed.
	FeedURL          string
	FeedTimeout      time.Duration
	FeedRateLimit    float64
	FeedEventLimit   int
	FeedMinMagnitude float64

	// Region of interest.
	Region   domain.BoundingBox
	Timezone string
	Location *time.Location

	DashboardDaysBack int
	RefreshInterval   int
	RefreshEnabled    bool
	NotifyDuration    time.Duration

	// Kafka notification sink.
	KafkaEnabled bool
	KafkaBrokers []string
	KafkaTopic   string

	// ConfigFile is the YAML file the values were read from, if any.
	ConfigFile string
}

// Refresh returns the auto-refresh settings.
func (c *Config) Refresh() domain.RefreshConfig {
	return domain.RefreshConfig{Interval: c.RefreshInterval, Enabled: c.RefreshEnabled}
}

var allowedDaysBack = []int{1, 7, 30}

func setDefaults(v *viper.Viper) {
	v.SetDefault("http.addr", ":8080")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("shutdown.timeout", "10s")

	v.SetDefault("feed.url", "https://earthquake.usgs.gov/fdsnws/event/1/query")
	v.SetDefault("feed.timeout", "10s")
	v.SetDefault("feed.rate_limit", "2")
	v.SetDefault("feed.event_limit", "500")
	v.SetDefault("feed.min_magnitude", "0")

	v.SetDefault("region.min_lat", strconv.FormatFloat(domain.DefaultRegion.MinLat, 'f', -1, 64))
	v.SetDefault("region.max_lat", strconv.FormatFloat(domain.DefaultRegion.MaxLat, 'f', -1, 64))
	v.SetDefault("region.min_lon", strconv.FormatFloat(domain.DefaultRegion.MinLon, 'f', -1, 64))
	v.SetDefault("region.max_lon", strconv.FormatFloat(domain.DefaultRegion.MaxLon, 'f', -1, 64))
	v.SetDefault("region.timezone", "America/Los_Angeles")

	v.SetDefault("dashboard.days_back", "1")
	v.SetDefault("refresh.interval", strconv.Itoa(domain.DefaultRefreshInterval))
	v.SetDefault("refresh.enabled", "true")
	v.SetDefault("notify.duration", "5s")

	v.SetDefault("kafka.enabled", "false")
	v.SetDefault("kafka.brokers", "localhost:9092")
	v.SetDefault("kafka.topic", "quake-notifications")
}

func newViper(path string) *viper.Viper {
	v := viper.New()
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	setDefaults(v)
	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
	}
	return v
}

// Load reads configuration from environment variables and, when CONFIG_FILE
// is set, from that YAML file.
func Load() (*Config, error) {
	return LoadFile(os.Getenv("CONFIG_FILE"))
}

// LoadFile reads configuration from environment variables and the YAML file
// at path. An empty path skips the file.
func LoadFile(path string) (*Config, error) {
	v := newViper(path)
	if path != "" {
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config file %s: %w", path, err)
		}
	}
	cfg, err := parse(v)
	if err != nil {
		return nil, err
	}
	cfg.ConfigFile = path
	return cfg, nil
}

func parse(v *viper.Viper) (*Config, error) {
	var errs []error
	str := func(key string) string {
		return strings.TrimSpace(v.GetString(key))
	}
	duration := func(key string) time.Duration {
		d, err := time.ParseDuration(str(key))
		if err != nil || d <= 0 {
			errs = append(errs, fmt.Errorf("invalid %s: %q", envName(key), str(key)))
		}
		return d
	}
	float := func(key string) float64 {
		f, err := strconv.ParseFloat(str(key), 64)
		if err != nil {
			errs = append(errs, fmt.Errorf("invalid %s: %q", envName(key), str(key)))
		}
		return f
	}
	integer := func(key string) int {
		n, err := strconv.Atoi(str(key))
		if err != nil {
			errs = append(errs, fmt.Errorf("invalid %s: %q", envName(key), str(key)))
		}
		return n
	}
	boolean := func(key string) bool {
		b, err := strconv.ParseBool(str(key))
		if err != nil {
			errs = append(errs, fmt.Errorf("invalid %s: %q", envName(key), str(key)))
		}
		return b
	}

	cfg := &Config{
		HTTPAddr:        str("http.addr"),
		LogLevel:        str("log.level"),
		LogFormat:       str("log.format"),
		ShutdownTimeout: duration("shutdown.timeout"),

		FeedURL:          str("feed.url"),
		FeedTimeout:      duration("feed.timeout"),
		FeedRateLimit:    float("feed.rate_limit"),
		FeedEventLimit:   integer("feed.event_limit"),
		FeedMinMagnitude: float("feed.min_magnitude"),

		Region: domain.BoundingBox{
			MinLat: float("region.min_lat"),
			MaxLat: float("region.max_lat"),
			MinLon: float("region.min_lon"),
			MaxLon: float("region.max_lon"),
		},
		Timezone: str("region.timezone"),

		DashboardDaysBack: integer("dashboard.days_back"),
		RefreshInterval:   domain.ParseInterval(str("refresh.interval")),
		RefreshEnabled:    boolean("refresh.enabled"),
		NotifyDuration:    duration("notify.duration"),

		KafkaEnabled: boolean("kafka.enabled"),
		KafkaBrokers: brokers(v),
		KafkaTopic:   str("kafka.topic"),
	}
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}

	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid REGION_TIMEZONE: %w", err)
	}
	cfg.Location = loc

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.HTTPAddr == "" {
		return errors.New("HTTP_ADDR is required")
	}
	if c.FeedURL == "" {
		return errors.New("FEED_URL is required")
	}
	if c.FeedRateLimit < 0 {
		return errors.New("FEED_RATE_LIMIT must not be negative")
	}
	if c.FeedEventLimit <= 0 {
		return errors.New("FEED_EVENT_LIMIT must be positive")
	}
	if c.Region.MinLat >= c.Region.MaxLat {
		return errors.New("REGION_MIN_LAT must be below REGION_MAX_LAT")
	}
	if c.Region.MinLon >= c.Region.MaxLon {
		return errors.New("REGION_MIN_LON must be below REGION_MAX_LON")
	}
	if c.Region.MinLat < -90 || c.Region.MaxLat > 90 {
		return errors.New("REGION_MIN_LAT and REGION_MAX_LAT must be within [-90, 90]")
	}
	if c.Region.MinLon < -180 || c.Region.MaxLon > 180 {
		return errors.New("REGION_MIN_LON and REGION_MAX_LON must be within [-180, 180]")
	}
	if !slices.Contains(allowedDaysBack, c.DashboardDaysBack) {
		return fmt.Errorf("DASHBOARD_DAYS_BACK must be one of %v", allowedDaysBack)
	}
	if c.KafkaEnabled {
		if len(c.KafkaBrokers) == 0 {
			return errors.New("KAFKA_ENABLED is true but KAFKA_BROKERS is empty")
		}
		if c.KafkaTopic == "" {
			return errors.New("KAFKA_ENABLED is true but KAFKA_TOPIC is empty")
		}
	}
	return nil
}

// envName converts a viper key to the environment variable that sets it.
func envName(key string) string {
	return strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
}

// brokers accepts either a YAML list or a comma-separated string.
func brokers(v *viper.Viper) []string {
	if _, ok := v.Get("kafka.brokers").([]any); ok {
		return sharedcfg.ParseBrokers(strings.Join(v.GetStringSlice("kafka.brokers"), ","))
	}
	return sharedcfg.ParseBrokers(v.GetString("kafka.brokers"))
}
