// Package config loads rental-cli settings from config.yaml and RENTAL_*
// environment variables.
package config

import (
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Store  StoreConfig  `yaml:"store" mapstructure:"store"`
	GIS    GISConfig    `yaml:"gis" mapstructure:"gis"`
	Import ImportConfig `yaml:"import" mapstructure:"import"`
	Tract  TractConfig  `yaml:"tract" mapstructure:"tract"`
	Server ServerConfig `yaml:"server" mapstructure:"server"`
	Log    LogConfig    `yaml:"log" mapstructure:"log"`
}

// StoreConfig selects the property store backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"` // postgres or sqlite
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
	SQLitePath  string `yaml:"sqlite_path" mapstructure:"sqlite_path"`
	MaxConns    int32  `yaml:"max_conns" mapstructure:"max_conns"`
}

// GISConfig configures the county parcel service client.
type GISConfig struct {
	BaseURL          string  `yaml:"base_url" mapstructure:"base_url"`
	TimeoutSecs      int     `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	RateLimit        float64 `yaml:"rate_limit" mapstructure:"rate_limit"` // requests/sec, 0 = unlimited
	BreakerThreshold int     `yaml:"breaker_threshold" mapstructure:"breaker_threshold"`
	BreakerResetSecs int     `yaml:"breaker_reset_secs" mapstructure:"breaker_reset_secs"`
}

// Timeout returns TimeoutSecs as a duration.
func (g GISConfig) Timeout() time.Duration {
	return time.Duration(g.TimeoutSecs) * time.Second
}

// ImportConfig tunes batch imports.
type ImportConfig struct {
	Concurrency      int `yaml:"concurrency" mapstructure:"concurrency"`
	ChunkSize        int `yaml:"chunk_size" mapstructure:"chunk_size"`
	ListingChunkSize int `yaml:"listing_chunk_size" mapstructure:"listing_chunk_size"`
	PaceMS           int `yaml:"pace_ms" mapstructure:"pace_ms"`
}

// Pace returns PaceMS as a duration.
func (i ImportConfig) Pace() time.Duration {
	return time.Duration(i.PaceMS) * time.Millisecond
}

// TractConfig points at an alternate tract table. Empty uses the built-in one.
type TractConfig struct {
	TablePath string `yaml:"table_path" mapstructure:"table_path"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Port           int      `yaml:"port" mapstructure:"port"`
	AllowedOrigins []string `yaml:"allowed_origins" mapstructure:"allowed_origins"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("RENTAL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("store.driver", "postgres")
	v.SetDefault("store.database_url", "")
	v.SetDefault("store.sqlite_path", "rental.db")
	v.SetDefault("store.max_conns", 10)
	v.SetDefault("gis.base_url", "https://gisportal.buttecounty.net/arcgis/rest/services/Parcels/ButteCountyParcels/MapServer/0")
	v.SetDefault("gis.timeout_secs", 10)
	v.SetDefault("gis.rate_limit", 5.0)
	v.SetDefault("gis.breaker_threshold", 5)
	v.SetDefault("gis.breaker_reset_secs", 30)
	v.SetDefault("import.concurrency", 3)
	v.SetDefault("import.chunk_size", 25)
	v.SetDefault("import.listing_chunk_size", 10)
	v.SetDefault("import.pace_ms", 500)
	v.SetDefault("tract.table_path", "")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.allowed_origins", []string{"*"})
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// Validate checks the settings a command needs. mode is "store" for
// commands that open the property store, "gis" for lookups, or "import"
// for both plus import tuning.
func (c *Config) Validate(mode string) error {
	var missing []string

	checkStore := func() {
		switch c.Store.Driver {
		case "postgres":
			if c.Store.DatabaseURL == "" {
				missing = append(missing, "store.database_url")
			}
		case "sqlite":
			if c.Store.SQLitePath == "" {
				missing = append(missing, "store.sqlite_path")
			}
		default:
			missing = append(missing, "store.driver (postgres|sqlite)")
		}
	}
	checkGIS := func() {
		if c.GIS.BaseURL == "" {
			missing = append(missing, "gis.base_url")
		}
		if c.GIS.TimeoutSecs <= 0 {
			missing = append(missing, "gis.timeout_secs")
		}
	}

	switch mode {
	case "store":
		checkStore()
	case "gis":
		checkGIS()
	case "import":
		checkStore()
		checkGIS()
		if c.Import.Concurrency <= 0 {
			missing = append(missing, "import.concurrency")
		}
		if c.Import.PaceMS < 0 {
			missing = append(missing, "import.pace_ms")
		}
	default:
		return eris.Errorf("config: unknown validation mode %q", mode)
	}

	if len(missing) > 0 {
		return eris.Errorf("config: missing or invalid: %s", strings.Join(missing, ", "))
	}
	return nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
