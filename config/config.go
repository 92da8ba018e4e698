package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"cryptoconverter/pkg/binance"

	"github.com/spf13/viper"
)

type Config struct {
	Binance  BinanceConfig  `mapstructure:"binance"`
	Flush    FlushConfig    `mapstructure:"flush"`
	Exchange ExchangeConfig `mapstructure:"exchange"`
	Redis    RedisConfig    `mapstructure:"redis"`
	Log      LogConfig      `mapstructure:"log"`
	Postgres PostgresConfig `mapstructure:"postgres"`
}

type BinanceConfig struct {
	REST RESTConfig `mapstructure:"rest"`
	WS   WSConfig   `mapstructure:"ws"`
}

type RESTConfig struct {
	BaseURL string        `mapstructure:"base_url"`
	Timeout time.Duration `mapstructure:"timeout"`
	Warmup  bool          `mapstructure:"warmup"`  // seed the price cache from the 24h ticker endpoint on start
	Symbols []string      `mapstructure:"symbols"` // warm-up filter; empty means every symbol
}

type WSConfig struct {
	URL              string        `mapstructure:"url"`    // base URL, e.g. wss://stream.binance.com:9443/stream?streams=
	Stream           string        `mapstructure:"stream"` // appended to URL
	Subscribe        string        `mapstructure:"subscribe"`
	ReadTimeout      time.Duration `mapstructure:"read_timeout"` // 0 disables the read deadline
	HandshakeTimeout time.Duration `mapstructure:"handshake_timeout"`
}

// Endpoint returns the full websocket URL to dial.
func (c WSConfig) Endpoint() string {
	return c.URL + c.Stream
}

type FlushConfig struct {
	IntervalSec int `mapstructure:"interval_sec"`
	TimeoutSec  int `mapstructure:"timeout_sec"` // per sink write
}

func (c FlushConfig) Interval() time.Duration { return time.Duration(c.IntervalSec) * time.Second }
func (c FlushConfig) Timeout() time.Duration  { return time.Duration(c.TimeoutSec) * time.Second }

type ExchangeConfig struct {
	ExpirationSec   int `mapstructure:"expiration_sec"`
	QuotePrecision  int `mapstructure:"quote_precision"`
	TargetPrecision int `mapstructure:"target_precision"`
}

// Expiration is the maximum age a tick may have and still be used for conversion.
func (c ExchangeConfig) Expiration() time.Duration {
	return time.Duration(c.ExpirationSec) * time.Second
}

// Options defines the logger configuration options.
type LogConfig struct {
	Level       string `mapstructure:"level"`       // log level: "debug", "info", "warn", "error"
	Format      string `mapstructure:"format"`      // log format: "json" or "console"
	OutputFile  string `mapstructure:"output_file"` // file path to store logs (optional)
	Environment string `mapstructure:"environment"` // environment: "dev" or "prod"
}

// legacyEnv lists environment variable names kept for deployments of the
// previous consumer. The first name is the one derived from the key.
var legacyEnv = map[string][]string{
	"binance.ws.url":            {"BINANCE_WS_URL", "BINANCE_STREAM_BASE_URL"},
	"binance.ws.stream":         {"BINANCE_WS_STREAM", "BINANCE_STREAM_NAME"},
	"flush.interval_sec":        {"FLUSH_INTERVAL_SEC", "REDIS_FLUSH_TIMEOUT"},
	"redis.expiry_sec":          {"REDIS_EXPIRY_SEC", "REDIS_EXPIRY_TIME"},
	"exchange.expiration_sec":   {"EXCHANGE_EXPIRATION_SEC", "TICKER_EXPIRATION_SEC"},
	"exchange.quote_precision":  {"EXCHANGE_QUOTE_PRECISION", "QUOTE_PRICE_PRECISION"},
	"exchange.target_precision": {"EXCHANGE_TARGET_PRECISION", "QUOTE_TARGET_PRECISION"},
	"log.level":                 {"LOG_LEVEL"},
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("binance.ws.url", binance.DefaultStreamURL)
	v.SetDefault("binance.ws.stream", "")
	v.SetDefault("binance.ws.subscribe", "!ticker@arr")
	v.SetDefault("binance.ws.read_timeout", "0s")
	v.SetDefault("binance.ws.handshake_timeout", "10s")
	v.SetDefault("binance.rest.base_url", binance.DefaultRESTURL)
	v.SetDefault("binance.rest.timeout", "10s")
	v.SetDefault("binance.rest.warmup", false)
	v.SetDefault("binance.rest.symbols", []string{})

	v.SetDefault("flush.interval_sec", 30)
	v.SetDefault("flush.timeout_sec", 20)

	v.SetDefault("exchange.expiration_sec", 60)
	v.SetDefault("exchange.quote_precision", 6)
	v.SetDefault("exchange.target_precision", 12)

	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.key_prefix", "")
	v.SetDefault("redis.expiry_sec", 3600)
	v.SetDefault("redis.dial_timeout", "5s")

	v.SetDefault("postgres.host", "localhost")
	v.SetDefault("postgres.port", 5432)
	v.SetDefault("postgres.user", "postgres")
	v.SetDefault("postgres.password", "postgres")
	v.SetDefault("postgres.dbname", "postgres")
	v.SetDefault("postgres.sslmode", "disable")
	v.SetDefault("postgres.timezone", "UTC")
	v.SetDefault("postgres.max_open_conns", 10)
	v.SetDefault("postgres.max_idle_conns", 5)
	v.SetDefault("postgres.conn_max_lifetime", "1h")
	v.SetDefault("postgres.create_db", false)
	v.SetDefault("postgres.ssm.host", "CONVERTER_DB_HOST")
	v.SetDefault("postgres.ssm.user", "CONVERTER_DB_USER")
	v.SetDefault("postgres.ssm.password", "CONVERTER_DB_PASSWORD")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("log.output_file", "")
	v.SetDefault("log.environment", "dev")
}

// New returns a viper instance with defaults, env bindings and config search
// paths set. configFile overrides the search when non-empty.
func New(configFile string) *viper.Viper {
	v := viper.New()
	setDefaults(v)

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("config") // config.yaml
		v.SetConfigType("yaml")

		ex, _ := os.Executable()
		if strings.Contains(ex, "go-build") {
			pwd, _ := os.Getwd()
			v.AddConfigPath(filepath.Join(pwd, "../../config"))
		} else {
			v.AddConfigPath(filepath.Join(filepath.Dir(ex), "../config"))
		}
		v.AddConfigPath("./config")
	}

	// Support environment variables with dot notation (e.g., BINANCE_WS_URL)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for key, names := range legacyEnv {
		_ = v.BindEnv(append([]string{key}, names...)...)
	}

	return v
}

// Load reads configuration from an optional config.yaml and the environment.
// A missing config file is not an error: every key has a default.
func Load(configFile string) (*Config, error) {
	return FromViper(New(configFile))
}

// FromViper reads the config file known to v, if any, and decodes it.
func FromViper(v *viper.Viper) (*Config, error) {
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate checks values that would otherwise break the flush or conversion paths.
func (c *Config) Validate() error {
	switch {
	case c.Binance.WS.URL == "":
		return errors.New("config: binance.ws.url is required")
	case c.Flush.IntervalSec <= 0:
		return fmt.Errorf("config: flush.interval_sec must be positive, got %d", c.Flush.IntervalSec)
	case c.Flush.TimeoutSec <= 0:
		return fmt.Errorf("config: flush.timeout_sec must be positive, got %d", c.Flush.TimeoutSec)
	case c.Redis.ExpirySec <= 0:
		return fmt.Errorf("config: redis.expiry_sec must be positive, got %d", c.Redis.ExpirySec)
	case c.Exchange.ExpirationSec <= 0:
		return fmt.Errorf("config: exchange.expiration_sec must be positive, got %d", c.Exchange.ExpirationSec)
	case c.Exchange.QuotePrecision < 0:
		return fmt.Errorf("config: exchange.quote_precision must not be negative, got %d", c.Exchange.QuotePrecision)
	case c.Exchange.TargetPrecision < c.Exchange.QuotePrecision:
		return fmt.Errorf("config: exchange.target_precision (%d) is lower than quote_precision (%d)",
			c.Exchange.TargetPrecision, c.Exchange.QuotePrecision)
	}
	return nil
}
