// Package config はアプリケーション設定の読み込みを提供します。
//
// 優先順位（高い順）: コマンドラインフラグ > 環境変数（TRACKER_ 接頭辞）> 設定ファイル（YAML）> 既定値。
// 起動時に .env があれば環境変数として読み込みます。
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const (
	envPrefix         = "TRACKER"
	defaultConfigPath = "config/config.yaml"

	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// Config is the root of the application settings.
type Config struct {
	Feed   FeedConfig   `mapstructure:"feed"`
	Engine EngineConfig `mapstructure:"engine"`
	Cache  CacheConfig  `mapstructure:"cache"`
	Store  StoreConfig  `mapstructure:"store"`
	HTTP   HTTPConfig   `mapstructure:"http"`
	Log    LogConfig    `mapstructure:"log"`
}

// FeedConfig は行情フィードへの接続設定です。
type FeedConfig struct {
	QuoteBaseURL string        `mapstructure:"quote_base_url"`
	KlineBaseURL string        `mapstructure:"kline_base_url"`
	Referer      string        `mapstructure:"referer"`
	Timeout      time.Duration `mapstructure:"timeout"`
	Proxy        string        `mapstructure:"proxy"` // empty: use HTTP_PROXY etc.
	KlineBars    int           `mapstructure:"kline_bars"`
}

// EngineConfig は同期エンジンの設定です。
type EngineConfig struct {
	Seed            string        `mapstructure:"seed"`
	QuoteInterval   time.Duration `mapstructure:"quote_interval"`
	KlineInterval   time.Duration `mapstructure:"kline_interval"`
	EventBuffer     int           `mapstructure:"event_buffer"`
	CommandBuffer   int           `mapstructure:"command_buffer"`
	KlineRateLimit  int           `mapstructure:"kline_rate_limit"` // requests per KlineRatePeriod, 0 = unlimited
	KlineRatePeriod time.Duration `mapstructure:"kline_rate_period"`
}

// CacheConfig はK線キャッシュ（Redis）の設定です。
type CacheConfig struct {
	Enabled   bool          `mapstructure:"enabled"`
	Addr      string        `mapstructure:"addr"`
	Password  string        `mapstructure:"password"`
	DB        int           `mapstructure:"db"`
	TTL       time.Duration `mapstructure:"ttl"`
	Namespace string        `mapstructure:"namespace"`
}

// StoreConfig はウォッチリストの保存先です。
type StoreConfig struct {
	Driver         string        `mapstructure:"driver"` // sqlite or postgres
	DSN            string        `mapstructure:"dsn"`
	ConnectTimeout time.Duration `mapstructure:"connect_timeout"`
	Migrate        bool          `mapstructure:"migrate"`
}

// HTTPConfig はHTTPサーバーの設定です。
type HTTPConfig struct {
	Addr         string   `mapstructure:"addr"`
	StreamBuffer int      `mapstructure:"stream_buffer"`
	AllowOrigins []string `mapstructure:"allow_origins"`
}

// LogConfig はロガーの設定です。
type LogConfig struct {
	Level       string `mapstructure:"level"`
	Development bool   `mapstructure:"development"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("feed.quote_base_url", "http://hq.sinajs.cn")
	v.SetDefault("feed.kline_base_url", "https://quotes.sina.cn/cn/api/json_v2.php/CN_MarketDataService.getKLineData")
	v.SetDefault("feed.referer", "https://finance.sina.com.cn")
	v.SetDefault("feed.timeout", 10*time.Second)
	v.SetDefault("feed.proxy", "")
	v.SetDefault("feed.kline_bars", 100)

	v.SetDefault("engine.seed", "")
	v.SetDefault("engine.quote_interval", 200*time.Millisecond)
	v.SetDefault("engine.kline_interval", 60*time.Second)
	v.SetDefault("engine.event_buffer", 256)
	v.SetDefault("engine.command_buffer", 64)
	v.SetDefault("engine.kline_rate_limit", 5)
	v.SetDefault("engine.kline_rate_period", time.Second)

	v.SetDefault("cache.enabled", false)
	v.SetDefault("cache.addr", "localhost:6379")
	v.SetDefault("cache.password", "")
	v.SetDefault("cache.db", 0)
	v.SetDefault("cache.ttl", 30*time.Second)
	v.SetDefault("cache.namespace", "klines")

	v.SetDefault("store.driver", DriverSQLite)
	v.SetDefault("store.dsn", "tracker.db")
	v.SetDefault("store.connect_timeout", 30*time.Second)
	v.SetDefault("store.migrate", true)

	v.SetDefault("http.addr", ":8080")
	v.SetDefault("http.stream_buffer", 64)
	v.SetDefault("http.allow_origins", []string{"*"})

	v.SetDefault("log.level", "info")
	v.SetDefault("log.development", false)
}

// Load はフラグ（args は os.Args[1:]）、.env、環境変数、設定ファイルから設定を読み込みます。
// 設定ファイルが存在しない場合は既定値で続行します。
func Load(args []string) (*Config, error) {
	fs := pflag.NewFlagSet("tracker", pflag.ContinueOnError)
	configPath := fs.String("config", defaultConfigPath, "path to the YAML config file")
	fs.String("seed", "", "comma separated symbols to track on first start, e.g. sh600000,sz000001")
	fs.String("addr", "", "HTTP listen address")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	// .env は任意
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.BindPFlag("engine.seed", fs.Lookup("seed")); err != nil {
		return nil, err
	}
	if err := v.BindPFlag("http.addr", fs.Lookup("addr")); err != nil {
		return nil, err
	}

	v.SetConfigFile(*configPath)
	if err := v.ReadInConfig(); err != nil {
		var nf viper.ConfigFileNotFoundError
		if !errors.As(err, &nf) && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("read config %s: %w", *configPath, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks values that would otherwise fail late at runtime.
func (c *Config) Validate() error {
	var errs []error
	switch c.Store.Driver {
	case DriverSQLite, DriverPostgres:
	default:
		errs = append(errs, fmt.Errorf("store.driver: unsupported %q", c.Store.Driver))
	}
	if c.Engine.QuoteInterval <= 0 {
		errs = append(errs, errors.New("engine.quote_interval must be positive"))
	}
	if c.Engine.KlineInterval <= 0 {
		errs = append(errs, errors.New("engine.kline_interval must be positive"))
	}
	if c.Feed.Timeout <= 0 {
		errs = append(errs, errors.New("feed.timeout must be positive"))
	}
	return errors.Join(errs...)
}
