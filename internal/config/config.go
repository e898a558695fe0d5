package config

import (
	"strings"
	"time"

	"github.com/spf13/viper"

	"optionchains/internal/rollchain"
)

type Config struct {
	App       AppConfig       `mapstructure:"app"`
	Server    ServerConfig    `mapstructure:"server"`
	Log       LogConfig       `mapstructure:"log"`
	DB        DBConfig        `mapstructure:"db"`
	Cron      CronConfig      `mapstructure:"cron"`
	Broker    BrokerConfig    `mapstructure:"broker"`
	Detection DetectionConfig `mapstructure:"detection"`
	OrderSync OrderSyncConfig `mapstructure:"order_sync"`
}

type AppConfig struct {
	Env string `mapstructure:"env"`
}

type ServerConfig struct {
	HTTPAddr        string        `mapstructure:"http_addr"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	// APIToken guards /api and /swagger when set.
	APIToken string `mapstructure:"api_token"`
}

type LogConfig struct {
	Level             string `mapstructure:"level"`
	Encoding          string `mapstructure:"encoding"`
	Development       bool   `mapstructure:"development"`
	Sampling          bool   `mapstructure:"sampling"`
	DisableCaller     bool   `mapstructure:"disable_caller"`
	DisableStacktrace bool   `mapstructure:"disable_stacktrace"`
	// FilePath adds a rotated JSON log file next to stdout when set.
	FilePath   string `mapstructure:"file_path"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days"`
}

type DBConfig struct {
	DSN             string        `mapstructure:"dsn"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `mapstructure:"conn_max_idle_time"`
	Timezone        string        `mapstructure:"timezone"`
	AutoMigrate     bool          `mapstructure:"auto_migrate"`
}

type CronConfig struct {
	Enabled        bool   `mapstructure:"enabled"`
	OrderSync      string `mapstructure:"order_sync"`
	ChainDetection string `mapstructure:"chain_detection"`
}

// BrokerConfig selects the order source. Kind "http" talks to the brokerage
// API; kind "file" reads per-user JSON exports from FileDir.
type BrokerConfig struct {
	Kind     string        `mapstructure:"kind"`
	BaseURL  string        `mapstructure:"base_url"`
	Token    string        `mapstructure:"token"`
	Timeout  time.Duration `mapstructure:"timeout"`
	PageSize int           `mapstructure:"page_size"`
	MaxPages int           `mapstructure:"max_pages"`
	FileDir  string        `mapstructure:"file_dir"`
	Breaker  BreakerConfig `mapstructure:"breaker"`
}

type BreakerConfig struct {
	Enabled          bool          `mapstructure:"enabled"`
	MaxRequests      uint32        `mapstructure:"max_requests"`
	Interval         time.Duration `mapstructure:"interval"`
	Timeout          time.Duration `mapstructure:"timeout"`
	FailureThreshold uint32        `mapstructure:"failure_threshold"`
}

type DetectionConfig struct {
	MaxChainDays        int      `mapstructure:"max_chain_days"`
	WindowDays          int      `mapstructure:"window_days"`
	HistoryLookbackDays int      `mapstructure:"history_lookback_days"`
	GroupWorkers        int      `mapstructure:"group_workers"`
	Users               []string `mapstructure:"users"`
}

// RollchainConfig maps the detection knobs onto the detector's config.
func (c DetectionConfig) RollchainConfig() rollchain.Config {
	cfg := rollchain.DefaultConfig()
	if c.MaxChainDays > 0 {
		cfg.MaxChainSpan = time.Duration(c.MaxChainDays) * 24 * time.Hour
	}
	return cfg
}

type OrderSyncConfig struct {
	OverlapWindow time.Duration `mapstructure:"overlap_window"`
	BatchSize     int           `mapstructure:"batch_size"`
}

func Load(path string, envOnly bool) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("OC")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	v.AutomaticEnv()
	setDefaults(v)

	if !envOnly {
		if err := v.ReadInConfig(); err != nil {
			return Config{}, err
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, err
	}
	cfg.Detection.Users = splitList(cfg.Detection.Users)
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.env", "dev")
	v.SetDefault("server.http_addr", ":8080")
	v.SetDefault("server.shutdown_timeout", "10s")
	v.SetDefault("server.api_token", "")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.encoding", "console")
	v.SetDefault("log.development", true)
	v.SetDefault("log.sampling", false)
	v.SetDefault("log.disable_caller", false)
	v.SetDefault("log.disable_stacktrace", false)
	v.SetDefault("log.file_path", "")
	v.SetDefault("log.max_size_mb", 100)
	v.SetDefault("log.max_backups", 7)
	v.SetDefault("log.max_age_days", 30)
	v.SetDefault("db.dsn", "")
	v.SetDefault("db.max_open_conns", 20)
	v.SetDefault("db.max_idle_conns", 5)
	v.SetDefault("db.conn_max_lifetime", "30m")
	v.SetDefault("db.conn_max_idle_time", "5m")
	v.SetDefault("db.timezone", "UTC")
	v.SetDefault("db.auto_migrate", true)
	v.SetDefault("cron.enabled", true)
	v.SetDefault("cron.order_sync", "@every 30m")
	v.SetDefault("cron.chain_detection", "@every 1h")

	v.SetDefault("broker.kind", "http")
	v.SetDefault("broker.base_url", "https://api.robinhood.com")
	v.SetDefault("broker.token", "")
	v.SetDefault("broker.timeout", "20s")
	v.SetDefault("broker.page_size", 100)
	v.SetDefault("broker.max_pages", 200)
	v.SetDefault("broker.file_dir", "data/orders")
	v.SetDefault("broker.breaker.enabled", true)
	v.SetDefault("broker.breaker.max_requests", 1)
	v.SetDefault("broker.breaker.interval", "1m")
	v.SetDefault("broker.breaker.timeout", "2m")
	v.SetDefault("broker.breaker.failure_threshold", 3)

	v.SetDefault("detection.max_chain_days", 240)
	v.SetDefault("detection.window_days", 120)
	v.SetDefault("detection.history_lookback_days", 365)
	v.SetDefault("detection.group_workers", 4)
	v.SetDefault("detection.users", []string{})

	v.SetDefault("order_sync.overlap_window", "24h")
	v.SetDefault("order_sync.batch_size", 500)
}

// splitList flattens comma separated entries, which is how list values
// arrive from the environment.
func splitList(items []string) []string {
	out := make([]string, 0, len(items))
	for _, item := range items {
		for _, p := range strings.Split(item, ",") {
			if p = strings.TrimSpace(p); p != "" {
				out = append(out, p)
			}
		}
	}
	return out
}
