// Package config 提供 TOML 配置加载、环境变量覆盖、命令行参数覆盖与校验
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Config 基础配置结构
type Config struct {
	// 服务名称
	ServiceName string `mapstructure:"service_name"`
	// 服务版本
	Version string `mapstructure:"version"`
	// 环境：dev, staging, prod
	Environment string `mapstructure:"environment"`
	// HTTP 服务配置
	HTTP HTTPConfig `mapstructure:"http"`
	// gRPC 服务配置
	GRPC GRPCConfig `mapstructure:"grpc"`
	// 数据库配置
	Database DatabaseConfig `mapstructure:"database"`
	// Redis 配置
	Redis RedisConfig `mapstructure:"redis"`
	// Kafka 配置
	Kafka KafkaConfig `mapstructure:"kafka"`
	// 日志配置
	Logger LoggerConfig `mapstructure:"logger"`
	// 追踪配置
	Tracing TracingConfig `mapstructure:"tracing"`
	// 指标配置
	Metrics MetricsConfig `mapstructure:"metrics"`
	// 限流配置
	RateLimit RateLimitConfig `mapstructure:"ratelimit"`
	// 行情源配置
	MarketData MarketDataConfig `mapstructure:"market_data"`
	// 定价参数
	Pricing PricingConfig `mapstructure:"pricing"`
}

// HTTPConfig HTTP 服务配置
type HTTPConfig struct {
	Host         string `mapstructure:"host"`
	Port         int    `mapstructure:"port"`
	ReadTimeout  int    `mapstructure:"read_timeout"`  // 秒
	WriteTimeout int    `mapstructure:"write_timeout"` // 秒
}

// Addr 监听地址
func (c HTTPConfig) Addr() string { return fmt.Sprintf("%s:%d", c.Host, c.Port) }

// GRPCConfig gRPC 服务配置
type GRPCConfig struct {
	Host                 string `mapstructure:"host"`
	Port                 int    `mapstructure:"port"`
	MaxConcurrentStreams int    `mapstructure:"max_concurrent_streams"`
	IdleTimeout          int    `mapstructure:"idle_timeout"` // 秒
	Reflection           bool   `mapstructure:"reflection"`
}

// Addr 监听地址
func (c GRPCConfig) Addr() string { return fmt.Sprintf("%s:%d", c.Host, c.Port) }

// DatabaseConfig 数据库配置
type DatabaseConfig struct {
	Enabled bool `mapstructure:"enabled"`
	// 驱动：mysql, postgres, clickhouse
	Driver             string `mapstructure:"driver"`
	DSN                string `mapstructure:"dsn"`
	MaxOpenConns       int    `mapstructure:"max_open_conns"`
	MaxIdleConns       int    `mapstructure:"max_idle_conns"`
	ConnMaxLifetime    int    `mapstructure:"conn_max_lifetime"` // 秒
	LogEnabled         bool   `mapstructure:"log_enabled"`
	SlowQueryThreshold int    `mapstructure:"slow_query_threshold"` // 毫秒
	AutoMigrate        bool   `mapstructure:"auto_migrate"`
	ConnectRetries     int    `mapstructure:"connect_retries"`
}

// RedisConfig Redis 配置
type RedisConfig struct {
	Enabled      bool   `mapstructure:"enabled"`
	Host         string `mapstructure:"host"`
	Port         int    `mapstructure:"port"`
	Password     string `mapstructure:"password"`
	DB           int    `mapstructure:"db"`
	MaxPoolSize  int    `mapstructure:"max_pool_size"`
	ConnTimeout  int    `mapstructure:"conn_timeout"`  // 秒
	ReadTimeout  int    `mapstructure:"read_timeout"`  // 秒
	WriteTimeout int    `mapstructure:"write_timeout"` // 秒
}

// KafkaConfig Kafka 配置
type KafkaConfig struct {
	Enabled           bool     `mapstructure:"enabled"`
	Brokers           []string `mapstructure:"brokers"`
	Topic             string   `mapstructure:"topic"`
	MaxRetries        int      `mapstructure:"max_retries"`
	RetryBackoff      int      `mapstructure:"retry_backoff"` // 毫秒
	EnableCompression bool     `mapstructure:"enable_compression"`
}

// LoggerConfig 日志配置
type LoggerConfig struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"`
	Output     string `mapstructure:"output"`
	FilePath   string `mapstructure:"file_path"`
	MaxSize    int    `mapstructure:"max_size"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAge     int    `mapstructure:"max_age"`
	Compress   bool   `mapstructure:"compress"`
	WithCaller bool   `mapstructure:"with_caller"`
}

// TracingConfig 追踪配置
type TracingConfig struct {
	Enabled           bool    `mapstructure:"enabled"`
	CollectorEndpoint string  `mapstructure:"collector_endpoint"`
	SamplingRate      float64 `mapstructure:"sampling_rate"`
}

// MetricsConfig 指标配置
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Port    int    `mapstructure:"port"`
	Path    string `mapstructure:"path"`
}

// RateLimitConfig 按客户端限流
type RateLimitConfig struct {
	Enabled bool    `mapstructure:"enabled"`
	QPS     float64 `mapstructure:"qps"`
	Burst   int     `mapstructure:"burst"`
}

// MarketDataConfig 期权链行情源
type MarketDataConfig struct {
	// Provider：yahoo 或 static
	Provider       string `mapstructure:"provider"`
	BaseURL        string `mapstructure:"base_url"`
	UserAgent      string `mapstructure:"user_agent"`
	Timeout        int    `mapstructure:"timeout"` // 秒
	MaxExpirations int    `mapstructure:"max_expirations"`
	// 缓存 TTL（秒），local 为进程内一级缓存
	CacheTTL      int `mapstructure:"cache_ttl"`
	LocalCacheTTL int `mapstructure:"local_cache_ttl"`
	// 熔断器
	BreakerMaxRequests      uint32 `mapstructure:"breaker_max_requests"`
	BreakerInterval         int    `mapstructure:"breaker_interval"` // 秒
	BreakerTimeout          int    `mapstructure:"breaker_timeout"`  // 秒
	BreakerFailureThreshold uint32 `mapstructure:"breaker_failure_threshold"`
}

// PricingConfig 定价相关默认值与上限
type PricingConfig struct {
	NodeID            int64 `mapstructure:"node_id"`
	SurfaceSamples    int   `mapstructure:"surface_samples"`
	MaxSurfaceSamples int   `mapstructure:"max_surface_samples"`
	PayoffPoints      int   `mapstructure:"payoff_points"`
	HistoryLimit      int   `mapstructure:"history_limit"`
	MaxHistoryLimit   int   `mapstructure:"max_history_limit"`
	ResultCacheTTL    int   `mapstructure:"result_cache_ttl"` // 秒
}

// ResultCacheTTLDuration 最新结果缓存 TTL
func (c PricingConfig) ResultCacheTTLDuration() time.Duration {
	return time.Duration(c.ResultCacheTTL) * time.Second
}

// Flags 返回可覆盖配置的命令行参数集
func Flags(name string) *pflag.FlagSet {
	fs := pflag.NewFlagSet(name, pflag.ContinueOnError)
	fs.String("config", GetEnv("APP_CONFIG", "configs/pricing/config.toml"), "path to the TOML config file")
	fs.Int("http.port", 0, "override HTTP port")
	fs.Int("grpc.port", 0, "override gRPC port")
	fs.String("logger.level", "", "override log level")
	return fs
}

// Load 从 TOML 文件加载配置，文件必须存在
func Load(configPath string, flags *pflag.FlagSet) (*Config, error) {
	return load(configPath, flags, true)
}

// LoadWithDefaults 从 TOML 文件加载配置，文件不存在时仅使用默认值
func LoadWithDefaults(configPath string, flags *pflag.FlagSet) (*Config, error) {
	return load(configPath, flags, false)
}

func load(configPath string, flags *pflag.FlagSet, strict bool) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetConfigFile(configPath)
	v.SetConfigType("toml")
	if err := v.ReadInConfig(); err != nil && strict {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	// 环境变量覆盖：APP_HTTP_PORT -> http.port
	v.SetEnvPrefix("APP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if flags != nil {
		// 只绑定显式传入的参数，避免零值覆盖文件配置
		var bindErr error
		flags.Visit(func(f *pflag.Flag) {
			if f.Name == "config" || bindErr != nil {
				return
			}
			bindErr = v.BindPFlag(f.Name, f)
		})
		if bindErr != nil {
			return nil, fmt.Errorf("failed to bind flags: %w", bindErr)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return &cfg, nil
}

// Validate 验证配置的有效性
func (c *Config) Validate() error {
	if c.ServiceName == "" {
		return fmt.Errorf("service_name is required")
	}
	if c.Environment == "" {
		c.Environment = "dev"
	}
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("invalid HTTP port: %d", c.HTTP.Port)
	}
	if c.GRPC.Port <= 0 || c.GRPC.Port > 65535 {
		return fmt.Errorf("invalid gRPC port: %d", c.GRPC.Port)
	}
	if c.Database.Enabled {
		switch c.Database.Driver {
		case "mysql", "postgres", "clickhouse":
		default:
			return fmt.Errorf("unsupported database driver: %s", c.Database.Driver)
		}
		if c.Database.DSN == "" {
			return fmt.Errorf("database DSN is required for %s driver", c.Database.Driver)
		}
	}
	if c.Kafka.Enabled && len(c.Kafka.Brokers) == 0 {
		return fmt.Errorf("kafka brokers are required when kafka is enabled")
	}
	switch c.MarketData.Provider {
	case "yahoo", "static":
	default:
		return fmt.Errorf("unsupported market data provider: %s", c.MarketData.Provider)
	}
	if c.Pricing.SurfaceSamples < 2 {
		return fmt.Errorf("pricing.surface_samples must be >= 2, got %d", c.Pricing.SurfaceSamples)
	}
	if c.Pricing.MaxSurfaceSamples < c.Pricing.SurfaceSamples {
		return fmt.Errorf("pricing.max_surface_samples must be >= surface_samples")
	}
	if c.Pricing.PayoffPoints < 2 {
		return fmt.Errorf("pricing.payoff_points must be >= 2, got %d", c.Pricing.PayoffPoints)
	}
	if c.Pricing.NodeID < 0 || c.Pricing.NodeID > 1023 {
		return fmt.Errorf("pricing.node_id must be in [0, 1023], got %d", c.Pricing.NodeID)
	}
	return nil
}

// setDefaults 设置默认值
func setDefaults(v *viper.Viper) {
	v.SetDefault("service_name", "pricing")
	v.SetDefault("version", "dev")
	v.SetDefault("environment", "dev")

	v.SetDefault("http.host", "0.0.0.0")
	v.SetDefault("http.port", 8080)
	v.SetDefault("http.read_timeout", 30)
	v.SetDefault("http.write_timeout", 30)

	v.SetDefault("grpc.host", "0.0.0.0")
	v.SetDefault("grpc.port", 50051)
	v.SetDefault("grpc.max_concurrent_streams", 1000)
	v.SetDefault("grpc.idle_timeout", 300)
	v.SetDefault("grpc.reflection", true)

	v.SetDefault("database.enabled", false)
	v.SetDefault("database.driver", "mysql")
	v.SetDefault("database.dsn", "")
	v.SetDefault("database.max_open_conns", 25)
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.conn_max_lifetime", 300)
	v.SetDefault("database.log_enabled", false)
	v.SetDefault("database.slow_query_threshold", 1000)
	v.SetDefault("database.auto_migrate", true)
	v.SetDefault("database.connect_retries", 5)

	v.SetDefault("redis.enabled", false)
	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.max_pool_size", 10)
	v.SetDefault("redis.conn_timeout", 5)
	v.SetDefault("redis.read_timeout", 3)
	v.SetDefault("redis.write_timeout", 3)

	v.SetDefault("kafka.enabled", false)
	v.SetDefault("kafka.brokers", []string{})
	v.SetDefault("kafka.topic", "pricing.events")
	v.SetDefault("kafka.max_retries", 3)
	v.SetDefault("kafka.retry_backoff", 100)
	v.SetDefault("kafka.enable_compression", false)

	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "json")
	v.SetDefault("logger.output", "stdout")
	v.SetDefault("logger.file_path", "logs/pricing.log")
	v.SetDefault("logger.max_size", 100)
	v.SetDefault("logger.max_backups", 10)
	v.SetDefault("logger.max_age", 30)
	v.SetDefault("logger.compress", true)
	v.SetDefault("logger.with_caller", true)

	v.SetDefault("tracing.enabled", false)
	v.SetDefault("tracing.collector_endpoint", "localhost:4317")
	v.SetDefault("tracing.sampling_rate", 1.0)

	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.port", 9090)
	v.SetDefault("metrics.path", "/metrics")

	v.SetDefault("ratelimit.enabled", true)
	v.SetDefault("ratelimit.qps", 50.0)
	v.SetDefault("ratelimit.burst", 100)

	v.SetDefault("market_data.provider", "yahoo")
	v.SetDefault("market_data.base_url", "https://query2.finance.yahoo.com")
	v.SetDefault("market_data.user_agent", "Mozilla/5.0 (optionpricing)")
	v.SetDefault("market_data.timeout", 10)
	v.SetDefault("market_data.max_expirations", 0)
	v.SetDefault("market_data.cache_ttl", 300)
	v.SetDefault("market_data.local_cache_ttl", 60)
	v.SetDefault("market_data.breaker_max_requests", 1)
	v.SetDefault("market_data.breaker_interval", 60)
	v.SetDefault("market_data.breaker_timeout", 30)
	v.SetDefault("market_data.breaker_failure_threshold", 5)

	v.SetDefault("pricing.node_id", 1)
	v.SetDefault("pricing.surface_samples", 20)
	v.SetDefault("pricing.max_surface_samples", 200)
	v.SetDefault("pricing.payoff_points", 100)
	v.SetDefault("pricing.history_limit", 50)
	v.SetDefault("pricing.max_history_limit", 500)
	v.SetDefault("pricing.result_cache_ttl", 900)
}

// GetEnv 获取环境变量，支持默认值
func GetEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
