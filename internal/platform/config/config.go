package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Cfg 是一个全局变量，用于存储所有应用程序的配置
var Cfg *Config

// 数据库驱动
const (
	DriverSqlite   = "sqlite"
	DriverPostgres = "postgres"
	DriverMemory   = "memory"
)

// Config 结构体定义了应用程序的所有配置项
// 它与 config.yaml 文件的结构完全对应
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Redis     RedisConfig     `mapstructure:"redis"`
	Clicks    ClicksConfig    `mapstructure:"clicks"`
	RateLimit RateLimitConfig `mapstructure:"rateLimit"`
	Audit     AuditConfig     `mapstructure:"audit"`
	Logging   LoggingConfig   `mapstructure:"logging"`
}

// ServerConfig 定义了服务器相关的配置
type ServerConfig struct {
	Mode            string        `mapstructure:"mode"`
	Address         string        `mapstructure:"address"`
	Cors            CorsConfig    `mapstructure:"cors"`
	ShutdownTimeout time.Duration `mapstructure:"shutdownTimeout"`
	ReadTimeout     time.Duration `mapstructure:"readTimeout"`
	WriteTimeout    time.Duration `mapstructure:"writeTimeout"`
	IdleTimeout     time.Duration `mapstructure:"idleTimeout"`
}

// CorsConfig 定义了CORS相关的配置
type CorsConfig struct {
	AllowedOrigins []string `mapstructure:"allowedOrigins"`
}

// DatabaseConfig 定义了持久化存储的配置
type DatabaseConfig struct {
	Driver   string         `mapstructure:"driver"`
	Sqlite   SqliteConfig   `mapstructure:"sqlite"`
	Postgres PostgresConfig `mapstructure:"postgres"`
	// LogLevel 对应gorm日志级别: silent, error, warn, info
	LogLevel string `mapstructure:"logLevel"`
}

// SqliteConfig 定义了SQLite的配置
type SqliteConfig struct {
	Path string `mapstructure:"path"`
}

// PostgresConfig 定义了PostgreSQL的配置
type PostgresConfig struct {
	DSN string `mapstructure:"dsn"`
}

// RedisConfig 定义了Redis的配置
// Address 为空时不连接Redis，频率限制自动关闭
type RedisConfig struct {
	Address  string `mapstructure:"address"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// ClicksConfig 定义了点击统计相关的配置
type ClicksConfig struct {
	// Timezone 决定"今天"的日历边界，默认UTC
	Timezone string `mapstructure:"timezone"`
	// MaxClicksPerRequest 为单次请求点击数的上限，必须为正数
	MaxClicksPerRequest int64 `mapstructure:"maxClicksPerRequest"`
}

// RateLimitConfig 定义了按用户的滑动窗口频率限制
type RateLimitConfig struct {
	Enabled   bool          `mapstructure:"enabled"`
	Window    time.Duration `mapstructure:"window"`
	MaxClicks int64         `mapstructure:"maxClicks"`
}

// AuditConfig 定义了计数对账的周期，0表示关闭。对账只读，不开启写事务。
type AuditConfig struct {
	Interval time.Duration `mapstructure:"interval"`
}

// LoggingConfig 定义了日志配置
type LoggingConfig struct {
	Level       string `mapstructure:"level"`
	Development bool   `mapstructure:"development"`
	// File 非空时日志同时写入滚动文件
	File       string `mapstructure:"file"`
	MaxSizeMB  int    `mapstructure:"maxSizeMB"`
	MaxBackups int    `mapstructure:"maxBackups"`
	MaxAgeDays int    `mapstructure:"maxAgeDays"`
	Compress   bool   `mapstructure:"compress"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.mode", "release")
	v.SetDefault("server.address", ":8080")
	v.SetDefault("server.cors.allowedOrigins", []string{"http://localhost:3000"})
	v.SetDefault("server.shutdownTimeout", 15*time.Second)
	v.SetDefault("server.readTimeout", 10*time.Second)
	v.SetDefault("server.writeTimeout", 30*time.Second)
	v.SetDefault("server.idleTimeout", 60*time.Second)

	v.SetDefault("database.driver", DriverSqlite)
	v.SetDefault("database.sqlite.path", "spam.db")
	v.SetDefault("database.postgres.dsn", "")
	v.SetDefault("database.logLevel", "silent")

	v.SetDefault("redis.address", "")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)

	v.SetDefault("clicks.timezone", "UTC")
	v.SetDefault("clicks.maxClicksPerRequest", 10000)

	v.SetDefault("rateLimit.enabled", false)
	v.SetDefault("rateLimit.window", time.Minute)
	v.SetDefault("rateLimit.maxClicks", 1000)

	v.SetDefault("audit.interval", 10*time.Minute)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.development", false)
	v.SetDefault("logging.file", "")
	v.SetDefault("logging.maxSizeMB", 100)
	v.SetDefault("logging.maxBackups", 5)
	v.SetDefault("logging.maxAgeDays", 30)
	v.SetDefault("logging.compress", true)
}

// LoadConfig 函数负责查找、加载和解析配置文件
// 它会在指定的路径中查找名为 config.yaml 的文件，文件不存在时使用默认值
func LoadConfig(paths ...string) (*Config, error) {
	// .env 只是便利手段，缺失时忽略
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("yaml")

	if len(paths) == 0 {
		paths = []string{"./config", "."}
	}
	for _, p := range paths {
		v.AddConfigPath(p)
	}

	// 允许通过环境变量覆盖配置，例如 SERVER_ADDRESS=:9090
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("读取配置文件失败: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("解析配置失败: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	Cfg = &cfg

	return Cfg, nil
}

// Validate 检查配置之间的约束
func (c *Config) Validate() error {
	switch c.Database.Driver {
	case DriverSqlite, DriverMemory:
	case DriverPostgres:
		if c.Database.Postgres.DSN == "" {
			return errors.New("配置错误: postgres 驱动需要 database.postgres.dsn")
		}
	default:
		return fmt.Errorf("配置错误: 未知的数据库驱动 '%s'", c.Database.Driver)
	}

	if _, err := c.Clicks.Location(); err != nil {
		return fmt.Errorf("配置错误: 无效的时区 '%s': %w", c.Clicks.Timezone, err)
	}
	if c.Clicks.MaxClicksPerRequest <= 0 {
		return errors.New("配置错误: clicks.maxClicksPerRequest 必须为正数")
	}

	if c.Logging.File != "" && (c.Logging.MaxSizeMB <= 0 || c.Logging.MaxBackups <= 0 || c.Logging.MaxAgeDays <= 0) {
		return errors.New("配置错误: 日志文件的 maxSizeMB、maxBackups 和 maxAgeDays 必须为正数")
	}

	if c.Audit.Interval < 0 {
		return errors.New("配置错误: audit.interval 不能为负数")
	}

	if c.RateLimit.Enabled {
		if c.RateLimit.Window <= 0 || c.RateLimit.MaxClicks <= 0 {
			return errors.New("配置错误: 启用频率限制时 window 和 maxClicks 必须为正数")
		}
	}
	return nil
}

// Location 返回用于计算日历日期的时区
func (c ClicksConfig) Location() (*time.Location, error) {
	if c.Timezone == "" {
		return time.UTC, nil
	}
	return time.LoadLocation(c.Timezone)
}
