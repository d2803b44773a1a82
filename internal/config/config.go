package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// AppConfig represents the main application configuration
type AppConfig struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Redis    RedisConfig    `mapstructure:"redis"`
	Chzzk    ChzzkConfig    `mapstructure:"chzzk"`
	Chat     ChatConfig     `mapstructure:"chat"`
	Logging  LoggingConfig  `mapstructure:"logging"`
	Janitor  JanitorConfig  `mapstructure:"janitor"`
}

// ServerConfig represents HTTP server configuration
type ServerConfig struct {
	Port         int           `mapstructure:"port"`
	Host         string        `mapstructure:"host"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	IdleTimeout  time.Duration `mapstructure:"idle_timeout"`
	CORS         CORSConfig    `mapstructure:"cors"`
}

// CORSConfig represents CORS configuration for the widget origin
type CORSConfig struct {
	AllowOrigins string `mapstructure:"allow_origins"`
	AllowMethods string `mapstructure:"allow_methods"`
	AllowHeaders string `mapstructure:"allow_headers"`
}

// DatabaseConfig represents PostgreSQL configuration
type DatabaseConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	DBName          string        `mapstructure:"dbname"`
	SSLMode         string        `mapstructure:"sslmode"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `mapstructure:"conn_max_idle_time"`
}

// RedisConfig represents the redis cache configuration
type RedisConfig struct {
	Addr     string        `mapstructure:"addr"`
	Password string        `mapstructure:"password"`
	DB       int           `mapstructure:"db"`
	TTL      time.Duration `mapstructure:"ttl"`
}

// ChzzkConfig carries the chat platform session cookies
type ChzzkConfig struct {
	NIDAuth    string `mapstructure:"nid_auth"`
	NIDSession string `mapstructure:"nid_session"`
}

// ChatConfig tunes the command dispatcher
type ChatConfig struct {
	Prefix         string        `mapstructure:"prefix"`
	UserRateLimit  int           `mapstructure:"user_rate_limit"`
	UserRateWindow time.Duration `mapstructure:"user_rate_window"`
}

// LoggingConfig represents logger configuration
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// JanitorConfig tunes the background reconciliation job
type JanitorConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Schedule string `mapstructure:"schedule"`
}

// ConfigLoader loads application configuration from file and environment
type ConfigLoader struct {
	viper *viper.Viper
}

// NewConfigLoader creates a loader with defaults applied
func NewConfigLoader() *ConfigLoader {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")

	v.SetDefault("server.port", 3000)
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.read_timeout", 15*time.Second)
	v.SetDefault("server.write_timeout", 15*time.Second)
	v.SetDefault("server.idle_timeout", 60*time.Second)
	v.SetDefault("server.cors.allow_origins", "*")
	v.SetDefault("server.cors.allow_methods", "GET,POST,OPTIONS")
	v.SetDefault("server.cors.allow_headers", "Origin,Content-Type,Accept")

	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.password", "")
	v.SetDefault("database.dbname", "guubot")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.max_open_conns", 50)
	v.SetDefault("database.max_idle_conns", 25)
	v.SetDefault("database.conn_max_lifetime", 30*time.Minute)
	v.SetDefault("database.conn_max_idle_time", 15*time.Minute)

	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.ttl", 6*time.Hour)

	v.SetDefault("chat.prefix", "!")
	v.SetDefault("chat.user_rate_limit", 20)
	v.SetDefault("chat.user_rate_window", time.Minute)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "console")

	v.SetDefault("janitor.enabled", true)
	v.SetDefault("janitor.schedule", "@every 1m")

	v.AutomaticEnv()

	return &ConfigLoader{viper: v}
}

// Load reads the configuration file, applies environment overrides and
// validates the result
func (l *ConfigLoader) Load() (*AppConfig, error) {
	if err := l.viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		// Config file not found, using defaults
	}

	var config AppConfig
	if err := l.viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	if err := validateConfig(&config); err != nil {
		return nil, fmt.Errorf("config validation error: %w", err)
	}

	return &config, nil
}

// validateConfig validates the configuration values
func validateConfig(config *AppConfig) error {
	if config.Server.Port <= 0 || config.Server.Port > 65535 {
		return fmt.Errorf("server port must be in 1-65535, got %d", config.Server.Port)
	}

	if config.Chat.Prefix == "" {
		return fmt.Errorf("chat command prefix cannot be empty")
	}

	if config.Chat.UserRateLimit <= 0 {
		return fmt.Errorf("chat user rate limit must be positive")
	}

	if config.Janitor.Enabled && config.Janitor.Schedule == "" {
		return fmt.Errorf("janitor schedule cannot be empty when enabled")
	}

	return nil
}
