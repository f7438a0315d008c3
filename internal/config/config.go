// Package config loads portal configuration from file and environment
package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"

	"github.com/modelfactory/portal/internal/storage"
	"github.com/modelfactory/portal/pkg/database"
	"github.com/modelfactory/portal/pkg/jwt"
	"github.com/modelfactory/portal/pkg/logger"
	"github.com/modelfactory/portal/pkg/ratelimit"
	"github.com/modelfactory/portal/pkg/redis"
)

// Config application configuration
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Redis     RedisConfig     `mapstructure:"redis"`
	Storage   StorageConfig   `mapstructure:"storage"`
	JWT       JWTConfig       `mapstructure:"jwt"`
	Log       LogConfig       `mapstructure:"log"`
	Upload    UploadConfig    `mapstructure:"upload"`
	RateLimit RateLimitConfig `mapstructure:"rate_limit"`
}

// ServerConfig HTTP server configuration
type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	Mode            string        `mapstructure:"mode"` // debug, release, test
}

// DatabaseConfig PostgreSQL configuration
type DatabaseConfig struct {
	Host            string        `mapstructure:"host"`
	Port            string        `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	Database        string        `mapstructure:"database"`
	SSLMode         string        `mapstructure:"ssl_mode"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
}

// RedisConfig Redis configuration
type RedisConfig struct {
	Host     string `mapstructure:"host"`
	Port     string `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	PoolSize int    `mapstructure:"pool_size"`
}

// StorageConfig MinIO object storage configuration
type StorageConfig struct {
	Endpoint        string        `mapstructure:"endpoint"`
	AccessKeyID     string        `mapstructure:"access_key_id"`
	SecretAccessKey string        `mapstructure:"secret_access_key"`
	UseSSL          bool          `mapstructure:"use_ssl"`
	Region          string        `mapstructure:"region"`
	Bucket          string        `mapstructure:"bucket"`
	PresignedExpiry time.Duration `mapstructure:"presigned_expiry"`
}

// JWTConfig access token configuration
type JWTConfig struct {
	SecretKey      string        `mapstructure:"secret_key"`
	Issuer         string        `mapstructure:"issuer"`
	AccessTokenTTL time.Duration `mapstructure:"access_token_ttl"`
}

// LogConfig logging configuration
type LogConfig struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"` // json, console
	Output     string `mapstructure:"output"` // stdout, file, both
	FilePath   string `mapstructure:"file_path"`
	MaxSize    int    `mapstructure:"max_size"` // MB
	MaxAge     int    `mapstructure:"max_age"`  // days
	MaxBackups int    `mapstructure:"max_backups"`
	Compress   bool   `mapstructure:"compress"`
}

// UploadConfig artifact upload limits
type UploadConfig struct {
	MaxSize int64 `mapstructure:"max_size"`
}

// RateLimitConfig token bucket limits
type RateLimitConfig struct {
	Enabled bool `mapstructure:"enabled"`
	Rate    int  `mapstructure:"rate"`
	Burst   int  `mapstructure:"burst"`
}

// DefaultConfig returns the built-in defaults
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            8080,
			ReadTimeout:     30 * time.Second,
			WriteTimeout:    30 * time.Second,
			ShutdownTimeout: 10 * time.Second,
			Mode:            "release",
		},
		Database: DatabaseConfig{
			Host:            "localhost",
			Port:            "5432",
			User:            "postgres",
			Password:        "password",
			Database:        "portal",
			SSLMode:         "disable",
			MaxIdleConns:    10,
			MaxOpenConns:    100,
			ConnMaxLifetime: time.Hour,
		},
		Redis: RedisConfig{
			Host:     "localhost",
			Port:     "6379",
			Password: "",
			DB:       0,
			PoolSize: 10,
		},
		Storage: StorageConfig{
			Endpoint:        "localhost:9000",
			AccessKeyID:     "minioadmin",
			SecretAccessKey: "minioadmin",
			UseSSL:          false,
			Region:          "us-east-1",
			Bucket:          "model-artifacts",
			PresignedExpiry: 15 * time.Minute,
		},
		JWT: JWTConfig{
			SecretKey:      "your-secret-key-change-in-production",
			Issuer:         "model-portal",
			AccessTokenTTL: time.Hour,
		},
		Log: LogConfig{
			Level:      "info",
			Format:     "json",
			Output:     "stdout",
			FilePath:   "logs/portal.log",
			MaxSize:    100,
			MaxAge:     7,
			MaxBackups: 3,
			Compress:   true,
		},
		Upload: UploadConfig{
			MaxSize: 2 * 1024 * 1024 * 1024, // 2GB
		},
		RateLimit: RateLimitConfig{
			Enabled: true,
			Rate:    100,
			Burst:   150,
		},
	}
}

// Load reads configuration from the given file, falling back to
// defaults and PORTAL_* environment variables
func Load(path string) (*Config, error) {
	viper.SetConfigFile(path)
	viper.SetConfigType("yaml")

	setDefaults()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	viper.SetEnvPrefix("PORTAL")
	viper.AutomaticEnv()

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &cfg, nil
}

func setDefaults() {
	defaults := DefaultConfig()
	viper.SetDefault("server.host", defaults.Server.Host)
	viper.SetDefault("server.port", defaults.Server.Port)
	viper.SetDefault("server.read_timeout", defaults.Server.ReadTimeout)
	viper.SetDefault("server.write_timeout", defaults.Server.WriteTimeout)
	viper.SetDefault("server.shutdown_timeout", defaults.Server.ShutdownTimeout)
	viper.SetDefault("server.mode", defaults.Server.Mode)

	viper.SetDefault("database.host", defaults.Database.Host)
	viper.SetDefault("database.port", defaults.Database.Port)
	viper.SetDefault("database.user", defaults.Database.User)
	viper.SetDefault("database.password", defaults.Database.Password)
	viper.SetDefault("database.database", defaults.Database.Database)
	viper.SetDefault("database.ssl_mode", defaults.Database.SSLMode)
	viper.SetDefault("database.max_idle_conns", defaults.Database.MaxIdleConns)
	viper.SetDefault("database.max_open_conns", defaults.Database.MaxOpenConns)
	viper.SetDefault("database.conn_max_lifetime", defaults.Database.ConnMaxLifetime)

	viper.SetDefault("redis.host", defaults.Redis.Host)
	viper.SetDefault("redis.port", defaults.Redis.Port)
	viper.SetDefault("redis.db", defaults.Redis.DB)
	viper.SetDefault("redis.pool_size", defaults.Redis.PoolSize)

	viper.SetDefault("storage.endpoint", defaults.Storage.Endpoint)
	viper.SetDefault("storage.access_key_id", defaults.Storage.AccessKeyID)
	viper.SetDefault("storage.secret_access_key", defaults.Storage.SecretAccessKey)
	viper.SetDefault("storage.use_ssl", defaults.Storage.UseSSL)
	viper.SetDefault("storage.region", defaults.Storage.Region)
	viper.SetDefault("storage.bucket", defaults.Storage.Bucket)
	viper.SetDefault("storage.presigned_expiry", defaults.Storage.PresignedExpiry)

	viper.SetDefault("jwt.secret_key", defaults.JWT.SecretKey)
	viper.SetDefault("jwt.issuer", defaults.JWT.Issuer)
	viper.SetDefault("jwt.access_token_ttl", defaults.JWT.AccessTokenTTL)

	viper.SetDefault("log.level", defaults.Log.Level)
	viper.SetDefault("log.format", defaults.Log.Format)
	viper.SetDefault("log.output", defaults.Log.Output)
	viper.SetDefault("log.file_path", defaults.Log.FilePath)

	viper.SetDefault("upload.max_size", defaults.Upload.MaxSize)

	viper.SetDefault("rate_limit.enabled", defaults.RateLimit.Enabled)
	viper.SetDefault("rate_limit.rate", defaults.RateLimit.Rate)
	viper.SetDefault("rate_limit.burst", defaults.RateLimit.Burst)
}

// ToDatabaseConfig converts to the database package config
func (c *DatabaseConfig) ToDatabaseConfig() *database.Config {
	return &database.Config{
		Host:            c.Host,
		Port:            c.Port,
		User:            c.User,
		Password:        c.Password,
		Database:        c.Database,
		SSLMode:         c.SSLMode,
		MaxIdleConns:    c.MaxIdleConns,
		MaxOpenConns:    c.MaxOpenConns,
		ConnMaxLifetime: c.ConnMaxLifetime,
	}
}

// ToRedisConfig converts to the redis package config
func (c *RedisConfig) ToRedisConfig() *redis.Config {
	return &redis.Config{
		Host:     c.Host,
		Port:     c.Port,
		Password: c.Password,
		DB:       c.DB,
		PoolSize: c.PoolSize,
	}
}

// ToStorageConfig converts to the storage package config
func (c *StorageConfig) ToStorageConfig() *storage.Config {
	return &storage.Config{
		Endpoint:        c.Endpoint,
		AccessKeyID:     c.AccessKeyID,
		SecretAccessKey: c.SecretAccessKey,
		UseSSL:          c.UseSSL,
		Region:          c.Region,
		Bucket:          c.Bucket,
		PresignedExpiry: c.PresignedExpiry,
	}
}

// ToJWTConfig converts to the jwt package config
func (c *JWTConfig) ToJWTConfig() *jwt.Config {
	return &jwt.Config{
		SecretKey:      c.SecretKey,
		Issuer:         c.Issuer,
		AccessTokenTTL: c.AccessTokenTTL,
	}
}

// ToLoggerConfig converts to the logger package config
func (c *LogConfig) ToLoggerConfig() *logger.Config {
	return &logger.Config{
		Level:      c.Level,
		Format:     c.Format,
		Output:     c.Output,
		FilePath:   c.FilePath,
		MaxSize:    c.MaxSize,
		MaxAge:     c.MaxAge,
		MaxBackups: c.MaxBackups,
		Compress:   c.Compress,
	}
}

// ToRateLimitConfig converts to the ratelimit package config
func (c *RateLimitConfig) ToRateLimitConfig() *ratelimit.Config {
	return &ratelimit.Config{
		Rate:  c.Rate,
		Burst: c.Burst,
	}
}
