package config

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Redis    RedisConfig    `mapstructure:"redis"`
	Auth     AuthConfig     `mapstructure:"auth"`
	Storage  StorageConfig  `mapstructure:"storage"`
	Log      LogConfig      `mapstructure:"log"`
	Gateways GatewaysConfig `mapstructure:"gateways"`
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Address      string        `mapstructure:"address"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	IdleTimeout  time.Duration `mapstructure:"idle_timeout"`
}

// DatabaseConfig holds database configuration.
type DatabaseConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	Database        string        `mapstructure:"database"`
	SSLMode         string        `mapstructure:"ssl_mode"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `mapstructure:"conn_max_idle_time"`
}

// DSN returns the database connection string.
func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode,
	)
}

// RedisConfig holds Redis configuration.
type RedisConfig struct {
	Address  string `mapstructure:"address"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// AuthConfig holds API authentication configuration. APIKeyHash is a bcrypt
// hash of the accepted key; empty disables auth (local development).
type AuthConfig struct {
	APIKeyHash        string        `mapstructure:"api_key_hash"`
	JWTSecret         string        `mapstructure:"jwt_secret"`
	AccessTokenExpiry time.Duration `mapstructure:"access_token_expiry"`
}

// StorageConfig holds object storage configuration for transcript archives.
type StorageConfig struct {
	Endpoint        string `mapstructure:"endpoint"`
	Region          string `mapstructure:"region"`
	AccessKeyID     string `mapstructure:"access_key_id"`
	SecretAccessKey string `mapstructure:"secret_access_key"`
	Bucket          string `mapstructure:"bucket"`
	Prefix          string `mapstructure:"prefix"`
}

// Enabled reports whether transcript archiving is configured.
func (c *StorageConfig) Enabled() bool {
	return c.Bucket != "" && c.AccessKeyID != "" && c.SecretAccessKey != ""
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// GatewaysConfig holds per-vendor gateway credentials. A gateway with empty
// credentials is not registered at startup.
type GatewaysConfig struct {
	Bogus       BogusConfig       `mapstructure:"bogus"`
	Stripe      StripeConfig      `mapstructure:"stripe"`
	Alipay      AlipayConfig      `mapstructure:"alipay"`
	Wechat      WechatConfig      `mapstructure:"wechat"`
	MercadoPago MercadoPagoConfig `mapstructure:"mercadopago"`
}

// BogusConfig controls the in-process sandbox gateway.
type BogusConfig struct {
	Enabled bool `mapstructure:"enabled"`
}

// StripeConfig holds Stripe credentials.
type StripeConfig struct {
	APIKey string `mapstructure:"api_key"`
}

// AlipayConfig holds Alipay credentials.
type AlipayConfig struct {
	AppID           string `mapstructure:"app_id"`
	PrivateKey      string `mapstructure:"private_key"`
	AlipayPublicKey string `mapstructure:"alipay_public_key"`
	Test            bool   `mapstructure:"test"`
}

// WechatConfig holds WeChat Pay credentials.
type WechatConfig struct {
	AppID      string `mapstructure:"app_id"`
	MchID      string `mapstructure:"mch_id"`
	APIKeyV3   string `mapstructure:"api_key_v3"`
	SerialNo   string `mapstructure:"serial_no"`
	PrivateKey string `mapstructure:"private_key"`
	Test       bool   `mapstructure:"test"`
}

// MercadoPagoConfig holds Mercado Pago credentials.
type MercadoPagoConfig struct {
	AccessToken string `mapstructure:"access_token"`
}

// Load loads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Set config file name and paths
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./configs")
	v.AddConfigPath("/etc/gatewayd")

	// Set defaults
	setDefaults(v)

	// Read config file
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("read config: %w", err)
		}
		// Config file not found, use defaults and env
	}

	// Read from environment variables
	v.SetEnvPrefix("GATEWAYD")
	v.AutomaticEnv()

	// Unmarshal config
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	// Override with environment variables for sensitive values
	if hash := os.Getenv("GATEWAYD_API_KEY_HASH"); hash != "" {
		cfg.Auth.APIKeyHash = hash
	}
	if secret := os.Getenv("GATEWAYD_JWT_SECRET"); secret != "" {
		cfg.Auth.JWTSecret = secret
	}
	if password := os.Getenv("GATEWAYD_DB_PASSWORD"); password != "" {
		cfg.Database.Password = password
	}
	if password := os.Getenv("GATEWAYD_REDIS_PASSWORD"); password != "" {
		cfg.Redis.Password = password
	}
	if key := os.Getenv("GATEWAYD_STORAGE_SECRET_KEY"); key != "" {
		cfg.Storage.SecretAccessKey = key
	}
	if key := os.Getenv("GATEWAYD_STRIPE_API_KEY"); key != "" {
		cfg.Gateways.Stripe.APIKey = key
	}
	if token := os.Getenv("GATEWAYD_MERCADOPAGO_ACCESS_TOKEN"); token != "" {
		cfg.Gateways.MercadoPago.AccessToken = token
	}

	return &cfg, nil
}

// setDefaults sets default configuration values.
func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.address", ":8080")
	v.SetDefault("server.read_timeout", 30*time.Second)
	v.SetDefault("server.write_timeout", 30*time.Second)
	v.SetDefault("server.idle_timeout", 120*time.Second)

	// Database defaults
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.database", "gatewayd")
	v.SetDefault("database.ssl_mode", "disable")
	v.SetDefault("database.max_open_conns", 25)
	v.SetDefault("database.max_idle_conns", 10)
	v.SetDefault("database.conn_max_lifetime", time.Hour)
	v.SetDefault("database.conn_max_idle_time", 30*time.Minute)

	// Redis defaults
	v.SetDefault("redis.address", "localhost:6379")
	v.SetDefault("redis.db", 0)

	// Auth defaults
	v.SetDefault("auth.access_token_expiry", 15*time.Minute)

	// Storage defaults
	v.SetDefault("storage.prefix", "transcripts")

	// Log defaults
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	// Gateway defaults: only the sandbox is on out of the box
	v.SetDefault("gateways.bogus.enabled", true)
}
