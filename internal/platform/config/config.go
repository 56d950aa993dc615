package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"rodo_assess/internal/common"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"golang.org/x/crypto/bcrypt"
)

// SecretKey is the configuration key of the token signing secret.
// From the environment it is read as SECURITY_JWT_TOKEN_SECRET_KEY.
const SecretKey = "security.jwt.token.secret.key"

var DefaultPublicPaths = []string{
	"/login",
	"/register",
	"/swagger-ui",
	"/v3/api-docs",
	"/swagger-resources",
	"/health",
}

type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Redis    RedisConfig    `mapstructure:"redis"`
	Logger   LoggerConfig   `mapstructure:"logger"`
	Metrics  MetricsConfig  `mapstructure:"metrics"`
	Billing  BillingConfig  `mapstructure:"billing"`

	// Filled from dotted keys that do not map onto nested structs.
	Security SecurityConfig `mapstructure:"-"`
}

type ServerConfig struct {
	Port            int           `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	IdleTimeout     time.Duration `mapstructure:"idle_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	RequestTimeout  time.Duration `mapstructure:"request_timeout"`
}

type DatabaseConfig struct {
	URL      string `mapstructure:"url"`
	MaxConns int    `mapstructure:"max_conns"`
	MinConns int    `mapstructure:"min_conns"`
	Migrate  bool   `mapstructure:"migrate"`
}

// RedisConfig is optional; an empty Addr disables token revocation and the billing lock.
type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type LoggerConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

type MetricsConfig struct {
	Addr string `mapstructure:"addr"`
}

type BillingConfig struct {
	SweepInterval time.Duration `mapstructure:"sweep_interval"`
	LockTTL       time.Duration `mapstructure:"lock_ttl"`
	BatchSize     int           `mapstructure:"batch_size"`
}

type SecurityConfig struct {
	SecretKey          []byte
	TokenTTL           time.Duration
	PublicPaths        []string
	QueryTokenFallback bool
	BcryptCost         int
	LoginRateLimit     float64
	LoginRateBurst     int
}

// Load reads .env (if present), then config.yaml from . or ./configs, then
// the environment. A missing signing secret is a configuration error.
func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./configs")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	return fromViper(v)
}

func fromViper(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unable to decode into struct: %w", err)
	}

	secret := strings.TrimSpace(v.GetString(SecretKey))
	if secret == "" {
		return nil, fmt.Errorf("%w: %s is not set", common.ErrConfiguration, SecretKey)
	}

	cfg.Security = SecurityConfig{
		SecretKey:          []byte(secret),
		TokenTTL:           v.GetDuration("security.jwt.token.ttl"),
		PublicPaths:        splitList(v.Get("security.public_paths")),
		QueryTokenFallback: v.GetBool("security.query_token_fallback"),
		BcryptCost:         v.GetInt("security.bcrypt_cost"),
		LoginRateLimit:     v.GetFloat64("security.login_rate_limit"),
		LoginRateBurst:     v.GetInt("security.login_rate_burst"),
	}
	if cfg.Security.TokenTTL <= 0 {
		return nil, fmt.Errorf("%w: security.jwt.token.ttl must be positive", common.ErrConfiguration)
	}
	if cfg.Billing.SweepInterval <= 0 {
		return nil, fmt.Errorf("%w: billing.sweep_interval must be positive", common.ErrConfiguration)
	}
	if cfg.Database.URL == "" {
		return nil, fmt.Errorf("%w: database.url is not set", common.ErrConfiguration)
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", 10*time.Second)
	v.SetDefault("server.write_timeout", 10*time.Second)
	v.SetDefault("server.idle_timeout", 120*time.Second)
	v.SetDefault("server.shutdown_timeout", 15*time.Second)
	v.SetDefault("server.request_timeout", 60*time.Second)

	v.SetDefault("database.url", "")
	v.SetDefault("database.max_conns", 25)
	v.SetDefault("database.min_conns", 5)
	v.SetDefault("database.migrate", true)

	v.SetDefault("redis.addr", "")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)

	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "json")
	v.SetDefault("metrics.addr", ":9090")

	v.SetDefault("billing.sweep_interval", time.Hour)
	v.SetDefault("billing.lock_ttl", 5*time.Minute)
	v.SetDefault("billing.batch_size", 100)

	v.SetDefault(SecretKey, "")
	v.SetDefault("security.jwt.token.ttl", 10*time.Hour)
	v.SetDefault("security.public_paths", DefaultPublicPaths)
	v.SetDefault("security.query_token_fallback", true)
	v.SetDefault("security.bcrypt_cost", bcrypt.DefaultCost)
	v.SetDefault("security.login_rate_limit", 5.0)
	v.SetDefault("security.login_rate_burst", 10)
}

// splitList accepts a yaml list or a comma separated string (as env vars arrive).
func splitList(raw interface{}) []string {
	var items []string
	switch val := raw.(type) {
	case string:
		items = strings.Split(val, ",")
	case []string:
		items = val
	case []interface{}:
		for _, it := range val {
			items = append(items, fmt.Sprint(it))
		}
	}
	out := make([]string, 0, len(items))
	for _, it := range items {
		if it = strings.TrimSpace(it); it != "" {
			out = append(out, it)
		}
	}
	return out
}
