package config

import (
	"fmt"
	"os"
	"reflect"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
)

// Config captures the runtime configuration for the billing service.
type Config struct {
	Server        ServerConfig        `mapstructure:"server"`
	Database      DatabaseConfig      `mapstructure:"database"`
	Redis         RedisConfig         `mapstructure:"redis"`
	Auth          AuthConfig          `mapstructure:"auth"`
	Reporting     ReportingConfig     `mapstructure:"reporting"`
	Documents     DocumentsConfig     `mapstructure:"documents"`
	Renderer      RendererConfig      `mapstructure:"renderer"`
	Observability ObservabilityConfig `mapstructure:"observability"`
}

type ServerConfig struct {
	ListenAddr            string        `mapstructure:"listen_addr"`
	BodyLimitMB           int           `mapstructure:"body_limit_mb"`
	ReadTimeout           time.Duration `mapstructure:"read_timeout"`
	IdleTimeout           time.Duration `mapstructure:"idle_timeout"`
	GracefulShutdownDelay time.Duration `mapstructure:"graceful_shutdown_delay"`
}

type DatabaseConfig struct {
	URL             string        `mapstructure:"url"`
	RunMigrations   bool          `mapstructure:"run_migrations"`
	MigrationsDir   string        `mapstructure:"migrations_dir"`
	MaxConns        int32         `mapstructure:"max_conns"`
	MinConns        int32         `mapstructure:"min_conns"`
	MaxConnIdleTime time.Duration `mapstructure:"max_conn_idle_time"`
	MaxConnLifetime time.Duration `mapstructure:"max_conn_lifetime"`
}

type RedisConfig struct {
	URL      string `mapstructure:"url"`
	DB       int    `mapstructure:"db"`
	PoolSize int    `mapstructure:"pool_size"`
}

type AuthConfig struct {
	JWTSecret          string        `mapstructure:"jwt_secret"`
	TokenTTL           time.Duration `mapstructure:"token_ttl"`
	CookieName         string        `mapstructure:"cookie_name"`
	LoginAttemptsPerMin int          `mapstructure:"login_attempts_per_min"`
}

type ReportingConfig struct {
	Timezone        string  `mapstructure:"timezone"`
	MaxRangeDays    int     `mapstructure:"max_range_days"`
	BudgetDefault   float64 `mapstructure:"budget_default"`
	BudgetThreshold int     `mapstructure:"budget_threshold"`
	TrendTopN       int     `mapstructure:"trend_top_n"`
	CurrencyPrefix  string  `mapstructure:"currency_prefix"`
}

type DocumentsConfig struct {
	Storage      string             `mapstructure:"storage"`
	SignedURLTTL time.Duration      `mapstructure:"signed_url_ttl"`
	S3           DocumentsS3Config  `mapstructure:"s3"`
	Local        DocumentsLocalConfig `mapstructure:"local"`
}

type DocumentsS3Config struct {
	Bucket       string `mapstructure:"bucket"`
	Prefix       string `mapstructure:"prefix"`
	Region       string `mapstructure:"region"`
	Endpoint     string `mapstructure:"endpoint"`
	UsePathStyle bool   `mapstructure:"use_path_style"`
}

type DocumentsLocalConfig struct {
	Directory string `mapstructure:"directory"`
}

type RendererConfig struct {
	URL     string        `mapstructure:"url"`
	Timeout time.Duration `mapstructure:"timeout"`
}

type ObservabilityConfig struct {
	EnableMetrics bool   `mapstructure:"enable_metrics"`
	EnableOTLP    bool   `mapstructure:"enable_otlp"`
	OTLPEndpoint  string `mapstructure:"otlp_endpoint"`
}

// Options controls the config loader behavior.
type Options struct {
	ConfigFile string
	EnvFile    string
}

// Load returns the merged configuration sourced from YAML and environment
// variables (prefix BILLING, dots replaced by underscores).
func Load(opts Options) (*Config, error) {
	if opts.EnvFile != "" {
		_ = godotenv.Load(opts.EnvFile)
	} else {
		_ = godotenv.Load()
	}

	v := viper.New()
	setDefaults(v)

	explicitFile := false
	if opts.ConfigFile != "" {
		v.SetConfigFile(opts.ConfigFile)
		explicitFile = true
	} else if cfgFile := os.Getenv("BILLING_CONFIG_FILE"); cfgFile != "" {
		v.SetConfigFile(cfgFile)
		explicitFile = true
	}

	if !explicitFile {
		v.SetConfigName("billing")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	v.SetEnvPrefix("BILLING")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg, viper.DecodeHook(timeStringToDurationHook())); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate ensures required values are set and applies section defaults.
func (c *Config) Validate() error {
	if c.Database.URL == "" {
		return fmt.Errorf("missing required configuration: BILLING_DATABASE_URL")
	}
	if c.Database.RunMigrations && c.Database.MigrationsDir == "" {
		return fmt.Errorf("database.migrations_dir must be provided when run_migrations is true")
	}
	if err := c.Auth.validate(); err != nil {
		return err
	}
	if err := c.Reporting.validate(); err != nil {
		return err
	}
	if err := c.Documents.validate(); err != nil {
		return err
	}
	if c.Renderer.Timeout <= 0 {
		c.Renderer.Timeout = 30 * time.Second
	}
	return nil
}

func (a *AuthConfig) validate() error {
	if a.JWTSecret == "" {
		return fmt.Errorf("auth.jwt_secret must be provided")
	}
	if a.TokenTTL <= 0 {
		a.TokenTTL = 15 * 24 * time.Hour
	}
	if a.CookieName == "" {
		a.CookieName = "token"
	}
	if a.LoginAttemptsPerMin <= 0 {
		a.LoginAttemptsPerMin = 10
	}
	return nil
}

func (r *ReportingConfig) validate() error {
	if strings.TrimSpace(r.Timezone) == "" {
		r.Timezone = "Asia/Jakarta"
	}
	if _, err := time.LoadLocation(r.Timezone); err != nil {
		return fmt.Errorf("reporting.timezone: %w", err)
	}
	if r.MaxRangeDays <= 0 {
		r.MaxRangeDays = 31
	}
	if r.BudgetDefault <= 0 {
		r.BudgetDefault = 1500000
	}
	if r.BudgetThreshold <= 0 || r.BudgetThreshold > 100 {
		r.BudgetThreshold = 80
	}
	if r.TrendTopN <= 0 {
		r.TrendTopN = 10
	}
	if r.CurrencyPrefix == "" {
		r.CurrencyPrefix = "Rp "
	}
	return nil
}

func (d *DocumentsConfig) validate() error {
	if strings.TrimSpace(d.Storage) == "" {
		d.Storage = "local"
	}
	switch strings.ToLower(d.Storage) {
	case "local":
		if d.Local.Directory == "" {
			d.Local.Directory = "./data/documents"
		}
	case "s3":
		if d.S3.Bucket == "" {
			return fmt.Errorf("documents.s3.bucket must be provided for s3 storage")
		}
	default:
		return fmt.Errorf("documents.storage must be local or s3")
	}
	if d.SignedURLTTL <= 0 {
		d.SignedURLTTL = time.Minute
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.listen_addr", ":8080")
	v.SetDefault("server.body_limit_mb", 20)
	v.SetDefault("server.read_timeout", "30s")
	v.SetDefault("server.idle_timeout", "75s")
	v.SetDefault("server.graceful_shutdown_delay", "10s")

	v.SetDefault("database.run_migrations", false)
	v.SetDefault("database.migrations_dir", "migrations")
	v.SetDefault("database.max_conns", 10)
	v.SetDefault("database.min_conns", 2)

	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.pool_size", 10)

	v.SetDefault("auth.token_ttl", "360h")
	v.SetDefault("auth.cookie_name", "token")
	v.SetDefault("auth.login_attempts_per_min", 10)

	v.SetDefault("reporting.timezone", "Asia/Jakarta")
	v.SetDefault("reporting.max_range_days", 31)
	v.SetDefault("reporting.budget_default", 1500000)
	v.SetDefault("reporting.budget_threshold", 80)
	v.SetDefault("reporting.trend_top_n", 10)

	v.SetDefault("documents.storage", "local")
	v.SetDefault("documents.signed_url_ttl", "60s")

	v.SetDefault("renderer.timeout", "30s")

	v.SetDefault("observability.enable_metrics", true)
	v.SetDefault("observability.enable_otlp", false)
}

// timeStringToDurationHook converts "30s"-style strings into durations while
// unmarshalling.
func timeStringToDurationHook() mapstructure.DecodeHookFunc {
	return func(f reflect.Type, t reflect.Type, data interface{}) (interface{}, error) {
		if t != reflect.TypeOf(time.Duration(0)) {
			return data, nil
		}
		switch value := data.(type) {
		case string:
			if value == "" {
				return time.Duration(0), nil
			}
			return time.ParseDuration(value)
		case int, int32, int64, float64:
			return data, nil
		default:
			return data, nil
		}
	}
}
