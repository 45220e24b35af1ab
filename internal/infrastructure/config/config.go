package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/viper"

	appsync "github.com/ElGueydelCalzado/backend-app-sub002/internal/application/syncengine"
	"github.com/ElGueydelCalzado/backend-app-sub002/internal/domain/syncengine"
)

// Config holds all application configuration
type Config struct {
	App         AppConfig
	Database    DatabaseConfig
	Redis       RedisConfig
	Log         LogConfig
	HTTP        HTTPConfig
	Sync        SyncConfig
	Marketplace MarketplaceConfig
}

// AppConfig holds application-specific settings
type AppConfig struct {
	Name string
	Env  string
	Port string
}

// DatabaseConfig holds database connection settings
type DatabaseConfig struct {
	Host            string
	Port            int
	User            string
	Password        string
	DBName          string
	SSLMode         string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime int // in minutes
	ConnMaxIdleTime int // in minutes
}

// RedisConfig holds Redis connection settings
type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level  string // debug, info, warn, error
	Format string // json, console
	Output string // stdout, stderr, or file path
}

// HTTPConfig holds HTTP server configuration
type HTTPConfig struct {
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	IdleTimeout    time.Duration
	MaxHeaderBytes int
	TrustedProxies []string
}

// MarketplaceConfig holds marketplace API credentials. A marketplace with no
// credentials is skipped at startup regardless of sync.enabled_targets.
type MarketplaceConfig struct {
	Shopify      ShopifyConfig
	MercadoLibre MercadoLibreConfig
}

// ShopifyConfig holds Shopify Admin API settings
type ShopifyConfig struct {
	ShopDomain  string
	AccessToken string
	APIVersion  string
}

// Enabled reports whether Shopify credentials are configured
func (s ShopifyConfig) Enabled() bool {
	return s.AccessToken != ""
}

// MercadoLibreConfig holds MercadoLibre API settings
type MercadoLibreConfig struct {
	AccessToken string
	SiteID      string
}

// Enabled reports whether MercadoLibre credentials are configured
func (m MercadoLibreConfig) Enabled() bool {
	return m.AccessToken != ""
}

// SyncConfig holds sync engine configuration
type SyncConfig struct {
	BatchSize          int
	SyncInterval       time.Duration
	RetryAttempts      int
	RetryDelay         time.Duration
	ConcurrencyWindow  time.Duration
	AdapterTimeout     time.Duration
	RealtimeEnabled    bool
	EnabledTargets     []string
	SourcePriority     []string
	QueueWarningDepth  int
	ConflictErrorCount int64
	// Resolution maps entity type to conflict resolution settings
	Resolution map[string]ResolutionConfig
}

// ResolutionConfig holds per-entity-type conflict resolution settings
type ResolutionConfig struct {
	Strategy       string
	SourcePriority []string
	MergeRules     map[string]string
}

// Load loads configuration from TOML file and environment variables
// Priority (highest to lowest):
// 1. Environment variables with EGDC_ prefix (e.g., EGDC_DATABASE_PASSWORD)
// 2. config.toml
// 3. Built-in defaults
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("toml")
	v.AddConfigPath(".")
	v.AddConfigPath("./configs")
	v.AddConfigPath("/app")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		// Config file not found is OK, we'll use defaults and env vars
	}

	v.SetEnvPrefix("EGDC")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Booleans that default to true must be declared here: applyDefaults
	// cannot tell an unset flag from an explicit false.
	v.SetDefault("sync.realtime_enabled", true)

	cfg := &Config{
		App: AppConfig{
			Name: v.GetString("app.name"),
			Env:  v.GetString("app.env"),
			Port: v.GetString("app.port"),
		},
		Database: DatabaseConfig{
			Host:            v.GetString("database.host"),
			Port:            v.GetInt("database.port"),
			User:            v.GetString("database.user"),
			Password:        v.GetString("database.password"),
			DBName:          v.GetString("database.dbname"),
			SSLMode:         v.GetString("database.sslmode"),
			MaxOpenConns:    v.GetInt("database.max_open_conns"),
			MaxIdleConns:    v.GetInt("database.max_idle_conns"),
			ConnMaxLifetime: v.GetInt("database.conn_max_lifetime"),
			ConnMaxIdleTime: v.GetInt("database.conn_max_idle_time"),
		},
		Redis: RedisConfig{
			Host:     v.GetString("redis.host"),
			Port:     v.GetInt("redis.port"),
			Password: v.GetString("redis.password"),
			DB:       v.GetInt("redis.db"),
		},
		Log: LogConfig{
			Level:  v.GetString("log.level"),
			Format: v.GetString("log.format"),
			Output: v.GetString("log.output"),
		},
		HTTP: HTTPConfig{
			ReadTimeout:    v.GetDuration("http.read_timeout"),
			WriteTimeout:   v.GetDuration("http.write_timeout"),
			IdleTimeout:    v.GetDuration("http.idle_timeout"),
			MaxHeaderBytes: v.GetInt("http.max_header_bytes"),
			TrustedProxies: v.GetStringSlice("http.trusted_proxies"),
		},
		Sync: SyncConfig{
			BatchSize:          v.GetInt("sync.batch_size"),
			SyncInterval:       v.GetDuration("sync.sync_interval"),
			RetryAttempts:      v.GetInt("sync.retry_attempts"),
			RetryDelay:         v.GetDuration("sync.retry_delay"),
			ConcurrencyWindow:  v.GetDuration("sync.concurrency_window"),
			AdapterTimeout:     v.GetDuration("sync.adapter_timeout"),
			RealtimeEnabled:    v.GetBool("sync.realtime_enabled"),
			EnabledTargets:     v.GetStringSlice("sync.enabled_targets"),
			SourcePriority:     v.GetStringSlice("sync.source_priority"),
			QueueWarningDepth:  v.GetInt("sync.queue_warning_depth"),
			ConflictErrorCount: v.GetInt64("sync.conflict_error_count"),
			Resolution:         loadResolution(v),
		},
		Marketplace: MarketplaceConfig{
			Shopify: ShopifyConfig{
				ShopDomain:  v.GetString("marketplace.shopify.shop_domain"),
				AccessToken: v.GetString("marketplace.shopify.access_token"),
				APIVersion:  v.GetString("marketplace.shopify.api_version"),
			},
			MercadoLibre: MercadoLibreConfig{
				AccessToken: v.GetString("marketplace.mercadolibre.access_token"),
				SiteID:      v.GetString("marketplace.mercadolibre.site_id"),
			},
		},
	}

	applyDefaults(cfg)

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// loadResolution reads the per-entity-type conflict resolution table
func loadResolution(v *viper.Viper) map[string]ResolutionConfig {
	out := make(map[string]ResolutionConfig)
	for entityType := range v.GetStringMap("sync.resolution") {
		prefix := "sync.resolution." + entityType
		out[entityType] = ResolutionConfig{
			Strategy:       v.GetString(prefix + ".strategy"),
			SourcePriority: v.GetStringSlice(prefix + ".source_priority"),
			MergeRules:     v.GetStringMapString(prefix + ".merge_rules"),
		}
	}
	return out
}

// applyDefaults sets default values for any empty config fields
func applyDefaults(cfg *Config) {
	if cfg.App.Name == "" {
		cfg.App.Name = "sync-engine"
	}
	if cfg.App.Env == "" {
		cfg.App.Env = "development"
	}
	if cfg.App.Port == "" {
		cfg.App.Port = "8080"
	}
	if cfg.Database.Host == "" {
		cfg.Database.Host = "localhost"
	}
	if cfg.Database.Port == 0 {
		cfg.Database.Port = 5432
	}
	if cfg.Database.User == "" {
		cfg.Database.User = "postgres"
	}
	if cfg.Database.DBName == "" {
		cfg.Database.DBName = "syncengine"
	}
	if cfg.Database.SSLMode == "" {
		cfg.Database.SSLMode = "disable"
	}
	if cfg.Database.MaxOpenConns == 0 {
		cfg.Database.MaxOpenConns = 25
	}
	if cfg.Database.MaxIdleConns == 0 {
		cfg.Database.MaxIdleConns = 5
	}
	if cfg.Database.ConnMaxLifetime == 0 {
		cfg.Database.ConnMaxLifetime = 60
	}
	if cfg.Database.ConnMaxIdleTime == 0 {
		cfg.Database.ConnMaxIdleTime = 30
	}
	if cfg.Redis.Host == "" {
		cfg.Redis.Host = "localhost"
	}
	if cfg.Redis.Port == 0 {
		cfg.Redis.Port = 6379
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "console"
	}
	if cfg.Log.Output == "" {
		cfg.Log.Output = "stdout"
	}
	if cfg.HTTP.ReadTimeout == 0 {
		cfg.HTTP.ReadTimeout = 15 * time.Second
	}
	if cfg.HTTP.WriteTimeout == 0 {
		cfg.HTTP.WriteTimeout = 15 * time.Second
	}
	if cfg.HTTP.IdleTimeout == 0 {
		cfg.HTTP.IdleTimeout = 60 * time.Second
	}
	if cfg.HTTP.MaxHeaderBytes == 0 {
		cfg.HTTP.MaxHeaderBytes = 1 << 20 // 1MB
	}
	if cfg.Sync.BatchSize == 0 {
		cfg.Sync.BatchSize = 50
	}
	if cfg.Sync.SyncInterval == 0 {
		cfg.Sync.SyncInterval = 5 * time.Second
	}
	if cfg.Sync.RetryAttempts == 0 {
		cfg.Sync.RetryAttempts = 3
	}
	if cfg.Sync.RetryDelay == 0 {
		cfg.Sync.RetryDelay = time.Second
	}
	if cfg.Sync.ConcurrencyWindow == 0 {
		cfg.Sync.ConcurrencyWindow = 5 * time.Second
	}
	if cfg.Sync.AdapterTimeout == 0 {
		cfg.Sync.AdapterTimeout = 10 * time.Second
	}
	if len(cfg.Sync.EnabledTargets) == 0 {
		cfg.Sync.EnabledTargets = []string{"local", "shopify", "mercadolibre"}
	}
	if len(cfg.Sync.SourcePriority) == 0 {
		cfg.Sync.SourcePriority = []string{"local", "shopify", "mercadolibre"}
	}
	if cfg.Sync.QueueWarningDepth == 0 {
		cfg.Sync.QueueWarningDepth = 1000
	}
	if cfg.Sync.ConflictErrorCount == 0 {
		cfg.Sync.ConflictErrorCount = 50
	}
}

// validate performs validation on the configuration
func (c *Config) validate() error {
	if c.Database.MaxOpenConns <= 0 {
		return fmt.Errorf("database.max_open_conns must be positive")
	}
	if c.Database.MaxIdleConns < 0 {
		return fmt.Errorf("database.max_idle_conns cannot be negative")
	}
	if c.Database.MaxIdleConns > c.Database.MaxOpenConns {
		return fmt.Errorf("database.max_idle_conns (%d) cannot exceed database.max_open_conns (%d)",
			c.Database.MaxIdleConns, c.Database.MaxOpenConns)
	}

	if c.App.Env == "production" {
		if c.Database.Password == "" {
			return fmt.Errorf("database.password is required in production")
		}
		if c.Database.SSLMode == "disable" {
			return fmt.Errorf("database.sslmode cannot be 'disable' in production")
		}
	}

	for entityType, resolution := range c.Sync.Resolution {
		if !syncengine.ResolutionStrategy(resolution.Strategy).IsValid() {
			return fmt.Errorf("sync.resolution.%s.strategy %q is invalid", entityType, resolution.Strategy)
		}
		for field, rule := range resolution.MergeRules {
			if !syncengine.MergeRule(rule).IsValid() {
				return fmt.Errorf("sync.resolution.%s.merge_rules.%s rule %q is invalid", entityType, field, rule)
			}
		}
	}
	return nil
}

// DSN returns the database connection string with properly escaped values
func (d *DatabaseConfig) DSN() string {
	u := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(d.User, d.Password),
		Host:   fmt.Sprintf("%s:%d", d.Host, d.Port),
		Path:   d.DBName,
	}
	q := u.Query()
	q.Set("sslmode", d.SSLMode)
	u.RawQuery = q.Encode()
	return u.String()
}

// EngineConfig converts the loaded sync section into the engine's config
func (c *Config) EngineConfig() appsync.Config {
	engine := appsync.DefaultConfig()
	engine.BatchSize = c.Sync.BatchSize
	engine.SyncInterval = c.Sync.SyncInterval
	engine.RetryAttempts = c.Sync.RetryAttempts
	engine.RetryDelay = c.Sync.RetryDelay
	engine.ConcurrencyWindow = c.Sync.ConcurrencyWindow
	engine.AdapterTimeout = c.Sync.AdapterTimeout
	engine.RealtimeEnabled = c.Sync.RealtimeEnabled
	engine.QueueWarningDepth = c.Sync.QueueWarningDepth
	engine.ConflictErrorCount = c.Sync.ConflictErrorCount

	engine.EnabledTargets = toSources(c.Sync.EnabledTargets)
	engine.SourcePriority = toSources(c.Sync.SourcePriority)

	engine.Resolution = make(map[string]syncengine.ResolutionConfig, len(c.Sync.Resolution))
	for entityType, resolution := range c.Sync.Resolution {
		priority := toSources(resolution.SourcePriority)
		if len(priority) == 0 {
			priority = engine.SourcePriority
		}
		rules := make(map[string]syncengine.MergeRule, len(resolution.MergeRules))
		for field, rule := range resolution.MergeRules {
			rules[field] = syncengine.MergeRule(rule)
		}
		engine.Resolution[entityType] = syncengine.ResolutionConfig{
			Strategy:       syncengine.ResolutionStrategy(resolution.Strategy),
			SourcePriority: priority,
			MergeRules:     rules,
		}
	}
	return engine
}

func toSources(names []string) []syncengine.Source {
	sources := make([]syncengine.Source, 0, len(names))
	for _, name := range names {
		sources = append(sources, syncengine.Source(name))
	}
	return sources
}
