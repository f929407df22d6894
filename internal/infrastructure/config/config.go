package config

import (
	"bufio"
	"fmt"
	"os"
	"strings"
	"time"

	"wallet-activity-stats/pkg/errors"

	"github.com/spf13/viper"
)

// Config represents application configuration
type Config struct {
	App        AppConfig        `mapstructure:"app"`
	HTTP       HTTPConfig       `mapstructure:"http"`
	Explorer   ExplorerConfig   `mapstructure:"explorer"`
	RPC        RPCConfig        `mapstructure:"rpc"`
	Classifier ClassifierConfig `mapstructure:"classifier"`
	Aggregator AggregatorConfig `mapstructure:"aggregator"`
	Scoring    ScoringConfig    `mapstructure:"scoring"`
	Direct     DirectConfig     `mapstructure:"direct"`
	Cache      CacheConfig      `mapstructure:"cache"`
	MongoDB    MongoDBConfig    `mapstructure:"mongodb"`
	NATS       NATSConfig       `mapstructure:"nats"`
}

// AppConfig represents application configuration
type AppConfig struct {
	Name     string `mapstructure:"name"`
	Env      string `mapstructure:"env"`
	LogLevel string `mapstructure:"log_level"`
}

// HTTPConfig represents the public API server configuration
type HTTPConfig struct {
	Port           int           `mapstructure:"port"`
	StatsBudget    time.Duration `mapstructure:"stats_budget"`
	ReadTimeout    time.Duration `mapstructure:"read_timeout"`
	WriteTimeout   time.Duration `mapstructure:"write_timeout"`
	MetricsEnabled bool          `mapstructure:"metrics_enabled"`
}

// ExplorerConfig represents block explorer upstream configuration
type ExplorerConfig struct {
	BaseURL          string        `mapstructure:"base_url"`
	CompatPath       string        `mapstructure:"compat_path"`
	RestPath         string        `mapstructure:"rest_path"`
	UserAgent        string        `mapstructure:"user_agent"`
	RequestTimeout   time.Duration `mapstructure:"request_timeout"`
	TokenInfoTimeout time.Duration `mapstructure:"token_info_timeout"`
	RetryAttempts    int           `mapstructure:"retry_attempts"`
	RetryBaseDelay   time.Duration `mapstructure:"retry_base_delay"`
	RetryMultiplier  float64       `mapstructure:"retry_multiplier"`
	CompatOffset     int           `mapstructure:"compat_offset"`
	RestPageSize     int           `mapstructure:"rest_page_size"`
	RestMaxPages     int           `mapstructure:"rest_max_pages"`
}

// CompatURL returns the compat-style list endpoint
func (e ExplorerConfig) CompatURL() string {
	return strings.TrimRight(e.BaseURL, "/") + e.CompatPath
}

// RestURL returns the REST v2 base endpoint
func (e ExplorerConfig) RestURL() string {
	return strings.TrimRight(e.BaseURL, "/") + e.RestPath
}

// RPCConfig represents JSON-RPC fallback configuration
type RPCConfig struct {
	Enabled        bool          `mapstructure:"enabled"`
	URL            string        `mapstructure:"url"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
}

// ClassifierConfig holds the address tables used by the fast-path rules
type ClassifierConfig struct {
	StakingContract string   `mapstructure:"staking_contract"`
	CCOFactory      string   `mapstructure:"cco_factory"`
	GMContracts     []string `mapstructure:"gm_contracts"`
	DomainKeywords  []string `mapstructure:"domain_keywords"`
}

// AggregatorConfig controls the deep-inspection pass
type AggregatorConfig struct {
	BatchSize           int           `mapstructure:"batch_size"`
	DeepInspectionLimit int           `mapstructure:"deep_inspection_limit"`
	DeepInspectionTime  time.Duration `mapstructure:"deep_inspection_time"`
}

// ScoringConfig represents cohort scoring defaults
type ScoringConfig struct {
	DefaultConcurrency int `mapstructure:"default_concurrency"`
	MaxConcurrency     int `mapstructure:"max_concurrency"`
	QueueSize          int `mapstructure:"queue_size"`
}

// DirectConfig represents the strict two-pass scan configuration
type DirectConfig struct {
	RequestTimeout   time.Duration `mapstructure:"request_timeout"`
	PageSize         int           `mapstructure:"page_size"`
	MaxPages         int           `mapstructure:"max_pages"`
	GlobalBudget     time.Duration `mapstructure:"global_budget"`
	RetryAttempts    int           `mapstructure:"retry_attempts"`
	RetryBaseDelay   time.Duration `mapstructure:"retry_base_delay"`
	LogsConcurrency  int           `mapstructure:"logs_concurrency"`
	LogsLimit        int           `mapstructure:"logs_limit"`
	RepeatGuardLimit int           `mapstructure:"repeat_guard_limit"`
}

// CacheConfig represents the in-memory enrichment cache
type CacheConfig struct {
	Size         int           `mapstructure:"size"`
	LogsTTL      time.Duration `mapstructure:"logs_ttl"`
	TokenInfoTTL time.Duration `mapstructure:"token_info_ttl"`
}

// MongoDBConfig represents MongoDB configuration
type MongoDBConfig struct {
	Enabled        bool          `mapstructure:"enabled"`
	URI            string        `mapstructure:"uri"`
	Database       string        `mapstructure:"database"`
	ConnectTimeout time.Duration `mapstructure:"connect_timeout"`
	MaxPoolSize    uint64        `mapstructure:"max_pool_size"`
	TokenInfoTTL   time.Duration `mapstructure:"token_info_ttl"`
}

// NATSConfig represents NATS JetStream configuration
type NATSConfig struct {
	Enabled           bool          `mapstructure:"enabled"`
	URL               string        `mapstructure:"url"`
	StreamName        string        `mapstructure:"stream_name"`
	SubjectPrefix     string        `mapstructure:"subject_prefix"`
	ConnectTimeout    time.Duration `mapstructure:"connect_timeout"`
	ReconnectAttempts int           `mapstructure:"reconnect_attempts"`
	ReconnectDelay    time.Duration `mapstructure:"reconnect_delay"`
}

// loadEnvFile manually loads environment variables from .env file
func loadEnvFile() error {
	file, err := os.Open(".env")
	if err != nil {
		return err
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		parts := strings.SplitN(line, "=", 2)
		if len(parts) == 2 {
			key := strings.TrimSpace(parts[0])
			value := strings.TrimSpace(parts[1])
			os.Setenv(key, value)
		}
	}

	return scanner.Err()
}

// LoadConfig loads configuration from environment variables and config files
func LoadConfig() (*Config, error) {
	// Load .env file manually first
	if _, err := os.Stat(".env"); err == nil {
		if err := loadEnvFile(); err != nil {
			return nil, errors.NewConfigurationError("failed to read .env file", err)
		}
	}

	// Set default values first
	setDefaults()

	// Bind environment variables
	bindEnvVars()

	// Read environment variables automatically
	viper.AutomaticEnv()

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, errors.NewConfigurationError("failed to decode configuration", err)
	}

	config.normalize()
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &config, nil
}

// Validate rejects settings the pipeline cannot run with
func (c *Config) Validate() error {
	switch {
	case c.Explorer.BaseURL == "":
		return errors.NewConfigurationError("explorer.base_url is required", nil)
	case c.HTTP.Port <= 0 || c.HTTP.Port > 65535:
		return errors.NewConfigurationError(fmt.Sprintf("http.port %d out of range", c.HTTP.Port), nil)
	case c.HTTP.StatsBudget <= 0:
		return errors.NewConfigurationError("http.stats_budget must be positive", nil)
	case c.Direct.PageSize <= 0 || c.Direct.MaxPages <= 0:
		return errors.NewConfigurationError("direct.page_size and direct.max_pages must be positive", nil)
	case c.Cache.Size <= 0:
		return errors.NewConfigurationError("cache.size must be positive", nil)
	case c.RPC.Enabled && c.RPC.URL == "":
		return errors.NewConfigurationError("rpc.url is required when rpc is enabled", nil)
	case c.MongoDB.Enabled && c.MongoDB.URI == "":
		return errors.NewConfigurationError("mongodb.uri is required when mongodb is enabled", nil)
	case c.NATS.Enabled && c.NATS.URL == "":
		return errors.NewConfigurationError("nats.url is required when nats is enabled", nil)
	}
	return nil
}

// normalize lower-cases address tables so comparisons downstream are plain string equality
func (c *Config) normalize() {
	c.Classifier.StakingContract = strings.ToLower(c.Classifier.StakingContract)
	c.Classifier.CCOFactory = strings.ToLower(c.Classifier.CCOFactory)
	for i, a := range c.Classifier.GMContracts {
		c.Classifier.GMContracts[i] = strings.ToLower(strings.TrimSpace(a))
	}
	for i, k := range c.Classifier.DomainKeywords {
		c.Classifier.DomainKeywords[i] = strings.ToLower(k)
	}
}

// DefaultConfig returns the configuration produced by defaults alone
func DefaultConfig() *Config {
	return &Config{
		App: AppConfig{Name: "wallet-activity-stats", Env: "development", LogLevel: "info"},
		HTTP: HTTPConfig{
			Port:           8080,
			StatsBudget:    12 * time.Second,
			ReadTimeout:    15 * time.Second,
			WriteTimeout:   60 * time.Second,
			MetricsEnabled: true,
		},
		Explorer: ExplorerConfig{
			BaseURL:          "https://zentrace.io",
			CompatPath:       "/api",
			RestPath:         "/api/v2",
			UserAgent:        "wallet-activity-stats/1.0",
			RequestTimeout:   8 * time.Second,
			TokenInfoTimeout: 10 * time.Second,
			RetryAttempts:    4,
			RetryBaseDelay:   700 * time.Millisecond,
			RetryMultiplier:  1.6,
			CompatOffset:     10000,
			RestPageSize:     100,
			RestMaxPages:     3,
		},
		RPC: RPCConfig{
			Enabled:        true,
			URL:            "https://zenchain-testnet.api.onfinality.io/public",
			RequestTimeout: 8 * time.Second,
		},
		Classifier: ClassifierConfig{
			StakingContract: "0x0000000000000000000000000000000000000800",
			CCOFactory:      "0x2f96d7dd813b8e17071188791b78ea3fab5c109c",
			GMContracts: []string{
				"0xf617d89a811a39f06f5271f89db346a0ae297f71",
				"0x1290b4f2a419a316467b580a088453a233e9adcc",
				"0x72bf210e0a01838367ef47f5b6087d22d53c93d6",
				"0x59c27c39a126a9b5ecaddd460c230c857e1deb35",
			},
			DomainKeywords: []string{"domain", "name", ".zen", "zns", "ens", "dns"},
		},
		Aggregator: AggregatorConfig{BatchSize: 8},
		Scoring:    ScoringConfig{DefaultConcurrency: 4, MaxConcurrency: 12, QueueSize: 1000},
		Direct: DirectConfig{
			RequestTimeout:   10 * time.Second,
			PageSize:         10000,
			MaxPages:         200,
			GlobalBudget:     45 * time.Second,
			RetryAttempts:    7,
			RetryBaseDelay:   700 * time.Millisecond,
			LogsConcurrency:  2,
			LogsLimit:        60,
			RepeatGuardLimit: 2,
		},
		Cache: CacheConfig{Size: 500, LogsTTL: time.Minute, TokenInfoTTL: 10 * time.Minute},
		MongoDB: MongoDBConfig{
			URI:            "mongodb://localhost:27017",
			Database:       "wallet_activity_stats",
			ConnectTimeout: 10 * time.Second,
			MaxPoolSize:    100,
			TokenInfoTTL:   24 * time.Hour,
		},
		NATS: NATSConfig{
			URL:               "nats://localhost:4222",
			StreamName:        "WALLET_STATS",
			SubjectPrefix:     "wallet",
			ConnectTimeout:    5 * time.Second,
			ReconnectAttempts: 5,
			ReconnectDelay:    2 * time.Second,
		},
	}
}

func setDefaults() {
	d := DefaultConfig()

	// App defaults
	viper.SetDefault("app.name", d.App.Name)
	viper.SetDefault("app.env", d.App.Env)
	viper.SetDefault("app.log_level", d.App.LogLevel)

	// HTTP defaults
	viper.SetDefault("http.port", d.HTTP.Port)
	viper.SetDefault("http.stats_budget", d.HTTP.StatsBudget)
	viper.SetDefault("http.read_timeout", d.HTTP.ReadTimeout)
	viper.SetDefault("http.write_timeout", d.HTTP.WriteTimeout)
	viper.SetDefault("http.metrics_enabled", d.HTTP.MetricsEnabled)

	// Explorer defaults
	viper.SetDefault("explorer.base_url", d.Explorer.BaseURL)
	viper.SetDefault("explorer.compat_path", d.Explorer.CompatPath)
	viper.SetDefault("explorer.rest_path", d.Explorer.RestPath)
	viper.SetDefault("explorer.user_agent", d.Explorer.UserAgent)
	viper.SetDefault("explorer.request_timeout", d.Explorer.RequestTimeout)
	viper.SetDefault("explorer.token_info_timeout", d.Explorer.TokenInfoTimeout)
	viper.SetDefault("explorer.retry_attempts", d.Explorer.RetryAttempts)
	viper.SetDefault("explorer.retry_base_delay", d.Explorer.RetryBaseDelay)
	viper.SetDefault("explorer.retry_multiplier", d.Explorer.RetryMultiplier)
	viper.SetDefault("explorer.compat_offset", d.Explorer.CompatOffset)
	viper.SetDefault("explorer.rest_page_size", d.Explorer.RestPageSize)
	viper.SetDefault("explorer.rest_max_pages", d.Explorer.RestMaxPages)

	// RPC defaults
	viper.SetDefault("rpc.enabled", d.RPC.Enabled)
	viper.SetDefault("rpc.url", d.RPC.URL)
	viper.SetDefault("rpc.request_timeout", d.RPC.RequestTimeout)

	// Classifier defaults
	viper.SetDefault("classifier.staking_contract", d.Classifier.StakingContract)
	viper.SetDefault("classifier.cco_factory", d.Classifier.CCOFactory)
	viper.SetDefault("classifier.gm_contracts", d.Classifier.GMContracts)
	viper.SetDefault("classifier.domain_keywords", d.Classifier.DomainKeywords)

	// Aggregator defaults
	viper.SetDefault("aggregator.batch_size", d.Aggregator.BatchSize)
	viper.SetDefault("aggregator.deep_inspection_limit", d.Aggregator.DeepInspectionLimit)
	viper.SetDefault("aggregator.deep_inspection_time", d.Aggregator.DeepInspectionTime)

	// Scoring defaults
	viper.SetDefault("scoring.default_concurrency", d.Scoring.DefaultConcurrency)
	viper.SetDefault("scoring.max_concurrency", d.Scoring.MaxConcurrency)
	viper.SetDefault("scoring.queue_size", d.Scoring.QueueSize)

	// Direct scan defaults
	viper.SetDefault("direct.request_timeout", d.Direct.RequestTimeout)
	viper.SetDefault("direct.page_size", d.Direct.PageSize)
	viper.SetDefault("direct.max_pages", d.Direct.MaxPages)
	viper.SetDefault("direct.global_budget", d.Direct.GlobalBudget)
	viper.SetDefault("direct.retry_attempts", d.Direct.RetryAttempts)
	viper.SetDefault("direct.retry_base_delay", d.Direct.RetryBaseDelay)
	viper.SetDefault("direct.logs_concurrency", d.Direct.LogsConcurrency)
	viper.SetDefault("direct.logs_limit", d.Direct.LogsLimit)
	viper.SetDefault("direct.repeat_guard_limit", d.Direct.RepeatGuardLimit)

	// Cache defaults
	viper.SetDefault("cache.size", d.Cache.Size)
	viper.SetDefault("cache.logs_ttl", d.Cache.LogsTTL)
	viper.SetDefault("cache.token_info_ttl", d.Cache.TokenInfoTTL)

	// MongoDB defaults
	viper.SetDefault("mongodb.enabled", d.MongoDB.Enabled)
	viper.SetDefault("mongodb.uri", d.MongoDB.URI)
	viper.SetDefault("mongodb.database", d.MongoDB.Database)
	viper.SetDefault("mongodb.connect_timeout", d.MongoDB.ConnectTimeout)
	viper.SetDefault("mongodb.max_pool_size", d.MongoDB.MaxPoolSize)
	viper.SetDefault("mongodb.token_info_ttl", d.MongoDB.TokenInfoTTL)

	// NATS defaults
	viper.SetDefault("nats.enabled", d.NATS.Enabled)
	viper.SetDefault("nats.url", d.NATS.URL)
	viper.SetDefault("nats.stream_name", d.NATS.StreamName)
	viper.SetDefault("nats.subject_prefix", d.NATS.SubjectPrefix)
	viper.SetDefault("nats.connect_timeout", d.NATS.ConnectTimeout)
	viper.SetDefault("nats.reconnect_attempts", d.NATS.ReconnectAttempts)
	viper.SetDefault("nats.reconnect_delay", d.NATS.ReconnectDelay)
}

func bindEnvVars() {
	// App
	viper.BindEnv("app.env", "APP_ENV")
	viper.BindEnv("app.log_level", "LOG_LEVEL")

	// HTTP
	viper.BindEnv("http.port", "APP_PORT")
	viper.BindEnv("http.stats_budget", "API_BUDGET")
	viper.BindEnv("http.metrics_enabled", "METRICS_ENABLED")

	// Explorer
	viper.BindEnv("explorer.base_url", "EXPLORER_BASE")
	viper.BindEnv("explorer.request_timeout", "EXPLORER_TIMEOUT")
	viper.BindEnv("explorer.retry_attempts", "EXPLORER_RETRY_ATTEMPTS")

	// RPC
	viper.BindEnv("rpc.enabled", "RPC_ENABLED")
	viper.BindEnv("rpc.url", "RPC_URL")

	// Classifier
	viper.BindEnv("classifier.staking_contract", "STAKING_CONTRACT")
	viper.BindEnv("classifier.cco_factory", "CCO_DEPLOY_FACTORY")

	// Aggregator
	viper.BindEnv("aggregator.batch_size", "DEEP_INSPECTION_BATCH")
	viper.BindEnv("aggregator.deep_inspection_limit", "DEEP_INSPECTION_LIMIT")

	// Direct
	viper.BindEnv("direct.global_budget", "DIRECT_GLOBAL_BUDGET")
	viper.BindEnv("direct.logs_limit", "DIRECT_LOGS_LIMIT")

	// MongoDB
	viper.BindEnv("mongodb.enabled", "MONGO_ENABLED")
	viper.BindEnv("mongodb.uri", "MONGO_URI")
	viper.BindEnv("mongodb.database", "MONGO_DATABASE")

	// NATS
	viper.BindEnv("nats.enabled", "NATS_ENABLED")
	viper.BindEnv("nats.url", "NATS_URL")
	viper.BindEnv("nats.stream_name", "NATS_STREAM_NAME")
	viper.BindEnv("nats.subject_prefix", "NATS_SUBJECT_PREFIX")
}
