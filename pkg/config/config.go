package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Environment string `yaml:"environment"`
	Server      struct {
		Port            int           `yaml:"port"`
		ReadTimeout     time.Duration `yaml:"read_timeout"`
		WriteTimeout    time.Duration `yaml:"write_timeout"`
		ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	} `yaml:"server"`
	Metrics struct {
		Enabled bool   `yaml:"enabled"`
		Path    string `yaml:"path"`
	} `yaml:"metrics"`
	Pipeline struct {
		NumericTolerance      float64       `yaml:"numeric_tolerance"`
		SchemaMaxRetries      int           `yaml:"schema_max_retries"`
		FactCheckBudget       time.Duration `yaml:"fact_check_budget"`
		ValidationCacheSize   int           `yaml:"validation_cache_size"`
		CacheRotationSchedule string        `yaml:"cache_rotation_schedule"`
	} `yaml:"pipeline"`
	Regime struct {
		MinLookbackBars        int     `yaml:"min_lookback_bars"`
		VolatilityThreshold    float64 `yaml:"volatility_threshold"`
		TrendThreshold         float64 `yaml:"trend_threshold"`
		MeanReversionThreshold float64 `yaml:"mean_reversion_threshold"`
	} `yaml:"regime"`
	Risk struct {
		RiskPerTradeMax        float64 `yaml:"risk_per_trade_max"`
		PortfolioHeatMax       float64 `yaml:"portfolio_heat_max"`
		CircuitBreakerDrawdown float64 `yaml:"circuit_breaker_drawdown"`
		MaxSingleAssetExposure float64 `yaml:"max_single_asset_exposure"`
		ATRPeriod              int     `yaml:"atr_period"`
	} `yaml:"risk"`
	Agent struct {
		APIKey      string        `yaml:"api_key"`
		BaseURL     string        `yaml:"base_url"`
		Model       string        `yaml:"model"`
		Temperature float64       `yaml:"temperature"`
		Timeout     time.Duration `yaml:"timeout"`
	} `yaml:"agent"`
	Entailment struct {
		BaseURL string        `yaml:"base_url"`
		Timeout time.Duration `yaml:"timeout"`
	} `yaml:"entailment"`
	ClickHouse struct {
		Enabled          bool          `yaml:"enabled"`
		Host             string        `yaml:"host"`
		Port             int           `yaml:"port"`
		Database         string        `yaml:"database"`
		User             string        `yaml:"user"`
		Password         string        `yaml:"password"`
		UseHTTP          bool          `yaml:"use_http"`
		AsyncInsert      bool          `yaml:"async_insert"`
		WaitForAsync     bool          `yaml:"wait_for_async_insert"`
		DialTimeout      time.Duration `yaml:"dial_timeout"`
		ReadTimeout      time.Duration `yaml:"read_timeout"`
		WriteTimeout     time.Duration `yaml:"write_timeout"`
		MaxExecutionTime time.Duration `yaml:"max_execution_time"`
	} `yaml:"clickhouse"`
	Kafka struct {
		Enabled      bool     `yaml:"enabled"`
		Brokers      []string `yaml:"brokers"`
		Topic        string   `yaml:"topic"`
		RequiredAcks int      `yaml:"required_acks"`
		Compression  string   `yaml:"compression"`
		Producer     struct {
			MaxAttempts  int           `yaml:"max_attempts"`
			Linger       time.Duration `yaml:"linger"`
			BatchBytes   int           `yaml:"batch_bytes"`
			BatchSize    int           `yaml:"batch_size"`
			WriteTimeout time.Duration `yaml:"write_timeout"`
			ReadTimeout  time.Duration `yaml:"read_timeout"`
			Async        bool          `yaml:"async"`
		} `yaml:"producer"`
	} `yaml:"kafka"`
	Cache struct {
		ResponseTTL time.Duration `yaml:"response_ttl"`
		Redis       struct {
			Enabled  bool   `yaml:"enabled"`
			Addr     string `yaml:"addr"`
			Password string `yaml:"password"`
			DB       int    `yaml:"db"`
		} `yaml:"redis"`
	} `yaml:"cache"`
	RateLimit struct {
		Enabled bool    `yaml:"enabled"`
		RPS     float64 `yaml:"rps"`
		Burst   int     `yaml:"burst"`
	} `yaml:"ratelimit"`
}

// Load reads and parses a YAML configuration file.
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var c Config
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	c.applyDefaults()

	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return &c, nil
}

// LoadWithEnv loads config from YAML and overrides with environment variables.
func LoadWithEnv(path string) (*Config, error) {
	c, err := Load(path)
	if err != nil {
		return nil, err
	}

	// Override with environment variables
	if v := os.Getenv("AGENT_API_KEY"); v != "" {
		c.Agent.APIKey = v
	}
	if v := os.Getenv("AGENT_BASE_URL"); v != "" {
		c.Agent.BaseURL = v
	}
	if v := os.Getenv("ENTAILMENT_URL"); v != "" {
		c.Entailment.BaseURL = v
	}
	if v := os.Getenv("KAFKA_BROKERS"); v != "" {
		c.Kafka.Brokers = strings.Split(v, ",")
	}
	if v := os.Getenv("KAFKA_TOPIC"); v != "" {
		c.Kafka.Topic = v
	}
	if v := os.Getenv("CLICKHOUSE_HOST"); v != "" {
		c.ClickHouse.Host = v
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		c.Cache.Redis.Addr = v
	}

	return c, nil
}

func (c *Config) applyDefaults() {
	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}
	if c.Server.ShutdownTimeout == 0 {
		c.Server.ShutdownTimeout = 10 * time.Second
	}
	if c.Metrics.Path == "" {
		c.Metrics.Path = "/metrics"
	}
	if c.Pipeline.NumericTolerance == 0 {
		c.Pipeline.NumericTolerance = 0.10
	}
	if c.Pipeline.SchemaMaxRetries == 0 {
		c.Pipeline.SchemaMaxRetries = 2
	}
	if c.Pipeline.FactCheckBudget == 0 {
		c.Pipeline.FactCheckBudget = 2 * time.Second
	}
	if c.Pipeline.ValidationCacheSize == 0 {
		c.Pipeline.ValidationCacheSize = 4096
	}
	if c.Pipeline.CacheRotationSchedule == "" {
		c.Pipeline.CacheRotationSchedule = "5 0 * * *"
	}
	if c.Regime.MinLookbackBars == 0 {
		c.Regime.MinLookbackBars = 80
	}
	if c.Regime.VolatilityThreshold == 0 {
		c.Regime.VolatilityThreshold = 0.40
	}
	if c.Regime.TrendThreshold == 0 {
		c.Regime.TrendThreshold = 0.30
	}
	if c.Regime.MeanReversionThreshold == 0 {
		c.Regime.MeanReversionThreshold = 0.25
	}
	if c.Risk.RiskPerTradeMax == 0 {
		c.Risk.RiskPerTradeMax = 0.02
	}
	if c.Risk.PortfolioHeatMax == 0 {
		c.Risk.PortfolioHeatMax = 0.10
	}
	if c.Risk.CircuitBreakerDrawdown == 0 {
		c.Risk.CircuitBreakerDrawdown = 0.15
	}
	if c.Risk.MaxSingleAssetExposure == 0 {
		c.Risk.MaxSingleAssetExposure = 0.25
	}
	if c.Risk.ATRPeriod == 0 {
		c.Risk.ATRPeriod = 14
	}
	if c.Agent.Model == "" {
		c.Agent.Model = "gpt-4o-mini"
	}
	if c.Agent.Timeout == 0 {
		c.Agent.Timeout = 30 * time.Second
	}
	if c.Entailment.Timeout == 0 {
		c.Entailment.Timeout = 5 * time.Second
	}
	if c.Cache.ResponseTTL == 0 {
		c.Cache.ResponseTTL = time.Minute
	}
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.Environment == "" {
		return fmt.Errorf("environment is required")
	}
	if c.Agent.APIKey == "" && os.Getenv("AGENT_API_KEY") == "" {
		return fmt.Errorf("agent.api_key is required")
	}
	if c.Pipeline.NumericTolerance <= 0 {
		return fmt.Errorf("pipeline.numeric_tolerance must be positive")
	}
	if c.Pipeline.SchemaMaxRetries < 0 {
		return fmt.Errorf("pipeline.schema_max_retries cannot be negative")
	}
	if c.Risk.RiskPerTradeMax <= 0 || c.Risk.RiskPerTradeMax > 1 {
		return fmt.Errorf("risk.risk_per_trade_max must be in (0,1]")
	}
	if c.Risk.PortfolioHeatMax < c.Risk.RiskPerTradeMax {
		return fmt.Errorf("risk.portfolio_heat_max must be >= risk.risk_per_trade_max")
	}
	if c.Kafka.Enabled && len(c.Kafka.Brokers) == 0 {
		return fmt.Errorf("kafka.brokers cannot be empty when kafka is enabled")
	}
	if c.ClickHouse.Enabled && c.ClickHouse.Host == "" {
		return fmt.Errorf("clickhouse.host is required when clickhouse is enabled")
	}
	return nil
}
