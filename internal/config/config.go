package config

import (
	"fmt"

	"github.com/spf13/viper"

	"github.com/sreekanthrajagopalan/uclfantasybot/internal/types"
)

type Config struct {
	// Server
	Port string `mapstructure:"PORT"`
	Env  string `mapstructure:"ENV"`

	// Redis
	RedisURL string `mapstructure:"REDIS_URL"`

	// Logging
	LogLevel string `mapstructure:"LOG_LEVEL"`

	// Solver
	SolverTimeoutSeconds int `mapstructure:"SOLVER_TIMEOUT"`

	// Cache
	CacheExpirationSeconds int `mapstructure:"CACHE_EXPIRATION"`

	// Rule overrides. Zero values fall back to the defaults in
	// types.DefaultRules; rules change only by redeploying config,
	// never per request.
	BudgetCap       float64 `mapstructure:"BUDGET_CAP"`
	MaxPerClub      int     `mapstructure:"MAX_PER_CLUB"`
	TransferPenalty float64 `mapstructure:"TRANSFER_PENALTY"`

	// Projection
	FormWeight float64 `mapstructure:"FORM_WEIGHT"`
}

func LoadConfig() (*Config, error) {
	viper.SetConfigName(".env")
	viper.SetConfigType("env")
	viper.AddConfigPath(".")
	viper.AddConfigPath("..")

	// Set defaults
	viper.SetDefault("PORT", "8080")
	viper.SetDefault("ENV", "development")
	viper.SetDefault("REDIS_URL", "redis://localhost:6379/0")
	viper.SetDefault("LOG_LEVEL", "info")
	viper.SetDefault("SOLVER_TIMEOUT", 30)
	viper.SetDefault("CACHE_EXPIRATION", 3600) // 1 hour in seconds
	viper.SetDefault("BUDGET_CAP", 0.0)
	viper.SetDefault("MAX_PER_CLUB", 0)
	viper.SetDefault("TRANSFER_PENALTY", -1.0)
	viper.SetDefault("FORM_WEIGHT", 0.5)

	// Read from environment
	viper.AutomaticEnv()

	// Read config file if exists
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}

	return &config, nil
}

// Rules returns the default rule set with any configured overrides
// applied and validated.
func (c *Config) Rules() (types.RuleConfig, error) {
	rules := types.DefaultRules()
	if c.BudgetCap > 0 {
		rules.BudgetCap = c.BudgetCap
	}
	if c.MaxPerClub > 0 {
		rules.MaxPerClub = c.MaxPerClub
	}
	if c.TransferPenalty >= 0 {
		rules.TransferPenalty = c.TransferPenalty
	}
	if err := rules.Validate(); err != nil {
		return types.RuleConfig{}, fmt.Errorf("configured rules invalid: %w", err)
	}
	return rules, nil
}

func (c *Config) IsDevelopment() bool {
	return c.Env == "development"
}

func (c *Config) IsProduction() bool {
	return c.Env == "production"
}
