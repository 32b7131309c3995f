package config

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/viper"

	"github.com/campusworks/timesheet-approval/internal/domain/validation"
)

// Config holds all application configuration
type Config struct {
	Server     ServerConfig     `mapstructure:"server"`
	Database   DatabaseConfig   `mapstructure:"database"`
	Validation ValidationConfig `mapstructure:"validation"`
	Export     ExportConfig     `mapstructure:"export"`
	Logger     LoggerConfig     `mapstructure:"logger"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host         string        `mapstructure:"host"`
	Port         int           `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Path            string        `mapstructure:"path"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
}

// ValidationConfig holds the configurable timesheet validation bounds
type ValidationConfig struct {
	MinHours string `mapstructure:"min_hours"`
	MaxHours string `mapstructure:"max_hours"`
	MinRate  string `mapstructure:"min_rate"`
	MaxRate  string `mapstructure:"max_rate"`
}

// ExportConfig holds payroll export configuration
type ExportConfig struct {
	SheetName string `mapstructure:"sheet_name"`
}

// LoggerConfig holds logger configuration
type LoggerConfig struct {
	Level      string `mapstructure:"level"`
	OutputPath string `mapstructure:"output_path"`
	Format     string `mapstructure:"format"`
}

// Load loads configuration from file and environment variables
func Load(configPath string) (*Config, error) {
	viper.SetConfigFile(configPath)
	viper.SetConfigType("yaml")
	viper.AutomaticEnv()

	setDefaults()

	if err := viper.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	bindEnvVars()

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// setDefaults sets default configuration values
func setDefaults() {
	// Server defaults
	viper.SetDefault("server.host", "0.0.0.0")
	viper.SetDefault("server.port", 8080)
	viper.SetDefault("server.read_timeout", 30*time.Second)
	viper.SetDefault("server.write_timeout", 30*time.Second)

	// Database defaults
	viper.SetDefault("database.path", "data/timesheets.db")
	viper.SetDefault("database.max_open_conns", 25)
	viper.SetDefault("database.max_idle_conns", 5)
	viper.SetDefault("database.conn_max_lifetime", 5*time.Minute)

	// Validation bound defaults
	viper.SetDefault("validation.min_hours", "0.1")
	viper.SetDefault("validation.max_hours", "40.0")
	viper.SetDefault("validation.min_rate", "10.00")
	viper.SetDefault("validation.max_rate", "200.00")

	// Export defaults
	viper.SetDefault("export.sheet_name", "Payroll")

	// Logger defaults
	viper.SetDefault("logger.level", "info")
	viper.SetDefault("logger.output_path", "stdout")
	viper.SetDefault("logger.format", "json")
}

// bindEnvVars binds environment variables to configuration
func bindEnvVars() {
	viper.BindEnv("server.port", "SERVER_PORT")
	viper.BindEnv("database.path", "DATABASE_PATH")
	viper.BindEnv("logger.level", "LOG_LEVEL")
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be between 1 and 65535")
	}
	if c.Database.Path == "" {
		return fmt.Errorf("database.path is required")
	}
	if _, err := c.Bounds(); err != nil {
		return err
	}
	return nil
}

// Bounds parses the configured validation bounds into decimals
func (c *Config) Bounds() (validation.Bounds, error) {
	minHours, err := decimal.NewFromString(c.Validation.MinHours)
	if err != nil {
		return validation.Bounds{}, fmt.Errorf("invalid validation.min_hours %q: %w", c.Validation.MinHours, err)
	}
	maxHours, err := decimal.NewFromString(c.Validation.MaxHours)
	if err != nil {
		return validation.Bounds{}, fmt.Errorf("invalid validation.max_hours %q: %w", c.Validation.MaxHours, err)
	}
	minRate, err := decimal.NewFromString(c.Validation.MinRate)
	if err != nil {
		return validation.Bounds{}, fmt.Errorf("invalid validation.min_rate %q: %w", c.Validation.MinRate, err)
	}
	maxRate, err := decimal.NewFromString(c.Validation.MaxRate)
	if err != nil {
		return validation.Bounds{}, fmt.Errorf("invalid validation.max_rate %q: %w", c.Validation.MaxRate, err)
	}

	if minHours.GreaterThanOrEqual(maxHours) {
		return validation.Bounds{}, fmt.Errorf("validation.min_hours must be below validation.max_hours")
	}
	if minRate.GreaterThanOrEqual(maxRate) {
		return validation.Bounds{}, fmt.Errorf("validation.min_rate must be below validation.max_rate")
	}

	return validation.Bounds{
		MinHours: minHours,
		MaxHours: maxHours,
		MinRate:  minRate,
		MaxRate:  maxRate,
	}, nil
}
