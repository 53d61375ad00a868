package config

import (
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the application
type Config struct {
	Server   ServerConfig
	MongoDB  MongoDBConfig
	JWT      JWTConfig
	Draw     DrawConfig
	LogLevel string
}

// ServerConfig holds server-specific configuration
type ServerConfig struct {
	Port         string
	AllowedHosts []string
}

// MongoDBConfig holds MongoDB-specific configuration
type MongoDBConfig struct {
	URI      string
	Database string
}

// JWTConfig holds JWT-specific configuration
type JWTConfig struct {
	Secret    string
	ExpiresIn int
}

// DrawConfig holds the business timers of the drawing core. PrizeSeconds is
// a product requirement (the broadcast must not be shortened), not a tuning
// knob; it is configurable only so tests can compress time.
type DrawConfig struct {
	PrizeSeconds             int
	TickIntervalMS           int
	WaitingWindowMinutes     int
	ReconcileIntervalSeconds int
	CountdownIntervalSeconds int
}

// TickInterval returns the wall-clock pause between broadcast ticks.
func (d DrawConfig) TickInterval() time.Duration {
	return time.Duration(d.TickIntervalMS) * time.Millisecond
}

// WaitingWindow returns the fixed staged-raffle waiting window.
func (d DrawConfig) WaitingWindow() time.Duration {
	return time.Duration(d.WaitingWindowMinutes) * time.Minute
}

// ReconcileInterval returns the periodic reconciler cadence.
func (d DrawConfig) ReconcileInterval() time.Duration {
	return time.Duration(d.ReconcileIntervalSeconds) * time.Second
}

// CountdownInterval returns the waiting-countdown tick cadence.
func (d DrawConfig) CountdownInterval() time.Duration {
	return time.Duration(d.CountdownIntervalSeconds) * time.Second
}

// Load loads configuration from environment variables and config files
func Load() (*Config, error) {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")
	viper.AutomaticEnv()

	// Set defaults
	setDefaults()

	// Read configuration
	if err := viper.ReadInConfig(); err != nil {
		// It's okay if config file is not found, we'll use environment variables
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
	}

	// Unmarshal configuration
	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, err
	}

	return &config, nil
}

// setDefaults sets default values for configuration
func setDefaults() {
	viper.SetDefault("Server.Port", "4000")
	viper.SetDefault("Server.AllowedHosts", []string{"localhost:3000"})
	viper.SetDefault("MongoDB.URI", "mongodb://localhost:27017")
	viper.SetDefault("MongoDB.Database", "raffle-backend")
	viper.SetDefault("JWT.ExpiresIn", 24*60*60) // 24 hours
	viper.SetDefault("LogLevel", "info")
	viper.SetDefault("Draw.PrizeSeconds", 120)
	viper.SetDefault("Draw.TickIntervalMS", 1000)
	viper.SetDefault("Draw.WaitingWindowMinutes", 5)
	viper.SetDefault("Draw.ReconcileIntervalSeconds", 30)
	viper.SetDefault("Draw.CountdownIntervalSeconds", 1)
}
