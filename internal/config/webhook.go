package config

import "time"

// Webhook represents the configuration for delivering billing events to an external endpoint
type Webhook struct {
	Enabled        bool              `mapstructure:"enabled"`
	Endpoint       string            `mapstructure:"endpoint" validate:"omitempty,url"`
	Headers        map[string]string `mapstructure:"headers"`
	ExcludedEvents []string          `mapstructure:"excluded_events"`
	Timeout        time.Duration     `mapstructure:"timeout"`

	// Retry settings for the router retry middleware
	MaxRetries      int           `mapstructure:"max_retries"`
	InitialInterval time.Duration `mapstructure:"initial_interval"`
	MaxInterval     time.Duration `mapstructure:"max_interval"`
	Multiplier      float64       `mapstructure:"multiplier"`
	MaxElapsedTime  time.Duration `mapstructure:"max_elapsed_time"`

	// RateLimit is the number of deliveries allowed per second
	RateLimit float64 `mapstructure:"rate_limit"`
	RateBurst int     `mapstructure:"rate_burst"`
}
