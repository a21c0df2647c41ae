package config

import (
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/spf13/viper"
)

// Placeholder secrets shipped in config.yml; running with one of these in
// production is a startup error, not a warning.
var placeholderSecrets = map[string]bool{
	"":                     true,
	"changeme":             true,
	"change-me-in-prod":    true,
	"your-256-bit-secret":  true,
	"super-secret-jwt-key": true,
}

type Config struct {
	Environment string `mapstructure:"environment"`
	Database    struct {
		Host     string `mapstructure:"host"`
		Port     string `mapstructure:"port"`
		User     string `mapstructure:"user"`
		Password string `mapstructure:"password"`
		Name     string `mapstructure:"name"`
	} `mapstructure:"database"`
	Redis struct {
		Host     string `mapstructure:"host"`
		Port     string `mapstructure:"port"`
		Password string `mapstructure:"password"`
	} `mapstructure:"redis"`
	Server struct {
		Port string `mapstructure:"port"`
	} `mapstructure:"server"`
	JWT struct {
		SecretKey         string `mapstructure:"secret_key"`
		AccessTokenExpiry string `mapstructure:"access_token_expiry"`
	} `mapstructure:"jwt"`
	RefreshToken struct {
		LifetimeDays int `mapstructure:"lifetime_days"`
	} `mapstructure:"refresh_token"`
	OTP struct {
		WindowMinutes int `mapstructure:"window_minutes"`
	} `mapstructure:"otp"`
	Throttle struct {
		MaxAttempts   int `mapstructure:"max_attempts"`
		WindowMinutes int `mapstructure:"window_minutes"`
	} `mapstructure:"throttle"`
}

var AppConfig Config

func LoadConfig(path string) {
	viper.AddConfigPath(path)
	viper.SetConfigName("config")
	viper.SetConfigType("yml")

	viper.AutomaticEnv()

	viper.SetDefault("environment", "development")
	viper.SetDefault("jwt.access_token_expiry", "15m")
	viper.SetDefault("refresh_token.lifetime_days", 30)
	viper.SetDefault("otp.window_minutes", 10)
	viper.SetDefault("throttle.max_attempts", 10)
	viper.SetDefault("throttle.window_minutes", 15)

	if err := viper.ReadInConfig(); err != nil {
		log.Fatalf("Error reading config file, %s", err)
	}

	if err := viper.Unmarshal(&AppConfig); err != nil {
		log.Fatalf("Unable to decode into struct, %v", err)
	}
}

// IsProduction reports whether the app runs with production cookie and
// secret policies.
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

// AccessTokenTTL parses the configured access token expiry, falling back to
// 15 minutes on a malformed value.
func (c *Config) AccessTokenTTL() time.Duration {
	d, err := time.ParseDuration(c.JWT.AccessTokenExpiry)
	if err != nil || d <= 0 {
		return 15 * time.Minute
	}
	return d
}

// RefreshTokenTTL returns the absolute refresh token lifetime.
func (c *Config) RefreshTokenTTL() time.Duration {
	days := c.RefreshToken.LifetimeDays
	if days <= 0 {
		days = 30
	}
	return time.Duration(days) * 24 * time.Hour
}

// OTPWindow returns the validity window for one-time passcodes.
func (c *Config) OTPWindow() time.Duration {
	minutes := c.OTP.WindowMinutes
	if minutes <= 0 {
		minutes = 10
	}
	return time.Duration(minutes) * time.Minute
}

// Validate refuses configurations that must never reach production. The
// caller is expected to treat an error as fatal before serving traffic.
func (c *Config) Validate() error {
	if c.IsProduction() && placeholderSecrets[c.JWT.SecretKey] {
		return errors.New("jwt.secret_key is unset or a placeholder; refusing to start in production")
	}
	if c.RefreshToken.LifetimeDays < 0 {
		return fmt.Errorf("refresh_token.lifetime_days must be positive, got %d", c.RefreshToken.LifetimeDays)
	}
	return nil
}
