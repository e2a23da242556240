package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"

	"herald/internal/constants"
	"herald/internal/errors"
	"herald/internal/models"
	"herald/internal/security"
)

var (
	ErrMissingDBPath   = models.ConfigError{Message: "missing database path"}
	ErrMissingBotToken = models.ConfigError{Message: "missing bot token (set HERALD_BOT_TOKEN)"}
)

func LoadConfig(path string) (*models.Config, error) {
	// Validate config file path to prevent directory traversal
	if err := security.ValidateFilePath(path); err != nil {
		return nil, errors.NewConfigError("config_path", fmt.Sprintf("invalid config path: %v", err))
	}

	file, err := os.ReadFile(path) // #nosec G304 - Path validated by security.ValidateFilePath above
	if err != nil {
		return nil, err
	}

	var config models.Config
	if err := json.Unmarshal(file, &config); err != nil {
		return nil, err
	}

	applyEnvironmentOverrides(&config)

	if err := validate(&config); err != nil {
		return nil, err
	}

	// Perform security validation after environment overrides
	if err := validateSecurity(&config); err != nil {
		return nil, err
	}

	return &config, nil
}

func validate(c *models.Config) error {
	if c.Database.Path == "" {
		return ErrMissingDBPath
	}
	if c.Telegram.Token == "" {
		return ErrMissingBotToken
	}

	if c.Server.Port <= 0 {
		c.Server.Port = constants.DefaultServerPort
	}
	if c.Server.ReadTimeoutSec <= 0 {
		c.Server.ReadTimeoutSec = constants.DefaultServerReadTimeoutSec
	}
	if c.Server.WriteTimeoutSec <= 0 {
		c.Server.WriteTimeoutSec = constants.DefaultServerWriteTimeout
	}
	if c.Server.IdleTimeoutSec <= 0 {
		c.Server.IdleTimeoutSec = constants.DefaultServerIdleTimeoutSec
	}

	if c.Scheduler.PollIntervalSec <= 0 {
		c.Scheduler.PollIntervalSec = constants.DefaultPollIntervalSec
	}
	if c.Scheduler.ClaimLeaseSec <= 0 {
		c.Scheduler.ClaimLeaseSec = constants.DefaultClaimLeaseSec
	}
	// A lease shorter than the poll interval would release claims that are
	// still being dispatched by this very instance.
	if c.Scheduler.ClaimLeaseSec < c.Scheduler.PollIntervalSec {
		c.Scheduler.ClaimLeaseSec = c.Scheduler.PollIntervalSec
	}

	if c.Dispatch.Workers <= 0 {
		c.Dispatch.Workers = constants.DefaultDispatchWorkers
	}
	if c.Telegram.SendTimeoutSec <= 0 {
		c.Telegram.SendTimeoutSec = constants.DefaultSendTimeoutSec
	}
	if c.Telegram.RatePerSec <= 0 {
		c.Telegram.RatePerSec = constants.DefaultSendRatePerSec
	}
	if c.Telegram.RateBurst <= 0 {
		c.Telegram.RateBurst = constants.DefaultSendRateBurst
	}
	if c.Telegram.BreakerFailures <= 0 {
		c.Telegram.BreakerFailures = constants.DefaultBreakerMaxFailures
	}
	if c.Telegram.BreakerCooldownS <= 0 {
		c.Telegram.BreakerCooldownS = constants.DefaultBreakerCooldownSec
	}

	if c.Retry.InitialBackoffMs <= 0 {
		c.Retry.InitialBackoffMs = constants.DefaultRetryBackoffMs
	}
	if c.Retry.MaxBackoffMs <= 0 {
		c.Retry.MaxBackoffMs = constants.DefaultMaxBackoffMs
	}
	if c.Retry.MaxAttempts <= 0 {
		c.Retry.MaxAttempts = constants.DefaultDatabaseRetryAttempts
	}

	return nil
}

func applyEnvironmentOverrides(c *models.Config) {
	// SECURITY: the bot token and API key are only ever read from the
	// environment, never from the config file on disk.
	if token := os.Getenv("HERALD_BOT_TOKEN"); token != "" {
		c.Telegram.Token = token
	}
	if key := os.Getenv("HERALD_API_KEY"); key != "" {
		c.Server.APIKey = key
	}

	if path := os.Getenv("HERALD_DB_PATH"); path != "" {
		c.Database.Path = path
	}
	if port := os.Getenv("HERALD_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil && p > 0 {
			c.Server.Port = p
		}
	}
	if url := os.Getenv("HERALD_TELEGRAM_API_URL"); url != "" {
		c.Telegram.APIBaseURL = url
	}
}

// validateSecurity performs security-specific validation
func validateSecurity(c *models.Config) error {
	isProduction := os.Getenv("HERALD_ENV") == "production"

	if isProduction {
		// In production, the admin API must be authenticated.
		if c.Server.APIKey == "" {
			return models.ConfigError{Message: "admin API key is required in production (set HERALD_API_KEY environment variable)"}
		}
		if len(c.Server.APIKey) < 32 {
			return models.ConfigError{Message: "admin API key must be at least 32 characters long"}
		}
		if c.LogLevel == "debug" {
			return models.ConfigError{Message: "debug logging should not be used in production (security risk)"}
		}
	} else {
		if c.Server.APIKey == "" {
			fmt.Fprintf(os.Stderr, "WARNING: admin API key not set. Set HERALD_API_KEY environment variable for security.\n")
		}
	}

	return nil
}
