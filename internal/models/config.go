package models

// Config holds the application configuration
type Config struct {
	Telegram  TelegramConfig  `json:"telegram"`
	Database  DatabaseConfig  `json:"database"`
	Server    ServerConfig    `json:"server"`
	Scheduler SchedulerConfig `json:"scheduler"`
	Dispatch  DispatchConfig  `json:"dispatch"`
	Retry     RetryConfig     `json:"retry"`
	Tracing   TracingConfig   `json:"tracing"`
	LogLevel  string          `json:"log_level"`
}

// TelegramConfig holds bot transport related configurations. The bot token is
// never read from the config file; it comes from HERALD_BOT_TOKEN.
type TelegramConfig struct {
	Token            string  `json:"-"`
	APIBaseURL       string  `json:"api_base_url"`
	SendTimeoutSec   int     `json:"sendTimeoutSec"`
	BreakerFailures  int     `json:"breakerFailures"`
	BreakerCooldownS int     `json:"breakerCooldownSec"`
	RatePerSec       float64 `json:"ratePerSec"`
	RateBurst        int     `json:"rateBurst"`
}

// DatabaseConfig holds database related configurations
type DatabaseConfig struct {
	Path string `json:"path"`
}

// ServerConfig holds admin API server configurations. APIKey is normally set
// via HERALD_API_KEY rather than the config file.
type ServerConfig struct {
	Port            int    `json:"port"`
	APIKey          string `json:"api_key"`
	ReadTimeoutSec  int    `json:"readTimeoutSec"`
	WriteTimeoutSec int    `json:"writeTimeoutSec"`
	IdleTimeoutSec  int    `json:"idleTimeoutSec"`
}

// SchedulerConfig holds dispatch loop configurations
type SchedulerConfig struct {
	PollIntervalSec int `json:"pollIntervalSec"`
	ClaimLeaseSec   int `json:"claimLeaseSec"`
}

// DispatchConfig holds fan-out configurations
type DispatchConfig struct {
	Workers int `json:"workers"`
}

// RetryConfig holds startup retry related configurations
type RetryConfig struct {
	InitialBackoffMs int `json:"initialBackoffMs"`
	MaxBackoffMs     int `json:"maxBackoffMs"`
	MaxAttempts      int `json:"maxAttempts"`
}

// TracingConfig holds OpenTelemetry configurations
type TracingConfig struct {
	Enabled        bool    `json:"enabled"`
	ServiceName    string  `json:"service_name"`
	ServiceVersion string  `json:"service_version"`
	Environment    string  `json:"environment"`
	OTLPEndpoint   string  `json:"otlp_endpoint"`
	SampleRate     float64 `json:"sample_rate"`
	UseStdout      bool    `json:"use_stdout"`
}

type ConfigError struct {
	Message string
}

func (e ConfigError) Error() string {
	return e.Message
}
