package constants

// Scheduler defaults
const (
	DefaultPollIntervalSec = 60
	DefaultClaimLeaseSec   = 300
)

// Dispatch defaults
const (
	DefaultDispatchWorkers = 4
	// Telegram allows ~30 messages/sec per bot; stay under it.
	DefaultSendRatePerSec     = 25.0
	DefaultSendRateBurst      = 5
	DefaultSendTimeoutSec     = 30
	DefaultBreakerMaxFailures = 5
	DefaultBreakerCooldownSec = 60
)

// Server defaults
const (
	DefaultServerPort           = 8081
	DefaultServerReadTimeoutSec = 15
	DefaultServerWriteTimeout   = 15
	DefaultServerIdleTimeoutSec = 60
	DefaultGracefulShutdownSec  = 30
	ServerErrorChannelSize      = 1
	DefaultRecentLogLimit       = 50
	MaxRecentLogLimit           = 500
)

// Startup retry defaults
const (
	DefaultRetryBackoffMs        = 1000
	DefaultMaxBackoffMs          = 60000
	DefaultDatabaseRetryAttempts = 3
)

// Input limits
const (
	MaxBroadcastTextLength = 4096 // Telegram message length cap
	MaxRecipientIDLength   = 64
	MaxDisplayNameLength   = 128
	MaxTagLength           = 64
	MaxTagsPerRecipient    = 32
	MaxMediaURLLength      = 2048
)

// Encryption key derivation salt
const (
	EncryptionSalt = "herald-field-encryption-v1"
)

// Privacy settings
const (
	DefaultIDMaskLength = 4
)
