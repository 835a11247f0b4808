package constants

// Relay timing and batching. The batch numbers come from Telegram API limits:
// a media group holds at most 10 items, and bursts of sends to many chats
// need pacing to stay under the bot-wide rate limit.
const (
	MaxAlbumSize = 10

	DefaultAlbumDebounceMs     = 2000
	DefaultDispatchIntervalSec = 20
	DefaultRecipientBatchSize  = 10
	DefaultBatchPauseSec       = 3
	DefaultDirectPauseMs       = 50
	DefaultDeletePauseMs       = 100
	DefaultPinPauseMs          = 200
)

// Scheduled broadcast cadences
const (
	DefaultInactivityDays       = 7
	DefaultInactivitySweepSec   = 3600
	DefaultServiceMessageSec    = 3 * 3600
	DefaultDailySummarySec      = 24 * 3600
	DefaultWeeklySummarySec     = 7 * 24 * 3600
	DefaultTopSendersLimit      = 10
	DefaultStatsTopSendersLimit = 20
)

// Default timeout values
const (
	DefaultServerPort            = 8080
	DefaultServerReadTimeoutSec  = 15
	DefaultServerWriteTimeoutSec = 15
	DefaultServerIdleTimeoutSec  = 60
	DefaultGracefulShutdownSec   = 30
	DefaultDatabaseRetryAttempts = 3
	DefaultBackoffInitialMs      = 500
	DefaultBackoffMaxSec         = 5
)

// Privacy settings
const (
	DefaultUserIDMaskLength = 4
	DefaultCaptionLogLength = 32
)
