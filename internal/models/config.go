package models

type Config struct {
	Telegram TelegramConfig `json:"telegram"`
	Database DatabaseConfig `json:"database"`
	Relay    RelayConfig    `json:"relay"`
	Server   ServerConfig   `json:"server"`
	Tracing  TracingConfig  `json:"tracing"`
	LogLevel string         `json:"logLevel"`
}

type TelegramConfig struct {
	// BotToken may be left empty in the file and supplied through the
	// TELEGRAM_BOT_TOKEN environment variable instead.
	BotToken          string  `json:"botToken"`
	ApprovalChannelID int64   `json:"approvalChannelId"`
	InitialAdminIDs   []int64 `json:"initialAdminIds"`
}

type DatabaseConfig struct {
	Path string `json:"path"`
}

type RelayConfig struct {
	AlbumDebounceMs     int `json:"albumDebounceMs"`
	DispatchIntervalSec int `json:"dispatchIntervalSec"`
	RecipientBatchSize  int `json:"recipientBatchSize"`
	BatchPauseSec       int `json:"batchPauseSec"`
	DirectPauseMs       int `json:"directPauseMs"`
	InactivityDays      int `json:"inactivityDays"`
}

type ServerConfig struct {
	Port int `json:"port"`
}

type TracingConfig struct {
	Enabled        bool    `json:"enabled"`
	ServiceName    string  `json:"serviceName"`
	ServiceVersion string  `json:"serviceVersion"`
	Environment    string  `json:"environment"`
	OTLPEndpoint   string  `json:"otlpEndpoint"`
	SampleRate     float64 `json:"sampleRate"`
	UseStdout      bool    `json:"useStdout"`
}
