package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"

	"relayhub/internal/constants"
	"relayhub/internal/models"
	"relayhub/internal/security"
)

var (
	ErrMissingBotToken        = models.ConfigError{Message: "missing Telegram bot token"}
	ErrMissingDBPath          = models.ConfigError{Message: "missing database path"}
	ErrMissingApprovalChannel = models.ConfigError{Message: "missing approval channel ID"}
)

// LoadConfig reads and validates the JSON configuration file. Environment
// variables override file values for secrets so tokens never have to live
// on disk.
func LoadConfig(path string) (*models.Config, error) {
	if err := security.ValidateFilePath(path); err != nil {
		return nil, fmt.Errorf("invalid config path: %w", err)
	}

	file, err := os.ReadFile(path) // #nosec G304 - Path validated above
	if err != nil {
		return nil, err
	}

	var config models.Config
	if err := json.Unmarshal(file, &config); err != nil {
		return nil, err
	}

	applyEnvironmentOverrides(&config)
	applyDefaults(&config)

	if err := validate(&config); err != nil {
		return nil, err
	}

	return &config, nil
}

func applyEnvironmentOverrides(c *models.Config) {
	if token := os.Getenv("TELEGRAM_BOT_TOKEN"); token != "" {
		c.Telegram.BotToken = token
	}
	if channel := os.Getenv("APPROVAL_CHANNEL_ID"); channel != "" {
		if id, err := strconv.ParseInt(channel, 10, 64); err == nil {
			c.Telegram.ApprovalChannelID = id
		}
	}
	if port := os.Getenv("PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			c.Server.Port = p
		}
	}
}

func applyDefaults(c *models.Config) {
	if c.Relay.AlbumDebounceMs == 0 {
		c.Relay.AlbumDebounceMs = constants.DefaultAlbumDebounceMs
	}
	if c.Relay.DispatchIntervalSec == 0 {
		c.Relay.DispatchIntervalSec = constants.DefaultDispatchIntervalSec
	}
	if c.Relay.RecipientBatchSize == 0 {
		c.Relay.RecipientBatchSize = constants.DefaultRecipientBatchSize
	}
	if c.Relay.BatchPauseSec == 0 {
		c.Relay.BatchPauseSec = constants.DefaultBatchPauseSec
	}
	if c.Relay.DirectPauseMs == 0 {
		c.Relay.DirectPauseMs = constants.DefaultDirectPauseMs
	}
	if c.Relay.InactivityDays == 0 {
		c.Relay.InactivityDays = constants.DefaultInactivityDays
	}
	if c.Server.Port == 0 {
		c.Server.Port = constants.DefaultServerPort
	}
	if c.Tracing.ServiceName == "" {
		c.Tracing.ServiceName = "relayhub"
	}
	if c.Tracing.SampleRate == 0 {
		c.Tracing.SampleRate = 0.1
	}
}

func validate(c *models.Config) error {
	if c.Telegram.BotToken == "" {
		return ErrMissingBotToken
	}
	if c.Database.Path == "" {
		return ErrMissingDBPath
	}
	if c.Telegram.ApprovalChannelID == 0 {
		return ErrMissingApprovalChannel
	}
	return nil
}
