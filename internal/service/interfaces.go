package service

import (
	"context"
	"time"

	"relayhub/internal/models"
)

// UserDirectory is the membership store consumed by the relay paths and the
// moderation service. The sqlite database implements it.
type UserDirectory interface {
	SaveUser(ctx context.Context, user *models.User) error
	GetUser(ctx context.Context, id int64) (*models.User, error)
	GetAllUsers(ctx context.Context) ([]models.User, error)
	GetActiveUsers(ctx context.Context) ([]models.User, error)
	FindInactiveUsers(ctx context.Context, cutoff time.Time) ([]models.User, error)
	UpdateUserStatus(ctx context.Context, id int64, status models.UserStatus) error
	UpdateUserInfo(ctx context.Context, id int64, fullName, username string) error
	SetAdmin(ctx context.Context, id int64, isAdmin bool) error
	SetWhitelisted(ctx context.Context, id int64, whitelisted bool) error
	UpdateLastActive(ctx context.Context, id int64) error
	IncrementUserStats(ctx context.Context, id int64, mediaDelta, messageDelta int64) error
}

// RelayLog is the durable original-message to per-recipient-copy index that
// reply threading and moderator deletes depend on.
type RelayLog interface {
	RecordRelayedMessages(ctx context.Context, originalID int, senderID int64, relayedTo map[int64]int) error
	GetRelayedMessage(ctx context.Context, originalID int) (*models.RelayLogEntry, error)
	GetRelayedMessageByCopy(ctx context.Context, recipientID int64, relayedID int) (*models.RelayLogEntry, error)
	DeleteRelayedMessage(ctx context.Context, originalID int) error
}

// ConfigStore holds small mutable bot settings such as the service message.
type ConfigStore interface {
	SetConfigValue(ctx context.Context, key, value string) error
	GetConfigValue(ctx context.Context, key string) (string, error)
}

// Transport is the outbound bot-protocol capability. Every call is
// independently fallible per recipient; permission failures surface as
// errors matching models.ErrRecipientUnavailable.
type Transport interface {
	SendText(ctx context.Context, chatID int64, text string, replyTo int) (int, error)
	CopyMessage(ctx context.Context, chatID, fromChatID int64, messageID, replyTo int) (int, error)
	SendAlbum(ctx context.Context, chatID int64, album models.Album, replyTo int) ([]int, error)
	DeleteMessage(ctx context.Context, chatID int64, messageID int) error
	PinMessage(ctx context.Context, chatID int64, messageID int) error
}

// PendingRelayer consumes one sender's drained pending items. The fan-out
// engine implements it; the dispatcher only depends on this.
type PendingRelayer interface {
	RelayPending(ctx context.Context, jobID string, senderID int64, items []models.MediaItem)
}
