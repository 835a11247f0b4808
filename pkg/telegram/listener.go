package telegram

import (
	"context"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"relayhub/internal/models"
)

const updateTimeoutSec = 60

// UpdateHandler consumes one normalized inbound message. The bot router
// implements it.
type UpdateHandler interface {
	HandleUpdate(ctx context.Context, msg models.InboundMessage) error
}

// Listen runs the long-polling loop until the context ends, converting raw
// updates into inbound messages for the handler. Non-private chats and
// non-message updates are ignored; the bot only relays direct chats.
func (c *Client) Listen(ctx context.Context, handler UpdateHandler) {
	conf := tgbotapi.NewUpdate(0)
	conf.Timeout = updateTimeoutSec
	updates := c.bot.GetUpdatesChan(conf)

	c.logger.Info("Listening for updates")

	for {
		select {
		case <-ctx.Done():
			c.bot.StopReceivingUpdates()
			c.logger.Info("Update listener stopped")
			return
		case update, ok := <-updates:
			if !ok {
				c.logger.Warn("Updates channel closed")
				return
			}
			c.handleRawUpdate(ctx, handler, update)
		}
	}
}

func (c *Client) handleRawUpdate(ctx context.Context, handler UpdateHandler, update tgbotapi.Update) {
	defer func() {
		if r := recover(); r != nil {
			c.logger.WithField("updateId", update.UpdateID).Errorf("Panic while handling update: %v", r)
		}
	}()

	raw := update.Message
	if raw == nil || raw.From == nil || raw.From.IsBot {
		return
	}
	if raw.Chat == nil || !raw.Chat.IsPrivate() {
		return
	}

	msg := convertMessage(raw)
	if err := handler.HandleUpdate(ctx, msg); err != nil {
		c.logger.WithError(err).WithField("updateId", update.UpdateID).Error("Failed to handle update")
	}
}

func convertMessage(raw *tgbotapi.Message) models.InboundMessage {
	msg := models.InboundMessage{
		MessageID:      raw.MessageID,
		SenderID:       raw.From.ID,
		SenderName:     senderName(raw.From),
		SenderUsername: raw.From.UserName,
		Text:           raw.Text,
		Caption:        raw.Caption,
		GroupKey:       raw.MediaGroupID,
	}

	if raw.ReplyToMessage != nil {
		msg.ReplyTargetID = raw.ReplyToMessage.MessageID
	}
	if raw.IsCommand() {
		msg.Command = raw.Command()
		msg.CommandArgs = raw.CommandArguments()
	}

	msg.Kind, msg.FileID = classifyContent(raw)
	return msg
}

// classifyContent maps the populated content field onto the relay media
// kind. Photos carry several renditions; the last entry is the largest.
func classifyContent(raw *tgbotapi.Message) (models.MediaKind, string) {
	switch {
	case len(raw.Photo) > 0:
		return models.MediaKindPhoto, raw.Photo[len(raw.Photo)-1].FileID
	case raw.Video != nil:
		return models.MediaKindVideo, raw.Video.FileID
	case raw.Document != nil:
		return models.MediaKindDocument, raw.Document.FileID
	case raw.Text != "":
		return models.MediaKindText, ""
	default:
		return models.MediaKindOther, ""
	}
}

func senderName(user *tgbotapi.User) string {
	name := strings.TrimSpace(user.FirstName + " " + user.LastName)
	if name == "" {
		return user.UserName
	}
	return name
}
