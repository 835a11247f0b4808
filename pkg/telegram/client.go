package telegram

import (
	"context"
	"errors"
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/sirupsen/logrus"

	"relayhub/internal/models"
)

// Client wraps the Bot API behind the transport surface the relay services
// consume. All sends are per-chat and independently fallible; a 403 from the
// API (user blocked the bot or deleted their account) is normalized to
// models.ErrRecipientUnavailable so callers can demote the recipient.
type Client struct {
	bot    *tgbotapi.BotAPI
	logger *logrus.Logger
}

func NewClient(token string, logger *logrus.Logger) (*Client, error) {
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("failed to create bot api: %w", err)
	}
	logger.WithField("username", bot.Self.UserName).Info("Bot API connected")
	return &Client{bot: bot, logger: logger}, nil
}

func (c *Client) SendText(ctx context.Context, chatID int64, text string, replyTo int) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeHTML
	msg.DisableWebPagePreview = true
	if replyTo != 0 {
		msg.ReplyToMessageID = replyTo
	}

	sent, err := c.bot.Send(msg)
	if err != nil {
		return 0, classifyError(err)
	}
	return sent.MessageID, nil
}

func (c *Client) CopyMessage(ctx context.Context, chatID, fromChatID int64, messageID, replyTo int) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	conf := tgbotapi.NewCopyMessage(chatID, fromChatID, messageID)
	if replyTo != 0 {
		conf.ReplyToMessageID = replyTo
	}

	sent, err := c.bot.CopyMessage(conf)
	if err != nil {
		return 0, classifyError(err)
	}
	return sent.MessageID, nil
}

// SendAlbum delivers the album as one media group transfer and returns the
// ids of the resulting messages, positionally matching album.Items.
func (c *Client) SendAlbum(ctx context.Context, chatID int64, album models.Album, replyTo int) ([]int, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(album.Items) == 0 {
		return nil, nil
	}

	files := make([]interface{}, 0, len(album.Items))
	for i, item := range album.Items {
		media, err := inputMediaFor(item)
		if err != nil {
			return nil, err
		}
		// The API renders the group caption from the first item.
		if i == 0 {
			media = withCaption(media, album.Caption)
		}
		files = append(files, media)
	}

	group := tgbotapi.NewMediaGroup(chatID, files)
	if replyTo != 0 {
		group.ReplyToMessageID = replyTo
	}

	sent, err := c.bot.SendMediaGroup(group)
	if err != nil {
		return nil, classifyError(err)
	}

	ids := make([]int, len(sent))
	for i, m := range sent {
		ids[i] = m.MessageID
	}
	return ids, nil
}

func (c *Client) DeleteMessage(ctx context.Context, chatID int64, messageID int) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if _, err := c.bot.Request(tgbotapi.NewDeleteMessage(chatID, messageID)); err != nil {
		return classifyError(err)
	}
	return nil
}

func (c *Client) PinMessage(ctx context.Context, chatID int64, messageID int) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	conf := tgbotapi.PinChatMessageConfig{
		ChatID:              chatID,
		MessageID:           messageID,
		DisableNotification: true,
	}
	if _, err := c.bot.Request(conf); err != nil {
		return classifyError(err)
	}
	return nil
}

func inputMediaFor(item models.MediaItem) (interface{}, error) {
	file := tgbotapi.FileID(item.FileID)
	switch item.Kind {
	case models.MediaKindPhoto:
		return tgbotapi.NewInputMediaPhoto(file), nil
	case models.MediaKindVideo:
		return tgbotapi.NewInputMediaVideo(file), nil
	case models.MediaKindDocument:
		return tgbotapi.NewInputMediaDocument(file), nil
	default:
		return nil, fmt.Errorf("media kind %q cannot join an album", item.Kind)
	}
}

func withCaption(media interface{}, caption string) interface{} {
	switch m := media.(type) {
	case tgbotapi.InputMediaPhoto:
		m.Caption = caption
		return m
	case tgbotapi.InputMediaVideo:
		m.Caption = caption
		return m
	case tgbotapi.InputMediaDocument:
		m.Caption = caption
		return m
	default:
		return media
	}
}

// classifyError maps a Bot API permission failure onto the sentinel the
// relay paths use for recipient demotion.
func classifyError(err error) error {
	var tgErr *tgbotapi.Error
	if errors.As(err, &tgErr) && tgErr.Code == 403 {
		return fmt.Errorf("%w: %s", models.ErrRecipientUnavailable, tgErr.Message)
	}
	return err
}
