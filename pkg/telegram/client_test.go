package telegram

import (
	"errors"
	"fmt"
	"testing"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"relayhub/internal/models"
)

func TestClassifyErrorForbidden(t *testing.T) {
	err := classifyError(&tgbotapi.Error{Code: 403, Message: "Forbidden: bot was blocked by the user"})
	assert.ErrorIs(t, err, models.ErrRecipientUnavailable)
}

func TestClassifyErrorWrappedForbidden(t *testing.T) {
	inner := &tgbotapi.Error{Code: 403, Message: "Forbidden"}
	err := classifyError(fmt.Errorf("send failed: %w", inner))
	assert.ErrorIs(t, err, models.ErrRecipientUnavailable)
}

func TestClassifyErrorOther(t *testing.T) {
	rateLimited := &tgbotapi.Error{Code: 429, Message: "Too Many Requests"}
	err := classifyError(rateLimited)
	assert.NotErrorIs(t, err, models.ErrRecipientUnavailable)

	plain := errors.New("connection reset")
	assert.Equal(t, plain, classifyError(plain))
}

func TestInputMediaFor(t *testing.T) {
	photo, err := inputMediaFor(models.MediaItem{Kind: models.MediaKindPhoto, FileID: "f1"})
	require.NoError(t, err)
	assert.IsType(t, tgbotapi.InputMediaPhoto{}, photo)

	video, err := inputMediaFor(models.MediaItem{Kind: models.MediaKindVideo, FileID: "f2"})
	require.NoError(t, err)
	assert.IsType(t, tgbotapi.InputMediaVideo{}, video)

	doc, err := inputMediaFor(models.MediaItem{Kind: models.MediaKindDocument, FileID: "f3"})
	require.NoError(t, err)
	assert.IsType(t, tgbotapi.InputMediaDocument{}, doc)

	_, err = inputMediaFor(models.MediaItem{Kind: models.MediaKindText})
	assert.Error(t, err)
}

func TestWithCaption(t *testing.T) {
	photo := tgbotapi.NewInputMediaPhoto(tgbotapi.FileID("f1"))
	captioned := withCaption(photo, "From: Alice")

	got, ok := captioned.(tgbotapi.InputMediaPhoto)
	require.True(t, ok)
	assert.Equal(t, "From: Alice", got.Caption)
}

func TestConvertMessageText(t *testing.T) {
	raw := &tgbotapi.Message{
		MessageID: 42,
		From:      &tgbotapi.User{ID: 7, FirstName: "Alice", LastName: "Smith", UserName: "alice"},
		Text:      "hello",
	}

	msg := convertMessage(raw)
	assert.Equal(t, 42, msg.MessageID)
	assert.Equal(t, int64(7), msg.SenderID)
	assert.Equal(t, "Alice Smith", msg.SenderName)
	assert.Equal(t, "alice", msg.SenderUsername)
	assert.Equal(t, models.MediaKindText, msg.Kind)
	assert.Equal(t, "hello", msg.Text)
	assert.Empty(t, msg.Command)
}

func TestConvertMessagePhotoAlbumMember(t *testing.T) {
	raw := &tgbotapi.Message{
		MessageID:    43,
		From:         &tgbotapi.User{ID: 7, FirstName: "Alice"},
		Photo:        []tgbotapi.PhotoSize{{FileID: "small"}, {FileID: "large"}},
		Caption:      "vacation",
		MediaGroupID: "group-9",
	}

	msg := convertMessage(raw)
	assert.Equal(t, models.MediaKindPhoto, msg.Kind)
	assert.Equal(t, "large", msg.FileID, "must pick the largest rendition")
	assert.Equal(t, "vacation", msg.Caption)
	assert.Equal(t, "group-9", msg.GroupKey)
}

func TestConvertMessageReply(t *testing.T) {
	raw := &tgbotapi.Message{
		MessageID:      44,
		From:           &tgbotapi.User{ID: 7, FirstName: "Alice"},
		Text:           "replying",
		ReplyToMessage: &tgbotapi.Message{MessageID: 30},
	}

	msg := convertMessage(raw)
	assert.Equal(t, 30, msg.ReplyTargetID)
}

func TestConvertMessageCommand(t *testing.T) {
	raw := &tgbotapi.Message{
		MessageID: 45,
		From:      &tgbotapi.User{ID: 7, FirstName: "Alice"},
		Text:      "/approve 123",
		Entities:  []tgbotapi.MessageEntity{{Type: "bot_command", Offset: 0, Length: 8}},
	}

	msg := convertMessage(raw)
	assert.Equal(t, "approve", msg.Command)
	assert.Equal(t, "123", msg.CommandArgs)
}

func TestConvertMessageSticker(t *testing.T) {
	raw := &tgbotapi.Message{
		MessageID: 46,
		From:      &tgbotapi.User{ID: 7, FirstName: "Alice"},
		Sticker:   &tgbotapi.Sticker{FileID: "sticker-1"},
	}

	msg := convertMessage(raw)
	assert.Equal(t, models.MediaKindOther, msg.Kind)
}

func TestSenderNameFallsBackToUsername(t *testing.T) {
	assert.Equal(t, "alice", senderName(&tgbotapi.User{UserName: "alice"}))
	assert.Equal(t, "Alice", senderName(&tgbotapi.User{FirstName: "Alice"}))
}
