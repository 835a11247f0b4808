package service

import (
	"context"
	"errors"
	"fmt"
	"html"
	"time"

	"relayhub/internal/models"
	"relayhub/internal/tracing"

	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"
	oteltrace "go.opentelemetry.io/otel/trace"
)

// DirectRelay is the immediate, non-buffered path for non-album content.
// Text is re-wrapped with a sender attribution header; every other kind
// (stickers, voice, audio, ...) is copied anonymously. The asymmetry is a
// product decision: text is quoted with attribution, the rest is relayed
// as-is.
type DirectRelay struct {
	directory UserDirectory
	relayLog  RelayLog
	transport Transport
	pause     time.Duration
	logger    *logrus.Logger
	tracer    oteltrace.Tracer
}

func NewDirectRelay(directory UserDirectory, relayLog RelayLog, transport Transport, pause time.Duration, logger *logrus.Logger) *DirectRelay {
	return &DirectRelay{
		directory: directory,
		relayLog:  relayLog,
		transport: transport,
		pause:     pause,
		logger:    logger,
		tracer:    tracing.Tracer("relayhub/direct"),
	}
}

// Relay fans one non-media message out to all other active users,
// synchronously with the inbound event.
func (r *DirectRelay) Relay(ctx context.Context, msg models.InboundMessage) error {
	ctx, span := r.tracer.Start(ctx, "relay.direct", oteltrace.WithAttributes(
		attribute.String("message.kind", string(msg.Kind)),
	))
	defer span.End()

	log := r.logger.WithFields(logrus.Fields{
		"senderId":  SanitizeUserID(msg.SenderID),
		"messageId": msg.MessageID,
		"kind":      msg.Kind,
	})

	sender, err := r.directory.GetUser(ctx, msg.SenderID)
	if err != nil {
		return fmt.Errorf("failed to load sender: %w", err)
	}
	if sender == nil {
		return models.ErrUserNotFound
	}

	recipients, err := r.directory.GetActiveUsers(ctx)
	if err != nil {
		return fmt.Errorf("failed to list recipients: %w", err)
	}

	relayedTo := make(map[int64]int)
	for _, recipient := range recipients {
		if recipient.ID == msg.SenderID {
			continue
		}

		replyTo := resolveReplyTarget(ctx, log, r.relayLog, msg.SenderID, recipient.ID, msg.ReplyTargetID)

		var sentID int
		if msg.Kind == models.MediaKindText {
			// SendText uses HTML parse mode, so user-controlled content must
			// be entity-escaped or Telegram rejects the whole message.
			text := fmt.Sprintf("<b>From: %s</b>\n\n%s",
				html.EscapeString(sender.DisplayName()), html.EscapeString(msg.Text))
			sentID, err = r.transport.SendText(ctx, recipient.ID, text, replyTo)
		} else {
			sentID, err = r.transport.CopyMessage(ctx, recipient.ID, msg.SenderID, msg.MessageID, replyTo)
		}
		if err != nil {
			if errors.Is(err, models.ErrRecipientUnavailable) {
				if derr := r.directory.UpdateUserStatus(ctx, recipient.ID, models.UserStatusInactive); derr != nil {
					log.WithError(derr).Error("Failed to demote unreachable recipient")
				} else {
					log.WithField("recipientId", SanitizeUserID(recipient.ID)).Info("Recipient unreachable, marked inactive")
				}
			} else {
				log.WithError(err).WithField("recipientId", SanitizeUserID(recipient.ID)).Warn("Direct relay failed, skipping recipient")
			}
			continue
		}

		relayedTo[recipient.ID] = sentID
		sleepCtx(ctx, r.pause)
	}

	// One entry for the whole message, all recipients merged.
	if err := r.relayLog.RecordRelayedMessages(ctx, msg.MessageID, msg.SenderID, relayedTo); err != nil {
		log.WithError(err).Error("Failed to record relay log entry")
	}

	if err := r.directory.IncrementUserStats(ctx, msg.SenderID, 0, 1); err != nil {
		log.WithError(err).Error("Failed to update sender message stats")
	}

	log.WithField("recipients", len(relayedTo)).Debug("Direct relay complete")
	return nil
}
