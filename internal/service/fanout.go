package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"relayhub/internal/models"
	"relayhub/internal/tracing"

	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"
	oteltrace "go.opentelemetry.io/otel/trace"
)

// FanOutEngine relays one sender's buffered media to every other active
// user. Recipients are processed in fixed-size batches with an inter-batch
// pause to stay under the outbound rate limit. A permission failure demotes
// the recipient and never aborts the job; any other send failure is logged
// and skipped without retry.
type FanOutEngine struct {
	directory  UserDirectory
	relayLog   RelayLog
	transport  Transport
	batchSize  int
	batchPause time.Duration
	logger     *logrus.Logger
	tracer     oteltrace.Tracer
}

func NewFanOutEngine(directory UserDirectory, relayLog RelayLog, transport Transport, batchSize int, batchPause time.Duration, logger *logrus.Logger) *FanOutEngine {
	return &FanOutEngine{
		directory:  directory,
		relayLog:   relayLog,
		transport:  transport,
		batchSize:  batchSize,
		batchPause: batchPause,
		logger:     logger,
		tracer:     tracing.Tracer("relayhub/fanout"),
	}
}

// RelayPending runs one fan-out job over a captured item list. The items
// were already consumed from the buffer, so a failure to list recipients
// drops them; this is accepted loss, not a retry case.
func (e *FanOutEngine) RelayPending(ctx context.Context, jobID string, senderID int64, items []models.MediaItem) {
	ctx, span := e.tracer.Start(ctx, "relay.fanout", oteltrace.WithAttributes(
		attribute.String("job.id", jobID),
		attribute.Int("job.items", len(items)),
	))
	defer span.End()

	log := e.logger.WithFields(logrus.Fields{
		"jobId":    jobID,
		"senderId": SanitizeUserID(senderID),
		"items":    len(items),
	})

	sender, err := e.directory.GetUser(ctx, senderID)
	if err != nil {
		log.WithError(err).Error("Failed to load sender, dropping batch")
		return
	}
	if sender == nil {
		log.Warn("Sender no longer exists, dropping batch")
		return
	}

	recipients, err := e.eligibleRecipients(ctx, senderID)
	if err != nil {
		log.WithError(err).Error("Failed to list recipients, dropping batch")
		return
	}
	if len(recipients) == 0 {
		// Sender is the only active user: the batch is discarded and the
		// media counter is left untouched.
		log.Debug("No eligible recipients, dropping batch")
		return
	}

	albums := BuildAlbums(items)
	if len(albums) == 0 {
		log.Debug("No sendable albums in batch")
		return
	}
	for i := range albums {
		albums[i].Caption = attributionCaption(sender.DisplayName(), albums[i].Caption)
		log.WithFields(logrus.Fields{
			"album":   i,
			"size":    len(albums[i].Items),
			"caption": SanitizeCaption(albums[i].Caption),
		}).Debug("Album prepared")
	}

	span.SetAttributes(
		attribute.Int("job.albums", len(albums)),
		attribute.Int("job.recipients", len(recipients)),
	)

	for start := 0; start < len(recipients); start += e.batchSize {
		if start > 0 {
			sleepCtx(ctx, e.batchPause)
		}
		end := start + e.batchSize
		if end > len(recipients) {
			end = len(recipients)
		}
		for _, recipient := range recipients[start:end] {
			e.relayToRecipient(ctx, log, senderID, recipient, albums)
		}
	}

	// Counted once per batch as items offered, independent of per-recipient
	// delivery outcomes.
	if err := e.directory.IncrementUserStats(ctx, senderID, int64(len(items)), 0); err != nil {
		log.WithError(err).Error("Failed to update sender media stats")
	}

	log.WithFields(logrus.Fields{
		"albums":     len(albums),
		"recipients": len(recipients),
	}).Info("Media fan-out complete")
}

func (e *FanOutEngine) eligibleRecipients(ctx context.Context, senderID int64) ([]models.User, error) {
	active, err := e.directory.GetActiveUsers(ctx)
	if err != nil {
		return nil, err
	}
	recipients := active[:0:0]
	for _, user := range active {
		if user.ID != senderID {
			recipients = append(recipients, user)
		}
	}
	return recipients, nil
}

func (e *FanOutEngine) relayToRecipient(ctx context.Context, log *logrus.Entry, senderID int64, recipient models.User, albums []models.Album) {
	for _, album := range albums {
		replyTo := resolveReplyTarget(ctx, log, e.relayLog, senderID, recipient.ID, album.ReplyTargetID())

		sentIDs, err := e.transport.SendAlbum(ctx, recipient.ID, album, replyTo)
		if err != nil {
			if errors.Is(err, models.ErrRecipientUnavailable) {
				e.demoteRecipient(ctx, log, recipient.ID)
				return
			}
			log.WithError(err).WithField("recipientId", SanitizeUserID(recipient.ID)).Warn("Album send failed, skipping")
			continue
		}

		// The album went out as one transfer; record a log entry for every
		// source item so later replies and deletes resolve item-precisely.
		additions := make(map[int64]int, 1)
		for i, item := range album.Items {
			if i >= len(sentIDs) {
				break
			}
			additions[recipient.ID] = sentIDs[i]
			if err := e.relayLog.RecordRelayedMessages(ctx, item.SourceMessageID, senderID, additions); err != nil {
				log.WithError(err).WithField("recipientId", SanitizeUserID(recipient.ID)).Warn("Failed to record relay log entry")
			}
		}
	}
}

func (e *FanOutEngine) demoteRecipient(ctx context.Context, log *logrus.Entry, recipientID int64) {
	if err := e.directory.UpdateUserStatus(ctx, recipientID, models.UserStatusInactive); err != nil {
		log.WithError(err).WithField("recipientId", SanitizeUserID(recipientID)).Error("Failed to demote unreachable recipient")
		return
	}
	log.WithField("recipientId", SanitizeUserID(recipientID)).Info("Recipient unreachable, marked inactive")
}

// attributionCaption builds the first-item caption carrying the sender
// attribution, with the source caption appended when one exists.
func attributionCaption(displayName, caption string) string {
	if caption == "" {
		return fmt.Sprintf("From: %s", displayName)
	}
	return fmt.Sprintf("From: %s\n\n%s", displayName, caption)
}

// resolveReplyTarget maps a reply target in the sender's chat onto the
// recipient's copy of the same message. The target is looked up as an
// original first; failing that, as a relayed copy delivered to the sender
// (a reply to someone else's relayed content). When the replied-to message
// originated from the recipient, the original id itself is the thread
// anchor. Zero means no resolvable target.
func resolveReplyTarget(ctx context.Context, log *logrus.Entry, relayLog RelayLog, senderID, recipientID int64, targetID int) int {
	if targetID == 0 {
		return 0
	}

	entry, err := relayLog.GetRelayedMessage(ctx, targetID)
	if err != nil {
		log.WithError(err).Debug("Reply target lookup failed")
		return 0
	}
	if entry == nil {
		entry, err = relayLog.GetRelayedMessageByCopy(ctx, senderID, targetID)
		if err != nil {
			log.WithError(err).Debug("Reply target copy lookup failed")
			return 0
		}
		if entry == nil {
			return 0
		}
	}

	if entry.SenderID == recipientID {
		return entry.OriginalMessageID
	}
	if copyID, ok := entry.RelayedTo[recipientID]; ok {
		return copyID
	}
	return 0
}

// sleepCtx pauses for d unless the context ends first.
func sleepCtx(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
	case <-timer.C:
	}
}
