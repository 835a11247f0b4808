package service

import (
	"context"
	"fmt"
	"html"
	"strings"
	"time"

	"relayhub/internal/models"

	"github.com/sirupsen/logrus"
)

const serviceMessageKey = "service_message"

// StatsSource produces the directory-wide counters used by the summary
// broadcasts.
type StatsSource interface {
	Stats(ctx context.Context, topLimit int) (*models.BotStats, error)
}

// BroadcasterConfig carries the cadences for the background jobs. All are
// injectable so tests can run them at millisecond scale.
type BroadcasterConfig struct {
	ServiceMessageInterval time.Duration
	InactivitySweep        time.Duration
	InactivityCutoff       time.Duration
	DailySummaryInterval   time.Duration
	WeeklySummaryInterval  time.Duration
	TopSendersLimit        int
	ApprovalChannelID      int64
}

// Broadcaster owns the periodic jobs: the recurring service message to all
// active users, the inactivity sweep, and the daily and weekly admin
// summaries posted to the approval channel.
type Broadcaster struct {
	directory UserDirectory
	config    ConfigStore
	transport Transport
	stats     StatsSource
	cfg       BroadcasterConfig
	logger    *logrus.Logger
	stopCh    chan struct{}
}

func NewBroadcaster(directory UserDirectory, config ConfigStore, transport Transport, stats StatsSource, cfg BroadcasterConfig, logger *logrus.Logger) *Broadcaster {
	return &Broadcaster{
		directory: directory,
		config:    config,
		transport: transport,
		stats:     stats,
		cfg:       cfg,
		logger:    logger,
		stopCh:    make(chan struct{}),
	}
}

// SetServiceMessage stores the recurring announcement text. An empty string
// clears it and silences the broadcast.
func (b *Broadcaster) SetServiceMessage(ctx context.Context, text string) error {
	if err := b.config.SetConfigValue(ctx, serviceMessageKey, text); err != nil {
		return fmt.Errorf("failed to store service message: %w", err)
	}
	if text == "" {
		b.logger.Info("Service message cleared")
	} else {
		b.logger.Info("Service message updated")
	}
	return nil
}

func (b *Broadcaster) Start(ctx context.Context) {
	serviceTicker := time.NewTicker(b.cfg.ServiceMessageInterval)
	sweepTicker := time.NewTicker(b.cfg.InactivitySweep)
	dailyTicker := time.NewTicker(b.cfg.DailySummaryInterval)
	weeklyTicker := time.NewTicker(b.cfg.WeeklySummaryInterval)
	defer serviceTicker.Stop()
	defer sweepTicker.Stop()
	defer dailyTicker.Stop()
	defer weeklyTicker.Stop()

	b.logger.Info("Starting broadcast scheduler")

	for {
		select {
		case <-ctx.Done():
			b.logger.Info("Broadcast scheduler context cancelled, stopping")
			return
		case <-b.stopCh:
			b.logger.Info("Broadcast scheduler stop signal received, stopping")
			return
		case <-serviceTicker.C:
			b.broadcastServiceMessage(ctx)
		case <-sweepTicker.C:
			b.sweepInactiveUsers(ctx)
		case <-dailyTicker.C:
			b.postSummary(ctx, "Daily summary")
		case <-weeklyTicker.C:
			b.postSummary(ctx, "Weekly summary")
		}
	}
}

func (b *Broadcaster) Stop() {
	close(b.stopCh)
}

func (b *Broadcaster) broadcastServiceMessage(ctx context.Context) {
	text, err := b.config.GetConfigValue(ctx, serviceMessageKey)
	if err != nil {
		b.logger.WithError(err).Error("Failed to load service message")
		return
	}
	if text == "" {
		return
	}

	recipients, err := b.directory.GetActiveUsers(ctx)
	if err != nil {
		b.logger.WithError(err).Error("Failed to list recipients for service message")
		return
	}

	sent := 0
	for _, recipient := range recipients {
		if _, err := b.transport.SendText(ctx, recipient.ID, text, 0); err != nil {
			b.logger.WithError(err).WithField("recipientId", SanitizeUserID(recipient.ID)).Debug("Service message send failed")
			continue
		}
		sent++
	}
	b.logger.WithField("recipients", sent).Info("Service message broadcast complete")
}

// sweepInactiveUsers demotes active users whose last activity predates the
// cutoff. Whitelisted users are exempt at the query level.
func (b *Broadcaster) sweepInactiveUsers(ctx context.Context) {
	cutoff := time.Now().UTC().Add(-b.cfg.InactivityCutoff)
	stale, err := b.directory.FindInactiveUsers(ctx, cutoff)
	if err != nil {
		b.logger.WithError(err).Error("Inactivity sweep query failed")
		return
	}

	demoted := 0
	for _, user := range stale {
		if err := b.directory.UpdateUserStatus(ctx, user.ID, models.UserStatusInactive); err != nil {
			b.logger.WithError(err).WithField("userId", SanitizeUserID(user.ID)).Error("Failed to demote inactive user")
			continue
		}
		demoted++
		if _, err := b.transport.SendText(ctx, user.ID, "You have been marked inactive due to inactivity. Use /start to rejoin.", 0); err != nil {
			b.logger.WithError(err).WithField("userId", SanitizeUserID(user.ID)).Debug("Failed to notify demoted user")
		}
	}
	if demoted > 0 {
		b.logger.WithField("demoted", demoted).Info("Inactivity sweep complete")
		if b.cfg.ApprovalChannelID != 0 {
			line := fmt.Sprintf("Inactivity sweep: %d users marked inactive.", demoted)
			if _, err := b.transport.SendText(ctx, b.cfg.ApprovalChannelID, line, 0); err != nil {
				b.logger.WithError(err).Debug("Failed to post sweep summary")
			}
		}
	}
}

func (b *Broadcaster) postSummary(ctx context.Context, title string) {
	if b.cfg.ApprovalChannelID == 0 {
		return
	}
	stats, err := b.stats.Stats(ctx, b.cfg.TopSendersLimit)
	if err != nil {
		b.logger.WithError(err).Error("Failed to gather summary stats")
		return
	}
	if _, err := b.transport.SendText(ctx, b.cfg.ApprovalChannelID, formatSummary(title, stats), 0); err != nil {
		b.logger.WithError(err).Error("Failed to post summary")
		return
	}
	b.logger.WithField("title", title).Debug("Summary posted")
}

func formatSummary(title string, stats *models.BotStats) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%s\n\n", title)
	fmt.Fprintf(&sb, "Users: %d total, %d active, %d pending, %d banned\n", stats.TotalUsers, stats.ActiveUsers, stats.PendingUsers, stats.BannedUsers)
	if len(stats.TopSenders) > 0 {
		sb.WriteString("\nTop senders:\n")
		for i, user := range stats.TopSenders {
			fmt.Fprintf(&sb, "%d. %s - %d media, %d messages\n", i+1, html.EscapeString(user.DisplayName()), user.MediaSentCount, user.TotalMessagesSent)
		}
	}
	return sb.String()
}
