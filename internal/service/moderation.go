package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"relayhub/internal/models"

	"github.com/sirupsen/logrus"
)

// ModerationService implements membership decisions and the two
// relay-log-backed moderation actions: bulk delete and global pin.
type ModerationService struct {
	directory   UserDirectory
	relayLog    RelayLog
	transport   Transport
	deletePause time.Duration
	pinPause    time.Duration
	logger      *logrus.Logger
}

func NewModerationService(directory UserDirectory, relayLog RelayLog, transport Transport, deletePause, pinPause time.Duration, logger *logrus.Logger) *ModerationService {
	return &ModerationService{
		directory:   directory,
		relayLog:    relayLog,
		transport:   transport,
		deletePause: deletePause,
		pinPause:    pinPause,
		logger:      logger,
	}
}

// RegisterUser records a first-time user as pending, or refreshes profile
// fields and last-active for a returning one. The second return value is
// true when the user was newly created.
func (s *ModerationService) RegisterUser(ctx context.Context, id int64, fullName, username string) (*models.User, bool, error) {
	user, err := s.directory.GetUser(ctx, id)
	if err != nil {
		return nil, false, fmt.Errorf("failed to look up user: %w", err)
	}

	if user == nil {
		now := time.Now().UTC()
		user = &models.User{
			ID:         id,
			FullName:   fullName,
			Username:   username,
			Status:     models.UserStatusPending,
			JoinDate:   now,
			LastActive: now,
		}
		if err := s.directory.SaveUser(ctx, user); err != nil {
			return nil, false, fmt.Errorf("failed to register user: %w", err)
		}
		s.logger.WithField("userId", SanitizeUserID(id)).Info("New user registered")
		return user, true, nil
	}

	if user.FullName != fullName || user.Username != username {
		if err := s.directory.UpdateUserInfo(ctx, id, fullName, username); err != nil {
			s.logger.WithError(err).Warn("Failed to refresh user info")
		} else {
			user.FullName = fullName
			user.Username = username
		}
	}
	if err := s.directory.UpdateLastActive(ctx, id); err != nil {
		s.logger.WithError(err).Warn("Failed to update last active")
	}
	return user, false, nil
}

// Approve activates a pending user and notifies them, best effort.
func (s *ModerationService) Approve(ctx context.Context, userID int64) error {
	if err := s.setStatus(ctx, userID, models.UserStatusActive); err != nil {
		return err
	}
	s.notify(ctx, userID, "Your request has been approved. Messages you send will now be relayed to other users.")
	return nil
}

// Deny rejects a pending user's request.
func (s *ModerationService) Deny(ctx context.Context, userID int64) error {
	if err := s.setStatus(ctx, userID, models.UserStatusDenied); err != nil {
		return err
	}
	s.notify(ctx, userID, "Your request to join has been denied.")
	return nil
}

func (s *ModerationService) Ban(ctx context.Context, userID int64) error {
	if err := s.setStatus(ctx, userID, models.UserStatusBanned); err != nil {
		return err
	}
	s.notify(ctx, userID, "You have been banned from using this bot.")
	return nil
}

// Unban moves a banned user back to inactive; they must request approval
// again before relaying.
func (s *ModerationService) Unban(ctx context.Context, userID int64) error {
	user, err := s.directory.GetUser(ctx, userID)
	if err != nil {
		return fmt.Errorf("failed to look up user: %w", err)
	}
	if user == nil {
		return models.ErrUserNotFound
	}
	if user.Status != models.UserStatusBanned {
		return fmt.Errorf("user is not banned")
	}
	if err := s.setStatus(ctx, userID, models.UserStatusInactive); err != nil {
		return err
	}
	s.notify(ctx, userID, "You have been unbanned. Use /start to request access again.")
	return nil
}

func (s *ModerationService) SetWhitelisted(ctx context.Context, userID int64, whitelisted bool) error {
	if err := s.directory.SetWhitelisted(ctx, userID, whitelisted); err != nil {
		return fmt.Errorf("failed to update whitelist flag: %w", err)
	}
	return nil
}

func (s *ModerationService) Promote(ctx context.Context, userID int64) error {
	if err := s.directory.SetAdmin(ctx, userID, true); err != nil {
		return fmt.Errorf("failed to promote user: %w", err)
	}
	s.notify(ctx, userID, "You have been promoted to administrator.")
	return nil
}

// DeleteRelayedMessage removes every recipient's copy of a relayed message
// and then drops the relay log entry. Only the original sender may delete.
// Returns the per-recipient success and failure counts.
func (s *ModerationService) DeleteRelayedMessage(ctx context.Context, requesterID int64, originalID int) (int, int, error) {
	entry, err := s.relayLog.GetRelayedMessage(ctx, originalID)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to look up relay log entry: %w", err)
	}
	if entry == nil {
		return 0, 0, models.ErrRelayEntryNotFound
	}
	if entry.SenderID != requesterID {
		return 0, 0, models.ErrNotMessageOwner
	}

	deleted, failed := 0, 0
	for recipientID, relayedID := range entry.RelayedTo {
		if err := s.transport.DeleteMessage(ctx, recipientID, relayedID); err != nil {
			failed++
			s.logger.WithError(err).WithFields(logrus.Fields{
				"recipientId": SanitizeUserID(recipientID),
				"messageId":   relayedID,
			}).Warn("Failed to delete relayed copy")
		} else {
			deleted++
		}
		sleepCtx(ctx, s.deletePause)
	}

	if err := s.relayLog.DeleteRelayedMessage(ctx, originalID); err != nil {
		return deleted, failed, fmt.Errorf("failed to delete relay log entry: %w", err)
	}

	s.logger.WithFields(logrus.Fields{
		"originalId": originalID,
		"deleted":    deleted,
		"failed":     failed,
	}).Info("Relayed message deleted")
	return deleted, failed, nil
}

// PinGlobally copies a message to every active user and pins the copy in
// their chat. Permission failures demote the recipient like any fan-out.
func (s *ModerationService) PinGlobally(ctx context.Context, fromChatID int64, messageID int) (int, int, error) {
	recipients, err := s.directory.GetActiveUsers(ctx)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to list recipients: %w", err)
	}

	pinned, failed := 0, 0
	for _, recipient := range recipients {
		sentID, err := s.transport.CopyMessage(ctx, recipient.ID, fromChatID, messageID, 0)
		if err == nil {
			err = s.transport.PinMessage(ctx, recipient.ID, sentID)
		}
		if err != nil {
			failed++
			if errors.Is(err, models.ErrRecipientUnavailable) {
				if derr := s.directory.UpdateUserStatus(ctx, recipient.ID, models.UserStatusInactive); derr != nil {
					s.logger.WithError(derr).Error("Failed to demote unreachable recipient")
				}
			} else {
				s.logger.WithError(err).WithField("recipientId", SanitizeUserID(recipient.ID)).Warn("Failed to pin for recipient")
			}
		} else {
			pinned++
		}
		sleepCtx(ctx, s.pinPause)
	}
	return pinned, failed, nil
}

// Stats aggregates directory-wide counters for administrators.
func (s *ModerationService) Stats(ctx context.Context, topLimit int) (*models.BotStats, error) {
	users, err := s.directory.GetAllUsers(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}

	stats := &models.BotStats{TotalUsers: len(users)}
	for _, user := range users {
		switch user.Status {
		case models.UserStatusActive:
			stats.ActiveUsers++
		case models.UserStatusBanned:
			stats.BannedUsers++
		case models.UserStatusPending:
			stats.PendingUsers++
		}
	}

	// Users who never sent media do not belong on the leaderboard.
	senders := users[:0:0]
	for _, user := range users {
		if user.MediaSentCount > 0 {
			senders = append(senders, user)
		}
	}
	sort.Slice(senders, func(i, j int) bool {
		return senders[i].MediaSentCount > senders[j].MediaSentCount
	})
	if topLimit > len(senders) {
		topLimit = len(senders)
	}
	stats.TopSenders = senders[:topLimit]
	return stats, nil
}

func (s *ModerationService) setStatus(ctx context.Context, userID int64, status models.UserStatus) error {
	if err := s.directory.UpdateUserStatus(ctx, userID, status); err != nil {
		if errors.Is(err, models.ErrUserNotFound) {
			return models.ErrUserNotFound
		}
		return fmt.Errorf("failed to update user status: %w", err)
	}
	s.logger.WithFields(logrus.Fields{
		"userId": SanitizeUserID(userID),
		"status": status,
	}).Info("User status updated")
	return nil
}

func (s *ModerationService) notify(ctx context.Context, userID int64, text string) {
	if _, err := s.transport.SendText(ctx, userID, text, 0); err != nil {
		s.logger.WithError(err).WithField("userId", SanitizeUserID(userID)).Debug("Failed to notify user")
	}
}
