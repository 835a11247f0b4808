package bot

import (
	"context"
	"errors"
	"fmt"
	"html"
	"strconv"
	"strings"
	"time"

	"relayhub/internal/models"
	"relayhub/internal/service"

	"github.com/sirupsen/logrus"
)

// Router turns inbound bot updates into service calls. It gates every
// message on membership status, routes commands, and forwards content to
// the buffered or direct relay path by media kind.
type Router struct {
	directory         service.UserDirectory
	moderation        *service.ModerationService
	broadcaster       *service.Broadcaster
	buffer            *service.IntakeBuffer
	direct            *service.DirectRelay
	transport         service.Transport
	approvalChannelID int64
	statsTopLimit     int
	logger            *logrus.Logger
}

func NewRouter(directory service.UserDirectory, moderation *service.ModerationService, broadcaster *service.Broadcaster, buffer *service.IntakeBuffer, direct *service.DirectRelay, transport service.Transport, approvalChannelID int64, statsTopLimit int, logger *logrus.Logger) *Router {
	return &Router{
		directory:         directory,
		moderation:        moderation,
		broadcaster:       broadcaster,
		buffer:            buffer,
		direct:            direct,
		transport:         transport,
		approvalChannelID: approvalChannelID,
		statsTopLimit:     statsTopLimit,
		logger:            logger,
	}
}

// HandleUpdate processes one inbound message end to end. Errors are handled
// by replying to the user; the return value only reports internal failures
// worth logging upstream.
func (r *Router) HandleUpdate(ctx context.Context, msg models.InboundMessage) error {
	if msg.Command == "start" {
		return r.handleStart(ctx, msg)
	}

	user, err := r.directory.GetUser(ctx, msg.SenderID)
	if err != nil {
		return fmt.Errorf("failed to load user: %w", err)
	}
	if user == nil {
		r.reply(ctx, msg.SenderID, "Please use /start to request access first.")
		return nil
	}
	if user.Status == models.UserStatusBanned {
		return nil
	}

	if msg.Command != "" {
		return r.handleCommand(ctx, user, msg)
	}

	if user.Status != models.UserStatusActive {
		r.reply(ctx, msg.SenderID, "Your account is not active. Use /start to request access.")
		return nil
	}

	if err := r.directory.UpdateLastActive(ctx, msg.SenderID); err != nil {
		r.logger.WithError(err).Warn("Failed to update last active")
	}

	if msg.Kind.IsAlbumKind() {
		r.buffer.Ingest(msg.MediaItem())
		return nil
	}
	return r.direct.Relay(ctx, msg)
}

func (r *Router) handleStart(ctx context.Context, msg models.InboundMessage) error {
	user, created, err := r.moderation.RegisterUser(ctx, msg.SenderID, msg.SenderName, msg.SenderUsername)
	if err != nil {
		return fmt.Errorf("failed to register user: %w", err)
	}

	switch {
	case created:
		r.reply(ctx, msg.SenderID, "Welcome! Your access request has been sent to the moderators.")
		r.notifyAdmins(ctx, fmt.Sprintf("New access request from %s (id %d).\nApprove with /approve %d or reject with /deny %d.", html.EscapeString(user.DisplayName()), user.ID, user.ID, user.ID))
	case user.Status == models.UserStatusActive:
		r.reply(ctx, msg.SenderID, "You are already a member. Anything you send will be relayed.")
	case user.Status == models.UserStatusPending:
		r.reply(ctx, msg.SenderID, "Your request is still pending review.")
	case user.Status == models.UserStatusBanned:
		// Banned users get no feedback at all.
	default:
		r.reply(ctx, msg.SenderID, "Your access request has been sent to the moderators.")
		r.notifyAdmins(ctx, fmt.Sprintf("Repeat access request from %s (id %d).\nApprove with /approve %d or reject with /deny %d.", html.EscapeString(user.DisplayName()), user.ID, user.ID, user.ID))
		if err := r.directory.UpdateUserStatus(ctx, user.ID, models.UserStatusPending); err != nil {
			r.logger.WithError(err).Warn("Failed to mark user pending")
		}
	}
	return nil
}

func (r *Router) handleCommand(ctx context.Context, user *models.User, msg models.InboundMessage) error {
	// /delete is the only command available to non-admins: senders may
	// retract their own relayed messages.
	if msg.Command == "delete" {
		return r.handleDelete(ctx, user, msg)
	}

	if !user.IsAdmin {
		r.reply(ctx, msg.SenderID, "Unknown command.")
		return nil
	}

	switch msg.Command {
	case "approve":
		return r.runUserCommand(ctx, msg, "approved", r.moderation.Approve)
	case "deny":
		return r.runUserCommand(ctx, msg, "denied", r.moderation.Deny)
	case "ban":
		return r.runUserCommand(ctx, msg, "banned", r.moderation.Ban)
	case "unban":
		return r.runUserCommand(ctx, msg, "unbanned", r.moderation.Unban)
	case "whitelist":
		return r.runUserCommand(ctx, msg, "whitelisted", func(ctx context.Context, id int64) error {
			return r.moderation.SetWhitelisted(ctx, id, true)
		})
	case "unwhitelist":
		return r.runUserCommand(ctx, msg, "removed from whitelist", func(ctx context.Context, id int64) error {
			return r.moderation.SetWhitelisted(ctx, id, false)
		})
	case "promote":
		return r.runUserCommand(ctx, msg, "promoted", r.moderation.Promote)
	case "pin":
		return r.handlePin(ctx, msg)
	case "service_message":
		return r.handleServiceMessage(ctx, msg)
	case "stats":
		return r.handleStats(ctx, msg)
	case "userinfo":
		return r.handleUserInfo(ctx, msg)
	case "admin":
		r.reply(ctx, msg.SenderID, adminHelp)
		return nil
	default:
		r.reply(ctx, msg.SenderID, "Unknown command. See /admin for the command list.")
		return nil
	}
}

// Replies go out with HTML parse mode, so the placeholder brackets are
// entity-escaped here and rendered as literal <id> by Telegram.
const adminHelp = `Moderation commands:
/approve &lt;id&gt; - approve a pending user
/deny &lt;id&gt; - reject a pending user
/ban &lt;id&gt; - ban a user
/unban &lt;id&gt; - lift a ban
/whitelist &lt;id&gt; - exempt a user from the inactivity sweep
/unwhitelist &lt;id&gt; - remove the exemption
/promote &lt;id&gt; - grant admin rights
/pin - reply to a message to pin it for everyone
/service_message &lt;text&gt; - set the recurring announcement (no text clears it)
/stats - usage statistics
/userinfo &lt;id&gt; - show a user's record`

func (r *Router) runUserCommand(ctx context.Context, msg models.InboundMessage, verb string, fn func(context.Context, int64) error) error {
	targetID, err := strconv.ParseInt(strings.TrimSpace(msg.CommandArgs), 10, 64)
	if err != nil {
		r.reply(ctx, msg.SenderID, fmt.Sprintf("Usage: /%s &lt;user id&gt;", msg.Command))
		return nil
	}

	if err := fn(ctx, targetID); err != nil {
		if errors.Is(err, models.ErrUserNotFound) {
			r.reply(ctx, msg.SenderID, "No such user.")
			return nil
		}
		r.reply(ctx, msg.SenderID, fmt.Sprintf("Command failed: %v", err))
		return fmt.Errorf("command /%s failed: %w", msg.Command, err)
	}
	r.reply(ctx, msg.SenderID, fmt.Sprintf("User %d %s.", targetID, verb))
	return nil
}

func (r *Router) handleDelete(ctx context.Context, user *models.User, msg models.InboundMessage) error {
	if msg.ReplyTargetID == 0 {
		r.reply(ctx, msg.SenderID, "Reply to your own message with /delete to retract it.")
		return nil
	}

	deleted, failed, err := r.moderation.DeleteRelayedMessage(ctx, user.ID, msg.ReplyTargetID)
	if err != nil {
		switch {
		case errors.Is(err, models.ErrRelayEntryNotFound):
			r.reply(ctx, msg.SenderID, "That message is not in the relay log.")
		case errors.Is(err, models.ErrNotMessageOwner):
			r.reply(ctx, msg.SenderID, "You can only delete your own messages.")
		default:
			r.reply(ctx, msg.SenderID, "Delete failed, try again later.")
			return fmt.Errorf("delete failed: %w", err)
		}
		return nil
	}
	r.reply(ctx, msg.SenderID, fmt.Sprintf("Deleted %d copies (%d failed).", deleted, failed))
	return nil
}

func (r *Router) handlePin(ctx context.Context, msg models.InboundMessage) error {
	if msg.ReplyTargetID == 0 {
		r.reply(ctx, msg.SenderID, "Reply to a message with /pin to pin it for everyone.")
		return nil
	}
	pinned, failed, err := r.moderation.PinGlobally(ctx, msg.SenderID, msg.ReplyTargetID)
	if err != nil {
		r.reply(ctx, msg.SenderID, "Pin failed, try again later.")
		return fmt.Errorf("pin failed: %w", err)
	}
	r.reply(ctx, msg.SenderID, fmt.Sprintf("Pinned for %d users (%d failed).", pinned, failed))
	return nil
}

func (r *Router) handleServiceMessage(ctx context.Context, msg models.InboundMessage) error {
	text := strings.TrimSpace(msg.CommandArgs)
	if err := r.broadcaster.SetServiceMessage(ctx, text); err != nil {
		r.reply(ctx, msg.SenderID, "Failed to update the service message.")
		return err
	}
	if text == "" {
		r.reply(ctx, msg.SenderID, "Service message cleared.")
	} else {
		r.reply(ctx, msg.SenderID, "Service message updated.")
	}
	return nil
}

func (r *Router) handleStats(ctx context.Context, msg models.InboundMessage) error {
	stats, err := r.moderation.Stats(ctx, r.statsTopLimit)
	if err != nil {
		r.reply(ctx, msg.SenderID, "Failed to gather statistics.")
		return fmt.Errorf("stats failed: %w", err)
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Users: %d total, %d active, %d pending, %d banned\n", stats.TotalUsers, stats.ActiveUsers, stats.PendingUsers, stats.BannedUsers)
	if len(stats.TopSenders) > 0 {
		sb.WriteString("\nTop senders:\n")
		for i, u := range stats.TopSenders {
			fmt.Fprintf(&sb, "%d. %s - %d media\n", i+1, html.EscapeString(u.DisplayName()), u.MediaSentCount)
		}
	}
	r.reply(ctx, msg.SenderID, sb.String())
	return nil
}

func (r *Router) handleUserInfo(ctx context.Context, msg models.InboundMessage) error {
	targetID, err := strconv.ParseInt(strings.TrimSpace(msg.CommandArgs), 10, 64)
	if err != nil {
		r.reply(ctx, msg.SenderID, "Usage: /userinfo &lt;user id&gt;")
		return nil
	}

	user, err := r.directory.GetUser(ctx, targetID)
	if err != nil {
		r.reply(ctx, msg.SenderID, "Lookup failed, try again later.")
		return fmt.Errorf("userinfo failed: %w", err)
	}
	if user == nil {
		r.reply(ctx, msg.SenderID, "No such user.")
		return nil
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "User %d\n", user.ID)
	fmt.Fprintf(&sb, "Name: %s\n", html.EscapeString(user.DisplayName()))
	if user.Username != "" {
		fmt.Fprintf(&sb, "Username: @%s\n", html.EscapeString(user.Username))
	}
	fmt.Fprintf(&sb, "Status: %s\n", user.Status)
	fmt.Fprintf(&sb, "Admin: %t, whitelisted: %t\n", user.IsAdmin, user.IsWhitelisted)
	fmt.Fprintf(&sb, "Joined: %s\n", user.JoinDate.Format(time.RFC3339))
	fmt.Fprintf(&sb, "Last active: %s\n", user.LastActive.Format(time.RFC3339))
	fmt.Fprintf(&sb, "Media sent: %d, messages sent: %d", user.MediaSentCount, user.TotalMessagesSent)
	r.reply(ctx, msg.SenderID, sb.String())
	return nil
}

func (r *Router) reply(ctx context.Context, chatID int64, text string) {
	if _, err := r.transport.SendText(ctx, chatID, text, 0); err != nil {
		r.logger.WithError(err).WithField("chatId", service.SanitizeUserID(chatID)).Debug("Failed to send reply")
	}
}

func (r *Router) notifyAdmins(ctx context.Context, text string) {
	if r.approvalChannelID == 0 {
		return
	}
	if _, err := r.transport.SendText(ctx, r.approvalChannelID, text, 0); err != nil {
		r.logger.WithError(err).Error("Failed to notify approval channel")
	}
}
