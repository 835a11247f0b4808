package models

import "time"

type UserStatus string

const (
	UserStatusActive   UserStatus = "active"
	UserStatusInactive UserStatus = "inactive"
	UserStatusBanned   UserStatus = "banned"
	UserStatusPending  UserStatus = "pending"
	UserStatusDenied   UserStatus = "denied"
)

// User is one registered account known to the bot. Only users with
// UserStatusActive receive relayed content.
type User struct {
	ID                int64      `json:"id"`
	FullName          string     `json:"fullName"`
	Username          string     `json:"username"`
	Status            UserStatus `json:"status"`
	IsAdmin           bool       `json:"isAdmin"`
	IsWhitelisted     bool       `json:"isWhitelisted"`
	JoinDate          time.Time  `json:"joinDate"`
	LastActive        time.Time  `json:"lastActive"`
	MediaSentCount    int64      `json:"mediaSentCount"`
	TotalMessagesSent int64      `json:"totalMessagesSent"`
}

// DisplayName returns the name shown to other users in attribution headers.
func (u *User) DisplayName() string {
	if u == nil || u.FullName == "" {
		return "Anonymous"
	}
	return u.FullName
}

// BotStats is the aggregate view served to administrators.
type BotStats struct {
	TotalUsers   int    `json:"totalUsers"`
	ActiveUsers  int    `json:"activeUsers"`
	BannedUsers  int    `json:"bannedUsers"`
	PendingUsers int    `json:"pendingUsers"`
	TopSenders   []User `json:"topSenders"`
}
