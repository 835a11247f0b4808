package models

import "time"

// RelayLogEntry maps an original message to the copy each recipient received.
// RelayedTo is accumulated incrementally as recipients are served; for a
// given original message at most one copy exists per recipient.
type RelayLogEntry struct {
	OriginalMessageID int           `json:"originalMessageId"`
	SenderID          int64         `json:"senderId"`
	RelayedTo         map[int64]int `json:"relayedTo"`
	Timestamp         time.Time     `json:"timestamp"`
}
