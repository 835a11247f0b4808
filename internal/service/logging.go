package service

import (
	"strconv"

	"relayhub/internal/constants"
)

// SanitizeUserID masks a user id for logging, keeping only the trailing
// digits.
func SanitizeUserID(id int64) string {
	s := strconv.FormatInt(id, 10)
	if len(s) > constants.DefaultUserIDMaskLength {
		return "***" + s[len(s)-constants.DefaultUserIDMaskLength:]
	}
	return "***"
}

// SanitizeCaption truncates user content before it reaches a log line.
func SanitizeCaption(caption string) string {
	if len(caption) > constants.DefaultCaptionLogLength {
		return caption[:constants.DefaultCaptionLogLength] + "..."
	}
	return caption
}
