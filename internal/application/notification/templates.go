package notification

import (
	"fmt"
	"strings"

	"github.com/matching-sms-api/internal/domain"
)

const (
	defaultName    = "Someone"
	defaultPreview = "sent you a message"
	previewLimit   = 50
)

// Render builds the SMS body for kind. Unknown kinds render an empty string.
func Render(kind domain.NotificationKind, data domain.EventData) string {
	name := strings.TrimSpace(data.Name)
	if name == "" {
		name = defaultName
	}
	switch kind {
	case domain.KindMatchFound:
		return fmt.Sprintf("🎉 You have a new match on Matching! %s is interested in you. Open the app to connect! 💕", name)
	case domain.KindProfileViewed:
		return fmt.Sprintf("👀 %s viewed your profile on Matching! Check them out in the app.", name)
	case domain.KindMessageReceived:
		return fmt.Sprintf("💬 New message from %s: \"%s\" Reply in the Matching app!", name, truncatePreview(data.MessagePreview))
	case domain.KindReminder:
		return "✨ Your perfect match might be waiting! You have potential matches on Matching. Open the app to see who's interested in you! 💕"
	}
	return ""
}

// truncatePreview keeps the first previewLimit characters and marks the cut with "...".
func truncatePreview(preview string) string {
	if preview == "" {
		return defaultPreview
	}
	r := []rune(preview)
	if len(r) <= previewLimit {
		return preview
	}
	return string(r[:previewLimit]) + "..."
}
