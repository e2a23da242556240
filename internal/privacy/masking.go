package privacy

import (
	"strings"

	"herald/internal/constants"
)

// MaskRecipientID masks a Telegram chat identifier showing only the last 4
// characters. Example: "123456789" -> "*****6789", "@newsfeed" -> "@****feed"
func MaskRecipientID(id string) string {
	if id == "" {
		return ""
	}

	// Channel usernames keep their @ prefix so logs stay readable
	if strings.HasPrefix(id, "@") {
		if len(id) == 1 {
			return id
		}
		return "@" + maskString(id[1:], constants.DefaultIDMaskLength)
	}

	// Negative chat ids (groups/channels) keep the sign
	if strings.HasPrefix(id, "-") {
		if len(id) == 1 {
			return id
		}
		return "-" + maskString(id[1:], constants.DefaultIDMaskLength)
	}

	return maskString(id, constants.DefaultIDMaskLength)
}

// MaskToken masks a bot token. The numeric bot id before the colon is kept
// for correlation; the secret part is fully hidden.
// Example: "123456:AAH9x..." -> "123456:****"
func MaskToken(token string) string {
	if token == "" {
		return ""
	}

	if idx := strings.Index(token, ":"); idx > 0 {
		return token[:idx] + ":****"
	}

	// No bot id to keep; hide the whole thing without leaking its length
	return "****"
}

// MaskAPIKey masks an API key showing only the last 4 characters
func MaskAPIKey(key string) string {
	if key == "" {
		return ""
	}
	return maskString(key, constants.DefaultIDMaskLength)
}

// maskString masks a string showing only the last n characters
func maskString(s string, keepLast int) string {
	if s == "" {
		return ""
	}

	if len(s) <= keepLast {
		return strings.Repeat("*", len(s))
	}

	return strings.Repeat("*", len(s)-keepLast) + s[len(s)-keepLast:]
}

// MaskSensitiveFields applies appropriate masking to common logging fields
func MaskSensitiveFields(fields map[string]interface{}) map[string]interface{} {
	if fields == nil {
		return nil
	}

	masked := make(map[string]interface{})
	for k, v := range fields {
		switch k {
		case "recipient_id", "recipientId", "chat_id", "chatId", "target":
			if s, ok := v.(string); ok {
				masked[k] = MaskRecipientID(s)
			} else {
				masked[k] = v
			}
		case "token", "bot_token", "botToken":
			if s, ok := v.(string); ok {
				masked[k] = MaskToken(s)
			} else {
				masked[k] = v
			}
		case "api_key", "apiKey":
			if s, ok := v.(string); ok {
				masked[k] = MaskAPIKey(s)
			} else {
				masked[k] = v
			}
		default:
			masked[k] = v
		}
	}

	return masked
}
