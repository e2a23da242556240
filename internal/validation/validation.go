package validation

import (
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
	"unicode"

	"herald/internal/constants"
	"herald/internal/errors"
	"herald/internal/models"
)

// ValidateBroadcastText validates the message body of a broadcast
func ValidateBroadcastText(text string) error {
	if strings.TrimSpace(text) == "" {
		return errors.New(errors.ErrCodeInvalidInput, "broadcast text cannot be empty")
	}

	if len(text) > constants.MaxBroadcastTextLength {
		return errors.New(errors.ErrCodeInvalidInput,
			fmt.Sprintf("broadcast text too long (max %d characters)", constants.MaxBroadcastTextLength))
	}

	return nil
}

// ValidateRecipientID validates a Telegram chat identifier: a numeric chat id
// (optionally negative for groups/channels) or a @username
func ValidateRecipientID(id string) error {
	if id == "" {
		return errors.New(errors.ErrCodeInvalidInput, "recipient ID cannot be empty")
	}

	if len(id) > constants.MaxRecipientIDLength {
		return errors.New(errors.ErrCodeInvalidInput,
			fmt.Sprintf("recipient ID too long (max %d characters)", constants.MaxRecipientIDLength))
	}

	if strings.HasPrefix(id, "@") {
		name := id[1:]
		if name == "" {
			return errors.New(errors.ErrCodeInvalidInput, "recipient username cannot be empty")
		}
		for _, char := range name {
			if !unicode.IsLetter(char) && !unicode.IsDigit(char) && char != '_' {
				return errors.New(errors.ErrCodeInvalidInput,
					"recipient username must contain only letters, numbers, and underscores")
			}
		}
		return nil
	}

	digits := strings.TrimPrefix(id, "-")
	if digits == "" {
		return errors.New(errors.ErrCodeInvalidInput, "recipient ID must be a chat id or @username")
	}
	for _, char := range digits {
		if !unicode.IsDigit(char) {
			return errors.New(errors.ErrCodeInvalidInput, "recipient chat id must contain only digits")
		}
	}

	return nil
}

// ValidateDisplayName validates a recipient display name
func ValidateDisplayName(name string) error {
	if err := ValidateStringLength(name, "display name", 0, constants.MaxDisplayNameLength); err != nil {
		return err
	}

	for _, char := range name {
		if char == '\x00' || char == '\n' || char == '\r' {
			return errors.New(errors.ErrCodeInvalidInput, "display name contains invalid characters")
		}
	}

	return nil
}

// ValidateTag validates a single recipient tag. Tags are compared
// case-insensitively, so validation runs on the normalized form.
func ValidateTag(tag string) error {
	if tag == "" {
		return errors.New(errors.ErrCodeInvalidInput, "tag cannot be empty")
	}

	if len(tag) > constants.MaxTagLength {
		return errors.New(errors.ErrCodeInvalidInput,
			fmt.Sprintf("tag too long (max %d characters)", constants.MaxTagLength))
	}

	for _, char := range tag {
		if !unicode.IsLetter(char) && !unicode.IsDigit(char) && char != '_' && char != '-' {
			return errors.New(errors.ErrCodeInvalidInput,
				"tag must contain only letters, numbers, underscores, and dashes")
		}
	}

	return nil
}

// ValidateTags validates a full tag list
func ValidateTags(tags []string) error {
	if len(tags) > constants.MaxTagsPerRecipient {
		return errors.New(errors.ErrCodeInvalidInput,
			fmt.Sprintf("too many tags (max %d)", constants.MaxTagsPerRecipient))
	}

	for _, tag := range tags {
		if err := ValidateTag(tag); err != nil {
			return err
		}
	}

	return nil
}

// ValidateMediaRef validates an optional media attachment reference
func ValidateMediaRef(media *models.MediaRef) error {
	if media == nil {
		return nil
	}

	if media.URL == "" {
		return errors.New(errors.ErrCodeInvalidInput, "media URL cannot be empty")
	}

	if len(media.URL) > constants.MaxMediaURLLength {
		return errors.New(errors.ErrCodeInvalidInput,
			fmt.Sprintf("media URL too long (max %d characters)", constants.MaxMediaURLLength))
	}

	parsed, err := url.Parse(media.URL)
	if err != nil {
		return errors.New(errors.ErrCodeInvalidInput, "media URL is not a valid URL")
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return errors.New(errors.ErrCodeInvalidInput, "media URL must use http or https")
	}
	if parsed.Host == "" {
		return errors.New(errors.ErrCodeInvalidInput, "media URL must include a host")
	}

	switch media.Kind {
	case models.MediaPhoto, models.MediaDocument:
		return nil
	default:
		return errors.New(errors.ErrCodeInvalidInput,
			fmt.Sprintf("unsupported media kind: %s", media.Kind))
	}
}

// ValidateScheduleTime validates a broadcast send time. A zero time means
// "send now" and is always accepted; anything else must not be absurdly far
// in the past (clock skew aside, that is almost always a client bug).
func ValidateScheduleTime(sendAt time.Time, now time.Time) error {
	if sendAt.IsZero() {
		return nil
	}

	if sendAt.Before(now.Add(-24 * time.Hour)) {
		return errors.New(errors.ErrCodeInvalidInput, "scheduled time is more than 24 hours in the past")
	}

	return nil
}

// ValidateHTTPRequestSize validates incoming HTTP request size
func ValidateHTTPRequestSize(r *http.Request, maxSizeBytes int64) error {
	if r.ContentLength < 0 {
		return errors.New(errors.ErrCodeInvalidInput, "invalid content length")
	}

	if r.ContentLength > maxSizeBytes {
		return errors.New(errors.ErrCodeInvalidInput,
			fmt.Sprintf("request too large: %d bytes (max %d bytes)", r.ContentLength, maxSizeBytes))
	}

	return nil
}

// ValidateStringLength validates string length against bounds
func ValidateStringLength(value, fieldName string, minLength, maxLength int) error {
	if len(value) < minLength {
		return errors.New(errors.ErrCodeInvalidInput,
			fmt.Sprintf("%s too short (min %d characters)", fieldName, minLength))
	}

	if len(value) > maxLength {
		return errors.New(errors.ErrCodeInvalidInput,
			fmt.Sprintf("%s too long (max %d characters)", fieldName, maxLength))
	}

	return nil
}
