// Package message implements the Message type and the per-channel
// append-only ChannelStore: an on-disk log sharded by UTC calendar day,
// supporting random-access queries by id, by time window, and by
// "messages after id" with bounded result sizes (spec.md §4.2).
package message

import (
	"errors"
	"strings"
	"time"

	"github.com/microcosm-cc/bluemonday"

	"github.com/uncord-chat/uncord-server/internal/id"
)

// Sentinel errors for the message package.
var (
	ErrChannelNotFound = errors.New("channel directory does not exist")
	ErrMessageNotFound = errors.New("message not found")
	ErrEmptyContent    = errors.New("message content must not be empty")
	ErrContentTooLong  = errors.New("message content exceeds the configured maximum size")
)

// Message is a single immutable chat message. id uniqueness is
// best-effort (spec.md §9): a second message sharing an id is treated as
// distinct for ordering purposes.
type Message struct {
	ID        id.Id
	HubID     id.Id
	ChannelID id.Id
	Sender    id.Id
	Created   time.Time
	Content   string
}

// New constructs a Message with a fresh id and the current UTC time.
func New(hubID, channelID, sender id.Id, content string) Message {
	return Message{
		ID:        id.New(),
		HubID:     hubID,
		ChannelID: channelID,
		Sender:    sender,
		Created:   time.Now().UTC(),
		Content:   content,
	}
}

var sanitizePolicy = bluemonday.StrictPolicy()

// Sanitize strips any HTML markup from content, so a chat body can never
// smuggle rendering-breaking markup into a client (SPEC_FULL.md §4).
func Sanitize(content string) string {
	return sanitizePolicy.Sanitize(content)
}

// ValidateContent trims and sanitizes content, then checks it is
// non-empty and within maxSize bytes. Returns the cleaned content.
func ValidateContent(content string, maxSize int) (string, error) {
	trimmed := strings.TrimSpace(Sanitize(content))
	if trimmed == "" {
		return "", ErrEmptyContent
	}
	if len(trimmed) > maxSize {
		return "", ErrContentTooLong
	}
	return trimmed, nil
}
