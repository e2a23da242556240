package telegram

import (
	"context"
	stderrors "errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	herrors "herald/internal/errors"
	"herald/internal/models"
	"herald/pkg/circuitbreaker"

	"github.com/sirupsen/logrus"
	tele "gopkg.in/telebot.v4"
)

// Config holds the transport settings for the bot API client.
type Config struct {
	Token              string
	APIBaseURL         string
	SendTimeoutSec     int
	BreakerMaxFailures int
	BreakerCooldownSec int
	// Offline skips the getMe handshake; used by tests.
	Offline bool
}

// Client sends broadcast messages through the Telegram bot API. All sends go
// through a circuit breaker so a dead API does not burn the whole fan-out.
type Client struct {
	bot     *tele.Bot
	breaker *circuitbreaker.CircuitBreaker
	timeout time.Duration
	logger  *logrus.Logger
}

// NewClient creates a bot API client. APIBaseURL is empty for the public API;
// set it to point at a local bot API server.
func NewClient(cfg Config, logger *logrus.Logger) (*Client, error) {
	if strings.TrimSpace(cfg.Token) == "" {
		return nil, herrors.New(herrors.ErrCodeMissingConfig, "telegram bot token is empty")
	}

	timeout := time.Duration(cfg.SendTimeoutSec) * time.Second
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	bot, err := tele.NewBot(tele.Settings{
		Token:   cfg.Token,
		URL:     cfg.APIBaseURL,
		Offline: cfg.Offline,
		Client:  &http.Client{Timeout: timeout},
	})
	if err != nil {
		return nil, herrors.Wrap(err, herrors.ErrCodeTelegramAPI, "failed to initialize bot")
	}

	maxFailures := uint32(cfg.BreakerMaxFailures)
	if maxFailures == 0 {
		maxFailures = 5
	}
	cooldown := time.Duration(cfg.BreakerCooldownSec) * time.Second
	if cooldown <= 0 {
		cooldown = time.Minute
	}

	return &Client{
		bot:     bot,
		breaker: circuitbreaker.New("telegram", maxFailures, cooldown, logger),
		timeout: timeout,
		logger:  logger,
	}, nil
}

// chatRecipient addresses a chat by its raw identifier. The bot API accepts
// both numeric chat ids and @channelusername in the chat_id field.
type chatRecipient string

func (r chatRecipient) Recipient() string { return string(r) }

// Send delivers one message to one recipient. Media, when present, is sent by
// URL with the text as caption. A blocked recipient is reported via
// models.ErrRecipientBlocked so the dispatcher can classify it.
func (c *Client) Send(ctx context.Context, recipientID, text string, media *models.MediaRef) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	return c.breaker.Execute(ctx, func(ctx context.Context) error {
		_, err := c.bot.Send(chatRecipient(recipientID), payloadFor(text, media), tele.ModeHTML)
		if err != nil {
			return c.classify(recipientID, err)
		}
		return nil
	})
}

// payloadFor builds the telebot sendable for the message content.
func payloadFor(text string, media *models.MediaRef) interface{} {
	if media == nil {
		return text
	}

	switch media.Kind {
	case models.MediaDocument:
		return &tele.Document{File: tele.FromURL(media.URL), Caption: text}
	default:
		return &tele.Photo{File: tele.FromURL(media.URL), Caption: text}
	}
}

// classify maps bot API failures onto the error taxonomy the dispatcher and
// HTTP layer understand.
func (c *Client) classify(recipientID string, err error) error {
	if stderrors.Is(err, tele.ErrBlockedByUser) {
		return fmt.Errorf("%w: %v", models.ErrRecipientBlocked, err)
	}

	var flood tele.FloodError
	if stderrors.As(err, &flood) {
		return herrors.NewTransportError("send", http.StatusTooManyRequests, err).
			WithContext("retry_after", flood.RetryAfter)
	}

	var apiErr *tele.Error
	if stderrors.As(err, &apiErr) {
		if apiErr.Code == http.StatusForbidden {
			return fmt.Errorf("%w: %v", models.ErrRecipientBlocked, err)
		}
		return herrors.NewTransportError("send", apiErr.Code, err)
	}

	// Timeouts keep their own code so the HTTP layer reports 408.
	var netErr net.Error
	if stderrors.As(err, &netErr) && netErr.Timeout() {
		return herrors.NewTimeoutError("send", c.timeout.String())
	}

	// Network-level failure; worth retrying on a later broadcast.
	return herrors.WrapRetryable(err, herrors.ErrCodeTelegramAPI, "send failed")
}

// BreakerStats exposes the circuit breaker state for the health endpoint.
func (c *Client) BreakerStats() circuitbreaker.Stats {
	return c.breaker.GetStats()
}
