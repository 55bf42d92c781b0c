// Package notify delivers run announcements and reports to Slack and email.
package notify

import (
	"context"

	"github.com/rs/zerolog"

	"qapages/errors"
)

// Message is one notification. Slack uses Text; email uses all three.
type Message struct {
	Subject string
	Text    string
	HTML    string
}

// Notifier delivers a message to one channel.
type Notifier interface {
	Send(ctx context.Context, msg Message) error
}

// Multi fans a message out to several notifiers. A channel that fails or is
// not configured is logged and does not stop the others.
type Multi struct {
	notifiers []Notifier
	logger    zerolog.Logger
}

// NewMulti returns a fan-out over notifiers.
func NewMulti(logger zerolog.Logger, notifiers ...Notifier) *Multi {
	return &Multi{notifiers: notifiers, logger: logger}
}

// Send delivers msg to every notifier and returns how many accepted it.
func (m *Multi) Send(ctx context.Context, msg Message) int {
	sent := 0
	for _, n := range m.notifiers {
		err := n.Send(ctx, msg)
		switch {
		case err == nil:
			sent++
		case errors.Is(err, errors.ErrNotificationDisabled):
			m.logger.Debug().Err(err).Msg("notification channel skipped")
		default:
			m.logger.Warn().Err(err).Msg("notification failed")
		}
	}
	return sent
}
