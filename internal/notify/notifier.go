// Package notify delivers lifecycle broadcasts to the group chat.
package notify

import (
	"context"

	"github.com/rs/zerolog/log"
)

// Notifier pushes a message to the competition group chat. Implementations
// wrap whatever outbound channel the platform offers.
type Notifier interface {
	Broadcast(ctx context.Context, message string) error
}

// LogNotifier records broadcasts in the server log. It stands in when no
// outbound push channel is configured; the platform then only sees replies
// to inbound webhooks.
type LogNotifier struct{}

func NewLogNotifier() *LogNotifier {
	return &LogNotifier{}
}

func (n *LogNotifier) Broadcast(ctx context.Context, message string) error {
	log.Info().Str("message", message).Msg("broadcast")
	return nil
}
