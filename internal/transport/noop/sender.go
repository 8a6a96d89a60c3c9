// Package noop provides a transport that accepts every message without
// delivering it. It is meant for local development and dry runs.
package noop

import (
	"context"
	"sync"

	"github.com/ignite/graphmail/internal/domain"
	"github.com/ignite/graphmail/internal/pkg/logger"
)

// Sender logs and records messages instead of sending them.
type Sender struct {
	mu   sync.Mutex
	sent []domain.OutboundMessage
}

func New() *Sender { return &Sender{} }

func (s *Sender) Send(ctx context.Context, msg domain.OutboundMessage) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	s.sent = append(s.sent, msg)
	s.mu.Unlock()

	logger.Info("noop transport: message not delivered",
		"from", msg.From.Email,
		"recipient", msg.To,
		"subject", msg.Subject,
	)
	return nil
}

// Sent returns a copy of every accepted message.
func (s *Sender) Sent() []domain.OutboundMessage {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.OutboundMessage, len(s.sent))
	copy(out, s.sent)
	return out
}
