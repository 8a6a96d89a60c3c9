package sending

import (
	"context"

	"github.com/ignite/graphmail/internal/domain"
)

// Transport delivers one message to one recipient. A nil error means the
// provider accepted the message. Implementations return *TransportError when
// the provider rejected it; any other error is treated as a general failure.
type Transport interface {
	Send(ctx context.Context, msg domain.OutboundMessage) error
}

// TransportFunc adapts a function to Transport.
type TransportFunc func(ctx context.Context, msg domain.OutboundMessage) error

func (f TransportFunc) Send(ctx context.Context, msg domain.OutboundMessage) error {
	return f(ctx, msg)
}
