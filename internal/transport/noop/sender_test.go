package noop

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ignite/graphmail/internal/domain"
)

func TestSender_RecordsMessages(t *testing.T) {
	s := New()
	require.NoError(t, s.Send(context.Background(), domain.OutboundMessage{To: "a@x.com", Subject: "s"}))
	require.Len(t, s.Sent(), 1)
	assert.Equal(t, "a@x.com", s.Sent()[0].To)
}

func TestSender_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, New().Send(ctx, domain.OutboundMessage{To: "a@x.com"}), context.Canceled)
}
