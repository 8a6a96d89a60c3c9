// Package transport binds a sender profile to the mail transport named by
// its senderType.
package transport

import (
	"context"
	"fmt"
	"hash/fnv"
	"sort"
	"sync"

	"github.com/ignite/graphmail/internal/domain"
	"github.com/ignite/graphmail/internal/service/sending"
	"github.com/ignite/graphmail/internal/transport/graph"
	"github.com/ignite/graphmail/internal/transport/noop"
	"github.com/ignite/graphmail/internal/transport/ses"
)

// Factory builds transports and keeps the latest one per profile name, so
// Graph access tokens survive across batches. A profile whose settings
// changed gets a fresh transport and the old one is dropped.
type Factory struct {
	graphCfg graph.Config
	sesCfg   ses.Config

	mu    sync.Mutex
	cache map[string]cachedTransport
	noop  *noop.Sender
}

type cachedTransport struct {
	fingerprint string
	transport   sending.Transport
}

// NewFactory returns a factory using the given transport settings.
func NewFactory(graphCfg graph.Config, sesCfg ses.Config) *Factory {
	return &Factory{
		graphCfg: graphCfg,
		sesCfg:   sesCfg,
		cache:    make(map[string]cachedTransport),
		noop:     noop.New(),
	}
}

// New returns the transport for profile.
func (f *Factory) New(ctx context.Context, profile *domain.SenderProfile) (sending.Transport, error) {
	key := fingerprint(profile)

	f.mu.Lock()
	defer f.mu.Unlock()
	if c, ok := f.cache[profile.Name]; ok && c.fingerprint == key {
		return c.transport, nil
	}

	var t sending.Transport
	switch profile.SenderType {
	case domain.SenderTypeOffice365, domain.SenderTypeGraph, "":
		t = graph.New(profile, f.graphCfg)
	case domain.SenderTypeSES:
		s, err := ses.New(ctx, f.sesCfg)
		if err != nil {
			return nil, fmt.Errorf("build ses transport: %w", err)
		}
		t = s
	case domain.SenderTypeNoop:
		t = f.noop
	default:
		return nil, &domain.ConfigurationError{
			Key:    domain.KeySenderType,
			Reason: fmt.Sprintf("no transport for sender type %q", profile.SenderType),
		}
	}

	f.cache[profile.Name] = cachedTransport{fingerprint: key, transport: t}
	return t, nil
}

// Noop exposes the shared no-op transport, mostly for inspection in tests
// and dry runs.
func (f *Factory) Noop() *noop.Sender { return f.noop }

func fingerprint(profile *domain.SenderProfile) string {
	settings := profile.Settings()
	keys := make([]string, 0, len(settings))
	for k := range settings {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	h := fnv.New64a()
	h.Write([]byte(profile.Name))
	for _, k := range keys {
		h.Write([]byte{0})
		h.Write([]byte(k))
		h.Write([]byte{'='})
		h.Write([]byte(settings[k]))
	}
	return fmt.Sprintf("%s/%x", profile.Name, h.Sum64())
}
