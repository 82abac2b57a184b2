// Package bus defines the event-bus publish seam and a zerolog-backed
// publisher for deployments without a broker attached
package bus

import (
	"context"

	json "github.com/goccy/go-json"

	"fieldday/internal/platform/logger"
)

// Publisher accepts a typed payload for broadcast under a routing key.
// Implementations report failure so callers can hold their claim (outbox) or
// retry; delivery is at-least-once end to end.
type Publisher interface {
	Publish(ctx context.Context, routingKey string, payload any) error
}

// Zerolog is a Publisher that emits each event as one structured log line.
// Useful for local runs and as the terminal sink in tests.
type Zerolog struct {
	log logger.Logger
}

// NewZerolog builds a logging publisher named after the bus component
func NewZerolog() *Zerolog {
	return &Zerolog{log: *logger.Named("bus")}
}

// Publish implements Publisher
func (z *Zerolog) Publish(_ context.Context, routingKey string, payload any) error {
	b, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	z.log.Info().Str("routing_key", routingKey).RawJSON("payload", b).Msg("event published")
	return nil
}
