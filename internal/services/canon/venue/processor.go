// Package venue canonicalizes provider venue documents into the venues table
// and announces each upsert through the outbox
package venue

import (
	"context"
	"time"

	json "github.com/goccy/go-json"

	"fieldday/internal/modkit/repokit"
	perr "fieldday/internal/platform/errors"
	dispatchdom "fieldday/internal/services/dispatch/domain"
	outboxsvc "fieldday/internal/services/outbox/service"
)

// EventVenueUpserted is the outbox payload type announced per upsert
const EventVenueUpserted = "venue.upserted"

// payload is the provider's venue document shape; unknown fields are ignored
type payload struct {
	ID       string `json:"id"`
	FullName string `json:"fullName"`
	Address  struct {
		City  string `json:"city"`
		State string `json:"state"`
	} `json:"address"`
	Capacity int  `json:"capacity"`
	Grass    bool `json:"grass"`
	Indoor   bool `json:"indoor"`
}

// Upserted is the domain fact announced after a venue write
type Upserted struct {
	VenueID       string `json:"venueId"`
	Name          string `json:"name"`
	City          string `json:"city"`
	State         string `json:"state"`
	SourceURLHash string `json:"sourceUrlHash"`
}

// Processor implements dispatchdom.Processor for venue documents
type Processor struct{}

// New constructs a venue processor
func New() *Processor { return &Processor{} }

// Process upserts the canonical venue row and appends the VenueUpserted
// outbox row inside the caller's transaction. Redelivery of the same
// document converges on the same row, so racing workers are harmless.
func (p *Processor) Process(ctx context.Context, q repokit.Queryer, cmd dispatchdom.Command) error {
	var v payload
	if err := json.Unmarshal(cmd.Payload, &v); err != nil {
		return perr.Wrap(err, perr.ErrorCodeJSON, "venue: decode document")
	}
	if v.ID == "" || v.FullName == "" {
		return perr.Validationf("venue: document %s missing id or name", cmd.DocumentID)
	}

	_, err := q.Exec(ctx, `
		INSERT INTO venues (
			provider_id, name, city, state, capacity, grass, indoor,
			source_url_hash, updated_utc
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (provider_id) DO UPDATE SET
			name = EXCLUDED.name,
			city = EXCLUDED.city,
			state = EXCLUDED.state,
			capacity = EXCLUDED.capacity,
			grass = EXCLUDED.grass,
			indoor = EXCLUDED.indoor,
			source_url_hash = EXCLUDED.source_url_hash,
			updated_utc = EXCLUDED.updated_utc
	`,
		v.ID, v.FullName, v.Address.City, v.Address.State, v.Capacity, v.Grass, v.Indoor,
		cmd.SourceURLHash, time.Now().UTC(),
	)
	if err != nil {
		return perr.FromDB(err, "venue: upsert")
	}

	return outboxsvc.Append(ctx, q, EventVenueUpserted, Upserted{
		VenueID:       v.ID,
		Name:          v.FullName,
		City:          v.Address.City,
		State:         v.Address.State,
		SourceURLHash: cmd.SourceURLHash,
	}, cmd.CorrelationID, cmd.CausationID)
}
