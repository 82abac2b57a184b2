// Package repo provides postgres access for the document store
package repo

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"

	"fieldday/internal/modkit/repokit"
	perr "fieldday/internal/platform/errors"
	"fieldday/internal/services/documents/domain"
)

type (
	// PG is a Postgres binder for domain.StorageRepo
	PG      struct{}
	queries struct{ q repokit.Queryer }
)

// NewPG returns a Postgres binder for domain.StorageRepo
func NewPG() repokit.Binder[domain.StorageRepo] { return PG{} }

// Bind implements repokit.Binder
func (PG) Bind(q repokit.Queryer) domain.StorageRepo { return &queries{q: q} }

func (r *queries) Exists(ctx context.Context, id string) (bool, error) {
	var found bool
	err := r.q.QueryRow(ctx, `
		SELECT EXISTS (SELECT 1 FROM documents WHERE id = $1)
	`, id).Scan(&found)
	if err != nil {
		return false, perr.FromDB(err, "documents: exists")
	}
	return found, nil
}

func (r *queries) Insert(ctx context.Context, d domain.RawDocument) error {
	created := d.CreatedUTC
	if created.IsZero() {
		created = time.Now().UTC()
	}
	_, err := r.q.Exec(ctx, `
		INSERT INTO documents (
			id, parent_id, source_uri, original_uri, payload,
			provider, sport, doc_type, season_year, routing_key, created_utc
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`,
		d.ID, d.ParentID, d.SourceURI, d.OriginalURI, d.Payload,
		string(d.Provider), string(d.Sport), string(d.DocType), d.SeasonYear, d.RoutingKey, created,
	)
	if err != nil {
		return perr.FromDB(err, "documents: insert")
	}
	return nil
}

func (r *queries) Get(ctx context.Context, id string) (domain.RawDocument, error) {
	var d domain.RawDocument
	var provider, sport, docType string
	err := r.q.QueryRow(ctx, `
		SELECT id, parent_id, source_uri, original_uri, payload,
		       provider, sport, doc_type, season_year, routing_key, created_utc
		FROM documents
		WHERE id = $1
	`, id).Scan(
		&d.ID, &d.ParentID, &d.SourceURI, &d.OriginalURI, &d.Payload,
		&provider, &sport, &docType, &d.SeasonYear, &d.RoutingKey, &d.CreatedUTC,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.RawDocument{}, perr.NotFoundf("documents: no document %s", id)
		}
		return domain.RawDocument{}, perr.FromDB(err, "documents: get")
	}
	d.Provider = domain.Provider(provider)
	d.Sport = domain.Sport(sport)
	d.DocType = domain.DocType(docType)
	return d, nil
}
