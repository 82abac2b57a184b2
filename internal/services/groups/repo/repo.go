// Package repo provides postgres access for classification-tree nodes
package repo

import (
	"context"

	"fieldday/internal/modkit/repokit"
	perr "fieldday/internal/platform/errors"
	"fieldday/internal/services/groups/domain"
)

type (
	// PG is a Postgres binder for domain.Repo
	PG      struct{}
	queries struct{ q repokit.Queryer }
)

// NewPG returns a Postgres binder for domain.Repo
func NewPG() repokit.Binder[domain.Repo] { return PG{} }

// Bind implements repokit.Binder
func (PG) Bind(q repokit.Queryer) domain.Repo { return &queries{q: q} }

func (r *queries) NodesForSeason(ctx context.Context, seasonYear int) ([]domain.Node, error) {
	rows, err := r.q.Query(ctx, `
		SELECT id, parent_id, slug, season_year
		FROM group_nodes
		WHERE season_year = $1
	`, seasonYear)
	if err != nil {
		return nil, perr.FromDB(err, "groups: nodes for season")
	}
	defer rows.Close()

	var out []domain.Node
	for rows.Next() {
		var n domain.Node
		if err := rows.Scan(&n.ID, &n.ParentID, &n.Slug, &n.SeasonYear); err != nil {
			return nil, perr.FromDB(err, "groups: scan node")
		}
		out = append(out, n)
	}
	if err := rows.Err(); err != nil {
		return nil, perr.FromDB(err, "groups: iterate nodes")
	}
	return out, nil
}
