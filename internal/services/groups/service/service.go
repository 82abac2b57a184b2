// Package service implements hierarchy resolution over a season's
// classification forest
package service

import (
	"context"
	"sort"

	"fieldday/internal/modkit/repokit"
	perr "fieldday/internal/platform/errors"
	"fieldday/internal/services/groups/domain"
)

// Service implements domain.ResolverPort
type Service struct {
	DB    repokit.TxRunner
	Nodes repokit.Binder[domain.Repo]
}

// New constructs the resolver service
func New(db repokit.TxRunner, nodes repokit.Binder[domain.Repo]) *Service {
	if db == nil {
		panic("groups.Service requires a non nil TxRunner")
	}
	if nodes == nil {
		panic("groups.Service requires a non nil nodes binder")
	}
	return &Service{DB: db, Nodes: nodes}
}

// DescendantIDs breadth-first walks every root matching rootSlug and unions
// the visited ids. Duplicate roots with the same slug are a known upstream
// data condition; the seen-set guarantees termination even when their
// subtrees overlap.
func (s *Service) DescendantIDs(ctx context.Context, rootSlug string, seasonYear int) ([]string, error) {
	nodes, err := s.Nodes.Bind(s.DB).NodesForSeason(ctx, seasonYear)
	if err != nil {
		return nil, err
	}

	children := make(map[string][]string, len(nodes))
	var queue []string
	for _, n := range nodes {
		if n.ParentID != nil {
			children[*n.ParentID] = append(children[*n.ParentID], n.ID)
		}
		if n.Slug == rootSlug {
			queue = append(queue, n.ID)
		}
	}
	if len(queue) == 0 {
		return nil, perr.NotFoundf("groups: no node with slug %q in season %d", rootSlug, seasonYear)
	}

	seen := make(map[string]struct{}, len(nodes))
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		queue = append(queue, children[id]...)
	}

	out := make([]string, 0, len(seen))
	for id := range seen {
		out = append(out, id)
	}
	sort.Strings(out)
	return out, nil
}
