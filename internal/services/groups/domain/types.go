// Package domain defines the classification-tree node shape and ports for
// the hierarchy resolver
package domain

import "context"

// Node is one entry in a season's classification forest. ParentID nil marks
// a root. Duplicate roots sharing one slug do occur upstream; resolution
// unions their subtrees.
type Node struct {
	ID         string
	ParentID   *string
	Slug       string
	SeasonYear int
}

// Repo loads nodes; the resolver traverses in memory
type Repo interface {
	NodesForSeason(ctx context.Context, seasonYear int) ([]Node, error)
}

// ResolverPort resolves transitive membership under a named root
type ResolverPort interface {
	// DescendantIDs returns the ids of every node reachable from any root
	// matching rootSlug for the season, roots included, sorted and
	// deduplicated. NotFound when no node carries the slug.
	DescendantIDs(ctx context.Context, rootSlug string, seasonYear int) ([]string, error)
}
