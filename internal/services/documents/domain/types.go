// Package domain holds the raw document model shared across the pipeline
package domain

import (
	"time"
)

// Provider identifies an external sports-data provider
type Provider string

// ProviderESPN is the only provider wired today
const ProviderESPN Provider = "espn"

// Sport scopes documents to one sport/league pairing
type Sport string

// Sports sourced today
const (
	SportFootballNCAA Sport = "football-ncaa"
	SportFootballNFL  Sport = "football-nfl"
)

// DocType names the provider document shape, used for processor lookup
type DocType string

// Document types with processors or sourcing routes
const (
	DocTypeVenue       DocType = "venue"
	DocTypeFranchise   DocType = "franchise"
	DocTypeTeamSeason  DocType = "team-season"
	DocTypeAthlete     DocType = "athlete"
	DocTypeGroupSeason DocType = "group-season"
)

// RawDocument is a provider payload as ingested, prior to canonicalization.
// ID is the content digest of the source URL, not of the payload, so an
// existence check answers "have we ever fetched this URL". Rows are created
// once per unique source URL and never mutated.
type RawDocument struct {
	ID          string
	ParentID    *string
	SourceURI   string
	OriginalURI *string // set when the fetch followed a redirect
	Payload     string
	Provider    Provider
	Sport       Sport
	DocType     DocType
	SeasonYear  *int
	RoutingKey  string
	CreatedUTC  time.Time
}
