// Package domain defines the dispatch commands, the processor contract, and
// the job queue surface the worker pool consumes
package domain

import (
	docdom "fieldday/internal/services/documents/domain"
)

// Job kinds carried on the queue
const (
	KindDocumentCreated = "document.created"
)

// Command is the typed unit of work handed to a canonicalization processor.
// A redispatch after failure carries the same document identity and
// correlation id with Attempt incremented by exactly one.
type Command struct {
	DocumentID    string          `json:"id"`
	ParentID      *string         `json:"parentId,omitempty"`
	Name          string          `json:"name,omitempty"`
	Ref           string          `json:"ref"`
	SourceRef     string          `json:"sourceRef"`
	SourceURLHash string          `json:"sourceUrlHash"`
	Payload       []byte          `json:"documentJson"`
	Provider      docdom.Provider `json:"sourceDataProvider"`
	Sport         docdom.Sport    `json:"sport"`
	DocType       docdom.DocType  `json:"documentType"`
	SeasonYear    *int            `json:"seasonYear,omitempty"`
	RoutingKey    string          `json:"routingKey,omitempty"`
	CorrelationID string          `json:"correlationId"`
	CausationID   string          `json:"causationId"`
	Attempt       int             `json:"attemptCount"`
}

// DeadLetter is the notification emitted once for a document whose processing
// exhausted the attempt ceiling. Consumers observe; nothing remediates
// automatically.
type DeadLetter struct {
	DocumentID    string         `json:"id"`
	DocType       docdom.DocType `json:"documentType"`
	Sport         docdom.Sport   `json:"sport"`
	SourceURLHash string         `json:"sourceUrlHash"`
	CorrelationID string         `json:"correlationId"`
	CausationID   string         `json:"causationId"`
	Ref           string         `json:"ref,omitempty"`
	SourceRef     string         `json:"sourceRef"`
	Attempts      int            `json:"attemptCount"`
	Reason        string         `json:"reason"`
}
