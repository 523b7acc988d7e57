package audit

import (
	"time"
)

// Event is emitted from domain logic to capture key actions. Keep it
// transport-agnostic so sinks can fan out.
type Event struct {
	Timestamp time.Time `json:"timestamp"`
	Action    string    `json:"action"`
	// ContactID is the row the action created or mutated, when applicable.
	ContactID int64 `json:"contact_id,omitempty"`
	// PrimaryID is the canonical contact of the affected cluster.
	PrimaryID int64 `json:"primary_id,omitempty"`
	// RequestID correlates the event with the HTTP request that caused it.
	RequestID string `json:"request_id,omitempty"`
	Detail    string `json:"detail,omitempty"`
}

// Actions recorded by the resolution engine.
const (
	EventContactCreated  = "contact_created"
	EventContactLinked   = "contact_linked"
	EventClustersMerged  = "clusters_merged"
	EventContactResolved = "contact_resolved"
)
