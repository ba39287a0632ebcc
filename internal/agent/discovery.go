package agent

import "time"

// Discovery is a small, titled finding the agent persists for the user,
// independent of conversation context. Persisted append-only to
// <workspace>/.ouro-discoveries.jsonl and survives restarts.
type Discovery struct {
	Timestamp   time.Time `json:"timestamp"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
}
