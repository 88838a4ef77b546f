package model

import "time"

// Credential is a stored secret for an external service (e.g. the LLM API
// key), encrypted at rest by the credential store.
type Credential struct {
	ID        int64
	Service   string
	Value     string // Plaintext; encryption happens in the store.
	UpdatedAt time.Time
}
