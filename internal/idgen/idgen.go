// Package idgen generates globally unique identifiers for sessions.
package idgen

import "github.com/google/uuid"

// NewSessionID returns a new globally unique session identifier.
func NewSessionID() string {
	return uuid.NewString()
}
