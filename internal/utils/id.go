package utils

import "github.com/google/uuid"

// NewID returns a random UUID string used for records and connections.
func NewID() string {
	return uuid.NewString()
}
