package remarkable

import "github.com/google/uuid"

// NewID returns a fresh identifier for an object about to be created.
// IDs are generated locally without a remote existence check.
func NewID() string {
	return uuid.New().String()
}
