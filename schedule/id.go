package schedule

import "github.com/google/uuid"

// newID returns a fresh record identifier.
func newID() string {
	return uuid.NewString()
}
