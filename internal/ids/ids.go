// Package ids generates the correlation identifiers threaded through
// structured logs and migration-fence tokens.
package ids

import "github.com/google/uuid"

// New returns a fresh random identifier, suitable for a request or
// migration correlation id.
func New() string {
	return uuid.NewString()
}

// Short returns the first 8 characters of a fresh identifier, for
// log lines where the full UUID would be noise.
func Short() string {
	return New()[:8]
}
