package database

import "time"

// Query limits
const (
	// MaxCandidates caps the scored products read per category per day
	MaxCandidates = 500
)

// Query timeouts
const (
	BatchWriteTimeout = 30 * time.Second
	PurgeTimeout      = 2 * time.Minute
)
