package ports

import "context"

// SeedSource supplies verifiable randomness from the external consensus
// collaborator. The engine never generates randomness itself: every shuffle
// consumes a seed all participants agree on, so each party recomputes the
// same permutation locally.
type SeedSource interface {
	// Seed returns the agreed randomness for the given purpose tag (for
	// example "initial-shuffle" or "reshuffle:3"). The tag domain-separates
	// seeds drawn within one session.
	Seed(ctx context.Context, purpose string) ([]byte, error)
}
