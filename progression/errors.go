package progression

import "errors"

var (
	// ErrInvalidArgument is returned for negative rewards, malformed contexts and
	// states that break the level/xp invariants. No state is changed.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrNotFound is returned when an explicit unlock names a badge the catalog does not know,
	// or when the persistence layer has no such user.
	ErrNotFound = errors.New("not found")

	// ErrInsufficientTokens is returned by a streak redemption without tokens.
	ErrInsufficientTokens = errors.New("insufficient redemption tokens")

	// ErrConflict signals that an unlock for the same (user, badge) pair already exists.
	// The engine recovers from it and never returns it to callers.
	ErrConflict = errors.New("unlock already exists")
)
