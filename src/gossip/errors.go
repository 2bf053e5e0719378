package gossip

import "errors"

var (
	// ErrNotInitialised is returned when syncing before Init has created the
	// genesis event
	ErrNotInitialised = errors.New("gossip engine not initialised")
	// ErrMalformedParents is returned for events with exactly one parent
	ErrMalformedParents = errors.New("event must have zero or two parents")
	// ErrKnownID is returned for events reusing the id of an accepted event
	ErrKnownID = errors.New("event id already known")
	// ErrInvalidPayload wraps the error returned by a Validator
	ErrInvalidPayload = errors.New("invalid payload")
)
