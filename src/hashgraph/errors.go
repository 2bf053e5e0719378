package hashgraph

import "errors"

var (
	// ErrDuplicateEvent is returned when inserting an event that is already
	// indexed
	ErrDuplicateEvent = errors.New("event already indexed")
	// ErrMissingParent is returned when inserting a non-genesis event before
	// one of its parents
	ErrMissingParent = errors.New("missing parent")
	// ErrSelfParentCreator is returned when an event's self-parent was created
	// by someone else
	ErrSelfParentCreator = errors.New("self-parent has a different creator")
	// ErrInvalidSignature is returned when an event's signature does not
	// verify against its creator's key
	ErrInvalidSignature = errors.New("invalid signature")
	// ErrInvalidMembership is returned when the number of participants is not
	// positive
	ErrInvalidMembership = errors.New("number of participants must be positive")
)
