// internal/models/errors.go
package models

import "errors"

// Domain error taxonomy. Store and core return these sentinels so the
// HTTP/websocket boundary can map them to user-visible conditions.
var (
	// ErrRoomNotFound indicates a bad or expired room code.
	ErrRoomNotFound = errors.New("room not found")

	// ErrCodeTaken indicates a custom room code collides with an active room.
	ErrCodeTaken = errors.New("room code already taken")

	// ErrInvalidCode indicates a code outside the 4-character restricted alphabet.
	ErrInvalidCode = errors.New("invalid room code")

	// ErrNotHost indicates a host-only mutation attempted by a guest.
	ErrNotHost = errors.New("only the host may do that")

	// ErrPhaseViolation indicates a mutation disallowed by the room's phase.
	ErrPhaseViolation = errors.New("not allowed in the current phase")

	// ErrNoSession indicates an action that requires a participant identity.
	ErrNoSession = errors.New("no participant session")

	// ErrUnknownNominee indicates a category/nominee pair absent from the catalog.
	ErrUnknownNominee = errors.New("unknown category or nominee")

	// ErrLoadFailed indicates a transient store fault during initial room load.
	ErrLoadFailed = errors.New("failed to load room")

	// ErrWriteFailed indicates a mutation that was rejected or unreachable.
	ErrWriteFailed = errors.New("write failed")
)
