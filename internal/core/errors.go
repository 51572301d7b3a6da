package core

import "errors"

// Category groups domain errors by how they are reported.
type Category int

const (
	// CategoryProtocol covers malformed or out-of-state messages.
	CategoryProtocol Category = iota
	// CategoryCapacity covers full rooms and room code exhaustion.
	CategoryCapacity
	// CategoryAuthorization covers privileged actions by non-hosts.
	CategoryAuthorization
	// CategoryNotFound covers unknown rooms and absent guests.
	CategoryNotFound
	// CategoryInternal covers unexpected failures while handling a message.
	CategoryInternal
)

func (c Category) String() string {
	switch c {
	case CategoryProtocol:
		return "protocol"
	case CategoryCapacity:
		return "capacity"
	case CategoryAuthorization:
		return "authorization"
	case CategoryNotFound:
		return "not_found"
	default:
		return "internal"
	}
}

// Error codes for domain errors.
const (
	ErrCodeBadRequest       = "bad_request"
	ErrCodeUnknownType      = "unknown_type"
	ErrCodeNotAuthenticated = "not_authenticated"
	ErrCodeNotInRoom        = "not_in_room"
	ErrCodeCodesExhausted   = "room_codes_exhausted"
	ErrCodeNotHost          = "not_host"
	ErrCodeGuestNotFound    = "guest_not_found"
	ErrCodeContentTooLarge  = "content_too_large"
	ErrCodeInvalidOperation = "invalid_operation"
	ErrCodeRateLimited      = "rate_limited"
	ErrCodeInternal         = "internal_error"
)

var (
	ErrRoomNotFound      = errors.New("room not found")
	ErrRoomFull          = errors.New("room is full")
	ErrCapacityExhausted = errors.New("failed to generate unique room code")
)

// CoreError wraps a code and human-readable message.
type CoreError struct {
	Code     string
	Category Category
	Message  string
}

func (e *CoreError) Error() string {
	return e.Message
}

func coreError(category Category, code, msg string) *CoreError {
	return &CoreError{Code: code, Category: category, Message: msg}
}

// ProtocolError builds an error for a malformed or unexpected message.
func ProtocolError(code, msg string) *CoreError {
	return coreError(CategoryProtocol, code, msg)
}

var (
	errNotAuthenticated = coreError(CategoryProtocol, ErrCodeNotAuthenticated, "Not authenticated")
	errNotInRoom        = coreError(CategoryProtocol, ErrCodeNotInRoom, "Not in a room")
	errCodesExhausted   = coreError(CategoryCapacity, ErrCodeCodesExhausted, "Failed to create room")
	errNotHost          = coreError(CategoryAuthorization, ErrCodeNotHost, "Only host can send content to guests")
	errGuestNotFound    = coreError(CategoryNotFound, ErrCodeGuestNotFound, "Guest user not found in room")
	errContentTooLarge  = coreError(CategoryProtocol, ErrCodeContentTooLarge, "Content too large")
	errInvalidOperation = coreError(CategoryProtocol, ErrCodeInvalidOperation, "Invalid text operation")
	errInternal         = coreError(CategoryInternal, ErrCodeInternal, "Internal server error")
)
