package room

import "errors"

// All errors below are recoverable-by-caller rejections; the API layer maps
// them to responses. A non-member must never learn a room's moderation state:
// room-not-found and not-enrolled both surface as ErrNotAuthorized.
var (
	ErrNotAuthorized   = errors.New("access denied")
	ErrMuted           = errors.New("you are muted in this room")
	ErrBanned          = errors.New("you are banned from this room")
	ErrNotFound        = errors.New("not found")
	ErrConflict        = errors.New("conflicting concurrent update")
	ErrAlreadyReviewed = errors.New("flag has already been reviewed")
	ErrSelfAction      = errors.New("cannot perform this action on yourself")
	ErrCannotBanOwner  = errors.New("cannot ban the room's teacher")
	ErrNotEnrolled     = errors.New("not enrolled in this room")
)
