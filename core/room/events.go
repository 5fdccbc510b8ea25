package room

import "github.com/trezcool/darasa/core/user"

// Event is a room broadcast payload. Payloads are fully resolved and immutable
// at publish time; subscribers never chase references after delivery.
type Event interface {
	EventName() string
}

type MessageSent struct {
	RoomID  int     `json:"room_id"`
	Message Message `json:"message"`
}

func (MessageSent) EventName() string { return "message.sent" }

type MessageDeleted struct {
	RoomID    int    `json:"room_id"`
	MessageID string `json:"message_id"`
}

func (MessageDeleted) EventName() string { return "message.deleted" }

type UserTyping struct {
	RoomID   int      `json:"room_id"`
	User     user.Ref `json:"user"`
	IsTyping bool     `json:"is_typing"`
}

func (UserTyping) EventName() string { return "user.typing" }

type HandRaised struct {
	RoomID int      `json:"room_id"`
	User   user.Ref `json:"user"`
}

func (HandRaised) EventName() string { return "hand.raised" }

type ProgressUpdated struct {
	RoomID             int      `json:"room_id"`
	Student            user.Ref `json:"student"`
	MaterialID         int      `json:"material_id"`
	IsCompleted        bool     `json:"is_completed"`
	ProgressPercentage int      `json:"progress_percentage"`
}

func (ProgressUpdated) EventName() string { return "progress.updated" }

// Broadcaster fans an event out to a room's current subscribers. Delivery is
// best-effort, at-most-once per subscriber per call; it is never part of the
// durability contract. excludeUserID 0 means deliver to everyone.
type Broadcaster interface {
	Publish(roomID int, event Event, excludeUserID int)
	// Evict closes all of the user's live subscriptions to the room. Required
	// on ban: a banned user must be removed, not merely blocked on the next
	// publish.
	Evict(roomID, userID int)
}

// NopBroadcaster discards events. Used where fan-out is not wired (admin CLI,
// some tests).
type NopBroadcaster struct{}

func (NopBroadcaster) Publish(int, Event, int) {}
func (NopBroadcaster) Evict(int, int)          {}
