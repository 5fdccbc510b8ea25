package room

import (
	"time"

	"github.com/trezcool/darasa/core/user"
)

// MessageType is the closed set of chat message kinds.
type MessageType string

const (
	MessageText   MessageType = "text"
	MessageEmoji  MessageType = "emoji"
	MessageSystem MessageType = "system"
)

func (t MessageType) IsValid() bool {
	switch t {
	case MessageText, MessageEmoji, MessageSystem:
		return true
	}
	return false
}

// Role is the capacity in which a user participates in a room.
type Role string

const (
	RoleTeacher Role = "teacher"
	RoleStudent Role = "student"
)

// Room is the per-lesson real-time scope. Membership (enrollment) is owned by
// an external collaborator; the chat subsystem never mutates a room.
type Room struct {
	ID        int       `json:"id" db:"id"` // lesson id
	Name      string    `json:"name" db:"name"`
	TeacherID int       `json:"teacher_id" db:"teacher_id"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// Material is a lesson material students mark complete.
type Material struct {
	ID     int    `json:"id" db:"id"`
	RoomID int    `json:"room_id" db:"room_id"`
	Title  string `json:"title" db:"title"`
}

// Enrollment ties a student to a room. ProgressPercentage is a cache updated
// atomically with each recompute; completion rows remain the source of truth.
type Enrollment struct {
	ID                 int        `json:"id" db:"id"`
	RoomID             int        `json:"room_id" db:"room_id"`
	StudentID          int        `json:"student_id" db:"student_id"`
	ProgressPercentage int        `json:"progress_percentage" db:"progress_percentage"`
	CompletedAt        *time.Time `json:"completed_at" db:"completed_at"`
	CreatedAt          time.Time  `json:"created_at" db:"created_at"`
}

// Message belongs to exactly one room; RoomID is immutable after creation.
// Deletion is always soft so child thread messages stay addressable.
type Message struct {
	ID               string      `json:"id" db:"id"`
	RoomID           int         `json:"room_id" db:"room_id"`
	SenderID         int         `json:"sender_id" db:"sender_id"`
	Sender           user.Ref    `json:"sender" db:"-"`
	Body             string      `json:"body" db:"body"`
	Type             MessageType `json:"type" db:"type"`
	ParentID         *string     `json:"parent_id" db:"parent_id"`
	ThreadCount      int         `json:"thread_count" db:"thread_count"` // derived counter, incremented on reply
	MentionedUserIDs []int       `json:"mentioned_user_ids" db:"-"`
	IsDeleted        bool        `json:"is_deleted" db:"is_deleted"`
	DeletedBy        *int        `json:"deleted_by" db:"deleted_by"`
	DeletedAt        *time.Time  `json:"deleted_at" db:"deleted_at"`
	CreatedAt        time.Time   `json:"created_at" db:"created_at"`
}

// Reaction is a (message, user, emoji) triple, unique per combination.
type Reaction struct {
	MessageID string    `json:"message_id" db:"message_id"`
	UserID    int       `json:"user_id" db:"user_id"`
	Emoji     string    `json:"emoji" db:"emoji"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// FlagStatus transitions pending -> reviewed|dismissed; both are terminal.
type FlagStatus string

const (
	FlagPending   FlagStatus = "pending"
	FlagReviewed  FlagStatus = "reviewed"
	FlagDismissed FlagStatus = "dismissed"
)

func (s FlagStatus) IsValid() bool {
	switch s {
	case FlagPending, FlagReviewed, FlagDismissed:
		return true
	}
	return false
}

// Flag is a member's report against a message.
type Flag struct {
	ID         int        `json:"id" db:"id"`
	RoomID     int        `json:"room_id" db:"room_id"`
	MessageID  string     `json:"message_id" db:"message_id"`
	FlaggerID  int        `json:"flagger_id" db:"flagger_id"`
	Reason     string     `json:"reason" db:"reason"`
	Status     FlagStatus `json:"status" db:"status"`
	ReviewerID *int       `json:"reviewer_id" db:"reviewer_id"`
	ReviewedAt *time.Time `json:"reviewed_at" db:"reviewed_at"`
	CreatedAt  time.Time  `json:"created_at" db:"created_at"`
}

// Mute blocks posting. Active status is derived from Until at read time
// (lazy expiry); nil Until means indefinite. One row per (room, user):
// a new mute supersedes the previous one.
type Mute struct {
	RoomID    int        `json:"room_id" db:"room_id"`
	UserID    int        `json:"user_id" db:"user_id"`
	MutedBy   int        `json:"muted_by" db:"muted_by"`
	Until     *time.Time `json:"until" db:"until"`
	CreatedAt time.Time  `json:"created_at" db:"created_at"`
}

// Active reports whether the mute is in effect at the given time.
func (m Mute) Active(now time.Time) bool {
	return m.Until == nil || m.Until.After(now)
}

// Ban blocks room access entirely. Same expiry semantics as Mute; never
// applies to the room's owning teacher.
type Ban struct {
	RoomID    int        `json:"room_id" db:"room_id"`
	UserID    int        `json:"user_id" db:"user_id"`
	BannedBy  int        `json:"banned_by" db:"banned_by"`
	Reason    string     `json:"reason" db:"reason"`
	Until     *time.Time `json:"until" db:"until"`
	CreatedAt time.Time  `json:"created_at" db:"created_at"`
}

func (b Ban) Active(now time.Time) bool {
	return b.Until == nil || b.Until.After(now)
}

// CompletionRecord marks a material completed by its mere existence.
type CompletionRecord struct {
	StudentID   int       `json:"student_id" db:"student_id"`
	RoomID      int       `json:"room_id" db:"room_id"`
	MaterialID  int       `json:"material_id" db:"material_id"`
	CompletedAt time.Time `json:"completed_at" db:"completed_at"`
}

// ProgressResult is returned synchronously from a completion toggle.
type ProgressResult struct {
	IsCompleted        bool `json:"is_completed"`
	ProgressPercentage int  `json:"progress_percentage"`
	CompletedMaterials int  `json:"completed_materials"`
	TotalMaterials     int  `json:"total_materials"`
}

// Access is the Guard's verdict for (user, room).
type Access struct {
	Granted bool
	Role    Role
	Reason  error // denial cause; nil when granted
}

// MessagePage is a newest-first slice of a room's history.
type MessagePage struct {
	Messages  []Message `json:"messages"`
	HasMore   bool      `json:"has_more"`
	NextToken string    `json:"next_page_token,omitempty"`
}
