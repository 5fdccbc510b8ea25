package room

import (
	"fmt"
	"time"

	"github.com/trezcool/darasa/core"
)

// NewMessage contains information needed to post a Message.
type NewMessage struct {
	Body     string      `json:"body" validate:"required"`
	Type     MessageType `json:"type"`
	ParentID *string     `json:"parent_id"`
}

func (nm *NewMessage) Validate(maxLen int) error {
	nm.Body = core.CleanString(nm.Body)
	if nm.Type == "" {
		nm.Type = MessageText
	}
	if err := core.Validate.Struct(nm); err != nil {
		return err
	}
	if len([]rune(nm.Body)) > maxLen {
		return core.NewValidationError(nil,
			core.FieldError{Field: "body", Error: fmt.Sprintf("must not exceed %d characters", maxLen)})
	}
	if !nm.Type.IsValid() {
		return core.NewValidationError(nil,
			core.FieldError{Field: "type", Error: "must be one of: text, emoji, system"})
	}
	return nil
}

// NewFlag contains information needed to report a Message.
type NewFlag struct {
	Reason string `json:"reason" validate:"required"`
}

func (nf *NewFlag) Validate() error {
	nf.Reason = core.CleanString(nf.Reason)
	return core.Validate.Struct(nf)
}

// NewModerationAction is the request shape for mutes and bans.
type NewModerationAction struct {
	UserID int        `json:"user_id" validate:"required"`
	Until  *time.Time `json:"until"`
	Reason string     `json:"reason"`
}

func (na *NewModerationAction) Validate() error {
	na.Reason = core.CleanString(na.Reason)
	return core.Validate.Struct(na)
}

// TypingSignal is the request shape for the volatile typing broadcast.
type TypingSignal struct {
	IsTyping bool `json:"is_typing"`
}
