package room

import (
	"context"
	"time"

	"github.com/trezcool/darasa/core/user"
)

type (
	// Repository persists rooms, messages, reactions and flags.
	Repository interface {
		GetRoom(ctx context.Context, id int) (Room, error)

		CreateMessage(ctx context.Context, msg Message) (Message, error)
		GetMessage(ctx context.Context, roomID int, msgID string) (Message, error)
		// QueryMessages returns up to limit messages created strictly before
		// `before`, newest first, plus whether older ones remain.
		QueryMessages(ctx context.Context, roomID int, before time.Time, limit int) ([]Message, bool, error)
		SoftDeleteMessage(ctx context.Context, roomID int, msgID string, deletedBy int, deletedAt time.Time) error
		IncrementThreadCount(ctx context.Context, msgID string) error

		// AddReaction is a no-op if the (message, user, emoji) row exists.
		AddReaction(ctx context.Context, r Reaction) error
		// RemoveReaction is a no-op if no such row exists.
		RemoveReaction(ctx context.Context, messageID string, userID int, emoji string) error

		CreateFlag(ctx context.Context, f Flag) (Flag, error)
		GetFlag(ctx context.Context, id int) (Flag, error)
		QueryFlags(ctx context.Context, roomID int, status FlagStatus) ([]Flag, error)
		UpdateFlag(ctx context.Context, f Flag) (Flag, error)
	}

	// ModerationRepository persists mute/ban rows. Upserts replace any prior
	// row for the same (room, user); expired rows are left in place and
	// filtered by the read path.
	ModerationRepository interface {
		UpsertMute(ctx context.Context, m Mute) (Mute, error)
		GetMute(ctx context.Context, roomID, userID int) (Mute, error) // ErrNotFound when absent
		DeleteMute(ctx context.Context, roomID, userID int) error      // idempotent

		UpsertBan(ctx context.Context, b Ban) (Ban, error)
		GetBan(ctx context.Context, roomID, userID int) (Ban, error) // ErrNotFound when absent
		DeleteBan(ctx context.Context, roomID, userID int) error     // idempotent
	}

	// CompletionRepository persists completion rows and the enrollment's
	// cached progress. CreateCompletion must fail with ErrConflict when the
	// (student, material) row already exists.
	CompletionRepository interface {
		HasCompletion(ctx context.Context, studentID, materialID int) (bool, error)
		CreateCompletion(ctx context.Context, rec CompletionRecord) error
		DeleteCompletion(ctx context.Context, studentID, materialID int) error
		CountCompletions(ctx context.Context, studentID, roomID int) (int, error)
		UpdateEnrollmentProgress(ctx context.Context, studentID, roomID, percentage int, completedAt *time.Time) error
	}

	// EnrollmentDirectory is the external enrollment collaborator.
	EnrollmentDirectory interface {
		IsEnrolled(ctx context.Context, userID, roomID int) (bool, error)
		EnrolledMembers(ctx context.Context, roomID int) ([]user.User, error)
	}

	// MaterialCatalog is the external material collaborator.
	MaterialCatalog interface {
		GetMaterial(ctx context.Context, id int) (Material, error)
		TotalMaterials(ctx context.Context, roomID int) (int, error)
	}
)
