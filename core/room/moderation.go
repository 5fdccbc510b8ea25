package room

import (
	"context"
	"time"
)

// ModerationService owns mute/ban records. Rows are never swept on expiry;
// the read path treats expired rows as inactive (storage grows monotonically,
// compaction is an external concern).
type ModerationService struct {
	repo        Repository
	mod         ModerationRepository
	broadcaster Broadcaster

	nowFunc func() time.Time // mockable
}

func NewModerationService(repo Repository, mod ModerationRepository, broadcaster Broadcaster) *ModerationService {
	return &ModerationService{
		repo:        repo,
		mod:         mod,
		broadcaster: broadcaster,
		nowFunc:     time.Now,
	}
}

// Mute upserts the mute record for (room, target); a new mute supersedes the
// previous one. Only the room's teacher may mute, and not themselves.
func (svc *ModerationService) Mute(ctx context.Context, roomID, targetID, byID int, until *time.Time) (Mute, error) {
	if byID == targetID {
		return Mute{}, ErrSelfAction
	}
	if err := svc.requireOwner(ctx, roomID, byID); err != nil {
		return Mute{}, err
	}
	m := Mute{
		RoomID:    roomID,
		UserID:    targetID,
		MutedBy:   byID,
		Until:     until,
		CreatedAt: svc.nowFunc().UTC(),
	}
	return svc.mod.UpsertMute(ctx, m)
}

// Unmute removes the target's mute record; no-op if none exists.
func (svc *ModerationService) Unmute(ctx context.Context, roomID, targetID, byID int) error {
	if err := svc.requireOwner(ctx, roomID, byID); err != nil {
		return err
	}
	return svc.mod.DeleteMute(ctx, roomID, targetID)
}

// Ban blocks room access entirely and evicts the target's live subscriptions.
func (svc *ModerationService) Ban(ctx context.Context, roomID, targetID, byID int, until *time.Time, reason string) (Ban, error) {
	if byID == targetID {
		return Ban{}, ErrSelfAction
	}
	rm, err := svc.repo.GetRoom(ctx, roomID)
	if err != nil {
		return Ban{}, err
	}
	if rm.TeacherID != byID {
		return Ban{}, ErrNotAuthorized
	}
	if targetID == rm.TeacherID {
		return Ban{}, ErrCannotBanOwner
	}
	b := Ban{
		RoomID:    roomID,
		UserID:    targetID,
		BannedBy:  byID,
		Reason:    reason,
		Until:     until,
		CreatedAt: svc.nowFunc().UTC(),
	}
	if b, err = svc.mod.UpsertBan(ctx, b); err != nil {
		return Ban{}, err
	}
	// banned users must be actively removed from the channel, not merely
	// blocked on the next publish
	svc.broadcaster.Evict(roomID, targetID)
	return b, nil
}

// Unban removes the target's ban record; no-op if none exists.
func (svc *ModerationService) Unban(ctx context.Context, roomID, targetID, byID int) error {
	if err := svc.requireOwner(ctx, roomID, byID); err != nil {
		return err
	}
	return svc.mod.DeleteBan(ctx, roomID, targetID)
}

// IsMuted reports whether an active mute exists for (room, user).
func (svc *ModerationService) IsMuted(ctx context.Context, roomID, userID int) (bool, error) {
	m, err := svc.mod.GetMute(ctx, roomID, userID)
	if err != nil {
		if err == ErrNotFound {
			return false, nil
		}
		return false, err
	}
	return m.Active(svc.nowFunc()), nil
}

// IsBanned reports whether an active ban exists for (room, user).
func (svc *ModerationService) IsBanned(ctx context.Context, roomID, userID int) (bool, error) {
	b, err := svc.mod.GetBan(ctx, roomID, userID)
	if err != nil {
		if err == ErrNotFound {
			return false, nil
		}
		return false, err
	}
	return b.Active(svc.nowFunc()), nil
}

func (svc *ModerationService) requireOwner(ctx context.Context, roomID, userID int) error {
	rm, err := svc.repo.GetRoom(ctx, roomID)
	if err != nil {
		return err
	}
	if rm.TeacherID != userID {
		return ErrNotAuthorized
	}
	return nil
}
