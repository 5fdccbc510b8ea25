package room

import (
	"context"
	"time"

	"github.com/trezcool/darasa/core/user"
)

// Guard resolves whether a user may act in a room and in what capacity. It is
// read-only and must be consulted before every room-scoped operation,
// including at websocket subscribe time.
type Guard struct {
	repo    Repository
	enrolls EnrollmentDirectory
	mod     ModerationRepository

	nowFunc func() time.Time // mockable
}

func NewGuard(repo Repository, enrolls EnrollmentDirectory, mod ModerationRepository) *Guard {
	return &Guard{
		repo:    repo,
		enrolls: enrolls,
		mod:     mod,
		nowFunc: time.Now,
	}
}

// CanAccess returns the user's access verdict for the room.
func (g *Guard) CanAccess(ctx context.Context, usr user.User, roomID int) (Access, error) {
	_, acc, err := g.Check(ctx, usr, roomID)
	return acc, err
}

// Check resolves the room alongside the verdict so callers avoid a second
// lookup. Room-not-found and not-enrolled are indistinguishable to the caller:
// both deny with ErrNotAuthorized. A ban overrides enrollment but never
// applies to the owning teacher.
func (g *Guard) Check(ctx context.Context, usr user.User, roomID int) (Room, Access, error) {
	rm, err := g.repo.GetRoom(ctx, roomID)
	if err != nil {
		if err == ErrNotFound {
			return Room{}, Access{Reason: ErrNotAuthorized}, nil
		}
		return Room{}, Access{}, err
	}

	if usr.ID == rm.TeacherID {
		return rm, Access{Granted: true, Role: RoleTeacher}, nil
	}

	enrolled, err := g.enrolls.IsEnrolled(ctx, usr.ID, roomID)
	if err != nil {
		return Room{}, Access{}, err
	}
	if !enrolled {
		return rm, Access{Reason: ErrNotAuthorized}, nil
	}

	banned, err := g.isBanned(ctx, roomID, usr.ID)
	if err != nil {
		return Room{}, Access{}, err
	}
	if banned {
		return rm, Access{Reason: ErrBanned}, nil
	}

	return rm, Access{Granted: true, Role: RoleStudent}, nil
}

func (g *Guard) isBanned(ctx context.Context, roomID, userID int) (bool, error) {
	ban, err := g.mod.GetBan(ctx, roomID, userID)
	if err != nil {
		if err == ErrNotFound {
			return false, nil
		}
		return false, err
	}
	return ban.Active(g.nowFunc()), nil
}
