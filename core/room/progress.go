package room

import (
	"context"
	"math"
	"time"

	"github.com/trezcool/darasa/core"
	"github.com/trezcool/darasa/core/user"
)

// ProgressService recomputes a student's aggregate lesson progress on every
// completion toggle and broadcasts the result to the whole room. The cached
// enrollment percentage is updated atomically with the recompute; completion
// rows stay the source of truth.
type ProgressService struct {
	repo        Repository
	completions CompletionRepository
	catalog     MaterialCatalog
	enrolls     EnrollmentDirectory
	broadcaster Broadcaster
	logger      core.Logger

	nowFunc func() time.Time // mockable
}

func NewProgressService(
	repo Repository,
	completions CompletionRepository,
	catalog MaterialCatalog,
	enrolls EnrollmentDirectory,
	broadcaster Broadcaster,
	logger core.Logger,
) *ProgressService {
	return &ProgressService{
		repo:        repo,
		completions: completions,
		catalog:     catalog,
		enrolls:     enrolls,
		broadcaster: broadcaster,
		logger:      logger,
		nowFunc:     time.Now,
	}
}

// ToggleCompletion flips the material's completion state for the student and
// returns the recomputed progress. It is its own inverse. Two concurrent
// toggles for the same (student, material) are resolved by the storage
// uniqueness constraint; the loser re-reads the winner's state instead of
// surfacing the conflict.
func (svc *ProgressService) ToggleCompletion(ctx context.Context, student user.User, roomID, materialID int) (ProgressResult, error) {
	enrolled, err := svc.enrolls.IsEnrolled(ctx, student.ID, roomID)
	if err != nil {
		return ProgressResult{}, err
	}
	if !enrolled {
		return ProgressResult{}, ErrNotEnrolled
	}

	mat, err := svc.catalog.GetMaterial(ctx, materialID)
	if err != nil {
		return ProgressResult{}, err
	}
	if mat.RoomID != roomID {
		return ProgressResult{}, ErrNotFound
	}

	now := svc.nowFunc().UTC()
	isCompleted, err := svc.toggle(ctx, student.ID, roomID, materialID, now)
	if err != nil {
		return ProgressResult{}, err
	}

	total, err := svc.catalog.TotalMaterials(ctx, roomID)
	if err != nil {
		return ProgressResult{}, err
	}
	completed, err := svc.completions.CountCompletions(ctx, student.ID, roomID)
	if err != nil {
		return ProgressResult{}, err
	}
	pct := progressPercentage(completed, total)

	var completedAt *time.Time
	if pct == 100 {
		completedAt = &now
	}
	if err := svc.completions.UpdateEnrollmentProgress(ctx, student.ID, roomID, pct, completedAt); err != nil {
		return ProgressResult{}, err
	}

	// delivered to the whole room, the acting student included: this event
	// reflects a durable state change other members' dashboards must show
	svc.broadcaster.Publish(roomID, ProgressUpdated{
		RoomID:             roomID,
		Student:            student.Ref(),
		MaterialID:         materialID,
		IsCompleted:        isCompleted,
		ProgressPercentage: pct,
	}, 0)

	return ProgressResult{
		IsCompleted:        isCompleted,
		ProgressPercentage: pct,
		CompletedMaterials: completed,
		TotalMaterials:     total,
	}, nil
}

func (svc *ProgressService) toggle(ctx context.Context, studentID, roomID, materialID int, now time.Time) (bool, error) {
	has, err := svc.completions.HasCompletion(ctx, studentID, materialID)
	if err != nil {
		return false, err
	}
	if has {
		if err := svc.completions.DeleteCompletion(ctx, studentID, materialID); err != nil {
			return false, err
		}
		return false, nil
	}

	rec := CompletionRecord{
		StudentID:   studentID,
		RoomID:      roomID,
		MaterialID:  materialID,
		CompletedAt: now,
	}
	if err := svc.completions.CreateCompletion(ctx, rec); err != nil {
		if err == ErrConflict {
			// a concurrent toggle won the insert; adopt its state
			return true, nil
		}
		return false, err
	}
	return true, nil
}

func progressPercentage(completed, total int) int {
	if total == 0 {
		return 0
	}
	return int(math.Round(100 * float64(completed) / float64(total)))
}
