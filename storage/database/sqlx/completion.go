package sqlxrepos

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/trezcool/darasa/core/room"
)

type completionRepository struct {
	db *sqlx.DB
}

var _ room.CompletionRepository = (*completionRepository)(nil)

func NewCompletionRepository(db *sqlx.DB) *completionRepository {
	return &completionRepository{db: db}
}

func (r *completionRepository) HasCompletion(ctx context.Context, studentID, materialID int) (bool, error) {
	var exists bool
	err := r.db.GetContext(ctx, &exists, `
		SELECT EXISTS (SELECT 1 FROM completion_records WHERE student_id = $1 AND material_id = $2)`,
		studentID, materialID,
	)
	return exists, err
}

func (r *completionRepository) CreateCompletion(ctx context.Context, rec room.CompletionRecord) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO completion_records (student_id, room_id, material_id, completed_at)
		VALUES ($1, $2, $3, $4)`,
		rec.StudentID, rec.RoomID, rec.MaterialID, rec.CompletedAt,
	)
	if err != nil && isUniqueViolation(err) {
		return room.ErrConflict
	}
	return err
}

func (r *completionRepository) DeleteCompletion(ctx context.Context, studentID, materialID int) error {
	_, err := r.db.ExecContext(ctx, `
		DELETE FROM completion_records WHERE student_id = $1 AND material_id = $2`,
		studentID, materialID,
	)
	return err
}

func (r *completionRepository) CountCompletions(ctx context.Context, studentID, roomID int) (int, error) {
	var n int
	err := r.db.GetContext(ctx, &n, `
		SELECT COUNT(*) FROM completion_records WHERE student_id = $1 AND room_id = $2`,
		studentID, roomID,
	)
	return n, err
}

func (r *completionRepository) UpdateEnrollmentProgress(ctx context.Context, studentID, roomID, percentage int, completedAt *time.Time) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE enrollments SET progress_percentage = $1, completed_at = $2
		WHERE student_id = $3 AND room_id = $4`,
		percentage, completedAt, studentID, roomID,
	)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return room.ErrNotFound
	}
	return nil
}
