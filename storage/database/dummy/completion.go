package dummydb

import (
	"context"
	"time"

	"github.com/trezcool/darasa/core/room"
)

type completionRepository struct {
	db *DB
}

var _ room.CompletionRepository = (*completionRepository)(nil)

func NewCompletionRepository(db *DB) *completionRepository {
	return &completionRepository{db: db}
}

func (r *completionRepository) HasCompletion(_ context.Context, studentID, materialID int) (bool, error) {
	t := r.db.completion
	t.RLock()
	defer t.RUnlock()

	_, ok := t.table[completionKey{studentID: studentID, materialID: materialID}]
	return ok, nil
}

func (r *completionRepository) CreateCompletion(_ context.Context, rec room.CompletionRecord) error {
	t := r.db.completion
	t.Lock()
	defer t.Unlock()

	key := completionKey{studentID: rec.StudentID, materialID: rec.MaterialID}
	if _, exists := t.table[key]; exists {
		return room.ErrConflict // unique (student, material)
	}
	t.table[key] = &rec
	return nil
}

func (r *completionRepository) DeleteCompletion(_ context.Context, studentID, materialID int) error {
	t := r.db.completion
	t.Lock()
	defer t.Unlock()

	delete(t.table, completionKey{studentID: studentID, materialID: materialID})
	return nil
}

func (r *completionRepository) CountCompletions(_ context.Context, studentID, roomID int) (int, error) {
	t := r.db.completion
	t.RLock()
	defer t.RUnlock()

	var n int
	for _, rec := range t.table {
		if rec.StudentID == studentID && rec.RoomID == roomID {
			n++
		}
	}
	return n, nil
}

func (r *completionRepository) UpdateEnrollmentProgress(_ context.Context, studentID, roomID, percentage int, completedAt *time.Time) error {
	t := r.db.enrollment
	t.Lock()
	defer t.Unlock()

	for _, enr := range t.table {
		if enr.StudentID == studentID && enr.RoomID == roomID {
			enr.ProgressPercentage = percentage
			enr.CompletedAt = completedAt
			return nil
		}
	}
	return room.ErrNotFound
}
