package sqlxrepos

import (
	"context"
	"database/sql"

	"github.com/jmoiron/sqlx"

	"github.com/trezcool/darasa/core/room"
	"github.com/trezcool/darasa/core/user"
)

// enrollmentDirectory backs the room core's external enrollment collaborator.
type enrollmentDirectory struct {
	db *sqlx.DB
}

var _ room.EnrollmentDirectory = (*enrollmentDirectory)(nil)

func NewEnrollmentDirectory(db *sqlx.DB) *enrollmentDirectory {
	return &enrollmentDirectory{db: db}
}

func (d *enrollmentDirectory) IsEnrolled(ctx context.Context, userID, roomID int) (bool, error) {
	var exists bool
	err := d.db.GetContext(ctx, &exists, `
		SELECT EXISTS (SELECT 1 FROM enrollments WHERE student_id = $1 AND room_id = $2)`,
		userID, roomID,
	)
	return exists, err
}

func (d *enrollmentDirectory) EnrolledMembers(ctx context.Context, roomID int) ([]user.User, error) {
	members := make([]user.User, 0)
	err := d.db.SelectContext(ctx, &members, `
		SELECT u.* FROM users u
		JOIN enrollments e ON e.student_id = u.id
		WHERE e.room_id = $1
		ORDER BY u.id`,
		roomID,
	)
	return members, err
}

// materialCatalog backs the room core's external material collaborator.
type materialCatalog struct {
	db *sqlx.DB
}

var _ room.MaterialCatalog = (*materialCatalog)(nil)

func NewMaterialCatalog(db *sqlx.DB) *materialCatalog {
	return &materialCatalog{db: db}
}

func (c *materialCatalog) GetMaterial(ctx context.Context, id int) (room.Material, error) {
	var mat room.Material
	err := c.db.GetContext(ctx, &mat, `SELECT * FROM materials WHERE id = $1`, id)
	if err == sql.ErrNoRows {
		return room.Material{}, room.ErrNotFound
	}
	return mat, err
}

func (c *materialCatalog) TotalMaterials(ctx context.Context, roomID int) (int, error) {
	var n int
	err := c.db.GetContext(ctx, &n, `SELECT COUNT(*) FROM materials WHERE room_id = $1`, roomID)
	return n, err
}
