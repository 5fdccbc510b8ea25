package dummydb

import (
	"context"
	"sort"
	"time"

	"github.com/trezcool/darasa/core/room"
	"github.com/trezcool/darasa/core/user"
)

// enrollmentDirectory backs the room core's external enrollment collaborator.
type enrollmentDirectory struct {
	db *DB
}

var _ room.EnrollmentDirectory = (*enrollmentDirectory)(nil)

func NewEnrollmentDirectory(db *DB) *enrollmentDirectory {
	return &enrollmentDirectory{db: db}
}

// Enroll seeds an enrollment; enrollment CRUD is owned by the lesson app.
func (d *enrollmentDirectory) Enroll(studentID, roomID int) room.Enrollment {
	t := d.db.enrollment
	t.Lock()
	defer t.Unlock()

	t.pk++
	enr := room.Enrollment{
		ID:        t.pk,
		RoomID:    roomID,
		StudentID: studentID,
		CreatedAt: time.Now().UTC(),
	}
	t.table[enr.ID] = &enr
	return enr
}

// GetEnrollment reports the enrollment row for a (student, room); test helper.
func (d *enrollmentDirectory) GetEnrollment(studentID, roomID int) (room.Enrollment, bool) {
	t := d.db.enrollment
	t.RLock()
	defer t.RUnlock()

	for _, enr := range t.table {
		if enr.StudentID == studentID && enr.RoomID == roomID {
			return *enr, true
		}
	}
	return room.Enrollment{}, false
}

func (d *enrollmentDirectory) IsEnrolled(_ context.Context, userID, roomID int) (bool, error) {
	t := d.db.enrollment
	t.RLock()
	defer t.RUnlock()

	for _, enr := range t.table {
		if enr.StudentID == userID && enr.RoomID == roomID {
			return true, nil
		}
	}
	return false, nil
}

func (d *enrollmentDirectory) EnrolledMembers(_ context.Context, roomID int) ([]user.User, error) {
	t := d.db.enrollment
	t.RLock()
	ids := make([]int, 0)
	for _, enr := range t.table {
		if enr.RoomID == roomID {
			ids = append(ids, enr.StudentID)
		}
	}
	t.RUnlock()
	sort.Ints(ids)

	ut := d.db.user
	ut.RLock()
	defer ut.RUnlock()

	members := make([]user.User, 0, len(ids))
	for _, id := range ids {
		if usr, ok := ut.table[id]; ok {
			members = append(members, *usr)
		}
	}
	return members, nil
}

// materialCatalog backs the room core's external material collaborator.
type materialCatalog struct {
	db *materialTable
}

var _ room.MaterialCatalog = (*materialCatalog)(nil)

func NewMaterialCatalog(db *DB) *materialCatalog {
	return &materialCatalog{db: db.material}
}

// CreateMaterial seeds a material; material CRUD is owned by the lesson app.
func (c *materialCatalog) CreateMaterial(mat room.Material) room.Material {
	c.db.Lock()
	defer c.db.Unlock()

	c.db.pk++
	mat.ID = c.db.pk
	c.db.table[mat.ID] = &mat
	return mat
}

func (c *materialCatalog) GetMaterial(_ context.Context, id int) (room.Material, error) {
	c.db.RLock()
	defer c.db.RUnlock()

	if mat, ok := c.db.table[id]; ok {
		return *mat, nil
	}
	return room.Material{}, room.ErrNotFound
}

func (c *materialCatalog) TotalMaterials(_ context.Context, roomID int) (int, error) {
	c.db.RLock()
	defer c.db.RUnlock()

	var n int
	for _, mat := range c.db.table {
		if mat.RoomID == roomID {
			n++
		}
	}
	return n, nil
}
