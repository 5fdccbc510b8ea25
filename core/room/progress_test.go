package room_test

import (
	"errors"
	"sync"
	"testing"

	"github.com/trezcool/darasa/core/room"
	"github.com/trezcool/darasa/core/user"
)

func Test_ProgressService_ToggleCompletion(t *testing.T) {
	e := setup(t)

	teacher := e.createUser(t, "Teacher", "teach", user.RoleTeacher)
	student := e.createUser(t, "Student", "stud", user.RoleStudent)
	outsider := e.createUser(t, "Outsider", "out", user.RoleStudent)
	rm := e.createRoom(t, "Algebra I", teacher.ID)
	e.enrolls.Enroll(student.ID, rm.ID)

	mats := make([]room.Material, 4)
	for i := range mats {
		mats[i] = e.catalog.CreateMaterial(room.Material{RoomID: rm.ID, Title: "Chapter"})
	}
	otherRoom := e.createRoom(t, "Algebra II", teacher.ID)
	foreignMat := e.catalog.CreateMaterial(room.Material{RoomID: otherRoom.ID, Title: "Elsewhere"})

	t.Run("requires enrollment", func(t *testing.T) {
		if _, err := e.progressSvc.ToggleCompletion(ctx, outsider, rm.ID, mats[0].ID); !errors.Is(err, room.ErrNotEnrolled) {
			t.Errorf("ToggleCompletion() err = %v; want %v", err, room.ErrNotEnrolled)
		}
	})

	t.Run("material must belong to the room", func(t *testing.T) {
		if _, err := e.progressSvc.ToggleCompletion(ctx, student, rm.ID, foreignMat.ID); !errors.Is(err, room.ErrNotFound) {
			t.Errorf("ToggleCompletion() err = %v; want %v", err, room.ErrNotFound)
		}
	})

	t.Run("percentage follows completions", func(t *testing.T) {
		steps := []struct {
			materialID    int
			wantCompleted bool
			wantPct       int
			wantCount     int
		}{
			{mats[0].ID, true, 25, 1},
			{mats[1].ID, true, 50, 2},
			{mats[2].ID, true, 75, 3},
			{mats[2].ID, false, 50, 2}, // toggle is its own inverse
			{mats[2].ID, true, 75, 3},
			{mats[3].ID, true, 100, 4},
		}
		for i, step := range steps {
			e.broadcast.reset()

			res, err := e.progressSvc.ToggleCompletion(ctx, student, rm.ID, step.materialID)
			if err != nil {
				t.Fatalf("step %d: ToggleCompletion() failed: %v", i, err)
			}
			if res.IsCompleted != step.wantCompleted || res.ProgressPercentage != step.wantPct || res.CompletedMaterials != step.wantCount {
				t.Errorf("step %d: result = %+v; want completed=%v pct=%d count=%d",
					i, res, step.wantCompleted, step.wantPct, step.wantCount)
			}
			if res.TotalMaterials != len(mats) {
				t.Errorf("step %d: TotalMaterials = %d; want %d", i, res.TotalMaterials, len(mats))
			}

			// cached enrollment percentage moves with the recompute
			enr, ok := e.enrolls.GetEnrollment(student.ID, rm.ID)
			if !ok {
				t.Fatalf("step %d: enrollment not found", i)
			}
			if enr.ProgressPercentage != step.wantPct {
				t.Errorf("step %d: enrollment pct = %d; want %d", i, enr.ProgressPercentage, step.wantPct)
			}
			if (enr.CompletedAt != nil) != (step.wantPct == 100) {
				t.Errorf("step %d: CompletedAt = %v; want set iff 100%%", i, enr.CompletedAt)
			}

			// broadcast to the whole room, the acting student included
			ev := e.broadcast.lastEvent(t)
			if ev.exclude != 0 {
				t.Errorf("step %d: exclude = %d; want 0 (deliver to all)", i, ev.exclude)
			}
			upd, ok := ev.event.(room.ProgressUpdated)
			if !ok {
				t.Fatalf("step %d: event = %T; want room.ProgressUpdated", i, ev.event)
			}
			if upd.ProgressPercentage != step.wantPct || upd.IsCompleted != step.wantCompleted || upd.Student != student.Ref() {
				t.Errorf("step %d: event = %+v; want pct=%d completed=%v", i, upd, step.wantPct, step.wantCompleted)
			}
		}
	})
}

func Test_ProgressService_ToggleCompletion_noMaterials(t *testing.T) {
	e := setup(t)

	teacher := e.createUser(t, "Teacher", "teach", user.RoleTeacher)
	student := e.createUser(t, "Student", "stud", user.RoleStudent)
	rm := e.createRoom(t, "Empty", teacher.ID)
	e.enrolls.Enroll(student.ID, rm.ID)

	// no material to toggle, so the only reachable path is the lookup failure
	if _, err := e.progressSvc.ToggleCompletion(ctx, student, rm.ID, 999); !errors.Is(err, room.ErrNotFound) {
		t.Errorf("ToggleCompletion() err = %v; want %v", err, room.ErrNotFound)
	}
}

func Test_ProgressService_ToggleCompletion_concurrent(t *testing.T) {
	e := setup(t)

	teacher := e.createUser(t, "Teacher", "teach", user.RoleTeacher)
	student := e.createUser(t, "Student", "stud", user.RoleStudent)
	rm := e.createRoom(t, "Algebra I", teacher.ID)
	e.enrolls.Enroll(student.ID, rm.ID)
	mat := e.catalog.CreateMaterial(room.Material{RoomID: rm.ID, Title: "Chapter 1"})

	const n = 16
	var wg sync.WaitGroup
	errs := make(chan error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := e.progressSvc.ToggleCompletion(ctx, student, rm.ID, mat.ID); err != nil {
				errs <- err
			}
		}()
	}
	wg.Wait()
	close(errs)

	// the uniqueness constraint must never surface as an error
	for err := range errs {
		t.Errorf("concurrent ToggleCompletion() failed: %v", err)
	}

	// at most one completion row may remain, and the cached percentage must
	// agree with it
	count, err := e.completions.CountCompletions(ctx, student.ID, rm.ID)
	if err != nil {
		t.Fatalf("CountCompletions() failed: %v", err)
	}
	if count > 1 {
		t.Errorf("CountCompletions() = %d; want at most 1", count)
	}

	res, err := e.progressSvc.ToggleCompletion(ctx, student, rm.ID, mat.ID)
	if err != nil {
		t.Fatalf("final ToggleCompletion() failed: %v", err)
	}
	if res.ProgressPercentage != 0 && res.ProgressPercentage != 100 {
		t.Errorf("ProgressPercentage = %d; want 0 or 100", res.ProgressPercentage)
	}
}
