package room_test

import (
	"context"
	"io"
	"log"
	"sync"
	"testing"

	"github.com/trezcool/darasa/core"
	"github.com/trezcool/darasa/core/room"
	"github.com/trezcool/darasa/core/user"
	dummymail "github.com/trezcool/darasa/services/email/dummy"
	logsvc "github.com/trezcool/darasa/services/logger"
	dummydb "github.com/trezcool/darasa/storage/database/dummy"
)

var ctx = context.Background()

// interfaces re-declared here so the env can hold the dummy repos together
// with their seed helpers.
type (
	roomRepo interface {
		room.Repository
		CreateRoom(rm room.Room) room.Room
		CountReactions(messageID string) int
	}

	enrollDir interface {
		room.EnrollmentDirectory
		Enroll(studentID, roomID int) room.Enrollment
		GetEnrollment(studentID, roomID int) (room.Enrollment, bool)
	}

	matCatalog interface {
		room.MaterialCatalog
		CreateMaterial(mat room.Material) room.Material
	}
)

type env struct {
	repo        roomRepo
	mod         room.ModerationRepository
	completions room.CompletionRepository
	enrolls     enrollDir
	catalog     matCatalog
	usrRepo     user.Repository

	guard       *room.Guard
	modSvc      *room.ModerationService
	chatSvc     *room.Service
	progressSvc *room.ProgressService

	broadcast *broadcastRecorder
	mail      *dummymail.Service
	conf      *core.Config
}

func setup(t *testing.T) *env {
	t.Helper()

	db, err := dummydb.Open()
	if err != nil {
		t.Fatalf("setup() failed: %v", err)
	}

	conf := &core.Config{MaxMessageLength: 1000, PageSize: 50}
	logger := logsvc.NewStdLogger(log.New(io.Discard, "", 0), conf)

	e := &env{
		repo:        dummydb.NewRoomRepository(db),
		mod:         dummydb.NewModerationRepository(db),
		completions: dummydb.NewCompletionRepository(db),
		enrolls:     dummydb.NewEnrollmentDirectory(db),
		catalog:     dummydb.NewMaterialCatalog(db),
		usrRepo:     dummydb.NewUserRepository(db),
		broadcast:   &broadcastRecorder{},
		mail:        dummymail.NewService(),
		conf:        conf,
	}
	e.guard = room.NewGuard(e.repo, e.enrolls, e.mod)
	e.modSvc = room.NewModerationService(e.repo, e.mod, e.broadcast)
	e.chatSvc = room.NewService(e.repo, e.guard, e.modSvc, e.enrolls, e.broadcast, e.mail, logger, conf)
	e.progressSvc = room.NewProgressService(e.repo, e.completions, e.catalog, e.enrolls, e.broadcast, logger)
	return e
}

func (e *env) createUser(t *testing.T, name, uname string, role user.Role) user.User {
	t.Helper()
	usr, err := e.usrRepo.CreateUser(ctx, user.User{
		Name:     name,
		Username: uname,
		Email:    uname + "@test.cd",
		Role:     role,
		IsActive: true,
	})
	if err != nil {
		t.Fatalf("createUser() failed: %v", err)
	}
	return usr
}

func (e *env) createRoom(t *testing.T, name string, teacherID int) room.Room {
	t.Helper()
	return e.repo.CreateRoom(room.Room{Name: name, TeacherID: teacherID})
}

func (e *env) postMessage(t *testing.T, usr user.User, roomID int, body string) room.Message {
	t.Helper()
	msg, err := e.chatSvc.PostMessage(ctx, usr, roomID, room.NewMessage{Body: body})
	if err != nil {
		t.Fatalf("postMessage() failed: %v", err)
	}
	return msg
}

// broadcastRecorder captures fan-out calls instead of delivering them.
type (
	publishedEvent struct {
		roomID  int
		event   room.Event
		exclude int
	}

	evictCall struct {
		roomID int
		userID int
	}

	broadcastRecorder struct {
		mu        sync.Mutex
		published []publishedEvent
		evictions []evictCall
	}
)

var _ room.Broadcaster = (*broadcastRecorder)(nil)

func (b *broadcastRecorder) Publish(roomID int, event room.Event, excludeUserID int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.published = append(b.published, publishedEvent{roomID: roomID, event: event, exclude: excludeUserID})
}

func (b *broadcastRecorder) Evict(roomID, userID int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.evictions = append(b.evictions, evictCall{roomID: roomID, userID: userID})
}

func (b *broadcastRecorder) events() []publishedEvent {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]publishedEvent, len(b.published))
	copy(out, b.published)
	return out
}

func (b *broadcastRecorder) lastEvent(t *testing.T) publishedEvent {
	t.Helper()
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.published) == 0 {
		t.Fatal("lastEvent(): no event published")
	}
	return b.published[len(b.published)-1]
}

func (b *broadcastRecorder) evicted() []evictCall {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]evictCall, len(b.evictions))
	copy(out, b.evictions)
	return out
}

func (b *broadcastRecorder) reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.published = nil
	b.evictions = nil
}
