package echoapi

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/trezcool/darasa/core"
	"github.com/trezcool/darasa/core/room"
	"github.com/trezcool/darasa/core/user"
	dummymail "github.com/trezcool/darasa/services/email/dummy"
	logsvc "github.com/trezcool/darasa/services/logger"
	"github.com/trezcool/darasa/services/realtime"
	dummydb "github.com/trezcool/darasa/storage/database/dummy"
)

var ctx = context.Background()

type testApp struct {
	app  Server
	conf *core.Config
	hub  *realtime.Hub

	usrRepo user.Repository
	repo    interface {
		room.Repository
		CreateRoom(rm room.Room) room.Room
	}
	enrolls interface {
		room.EnrollmentDirectory
		Enroll(studentID, roomID int) room.Enrollment
	}
	catalog interface {
		room.MaterialCatalog
		CreateMaterial(mat room.Material) room.Material
	}
	modSvc *room.ModerationService
}

func setupApp(t *testing.T) *testApp {
	t.Helper()

	db, err := dummydb.Open()
	if err != nil {
		t.Fatalf("setupApp() failed: %v", err)
	}

	conf := &core.Config{
		TestMode:           true,
		AppName:            "Darasa",
		SecretKey:          "secret",
		JWTExpirationDelta: 10 * time.Minute,
		MaxMessageLength:   1000,
		PageSize:           50,
	}
	logger := logsvc.NewStdLogger(log.New(io.Discard, "", 0), conf)

	repo := dummydb.NewRoomRepository(db)
	modRepo := dummydb.NewModerationRepository(db)
	completions := dummydb.NewCompletionRepository(db)
	enrolls := dummydb.NewEnrollmentDirectory(db)
	catalog := dummydb.NewMaterialCatalog(db)
	usrRepo := dummydb.NewUserRepository(db)

	hub := realtime.NewHub(logger)
	guard := room.NewGuard(repo, enrolls, modRepo)
	modSvc := room.NewModerationService(repo, modRepo, hub)
	usrSvc := user.NewService(usrRepo)
	chatSvc := room.NewService(repo, guard, modSvc, enrolls, hub, dummymail.NewService(), logger, conf)
	progressSvc := room.NewProgressService(repo, completions, catalog, enrolls, hub, logger)

	app := NewServer(&Options{
		Addr:           ":0",
		DisableReqLogs: true,
		Conf:           conf,
		Logger:         logger,
		UserSvc:        usrSvc,
		ChatSvc:        chatSvc,
		ModSvc:         modSvc,
		ProgressSvc:    progressSvc,
		Guard:          guard,
		Hub:            hub,
	})

	return &testApp{
		app:     app,
		conf:    conf,
		hub:     hub,
		usrRepo: usrRepo,
		repo:    repo,
		enrolls: enrolls,
		catalog: catalog,
		modSvc:  modSvc,
	}
}

func (ta *testApp) createUser(t *testing.T, name, uname string, role user.Role) user.User {
	t.Helper()
	usr := user.User{Name: name, Username: uname, Email: uname + "@test.cd", Role: role, IsActive: true}
	if err := usr.SetPassword("LePass123"); err != nil {
		t.Fatalf("createUser() failed: %v", err)
	}
	usr, err := ta.usrRepo.CreateUser(ctx, usr)
	if err != nil {
		t.Fatalf("createUser() failed: %v", err)
	}
	return usr
}

func (ta *testApp) getToken(t *testing.T, usr user.User) string {
	t.Helper()
	token, err := generateToken(ta.conf, getUserClaims(ta.conf, usr))
	if err != nil {
		t.Fatalf("getToken() failed: %v", err)
	}
	return token
}

func (ta *testApp) do(t *testing.T, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("do() encode failed: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	ta.app.ServeHTTP(rec, req)
	return rec
}
