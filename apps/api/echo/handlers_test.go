package echoapi

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/trezcool/darasa/core/room"
	"github.com/trezcool/darasa/core/user"
)

func Test_authAPI_login(t *testing.T) {
	ta := setupApp(t)
	usr := ta.createUser(t, "Student", "stud", user.RoleStudent)

	inactive := ta.createUser(t, "Gone", "gone", user.RoleStudent)
	inactive.IsActive = false
	if _, err := ta.usrRepo.UpdateOrCreateUser(ctx, inactive); err != nil {
		t.Fatalf("UpdateOrCreateUser() failed: %v", err)
	}

	tests := []struct {
		name     string
		body     interface{}
		wantCode int
	}{
		{name: "ok", body: LoginRequest{Username: usr.Username, Password: "LePass123"}, wantCode: http.StatusOK},
		{name: "by email", body: LoginRequest{Username: usr.Email, Password: "LePass123"}, wantCode: http.StatusOK},
		{name: "bad password", body: LoginRequest{Username: usr.Username, Password: "nope"}, wantCode: http.StatusBadRequest},
		{name: "unknown user", body: LoginRequest{Username: "ghost", Password: "LePass123"}, wantCode: http.StatusBadRequest},
		{name: "missing fields", body: LoginRequest{}, wantCode: http.StatusBadRequest},
		{name: "deactivated", body: LoginRequest{Username: inactive.Username, Password: "LePass123"}, wantCode: http.StatusForbidden},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := ta.do(t, http.MethodPost, "/v1/auth/login", "", tt.body)
			if rec.Code != tt.wantCode {
				t.Fatalf("code = %d; want %d; body %s", rec.Code, tt.wantCode, rec.Body.String())
			}
			if tt.wantCode == http.StatusOK {
				var resp LoginResponse
				if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil || resp.Token == "" {
					t.Errorf("token missing in %s", rec.Body.String())
				}
			}
		})
	}
}

func Test_roomAPI_messages(t *testing.T) {
	ta := setupApp(t)

	teacher := ta.createUser(t, "Teacher", "teach", user.RoleTeacher)
	student := ta.createUser(t, "Student", "stud", user.RoleStudent)
	peer := ta.createUser(t, "Peer", "peer", user.RoleStudent)
	outsider := ta.createUser(t, "Outsider", "out", user.RoleStudent)
	rm := ta.repo.CreateRoom(room.Room{Name: "Algebra I", TeacherID: teacher.ID})
	ta.enrolls.Enroll(student.ID, rm.ID)
	ta.enrolls.Enroll(peer.ID, rm.ID)

	base := fmt.Sprintf("/v1/rooms/%d/messages", rm.ID)
	studentToken := ta.getToken(t, student)

	t.Run("auth required", func(t *testing.T) {
		if rec := ta.do(t, http.MethodGet, base, "", nil); rec.Code != http.StatusUnauthorized {
			t.Errorf("code = %d; want %d", rec.Code, http.StatusUnauthorized)
		}
	})

	t.Run("invalid room id", func(t *testing.T) {
		rec := ta.do(t, http.MethodGet, "/v1/rooms/abc/messages", studentToken, nil)
		if rec.Code != http.StatusBadRequest {
			t.Errorf("code = %d; want %d", rec.Code, http.StatusBadRequest)
		}
	})

	var posted room.Message
	t.Run("member can post", func(t *testing.T) {
		rec := ta.do(t, http.MethodPost, base, studentToken, room.NewMessage{Body: "hello"})
		if rec.Code != http.StatusCreated {
			t.Fatalf("code = %d; want %d; body %s", rec.Code, http.StatusCreated, rec.Body.String())
		}
		if err := json.Unmarshal(rec.Body.Bytes(), &posted); err != nil {
			t.Fatalf("unmarshal failed: %v", err)
		}
		if posted.Body != "hello" || posted.SenderID != student.ID {
			t.Errorf("posted = %+v; want body %q from %d", posted, "hello", student.ID)
		}
	})

	t.Run("non-member denied", func(t *testing.T) {
		rec := ta.do(t, http.MethodPost, base, ta.getToken(t, outsider), room.NewMessage{Body: "hi"})
		if rec.Code != http.StatusForbidden {
			t.Errorf("code = %d; want %d", rec.Code, http.StatusForbidden)
		}
	})

	t.Run("blank body rejected", func(t *testing.T) {
		rec := ta.do(t, http.MethodPost, base, studentToken, room.NewMessage{Body: "  "})
		if rec.Code != http.StatusBadRequest {
			t.Errorf("code = %d; want %d; body %s", rec.Code, http.StatusBadRequest, rec.Body.String())
		}
	})

	t.Run("history", func(t *testing.T) {
		rec := ta.do(t, http.MethodGet, base, studentToken, nil)
		if rec.Code != http.StatusOK {
			t.Fatalf("code = %d; want %d", rec.Code, http.StatusOK)
		}
		var page room.MessagePage
		if err := json.Unmarshal(rec.Body.Bytes(), &page); err != nil {
			t.Fatalf("unmarshal failed: %v", err)
		}
		if len(page.Messages) != 1 || page.HasMore {
			t.Errorf("page = %+v; want exactly the posted message", page)
		}
	})

	t.Run("delete", func(t *testing.T) {
		path := base + "/" + posted.ID
		if rec := ta.do(t, http.MethodDelete, path, ta.getToken(t, peer), nil); rec.Code != http.StatusForbidden {
			t.Errorf("peer delete code = %d; want %d", rec.Code, http.StatusForbidden)
		}
		if rec := ta.do(t, http.MethodDelete, path, studentToken, nil); rec.Code != http.StatusOK {
			t.Errorf("sender delete code = %d; want %d", rec.Code, http.StatusOK)
		}
		if rec := ta.do(t, http.MethodDelete, base+"/unknown", studentToken, nil); rec.Code != http.StatusNotFound {
			t.Errorf("unknown delete code = %d; want %d", rec.Code, http.StatusNotFound)
		}
	})
}

func Test_roomAPI_reactions_and_flags(t *testing.T) {
	ta := setupApp(t)

	teacher := ta.createUser(t, "Teacher", "teach", user.RoleTeacher)
	student := ta.createUser(t, "Student", "stud", user.RoleStudent)
	rm := ta.repo.CreateRoom(room.Room{Name: "Algebra I", TeacherID: teacher.ID})
	ta.enrolls.Enroll(student.ID, rm.ID)

	studentToken := ta.getToken(t, student)
	teacherToken := ta.getToken(t, teacher)

	rec := ta.do(t, http.MethodPost, fmt.Sprintf("/v1/rooms/%d/messages", rm.ID), teacherToken, room.NewMessage{Body: "read chapter 2"})
	if rec.Code != http.StatusCreated {
		t.Fatalf("seed message failed: %d %s", rec.Code, rec.Body.String())
	}
	var msg room.Message
	if err := json.Unmarshal(rec.Body.Bytes(), &msg); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}

	t.Run("reactions", func(t *testing.T) {
		path := fmt.Sprintf("/v1/rooms/%d/messages/%s/reactions", rm.ID, msg.ID)
		if rec := ta.do(t, http.MethodPost, path, studentToken, map[string]string{"emoji": "🎉"}); rec.Code != http.StatusNoContent {
			t.Errorf("react code = %d; want %d; body %s", rec.Code, http.StatusNoContent, rec.Body.String())
		}
		if rec := ta.do(t, http.MethodPost, path, studentToken, map[string]string{}); rec.Code != http.StatusBadRequest {
			t.Errorf("react without emoji code = %d; want %d", rec.Code, http.StatusBadRequest)
		}
		if rec := ta.do(t, http.MethodDelete, path+"/🎉", studentToken, nil); rec.Code != http.StatusNoContent {
			t.Errorf("unreact code = %d; want %d", rec.Code, http.StatusNoContent)
		}
	})

	t.Run("flag lifecycle", func(t *testing.T) {
		rec := ta.do(t, http.MethodPost, fmt.Sprintf("/v1/rooms/%d/messages/%s/flags", rm.ID, msg.ID), studentToken, room.NewFlag{Reason: "off topic"})
		if rec.Code != http.StatusCreated {
			t.Fatalf("flag code = %d; want %d; body %s", rec.Code, http.StatusCreated, rec.Body.String())
		}
		var f room.Flag
		if err := json.Unmarshal(rec.Body.Bytes(), &f); err != nil {
			t.Fatalf("unmarshal failed: %v", err)
		}

		queue := fmt.Sprintf("/v1/rooms/%d/flags", rm.ID)
		if rec := ta.do(t, http.MethodGet, queue, studentToken, nil); rec.Code != http.StatusForbidden {
			t.Errorf("student queue code = %d; want %d", rec.Code, http.StatusForbidden)
		}
		if rec := ta.do(t, http.MethodGet, queue, teacherToken, nil); rec.Code != http.StatusOK {
			t.Errorf("teacher queue code = %d; want %d", rec.Code, http.StatusOK)
		}

		review := fmt.Sprintf("/v1/flags/%d", f.ID)
		if rec := ta.do(t, http.MethodPut, review, teacherToken, map[string]string{"status": "archived"}); rec.Code != http.StatusBadRequest {
			t.Errorf("bad status code = %d; want %d", rec.Code, http.StatusBadRequest)
		}
		if rec := ta.do(t, http.MethodPut, review, teacherToken, map[string]string{"status": "dismissed"}); rec.Code != http.StatusOK {
			t.Errorf("review code = %d; want %d; body %s", rec.Code, http.StatusOK, rec.Body.String())
		}
		if rec := ta.do(t, http.MethodPut, review, teacherToken, map[string]string{"status": "reviewed"}); rec.Code != http.StatusConflict {
			t.Errorf("re-review code = %d; want %d", rec.Code, http.StatusConflict)
		}
	})
}

func Test_roomAPI_moderation(t *testing.T) {
	ta := setupApp(t)

	teacher := ta.createUser(t, "Teacher", "teach", user.RoleTeacher)
	student := ta.createUser(t, "Student", "stud", user.RoleStudent)
	rm := ta.repo.CreateRoom(room.Room{Name: "Algebra I", TeacherID: teacher.ID})
	ta.enrolls.Enroll(student.ID, rm.ID)

	studentToken := ta.getToken(t, student)
	teacherToken := ta.getToken(t, teacher)
	messages := fmt.Sprintf("/v1/rooms/%d/messages", rm.ID)
	mutes := fmt.Sprintf("/v1/rooms/%d/mutes", rm.ID)
	bans := fmt.Sprintf("/v1/rooms/%d/bans", rm.ID)

	t.Run("mute blocks posting only", func(t *testing.T) {
		if rec := ta.do(t, http.MethodPost, mutes, studentToken, room.NewModerationAction{UserID: teacher.ID}); rec.Code != http.StatusForbidden {
			t.Errorf("student mute code = %d; want %d", rec.Code, http.StatusForbidden)
		}
		if rec := ta.do(t, http.MethodPost, mutes, teacherToken, room.NewModerationAction{UserID: student.ID}); rec.Code != http.StatusCreated {
			t.Fatalf("mute code = %d; want %d; body %s", rec.Code, http.StatusCreated, rec.Body.String())
		}

		if rec := ta.do(t, http.MethodPost, messages, studentToken, room.NewMessage{Body: "hello?"}); rec.Code != http.StatusForbidden {
			t.Errorf("muted post code = %d; want %d", rec.Code, http.StatusForbidden)
		}
		if rec := ta.do(t, http.MethodGet, messages, studentToken, nil); rec.Code != http.StatusOK {
			t.Errorf("muted read code = %d; want %d", rec.Code, http.StatusOK)
		}

		if rec := ta.do(t, http.MethodDelete, fmt.Sprintf("%s/%d", mutes, student.ID), teacherToken, nil); rec.Code != http.StatusNoContent {
			t.Errorf("unmute code = %d; want %d", rec.Code, http.StatusNoContent)
		}
		if rec := ta.do(t, http.MethodPost, messages, studentToken, room.NewMessage{Body: "hello!"}); rec.Code != http.StatusCreated {
			t.Errorf("post after unmute code = %d; want %d", rec.Code, http.StatusCreated)
		}
	})

	t.Run("ban blocks access", func(t *testing.T) {
		if rec := ta.do(t, http.MethodPost, bans, teacherToken, room.NewModerationAction{UserID: teacher.ID}); rec.Code != http.StatusForbidden {
			t.Errorf("self ban code = %d; want %d", rec.Code, http.StatusForbidden)
		}
		if rec := ta.do(t, http.MethodPost, bans, teacherToken, room.NewModerationAction{UserID: student.ID, Reason: "disruptive"}); rec.Code != http.StatusCreated {
			t.Fatalf("ban code = %d; want %d; body %s", rec.Code, http.StatusCreated, rec.Body.String())
		}
		if rec := ta.do(t, http.MethodGet, messages, studentToken, nil); rec.Code != http.StatusForbidden {
			t.Errorf("banned read code = %d; want %d", rec.Code, http.StatusForbidden)
		}
		if rec := ta.do(t, http.MethodDelete, fmt.Sprintf("%s/%d", bans, student.ID), teacherToken, nil); rec.Code != http.StatusNoContent {
			t.Errorf("unban code = %d; want %d", rec.Code, http.StatusNoContent)
		}
		if rec := ta.do(t, http.MethodGet, messages, studentToken, nil); rec.Code != http.StatusOK {
			t.Errorf("read after unban code = %d; want %d", rec.Code, http.StatusOK)
		}
	})
}

func Test_roomAPI_progress(t *testing.T) {
	ta := setupApp(t)

	teacher := ta.createUser(t, "Teacher", "teach", user.RoleTeacher)
	student := ta.createUser(t, "Student", "stud", user.RoleStudent)
	outsider := ta.createUser(t, "Outsider", "out", user.RoleStudent)
	rm := ta.repo.CreateRoom(room.Room{Name: "Algebra I", TeacherID: teacher.ID})
	ta.enrolls.Enroll(student.ID, rm.ID)
	mat1 := ta.catalog.CreateMaterial(room.Material{RoomID: rm.ID, Title: "Chapter 1"})
	ta.catalog.CreateMaterial(room.Material{RoomID: rm.ID, Title: "Chapter 2"})

	studentToken := ta.getToken(t, student)
	toggle := fmt.Sprintf("/v1/rooms/%d/materials/%d/toggle", rm.ID, mat1.ID)

	rec := ta.do(t, http.MethodPost, toggle, studentToken, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("toggle code = %d; want %d; body %s", rec.Code, http.StatusOK, rec.Body.String())
	}
	var res room.ProgressResult
	if err := json.Unmarshal(rec.Body.Bytes(), &res); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}
	if !res.IsCompleted || res.ProgressPercentage != 50 || res.TotalMaterials != 2 {
		t.Errorf("result = %+v; want completed at 50%%", res)
	}

	if rec := ta.do(t, http.MethodPost, toggle, ta.getToken(t, outsider), nil); rec.Code != http.StatusForbidden {
		t.Errorf("outsider toggle code = %d; want %d", rec.Code, http.StatusForbidden)
	}
	unknown := fmt.Sprintf("/v1/rooms/%d/materials/999/toggle", rm.ID)
	if rec := ta.do(t, http.MethodPost, unknown, studentToken, nil); rec.Code != http.StatusNotFound {
		t.Errorf("unknown material code = %d; want %d", rec.Code, http.StatusNotFound)
	}
}

func Test_roomAPI_signals(t *testing.T) {
	ta := setupApp(t)

	teacher := ta.createUser(t, "Teacher", "teach", user.RoleTeacher)
	student := ta.createUser(t, "Student", "stud", user.RoleStudent)
	rm := ta.repo.CreateRoom(room.Room{Name: "Algebra I", TeacherID: teacher.ID})
	ta.enrolls.Enroll(student.ID, rm.ID)
	studentToken := ta.getToken(t, student)

	if rec := ta.do(t, http.MethodPost, fmt.Sprintf("/v1/rooms/%d/typing", rm.ID), studentToken, room.TypingSignal{IsTyping: true}); rec.Code != http.StatusNoContent {
		t.Errorf("typing code = %d; want %d", rec.Code, http.StatusNoContent)
	}
	if rec := ta.do(t, http.MethodPost, fmt.Sprintf("/v1/rooms/%d/hand", rm.ID), studentToken, nil); rec.Code != http.StatusNoContent {
		t.Errorf("hand code = %d; want %d", rec.Code, http.StatusNoContent)
	}

	rec := ta.do(t, http.MethodGet, fmt.Sprintf("/v1/rooms/%d/online", rm.ID), studentToken, nil)
	if rec.Code != http.StatusOK {
		t.Errorf("online code = %d; want %d", rec.Code, http.StatusOK)
	}
	if body := strings.TrimSpace(rec.Body.String()); body != "[]" {
		t.Errorf("online body = %q; want empty list", body)
	}
}

func Test_roomAPI_websocket(t *testing.T) {
	ta := setupApp(t)

	teacher := ta.createUser(t, "Teacher", "teach", user.RoleTeacher)
	student := ta.createUser(t, "Student", "stud", user.RoleStudent)
	outsider := ta.createUser(t, "Outsider", "out", user.RoleStudent)
	rm := ta.repo.CreateRoom(room.Room{Name: "Algebra I", TeacherID: teacher.ID})
	ta.enrolls.Enroll(student.ID, rm.ID)

	srv := httptest.NewServer(ta.app)
	defer srv.Close()
	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + fmt.Sprintf("/v1/rooms/%d/ws", rm.ID)

	t.Run("non-member cannot subscribe", func(t *testing.T) {
		header := http.Header{"Authorization": {"Bearer " + ta.getToken(t, outsider)}}
		if _, resp, err := websocket.DefaultDialer.Dial(wsURL, header); err == nil {
			t.Error("dial should be rejected")
		} else if resp == nil || resp.StatusCode != http.StatusForbidden {
			t.Errorf("resp = %+v; want %d", resp, http.StatusForbidden)
		}
	})

	t.Run("subscriber receives room events", func(t *testing.T) {
		header := http.Header{"Authorization": {"Bearer " + ta.getToken(t, student)}}
		ws, _, err := websocket.DefaultDialer.Dial(wsURL, header)
		if err != nil {
			t.Fatalf("dial failed: %v", err)
		}
		defer ws.Close()

		rec := ta.do(t, http.MethodPost, fmt.Sprintf("/v1/rooms/%d/messages", rm.ID), ta.getToken(t, teacher), room.NewMessage{Body: "welcome"})
		if rec.Code != http.StatusCreated {
			t.Fatalf("post code = %d; body %s", rec.Code, rec.Body.String())
		}

		_ = ws.SetReadDeadline(time.Now().Add(2 * time.Second))
		var frame struct {
			Event string          `json:"event"`
			Data  json.RawMessage `json:"data"`
		}
		if err = ws.ReadJSON(&frame); err != nil {
			t.Fatalf("ReadJSON() failed: %v", err)
		}
		if frame.Event != "message.sent" {
			t.Errorf("event = %q; want %q", frame.Event, "message.sent")
		}
	})

	t.Run("ban evicts the subscriber", func(t *testing.T) {
		header := http.Header{"Authorization": {"Bearer " + ta.getToken(t, student)}}
		ws, _, err := websocket.DefaultDialer.Dial(wsURL, header)
		if err != nil {
			t.Fatalf("dial failed: %v", err)
		}
		defer ws.Close()

		rec := ta.do(t, http.MethodPost, fmt.Sprintf("/v1/rooms/%d/bans", rm.ID), ta.getToken(t, teacher), room.NewModerationAction{UserID: student.ID})
		if rec.Code != http.StatusCreated {
			t.Fatalf("ban code = %d; body %s", rec.Code, rec.Body.String())
		}

		_ = ws.SetReadDeadline(time.Now().Add(2 * time.Second))
		if _, _, err = ws.ReadMessage(); err == nil {
			t.Error("evicted socket should be closed")
		}
	})
}
