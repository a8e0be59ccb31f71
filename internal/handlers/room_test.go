// internal/handlers/room_test.go
package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/oscarnight/server/internal/database"
	"github.com/oscarnight/server/internal/models"
	"github.com/oscarnight/server/internal/session"
)

// fakeStore delegates to function fields so each test supplies only what it
// needs; an unset field means the handler under test must not reach it.
type fakeStore struct {
	createRoomFn     func(ctx context.Context, hostName, customCode string) (*database.CreateRoomResult, error)
	joinRoomFn       func(ctx context.Context, code, name string, rejoinID *uuid.UUID) (*database.JoinRoomResult, error)
	getRoomByCodeFn  func(ctx context.Context, code string) (*models.Room, error)
	getLeaderboardFn func(ctx context.Context, roomID uuid.UUID) ([]models.LeaderboardEntry, error)
}

func (f *fakeStore) CreateRoom(ctx context.Context, hostName, customCode string) (*database.CreateRoomResult, error) {
	return f.createRoomFn(ctx, hostName, customCode)
}

func (f *fakeStore) JoinRoom(ctx context.Context, code, name string, rejoinID *uuid.UUID) (*database.JoinRoomResult, error) {
	return f.joinRoomFn(ctx, code, name, rejoinID)
}

func (f *fakeStore) GetRoomByCode(ctx context.Context, code string) (*models.Room, error) {
	return f.getRoomByCodeFn(ctx, code)
}

func (f *fakeStore) GetLeaderboard(ctx context.Context, roomID uuid.UUID) ([]models.LeaderboardEntry, error) {
	return f.getLeaderboardFn(ctx, roomID)
}

func (f *fakeStore) GetRoom(ctx context.Context, roomID uuid.UUID) (*models.Room, error) {
	return nil, models.ErrRoomNotFound
}

func (f *fakeStore) GetParticipants(ctx context.Context, roomID uuid.UUID) ([]models.Participant, error) {
	return nil, nil
}

func (f *fakeStore) GetRoomPredictions(ctx context.Context, roomID uuid.UUID) ([]models.Prediction, error) {
	return nil, nil
}

func (f *fakeStore) GetWinners(ctx context.Context, roomID uuid.UUID) ([]models.Winner, error) {
	return nil, nil
}

func (f *fakeStore) SavePrediction(ctx context.Context, participantID, roomID uuid.UUID, categoryID, nomineeID string) error {
	return nil
}

func (f *fakeStore) AdvancePhase(ctx context.Context, roomID, actorID uuid.UUID, to models.Phase) error {
	return nil
}

func (f *fakeStore) DeclareWinner(ctx context.Context, roomID, actorID uuid.UUID, categoryID, nomineeID string) error {
	return nil
}

func (f *fakeStore) SetCurrentCategory(ctx context.Context, roomID, actorID uuid.UUID, categoryID *string) error {
	return nil
}

func testServer(store Store) *Server {
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)
	return NewServer(store, nil, logger)
}

func sessionCookie(w *httptest.ResponseRecorder) *http.Cookie {
	for _, c := range w.Result().Cookies() {
		if c.Name == session.CookieName {
			return c
		}
	}
	return nil
}

func TestCreateRoomHandler(t *testing.T) {
	session.Init()

	roomID := uuid.New()
	hostID := uuid.New()
	fs := &fakeStore{
		createRoomFn: func(ctx context.Context, hostName, customCode string) (*database.CreateRoomResult, error) {
			if hostName != "Marco" {
				t.Fatalf("unexpected host name %q", hostName)
			}
			return &database.CreateRoomResult{RoomID: roomID, RoomCode: "7F3K", HostID: hostID}, nil
		},
	}

	req := httptest.NewRequest("POST", "/room/create", bytes.NewBufferString(`{"hostName":"Marco"}`))
	w := httptest.NewRecorder()
	CreateRoomHandler(testServer(fs)).ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 OK, got %d: %s", w.Code, w.Body.String())
	}

	var res database.CreateRoomResult
	if err := json.Unmarshal(w.Body.Bytes(), &res); err != nil {
		t.Fatalf("failed to decode result: %v", err)
	}
	if res.RoomCode != "7F3K" || res.HostID != hostID {
		t.Fatalf("unexpected result %+v", res)
	}

	cookie := sessionCookie(w)
	if cookie == nil {
		t.Fatal("no session cookie set")
	}
	sess, err := session.ParseToken(cookie.Value)
	if err != nil {
		t.Fatalf("session cookie does not parse: %v", err)
	}
	if sess.ParticipantID != hostID || !sess.IsHost || sess.RoomCode != "7F3K" {
		t.Fatalf("unexpected session %+v", sess)
	}
}

func TestCreateRoomHandlerCodeTaken(t *testing.T) {
	session.Init()
	fs := &fakeStore{
		createRoomFn: func(ctx context.Context, hostName, customCode string) (*database.CreateRoomResult, error) {
			return nil, models.ErrCodeTaken
		},
	}

	req := httptest.NewRequest("POST", "/room/create", bytes.NewBufferString(`{"hostName":"Marco","customCode":"OSCR"}`))
	w := httptest.NewRecorder()
	CreateRoomHandler(testServer(fs)).ServeHTTP(w, req)

	if w.Code != http.StatusConflict {
		t.Fatalf("expected 409 Conflict, got %d", w.Code)
	}
}

func TestCreateRoomHandlerMissingName(t *testing.T) {
	fs := &fakeStore{
		createRoomFn: func(ctx context.Context, hostName, customCode string) (*database.CreateRoomResult, error) {
			t.Fatal("store must not be reached without a host name")
			return nil, nil
		},
	}

	req := httptest.NewRequest("POST", "/room/create", bytes.NewBufferString(`{"hostName":"  "}`))
	w := httptest.NewRecorder()
	CreateRoomHandler(testServer(fs)).ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 Bad Request, got %d", w.Code)
	}
}

func TestJoinRoomHandlerFresh(t *testing.T) {
	session.Init()

	roomID := uuid.New()
	participantID := uuid.New()
	fs := &fakeStore{
		joinRoomFn: func(ctx context.Context, code, name string, rejoinID *uuid.UUID) (*database.JoinRoomResult, error) {
			if rejoinID != nil {
				t.Fatalf("fresh join must not carry a rejoin id, got %v", rejoinID)
			}
			return &database.JoinRoomResult{
				RoomID:        roomID,
				ParticipantID: participantID,
				Phase:         models.PhaseVoting,
				IsRejoin:      false,
			}, nil
		},
	}

	req := httptest.NewRequest("POST", "/room/join", bytes.NewBufferString(`{"code":"7f3k","name":"Ava"}`))
	w := httptest.NewRecorder()
	JoinRoomHandler(testServer(fs)).ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 OK, got %d: %s", w.Code, w.Body.String())
	}

	cookie := sessionCookie(w)
	if cookie == nil {
		t.Fatal("no session cookie set")
	}
	sess, err := session.ParseToken(cookie.Value)
	if err != nil {
		t.Fatalf("session cookie does not parse: %v", err)
	}
	if sess.ParticipantID != participantID || sess.IsHost {
		t.Fatalf("unexpected session %+v", sess)
	}
	if sess.RoomCode != "7F3K" {
		t.Fatalf("room code not normalized in session: %q", sess.RoomCode)
	}
}

func TestJoinRoomHandlerRejoin(t *testing.T) {
	session.Init()

	roomID := uuid.New()
	participantID := uuid.New()
	fs := &fakeStore{
		joinRoomFn: func(ctx context.Context, code, name string, rejoinID *uuid.UUID) (*database.JoinRoomResult, error) {
			if rejoinID == nil || *rejoinID != participantID {
				t.Fatalf("expected rejoin id %v, got %v", participantID, rejoinID)
			}
			return &database.JoinRoomResult{
				RoomID:        roomID,
				ParticipantID: participantID,
				Phase:         models.PhaseLive,
				IsRejoin:      true,
			}, nil
		},
	}

	token, err := session.CreateToken(session.Session{
		ParticipantID: participantID,
		RoomID:        roomID,
		RoomCode:      "7F3K",
		Name:          "Ava",
	})
	if err != nil {
		t.Fatalf("failed to mint token: %v", err)
	}

	req := httptest.NewRequest("POST", "/room/join", bytes.NewBufferString(`{"code":"7F3K","name":"Ava"}`))
	req.AddCookie(&http.Cookie{Name: session.CookieName, Value: token})
	w := httptest.NewRecorder()
	JoinRoomHandler(testServer(fs)).ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 OK, got %d: %s", w.Code, w.Body.String())
	}
	var res database.JoinRoomResult
	if err := json.Unmarshal(w.Body.Bytes(), &res); err != nil {
		t.Fatalf("failed to decode result: %v", err)
	}
	if !res.IsRejoin {
		t.Fatal("expected a rejoin")
	}
}

func TestJoinRoomHandlerRoomNotFound(t *testing.T) {
	session.Init()
	fs := &fakeStore{
		joinRoomFn: func(ctx context.Context, code, name string, rejoinID *uuid.UUID) (*database.JoinRoomResult, error) {
			return nil, models.ErrRoomNotFound
		},
	}

	req := httptest.NewRequest("POST", "/room/join", bytes.NewBufferString(`{"code":"ZZZZ","name":"Ava"}`))
	w := httptest.NewRecorder()
	JoinRoomHandler(testServer(fs)).ServeHTTP(w, req)

	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404 Not Found, got %d", w.Code)
	}
}

func TestLeaveRoomHandler(t *testing.T) {
	req := httptest.NewRequest("POST", "/room/leave", nil)
	w := httptest.NewRecorder()
	LeaveRoomHandler(testServer(&fakeStore{})).ServeHTTP(w, req)

	if w.Code != http.StatusNoContent {
		t.Fatalf("expected 204 No Content, got %d", w.Code)
	}
	cookie := sessionCookie(w)
	if cookie == nil {
		t.Fatal("expected an expiring session cookie")
	}
	if cookie.MaxAge >= 0 || cookie.Value != "" {
		t.Fatalf("cookie not expired: %+v", cookie)
	}
}

func TestSessionHandler(t *testing.T) {
	session.Init()
	srv := testServer(&fakeStore{})

	req := httptest.NewRequest("GET", "/session", nil)
	w := httptest.NewRecorder()
	SessionHandler(srv).ServeHTTP(w, req)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without cookie, got %d", w.Code)
	}

	want := session.Session{ParticipantID: uuid.New(), RoomID: uuid.New(), RoomCode: "7F3K", Name: "Ava"}
	token, err := session.CreateToken(want)
	if err != nil {
		t.Fatalf("failed to mint token: %v", err)
	}
	req = httptest.NewRequest("GET", "/session", nil)
	req.AddCookie(&http.Cookie{Name: session.CookieName, Value: token})
	w = httptest.NewRecorder()
	SessionHandler(srv).ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 OK, got %d", w.Code)
	}
	var got session.Session
	if err := json.Unmarshal(w.Body.Bytes(), &got); err != nil {
		t.Fatalf("failed to decode session: %v", err)
	}
	if got != want {
		t.Fatalf("session mismatch: got %+v want %+v", got, want)
	}
}

func TestLeaderboardHandler(t *testing.T) {
	roomID := uuid.New()
	avaID := uuid.New()
	fs := &fakeStore{
		getRoomByCodeFn: func(ctx context.Context, code string) (*models.Room, error) {
			if code != "7F3K" {
				return nil, models.ErrRoomNotFound
			}
			return &models.Room{ID: roomID, Code: "7F3K", Phase: models.PhaseClosed}, nil
		},
		getLeaderboardFn: func(ctx context.Context, id uuid.UUID) ([]models.LeaderboardEntry, error) {
			if id != roomID {
				t.Fatalf("unexpected room id %v", id)
			}
			return []models.LeaderboardEntry{
				{ParticipantID: avaID, Name: "Ava", PredictionsCount: 20, Score: 14},
			}, nil
		},
	}
	srv := testServer(fs)

	req := httptest.NewRequest("GET", "/room/leaderboard?code=7F3K", nil)
	w := httptest.NewRecorder()
	LeaderboardHandler(srv).ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 OK, got %d: %s", w.Code, w.Body.String())
	}
	var entries []models.LeaderboardEntry
	if err := json.Unmarshal(w.Body.Bytes(), &entries); err != nil {
		t.Fatalf("failed to decode entries: %v", err)
	}
	if len(entries) != 1 || entries[0].Score != 14 {
		t.Fatalf("unexpected entries %+v", entries)
	}

	req = httptest.NewRequest("GET", "/room/leaderboard?code=ZZZZ", nil)
	w = httptest.NewRecorder()
	LeaderboardHandler(srv).ServeHTTP(w, req)
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown code, got %d", w.Code)
	}

	req = httptest.NewRequest("GET", "/room/leaderboard", nil)
	w = httptest.NewRecorder()
	LeaderboardHandler(srv).ServeHTTP(w, req)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 without code, got %d", w.Code)
	}
}
