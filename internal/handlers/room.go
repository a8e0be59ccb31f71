// internal/handlers/room.go
package handlers

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/oscarnight/server/internal/session"
)

// CreateRoomHandler creates a room plus its host participant and hands the
// caller a session cookie for the new host identity.
//
// POST /room/create {"hostName": "...", "customCode": "ABCD"?}
func CreateRoomHandler(s *Server) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			HostName   string `json:"hostName"`
			CustomCode string `json:"customCode"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "bad create request payload", http.StatusBadRequest)
			return
		}
		req.HostName = strings.TrimSpace(req.HostName)
		if req.HostName == "" {
			http.Error(w, "hostName is required", http.StatusBadRequest)
			return
		}

		res, err := s.Store.CreateRoom(r.Context(), req.HostName, req.CustomCode)
		if err != nil {
			http.Error(w, err.Error(), httpStatus(err))
			return
		}

		if err := session.Write(w, session.Session{
			ParticipantID: res.HostID,
			RoomID:        res.RoomID,
			RoomCode:      res.RoomCode,
			IsHost:        true,
			Name:          req.HostName,
		}); err != nil {
			s.Logger.Warnf("failed to write session cookie: %v", err)
			http.Error(w, "failed to establish session", http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(res)
	}
}

// JoinRoomHandler adds the caller to a room by code. When the request carries
// a session cookie for a participant of the same room, that identity is
// reused (rejoin); otherwise a fresh participant is created and a new cookie
// written.
//
// POST /room/join {"code": "7F3K", "name": "Ava"}
func JoinRoomHandler(s *Server) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Code string `json:"code"`
			Name string `json:"name"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "bad join request payload", http.StatusBadRequest)
			return
		}
		req.Name = strings.TrimSpace(req.Name)
		if req.Code == "" || req.Name == "" {
			http.Error(w, "code and name are required", http.StatusBadRequest)
			return
		}

		// A bad cookie is treated the same as no cookie: the caller joins
		// fresh rather than being locked out.
		var rejoinID *uuid.UUID
		if sess, err := session.FromRequest(r); err == nil && sess != nil {
			rejoinID = &sess.ParticipantID
		}

		res, err := s.Store.JoinRoom(r.Context(), req.Code, req.Name, rejoinID)
		if err != nil {
			http.Error(w, err.Error(), httpStatus(err))
			return
		}

		if err := session.Write(w, session.Session{
			ParticipantID: res.ParticipantID,
			RoomID:        res.RoomID,
			RoomCode:      strings.ToUpper(strings.TrimSpace(req.Code)),
			IsHost:        false,
			Name:          req.Name,
		}); err != nil {
			s.Logger.Warnf("failed to write session cookie: %v", err)
			http.Error(w, "failed to establish session", http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(res)
	}
}

// LeaveRoomHandler discards the caller's local identity. The participant row
// stays in the store so a later rejoin by code gets a fresh identity while
// the old scores remain on the board.
//
// POST /room/leave
func LeaveRoomHandler(s *Server) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		session.Clear(w)
		w.WriteHeader(http.StatusNoContent)
	}
}

// SessionHandler echoes the caller's current session, or 401 without one.
// Clients use it on page load to decide between the join screen and the room.
//
// GET /session
func SessionHandler(s *Server) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess, err := session.FromRequest(r)
		if err != nil {
			http.Error(w, "invalid session", http.StatusUnauthorized)
			return
		}
		if sess == nil {
			http.Error(w, "no session", http.StatusUnauthorized)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(sess)
	}
}

// LeaderboardHandler returns a room's current standings, resolved by code.
// It is a plain read for recap pages; live rooms get the same data pushed
// over the websocket.
//
// GET /room/leaderboard?code=7F3K
func LeaderboardHandler(s *Server) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		code := r.URL.Query().Get("code")
		if code == "" {
			http.Error(w, "code is required", http.StatusBadRequest)
			return
		}
		room, err := s.Store.GetRoomByCode(r.Context(), code)
		if err != nil {
			http.Error(w, err.Error(), httpStatus(err))
			return
		}
		entries, err := s.Store.GetLeaderboard(r.Context(), room.ID)
		if err != nil {
			http.Error(w, err.Error(), httpStatus(err))
			return
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(entries)
	}
}

// PingHandler is a trivial liveness endpoint.
func PingHandler(w http.ResponseWriter, r *http.Request) {
	w.Write([]byte("pong"))
}
