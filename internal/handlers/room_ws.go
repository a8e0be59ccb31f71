// internal/handlers/room_ws.go
package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/coder/websocket"
	"github.com/sirupsen/logrus"

	"github.com/oscarnight/server/internal/middleware"
	"github.com/oscarnight/server/internal/models"
	"github.com/oscarnight/server/internal/roomsync"
	"github.com/oscarnight/server/internal/session"
)

// Application close codes on top of the standard websocket set.
const (
	BadSubprotocolError websocket.StatusCode = 4001
	UnknownRoomError    websocket.StatusCode = 4004
)

// RoomWSHandler serves the live room connection at /room/ws/{code}. A caller
// with a session cookie gets their participant identity attached; one
// without is a read-only spectator who still receives every state push.
func RoomWSHandler(logger *logrus.Logger, s *Server) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		remoteAddr := r.RemoteAddr
		code := strings.Trim(strings.TrimPrefix(r.URL.Path, "/room/ws/"), "/")
		if code == "" {
			http.Error(w, "missing room code", http.StatusBadRequest)
			return
		}

		// The cookie is read before the upgrade; a bad token degrades to
		// spectator rather than failing the handshake.
		sess, err := session.FromRequest(r)
		if err != nil {
			logger.Warnf("ignoring invalid session cookie from %s: %v", remoteAddr, err)
			sess = nil
		}

		c, err := websocket.Accept(w, r, &websocket.AcceptOptions{
			Subprotocols:   []string{"ballot"},
			OriginPatterns: []string{"*"}, // Adjust in production
		})
		if err != nil {
			logger.Warnf("websocket accept error: %v", err)
			return
		}
		defer c.Close(websocket.StatusInternalError, "handler finished")

		if c.Subprotocol() != "ballot" {
			c.Close(BadSubprotocolError, "client must speak the ballot subprotocol")
			return
		}

		middleware.LogWebSocketConnect(logger, remoteAddr, r.URL.Path)

		ctx, cancel := context.WithCancel(r.Context())
		defer cancel()

		outChan := make(chan map[string]interface{}, 10)
		core := roomsync.New(roomsync.Config{
			Store:   s.Store,
			Channel: s.Channel,
			Self:    sess,
			Logger:  logger.WithField("room_code", code),
			OnChange: func(snap roomsync.Snapshot) {
				pushLatest(outChan, map[string]interface{}{
					"type":  "room_state",
					"state": snap,
				})
			},
		})
		defer core.Close()

		if err := core.Load(ctx, code); err != nil {
			if errors.Is(err, models.ErrRoomNotFound) {
				c.Close(UnknownRoomError, "room does not exist")
			} else {
				logger.Warnf("room %s load failed: %v", code, err)
				c.Close(websocket.StatusInternalError, "failed to load room")
			}
			return
		}
		if err := core.Subscribe(ctx); err != nil {
			logger.Warnf("room %s subscribe failed: %v", code, err)
			c.Close(websocket.StatusInternalError, "failed to subscribe")
			return
		}

		go roomWritePump(ctx, c, outChan, logger)

		readErr := roomReadPump(ctx, c, core, outChan, logger, code)

		middleware.LogWebSocketDisconnect(logger, remoteAddr, r.URL.Path, readErr)
	}
}

// roomReadPump parses client intents until the connection drops. Intents run
// sequentially; a rejected intent produces an error frame, never a
// disconnect.
func roomReadPump(ctx context.Context, c *websocket.Conn, core *roomsync.Core, outChan chan map[string]interface{}, logger *logrus.Logger, code string) error {
	for {
		typ, msg, err := c.Read(ctx)
		if err != nil {
			closeStatus := websocket.CloseStatus(err)
			if closeStatus == websocket.StatusNormalClosure || closeStatus == websocket.StatusGoingAway {
				return nil
			}
			if strings.Contains(err.Error(), "context canceled") {
				return nil
			}
			return err
		}
		if typ != websocket.MessageText {
			logger.Warnf("room %s: ignoring non-text message type %d", code, typ)
			continue
		}

		var packet map[string]interface{}
		if err := json.Unmarshal(msg, &packet); err != nil {
			writeErrorFrame(outChan, "invalid JSON")
			continue
		}

		if err := handleRoomIntent(ctx, core, packet); err != nil {
			writeErrorFrame(outChan, err.Error())
		}
	}
}

// handleRoomIntent dispatches one client message to the sync core.
func handleRoomIntent(ctx context.Context, core *roomsync.Core, packet map[string]interface{}) error {
	action, _ := packet["type"].(string)
	switch action {
	case "vote":
		categoryID, _ := packet["category_id"].(string)
		nomineeID, _ := packet["nominee_id"].(string)
		return core.Vote(ctx, categoryID, nomineeID)
	case "start_ceremony":
		return core.StartCeremony(ctx)
	case "end_ceremony":
		return core.EndCeremony(ctx)
	case "declare_winner":
		categoryID, _ := packet["category_id"].(string)
		nomineeID, _ := packet["nominee_id"].(string)
		return core.DeclareWinner(ctx, categoryID, nomineeID)
	case "set_current_category":
		if packet["category_id"] == nil {
			return core.SetCurrentCategory(ctx, nil)
		}
		categoryID, _ := packet["category_id"].(string)
		return core.SetCurrentCategory(ctx, &categoryID)
	default:
		return errors.New("unknown action type: " + action)
	}
}

// roomWritePump serializes outgoing frames and keeps the connection alive
// with periodic pings.
func roomWritePump(ctx context.Context, c *websocket.Conn, outChan chan map[string]interface{}, logger *logrus.Logger) {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-outChan:
			if !ok {
				return
			}
			data, err := json.Marshal(msg)
			if err != nil {
				logger.Warnf("failed to marshal outgoing msg: %v", err)
				continue
			}
			writeCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
			err = c.Write(writeCtx, websocket.MessageText, data)
			cancel()
			if err != nil {
				logger.Warnf("failed to write to websocket: %v", err)
				return
			}
		case <-ticker.C:
			pingCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
			err := c.Ping(pingCtx)
			cancel()
			if err != nil {
				logger.Warnf("failed to send ping: %v. Assuming disconnect.", err)
				return
			}
		}
	}
}

// pushLatest enqueues a frame, evicting the oldest queued frame when the
// buffer is full. State frames are full snapshots, so the newest always
// supersedes anything it displaces.
func pushLatest(outChan chan map[string]interface{}, msg map[string]interface{}) {
	for {
		select {
		case outChan <- msg:
			return
		default:
			select {
			case <-outChan:
			default:
			}
		}
	}
}

func writeErrorFrame(outChan chan map[string]interface{}, message string) {
	pushLatest(outChan, map[string]interface{}{
		"type":    "error",
		"message": message,
	})
}
