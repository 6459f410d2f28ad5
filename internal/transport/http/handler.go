// Package http exposes the classroom session over WebSocket plus a few
// plain HTTP endpoints for health, state and teacher authentication.
package http

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/nuevogironmmm-cell/SAPINECIAL-BACKEND/internal/app"
	"github.com/nuevogironmmm-cell/SAPINECIAL-BACKEND/internal/auth"
)

// Application close codes carried over from the original protocol.
const (
	closeCodeInvalidRole = 4001
	closeCodeAuthFailed  = 4003
)

type Handler struct {
	service  *app.ClassService
	auth     *auth.Validator
	log      *zap.Logger
	upgrader websocket.Upgrader
}

func NewHandler(service *app.ClassService, validator *auth.Validator, log *zap.Logger) *Handler {
	if log == nil {
		log = zap.NewNop()
	}
	return &Handler{
		service: service,
		auth:    validator,
		log:     log,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

// Register installs all routes on the mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("/", h.Health)
	mux.HandleFunc("/healthz", h.Health)
	mux.HandleFunc("/state", h.State)
	mux.HandleFunc("/auth/teacher", h.TeacherAuth)
	mux.HandleFunc("/ws/", h.ServeWS)
	mux.HandleFunc("/ws-dev/", h.ServeDevWS)
}

// Health reports liveness and the current connection count.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" && r.URL.Path != "/healthz" {
		http.NotFound(w, r)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status":      "ok",
		"message":     "Sapiencial App Server Running",
		"connections": h.service.Session().ConnectionCount(),
	})
}

// State returns the current class state.
func (h *Handler) State(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.service.Session().State())
}

// TeacherAuth exchanges the shared teacher secret for a session token.
func (h *Handler) TeacherAuth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	token := r.URL.Query().Get("token")
	if !h.auth.ValidateTeacher(token) {
		writeJSON(w, http.StatusUnauthorized, map[string]any{
			"success": false,
			"message": "invalid token",
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success":       true,
		"session_token": h.auth.IssueTeacherSession(),
	})
}

// ServeWS handles the authenticated endpoint /ws/{role}?token=...
func (h *Handler) ServeWS(w http.ResponseWriter, r *http.Request) {
	role := rolePath(r.URL.Path, "/ws/")
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn("ws upgrade failed", zap.Error(err))
		return
	}
	if !app.ValidRole(role) {
		closeWith(conn, closeCodeInvalidRole, "invalid role")
		return
	}
	if !h.authorized(role, r.URL.Query().Get("token")) {
		// One error frame, then a distinct close code.
		_ = conn.WriteJSON(app.Event{Type: app.EventError, Data: map[string]string{
			"message": "invalid access token",
			"code":    "AUTH_FAILED",
		}})
		closeWith(conn, closeCodeAuthFailed, "auth failed")
		return
	}
	h.serve(conn, role)
}

// ServeDevWS handles /ws-dev/{role}: no credential, development only.
// Once the role is established the connection is treated identically.
func (h *Handler) ServeDevWS(w http.ResponseWriter, r *http.Request) {
	role := rolePath(r.URL.Path, "/ws-dev/")
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn("ws upgrade failed", zap.Error(err))
		return
	}
	if !app.ValidRole(role) {
		closeWith(conn, closeCodeInvalidRole, "invalid role")
		return
	}
	h.serve(conn, role)
}

func (h *Handler) authorized(role app.Role, token string) bool {
	switch role {
	case app.RoleTeacher:
		return h.auth.ValidateTeacher(token)
	case app.RoleStudent:
		return h.auth.ValidateStudent(token)
	}
	return false
}

// serve runs the read loop for one accepted connection. The loop owns the
// connection lifecycle: reads dispatch into the session core in arrival
// order, and loop exit (for any reason) disconnects the participant.
func (h *Handler) serve(conn *websocket.Conn, role app.Role) {
	transport := newWSTransport(conn)
	connID := h.service.Connect(role, transport)
	defer func() {
		h.service.Disconnect(connID)
		_ = transport.Close()
	}()

	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			return
		}
		h.service.HandleMessage(connID, raw)
	}
}

func rolePath(path, prefix string) app.Role {
	return app.Role(strings.Trim(strings.TrimPrefix(path, prefix), "/"))
}

func closeWith(conn *websocket.Conn, code int, reason string) {
	msg := websocket.FormatCloseMessage(code, reason)
	_ = conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second))
	_ = conn.Close()
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
