package port

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"cyclearena/internal/config"
	"cyclearena/internal/geometry"
	"cyclearena/internal/metrics"
	"cyclearena/internal/player"
)

// Engine is the subset of engine.Engine the HTTP/websocket layer needs.
// Declared here (rather than importing the engine package) so port has
// no dependency on engine, keeping the dependency graph H -> (nothing
// upward) per the component graph in spec §2.
type Engine interface {
	Join(id player.ID, name string, color player.Color, p ClientPort)
	Start(id player.ID)
	Input(id player.ID, dir geometry.Direction, receivedAt time.Time)
	Redraw(id player.ID)
	RemoveExpired(id player.ID)
}

// Server wires the session store and engine to an HTTP surface:
// websocket upgrade at /ws, admin config at /admin/config, metrics at
// /metrics, a health check, and static client assets. Generalizes the
// teacher's main.go + server/net_ws.go + server/admin.go + server/metrics.go.
type Server struct {
	engine   Engine
	sessions *Store
	cfg      *config.Store
	metrics  *metrics.Metrics
	log      *zap.SugaredLogger
	upgrader websocket.Upgrader
}

// NewServer builds a Server bound to the given collaborators.
func NewServer(e Engine, sessions *Store, cfg *config.Store, m *metrics.Metrics, log *zap.SugaredLogger) *Server {
	return &Server{
		engine:   e,
		sessions: sessions,
		cfg:      cfg,
		metrics:  m,
		log:      log,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

// Router builds the chi router, optionally serving staticDir at "/".
func (s *Server) Router(staticDir string) chi.Router {
	r := chi.NewRouter()
	r.Get("/ws", s.handleWS)
	r.Get("/admin/config", s.handleAdminConfig)
	r.Post("/admin/config", s.handleAdminConfig)
	r.Get("/metrics", s.handleMetrics)
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("ok"))
	})
	if staticDir != "" {
		fs := http.FileServer(http.Dir(staticDir))
		r.Handle("/*", fs)
	}
	return r
}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	sessionID := q.Get("session")
	username := q.Get("username")
	color := parseColorQuery(q.Get("color"))

	sess, isNew, err := s.sessions.Resolve(sessionID, username, color)
	if err != nil {
		s.log.Warnw("rejecting connection", "sessionId", sessionID, "error", err)
		http.Error(w, "unknown session", http.StatusUnauthorized)
		return
	}

	ws, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Warnw("websocket upgrade failed", "error", err)
		if isNew {
			s.sessions.remove(sess)
		}
		return
	}

	conn := NewWSConn(ws, s.log)
	s.sessions.Bind(sess, conn)
	s.log.Infow("session connected", "sessionId", sess.SessionID, "userId", sess.UserID, "new", isNew)

	_ = conn.Send(EventSession, sess.SessionID)

	conn.ReadLoop(func(env InboundEnvelope) {
		switch env.Type {
		case InboundJoin:
			s.engine.Join(sess.UserID, sess.Name, sess.Color, conn)
		case InboundStart:
			s.engine.Start(sess.UserID)
		case InboundInput:
			if env.Direction != nil {
				s.engine.Input(sess.UserID, geometry.Direction(*env.Direction), time.Now())
			}
		case InboundRedraw:
			s.engine.Redraw(sess.UserID)
		case InboundHeartbeat:
			s.sessions.Heartbeat(sess)
		}
	})

	s.log.Infow("session disconnected", "sessionId", sess.SessionID, "userId", sess.UserID)
	s.sessions.Disconnect(sess, s.cfg.Get().SessionTimeout, s.engine.RemoveExpired)
	conn.Close()
}

// adminConfigView is the admin-editable subset of config.Config,
// mirroring the teacher's server/admin.go pattern of pointer fields for
// partial JSON updates.
type adminConfigView struct {
	MoveSpeed       *float64 `json:"moveSpeed,omitempty"`
	RoundStartDelay *int64   `json:"roundStartDelayMs,omitempty"`
}

func (s *Server) handleAdminConfig(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		cur := s.cfg.Get()
		view := adminConfigView{
			MoveSpeed:       &cur.MoveSpeed,
			RoundStartDelay: durMsPtr(cur.RoundStartDelay),
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(view)
	case http.MethodPost:
		var body adminConfigView
		dec := json.NewDecoder(r.Body)
		dec.DisallowUnknownFields()
		if err := dec.Decode(&body); err != nil {
			s.log.Warnw("admin config update rejected", "error", err)
			http.Error(w, "invalid json", http.StatusBadRequest)
			return
		}
		if body.MoveSpeed != nil {
			if err := s.cfg.UpdateMoveSpeed(*body.MoveSpeed); err != nil {
				s.log.Warnw("admin config update rejected", "moveSpeed", *body.MoveSpeed, "error", err)
				http.Error(w, err.Error(), http.StatusBadRequest)
				return
			}
		}
		if body.RoundStartDelay != nil {
			if err := s.cfg.UpdateRoundStartDelay(time.Duration(*body.RoundStartDelay) * time.Millisecond); err != nil {
				s.log.Warnw("admin config update rejected", "roundStartDelayMs", *body.RoundStartDelay, "error", err)
				http.Error(w, err.Error(), http.StatusBadRequest)
				return
			}
		}
		s.log.Infow("admin config updated", "moveSpeed", s.cfg.Get().MoveSpeed, "roundStartDelay", s.cfg.Get().RoundStartDelay)
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{"ok": true})
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(s.metrics.Snapshot())
}

func durMsPtr(d time.Duration) *int64 {
	ms := d.Milliseconds()
	return &ms
}

// parseColorQuery parses a "r,g,b" query value into a player.Color,
// defaulting to white on anything malformed.
func parseColorQuery(raw string) player.Color {
	parts := strings.Split(raw, ",")
	if len(parts) != 3 {
		return player.Color{R: 1, G: 1, B: 1}
	}
	vals := make([]float64, 3)
	for i, p := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return player.Color{R: 1, G: 1, B: 1}
		}
		vals[i] = v
	}
	return player.Color{R: vals[0], G: vals[1], B: vals[2]}
}
