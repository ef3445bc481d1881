package port

import (
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"cyclearena/internal/player"
)

// ErrUnknownSession is returned by Resolve when a non-empty session id
// is supplied but names no known session — per spec §7, this rejects
// the connection rather than silently minting a new identity.
var ErrUnknownSession = errors.New("port: unknown session id")

// Session is the connection-identity record held by the port layer,
// distinct from Player (pure game state) — the re-architecture spec §9
// calls for under "dynamic member attachment to transport connections".
type Session struct {
	SessionID string
	UserID    player.ID
	Name      string
	Color     player.Color

	mu              sync.Mutex
	port            ClientPort
	pendingDeletion bool
	lastHeartbeat   time.Time
	graceTimer      *time.Timer
}

// Port returns the session's currently bound ClientPort, or nil while
// disconnected (between a disconnect and either a reconnect or removal).
func (s *Session) Port() ClientPort {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.port
}

// Store is the process-wide, concurrency-safe session registry. It owns
// no game state: the engine only ever learns of a stable player.ID, and
// the store is the only place a net.Conn or *websocket.Conn is ever
// held. Guarded by its own mutex per spec §5's additional note, since
// connect/disconnect happen on arbitrary HTTP-handler goroutines.
type Store struct {
	mu       sync.Mutex
	byToken  map[string]*Session // sessionID -> Session
	byUserID map[player.ID]*Session
}

// NewStore creates an empty session registry.
func NewStore() *Store {
	return &Store{
		byToken:  make(map[string]*Session),
		byUserID: make(map[player.ID]*Session),
	}
}

// Resolve implements the handshake from spec §6: an existing, known
// sessionID rebinds to that session; an empty sessionID mints a fresh
// session and user id from the supplied username/color; a non-empty but
// unknown sessionID is rejected with ErrUnknownSession per spec §7's
// "reject the connection" policy for a stale or invalid handshake.
func (st *Store) Resolve(existingSessionID, username string, color player.Color) (*Session, bool, error) {
	st.mu.Lock()
	defer st.mu.Unlock()

	if existingSessionID != "" {
		s, ok := st.byToken[existingSessionID]
		if !ok {
			return nil, false, ErrUnknownSession
		}
		return s, false, nil
	}

	s := &Session{
		SessionID: uuid.NewString(),
		UserID:    player.ID(uuid.NewString()),
		Name:      username,
		Color:     color,
	}
	st.byToken[s.SessionID] = s
	st.byUserID[s.UserID] = s
	return s, true, nil
}

// Bind attaches conn as the session's active outbound capability and
// cancels any pending grace-period removal — the reconnect-within-window
// rebind path from spec §5.
func (st *Store) Bind(s *Session, conn ClientPort) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.port = conn
	s.pendingDeletion = false
	s.lastHeartbeat = time.Now()
	if s.graceTimer != nil {
		s.graceTimer.Stop()
		s.graceTimer = nil
	}
}

// Heartbeat clears the session's pendingDeletion flag (spec §4.H).
func (st *Store) Heartbeat(s *Session) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastHeartbeat = time.Now()
	s.pendingDeletion = false
}

// Disconnect marks the session pending deletion and, unless it is
// rebound first, calls onExpire(userID) after gracePeriod — the grace
// period and one-shot removal timer from spec §5.
func (st *Store) Disconnect(s *Session, gracePeriod time.Duration, onExpire func(player.ID)) {
	s.mu.Lock()
	s.pendingDeletion = true
	s.port = nil
	if s.graceTimer != nil {
		s.graceTimer.Stop()
	}
	userID := s.UserID
	s.graceTimer = time.AfterFunc(gracePeriod, func() {
		s.mu.Lock()
		stillPending := s.pendingDeletion
		s.mu.Unlock()
		if stillPending {
			st.remove(s)
			onExpire(userID)
		}
	})
	s.mu.Unlock()
}

func (st *Store) remove(s *Session) {
	st.mu.Lock()
	defer st.mu.Unlock()
	delete(st.byToken, s.SessionID)
	delete(st.byUserID, s.UserID)
}

// ByUserID returns the session bound to a stable user id, if any.
func (st *Store) ByUserID(id player.ID) (*Session, bool) {
	st.mu.Lock()
	defer st.mu.Unlock()
	s, ok := st.byUserID[id]
	return s, ok
}

// Count returns the number of registered sessions (connected or within
// their grace period).
func (st *Store) Count() int {
	st.mu.Lock()
	defer st.mu.Unlock()
	return len(st.byUserID)
}
