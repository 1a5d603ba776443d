package editor

import (
	"context"
	"errors"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ErrNoIdentity is the hard precondition failure: the editor never operates
// without a verified session identity.
var ErrNoIdentity = errors.New("editor requires an authenticated user with a verified email")

// Manager owns one editor session per authenticated user, created lazily on
// first use with the user's verified email as the authorization scope.
type Manager struct {
	gw   Gateway
	logr *zap.Logger

	mu       sync.Mutex
	sessions map[uuid.UUID]*Editor
}

func NewManager(gw Gateway, logr *zap.Logger) *Manager {
	if logr == nil {
		logr = zap.NewNop()
	}
	return &Manager{gw: gw, logr: logr, sessions: make(map[uuid.UUID]*Editor)}
}

// Session returns the caller's editor, creating and loading it on first use.
// A load failure on creation still yields a usable editor (empty cache, the
// error surfaces to the caller as a notification).
func (m *Manager) Session(ctx context.Context, id Identity) (*Editor, error) {
	if id.UserID == uuid.Nil || id.Email == "" || id.CompanyID == uuid.Nil {
		return nil, ErrNoIdentity
	}

	m.mu.Lock()
	ed, ok := m.sessions[id.UserID]
	if !ok {
		store := NewStore(m.gw, id.CompanyID, id.Email, m.logr)
		ed = New(store, m.logr)
		m.sessions[id.UserID] = ed
	}
	m.mu.Unlock()

	if !ok {
		if err := ed.store.Load(ctx); err != nil {
			m.logr.Warn("initial area load failed", zap.Error(err))
			return ed, err
		}
	}
	return ed, nil
}

// Drop discards a user's editor session, e.g. on logout.
func (m *Manager) Drop(userID uuid.UUID) {
	m.mu.Lock()
	delete(m.sessions, userID)
	m.mu.Unlock()
}
