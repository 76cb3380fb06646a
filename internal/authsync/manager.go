package authsync

import (
	"context"
	"sync"

	"github.com/rs/zerolog"

	"daygen/internal/crosstab"
)

// Broadcaster is the subset of the cross-instance channel the manager needs.
type Broadcaster interface {
	NotifyAuthUpdate(userID string, credits int)
	NotifyUserLogout()
}

// LocalState is cleared on logout before any broadcast goes out, so this
// instance is already signed out when peers start reacting.
type LocalState interface {
	Clear(ctx context.Context)
}

// Manager keeps the cached user in step with the auth backend and with peer
// instances. It is the receiving side of the cross-instance channel.
type Manager struct {
	mu      sync.Mutex
	client  *Client
	channel Broadcaster
	local   []LocalState
	logger  zerolog.Logger
	user    *User
}

// NewManager constructs a manager around the auth client.
func NewManager(client *Client, logger zerolog.Logger) *Manager {
	return &Manager{client: client, logger: logger}
}

var _ crosstab.Handler = (*Manager)(nil)

// AttachChannel wires the broadcast side. Call before Start on the channel.
func (m *Manager) AttachChannel(ch Broadcaster) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.channel = ch
}

// RegisterLocalState adds state that must be cleared on logout.
func (m *Manager) RegisterLocalState(state LocalState) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.local = append(m.local, state)
}

// User returns a copy of the cached user, or nil when signed out.
func (m *Manager) User() *User {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.user == nil {
		return nil
	}
	u := *m.user
	return &u
}

// RefreshUser re-fetches the authoritative profile. When identity or credits
// changed it broadcasts an auth update so peers converge; an unchanged fetch
// stays silent, which is what lets replayed broadcasts die out.
func (m *Manager) RefreshUser(ctx context.Context) error {
	user, err := m.client.Me(ctx)
	if err != nil {
		return err
	}

	m.mu.Lock()
	changed := m.user == nil || m.user.ID != user.ID || m.user.Credits != user.Credits
	m.user = user
	channel := m.channel
	m.mu.Unlock()

	if changed && channel != nil {
		channel.NotifyAuthUpdate(user.ID, user.Credits)
	}
	return nil
}

// LogOut clears local state first, then tells peers, then best-effort
// invalidates the backend session. An already-signed-out instance clears again
// but stays silent, so a logout broadcast cannot ping-pong between instances.
func (m *Manager) LogOut(ctx context.Context) error {
	m.mu.Lock()
	wasSignedIn := m.user != nil
	m.user = nil
	channel := m.channel
	local := make([]LocalState, len(m.local))
	copy(local, m.local)
	m.mu.Unlock()

	for _, state := range local {
		state.Clear(ctx)
	}
	if !wasSignedIn {
		return nil
	}
	if channel != nil {
		channel.NotifyUserLogout()
	}
	if err := m.client.SignOut(ctx); err != nil {
		m.logger.Warn().Err(err).Msg("authsync: backend sign-out failed")
	}
	return nil
}
