// Package session validates the two fixed identities and tracks their logged-in sessions.
//
// The identities are illustrative placeholders. Nothing here protects stored data; it only decides
// which role a caller acts as.
package session

import (
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
)

// ID is a unique identifier for a session, created at login.
type ID string

// Role is what a session is allowed to act as.
type Role string

const (
	Admin  Role = "admin"
	Normal Role = "normal"
)

// ErrInvalidCredentials is returned by Login when the username and password match no identity.
var ErrInvalidCredentials = errors.New("invalid credentials")

// DefaultTimeout is how long a session lives when Args.Timeout is unset.
const DefaultTimeout = 15 * time.Minute

// Identity is a username/password pair granted a role.
type Identity struct {
	Username string
	Password string
	Role     Role
}

// DefaultIdentities are the built-in admin and normal identities.
var DefaultIdentities = []Identity{
	{Username: "admin", Password: "admin123", Role: Admin},
	{Username: "normal", Password: "user123", Role: Normal},
}

// Manager issues and expires sessions.
type Manager struct {
	identities []Identity
	timeout    time.Duration
	access     sync.Mutex
	sessions   map[ID]Role
}

// Args is the set of arguments for creating a new Manager. All are optional.
type Args struct {
	Identities []Identity    // Who may log in. Defaults to DefaultIdentities.
	Timeout    time.Duration // How long a session lasts before it expires.
}

// New creates a new Manager from the given configuration.
func New(args Args) *Manager {
	if len(args.Identities) == 0 {
		args.Identities = DefaultIdentities
	}
	if args.Timeout == 0 {
		args.Timeout = DefaultTimeout
	}
	return &Manager{
		identities: args.Identities,
		timeout:    args.Timeout,
		sessions:   map[ID]Role{},
	}
}

// scheduleExpiry schedules a session to be closed after the timeout.
func (m *Manager) scheduleExpiry(sid ID) {
	go func() {
		<-time.After(m.timeout)
		m.Logout(sid)
	}()
}

// Login opens a session for the identity matching username and password.
func (m *Manager) Login(username, password string) (ID, Role, error) {
	for _, id := range m.identities {
		if id.Username != username || id.Password != password {
			continue
		}

		sid := ID(uuid.New().String())
		m.access.Lock()
		m.sessions[sid] = id.Role
		m.access.Unlock()
		m.scheduleExpiry(sid)
		return sid, id.Role, nil
	}
	return "", "", ErrInvalidCredentials
}

// Role returns the role of an open session, or false if the session is unknown or expired.
func (m *Manager) Role(sid ID) (Role, bool) {
	m.access.Lock()
	defer m.access.Unlock()

	role, ok := m.sessions[sid]
	return role, ok
}

// Logout closes the session. Closing an unknown session does nothing.
func (m *Manager) Logout(sid ID) {
	m.access.Lock()
	defer m.access.Unlock()

	delete(m.sessions, sid)
}
