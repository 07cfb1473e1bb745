// Package session creates, restores and destroys the dashboard user's
// session. The session record is kept in the key-value store under a fixed
// key prefix so that it survives a restart of the shell.
package session

import (
	"context"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"

	"machine-dashboard-client/config"
	"machine-dashboard-client/internal/model"
	"machine-dashboard-client/internal/store"
)

var log = logrus.WithField("component", "session")

// StorageKey prefixes every persisted session record.
const StorageKey = "dashboard.currentUser"

// ErrInvalidCredentials is returned by Login for an unknown identity or a
// wrong password.
var ErrInvalidCredentials = errors.New("invalid credentials")

// Key returns the storage key of identity's session.
func Key(identity string) string {
	return StorageKey + ":" + identity
}

type Manager struct {
	users map[string]config.UserConfig
	store store.Store
}

func NewManager(users []config.UserConfig, st store.Store) *Manager {
	byID := make(map[string]config.UserConfig, len(users))
	for _, u := range users {
		byID[u.Identity] = u
	}
	return &Manager{users: byID, store: st}
}

func parseRole(s string) model.Role {
	switch model.Role(s) {
	case model.RoleOperator:
		return model.RoleOperator
	case model.RoleAdmin:
		return model.RoleAdmin
	}
	return model.RoleNone
}

// Login checks the credentials against the configured users and persists
// the resulting session.
func (m *Manager) Login(ctx context.Context, identity, password string) (model.Session, error) {
	u, ok := m.users[identity]
	if !ok || u.Password != password {
		return model.Session{}, ErrInvalidCredentials
	}

	sess := model.Session{
		Identity:      u.Identity,
		Role:          parseRole(u.Role),
		LocationScope: u.Location,
	}
	if sess.LocationScope == "" {
		sess.LocationScope = model.AllLocations
	}

	if err := m.store.SaveSession(ctx, Key(identity), sess); err != nil {
		return model.Session{}, fmt.Errorf("login %q: %w", identity, err)
	}
	log.WithFields(logrus.Fields{"identity": identity, "role": sess.Role, "location": sess.LocationScope}).Info("session created")
	return sess, nil
}

// Restore loads a previously saved session. It returns
// store.ErrSessionNotFound when the identity has none.
func (m *Manager) Restore(ctx context.Context, identity string) (model.Session, error) {
	return m.store.LoadSession(ctx, Key(identity))
}

// Logout clears the saved session.
func (m *Manager) Logout(ctx context.Context, identity string) error {
	if err := m.store.DeleteSession(ctx, Key(identity)); err != nil {
		return fmt.Errorf("logout %q: %w", identity, err)
	}
	log.WithField("identity", identity).Info("session destroyed")
	return nil
}
