package sessions

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/sessions"

	"github.com/etraincon/learning-service/internal/models"
)

const (
	sessionValueUserID    = "user_id"
	sessionValueUsername  = "username"
	sessionValueCreatedAt = "created_at"
)

var ErrSessionNotFound = errors.New("session not found")

// rotator is implemented by stores that can reissue a session id on login.
type rotator interface {
	Rotate(ctx context.Context, session *sessions.Session) error
}

// Manager reads and writes the authenticated identity on the session cookie.
type Manager struct {
	store sessions.Store
	name  string
}

func NewManager(store sessions.Store, name string) *Manager {
	return &Manager{store: store, name: name}
}

// Login binds user to the session. An existing session is given a new id first.
func (m *Manager) Login(w http.ResponseWriter, r *http.Request, user *models.User) error {
	// A stale or forged cookie still yields a usable fresh session.
	session, _ := m.store.Get(r, m.name)

	if !session.IsNew {
		if rot, ok := m.store.(rotator); ok {
			if err := rot.Rotate(r.Context(), session); err != nil {
				return err
			}
		}
	}

	session.Values[sessionValueUserID] = user.ID
	session.Values[sessionValueUsername] = user.Username
	session.Values[sessionValueCreatedAt] = time.Now().Unix()

	return m.store.Save(r, w, session)
}

// UserID returns the logged-in user id or ErrSessionNotFound.
func (m *Manager) UserID(r *http.Request) (uint, error) {
	session, err := m.store.Get(r, m.name)
	if err != nil || session.IsNew {
		return 0, ErrSessionNotFound
	}

	id, ok := session.Values[sessionValueUserID].(uint)
	if !ok || id == 0 {
		return 0, ErrSessionNotFound
	}
	return id, nil
}

// Logout deletes the session record and expires the cookie. Safe to call without a session.
func (m *Manager) Logout(w http.ResponseWriter, r *http.Request) error {
	session, _ := m.store.Get(r, m.name)
	session.Values = map[interface{}]interface{}{}
	session.Options.MaxAge = -1
	return m.store.Save(r, w, session)
}

// CookieOptions returns the session cookie attributes. Cross-site requests with
// credentials need SameSite=None, which browsers only accept with Secure.
func CookieOptions(maxAge time.Duration, secure bool) *sessions.Options {
	sameSite := http.SameSiteLaxMode
	if secure {
		sameSite = http.SameSiteNoneMode
	}
	return &sessions.Options{
		Path:     "/",
		MaxAge:   int(maxAge.Seconds()),
		Secure:   secure,
		HttpOnly: true,
		SameSite: sameSite,
	}
}
