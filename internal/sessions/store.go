package sessions

import (
	"context"
	"encoding/base32"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/securecookie"
	"github.com/gorilla/sessions"

	"github.com/etraincon/learning-service/internal/cache"
)

// RedisStore is a sessions.Store that keeps only an encoded session id in the cookie.
// Session values are securecookie-encoded and stored in redis with the cookie's MaxAge
// as TTL.
type RedisStore struct {
	Codecs  []securecookie.Codec
	Options *sessions.Options
	cache   *cache.CacheHelper
}

// NewRedisStore builds a store. keyPairs are securecookie hash/block key pairs.
func NewRedisStore(helper *cache.CacheHelper, options *sessions.Options, keyPairs ...[]byte) *RedisStore {
	codecs := securecookie.CodecsFromPairs(keyPairs...)
	for _, codec := range codecs {
		if sc, ok := codec.(*securecookie.SecureCookie); ok {
			sc.MaxAge(options.MaxAge)
		}
	}
	return &RedisStore{
		Codecs:  codecs,
		Options: options,
		cache:   helper,
	}
}

func newSessionID() string {
	return strings.TrimRight(base32.StdEncoding.EncodeToString(securecookie.GenerateRandomKey(32)), "=")
}

// Get returns a session for the given name after adding it to the registry.
func (s *RedisStore) Get(r *http.Request, name string) (*sessions.Session, error) {
	return sessions.GetRegistry(r).Get(s, name)
}

// New returns the session referenced by the request cookie, or a fresh one when the
// cookie is missing, undecodable or points at an expired record.
func (s *RedisStore) New(r *http.Request, name string) (*sessions.Session, error) {
	session := sessions.NewSession(s, name)
	opts := *s.Options
	session.Options = &opts
	session.IsNew = true
	session.ID = newSessionID()

	c, err := r.Cookie(name)
	if errors.Is(err, http.ErrNoCookie) {
		return session, nil
	} else if err != nil {
		return session, err
	}

	var id string
	if err := securecookie.DecodeMulti(name, c.Value, &id, s.Codecs...); err != nil {
		return session, err
	}

	found, err := s.load(r.Context(), id, session)
	if err != nil {
		return session, err
	}
	if found {
		session.ID = id
		session.IsNew = false
	}

	return session, nil
}

// Save persists the session, or deletes it when MaxAge <= 0.
func (s *RedisStore) Save(r *http.Request, w http.ResponseWriter, session *sessions.Session) error {
	ctx := r.Context()

	if session.Options.MaxAge <= 0 {
		if err := s.cache.Delete(ctx, session.ID); err != nil {
			return fmt.Errorf("failed to delete session: %w", err)
		}
		http.SetCookie(w, sessions.NewCookie(session.Name(), "", session.Options))
		return nil
	}

	if session.ID == "" {
		session.ID = newSessionID()
	}

	encodedValues, err := securecookie.EncodeMulti(session.Name(), session.Values, s.Codecs...)
	if err != nil {
		return fmt.Errorf("failed to encode session: %w", err)
	}
	ttl := time.Duration(session.Options.MaxAge) * time.Second
	if err := s.cache.Set(ctx, session.ID, encodedValues, ttl); err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}

	encodedID, err := securecookie.EncodeMulti(session.Name(), session.ID, s.Codecs...)
	if err != nil {
		return fmt.Errorf("failed to encode session id: %w", err)
	}
	http.SetCookie(w, sessions.NewCookie(session.Name(), encodedID, session.Options))

	return nil
}

// Rotate drops the stored record and gives the session a new id. The caller saves it.
func (s *RedisStore) Rotate(ctx context.Context, session *sessions.Session) error {
	if err := s.cache.Delete(ctx, session.ID); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	session.ID = newSessionID()
	return nil
}

func (s *RedisStore) load(ctx context.Context, id string, session *sessions.Session) (bool, error) {
	var encoded string
	err := s.cache.Get(ctx, id, &encoded)
	switch {
	case errors.Is(err, cache.ErrCacheNotFound):
		return false, nil
	case err != nil:
		return false, fmt.Errorf("failed to load session: %w", err)
	}

	if err := securecookie.DecodeMulti(session.Name(), encoded, &session.Values, s.Codecs...); err != nil {
		cache.SafeDelete(ctx, s.cache, id)
		return false, nil
	}
	return true, nil
}
