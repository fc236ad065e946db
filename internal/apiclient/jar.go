package apiclient

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"os"
	"time"
)

// savedCookie is the on-disk form of a session cookie.
type savedCookie struct {
	Name     string    `json:"name"`
	Value    string    `json:"value"`
	Path     string    `json:"path,omitempty"`
	Expires  time.Time `json:"expires,omitempty"`
	Secure   bool      `json:"secure,omitempty"`
	HttpOnly bool      `json:"http_only,omitempty"`
}

// SaveCookies writes the jar's cookies for u to path.
// cookiejar does not expose expiry on read, so saved cookies carry none.
func SaveCookies(jar http.CookieJar, u *url.URL, path string) error {
	cookies := jar.Cookies(u)
	saved := make([]savedCookie, 0, len(cookies))
	for _, c := range cookies {
		saved = append(saved, savedCookie{Name: c.Name, Value: c.Value, Path: "/"})
	}
	data, err := json.Marshal(saved)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o600)
}

// LoadCookies returns a jar holding the cookies saved at path for u. A missing file
// yields an empty jar.
func LoadCookies(u *url.URL, path string) (http.CookieJar, error) {
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return jar, nil
	}
	if err != nil {
		return nil, err
	}

	var saved []savedCookie
	if err := json.Unmarshal(data, &saved); err != nil {
		return jar, nil
	}
	cookies := make([]*http.Cookie, 0, len(saved))
	for _, s := range saved {
		cookies = append(cookies, &http.Cookie{
			Name:     s.Name,
			Value:    s.Value,
			Path:     s.Path,
			Expires:  s.Expires,
			Secure:   s.Secure,
			HttpOnly: s.HttpOnly,
		})
	}
	jar.SetCookies(u, cookies)
	return jar, nil
}
