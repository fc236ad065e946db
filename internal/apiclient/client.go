package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/etraincon/learning-service/internal/models"
)

const maxResponseBytes = 16 << 20

// APIError is a failure reported by the service in its error envelope.
type APIError struct {
	Status  int
	Message string
	Code    string
	Email   string
}

func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("%s (%s, HTTP %d)", e.Message, e.Code, e.Status)
	}
	return fmt.Sprintf("%s (HTTP %d)", e.Message, e.Status)
}

// IsUnverified reports whether err is the login response for an unverified account.
func IsUnverified(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Code == "UNVERIFIED"
}

// Client talks to the learning service and keeps its session cookie.
type Client struct {
	baseURL *url.URL
	http    *http.Client
}

// New returns a client for baseURL. A nil jar gets a fresh in-memory one.
func New(baseURL string, jar http.CookieJar, timeout time.Duration) (*Client, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("invalid base URL %q", baseURL)
	}
	if jar == nil {
		jar, _ = cookiejar.New(nil)
	}
	return &Client{
		baseURL: u,
		http:    &http.Client{Jar: jar, Timeout: timeout},
	}, nil
}

// Jar exposes the cookie jar so callers can persist it.
func (c *Client) Jar() http.CookieJar {
	return c.http.Jar
}

// BaseURL is the service root the client was built for.
func (c *Client) BaseURL() *url.URL {
	u := *c.baseURL
	return &u
}

func (c *Client) Login(ctx context.Context, email, password string) (*models.UserSummary, error) {
	var resp models.LoginResponse
	body := map[string]string{"email": email, "password": password}
	if err := c.do(ctx, http.MethodPost, "/api/v1/auth/login", nil, body, &resp); err != nil {
		return nil, err
	}
	return &resp.User, nil
}

func (c *Client) Logout(ctx context.Context) error {
	return c.do(ctx, http.MethodPost, "/api/v1/auth/logout", nil, nil, nil)
}

func (c *Client) Me(ctx context.Context) (*models.UserSummary, error) {
	var resp models.LoginResponse
	if err := c.do(ctx, http.MethodGet, "/api/v1/auth/me", nil, nil, &resp); err != nil {
		return nil, err
	}
	return &resp.User, nil
}

func (c *Client) Profile(ctx context.Context) (*models.ProfileEnvelope, error) {
	var resp models.ProfileEnvelope
	if err := c.do(ctx, http.MethodGet, "/api/v1/profile", nil, nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// GenerateQuiz asks the service for a fresh question set. Generation can take minutes.
func (c *Client) GenerateQuiz(ctx context.Context, courseID uint) (*models.GeneratedQuiz, error) {
	var resp models.GeneratedQuiz
	q := url.Values{"course_id": {strconv.FormatUint(uint64(courseID), 10)}}
	if err := c.do(ctx, http.MethodPost, "/api/v1/quizzes/generate", q, nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, in, out any) error {
	u := c.baseURL.JoinPath(path)
	u.RawQuery = query.Encode()

	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, u.String(), body)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return decodeError(resp.StatusCode, data)
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

func decodeError(status int, data []byte) error {
	var env models.ErrorResponse
	if err := json.Unmarshal(data, &env); err != nil || env.Error == "" {
		return &APIError{Status: status, Message: http.StatusText(status)}
	}
	return &APIError{Status: status, Message: env.Error, Code: env.Code, Email: env.Email}
}
