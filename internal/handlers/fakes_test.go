package handlers

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/securecookie"
	gsessions "github.com/gorilla/sessions"

	"github.com/etraincon/learning-service/internal/models"
	"github.com/etraincon/learning-service/internal/services"
	"github.com/etraincon/learning-service/internal/sessions"
	"github.com/etraincon/learning-service/internal/utils"
)

type stubAuth struct {
	loginUser *models.User
	loginErr  error

	registerErr error
	registered  *services.RegisterRequest

	verifyToken   string
	verifyOutcome services.VerifyOutcome

	resetEmail string
	resetErr   error

	checkErr    error
	resetPwdErr error
	resetReq    *services.ResetPasswordRequest

	users map[uint]*models.User
}

func (s *stubAuth) Login(ctx context.Context, email, password string) (*models.User, error) {
	return s.loginUser, s.loginErr
}

func (s *stubAuth) Register(ctx context.Context, req *services.RegisterRequest) (*models.User, error) {
	s.registered = req
	if s.registerErr != nil {
		return nil, s.registerErr
	}
	return &models.User{ID: 42, Username: req.Username, Email: req.Email}, nil
}

func (s *stubAuth) Verify(ctx context.Context, token string) services.VerifyOutcome {
	s.verifyToken = token
	return s.verifyOutcome
}

func (s *stubAuth) RequestPasswordReset(ctx context.Context, email string) error {
	s.resetEmail = email
	return s.resetErr
}

func (s *stubAuth) CheckResetToken(ctx context.Context, token string) error {
	if token == "" {
		return services.ErrMissingToken
	}
	return s.checkErr
}

func (s *stubAuth) ResetPassword(ctx context.Context, token string, req *services.ResetPasswordRequest) error {
	s.resetReq = req
	if token == "" {
		return services.ErrMissingToken
	}
	return s.resetPwdErr
}

func (s *stubAuth) CurrentUser(ctx context.Context, userID uint) (*models.User, error) {
	if u, ok := s.users[userID]; ok {
		return u, nil
	}
	return nil, services.ErrUserNotFound
}

type stubProfile struct {
	gotUser   uint
	gotFields map[string]any
	err       error
}

func (s *stubProfile) Get(ctx context.Context, userID uint) (*models.ProfileEnvelope, error) {
	s.gotUser = userID
	if s.err != nil {
		return nil, s.err
	}
	return &models.ProfileEnvelope{OK: true, User: models.ProfileUser{ID: userID}}, nil
}

func (s *stubProfile) Save(ctx context.Context, userID uint, fields map[string]any) (*models.ProfileEnvelope, error) {
	s.gotFields = fields
	if s.err != nil {
		return nil, s.err
	}
	return &models.ProfileEnvelope{OK: true, User: models.ProfileUser{ID: userID}, HasProfile: true, Profile: &models.ProfileView{}}, nil
}

type stubQuiz struct {
	gotCourse int64
	err       error
}

func (s *stubQuiz) Generate(ctx context.Context, courseID int64) (*models.GeneratedQuiz, error) {
	s.gotCourse = courseID
	if s.err != nil {
		return nil, s.err
	}
	return &models.GeneratedQuiz{
		OK:       true,
		Status:   "success",
		CourseID: uint(courseID),
		Counts:   models.QuizCounts{MultipleChoice: 1},
		Quizzes: []models.QuizPayload{
			{ID: 9, QuestionType: models.MultipleChoice, Question: "q", Options: []string{"A. x"}},
		},
	}, nil
}

type stubServices struct {
	auth      *stubAuth
	profile   *stubProfile
	quiz      *stubQuiz
	healthErr error
}

func (s *stubServices) Auth() services.AuthService { return s.auth }
func (s *stubServices) Profile() services.ProfileService { return s.profile }
func (s *stubServices) Quiz() services.QuizService { return s.quiz }
func (s *stubServices) Initialize(ctx context.Context) error { return nil }
func (s *stubServices) HealthCheck(ctx context.Context) error { return s.healthErr }
func (s *stubServices) Shutdown(ctx context.Context) error { return nil }

type testServer struct {
	router   *gin.Engine
	services *stubServices
}

const testCookieName = "test_session"

var testOrigins = []string{"http://localhost:3000", "https://etraincon.com"}

func newTestServer(t *testing.T, allowIdentityHeader bool) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	svc := &stubServices{
		auth:    &stubAuth{users: map[uint]*models.User{}},
		profile: &stubProfile{},
		quiz:    &stubQuiz{},
	}

	store := gsessions.NewCookieStore(securecookie.GenerateRandomKey(32))
	store.Options = sessions.CookieOptions(time.Hour, false)
	manager := sessions.NewManager(store, testCookieName)

	logger := utils.NewSlogLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))

	router := gin.New()
	SetupMiddleware(router, logger, testOrigins)
	hm := NewHandlerManager(svc, manager, logger, HandlerConfig{
		LoginURL:                "http://localhost:3000/login",
		AllowTestIdentityHeader: allowIdentityHeader,
	})
	hm.SetupRoutes(router)

	return &testServer{router: router, services: svc}
}

func (s *testServer) do(req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func jsonRequest(method, target, body string) *http.Request {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func formRequest(method, target, body string) *http.Request {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return req
}
