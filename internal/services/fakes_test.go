package services

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"time"

	"gorm.io/gorm"

	"github.com/etraincon/learning-service/internal/models"
	"github.com/etraincon/learning-service/internal/quizgen"
	"github.com/etraincon/learning-service/internal/repositories"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fakeRepository is an in-memory Repository.
type fakeRepository struct {
	mu       sync.Mutex
	users    map[uint]*models.User
	profiles map[uint]*models.Profile
	courses  map[uint]*models.Course
	quizzes  []models.QuizQuestion
	nextID   uint

	// failWith makes every call on the named repository fail.
	failWith map[string]error
}

func newFakeRepository() *fakeRepository {
	return &fakeRepository{
		users:    map[uint]*models.User{},
		profiles: map[uint]*models.Profile{},
		courses:  map[uint]*models.Course{},
		failWith: map[string]error{},
	}
}

func (f *fakeRepository) User() repositories.UserRepository       { return fakeUsers{f} }
func (f *fakeRepository) Profile() repositories.ProfileRepository { return fakeProfiles{f} }
func (f *fakeRepository) Course() repositories.CourseRepository   { return fakeCourses{f} }
func (f *fakeRepository) Quiz() repositories.QuizRepository       { return fakeQuizzes{f} }

func (f *fakeRepository) WithTransaction(ctx context.Context, fn func(repositories.Repository) error) error {
	return fn(f)
}
func (f *fakeRepository) Ping(ctx context.Context) error { return nil }
func (f *fakeRepository) Close() error                   { return nil }

func (f *fakeRepository) id() uint {
	f.nextID++
	return f.nextID
}

func (f *fakeRepository) addUser(u models.User) *models.User {
	f.mu.Lock()
	defer f.mu.Unlock()
	if u.ID == 0 {
		u.ID = f.id()
	}
	f.users[u.ID] = &u
	return &u
}

func clone(u *models.User) *models.User {
	c := *u
	return &c
}

type fakeUsers struct{ f *fakeRepository }

func (r fakeUsers) Create(ctx context.Context, tx *gorm.DB, user *models.User) error {
	r.f.mu.Lock()
	defer r.f.mu.Unlock()
	if err := r.f.failWith["user"]; err != nil {
		return err
	}
	for _, u := range r.f.users {
		if u.Email == user.Email {
			return repositories.ErrDuplicate
		}
	}
	user.ID = r.f.id()
	user.CreatedAt = time.Now()
	r.f.users[user.ID] = clone(user)
	return nil
}

func (r fakeUsers) GetByID(ctx context.Context, tx *gorm.DB, id uint) (*models.User, error) {
	r.f.mu.Lock()
	defer r.f.mu.Unlock()
	if err := r.f.failWith["user"]; err != nil {
		return nil, err
	}
	if u, ok := r.f.users[id]; ok {
		return clone(u), nil
	}
	return nil, repositories.ErrNotFound
}

func (r fakeUsers) GetByEmail(ctx context.Context, tx *gorm.DB, email string) (*models.User, error) {
	return r.find(func(u *models.User) bool { return u.Email == email })
}

func (r fakeUsers) GetByVerificationToken(ctx context.Context, tx *gorm.DB, token string) (*models.User, error) {
	return r.find(func(u *models.User) bool {
		return !u.IsVerified && u.VerificationToken != nil && *u.VerificationToken == token
	})
}

func (r fakeUsers) MarkVerified(ctx context.Context, tx *gorm.DB, id uint) error {
	r.f.mu.Lock()
	defer r.f.mu.Unlock()
	u, ok := r.f.users[id]
	if !ok || u.IsVerified {
		return repositories.ErrNotFound
	}
	u.IsVerified = true
	u.VerificationToken = nil
	return nil
}

func (r fakeUsers) SetResetToken(ctx context.Context, tx *gorm.DB, id uint, token string, expiry time.Time) error {
	r.f.mu.Lock()
	defer r.f.mu.Unlock()
	u, ok := r.f.users[id]
	if !ok {
		return repositories.ErrNotFound
	}
	u.ResetToken = &token
	u.ResetTokenExpiry = &expiry
	return nil
}

func (r fakeUsers) GetByResetToken(ctx context.Context, tx *gorm.DB, token string, now time.Time) (*models.User, error) {
	return r.find(func(u *models.User) bool {
		return u.ResetToken != nil && *u.ResetToken == token && u.ResetTokenExpiry != nil && u.ResetTokenExpiry.After(now)
	})
}

func (r fakeUsers) UpdatePasswordAndClearReset(ctx context.Context, tx *gorm.DB, id uint, token, passwordHash string) error {
	r.f.mu.Lock()
	defer r.f.mu.Unlock()
	u, ok := r.f.users[id]
	if !ok || u.ResetToken == nil || *u.ResetToken != token {
		return repositories.ErrNotFound
	}
	u.Password = passwordHash
	u.ResetToken = nil
	u.ResetTokenExpiry = nil
	return nil
}

func (r fakeUsers) find(match func(*models.User) bool) (*models.User, error) {
	r.f.mu.Lock()
	defer r.f.mu.Unlock()
	if err := r.f.failWith["user"]; err != nil {
		return nil, err
	}
	for _, u := range r.f.users {
		if match(u) {
			return clone(u), nil
		}
	}
	return nil, repositories.ErrNotFound
}

type fakeProfiles struct{ f *fakeRepository }

func (r fakeProfiles) GetWithUser(ctx context.Context, tx *gorm.DB, userID uint) (*models.User, *models.Profile, error) {
	r.f.mu.Lock()
	defer r.f.mu.Unlock()
	if err := r.f.failWith["profile"]; err != nil {
		return nil, nil, err
	}
	u, ok := r.f.users[userID]
	if !ok {
		return nil, nil, repositories.ErrNotFound
	}
	if p, ok := r.f.profiles[userID]; ok {
		c := *p
		return clone(u), &c, nil
	}
	return clone(u), nil, nil
}

func (r fakeProfiles) Upsert(ctx context.Context, tx *gorm.DB, profile *models.Profile) error {
	r.f.mu.Lock()
	defer r.f.mu.Unlock()
	if err := r.f.failWith["profile"]; err != nil {
		return err
	}
	now := time.Now()
	c := *profile
	if existing, ok := r.f.profiles[profile.UserID]; ok {
		c.ID = existing.ID
		c.CreatedAt = existing.CreatedAt
	} else {
		c.ID = r.f.id()
		c.CreatedAt = now
	}
	c.UpdatedAt = now
	r.f.profiles[profile.UserID] = &c
	return nil
}

type fakeCourses struct{ f *fakeRepository }

func (r fakeCourses) GetByID(ctx context.Context, tx *gorm.DB, id uint) (*models.Course, error) {
	r.f.mu.Lock()
	defer r.f.mu.Unlock()
	if err := r.f.failWith["course"]; err != nil {
		return nil, err
	}
	if c, ok := r.f.courses[id]; ok {
		cc := *c
		return &cc, nil
	}
	return nil, repositories.ErrNotFound
}

type fakeQuizzes struct{ f *fakeRepository }

func (r fakeQuizzes) InsertGenerated(ctx context.Context, courseID uint, questions []*models.QuizQuestion) ([]models.QuizQuestion, error) {
	r.f.mu.Lock()
	defer r.f.mu.Unlock()
	if err := r.f.failWith["quiz"]; err != nil {
		return nil, err
	}
	out := make([]models.QuizQuestion, 0, len(questions))
	for _, q := range questions {
		c := *q
		c.ID = r.f.id()
		c.CourseID = courseID
		r.f.quizzes = append(r.f.quizzes, c)
		out = append(out, c)
	}
	return out, nil
}

// fakeGenerator returns a canned result and records the uploaded file.
type fakeGenerator struct {
	result   *quizgen.Result
	err      error
	fileName string
	content  string
}

func (g *fakeGenerator) Generate(ctx context.Context, file quizgen.File) (*quizgen.Result, error) {
	g.fileName = file.Name
	b, _ := io.ReadAll(file.Content)
	g.content = string(b)
	return g.result, g.err
}

// fakeFiles is an in-memory CourseFiles.
type fakeFiles map[string]string

func (f fakeFiles) Exists(relPath string) (bool, error) {
	_, ok := f[relPath]
	return ok, nil
}

func (f fakeFiles) Open(relPath string) (io.ReadCloser, error) {
	s, ok := f[relPath]
	if !ok {
		return nil, errors.New("missing")
	}
	return io.NopCloser(bytes.NewBufferString(s)), nil
}
