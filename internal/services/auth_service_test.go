package services

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/etraincon/learning-service/internal/events"
	"github.com/etraincon/learning-service/internal/mail"
	"github.com/etraincon/learning-service/internal/models"
	"github.com/etraincon/learning-service/internal/validator"
)

type authFixture struct {
	svc       AuthService
	repo      *fakeRepository
	mailer    *mail.Recorder
	publisher *events.MockEventPublisher
	now       time.Time
}

func newAuthFixture(t *testing.T) *authFixture {
	t.Helper()
	f := &authFixture{
		repo:      newFakeRepository(),
		mailer:    &mail.Recorder{},
		publisher: events.NewMockEventPublisher(discardLogger()),
		now:       time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC),
	}
	f.svc = NewAuthService(f.repo, f.mailer, f.publisher, validator.New(), discardLogger(), ServiceManagerConfig{
		SiteURL:    "https://etraincon.com",
		BcryptCost: bcrypt.MinCost,
		Clock:      func() time.Time { return f.now },
	})
	return f
}

func (f *authFixture) addUser(t *testing.T, email, password string, verified bool) *models.User {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		t.Fatal(err)
	}
	return f.repo.addUser(models.User{Username: "user", Email: email, Password: string(hash), IsVerified: verified})
}

func firstMessage(err error) string {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		return verrs[0].Message
	}
	return ""
}

func TestAuthService_Login(t *testing.T) {
	f := newAuthFixture(t)
	f.addUser(t, "ann@example.com", "secret123", true)
	f.addUser(t, "new@example.com", "secret123", false)

	tests := []struct {
		name     string
		email    string
		password string
		wantErr  error
		wantMsg  string
	}{
		{name: "success with surrounding spaces", email: "  ann@example.com ", password: "secret123"},
		{name: "missing email", email: " ", password: "x", wantMsg: "Email and password are required"},
		{name: "missing password", email: "ann@example.com", wantMsg: "Email and password are required"},
		{name: "wrong password", email: "ann@example.com", password: "nope", wantErr: ErrInvalidCredentials},
		{name: "unknown email", email: "ghost@example.com", password: "secret123", wantErr: ErrInvalidCredentials},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			user, err := f.svc.Login(context.Background(), tt.email, tt.password)
			switch {
			case tt.wantMsg != "":
				if got := firstMessage(err); got != tt.wantMsg {
					t.Errorf("Login() error = %v, want message %q", err, tt.wantMsg)
				}
			case tt.wantErr != nil:
				if !errors.Is(err, tt.wantErr) {
					t.Errorf("Login() error = %v, want %v", err, tt.wantErr)
				}
			default:
				if err != nil {
					t.Fatalf("Login() error = %v", err)
				}
				if user.Email != "ann@example.com" {
					t.Errorf("Login() user = %+v", user)
				}
			}
		})
	}

	t.Run("unverified account", func(t *testing.T) {
		_, err := f.svc.Login(context.Background(), "new@example.com", "secret123")
		var unverified *UnverifiedError
		if !errors.As(err, &unverified) || unverified.Email != "new@example.com" {
			t.Errorf("Login() error = %v, want UnverifiedError", err)
		}
	})

	t.Run("unverified with wrong password is just invalid", func(t *testing.T) {
		_, err := f.svc.Login(context.Background(), "new@example.com", "wrong")
		if !errors.Is(err, ErrInvalidCredentials) {
			t.Errorf("Login() error = %v, want ErrInvalidCredentials", err)
		}
	})
}

func TestAuthService_RegisterValidation(t *testing.T) {
	tests := []struct {
		name    string
		req     RegisterRequest
		wantMsg string
	}{
		{name: "all blank", req: RegisterRequest{}, wantMsg: "Please fill in all fields."},
		{name: "whitespace only password", req: RegisterRequest{Email: "a@b.co", Username: "ann", Password: "   "}, wantMsg: "Please fill in all fields."},
		{name: "bad email", req: RegisterRequest{Email: "nope", Username: "ann", Password: "secret1"}, wantMsg: "Invalid email format."},
		{name: "short username", req: RegisterRequest{Email: "a@b.co", Username: "ab", Password: "secret1"}, wantMsg: "Username must be between 3 and 50 characters."},
		{name: "long username", req: RegisterRequest{Email: "a@b.co", Username: strings.Repeat("x", 51), Password: "secret1"}, wantMsg: "Username must be between 3 and 50 characters."},
		{name: "short password", req: RegisterRequest{Email: "a@b.co", Username: "ann", Password: "12345"}, wantMsg: "Password must be at least 6 characters long."},
		{name: "email error wins over password", req: RegisterRequest{Email: "bad", Username: "ann", Password: "1"}, wantMsg: "Invalid email format."},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newAuthFixture(t)
			_, err := f.svc.Register(context.Background(), &tt.req)
			if got := firstMessage(err); got != tt.wantMsg {
				t.Errorf("Register() error = %v, want %q", err, tt.wantMsg)
			}
			if len(f.mailer.Messages()) != 0 {
				t.Error("mail sent for invalid registration")
			}
		})
	}
}

func TestAuthService_Register(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()

	user, err := f.svc.Register(ctx, &RegisterRequest{Email: " ann@example.com ", Username: " ann ", Password: "secret1"})
	if err != nil {
		t.Fatalf("Register() error = %v", err)
	}
	if user.Email != "ann@example.com" || user.Username != "ann" || user.IsVerified {
		t.Errorf("Register() user = %+v", user)
	}
	if user.VerificationToken == nil || len(*user.VerificationToken) != 100 {
		t.Fatalf("verification token = %v, want 100 hex chars", user.VerificationToken)
	}
	if bcrypt.CompareHashAndPassword([]byte(user.Password), []byte("secret1")) != nil {
		t.Error("stored password is not a bcrypt hash of the input")
	}

	msgs := f.mailer.Messages()
	if len(msgs) != 1 || msgs[0].Recipients[0] != "ann@example.com" {
		t.Fatalf("mails = %+v", msgs)
	}
	if want := "https://etraincon.com/api/v1/auth/verify?token=" + *user.VerificationToken; !strings.Contains(msgs[0].Body, want) {
		t.Errorf("mail body missing %q", want)
	}

	evs := f.publisher.GetPublishedEvents()
	if len(evs) != 1 || evs[0].Type != events.TopicUserRegistered {
		t.Errorf("events = %+v", evs)
	}

	if _, err := f.svc.Register(ctx, &RegisterRequest{Email: "ann@example.com", Username: "other", Password: "secret2"}); !errors.Is(err, ErrEmailTaken) {
		t.Errorf("second Register() error = %v, want ErrEmailTaken", err)
	}
	if len(f.repo.users) != 1 {
		t.Errorf("users = %d, want 1", len(f.repo.users))
	}
}

func TestAuthService_RegisterMailFailure(t *testing.T) {
	f := newAuthFixture(t)
	f.mailer.Err = errors.New("smtp down")

	user, err := f.svc.Register(context.Background(), &RegisterRequest{Email: "a@example.com", Username: "ann", Password: "secret1"})
	if !errors.Is(err, ErrVerificationMailFailed) {
		t.Fatalf("Register() error = %v, want ErrVerificationMailFailed", err)
	}
	if user == nil || len(f.repo.users) != 1 {
		t.Error("user should stay registered when the mail fails")
	}
}

func TestAuthService_RegisterDatabaseError(t *testing.T) {
	f := newAuthFixture(t)
	f.repo.failWith["user"] = errors.New("connection reset")

	_, err := f.svc.Register(context.Background(), &RegisterRequest{Email: "a@example.com", Username: "ann", Password: "secret1"})
	if !errors.Is(err, ErrDatabase) {
		t.Errorf("Register() error = %v, want ErrDatabase", err)
	}
}

func TestAuthService_VerifyIsSingleUse(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()
	token := strings.Repeat("ab", 50)
	u := f.repo.addUser(models.User{Email: "a@example.com", VerificationToken: &token})

	if got := f.svc.Verify(ctx, ""); got != VerifyMissingToken {
		t.Errorf("Verify(\"\") = %v, want VerifyMissingToken", got)
	}
	if got := f.svc.Verify(ctx, "unknown"); got != VerifyInvalid {
		t.Errorf("Verify(unknown) = %v, want VerifyInvalid", got)
	}
	if got := f.svc.Verify(ctx, token); got != VerifySuccess {
		t.Fatalf("Verify() = %v, want VerifySuccess", got)
	}
	if !f.repo.users[u.ID].IsVerified || f.repo.users[u.ID].VerificationToken != nil {
		t.Errorf("user after verify = %+v", f.repo.users[u.ID])
	}
	if got := f.svc.Verify(ctx, token); got != VerifyInvalid {
		t.Errorf("second Verify() = %v, want VerifyInvalid", got)
	}

	evs := f.publisher.GetPublishedEvents()
	if len(evs) != 1 || evs[0].Type != events.TopicUserVerified {
		t.Errorf("events = %+v", evs)
	}

	f.repo.failWith["user"] = errors.New("db down")
	if got := f.svc.Verify(ctx, "anything"); got != VerifyError {
		t.Errorf("Verify() with db error = %v, want VerifyError", got)
	}
}

func TestAuthService_PasswordResetFlow(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()
	u := f.addUser(t, "ann@example.com", "oldpassword", true)

	if err := f.svc.RequestPasswordReset(ctx, "ghost@example.com"); err != nil {
		t.Errorf("RequestPasswordReset(unknown) error = %v, want nil", err)
	}
	if len(f.publisher.GetPublishedEvents()) != 0 {
		t.Fatal("event published for unknown email")
	}

	if err := f.svc.RequestPasswordReset(ctx, " ann@example.com "); err != nil {
		t.Fatalf("RequestPasswordReset() error = %v", err)
	}
	stored := f.repo.users[u.ID]
	if stored.ResetToken == nil || len(*stored.ResetToken) != 64 {
		t.Fatalf("reset token = %v, want 64 hex chars", stored.ResetToken)
	}
	if !stored.ResetTokenExpiry.Equal(f.now.Add(time.Hour)) {
		t.Errorf("expiry = %v, want now+1h", stored.ResetTokenExpiry)
	}
	token := *stored.ResetToken

	evs := f.publisher.GetPublishedEvents()
	if len(evs) != 1 || evs[0].Type != events.TopicPasswordResetRequested {
		t.Fatalf("events = %+v", evs)
	}
	var payload events.PasswordResetRequested
	if err := evs[0].DecodeData(&payload); err != nil || payload.Token != token || payload.Email != "ann@example.com" {
		t.Errorf("payload = %+v, err = %v", payload, err)
	}

	if err := f.svc.CheckResetToken(ctx, token); err != nil {
		t.Errorf("CheckResetToken() error = %v", err)
	}

	formErrors := []struct {
		req     ResetPasswordRequest
		wantMsg string
	}{
		{ResetPasswordRequest{Password: "", ConfirmPassword: "x"}, "Please fill in both password fields."},
		{ResetPasswordRequest{Password: "newpassword", ConfirmPassword: "different"}, "The passwords do not match. Please try again."},
		{ResetPasswordRequest{Password: "short", ConfirmPassword: "short"}, "Password must be at least 8 characters long."},
	}
	for _, fe := range formErrors {
		if got := firstMessage(f.svc.ResetPassword(ctx, token, &fe.req)); got != fe.wantMsg {
			t.Errorf("ResetPassword(%+v) message = %q, want %q", fe.req, got, fe.wantMsg)
		}
	}

	if err := f.svc.ResetPassword(ctx, token, &ResetPasswordRequest{Password: "newpassword", ConfirmPassword: "newpassword"}); err != nil {
		t.Fatalf("ResetPassword() error = %v", err)
	}
	if _, err := f.svc.Login(ctx, "ann@example.com", "newpassword"); err != nil {
		t.Errorf("Login() with new password error = %v", err)
	}
	if err := f.svc.ResetPassword(ctx, token, &ResetPasswordRequest{Password: "another1", ConfirmPassword: "another1"}); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("second ResetPassword() error = %v, want ErrInvalidToken", err)
	}
}

func TestAuthService_ResetTokenExpiry(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()
	u := f.addUser(t, "ann@example.com", "oldpassword", true)

	if err := f.svc.RequestPasswordReset(ctx, "ann@example.com"); err != nil {
		t.Fatal(err)
	}
	token := *f.repo.users[u.ID].ResetToken

	f.now = f.now.Add(61 * time.Minute)
	if err := f.svc.CheckResetToken(ctx, token); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("CheckResetToken() after expiry error = %v, want ErrInvalidToken", err)
	}
	if err := f.svc.CheckResetToken(ctx, ""); !errors.Is(err, ErrMissingToken) {
		t.Errorf("CheckResetToken(\"\") error = %v, want ErrMissingToken", err)
	}
}

func TestAuthService_CurrentUser(t *testing.T) {
	f := newAuthFixture(t)
	u := f.addUser(t, "ann@example.com", "pw123456", true)

	got, err := f.svc.CurrentUser(context.Background(), u.ID)
	if err != nil || got.ID != u.ID {
		t.Errorf("CurrentUser() = %+v, %v", got, err)
	}
	if _, err := f.svc.CurrentUser(context.Background(), 999); !errors.Is(err, ErrUserNotFound) {
		t.Errorf("CurrentUser(missing) error = %v, want ErrUserNotFound", err)
	}
}
