package handlers

import (
	"errors"
	"net/http"
	"net/url"

	"github.com/gin-gonic/gin"

	"github.com/etraincon/learning-service/internal/models"
	"github.com/etraincon/learning-service/internal/services"
	"github.com/etraincon/learning-service/internal/sessions"
	"github.com/etraincon/learning-service/internal/utils"
	"github.com/etraincon/learning-service/internal/validator"
)

type AuthHandler struct {
	BaseHandler
	authService services.AuthService
	sessions    *sessions.Manager
	appName     string
	loginURL    string
}

func NewAuthHandler(authService services.AuthService, manager *sessions.Manager, logger utils.Logger, appName, loginURL string) *AuthHandler {
	return &AuthHandler{
		BaseHandler: NewBaseHandler(logger),
		authService: authService,
		sessions:    manager,
		appName:     appName,
		loginURL:    loginURL,
	}
}

// Login checks credentials and starts a session.
// @Router /auth/login [post]
func (h *AuthHandler) Login(c *gin.Context) {
	var req validator.LoginRequest
	// An unreadable body is treated as empty and reported as missing fields.
	_ = c.ShouldBind(&req)

	user, err := h.authService.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	if err := h.sessions.Login(c.Writer, c.Request, user); err != nil {
		h.LogError(c, err, "Failed to start session", "user_id", user.ID)
		respondError(c, http.StatusInternalServerError, CodeInternal, "Internal server error")
		return
	}

	h.LogRequest(c, "User logged in", "user_id", user.ID)
	c.JSON(http.StatusOK, models.LoginResponse{OK: true, User: summary(user)})
}

// Logout always succeeds, with or without a session.
// @Router /auth/logout [post]
func (h *AuthHandler) Logout(c *gin.Context) {
	if err := h.sessions.Logout(c.Writer, c.Request); err != nil {
		h.LogError(c, err, "Failed to clear session")
	}
	c.JSON(http.StatusOK, models.MessageResponse{OK: true})
}

// Register creates an unverified account and mails the activation link.
// @Router /auth/register [post]
func (h *AuthHandler) Register(c *gin.Context) {
	var req validator.RegisterRequest
	_ = c.ShouldBind(&req)

	user, err := h.authService.Register(c.Request.Context(), &req)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	h.LogRequest(c, "User registered", "user_id", user.ID)
	c.JSON(http.StatusOK, models.MessageResponse{OK: true, Message: msgRegistered})
}

// Me returns the user bound to the session.
// @Router /auth/me [get]
func (h *AuthHandler) Me(c *gin.Context) {
	user, err := h.authService.CurrentUser(c.Request.Context(), userID(c))
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, models.LoginResponse{OK: true, User: summary(user)})
}

// Verify consumes an email verification token and renders the outcome.
// @Router /auth/verify [get]
func (h *AuthHandler) Verify(c *gin.Context) {
	page := verifyPage{Title: "Email Verification", AppName: h.appName}
	status := http.StatusOK

	switch h.authService.Verify(c.Request.Context(), c.Query("token")) {
	case services.VerifySuccess:
		page.Message, page.Success, page.LoginURL = msgVerified, true, h.loginURL
	case services.VerifyMissingToken:
		page.Message, status = msgVerifyNoToken, http.StatusBadRequest
	case services.VerifyInvalid:
		page.Message, status = msgVerifyInvalid, http.StatusBadRequest
	default:
		page.Message, status = msgVerifyFailed, http.StatusInternalServerError
	}

	c.HTML(status, pageVerify, page)
}

// ForgotPassword answers the same way whether or not the email is registered.
// @Router /auth/forgot-password [post]
func (h *AuthHandler) ForgotPassword(c *gin.Context) {
	var req validator.ForgotPasswordRequest
	_ = c.ShouldBind(&req)

	if err := h.authService.RequestPasswordReset(c.Request.Context(), req.Email); err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, models.MessageResponse{OK: true, Message: msgForgotPasswordAck})
}

// ResetPasswordForm shows the new-password form for a valid token.
// @Router /auth/reset-password [get]
func (h *AuthHandler) ResetPasswordForm(c *gin.Context) {
	token := c.Query("token")
	page := h.resetPage(token)

	err := h.authService.CheckResetToken(c.Request.Context(), token)
	if err != nil {
		h.renderResetError(c, page, err)
		return
	}

	page.ShowForm = true
	c.HTML(http.StatusOK, pageResetPassword, page)
}

// ResetPassword sets the new password. Form errors re-render the form.
// @Router /auth/reset-password [post]
func (h *AuthHandler) ResetPassword(c *gin.Context) {
	token := c.Query("token")
	page := h.resetPage(token)

	req := validator.ResetPasswordRequest{
		Password:        c.PostForm("password"),
		ConfirmPassword: c.PostForm("confirm_password"),
	}

	err := h.authService.ResetPassword(c.Request.Context(), token, &req)
	if err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			page.Error = verrs[0].Message
			page.ShowForm = true
			c.HTML(http.StatusBadRequest, pageResetPassword, page)
			return
		}
		h.renderResetError(c, page, err)
		return
	}

	h.LogRequest(c, "Password reset completed")
	page.Message = msgResetDone
	page.LoginURL = h.loginURL
	c.HTML(http.StatusOK, pageResetPassword, page)
}

func (h *AuthHandler) resetPage(token string) resetPage {
	return resetPage{
		Title:   "Reset Your Password",
		AppName: h.appName,
		Action:  "?token=" + url.QueryEscape(token),
	}
}

func (h *AuthHandler) renderResetError(c *gin.Context, page resetPage, err error) {
	switch {
	case errors.Is(err, services.ErrMissingToken):
		page.Error = msgResetNoToken
		c.HTML(http.StatusBadRequest, pageResetPassword, page)
	case errors.Is(err, services.ErrInvalidToken):
		page.Error = msgResetInvalid
		c.HTML(http.StatusBadRequest, pageResetPassword, page)
	default:
		h.LogError(c, err, "Password reset failed")
		page.Error = msgResetUnexpected
		c.HTML(http.StatusInternalServerError, pageResetPassword, page)
	}
}

func summary(u *models.User) models.UserSummary {
	return models.UserSummary{ID: u.ID, Username: u.Username, Email: u.Email}
}
