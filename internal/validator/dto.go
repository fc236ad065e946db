package validator

// LoginRequest accepts JSON or form bodies.
type LoginRequest struct {
	Email    string `json:"email" form:"email"`
	Password string `json:"password" form:"password"`
}

// RegisterRequest fields are checked in the order the user sees errors:
// presence first, then email, username and password.
type RegisterRequest struct {
	Email    string `json:"email" form:"email" validate:"required,email"`
	Username string `json:"username" form:"username" validate:"required,username"`
	Password string `json:"password" form:"password" validate:"required,password_register"`
}

type ForgotPasswordRequest struct {
	Email string `json:"email" form:"email"`
}

type ResetPasswordRequest struct {
	Password        string `form:"password" validate:"required,password_reset"`
	ConfirmPassword string `form:"confirm_password" validate:"required,eqfield=Password"`
}

type GenerateQuizRequest struct {
	CourseID int64 `json:"course_id" form:"course_id" validate:"gt=0"`
}
