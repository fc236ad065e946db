package handlers

import "html/template"

const (
	pageVerify        = "verify.html"
	pageResetPassword = "reset_password.html"
)

// Page messages shown by the verification and password reset pages.
const (
	msgVerified          = "Your email has been verified successfully! You can now log in."
	msgVerifyFailed      = "An error occurred while verifying your account. Please try again."
	msgVerifyInvalid     = "This verification link is invalid or has already been used."
	msgVerifyNoToken     = "No verification token was provided. Please check the link in your email."
	msgResetNoToken      = "No reset token provided. Please check your link."
	msgResetInvalid      = "This password reset link is invalid or has expired. Please request a new one."
	msgResetDone         = "Your password has been reset successfully! You can now log in with your new password."
	msgResetUnexpected   = "An unexpected error occurred. Please try again."
	msgForgotPasswordAck = "If an account with that email exists, a password reset link has been sent."
	msgRegistered        = "Registration successful! Please check your email to activate your account."
)

const pageStyle = `
body { font-family: -apple-system, BlinkMacSystemFont, "Segoe UI", Roboto, Helvetica, Arial, sans-serif; max-width: 600px; margin: 50px auto; padding: 20px; background-color: #f4f4f9; color: #333; }
.container { background-color: #fff; padding: 30px; border: 1px solid #ddd; border-radius: 8px; box-shadow: 0 2px 4px rgba(0,0,0,0.1); }
form { display: flex; flex-direction: column; gap: 15px; }
input { padding: 10px; border-radius: 5px; border: 1px solid #ddd; }
button { padding: 12px; background-color: #007bff; color: white; border: none; cursor: pointer; border-radius: 5px; font-size: 16px; }
.message { padding: 15px; margin-bottom: 20px; border-radius: 5px; }
.message.success { background-color: #d4edda; color: #155724; border: 1px solid #c3e6cb; }
.message.error { background-color: #f8d7da; color: #721c24; border: 1px solid #f5c6cb; }
`

// pageTemplates are rendered through gin's HTML renderer. html/template escapes every
// interpolated value, including the token in the form action.
var pageTemplates = template.Must(template.New("pages").Parse(`
{{define "head"}}<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="UTF-8">
<meta name="viewport" content="width=device-width, initial-scale=1.0">
<title>{{.Title}} - {{.AppName}}</title>
<style>` + pageStyle + `</style>
</head>
<body>
<div class="container">
<h2>{{.Title}}</h2>
{{end}}

{{define "foot"}}</div>
</body>
</html>
{{end}}

{{define "` + pageVerify + `"}}{{template "head" .}}
<div class="message {{if .Success}}success{{else}}error{{end}}">{{.Message}}</div>
{{if .LoginURL}}<p><a href="{{.LoginURL}}">Go to Login Page</a></p>{{end}}
{{template "foot" .}}{{end}}

{{define "` + pageResetPassword + `"}}{{template "head" .}}
{{if .Message}}<div class="message success">{{.Message}}</div>
{{if .LoginURL}}<p><a href="{{.LoginURL}}">Proceed to Login</a></p>{{end}}{{end}}
{{if .Error}}<div class="message error">{{.Error}}</div>{{end}}
{{if .ShowForm}}<p>Please enter your new password below.</p>
<form action="{{.Action}}" method="post">
<label for="password">New Password:</label>
<input type="password" id="password" name="password" required>
<label for="confirm_password">Confirm New Password:</label>
<input type="password" id="confirm_password" name="confirm_password" required>
<button type="submit">Reset Password</button>
</form>{{end}}
{{template "foot" .}}{{end}}
`))

type verifyPage struct {
	Title    string
	AppName  string
	Message  string
	Success  bool
	LoginURL string
}

type resetPage struct {
	Title    string
	AppName  string
	Message  string
	Error    string
	ShowForm bool
	Action   string
	LoginURL string
}
