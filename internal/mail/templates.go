package mail

import (
	"bytes"
	"fmt"
	"net/url"
	"text/template"
)

const (
	VerificationSubject  = "Activate your account"
	PasswordResetSubject = "Reset your password"
)

var verificationTmpl = template.Must(template.New("verify").Parse(
	`Hello {{.Username}},

Thank you for registering. Please click the link below to activate your account:

{{.Link}}

If you did not create an account, you can ignore this email.
`))

var passwordResetTmpl = template.Must(template.New("reset").Parse(
	`Hello {{.Username}},

We received a request to reset your password. Click the link below to choose a new one:

{{.Link}}

This link expires in {{.ExpiresIn}}. If you did not ask for a reset, you can ignore this email.
`))

type templateData struct {
	Username  string
	Link      string
	ExpiresIn string
}

// VerificationLink is the account activation URL for token.
func VerificationLink(siteURL, token string) string {
	return fmt.Sprintf("%s/api/v1/auth/verify?token=%s", siteURL, url.QueryEscape(token))
}

// PasswordResetLink is the reset form URL for token.
func PasswordResetLink(siteURL, token string) string {
	return fmt.Sprintf("%s/api/v1/auth/reset-password?token=%s", siteURL, url.QueryEscape(token))
}

func VerificationBody(username, link string) (string, error) {
	return render(verificationTmpl, templateData{Username: username, Link: link})
}

func PasswordResetBody(username, link, expiresIn string) (string, error) {
	return render(passwordResetTmpl, templateData{Username: username, Link: link, ExpiresIn: expiresIn})
}

func render(t *template.Template, data templateData) (string, error) {
	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("failed to render %s mail: %w", t.Name(), err)
	}
	return buf.String(), nil
}
