// Package mailer delivers account emails. The API process either sends
// directly over SMTP or publishes mail jobs to a broker consumed by the
// emailworker command. Dispatch is fire-and-forget from the caller's view.
package mailer

import "context"

// Message is a single outbound email.
type Message struct {
	To      []string `json:"to"`
	Subject string   `json:"subject"`
	Body    string   `json:"body"`
}

// Mailer sends a message through some transport.
type Mailer interface {
	Send(ctx context.Context, msg Message) error
}

// VerificationMessage builds the email carrying the account-verification link.
func VerificationMessage(name, email, link string) Message {
	return Message{
		To:      []string{email},
		Subject: "Verify your email",
		Body:    renderBody(verificationBody, bodyData{Name: name, Link: link}),
	}
}

// PasswordResetMessage builds the email carrying the password-reset link.
func PasswordResetMessage(email, link string) Message {
	return Message{
		To:      []string{email},
		Subject: "Reset your password",
		Body:    renderBody(resetBody, bodyData{Link: link}),
	}
}
