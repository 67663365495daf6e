// Package mail delivers one-time verification codes and generates them.
package mail

import (
	"context"
	"crypto/rand"
	"fmt"
	"math/big"

	gomail "github.com/wneessen/go-mail"

	"github.com/scorekeep/scorekeep/internal/apperr"
)

// TestCode is the fixed code substituted when a request carries the server's
// bypass secret. No mail is sent in that mode.
const TestCode = "1234"

// Sender delivers a verification code to an address. A delivery failure must
// abort the issuing step: no cookie is set for a code nobody received.
type Sender interface {
	SendCode(ctx context.Context, to, code string) error
}

// GenerateCode returns a random 4-digit code, zero padded.
func GenerateCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(10000))
	if err != nil {
		return "", fmt.Errorf("mail: generate code: %w", err)
	}
	return fmt.Sprintf("%04d", n), nil
}

// SMTP sends verification mail through an authenticated SMTP relay.
type SMTP struct {
	client *gomail.Client
	from   string
}

// NewSMTP dials nothing; the connection is established per send.
func NewSMTP(host string, port int, username, password, from string) (*SMTP, error) {
	client, err := gomail.NewClient(host,
		gomail.WithPort(port),
		gomail.WithSMTPAuth(gomail.SMTPAuthPlain),
		gomail.WithUsername(username),
		gomail.WithPassword(password),
		gomail.WithTLSPolicy(gomail.TLSMandatory),
	)
	if err != nil {
		return nil, fmt.Errorf("mail: client: %w", err)
	}
	return &SMTP{client: client, from: from}, nil
}

// SendCode mails the verification code. Failures surface as a generic server
// error so transport details never reach a client.
func (s *SMTP) SendCode(ctx context.Context, to, code string) error {
	msg := gomail.NewMsg()
	if err := msg.From(s.from); err != nil {
		return apperr.Server("Operation Failed", "Something went wrong while sending emails")
	}
	if err := msg.To(to); err != nil {
		return apperr.Server("Operation Failed", "Something went wrong while sending emails")
	}
	msg.Subject("Verify your email")
	msg.SetBodyString(gomail.TypeTextPlain, fmt.Sprintf("Your verification code is %s", code))

	if err := s.client.DialAndSendWithContext(ctx, msg); err != nil {
		return apperr.Server("Operation Failed", "Something went wrong while sending emails")
	}
	return nil
}

var _ Sender = (*SMTP)(nil)
