package mail

import (
	"context"
	"errors"
	"fmt"

	gomail "github.com/wneessen/go-mail"
)

// Message is an outgoing notification mail with a plain text body and an
// HTML alternative.
type Message struct {
	Subject    string
	Recipients []string
	Text       string
	HTML       string
}

// Sender delivers messages. Implementations must return a
// RecipientsRefusedError when the transport rejects the recipients, so
// callers can treat that one failure class as non-fatal.
type Sender interface {
	Send(ctx context.Context, message Message) error
}

// RecipientsRefusedError reports that the mail transport refused the
// message's recipients.
type RecipientsRefusedError struct {
	Recipients []string
}

func (e RecipientsRefusedError) Error() string {
	return fmt.Sprintf("recipients refused: %v", e.Recipients)
}

// IsRecipientsRefused reports whether err is a recipients-refused failure.
func IsRecipientsRefused(err error) bool {
	var refused RecipientsRefusedError
	return errors.As(err, &refused)
}

// SMTPSender sends messages through an SMTP server.
type SMTPSender struct {
	host     string
	port     int
	username string
	password string
	sender   string
	useTLS   bool
}

func NewSMTPSender(host string, port int, username, password, sender string, useTLS bool) *SMTPSender {
	return &SMTPSender{
		host:     host,
		port:     port,
		username: username,
		password: password,
		sender:   sender,
		useTLS:   useTLS,
	}
}

func (s *SMTPSender) Send(ctx context.Context, message Message) error {
	msg := gomail.NewMsg()
	if err := msg.From(s.sender); err != nil {
		return fmt.Errorf("set sender %q: %w", s.sender, err)
	}
	if err := msg.To(message.Recipients...); err != nil {
		return fmt.Errorf("set recipients: %w", err)
	}
	msg.Subject(message.Subject)
	msg.SetBodyString(gomail.TypeTextPlain, message.Text)
	if message.HTML != "" {
		msg.AddAlternativeString(gomail.TypeTextHTML, message.HTML)
	}

	options := []gomail.Option{
		gomail.WithPort(s.port),
	}
	if s.username != "" {
		options = append(options,
			gomail.WithSMTPAuth(gomail.SMTPAuthPlain),
			gomail.WithUsername(s.username),
			gomail.WithPassword(s.password),
		)
	}
	if s.useTLS {
		options = append(options, gomail.WithTLSPolicy(gomail.TLSMandatory))
	} else {
		options = append(options, gomail.WithTLSPolicy(gomail.TLSOpportunistic))
	}
	client, err := gomail.NewClient(s.host, options...)
	if err != nil {
		return fmt.Errorf("smtp client for %s: %w", s.host, err)
	}

	if err := client.DialAndSendWithContext(ctx, msg); err != nil {
		var sendErr *gomail.SendError
		if errors.As(err, &sendErr) && sendErr.Reason == gomail.ErrSMTPRcptTo {
			return RecipientsRefusedError{Recipients: message.Recipients}
		}
		return fmt.Errorf("send mail via %s: %w", s.host, err)
	}
	return nil
}
