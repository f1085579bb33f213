package mail

import "context"

// Message is a single plain-text e-mail.
type Message struct {
	FromName  string
	FromEmail string
	To        string
	Subject   string
	Body      string
	Headers   map[string]string // extra headers, e.g. X-Discount-ID
}

// Sender defines an interface for delivering e-mail.
// This keeps the reminder independent of the transport (SMTP, SES).
type Sender interface {
	Send(ctx context.Context, msg *Message) error
}
