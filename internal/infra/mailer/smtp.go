package mailer

import (
	"context"
	"crypto/tls"
	"fmt"
	"mime"
	"net"
	netmail "net/mail"
	"net/smtp"
	"sort"
	"strconv"
	"strings"
	"time"

	"discount_reminder/internal/domain/mail"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// SMTPConfig holds the outbound SMTP server settings.
type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	UseTLS   bool // STARTTLS before authenticating
}

// SMTPSender delivers mail.Message values through an SMTP relay.
type SMTPSender struct {
	config SMTPConfig
	logger *logrus.Entry
	dialer *net.Dialer
	now    func() time.Time
}

func NewSMTPSender(cfg SMTPConfig, logger *logrus.Entry) *SMTPSender {
	return &SMTPSender{
		config: cfg,
		logger: logger.WithField("mail_driver", "smtp"),
		dialer: &net.Dialer{Timeout: 30 * time.Second},
		now:    time.Now,
	}
}

// Send runs one SMTP conversation per message. The connection is bound to
// ctx: its deadline becomes the socket deadline and cancellation closes the
// connection.
func (s *SMTPSender) Send(ctx context.Context, msg *mail.Message) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("context cancelled before sending email: %w", err)
	}

	body := buildMessage(msg, s.config.Host, s.now())
	addr := net.JoinHostPort(s.config.Host, strconv.Itoa(s.config.Port))

	var auth smtp.Auth
	if s.config.Username != "" && s.config.Password != "" {
		auth = smtp.PlainAuth("", s.config.Username, s.config.Password, s.config.Host)
	}

	s.logger.WithFields(logrus.Fields{"to": msg.To, "addr": addr}).Debug("Sending email via SMTP")
	if err := s.send(ctx, addr, auth, msg.FromEmail, msg.To, body); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return fmt.Errorf("smtp send to %s: %w: %w", msg.To, ctxErr, err)
		}
		return fmt.Errorf("smtp send to %s: %w", msg.To, err)
	}
	return nil
}

func (s *SMTPSender) send(ctx context.Context, addr string, auth smtp.Auth, from, to string, body []byte) error {
	conn, err := s.dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to connect to SMTP server: %w", err)
	}
	if deadline, ok := ctx.Deadline(); ok {
		if err = conn.SetDeadline(deadline); err != nil {
			conn.Close()
			return fmt.Errorf("failed to set connection deadline: %w", err)
		}
	}
	stop := context.AfterFunc(ctx, func() { conn.Close() })
	defer stop()

	client, err := smtp.NewClient(conn, s.config.Host)
	if err != nil {
		conn.Close()
		return fmt.Errorf("failed to connect to SMTP server: %w", err)
	}
	defer client.Close()

	if s.config.UseTLS {
		if err = client.StartTLS(&tls.Config{ServerName: s.config.Host}); err != nil {
			return fmt.Errorf("failed to start TLS: %w", err)
		}
	}
	if auth != nil {
		if ok, _ := client.Extension("AUTH"); ok {
			if err = client.Auth(auth); err != nil {
				return fmt.Errorf("SMTP authentication failed: %w", err)
			}
		}
	}
	if err = client.Mail(from); err != nil {
		return fmt.Errorf("failed to set sender: %w", err)
	}
	if err = client.Rcpt(to); err != nil {
		return fmt.Errorf("failed to set recipient %s: %w", to, err)
	}

	w, err := client.Data()
	if err != nil {
		return fmt.Errorf("failed to open data writer: %w", err)
	}
	if _, err = w.Write(body); err != nil {
		return fmt.Errorf("failed to write message: %w", err)
	}
	if err = w.Close(); err != nil {
		return fmt.Errorf("failed to close data writer: %w", err)
	}
	return client.Quit()
}

// buildMessage renders msg as a plain-text RFC 5322 message.
func buildMessage(msg *mail.Message, host string, now time.Time) []byte {
	from := netmail.Address{Name: msg.FromName, Address: msg.FromEmail}

	var b strings.Builder
	writeHeader(&b, "From", from.String())
	writeHeader(&b, "To", msg.To)
	writeHeader(&b, "Subject", mime.QEncoding.Encode("utf-8", msg.Subject))
	writeHeader(&b, "Date", now.Format(time.RFC1123Z))
	writeHeader(&b, "Message-ID", fmt.Sprintf("<%s@%s>", uuid.NewString(), host))

	keys := make([]string, 0, len(msg.Headers))
	for k := range msg.Headers {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		writeHeader(&b, k, msg.Headers[k])
	}

	writeHeader(&b, "MIME-Version", "1.0")
	writeHeader(&b, "Content-Type", "text/plain; charset=UTF-8")
	b.WriteString("\r\n")
	b.WriteString(strings.ReplaceAll(strings.ReplaceAll(msg.Body, "\r\n", "\n"), "\n", "\r\n"))
	return []byte(b.String())
}

var headerSanitizer = strings.NewReplacer("\r", "", "\n", "")

func writeHeader(b *strings.Builder, name, value string) {
	b.WriteString(name)
	b.WriteString(": ")
	b.WriteString(headerSanitizer.Replace(value))
	b.WriteString("\r\n")
}
