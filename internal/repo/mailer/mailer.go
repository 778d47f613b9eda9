// Package mailer delivers rendered emails over SMTP.
package mailer

import (
	"bytes"
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"mime"
	"mime/quotedprintable"
	"net"
	"net/smtp"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/kapimkk/Projeto-Agencia-Marketing/internal/config"
	"github.com/kapimkk/Projeto-Agencia-Marketing/internal/models"
)

type EncryptionMode string

const (
	EncNone     EncryptionMode = "NONE"
	EncStartTLS EncryptionMode = "STARTTLS"
	EncSSLTLS   EncryptionMode = "SSL/TLS"
)

var ErrDisabled = errors.New("mailer: smtp host not configured")

type Sender interface {
	Send(ctx context.Context, mail models.Mail) error
	Enabled() bool
}

type smtpSender struct {
	host     string
	port     int
	username string
	password string
	from     string
	fromName string
	enc      EncryptionMode
}

func New(cfg config.MailConfig) Sender {
	mode := EncryptionMode(strings.ToUpper(strings.TrimSpace(cfg.Encryption)))
	if mode != EncNone && mode != EncStartTLS && mode != EncSSLTLS {
		mode = EncStartTLS
	}
	from := cfg.From
	if from == "" {
		from = cfg.Username
	}
	return &smtpSender{
		host:     cfg.Host,
		port:     cfg.Port,
		username: cfg.Username,
		password: cfg.Password,
		from:     from,
		fromName: cfg.FromName,
		enc:      mode,
	}
}

func (s *smtpSender) Enabled() bool {
	return s.host != ""
}

func (s *smtpSender) Send(ctx context.Context, mail models.Mail) error {
	if !s.Enabled() {
		return ErrDisabled
	}
	if len(mail.To) == 0 {
		return errors.New("mailer: no recipients")
	}
	msg := buildMessage(s.fromName, s.from, mail.To, mail.Subject, mail.HTMLBody, time.Now())
	address := net.JoinHostPort(s.host, fmt.Sprint(s.port))

	var auth smtp.Auth
	if s.username != "" {
		auth = smtp.PlainAuth("", s.username, s.password, s.host)
	}

	if s.enc == EncNone {
		if err := smtp.SendMail(address, auth, s.from, mail.To, msg); err != nil {
			return fmt.Errorf("mailer: sendmail: %w", err)
		}
		return nil
	}

	d := net.Dialer{Timeout: 15 * time.Second}
	if deadline, ok := ctx.Deadline(); ok {
		d.Deadline = deadline
	}

	var conn net.Conn
	var err error
	if s.enc == EncSSLTLS {
		conn, err = (&tls.Dialer{NetDialer: &d, Config: &tls.Config{ServerName: s.host}}).DialContext(ctx, "tcp", address)
	} else {
		conn, err = d.DialContext(ctx, "tcp", address)
	}
	if err != nil {
		return fmt.Errorf("mailer: dial: %w", err)
	}
	defer conn.Close()

	c, err := smtp.NewClient(conn, s.host)
	if err != nil {
		return fmt.Errorf("mailer: new client: %w", err)
	}
	defer c.Close()

	if s.enc == EncStartTLS {
		if ok, _ := c.Extension("STARTTLS"); ok {
			if err := c.StartTLS(&tls.Config{ServerName: s.host}); err != nil {
				return fmt.Errorf("mailer: starttls: %w", err)
			}
		}
	}
	if auth != nil {
		if err := c.Auth(auth); err != nil {
			return fmt.Errorf("mailer: auth: %w", err)
		}
	}
	if err := c.Mail(s.from); err != nil {
		return fmt.Errorf("mailer: MAIL FROM: %w", err)
	}
	for _, rcpt := range mail.To {
		if err := c.Rcpt(strings.TrimSpace(rcpt)); err != nil {
			return fmt.Errorf("mailer: RCPT TO %s: %w", rcpt, err)
		}
	}
	w, err := c.Data()
	if err != nil {
		return fmt.Errorf("mailer: DATA: %w", err)
	}
	if _, err := w.Write(msg); err != nil {
		_ = w.Close()
		return fmt.Errorf("mailer: write body: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("mailer: close data: %w", err)
	}
	return c.Quit()
}

func buildMessage(fromName, fromAddr string, to []string, subject, htmlBody string, at time.Time) []byte {
	from := fromAddr
	if strings.TrimSpace(fromName) != "" {
		from = fmt.Sprintf("%s <%s>", mime.QEncoding.Encode("utf-8", fromName), fromAddr)
	}
	domain := "localhost"
	if i := strings.LastIndex(fromAddr, "@"); i >= 0 {
		domain = fromAddr[i+1:]
	}

	var buf bytes.Buffer
	writeHeader := func(k, v string) {
		buf.WriteString(k + ": " + v + "\r\n")
	}
	writeHeader("From", from)
	writeHeader("To", strings.Join(to, ", "))
	writeHeader("Subject", mime.QEncoding.Encode("utf-8", subject))
	writeHeader("Date", at.Format(time.RFC1123Z))
	writeHeader("Message-ID", fmt.Sprintf("<%s@%s>", uuid.NewString(), domain))
	writeHeader("MIME-Version", "1.0")
	writeHeader("Content-Type", "text/html; charset=UTF-8")
	writeHeader("Content-Transfer-Encoding", "quoted-printable")
	buf.WriteString("\r\n")

	qp := quotedprintable.NewWriter(&buf)
	_, _ = qp.Write([]byte(htmlBody))
	_ = qp.Close()
	return buf.Bytes()
}
