package mailer

import (
	"bytes"
	"context"
	"crypto/rand"
	"crypto/tls"
	"encoding/hex"
	"fmt"
	"mime"
	"mime/quotedprintable"
	"net"
	"net/smtp"
	"strconv"
	"strings"
	"time"

	"github.com/compupay/hr-backend/internal/core/ports"
)

// Encryption selects how the SMTP connection is secured.
type Encryption string

const (
	EncNone     Encryption = "NONE"
	EncStartTLS Encryption = "STARTTLS"
	EncSSLTLS   Encryption = "SSL/TLS"
)

const defaultDialTimeout = 15 * time.Second

// Config holds the SMTP relay settings.
type Config struct {
	Host       string
	Port       int
	Username   string
	Password   string
	From       string
	Encryption string
}

// SMTPMailer implements ports.Mailer against an SMTP relay.
type SMTPMailer struct {
	cfg Config
	enc Encryption
}

func NewSMTPMailer(cfg Config) *SMTPMailer {
	enc := Encryption(strings.ToUpper(strings.TrimSpace(cfg.Encryption)))
	switch enc {
	case EncNone, EncStartTLS, EncSSLTLS:
	default:
		enc = EncStartTLS
	}
	return &SMTPMailer{cfg: cfg, enc: enc}
}

func (m *SMTPMailer) Send(ctx context.Context, msg ports.MailMessage) error {
	if strings.TrimSpace(msg.To) == "" {
		return fmt.Errorf("mailer: missing recipient")
	}
	body, err := buildMessage(m.cfg.From, msg, time.Now())
	if err != nil {
		return err
	}

	d := net.Dialer{Timeout: defaultDialTimeout}
	if deadline, ok := ctx.Deadline(); ok {
		if until := time.Until(deadline); until > 0 {
			d.Timeout = until
		}
	}
	address := net.JoinHostPort(m.cfg.Host, strconv.Itoa(m.cfg.Port))

	var conn net.Conn
	if m.enc == EncSSLTLS {
		conn, err = tls.DialWithDialer(&d, "tcp", address, &tls.Config{ServerName: m.cfg.Host})
	} else {
		conn, err = d.DialContext(ctx, "tcp", address)
	}
	if err != nil {
		return fmt.Errorf("mailer: dial %s: %w", address, err)
	}
	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	}

	c, err := smtp.NewClient(conn, m.cfg.Host)
	if err != nil {
		_ = conn.Close()
		return fmt.Errorf("mailer: new client: %w", err)
	}
	defer c.Close()

	if m.enc == EncStartTLS {
		if ok, _ := c.Extension("STARTTLS"); ok {
			if err := c.StartTLS(&tls.Config{ServerName: m.cfg.Host}); err != nil {
				return fmt.Errorf("mailer: starttls: %w", err)
			}
		}
	}
	if m.cfg.Username != "" {
		if err := c.Auth(smtp.PlainAuth("", m.cfg.Username, m.cfg.Password, m.cfg.Host)); err != nil {
			return fmt.Errorf("mailer: auth: %w", err)
		}
	}
	if err := c.Mail(m.cfg.From); err != nil {
		return fmt.Errorf("mailer: MAIL FROM: %w", err)
	}
	if err := c.Rcpt(strings.TrimSpace(msg.To)); err != nil {
		return fmt.Errorf("mailer: RCPT TO %s: %w", msg.To, err)
	}
	w, err := c.Data()
	if err != nil {
		return fmt.Errorf("mailer: DATA: %w", err)
	}
	if _, err := w.Write(body); err != nil {
		_ = w.Close()
		return fmt.Errorf("mailer: write body: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("mailer: close data: %w", err)
	}
	return c.Quit()
}

// buildMessage renders msg as RFC 5322 text. A message with both bodies is
// sent as multipart/alternative.
func buildMessage(fromAddr string, msg ports.MailMessage, now time.Time) ([]byte, error) {
	from := fromAddr
	if name := strings.TrimSpace(msg.FromName); name != "" {
		from = fmt.Sprintf("%s <%s>", mime.QEncoding.Encode("utf-8", name), fromAddr)
	}

	var buf bytes.Buffer
	header := func(k, v string) { fmt.Fprintf(&buf, "%s: %s\r\n", k, v) }
	header("From", from)
	header("To", msg.To)
	header("Subject", mime.QEncoding.Encode("utf-8", msg.Subject))
	header("Date", now.Format(time.RFC1123Z))
	header("MIME-Version", "1.0")

	switch {
	case msg.Text != "" && msg.HTML != "":
		boundary, err := newBoundary()
		if err != nil {
			return nil, fmt.Errorf("mailer: boundary: %w", err)
		}
		header("Content-Type", fmt.Sprintf(`multipart/alternative; boundary="%s"`, boundary))
		buf.WriteString("\r\n")
		if err := writePart(&buf, boundary, "text/plain", msg.Text); err != nil {
			return nil, err
		}
		if err := writePart(&buf, boundary, "text/html", msg.HTML); err != nil {
			return nil, err
		}
		fmt.Fprintf(&buf, "--%s--\r\n", boundary)
	case msg.HTML != "":
		if err := writeSingle(&buf, "text/html", msg.HTML); err != nil {
			return nil, err
		}
	default:
		if err := writeSingle(&buf, "text/plain", msg.Text); err != nil {
			return nil, err
		}
	}
	return buf.Bytes(), nil
}

func writeSingle(buf *bytes.Buffer, contentType, body string) error {
	fmt.Fprintf(buf, "Content-Type: %s; charset=UTF-8\r\n", contentType)
	buf.WriteString("Content-Transfer-Encoding: quoted-printable\r\n\r\n")
	return writeQP(buf, body)
}

func writePart(buf *bytes.Buffer, boundary, contentType, body string) error {
	fmt.Fprintf(buf, "--%s\r\n", boundary)
	if err := writeSingle(buf, contentType, body); err != nil {
		return err
	}
	buf.WriteString("\r\n")
	return nil
}

func writeQP(buf *bytes.Buffer, body string) error {
	w := quotedprintable.NewWriter(buf)
	if _, err := w.Write([]byte(body)); err != nil {
		return fmt.Errorf("mailer: encode body: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("mailer: encode body: %w", err)
	}
	return nil
}

func newBoundary() (string, error) {
	b := make([]byte, 12)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return "compupay-" + hex.EncodeToString(b), nil
}
