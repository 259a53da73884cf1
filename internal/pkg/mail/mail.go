package mail

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"mime"
	"mime/multipart"
	"net"
	"net/http"
	"net/smtp"
	"net/textproto"
	"strconv"
	"strings"
	"time"

	"github.com/edgeflowers/newsletter/internal/config"
)

const (
	implicitTLSPort   = 465
	smtpDialTimeout   = 15 * time.Second
	smtpTimeout       = time.Minute
	defaultResendURL  = "https://api.resend.com/emails"
	plainTextFallback = "This email requires an HTML-capable client."
)

// ErrNotConfigured is returned by Send when neither Resend nor a complete
// SMTP login is configured.
var ErrNotConfigured = errors.New("mail delivery is not configured")

type Config struct {
	Host      string
	Port      int
	User      string
	Pass      string
	From      string
	FromName  string
	ReplyTo   string
	ResendKey string
}

// FromAppConfig maps the runtime mail settings.
func FromAppConfig(cfg config.MailConfig) Config {
	return Config{
		Host:      cfg.Host,
		Port:      cfg.Port,
		User:      cfg.User,
		Pass:      cfg.Pass,
		From:      cfg.From,
		FromName:  cfg.FromName,
		ReplyTo:   cfg.ReplyTo,
		ResendKey: cfg.ResendKey,
	}
}

// Message is a single email to send.
type Message struct {
	To      string
	Subject string
	HTML    string
}

// Sender sends emails via Resend when an API key is set, otherwise SMTP.
type Sender struct {
	cfg        Config
	resendURL  string
	httpClient *http.Client
}

func New(cfg Config) *Sender {
	return &Sender{
		cfg:        cfg,
		resendURL:  defaultResendURL,
		httpClient: &http.Client{Timeout: 15 * time.Second},
	}
}

// Enabled reports whether Send can deliver anything.
func (s *Sender) Enabled() bool {
	if s.cfg.ResendKey != "" {
		return true
	}
	return s.cfg.Host != "" && s.cfg.User != "" && s.cfg.Pass != ""
}

func (s *Sender) fromAddress() string {
	if s.cfg.From != "" {
		return s.cfg.From
	}
	return s.cfg.User
}

func (s *Sender) fromHeader() string {
	from := s.fromAddress()
	if s.cfg.FromName == "" {
		return from
	}
	return mime.QEncoding.Encode("utf-8", s.cfg.FromName) + " <" + from + ">"
}

// Send dispatches msg to its single recipient.
func (s *Sender) Send(ctx context.Context, msg Message) error {
	if !s.Enabled() {
		return ErrNotConfigured
	}
	if s.cfg.ResendKey != "" {
		return s.sendResend(ctx, msg)
	}
	return s.sendSMTP(ctx, msg)
}

func (s *Sender) sendSMTP(ctx context.Context, msg Message) error {
	port := s.cfg.Port
	if port == 0 {
		port = implicitTLSPort
	}
	addr := net.JoinHostPort(s.cfg.Host, strconv.Itoa(port))
	body, err := s.buildMIME(msg)
	if err != nil {
		return err
	}

	conn, err := s.dialSMTP(ctx, addr, port == implicitTLSPort)
	if err != nil {
		return fmt.Errorf("smtp dial: %w", err)
	}
	deadline := time.Now().Add(smtpTimeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	_ = conn.SetDeadline(deadline)
	// A cancelled ctx unblocks any pending read or write.
	stop := context.AfterFunc(ctx, func() { _ = conn.Close() })
	defer stop()

	client, err := smtp.NewClient(conn, s.cfg.Host)
	if err != nil {
		_ = conn.Close()
		return fmt.Errorf("smtp handshake: %w", err)
	}
	defer client.Close()

	if port != implicitTLSPort {
		if ok, _ := client.Extension("STARTTLS"); ok {
			if err := client.StartTLS(s.tlsConfig()); err != nil {
				return fmt.Errorf("smtp starttls: %w", err)
			}
		}
	}
	if ok, _ := client.Extension("AUTH"); ok {
		if err := client.Auth(smtp.PlainAuth("", s.cfg.User, s.cfg.Pass, s.cfg.Host)); err != nil {
			return fmt.Errorf("smtp auth: %w", err)
		}
	}
	if err := client.Mail(s.fromAddress()); err != nil {
		return err
	}
	if err := client.Rcpt(msg.To); err != nil {
		return err
	}
	w, err := client.Data()
	if err != nil {
		return err
	}
	if _, err := w.Write(body); err != nil {
		_ = w.Close()
		return err
	}
	if err := w.Close(); err != nil {
		return err
	}
	return client.Quit()
}

func (s *Sender) dialSMTP(ctx context.Context, addr string, implicitTLS bool) (net.Conn, error) {
	nd := &net.Dialer{Timeout: smtpDialTimeout}
	if !implicitTLS {
		return nd.DialContext(ctx, "tcp", addr)
	}
	d := &tls.Dialer{NetDialer: nd, Config: s.tlsConfig()}
	return d.DialContext(ctx, "tcp", addr)
}

func (s *Sender) tlsConfig() *tls.Config {
	return &tls.Config{ServerName: s.cfg.Host, MinVersion: tls.VersionTLS12}
}

// buildMIME renders a multipart/alternative message with a plain-text
// notice and the HTML body.
func (s *Sender) buildMIME(msg Message) ([]byte, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	header := func(k, v string) { fmt.Fprintf(&buf, "%s: %s\r\n", k, v) }
	header("MIME-Version", "1.0")
	header("From", s.fromHeader())
	header("To", msg.To)
	header("Subject", mime.QEncoding.Encode("utf-8", msg.Subject))
	if s.cfg.ReplyTo != "" {
		header("Reply-To", s.cfg.ReplyTo)
	}
	header("Date", time.Now().Format(time.RFC1123Z))
	header("Content-Type", "multipart/alternative; boundary="+mw.Boundary())
	buf.WriteString("\r\n")

	for _, part := range []struct{ contentType, content string }{
		{"text/plain; charset=UTF-8", plainTextFallback},
		{"text/html; charset=UTF-8", msg.HTML},
	} {
		pw, err := mw.CreatePart(textproto.MIMEHeader{"Content-Type": {part.contentType}})
		if err != nil {
			return nil, err
		}
		if _, err := pw.Write([]byte(part.content)); err != nil {
			return nil, err
		}
	}
	if err := mw.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

type resendPayload struct {
	From    string   `json:"from"`
	To      []string `json:"to"`
	Subject string   `json:"subject"`
	HTML    string   `json:"html"`
	ReplyTo string   `json:"reply_to,omitempty"`
}

func (s *Sender) sendResend(ctx context.Context, msg Message) error {
	payload, err := json.Marshal(resendPayload{
		From:    s.fromHeader(),
		To:      []string{msg.To},
		Subject: msg.Subject,
		HTML:    msg.HTML,
		ReplyTo: s.cfg.ReplyTo,
	})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.resendURL, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+s.cfg.ResendKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		var errResp struct {
			Message string `json:"message"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&errResp)
		return fmt.Errorf("resend error %d: %s", resp.StatusCode, strings.TrimSpace(errResp.Message))
	}
	return nil
}
