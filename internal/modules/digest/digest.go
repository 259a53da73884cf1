package digest

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"html/template"
	"os"
	"strings"

	"github.com/edgeflowers/newsletter/internal/config"
	"github.com/edgeflowers/newsletter/internal/models"
	"github.com/edgeflowers/newsletter/internal/pkg/mail"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"go.uber.org/zap"
)

const (
	JobName  = "flower-digest"
	indexKey = "digest_index"
)

var ErrEmptyCatalog = errors.New("flower catalog is empty")

// Recipients lists every subscriber.
type Recipients interface {
	List(ctx context.Context) ([]models.SubscriberModel, error)
}

// IndexStore persists the rotation position between runs.
type IndexStore interface {
	GetInt(ctx context.Context, name string, def int) (int, error)
	SetInt(ctx context.Context, name string, value int) error
}

type Sender interface {
	Enabled() bool
	Send(ctx context.Context, msg mail.Message) error
}

// Result summarizes one digest run.
type Result struct {
	Flower     string
	Index      int
	ImageURL   string
	Recipients int
	Sent       int
	Failed     int
}

type Service struct {
	cfg        config.DigestConfig
	from       string
	siteName   string
	recipients Recipients
	state      IndexStore
	sender     Sender
	writer     Copywriter
	markdown   goldmark.Markdown
	logger     *zap.Logger
}

type Options struct {
	Config     config.DigestConfig
	Mail       config.MailConfig
	Recipients Recipients
	State      IndexStore
	Sender     Sender
	Writer     Copywriter
	Logger     *zap.Logger
}

func NewService(opts Options) *Service {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	from := opts.Mail.From
	if from == "" {
		from = opts.Mail.User
	}
	return &Service{
		cfg:        opts.Config,
		from:       from,
		siteName:   opts.Mail.FromName,
		recipients: opts.Recipients,
		state:      opts.State,
		sender:     opts.Sender,
		writer:     opts.Writer,
		markdown:   goldmark.New(goldmark.WithExtensions(extension.GFM, extension.Typographer)),
		logger:     logger.Named("DigestService"),
	}
}

// LoadCatalog reads the JSON array of flower names at path.
func LoadCatalog(path string) ([]string, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read flower catalog: %w", err)
	}
	var names []string
	if err := json.Unmarshal(content, &names); err != nil {
		return nil, fmt.Errorf("parse flower catalog %q: %w", path, err)
	}
	out := names[:0]
	for _, n := range names {
		if n = strings.TrimSpace(n); n != "" {
			out = append(out, n)
		}
	}
	return out, nil
}

// Run sends the current flower to every subscriber and advances the
// rotation. Individual delivery failures are logged and counted, not
// returned.
func (s *Service) Run(ctx context.Context) (*Result, error) {
	flowers, err := LoadCatalog(s.cfg.FlowersPath)
	if err != nil {
		s.logger.Error("cannot load flower catalog", zap.String("path", s.cfg.FlowersPath), zap.Error(err))
		return nil, err
	}
	if len(flowers) == 0 {
		s.logger.Warn("no flowers in catalog, skipping digest", zap.String("path", s.cfg.FlowersPath))
		return nil, ErrEmptyCatalog
	}

	idx, err := s.state.GetInt(ctx, indexKey, 0)
	if err != nil {
		return nil, fmt.Errorf("read digest index: %w", err)
	}
	if idx < 0 {
		idx = 0
	}
	pos := idx % len(flowers)
	result := &Result{
		Flower:   flowers[pos],
		Index:    idx,
		ImageURL: fmt.Sprintf("%s/flower %d.jpeg", s.cfg.SiteBase, pos+1),
	}

	html, err := s.render(ctx, result)
	if err != nil {
		return nil, err
	}

	emails, listErr := s.recipientEmails(ctx)
	if listErr != nil {
		s.logger.Error("cannot load subscribers", zap.Error(listErr))
	}
	result.Recipients = len(emails)
	switch {
	case len(emails) == 0:
		s.logger.Info("no subscribers to send to", zap.String("flower", result.Flower))
	case s.sender == nil || !s.sender.Enabled():
		s.logger.Warn("mail delivery is not configured, skipping send", zap.Int("recipients", len(emails)))
	default:
		s.deliver(ctx, emails, result, html)
	}

	if err := s.state.SetInt(ctx, indexKey, idx+1); err != nil {
		return result, fmt.Errorf("advance digest index: %w", err)
	}
	if listErr != nil {
		return result, fmt.Errorf("list subscribers: %w", listErr)
	}
	s.logger.Info("digest run complete",
		zap.String("flower", result.Flower),
		zap.Int("recipients", result.Recipients),
		zap.Int("sent", result.Sent),
		zap.Int("failed", result.Failed),
	)
	return result, nil
}

func (s *Service) render(ctx context.Context, result *Result) (string, error) {
	text := s.generateCopy(ctx, result.Flower)

	var desc bytes.Buffer
	if err := s.markdown.Convert([]byte(text.Description), &desc); err != nil {
		return "", fmt.Errorf("render description: %w", err)
	}

	return mail.RenderDigest(mail.DigestData{
		FlowerName:      result.Flower,
		ImageURL:        result.ImageURL,
		DescriptionHTML: template.HTML(desc.String()),
		Uses:            text.Uses,
		SupportURL:      s.cfg.SupportURL,
		UnsubscribeURL:  "mailto:" + s.from + "?subject=Unsubscribe",
		SiteName:        s.siteName,
	})
}

func (s *Service) generateCopy(ctx context.Context, flower string) Copy {
	if s.writer == nil {
		return fallbackCopy
	}
	raw, err := s.writer.Write(ctx, flower)
	if err != nil {
		s.logger.Warn("copy generation failed, using fallback", zap.String("flower", flower), zap.Error(err))
		return fallbackCopy
	}
	return ParseCopy(raw)
}

func (s *Service) recipientEmails(ctx context.Context) ([]string, error) {
	if s.recipients == nil {
		return nil, nil
	}
	subs, err := s.recipients.List(ctx)
	if err != nil {
		return nil, err
	}
	emails := make([]string, 0, len(subs))
	for _, sub := range subs {
		if strings.Contains(sub.Email, "@") {
			emails = append(emails, sub.Email)
		}
	}
	return emails, nil
}

func (s *Service) deliver(ctx context.Context, emails []string, result *Result, html string) {
	subject := fmt.Sprintf("%s — Edge Flower Blog", result.Flower)
	s.logger.Info("sending digest", zap.String("flower", result.Flower), zap.Int("recipients", len(emails)))
	for _, to := range emails {
		if ctx.Err() != nil {
			s.logger.Warn("digest interrupted", zap.Error(ctx.Err()))
			return
		}
		err := s.sender.Send(ctx, mail.Message{To: to, Subject: subject, HTML: html})
		if err != nil {
			result.Failed++
			s.logger.Warn("failed to send digest", zap.String("to", to), zap.Error(err))
			continue
		}
		result.Sent++
	}
}
