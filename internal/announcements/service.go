// Package announcements is the organizer news feed. Messages are markdown; raw HTML in them is dropped.
package announcements

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/yuin/goldmark"
	goldmarkHTML "github.com/yuin/goldmark/renderer/html"
	"go.uber.org/zap"

	"github.com/nexothsav/hackportal/internal/models"
	"github.com/nexothsav/hackportal/internal/store"
)

var (
	ErrTitleRequired   = errors.New("title is required")
	ErrMessageRequired = errors.New("message is required")
)

// md renders without WithUnsafe, so raw HTML blocks become comments.
var md = goldmark.New(
	goldmark.WithRendererOptions(
		goldmarkHTML.WithHardWraps(),
	),
)

// RenderMarkdown converts an announcement body to HTML.
func RenderMarkdown(src string) (string, error) {
	var buf bytes.Buffer
	if err := md.Convert([]byte(src), &buf); err != nil {
		return "", fmt.Errorf("render markdown: %w", err)
	}
	return buf.String(), nil
}

// Service lists and posts announcements.
type Service struct {
	store    store.Announcements
	now      func() time.Time
	onCreate []func(*models.Announcement)
	logger   *zap.Logger
}

// NewService creates an announcement service.
func NewService(s store.Announcements, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{store: s, now: time.Now, logger: logger}
}

// OnCreate registers fn to run after every posted announcement.
func (s *Service) OnCreate(fn func(*models.Announcement)) {
	s.onCreate = append(s.onCreate, fn)
}

// List returns announcements newest first with HTML bodies.
func (s *Service) List(ctx context.Context) ([]*models.Announcement, error) {
	list, err := s.store.ListAnnouncements(ctx)
	if err != nil {
		return nil, fmt.Errorf("list announcements: %w", err)
	}
	for _, a := range list {
		if a.MessageHTML != "" {
			continue
		}
		html, err := RenderMarkdown(a.Message)
		if err != nil {
			s.logger.Warn("render announcement", zap.String("id", a.ID), zap.Error(err))
			continue
		}
		a.MessageHTML = html
	}
	return list, nil
}

// Create posts an announcement by author.
func (s *Service) Create(ctx context.Context, title, message, author string) (*models.Announcement, error) {
	title, message = strings.TrimSpace(title), strings.TrimSpace(message)
	if title == "" {
		return nil, ErrTitleRequired
	}
	if message == "" {
		return nil, ErrMessageRequired
	}
	html, err := RenderMarkdown(message)
	if err != nil {
		return nil, err
	}
	a := &models.Announcement{
		ID:          uuid.NewString(),
		Title:       title,
		Message:     message,
		MessageHTML: html,
		Author:      author,
		Timestamp:   s.now(),
	}
	if err := s.store.CreateAnnouncement(ctx, a); err != nil {
		return nil, fmt.Errorf("create announcement: %w", err)
	}
	s.logger.Info("announcement posted", zap.String("id", a.ID), zap.String("author", author))
	for _, fn := range s.onCreate {
		fn(a)
	}
	return a, nil
}
