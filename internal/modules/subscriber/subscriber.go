package subscriber

import (
	"context"
	"errors"
	"fmt"

	"github.com/edgeflowers/newsletter/internal/models"
	"github.com/edgeflowers/newsletter/internal/pkg/response"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const (
	msgSubscribed        = "Thanks for subscribing!"
	msgAlreadySubscribed = "You're already subscribed!"
	msgEmailRequired     = "Email is required"
	msgDatabaseError     = "Database error"
)

type SubscribeDTO struct {
	Email string `json:"email"`
}

type Service struct {
	store  Store
	logger *zap.Logger
}

func NewService(store Store, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{store: store, logger: logger.Named("Subscriber")}
}

// Subscribe records email exactly as given. A repeat address yields
// ErrAlreadySubscribed.
func (s *Service) Subscribe(ctx context.Context, email string) (*models.SubscriberModel, error) {
	if email == "" {
		return nil, ErrEmailRequired
	}
	sub, err := s.store.Create(ctx, email)
	if err != nil {
		if errors.Is(err, ErrAlreadySubscribed) {
			return nil, err
		}
		return nil, fmt.Errorf("insert subscriber: %w", err)
	}
	s.logger.Info("new subscriber", zap.Uint("id", sub.ID))
	return sub, nil
}

// List returns all subscribers ordered by created_at descending.
func (s *Service) List(ctx context.Context) ([]models.SubscriberModel, error) {
	subs, err := s.store.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list subscribers: %w", err)
	}
	if subs == nil {
		subs = []models.SubscriberModel{}
	}
	return subs, nil
}

type Handler struct {
	svc    *Service
	logger *zap.Logger
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc, logger: svc.logger}
}

// RegisterRoutes mounts the public endpoints. Extra middleware (rate
// limiting) applies to the subscribe route only.
func (h *Handler) RegisterRoutes(rg gin.IRouter, subscribeMW ...gin.HandlerFunc) {
	handlers := append(append([]gin.HandlerFunc{}, subscribeMW...), h.subscribe)
	rg.POST("/subscribe", handlers...)
	rg.GET("/subscribers", h.list)
}

func (h *Handler) subscribe(c *gin.Context) {
	var dto SubscribeDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		response.BadRequest(c, msgEmailRequired)
		return
	}
	_, err := h.svc.Subscribe(c.Request.Context(), dto.Email)
	switch {
	case err == nil:
		response.Message(c, msgSubscribed)
	case errors.Is(err, ErrEmailRequired):
		response.BadRequest(c, msgEmailRequired)
	case errors.Is(err, ErrAlreadySubscribed):
		response.Conflict(c, msgAlreadySubscribed)
	default:
		h.logger.Error("subscribe failed", zap.Error(err))
		response.InternalError(c, msgDatabaseError, err)
	}
}

func (h *Handler) list(c *gin.Context) {
	subs, err := h.svc.List(c.Request.Context())
	if err != nil {
		h.logger.Error("list subscribers failed", zap.Error(err))
		response.InternalError(c, msgDatabaseError, err)
		return
	}
	response.OK(c, subs)
}
