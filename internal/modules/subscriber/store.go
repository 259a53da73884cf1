package subscriber

import (
	"context"
	"errors"

	"github.com/edgeflowers/newsletter/internal/database"
	"github.com/edgeflowers/newsletter/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var (
	ErrEmailRequired     = errors.New("email is required")
	ErrAlreadySubscribed = errors.New("already subscribed")
)

// Store persists subscribers. Create must report a unique-email conflict as
// ErrAlreadySubscribed.
type Store interface {
	Create(ctx context.Context, email string) (*models.SubscriberModel, error)
	List(ctx context.Context) ([]models.SubscriberModel, error)
}

// GormStore is the Store backed by the shared connection pool.
type GormStore struct{ db *gorm.DB }

func NewGormStore(db *gorm.DB) *GormStore { return &GormStore{db: db} }

func (s *GormStore) Create(ctx context.Context, email string) (*models.SubscriberModel, error) {
	sub := models.SubscriberModel{Email: email}
	err := s.db.WithContext(ctx).
		Clauses(clause.Returning{Columns: []clause.Column{{Name: "id"}}}).
		Create(&sub).Error
	if err != nil {
		if database.IsDuplicateKey(err) {
			return nil, ErrAlreadySubscribed
		}
		return nil, err
	}
	// Load the store-assigned created_at.
	if err := s.db.WithContext(ctx).First(&sub, sub.ID).Error; err != nil {
		return nil, err
	}
	return &sub, nil
}

// List returns every subscriber, newest first.
func (s *GormStore) List(ctx context.Context) ([]models.SubscriberModel, error) {
	subs := make([]models.SubscriberModel, 0)
	if err := s.db.WithContext(ctx).Order("created_at DESC, id DESC").Find(&subs).Error; err != nil {
		return nil, err
	}
	return subs, nil
}
