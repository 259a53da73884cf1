package option

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/edgeflowers/newsletter/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Store reads and writes named values in the options table.
type Store struct{ db *gorm.DB }

func NewStore(db *gorm.DB) *Store { return &Store{db: db} }

// Get returns the stored value and whether it exists.
func (s *Store) Get(ctx context.Context, name string) (string, bool, error) {
	var opt models.OptionModel
	err := s.db.WithContext(ctx).Where("name = ?", name).First(&opt).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return opt.Value, true, nil
}

// Set upserts name.
func (s *Store) Set(ctx context.Context, name, value string) error {
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "name"}},
		DoUpdates: clause.AssignmentColumns([]string{"value"}),
	}).Create(&models.OptionModel{Name: name, Value: value}).Error
}

// GetInt returns the integer stored under name, or def when unset.
func (s *Store) GetInt(ctx context.Context, name string, def int) (int, error) {
	raw, ok, err := s.Get(ctx, name)
	if err != nil || !ok {
		return def, err
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return def, fmt.Errorf("option %q is not an integer: %w", name, err)
	}
	return n, nil
}

func (s *Store) SetInt(ctx context.Context, name string, value int) error {
	return s.Set(ctx, name, strconv.Itoa(value))
}
