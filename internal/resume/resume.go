/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package resume stores playback positions so files can continue where
// they were left.
package resume

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// WatchLater is one saved position.
type WatchLater struct {
	ID        string    `gorm:"type:varchar(36);primaryKey"`
	URLHash   string    `gorm:"type:varchar(64);uniqueIndex"`
	URL       string    `gorm:"type:text"`
	Position  float64   `gorm:"type:float"`
	CreatedAt time.Time `gorm:"autoCreateTime"`
	UpdatedAt time.Time `gorm:"autoUpdateTime"`
}

// TableName pins the table name.
func (WatchLater) TableName() string { return "watch_later" }

// Store reads and writes watch-later rows.
type Store struct {
	db     *gorm.DB
	logger zerolog.Logger
}

// NewStore creates a store on db. The table must already exist.
func NewStore(db *gorm.DB, logger zerolog.Logger) *Store {
	return &Store{db: db, logger: logger.With().Str("component", "resume").Logger()}
}

func hashURL(url string) string {
	sum := sha256.Sum256([]byte(url))
	return hex.EncodeToString(sum[:])
}

// Load returns the saved position for url. ok is false when nothing was
// saved.
func (s *Store) Load(ctx context.Context, url string) (pos float64, ok bool, err error) {
	var row WatchLater
	err = s.db.WithContext(ctx).Where("url_hash = ?", hashURL(url)).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("load position: %w", err)
	}
	return row.Position, true, nil
}

// Save stores pos for url, replacing any earlier value.
func (s *Store) Save(ctx context.Context, url string, pos float64) error {
	row := WatchLater{
		ID:       uuid.NewString(),
		URLHash:  hashURL(url),
		URL:      url,
		Position: pos,
	}
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "url_hash"}},
		DoUpdates: clause.AssignmentColumns([]string{"position", "updated_at"}),
	}).Create(&row).Error
	if err != nil {
		return fmt.Errorf("save position: %w", err)
	}
	s.logger.Debug().Str("url", url).Float64("position", pos).Msg("position saved")
	return nil
}

// Delete forgets url.
func (s *Store) Delete(ctx context.Context, url string) error {
	if err := s.db.WithContext(ctx).Where("url_hash = ?", hashURL(url)).Delete(&WatchLater{}).Error; err != nil {
		return fmt.Errorf("delete position: %w", err)
	}
	return nil
}
