package storage

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"mql_bridge/internal/domain"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Journal keeps an audit trail of sent commands and delivered host messages.
// It never feeds back into bridge state.
type Journal struct {
	db *gorm.DB
}

// NewJournal opens (or creates) the SQLite journal at path
func NewJournal(path string) (*Journal, error) {
	// Ensure directory exists
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create journal directory: %w", err)
		}
	}

	// Connect to SQLite (Pure Go)
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// Auto Migration
	if err := db.AutoMigrate(&domain.CommandRecord{}, &domain.MessageRecord{}); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return &Journal{db: db}, nil
}

// Close releases the underlying connection
func (j *Journal) Close() error {
	sqlDB, err := j.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// ======================================================================================
// Command Operations
// ======================================================================================

// RecordCommand appends one send outcome
func (j *Journal) RecordCommand(rec *domain.CommandRecord) error {
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now()
	}
	return j.db.Create(rec).Error
}

// RecentCommands returns up to limit records, newest first
func (j *Journal) RecentCommands(limit int) ([]domain.CommandRecord, error) {
	var recs []domain.CommandRecord
	err := j.db.Order("id desc").Limit(limit).Find(&recs).Error
	return recs, err
}

// CountCommands counts records with the given status
func (j *Journal) CountCommands(status string) (int64, error) {
	var n int64
	err := j.db.Model(&domain.CommandRecord{}).Where("status = ?", status).Count(&n).Error
	return n, err
}

// ======================================================================================
// Message Operations
// ======================================================================================

// ArchiveMessage stores a delivered host message
func (j *Journal) ArchiveMessage(session string, msg domain.Message) error {
	rec := &domain.MessageRecord{
		Session:   session,
		Millis:    msg.Millis,
		Type:      msg.Type,
		Text:      msg.Text,
		Raw:       string(msg.Raw),
		CreatedAt: time.Now(),
	}
	if msg.IsError() && rec.Text == "" {
		rec.Text = msg.ErrorType + ": " + msg.Description
	}
	return j.db.Create(rec).Error
}

// MessagesSince returns archived messages with a timestamp greater than millis, oldest first
func (j *Journal) MessagesSince(millis int64) ([]domain.MessageRecord, error) {
	var recs []domain.MessageRecord
	err := j.db.Where("millis > ?", millis).Order("millis asc").Find(&recs).Error
	return recs, err
}
