package repository

import (
	"fmt"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/emusa/energymon/telemetry"
)

// Repository stores readings to the local file system (SQLite). It both
// buffers telemetry ahead of upload to the data platform and serves the
// time-range queries of the report generator. It must accept readings with
// unavailable fields without erroring.
type Repository struct {
	db *gorm.DB
}

func New(path string) (*Repository, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	err = db.AutoMigrate(&StoredReading{})
	if err != nil {
		return nil, fmt.Errorf("migrate database: %w", err)
	}

	return &Repository{db: db}, nil
}

// Add persists one reading for the given meter.
func (r *Repository) Add(meterID uuid.UUID, reading telemetry.Reading) error {
	stored := newStoredReading(meterID, reading)
	result := r.db.Create(&stored)
	return result.Error
}

// ReadingsBetween returns the persisted readings in [from, to), oldest
// first. This is the read-only window the report generator iterates over.
func (r *Repository) ReadingsBetween(from, to time.Time) ([]StoredReading, error) {
	var readings []StoredReading
	result := r.db.
		Where("time >= ? AND time < ?", from, to).
		Order("time asc").
		Find(&readings)
	if result.Error != nil {
		return nil, result.Error
	}
	return readings, nil
}

// GetReadings returns up to limit readings pending upload. With fresh=true
// only readings that have never failed an upload are returned, otherwise
// only previously failed ones.
func (r *Repository) GetReadings(limit int, fresh bool) ([]StoredReading, error) {
	var readings []StoredReading

	query := r.db.Limit(limit).Order("upload_attempt_count asc, time desc")
	if fresh {
		query = query.Where("upload_attempt_count = ?", 0)
	} else {
		query = query.Where("upload_attempt_count > ?", 0)
	}
	result := query.Find(&readings)
	if result.Error != nil {
		return nil, result.Error
	}
	return readings, nil
}

// IncrementUploadAttemptCount marks the readings as having failed an upload.
func (r *Repository) IncrementUploadAttemptCount(readings []StoredReading) error {
	result := r.db.Model(&readings).UpdateColumn("upload_attempt_count", gorm.Expr("upload_attempt_count + ?", 1))
	return result.Error
}

// DeleteReadings removes readings that were uploaded successfully.
func (r *Repository) DeleteReadings(readings []StoredReading) error {
	result := r.db.Delete(&readings)
	return result.Error
}
