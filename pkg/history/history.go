// Package history persists the outcome of every device sync in a SQLite
// database, so that past runs can be listed with `multisync history`.
package history

import (
	"path/filepath"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/spf13/afero"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/sidkik/multisync/pkg/errors"
)

// Mocked out for unit testing.
var fs = afero.NewOsFs()

// Status is the outcome of a Run.
type Status string

const (
	StatusCompleted Status = "COMPLETED"
	StatusFailed    Status = "FAILED"
)

// Run is a single device sync.
type Run struct {
	gorm.Model
	DeviceID      string `gorm:"index;not null"`
	DeviceName    string
	Source        string `gorm:"not null"`
	Target        string `gorm:"not null"`
	AppIdentifier string `gorm:"not null"`
	Status        Status `gorm:"not null"`
	Files         int
	FailedCopies  int
	Warnings      int
	Error         string
	StartedAt     time.Time
	FinishedAt    time.Time `gorm:"index;not null"`
}

// Stats summarizes all recorded runs.
type Stats struct {
	Total     int64
	Completed int64
	Failed    int64
}

// Store reads and writes runs.
type Store struct {
	db *gorm.DB
}

// Open opens the database at path, creating it if necessary.
func Open(path string) (*Store, error) {
	if err := fs.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, errors.WithContext(err, "create history directory")
	}

	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, errors.WithContext(err, "open history database")
	}

	if err := db.AutoMigrate(&Run{}); err != nil {
		return nil, errors.WithContext(err, "migrate history database")
	}
	return &Store{db: db}, nil
}

// Record saves run.
func (s *Store) Record(run Run) error {
	return errors.WithContext(s.db.Create(&run).Error, "insert run")
}

// Recent returns the most recently finished runs, newest first.
func (s *Store) Recent(limit int) ([]Run, error) {
	var runs []Run
	err := s.db.Order("finished_at desc").Order("id desc").
		Limit(limit).Find(&runs).Error
	if err != nil {
		return nil, errors.WithContext(err, "query runs")
	}
	return runs, nil
}

// Stats counts the recorded runs by status.
func (s *Store) Stats() (Stats, error) {
	var stats Stats
	if err := s.db.Model(&Run{}).Count(&stats.Total).Error; err != nil {
		return Stats{}, errors.WithContext(err, "count runs")
	}

	err := s.db.Model(&Run{}).Where("status = ?", StatusCompleted).
		Count(&stats.Completed).Error
	if err != nil {
		return Stats{}, errors.WithContext(err, "count completed runs")
	}

	err = s.db.Model(&Run{}).Where("status = ?", StatusFailed).
		Count(&stats.Failed).Error
	if err != nil {
		return Stats{}, errors.WithContext(err, "count failed runs")
	}
	return stats, nil
}

// Clear deletes every recorded run, and returns how many were deleted.
func (s *Store) Clear() (int64, error) {
	result := s.db.Unscoped().Where("1 = 1").Delete(&Run{})
	if result.Error != nil {
		return 0, errors.WithContext(result.Error, "delete runs")
	}
	return result.RowsAffected, nil
}

// Close closes the database.
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return errors.WithContext(err, "get database handle")
	}
	return sqlDB.Close()
}
