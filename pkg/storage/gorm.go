package storage

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/jdziat/persisted-jobs/pkg/core"
)

// Entry is the row model backing GormKV.
type Entry struct {
	Key       string `gorm:"column:entry_key;primaryKey;size:512"`
	Value     []byte `gorm:"not null"`
	UpdatedAt time.Time
}

// TableName sets the table name for Entry.
func (Entry) TableName() string {
	return "persisted_job_entries"
}

// GormKV implements core.KV using GORM.
type GormKV struct {
	db *gorm.DB
}

// NewGormKV creates a new GORM-backed key/value store.
func NewGormKV(db *gorm.DB) *GormKV {
	return &GormKV{db: db}
}

// Migrate creates the necessary tables.
func (s *GormKV) Migrate(ctx context.Context) error {
	return s.db.WithContext(ctx).AutoMigrate(&Entry{})
}

var upsert = clause.OnConflict{
	Columns:   []clause.Column{{Name: "entry_key"}},
	DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
}

// Get returns the value stored under key.
func (s *GormKV) Get(ctx context.Context, key string) ([]byte, bool, error) {
	var row Entry
	err := s.db.WithContext(ctx).Where("entry_key = ?", key).First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, false, nil
		}
		return nil, false, err
	}
	return row.Value, true, nil
}

// Set inserts or replaces the value under key.
func (s *GormKV) Set(ctx context.Context, key string, value []byte) error {
	row := Entry{Key: key, Value: value, UpdatedAt: time.Now()}
	return s.db.WithContext(ctx).Clauses(upsert).Create(&row).Error
}

// Remove deletes key. Removing a missing key is not an error.
func (s *GormKV) Remove(ctx context.Context, key string) error {
	return s.db.WithContext(ctx).Where("entry_key = ?", key).Delete(&Entry{}).Error
}

// BatchSet writes all entries in one transaction.
func (s *GormKV) BatchSet(ctx context.Context, entries []core.Entry) error {
	if len(entries) == 0 {
		return nil
	}
	now := time.Now()
	rows := make([]Entry, len(entries))
	for i, e := range entries {
		rows[i] = Entry{Key: e.Key, Value: e.Value, UpdatedAt: now}
	}
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.Clauses(upsert).CreateInBatches(&rows, 100).Error
	})
}

// BatchRemove deletes all keys in one transaction.
func (s *GormKV) BatchRemove(ctx context.Context, keys []string) error {
	if len(keys) == 0 {
		return nil
	}
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.Where("entry_key IN ?", keys).Delete(&Entry{}).Error
	})
}

var _ core.KV = (*GormKV)(nil)
