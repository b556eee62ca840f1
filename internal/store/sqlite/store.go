// Package sqlite implements the index store on a single-file SQLite
// database via gorm. One table holds the whole keyspace; ordered scans are
// plain ORDER BY queries over the primary key.
package sqlite

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"

	"fans3-backend/internal/store"
)

const scanBatch = 256

type kvEntry struct {
	Key   string `gorm:"primaryKey;column:key"`
	Value string `gorm:"column:value"`
}

func (kvEntry) TableName() string {
	return "kv_entries"
}

type Store struct {
	db *gorm.DB
}

var _ store.Store = (*Store)(nil)

// Open opens (creating if needed) the database at path and migrates the
// schema.
func Open(path string) (*Store, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if err := db.AutoMigrate(&kvEntry{}); err != nil {
		return nil, fmt.Errorf("migrate kv table: %w", err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Get(ctx context.Context, key string) (string, bool, error) {
	var entry kvEntry
	err := s.db.WithContext(ctx).Where("key = ?", key).First(&entry).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("sqlite get %q: %w", key, err)
	}
	return entry.Value, true, nil
}

func (s *Store) Set(ctx context.Context, key, value string) error {
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value"}),
	}).Create(&kvEntry{Key: key, Value: value}).Error
	if err != nil {
		return fmt.Errorf("sqlite set %q: %w", key, err)
	}
	return nil
}

func (s *Store) Delete(ctx context.Context, key string) error {
	err := s.db.WithContext(ctx).Where("key = ?", key).Delete(&kvEntry{}).Error
	if err != nil {
		return fmt.Errorf("sqlite delete %q: %w", key, err)
	}
	return nil
}

func (s *Store) Scan(ctx context.Context, start string, reverse bool, fn func(key, value string) (bool, error)) error {
	cond, order := "key >= ?", "key ASC"
	if reverse {
		cond, order = "key <= ?", "key DESC"
	}

	cursor := start
	first := true
	for {
		var batch []kvEntry
		q := s.db.WithContext(ctx).Where(cond, cursor).Order(order).Limit(scanBatch)
		if !first {
			if reverse {
				q = s.db.WithContext(ctx).Where("key < ?", cursor).Order(order).Limit(scanBatch)
			} else {
				q = s.db.WithContext(ctx).Where("key > ?", cursor).Order(order).Limit(scanBatch)
			}
		}
		if err := q.Find(&batch).Error; err != nil {
			return fmt.Errorf("sqlite scan from %q: %w", start, err)
		}
		if len(batch) == 0 {
			return nil
		}
		for _, entry := range batch {
			cont, err := fn(entry.Key, entry.Value)
			if err != nil {
				return err
			}
			if !cont {
				return nil
			}
		}
		if len(batch) < scanBatch {
			return nil
		}
		cursor = batch[len(batch)-1].Key
		first = false
	}
}

func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
