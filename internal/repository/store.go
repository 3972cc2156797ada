package repository

import (
	"context"
	"fmt"

	appErr "github.com/deliverypulse/engine/pkg/errors"
	"gorm.io/gorm"
)

// Store bundles the repositories over one database handle, either the pool
// or an open transaction.
type Store struct {
	db         *gorm.DB
	Projects   ProjectRepository
	Snapshots  SnapshotRepository
	Batches    BatchRepository
	Historical HistoricalRepository
}

func NewStore(db *gorm.DB) *Store {
	return &Store{
		db:         db,
		Projects:   NewProjectRepository(db),
		Snapshots:  NewSnapshotRepository(db),
		Batches:    NewBatchRepository(db),
		Historical: NewHistoricalRepository(db),
	}
}

// DB exposes the underlying handle for health checks.
func (s *Store) DB() *gorm.DB { return s.db }

// Transaction runs fn against a Store bound to a single transaction. The
// transaction commits only when fn returns nil; errors and panics roll it back.
func (s *Store) Transaction(ctx context.Context, fn func(tx *Store) error) (err error) {
	tx := s.db.WithContext(ctx).Begin()
	if tx.Error != nil {
		return classify(tx.Error, "begin transaction failed")
	}
	defer func() {
		if p := recover(); p != nil {
			tx.Rollback()
			err = appErr.Wrap(fmt.Errorf("panic: %v", p), appErr.CodeInternal, "transaction aborted")
		}
	}()

	if err := fn(NewStore(tx)); err != nil {
		tx.Rollback()
		return err
	}
	if err := tx.Commit().Error; err != nil {
		tx.Rollback()
		return classify(err, "commit transaction failed")
	}
	return nil
}

// Ping checks database connectivity.
func (s *Store) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return classify(err, "database handle unavailable")
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		return appErr.Wrap(err, appErr.CodeUnavailable, "database ping failed")
	}
	return nil
}
