package unitofwork

import (
	"context"
	"fmt"

	"ai-recall-be/internal/repository/contract"
	"ai-recall-be/internal/repository/implementation"

	"gorm.io/gorm"
)

type UnitOfWorkImpl struct {
	db *gorm.DB
	tx *gorm.DB
}

func NewUnitOfWork(db *gorm.DB) UnitOfWork {
	return &UnitOfWorkImpl{
		db: db,
	}
}

// getDB returns the active transaction when one is open, otherwise the
// shared connection. Repositories constructed before Begin would bypass the
// transaction, so accessors always construct against the current handle.
func (u *UnitOfWorkImpl) getDB() *gorm.DB {
	if u.tx != nil {
		return u.tx
	}
	return u.db
}

func (u *UnitOfWorkImpl) Begin(ctx context.Context) error {
	if u.tx != nil {
		return fmt.Errorf("transaction already started")
	}
	u.tx = u.db.WithContext(ctx).Begin()
	return u.tx.Error
}

func (u *UnitOfWorkImpl) Commit() error {
	if u.tx == nil {
		return fmt.Errorf("no transaction to commit")
	}
	err := u.tx.Commit().Error
	u.tx = nil
	return err
}

func (u *UnitOfWorkImpl) Rollback() error {
	if u.tx == nil {
		return fmt.Errorf("no transaction to rollback")
	}
	err := u.tx.Rollback().Error
	u.tx = nil
	return err
}

// Repository Accessors

func (u *UnitOfWorkImpl) ChatSessionRepository() contract.ChatSessionRepository {
	return implementation.NewChatSessionRepository(u.getDB())
}

func (u *UnitOfWorkImpl) ChatMessageRepository() contract.ChatMessageRepository {
	return implementation.NewChatMessageRepository(u.getDB())
}

func (u *UnitOfWorkImpl) MemoryChunkRepository() contract.MemoryChunkRepository {
	return implementation.NewMemoryChunkRepository(u.getDB())
}

func (u *UnitOfWorkImpl) VideoSetRepository() contract.VideoSetRepository {
	return implementation.NewVideoSetRepository(u.getDB())
}

func (u *UnitOfWorkImpl) VideoEmbeddingRepository() contract.VideoEmbeddingRepository {
	return implementation.NewVideoEmbeddingRepository(u.getDB())
}
