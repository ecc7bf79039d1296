package unitofwork

import (
	"context"

	"ai-recall-be/internal/repository/contract"
)

// UnitOfWork scopes repository work to one transaction. Begin opens it;
// every accessor below returns a repository bound to it until Commit or
// Rollback.
type UnitOfWork interface {
	Begin(ctx context.Context) error
	Commit() error
	Rollback() error

	ChatSessionRepository() contract.ChatSessionRepository
	ChatMessageRepository() contract.ChatMessageRepository
	MemoryChunkRepository() contract.MemoryChunkRepository
	VideoSetRepository() contract.VideoSetRepository
	VideoEmbeddingRepository() contract.VideoEmbeddingRepository
}

// RepositoryFactory hands out fresh units of work. Services hold the
// factory, never a unit of work, so nothing outlives its transaction.
type RepositoryFactory interface {
	NewUnitOfWork(ctx context.Context) UnitOfWork
}
