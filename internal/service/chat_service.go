package service

import (
	"context"
	"errors"
	"time"

	"ai-recall-be/internal/dto"
	"ai-recall-be/internal/entity"
	"ai-recall-be/internal/repository/memory"
	"ai-recall-be/internal/repository/specification"
	"ai-recall-be/internal/repository/unitofwork"

	"github.com/google/uuid"
)

// ErrSessionNotFound covers both missing sessions and sessions owned by
// another user; callers must not be able to tell the two apart.
var ErrSessionNotFound = errors.New("session not found or access denied")

// DefaultSessionTitle is replaced by a generated title after the first
// completed exchange.
const DefaultSessionTitle = "Unnamed session"

type IChatService interface {
	CreateSession(ctx context.Context, userId uuid.UUID) (*dto.CreateSessionResponse, error)
	GetAllSessions(ctx context.Context, userId uuid.UUID) ([]*dto.GetAllSessionsResponse, error)
	GetChatHistory(ctx context.Context, userId uuid.UUID, sessionId uuid.UUID) ([]*dto.GetChatHistoryResponse, error)
	DeleteSession(ctx context.Context, userId uuid.UUID, sessionId uuid.UUID) error
}

type chatService struct {
	uowFactory  unitofwork.RepositoryFactory
	runRegistry *memory.RunRegistry
}

func NewChatService(uowFactory unitofwork.RepositoryFactory, runRegistry *memory.RunRegistry) IChatService {
	return &chatService{
		uowFactory:  uowFactory,
		runRegistry: runRegistry,
	}
}

// CreateSession creates a new, empty chat session.
func (cs *chatService) CreateSession(ctx context.Context, userId uuid.UUID) (*dto.CreateSessionResponse, error) {
	uow := cs.uowFactory.NewUnitOfWork(ctx)

	chatSession := entity.ChatSession{
		Id:        uuid.New(),
		UserId:    userId,
		Title:     DefaultSessionTitle,
		CreatedAt: time.Now(),
	}

	if err := uow.ChatSessionRepository().Create(ctx, &chatSession); err != nil {
		return nil, err
	}

	return &dto.CreateSessionResponse{Id: chatSession.Id}, nil
}

// GetAllSessions lists the user's sessions, most recently active first.
func (cs *chatService) GetAllSessions(ctx context.Context, userId uuid.UUID) ([]*dto.GetAllSessionsResponse, error) {
	uow := cs.uowFactory.NewUnitOfWork(ctx)

	chatSessions, err := uow.ChatSessionRepository().FindAll(ctx,
		specification.UserOwnedBy{UserID: userId},
		specification.OrderByLastActivity{},
	)
	if err != nil {
		return nil, err
	}

	response := make([]*dto.GetAllSessionsResponse, 0, len(chatSessions))
	for _, s := range chatSessions {
		response = append(response, &dto.GetAllSessionsResponse{
			Id:            s.Id,
			Title:         s.Title,
			LastMessageAt: s.LastMessageAt,
			CreatedAt:     s.CreatedAt,
			UpdatedAt:     s.UpdatedAt,
		})
	}

	return response, nil
}

// GetChatHistory retrieves a session's messages in chronological order.
func (cs *chatService) GetChatHistory(ctx context.Context, userId uuid.UUID, sessionId uuid.UUID) ([]*dto.GetChatHistoryResponse, error) {
	uow := cs.uowFactory.NewUnitOfWork(ctx)

	sess, err := uow.ChatSessionRepository().FindOne(ctx,
		specification.ByID{ID: sessionId},
		specification.UserOwnedBy{UserID: userId},
	)
	if err != nil {
		return nil, err
	}
	if sess == nil {
		return nil, ErrSessionNotFound
	}

	chatMessages, err := uow.ChatMessageRepository().FindAll(ctx,
		specification.ByChatSessionID{ChatSessionID: sessionId},
		specification.OrderBy{Field: "created_at", Desc: false},
	)
	if err != nil {
		return nil, err
	}

	resp := make([]*dto.GetChatHistoryResponse, 0, len(chatMessages))
	for _, msg := range chatMessages {
		resp = append(resp, &dto.GetChatHistoryResponse{
			Id:        msg.Id,
			Role:      msg.Role,
			Content:   msg.Content,
			Metadata:  msg.Metadata,
			CreatedAt: msg.CreatedAt,
		})
	}

	return resp, nil
}

// DeleteSession removes a session along with its messages and memory
// chunks. An active run on the session is cancelled first so the pipeline
// stops writing into rows that are about to disappear.
func (cs *chatService) DeleteSession(ctx context.Context, userId uuid.UUID, sessionId uuid.UUID) error {
	uow := cs.uowFactory.NewUnitOfWork(ctx)

	sess, err := uow.ChatSessionRepository().FindOne(ctx,
		specification.ByID{ID: sessionId},
		specification.UserOwnedBy{UserID: userId},
	)
	if err != nil {
		return err
	}
	if sess == nil {
		return ErrSessionNotFound
	}

	if rn, ok := cs.runRegistry.GetBySession(sessionId); ok {
		rn.Cancel()
	}

	if err := uow.Begin(ctx); err != nil {
		return err
	}
	defer uow.Rollback()

	if err := uow.ChatSessionRepository().Delete(ctx, sessionId); err != nil {
		return err
	}
	if err := uow.ChatMessageRepository().DeleteByChatSessionId(ctx, sessionId); err != nil {
		return err
	}
	if err := uow.MemoryChunkRepository().DeleteByChatSessionId(ctx, sessionId); err != nil {
		return err
	}

	return uow.Commit()
}
