package mapper

import (
	"ai-recall-be/internal/entity"
	"ai-recall-be/internal/model"
)

type ChatMapper struct{}

func NewChatMapper() *ChatMapper {
	return &ChatMapper{}
}

func (m *ChatMapper) ChatSessionToEntity(s *model.ChatSession) *entity.ChatSession {
	if s == nil {
		return nil
	}
	return &entity.ChatSession{
		Id:            s.Id,
		UserId:        s.UserId,
		Title:         s.Title,
		LastMessageAt: s.LastMessageAt,
		CreatedAt:     s.CreatedAt,
		UpdatedAt:     updatedAtToEntity(s.UpdatedAt),
		DeletedAt:     deletedAtToEntity(s.DeletedAt),
		IsDeleted:     s.DeletedAt.Valid,
	}
}

func (m *ChatMapper) ChatSessionToModel(s *entity.ChatSession) *model.ChatSession {
	if s == nil {
		return nil
	}
	return &model.ChatSession{
		Id:            s.Id,
		UserId:        s.UserId,
		Title:         s.Title,
		LastMessageAt: s.LastMessageAt,
		CreatedAt:     s.CreatedAt,
		UpdatedAt:     updatedAtToModel(s.UpdatedAt),
		DeletedAt:     deletedAtToModel(s.DeletedAt, s.IsDeleted),
	}
}

func (m *ChatMapper) ChatMessageToEntity(msg *model.ChatMessage) *entity.ChatMessage {
	if msg == nil {
		return nil
	}
	return &entity.ChatMessage{
		Id:            msg.Id,
		ChatSessionId: msg.ChatSessionId,
		Role:          msg.Role,
		Content:       msg.Content,
		Metadata:      metadataToEntity(msg.Metadata),
		CreatedAt:     msg.CreatedAt,
		UpdatedAt:     updatedAtToEntity(msg.UpdatedAt),
		DeletedAt:     deletedAtToEntity(msg.DeletedAt),
		IsDeleted:     msg.DeletedAt.Valid,
	}
}

func (m *ChatMapper) ChatMessageToModel(msg *entity.ChatMessage) *model.ChatMessage {
	if msg == nil {
		return nil
	}
	return &model.ChatMessage{
		Id:            msg.Id,
		ChatSessionId: msg.ChatSessionId,
		Role:          msg.Role,
		Content:       msg.Content,
		Metadata:      metadataToModel(msg.Metadata),
		CreatedAt:     msg.CreatedAt,
		UpdatedAt:     updatedAtToModel(msg.UpdatedAt),
		DeletedAt:     deletedAtToModel(msg.DeletedAt, msg.IsDeleted),
	}
}
