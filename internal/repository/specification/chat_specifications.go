package specification

import (
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type ByChatSessionID struct {
	ChatSessionID uuid.UUID
}

func (s ByChatSessionID) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("chat_session_id = ?", s.ChatSessionID)
}

type UserOwnedBy struct {
	UserID uuid.UUID
}

func (s UserOwnedBy) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("user_id = ?", s.UserID)
}

// OrderByLastActivity sorts sessions by their most recent message,
// falling back to creation time for sessions that never got one.
type OrderByLastActivity struct{}

func (s OrderByLastActivity) Apply(db *gorm.DB) *gorm.DB {
	return db.Order("COALESCE(last_message_at, created_at) DESC")
}
