package models

import (
	"time"

	"github.com/google/uuid"
)

type Notification struct {
	ID        int64     `json:"id"`
	UserID    uuid.UUID `json:"userId"`
	Message   string    `json:"message"`
	IsRead    bool      `json:"isRead"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

type FavoriteField struct {
	ID        int64     `json:"id"`
	UserID    uuid.UUID `json:"userId"`
	FieldID   int64     `json:"fieldId"`
	CreatedAt time.Time `json:"createdAt"`
}
