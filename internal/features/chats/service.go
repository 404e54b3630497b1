// Package chats — service.go.
package chats

import (
	"context"

	log "github.com/sirupsen/logrus"
)

// Service управляет реестром чатов.
type Service struct {
	repo *Repository
}

// NewService создаёт сервис чатов.
func NewService(repo *Repository) *Service {
	return &Service{repo: repo}
}

// Register добавляет чат в реестр.
func (s *Service) Register(ctx context.Context, chatID int64) error {
	return s.repo.Add(ctx, chatID)
}

// Forget удаляет чат из реестра.
func (s *Service) Forget(ctx context.Context, chatID int64) error {
	return s.repo.Remove(ctx, chatID)
}

// All возвращает все известные чаты.
func (s *Service) All(ctx context.Context) ([]int64, error) {
	return s.repo.All(ctx)
}

// Migrate переносит чат на новый chat_id (апгрейд до супергруппы).
func (s *Service) Migrate(ctx context.Context, oldChatID, newChatID int64) error {
	log.WithFields(log.Fields{
		"old_chat_id": oldChatID,
		"new_chat_id": newChatID,
	}).Info("Миграция чата")
	return s.repo.Migrate(ctx, oldChatID, newChatID)
}
