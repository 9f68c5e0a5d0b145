package interfaces

import (
	"context"

	"campus-sim-server/internal/models"
)

// GameSaveRepository — долговременное хранилище снимков игры.
type GameSaveRepository interface {
	// Upsert создаёт или перезаписывает снимок по (user_id, save_slot).
	Upsert(ctx context.Context, save *models.GameSave) error

	// GetByUserAndSlot возвращает снимок либо models.ErrSaveNotFound.
	GetByUserAndSlot(ctx context.Context, userID string, slot int) (*models.GameSave, error)

	// DeleteByUserAndSlot удаляет снимок; отсутствие записи — не ошибка.
	DeleteByUserAndSlot(ctx context.Context, userID string, slot int) error
}
