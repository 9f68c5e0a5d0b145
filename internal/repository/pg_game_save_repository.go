package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/google/uuid"
	pgxV5 "github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"campus-sim-server/internal/interfaces"
	"campus-sim-server/internal/models"
)

// Compile-time check
var _ interfaces.GameSaveRepository = (*pgGameSaveRepository)(nil)

const (
	upsertGameSaveQuery = `
        INSERT INTO game_saves (id, user_id, save_slot, stats_data, courses_data, course_states_data, achievements_data, semester_index)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
        ON CONFLICT (user_id, save_slot) DO UPDATE SET
            stats_data         = EXCLUDED.stats_data,
            courses_data       = EXCLUDED.courses_data,
            course_states_data = EXCLUDED.course_states_data,
            achievements_data  = EXCLUDED.achievements_data,
            semester_index     = EXCLUDED.semester_index,
            updated_at         = NOW()
    `
	getGameSaveQuery = `
        SELECT id, user_id, save_slot, stats_data, courses_data, course_states_data, achievements_data, semester_index, created_at, updated_at
        FROM game_saves
        WHERE user_id = $1 AND save_slot = $2
    `
	deleteGameSaveQuery = `DELETE FROM game_saves WHERE user_id = $1 AND save_slot = $2`
)

type pgGameSaveRepository struct {
	pool   *pgxpool.Pool
	logger *zap.Logger
}

// NewPgGameSaveRepository создает репозиторий долговременных снимков игры.
func NewPgGameSaveRepository(pool *pgxpool.Pool, logger *zap.Logger) interfaces.GameSaveRepository {
	return &pgGameSaveRepository{
		pool:   pool,
		logger: logger.Named("GameSaveRepo"),
	}
}

// Upsert создает или перезаписывает снимок по (user_id, save_slot).
func (r *pgGameSaveRepository) Upsert(ctx context.Context, save *models.GameSave) error {
	log := r.logger.With(zap.String("userID", save.UserID), zap.Int("slot", save.SaveSlot))

	if save.ID == uuid.Nil {
		save.ID = uuid.New()
	}

	_, err := r.pool.Exec(ctx, upsertGameSaveQuery,
		save.ID, save.UserID, save.SaveSlot,
		save.StatsData, save.CoursesData, save.StatesData, save.Achievements,
		save.SemesterIndex,
	)
	if err != nil {
		log.Error("Error upserting game save", zap.Error(err))
		return fmt.Errorf("failed to upsert game save for user %s: %w", save.UserID, err)
	}

	log.Info("Game save upserted", zap.Int("semesterIndex", save.SemesterIndex))
	return nil
}

// GetByUserAndSlot возвращает снимок либо models.ErrSaveNotFound.
func (r *pgGameSaveRepository) GetByUserAndSlot(ctx context.Context, userID string, slot int) (*models.GameSave, error) {
	log := r.logger.With(zap.String("userID", userID), zap.Int("slot", slot))

	var save models.GameSave
	err := pgxscan.Get(ctx, r.pool, &save, getGameSaveQuery, userID, slot)
	if err != nil {
		if errors.Is(err, pgxV5.ErrNoRows) {
			log.Debug("Game save not found")
			return nil, models.ErrSaveNotFound
		}
		log.Error("Error getting game save", zap.Error(err))
		return nil, fmt.Errorf("failed to get game save for user %s: %w", userID, err)
	}
	return &save, nil
}

// DeleteByUserAndSlot удаляет снимок; отсутствие записи — не ошибка.
func (r *pgGameSaveRepository) DeleteByUserAndSlot(ctx context.Context, userID string, slot int) error {
	log := r.logger.With(zap.String("userID", userID), zap.Int("slot", slot))

	tag, err := r.pool.Exec(ctx, deleteGameSaveQuery, userID, slot)
	if err != nil {
		log.Error("Error deleting game save", zap.Error(err))
		return fmt.Errorf("failed to delete game save for user %s: %w", userID, err)
	}
	if tag.RowsAffected() == 0 {
		log.Debug("No game save to delete")
	}
	return nil
}
