package service

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"campus-sim-server/internal/interfaces"
	"campus-sim-server/internal/models"
)

// SaveService синхронизирует эфемерное состояние (Redis) с долговременными
// снимками (Postgres): сохранение по запросу/автосохранение и регидратация
// после истечения TTL.
type SaveService struct {
	saves  interfaces.GameSaveRepository
	logger *zap.Logger
}

// NewSaveService создает сервис персистентности.
func NewSaveService(saves interfaces.GameSaveRepository, logger *zap.Logger) *SaveService {
	return &SaveService{
		saves:  saves,
		logger: logger.Named("SaveService"),
	}
}

// Persist копирует текущий эфемерный снимок игрока в долговременное хранилище.
func (s *SaveService) Persist(ctx context.Context, repo interfaces.PlayerStateRepository, userID string) error {
	snapshot, err := repo.GetSnapshot(ctx)
	if err != nil {
		return fmt.Errorf("failed to snapshot state of user %s: %w", userID, err)
	}
	if snapshot.Stats.Username == "" {
		return fmt.Errorf("nothing to persist for user %s: %w", userID, models.ErrStateNotFound)
	}

	save := &models.GameSave{
		UserID:        userID,
		SaveSlot:      models.DefaultSaveSlot,
		StatsData:     snapshot.Stats.ToRedis(),
		CoursesData:   snapshot.Courses,
		StatesData:    snapshot.CourseStates,
		Achievements:  snapshot.Achievements,
		SemesterIndex: snapshot.Stats.SemesterIdx,
	}
	if err := s.saves.Upsert(ctx, save); err != nil {
		return err
	}

	s.logger.Info("Снимок игры сохранен",
		zap.String("userID", userID), zap.Int("semesterIdx", save.SemesterIndex))
	return nil
}

// Load регидратирует эфемерное состояние из последнего снимка.
// false — снимка нет (не ошибка).
func (s *SaveService) Load(ctx context.Context, repo interfaces.PlayerStateRepository, userID string) (bool, error) {
	save, err := s.saves.GetByUserAndSlot(ctx, userID, models.DefaultSaveSlot)
	if err != nil {
		if errors.Is(err, models.ErrSaveNotFound) {
			return false, nil
		}
		return false, err
	}

	// Снимок мог быть записан старой версией: прогоняем статы через ту же
	// нормализацию, что и чтение из Redis.
	stats := models.PlayerStatsFromRedis(stringifyValues(save.StatsData))

	if err := repo.SetGameData(ctx, stats.ToRedis(), save.CoursesData, save.StatesData, save.Achievements); err != nil {
		return false, fmt.Errorf("failed to rehydrate state of user %s: %w", userID, err)
	}

	s.logger.Info("Состояние восстановлено из снимка",
		zap.String("userID", userID), zap.Int("semesterIdx", save.SemesterIndex))
	return true, nil
}

// stringifyValues приводит JSONB-словарь к виду Redis-хэша.
func stringifyValues(raw map[string]interface{}) map[string]string {
	out := make(map[string]string, len(raw))
	for k, v := range raw {
		switch val := v.(type) {
		case string:
			out[k] = val
		case float64:
			// JSON-числа приходят как float64; целые не должны получить ".0"
			if val == float64(int64(val)) {
				out[k] = fmt.Sprintf("%d", int64(val))
			} else {
				out[k] = fmt.Sprintf("%g", val)
			}
		case bool:
			out[k] = fmt.Sprintf("%t", val)
		case nil:
			out[k] = ""
		default:
			out[k] = fmt.Sprintf("%v", val)
		}
	}
	return out
}
