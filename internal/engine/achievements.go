package engine

import (
	"context"

	"go.uber.org/zap"

	"campus-sim-server/internal/models"
)

// checkAchievements сверяет текущее состояние игрока со справочником
// достижений и разблокирует новые. Идемпотентно: повторная разблокировка
// не порождает события.
func (e *Engine) checkAchievements(ctx context.Context) {
	defs, err := e.world.Achievements(ctx)
	if err != nil || len(defs) == 0 {
		return
	}

	stats, err := e.repo.GetStats(ctx)
	if err != nil {
		return
	}
	unlocked, err := e.repo.GetUnlockedAchievements(ctx)
	if err != nil {
		e.logger.Debug("Разблокированные достижения недоступны", zap.Error(err))
	}
	unlockedSet := make(map[string]bool, len(unlocked))
	for _, code := range unlocked {
		unlockedSet[code] = true
	}

	var counts map[string]int64
	for _, def := range defs {
		if unlockedSet[def.Code] {
			continue
		}
		if def.Condition.Type == models.AchievementCondActionMin && counts == nil {
			counts, err = e.repo.GetActionCounts(ctx)
			if err != nil {
				e.logger.Debug("Счётчики действий недоступны", zap.Error(err))
				counts = map[string]int64{}
			}
		}
		if !conditionMet(def.Condition, stats, counts) {
			continue
		}

		isNew, err := e.repo.UnlockAchievement(ctx, def.Code)
		if err != nil {
			e.logger.Warn("Не удалось разблокировать достижение",
				zap.String("code", def.Code), zap.Error(err))
			continue
		}
		if isNew {
			e.logger.Info("Достижение разблокировано", zap.String("code", def.Code))
			e.send(models.NewAchievementUnlockedEvent(def))
		}
	}
}

// conditionMet вычисляет предикат одного достижения.
func conditionMet(cond models.AchievementCondition, stats models.PlayerStats, counts map[string]int64) bool {
	switch cond.Type {
	case models.AchievementCondStatMin:
		return float64(statByField(stats, cond.Field)) >= cond.Threshold
	case models.AchievementCondStatMax:
		return float64(statByField(stats, cond.Field)) <= cond.Threshold
	case models.AchievementCondGPAMin:
		return models.ParseFloatOr(stats.GPA, 0) >= cond.Threshold
	case models.AchievementCondActionMin:
		return float64(counts[cond.Field]) >= cond.Threshold
	default:
		return false
	}
}

// statByField достаёт числовой атрибут по имени поля хранения.
func statByField(stats models.PlayerStats, field string) int {
	switch field {
	case models.FieldEnergy:
		return stats.Energy
	case models.FieldSanity:
		return stats.Sanity
	case models.FieldStress:
		return stats.Stress
	case models.FieldIQ:
		return stats.IQ
	case models.FieldEQ:
		return stats.EQ
	case models.FieldLuck:
		return stats.Luck
	case models.FieldReputation:
		return stats.Reputation
	case models.FieldFailedCount:
		return stats.FailedCount
	default:
		return 0
	}
}
