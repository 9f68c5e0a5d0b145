package engine

import (
	"context"
	"math/rand/v2"
	"time"

	"go.uber.org/zap"

	"campus-sim-server/internal/content"
	"campus-sim-server/internal/models"
)

// runLoop — тело тик-цикла. Каждый тик выполняется целиком до следующего
// интервала; паника внутри тика логируется и не убивает цикл.
func (e *Engine) runLoop(ctx context.Context) {
	interval := time.Duration(e.cfg.Tick.IntervalSeconds) * time.Second
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if stopped := e.safeTick(ctx); stopped {
				return
			}
		}
	}
}

// safeTick изолирует панику одного тика. true — движок остановился.
func (e *Engine) safeTick(ctx context.Context) (stopped bool) {
	defer func() {
		if r := recover(); r != nil {
			e.logger.Error("Паника в теле тика", zap.Any("panic", r))
		}
	}()
	return e.tick(ctx)
}

// tick — один шаг учёта ресурсов. Порядок строго последовательный:
// чтение → расчёт → запись → push.
func (e *Engine) tick(ctx context.Context) (stopped bool) {
	e.mu.Lock()
	e.tickCount++
	tickNo := e.tickCount
	e.mu.Unlock()
	engineTicksTotal.Inc()

	stats, err := e.repo.GetStats(ctx)
	if err != nil {
		e.logger.Warn("Тик пропущен: статы недоступны", zap.Error(err))
		return false
	}

	// Терминальная проверка до любых списаний
	if reason, over := e.gameOverReason(stats); over {
		e.finishGameOver(reason)
		return true
	}

	courseStates, err := e.repo.GetCourseStates(ctx)
	if err != nil {
		e.logger.Warn("Тик пропущен: режимы курсов недоступны", zap.Error(err))
		return false
	}

	courses := stats.Courses()
	if len(courses) == 0 {
		// Каникулы: лёгкое восстановление, расчёт нагрузки не нужен
		if _, err := e.repo.UpdateStatSafe(ctx, models.FieldEnergy, e.cfg.Tick.IdleEnergyRecovery, models.StatMin, models.StatMax); err != nil {
			e.logger.Warn("Не удалось применить восстановление на каникулах", zap.Error(err))
		}
		e.pushState(ctx, stats.SemesterIdx)
		return false
	}

	loads := make([]CourseLoad, 0, len(courses))
	for _, c := range courses {
		mode, ok := courseStates[c.ID]
		if !ok {
			mode = models.CourseStatePassive
		}
		loads = append(loads, CourseLoad{ID: c.ID, Credits: c.Credits, Mode: mode})
	}

	alloc := ComputeAllocation(e.cfg, loads, stats.IQ, stats.Sanity, stats.Stress)

	if err := e.repo.BatchUpdateCourseMastery(ctx, alloc.MasteryDeltas); err != nil {
		e.logger.Warn("Не удалось применить прирост прогресса", zap.Error(err))
	}

	newEnergy, err := e.repo.UpdateStatSafe(ctx, models.FieldEnergy, alloc.EnergyDelta, models.StatMin, models.StatMax)
	if err != nil {
		e.logger.Warn("Не удалось применить дельту энергии", zap.Error(err))
		newEnergy = stats.Energy
	}

	if alloc.StressDelta > 0 {
		if _, err := e.repo.UpdateStatSafe(ctx, models.FieldStress, alloc.StressDelta, models.StatMin, models.StatMax); err != nil {
			e.logger.Warn("Не удалось применить прирост стресса", zap.Error(err))
		}
	}

	// Списание этого тика могло добить энергию до нуля
	if newEnergy <= 0 {
		e.finishGameOver(e.cfg.GameOver.EnergyReason)
		return true
	}

	// Нарративные события и проверки достижений — отцепленные задачи:
	// медленный генератор контента не должен тормозить учёт ресурсов
	re := e.cfg.Events.RandomEvent
	if re.EveryTicks > 0 && tickNo%re.EveryTicks == 0 {
		if rand.Float64() < re.Probability {
			e.spawnTask("random_event", e.triggerRandomEvent)
		}
		e.spawnTask("achievements", e.checkAchievements)
	}
	nc := e.cfg.Events.Notification
	if nc.EveryTicks > 0 && tickNo%nc.EveryTicks == 0 && rand.Float64() < nc.Probability {
		e.spawnTask("notification", e.triggerNotification)
	}

	// Продление TTL редкое и намеренно не на каждом тике
	if tickNo%e.cfg.Tick.TTLRefreshEveryTicks == 0 {
		if err := e.repo.TouchTTL(ctx); err != nil {
			e.logger.Warn("Не удалось продлить TTL состояния", zap.Error(err))
		}
	}

	e.pushState(ctx, stats.SemesterIdx)
	return false
}

// gameOverReason возвращает человекочитаемую причину, если статы терминальны.
func (e *Engine) gameOverReason(stats models.PlayerStats) (string, bool) {
	switch {
	case stats.Sanity <= 0:
		return e.cfg.GameOver.SanityReason, true
	case stats.Energy <= 0:
		return e.cfg.GameOver.EnergyReason, true
	default:
		return "", false
	}
}

// finishGameOver эмитит терминальное событие и останавливает движок.
func (e *Engine) finishGameOver(reason string) {
	e.send(models.NewGameOverEvent(reason, e.cfg.GameOver.Restartable))
	e.Stop(ReasonGameOver)
}

// pushState пушит консолидированное состояние игрока.
func (e *Engine) pushState(ctx context.Context, semesterIdx int) {
	snapshot, err := e.repo.GetSnapshot(ctx)
	if err != nil {
		e.logger.Warn("Не удалось собрать снимок для push", zap.Error(err))
		return
	}

	duration := int64(e.cfg.SemesterDuration(semesterIdx))
	elapsed := time.Now().Unix() - snapshot.Stats.SemesterStartTime
	timeLeft := duration - elapsed
	if snapshot.Stats.SemesterStartTime <= 0 || timeLeft < 0 {
		timeLeft = 0
	}

	e.send(models.TickEvent{
		Type:             models.EventTypeTick,
		Stats:            snapshot.Stats,
		Courses:          snapshot.Courses,
		CourseStates:     snapshot.CourseStates,
		SemesterTimeLeft: timeLeft,
	})
}

// triggerRandomEvent генерирует случайное событие и отправляет его игроку.
// История недавних заголовков уводит генерацию от повторов.
func (e *Engine) triggerRandomEvent(ctx context.Context) {
	stats, err := e.repo.GetStats(ctx)
	if err != nil {
		return
	}
	recent, err := e.repo.GetEventHistory(ctx)
	if err != nil {
		e.logger.Debug("История событий недоступна", zap.Error(err))
	}

	event, err := e.content.RandomEvent(ctx, stats, recent)
	if err != nil {
		e.logger.Warn("Случайное событие не сгенерировано", zap.Error(err))
		return
	}

	if err := e.repo.AddEventToHistory(ctx, event.Title); err != nil {
		e.logger.Debug("Не удалось записать событие в историю", zap.Error(err))
	}
	e.send(models.NewRandomEvent(*event))
}

// triggerNotification отправляет короткое нарративное пуш-сообщение.
func (e *Engine) triggerNotification(ctx context.Context) {
	stats, err := e.repo.GetStats(ctx)
	if err != nil {
		return
	}
	msg, err := e.content.Notification(ctx, stats)
	if err != nil {
		msg = content.FallbackNotification
	}
	e.send(models.NewDescEvent(msg))
}
