package engine

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"time"

	"go.uber.org/zap"

	"campus-sim-server/internal/balance"
	"campus-sim-server/internal/content"
	"campus-sim-server/internal/models"
	"campus-sim-server/internal/service"
)

const graduationSemesterIdx = 8

// Атрибуты, которые событие вправе менять. Всё прочее в effects игнорируется.
var eventMutableStats = map[string]bool{
	models.FieldEnergy:     true,
	models.FieldSanity:     true,
	models.FieldStress:     true,
	models.FieldIQ:         true,
	models.FieldEQ:         true,
	models.FieldLuck:       true,
	models.FieldReputation: true,
}

// HandleAction — синхронный диспетчер команд игрока. Любая ошибка внутри
// обработчика логируется и не закрывает канал.
func (e *Engine) HandleAction(ctx context.Context, action models.Action) {
	// Живой игрок продлевает TTL каждым принятым сообщением
	if err := e.repo.TouchTTL(ctx); err != nil {
		e.logger.Debug("Не удалось продлить TTL по действию", zap.Error(err))
	}

	switch action.Kind {
	case models.ActionPing:
		e.send(models.NewSimpleEvent(models.EventTypePong))
		return
	case models.ActionPause:
		e.Pause()
		e.send(models.NewSimpleEvent(models.EventTypePaused))
	case models.ActionResume:
		if e.Resume() {
			e.send(models.NewSimpleEvent(models.EventTypeResumed))
			e.pushCurrent(ctx)
		}
	case models.ActionRestart:
		ctx = e.handleRestart(ctx)
	case models.ActionChangeCourseState:
		e.handleChangeCourseState(ctx, action)
	case models.ActionRelax:
		e.handleRelax(ctx, action.Target)
	case models.ActionExam:
		e.handleExam(ctx)
	case models.ActionEventChoice:
		e.handleEventChoice(ctx, action)
	case models.ActionNextSemester:
		e.handleNextSemester(ctx)
	case models.ActionSaveGame:
		e.handleSave(ctx, false)
	case models.ActionSaveAndExit:
		e.handleSave(ctx, true)
	case models.ActionExitWithoutSave:
		e.handleExitWithoutSave(ctx)
	default:
		e.logger.Warn("Неизвестное действие проигнорировано", zap.String("action", action.Raw))
		return
	}

	if _, err := e.repo.IncrementActionCount(ctx, string(action.Kind)); err != nil {
		e.logger.Debug("Не удалось учесть действие", zap.Error(err))
	}
}

// pushCurrent — немедленный push состояния вне тика.
func (e *Engine) pushCurrent(ctx context.Context) {
	stats, err := e.repo.GetStats(ctx)
	if err != nil {
		e.logger.Warn("Не удалось прочитать статы для push", zap.Error(err))
		return
	}
	e.pushState(ctx, stats.SemesterIdx)
}

// handleRestart сбрасывает прохождение: гасит цикл, чистит эфемерное
// состояние, инициализирует новое и перезапускает цикл. Возвращает контекст,
// на котором живёт перезапущенный движок.
func (e *Engine) handleRestart(ctx context.Context) context.Context {
	e.mu.Lock()
	if e.status == StatusRunning {
		e.loopCancel()
	}
	e.status = StatusPaused
	// После game_over корневой контекст уже отменён; без нового контекста
	// перезапущенный цикл умрёт на первом же обращении к хранилищу
	if e.rootCtx.Err() != nil {
		e.rootCtx, e.rootCancel = context.WithCancel(context.Background())
	}
	ctx = e.rootCtx
	e.mu.Unlock()

	if err := e.repo.DeleteAll(ctx); err != nil {
		e.logger.Error("Не удалось очистить состояние при рестарте", zap.Error(err))
		return ctx
	}

	snapshot, _, err := e.game.PrepareGameContext(ctx, e.username, e.tier)
	if err != nil {
		e.logger.Error("Не удалось переинициализировать игру", zap.Error(err))
		return ctx
	}

	e.send(models.NewInitEvent(snapshot.Stats))

	e.mu.Lock()
	e.tickCount = 0
	e.startLoopLocked()
	e.mu.Unlock()

	e.logger.Info("Прохождение перезапущено")
	return ctx
}

// handleChangeCourseState пишет новый режим усилий по курсу. Отказ по
// недопустимому режиму или чужому курсу уходит игроку обычным событием.
func (e *Engine) handleChangeCourseState(ctx context.Context, action models.Action) {
	switch err := e.changeCourseState(ctx, action); {
	case err == nil:
	case errors.Is(err, models.ErrInvalidCourseState):
		e.logger.Warn("Недопустимый режим курса",
			zap.String("course", action.Target), zap.Int("value", action.Value))
		e.send(models.NewDescEvent("没有这种学习状态。"))
	case errors.Is(err, models.ErrUnknownCourse):
		e.logger.Warn("Смена режима по неизвестному курсу", zap.String("course", action.Target))
		e.send(models.NewDescEvent("课表里没有这门课。"))
	default:
		e.logger.Error("Не удалось сменить режим курса", zap.Error(err))
	}
}

func (e *Engine) changeCourseState(ctx context.Context, action models.Action) error {
	if !action.HasValue || action.Value < models.CourseStateIdle || action.Value > models.CourseStateIntensive {
		return models.ErrInvalidCourseState
	}

	stats, err := e.repo.GetStats(ctx)
	if err != nil {
		return err
	}
	enrolled := false
	for _, c := range stats.Courses() {
		if c.ID == action.Target {
			enrolled = true
			break
		}
	}
	if !enrolled {
		return models.ErrUnknownCourse
	}

	if err := e.repo.SetCourseState(ctx, action.Target, action.Value); err != nil {
		return err
	}
	e.pushState(ctx, stats.SemesterIdx)
	return nil
}

// handleRelax — действие отдыха с независимым кулдауном на каждую цель.
func (e *Engine) handleRelax(ctx context.Context, target string) {
	ra, ok := e.cfg.Relax(target)
	if !ok {
		e.logger.Warn("Неизвестная цель отдыха", zap.String("target", target))
		e.send(models.NewDescEvent("这里没有这种放松方式。"))
		return
	}

	cooldowns, err := e.repo.GetCooldowns(ctx)
	if err != nil {
		e.logger.Warn("Кулдауны недоступны", zap.Error(err))
		return
	}
	now := time.Now().Unix()
	if last, used := cooldowns[target]; used {
		remaining := last + int64(ra.CooldownSeconds) - now
		if remaining > 0 {
			// Отказ без мутации состояния
			e.send(models.NewDescEvent(fmt.Sprintf("还在冷却中，剩余 %d 秒。", remaining)))
			return
		}
	}

	e.applyEffects(ctx, ra.Effects)

	if err := e.repo.SetCooldown(ctx, target, now); err != nil {
		e.logger.Warn("Не удалось записать кулдаун", zap.Error(err))
	}

	if len(ra.Outcomes) > 0 {
		// Форумная цель: взвешенный исход плюс сгенерированный пост
		outcome := pickOutcome(ra.Outcomes)
		e.applyEffects(ctx, outcome.Effects)
		e.spawnTask("forum_post", func(taskCtx context.Context) {
			e.sendForumPost(taskCtx, outcome.Suffix)
		})
	} else if ra.Message != "" {
		e.send(models.NewDescEvent(ra.Message))
	}

	e.pushCurrent(ctx)
}

// applyEffects применяет дельты атрибутов через атомарный clamp-update.
func (e *Engine) applyEffects(ctx context.Context, effects map[string]int) {
	for field, delta := range effects {
		if !eventMutableStats[field] {
			e.logger.Warn("Эффект по недопустимому полю пропущен", zap.String("field", field))
			continue
		}
		if _, err := e.repo.UpdateStatSafe(ctx, field, delta, models.StatMin, models.StatMax); err != nil {
			e.logger.Warn("Не удалось применить эффект",
				zap.String("field", field), zap.Error(err))
		}
	}
}

// pickOutcome — взвешенный выбор исхода.
func pickOutcome(outcomes []balance.RelaxOutcome) balance.RelaxOutcome {
	total := 0
	for _, o := range outcomes {
		total += o.Weight
	}
	if total <= 0 {
		return outcomes[0]
	}
	roll := rand.IntN(total)
	for _, o := range outcomes {
		roll -= o.Weight
		if roll < 0 {
			return o
		}
	}
	return outcomes[len(outcomes)-1]
}

// sendForumPost генерирует пост и отправляет его с суффиксом исхода.
func (e *Engine) sendForumPost(ctx context.Context, suffix string) {
	stats, err := e.repo.GetStats(ctx)
	if err != nil {
		return
	}
	post, err := e.content.ForumPost(ctx, stats)
	if err != nil {
		post = content.FallbackForumPost
	}
	msg := fmt.Sprintf("你在CC98刷到了：\n“%s”", post)
	if suffix != "" {
		msg += "\n" + suffix
	}
	e.send(models.NewDescEvent(msg))
}

// handleExam — итоговая аттестация текущего семестра.
func (e *Engine) handleExam(ctx context.Context) {
	snapshot, err := e.repo.GetSnapshot(ctx)
	if err != nil {
		e.logger.Error("Не удалось собрать данные для экзамена", zap.Error(err))
		return
	}
	stats := snapshot.Stats

	result := SettleExam(e.cfg, ExamInput{
		Courses: stats.Courses(),
		Mastery: snapshot.Courses,
		Sanity:  stats.Sanity,
		Stress:  stats.Stress,
		Luck:    stats.Luck,
	}, func() float64 { return -2 + rand.Float64()*7 })

	if _, err := e.repo.UpdateStatSafe(ctx, models.FieldSanity, result.SanityDelta, models.StatMin, models.StatMax); err != nil {
		e.logger.Warn("Не удалось применить исход сессии к рассудку", zap.Error(err))
	}

	gpaStr := fmt.Sprintf("%.2f", result.GPA)
	update := map[string]interface{}{
		models.FieldGPA: gpaStr,
		// Перезапись, не максимум: поведение сохранено намеренно
		models.FieldHighestGPA:  gpaStr,
		models.FieldFailedCount: stats.FailedCount + result.FailedCount,
	}
	if err := e.repo.SetStats(ctx, update); err != nil {
		e.logger.Error("Не удалось записать итоги сессии", zap.Error(err))
	}

	e.send(models.NewSemesterSummaryEvent(gpaStr, result.FailedCount, result.Transcript))

	msg := fmt.Sprintf("期末考试结束！GPA: %s", gpaStr)
	if result.FailedCount > 0 {
		msg += fmt.Sprintf(" | 挂了 %d 门！", result.FailedCount)
	} else {
		msg += " | 全部通过！"
	}
	e.send(models.NewDescEvent(msg))

	e.spawnTask("achievements", e.checkAchievements)
	e.pushCurrent(ctx)
}

// handleEventChoice применяет эффекты ранее предъявленного выбора.
func (e *Engine) handleEventChoice(ctx context.Context, action models.Action) {
	e.applyEffects(ctx, action.Effects)
	if action.EffectDesc != "" {
		e.send(models.NewDescEvent(fmt.Sprintf("事件结果：%s", action.EffectDesc)))
	}
	e.pushCurrent(ctx)
}

// handleNextSemester двигает индекс семестра: либо выпуск, либо новый набор
// курсов с автосохранением и каникулярным событием.
func (e *Engine) handleNextSemester(ctx context.Context) {
	newIdx, err := e.repo.IncrementSemester(ctx)
	if err != nil {
		e.logger.Error("Не удалось продвинуть семестр", zap.Error(err))
		return
	}

	if newIdx > graduationSemesterIdx {
		e.graduate(ctx)
		return
	}

	if err := e.game.ResetCoursesForNewSemester(ctx, newIdx); err != nil {
		e.logger.Error("Не удалось инициализировать новый семестр", zap.Error(err))
		return
	}

	// Автосохранение на границе семестра; неудача не прерывает игру
	if err := e.game.PersistSnapshot(ctx); err != nil {
		e.logger.Warn("Автосохранение не удалось", zap.Error(err))
	}

	e.spawnTask("holiday_event", func(taskCtx context.Context) {
		e.sendNewSemester(taskCtx, newIdx)
	})

	e.send(models.NewDescEvent("新学期开始了！"))
	e.pushCurrent(ctx)
}

// sendNewSemester отправляет событие нового семестра, по возможности
// с каникулярным событием от генератора.
func (e *Engine) sendNewSemester(ctx context.Context, semesterIdx int) {
	var holiday *models.RandomEventData
	stats, err := e.repo.GetStats(ctx)
	if err == nil {
		holiday, err = e.content.RandomEvent(ctx, stats, nil)
		if err != nil {
			e.logger.Debug("Каникулярное событие не сгенерировано", zap.Error(err))
			holiday = nil
		}
	}
	e.send(models.NewNewSemesterEvent(service.SemesterName(semesterIdx), holiday))
}

// graduate — финал прохождения: эпилог, попытка автосохранения, остановка.
func (e *Engine) graduate(ctx context.Context) {
	stats, err := e.repo.GetStats(ctx)
	if err != nil {
		e.logger.Error("Не удалось прочитать статы для выпуска", zap.Error(err))
		e.Stop(ReasonGraduated)
		return
	}
	achievements, err := e.repo.GetUnlockedAchievements(ctx)
	if err != nil {
		e.logger.Debug("Достижения недоступны для эпилога", zap.Error(err))
	}

	epilogue, err := e.content.GraduationEpilogue(ctx, stats, achievements)
	if err != nil {
		epilogue = content.FallbackEpilogue
	}

	if err := e.game.PersistSnapshot(ctx); err != nil {
		e.logger.Warn("Автосохранение при выпуске не удалось", zap.Error(err))
	}

	e.send(models.NewGraduationEvent(stats, epilogue))
	e.Stop(ReasonGraduated)
}

// handleSave — сохранение по запросу, опционально с выходом.
func (e *Engine) handleSave(ctx context.Context, exit bool) {
	err := e.game.PersistSnapshot(ctx)
	if err != nil {
		e.logger.Error("Сохранение не удалось", zap.Error(err))
		e.send(models.NewSaveResultEvent(false, "保存失败，请稍后再试。"))
		return
	}
	e.send(models.NewSaveResultEvent(true, "保存成功。"))

	if exit {
		e.notifier.Disconnect(e.userID, "save_and_exit")
		e.Stop(ReasonDisconnected)
	}
}

// handleExitWithoutSave удаляет эфемерное состояние и закрывает сессию.
func (e *Engine) handleExitWithoutSave(ctx context.Context) {
	if err := e.repo.DeleteAll(ctx); err != nil {
		e.logger.Error("Не удалось удалить состояние при выходе", zap.Error(err))
	}
	e.notifier.Disconnect(e.userID, "exit_without_save")
	e.Stop(ReasonDisconnected)
}
