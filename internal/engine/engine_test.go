package engine

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"campus-sim-server/internal/content"
	"campus-sim-server/internal/interfaces"
	"campus-sim-server/internal/interfaces/mocks"
	"campus-sim-server/internal/models"
	"campus-sim-server/internal/service"
)

// recordingNotifier копит отправленные события для ассертов.
type recordingNotifier struct {
	mu            sync.Mutex
	events        []interface{}
	disconnected  []string
	disconnReason string
}

func (n *recordingNotifier) SendPersonalMessage(payload interface{}, userID string) bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, payload)
	return true
}

func (n *recordingNotifier) Broadcast(payload interface{}) {}

func (n *recordingNotifier) Disconnect(userID string, reason string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.disconnected = append(n.disconnected, userID)
	n.disconnReason = reason
}

func (n *recordingNotifier) all() []interface{} {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]interface{}(nil), n.events...)
}

func (n *recordingNotifier) findGameOver() *models.GameOverEvent {
	for _, e := range n.all() {
		if ev, ok := e.(models.GameOverEvent); ok {
			return &ev
		}
	}
	return nil
}

type engineFixture struct {
	eng      *Engine
	repo     *mocks.PlayerStateRepository
	world    *mocks.WorldCatalog
	content  *mocks.ContentGenerator
	saves    *mocks.GameSaveRepository
	notifier *recordingNotifier
}

func newEngineFixture(t *testing.T) *engineFixture {
	t.Helper()
	repo := new(mocks.PlayerStateRepository)
	world := new(mocks.WorldCatalog)
	contentGen := new(mocks.ContentGenerator)
	saveRepo := new(mocks.GameSaveRepository)
	notifier := &recordingNotifier{}

	logger := zap.NewNop()
	saveService := service.NewSaveService(saveRepo, logger)
	gameService := service.NewGameService("u1", repo, world, saveService, logger)

	eng := NewEngine("u1", "张三", "TIER_1",
		repo, world, contentGen, notifier, gameService, testBalance(), logger)

	return &engineFixture{
		eng: eng, repo: repo, world: world,
		content: contentGen, saves: saveRepo, notifier: notifier,
	}
}

func activeStats() models.PlayerStats {
	return models.PlayerStats{
		Username:          "张三",
		Major:             "计算机科学与技术",
		MajorAbbr:         "CS",
		Semester:          "大一秋冬",
		SemesterIdx:       1,
		SemesterStartTime: 1,
		Energy:            100,
		Sanity:            50,
		Stress:            30,
		IQ:                100,
		EQ:                70,
		Luck:              50,
		GPA:               "0.0",
		CourseInfoJSON:    `[{"id":"CS001","name":"程序设计基础","credits":4}]`,
	}
}

func snapshotFor(stats models.PlayerStats) *models.GameStateSnapshot {
	return &models.GameStateSnapshot{
		Stats:        stats,
		Courses:      map[string]float64{"CS001": 10},
		CourseStates: map[string]int{"CS001": models.CourseStatePassive},
	}
}

func TestEngine_TickStopsOnZeroSanity(t *testing.T) {
	f := newEngineFixture(t)
	stats := activeStats()
	stats.Sanity = 0
	f.repo.On("GetStats", mock.Anything).Return(stats, nil)

	stopped := f.eng.tick(context.Background())

	assert.True(t, stopped)
	assert.Equal(t, StatusStopped, f.eng.Status())

	over := f.notifier.findGameOver()
	require.NotNil(t, over)
	assert.Equal(t, "心态崩了", over.Reason)
	assert.True(t, over.Restartable)
}

func TestEngine_TickStopsWhenDrainExhaustsEnergy(t *testing.T) {
	f := newEngineFixture(t)
	stats := activeStats()
	stats.Energy = 1

	f.repo.On("GetStats", mock.Anything).Return(stats, nil)
	f.repo.On("GetCourseStates", mock.Anything).
		Return(map[string]int{"CS001": models.CourseStateIntensive}, nil)
	f.repo.On("BatchUpdateCourseMastery", mock.Anything, mock.Anything).Return(nil)
	f.repo.On("UpdateStatSafe", mock.Anything, models.FieldEnergy, mock.Anything, 0, 200).
		Return(0, nil)
	f.repo.On("UpdateStatSafe", mock.Anything, models.FieldStress, mock.Anything, 0, 200).
		Return(31, nil)

	stopped := f.eng.tick(context.Background())

	assert.True(t, stopped)
	over := f.notifier.findGameOver()
	require.NotNil(t, over)
	assert.Equal(t, "精力耗尽", over.Reason)
}

func TestEngine_TickVacationRecovery(t *testing.T) {
	f := newEngineFixture(t)
	stats := activeStats()
	stats.CourseInfoJSON = "[]"

	f.repo.On("GetStats", mock.Anything).Return(stats, nil)
	f.repo.On("GetCourseStates", mock.Anything).Return(map[string]int{}, nil)
	f.repo.On("UpdateStatSafe", mock.Anything, models.FieldEnergy, 2, 0, 200).Return(100, nil)
	f.repo.On("GetSnapshot", mock.Anything).Return(snapshotFor(stats), nil)

	stopped := f.eng.tick(context.Background())

	assert.False(t, stopped)
	f.repo.AssertNotCalled(t, "BatchUpdateCourseMastery", mock.Anything, mock.Anything)
}

func TestEngine_PauseResumeLifecycle(t *testing.T) {
	f := newEngineFixture(t)

	assert.Equal(t, StatusStopped, f.eng.Status())

	f.eng.Start()
	assert.Equal(t, StatusRunning, f.eng.Status())

	f.eng.Pause()
	assert.Equal(t, StatusPaused, f.eng.Status())

	assert.True(t, f.eng.Resume())
	assert.Equal(t, StatusRunning, f.eng.Status())

	// Resume на работающем движке — no-op
	assert.False(t, f.eng.Resume())

	f.eng.Stop(ReasonDisconnected)
	assert.Equal(t, StatusStopped, f.eng.Status())
	assert.False(t, f.eng.Resume())

	f.eng.Wait()
}

func TestHandleAction_RestartAfterGameOverRevivesLoop(t *testing.T) {
	f := newEngineFixture(t)
	dead := activeStats()
	dead.Sanity = 0
	f.repo.On("GetStats", mock.Anything).Return(dead, nil).Once()

	require.True(t, f.eng.tick(context.Background()))
	require.Equal(t, StatusStopped, f.eng.Status())
	// game_over гасит корневой контекст движка
	require.Error(t, f.eng.Context().Err())

	fresh := activeStats()
	f.repo.On("TouchTTL", mock.Anything).Return(nil)
	f.repo.On("IncrementActionCount", mock.Anything, "restart").Return(int64(1), nil)
	f.repo.On("DeleteAll", mock.Anything).Return(nil)
	f.repo.On("Exists", mock.Anything).Return(false, nil)
	f.saves.On("GetByUserAndSlot", mock.Anything, "u1", models.DefaultSaveSlot).
		Return(nil, models.ErrSaveNotFound)
	f.repo.On("InitGame", mock.Anything, "张三").Return(fresh, nil)
	f.world.On("GetRandomMajorAssignment", mock.Anything, "TIER_1").
		Return(&interfaces.MajorAssignment{
			Major:          interfaces.MajorInfo{Name: "计算机科学与技术", Abbr: "CS", IQBuff: 5, StressBase: 30},
			InitialCourses: fresh.Courses(),
		}, nil)
	f.repo.On("GetStats", mock.Anything).Return(fresh, nil)
	f.repo.On("ApplySemesterCourses", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(nil)
	f.repo.On("GetSnapshot", mock.Anything).Return(snapshotFor(fresh), nil)

	f.eng.HandleAction(f.eng.Context(), models.Action{Kind: models.ActionRestart})

	// Перезапущенный движок живёт на свежем контексте, а не на отменённом
	assert.Equal(t, StatusRunning, f.eng.Status())
	assert.NoError(t, f.eng.Context().Err())

	var gotInit bool
	for _, e := range f.notifier.all() {
		if _, ok := e.(models.InitEvent); ok {
			gotInit = true
		}
	}
	assert.True(t, gotInit, "после рестарта игрок должен получить init")

	f.eng.Stop(ReasonDisconnected)
	f.eng.Wait()
}

func TestChangeCourseState_SentinelErrors(t *testing.T) {
	f := newEngineFixture(t)
	f.repo.On("GetStats", mock.Anything).Return(activeStats(), nil)

	err := f.eng.changeCourseState(context.Background(), models.Action{
		Kind: models.ActionChangeCourseState, Target: "CS001", Value: 7, HasValue: true,
	})
	assert.ErrorIs(t, err, models.ErrInvalidCourseState)

	err = f.eng.changeCourseState(context.Background(), models.Action{
		Kind: models.ActionChangeCourseState, Target: "PHYS999", Value: 1, HasValue: true,
	})
	assert.ErrorIs(t, err, models.ErrUnknownCourse)

	f.repo.AssertNotCalled(t, "SetCourseState", mock.Anything, mock.Anything, mock.Anything)
}

func TestHandleAction_ChangeCourseState(t *testing.T) {
	f := newEngineFixture(t)
	stats := activeStats()

	f.repo.On("TouchTTL", mock.Anything).Return(nil)
	f.repo.On("IncrementActionCount", mock.Anything, "change_course_state").Return(int64(1), nil)
	f.repo.On("GetStats", mock.Anything).Return(stats, nil)
	f.repo.On("SetCourseState", mock.Anything, "CS001", models.CourseStateIntensive).Return(nil)
	f.repo.On("GetSnapshot", mock.Anything).Return(snapshotFor(stats), nil)

	f.eng.HandleAction(context.Background(), models.Action{
		Kind:     models.ActionChangeCourseState,
		Target:   "CS001",
		Value:    models.CourseStateIntensive,
		HasValue: true,
	})

	f.repo.AssertCalled(t, "SetCourseState", mock.Anything, "CS001", models.CourseStateIntensive)
}

func TestHandleAction_ChangeCourseStateRejectsInvalid(t *testing.T) {
	f := newEngineFixture(t)
	f.repo.On("TouchTTL", mock.Anything).Return(nil)
	f.repo.On("IncrementActionCount", mock.Anything, mock.Anything).Return(int64(1), nil)
	f.repo.On("GetStats", mock.Anything).Return(activeStats(), nil)

	// Режим вне диапазона
	f.eng.HandleAction(context.Background(), models.Action{
		Kind: models.ActionChangeCourseState, Target: "CS001", Value: 7, HasValue: true,
	})
	// Курс не из расписания
	f.eng.HandleAction(context.Background(), models.Action{
		Kind: models.ActionChangeCourseState, Target: "PHYS999", Value: 1, HasValue: true,
	})

	f.repo.AssertNotCalled(t, "SetCourseState", mock.Anything, mock.Anything, mock.Anything)
}

func TestHandleAction_RelaxCooldownRefusesWithoutMutation(t *testing.T) {
	f := newEngineFixture(t)
	f.repo.On("TouchTTL", mock.Anything).Return(nil)
	f.repo.On("IncrementActionCount", mock.Anything, "relax").Return(int64(1), nil)
	// Кулдаун gym ещё не истёк
	f.repo.On("GetCooldowns", mock.Anything).
		Return(map[string]int64{"gym": time.Now().Unix()}, nil)

	f.eng.HandleAction(context.Background(), models.Action{
		Kind: models.ActionRelax, Target: "gym",
	})

	f.repo.AssertNotCalled(t, "UpdateStatSafe",
		mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	f.repo.AssertNotCalled(t, "SetCooldown", mock.Anything, mock.Anything, mock.Anything)

	var refused bool
	for _, e := range f.notifier.all() {
		if _, ok := e.(models.DescEvent); ok {
			refused = true
		}
	}
	assert.True(t, refused, "отказ по кулдауну должен быть виден игроку")
}

func TestHandleAction_RelaxAppliesEffects(t *testing.T) {
	f := newEngineFixture(t)
	stats := activeStats()
	f.repo.On("TouchTTL", mock.Anything).Return(nil)
	f.repo.On("IncrementActionCount", mock.Anything, "relax").Return(int64(1), nil)
	f.repo.On("GetCooldowns", mock.Anything).Return(map[string]int64{}, nil)
	f.repo.On("UpdateStatSafe", mock.Anything, models.FieldEnergy, 10, 0, 200).Return(100, nil)
	f.repo.On("UpdateStatSafe", mock.Anything, models.FieldSanity, 5, 0, 200).Return(55, nil)
	f.repo.On("UpdateStatSafe", mock.Anything, models.FieldStress, -5, 0, 200).Return(25, nil)
	f.repo.On("SetCooldown", mock.Anything, "gym", mock.Anything).Return(nil)
	f.repo.On("GetStats", mock.Anything).Return(stats, nil)
	f.repo.On("GetSnapshot", mock.Anything).Return(snapshotFor(stats), nil)

	f.eng.HandleAction(context.Background(), models.Action{
		Kind: models.ActionRelax, Target: "gym",
	})

	f.repo.AssertCalled(t, "SetCooldown", mock.Anything, "gym", mock.Anything)
}

func TestHandleAction_ExamWritesGPA(t *testing.T) {
	f := newEngineFixture(t)
	stats := activeStats()
	stats.Sanity = 80
	stats.Stress = 50
	snapshot := snapshotFor(stats)
	snapshot.Courses = map[string]float64{"CS001": 100}

	f.repo.On("TouchTTL", mock.Anything).Return(nil)
	f.repo.On("IncrementActionCount", mock.Anything, "exam").Return(int64(1), nil)
	f.repo.On("GetSnapshot", mock.Anything).Return(snapshot, nil)
	f.repo.On("UpdateStatSafe", mock.Anything, models.FieldSanity, 10, 0, 200).Return(90, nil)
	f.repo.On("GetStats", mock.Anything).Return(stats, nil)
	f.world.On("Achievements", mock.Anything).Return(nil, nil)

	var written map[string]interface{}
	f.repo.On("SetStats", mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) {
			written = args.Get(1).(map[string]interface{})
		}).Return(nil)

	f.eng.HandleAction(context.Background(), models.Action{Kind: models.ActionExam})

	f.eng.Stop(ReasonDisconnected)
	f.eng.Wait()

	// Полное освоение при отличном рассудке гарантирует満绩 при любом броске
	require.NotNil(t, written)
	assert.Equal(t, "4.00", written[models.FieldGPA])
	assert.Equal(t, "4.00", written[models.FieldHighestGPA])
	assert.Equal(t, 0, written[models.FieldFailedCount])

	var summary *models.SemesterSummaryEvent
	for _, e := range f.notifier.all() {
		if ev, ok := e.(models.SemesterSummaryEvent); ok {
			summary = &ev
		}
	}
	require.NotNil(t, summary)
	assert.Equal(t, "4.00", summary.Data.GPA)
	assert.Zero(t, summary.Data.FailedCount)
}

func TestHandleAction_NextSemesterGraduates(t *testing.T) {
	f := newEngineFixture(t)
	stats := activeStats()
	stats.SemesterIdx = 9

	f.repo.On("TouchTTL", mock.Anything).Return(nil)
	f.repo.On("IncrementActionCount", mock.Anything, "next_semester").Return(int64(1), nil)
	f.repo.On("IncrementSemester", mock.Anything).Return(9, nil)
	f.repo.On("GetStats", mock.Anything).Return(stats, nil)
	f.repo.On("GetUnlockedAchievements", mock.Anything).Return([]string{"gpa_king"}, nil)
	f.repo.On("GetSnapshot", mock.Anything).Return(snapshotFor(stats), nil)
	f.saves.On("Upsert", mock.Anything, mock.Anything).Return(nil)
	// Генератор недоступен — используется статический эпилог
	f.content.On("GraduationEpilogue", mock.Anything, mock.Anything, mock.Anything).
		Return("", errors.New("llm unavailable"))

	f.eng.HandleAction(context.Background(), models.Action{Kind: models.ActionNextSemester})
	f.eng.Wait()

	assert.Equal(t, StatusStopped, f.eng.Status())

	var grad *models.GraduationEvent
	for _, e := range f.notifier.all() {
		if ev, ok := e.(models.GraduationEvent); ok {
			grad = &ev
		}
	}
	require.NotNil(t, grad)
	assert.Equal(t, content.FallbackEpilogue, grad.Data.Epilogue)
}

func TestHandleAction_SaveAndExitDisconnects(t *testing.T) {
	f := newEngineFixture(t)
	stats := activeStats()

	f.repo.On("TouchTTL", mock.Anything).Return(nil)
	f.repo.On("IncrementActionCount", mock.Anything, "save_and_exit").Return(int64(1), nil)
	f.repo.On("GetSnapshot", mock.Anything).Return(snapshotFor(stats), nil)
	f.saves.On("Upsert", mock.Anything, mock.Anything).Return(nil)

	f.eng.HandleAction(context.Background(), models.Action{Kind: models.ActionSaveAndExit})
	f.eng.Wait()

	assert.Equal(t, StatusStopped, f.eng.Status())
	assert.Contains(t, f.notifier.disconnected, "u1")

	var saved *models.SaveResultEvent
	for _, e := range f.notifier.all() {
		if ev, ok := e.(models.SaveResultEvent); ok {
			saved = &ev
		}
	}
	require.NotNil(t, saved)
	assert.True(t, saved.Data.Success)
}

func TestHandleAction_UnknownIsIgnored(t *testing.T) {
	f := newEngineFixture(t)
	f.repo.On("TouchTTL", mock.Anything).Return(nil)

	f.eng.HandleAction(context.Background(), models.Action{
		Kind: models.ActionUnknown, Raw: "dance",
	})

	f.repo.AssertNotCalled(t, "IncrementActionCount", mock.Anything, mock.Anything)
	assert.Empty(t, f.notifier.all())
}
