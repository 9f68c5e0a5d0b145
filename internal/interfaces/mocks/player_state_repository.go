package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"campus-sim-server/internal/interfaces"
	"campus-sim-server/internal/models"
)

// PlayerStateRepository is a mock type for the PlayerStateRepository type
type PlayerStateRepository struct {
	mock.Mock
}

var _ interfaces.PlayerStateRepository = (*PlayerStateRepository)(nil)

func (_m *PlayerStateRepository) Exists(ctx context.Context) (bool, error) {
	ret := _m.Called(ctx)
	return ret.Get(0).(bool), ret.Error(1)
}

func (_m *PlayerStateRepository) InitGame(ctx context.Context, username string) (models.PlayerStats, error) {
	ret := _m.Called(ctx, username)
	return ret.Get(0).(models.PlayerStats), ret.Error(1)
}

func (_m *PlayerStateRepository) GetSnapshot(ctx context.Context) (*models.GameStateSnapshot, error) {
	ret := _m.Called(ctx)
	var r0 *models.GameStateSnapshot
	if ret.Get(0) != nil {
		r0 = ret.Get(0).(*models.GameStateSnapshot)
	}
	return r0, ret.Error(1)
}

func (_m *PlayerStateRepository) GetStats(ctx context.Context) (models.PlayerStats, error) {
	ret := _m.Called(ctx)
	return ret.Get(0).(models.PlayerStats), ret.Error(1)
}

func (_m *PlayerStateRepository) SetStats(ctx context.Context, fields map[string]interface{}) error {
	ret := _m.Called(ctx, fields)
	return ret.Error(0)
}

func (_m *PlayerStateRepository) UpdateStatSafe(ctx context.Context, field string, delta, min, max int) (int, error) {
	ret := _m.Called(ctx, field, delta, min, max)
	return ret.Get(0).(int), ret.Error(1)
}

func (_m *PlayerStateRepository) BatchUpdateCourseMastery(ctx context.Context, updates map[string]float64) error {
	ret := _m.Called(ctx, updates)
	return ret.Error(0)
}

func (_m *PlayerStateRepository) UpdateCourseMastery(ctx context.Context, courseID string, delta float64) (float64, error) {
	ret := _m.Called(ctx, courseID, delta)
	return ret.Get(0).(float64), ret.Error(1)
}

func (_m *PlayerStateRepository) SetCourseState(ctx context.Context, courseID string, state int) error {
	ret := _m.Called(ctx, courseID, state)
	return ret.Error(0)
}

func (_m *PlayerStateRepository) GetCourseStates(ctx context.Context) (map[string]int, error) {
	ret := _m.Called(ctx)
	var r0 map[string]int
	if ret.Get(0) != nil {
		r0 = ret.Get(0).(map[string]int)
	}
	return r0, ret.Error(1)
}

func (_m *PlayerStateRepository) IncrementActionCount(ctx context.Context, action string) (int64, error) {
	ret := _m.Called(ctx, action)
	return ret.Get(0).(int64), ret.Error(1)
}

func (_m *PlayerStateRepository) GetActionCounts(ctx context.Context) (map[string]int64, error) {
	ret := _m.Called(ctx)
	var r0 map[string]int64
	if ret.Get(0) != nil {
		r0 = ret.Get(0).(map[string]int64)
	}
	return r0, ret.Error(1)
}

func (_m *PlayerStateRepository) UnlockAchievement(ctx context.Context, code string) (bool, error) {
	ret := _m.Called(ctx, code)
	return ret.Get(0).(bool), ret.Error(1)
}

func (_m *PlayerStateRepository) GetUnlockedAchievements(ctx context.Context) ([]string, error) {
	ret := _m.Called(ctx)
	var r0 []string
	if ret.Get(0) != nil {
		r0 = ret.Get(0).([]string)
	}
	return r0, ret.Error(1)
}

func (_m *PlayerStateRepository) SetCooldown(ctx context.Context, action string, ts int64) error {
	ret := _m.Called(ctx, action, ts)
	return ret.Error(0)
}

func (_m *PlayerStateRepository) GetCooldowns(ctx context.Context) (map[string]int64, error) {
	ret := _m.Called(ctx)
	var r0 map[string]int64
	if ret.Get(0) != nil {
		r0 = ret.Get(0).(map[string]int64)
	}
	return r0, ret.Error(1)
}

func (_m *PlayerStateRepository) AddEventToHistory(ctx context.Context, title string) error {
	ret := _m.Called(ctx, title)
	return ret.Error(0)
}

func (_m *PlayerStateRepository) GetEventHistory(ctx context.Context) ([]string, error) {
	ret := _m.Called(ctx)
	var r0 []string
	if ret.Get(0) != nil {
		r0 = ret.Get(0).([]string)
	}
	return r0, ret.Error(1)
}

func (_m *PlayerStateRepository) IncrementSemester(ctx context.Context) (int, error) {
	ret := _m.Called(ctx)
	return ret.Get(0).(int), ret.Error(1)
}

func (_m *PlayerStateRepository) ApplySemesterCourses(ctx context.Context, statsUpdate map[string]interface{}, courses map[string]float64, states map[string]int) error {
	ret := _m.Called(ctx, statsUpdate, courses, states)
	return ret.Error(0)
}

func (_m *PlayerStateRepository) SetGameData(ctx context.Context, stats map[string]interface{}, courses map[string]float64, states map[string]int, achievements []string) error {
	ret := _m.Called(ctx, stats, courses, states, achievements)
	return ret.Error(0)
}

func (_m *PlayerStateRepository) TouchTTL(ctx context.Context) error {
	ret := _m.Called(ctx)
	return ret.Error(0)
}

func (_m *PlayerStateRepository) DeleteAll(ctx context.Context) error {
	ret := _m.Called(ctx)
	return ret.Error(0)
}
