package repository_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"campus-sim-server/internal/interfaces"
	"campus-sim-server/internal/models"
	"campus-sim-server/internal/repository"
)

func newTestRepo(t *testing.T) (interfaces.PlayerStateRepository, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return repository.NewRedisPlayerRepository(client, "u1", time.Hour, zap.NewNop()), client
}

func TestBatchUpdateCourseMastery_ColdScriptCache(t *testing.T) {
	repo, _ := newTestRepo(t)
	ctx := context.Background()

	// Свежий сервер: кэш Lua-скриптов пуст, пайплайновый EVALSHA падает
	// с NOSCRIPT — батч обязан доехать запасным путём
	require.NoError(t, repo.BatchUpdateCourseMastery(ctx, map[string]float64{
		"CS001":   5.5,
		"MATH002": 250,
	}))

	snap, err := repo.GetSnapshot(ctx)
	require.NoError(t, err)
	assert.InDelta(t, 5.5, snap.Courses["CS001"], 1e-9)
	// Кламп прогресса сверху
	assert.InDelta(t, 100, snap.Courses["MATH002"], 1e-9)

	// Повторный батч работает, когда скрипт уже в кэше
	require.NoError(t, repo.BatchUpdateCourseMastery(ctx, map[string]float64{"CS001": 3}))

	snap, err = repo.GetSnapshot(ctx)
	require.NoError(t, err)
	assert.InDelta(t, 8.5, snap.Courses["CS001"], 1e-9)
}

func TestBatchUpdateCourseMastery_SurvivesScriptFlush(t *testing.T) {
	repo, client := newTestRepo(t)
	ctx := context.Background()

	require.NoError(t, repo.BatchUpdateCourseMastery(ctx, map[string]float64{"CS001": 10}))

	// Рестарт Redis посреди сессии опустошает кэш скриптов
	require.NoError(t, client.ScriptFlush(ctx).Err())

	require.NoError(t, repo.BatchUpdateCourseMastery(ctx, map[string]float64{"CS001": 10}))

	snap, err := repo.GetSnapshot(ctx)
	require.NoError(t, err)
	assert.InDelta(t, 20, snap.Courses["CS001"], 1e-9)
}

func TestUpdateStatSafe_ClampsBothBounds(t *testing.T) {
	repo, _ := newTestRepo(t)
	ctx := context.Background()

	_, err := repo.InitGame(ctx, "张三")
	require.NoError(t, err)

	low, err := repo.UpdateStatSafe(ctx, models.FieldEnergy, -500, models.StatMin, models.StatMax)
	require.NoError(t, err)
	assert.Equal(t, models.StatMin, low)

	high, err := repo.UpdateStatSafe(ctx, models.FieldEnergy, 500, models.StatMin, models.StatMax)
	require.NoError(t, err)
	assert.Equal(t, models.StatMax, high)
}

func TestGetSnapshot_IdempotentWithoutWrites(t *testing.T) {
	repo, _ := newTestRepo(t)
	ctx := context.Background()

	_, err := repo.InitGame(ctx, "张三")
	require.NoError(t, err)
	require.NoError(t, repo.ApplySemesterCourses(ctx,
		map[string]interface{}{models.FieldMajorAbbr: "CS"},
		map[string]float64{"CS001": 12.5},
		map[string]int{"CS001": models.CourseStateIntensive},
	))
	_, err = repo.UnlockAchievement(ctx, "social_butterfly")
	require.NoError(t, err)

	first, err := repo.GetSnapshot(ctx)
	require.NoError(t, err)
	second, err := repo.GetSnapshot(ctx)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, "CS", first.Stats.MajorAbbr)
	assert.Equal(t, models.CourseStateIntensive, first.CourseStates["CS001"])
	assert.Equal(t, []string{"social_butterfly"}, first.Achievements)
}

func TestAddEventToHistory_BoundedNewestFirst(t *testing.T) {
	repo, _ := newTestRepo(t)
	ctx := context.Background()

	for i := 1; i <= 12; i++ {
		require.NoError(t, repo.AddEventToHistory(ctx, fmt.Sprintf("событие %d", i)))
	}

	history, err := repo.GetEventHistory(ctx)
	require.NoError(t, err)
	require.Len(t, history, 10)
	assert.Equal(t, "событие 12", history[0])
	assert.Equal(t, "событие 3", history[9])
}

func TestDeleteAll_RemovesState(t *testing.T) {
	repo, _ := newTestRepo(t)
	ctx := context.Background()

	_, err := repo.InitGame(ctx, "张三")
	require.NoError(t, err)

	require.NoError(t, repo.DeleteAll(ctx))

	exists, err := repo.Exists(ctx)
	require.NoError(t, err)
	assert.False(t, exists)

	_, err = repo.GetStats(ctx)
	assert.ErrorIs(t, err, models.ErrStateNotFound)
}
