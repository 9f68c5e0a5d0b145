package repository

import (
	"context"
	"fmt"
	"math/rand/v2"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"campus-sim-server/internal/interfaces"
	"campus-sim-server/internal/models"
)

// Compile-time check
var _ interfaces.PlayerStateRepository = (*redisPlayerRepository)(nil)

// clampIncrScript - атомарный clamp-and-increment целочисленного стата.
// Исключает гонку read-modify-write между тик-циклом и обработчиком действий
// на одном поле одного игрока.
var clampIncrScript = redis.NewScript(`
local current = tonumber(redis.call('HGET', KEYS[1], ARGV[1]) or 0)
local new_val = current + tonumber(ARGV[2])
if new_val < tonumber(ARGV[3]) then new_val = tonumber(ARGV[3]) end
if new_val > tonumber(ARGV[4]) then new_val = tonumber(ARGV[4]) end
redis.call('HSET', KEYS[1], ARGV[1], new_val)
return new_val
`)

// clampIncrFloatScript - то же для дробного прогресса курса, границы [0, 100].
// Возвращает строку: Lua-числа теряют точность при конвертации в integer reply.
var clampIncrFloatScript = redis.NewScript(`
local current = tonumber(redis.call('HGET', KEYS[1], ARGV[1]) or 0)
local new_val = current + tonumber(ARGV[2])
if new_val < 0 then new_val = 0 end
if new_val > 100 then new_val = 100 end
redis.call('HSET', KEYS[1], ARGV[1], new_val)
return tostring(new_val)
`)

type redisPlayerRepository struct {
	client *redis.Client
	userID string
	ttl    time.Duration
	logger *zap.Logger

	statsKey       string
	coursesKey     string
	courseStateKey string
	actionsKey     string
	achievementKey string
	historyKey     string
	cooldownKey    string
}

// NewRedisPlayerRepository создает фасад над эфемерным состоянием одного игрока.
func NewRedisPlayerRepository(client *redis.Client, userID string, ttl time.Duration, logger *zap.Logger) interfaces.PlayerStateRepository {
	return &redisPlayerRepository{
		client: client,
		userID: userID,
		ttl:    ttl,
		logger: logger.Named("RedisPlayerRepo").With(zap.String("userID", userID)),

		statsKey:       fmt.Sprintf("player:%s:stats", userID),
		coursesKey:     fmt.Sprintf("player:%s:courses", userID),
		courseStateKey: fmt.Sprintf("player:%s:course_states", userID),
		actionsKey:     fmt.Sprintf("player:%s:actions", userID),
		achievementKey: fmt.Sprintf("player:%s:achievements", userID),
		historyKey:     fmt.Sprintf("player:%s:event_history", userID),
		cooldownKey:    fmt.Sprintf("player:%s:cooldowns", userID),
	}
}

func (r *redisPlayerRepository) allKeys() []string {
	return []string{
		r.statsKey, r.coursesKey, r.courseStateKey, r.actionsKey,
		r.achievementKey, r.historyKey, r.cooldownKey,
	}
}

func (r *redisPlayerRepository) Exists(ctx context.Context) (bool, error) {
	n, err := r.client.Exists(ctx, r.statsKey).Result()
	if err != nil {
		return false, fmt.Errorf("failed to check player state existence: %w", err)
	}
	return n > 0, nil
}

func (r *redisPlayerRepository) InitGame(ctx context.Context, username string) (models.PlayerStats, error) {
	stats := models.PlayerStats{
		Username:    username,
		Semester:    "大一秋冬",
		SemesterIdx: 1,
		Energy:      100,
		Sanity:      80,
		Stress:      0,
		IQ:          0, // Назначается вместе со специальностью
		EQ:          60 + rand.IntN(31),
		Luck:        rand.IntN(101),
		GPA:         "0.0",
		HighestGPA:  "0.0",
	}

	pipe := r.client.Pipeline()
	pipe.Del(ctx, r.allKeys()...)
	pipe.HSet(ctx, r.statsKey, stats.ToRedis())
	pipe.Expire(ctx, r.statsKey, r.ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		r.logger.Error("Не удалось инициализировать состояние игрока", zap.Error(err))
		return models.PlayerStats{}, fmt.Errorf("failed to init game state: %w", err)
	}

	r.logger.Info("Состояние нового прохождения записано", zap.String("username", username))
	return stats, nil
}

func (r *redisPlayerRepository) GetSnapshot(ctx context.Context) (*models.GameStateSnapshot, error) {
	pipe := r.client.Pipeline()
	statsCmd := pipe.HGetAll(ctx, r.statsKey)
	coursesCmd := pipe.HGetAll(ctx, r.coursesKey)
	statesCmd := pipe.HGetAll(ctx, r.courseStateKey)
	achCmd := pipe.SMembers(ctx, r.achievementKey)
	if _, err := pipe.Exec(ctx); err != nil {
		return nil, fmt.Errorf("failed to fetch player snapshot: %w", err)
	}

	// Нормализация типизированная и безопасная: битые значения
	// приводятся к дефолтам, ошибок парсинга не бывает.
	return models.SnapshotFromRedisData(
		statsCmd.Val(), coursesCmd.Val(), statesCmd.Val(), achCmd.Val(),
	), nil
}

func (r *redisPlayerRepository) GetStats(ctx context.Context) (models.PlayerStats, error) {
	raw, err := r.client.HGetAll(ctx, r.statsKey).Result()
	if err != nil {
		return models.PlayerStats{}, fmt.Errorf("failed to fetch player stats: %w", err)
	}
	if len(raw) == 0 {
		return models.PlayerStats{}, models.ErrStateNotFound
	}
	return models.PlayerStatsFromRedis(raw), nil
}

func (r *redisPlayerRepository) SetStats(ctx context.Context, fields map[string]interface{}) error {
	if len(fields) == 0 {
		return nil
	}
	if err := r.client.HSet(ctx, r.statsKey, fields).Err(); err != nil {
		return fmt.Errorf("failed to update player stats: %w", err)
	}
	return nil
}

func (r *redisPlayerRepository) UpdateStatSafe(ctx context.Context, field string, delta, min, max int) (int, error) {
	res, err := clampIncrScript.Run(ctx, r.client, []string{r.statsKey}, field, delta, min, max).Int()
	if err != nil {
		return 0, fmt.Errorf("failed to clamp-update stat %s: %w", field, err)
	}
	return res, nil
}

func (r *redisPlayerRepository) BatchUpdateCourseMastery(ctx context.Context, updates map[string]float64) error {
	if len(updates) == 0 {
		return nil
	}
	pipe := r.client.Pipeline()
	for courseID, delta := range updates {
		clampIncrFloatScript.Run(ctx, pipe, []string{r.coursesKey}, courseID, delta)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		if !redis.HasErrorPrefix(err, "NOSCRIPT") {
			return fmt.Errorf("failed to batch-update course mastery: %w", err)
		}
		// Внутри пайплайна EVALSHA не умеет откатываться на EVAL, поэтому
		// после рестарта Redis или SCRIPT FLUSH батч падает с NOSCRIPT.
		// Повторяем без пайплайна: Run сам загрузит скрипт в кэш, и
		// следующие тики снова пойдут батчем.
		r.logger.Warn("Кэш Lua-скриптов пуст, прогресс курсов пишется без пайплайна", zap.Error(err))
		for courseID, delta := range updates {
			if _, err := r.UpdateCourseMastery(ctx, courseID, delta); err != nil {
				return err
			}
		}
	}
	return nil
}

func (r *redisPlayerRepository) UpdateCourseMastery(ctx context.Context, courseID string, delta float64) (float64, error) {
	raw, err := clampIncrFloatScript.Run(ctx, r.client, []string{r.coursesKey}, courseID, delta).Text()
	if err != nil {
		return 0, fmt.Errorf("failed to update mastery of course %s: %w", courseID, err)
	}
	val, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, fmt.Errorf("unexpected mastery value %q for course %s: %w", raw, courseID, err)
	}
	return val, nil
}

func (r *redisPlayerRepository) SetCourseState(ctx context.Context, courseID string, state int) error {
	if err := r.client.HSet(ctx, r.courseStateKey, courseID, state).Err(); err != nil {
		return fmt.Errorf("failed to set state of course %s: %w", courseID, err)
	}
	return nil
}

func (r *redisPlayerRepository) GetCourseStates(ctx context.Context) (map[string]int, error) {
	raw, err := r.client.HGetAll(ctx, r.courseStateKey).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to fetch course states: %w", err)
	}
	states := make(map[string]int, len(raw))
	for courseID, v := range raw {
		states[courseID] = models.ParseIntOr(v, models.CourseStatePassive)
	}
	return states, nil
}

func (r *redisPlayerRepository) IncrementActionCount(ctx context.Context, action string) (int64, error) {
	n, err := r.client.HIncrBy(ctx, r.actionsKey, action, 1).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to increment action counter %s: %w", action, err)
	}
	return n, nil
}

func (r *redisPlayerRepository) GetActionCounts(ctx context.Context) (map[string]int64, error) {
	raw, err := r.client.HGetAll(ctx, r.actionsKey).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to fetch action counters: %w", err)
	}
	counts := make(map[string]int64, len(raw))
	for action, v := range raw {
		counts[action] = models.ParseInt64Or(v, 0)
	}
	return counts, nil
}

func (r *redisPlayerRepository) UnlockAchievement(ctx context.Context, code string) (bool, error) {
	added, err := r.client.SAdd(ctx, r.achievementKey, code).Result()
	if err != nil {
		return false, fmt.Errorf("failed to unlock achievement %s: %w", code, err)
	}
	return added > 0, nil
}

func (r *redisPlayerRepository) GetUnlockedAchievements(ctx context.Context) ([]string, error) {
	codes, err := r.client.SMembers(ctx, r.achievementKey).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to fetch achievements: %w", err)
	}
	return codes, nil
}

func (r *redisPlayerRepository) SetCooldown(ctx context.Context, action string, ts int64) error {
	if err := r.client.HSet(ctx, r.cooldownKey, action, ts).Err(); err != nil {
		return fmt.Errorf("failed to set cooldown for %s: %w", action, err)
	}
	return nil
}

func (r *redisPlayerRepository) GetCooldowns(ctx context.Context) (map[string]int64, error) {
	raw, err := r.client.HGetAll(ctx, r.cooldownKey).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to fetch cooldowns: %w", err)
	}
	cooldowns := make(map[string]int64, len(raw))
	for action, v := range raw {
		cooldowns[action] = models.ParseInt64Or(v, 0)
	}
	return cooldowns, nil
}

const eventHistoryLimit = 10

func (r *redisPlayerRepository) AddEventToHistory(ctx context.Context, title string) error {
	pipe := r.client.Pipeline()
	pipe.LPush(ctx, r.historyKey, title)
	pipe.LTrim(ctx, r.historyKey, 0, eventHistoryLimit-1)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to append event history: %w", err)
	}
	return nil
}

func (r *redisPlayerRepository) GetEventHistory(ctx context.Context) ([]string, error) {
	titles, err := r.client.LRange(ctx, r.historyKey, 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to fetch event history: %w", err)
	}
	return titles, nil
}

func (r *redisPlayerRepository) IncrementSemester(ctx context.Context) (int, error) {
	n, err := r.client.HIncrBy(ctx, r.statsKey, models.FieldSemesterIdx, 1).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to increment semester index: %w", err)
	}
	return int(n), nil
}

func (r *redisPlayerRepository) ApplySemesterCourses(ctx context.Context, statsUpdate map[string]interface{}, courses map[string]float64, states map[string]int) error {
	pipe := r.client.Pipeline()
	pipe.Del(ctx, r.coursesKey, r.courseStateKey)
	if len(statsUpdate) > 0 {
		pipe.HSet(ctx, r.statsKey, statsUpdate)
	}
	if len(courses) > 0 {
		flat := make(map[string]interface{}, len(courses))
		for id, mastery := range courses {
			flat[id] = mastery
		}
		pipe.HSet(ctx, r.coursesKey, flat)
		pipe.Expire(ctx, r.coursesKey, r.ttl)
	}
	if len(states) > 0 {
		flat := make(map[string]interface{}, len(states))
		for id, state := range states {
			flat[id] = state
		}
		pipe.HSet(ctx, r.courseStateKey, flat)
		pipe.Expire(ctx, r.courseStateKey, r.ttl)
	}
	pipe.Expire(ctx, r.statsKey, r.ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		r.logger.Error("Не удалось применить курсы нового семестра", zap.Error(err))
		return fmt.Errorf("failed to apply semester courses: %w", err)
	}
	return nil
}

func (r *redisPlayerRepository) SetGameData(ctx context.Context, stats map[string]interface{}, courses map[string]float64, states map[string]int, achievements []string) error {
	pipe := r.client.Pipeline()
	pipe.Del(ctx, r.allKeys()...)
	if len(stats) > 0 {
		pipe.HSet(ctx, r.statsKey, stats)
	}
	if len(courses) > 0 {
		flat := make(map[string]interface{}, len(courses))
		for id, mastery := range courses {
			flat[id] = mastery
		}
		pipe.HSet(ctx, r.coursesKey, flat)
	}
	if len(states) > 0 {
		flat := make(map[string]interface{}, len(states))
		for id, state := range states {
			flat[id] = state
		}
		pipe.HSet(ctx, r.courseStateKey, flat)
	}
	if len(achievements) > 0 {
		members := make([]interface{}, 0, len(achievements))
		for _, code := range achievements {
			members = append(members, code)
		}
		pipe.SAdd(ctx, r.achievementKey, members...)
	}
	for _, key := range r.allKeys() {
		pipe.Expire(ctx, key, r.ttl)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		r.logger.Error("Не удалось восстановить состояние из снимка", zap.Error(err))
		return fmt.Errorf("failed to restore game data: %w", err)
	}
	r.logger.Info("Состояние игрока восстановлено из снимка",
		zap.Int("courses", len(courses)), zap.Int("achievements", len(achievements)))
	return nil
}

func (r *redisPlayerRepository) TouchTTL(ctx context.Context) error {
	pipe := r.client.Pipeline()
	for _, key := range r.allKeys() {
		pipe.Expire(ctx, key, r.ttl)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to refresh state TTL: %w", err)
	}
	return nil
}

func (r *redisPlayerRepository) DeleteAll(ctx context.Context) error {
	if err := r.client.Del(ctx, r.allKeys()...).Err(); err != nil {
		return fmt.Errorf("failed to delete player state: %w", err)
	}
	r.logger.Info("Эфемерное состояние игрока удалено")
	return nil
}
