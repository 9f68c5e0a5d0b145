package world

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand/v2"
	"os"
	"path/filepath"
	"sync"

	"go.uber.org/zap"

	"campus-sim-server/internal/interfaces"
	"campus-sim-server/internal/models"
)

const fallbackTier = "TIER_4"

// Catalog — реализация interfaces.WorldCatalog поверх JSON-файлов в каталоге
// world/. Файлы читаются лениво и кэшируются навсегда (контент неизменяем на
// время жизни процесса); отсутствующий или битый файл логируется и деградирует
// до пустого значения — сессия игрока никогда не падает из-за контента.
type Catalog struct {
	worldDir string
	logger   *zap.Logger

	mu    sync.Mutex
	cache map[string]json.RawMessage
}

// NewCatalog создает каталог игрового контента.
func NewCatalog(worldDir string, logger *zap.Logger) *Catalog {
	return &Catalog{
		worldDir: worldDir,
		logger:   logger.Named("WorldCatalog"),
		cache:    make(map[string]json.RawMessage),
	}
}

// loadRaw читает файл с кэшированием. Отрицательный результат тоже кэшируется
// (пустой RawMessage), чтобы не дёргать диск на каждый тик.
func (c *Catalog) loadRaw(path string) json.RawMessage {
	c.mu.Lock()
	defer c.mu.Unlock()

	if cached, ok := c.cache[path]; ok {
		return cached
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		c.logger.Error("Файл игрового контента недоступен", zap.String("path", path), zap.Error(err))
		c.cache[path] = nil
		return nil
	}
	if !json.Valid(raw) {
		c.logger.Error("Файл игрового контента содержит некорректный JSON", zap.String("path", path))
		c.cache[path] = nil
		return nil
	}

	c.cache[path] = json.RawMessage(raw)
	return c.cache[path]
}

// majorsByTier — содержимое majors.json: tier → пул специальностей.
func (c *Catalog) majorsByTier() map[string][]interfaces.MajorInfo {
	raw := c.loadRaw(filepath.Join(c.worldDir, "majors.json"))
	if raw == nil {
		return map[string][]interfaces.MajorInfo{}
	}
	var majors map[string][]interfaces.MajorInfo
	if err := json.Unmarshal(raw, &majors); err != nil {
		c.logger.Error("Не удалось разобрать majors.json", zap.Error(err))
		return map[string][]interfaces.MajorInfo{}
	}
	return majors
}

// coursePlan загружает учебный план специальности из courses/<ABBR>.json.
func (c *Catalog) coursePlan(majorAbbr string) (models.CoursePlan, string) {
	path := filepath.Join(c.worldDir, "courses", fmt.Sprintf("%s.json", majorAbbr))
	raw := c.loadRaw(path)
	if raw == nil {
		return models.CoursePlan{}, "{}"
	}
	plan := models.ParseCoursePlan(string(raw))
	if len(plan.SemesterList()) == 0 {
		c.logger.Warn("Учебный план пуст или не разобран", zap.String("major", majorAbbr))
	}
	return plan, string(raw)
}

// GetRandomMajorAssignment выбирает специальность равновероятно из пула
// данного tier-а, с фолбэком на TIER_4 и синтетическую специальность.
func (c *Catalog) GetRandomMajorAssignment(ctx context.Context, tier string) (*interfaces.MajorAssignment, error) {
	majors := c.majorsByTier()

	available, ok := majors[tier]
	if !ok {
		available = majors[fallbackTier]
	}

	var major interfaces.MajorInfo
	if len(available) == 0 {
		c.logger.Warn("Пул специальностей пуст, используется заглушка", zap.String("tier", tier))
		major = interfaces.MajorInfo{Name: "未知专业", Abbr: "UNK", StressBase: 0, IQBuff: 0}
	} else {
		major = available[rand.IntN(len(available))]
	}

	plan, planJSON := c.coursePlan(major.Abbr)
	initial := plan.CoursesForSemester(1)

	return &interfaces.MajorAssignment{
		Major:          major,
		CoursePlan:     plan,
		CoursePlanJSON: planJSON,
		InitialCourses: initial,
	}, nil
}

// GetSemesterCourses возвращает курсы семестра (1-based), пусто вне диапазона.
func (c *Catalog) GetSemesterCourses(ctx context.Context, majorAbbr string, semesterIdx int) ([]models.CourseInfo, error) {
	plan, _ := c.coursePlan(majorAbbr)
	return plan.CoursesForSemester(semesterIdx), nil
}

// Achievements возвращает справочник достижений из achievements.json.
func (c *Catalog) Achievements(ctx context.Context) ([]models.Achievement, error) {
	raw := c.loadRaw(filepath.Join(c.worldDir, "achievements.json"))
	if raw == nil {
		return nil, nil
	}
	var list []models.Achievement
	if err := json.Unmarshal(raw, &list); err != nil {
		c.logger.Error("Не удалось разобрать achievements.json", zap.Error(err))
		return nil, nil
	}
	return list, nil
}
