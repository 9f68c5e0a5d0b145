package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand/v2"
	"time"

	"go.uber.org/zap"

	"campus-sim-server/internal/interfaces"
	"campus-sim-server/internal/models"
)

// Статусы подготовки игрового контекста.
const (
	StatusExisting = "existing" // Живое состояние найдено в Redis
	StatusRepaired = "repaired" // Состояние найдено, но курсы пришлось переназначить
	StatusLoaded   = "loaded"   // Регидратировано из долговременного снимка
	StatusNew      = "new"      // Новое прохождение
)

var semesterNames = []string{
	"大一秋冬", "大一春夏", "大二秋冬", "大二春夏",
	"大三秋冬", "大三春夏", "大四秋冬", "大四春夏",
}

// SemesterName возвращает человекочитаемое название семестра (1-based).
func SemesterName(semesterIdx int) string {
	if semesterIdx >= 1 && semesterIdx <= len(semesterNames) {
		return semesterNames[semesterIdx-1]
	}
	return fmt.Sprintf("延毕学期 %d", semesterIdx)
}

// GameService оркестрирует жизненный цикл игрового состояния одного игрока:
// подготовку контекста при подключении, распределение специальности и
// переключение семестров.
type GameService struct {
	userID string
	repo   interfaces.PlayerStateRepository
	world  interfaces.WorldCatalog
	saves  *SaveService
	logger *zap.Logger
}

// NewGameService создает сервис жизненного цикла для одного игрока.
func NewGameService(userID string, repo interfaces.PlayerStateRepository, world interfaces.WorldCatalog, saves *SaveService, logger *zap.Logger) *GameService {
	return &GameService{
		userID: userID,
		repo:   repo,
		world:  world,
		saves:  saves,
		logger: logger.Named("GameService").With(zap.String("userID", userID)),
	}
}

// PrepareGameContext инициализирует или восстанавливает игровой контекст:
// живое состояние в Redis → existing/repaired; долговременный снимок →
// loaded/repaired; иначе — новое прохождение.
func (s *GameService) PrepareGameContext(ctx context.Context, username, tier string) (*models.GameStateSnapshot, string, error) {
	exists, err := s.repo.Exists(ctx)
	if err != nil {
		return nil, "", fmt.Errorf("failed to check state of user %s: %w", s.userID, err)
	}

	if exists {
		return s.normalizeAndRepair(ctx, username, tier, StatusExisting)
	}

	loaded, err := s.saves.Load(ctx, s.repo, s.userID)
	if err != nil {
		// Недоступность долговременного хранилища не должна блокировать
		// вход: логируем и начинаем новое прохождение.
		s.logger.Error("Не удалось загрузить долговременный снимок", zap.Error(err))
	}
	if loaded {
		return s.normalizeAndRepair(ctx, username, tier, StatusLoaded)
	}

	s.logger.Info("Создание нового прохождения", zap.String("username", username))
	if _, err := s.repo.InitGame(ctx, username); err != nil {
		return nil, "", err
	}
	if err := s.AssignMajorAndInit(ctx, tier); err != nil {
		return nil, "", err
	}

	snapshot, err := s.repo.GetSnapshot(ctx)
	if err != nil {
		return nil, "", err
	}
	return snapshot, StatusNew, nil
}

// normalizeAndRepair — единый normalize-or-default шаг, применяемый на любом
// пути загрузки снимка: добивает отсутствующие базовые поля и переназначает
// курсы, если они потерялись.
func (s *GameService) normalizeAndRepair(ctx context.Context, username, tier, status string) (*models.GameStateSnapshot, string, error) {
	stats, err := s.repo.GetStats(ctx)
	if err != nil {
		return nil, "", err
	}

	if err := s.ensureBaseFields(ctx, stats, username); err != nil {
		return nil, "", err
	}

	if stats.CourseInfoJSON == "" || stats.CourseInfoJSON == "[]" {
		s.logger.Warn("Курсы в снимке отсутствуют, переназначаем специальность",
			zap.String("username", username))
		if err := s.AssignMajorAndInit(ctx, tier); err != nil {
			return nil, "", err
		}
		status = StatusRepaired
	}

	snapshot, err := s.repo.GetSnapshot(ctx)
	if err != nil {
		return nil, "", err
	}
	return snapshot, status, nil
}

// ensureBaseFields добивает отсутствующие базовые поля типизированными
// дефолтами одним HSET.
func (s *GameService) ensureBaseFields(ctx context.Context, stats models.PlayerStats, username string) error {
	repair := map[string]interface{}{}
	if stats.Username == "" {
		repair[models.FieldUsername] = username
	}
	if stats.Semester == "" {
		repair[models.FieldSemester] = SemesterName(1)
	}
	if stats.SemesterIdx <= 0 {
		repair[models.FieldSemesterIdx] = 1
	}
	if stats.SemesterStartTime <= 0 {
		repair[models.FieldSemesterStartTime] = time.Now().Unix()
	}
	if stats.IQ <= 0 {
		repair[models.FieldIQ] = 80 + rand.IntN(21)
	}
	if len(repair) == 0 {
		return nil
	}
	s.logger.Debug("Восстановление базовых полей", zap.Int("fields", len(repair)))
	return s.repo.SetStats(ctx, repair)
}

// AssignMajorAndInit распределяет специальность, применяет её бонусы
// и записывает курсы первого семестра.
func (s *GameService) AssignMajorAndInit(ctx context.Context, tier string) error {
	assignment, err := s.world.GetRandomMajorAssignment(ctx, tier)
	if err != nil {
		return fmt.Errorf("failed to assign major for user %s: %w", s.userID, err)
	}

	stats, err := s.repo.GetStats(ctx)
	if err != nil && !errors.Is(err, models.ErrStateNotFound) {
		return err
	}

	iq := stats.IQ
	if iq <= 0 {
		iq = 80 + rand.IntN(21)
	}
	iq += assignment.Major.IQBuff

	stress := stats.Stress
	if stress <= 0 {
		stress = assignment.Major.StressBase
	}

	courseInfoJSON, err := json.Marshal(assignment.InitialCourses)
	if err != nil {
		return fmt.Errorf("failed to encode initial courses: %w", err)
	}

	update := map[string]interface{}{
		models.FieldMajor:             assignment.Major.Name,
		models.FieldMajorAbbr:         assignment.Major.Abbr,
		models.FieldIQ:                iq,
		models.FieldStress:            stress,
		models.FieldCoursePlanJSON:    assignment.CoursePlanJSON,
		models.FieldCourseInfoJSON:    string(courseInfoJSON),
		models.FieldSemesterStartTime: time.Now().Unix(),
	}

	mastery := make(map[string]float64, len(assignment.InitialCourses))
	states := make(map[string]int, len(assignment.InitialCourses))
	for _, course := range assignment.InitialCourses {
		mastery[course.ID] = 0
		states[course.ID] = models.CourseStatePassive
	}

	if err := s.repo.ApplySemesterCourses(ctx, update, mastery, states); err != nil {
		return err
	}

	s.logger.Info("Специальность назначена",
		zap.String("major", assignment.Major.Name),
		zap.String("tier", tier),
		zap.Int("courses", len(assignment.InitialCourses)),
	)
	return nil
}

// ResetCoursesForNewSemester замещает набор курсов на курсы нового семестра.
// Пустой набор допустим — игрок уходит на каникулы до следующего перехода.
func (s *GameService) ResetCoursesForNewSemester(ctx context.Context, semesterIdx int) error {
	stats, err := s.repo.GetStats(ctx)
	if err != nil {
		return err
	}

	courses, err := s.world.GetSemesterCourses(ctx, stats.MajorAbbr, semesterIdx)
	if err != nil {
		return err
	}

	courseInfoJSON, err := json.Marshal(courses)
	if err != nil {
		return fmt.Errorf("failed to encode semester courses: %w", err)
	}
	if courses == nil {
		courseInfoJSON = []byte("[]")
	}

	update := map[string]interface{}{
		models.FieldSemester:          SemesterName(semesterIdx),
		models.FieldSemesterStartTime: time.Now().Unix(),
		models.FieldCourseInfoJSON:    string(courseInfoJSON),
	}

	mastery := make(map[string]float64, len(courses))
	states := make(map[string]int, len(courses))
	for _, course := range courses {
		mastery[course.ID] = 0
		states[course.ID] = models.CourseStatePassive
	}

	if err := s.repo.ApplySemesterCourses(ctx, update, mastery, states); err != nil {
		return err
	}

	s.logger.Info("Новый семестр инициализирован",
		zap.Int("semesterIdx", semesterIdx), zap.Int("courses", len(courses)))
	return nil
}

// PersistSnapshot — сохранение текущего состояния в долговременное хранилище.
func (s *GameService) PersistSnapshot(ctx context.Context) error {
	return s.saves.Persist(ctx, s.repo, s.userID)
}
