package interfaces

import (
	"context"

	"campus-sim-server/internal/models"
)

// PlayerStateRepository — фасад над эфемерным состоянием одного игрока.
// Единственный читатель/писатель ключей этого игрока: все составные
// read-modify-write операции атомарны (Lua), многополевые записи
// батчируются в один round trip.
//
// Гарантия: нормализация значений никогда не возвращает ошибку парсинга —
// битые легаси-данные приводятся к типизированным дефолтам.
type PlayerStateRepository interface {
	// Exists сообщает, есть ли у игрока живое состояние в Redis.
	Exists(ctx context.Context) (bool, error)

	// InitGame записывает стартовое состояние нового прохождения,
	// предварительно удалив все старые ключи игрока.
	InitGame(ctx context.Context, username string) (models.PlayerStats, error)

	// GetSnapshot читает статы, прогресс курсов, режимы курсов и достижения
	// одним pipeline-запросом и нормализует их.
	GetSnapshot(ctx context.Context) (*models.GameStateSnapshot, error)

	// GetStats читает и нормализует только хэш статов.
	GetStats(ctx context.Context) (models.PlayerStats, error)

	// SetStats записывает частичное обновление статов.
	SetStats(ctx context.Context, fields map[string]interface{}) error

	// UpdateStatSafe атомарно инкрементирует числовой стат с клампом
	// в [min, max]. Серверный скрипт исключает гонку между тик-циклом
	// и обработчиком действий на одном поле.
	UpdateStatSafe(ctx context.Context, field string, delta, min, max int) (int, error)

	// BatchUpdateCourseMastery применяет дельты прогресса по курсам одним
	// батчем; каждое значение клампится в [0, 100].
	BatchUpdateCourseMastery(ctx context.Context, updates map[string]float64) error

	// UpdateCourseMastery — одиночное обновление прогресса с тем же клампом,
	// что и батчевый путь; используется как непайплайновый запасной путь,
	// когда кэш Lua-скриптов Redis пуст.
	UpdateCourseMastery(ctx context.Context, courseID string, delta float64) (float64, error)

	// SetCourseState записывает режим усилий по курсу.
	SetCourseState(ctx context.Context, courseID string, state int) error

	// GetCourseStates возвращает режимы всех курсов текущего семестра.
	GetCourseStates(ctx context.Context) (map[string]int, error)

	// IncrementActionCount учитывает действие для предикатов достижений.
	IncrementActionCount(ctx context.Context, action string) (int64, error)

	// GetActionCounts возвращает счётчики действий.
	GetActionCounts(ctx context.Context) (map[string]int64, error)

	// UnlockAchievement добавляет код в набор; true — если код новый.
	UnlockAchievement(ctx context.Context, code string) (bool, error)

	// GetUnlockedAchievements возвращает открытые коды достижений.
	GetUnlockedAchievements(ctx context.Context) ([]string, error)

	// SetCooldown ставит штамп последнего использования действия (unix-секунды).
	SetCooldown(ctx context.Context, action string, ts int64) error

	// GetCooldowns возвращает штампы последних использований.
	GetCooldowns(ctx context.Context) (map[string]int64, error)

	// AddEventToHistory добавляет заголовок события в ограниченную
	// историю (новые в начале, хранится не более 10).
	AddEventToHistory(ctx context.Context, title string) error

	// GetEventHistory возвращает недавние заголовки событий.
	GetEventHistory(ctx context.Context) ([]string, error)

	// IncrementSemester атомарно увеличивает индекс семестра и возвращает новый.
	IncrementSemester(ctx context.Context) (int, error)

	// ApplySemesterCourses обновляет статы и замещает хэши курсов/режимов
	// одним pipeline (достижения и счётчики не трогаются), обновляя TTL.
	ApplySemesterCourses(ctx context.Context, statsUpdate map[string]interface{}, courses map[string]float64, states map[string]int) error

	// SetGameData полностью восстанавливает состояние игрока
	// (путь загрузки из долговременного снимка).
	SetGameData(ctx context.Context, stats map[string]interface{}, courses map[string]float64, states map[string]int, achievements []string) error

	// TouchTTL продлевает срок жизни всех ключей игрока.
	TouchTTL(ctx context.Context) error

	// DeleteAll удаляет все эфемерные ключи игрока.
	DeleteAll(ctx context.Context) error
}
