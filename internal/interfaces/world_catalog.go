package interfaces

import (
	"context"

	"campus-sim-server/internal/models"
)

// MajorInfo — метаданные специальности из каталога.
type MajorInfo struct {
	Name       string `json:"name"`
	Abbr       string `json:"abbr"`
	StressBase int    `json:"stress_base"`
	IQBuff     int    `json:"iq_buff"`
}

// MajorAssignment — результат распределения: специальность, полный план
// и курсы первого семестра.
type MajorAssignment struct {
	Major          MajorInfo
	CoursePlan     models.CoursePlan
	CoursePlanJSON string
	InitialCourses []models.CourseInfo
}

// WorldCatalog — кэш неизменяемого игрового контента, разделяемый всеми
// игроками. Отсутствующие или битые файлы деградируют до пустых коллекций
// с логом ошибки — сессия игрока продолжается в деградированном режиме.
type WorldCatalog interface {
	// GetRandomMajorAssignment равновероятно выбирает специальность,
	// доступную данному tier-у; при отсутствии tier-а используется
	// пул низшего tier-а, при пустом пуле — синтетическая "неизвестная"
	// специальность.
	GetRandomMajorAssignment(ctx context.Context, tier string) (*MajorAssignment, error)

	// GetSemesterCourses возвращает курсы семестра (1-based индекс) из плана
	// специальности, пустой список — вне диапазона.
	GetSemesterCourses(ctx context.Context, majorAbbr string, semesterIdx int) ([]models.CourseInfo, error)

	// Achievements возвращает справочник достижений.
	Achievements(ctx context.Context) ([]models.Achievement, error)
}
