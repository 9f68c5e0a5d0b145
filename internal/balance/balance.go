package balance

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"

	"go.uber.org/zap"
)

// Config — числовой баланс игры, загружается из world/game_balance.json.
// Создаётся явно в main и передаётся по ссылке (не глобальный синглтон):
// правки баланса не требуют пересборки сервера.
type Config struct {
	Version      string                 `json:"version"`
	Tick         TickConfig             `json:"tick"`
	Semester     SemesterConfig         `json:"semester"`
	CourseStates map[string]StateCoeff  `json:"course_states"`
	SanityStress SanityStressConfig     `json:"sanity_stress_modifiers"`
	RelaxActions map[string]RelaxAction `json:"relax_actions"`
	Events       EventsConfig           `json:"events"`
	Exam         ExamConfig             `json:"exam"`
	GameOver     GameOverConfig         `json:"game_over"`
}

// TickConfig — параметры тик-цикла.
type TickConfig struct {
	IntervalSeconds       int     `json:"interval_seconds"`
	BaseEnergyDrain       float64 `json:"base_energy_drain"`
	BaseMasteryGrowth     float64 `json:"base_mastery_growth"`
	IdleEnergyRecovery    int     `json:"idle_energy_recovery"`    // Восстановление при пустом расписании (каникулы)
	PassiveEnergyRecovery int     `json:"passive_energy_recovery"` // Восстановление при drain factor ниже порога вовлечённости
	EngagedDrainThreshold float64 `json:"engaged_drain_threshold"` // Ниже — игрок считается незанятым
	HighLoadThreshold     float64 `json:"high_load_threshold"`     // Выше — растёт стресс
	HighLoadStressGain    int     `json:"high_load_stress_gain"`
	TTLRefreshEveryTicks  int     `json:"ttl_refresh_every_ticks"`
}

// SemesterConfig — длительности семестров.
type SemesterConfig struct {
	DefaultDurationSeconds int            `json:"default_duration_seconds"`
	DurationByIndex        map[string]int `json:"duration_by_index"`
}

// StateCoeff — коэффициенты режима усилий по курсу (摆/摸/卷).
type StateCoeff struct {
	Growth float64 `json:"growth"`
	Drain  float64 `json:"drain"`
	Label  string  `json:"label"`
}

// SanityStressConfig объединяет параметры модификатора скорости роста
// (мультипликативный, каждый тик) и экзаменационного модификатора
// (аддитивный, только на результате).
type SanityStressConfig struct {
	Growth GrowthModifiers `json:"growth"`
	Exam   ExamModifiers   `json:"exam"`
}

// GrowthModifiers — кусочная функция sanity/stress → множитель роста.
type GrowthModifiers struct {
	SanityCritical    int     `json:"sanity_critical"`      // Ниже — множитель фиксируется на critical_factor
	CriticalFactor    float64 `json:"critical_factor"`
	LowSlopePerPoint  float64 `json:"low_slope_per_point"`  // Штраф за каждый пункт sanity ниже 50
	SanityExcellent   int     `json:"sanity_excellent"`     // Выше или равно — фиксированный бонус
	ExcellentBonus    float64 `json:"excellent_bonus"`
	HighSlopePerPoint float64 `json:"high_slope_per_point"` // Бонус за каждый пункт sanity выше 50

	StressOptimalMin  int     `json:"stress_optimal_min"` // Оптимальная полоса стресса
	StressOptimalMax  int     `json:"stress_optimal_max"`
	OptimalBonus      float64 `json:"optimal_bonus"`
	OffBandPenalty    float64 `json:"off_band_penalty"`
	StressExtremeLow  int     `json:"stress_extreme_low"`
	StressExtremeHigh int     `json:"stress_extreme_high"`
	ExtremePenalty    float64 `json:"extreme_penalty"`
}

// ExamModifiers — аддитивный аналог GrowthModifiers для экзамена,
// откалиброван в баллах, а не в множителях.
type ExamModifiers struct {
	SanityCritical    int     `json:"sanity_critical"`
	CriticalPenalty   float64 `json:"critical_penalty"`
	LowSlopePerPoint  float64 `json:"low_slope_per_point"`
	SanityExcellent   int     `json:"sanity_excellent"`
	ExcellentBonus    float64 `json:"excellent_bonus"`
	HighSlopePerPoint float64 `json:"high_slope_per_point"`

	StressOptimalMin  int     `json:"stress_optimal_min"`
	StressOptimalMax  int     `json:"stress_optimal_max"`
	OptimalBonus      float64 `json:"optimal_bonus"`
	OffBandPenalty    float64 `json:"off_band_penalty"`
	StressExtremeLow  int     `json:"stress_extreme_low"`
	StressExtremeHigh int     `json:"stress_extreme_high"`
	ExtremePenalty    float64 `json:"extreme_penalty"`
}

// RelaxAction — конфигурация одного действия отдыха.
type RelaxAction struct {
	CooldownSeconds int            `json:"cooldown_seconds"`
	Effects         map[string]int `json:"effects"`
	Message         string         `json:"message"`
	// Outcomes — взвешенные исходы (используется форумным действием cc98).
	Outcomes []RelaxOutcome `json:"outcomes,omitempty"`
}

// RelaxOutcome — один взвешенный исход действия.
type RelaxOutcome struct {
	Weight  int            `json:"weight"`
	Effects map[string]int `json:"effects"`
	Suffix  string         `json:"suffix"`
}

// EventsConfig — каденции нарративных событий.
type EventsConfig struct {
	RandomEvent  EventCadence `json:"random_event"`
	Notification EventCadence `json:"notification"`
}

// EventCadence — как часто и с какой вероятностью срабатывает событие.
type EventCadence struct {
	EveryTicks  int     `json:"every_ticks"`
	Probability float64 `json:"probability"`
}

// ExamConfig — параметры итоговой аттестации.
type ExamConfig struct {
	FailThreshold              int     `json:"fail_threshold"`
	FailSanityPenaltyPerCourse int     `json:"fail_sanity_penalty_per_course"`
	PassAllSanityBonus         int     `json:"pass_all_sanity_bonus"`
	MaxGradePoint              float64 `json:"max_grade_point"`
}

// GameOverConfig — тексты причин завершения игры.
type GameOverConfig struct {
	SanityReason string `json:"sanity_reason"`
	EnergyReason string `json:"energy_reason"`
	Restartable  bool   `json:"restartable"`
}

// Load читает и валидирует баланс из файла.
func Load(path string, logger *zap.Logger) (*Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("не удалось прочитать файл баланса %s: %w", path, err)
	}

	var cfg Config
	if err := json.Unmarshal(raw, &cfg); err != nil {
		return nil, fmt.Errorf("не удалось разобрать файл баланса %s: %w", path, err)
	}

	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("файл баланса %s некорректен: %w", path, err)
	}

	logger.Info("Игровой баланс загружен",
		zap.String("path", path),
		zap.String("version", cfg.Version),
		zap.Int("tick_interval_seconds", cfg.Tick.IntervalSeconds),
		zap.Int("relax_actions", len(cfg.RelaxActions)),
	)
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Version == "" {
		c.Version = "unknown"
	}
	if c.Tick.IntervalSeconds <= 0 {
		c.Tick.IntervalSeconds = 3
	}
	if c.Tick.BaseEnergyDrain <= 0 {
		c.Tick.BaseEnergyDrain = 0.8
	}
	if c.Tick.BaseMasteryGrowth <= 0 {
		c.Tick.BaseMasteryGrowth = 0.5
	}
	if c.Tick.TTLRefreshEveryTicks <= 0 {
		c.Tick.TTLRefreshEveryTicks = 200
	}
	if c.Semester.DefaultDurationSeconds <= 0 {
		c.Semester.DefaultDurationSeconds = 360
	}
	if c.Exam.FailThreshold <= 0 {
		c.Exam.FailThreshold = 60
	}
	if c.Exam.MaxGradePoint <= 0 {
		c.Exam.MaxGradePoint = 4.0
	}
}

func (c *Config) validate() error {
	for _, mode := range []string{"0", "1", "2"} {
		if _, ok := c.CourseStates[mode]; !ok {
			return fmt.Errorf("course_states: отсутствует режим %q", mode)
		}
	}
	if c.CourseStates["0"].Growth != 0 || c.CourseStates["0"].Drain != 0 {
		return fmt.Errorf("course_states: режим 0 должен иметь нулевые коэффициенты")
	}
	if c.CourseStates["2"].Growth <= c.CourseStates["1"].Growth ||
		c.CourseStates["2"].Drain <= c.CourseStates["1"].Drain {
		return fmt.Errorf("course_states: режим 2 должен строго доминировать над режимом 1")
	}
	if c.Tick.EngagedDrainThreshold <= 0 {
		return fmt.Errorf("tick: engaged_drain_threshold должен быть положительным")
	}
	return nil
}

// StateCoeffs возвращает коэффициенты режима; неизвестный режим деградирует
// до нулевых коэффициентов (как режим 0).
func (c *Config) StateCoeffs(mode int) StateCoeff {
	if sc, ok := c.CourseStates[strconv.Itoa(mode)]; ok {
		return sc
	}
	return StateCoeff{}
}

// SemesterDuration возвращает длительность семестра в секундах.
func (c *Config) SemesterDuration(semesterIdx int) int {
	if d, ok := c.Semester.DurationByIndex[strconv.Itoa(semesterIdx)]; ok {
		return d
	}
	return c.Semester.DefaultDurationSeconds
}

// Relax возвращает конфигурацию действия отдыха; false — неизвестная цель.
func (c *Config) Relax(target string) (RelaxAction, bool) {
	ra, ok := c.RelaxActions[target]
	return ra, ok
}
