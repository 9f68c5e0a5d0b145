package models

// Исходящие события движка. Поле type дискриминирует форму payload-а.

const (
	EventTypeInit                = "init"
	EventTypeTick                = "tick"
	EventTypeEvent               = "event"
	EventTypeRandomEvent         = "random_event"
	EventTypeAchievementUnlocked = "achievement_unlocked"
	EventTypeGameOver            = "game_over"
	EventTypeSemesterSummary     = "semester_summary"
	EventTypeNewSemester         = "new_semester"
	EventTypeGraduation          = "graduation"
	EventTypeSaveResult          = "save_result"
	EventTypeAuthOK              = "auth_ok"
	EventTypeAuthError           = "auth_error"
	EventTypePaused              = "paused"
	EventTypeResumed             = "resumed"
	EventTypePong                = "pong"
)

// InitEvent отправляется один раз после подготовки игрового контекста.
type InitEvent struct {
	Type string      `json:"type"`
	Data PlayerStats `json:"data"`
}

func NewInitEvent(stats PlayerStats) InitEvent {
	return InitEvent{Type: EventTypeInit, Data: stats}
}

// TickEvent — консолидированное состояние, пушится каждый тик.
type TickEvent struct {
	Type             string             `json:"type"`
	Stats            PlayerStats        `json:"stats"`
	Courses          map[string]float64 `json:"courses"`
	CourseStates     map[string]int     `json:"course_states"`
	SemesterTimeLeft int64              `json:"semester_time_left"`
}

// DescEvent — текстовое игровое событие (лог, отказ по кулдауну, уведомление).
type DescEvent struct {
	Type string `json:"type"`
	Data struct {
		Desc string `json:"desc"`
	} `json:"data"`
}

func NewDescEvent(desc string) DescEvent {
	e := DescEvent{Type: EventTypeEvent}
	e.Data.Desc = desc
	return e
}

// EventOption — один вариант выбора в случайном событии.
// Effects содержит числовые дельты атрибутов плюс строку desc.
type EventOption struct {
	ID      string                 `json:"id"`
	Text    string                 `json:"text"`
	Effects map[string]interface{} `json:"effects"`
}

// RandomEventData — сгенерированное случайное событие с вариантами выбора.
type RandomEventData struct {
	Title   string        `json:"title"`
	Desc    string        `json:"desc"`
	Options []EventOption `json:"options"`
}

// RandomEvent оборачивает данные события для отправки клиенту.
type RandomEvent struct {
	Type string          `json:"type"`
	Data RandomEventData `json:"data"`
}

func NewRandomEvent(data RandomEventData) RandomEvent {
	return RandomEvent{Type: EventTypeRandomEvent, Data: data}
}

// Achievement — описание достижения из справочника.
type Achievement struct {
	Code      string               `json:"code"`
	Title     string               `json:"title"`
	Desc      string               `json:"desc"`
	Condition AchievementCondition `json:"condition"`
}

// Типы предикатов разблокировки достижений.
const (
	AchievementCondStatMin   = "stat_min"   // стат не ниже порога
	AchievementCondStatMax   = "stat_max"   // стат не выше порога
	AchievementCondGPAMin    = "gpa_min"    // GPA не ниже порога
	AchievementCondActionMin = "action_min" // действие выполнено не меньше N раз
)

// AchievementCondition — предикат разблокировки.
type AchievementCondition struct {
	Type      string  `json:"type"`
	Field     string  `json:"field,omitempty"` // имя стата либо вида действия
	Threshold float64 `json:"threshold"`
}

// AchievementUnlockedEvent уведомляет о новом достижении.
type AchievementUnlockedEvent struct {
	Type string      `json:"type"`
	Data Achievement `json:"data"`
}

func NewAchievementUnlockedEvent(ach Achievement) AchievementUnlockedEvent {
	return AchievementUnlockedEvent{Type: EventTypeAchievementUnlocked, Data: ach}
}

// GameOverEvent — терминальное событие с человекочитаемой причиной.
type GameOverEvent struct {
	Type        string `json:"type"`
	Reason      string `json:"reason"`
	Restartable bool   `json:"restartable"`
}

func NewGameOverEvent(reason string, restartable bool) GameOverEvent {
	return GameOverEvent{Type: EventTypeGameOver, Reason: reason, Restartable: restartable}
}

// TranscriptEntry — итог одного курса на сессии.
type TranscriptEntry struct {
	Name  string  `json:"name"`
	Score float64 `json:"score"`
	GP    float64 `json:"gp"`
}

// SemesterSummaryEvent — результат экзаменационной сессии.
type SemesterSummaryEvent struct {
	Type string `json:"type"`
	Data struct {
		GPA         string            `json:"gpa"`
		FailedCount int               `json:"failed_count"`
		Details     []TranscriptEntry `json:"details"`
	} `json:"data"`
}

func NewSemesterSummaryEvent(gpa string, failed int, details []TranscriptEntry) SemesterSummaryEvent {
	e := SemesterSummaryEvent{Type: EventTypeSemesterSummary}
	e.Data.GPA = gpa
	e.Data.FailedCount = failed
	e.Data.Details = details
	return e
}

// NewSemesterEvent — начало нового семестра, опционально с каникулярным событием.
type NewSemesterEvent struct {
	Type string `json:"type"`
	Data struct {
		SemesterName string           `json:"semester_name"`
		HolidayEvent *RandomEventData `json:"holiday_event,omitempty"`
	} `json:"data"`
}

func NewNewSemesterEvent(name string, holiday *RandomEventData) NewSemesterEvent {
	e := NewSemesterEvent{Type: EventTypeNewSemester}
	e.Data.SemesterName = name
	e.Data.HolidayEvent = holiday
	return e
}

// GraduationEvent — финал игры с эпилогом.
type GraduationEvent struct {
	Type string `json:"type"`
	Data struct {
		FinalStats PlayerStats `json:"final_stats"`
		Epilogue   string      `json:"epilogue"`
	} `json:"data"`
}

func NewGraduationEvent(stats PlayerStats, epilogue string) GraduationEvent {
	e := GraduationEvent{Type: EventTypeGraduation}
	e.Data.FinalStats = stats
	e.Data.Epilogue = epilogue
	return e
}

// SaveResultEvent — результат команды сохранения.
type SaveResultEvent struct {
	Type string `json:"type"`
	Data struct {
		Success bool   `json:"success"`
		Message string `json:"message"`
	} `json:"data"`
}

func NewSaveResultEvent(success bool, message string) SaveResultEvent {
	e := SaveResultEvent{Type: EventTypeSaveResult}
	e.Data.Success = success
	e.Data.Message = message
	return e
}

// SimpleEvent — события без полезной нагрузки (paused/resumed/pong/auth_ok).
type SimpleEvent struct {
	Type string `json:"type"`
}

func NewSimpleEvent(eventType string) SimpleEvent {
	return SimpleEvent{Type: eventType}
}
