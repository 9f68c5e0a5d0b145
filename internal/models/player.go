package models

import "encoding/json"

// Границы числовых атрибутов игрока.
const (
	StatMin = 0
	StatMax = 200
)

// Режимы усилий по курсу: 0 = забил, 1 = вполсилы, 2 = интенсив.
const (
	CourseStateIdle      = 0
	CourseStatePassive   = 1
	CourseStateIntensive = 2
)

// Имена полей хэша статов в Redis. Используются и движком, и фасадом сессии,
// чтобы два независимых пути записи не разошлись в именовании.
const (
	FieldUsername          = "username"
	FieldMajor             = "major"
	FieldMajorAbbr         = "major_abbr"
	FieldSemester          = "semester"
	FieldSemesterIdx       = "semester_idx"
	FieldSemesterStartTime = "semester_start_time"
	FieldEnergy            = "energy"
	FieldSanity            = "sanity"
	FieldStress            = "stress"
	FieldIQ                = "iq"
	FieldEQ                = "eq"
	FieldLuck              = "luck"
	FieldGPA               = "gpa"
	FieldHighestGPA        = "highest_gpa"
	FieldReputation        = "reputation"
	FieldFailedCount       = "failed_count"
	FieldCoursePlanJSON    = "course_plan_json"
	FieldCourseInfoJSON    = "course_info_json"
)

// PlayerStats — снимок хэша статов одного игрока.
// GPA хранится строкой, чтобы десятичное значение не плыло
// при прохождении через Redis/Postgres.
type PlayerStats struct {
	Username          string `json:"username"`
	Major             string `json:"major"`
	MajorAbbr         string `json:"major_abbr"`
	Semester          string `json:"semester"`
	SemesterIdx       int    `json:"semester_idx"`
	SemesterStartTime int64  `json:"semester_start_time"`
	Energy            int    `json:"energy"`
	Sanity            int    `json:"sanity"`
	Stress            int    `json:"stress"`
	IQ                int    `json:"iq"`
	EQ                int    `json:"eq"`
	Luck              int    `json:"luck"`
	GPA               string `json:"gpa"`
	HighestGPA        string `json:"highest_gpa"`
	Reputation        int    `json:"reputation"`
	FailedCount       int    `json:"failed_count"`
	CoursePlanJSON    string `json:"course_plan_json"`
	CourseInfoJSON    string `json:"course_info_json"`
}

// PlayerStatsFromRedis нормализует сырой хэш из Redis в типизированную структуру.
// Любое нечитаемое значение заменяется безопасным дефолтом — битые легаси-записи
// не должны ронять живую сессию.
func PlayerStatsFromRedis(raw map[string]string) PlayerStats {
	return PlayerStats{
		Username:          raw[FieldUsername],
		Major:             raw[FieldMajor],
		MajorAbbr:         raw[FieldMajorAbbr],
		Semester:          raw[FieldSemester],
		SemesterIdx:       ParseIntOr(raw[FieldSemesterIdx], 1),
		SemesterStartTime: ParseInt64Or(raw[FieldSemesterStartTime], 0),
		Energy:            ParseIntOr(raw[FieldEnergy], 0),
		Sanity:            ParseIntOr(raw[FieldSanity], 0),
		Stress:            ParseIntOr(raw[FieldStress], 0),
		IQ:                ParseIntOr(raw[FieldIQ], 0),
		EQ:                ParseIntOr(raw[FieldEQ], 0),
		Luck:              ParseIntOr(raw[FieldLuck], 0),
		GPA:               StringOr(raw[FieldGPA], "0.0"),
		HighestGPA:        StringOr(raw[FieldHighestGPA], "0.0"),
		Reputation:        ParseIntOr(raw[FieldReputation], 0),
		FailedCount:       ParseIntOr(raw[FieldFailedCount], 0),
		CoursePlanJSON:    raw[FieldCoursePlanJSON],
		CourseInfoJSON:    raw[FieldCourseInfoJSON],
	}
}

// ToRedis возвращает представление для HSET.
func (s PlayerStats) ToRedis() map[string]interface{} {
	return map[string]interface{}{
		FieldUsername:          s.Username,
		FieldMajor:             s.Major,
		FieldMajorAbbr:         s.MajorAbbr,
		FieldSemester:          s.Semester,
		FieldSemesterIdx:       s.SemesterIdx,
		FieldSemesterStartTime: s.SemesterStartTime,
		FieldEnergy:            s.Energy,
		FieldSanity:            s.Sanity,
		FieldStress:            s.Stress,
		FieldIQ:                s.IQ,
		FieldEQ:                s.EQ,
		FieldLuck:              s.Luck,
		FieldGPA:               s.GPA,
		FieldHighestGPA:        s.HighestGPA,
		FieldReputation:        s.Reputation,
		FieldFailedCount:       s.FailedCount,
		FieldCoursePlanJSON:    s.CoursePlanJSON,
		FieldCourseInfoJSON:    s.CourseInfoJSON,
	}
}

// Courses разбирает список курсов текущего семестра.
// Битый JSON трактуется как пустой список.
func (s PlayerStats) Courses() []CourseInfo {
	if s.CourseInfoJSON == "" {
		return nil
	}
	var courses []CourseInfo
	if err := json.Unmarshal([]byte(s.CourseInfoJSON), &courses); err != nil {
		return nil
	}
	return courses
}

// IsGameOver — терминальное условие: энергия или рассудок на нуле.
func (s PlayerStats) IsGameOver() bool {
	return s.Energy <= 0 || s.Sanity <= 0
}

// GameStateSnapshot — согласованный снимок всех эфемерных ключей игрока,
// полученный одним pipeline-запросом.
type GameStateSnapshot struct {
	Stats        PlayerStats        `json:"stats"`
	Courses      map[string]float64 `json:"courses"`
	CourseStates map[string]int     `json:"course_states"`
	Achievements []string           `json:"achievements"`
}

// SnapshotFromRedisData нормализует сырые данные из Redis в снимок.
// Нечитаемый прогресс приводится к нулю, нечитаемый режим — к «вполсилы»,
// как при записи новых курсов; ошибок парсинга не бывает.
func SnapshotFromRedisData(stats map[string]string, courses map[string]string, states map[string]string, achievements []string) *GameStateSnapshot {
	snap := &GameStateSnapshot{
		Stats:        PlayerStatsFromRedis(stats),
		Courses:      make(map[string]float64, len(courses)),
		CourseStates: make(map[string]int, len(states)),
		Achievements: achievements,
	}
	if snap.Achievements == nil {
		snap.Achievements = []string{}
	}
	for id, raw := range courses {
		snap.Courses[id] = ParseFloatOr(raw, 0)
	}
	for id, raw := range states {
		snap.CourseStates[id] = ParseIntOr(raw, CourseStatePassive)
	}
	return snap
}
