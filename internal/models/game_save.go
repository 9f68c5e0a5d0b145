package models

import (
	"time"

	"github.com/google/uuid"
)

// GameSave — долговременный снимок игры: одна запись на пару (игрок, слот).
// Уникальный индекс по (user_id, save_slot) обеспечивает upsert-семантику.
type GameSave struct {
	ID            uuid.UUID              `db:"id"`
	UserID        string                 `db:"user_id"`
	SaveSlot      int                    `db:"save_slot"`
	StatsData     map[string]interface{} `db:"stats_data"`
	CoursesData   map[string]float64     `db:"courses_data"`
	StatesData    map[string]int         `db:"course_states_data"`
	Achievements  []string               `db:"achievements_data"`
	SemesterIndex int                    `db:"semester_index"`
	CreatedAt     time.Time              `db:"created_at"`
	UpdatedAt     time.Time              `db:"updated_at"`
}

// DefaultSaveSlot — пока поддерживается один слот на игрока.
const DefaultSaveSlot = 1
