package models

import (
	"encoding/json"
	"fmt"
)

// ActionKind — закрытый набор известных команд игрока.
// Неизвестная команда декодируется в ActionUnknown и обрабатывается как no-op:
// канал при этом не закрывается.
type ActionKind string

const (
	ActionPause             ActionKind = "pause"
	ActionResume            ActionKind = "resume"
	ActionRestart           ActionKind = "restart"
	ActionChangeCourseState ActionKind = "change_course_state"
	ActionRelax             ActionKind = "relax"
	ActionExam              ActionKind = "exam"
	ActionEventChoice       ActionKind = "event_choice"
	ActionNextSemester      ActionKind = "next_semester"
	ActionPing              ActionKind = "ping"
	ActionSaveGame          ActionKind = "save_game"
	ActionSaveAndExit       ActionKind = "save_and_exit"
	ActionExitWithoutSave   ActionKind = "exit_without_save"
	ActionUnknown           ActionKind = "unknown"
)

var knownActions = map[string]ActionKind{
	string(ActionPause):             ActionPause,
	string(ActionResume):            ActionResume,
	string(ActionRestart):           ActionRestart,
	string(ActionChangeCourseState): ActionChangeCourseState,
	string(ActionRelax):             ActionRelax,
	string(ActionExam):              ActionExam,
	string(ActionEventChoice):       ActionEventChoice,
	string(ActionNextSemester):      ActionNextSemester,
	string(ActionPing):              ActionPing,
	string(ActionSaveGame):          ActionSaveGame,
	string(ActionSaveAndExit):       ActionSaveAndExit,
	string(ActionExitWithoutSave):   ActionExitWithoutSave,
}

// Action — декодированная команда игрока. Каждый вариант использует
// только нужные ему поля.
type Action struct {
	Kind     ActionKind
	Raw      string // исходная строка action, для логов
	Target   string // курс или вид отдыха
	Value    int    // новый режим курса для change_course_state
	HasValue bool
	// Эффекты выбора в случайном событии: attr -> дельта.
	Effects    map[string]int
	EffectDesc string
}

// DecodeAction разбирает входящее сообщение клиента в тэгированный вариант.
// Ошибку возвращает только при невалидном JSON; неизвестный action — не ошибка.
func DecodeAction(data []byte) (Action, error) {
	var raw struct {
		Action  string                 `json:"action"`
		Target  string                 `json:"target"`
		Value   *json.Number           `json:"value"`
		Effects map[string]interface{} `json:"effects"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return Action{}, fmt.Errorf("malformed action payload: %w", err)
	}

	act := Action{Kind: ActionUnknown, Raw: raw.Action, Target: raw.Target}
	if kind, ok := knownActions[raw.Action]; ok {
		act.Kind = kind
	}
	if raw.Value != nil {
		if v, err := raw.Value.Int64(); err == nil {
			act.Value = int(v)
			act.HasValue = true
		}
	}
	if len(raw.Effects) > 0 {
		act.Effects = make(map[string]int, len(raw.Effects))
		for key, val := range raw.Effects {
			switch typed := val.(type) {
			case string:
				if key == "desc" {
					act.EffectDesc = typed
				}
			case float64:
				act.Effects[key] = int(typed)
			case json.Number:
				if v, err := typed.Int64(); err == nil {
					act.Effects[key] = int(v)
				}
			}
		}
	}
	return act, nil
}
