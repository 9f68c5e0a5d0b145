package balance_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"campus-sim-server/internal/balance"
)

const validBalanceJSON = `{
  "version": "test",
  "tick": {
    "interval_seconds": 3,
    "base_energy_drain": 0.8,
    "base_mastery_growth": 0.5,
    "engaged_drain_threshold": 0.3
  },
  "semester": {"default_duration_seconds": 360, "duration_by_index": {"1": 420}},
  "course_states": {
    "0": {"growth": 0, "drain": 0, "label": "摆烂"},
    "1": {"growth": 1.0, "drain": 1.0, "label": "摸鱼"},
    "2": {"growth": 2.0, "drain": 2.2, "label": "卷王"}
  },
  "relax_actions": {
    "gym": {"cooldown_seconds": 60, "effects": {"energy": 10}, "message": "ok"}
  },
  "exam": {"fail_threshold": 60, "max_grade_point": 4.0},
  "game_over": {"sanity_reason": "a", "energy_reason": "b", "restartable": true}
}`

func writeBalance(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "game_balance.json")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoad_Valid(t *testing.T) {
	cfg, err := balance.Load(writeBalance(t, validBalanceJSON), zap.NewNop())
	require.NoError(t, err)

	assert.Equal(t, "test", cfg.Version)
	assert.Equal(t, 3, cfg.Tick.IntervalSeconds)
	assert.Equal(t, 2.2, cfg.StateCoeffs(2).Drain)
	// Неизвестный режим деградирует до нулевых коэффициентов
	assert.Zero(t, cfg.StateCoeffs(7).Growth)

	assert.Equal(t, 420, cfg.SemesterDuration(1))
	assert.Equal(t, 360, cfg.SemesterDuration(5))

	_, ok := cfg.Relax("gym")
	assert.True(t, ok)
	_, ok = cfg.Relax("nap")
	assert.False(t, ok)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := balance.Load(filepath.Join(t.TempDir(), "nope.json"), zap.NewNop())
	require.Error(t, err)
}

func TestLoad_RejectsMissingMode(t *testing.T) {
	broken := `{
      "tick": {"engaged_drain_threshold": 0.3},
      "course_states": {
        "0": {"growth": 0, "drain": 0},
        "1": {"growth": 1, "drain": 1}
      }
    }`
	_, err := balance.Load(writeBalance(t, broken), zap.NewNop())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "режим")
}

func TestLoad_RejectsNonDominatingIntensive(t *testing.T) {
	broken := `{
      "tick": {"engaged_drain_threshold": 0.3},
      "course_states": {
        "0": {"growth": 0, "drain": 0},
        "1": {"growth": 2, "drain": 2},
        "2": {"growth": 1, "drain": 1}
      }
    }`
	_, err := balance.Load(writeBalance(t, broken), zap.NewNop())
	require.Error(t, err)
}

func TestLoad_AppliesDefaults(t *testing.T) {
	minimal := `{
      "tick": {"engaged_drain_threshold": 0.3},
      "course_states": {
        "0": {"growth": 0, "drain": 0},
        "1": {"growth": 1, "drain": 1},
        "2": {"growth": 2, "drain": 2.2}
      }
    }`
	cfg, err := balance.Load(writeBalance(t, minimal), zap.NewNop())
	require.NoError(t, err)

	assert.Equal(t, 3, cfg.Tick.IntervalSeconds)
	assert.Equal(t, 60, cfg.Exam.FailThreshold)
	assert.Equal(t, 4.0, cfg.Exam.MaxGradePoint)
	assert.Equal(t, 360, cfg.Semester.DefaultDurationSeconds)
	assert.Equal(t, "unknown", cfg.Version)
}
