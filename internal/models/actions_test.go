package models_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"campus-sim-server/internal/models"
)

func TestDecodeAction(t *testing.T) {
	t.Run("known action", func(t *testing.T) {
		act, err := models.DecodeAction([]byte(`{"action":"pause"}`))
		require.NoError(t, err)
		assert.Equal(t, models.ActionPause, act.Kind)
	})

	t.Run("change_course_state with value", func(t *testing.T) {
		act, err := models.DecodeAction(
			[]byte(`{"action":"change_course_state","target":"CS001","value":2}`))
		require.NoError(t, err)
		assert.Equal(t, models.ActionChangeCourseState, act.Kind)
		assert.Equal(t, "CS001", act.Target)
		assert.Equal(t, 2, act.Value)
		assert.True(t, act.HasValue)
	})

	t.Run("value absent", func(t *testing.T) {
		act, err := models.DecodeAction([]byte(`{"action":"change_course_state","target":"CS001"}`))
		require.NoError(t, err)
		assert.False(t, act.HasValue)
	})

	t.Run("event_choice effects with desc", func(t *testing.T) {
		act, err := models.DecodeAction(
			[]byte(`{"action":"event_choice","effects":{"sanity":-5,"energy":10,"desc":"你选择了逃避"}}`))
		require.NoError(t, err)
		assert.Equal(t, models.ActionEventChoice, act.Kind)
		assert.Equal(t, -5, act.Effects["sanity"])
		assert.Equal(t, 10, act.Effects["energy"])
		assert.Equal(t, "你选择了逃避", act.EffectDesc)
		assert.NotContains(t, act.Effects, "desc")
	})

	t.Run("unknown action is not an error", func(t *testing.T) {
		act, err := models.DecodeAction([]byte(`{"action":"dance"}`))
		require.NoError(t, err)
		assert.Equal(t, models.ActionUnknown, act.Kind)
		assert.Equal(t, "dance", act.Raw)
	})

	t.Run("malformed json is an error", func(t *testing.T) {
		_, err := models.DecodeAction([]byte(`{"action":`))
		require.Error(t, err)
	})
}
