package models_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"campus-sim-server/internal/models"
)

func TestParseCoursePlan(t *testing.T) {
	t.Run("semesters key", func(t *testing.T) {
		plan := models.ParseCoursePlan(
			`{"semesters":[{"courses":[{"id":"CS001","name":"程序设计基础","credits":4}]}]}`)
		require.Len(t, plan.SemesterList(), 1)
		assert.Equal(t, "CS001", plan.CoursesForSemester(1)[0].ID)
	})

	t.Run("legacy plan key", func(t *testing.T) {
		plan := models.ParseCoursePlan(
			`{"plan":[{"courses":[{"id":101,"name":"高数","credits":5}]}]}`)
		require.Len(t, plan.SemesterList(), 1)
		assert.Equal(t, "101", plan.CoursesForSemester(1)[0].ID)
	})

	t.Run("out of range semester", func(t *testing.T) {
		plan := models.ParseCoursePlan(`{"semesters":[{"courses":[]}]}`)
		assert.Nil(t, plan.CoursesForSemester(0))
		assert.Nil(t, plan.CoursesForSemester(2))
	})

	t.Run("broken json degrades to empty plan", func(t *testing.T) {
		plan := models.ParseCoursePlan("{{{")
		assert.Empty(t, plan.SemesterList())
	})
}
