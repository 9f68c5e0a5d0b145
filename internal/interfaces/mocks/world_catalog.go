package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"campus-sim-server/internal/interfaces"
	"campus-sim-server/internal/models"
)

// WorldCatalog is a mock type for the WorldCatalog type
type WorldCatalog struct {
	mock.Mock
}

var _ interfaces.WorldCatalog = (*WorldCatalog)(nil)

func (_m *WorldCatalog) GetRandomMajorAssignment(ctx context.Context, tier string) (*interfaces.MajorAssignment, error) {
	ret := _m.Called(ctx, tier)
	var r0 *interfaces.MajorAssignment
	if ret.Get(0) != nil {
		r0 = ret.Get(0).(*interfaces.MajorAssignment)
	}
	return r0, ret.Error(1)
}

func (_m *WorldCatalog) GetSemesterCourses(ctx context.Context, majorAbbr string, semesterIdx int) ([]models.CourseInfo, error) {
	ret := _m.Called(ctx, majorAbbr, semesterIdx)
	var r0 []models.CourseInfo
	if ret.Get(0) != nil {
		r0 = ret.Get(0).([]models.CourseInfo)
	}
	return r0, ret.Error(1)
}

func (_m *WorldCatalog) Achievements(ctx context.Context) ([]models.Achievement, error) {
	ret := _m.Called(ctx)
	var r0 []models.Achievement
	if ret.Get(0) != nil {
		r0 = ret.Get(0).([]models.Achievement)
	}
	return r0, ret.Error(1)
}
