package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"campus-sim-server/internal/interfaces"
	"campus-sim-server/internal/models"
)

// ContentGenerator is a mock type for the ContentGenerator type
type ContentGenerator struct {
	mock.Mock
}

var _ interfaces.ContentGenerator = (*ContentGenerator)(nil)

func (_m *ContentGenerator) ForumPost(ctx context.Context, stats models.PlayerStats) (string, error) {
	ret := _m.Called(ctx, stats)
	return ret.String(0), ret.Error(1)
}

func (_m *ContentGenerator) RandomEvent(ctx context.Context, stats models.PlayerStats, recentTitles []string) (*models.RandomEventData, error) {
	ret := _m.Called(ctx, stats, recentTitles)
	var r0 *models.RandomEventData
	if ret.Get(0) != nil {
		r0 = ret.Get(0).(*models.RandomEventData)
	}
	return r0, ret.Error(1)
}

func (_m *ContentGenerator) Notification(ctx context.Context, stats models.PlayerStats) (string, error) {
	ret := _m.Called(ctx, stats)
	return ret.String(0), ret.Error(1)
}

func (_m *ContentGenerator) GraduationEpilogue(ctx context.Context, stats models.PlayerStats, achievements []string) (string, error) {
	ret := _m.Called(ctx, stats, achievements)
	return ret.String(0), ret.Error(1)
}
