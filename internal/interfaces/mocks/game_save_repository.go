package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"campus-sim-server/internal/interfaces"
	"campus-sim-server/internal/models"
)

// GameSaveRepository is a mock type for the GameSaveRepository type
type GameSaveRepository struct {
	mock.Mock
}

var _ interfaces.GameSaveRepository = (*GameSaveRepository)(nil)

func (_m *GameSaveRepository) Upsert(ctx context.Context, save *models.GameSave) error {
	ret := _m.Called(ctx, save)
	return ret.Error(0)
}

func (_m *GameSaveRepository) GetByUserAndSlot(ctx context.Context, userID string, slot int) (*models.GameSave, error) {
	ret := _m.Called(ctx, userID, slot)
	var r0 *models.GameSave
	if ret.Get(0) != nil {
		r0 = ret.Get(0).(*models.GameSave)
	}
	return r0, ret.Error(1)
}

func (_m *GameSaveRepository) DeleteByUserAndSlot(ctx context.Context, userID string, slot int) error {
	ret := _m.Called(ctx, userID, slot)
	return ret.Error(0)
}
