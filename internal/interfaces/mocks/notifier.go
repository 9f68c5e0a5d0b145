package mocks

import (
	"github.com/stretchr/testify/mock"

	"campus-sim-server/internal/interfaces"
)

// Notifier is a mock type for the Notifier type
type Notifier struct {
	mock.Mock
}

var _ interfaces.Notifier = (*Notifier)(nil)

func (_m *Notifier) SendPersonalMessage(payload interface{}, userID string) bool {
	ret := _m.Called(payload, userID)
	return ret.Get(0).(bool)
}

func (_m *Notifier) Broadcast(payload interface{}) {
	_m.Called(payload)
}

func (_m *Notifier) Disconnect(userID string, reason string) {
	_m.Called(userID, reason)
}
