package handler

import (
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"campus-sim-server/internal/models"
)

func newTestManager() *ConnectionManager {
	return NewConnectionManager(zerolog.Nop())
}

func TestSendPersonalMessage_OfflineUser(t *testing.T) {
	m := newTestManager()
	assert.False(t, m.SendPersonalMessage(models.NewSimpleEvent("pong"), "ghost"))
}

func TestSendPersonalMessage_QueuesSerializedEvent(t *testing.T) {
	m := newTestManager()
	client := NewClient("u1", nil, nil)
	m.Register(client)

	ok := m.SendPersonalMessage(models.NewDescEvent("新学期开始了！"), "u1")
	require.True(t, ok)

	raw := <-client.send
	var payload struct {
		Type string `json:"type"`
		Data struct {
			Desc string `json:"desc"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(raw, &payload))
	assert.Equal(t, models.EventTypeEvent, payload.Type)
	assert.Equal(t, "新学期开始了！", payload.Data.Desc)
}

func TestSendPersonalMessage_ClosedClientRefused(t *testing.T) {
	m := newTestManager()
	client := NewClient("u1", nil, nil)
	m.Register(client)

	client.markClosed()

	// Разорванное соединение не принимает сообщений, канал не трогается
	assert.False(t, m.SendPersonalMessage(models.NewSimpleEvent("pong"), "u1"))
	assert.Empty(t, client.send)
}

func TestSendPersonalMessage_ConcurrentWithUnregister(t *testing.T) {
	m := newTestManager()
	client := NewClient("u1", nil, nil)
	m.Register(client)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < 200; i++ {
			m.SendPersonalMessage(models.NewSimpleEvent("pong"), "u1")
		}
	}()

	m.Unregister(client)
	wg.Wait()

	assert.False(t, m.SendPersonalMessage(models.NewSimpleEvent("pong"), "u1"))
}

func TestBroadcast_DeliversToAllClients(t *testing.T) {
	m := newTestManager()
	a := NewClient("a", nil, nil)
	b := NewClient("b", nil, nil)
	m.Register(a)
	m.Register(b)

	m.Broadcast(models.NewSimpleEvent("pong"))

	assert.Len(t, a.send, 1)
	assert.Len(t, b.send, 1)
}

func TestBroadcast_FullQueueDoesNotBlockOthers(t *testing.T) {
	m := newTestManager()
	full := &Client{UserID: "full", send: make(chan []byte), done: make(chan struct{})} // без буфера: очередь всегда полна
	healthy := NewClient("ok", nil, nil)
	m.Register(full)
	m.Register(healthy)

	m.Broadcast(models.NewSimpleEvent("pong"))

	assert.Len(t, healthy.send, 1)
}

func TestBroadcast_ConcurrentWithUnregister(t *testing.T) {
	m := newTestManager()
	leaving := NewClient("leaving", nil, nil)
	staying := NewClient("staying", nil, nil)
	m.Register(leaving)
	m.Register(staying)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < 200; i++ {
			m.Broadcast(models.NewSimpleEvent("pong"))
		}
	}()

	m.Unregister(leaving)
	wg.Wait()

	assert.NotEmpty(t, staying.send)
}

func TestUnregister_IgnoresSupersededClient(t *testing.T) {
	m := newTestManager()
	stale := NewClient("u1", nil, nil)
	m.Register(stale)

	// Повторный Register того же игрока вытеснил бы stale; симулируем момент,
	// когда stale уже заменён в карте
	m.mu.Lock()
	fresh := NewClient("u1", nil, nil)
	m.clients["u1"] = fresh
	m.mu.Unlock()

	m.Unregister(stale)

	// Свежий клиент остался доступен
	assert.True(t, m.SendPersonalMessage(models.NewSimpleEvent("pong"), "u1"))
}

func TestClient_OnCloseFiresOnce(t *testing.T) {
	calls := 0
	c := NewClient("u1", nil, func() { calls++ })

	c.markClosed()
	c.markClosed()

	assert.Equal(t, 1, calls)
	assert.True(t, c.closed())
}

func TestIdleClients_DetectsOnlySilent(t *testing.T) {
	m := newTestManager()
	stale := NewClient("stale", nil, nil)
	stale.lastSeen.Store(time.Now().Add(-5 * time.Minute).Unix())
	fresh := NewClient("fresh", nil, nil)
	m.Register(stale)
	m.Register(fresh)

	// Конкурентные heartbeat-ы не должны гоняться с обходом жнеца
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < 100; i++ {
			fresh.touch()
		}
	}()

	idle := m.idleClients(time.Now().Add(-time.Minute).Unix())
	wg.Wait()

	require.Len(t, idle, 1)
	assert.Equal(t, "stale", idle[0].UserID)
}
