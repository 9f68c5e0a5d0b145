package handler

import (
	"encoding/json"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"

	"campus-sim-server/internal/interfaces"
)

// Код закрытия для соединения, вытесненного повторным логином того же игрока.
const closeCodeSuperseded = 4001

// Ёмкость очереди исходящих сообщений одного соединения.
const sendQueueSize = 256

var (
	activeConnections = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "ws_active_connections",
		Help: "Number of active WebSocket connections.",
	})
	droppedSendsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ws_dropped_sends_total",
		Help: "Total messages dropped due to full or closed send queues.",
	})
)

var _ interfaces.Notifier = (*ConnectionManager)(nil)

// Client — одно WebSocket соединение с идентификатором игрока.
type Client struct {
	UserID string
	Conn   *websocket.Conn
	send   chan []byte
	// done закрывается в markClosed; writePump выходит по нему. Канал send
	// никогда не закрывается: отправители могут конкурировать с разрывом.
	done     chan struct{}
	lastSeen atomic.Int64 // unix, обновляется на каждом входящем фрейме

	closeOnce sync.Once
	// onClose дергается ровно один раз при разрыве; останавливает движок.
	onClose func()
}

// NewClient создает клиента с очередью отправки и каналом завершения.
func NewClient(userID string, conn *websocket.Conn, onClose func()) *Client {
	return &Client{
		UserID:  userID,
		Conn:    conn,
		send:    make(chan []byte, sendQueueSize),
		done:    make(chan struct{}),
		onClose: onClose,
	}
}

func (c *Client) touch() {
	c.lastSeen.Store(time.Now().Unix())
}

// closed сообщает, что соединение уже помечено разорванным.
func (c *Client) closed() bool {
	select {
	case <-c.done:
		return true
	default:
		return false
	}
}

// markClosed гарантирует однократное закрытие done и вызов onClose.
func (c *Client) markClosed() {
	c.closeOnce.Do(func() {
		close(c.done)
		if c.onClose != nil {
			c.onClose()
		}
	})
}

// ConnectionManager управляет активными WebSocket соединениями и реализует
// Notifier для движка. Повторное подключение того же игрока вытесняет
// предыдущее соединение.
type ConnectionManager struct {
	clients map[string]*Client
	mu      sync.RWMutex
	logger  zerolog.Logger
}

// NewConnectionManager создает менеджер соединений.
func NewConnectionManager(logger zerolog.Logger) *ConnectionManager {
	return &ConnectionManager{
		clients: make(map[string]*Client),
		logger:  logger.With().Str("component", "ConnectionManager").Logger(),
	}
}

// Register добавляет клиента, закрывая старое соединение того же игрока.
func (m *ConnectionManager) Register(client *Client) {
	m.mu.Lock()
	old, existed := m.clients[client.UserID]
	m.clients[client.UserID] = client
	m.mu.Unlock()

	if existed {
		m.logger.Info().Str("userID", client.UserID).Msg("Вытеснение старого соединения")
		msg := websocket.FormatCloseMessage(closeCodeSuperseded, "superseded by new connection")
		_ = old.Conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(writeWait))
		_ = old.Conn.Close()
		old.markClosed()
	} else {
		activeConnections.Inc()
	}
	m.logger.Info().Str("userID", client.UserID).Msg("Клиент зарегистрирован")
}

// Unregister удаляет клиента; no-op, если соединение уже вытеснено новым.
func (m *ConnectionManager) Unregister(client *Client) {
	m.mu.Lock()
	current, ok := m.clients[client.UserID]
	if ok && current == client {
		delete(m.clients, client.UserID)
	} else {
		ok = false
	}
	m.mu.Unlock()

	if ok {
		activeConnections.Dec()
		m.logger.Info().Str("userID", client.UserID).Msg("Клиент разрегистрирован")
	}
	client.markClosed()
}

// SendPersonalMessage сериализует payload и ставит его в очередь игроку.
// false — игрок оффлайн либо очередь переполнена (соединение считается
// мёртвым и закрывается).
func (m *ConnectionManager) SendPersonalMessage(payload interface{}, userID string) bool {
	data, err := json.Marshal(payload)
	if err != nil {
		m.logger.Error().Err(err).Str("userID", userID).Msg("Не удалось сериализовать событие")
		return false
	}

	m.mu.RLock()
	client, ok := m.clients[userID]
	m.mu.RUnlock()
	if !ok || client.closed() {
		return false
	}

	select {
	case client.send <- data:
		return true
	default:
		droppedSendsTotal.Inc()
		m.logger.Warn().Str("userID", userID).Msg("Очередь отправки переполнена, соединение закрывается")
		go m.Disconnect(userID, "send queue overflow")
		return false
	}
}

// Broadcast отправляет payload всем подключённым. Ошибки по отдельным
// получателям изолированы.
func (m *ConnectionManager) Broadcast(payload interface{}) {
	data, err := json.Marshal(payload)
	if err != nil {
		m.logger.Error().Err(err).Msg("Не удалось сериализовать broadcast")
		return
	}

	m.mu.RLock()
	targets := make([]*Client, 0, len(m.clients))
	for _, c := range m.clients {
		targets = append(targets, c)
	}
	m.mu.RUnlock()

	for _, client := range targets {
		if client.closed() {
			continue
		}
		select {
		case client.send <- data:
		default:
			droppedSendsTotal.Inc()
		}
	}
}

// Disconnect закрывает соединение игрока с человекочитаемой причиной.
func (m *ConnectionManager) Disconnect(userID string, reason string) {
	m.mu.RLock()
	client, ok := m.clients[userID]
	m.mu.RUnlock()
	if !ok {
		return
	}

	m.logger.Info().Str("userID", userID).Str("reason", reason).Msg("Принудительное закрытие соединения")
	msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, reason)
	_ = client.Conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(writeWait))
	_ = client.Conn.Close()
}

// RunReaper периодически закрывает соединения без входящего трафика дольше
// timeout. Блокирует до закрытия done.
func (m *ConnectionManager) RunReaper(done <-chan struct{}, interval, timeout time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			for _, c := range m.idleClients(time.Now().Add(-timeout).Unix()) {
				m.logger.Warn().Str("userID", c.UserID).Msg("Соединение закрыто по бездействию")
				m.Disconnect(c.UserID, "idle timeout")
			}
		}
	}
}

// idleClients возвращает соединения без входящего трафика с момента cutoff.
func (m *ConnectionManager) idleClients(cutoff int64) []*Client {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var stale []*Client
	for _, c := range m.clients {
		if seen := c.lastSeen.Load(); seen > 0 && seen < cutoff {
			stale = append(stale, c)
		}
	}
	return stale
}
