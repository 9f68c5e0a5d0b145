package engine

import (
	"context"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"

	"campus-sim-server/internal/balance"
	"campus-sim-server/internal/interfaces"
	"campus-sim-server/internal/service"
)

// Status — состояние машины движка.
type Status int

const (
	StatusStopped Status = iota
	StatusRunning
	StatusPaused
)

// Терминальные причины остановки.
const (
	ReasonGameOver     = "game_over"
	ReasonGraduated    = "graduated"
	ReasonDisconnected = "disconnected"
)

var (
	enginesActive = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "game_engines_active",
		Help: "Number of running game engine instances.",
	})
	engineTicksTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "game_engine_ticks_total",
		Help: "Total number of processed game ticks.",
	})
	engineStopsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "game_engine_stops_total",
		Help: "Total number of engine stops by reason.",
	}, []string{"reason"})
)

// Engine — авторитетный владелец прогрессии одного игрока на время одного
// подключения: тик-цикл, диспетчер действий и эмиттер исходящих событий.
//
// Все фоновые задачи (нарративные события, проверки достижений) порождаются
// через spawnTask и отменяются набором при остановке движка — задача не может
// пережить разрыв соединения.
type Engine struct {
	userID   string
	username string
	tier     string
	repo     interfaces.PlayerStateRepository
	world    interfaces.WorldCatalog
	content  interfaces.ContentGenerator
	notifier interfaces.Notifier
	game     *service.GameService
	cfg      *balance.Config
	logger   *zap.Logger

	rootCtx    context.Context
	rootCancel context.CancelFunc
	tasks      sync.WaitGroup

	mu         sync.Mutex
	status     Status
	loopCancel context.CancelFunc
	tickCount  int
}

// NewEngine создает движок для одного подключённого игрока.
func NewEngine(
	userID, username, tier string,
	repo interfaces.PlayerStateRepository,
	world interfaces.WorldCatalog,
	content interfaces.ContentGenerator,
	notifier interfaces.Notifier,
	game *service.GameService,
	cfg *balance.Config,
	logger *zap.Logger,
) *Engine {
	rootCtx, rootCancel := context.WithCancel(context.Background())
	return &Engine{
		userID:     userID,
		username:   username,
		tier:       tier,
		repo:       repo,
		world:      world,
		content:    content,
		notifier:   notifier,
		game:       game,
		cfg:        cfg,
		logger:     logger.Named("Engine").With(zap.String("userID", userID)),
		rootCtx:    rootCtx,
		rootCancel: rootCancel,
	}
}

// Context — корневой контекст движка; отменяется в Stop и пересоздаётся
// при рестарте после game_over. Транспортный слой берёт его на каждое
// действие, чтобы обработчики гасли вместе с движком.
func (e *Engine) Context() context.Context {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.rootCtx
}

// Status возвращает текущее состояние машины.
func (e *Engine) Status() Status {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.status
}

// Start запускает тик-цикл. Повторный вызов на работающем движке — no-op.
func (e *Engine) Start() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.status == StatusRunning {
		return
	}
	e.startLoopLocked()
	e.logger.Info("Движок запущен")
}

// startLoopLocked порождает свежую задачу тик-цикла. Вызывается под e.mu.
func (e *Engine) startLoopLocked() {
	loopCtx, cancel := context.WithCancel(e.rootCtx)
	e.loopCancel = cancel
	e.status = StatusRunning
	enginesActive.Inc()

	e.tasks.Add(1)
	go func() {
		defer e.tasks.Done()
		defer enginesActive.Dec()
		e.runLoop(loopCtx)
	}()
}

// Pause гасит активную фазу тик-цикла, не разрушая движок.
func (e *Engine) Pause() {
	e.mu.Lock()
	if e.status != StatusRunning {
		e.mu.Unlock()
		return
	}
	e.loopCancel()
	e.status = StatusPaused
	e.mu.Unlock()

	e.logger.Info("Движок поставлен на паузу")
}

// Resume порождает свежий тик-цикл после паузы.
func (e *Engine) Resume() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.status != StatusPaused {
		return false
	}
	e.startLoopLocked()
	e.logger.Info("Движок возобновлён")
	return true
}

// Stop терминально останавливает движок: отменяет тик-цикл и все
// порождённые задачи. Повторные вызовы безопасны.
func (e *Engine) Stop(reason string) {
	e.mu.Lock()
	if e.status == StatusStopped {
		e.mu.Unlock()
		return
	}
	e.status = StatusStopped
	cancel := e.rootCancel
	e.mu.Unlock()

	cancel()
	engineStopsTotal.WithLabelValues(reason).Inc()
	e.logger.Info("Движок остановлен", zap.String("reason", reason))
}

// Wait блокирует до завершения всех задач движка. Вызывается после Stop.
func (e *Engine) Wait() {
	e.tasks.Wait()
}

// spawnTask порождает отслеживаемую фоновую задачу на rootCtx движка.
// Паника внутри задачи логируется и не роняет процесс.
func (e *Engine) spawnTask(name string, fn func(ctx context.Context)) {
	ctx := e.Context()
	e.tasks.Add(1)
	go func() {
		defer e.tasks.Done()
		defer func() {
			if r := recover(); r != nil {
				e.logger.Error("Паника в фоновой задаче движка",
					zap.String("task", name), zap.Any("panic", r))
			}
		}()
		fn(ctx)
	}()
}

// send — best-effort отправка события игроку.
func (e *Engine) send(payload interface{}) {
	e.notifier.SendPersonalMessage(payload, e.userID)
}
