package handler

import (
	"fmt"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/gorilla/websocket"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"go.uber.org/zap"

	"campus-sim-server/internal/balance"
	"campus-sim-server/internal/engine"
	"campus-sim-server/internal/interfaces"
	"campus-sim-server/internal/models"
	"campus-sim-server/internal/repository"
	"campus-sim-server/internal/service"
)

const (
	// Время, разрешенное для записи сообщения клиенту.
	writeWait = 10 * time.Second
	// Время, разрешенное для чтения следующего pong сообщения от клиента.
	pongWait = 60 * time.Second
	// Отправлять пинги клиенту с этим периодом. Должно быть меньше pongWait.
	pingPeriod = (pongWait * 9) / 10
	// Максимальный размер сообщения, разрешенный от клиента.
	maxMessageSize = 4096
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// TODO: Добавить проверку Origin для безопасности
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// WebSocketHandler принимает подключения игроков, поднимает на каждом
// персональный движок и связывает его жизненный цикл с соединением.
type WebSocketHandler struct {
	manager   *ConnectionManager
	redis     *redis.Client
	world     interfaces.WorldCatalog
	content   interfaces.ContentGenerator
	saves     *service.SaveService
	balance   *balance.Config
	jwtSecret []byte
	playerTTL time.Duration
	logger    zerolog.Logger
	zapLogger *zap.Logger
}

// NewWebSocketHandler создает обработчик подключений.
func NewWebSocketHandler(
	manager *ConnectionManager,
	redisClient *redis.Client,
	world interfaces.WorldCatalog,
	contentGen interfaces.ContentGenerator,
	saves *service.SaveService,
	balanceCfg *balance.Config,
	jwtSecret []byte,
	playerTTL time.Duration,
	logger zerolog.Logger,
	zapLogger *zap.Logger,
) *WebSocketHandler {
	return &WebSocketHandler{
		manager:   manager,
		redis:     redisClient,
		world:     world,
		content:   contentGen,
		saves:     saves,
		balance:   balanceCfg,
		jwtSecret: jwtSecret,
		playerTTL: playerTTL,
		logger:    logger.With().Str("component", "WebSocketHandler").Logger(),
		zapLogger: zapLogger,
	}
}

// sessionClaims — полезные поля игрока из JWT.
type sessionClaims struct {
	UserID   string
	Username string
	Tier     string
}

// ServeWS обрабатывает входящий HTTP запрос для WebSocket.
func (h *WebSocketHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	tokenString := r.URL.Query().Get("token")
	if tokenString == "" {
		h.logger.Warn().Msg("Отсутствует query-параметр 'token'")
		http.Error(w, "Unauthorized: Missing token", http.StatusUnauthorized)
		return
	}

	claims, err := h.validateToken(tokenString)
	if err != nil {
		h.logger.Warn().Err(err).Msg("Невалидный токен")
		http.Error(w, "Unauthorized: invalid token", http.StatusUnauthorized)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Error().Err(err).Str("userID", claims.UserID).Msg("Не удалось повысить соединение")
		return
	}

	logger := h.logger.With().Str("userID", claims.UserID).Logger()
	logger.Info().Str("username", claims.Username).Msg("WebSocket соединение установлено")

	// Персональный стек: репозиторий → сервис → движок, всё на время сессии
	repo := repository.NewRedisPlayerRepository(h.redis, claims.UserID, h.playerTTL, h.zapLogger)
	gameService := service.NewGameService(claims.UserID, repo, h.world, h.saves, h.zapLogger)
	eng := engine.NewEngine(
		claims.UserID, claims.Username, claims.Tier,
		repo, h.world, h.content, h.manager, gameService, h.balance, h.zapLogger,
	)

	client := NewClient(claims.UserID, conn, func() {
		eng.Stop(engine.ReasonDisconnected)
		eng.Wait()
	})
	client.touch()
	h.manager.Register(client)

	go client.writePump(logger)

	// Игровой контекст готовится до запуска цикла: init уходит первым
	snapshot, status, err := gameService.PrepareGameContext(r.Context(), claims.Username, claims.Tier)
	if err != nil {
		logger.Error().Err(err).Msg("Не удалось подготовить игровой контекст")
		h.manager.SendPersonalMessage(models.NewSimpleEvent(models.EventTypeAuthError), claims.UserID)
		h.manager.Disconnect(claims.UserID, "init failed")
		h.manager.Unregister(client)
		return
	}

	h.manager.SendPersonalMessage(models.NewSimpleEvent(models.EventTypeAuthOK), claims.UserID)
	h.manager.SendPersonalMessage(models.NewInitEvent(snapshot.Stats), claims.UserID)
	if status == service.StatusNew {
		h.manager.SendPersonalMessage(models.NewDescEvent(
			fmt.Sprintf("欢迎入学！你被 %s 专业录取了。", snapshot.Stats.Major)), claims.UserID)
	}

	eng.Start()

	go client.readPump(h.manager, eng, logger)
}

// validateToken проверяет подпись и извлекает идентификацию игрока.
func (h *WebSocketHandler) validateToken(tokenString string) (*sessionClaims, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return h.jwtSecret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("token parse error: %w", err)
	}

	mapClaims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("invalid token")
	}

	userID, _ := mapClaims["sub"].(string)
	if userID == "" {
		return nil, fmt.Errorf("claim 'sub' отсутствует или пуст")
	}
	username, _ := mapClaims["username"].(string)
	if username == "" {
		username = userID
	}
	tier, _ := mapClaims["tier"].(string)

	return &sessionClaims{UserID: userID, Username: username, Tier: tier}, nil
}

// readPump откачивает команды игрока в движок. Разрыв соединения
// останавливает движок через onClose.
func (c *Client) readPump(manager *ConnectionManager, eng *engine.Engine, logger zerolog.Logger) {
	defer func() {
		manager.Unregister(c)
	}()
	c.Conn.SetReadLimit(maxMessageSize)
	_ = c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	c.Conn.SetPongHandler(func(string) error {
		c.touch()
		_ = c.Conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, message, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				logger.Warn().Err(err).Msg("Ошибка чтения WebSocket")
			} else {
				logger.Info().Msg("WebSocket соединение закрыто")
			}
			break
		}
		c.touch()
		_ = c.Conn.SetReadDeadline(time.Now().Add(pongWait))

		action, err := models.DecodeAction(message)
		if err != nil {
			// Битый JSON не роняет сессию
			logger.Warn().Err(err).Msg("Нечитаемая команда проигнорирована")
			continue
		}
		// Контекст берётся на каждое сообщение: рестарт после game_over
		// пересоздаёт корневой контекст движка
		eng.HandleAction(eng.Context(), action)
	}
}

// writePump откачивает события движка в соединение, перемежая пингами.
func (c *Client) writePump(logger zerolog.Logger) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.Conn.Close()
	}()
	for {
		select {
		case <-c.done:
			_ = c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			_ = c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
			return
		case message := <-c.send:
			_ = c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Conn.WriteMessage(websocket.TextMessage, message); err != nil {
				logger.Warn().Err(err).Msg("Ошибка записи WebSocket")
				return
			}
		case <-ticker.C:
			_ = c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
