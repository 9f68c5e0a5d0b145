package content

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	openaigo "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"campus-sim-server/internal/models"
)

// ErrGenerationFailed - ошибка генерации нарративного контента.
var ErrGenerationFailed = errors.New("ошибка генерации контента")

// Статические фолбэки: движок подставляет их при любой ошибке генератора,
// чтобы медленный или лежащий LLM никогда не ломал игровую сессию.
const (
	FallbackForumPost    = "CC98 服务器维护中..."
	FallbackNotification = "【教务处】近期请同学们注意劳逸结合。"
	FallbackEpilogue     = "四年时光匆匆而过，你带着回忆走出了校门。"
)

// Config - настройки клиента генерации.
type Config struct {
	APIKey  string
	BaseURL string
	Model   string
	Timeout time.Duration
}

// Generator реализует interfaces.ContentGenerator поверх OpenAI-совместимого
// API (OpenRouter/DeepSeek). Каждый вызов ограничен таймаутом клиента.
type Generator struct {
	client *openaigo.Client
	model  string
	logger *zap.Logger
}

// NewGenerator создает клиент генерации контента.
func NewGenerator(cfg Config, logger *zap.Logger) *Generator {
	openaiConfig := openaigo.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		openaiConfig.BaseURL = cfg.BaseURL
	}
	openaiConfig.HTTPClient = &http.Client{Timeout: cfg.Timeout}

	log := logger.Named("ContentGenerator")
	log.Info("Клиент генерации контента создан",
		zap.String("base_url", openaiConfig.BaseURL),
		zap.String("model", cfg.Model),
		zap.Duration("timeout", cfg.Timeout),
	)

	return &Generator{
		client: openaigo.NewClientWithConfig(openaiConfig),
		model:  cfg.Model,
		logger: log,
	}
}

// complete выполняет один chat-completion запрос и возвращает текст ответа.
func (g *Generator) complete(ctx context.Context, prompt string, maxTokens int, jsonMode bool) (string, error) {
	req := openaigo.ChatCompletionRequest{
		Model: g.model,
		Messages: []openaigo.ChatCompletionMessage{
			{Role: openaigo.ChatMessageRoleUser, Content: prompt},
		},
		MaxTokens: maxTokens,
	}
	if jsonMode {
		req.ResponseFormat = &openaigo.ChatCompletionResponseFormat{
			Type: openaigo.ChatCompletionResponseFormatTypeJSONObject,
		}
	}

	start := time.Now()
	resp, err := g.client.CreateChatCompletion(ctx, req)
	duration := time.Since(start)

	if err != nil {
		g.logger.Warn("Запрос к LLM не удался",
			zap.Duration("duration", duration), zap.Error(err))
		return "", fmt.Errorf("%w: %v", ErrGenerationFailed, err)
	}
	if len(resp.Choices) == 0 || resp.Choices[0].Message.Content == "" {
		g.logger.Warn("LLM вернул пустой ответ", zap.Duration("duration", duration))
		return "", fmt.Errorf("%w: пустой ответ", ErrGenerationFailed)
	}

	g.logger.Debug("Ответ LLM получен",
		zap.Duration("duration", duration),
		zap.Int("length", len(resp.Choices[0].Message.Content)),
	)
	return resp.Choices[0].Message.Content, nil
}

// statsSummary сводит статы в компактную строку для промпта.
func statsSummary(stats models.PlayerStats) string {
	return fmt.Sprintf("专业=%s 学期=%s 精力=%d 心态=%d 压力=%d 智商=%d 情商=%d 运气=%d GPA=%s",
		stats.Major, stats.Semester, stats.Energy, stats.Sanity, stats.Stress,
		stats.IQ, stats.EQ, stats.Luck, stats.GPA)
}

// ForumPost генерирует пост с кампусного форума по текущим статам игрока.
func (g *Generator) ForumPost(ctx context.Context, stats models.PlayerStats) (string, error) {
	prompt := fmt.Sprintf(`玩家当前状态：%s
请模拟大学校园论坛CC98的语气，生成一个简短的帖子标题和内容。
风格可以是：吐槽食堂、凡尔赛GPA、询问选课、郁闷小屋、二手交易、情侣秀恩爱等。
要求：简短、有趣、符合大学生网络用语。返回格式纯文本即可。`, statsSummary(stats))

	return g.complete(ctx, prompt, 100, false)
}

// RandomEvent генерирует случайное событие в строгом JSON-формате;
// recentTitles передаются в промпт, чтобы не повторять недавние события.
func (g *Generator) RandomEvent(ctx context.Context, stats models.PlayerStats, recentTitles []string) (*models.RandomEventData, error) {
	avoid := ""
	if len(recentTitles) > 0 {
		avoid = fmt.Sprintf("\n避免与以下最近事件重复：%s。", strings.Join(recentTitles, "、"))
	}
	prompt := fmt.Sprintf(`你是一个文字模拟游戏的上帝系统。玩家是一名大学生，当前状态：%s。
请生成一个突发的校园随机事件。%s

请严格输出 JSON 格式，不包含 markdown 标记，结构如下：
{
    "title": "事件标题",
    "desc": "事件描述（50字以内）",
    "options": [
        {"id": "A", "text": "选项A描述", "effects": {"energy": -5, "sanity": 5, "desc": "结果描述A"}},
        {"id": "B", "text": "选项B描述", "effects": {"reputation": -10, "stress": -5, "desc": "结果描述B"}}
    ]
}
确保 effects 中的数值变化合理（-20 到 +20 之间）。`, statsSummary(stats), avoid)

	raw, err := g.complete(ctx, prompt, 300, true)
	if err != nil {
		return nil, err
	}

	var event models.RandomEventData
	if err := json.Unmarshal([]byte(raw), &event); err != nil {
		g.logger.Warn("LLM вернул событие с некорректным JSON", zap.Error(err))
		return nil, fmt.Errorf("%w: некорректный JSON события: %v", ErrGenerationFailed, err)
	}
	if event.Title == "" || len(event.Options) == 0 {
		return nil, fmt.Errorf("%w: событие без заголовка или вариантов", ErrGenerationFailed)
	}
	return &event, nil
}

// Notification генерирует короткое пуш-сообщение (рассылка деканата и т.п.).
func (g *Generator) Notification(ctx context.Context, stats models.PlayerStats) (string, error) {
	prompt := fmt.Sprintf(`玩家当前状态：%s
请生成一条大学生活中的推送消息，比如教务处通知、辅导员群发、社团招新、外卖到了等。
要求：一句话，真实感强，可以带一点无厘头。返回纯文本。`, statsSummary(stats))

	return g.complete(ctx, prompt, 80, false)
}

// GraduationEpilogue генерирует финальный эпилог по итогам прохождения.
func (g *Generator) GraduationEpilogue(ctx context.Context, stats models.PlayerStats, achievements []string) (string, error) {
	prompt := fmt.Sprintf(`玩家完成了大学四年。最终状态：%s。获得成就：%s。
请以游戏旁白的口吻写一段毕业结语（100字以内），总结这段大学生活，并给出一个开放式的未来展望。返回纯文本。`,
		statsSummary(stats), strings.Join(achievements, "、"))

	return g.complete(ctx, prompt, 200, false)
}
