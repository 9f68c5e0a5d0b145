package interfaces

import (
	"context"

	"campus-sim-server/internal/models"
)

// ContentGenerator — внешний генератор нарративного контента (LLM).
// Вызовы могут быть медленными или падать: вызывающая сторона обязана
// деградировать до статического фолбэка и никогда не блокировать
// учёт ресурсов в тик-цикле.
type ContentGenerator interface {
	// ForumPost генерирует текст поста с кампусного форума по текущим статам.
	ForumPost(ctx context.Context, stats models.PlayerStats) (string, error)

	// RandomEvent генерирует случайное событие с вариантами выбора.
	// recentTitles — недавние заголовки, от которых генерацию уводят в сторону.
	RandomEvent(ctx context.Context, stats models.PlayerStats, recentTitles []string) (*models.RandomEventData, error)

	// Notification генерирует короткое пуш-сообщение (рассылка деканата,
	// сообщение в мессенджере и т.п.).
	Notification(ctx context.Context, stats models.PlayerStats) (string, error)

	// GraduationEpilogue генерирует финальный эпилог по итогам прохождения.
	GraduationEpilogue(ctx context.Context, stats models.PlayerStats, achievements []string) (string, error)
}
