package interfaces

// Notifier — исходящий канал к подключённым игрокам, как его видит движок.
// Отправка best-effort: неудача не возвращается как ошибка, транспортный
// слой сам разрегистрирует мёртвое соединение.
type Notifier interface {
	// SendPersonalMessage сериализует payload и отправляет его игроку.
	// false — игрок оффлайн или очередь отправки переполнена.
	SendPersonalMessage(payload interface{}, userID string) bool

	// Broadcast рассылает payload всем подключённым; ошибки по отдельным
	// каналам изолированы.
	Broadcast(payload interface{})

	// Disconnect закрывает соединение игрока (например, после save_and_exit).
	Disconnect(userID string, reason string)
}
