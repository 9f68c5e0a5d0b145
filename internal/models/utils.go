package models

import "strconv"

// Вспомогательные функции нормализации значений из Redis.
// Redis-хэши не имеют схемы, поэтому любое поле может оказаться пустым
// или в неожиданном формате — парсинг никогда не должен падать.

// ParseIntOr преобразует строку в int, возвращая def при любой ошибке.
func ParseIntOr(raw string, def int) int {
	if raw == "" {
		return def
	}
	if v, err := strconv.Atoi(raw); err == nil {
		return v
	}
	// Значение могло быть записано как float (например, из Lua-скрипта)
	if f, err := strconv.ParseFloat(raw, 64); err == nil {
		return int(f)
	}
	return def
}

// ParseInt64Or преобразует строку в int64, возвращая def при любой ошибке.
func ParseInt64Or(raw string, def int64) int64 {
	if raw == "" {
		return def
	}
	if v, err := strconv.ParseInt(raw, 10, 64); err == nil {
		return v
	}
	if f, err := strconv.ParseFloat(raw, 64); err == nil {
		return int64(f)
	}
	return def
}

// ParseFloatOr преобразует строку в float64, возвращая def при любой ошибке.
func ParseFloatOr(raw string, def float64) float64 {
	if raw == "" {
		return def
	}
	if v, err := strconv.ParseFloat(raw, 64); err == nil {
		return v
	}
	return def
}

// StringOr возвращает raw, либо def если строка пуста.
func StringOr(raw, def string) string {
	if raw == "" {
		return def
	}
	return raw
}
