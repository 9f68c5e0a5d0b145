package models

import "errors"

var (
	// ErrSaveNotFound — в долговременном хранилище нет записи для (игрок, слот).
	ErrSaveNotFound = errors.New("game save not found")
	// ErrStateNotFound — эфемерное состояние игрока отсутствует (истёк TTL или новый игрок).
	ErrStateNotFound = errors.New("player state not found")
	// ErrInvalidCourseState — режим курса вне {0, 1, 2}.
	ErrInvalidCourseState = errors.New("invalid course state value")
	// ErrUnknownCourse — курс не входит в текущий семестр игрока.
	ErrUnknownCourse = errors.New("unknown course id")
)
