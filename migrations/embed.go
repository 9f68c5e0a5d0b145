// Package migrations встраивает SQL-миграции схемы сохранений.
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS
