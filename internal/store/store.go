package store

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrNotFound — строки с таким id нет (или последняя версия помечена удалённой)
	ErrNotFound = errors.New("store: row not found")
	// ErrConflict — присланная версия отстала от актуальной
	ErrConflict = errors.New("store: version conflict")
)

// Row — одна версия строки таблицы. Values хранит колонки как пришли
// из формы/хранилища; системные поля вынесены отдельно.
type Row struct {
	ID        string         `json:"id"`
	Version   int64          `json:"version"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	Deleted   bool           `json:"-"`
	Values    map[string]any `json:"values"`
}

// Clone — глубина в один уровень: Values копируется, вложенные значения общие
func (r *Row) Clone() *Row {
	cp := *r
	cp.Values = make(map[string]any, len(r.Values))
	for k, v := range r.Values {
		cp.Values[k] = v
	}
	return &cp
}

// Store — версионируемое хранилище строк. Записи только добавляются:
// каждая правка — новая версия, чтение отдаёт последнюю живую.
type Store interface {
	// GetRow возвращает последнюю живую версию строки
	GetRow(ctx context.Context, table, id string) (*Row, error)
	// ListRows возвращает последние живые версии всех строк таблицы
	ListRows(ctx context.Context, table string) ([]*Row, error)
	// UpsertRow пишет новую версию. Пустой ID — вставка (версия 1).
	// Непустой ID — правка: присланная версия должна совпадать с актуальной,
	// иначе ErrConflict.
	UpsertRow(ctx context.Context, table string, row *Row) (*Row, error)
	// DeleteRow помечает строку удалённой новой версией
	DeleteRow(ctx context.Context, table, id string) error
}
