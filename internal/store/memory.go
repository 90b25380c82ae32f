package store

import (
	"context"
	"io"
	"math/rand"
	"sort"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

// Memory — потокобезопасное хранилище в памяти. История версий каждой
// строки хранится целиком, наружу отдаётся только последняя.
type Memory struct {
	mu      sync.RWMutex
	tables  map[string]map[string][]*Row // таблица -> id -> версии по возрастанию
	entropy io.Reader
	now     func() time.Time
}

func NewMemory() *Memory {
	src := rand.New(rand.NewSource(time.Now().UnixNano()))
	return &Memory{
		tables:  make(map[string]map[string][]*Row),
		entropy: ulid.Monotonic(src, 0),
		now:     time.Now,
	}
}

func (m *Memory) newID() string {
	return ulid.MustNew(ulid.Timestamp(m.now()), m.entropy).String()
}

func (m *Memory) latest(table, id string) *Row {
	hist := m.tables[table][id]
	if len(hist) == 0 {
		return nil
	}
	return hist[len(hist)-1]
}

func (m *Memory) GetRow(_ context.Context, table, id string) (*Row, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	rec := m.latest(table, id)
	if rec == nil || rec.Deleted {
		return nil, ErrNotFound
	}
	return rec.Clone(), nil
}

func (m *Memory) ListRows(_ context.Context, table string) ([]*Row, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	rows := make([]*Row, 0, len(m.tables[table]))
	for id := range m.tables[table] {
		if rec := m.latest(table, id); rec != nil && !rec.Deleted {
			rows = append(rows, rec.Clone())
		}
	}
	// стабильный порядок для листингов и тестов
	sort.Slice(rows, func(i, j int) bool { return rows[i].ID < rows[j].ID })
	return rows, nil
}

func (m *Memory) UpsertRow(_ context.Context, table string, row *Row) (*Row, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	if m.tables[table] == nil {
		m.tables[table] = make(map[string][]*Row)
	}

	if row.ID == "" {
		rec := row.Clone()
		rec.ID = m.newID()
		rec.Version = 1
		rec.CreatedAt = now
		rec.UpdatedAt = now
		m.tables[table][rec.ID] = append(m.tables[table][rec.ID], rec)
		return rec.Clone(), nil
	}

	cur := m.latest(table, row.ID)
	if cur == nil || cur.Deleted {
		return nil, ErrNotFound
	}
	if row.Version != cur.Version {
		return nil, ErrConflict
	}
	rec := row.Clone()
	rec.Version = cur.Version + 1
	rec.CreatedAt = cur.CreatedAt
	rec.UpdatedAt = now
	m.tables[table][rec.ID] = append(m.tables[table][rec.ID], rec)
	return rec.Clone(), nil
}

func (m *Memory) DeleteRow(_ context.Context, table, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	cur := m.latest(table, id)
	if cur == nil || cur.Deleted {
		return ErrNotFound
	}
	rec := cur.Clone()
	rec.Version = cur.Version + 1
	rec.UpdatedAt = m.now()
	rec.Deleted = true
	m.tables[table][id] = append(m.tables[table][id], rec)
	return nil
}

// History отдаёт все версии строки (включая удалённые) — для отладки и тестов
func (m *Memory) History(table, id string) []*Row {
	m.mu.RLock()
	defer m.mu.RUnlock()
	hist := m.tables[table][id]
	out := make([]*Row, len(hist))
	for i, r := range hist {
		out[i] = r.Clone()
	}
	return out
}

var _ Store = (*Memory)(nil)
