package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/oklog/ulid/v2"

	"collaboratorium/internal/schema"
)

// PG — хранилище поверх Postgres. Версионируемые таблицы (id+version)
// пишутся только добавлением строк; правка — это INSERT следующей версии,
// чтение — последняя версия с живым статусом.
type PG struct {
	db      *sql.DB
	schema  *schema.Schema
	entropy io.Reader
}

func NewPG(db *sql.DB, s *schema.Schema) *PG {
	src := rand.New(rand.NewSource(time.Now().UnixNano()))
	return &PG{db: db, schema: s, entropy: ulid.Monotonic(src, 0)}
}

func (p *PG) newID() string {
	return ulid.MustNew(ulid.Timestamp(time.Now()), p.entropy).String()
}

func (p *PG) table(name string) (*schema.Table, error) {
	t := p.schema.Table(name)
	if t == nil {
		return nil, fmt.Errorf("store: unknown table %q", name)
	}
	return t, nil
}

func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

func columnList(t *schema.Table) []string {
	cols := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		cols[i] = c.Name
	}
	return cols
}

// scanRow читает все объявленные колонки в Row.Values и поднимает
// системные поля (id, version, status, timestamp) наружу
func scanRow(t *schema.Table, scan func(...any) error) (*Row, error) {
	cols := columnList(t)
	dest := make([]any, len(cols))
	for i := range dest {
		dest[i] = new(any)
	}
	if err := scan(dest...); err != nil {
		return nil, err
	}
	row := &Row{Values: make(map[string]any, len(cols))}
	for i, name := range cols {
		v := *(dest[i].(*any))
		row.Values[name] = v
		switch name {
		case "id":
			row.ID, _ = v.(string)
		case "version":
			switch n := v.(type) {
			case int64:
				row.Version = n
			case int32:
				row.Version = int64(n)
			}
		case "status":
			if s, _ := v.(string); s == "deleted" {
				row.Deleted = true
			}
		case "timestamp":
			if ts, ok := v.(time.Time); ok {
				row.UpdatedAt = ts
			}
		}
	}
	return row, nil
}

func latestQuery(t *schema.Table) string {
	cols := columnList(t)
	quoted := make([]string, len(cols))
	for i, c := range cols {
		quoted[i] = quoteIdent(c)
	}
	q := fmt.Sprintf(`SELECT %s FROM %s WHERE "id" = $1`, strings.Join(quoted, ", "), quoteIdent(t.Name))
	if t.IsVersioned() {
		q += ` ORDER BY "version" DESC LIMIT 1`
	}
	return q
}

func (p *PG) GetRow(ctx context.Context, table, id string) (*Row, error) {
	t, err := p.table(table)
	if err != nil {
		return nil, err
	}
	row, err := scanRow(t, p.db.QueryRowContext(ctx, latestQuery(t), id).Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if row.Deleted {
		return nil, ErrNotFound
	}
	return row, nil
}

func (p *PG) ListRows(ctx context.Context, table string) ([]*Row, error) {
	t, err := p.table(table)
	if err != nil {
		return nil, err
	}
	cols := columnList(t)
	quoted := make([]string, len(cols))
	for i, c := range cols {
		quoted[i] = quoteIdent(c)
	}
	var q string
	if t.IsVersioned() {
		// по одной (максимальной) версии на id
		q = fmt.Sprintf(
			`SELECT DISTINCT ON ("id") %s FROM %s ORDER BY "id", "version" DESC`,
			strings.Join(quoted, ", "), quoteIdent(t.Name))
	} else {
		q = fmt.Sprintf(`SELECT %s FROM %s ORDER BY "id"`, strings.Join(quoted, ", "), quoteIdent(t.Name))
	}

	rows, err := p.db.QueryContext(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*Row
	for rows.Next() {
		row, err := scanRow(t, rows.Scan)
		if err != nil {
			return nil, err
		}
		if row.Deleted {
			continue
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

func (p *PG) UpsertRow(ctx context.Context, table string, row *Row) (*Row, error) {
	t, err := p.table(table)
	if err != nil {
		return nil, err
	}

	rec := row.Clone()
	now := time.Now().UTC()
	updating := rec.ID != ""

	if !updating {
		rec.ID = p.newID()
		rec.Version = 1
		rec.CreatedAt = now
	} else {
		cur, err := p.GetRow(ctx, table, rec.ID)
		if err != nil {
			return nil, err
		}
		// без колонки version конфликт ловить не по чему — берём последнюю
		if t.IsVersioned() && rec.Version != cur.Version {
			return nil, ErrConflict
		}
		rec.Version = cur.Version + 1
		rec.CreatedAt = cur.CreatedAt
	}
	rec.UpdatedAt = now

	if updating && !t.IsVersioned() {
		// замена строки без истории версий — в одной транзакции, иначе
		// сбой вставки оставил бы таблицу уже без старой строки
		tx, err := p.db.BeginTx(ctx, nil)
		if err != nil {
			return nil, err
		}
		if _, err := tx.ExecContext(ctx,
			fmt.Sprintf(`DELETE FROM %s WHERE "id" = $1`, quoteIdent(t.Name)), rec.ID); err != nil {
			_ = tx.Rollback()
			return nil, err
		}
		if err := p.insert(ctx, tx, t, rec); err != nil {
			_ = tx.Rollback()
			return nil, err
		}
		if err := tx.Commit(); err != nil {
			return nil, err
		}
		return rec, nil
	}

	if err := p.insert(ctx, p.db, t, rec); err != nil {
		return nil, err
	}
	return rec, nil
}

func (p *PG) DeleteRow(ctx context.Context, table, id string) error {
	t, err := p.table(table)
	if err != nil {
		return err
	}
	cur, err := p.GetRow(ctx, table, id)
	if err != nil {
		return err
	}
	rec := cur.Clone()
	rec.Version = cur.Version + 1
	rec.UpdatedAt = time.Now().UTC()
	rec.Deleted = true

	if !t.IsVersioned() {
		// без истории версий — удаляем строку целиком
		_, err := p.db.ExecContext(ctx,
			fmt.Sprintf(`DELETE FROM %s WHERE "id" = $1`, quoteIdent(t.Name)), id)
		return err
	}
	return p.insert(ctx, p.db, t, rec)
}

// execer покрывает *sql.DB и *sql.Tx: insert не должен знать, идёт он
// в транзакции или сам по себе
type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// insert пишет одну версию строки
func (p *PG) insert(ctx context.Context, ex execer, t *schema.Table, rec *Row) error {
	vals := rec.Clone().Values
	if t.HasColumn("id") {
		vals["id"] = rec.ID
	}
	if t.HasColumn("version") {
		vals["version"] = rec.Version
	}
	if t.HasColumn("status") {
		if rec.Deleted {
			vals["status"] = "deleted"
		} else if vals["status"] == nil {
			vals["status"] = "active"
		}
	}
	if t.HasColumn("timestamp") {
		vals["timestamp"] = rec.UpdatedAt
	}

	cols := columnList(t)
	names := make([]string, 0, len(cols))
	ph := make([]string, 0, len(cols))
	args := make([]any, 0, len(cols))
	for _, c := range cols {
		v, ok := vals[c]
		if !ok {
			continue
		}
		names = append(names, quoteIdent(c))
		ph = append(ph, fmt.Sprintf("$%d", len(args)+1))
		args = append(args, v)
	}

	q := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		quoteIdent(t.Name), strings.Join(names, ", "), strings.Join(ph, ", "))
	if _, err := ex.ExecContext(ctx, q, args...); err != nil {
		// параллельная запись той же версии упирается в составной PK
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return ErrConflict
		}
		return err
	}
	return nil
}

var _ Store = (*PG)(nil)
