// pg/conn.go
package pg

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib" // драйвер pgx поверх database/sql
)

// Профиль нагрузки — короткие CRUD-запросы интерпретатора форм плюс
// редкие админские перечитывания, длинных транзакций нет. Пул держим
// скромным.
const (
	maxOpenConns    = 8
	maxIdleConns    = 4
	connMaxLifetime = time.Hour
	pingTimeout     = 3 * time.Second
)

// Open открывает пул и сразу пингует базу: ошибки URL и доступности
// должны всплыть на старте, а не на первом запросе формы.
func Open(url string) (*sql.DB, error) {
	db, err := sql.Open("pgx", url)
	if err != nil {
		return nil, fmt.Errorf("postgres open: %w", err)
	}
	db.SetMaxOpenConns(maxOpenConns)
	db.SetMaxIdleConns(maxIdleConns)
	db.SetConnMaxLifetime(connMaxLifetime)

	ctx, cancel := context.WithTimeout(context.Background(), pingTimeout)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("postgres ping: %w", err)
	}
	return db, nil
}
