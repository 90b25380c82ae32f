package pg

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
)

// ApplyDDL выполняет выражения в порядке объявления. Ожидается
// idempotent DDL (create ... if not exists), поэтому повторный прогон
// на живой базе безопасен.
func ApplyDDL(db *sql.DB, stmts []string) error {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	for _, stmt := range stmts {
		sqlText := strings.TrimSpace(stmt)
		if sqlText == "" {
			continue
		}
		if _, err := db.ExecContext(ctx, sqlText); err != nil {
			// pgx/stdlib возвращает *pgconn.PgError; duplicate_object (42710)
			// значит объект уже есть — пропускаем
			var pgErr *pgconn.PgError
			if errors.As(err, &pgErr) && pgErr.Code == "42710" {
				log.Printf("DDL skipped (already exists): %s (%s)", pgErr.ConstraintName, strings.TrimSpace(pgErr.Message))
				continue
			}
			// подстраховка по фразе (на случай других объектов)
			e := strings.ToLower(err.Error())
			if strings.Contains(e, "already exists") || strings.Contains(e, "duplicate") {
				log.Printf("DDL skipped (already exists): %v", err)
				continue
			}
			return fmt.Errorf("DDL apply failed: %w", err)
		}
	}
	return nil
}
