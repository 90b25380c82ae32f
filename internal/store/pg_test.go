package store_test

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"collaboratorium/internal/pg"
	"collaboratorium/internal/schema"
	"collaboratorium/internal/store"
)

const pgTestMarkup = `
Table projects {
  id uuid [pk]
  version int [not null]
  name varchar [not null]
  status varchar
  timestamp datetime
}

Table tags {
  id uuid [pk]
  project_id uuid [ref: > projects.id]
  label text
}
`

func startPostgres(t *testing.T) string {
	t.Helper()
	if testing.Short() {
		t.Skip("integration test, skipped in -short")
	}
	ctx := context.Background()

	pgc, err := tcpostgres.Run(ctx, "postgres:16-alpine",
		tcpostgres.WithDatabase("collab_test"),
		tcpostgres.WithUsername("collab"),
		tcpostgres.WithPassword("collab"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second)),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = pgc.Terminate(context.Background()) })

	url, err := pgc.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)
	return url
}

func TestPG_EndToEnd(t *testing.T) {
	url := startPostgres(t)
	ctx := context.Background()

	s, err := schema.Parse(strings.NewReader(pgTestMarkup))
	require.NoError(t, err)
	stmts, err := schema.GenerateDDL(s)
	require.NoError(t, err)

	db, err := pg.Open(url)
	require.NoError(t, err)
	defer db.Close()

	// прогон дважды: create if not exists должен быть безопасен
	require.NoError(t, pg.ApplyDDL(db, stmts))
	require.NoError(t, pg.ApplyDDL(db, stmts))

	st := store.NewPG(db, s)

	created, err := st.UpsertRow(ctx, "projects", &store.Row{Values: map[string]any{"name": "Alpha"}})
	require.NoError(t, err)
	require.NotEmpty(t, created.ID)
	assert.Equal(t, int64(1), created.Version)

	got, err := st.GetRow(ctx, "projects", created.ID)
	require.NoError(t, err)
	assert.Equal(t, "Alpha", got.Values["name"])

	// правка: новая версия поверх старой
	upd := got.Clone()
	upd.Values["name"] = "Beta"
	updated, err := st.UpsertRow(ctx, "projects", upd)
	require.NoError(t, err)
	assert.Equal(t, int64(2), updated.Version)

	// устаревшая версия отклоняется
	stale := got.Clone()
	stale.Values["name"] = "Gamma"
	_, err = st.UpsertRow(ctx, "projects", stale)
	assert.ErrorIs(t, err, store.ErrConflict)

	// листинг отдаёт по одной строке на id, последнюю версию
	rows, err := st.ListRows(ctx, "projects")
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "Beta", rows[0].Values["name"])

	// мягкое удаление: строка пропадает из чтения, история остаётся в базе
	require.NoError(t, st.DeleteRow(ctx, "projects", created.ID))
	_, err = st.GetRow(ctx, "projects", created.ID)
	assert.ErrorIs(t, err, store.ErrNotFound)

	var versions int
	require.NoError(t, db.QueryRow(`SELECT count(*) FROM "projects" WHERE "id" = $1`, created.ID).Scan(&versions))
	assert.Equal(t, 3, versions)
}

func TestPG_NonVersionedTable(t *testing.T) {
	url := startPostgres(t)
	ctx := context.Background()

	s, err := schema.Parse(strings.NewReader(pgTestMarkup))
	require.NoError(t, err)
	stmts, err := schema.GenerateDDL(s)
	require.NoError(t, err)

	db, err := pg.Open(url)
	require.NoError(t, err)
	defer db.Close()
	require.NoError(t, pg.ApplyDDL(db, stmts))

	st := store.NewPG(db, s)

	created, err := st.UpsertRow(ctx, "tags", &store.Row{Values: map[string]any{"label": "urgent"}})
	require.NoError(t, err)

	// у tags нет version — правка заменяет строку на месте
	upd := created.Clone()
	upd.Values["label"] = "later"
	_, err = st.UpsertRow(ctx, "tags", upd)
	require.NoError(t, err)

	var n int
	require.NoError(t, db.QueryRow(`SELECT count(*) FROM "tags" WHERE "id" = $1`, created.ID).Scan(&n))
	assert.Equal(t, 1, n)

	require.NoError(t, st.DeleteRow(ctx, "tags", created.ID))
	_, err = st.GetRow(ctx, "tags", created.ID)
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestPG_FailedReplaceKeepsRow(t *testing.T) {
	url := startPostgres(t)
	ctx := context.Background()

	s, err := schema.Parse(strings.NewReader(pgTestMarkup))
	require.NoError(t, err)
	stmts, err := schema.GenerateDDL(s)
	require.NoError(t, err)

	db, err := pg.Open(url)
	require.NoError(t, err)
	defer db.Close()
	require.NoError(t, pg.ApplyDDL(db, stmts))

	st := store.NewPG(db, s)

	created, err := st.UpsertRow(ctx, "tags", &store.Row{Values: map[string]any{"label": "urgent"}})
	require.NoError(t, err)

	// вставка с незакодируемым значением падает — старая строка обязана
	// пережить неудавшуюся замену
	upd := created.Clone()
	upd.Values["label"] = make(chan int)
	_, err = st.UpsertRow(ctx, "tags", upd)
	require.Error(t, err)

	got, err := st.GetRow(ctx, "tags", created.ID)
	require.NoError(t, err)
	assert.Equal(t, "urgent", got.Values["label"])
}
