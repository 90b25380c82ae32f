package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"collaboratorium/internal/schema"
	"collaboratorium/internal/store"
	"collaboratorium/internal/uiconfig"
)

const apiMarkup = `
Table projects {
  id uuid [pk]
  version int
  name varchar [not null]
  description json
  tag_groups json
  timestamp datetime
  created_by uuid
}

Table tag_groups {
  id varchar [pk]
  label varchar
  fields json
}
`

const apiYAML = `
entities:
  projects:
    label: Projects
    fields:
      name:
        type: string
        label: Name
        required: true
      description:
        type: subform
        label: Description
        parameters:
          "1":
            summary:
              type: string
              label: Summary
      tag_groups:
        type: tag
        label: Tags
        parameters:
          source_table: tag_groups
          value_column: id
          label_column: label
    meta:
      id:
        strategy: uuid
        readonly: true
      version:
        strategy: increment
      timestamp:
        strategy: now
      created_by:
        strategy: current_user
  tag_groups:
    label: Tag Groups
    fields:
      label:
        type: string
        label: Label
      fields:
        type: text
        label: Fields
`

func newTestServer(t *testing.T) (*Server, *store.Memory) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	sch, err := schema.Parse(strings.NewReader(apiMarkup))
	require.NoError(t, err)
	idx, err := schema.BuildReferenceIndex(sch)
	require.NoError(t, err)
	cfg, err := uiconfig.ParseConfig([]byte(apiYAML))
	require.NoError(t, err)
	require.NoError(t, cfg.Check(sch))

	mem := store.NewMemory()
	_, err = mem.UpsertRow(context.Background(), "tag_groups", &store.Row{Values: map[string]any{
		"id":    "work_area",
		"label": "Work Area",
		"fields": `{
			"work_area": {"type": "select_multiple", "label": "Work Area", "list_name": "work_area_list"},
			"work_area_list": {"agroecology": "Agroecology"}
		}`,
	}})
	require.NoError(t, err)

	return NewServer(sch, idx, cfg, mem, "", ""), mem
}

func doJSON(t *testing.T, r http.Handler, method, path string, body any, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	return out
}

func TestCreateAndGet(t *testing.T) {
	s, _ := newTestServer(t)
	r := s.Router()

	w := doJSON(t, r, http.MethodPost, "/api/data/projects", map[string]any{
		"name": "Alpha",
	}, map[string]string{"X-Person-Id": "person-1"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	created := decode(t, w)
	id := created["id"].(string)
	require.NotEmpty(t, id)
	assert.Equal(t, float64(1), created["version"])
	assert.Equal(t, "person-1", created["created_by"])
	assert.NotEmpty(t, created["timestamp"])

	w = doJSON(t, r, http.MethodGet, "/api/data/projects/"+id, nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Alpha", decode(t, w)["name"])
	assert.Equal(t, `"1"`, w.Header().Get("ETag"))
}

func TestCreate_ValidationErrors(t *testing.T) {
	s, _ := newTestServer(t)
	r := s.Router()

	w := doJSON(t, r, http.MethodPost, "/api/data/projects", map[string]any{
		"tag_groups": map[string]any{
			"work_area": map[string]any{"work_area": []string{"fictional_domain"}},
		},
	}, nil)
	require.Equal(t, http.StatusBadRequest, w.Code)

	out := decode(t, w)
	errs := out["errors"].([]any)
	// отсутствующий name и незнакомый ключ select-а приходят вместе
	require.Len(t, errs, 2)
}

func TestCreate_UnknownEntity(t *testing.T) {
	s, _ := newTestServer(t)
	w := doJSON(t, s.Router(), http.MethodPost, "/api/data/ghosts", map[string]any{"name": "x"}, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestUpdate_VersionFlow(t *testing.T) {
	s, _ := newTestServer(t)
	r := s.Router()

	w := doJSON(t, r, http.MethodPost, "/api/data/projects", map[string]any{"name": "Alpha"}, nil)
	require.Equal(t, http.StatusCreated, w.Code)
	id := decode(t, w)["id"].(string)

	// без версии — конфликт
	w = doJSON(t, r, http.MethodPut, "/api/data/projects/"+id, map[string]any{"name": "Beta"}, nil)
	assert.Equal(t, http.StatusConflict, w.Code)

	// с верной версией — ок, версия растёт
	w = doJSON(t, r, http.MethodPut, "/api/data/projects/"+id, map[string]any{"name": "Beta", "version": 1}, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, float64(2), decode(t, w)["version"])

	// с устаревшей — конфликт
	w = doJSON(t, r, http.MethodPut, "/api/data/projects/"+id, map[string]any{"name": "Gamma", "version": 1}, nil)
	assert.Equal(t, http.StatusConflict, w.Code)

	// версия через If-Match
	w = doJSON(t, r, http.MethodPut, "/api/data/projects/"+id, map[string]any{"name": "Gamma"},
		map[string]string{"If-Match": `"2"`})
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestDelete(t *testing.T) {
	s, _ := newTestServer(t)
	r := s.Router()

	w := doJSON(t, r, http.MethodPost, "/api/data/projects", map[string]any{"name": "Alpha"}, nil)
	id := decode(t, w)["id"].(string)

	w = doJSON(t, r, http.MethodDelete, "/api/data/projects/"+id, nil, nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = doJSON(t, r, http.MethodGet, "/api/data/projects/"+id, nil, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = doJSON(t, r, http.MethodDelete, "/api/data/projects/"+id, nil, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestList_FilterSortPaginate(t *testing.T) {
	s, _ := newTestServer(t)
	r := s.Router()

	for _, name := range []string{"bravo", "alpha", "charlie"} {
		w := doJSON(t, r, http.MethodPost, "/api/data/projects", map[string]any{"name": name}, nil)
		require.Equal(t, http.StatusCreated, w.Code)
	}

	w := doJSON(t, r, http.MethodGet, "/api/data/projects?sort=name", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var list []map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &list))
	require.Len(t, list, 3)
	assert.Equal(t, "alpha", list[0]["name"])
	assert.Equal(t, "charlie", list[2]["name"])
	assert.Equal(t, "3", w.Header().Get("X-Total-Count"))

	w = doJSON(t, r, http.MethodGet, "/api/data/projects?name=alpha", nil, nil)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &list))
	require.Len(t, list, 1)

	w = doJSON(t, r, http.MethodGet, "/api/data/projects?sort=name&limit=1&offset=1", nil, nil)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &list))
	require.Len(t, list, 1)
	assert.Equal(t, "bravo", list[0]["name"])
	assert.Equal(t, "3", w.Header().Get("X-Total-Count"))
}

func TestFormEndpoint(t *testing.T) {
	s, _ := newTestServer(t)
	r := s.Router()

	w := doJSON(t, r, http.MethodPost, "/api/data/projects", map[string]any{
		"name": "Alpha",
		"tag_groups": map[string]any{
			"work_area": map[string]any{"work_area": []string{"agroecology"}},
		},
	}, nil)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	id := decode(t, w)["id"].(string)

	w = doJSON(t, r, http.MethodGet, "/api/data/projects/"+id+"/form", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)

	out := decode(t, w)
	tree := out["form"].(map[string]any)
	assert.Equal(t, "projects", tree["entity"])
	fields := tree["fields"].([]any)
	require.NotEmpty(t, fields)
}

func TestList_WithFormPreviews(t *testing.T) {
	s, _ := newTestServer(t)
	r := s.Router()

	w := doJSON(t, r, http.MethodPost, "/api/data/projects", map[string]any{"name": "Alpha"}, nil)
	require.Equal(t, http.StatusCreated, w.Code)

	w = doJSON(t, r, http.MethodGet, "/api/data/projects?form=1", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var list []map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &list))
	require.Len(t, list, 1)
	require.NotNil(t, list[0]["form"])
}

func TestMetaEndpoints(t *testing.T) {
	s, _ := newTestServer(t)
	r := s.Router()

	w := doJSON(t, r, http.MethodGet, "/api/meta", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var tables []map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &tables))
	require.Len(t, tables, 2)
	assert.Equal(t, "projects", tables[0]["name"])
	assert.Equal(t, true, tables[0]["versioned"])

	w = doJSON(t, r, http.MethodGet, "/api/meta/projects", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	meta := decode(t, w)
	assert.Equal(t, true, meta["versioned"])

	w = doJSON(t, r, http.MethodGet, "/api/meta/nothere", nil, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = doJSON(t, r, http.MethodGet, "/api/ddl", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	stmts := decode(t, w)["statements"].([]any)
	require.Len(t, stmts, 2)
	assert.Contains(t, stmts[0], `PRIMARY KEY ("id", "version")`)
}

func TestConfigEndpoints(t *testing.T) {
	s, _ := newTestServer(t)
	r := s.Router()

	w := doJSON(t, r, http.MethodGet, "/api/config", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	cfg := decode(t, w)
	require.Contains(t, cfg, "entities")

	w = doJSON(t, r, http.MethodGet, "/api/config/draft", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "draft: true")

	w = doJSON(t, r, http.MethodGet, "/api/config/lint", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
}

func TestAdminReload(t *testing.T) {
	s, _ := newTestServer(t)
	r := s.Router()

	dir := t.TempDir()
	schemaPath := filepath.Join(dir, "schema.dbml")
	configPath := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(schemaPath, []byte(apiMarkup), 0o644))
	require.NoError(t, os.WriteFile(configPath, []byte(apiYAML), 0o644))

	w := doJSON(t, r, http.MethodPost, "/api/admin/reload", map[string]any{
		"schema_path": schemaPath,
		"config_path": configPath,
	}, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	out := decode(t, w)
	assert.Equal(t, true, out["ok"])
	assert.Equal(t, float64(2), out["tables"])
}

func TestAdminReload_EmptyBodyUsesStoredPaths(t *testing.T) {
	s, _ := newTestServer(t)

	dir := t.TempDir()
	schemaPath := filepath.Join(dir, "schema.dbml")
	configPath := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(schemaPath, []byte(apiMarkup), 0o644))
	require.NoError(t, os.WriteFile(configPath, []byte(apiYAML), 0o644))
	s.schemaPath = schemaPath
	s.configPath = configPath

	w := doJSON(t, s.Router(), http.MethodPost, "/api/admin/reload", nil, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, true, decode(t, w)["ok"])
}

func TestAdminReload_CosmeticIssuesWarnOnly(t *testing.T) {
	s, _ := newTestServer(t)
	r := s.Router()

	dir := t.TempDir()
	schemaPath := filepath.Join(dir, "schema.dbml")
	configPath := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(schemaPath, []byte(apiMarkup), 0o644))
	// поле без подписи: замечание линтера, но не повод отклонять
	require.NoError(t, os.WriteFile(configPath, []byte(`
entities:
  projects:
    fields:
      name:
        type: string
`), 0o644))

	w := doJSON(t, r, http.MethodPost, "/api/admin/reload", map[string]any{
		"schema_path": schemaPath,
		"config_path": configPath,
	}, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	out := decode(t, w)
	assert.Equal(t, true, out["ok"])
	require.Contains(t, out, "warnings")
}

func TestAdminReload_BlockingIssueRejected(t *testing.T) {
	s, _ := newTestServer(t)
	r := s.Router()

	dir := t.TempDir()
	schemaPath := filepath.Join(dir, "schema.dbml")
	configPath := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(schemaPath, []byte(apiMarkup), 0o644))
	// id статической группы совпал с зарезервированным ключом — похоже
	// на сломанную динамическую форму, такое на лету не подменяем
	require.NoError(t, os.WriteFile(configPath, []byte(`
entities:
  projects:
    fields:
      description:
        type: subform
        label: Description
        parameters:
          source_table:
            summary:
              type: string
              label: Summary
`), 0o644))

	w := doJSON(t, r, http.MethodPost, "/api/admin/reload", map[string]any{
		"schema_path": schemaPath,
		"config_path": configPath,
	}, nil)
	require.Equal(t, http.StatusBadRequest, w.Code, w.Body.String())
	assert.Contains(t, w.Body.String(), "reserved_group_id")
}

func TestAdminReload_DraftRejected(t *testing.T) {
	s, _ := newTestServer(t)
	r := s.Router()

	dir := t.TempDir()
	schemaPath := filepath.Join(dir, "schema.dbml")
	configPath := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(schemaPath, []byte(apiMarkup), 0o644))
	require.NoError(t, os.WriteFile(configPath, []byte("draft: true\n"+apiYAML), 0o644))

	w := doJSON(t, r, http.MethodPost, "/api/admin/reload", map[string]any{
		"schema_path": schemaPath,
		"config_path": configPath,
	}, nil)
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "draft")
}
