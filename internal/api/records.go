// api/records.go
package api

import (
	"errors"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"collaboratorium/internal/form"
	"collaboratorium/internal/store"
	"collaboratorium/internal/uiconfig"
)

func fieldErr(code, field, msg string) form.FieldError {
	return form.FieldError{Code: code, Field: field, Message: msg}
}

// validateSubmission прогоняет присланный объект через интерпретатор:
// resolve строит дерево по конфигу, serialize валидирует и сворачивает
// обратно в каноничную форму хранения
func (s *Server) validateSubmission(c *gin.Context, res *form.Resolver, entity string, obj map[string]any) (map[string]any, bool) {
	tree, err := res.Resolve(c.Request.Context(), entity, obj)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return nil, false
	}
	values, err := res.Serialize(c.Request.Context(), tree)
	if err != nil {
		var ve *form.ValidationError
		if errors.As(err, &ve) {
			c.JSON(statusForErrors(ve.Fields), gin.H{"errors": ve.Fields})
			return nil, false
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return nil, false
	}
	return values, true
}

// applyMeta исполняет meta-стратегии конфига. id и version принадлежат
// хранилищу, остальное заполняется здесь.
func applyMeta(ent *uiconfig.Entity, values map[string]any, personID string) {
	for col, m := range ent.Meta {
		switch m.Strategy {
		case "now":
			values[col] = time.Now().UTC().Format(time.RFC3339)
		case "current_user":
			if personID != "" {
				values[col] = personID
			}
		}
	}
}

// POST /api/data/:table
func (s *Server) CreateHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		_, _, cfg, res := s.snapshot()
		table := c.Param("table")
		ent := cfg.Entity(table)
		if ent == nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "Entity not found"})
			return
		}

		var obj map[string]any
		if err := c.ShouldBindJSON(&obj); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid JSON"})
			return
		}
		stripSystemFields(obj)

		values, ok := s.validateSubmission(c, res, table, obj)
		if !ok {
			return
		}
		applyMeta(ent, values, c.GetHeader(personHeader))

		rec, err := s.st.UpsertRow(c.Request.Context(), table, &store.Row{Values: values})
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusCreated, flatten(rec))
	}
}

// GET /api/data/:table
func (s *Server) ListHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		_, _, cfg, res := s.snapshot()
		table := c.Param("table")
		if cfg.Entity(table) == nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "Entity not found"})
			return
		}

		rows, err := s.st.ListRows(c.Request.Context(), table)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}

		lp := parseListParams(c.Request.URL.Query())
		rows = applyFilters(rows, lp)
		if len(lp.Sort) > 0 {
			sortRowsMulti(rows, lp.Sort, lp.Nulls)
		}

		start := lp.Offset
		if start > len(rows) {
			start = len(rows)
		}
		end := start + lp.Limit
		if end > len(rows) {
			end = len(rows)
		}
		page := rows[start:end]

		withForm := c.Query("form") == "1" || strings.EqualFold(c.Query("form"), "true")

		out := make([]map[string]any, 0, len(page))
		for _, rec := range page {
			item := flatten(rec)
			if withForm {
				// одна битая запись деградирует до null-формы, листинг живёт
				tree, err := res.Resolve(c.Request.Context(), table, rec.Values)
				if err != nil {
					log.Printf("list %s/%s: form resolve failed: %v", table, rec.ID, err)
					item["form"] = nil
				} else {
					item["form"] = tree
				}
			}
			out = append(out, item)
		}
		c.Header("X-Total-Count", strconv.Itoa(len(rows)))
		c.JSON(http.StatusOK, out)
	}
}

// GET /api/data/:table/:id
func (s *Server) GetOneHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		_, _, cfg, _ := s.snapshot()
		table := c.Param("table")
		if cfg.Entity(table) == nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "Entity not found"})
			return
		}

		rec, err := s.st.GetRow(c.Request.Context(), table, c.Param("id"))
		if errors.Is(err, store.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Record not found"})
			return
		}
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.Header("ETag", `"`+strconv.FormatInt(rec.Version, 10)+`"`)
		c.JSON(http.StatusOK, flatten(rec))
	}
}

// PUT /api/data/:table/:id
func (s *Server) UpdateHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		_, _, cfg, res := s.snapshot()
		table := c.Param("table")
		id := c.Param("id")
		ent := cfg.Entity(table)
		if ent == nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "Entity not found"})
			return
		}

		var obj map[string]any
		if err := c.ShouldBindJSON(&obj); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid JSON"})
			return
		}

		// ожидаемую версию читаем ДО зачистки служебных полей
		expVer, okExp := readExpectedVersion(c, obj)
		stripSystemFields(obj)

		values, ok := s.validateSubmission(c, res, table, obj)
		if !ok {
			return
		}

		if !okExp {
			c.JSON(http.StatusConflict, gin.H{
				"errors": []form.FieldError{fieldErr("version_conflict", "version", "expected version is required (If-Match or body.version)")},
			})
			return
		}

		applyMeta(ent, values, c.GetHeader(personHeader))

		rec, err := s.st.UpsertRow(c.Request.Context(), table, &store.Row{ID: id, Version: expVer, Values: values})
		switch {
		case errors.Is(err, store.ErrNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "Record not found"})
		case errors.Is(err, store.ErrConflict):
			c.JSON(http.StatusConflict, gin.H{
				"errors": []form.FieldError{fieldErr("version_conflict", "version", "record was concurrently modified, re-fetch and retry")},
			})
		case err != nil:
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		default:
			c.JSON(http.StatusOK, flatten(rec))
		}
	}
}

// DELETE /api/data/:table/:id
func (s *Server) DeleteHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		_, _, cfg, _ := s.snapshot()
		table := c.Param("table")
		if cfg.Entity(table) == nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "Entity not found"})
			return
		}

		err := s.st.DeleteRow(c.Request.Context(), table, c.Param("id"))
		switch {
		case errors.Is(err, store.ErrNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "Record not found"})
		case err != nil:
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		default:
			c.JSON(http.StatusOK, gin.H{"ok": true})
		}
	}
}

// GET /api/data/:table/:id/form — запись, развёрнутая в дерево формы
func (s *Server) FormHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		_, _, cfg, res := s.snapshot()
		table := c.Param("table")
		if cfg.Entity(table) == nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "Entity not found"})
			return
		}

		rec, err := s.st.GetRow(c.Request.Context(), table, c.Param("id"))
		if errors.Is(err, store.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Record not found"})
			return
		}
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}

		tree, err := res.Resolve(c.Request.Context(), table, rec.Values)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.Header("ETag", `"`+strconv.FormatInt(rec.Version, 10)+`"`)
		c.JSON(http.StatusOK, gin.H{
			"id":      rec.ID,
			"version": rec.Version,
			"form":    tree,
		})
	}
}
