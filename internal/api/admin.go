// api/admin.go
package api

import (
	"errors"
	"io"
	"log"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"collaboratorium/internal/form"
	"collaboratorium/internal/schema"
	"collaboratorium/internal/uiconfig"
)

type reloadReq struct {
	SchemaPath string `json:"schema_path"` // файл разметки схемы
	ConfigPath string `json:"config_path"` // yaml UI-конфига
}

// POST /api/admin/reload — перечитывает схему и конфиг с диска.
// Новый конфиг сначала прогоняется через проверки и линтер; при
// блокирующих замечаниях действующие артефакты не трогаются.
func (s *Server) AdminReloadHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req reloadReq
		// пустое тело — легальный случай "перечитай по сохранённым путям"
		if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid JSON"})
			return
		}

		schemaPath := strings.TrimSpace(req.SchemaPath)
		if schemaPath == "" {
			schemaPath = s.schemaPath
		}
		configPath := strings.TrimSpace(req.ConfigPath)
		if configPath == "" {
			configPath = s.configPath
		}

		// 1) схема + индекс ссылок
		newSchema, err := schema.Load(schemaPath)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "schema load error", "details": err.Error()})
			return
		}
		newIndex, err := schema.BuildReferenceIndex(newSchema)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "schema load error", "details": err.Error()})
			return
		}

		// 2) конфиг: черновик и битые ссылки отклоняются уже при загрузке
		newCfg, err := uiconfig.Load(configPath, newSchema)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "config load error", "details": err.Error()})
			return
		}

		// 3) линтер: блокирующие замечания отклоняют перезагрузку,
		// косметика (как и при старте сервера) только логируется
		var blocking, warnings []uiconfig.Issue
		for _, issue := range newCfg.Lint() {
			if issue.Blocking() {
				blocking = append(blocking, issue)
				continue
			}
			log.Printf("reload lint: %s", issue)
			warnings = append(warnings, issue)
		}
		if len(blocking) > 0 {
			c.JSON(http.StatusBadRequest, gin.H{
				"error":  "config has blocking issues",
				"issues": blocking,
				"hint":   "fix the config and retry",
			})
			return
		}

		// 4) атомарная замена под write-lock
		s.mu.Lock()
		s.sch = newSchema
		s.index = newIndex
		s.cfg = newCfg
		s.res = form.NewResolver(newCfg, s.st)
		s.schemaPath = schemaPath
		s.configPath = configPath
		s.mu.Unlock()

		resp := gin.H{
			"ok":       true,
			"tables":   len(newSchema.Tables),
			"entities": len(newCfg.Entities),
		}
		if len(warnings) > 0 {
			resp["warnings"] = warnings
		}
		c.JSON(http.StatusOK, resp)
	}
}
