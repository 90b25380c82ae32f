// api/confighandlers.go
package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"gopkg.in/yaml.v3"

	"collaboratorium/internal/uiconfig"
)

// GET /api/config — действующий (проверенный) конфиг
func (s *Server) ConfigHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		_, _, cfg, _ := s.snapshot()
		c.JSON(http.StatusOK, cfg)
	}
}

// GET /api/config/draft — черновик, сгенерированный из схемы.
// Отдаём yaml: черновик предназначен для ручной доводки, не для машин.
func (s *Server) ConfigDraftHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		sch, index, _, _ := s.snapshot()
		draft := uiconfig.DraftConfig(sch, index)

		out, err := yaml.Marshal(draft)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.Data(http.StatusOK, "application/yaml", out)
	}
}

// GET /api/config/lint — замечания к действующему конфигу
func (s *Server) ConfigLintHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		_, _, cfg, _ := s.snapshot()
		issues := cfg.Lint()
		c.JSON(http.StatusOK, gin.H{"issues": issues, "count": len(issues)})
	}
}
