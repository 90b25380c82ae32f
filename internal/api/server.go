// api/server.go
package api

import (
	"sync"

	"github.com/gin-gonic/gin"

	"collaboratorium/internal/form"
	"collaboratorium/internal/schema"
	"collaboratorium/internal/store"
	"collaboratorium/internal/uiconfig"
)

// Server держит скомпилированные артефакты (схему, индекс ссылок,
// UI-конфиг) и хранилище. Перезагрузка конфига меняет их атомарно
// под write-lock, обработчики читают снапшот под RLock.
type Server struct {
	mu    sync.RWMutex
	sch   *schema.Schema
	index schema.ReferenceIndex
	cfg   *uiconfig.Config
	res   *form.Resolver

	st store.Store

	// пути для /api/admin/reload
	schemaPath string
	configPath string
}

func NewServer(sch *schema.Schema, index schema.ReferenceIndex, cfg *uiconfig.Config, st store.Store, schemaPath, configPath string) *Server {
	return &Server{
		sch:        sch,
		index:      index,
		cfg:        cfg,
		res:        form.NewResolver(cfg, st),
		st:         st,
		schemaPath: schemaPath,
		configPath: configPath,
	}
}

// snapshot отдаёт согласованную тройку артефактов
func (s *Server) snapshot() (*schema.Schema, schema.ReferenceIndex, *uiconfig.Config, *form.Resolver) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.sch, s.index, s.cfg, s.res
}

func (s *Server) Router() *gin.Engine {
	r := gin.Default()

	apiGroup := r.Group("/api")
	{
		// мета и артефакты компилятора
		apiGroup.GET("/meta", s.MetaListHandler())
		apiGroup.GET("/meta/:table", s.MetaTableHandler())
		apiGroup.GET("/ddl", s.DDLHandler())

		// конфиг: текущий, черновик из схемы, линт
		apiGroup.GET("/config", s.ConfigHandler())
		apiGroup.GET("/config/draft", s.ConfigDraftHandler())
		apiGroup.GET("/config/lint", s.ConfigLintHandler())

		apiGroup.POST("/admin/reload", s.AdminReloadHandler())

		// данные и формы; запись всегда идёт через интерпретатор
		apiGroup.GET("/data/:table", s.ListHandler())
		apiGroup.POST("/data/:table", s.CreateHandler())
		apiGroup.GET("/data/:table/:id", s.GetOneHandler())
		apiGroup.PUT("/data/:table/:id", s.UpdateHandler())
		apiGroup.DELETE("/data/:table/:id", s.DeleteHandler())

		apiGroup.GET("/data/:table/:id/form", s.FormHandler())
	}
	return r
}

func (s *Server) Run(addr string) error {
	return s.Router().Run(addr)
}
