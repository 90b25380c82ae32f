// api/meta.go
package api

import (
	"net/http"
	"sort"

	"github.com/gin-gonic/gin"

	"collaboratorium/internal/schema"
)

// ===== META HANDLERS =====

type metaTableItem struct {
	Name      string `json:"name"`
	Versioned bool   `json:"versioned"`
	Columns   int    `json:"columns"`
}

func (s *Server) MetaListHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		sch, _, _, _ := s.snapshot()
		out := make([]metaTableItem, 0, len(sch.Tables))
		for _, t := range sch.Tables {
			out = append(out, metaTableItem{
				Name:      t.Name,
				Versioned: t.IsVersioned(),
				Columns:   len(t.Columns),
			})
		}
		c.JSON(http.StatusOK, out)
	}
}

type metaColumn struct {
	Name    string `json:"name"`
	Type    string `json:"type"`
	NotNull bool   `json:"notNull,omitempty"`
	PK      bool   `json:"pk,omitempty"`
	Ref     string `json:"ref,omitempty"` // "parent_table.parent_column"
}

type metaTable struct {
	Name      string       `json:"name"`
	Versioned bool         `json:"versioned"`
	Columns   []metaColumn `json:"columns"`
	RefsIn    []string     `json:"refsIn,omitempty"` // "child_table.child_column"
}

func (s *Server) MetaTableHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		sch, index, _, _ := s.snapshot()
		name := c.Param("table")
		t := sch.Table(name)
		if t == nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "Table not found"})
			return
		}

		cols := make([]metaColumn, 0, len(t.Columns))
		for _, col := range t.Columns {
			mc := metaColumn{Name: col.Name, Type: col.Type, NotNull: col.NotNull, PK: col.PK}
			if parent, ok := index.Parent(t.Name, col.Name); ok {
				mc.Ref = parent.Table + "." + parent.Column
			}
			cols = append(cols, mc)
		}

		var refsIn []string
		for child, parent := range index {
			if parent.Table == t.Name {
				refsIn = append(refsIn, child.Table+"."+child.Column)
			}
		}
		sort.Strings(refsIn)

		c.JSON(http.StatusOK, metaTable{
			Name:      t.Name,
			Versioned: t.IsVersioned(),
			Columns:   cols,
			RefsIn:    refsIn,
		})
	}
}

func (s *Server) DDLHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		sch, _, _, _ := s.snapshot()
		stmts, err := schema.GenerateDDL(sch)
		if err != nil {
			c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"statements": stmts})
	}
}
