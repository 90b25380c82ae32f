// api/helpers.go
package api

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"collaboratorium/internal/form"
	"collaboratorium/internal/store"
)

// personHeader — непрозрачный идентификатор текущего пользователя.
// Ядро его не интерпретирует, только кладёт в created_by.
const personHeader = "X-Person-Id"

func flatten(rec *store.Row) map[string]any {
	out := map[string]any{
		"id":         rec.ID,
		"version":    rec.Version,
		"created_at": rec.CreatedAt.Format(time.RFC3339),
		"updated_at": rec.UpdatedAt.Format(time.RFC3339),
	}
	for k, v := range rec.Values {
		// пользовательские поля не дают перетирать служебные, если вдруг совпадут
		if _, clash := out[k]; clash {
			out["values."+k] = v
			continue
		}
		out[k] = v
	}
	return out
}

func statusForErrors(errs []form.FieldError) int {
	for _, e := range errs {
		if e.Code == "version_conflict" {
			return http.StatusConflict
		}
	}
	return http.StatusBadRequest
}

// readExpectedVersion достаёт ожидаемую версию из If-Match или body.version
func readExpectedVersion(c *gin.Context, payload map[string]any) (int64, bool) {
	ifMatch := strings.TrimSpace(c.GetHeader("If-Match"))
	if ifMatch != "" {
		// уберём кавычки/weak-префикс вида W/"3"
		if strings.HasPrefix(ifMatch, "W/") {
			ifMatch = strings.TrimPrefix(ifMatch, "W/")
		}
		ifMatch = strings.Trim(ifMatch, `"'`)
		if v, err := strconv.ParseInt(ifMatch, 10, 64); err == nil {
			return v, true
		}
	}
	if payload != nil {
		if raw, ok := payload["version"]; ok {
			switch t := raw.(type) {
			case float64:
				// JSON number → float64
				return int64(t), true
			case string:
				if v, err := strconv.ParseInt(strings.TrimSpace(t), 10, 64); err == nil {
					return v, true
				}
			}
		}
	}
	return 0, false
}

// stripSystemFields убирает служебные поля из присланного объекта:
// ими управляют meta-стратегии, а не клиент
func stripSystemFields(obj map[string]any) {
	for _, k := range []string{"id", "version", "created_at", "updated_at", "timestamp", "created_by", "status"} {
		delete(obj, k)
	}
}
