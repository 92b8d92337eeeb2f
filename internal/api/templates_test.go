package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"whatsapp-core/internal/database"
	"whatsapp-core/internal/template"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newTemplateRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "test.db")), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))

	h := NewTemplateHandler(template.NewRegistry(db))
	r := gin.New()
	r.POST("/api/templates", h.Create)
	r.GET("/api/templates", h.List)
	r.GET("/api/templates/:name", h.GetByName)
	r.POST("/api/templates/:id/approve", h.Approve)
	r.POST("/api/templates/:id/reject", h.Reject)
	return r
}

func doJSON(r *gin.Engine, method, path string, body string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, bytes.NewBufferString(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	r.ServeHTTP(w, req)
	return w
}

func TestTemplateCreateThenApprove(t *testing.T) {
	r := newTemplateRouter(t)

	w := doJSON(r, "POST", "/api/templates", `{"name":"greet","locale":"en","category":"service","body":"Hi"}`)
	require.Equal(t, http.StatusCreated, w.Code)

	var created map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))
	require.Equal(t, "pending", created["status"])
	id := int(created["id"].(float64))

	w = doJSON(r, "POST", fmt.Sprintf("/api/templates/%d/approve", id), "")
	require.Equal(t, http.StatusOK, w.Code)

	var approved map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &approved))
	require.Equal(t, "approved", approved["status"])
}

func TestTemplateCreateDuplicateConflict(t *testing.T) {
	r := newTemplateRouter(t)

	w := doJSON(r, "POST", "/api/templates", `{"name":"greet","locale":"en","category":"service","body":"Hi"}`)
	require.Equal(t, http.StatusCreated, w.Code)

	w = doJSON(r, "POST", "/api/templates", `{"name":"greet","locale":"de","category":"service","body":"Hallo"}`)
	require.Equal(t, http.StatusConflict, w.Code)
}

func TestTemplateGetByName(t *testing.T) {
	r := newTemplateRouter(t)

	w := doJSON(r, "POST", "/api/templates", `{"name":"greet","locale":"en","category":"service","body":"Hi","variables":["name"]}`)
	require.Equal(t, http.StatusCreated, w.Code)

	w = doJSON(r, "GET", "/api/templates/greet", "")
	require.Equal(t, http.StatusOK, w.Code)

	w = doJSON(r, "GET", "/api/templates/missing", "")
	require.Equal(t, http.StatusNotFound, w.Code)
}

func TestTemplateListWithFilters(t *testing.T) {
	r := newTemplateRouter(t)

	doJSON(r, "POST", "/api/templates", `{"name":"a","locale":"en","category":"service","body":"1"}`)
	doJSON(r, "POST", "/api/templates", `{"name":"b","locale":"de","category":"marketing","body":"2"}`)

	w := doJSON(r, "GET", "/api/templates?locale=de", "")
	require.Equal(t, http.StatusOK, w.Code)

	var items []map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &items))
	require.Len(t, items, 1)
	require.Equal(t, "b", items[0]["name"])
}

func TestTemplateRejectThenApproveConflict(t *testing.T) {
	r := newTemplateRouter(t)

	w := doJSON(r, "POST", "/api/templates", `{"name":"greet","locale":"en","category":"service","body":"Hi"}`)
	var created map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))
	id := int(created["id"].(float64))

	w = doJSON(r, "POST", fmt.Sprintf("/api/templates/%d/reject", id), "")
	require.Equal(t, http.StatusOK, w.Code)

	w = doJSON(r, "POST", fmt.Sprintf("/api/templates/%d/approve", id), "")
	require.Equal(t, http.StatusConflict, w.Code)
}
