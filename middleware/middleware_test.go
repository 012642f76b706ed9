package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	errs "FeedNotify/tools/errs"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func TestRecoveryAndErrors(t *testing.T) {
	gin.SetMode(gin.TestMode)
	m := NewManager().Add("recovery", Recovery(zap.NewNop())).Add("access", AccessLog(zap.NewNop()))
	r := gin.New()
	r.Use(m.Handlers()...)
	GET(r, "/panic", func(*gin.Context) { panic("boom") }, RouteOpt{})
	GET(r, "/missing", func(c *gin.Context) { AbortWithError(c, errs.ErrNotFound.WrapMsg("user 'x'")) }, RouteOpt{})
	GET(r, "/guarded", func(c *gin.Context) { c.Status(http.StatusOK) }, RouteOpt{
		Auth: func(c *gin.Context) { AbortWithError(c, errs.ErrAuth.WrapMsg("no")) },
	})

	cases := map[string]int{
		"/panic":   http.StatusInternalServerError,
		"/missing": http.StatusNotFound,
		"/guarded": http.StatusUnauthorized,
	}
	for path, status := range cases {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
		if w.Code != status {
			t.Fatalf("%s: status = %d", path, w.Code)
		}
		var body errs.CodeError
		if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil || body.Code != status {
			t.Fatalf("%s: body %s", path, w.Body.String())
		}
	}
	if names := m.Names(); len(names) != 2 || names[0] != "recovery" {
		t.Fatalf("names = %v", names)
	}
}

func TestStatusOf(t *testing.T) {
	if StatusOf(errs.StoreError) != http.StatusServiceUnavailable || StatusOf(42) != http.StatusInternalServerError {
		t.Fatal("StatusOf")
	}
}

func TestCORS(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(CORS([]string{"https://ok.example"}))
	r.GET("/", func(c *gin.Context) { c.Status(http.StatusOK) })

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Origin", "https://ok.example")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Header().Get("Access-Control-Allow-Origin") != "https://ok.example" {
		t.Fatalf("headers = %v", w.Header())
	}

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Origin", "https://evil.example")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Header().Get("Access-Control-Allow-Origin") != "" {
		t.Fatalf("foreign origin allowed")
	}
}
