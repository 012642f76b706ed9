package security

import (
	"net/http"
	"net/http/httptest"
	"testing"

	jwtsec "FeedNotify/tools/security"

	"github.com/gin-gonic/gin"
)

func TestMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	opts := Options{JWT: jwtsec.DefaultOptions([]byte("s3cret")), HeaderToken: "X-Token"}
	r := gin.New()
	r.GET("/x", Middleware(opts), func(c *gin.Context) {
		c.String(http.StatusOK, c.GetString(CtxSubjectKey))
	})

	tok, _, err := jwtsec.Generate(opts.JWT, "ops", nil)
	if err != nil {
		t.Fatal(err)
	}

	cases := []struct {
		name   string
		header string
		value  string
		status int
	}{
		{"missing", "", "", http.StatusUnauthorized},
		{"bad token", "Authorization", "Bearer nope", http.StatusUnauthorized},
		{"bearer", "Authorization", "Bearer " + tok, http.StatusOK},
		{"lowercase bearer", "Authorization", "bearer " + tok, http.StatusOK},
		{"custom header", "X-Token", tok, http.StatusOK},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/x", nil)
			if tc.header != "" {
				req.Header.Set(tc.header, tc.value)
			}
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)
			if w.Code != tc.status {
				t.Fatalf("status = %d, body %s", w.Code, w.Body.String())
			}
			if tc.status == http.StatusOK && w.Body.String() != "ops" {
				t.Fatalf("subject = %q", w.Body.String())
			}
		})
	}
}
