// README: Tests for the identity headers and the admin gate.
package middleware_test

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"

	"roam/internal/http/middleware"
)

func newTestRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(middleware.Identity())
	r.GET("/test", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"user_id":  middleware.UserID(c),
			"verified": middleware.Verified(c),
		})
	})
	r.GET("/admin", middleware.RequireAdmin("ops-1"), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})
	return r
}

func doGet(r *gin.Engine, path string, headers map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestIdentity_MissingHeader(t *testing.T) {
	w := doGet(newTestRouter(), "/test", nil)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("expected 401, got %d", w.Code)
	}
}

func TestIdentity_PassesUserThrough(t *testing.T) {
	w := doGet(newTestRouter(), "/test", map[string]string{
		"X-User-ID":       "user1",
		"X-User-Verified": "true",
	})
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	body := w.Body.String()
	if !strings.Contains(body, `"user_id":"user1"`) || !strings.Contains(body, `"verified":true`) {
		t.Errorf("unexpected body: %s", body)
	}
}

func TestIdentity_UnverifiedByDefault(t *testing.T) {
	w := doGet(newTestRouter(), "/test", map[string]string{"X-User-ID": "user1"})
	if !strings.Contains(w.Body.String(), `"verified":false`) {
		t.Errorf("unexpected body: %s", w.Body.String())
	}
}

func TestRequireAdmin(t *testing.T) {
	r := newTestRouter()
	if w := doGet(r, "/admin", map[string]string{"X-User-ID": "user1"}); w.Code != http.StatusForbidden {
		t.Errorf("non-admin: expected 403, got %d", w.Code)
	}
	if w := doGet(r, "/admin", map[string]string{"X-User-ID": "ops-1"}); w.Code != http.StatusOK {
		t.Errorf("admin: expected 200, got %d", w.Code)
	}
}
