package router

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"self-heal-api/internal/application/healing"
	"self-heal-api/internal/config"
	"self-heal-api/internal/domain/entity"
)

type stubHealer struct{ calls int }

func (s *stubHealer) Heal(context.Context, *entity.HealRequest) (*entity.HealResponse, error) {
	s.calls++
	return entity.NotHealed("no candidates", nil), nil
}

func (s *stubHealer) HealStream(context.Context, *entity.HealRequest) <-chan healing.Event {
	s.calls++
	ch := make(chan healing.Event, 1)
	ch <- healing.Event{Kind: healing.EventResult, Total: 6, Result: entity.NotHealed("no candidates", nil)}
	close(ch)
	return ch
}

const body = `{"app_id":"a","page_id":"p","platform":"web","old_locator":{"by":"id","value":"x"},"page_dump":"<html><body><button id=\"go\">Go</button></body></html>"}`

func newTestRouter(authEnabled bool) (*Router, *stubHealer) {
	gin.SetMode(gin.TestMode)
	cfg := &config.Config{}
	cfg.App.Env = "test"
	cfg.Security.Auth.Enabled = authEnabled
	h := &stubHealer{}
	return New(cfg, Deps{Healer: h}), h
}

func TestRouter_HealRoutes(t *testing.T) {
	r, h := newTestRouter(false)
	for _, path := range []string{"/healing", "/self-heal", "/self-heal-stream"} {
		req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()
		r.Engine().ServeHTTP(w, req)
		assert.Equal(t, http.StatusOK, w.Code, path)
	}
	assert.Equal(t, 3, h.calls)
}

func TestRouter_AuthGuardsHealRoutes(t *testing.T) {
	r, h := newTestRouter(true)

	req := httptest.NewRequest(http.MethodPost, "/self-heal", strings.NewReader(body))
	w := httptest.NewRecorder()
	r.Engine().ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Zero(t, h.calls)

	// 探针不需要认证
	w = httptest.NewRecorder()
	r.Engine().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRouter_NoRoute(t *testing.T) {
	r, _ := newTestRouter(false)
	w := httptest.NewRecorder()
	r.Engine().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/v1/locators", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Body.String(), "route not found")
}
