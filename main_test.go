package main

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	mr "github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sitecraft/siteadmin/internal/config"
	"github.com/sitecraft/siteadmin/internal/document/service"
	"github.com/sitecraft/siteadmin/internal/tokens"
)

func testConfig() *config.Config {
	return &config.Config{
		Store:  config.StoreConfig{Backend: "memory"},
		Assets: config.AssetsConfig{Backend: "memory", BaseURL: "https://cdn.example"},
		Redis:  config.RedisConfig{Port: "6379"},
	}
}

func serve(t *testing.T, cfg *config.Config) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	b, err := openBackends(context.Background(), cfg)
	require.NoError(t, err)
	t.Cleanup(b.Close)
	svc := service.New(b.repo)
	require.NoError(t, svc.Bootstrap(context.Background()))
	return newRouter(cfg, svc, b, prometheus.NewRegistry())
}

func request(g *gin.Engine, method, path, body, token string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	g.ServeHTTP(w, req)
	return w
}

func TestRouter_HealthReadyMetrics(t *testing.T) {
	g := serve(t, testConfig())

	assert.Equal(t, http.StatusOK, request(g, http.MethodGet, "/health", "", "").Code)

	w := request(g, http.MethodGet, "/ready", "", "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Contains(t, w.Body.String(), `"store":true`)

	request(g, http.MethodPost, "/pages", `{"pages":{"pages":{}},"sha":"stale"}`, "")
	w = request(g, http.MethodGet, "/metrics", "", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "siteadmin_store_writes_total")

	w = request(g, http.MethodGet, "/swagger/doc.json", "", "")
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRouter_WritesNeedTokenWhenSecretSet(t *testing.T) {
	cfg := testConfig()
	cfg.JWT.Secret = "router-test-secret-32-bytes-xxxxxxxx"
	g := serve(t, cfg)

	assert.Equal(t, http.StatusOK, request(g, http.MethodGet, "/pages", "", "").Code)
	w := request(g, http.MethodPost, "/pages", `{"pages":{"pages":{}},"sha":""}`, "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	tok, err := tokens.GenerateAccessToken(cfg.JWT.Secret, "editor", time.Minute)
	require.NoError(t, err)
	// authenticated, but the empty sha is stale against the seeded document
	w = request(g, http.MethodPost, "/pages", `{"pages":{"pages":{}},"sha":""}`, tok)
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestRouter_RedisRateLimitAndReadiness(t *testing.T) {
	m, err := mr.Run()
	require.NoError(t, err)
	defer m.Close()

	cfg := testConfig()
	cfg.Store.Backend = "redis"
	host, port, _ := strings.Cut(m.Addr(), ":")
	cfg.Redis = config.RedisConfig{Host: host, Port: port}
	cfg.RateLimit = config.RateLimitConfig{Enabled: true, UseRedis: true, RPS: 0, Burst: 1, WindowSeconds: 60}
	g := serve(t, cfg)

	w := request(g, http.MethodGet, "/ready", "", "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Contains(t, w.Body.String(), `"redis":true`)

	body := `{"path":"a.png","contentBase64":"AA=="}`
	assert.Equal(t, http.StatusOK, request(g, http.MethodPost, "/product-images", body, "").Code)
	assert.Equal(t, http.StatusTooManyRequests, request(g, http.MethodPost, "/product-images", body, "").Code)
	// reads are not limited
	assert.Equal(t, http.StatusOK, request(g, http.MethodGet, "/content", "", "").Code)

	m.Close()
	w = request(g, http.MethodGet, "/ready", "", "")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestRouter_GitBackends(t *testing.T) {
	cfg := testConfig()
	cfg.Store = config.StoreConfig{Backend: "git", GitDir: t.TempDir(), Author: "tester"}
	cfg.Assets.Backend = "git"
	g := serve(t, cfg)

	w := request(g, http.MethodGet, "/sections", "", "")
	require.Equal(t, http.StatusOK, w.Code)
	body := `{"path":"assets/logos/logo-primary-1.svg","contentBase64":"PHN2Zy8+"}`
	w = request(g, http.MethodPost, "/product-images", body, "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	w = request(g, http.MethodGet, "/directory/list?path=assets/logos", "", "")
	assert.JSONEq(t, `{"files":["logo-primary-1.svg"]}`, w.Body.String())
}
