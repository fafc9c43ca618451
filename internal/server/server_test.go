package server

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/shopfront/apiserver/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
	"golang.org/x/crypto/bcrypt"
)

func memoryConfig() config.Config {
	return config.Config{
		ServerPort:   0,
		StoreBackend: config.StoreBackendMemory,
		Auth: config.AuthConfig{
			JWTSecret:    "test-secret",
			TokenTTL:     time.Hour,
			PasswordCost: bcrypt.MinCost,
		},
	}
}

func TestNewRequiresSecret(t *testing.T) {
	cfg := memoryConfig()
	cfg.Auth.JWTSecret = ""

	_, err := New(context.Background(), cfg, nil)
	assert.Error(t, err)
}

func TestNewRejectsUnknownBackends(t *testing.T) {
	cases := map[string]func(*config.Config){
		"store":   func(c *config.Config) { c.StoreBackend = "mongo" },
		"mq":      func(c *config.Config) { c.MQ.Backend = "kafka" },
		"storage": func(c *config.Config) { c.Storage.Backend = "s3" },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			cfg := memoryConfig()
			mutate(&cfg)
			_, err := New(context.Background(), cfg, nil)
			assert.Error(t, err)
		})
	}
}

func TestServerRoutes(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	srv, err := New(context.Background(), memoryConfig(), zap.New(core))
	require.NoError(t, err)
	t.Cleanup(func() { _ = srv.Shutdown(context.Background()) })

	assert.Equal(t, ":8080", srv.httpServer.Addr)

	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	body := `{"name":"Jane","email":"jane@example.com","password":"pass123"}`
	req := httptest.NewRequest(http.MethodPost, "/api/users", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec = httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusCreated, rec.Code)

	rec = httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/user/profile", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	assert.Equal(t, 1, logs.FilterMessage("user store ready").Len())
	assert.GreaterOrEqual(t, logs.FilterField(zap.String("path", "/api/users")).Len(), 1)
}

func TestRecoveredPanicIsLogged(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	router := NewRouter(zap.New(core), nil, nil)
	router.Get("/panic", func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/panic", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)

	entries := logs.FilterMessage("request").FilterField(zap.String("path", "/panic")).All()
	require.Len(t, entries, 1)
	assert.Equal(t, zap.ErrorLevel, entries[0].Level)
	assert.Equal(t, int64(http.StatusInternalServerError), entries[0].ContextMap()["status"])
	assert.NotEmpty(t, entries[0].ContextMap()["request_id"])
}
