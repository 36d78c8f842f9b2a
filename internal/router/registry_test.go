package router

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oksasatya/go-user-service/config"
	"github.com/oksasatya/go-user-service/internal/container"
	"github.com/oksasatya/go-user-service/internal/infrastructure/memory"
)

func newWiredEngine(t *testing.T, debug bool) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	cfg := config.Load()
	cfg.DebugMetricsEnabled = debug
	store := memory.NewStore()
	container.SetConfig(cfg)
	container.SetStore(store, store.Outbox())
	container.SetRedis(nil)
	container.SetES(nil)
	logger, _ := test.NewNullLogger()
	container.SetLogger(logger)

	r := gin.New()
	reg := NewRegistry(r)
	InitModules(reg)
	reg.RegisterAll()
	reg.RegisterAll()
	return r
}

func TestRoutesAreMounted(t *testing.T) {
	r := newWiredEngine(t, true)

	routes := map[string]bool{}
	for _, ri := range r.Routes() {
		routes[ri.Method+" "+ri.Path] = true
	}
	for _, want := range []string{
		"GET /api/users",
		"GET /api/users/all",
		"GET /api/users/search",
		"GET /api/users/:id",
		"POST /api/users",
		"POST /api/users/signup",
		"POST /api/users/password-reset",
		"PUT /api/users/:id",
		"DELETE /api/users/:id",
		"GET /api/healthz",
		"GET /api/debug/vars",
	} {
		assert.True(t, routes[want], want)
	}

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/healthz", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"store":"ok"`)
}

func TestDebugVarsCanBeDisabled(t *testing.T) {
	r := newWiredEngine(t, false)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/debug/vars", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestDisabledDependenciesAreLogged(t *testing.T) {
	newWiredEngine(t, false)
	logger, hook := test.NewNullLogger()
	container.SetLogger(logger)

	InitModules(NewRegistry(gin.New()))

	var messages []string
	for _, e := range hook.AllEntries() {
		assert.Equal(t, "router", e.Data["component"])
		messages = append(messages, e.Message)
		if e.Level == logrus.WarnLevel {
			assert.Contains(t, e.Message, "not rate limited")
		}
	}
	assert.Contains(t, messages, "search projection disabled")
	assert.Contains(t, messages, "redis unavailable; GET /users/:id is not rate limited")
}
