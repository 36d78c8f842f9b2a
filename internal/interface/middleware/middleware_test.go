package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oksasatya/go-user-service/pkg/helpers"
)

func newEngine(logger *logrus.Logger, h gin.HandlerFunc) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(RealIP(), RequestContext(logger), Recovery(), AccessLog())
	r.GET("/ping", h)
	return r
}

func TestRequestContext(t *testing.T) {
	logger, hook := test.NewNullLogger()
	r := newEngine(logger, func(c *gin.Context) {
		helpers.LoggerFrom(c.Request.Context()).Info("inside handler")
		c.Status(http.StatusNoContent)
	})

	t.Run("generates an id and logs with it", func(t *testing.T) {
		hook.Reset()
		req := httptest.NewRequest(http.MethodGet, "/ping", nil)
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)

		id := w.Header().Get("X-Request-ID")
		_, err := uuid.Parse(id)
		require.NoError(t, err)

		entries := hook.AllEntries()
		require.Len(t, entries, 2, "handler line plus access line")
		assert.Equal(t, id, entries[0].Data["request_id"])
		assert.Equal(t, "/ping", entries[1].Data["route"])
		assert.Equal(t, http.StatusNoContent, entries[1].Data["status"])
	})

	t.Run("reuses a well-formed inbound id", func(t *testing.T) {
		in := uuid.NewString()
		req := httptest.NewRequest(http.MethodGet, "/ping", nil)
		req.Header.Set("X-Request-ID", in)
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		assert.Equal(t, in, w.Header().Get("X-Request-ID"))
	})

	t.Run("replaces a malformed inbound id", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/ping", nil)
		req.Header.Set("X-Request-ID", "<script>")
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		assert.NotEqual(t, "<script>", w.Header().Get("X-Request-ID"))
	})
}

func TestRealIP(t *testing.T) {
	var got string
	logger, _ := test.NewNullLogger()
	capture := func(c *gin.Context) { got = c.GetString("real_ip") }

	serve := func(r *gin.Engine, peer string, headers map[string]string) string {
		req := httptest.NewRequest(http.MethodGet, "/ping", nil)
		req.RemoteAddr = peer + ":40000"
		for k, v := range headers {
			req.Header.Set(k, v)
		}
		r.ServeHTTP(httptest.NewRecorder(), req)
		return got
	}

	t.Run("headers from an untrusted peer are ignored", func(t *testing.T) {
		r := newEngine(logger, capture)
		require.NoError(t, TrustProxies(r, nil))

		assert.Equal(t, "192.0.2.10", serve(r, "192.0.2.10", map[string]string{
			"CF-Connecting-IP": "203.0.113.7",
			"X-Forwarded-For":  "198.51.100.1",
		}))
	})

	t.Run("a trusted proxy names the client", func(t *testing.T) {
		r := newEngine(logger, capture)
		require.NoError(t, TrustProxies(r, []string{"10.0.0.0/8"}))

		assert.Equal(t, "203.0.113.7", serve(r, "10.0.0.2", map[string]string{
			"CF-Connecting-IP": "203.0.113.7",
			"X-Forwarded-For":  "198.51.100.1",
		}))
		assert.Equal(t, "198.51.100.1", serve(r, "10.0.0.2", map[string]string{
			"X-Forwarded-For": "198.51.100.1, 10.0.0.1",
		}))
		assert.Equal(t, "192.0.2.10", serve(r, "192.0.2.10", map[string]string{
			"X-Forwarded-For": "198.51.100.1",
		}), "only the proxy may forward")
	})
}

func TestRecovery(t *testing.T) {
	logger, hook := test.NewNullLogger()
	r := newEngine(logger, func(c *gin.Context) { panic("secret detail") })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ping", nil))

	require.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, w.Body.String(), "internal server error")
	assert.NotContains(t, w.Body.String(), "secret detail")

	var recovered bool
	for _, e := range hook.AllEntries() {
		if e.Message == "panic recovered" {
			recovered = true
			assert.Equal(t, "secret detail", e.Data["panic"])
		}
	}
	assert.True(t, recovered)
}
