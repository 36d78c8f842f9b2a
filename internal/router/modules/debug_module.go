package modules

import (
	"expvar"

	"github.com/gin-gonic/gin"

	handlers "github.com/oksasatya/go-user-service/internal/interface/http"
)

// DebugModule exposes liveness and, when enabled, the expvar counters.
type DebugModule struct {
	Health       *handlers.HealthHandler
	ExposeExpvar bool
}

func NewDebugModule(h *handlers.HealthHandler, exposeExpvar bool) *DebugModule {
	return &DebugModule{Health: h, ExposeExpvar: exposeExpvar}
}

func (m *DebugModule) Register(rg *gin.RouterGroup) {
	rg.GET("/healthz", m.Health.Health)
	if m.ExposeExpvar {
		rg.GET("/debug/vars", gin.WrapH(expvar.Handler()))
	}
}
