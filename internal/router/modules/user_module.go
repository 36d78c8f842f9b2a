package modules

import (
	"github.com/gin-gonic/gin"

	handlers "github.com/oksasatya/go-user-service/internal/interface/http"
)

// UserModule registers the account routes under /users.
// GetLimit guards the single-user read; nil mounts it unguarded.
type UserModule struct {
	Handler  *handlers.UserHandler
	GetLimit gin.HandlerFunc
}

func NewUserModule(h *handlers.UserHandler, getLimit gin.HandlerFunc) *UserModule {
	return &UserModule{Handler: h, GetLimit: getLimit}
}

func (m *UserModule) Register(rg *gin.RouterGroup) {
	users := rg.Group("/users")
	{
		users.GET("", m.Handler.List)
		users.GET("/all", m.Handler.ListAll)
		users.GET("/search", m.Handler.SearchUsers)
		if m.GetLimit != nil {
			users.GET("/:id", m.GetLimit, m.Handler.Get)
		} else {
			users.GET("/:id", m.Handler.Get)
		}
		users.POST("", m.Handler.Create)
		users.POST("/signup", m.Handler.Signup)
		users.POST("/password-reset", m.Handler.RequestPasswordReset)
		users.PUT("/:id", m.Handler.Update)
		users.DELETE("/:id", m.Handler.Delete)
	}
}
