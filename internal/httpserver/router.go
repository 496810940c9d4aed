package httpserver

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/mbelozerov/storefront/internal/gate"
	"github.com/mbelozerov/storefront/internal/handlers"
)

type Deps struct {
	Gate         *gate.Gate
	AuthHandler  *handlers.AuthHandler
	AdminHandler *handlers.AdminHandler
}

func Register(e *echo.Echo, d *Deps) {
	e.GET("/health/live", func(c echo.Context) error { return c.NoContent(http.StatusOK) })
	e.GET("/health/ready", func(c echo.Context) error { return c.NoContent(http.StatusOK) })

	e.Use(d.Gate.Middleware())

	auth := e.Group("/api/auth")
	auth.POST("/signup", d.AuthHandler.Signup)
	auth.POST("/login", d.AuthHandler.Login)
	auth.POST("/verify", d.AuthHandler.Verify)
	auth.DELETE("/logout", d.AuthHandler.Logout)

	users := e.Group("/api/users")
	users.POST("/change-email", d.AuthHandler.ChangeEmail)

	admin := e.Group("/api/admin")
	admin.GET("/users", d.AdminHandler.ListUsers)
	admin.PATCH("/users/:id/role", d.AdminHandler.ChangeRole)
	admin.GET("/analytics", d.AdminHandler.Analytics)
}
