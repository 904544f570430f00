// Package router registers the HTTP routes and their middleware.
package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/table-reservation/internal/handler"
	"github.com/iliyamo/table-reservation/internal/middleware"
	"github.com/iliyamo/table-reservation/internal/model"
)

// RegisterRoutes registers the unauthenticated probes.
func RegisterRoutes(e *echo.Echo, db handler.Pinger) {
	e.GET("/healthz", handler.Health)
	e.GET("/readyz", handler.Ready(db))
}

// RegisterAuth registers the session endpoints under /v1/auth and /v1/me.
func RegisterAuth(e *echo.Echo, a *handler.AuthHandler, jwtSecret string) {
	g := e.Group("/v1/auth")
	g.POST("/register", a.Register)
	g.POST("/login", a.Login)
	g.POST("/refresh", a.Refresh)
	// Logout works with a refresh token in the body or a bearer alone.
	g.POST("/logout", a.Logout, middleware.OptionalJWT(jwtSecret))

	e.GET("/v1/me", a.Me, middleware.JWTAuth(jwtSecret))
}

// RegisterReservations wires the booking API.  tokenLimit guards the
// unauthenticated token routes.
func RegisterReservations(e *echo.Echo, h *handler.ReservationHandler, jwtSecret string, tokenLimit echo.MiddlewareFunc) {
	// Booking is public; a valid bearer links the booking to its user.
	e.POST("/v1/reservations", h.Create, middleware.OptionalJWT(jwtSecret))
	e.GET("/v1/restaurants/:id/availability", h.Availability)

	tok := e.Group("/v1/reservations/token/:token", tokenLimit)
	tok.GET("", h.GetByToken)
	tok.PUT("/confirm", h.ConfirmByToken)
	tok.PUT("/check-in", h.CheckInByToken)
	tok.PUT("/verify", h.VerifyByToken)

	mine := e.Group("/v1/me/reservations", middleware.JWTAuth(jwtSecret), middleware.RequireRole(model.RoleCustomer, model.RoleStaff))
	mine.GET("", h.Mine)
	mine.PUT("/:id/cancel", h.CancelMine)

	staff := e.Group("/v1", middleware.JWTAuth(jwtSecret), middleware.RequireRole(model.RoleStaff))
	staff.GET("/reservations", h.List)
	staff.GET("/reservations/:id", h.Get)
	staff.PATCH("/reservations/:id", h.Update)
	staff.DELETE("/reservations/:id", h.Delete)
	staff.PUT("/reservations/:id/confirm", h.Confirm)
	staff.PUT("/reservations/:id/check-in", h.CheckIn)
	staff.PUT("/reservations/:id/cancel", h.Cancel)
	staff.GET("/restaurants/:id/reservations", h.ListByRestaurant)
}

// RegisterCache wires the staff-only cache administration endpoints.
func RegisterCache(e *echo.Echo, h *handler.CacheHandler, jwtSecret string) {
	g := e.Group("/v1/cache", middleware.JWTAuth(jwtSecret), middleware.RequireRole(model.RoleStaff))
	g.GET("/stats", h.Stats)
	g.DELETE("", h.Clear)
	g.DELETE("/:scope", h.ClearScope)
}
