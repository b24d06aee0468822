package router

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/octobees/tablemate/internal/auth"
	"github.com/octobees/tablemate/internal/config"
	"github.com/octobees/tablemate/internal/handler"
	middlewarepkg "github.com/octobees/tablemate/internal/middleware"
)

// Handlers aggregates HTTP handlers used by the router.
type Handlers struct {
	Auth          *handler.AuthHandler
	Venues        *handler.VenuesHandler
	AdminUpload   *handler.AdminUploadHandler
	Conversations *handler.ConversationsHandler
	ChatSocket    *handler.ChatSocketHandler
	Booking       *handler.BookingHandler
}

// Register wires all HTTP routes for the API.
func Register(e *echo.Echo, cfg *config.Config, jwtManager *auth.JWTManager, handlers Handlers) {
	e.GET("/healthz", func(c echo.Context) error {
		return handler.Success(c, http.StatusOK, "service healthy", map[string]any{"status": "ok"})
	})

	if handlers.Auth != nil {
		e.POST("/auth/register", handlers.Auth.Register)
		e.POST("/auth/login", handlers.Auth.Login)
	}

	e.GET("/venues", handlers.Venues.List)
	e.POST("/venues/rank", handlers.Venues.Rank)

	conversations := e.Group("/conversations", middlewarepkg.OptionalJWT(jwtManager))
	conversations.POST("", handlers.Conversations.Start)

	owned := conversations.Group("/:id", handlers.Conversations.RequireOwner)
	owned.GET("", handlers.Conversations.Get)
	owned.DELETE("", handlers.Conversations.End)
	owned.POST("/turns", handlers.Conversations.Turn, middlewarepkg.TurnRateLimiter(cfg.RateLimitTurn))
	if handlers.ChatSocket != nil {
		owned.GET("/ws", handlers.ChatSocket.Serve)
	}
	if handlers.Booking != nil {
		owned.POST("/bookings", handlers.Booking.Book)
	}

	secured := e.Group("")
	secured.Use(middlewarepkg.JWT(jwtManager))

	admin := secured.Group("/admin", middlewarepkg.RequireRole("admin"))
	admin.POST("/upload-csv", handlers.AdminUpload.UploadCSV)
}
