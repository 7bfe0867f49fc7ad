// Package server assembles the HTTP router from the feature handlers.
package server

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/clubhub/backend/internal/analytics"
	"github.com/clubhub/backend/internal/auth"
	"github.com/clubhub/backend/internal/authz"
	"github.com/clubhub/backend/internal/chat"
	"github.com/clubhub/backend/internal/clubs"
	"github.com/clubhub/backend/internal/dashboard"
	"github.com/clubhub/backend/internal/events"
	"github.com/clubhub/backend/internal/middleware"
	"github.com/clubhub/backend/internal/models"
	"github.com/clubhub/backend/internal/tasks"
	"github.com/clubhub/backend/pkg/response"
)

// Deps carries everything the router needs. WS is optional; when nil the
// /ws endpoint is not registered.
type Deps struct {
	Logger      *zap.Logger
	CORSOrigins string
	JWT         *auth.JWTService

	Auth      *auth.Handler
	Clubs     *clubs.Handler
	Chat      *chat.Handler
	Events    *events.Handler
	Tasks     *tasks.Handler
	Dashboard *dashboard.Handler
	Analytics *analytics.Handler
	WS        gin.HandlerFunc

	// Ready reports whether startup (migrations, connections) has finished.
	// Until then /health answers 503 so load balancers hold traffic.
	Ready func() bool
}

// NewRouter builds the gin engine with all routes and middleware.
func NewRouter(d Deps) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.CORS(d.CORSOrigins))
	router.Use(middleware.Logger(d.Logger))

	router.GET("/health", func(c *gin.Context) {
		if d.Ready != nil && !d.Ready() {
			response.ServiceUnavailable(c, "starting up")
			return
		}
		response.OK(c, gin.H{"status": "ok"})
	})

	router.NoRoute(func(c *gin.Context) {
		response.NotFound(c, "route not found")
	})

	// Auth (public; session restore and logout carry the bearer token
	// themselves)
	authGroup := router.Group("/auth")
	{
		authGroup.POST("/login", d.Auth.Login)
		authGroup.POST("/register", d.Auth.Register)
		authGroup.GET("/session", d.Auth.Session)
		authGroup.POST("/logout", d.Auth.Logout)
	}

	manageRoles := []models.Role{models.RoleManager, models.RolePrimaryAdmin, models.RoleMainAdmin}

	// Protected API (JWT required)
	api := router.Group("")
	api.Use(middleware.JWT(d.JWT))
	{
		api.GET("/users", middleware.RequireRole(models.RoleMainAdmin), d.Auth.List)

		// Current user
		api.PUT("/me/profile", d.Auth.UpdateProfile)
		api.GET("/me/capabilities", d.Dashboard.Capabilities)
		api.GET("/me/navigation", d.Dashboard.Navigation)
		api.GET("/me/tasks", d.Tasks.Mine)
		api.GET("/dashboard/overview", d.Dashboard.Overview)

		// Clubs
		api.GET("/clubs", d.Clubs.List)
		api.POST("/clubs", middleware.RequireRole(models.RoleMainAdmin), d.Clubs.Create)
		api.GET("/clubs/:id", d.Clubs.Get)
		api.POST("/clubs/:id/join", d.Clubs.Join)
		api.GET("/clubs/:id/members", middleware.RequireCapability(authz.CanManageMembers), d.Clubs.Members)
		api.DELETE("/clubs/:id", middleware.RequireRole(models.RoleMainAdmin), d.Clubs.Deactivate)
		api.GET("/clubs/:id/analytics", middleware.RequireCapability(authz.CanViewAnalytics), d.Analytics.GetByClub)

		// Chat
		api.GET("/clubs/:id/messages", d.Chat.List)
		api.POST("/clubs/:id/messages", d.Chat.Send)
		api.GET("/clubs/:id/presence", d.Chat.Presence)
		api.PUT("/messages/:id", d.Chat.Edit)
		api.POST("/messages/:id/reactions", d.Chat.React)
		api.DELETE("/messages/:id/reactions", d.Chat.Unreact)
		api.POST("/messages/:id/attachments/presign", d.Chat.PresignAttachment)
		api.POST("/messages/:id/attachments", d.Chat.ConfirmAttachment)
		api.POST("/messages/:id/convert", middleware.RequireCapability(authz.CanConvertMessageToTask), d.Chat.Convert)
		api.POST("/conversions/:id/review", middleware.RequireCapability(authz.CanReviewTaskConversion), d.Chat.Review)

		// Events
		api.GET("/clubs/:id/events", d.Events.List)
		api.POST("/clubs/:id/events", middleware.RequireRole(manageRoles...), d.Events.Create)
		api.GET("/events/:id", d.Events.Get)
		api.PUT("/events/:id", middleware.RequireRole(manageRoles...), d.Events.Update)
		api.POST("/events/:id/status", middleware.RequireRole(manageRoles...), d.Events.SetStatus)
		api.POST("/events/:id/rsvp", d.Events.RSVP)
		api.POST("/events/:id/checkin", d.Events.CheckIn)
		api.GET("/events/:id/attendees", middleware.RequireRole(manageRoles...), d.Events.Attendees)

		// Tasks
		api.GET("/clubs/:id/tasks", d.Tasks.List)
		api.POST("/clubs/:id/tasks", middleware.RequireRole(manageRoles...), d.Tasks.Create)
		api.GET("/tasks/:id", d.Tasks.Get)
		api.PUT("/tasks/:id", middleware.RequireRole(manageRoles...), d.Tasks.Update)
		api.POST("/tasks/:id/status", d.Tasks.SetStatus)
		api.POST("/tasks/:id/proofs/text", d.Tasks.AddTextProof)
		api.POST("/tasks/:id/proofs/presign", d.Tasks.PresignProof)
		api.POST("/tasks/:id/proofs", d.Tasks.ConfirmProof)
	}

	// WebSocket (token in query; no Authorization header required)
	if d.WS != nil {
		router.GET("/ws", d.WS)
	}

	return router
}
