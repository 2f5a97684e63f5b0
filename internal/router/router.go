package router // package router defines how HTTP routes are registered for the API

import (
	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"

	"github.com/longtk/giapha/internal/auth"
	"github.com/longtk/giapha/internal/config"
	"github.com/longtk/giapha/internal/handler"
	"github.com/longtk/giapha/internal/middleware"
)

// Handlers bundles every handler the router wires up.
type Handlers struct {
	Auth    *handler.AuthHandler
	Trees   *handler.TreeHandler
	Members *handler.MemberHandler
	Admin   *handler.AdminHandler
}

// Register wires all routes.  Unauthenticated auth operations live under
// /v1/auth; everything else under /v1 runs the full pipeline: decode the
// access token, resolve the user, check the route's role policy, then the
// handler.  A failure at any stage stops the chain.
func Register(e *echo.Echo, h Handlers, codec *auth.Codec, users middleware.UserResolver, rdb *redis.Client) {
	e.GET("/healthz", handler.Health)

	// Redis token-bucket limiter over the whole API; it mainly throttles
	// the credential endpoints.
	e.Use(middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb))

	g := e.Group("/v1/auth")
	g.POST("/register", h.Auth.Register)
	g.POST("/login", h.Auth.Login)
	g.POST("/refresh", h.Auth.Refresh)
	g.POST("/logout", h.Auth.Logout)
	g.POST("/forgot-password", h.Auth.ForgotPassword)
	g.POST("/reset-password", h.Auth.ResetPassword)
	g.POST("/verify-email", h.Auth.VerifyEmail)

	v1 := e.Group("/v1")
	v1.Use(middleware.Authenticate(codec, users))

	v1.GET("/me", h.Auth.Me, middleware.Require(middleware.AuthenticatedAny))

	trees := v1.Group("/trees")
	trees.POST("", h.Trees.Create, middleware.Require(middleware.AuthenticatedAny))
	trees.GET("", h.Trees.List, middleware.Require(middleware.AdminOnly))
	trees.GET("/:id", h.Trees.Get, middleware.Require(middleware.AuthenticatedAny))
	trees.POST("/:id/join", h.Trees.Join, middleware.Require(middleware.AuthenticatedAny))

	// Member listing is cached per user; mutations go straight through.
	memberCache := middleware.NewRedisCache(config.LoadCacheConfig(), rdb)
	trees.GET("/:id/members", h.Members.List, middleware.Require(middleware.AuthenticatedAny), memberCache)
	trees.POST("/:id/members", h.Members.Create, middleware.Require(middleware.AdminOrOwner))

	members := v1.Group("/members")
	members.GET("/:id", h.Members.Get, middleware.Require(middleware.AuthenticatedAny))
	members.PUT("/:id", h.Members.Update, middleware.Require(middleware.AuthenticatedAny))
	// Deletion is denied per record in the service so a Member sees the
	// record-level message, not a generic role denial.
	members.DELETE("/:id", h.Members.Delete, middleware.Require(middleware.AuthenticatedAny))

	admin := v1.Group("/admin", middleware.Require(middleware.AdminOnly))
	admin.GET("/users", h.Admin.ListUsers)
	admin.PUT("/users/:id/role", h.Admin.UpdateRole)
}
