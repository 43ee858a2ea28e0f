package routes

import (
	"jobly/api/handler"
	"jobly/api/middleware"
	"jobly/internal/entity"

	"github.com/labstack/echo/v4"
)

type Router struct {
	Echo           *echo.Echo
	Auth           *handler.AuthHandler
	OAuth          *handler.OAuthHandler
	Account        *handler.AccountHandler
	Marketplace    *handler.MarketplaceHandler
	AuthMiddleware middleware.AuthMiddleware
	Accounts       middleware.AccountMiddleware
	CSRF           *middleware.CSRF
	AuthRate       *middleware.RateLimiter
}

func (r *Router) RegisterRoutes() {
	e := r.Echo
	if r.CSRF != nil {
		e.Use(r.CSRF.Middleware())
		e.GET("/auth/csrf", r.CSRF.Handler)
	}

	limited := r.AuthRate.Middleware()
	requireAuth := r.AuthMiddleware.RequireAuth
	requireVerified := r.Accounts.RequireVerified

	e.POST("/auth/register", r.Auth.Register, limited)
	e.POST("/auth/verify-code", r.Auth.VerifyCode, limited)
	e.POST("/auth/login", r.Auth.Login, limited)
	e.POST("/auth/login/mfa", r.Auth.LoginWithMFA, limited)
	e.POST("/auth/forgot-password", r.Auth.PasswordForgot, limited)
	e.POST("/auth/reset-password", r.Auth.PasswordReset, limited)
	e.POST("/auth/verify-reset-code", r.Auth.PasswordReset, limited)
	e.POST("/auth/logout", r.Auth.Logout)
	e.GET("/auth/check-session", r.Auth.CheckSession)
	e.POST("/auth/logout-all", r.Auth.LogoutAll, requireAuth)
	e.POST("/auth/mfa/enable", r.Auth.EnableMFA, requireAuth)
	e.POST("/auth/mfa/verify", r.Auth.VerifyMFA, requireAuth)
	e.POST("/auth/mfa/disable", r.Auth.DisableMFA, requireAuth)

	if r.OAuth != nil {
		e.GET("/auth/oauth/github", r.OAuth.GitHubLogin, limited)
		e.GET("/auth/oauth/github/callback", r.OAuth.GitHubCallback, limited)
	}

	api := e.Group("/api")
	api.GET("/profile", r.Account.Profile, requireAuth)
	api.PATCH("/profile", r.Account.UpdateProfile, requireAuth)
	api.DELETE("/account", r.Account.DeleteAccount, requireAuth)

	api.GET("/tasks", r.Marketplace.ListTasks)
	api.GET("/tasks/:id", r.Marketplace.GetTask)
	api.POST("/tasks", r.Marketplace.CreateTask, requireAuth, requireVerified)
	api.POST("/tasks/:id/bids", r.Marketplace.PlaceBid, requireAuth, requireVerified)
	api.GET("/tasks/:id/bids", r.Marketplace.ListBids, requireAuth)
	api.POST("/messages", r.Marketplace.SendMessage, requireAuth, requireVerified)
	api.GET("/messages", r.Marketplace.ListMessages, requireAuth)

	admin := e.Group("/admin", requireAuth, r.Accounts.RequireRole(entity.UserRoleAdmin))
	admin.GET("/users", r.Account.AdminListUsers)
	admin.POST("/users/:id/revoke-sessions", r.Account.AdminRevokeUserSessions)
}
