package bootstrap

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	httpapi "github.com/restoplan/planner-backend/internal/api/http"
	"github.com/restoplan/planner-backend/internal/api/http/middleware"
	"github.com/restoplan/planner-backend/internal/auth"
	authhttp "github.com/restoplan/planner-backend/internal/auth/http"
	authmw "github.com/restoplan/planner-backend/internal/auth/middleware"
	draftshttp "github.com/restoplan/planner-backend/internal/drafts/http"
	"github.com/restoplan/planner-backend/internal/logging"
	"github.com/restoplan/planner-backend/internal/session"
)

type RouterDeps struct {
	ServiceName string
	Version     string
	CORSOrigins []string

	Sessions *session.Manager
	// Verifier checks bearer tokens. When nil, callers are identified by
	// the X-User-Id header, which matches the offline identity provider.
	Verifier authmw.TokenVerifier
	Accounts draftshttp.AccountDeleter
	IsAdmin  func(uid string) bool

	Checks map[string]httpapi.Check
	Logger *logging.Logger
}

func BuildRouter(dep RouterDeps) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestIDMiddleware(dep.Logger))
	r.Use(cors.New(corsConfig(dep.CORSOrigins)))

	healthHandler := httpapi.NewHealthHandler(dep.ServiceName, dep.Version, dep.Checks)
	healthHandler.RegisterRoutes(r)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := r.Group("/api/v1")

	authHandler := authhttp.New(dep.Sessions)
	authHandler.RegisterPublic(api.Group("/auth"))

	identify := auth.OfflineUser()
	if dep.Verifier != nil {
		identify = authmw.FirebaseAuthMiddleware(dep.Verifier)
	}
	user := api.Group("", identify, auth.WithSession(dep.Sessions))
	authHandler.Register(user.Group("/auth"))

	draftsHandler := draftshttp.New(dep.Sessions, dep.Accounts, dep.Logger)
	draftsHandler.Register(user)

	isAdmin := dep.IsAdmin
	if isAdmin == nil {
		isAdmin = func(string) bool { return false }
	}
	draftsHandler.RegisterAdmin(user.Group("/admin", authmw.RequireAdmin(isAdmin)))

	return r
}

func corsConfig(origins []string) cors.Config {
	cfg := cors.Config{
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", middleware.HeaderRequestID, "X-User-Id", "X-User-Email", "X-User-Name", "X-User-Anonymous"},
		ExposeHeaders:    []string{middleware.HeaderRequestID},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	if len(origins) == 0 {
		cfg.AllowAllOrigins = true
		cfg.AllowCredentials = false
	} else {
		cfg.AllowOrigins = origins
	}
	return cfg
}
