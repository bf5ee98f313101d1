package routes

import (
	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	red "github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/santhoshmp/learningplanner/internal/core/domain"
	"github.com/santhoshmp/learningplanner/internal/core/port"
	"github.com/santhoshmp/learningplanner/internal/infra/config"
	"github.com/santhoshmp/learningplanner/internal/infra/security"
	"github.com/santhoshmp/learningplanner/internal/transport/http/handlers"
	"github.com/santhoshmp/learningplanner/internal/transport/http/middleware"
	"github.com/santhoshmp/learningplanner/internal/usecase"
)

// ServiceSet groups the services the HTTP layer depends on.
type ServiceSet struct {
	Auth       *usecase.AuthService
	Sessions   *usecase.SessionService
	Help       *usecase.HelpAnalyticsService
	Progress   *usecase.ProgressService
	Activities *usecase.ActivityService
}

// Dependencies encapsulates the objects required to register routes.
type Dependencies struct {
	Config     *config.AppConfig
	Logger     *zap.Logger
	Services   ServiceSet
	Signer     *security.TokenSigner
	Principals port.PrincipalRepository
	Database   *pgxpool.Pool
	Redis      *red.Client
}

// Register configures the Gin engine with routes and middleware.
func Register(deps Dependencies) *gin.Engine {
	if deps.Config.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.EnrichContext())
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger(deps.Logger))
	r.Use(middleware.CORS([]string{"*"}))

	if deps.Config.Telemetry.MetricsEnabled {
		metrics := middleware.NewHTTPMetrics(nil)
		r.Use(metrics.Handler())
		r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	}

	authMiddleware := middleware.RequireAuth(deps.Signer, deps.Services.Sessions, deps.Logger)

	healthHandler := handlers.NewHealthHandler(deps.Database, deps.Redis)
	r.GET("/healthz", healthHandler.Status)

	api := r.Group("/api/v1")
	{
		authHandler := handlers.NewAuthHandler(deps.Services.Auth, deps.Services.Sessions)
		authGroup := api.Group("/auth")
		authGroup.POST("/login", authHandler.Login)
		authGroup.POST("/refresh", authHandler.Refresh)
		authGroup.POST("/logout", authMiddleware, authHandler.Logout)

		sessionHandler := handlers.NewSessionHandler(deps.Services.Sessions, deps.Principals)
		sessionGroup := api.Group("/sessions")
		sessionGroup.Use(authMiddleware)
		sessionGroup.GET("/active", sessionHandler.ListActive)
		sessionGroup.GET("/history", sessionHandler.History)
		sessionGroup.POST("/revoke-all", sessionHandler.RevokeAll)

		activityHandler := handlers.NewActivityHandler(deps.Services.Activities)
		api.POST("/activity", authMiddleware, activityHandler.Record)

		helpHandler := handlers.NewHelpHandler(deps.Services.Help)
		helpGroup := api.Group("/help")
		helpGroup.Use(authMiddleware)
		helpGroup.POST("", helpHandler.Create)
		helpGroup.POST("/:id/respond", middleware.RequireRole(domain.RoleAdult), helpHandler.Respond)
		helpGroup.POST("/:id/resolve", helpHandler.Resolve)

		analyticsHandler := handlers.NewAnalyticsHandler(deps.Services.Help, deps.Services.Progress, deps.Principals)
		analyticsGroup := api.Group("/analytics")
		analyticsGroup.Use(authMiddleware)
		analyticsGroup.GET("/help/:childId", analyticsHandler.HelpSummary)
		analyticsGroup.GET("/help/:childId/patterns", analyticsHandler.HelpPatterns)
		analyticsGroup.GET("/help/:childId/suggestions", analyticsHandler.Suggestions)
		analyticsGroup.GET("/progress/:childId", analyticsHandler.Progress)
		analyticsGroup.POST("/progress/warmup", middleware.RequireRole(domain.RoleAdult), analyticsHandler.WarmUp)
		analyticsGroup.GET("/cache/stats", middleware.RequireRole(domain.RoleAdult), analyticsHandler.CacheStats)
	}

	return r
}
