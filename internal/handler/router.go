package handler

import (
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	"github.com/noah-isme/gymkhana-api/internal/middleware"
	"github.com/noah-isme/gymkhana-api/internal/models"
	"github.com/noah-isme/gymkhana-api/internal/service"
	"github.com/noah-isme/gymkhana-api/pkg/config"
	"github.com/noah-isme/gymkhana-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/gymkhana-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/gymkhana-api/pkg/middleware/requestid"
)

// Handlers bundles every HTTP handler the router mounts.
type Handlers struct {
	Calendars  *CalendarHandler
	Proposals  *ProposalHandler
	Expenses   *ExpenseHandler
	Amendments *AmendmentHandler
	Reports    *ReportHandler
	Metrics    *MetricsHandler
}

// NewRouter assembles the gin engine: global middleware, health probes,
// swagger docs outside production, and the authenticated v1 API surface.
// Coarse role gates live here; per-transition authorization stays in the
// services where the workflow state is known.
func NewRouter(cfg *config.Config, logr *zap.Logger, metrics *service.MetricsService, h Handlers) *gin.Engine {
	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	if metrics != nil {
		r.Use(middleware.Metrics(metrics))
	}

	r.GET("/health", h.Metrics.Health)
	r.GET("/ready", h.Metrics.Health)
	r.GET("/metrics", h.Metrics.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	v1 := r.Group(cfg.APIPrefix, middleware.Auth(cfg.JWT.Secret))

	calendars := v1.Group("/calendars")
	{
		calendars.POST("", middleware.RequireAdmin(), h.Calendars.Create)
		calendars.GET("", h.Calendars.List)
		calendars.GET("/current", h.Calendars.Current)
		calendars.GET("/year/:year", h.Calendars.GetByYear)
		calendars.GET("/:id", h.Calendars.Get)
		calendars.GET("/:id/history", h.Calendars.History)
		calendars.PUT("/:id", h.Calendars.Update)
		calendars.POST("/:id/submit", h.Calendars.Submit)
		calendars.POST("/:id/approve", h.Calendars.Approve)
		calendars.POST("/:id/reject", h.Calendars.Reject)
		calendars.POST("/:id/lock", middleware.RequireAdmin(), h.Calendars.Lock)
		calendars.POST("/:id/unlock", middleware.RequireAdmin(), h.Calendars.Unlock)
	}

	proposals := v1.Group("/proposals")
	{
		proposals.POST("", middleware.RequireRoles(models.RoleGymkhana), h.Proposals.Create)
		proposals.GET("/pending", h.Proposals.Pending)
		proposals.GET("/for-approval", h.Proposals.ForApproval)
		proposals.GET("/event/:eventId", h.Proposals.GetByEvent)
		proposals.GET("/:id", h.Proposals.Get)
		proposals.GET("/:id/history", h.Proposals.History)
		proposals.PUT("/:id", h.Proposals.Update)
		proposals.POST("/:id/approve", h.Proposals.Approve)
		proposals.POST("/:id/reject", h.Proposals.Reject)
		proposals.POST("/:id/request-revision", h.Proposals.RequestRevision)
	}

	expenses := v1.Group("/expenses")
	{
		expenses.POST("", middleware.RequireRoles(models.RoleGymkhana), h.Expenses.Submit)
		expenses.GET("/pending", h.Expenses.ListPending)
		expenses.GET("/event/:eventId", h.Expenses.GetByEvent)
		expenses.GET("/:id", h.Expenses.Get)
		expenses.PUT("/:id", h.Expenses.Update)
		expenses.POST("/:id/approve", middleware.RequireAdmin(), h.Expenses.Approve)
	}

	amendments := v1.Group("/amendments")
	{
		amendments.POST("", middleware.RequireRoles(models.RoleGymkhana), h.Amendments.Create)
		amendments.GET("/pending", h.Amendments.ListPending)
		amendments.GET("/calendar/:calendarId", h.Amendments.ListByCalendar)
		amendments.GET("/:id", h.Amendments.Get)
		amendments.POST("/:id/approve", middleware.RequireAdmin(), h.Amendments.Approve)
		amendments.POST("/:id/reject", middleware.RequireAdmin(), h.Amendments.Reject)
	}

	if h.Reports != nil {
		reports := v1.Group("/reports")
		{
			reports.POST("/generate", h.Reports.Generate)
			reports.GET("/:id", h.Reports.Status)
		}
		v1.GET("/export/:token", h.Reports.Download)
	}

	return r
}
