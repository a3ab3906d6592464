package router

import (
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "limitguard/docs"
	"limitguard/internal/config"
	"limitguard/internal/handler"
	"limitguard/internal/middleware"
)

// Setup configures the Gin engine with all routes and middleware.
func Setup(
	log logrus.FieldLogger,
	cfg *config.Config,
	documentH *handler.DocumentHandler,
	limitsH *handler.LimitsHandler,
	storageH *handler.StorageHandler,
	healthH *handler.HealthHandler,
) *gin.Engine {
	r := gin.New()

	// Global middleware
	r.Use(middleware.Recovery(log))
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger(log))
	r.Use(middleware.CORS(cfg.CORS))

	// Health checks
	r.GET("/healthz", healthH.Liveness)
	r.GET("/readyz", healthH.Readiness)

	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	// Tenant-scoped routes
	v1 := r.Group("/api/v1")
	v1.Use(middleware.Identity())
	v1.Use(middleware.TenantGuard())
	v1.Use(middleware.TenantRateLimit(cfg.RateLimit.RPS, cfg.RateLimit.Burst))

	docs := v1.Group("/documents")
	docs.POST("", documentH.Create)
	docs.GET("/:id", documentH.GetByID)
	docs.PATCH("/:id", documentH.Patch)
	docs.POST("/:id/extraction", documentH.CommitExtraction)
	docs.GET("/:id/audit", documentH.ListAudit)

	limits := v1.Group("/limits")
	limits.POST("/recalculate", limitsH.Recalculate)
	limits.GET("/dashboard", limitsH.Dashboard)
	limits.GET("/export", limitsH.Export)
	limits.POST("/export", limitsH.PublishExport)

	storage := v1.Group("/storage")
	storage.POST("/presign-upload", storageH.PresignUpload)

	return r
}
