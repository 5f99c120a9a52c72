package http

import (
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	httpH "github.com/yungbote/workshop-backend/internal/http/handlers"
	httpMW "github.com/yungbote/workshop-backend/internal/http/middleware"
	"github.com/yungbote/workshop-backend/internal/observability"
	"github.com/yungbote/workshop-backend/internal/platform/logger"
)

type RouterConfig struct {
	Log         *logger.Logger
	Metrics     *observability.Metrics
	ServiceName string
	CORSOrigins []string
	Identity    httpMW.IdentityConfig

	WorkshopHandler *httpH.WorkshopHandler
	HealthHandler   *httpH.HealthHandler
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	if cfg.ServiceName != "" {
		r.Use(otelgin.Middleware(cfg.ServiceName))
	}
	r.Use(httpMW.AttachTraceContext())
	r.Use(httpMW.CORS(cfg.CORSOrigins))
	r.Use(httpMW.RequestLogger(cfg.Log))
	r.Use(httpMW.Metrics(cfg.Metrics))

	// Health
	if cfg.HealthHandler != nil {
		r.GET("/healthcheck", cfg.HealthHandler.HealthCheck)
		r.GET("/readyz", cfg.HealthHandler.Ready)
	}
	if cfg.Metrics != nil {
		r.GET("/metrics", gin.WrapH(cfg.Metrics.Handler()))
	}

	api := r.Group("/api")
	api.Use(httpMW.RequireUser(cfg.Identity))
	{
		if h := cfg.WorkshopHandler; h != nil {
			api.GET("/credits", h.GetCredits)

			api.POST("/workshops", h.CreateWorkshop)
			api.GET("/workshops", h.ListWorkshops)
			api.GET("/workshops/:id", h.GetWorkshop)
			api.DELETE("/workshops/:id", h.DeleteWorkshop)
			api.POST("/workshops/:id/advance", h.Advance)
			api.GET("/workshops/:id/gate", h.CheckGate)
			api.POST("/workshops/:id/complete", h.CompleteWorkshop)
			api.POST("/workshops/:id/credits/consume", h.ConsumeCredit)

			api.POST("/workshops/:id/stages/:stage/reset", h.ResetStage)
			api.POST("/workshops/:id/stages/:stage/complete", h.CompleteStage)
			api.POST("/workshops/:id/stages/:stage/needs-regeneration", h.MarkNeedsRegeneration)
			api.GET("/workshops/:id/stages/:stage/context", h.GetContext)
			api.GET("/workshops/:id/stages/:stage/artifact", h.GetArtifact)
			api.PUT("/workshops/:id/stages/:stage/artifact", h.SaveArtifact)
			api.POST("/workshops/:id/stages/:stage/messages", h.AppendMessage)
			api.GET("/workshops/:id/stages/:stage/messages", h.ListMessages)
			api.PUT("/workshops/:id/stages/:stage/canvas", h.ReplaceCanvas)
			api.GET("/workshops/:id/stages/:stage/canvas", h.ListCanvas)
		}
	}

	return r
}
