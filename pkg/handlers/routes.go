package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"

	"github.com/sentivibe/sentivibe-api/pkg/metrics"
	"github.com/sentivibe/sentivibe-api/pkg/middleware"
	"github.com/sentivibe/sentivibe-api/pkg/utils"
)

// NewRouter builds the engine with panic recovery, request logging and
// metrics. Forwarding headers are only honoured from trustedProxies; with
// none, the client IP is the socket peer so X-Forwarded-For cannot be used
// to dodge per-IP quotas.
func NewRouter(trustedProxies []string) (*gin.Engine, error) {
	router := gin.New()
	if len(trustedProxies) == 0 {
		trustedProxies = nil
	}
	if err := router.SetTrustedProxies(trustedProxies); err != nil {
		return nil, err
	}

	router.Use(gin.CustomRecovery(func(c *gin.Context, recovered interface{}) {
		log.Errorf("Recovered from panic on %s %s: %v", c.Request.Method, c.FullPath(), recovered)
		utils.ResponseWithError(c, http.StatusInternalServerError, "Internal server error", nil)
	}))
	router.Use(middleware.RequestLogger(), metrics.Middleware())
	return router, nil
}

// RegisterRoutes mounts the auth and /api routes. Health and metrics
// endpoints are mounted by the caller.
func RegisterRoutes(router gin.IRouter, h *Handlers, tokens middleware.TokenValidator) {
	authRoutes := router.Group("/auth")
	{
		authRoutes.POST("/register", h.RegisterUser)
		authRoutes.POST("/login", h.LoginUser)
	}

	api := router.Group("/api")
	optional := middleware.OptionalAuth(tokens)
	required := middleware.AuthMiddleware(tokens)

	api.GET("/analyses", h.ListAnalyses)
	api.GET("/analyses/:videoId", h.GetAnalysis)
	api.GET("/comparisons/:id", h.GetComparison)
	api.GET("/multi-comparisons/:id", h.GetMultiComparison)
	api.POST("/docs-assistant", h.DocsAssistant)
	api.GET("/usage/anonymous", h.AnonymousUsage)
	api.POST("/webhooks/paddle", h.PaddleWebhook)

	api.POST("/analyze-video", optional, h.AnalyzeVideo)
	api.POST("/compare-videos", optional, h.CompareVideos)
	api.POST("/compare-multiple-videos", optional, h.CompareMultipleVideos)
	api.POST("/usage/increment", optional, h.IncrementUsage)

	chatRoutes := api.Group("/chat", optional)
	{
		chatRoutes.POST("/video", h.ChatVideo)
		chatRoutes.POST("/comparison", h.ChatComparison)
		chatRoutes.POST("/multi-comparison", h.ChatMultiComparison)
	}

	copilotRoutes := api.Group("/copilot", optional)
	{
		copilotRoutes.POST("/recommend", h.CopilotRecommend)
		copilotRoutes.POST("/discover", h.CopilotDiscover)
	}

	protected := api.Group("", required)
	{
		protected.GET("/usage", h.UsageSummary)
		protected.GET("/profile", h.Profile)
		protected.POST("/delete", h.DeleteUser)
	}
}
