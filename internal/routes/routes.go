package routes

import (
	"net/http"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/civilregistry/backend/internal/authz"
	"github.com/civilregistry/backend/internal/config"
	"github.com/civilregistry/backend/internal/handlers"
	"github.com/civilregistry/backend/internal/metrics"
	"github.com/civilregistry/backend/internal/middleware"
	"github.com/civilregistry/backend/internal/utils"
)

// Handlers groups every HTTP handler the router dispatches to
type Handlers struct {
	Users        *handlers.UserHandler
	Applications *handlers.ApplicationHandler
	Documents    *handlers.DocumentHandler
	Payments     *handlers.PaymentHandler
	Webhooks     *handlers.WebhookHandler
	Biometrics   *handlers.BiometricHandler
	Health       *handlers.HealthHandler
}

// SetupRouter builds the engine with global middleware and every API route
func SetupRouter(cfg *config.Config, h Handlers, tokens *utils.TokenIssuer, rateLimiter *middleware.RateLimiter, m *metrics.Metrics, log logrus.FieldLogger) *gin.Engine {
	if !cfg.IsDevelopment() {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.MaxMultipartMemory = cfg.Server.MaxUploadBytes

	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = cfg.Security.CORSAllowedOrigins
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Authorization", handlers.SignatureHeader}
	corsConfig.AllowCredentials = true
	if len(corsConfig.AllowOrigins) == 0 {
		corsConfig.AllowOrigins = nil
		corsConfig.AllowAllOrigins = true
		corsConfig.AllowCredentials = false
	}

	router.Use(gin.Recovery())
	router.Use(middleware.RequestLogger(log, m))
	router.Use(cors.New(corsConfig))
	router.Use(middleware.SecureHeadersMiddleware(middleware.DefaultSecureHeadersConfig(cfg.Security)))
	router.Use(middleware.BodyLimit(cfg.Server.MaxBodyBytes))
	router.Use(middleware.RequestInfo())

	router.GET("/", h.Health.Root)
	router.GET("/metrics", gin.WrapH(m.Handler()))

	router.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"success": false, "message": "Route not found"})
	})

	api := router.Group("/api")
	api.GET("/health", h.Health.Health)

	// webhooks are authenticated by signature, not bearer token
	RegisterWebhookRoutes(api, h.Webhooks)

	limited := api.Group("")
	limited.Use(rateLimiter.IPRateLimiterMiddleware())

	RegisterUserRoutes(limited, h.Users, tokens, rateLimiter)

	auth := middleware.AuthMiddleware(tokens)
	RegisterApplicationRoutes(limited, h.Applications, auth)
	RegisterDocumentRoutes(limited, h.Documents, auth)
	RegisterPaymentRoutes(limited, h.Payments, auth)
	RegisterBiometricRoutes(limited, h.Biometrics, auth)

	return router
}

// RegisterUserRoutes registers account routes
func RegisterUserRoutes(api *gin.RouterGroup, userHandler *handlers.UserHandler, tokens *utils.TokenIssuer, rateLimiter *middleware.RateLimiter) {
	users := api.Group("/users")
	{
		users.POST("/register", rateLimiter.AuthRateLimiterMiddleware(), userHandler.Register)
		users.POST("/login", rateLimiter.AuthRateLimiterMiddleware(), userHandler.Login)

		authed := users.Group("")
		authed.Use(middleware.AuthMiddleware(tokens))
		authed.GET("/me", userHandler.Me)
		authed.POST("/mfa/setup", userHandler.SetupMFA)
		authed.POST("/mfa/enable", userHandler.EnableMFA)
	}
}

// RegisterApplicationRoutes registers the application workflow routes
func RegisterApplicationRoutes(api *gin.RouterGroup, applicationHandler *handlers.ApplicationHandler, auth gin.HandlerFunc) {
	applications := api.Group("/applications")
	applications.Use(auth)
	{
		applications.POST("", applicationHandler.Create)
		applications.GET("", applicationHandler.ListMine)
		applications.GET("/admin/all", middleware.RequireCapability(authz.CapApplicationsReadAny), applicationHandler.ListAll)
		applications.GET("/:id", applicationHandler.Get)
		applications.PUT("/:id", applicationHandler.Update)
		applications.PUT("/:id/submit", applicationHandler.Submit)
		applications.PUT("/:id/status", middleware.RequireCapability(authz.CapApplicationsChangeStatus), applicationHandler.ChangeStatus)
		applications.DELETE("/:id", applicationHandler.Delete)
	}
}

// RegisterDocumentRoutes registers supporting document routes
func RegisterDocumentRoutes(api *gin.RouterGroup, documentHandler *handlers.DocumentHandler, auth gin.HandlerFunc) {
	documents := api.Group("/documents")
	documents.Use(auth)
	{
		documents.POST("/upload", documentHandler.Upload)
		documents.GET("/application/:applicationId", documentHandler.ListByApplication)
		documents.GET("/:id", documentHandler.Get)
		documents.PUT("/:id/verify", middleware.RequireCapability(authz.CapDocumentsVerify), documentHandler.Verify)
		documents.DELETE("/:id", documentHandler.Delete)
	}
}

// RegisterBiometricRoutes registers biometric capture routes
func RegisterBiometricRoutes(api *gin.RouterGroup, biometricHandler *handlers.BiometricHandler, auth gin.HandlerFunc) {
	biometrics := api.Group("/biometrics")
	biometrics.Use(auth)
	{
		biometrics.POST("", biometricHandler.Add)
		biometrics.GET("/:userId", biometricHandler.ListForUser)
		biometrics.DELETE("/:id", biometricHandler.Delete)
	}
}
