package app

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/newrelic/go-agent/v3/integrations/nrgin"
	"github.com/newrelic/go-agent/v3/newrelic"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"ridepool/internal/handler"
	"ridepool/internal/middleware"
)

// Handlers groups the HTTP handlers of the API.
type Handlers struct {
	Riders   *handler.RiderHandler
	Requests *handler.RequestHandler
	Vehicles *handler.VehicleHandler
	Pools    *handler.PoolHandler
	Quotes   *handler.QuoteHandler
}

// RouterDeps contains all dependencies needed for the router.
type RouterDeps struct {
	Handlers    Handlers
	RedisClient *redis.Client
	NewRelicApp *newrelic.Application
	Log         logrus.FieldLogger
}

// NewRouter creates a new Gin router with all routes registered.
func NewRouter(deps RouterDeps) *gin.Engine {
	router := gin.New()

	// Global middleware.
	router.Use(gin.Recovery())
	router.Use(gin.Logger())
	router.Use(middleware.CORSMiddleware())
	router.Use(middleware.Metrics())

	if deps.NewRelicApp != nil {
		router.Use(nrgin.Middleware(deps.NewRelicApp))
		router.Use(middleware.NoticeErrors())
	}

	router.Use(middleware.IdempotencyMiddleware(deps.RedisClient, deps.Log))

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	h := deps.Handlers

	// API v1 routes.
	v1 := router.Group("/v1")
	{
		riders := v1.Group("/riders")
		{
			riders.POST("", h.Riders.Register)
			riders.GET("", h.Riders.GetAll)
			riders.GET("/:id", h.Riders.GetRider)
		}

		requests := v1.Group("/requests")
		{
			requests.POST("", h.Requests.CreateRequest)
			requests.GET("", h.Requests.GetAll)
			requests.GET("/:id", h.Requests.GetRequest)
			requests.GET("/:id/status", h.Requests.GetStatus)
			requests.POST("/:id/cancel", h.Requests.CancelRequest)
		}

		vehicles := v1.Group("/vehicles")
		{
			vehicles.POST("", h.Vehicles.Register)
			vehicles.GET("", h.Vehicles.GetAll)
			vehicles.GET("/:id", h.Vehicles.GetVehicle)
			vehicles.POST("/:id/location", h.Vehicles.UpdateLocation)
			vehicles.POST("/:id/offline", h.Vehicles.SetOffline)
		}

		pools := v1.Group("/pools")
		{
			pools.GET("/:id", h.Pools.GetPool)
			pools.POST("/:id/complete", h.Pools.CompletePool)
		}

		v1.POST("/matching/run", h.Pools.RunMatching)
		v1.POST("/quotes", h.Quotes.Quote)
	}

	return router
}
