package httpapi

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"github.com/fixpoint/backend/internal/auth"
	"github.com/fixpoint/backend/internal/config"
	"github.com/fixpoint/backend/internal/db"
	"github.com/fixpoint/backend/internal/http/handlers"
	"github.com/fixpoint/backend/internal/http/middleware"
	"github.com/fixpoint/backend/internal/service"

	_ "github.com/fixpoint/backend/docs"
)

func Router(cfg config.Config, store *db.Store, requests *service.Requests, authSvc *auth.Service, logger zerolog.Logger) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger(logger))

	corsCfg := cors.Config{
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", "X-Request-Id"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	if cfg.CORSAllowed == "*" {
		corsCfg.AllowAllOrigins = true
	} else {
		corsCfg.AllowOrigins = []string{cfg.CORSAllowed}
	}
	r.Use(cors.New(corsCfg))

	h := &handlers.Handler{
		Store:     store,
		Requests:  requests,
		Auth:      authSvc,
		Validator: validator.New(),
		Logger:    logger,
	}

	r.GET("/healthz", h.Healthz)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	r.POST("/auth/login", h.Login)
	r.POST("/requests", h.RequestCreate)

	authed := r.Group("")
	authed.Use(middleware.Auth(authSvc))
	{
		authed.GET("/users", h.UsersList)
		authed.GET("/requests", h.RequestsList)
		authed.POST("/requests/:id/assign", h.RequestAssign)
		authed.POST("/requests/:id/cancel", h.RequestCancel)
		authed.POST("/requests/:id/take", h.RequestTake)
		authed.POST("/requests/:id/done", h.RequestDone)
		authed.GET("/me/requests", h.MyRequests)
	}

	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	return r
}
