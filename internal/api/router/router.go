// Package router sets up the API routes for the application.
package router

import (
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/rebatetrack/rebatetrack/consts"
	"github.com/rebatetrack/rebatetrack/internal/api/handler"
	"github.com/rebatetrack/rebatetrack/internal/api/middleware"
	"github.com/rebatetrack/rebatetrack/internal/config"
	"github.com/rebatetrack/rebatetrack/internal/notify"
	"github.com/rebatetrack/rebatetrack/internal/shortlink"
	"github.com/rebatetrack/rebatetrack/internal/store"
)

// Setup configures all API routes
func Setup(r *gin.Engine, cfg *config.Config, db store.Database, links *shortlink.Service, notifier notify.Notifier) {
	// Global middleware chain
	r.Use(middleware.Recovery())
	r.Use(middleware.Logger(&middleware.LoggerConfig{
		AccessLog: cfg.Logging.AccessLog,
	}))
	r.Use(middleware.CORS(cfg.Server.CORSOrigins))
	r.Use(middleware.RequestID())
	r.Use(middleware.ErrorHandler(cfg.Server.Debug))
	r.Use(otelgin.Middleware(consts.ServiceName))

	authHandler := handler.NewAuthHandler(cfg)
	testerHandler := handler.NewTesterHandler(db)
	purchaseHandler := handler.NewPurchaseHandler(db)
	recordHandler := handler.NewRecordHandler(db, notifier)
	shortLinkHandler := handler.NewShortLinkHandler(db, links)
	adminHandler := handler.NewAdminHandler(db)

	// Public routes
	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})
	r.GET("/s/:code", shortLinkHandler.Resolve)

	v1 := r.Group("/api/v1")

	// Auth routes (login is public, me requires a token)
	auth := v1.Group("/auth")
	{
		auth.POST("/login", authHandler.Login)
		auth.GET("/me", middleware.JWTAuth(authHandler), authHandler.Me)
	}

	// Tester routes: the JWT subject is the tester's external identity id
	me := v1.Group("/me")
	me.Use(middleware.JWTAuth(authHandler))
	{
		me.POST("/register", testerHandler.Register)
		me.GET("", testerHandler.Me)
		me.GET("/stats", testerHandler.Stats)

		me.GET("/purchases", purchaseHandler.List)
		me.GET("/purchases/ready", purchaseHandler.Ready)
		me.POST("/purchases", purchaseHandler.Create)
		me.PATCH("/purchases/:id", purchaseHandler.Update)
		me.DELETE("/purchases/:id", purchaseHandler.Delete)

		me.POST("/purchases/:id/feedback", recordHandler.PutFeedback)
		me.DELETE("/purchases/:id/feedback", recordHandler.DeleteFeedback)
		me.POST("/purchases/:id/publication", recordHandler.PutPublication)
		me.DELETE("/purchases/:id/publication", recordHandler.DeletePublication)
		me.POST("/purchases/:id/refund", recordHandler.CreateRefund)

		me.POST("/purchases/:id/shortlink", shortLinkHandler.Mint)
	}

	// Admin routes
	admin := v1.Group("/admin")
	admin.Use(middleware.JWTAuth(authHandler), authHandler.RequireAdmin())
	{
		admin.GET("/status", adminHandler.Status)
		admin.GET("/stats", adminHandler.Stats)

		admin.POST("/backup", adminHandler.Backup)
		admin.POST("/restore", adminHandler.Restore)
		admin.POST("/reset", adminHandler.Reset)

		admin.GET("/schema/tables", adminHandler.SchemaTables)
		admin.GET("/schema/version", adminHandler.SchemaVersion)
		admin.GET("/schema/migrations", adminHandler.SchemaMigrations)
	}
}
