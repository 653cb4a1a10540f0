package http

import (
	"time"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/tripplanner/backend/internal/config"
	"github.com/tripplanner/backend/internal/http/handlers"
	"github.com/tripplanner/backend/internal/middleware"
	"github.com/tripplanner/backend/internal/rbac"
	"go.uber.org/zap"
)

func SetupRouter(
	app *fiber.App,
	cfg *config.Config,
	log *zap.Logger,
	rdb *redis.Client,
	roles middleware.RoleResolver,
	profileHandler *handlers.ProfileHandler,
	forensicsHandler *handlers.ForensicsHandler,
	wsHub *handlers.WSHub,
) {
	// Global middleware
	app.Use(recover.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins:  "*",
		AllowHeaders:  "Origin, Content-Type, Accept, Authorization, X-Request-ID",
		ExposeHeaders: "Content-Disposition, X-Request-ID",
	}))
	app.Use(middleware.RequestIDMiddleware())
	app.Use(middleware.LoggerMiddleware(log))

	// Health check
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	api := app.Group("/api/v1")
	api.Use(middleware.RateLimitMiddleware(rdb, cfg.RateLimitPerMinute, time.Minute))

	// Meta (public)
	metaHandler := handlers.NewMetaHandler()
	api.Get("/meta/audit-actions", metaHandler.GetAuditActions)
	api.Get("/meta/audit-sources", metaHandler.GetAuditSources)

	protected := api.Group("", middleware.AuthMiddleware(cfg, log))
	protected.Get("/me", profileHandler.GetMe)
	protected.Post("/me/ping", profileHandler.Ping)

	// Admin console
	admin := protected.Group("/admin/audit", middleware.AdminMiddleware(roles, log))
	canRead := middleware.RequirePermission(rbac.PermAuditRead)
	admin.Get("/timeline", canRead, forensicsHandler.Timeline)
	admin.Get("/records/:source/:id", canRead, forensicsHandler.RecordDiff)
	admin.Post("/export", middleware.RequirePermission(rbac.PermAuditExport), forensicsHandler.Export)
	admin.Get("/archives", canRead, forensicsHandler.ListArchives)
	admin.Get("/archives/:id", canRead, forensicsHandler.GetArchive)
	admin.Post("/archives", middleware.RequirePermission(rbac.PermAuditArchive), forensicsHandler.CreateArchive)

	// WebSocket
	app.Get("/ws/admin-audit", handlers.WSUpgradeMiddleware(cfg, roles, log), websocket.New(wsHub.HandleWS))
}
