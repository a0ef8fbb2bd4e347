package main

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"media-console/internal/api"
	"media-console/internal/audit"
	"media-console/internal/auth"
	"media-console/internal/catalog"
	"media-console/internal/config"
	"media-console/internal/connector"
	"media-console/internal/permission"
	"media-console/internal/pipeline"
	"media-console/internal/role"
	"media-console/internal/settings"
	"media-console/internal/storage"
	"media-console/internal/store"
)

func main() {
	ctx := context.Background()

	// 1. Load config
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	log.Printf("Config loaded (port: %d, db driver: %s)", cfg.Server.Port, cfg.Database.Driver)

	// 2. Connect to database
	db, err := store.New(ctx, cfg.Database)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()
	log.Println("Database connected")

	// 3. Bootstrap system tables and baseline roles
	if err := db.Bootstrap(ctx); err != nil {
		log.Fatalf("Failed to bootstrap system tables: %v", err)
	}
	log.Println("System tables ready")

	// 4. Blob storage for asset binaries
	blobs, err := storage.New(cfg.Storage)
	if err != nil {
		log.Fatalf("Failed to initialize blob storage: %v", err)
	}

	// 5. Audit recorder
	var recorder audit.Recorder = audit.Nop{}
	if cfg.Audit.Enabled {
		buffer := audit.NewEventBuffer(db, cfg.Audit.BufferSize, cfg.Audit.FlushIntervalMs)
		defer buffer.Stop()
		recorder = buffer
		if cfg.Audit.RetentionDays > 0 {
			if err := audit.Cleanup(ctx, db, cfg.Audit.RetentionDays); err != nil {
				log.Printf("WARN: audit cleanup: %v", err)
			}
		}
	}

	// 6. Create Fiber app
	fiberCfg := fiber.Config{
		ErrorHandler: errorHandler,
	}
	if cfg.Storage.MaxFileSize > 0 {
		// Leave headroom for multipart framing around the file itself.
		fiberCfg.BodyLimit = int(cfg.Storage.MaxFileSize) + 1024*1024
	}
	app := fiber.New(fiberCfg)
	app.Use(recover.New(recover.Config{
		EnableStackTrace: true,
	}))
	app.Use(logger.New(logger.Config{
		Format: "${time} ${status} ${method} ${path} ${latency}\n",
	}))

	// 7. Health check
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	// 8. Auth routes (login/refresh are unauthenticated)
	authHandler := auth.NewAuthHandler(db, cfg.JWTSecret, recorder)
	authMW := auth.AuthMiddleware(cfg.JWTSecret)
	adminMW := auth.RequireAdmin()
	auth.RegisterAuthRoutes(app, authHandler, authMW)

	// 9. Roles and the permission matrix (admin only)
	roleStore := role.NewStore(db)
	roleHandler := role.NewHandler(roleStore, recorder)
	role.RegisterRoleRoutes(app, roleHandler, authMW, adminMW)

	// guardFor builds a permission guard bound to one resource.
	guardFor := func(resource string) func(action string) fiber.Handler {
		return func(action string) fiber.Handler {
			return role.RequirePermission(roleStore, recorder, resource, action)
		}
	}

	// 10. Asset catalog and collections
	assetStore := catalog.NewStore(db)
	assetHandler := catalog.NewHandler(assetStore, blobs, cfg.Storage.MaxFileSize)
	catalog.RegisterAssetRoutes(app, assetHandler, authMW, guardFor(permission.ResourceAssets))

	collectionStore := catalog.NewCollectionStore(db)
	collectionHandler := catalog.NewCollectionHandler(collectionStore, assetStore)
	catalog.RegisterCollectionRoutes(app, collectionHandler, authMW, guardFor(permission.ResourceCollections))

	// 11. Connectors
	connectorStore := connector.NewStore(db)
	connectorHandler := connector.NewHandler(connectorStore)
	connector.RegisterConnectorRoutes(app, connectorHandler, authMW, guardFor(permission.ResourceConnectors))

	// 12. Pipelines and executions
	evaluator := pipeline.NewExprLangEvaluator()
	pipelineStore := pipeline.NewStore(db)
	pipelineHandler := pipeline.NewHandler(pipelineStore, evaluator)
	pipeline.RegisterPipelineRoutes(app, pipelineHandler, authMW, guardFor(permission.ResourcePipelines))
	pipeline.RegisterExecutionRoutes(app, pipelineHandler, authMW, guardFor(permission.ResourcePipelineExecutions))

	// 13. Settings: users, regions, system
	settingsStore := settings.NewStore(db)
	settingsHandler := settings.NewHandler(settingsStore)
	settings.RegisterSettingsRoutes(app, settingsHandler, authMW, guardFor(permission.ResourceSettings))

	// 14. Audit log (admin only)
	auditHandler := audit.NewHandler(db)
	audit.RegisterAuditRoutes(app, auditHandler, authMW, adminMW)

	// 15. Start pipeline scheduler
	runner := pipeline.NewRunner(pipelineStore, connectorStore, evaluator)
	scheduler := pipeline.NewScheduler(pipelineStore, runner)
	scheduler.Start()
	defer scheduler.Stop()

	// 16. Start server
	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	log.Printf("Starting server on %s", addr)
	log.Fatal(app.Listen(addr))
}

func errorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError

	var fiberErr *fiber.Error
	if errors.As(err, &fiberErr) {
		code = fiberErr.Code
	}

	var appErr *api.AppError
	if errors.As(err, &appErr) {
		return c.Status(appErr.Status).JSON(api.ErrorResponse{Error: appErr})
	}

	log.Printf("ERROR: %v", err)
	return c.Status(code).JSON(api.ErrorResponse{
		Error: &api.AppError{
			Code:    "INTERNAL_ERROR",
			Message: "Internal server error",
		},
	})
}
