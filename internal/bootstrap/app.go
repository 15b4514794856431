package bootstrap

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/gin-gonic/gin"

	"propertycare-backend/internal/documents"
	"propertycare-backend/internal/extract"
	"propertycare-backend/internal/maintenance"
	"propertycare-backend/internal/receipts"
	"propertycare-backend/internal/services/health"
	"propertycare-backend/internal/shared/auth"
	"propertycare-backend/internal/shared/config"
	"propertycare-backend/internal/shared/server"
	"propertycare-backend/internal/shared/server/middleware"
	"propertycare-backend/internal/shared/storage/db"
	"propertycare-backend/internal/shared/storage/object"
	localstore "propertycare-backend/internal/shared/storage/object/local"
	s3store "propertycare-backend/internal/shared/storage/object/s3"
	"propertycare-backend/internal/shared/telemetry"
)

// App holds shared dependencies and the HTTP router.
type App struct {
	Config             config.Config
	Router             *gin.Engine
	DB                 *sql.DB
	Store              object.ObjectStore
	Verifier           *auth.Verifier
	Extractor          *receipts.Extractor
	DocumentsRepo      documents.Repo
	MaintenanceRepo    maintenance.Repo
	DocumentsService   *documents.Service
	MaintenanceService *maintenance.Service
	DocumentsHandler   *documents.Handler
	MaintenanceHandler *maintenance.Handler
	Health             *health.Service
}

// Build prepares shared dependencies and wires routes.
func Build(cfg config.Config) (*App, error) {
	if strings.TrimSpace(cfg.Env) == "" {
		cfg.Env = "dev"
	}
	if strings.TrimSpace(cfg.ObjectStoreType) == "" {
		cfg.ObjectStoreType = "local"
	}
	if strings.TrimSpace(cfg.LocalStoreDir) == "" {
		cfg.LocalStoreDir = "./uploads"
	}
	if strings.TrimSpace(cfg.JWTSecret) == "" && isDevLike(cfg.Env) {
		cfg.JWTSecret = "dev-secret"
	}
	ctx := context.Background()

	sqlDB, err := buildDB(ctx, cfg)
	if err != nil {
		return nil, err
	}

	store, err := buildStore(ctx, cfg)
	if err != nil {
		return nil, err
	}

	verifier, err := auth.NewVerifier(cfg.JWTSecret, cfg.JWTIssuer)
	if err != nil {
		return nil, fmt.Errorf("jwt verifier: %w", err)
	}

	app := &App{
		Config:    cfg,
		DB:        sqlDB,
		Store:     store,
		Verifier:  verifier,
		Extractor: BuildExtractor(cfg),
	}

	if err := buildServices(app); err != nil {
		return nil, err
	}

	app.Router = server.NewRouter(server.RouterDeps{
		Config:             app.Config,
		Verifier:           app.Verifier,
		Health:             app.Health,
		DocumentHandler:    app.DocumentsHandler,
		MaintenanceHandler: app.MaintenanceHandler,
		RateLimiter:        middleware.NewRateLimiter(nil),
	})

	return app, nil
}

// BuildExtractor wires the text backend, with OCR when enabled, into a
// bounded receipt extractor.
func BuildExtractor(cfg config.Config) *receipts.Extractor {
	var ocr extract.OCR
	if cfg.OCREnabled {
		ocr = extract.NewExecOCR(extract.ToolConfig{
			Pdftoppm:  cfg.PdftoppmPath,
			Tesseract: cfg.TesseractPath,
			Lang:      cfg.OCRLang,
			DPI:       cfg.OCRDPI,
			Timeout:   cfg.OCRTimeout,
		}, nil)
	}
	return receipts.NewExtractor(extract.NewBackend(ocr), cfg.ExtractConcurrency)
}

func buildDB(ctx context.Context, cfg config.Config) (*sql.DB, error) {
	if strings.TrimSpace(cfg.DatabaseURL) == "" {
		if isDevLike(cfg.Env) {
			telemetry.Info("bootstrap.memory_repositories", map[string]any{"reason": "DATABASE_URL empty"})
			return nil, nil
		}
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	opts := db.OptionsFromEnv(db.DefaultServerOptions())
	sqlDB, err := db.Connect(ctx, cfg.DatabaseURL, opts)
	if err != nil {
		if isDevLike(cfg.Env) {
			telemetry.Warn("bootstrap.memory_repositories", map[string]any{"reason": "database connect failed", "error": err})
			return nil, nil
		}
		return nil, err
	}

	if cfg.MigrateOnStart {
		if err := db.RunMigrations(ctx, sqlDB); err != nil {
			_ = sqlDB.Close()
			return nil, fmt.Errorf("run migrations: %w", err)
		}
	}
	return sqlDB, nil
}

func buildStore(ctx context.Context, cfg config.Config) (object.ObjectStore, error) {
	switch cfg.ObjectStoreType {
	case "s3":
		if strings.TrimSpace(cfg.S3Bucket) == "" {
			return nil, fmt.Errorf("OBJECT_STORE=s3 requires S3_BUCKET")
		}
		return s3store.New(ctx, cfg.AWSRegion, cfg.S3Bucket, cfg.S3Prefix, cfg.SSEKMSKeyID)
	default:
		return localstore.New(cfg.LocalStoreDir), nil
	}
}

func isDevLike(env string) bool {
	switch strings.ToLower(strings.TrimSpace(env)) {
	case "dev", "local", "test":
		return true
	default:
		return false
	}
}

func buildServices(app *App) error {
	var docRepo documents.Repo
	var maintRepo maintenance.Repo
	var pinger health.Pinger

	if app.DB != nil {
		docRepo = &documents.PGRepo{DB: app.DB}
		maintRepo = &maintenance.PGRepo{DB: app.DB}
		pinger = app.DB
	} else {
		docRepo = documents.NewMemoryRepo()
		maintRepo = maintenance.NewMemoryRepo()
	}

	maintSvc := maintenance.NewService(maintRepo)
	docSvc := documents.NewService(app.Store, docRepo, app.Extractor, maintSvc, app.Config.CleanupDefaultDays)

	app.DocumentsRepo = docRepo
	app.MaintenanceRepo = maintRepo
	app.DocumentsService = docSvc
	app.MaintenanceService = maintSvc
	app.DocumentsHandler = documents.NewHandler(docSvc, app.Config.MaxUploadMB<<20)
	app.MaintenanceHandler = maintenance.NewHandler(maintSvc)
	app.Health = health.NewService(pinger, app.Config.OCREnabled)

	if app.DocumentsHandler == nil || app.MaintenanceHandler == nil {
		return errors.New("failed to initialize handlers")
	}
	return nil
}
