package bootstrap

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/gin-gonic/gin"

	"docuchat-backend/internal/chat"
	"docuchat-backend/internal/config"
	"docuchat-backend/internal/documents"
	"docuchat-backend/internal/extract"
	"docuchat-backend/internal/llm"
	"docuchat-backend/internal/llm/openai"
	"docuchat-backend/internal/server"
	"docuchat-backend/internal/shared/storage/db"
)

// App holds shared process-wide dependencies, constructed once at startup.
type App struct {
	Config           config.Config
	Router           *gin.Engine
	DB               *sql.DB
	DocumentsRepo    documents.Repo
	DocumentsService *documents.Service
	ChatService      *chat.Service
	DocumentsHandler *documents.Handler
	ChatHandler      *chat.Handler
}

// Build wires repositories, services and handlers. With no DATABASE_URL in a
// dev-like environment it falls back to in-memory storage. An optional LLM
// client overrides the OpenAI client for tests.
func Build(cfg config.Config, llmOverride llm.CompletionClient) (*App, error) {
	ctx := context.Background()

	sqlDB, err := buildDB(ctx, cfg)
	if err != nil {
		return nil, err
	}

	if err := os.MkdirAll(cfg.UploadDir, 0o755); err != nil {
		return nil, fmt.Errorf("create upload dir: %w", err)
	}

	var docRepo documents.Repo
	if sqlDB != nil {
		docRepo = &documents.PGRepo{DB: sqlDB}
	} else {
		docRepo = documents.NewMemoryRepo()
	}

	llmClient := llmOverride
	if llmClient == nil {
		client, err := openai.NewClient(cfg.OpenAIAPIKey, cfg.OpenAIModel)
		if err != nil {
			return nil, err
		}
		llmClient = client
	}

	docSvc := documents.NewService(docRepo, extract.New())
	chatSvc := chat.NewService(docRepo, llmClient)

	app := &App{
		Config:           cfg,
		DB:               sqlDB,
		DocumentsRepo:    docRepo,
		DocumentsService: docSvc,
		ChatService:      chatSvc,
		DocumentsHandler: documents.NewHandler(docSvc, cfg.UploadDir),
		ChatHandler:      chat.NewHandler(chatSvc),
	}

	app.Router = server.NewRouter(server.RouterDeps{
		Config:          cfg,
		DocumentHandler: app.DocumentsHandler,
		ChatHandler:     app.ChatHandler,
	})

	return app, nil
}

// Close releases process-wide resources.
func (a *App) Close() {
	if a.DB != nil {
		_ = a.DB.Close()
	}
}

func buildDB(ctx context.Context, cfg config.Config) (*sql.DB, error) {
	if strings.TrimSpace(cfg.DatabaseURL) == "" {
		if isDevLike(cfg.Env) {
			log.Printf("bootstrap: DATABASE_URL empty; using in-memory repository")
			return nil, nil
		}
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	opts := db.OptionsFromEnv(db.DefaultServerOptions())
	sqlDB, err := db.Connect(ctx, cfg.DatabaseURL, opts)
	if err != nil {
		if isDevLike(cfg.Env) {
			log.Printf("bootstrap: database connect failed; using in-memory repository: %v", err)
			return nil, nil
		}
		return nil, err
	}

	if err := db.RunMigrations(ctx, sqlDB); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return sqlDB, nil
}

func isDevLike(env string) bool {
	switch strings.ToLower(strings.TrimSpace(env)) {
	case "dev", "local":
		return true
	default:
		return false
	}
}
