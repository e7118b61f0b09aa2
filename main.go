package main

import (
	"context"
	"log"
	"net/http"

	"go.uber.org/zap"

	"github.com/datatalk-ai/datatalk-engine/pkg/adapters/warehouse"
	_ "github.com/datatalk-ai/datatalk-engine/pkg/adapters/warehouse/mssql"
	_ "github.com/datatalk-ai/datatalk-engine/pkg/adapters/warehouse/postgres"
	_ "github.com/datatalk-ai/datatalk-engine/pkg/adapters/warehouse/snowflake"
	"github.com/datatalk-ai/datatalk-engine/pkg/chat"
	"github.com/datatalk-ai/datatalk-engine/pkg/config"
	"github.com/datatalk-ai/datatalk-engine/pkg/handlers"
	"github.com/datatalk-ai/datatalk-engine/pkg/llm"
	"github.com/datatalk-ai/datatalk-engine/pkg/logging"
	"github.com/datatalk-ai/datatalk-engine/pkg/middleware"
	"github.com/datatalk-ai/datatalk-engine/pkg/repositories"
	"github.com/datatalk-ai/datatalk-engine/pkg/retry"
	"github.com/datatalk-ai/datatalk-engine/pkg/services"
	"github.com/datatalk-ai/datatalk-engine/pkg/usecase"
)

// Version is set at build time via ldflags
var Version = "dev"

func main() {
	cfg, err := config.Load(Version)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger, err := logging.New(cfg.Env)
	if err != nil {
		log.Fatalf("Failed to build logger: %v", err)
	}
	defer logger.Sync()

	logger.Info("configuration loaded",
		zap.String("env", cfg.Env),
		zap.String("warehouse_type", cfg.Warehouse.Type),
		zap.String("ai_provider", cfg.AI.Provider),
		zap.String("ai_model", cfg.AI.Model))

	ctx := context.Background()

	wh, err := retry.DoWithResult(ctx, nil, func() (warehouse.Warehouse, error) {
		return warehouse.New(ctx, warehouse.Config{
			Type:      cfg.Warehouse.Type,
			Account:   cfg.Warehouse.Account,
			Host:      cfg.Warehouse.Host,
			Port:      cfg.Warehouse.Port,
			User:      cfg.Warehouse.User,
			Password:  cfg.Warehouse.Password,
			Database:  cfg.Warehouse.Database,
			Schema:    cfg.Warehouse.Schema,
			Warehouse: cfg.Warehouse.Warehouse,
			Role:      cfg.Warehouse.Role,
			SSLMode:   cfg.Warehouse.SSLMode,
		}, logger)
	})
	if err != nil {
		logger.Fatal("failed to connect to warehouse", zap.String("error", logging.SanitizeError(err)))
	}
	defer wh.Close()

	auditTables := warehouse.AuditTables{
		Database:    cfg.Audit.Database,
		Schema:      cfg.Audit.Schema,
		ChatHistory: cfg.Audit.ChatHistoryTable,
		BugReports:  cfg.Audit.BugReportsTable,
	}
	if err := wh.EnsureAuditTables(ctx, auditTables); err != nil {
		logger.Fatal("failed to ensure audit tables", zap.String("error", logging.SanitizeError(err)))
	}

	registry, err := usecase.LoadRegistry(cfg.UseCasesPath)
	if err != nil {
		logger.Fatal("failed to load use cases", zap.Error(err))
	}
	logger.Info("use cases loaded", zap.Strings("names", registry.Names()))

	provider, err := llm.NewProvider(llm.Config{
		Provider:     cfg.AI.Provider,
		Endpoint:     cfg.AI.Endpoint,
		Model:        cfg.AI.Model,
		APIKey:       cfg.AI.APIKey,
		Organization: cfg.AI.Organization,
	}, logger)
	if err != nil {
		logger.Fatal("failed to create completion provider", zap.Error(err))
	}

	schemaContext := services.NewSchemaContextService(wh, cfg.SchemaCacheTTL(), logger)
	execution := services.NewQueryExecutionService(wh, logger)

	auditRepo := repositories.NewAuditRepository(wh, auditTables, logger)
	bugRepo := repositories.NewBugReportRepository(wh, auditTables, logger)

	auditService := services.NewAuditService(auditRepo, cfg.AuditLocation(), logger)
	bugService := services.NewBugReportService(bugRepo, cfg.CompanyEmailDomain, cfg.AuditLocation(), logger)
	chatService := services.NewChatService(registry, schemaContext, provider, execution, auditService, cfg.SupportContact, logger)

	manager := chat.NewManager()
	resolver := handlers.NewSessionResolver(cfg.SessionSecret, manager, logger)

	mux := http.NewServeMux()
	handlers.NewHealthHandler(cfg, logger).RegisterRoutes(mux)
	handlers.NewChatHandler(chatService, resolver, logger).RegisterRoutes(mux)
	handlers.NewFeedbackHandler(auditService, logger).RegisterRoutes(mux)
	handlers.NewBugReportHandler(bugService, logger).RegisterRoutes(mux)

	handler := middleware.RequestLogger(logger)(mux)

	addr := cfg.BindAddr + ":" + cfg.Port
	logger.Info("starting datatalk-engine", zap.String("addr", addr), zap.String("version", cfg.Version))
	if err := http.ListenAndServe(addr, handler); err != nil {
		logger.Fatal("server failed", zap.Error(err))
	}
}
