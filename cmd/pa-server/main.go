package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/priorauth/priorauth/internal/config"
	"github.com/priorauth/priorauth/internal/domain/member"
	"github.com/priorauth/priorauth/internal/domain/metrics"
	"github.com/priorauth/priorauth/internal/domain/namechange"
	"github.com/priorauth/priorauth/internal/domain/notification"
	"github.com/priorauth/priorauth/internal/domain/order"
	"github.com/priorauth/priorauth/internal/domain/parequest"
	"github.com/priorauth/priorauth/internal/domain/payer"
	"github.com/priorauth/priorauth/internal/platform/auth"
	"github.com/priorauth/priorauth/internal/platform/blobstore"
	"github.com/priorauth/priorauth/internal/platform/db"
	"github.com/priorauth/priorauth/internal/platform/llm"
	"github.com/priorauth/priorauth/internal/platform/middleware"
	"github.com/priorauth/priorauth/internal/platform/ocr"
	"github.com/priorauth/priorauth/internal/platform/policy"
)

// orderSourceAdapter narrows the order service to what summary generation
// needs.
type orderSourceAdapter struct {
	svc *order.Service
}

func (a *orderSourceAdapter) OrderInfo(ctx context.Context, id uuid.UUID) (*parequest.OrderInfo, error) {
	o, err := a.svc.GetOrder(ctx, id)
	if err != nil {
		return nil, err
	}
	return &parequest.OrderInfo{
		PatientName:   o.PatientName,
		Modality:      o.Modality,
		CPTCode:       o.CPTCode,
		DiagnosisCode: o.DiagnosisCode,
		ClinicalNotes: o.ClinicalNotes,
	}, nil
}

// policySourceAdapter exposes payer names and policy excerpts for prompt
// building.
type policySourceAdapter struct {
	svc *payer.Service
}

func (a *policySourceAdapter) PayerName(ctx context.Context, id uuid.UUID) (string, error) {
	p, err := a.svc.GetPayer(ctx, id)
	if err != nil {
		return "", err
	}
	return p.Name, nil
}

func (a *policySourceAdapter) Snippets(ctx context.Context, payerID uuid.UUID, modality string, limit int) ([]string, error) {
	snippets, err := a.svc.ListSnippets(ctx, payerID, modality, limit)
	if err != nil {
		return nil, err
	}
	texts := make([]string, 0, len(snippets))
	for _, s := range snippets {
		if s.Heading != "" {
			texts = append(texts, s.Heading+": "+s.Text)
			continue
		}
		texts = append(texts, s.Text)
	}
	return texts, nil
}

func main() {
	rootCmd := &cobra.Command{
		Use:   "pa-server",
		Short: "Prior Authorization Workflow API Server",
	}

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(orgCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the PA workflow API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer()
		},
	}
}

func migrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Run database migrations",
	}

	upCmd := &cobra.Command{
		Use:   "up",
		Short: "Apply pending migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			schema, _ := cmd.Flags().GetString("schema")
			dir, _ := cmd.Flags().GetString("dir")

			cfg, err := config.Load()
			if err != nil {
				return err
			}

			ctx := context.Background()
			pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
			if err != nil {
				return err
			}
			defer pool.Close()

			migrator := db.NewMigrator(pool, dir)
			fmt.Printf("Running migrations on schema: %s\n", schema)

			count, err := migrator.Up(ctx, schema)
			if err != nil {
				return fmt.Errorf("migration failed: %w", err)
			}

			fmt.Printf("Applied %d migration(s) successfully.\n", count)
			return nil
		},
	}
	upCmd.Flags().String("schema", "org_default", "Target schema for migrations")
	upCmd.Flags().String("dir", "./migrations", "Path to migrations directory")
	cmd.AddCommand(upCmd)

	statusCmd := &cobra.Command{
		Use:   "status",
		Short: "Show migration status",
		RunE: func(cmd *cobra.Command, args []string) error {
			schema, _ := cmd.Flags().GetString("schema")
			dir, _ := cmd.Flags().GetString("dir")

			cfg, err := config.Load()
			if err != nil {
				return err
			}

			ctx := context.Background()
			pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
			if err != nil {
				return err
			}
			defer pool.Close()

			migrator := db.NewMigrator(pool, dir)
			statuses, err := migrator.Status(ctx, schema)
			if err != nil {
				return fmt.Errorf("failed to get migration status: %w", err)
			}

			fmt.Printf("Migration status for schema: %s\n", schema)
			fmt.Printf("%-10s %-40s %-10s %s\n", "VERSION", "NAME", "STATUS", "APPLIED AT")
			fmt.Println("---------- ---------------------------------------- ---------- --------------------")
			for _, s := range statuses {
				status := "pending"
				appliedAt := ""
				if s.Applied {
					status = "applied"
					if s.AppliedAt != nil {
						appliedAt = s.AppliedAt.Format("2006-01-02 15:04:05")
					}
				}
				fmt.Printf("%-10d %-40s %-10s %s\n", s.Version, s.Name, status, appliedAt)
			}
			return nil
		},
	}
	statusCmd.Flags().String("schema", "org_default", "Target schema for migrations")
	statusCmd.Flags().String("dir", "./migrations", "Path to migrations directory")
	cmd.AddCommand(statusCmd)

	return cmd
}

func orgCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "org",
		Short: "Manage organizations",
	}

	createCmd := &cobra.Command{
		Use:   "create",
		Short: "Create a new organization schema",
		RunE: func(cmd *cobra.Command, args []string) error {
			name, _ := cmd.Flags().GetString("name")
			dir, _ := cmd.Flags().GetString("dir")
			if name == "" {
				return fmt.Errorf("--name is required")
			}

			cfg, err := config.Load()
			if err != nil {
				return err
			}

			ctx := context.Background()
			pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
			if err != nil {
				return err
			}
			defer pool.Close()

			fmt.Printf("Creating organization schema: org_%s\n", name)
			if err := db.CreateOrgSchema(ctx, pool, name, dir); err != nil {
				return err
			}
			fmt.Println("Organization created successfully.")
			return nil
		},
	}
	createCmd.Flags().String("name", "", "Organization identifier (alphanumeric)")
	createCmd.Flags().String("dir", "./migrations", "Path to migrations directory")

	cmd.AddCommand(createCmd)
	return cmd
}

func runServer() error {
	// Logger
	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()
	if os.Getenv("ENV") == "development" {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).With().Timestamp().Logger()
	}

	// Config
	cfg, err := config.Load()
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load config")
	}
	if err := cfg.Validate(); err != nil {
		logger.Fatal().Err(err).Msg("invalid configuration")
	}

	// Database
	ctx := context.Background()
	pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer pool.Close()
	logger.Info().Msg("connected to database")

	// Attachment storage
	var blobs blobstore.Store
	switch cfg.BlobBackend {
	case "minio":
		blobs, err = blobstore.NewMinioStore(ctx, blobstore.MinioConfig{
			Endpoint:  cfg.MinioEndpoint,
			AccessKey: cfg.MinioAccessKey,
			SecretKey: cfg.MinioSecretKey,
			Bucket:    cfg.MinioBucket,
			UseSSL:    cfg.MinioUseSSL,
		})
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to connect to minio")
		}
		logger.Info().Str("bucket", cfg.MinioBucket).Msg("minio attachment store ready")
	default:
		blobs = blobstore.NewInMemoryStore()
		logger.Warn().Msg("using in-memory attachment store; uploads do not survive restarts")
	}

	// OCR
	extractor, err := ocr.New(cfg.OCRProvider)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to build ocr extractor")
	}

	// LLM summary generation (optional)
	var generator llm.Generator
	if cfg.LLMEnabled {
		generator = llm.NewOpenAIGenerator(cfg.LLMAPIKey, cfg.LLMModel)
		logger.Info().Str("model", cfg.LLMModel).Msg("llm summary generation enabled")
	}

	// Echo server
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	// Global middleware
	e.Use(middleware.Recovery())
	e.Use(middleware.RequestID())
	e.Use(middleware.Logger())
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins: cfg.CORSOrigins,
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete},
		AllowHeaders: []string{"Authorization", "Content-Type", "X-Request-ID", "X-Org-ID"},
	}))

	// Auth middleware
	if cfg.IsDev() {
		e.Use(auth.DevAuthMiddleware())
	} else {
		e.Use(auth.JWTMiddleware(auth.JWTConfig{
			Issuer:   cfg.AuthIssuer,
			Audience: cfg.AuthAudience,
			JWKSURL:  cfg.AuthJWKSURL,
		}))
	}

	// Org scoping middleware
	e.Use(db.OrgMiddleware(pool, cfg.DefaultOrg))

	apiV1 := e.Group("/api/v1")

	// Repositories
	orderRepo := order.NewRepoPG(pool)
	payerRepo := payer.NewRepoPG(pool)
	memberRepo := member.NewRepoPG(pool)
	notificationRepo := notification.NewRepoPG(pool)
	requestRepo := parequest.NewRequestRepoPG(pool)
	checklistRepo := parequest.NewChecklistRepoPG(pool)
	summaryRepo := parequest.NewSummaryRepoPG(pool)
	historyRepo := parequest.NewHistoryRepoPG(pool)
	namechangeRepo := namechange.NewRepoPG(pool)
	metricsRepo := metrics.NewRepoPG(pool)

	// Services
	orderSvc := order.NewService(orderRepo)
	payerSvc := payer.NewService(payerRepo, policy.NewScraper(), cfg.PolicyIngestionEnabled)
	memberSvc := member.NewService(memberRepo)
	notificationSvc := notification.NewService(notificationRepo)

	paSvc := parequest.NewService(parequest.ServiceDeps{
		Requests:  requestRepo,
		Checklist: checklistRepo,
		Summaries: summaryRepo,
		History:   historyRepo,
		Blobs:     blobs,
		Extractor: extractor,
		Generator: generator,
		Notifier:  notificationSvc,
		Orders:    &orderSourceAdapter{svc: orderSvc},
		Policies:  &policySourceAdapter{svc: payerSvc},
		RunTx: func(ctx context.Context, fn func(ctx context.Context) error) error {
			return db.WithTx(ctx, pool, fn)
		},
	})

	namechangeSvc := namechange.NewService(namechangeRepo, memberSvc, notificationSvc)

	// Handlers
	order.NewHandler(orderSvc).RegisterRoutes(apiV1)
	payer.NewHandler(payerSvc).RegisterRoutes(apiV1)
	member.NewHandler(memberSvc).RegisterRoutes(apiV1)
	notification.NewHandler(notificationSvc).RegisterRoutes(apiV1)
	parequest.NewHandler(paSvc).RegisterRoutes(apiV1)
	namechange.NewHandler(namechangeSvc).RegisterRoutes(apiV1)
	metrics.NewHandler(metricsRepo).RegisterRoutes(apiV1)

	// Health checks
	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{
			"status":  "ok",
			"version": "0.1.0",
		})
	})
	e.GET("/health/db", func(c echo.Context) error {
		if err := db.Health(c.Request().Context(), pool); err != nil {
			return c.JSON(http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
		}
		return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	})

	// Graceful shutdown
	go func() {
		addr := ":" + cfg.Port
		logger.Info().Str("addr", addr).Msg("starting server")
		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Fatal().Err(err).Msg("server shutdown failed")
	}
	logger.Info().Msg("server stopped")
	return nil
}
