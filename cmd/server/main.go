package main

import (
	"context"
	"errors"
	"io"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"knowledgestack/internal/app"
	"knowledgestack/internal/auth"
	"knowledgestack/internal/config"
	"knowledgestack/internal/domain/services"
	"knowledgestack/internal/handler"
	"knowledgestack/internal/httputil"
	"knowledgestack/internal/middleware"
	"knowledgestack/internal/repository/postgres"
	"knowledgestack/internal/search"
	authSvc "knowledgestack/internal/service/auth"
	"knowledgestack/internal/session"
	"knowledgestack/internal/storage"

	"github.com/joho/godotenv"
	"github.com/rs/cors"
)

func main() {
	// Load .env file (silently ignore if it doesn't exist - for production)
	_ = godotenv.Load()

	cfg := config.Load()

	// Setup structured logging
	logLevel := slog.LevelInfo
	if cfg.Environment == "dev" {
		logLevel = slog.LevelDebug
	}

	var logOutput io.Writer = os.Stdout
	if cfg.LogDir != "" {
		logFile, err := config.SetupLogFile(cfg.LogDir, "server", cfg.LogMaxFiles)
		if err != nil {
			log.Fatalf("Failed to open log file: %v", err)
		}
		defer logFile.Close()
		logOutput = io.MultiWriter(os.Stdout, logFile)
	}

	logger := slog.New(slog.NewJSONHandler(logOutput, &slog.HandlerOptions{
		Level: logLevel,
	}))
	slog.SetDefault(logger)

	logger.Info("server starting",
		"environment", cfg.Environment,
		"port", cfg.Port,
		"table_prefix", cfg.TablePrefix,
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pool, err := postgres.CreateConnectionPool(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to create connection pool: %v", err)
	}
	defer pool.Close()
	logger.Info("database connected", "max_conns", 25, "min_conns", 5)

	if err := postgres.RunSchema(ctx, pool, cfg.TablePrefix, logger); err != nil {
		log.Fatalf("Failed to apply schema: %v", err)
	}
	tables := postgres.NewTableNames(cfg.TablePrefix)

	// Sessions and tokens
	sessions, err := session.NewRedisStore(ctx, cfg.RedisURL, logger)
	if err != nil {
		log.Fatalf("Failed to connect to redis: %v", err)
	}
	defer sessions.Close()

	tokenService, err := auth.NewTokenService(cfg.JWTSecret, cfg.AccessTokenTTL, logger)
	if err != nil {
		log.Fatalf("Failed to create token service: %v", err)
	}

	var verifier auth.JWTVerifier = tokenService
	if cfg.SSOJWKSURL != "" {
		ssoVerifier, err := auth.NewSSOVerifier(ctx, cfg.SSOJWKSURL, logger)
		if err != nil {
			log.Fatalf("Failed to create SSO verifier: %v", err)
		}
		verifier = auth.NewChainVerifier(tokenService, ssoVerifier)
		logger.Info("sso verifier enabled", "jwks_url", cfg.SSOJWKSURL)
	}
	defer verifier.Close()

	// Optional search index and object storage
	opts := app.Options{}
	if cfg.MeiliURL != "" {
		opts.Meili = search.NewMeili(cfg.MeiliURL, cfg.MeiliAPIKey, logger)
		defer opts.Meili.Close()
	} else {
		logger.Warn("MEILI_URL not set - search uses the Postgres fallback")
	}

	if cfg.MinioAccessKey != "" {
		media, err := storage.NewMinioStore(ctx, cfg, logger)
		if err != nil {
			log.Fatalf("Failed to connect to object storage: %v", err)
		}
		opts.Media = media
	} else {
		logger.Warn("MINIO_ACCESS_KEY not set - image uploads are disabled")
	}

	stack := app.New(pool, tables, opts, logger)
	authService := authSvc.NewAuthService(
		stack.Users, stack.Orgs, stack.Departments,
		sessions, tokenService, cfg.RefreshTokenTTL, logger,
	)

	logger.Info("services initialized")

	mux := http.NewServeMux()
	registerRoutes(mux, stack, authService, httputil.CookieConfig{
		Domain: cfg.CookieDomain,
		Prod:   cfg.IsProd(),
	}, logger)

	// Build middleware chain
	// Order: CORS → Recovery → Auth → Org → Routes
	var h http.Handler = mux
	h = middleware.ResolveOrg(stack.OrgService, cfg.BaseDomain, logger)(h)
	h = middleware.Authenticate(verifier, stack.Users, logger)(h)
	h = middleware.Recovery(logger)(h)

	// CORS - Must be before auth to handle OPTIONS pre-flight requests
	corsHandler := cors.New(cors.Options{
		AllowedOrigins:   strings.Split(cfg.CORSOrigins, ","),
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Origin", "Content-Type", "Accept", "Authorization", middleware.OrgHeader},
		AllowCredentials: true,
	})
	h = corsHandler.Handler(h)

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      h,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("server shutdown", "error", err)
		}
	}()

	logger.Info("server listening", "port", cfg.Port)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatalf("Failed to start server: %v", err)
	}
	logger.Info("server stopped")
}

func registerRoutes(mux *http.ServeMux, stack *app.App, authService services.AuthService, cookies httputil.CookieConfig, logger *slog.Logger) {
	authHandler := handler.NewAuthHandler(authService, cookies, logger)
	departmentHandler := handler.NewDepartmentHandler(stack.Knowledge.Departments, logger)
	collectionHandler := handler.NewCollectionHandler(stack.Knowledge.Collections, logger)
	documentHandler := handler.NewDocumentHandler(stack.Knowledge.Documents, logger)
	tagHandler := handler.NewTagHandler(stack.Knowledge.Tags, logger)
	tileHandler := handler.NewTileHandler(stack.Knowledge.Tiles, logger)
	searchHandler := handler.NewSearchHandler(stack.Search, logger)
	profileHandler := handler.NewProfileHandler(stack.Profiles, logger)
	themeHandler := handler.NewUserThemeHandler(stack.Themes, logger)

	// Health check
	mux.HandleFunc("GET /health", handler.HealthCheck)

	// Auth routes
	mux.HandleFunc("POST /api/auth/login", authHandler.Login)
	mux.HandleFunc("POST /api/auth/refresh", authHandler.Refresh)
	mux.HandleFunc("POST /api/auth/logout", authHandler.Logout)
	mux.HandleFunc("GET /api/auth/me", authHandler.Me)

	// Department routes
	mux.HandleFunc("GET /api/departments", departmentHandler.ListDepartments)
	mux.HandleFunc("POST /api/departments", departmentHandler.CreateDepartment)
	mux.HandleFunc("GET /api/departments/{slug}", departmentHandler.GetDepartment)
	mux.HandleFunc("PATCH /api/departments/{slug}", departmentHandler.UpdateDepartment)
	mux.HandleFunc("GET /api/departments/{slug}/members", departmentHandler.ListMembers)
	mux.HandleFunc("POST /api/departments/{slug}/members", departmentHandler.ChangeMember)
	mux.HandleFunc("GET /api/departments/{slug}/documents", departmentHandler.ListDocuments)
	mux.HandleFunc("GET /api/departments/{slug}/collections", departmentHandler.ListCollections)

	// Collection routes
	mux.HandleFunc("GET /api/collections", collectionHandler.ListCollections)
	mux.HandleFunc("POST /api/collections", collectionHandler.CreateCollection)
	mux.HandleFunc("GET /api/collections/{slug}", collectionHandler.GetCollection)
	mux.HandleFunc("PATCH /api/collections/{slug}", collectionHandler.UpdateCollection)
	mux.HandleFunc("DELETE /api/collections/{slug}", collectionHandler.DeleteCollection)
	mux.HandleFunc("POST /api/collections/{slug}/subcollections", collectionHandler.AddSubcollection)
	mux.HandleFunc("DELETE /api/collections/{slug}/subcollections/{id}", collectionHandler.RemoveSubcollection)
	mux.HandleFunc("GET /api/collections/{slug}/documents", collectionHandler.ListDocuments)
	mux.HandleFunc("POST /api/collections/{slug}/documents", collectionHandler.AddDocument)
	mux.HandleFunc("DELETE /api/collections/{slug}/documents/{id}", collectionHandler.RemoveDocument)
	mux.HandleFunc("GET /api/collections/{slug}/candidates", collectionHandler.Candidates)
	mux.HandleFunc("GET /api/collections/{slug}/ancestors", collectionHandler.Ancestors)

	// Document routes
	mux.HandleFunc("GET /api/documents", documentHandler.ListDocuments)
	mux.HandleFunc("POST /api/documents", documentHandler.CreateDocument)
	mux.HandleFunc("GET /api/documents/{id}", documentHandler.GetDocument)
	mux.HandleFunc("PATCH /api/documents/{id}", documentHandler.UpdateDocument)
	mux.HandleFunc("DELETE /api/documents/{id}", documentHandler.DeleteDocument)
	mux.HandleFunc("POST /api/documents/{id}/tags", documentHandler.SetTags)
	mux.HandleFunc("DELETE /api/documents/{id}/tags/{tagId}", documentHandler.DetachTag)
	mux.HandleFunc("POST /api/documents/{id}/collections", documentHandler.SetCollections)
	mux.HandleFunc("POST /api/documents/{id}/sections", documentHandler.AddSection)
	mux.HandleFunc("POST /api/documents/{id}/sections/reorder", documentHandler.ReorderSections)
	mux.HandleFunc("PATCH /api/documents/{id}/sections/{sectionId}", documentHandler.UpdateSection)
	mux.HandleFunc("DELETE /api/documents/{id}/sections/{sectionId}", documentHandler.DeleteSection)
	mux.HandleFunc("POST /api/documents/{id}/sections/{sectionId}/image", documentHandler.UploadSectionImage)
	mux.HandleFunc("POST /api/documents/{id}/links", documentHandler.AddLink)
	mux.HandleFunc("PATCH /api/documents/{id}/links/{linkId}", documentHandler.UpdateLink)
	mux.HandleFunc("DELETE /api/documents/{id}/links/{linkId}", documentHandler.DeleteLink)
	mux.HandleFunc("GET /api/documents/{id}/versions", documentHandler.ListVersions)

	// Tag routes
	mux.HandleFunc("GET /api/tags", tagHandler.ListTags)
	mux.HandleFunc("POST /api/tags", tagHandler.CreateTag)
	mux.HandleFunc("GET /api/tags/{id}", tagHandler.GetTag)
	mux.HandleFunc("PATCH /api/tags/{id}", tagHandler.UpdateTag)
	mux.HandleFunc("DELETE /api/tags/{id}", tagHandler.DeleteTag)

	// Tile routes
	mux.HandleFunc("GET /api/tiles", tileHandler.ListActive)
	mux.HandleFunc("GET /api/tiles/all", tileHandler.ListAll)
	mux.HandleFunc("POST /api/tiles", tileHandler.CreateTile)
	mux.HandleFunc("PUT /api/tiles/{id}", tileHandler.UpdateTile)
	mux.HandleFunc("DELETE /api/tiles/{id}", tileHandler.DeleteTile)

	// Search
	mux.HandleFunc("GET /api/search", searchHandler.Search)

	// Profile and theme routes
	mux.HandleFunc("GET /api/profiles/me", profileHandler.GetMyProfile)
	mux.HandleFunc("PATCH /api/profiles/me", profileHandler.UpdateMyProfile)
	mux.HandleFunc("POST /api/profiles/me/avatar", profileHandler.UploadAvatar)
	mux.HandleFunc("GET /api/profiles/{userId}", profileHandler.GetProfile)
	mux.HandleFunc("GET /api/users/me/theme", themeHandler.GetTheme)
	mux.HandleFunc("PATCH /api/users/me/theme", themeHandler.UpdateTheme)
}
