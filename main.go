package main

import (
	"context"
	"html/template"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	cachecontrol "go.eigsys.de/gin-cachecontrol/v2"

	ginGzip "github.com/gin-contrib/gzip"

	"github.com/gin-gonic/gin"

	constants "enigmo/internal/constants"
	genclient "enigmo/internal/genclient"
	handlers "enigmo/internal/handlers"
	middleware "enigmo/internal/middleware"
	models "enigmo/internal/models"
	session "enigmo/internal/session"
	storage "enigmo/internal/storage"
	util "enigmo/internal/util"
)

func main() {
	_ = godotenv.Load()

	isProduction := os.Getenv("GIN_MODE") == "release" || os.Getenv("ENV") == "production"
	util.LogInfo("Starting Enigmo in %s mode", map[bool]string{true: "production", false: "development"}[isProduction])

	apiKey := os.Getenv("GEMINI_API_KEY")
	if apiKey == "" {
		util.LogFatal("GEMINI_API_KEY is not set")
	}

	generator, err := genclient.New(context.Background(), genclient.Config{
		APIKey:     apiKey,
		TextModel:  util.GetEnvString("TEXT_MODEL", "gemini-2.5-flash"),
		ImageModel: util.GetEnvString("IMAGE_MODEL", "gemini-2.0-flash-preview-image-generation"),
	})
	if err != nil {
		util.LogFatal("Failed to create generative client: %v", err)
	}
	defer generator.Close()

	kv := openStorage()

	app := &models.App{
		Generator:          generator,
		Storage:            kv,
		GameSessions:       make(map[string]*models.SessionState),
		LimiterMap:         make(map[string]*models.RateLimiterWithTime),
		IsProduction:       isProduction,
		StartTime:          time.Now(),
		CookieMaxAge:       util.GetEnvDuration("COOKIE_MAX_AGE", 2*time.Hour),
		PlayerCookieMaxAge: util.GetEnvDuration("PLAYER_COOKIE_MAX_AGE", 365*24*time.Hour),
		StaticCacheAge:     util.GetEnvDuration("STATIC_CACHE_AGE", 5*time.Minute),
		RateLimitRPS:       util.GetEnvInt("RATE_LIMIT_RPS", 2),
		RateLimitBurst:     util.GetEnvInt("RATE_LIMIT_BURST", 5),
		RateLimiterTTL:     util.GetEnvDuration("RATE_LIMITER_TTL", 1*time.Hour),
		SessionTTL:         util.GetEnvDuration("SESSION_TTL", 3*time.Hour),
	}

	router := gin.Default()

	router.Use(middleware.RequestID())
	router.Use(middleware.SecurityHeaders())

	router.Use(middleware.CSRF(app))
	router.Use(middleware.ValidateCSRF())

	router.Use(ginGzip.Gzip(ginGzip.DefaultCompression,
		ginGzip.WithExcludedExtensions([]string{".svg", ".ico", ".png", ".jpg", ".jpeg", ".gif"}),
		ginGzip.WithExcludedPaths([]string{"/static/fonts"})))

	if err := router.SetTrustedProxies([]string{"127.0.0.1"}); err != nil {
		util.LogWarn("Failed to set trusted proxies: %v", err)
	}

	router.Use(func(c *gin.Context) {
		applyCacheHeaders(app, c)
	})

	funcMap := template.FuncMap{"hasPrefix": strings.HasPrefix}

	var baseTplDir string
	if isProduction && util.DirExists("dist") {
		util.LogInfo("Serving assets from dist/ directory")
		baseTplDir = filepath.ToSlash(filepath.Join("dist", "templates"))
		router.Static("/static", "./dist/static")
	} else {
		util.LogInfo("Serving development assets from source directories")
		baseTplDir = "templates"
		router.Static("/static", "./static")
	}

	rootPattern := filepath.ToSlash(filepath.Join(baseTplDir, "*.html"))
	partialsPattern := filepath.ToSlash(filepath.Join(baseTplDir, "partials", "*.html"))

	master := template.New("").Funcs(funcMap)
	if _, err := master.ParseGlob(rootPattern); err != nil {
		util.LogFatal("Failed to parse root templates: %v", err)
	}
	if _, err := master.ParseGlob(partialsPattern); err != nil {
		util.LogFatal("Failed to parse partial templates: %v", err)
	}
	router.SetHTMLTemplate(master)

	router.GET(constants.RouteHome, wrap(app, handlers.HomeHandler))
	router.POST(constants.RouteSearch, middleware.RateLimit(app), wrap(app, handlers.SearchHandler))
	router.POST(constants.RouteRiddle, middleware.RateLimit(app), wrap(app, handlers.RiddleHandler))
	router.GET(constants.RouteGameState, wrap(app, handlers.GameStateHandler))
	router.POST(constants.RouteAnswer, wrap(app, handlers.AnswerHandler))
	router.POST(constants.RouteHint, wrap(app, handlers.HintHandler))
	router.POST(constants.RouteReset, wrap(app, handlers.ResetHandler))
	router.GET(constants.RouteHistory, wrap(app, handlers.HistoryHandler))
	router.POST(constants.RouteHistoryClear, wrap(app, handlers.HistoryClearHandler))
	router.POST(constants.RouteHistoryClose, wrap(app, handlers.HistoryCloseHandler))
	router.GET("/healthz", wrap(app, handlers.HealthzHandler))

	startCleanupRoutines(app)

	startServer(router)
}

func wrap(app *models.App, h func(*models.App, *gin.Context)) gin.HandlerFunc {
	return func(c *gin.Context) {
		h(app, c)
	}
}

// openStorage prefers the durable sqlite store and falls back to an
// in-memory one so a bad disk never blocks the game, only persistence.
func openStorage() storage.KV {
	path := util.GetEnvString("ENIGMO_DB", filepath.Join("data", "enigmo.db"))
	maxBytes := util.GetEnvInt("STORAGE_MAX_BYTES", 5*1024*1024)

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		util.LogWarn("Failed to create storage directory: %v", err)
	}
	kv, err := storage.OpenSQLite(path, maxBytes)
	if err != nil {
		util.LogWarn("Failed to open %s, history will not survive restarts: %v", path, err)
		return storage.NewMemoryStore(maxBytes)
	}
	util.LogInfo("Opened storage at %s (capacity %d bytes)", path, maxBytes)
	return kv
}

func startCleanupRoutines(app *models.App) {
	session.StartSessionCleanup(app)

	go func() {
		ticker := time.NewTicker(30 * time.Minute)
		defer ticker.Stop()

		for range ticker.C {
			middleware.CleanupStaleRateLimiters(app)
		}
	}()

	util.LogInfo("Started cleanup routines for sessions and rate limiters")
}

func startServer(router *gin.Engine) {
	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}
	srv := &http.Server{
		Addr:              ":" + port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      120 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	idleConnsClosed := make(chan struct{})
	go func() {
		sigint := make(chan os.Signal, 1)
		signal.Notify(sigint, syscall.SIGINT, syscall.SIGTERM)
		<-sigint
		util.LogInfo("Shutdown signal received, shutting down server gracefully...")
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(ctx); err != nil {
			util.LogWarn("HTTP server Shutdown: %v", err)
		}
		close(idleConnsClosed)
	}()

	util.LogInfo("Server starting on http://localhost:%s", port)
	if err := srv.ListenAndServe(); err != http.ErrServerClosed {
		util.LogFatal("Server failed to start: %v", err)
	}
	<-idleConnsClosed
	util.LogInfo("Server shutdown complete")
}

func applyCacheHeaders(app *models.App, c *gin.Context) {
	if app.IsProduction && strings.HasPrefix(c.Request.URL.Path, "/static/") {
		cachecontrol.New(cachecontrol.Config{
			Public: true,
			MaxAge: cachecontrol.Duration(app.StaticCacheAge),
		})(c)
		c.Header("Vary", "Accept-Encoding")
		return
	}
	cachecontrol.New(cachecontrol.Config{
		NoStore:        true,
		NoCache:        true,
		MustRevalidate: true,
	})(c)
}
