package main

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"
	httpSwagger "github.com/swaggo/http-swagger"

	"github.com/sbilibin2017/culinary-connect/internal/config"
	"github.com/sbilibin2017/culinary-connect/internal/handlers"
	"github.com/sbilibin2017/culinary-connect/internal/logger"
	"github.com/sbilibin2017/culinary-connect/internal/middlewares"
	"github.com/sbilibin2017/culinary-connect/internal/repositories"
	"github.com/sbilibin2017/culinary-connect/internal/services"
	"github.com/sbilibin2017/culinary-connect/internal/token"
)

// requestTimeout bounds the time a handler may spend on one request.
const requestTimeout = 60 * time.Second

// newRouter wires repositories, services and handlers into the HTTP router.
// rdb and kafkaWriter are optional.
func newRouter(
	cfg *config.Config,
	db *sqlx.DB,
	rdb *redis.Client,
	storage services.ImageStorage,
	kafkaWriter services.KafkaWriter,
) http.Handler {
	// Initialize repositories
	userReadRepo := repositories.NewUserReadRepository(db, middlewares.GetTxFromContext)
	userWriteRepo := repositories.NewUserWriteRepository(db, middlewares.GetTxFromContext)
	tokenRepo := repositories.NewTokenRepository(db, middlewares.GetTxFromContext)
	recipeReadRepo := repositories.NewRecipeReadRepository(db, middlewares.GetTxFromContext)
	recipeWriteRepo := repositories.NewRecipeWriteRepository(db, middlewares.GetTxFromContext)

	var tokenCache services.TokenCache
	if rdb != nil {
		tokenCache = repositories.NewTokenCacheRepository(rdb, cfg.TokenCacheTTL)
	}

	// Initialize services
	tokener := token.New()
	authService := services.NewAuthService(userReadRepo, userWriteRepo, tokenRepo, tokener, tokenCache)
	userService := services.NewUserService(userWriteRepo, tokenRepo, tokenCache)
	recipeService := services.NewRecipeService(recipeReadRepo, recipeWriteRepo, userReadRepo, storage, kafkaWriter)

	// Middlewares
	auth := middlewares.AuthMiddleware(tokener, authService)
	optionalAuth := middlewares.OptionalAuthMiddleware(tokener, authService)
	tx := middlewares.TxMiddleware(db)
	loginLimit := passThrough
	registerLimit := passThrough
	if rdb != nil {
		loginLimiter := middlewares.NewRateLimiter(rdb, "login", cfg.RateLimitRequests, cfg.RateLimitWindow)
		registerLimiter := middlewares.NewRateLimiter(rdb, "register", cfg.RateLimitRequests, cfg.RateLimitWindow)
		logger.Log.Infow("rate limiting enabled", "login", loginLimiter.String(), "register", registerLimiter.String())
		loginLimit = loginLimiter.Middleware
		registerLimit = registerLimiter.Middleware
	}

	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middlewares.LoggingMiddleware)
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.StripSlashes)
	r.Use(chimiddleware.RequestSize(cfg.MaxBodyBytes))
	r.Use(chimiddleware.Timeout(requestTimeout))

	r.Route("/api", func(r chi.Router) {
		// Accounts
		r.With(loginLimit, tx).Post("/login", handlers.NewLoginHandler(authService))
		r.With(registerLimit, tx).Post("/users/register", handlers.NewRegisterHandler(authService))

		r.Group(func(r chi.Router) {
			r.Use(auth)
			r.Get("/users/profile", handlers.NewGetProfileHandler())
			r.Get("/my-recipes", handlers.NewMyRecipesHandler(recipeService))

			// Recipe writes store images outside the database, so they run without a request transaction.
			r.Post("/recipes", handlers.NewCreateRecipeHandler(recipeService, cfg.MaxUploadBytes))
			r.Put("/recipes/{id}", handlers.NewUpdateRecipeHandler(recipeService, cfg.MaxUploadBytes, false))
			r.Patch("/recipes/{id}", handlers.NewUpdateRecipeHandler(recipeService, cfg.MaxUploadBytes, true))
			r.Delete("/recipes/{id}", handlers.NewDeleteRecipeHandler(recipeService))
			r.Post("/recipes/{id}/upload-image", handlers.NewUploadImageHandler(recipeService, cfg.MaxUploadBytes))

			// Authentication runs before the transaction opens; SQLite has a single connection.
			r.Group(func(r chi.Router) {
				r.Use(tx)
				r.Post("/users/logout", handlers.NewLogoutHandler(authService))
				r.Put("/users/profile", handlers.NewUpdateProfileHandler(userService, false))
				r.Patch("/users/profile", handlers.NewUpdateProfileHandler(userService, true))
				r.Delete("/users/delete", handlers.NewDeactivateHandler(userService))
			})
		})

		r.With(optionalAuth).Get("/recipes", handlers.NewListRecipesHandler(recipeService))
		r.With(optionalAuth).Get("/recipes/{id}", handlers.NewGetRecipeHandler(recipeService))
		r.Get("/users/{username}/public-recipes", handlers.NewPublicRecipesHandler(recipeService))
	})

	r.Get("/health", handlers.NewHealthHandler(db))
	r.Get("/swagger/*", httpSwagger.Handler(
		httpSwagger.URL(cfg.BaseURL+"/swagger/doc.json"),
	))

	if cfg.Debug && cfg.StorageBackend == config.StorageLocal && strings.HasPrefix(cfg.MediaURL, "/") {
		prefix := strings.TrimSuffix(cfg.MediaURL, "/")
		fs := http.StripPrefix(prefix, http.FileServer(http.Dir(cfg.MediaRoot)))
		r.Get(prefix+"/*", fs.ServeHTTP)
		logger.Log.Infow("serving media files", "url", cfg.MediaURL, "root", cfg.MediaRoot)
	}

	return r
}

func passThrough(next http.Handler) http.Handler {
	return next
}

// mediaBaseURL returns the URL prefix under which locally stored images are served.
func mediaBaseURL(cfg *config.Config) string {
	if strings.HasPrefix(cfg.MediaURL, "http://") || strings.HasPrefix(cfg.MediaURL, "https://") {
		return cfg.MediaURL
	}
	return cfg.BaseURL + cfg.MediaURL
}
