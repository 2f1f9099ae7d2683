package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"bookstore/internal/config"
	"bookstore/internal/database"
	"bookstore/internal/events"
	custommiddleware "bookstore/internal/middleware"
	"bookstore/internal/repository"
	"bookstore/internal/service"
	"bookstore/internal/transport"

	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

type Server struct {
	*http.Server
	config    *config.Config
	logger    *zap.Logger
	db        database.Service
	redis     *redis.Client
	publisher events.Publisher
	repos     repository.Repositories
	users     service.UserService
}

// NewServer wires repositories, services and handlers onto a chi router.
// A nil redis client disables rate limiting.
func NewServer(cfg *config.Config, logger *zap.Logger, db database.Service, redisClient *redis.Client, publisher events.Publisher) (*Server, error) {
	router := chi.NewRouter()

	router.Use(custommiddleware.DefaultMiddlewareStack()...)
	router.Use(custommiddleware.LoggingMiddleware(logger))
	router.Use(custommiddleware.ErrorHandlingMiddleware(logger))
	router.Use(custommiddleware.CORSMiddleware(cfg.Server.AllowedOrigins, cfg.Server.IsDevelopment()))
	if redisClient != nil {
		router.Use(custommiddleware.RateLimitMiddleware(redisClient, custommiddleware.RateLimitConfig{
			RequestsPerWindow: cfg.RateLimit.Requests,
			Window:            cfg.RateLimit.Window,
			KeyPrefix:         "bookstore:ratelimit",
		}, logger))
	}

	router.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		health := db.Health()
		status := http.StatusOK
		if health["status"] != "up" {
			status = http.StatusServiceUnavailable
		}
		if redisClient != nil {
			health["redis"] = "up"
			if err := redisClient.Ping(r.Context()).Err(); err != nil {
				health["redis"] = "down"
			}
		}
		custommiddleware.RespondWithJSON(w, status, health)
	})

	repos := repository.NewRepositories(db.DB())
	tx := repository.NewTransactor(db.DB())

	userService := service.NewUserService(repos, tx, service.TokenConfig{
		Secret:     cfg.JWT.Secret,
		AccessTTL:  time.Duration(cfg.JWT.AccessExpiry) * time.Minute,
		RefreshTTL: time.Duration(cfg.JWT.RefreshExpiry) * 24 * time.Hour,
	})
	catalogService, err := service.NewCatalogService(repos.Books, repos.Authors, cfg.Catalog.AuthorCacheSize)
	if err != nil {
		return nil, err
	}
	cartService := service.NewCartService(repos.Users, repos.Carts, repos.Books)
	addressService := service.NewAddressService(repos.Addresses)
	orderService := service.NewOrderService(repos, tx, publisher, logger)
	inventoryService := service.NewInventoryService(tx, repos.Authors)

	authMiddleware := custommiddleware.AuthMiddleware(userService, logger)

	transport.NewUserHandler(userService, logger).RegisterRoutes(router, authMiddleware)
	transport.NewCatalogHandler(catalogService, logger).RegisterRoutes(router)
	transport.NewCartHandler(cartService, logger).RegisterRoutes(router, authMiddleware)
	transport.NewAddressHandler(addressService, logger).RegisterRoutes(router, authMiddleware)
	transport.NewOrderHandler(orderService, logger).RegisterRoutes(router, authMiddleware)
	transport.NewAdminHandler(inventoryService, catalogService, orderService, logger).RegisterRoutes(router, authMiddleware)

	return &Server{
		Server: &http.Server{
			Addr:         fmt.Sprintf(":%s", cfg.Server.Port),
			Handler:      router,
			IdleTimeout:  time.Minute,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 30 * time.Second,
		},
		config:    cfg,
		logger:    logger,
		db:        db,
		redis:     redisClient,
		publisher: publisher,
		repos:     repos,
		users:     userService,
	}, nil
}

// Bootstrap seeds the administrator account and prunes expired refresh tokens
func (s *Server) Bootstrap(ctx context.Context) error {
	if s.config.Admin.Password != "" {
		created, err := s.users.EnsureAdmin(ctx, s.config.Admin.Username, s.config.Admin.Email, s.config.Admin.Password)
		if err != nil {
			return fmt.Errorf("failed to seed admin: %w", err)
		}
		if created {
			s.logger.Info("Admin account created", zap.String("username", s.config.Admin.Username))
		}
	}

	removed, err := s.repos.RefreshTokens.DeleteExpired(ctx, time.Now())
	if err != nil {
		return fmt.Errorf("failed to prune refresh tokens: %w", err)
	}
	if removed > 0 {
		s.logger.Info("Pruned expired refresh tokens", zap.Int64("count", removed))
	}

	return nil
}

func (s *Server) Close() error {
	s.logger.Info("Closing server resources")

	if err := s.publisher.Close(); err != nil {
		s.logger.Error("Failed to close event publisher", zap.Error(err))
	}

	if s.redis != nil {
		if err := s.redis.Close(); err != nil {
			s.logger.Error("Failed to close redis client", zap.Error(err))
		}
	}

	if err := s.db.Close(); err != nil {
		s.logger.Error("Failed to close database connection", zap.Error(err))
	}

	_ = s.logger.Sync()
	return nil
}
