package server

import (
	"context"
	"database/sql"
	"encoding/json"
	"io"
	"log/slog"
	"net"
	"net/http"
	"os"
	"strconv"
	"time"

	"investment-ledger/internal/cache"
	"investment-ledger/internal/config"
	"investment-ledger/internal/handler"
	"investment-ledger/internal/ledger"
	"investment-ledger/internal/repository"
	"investment-ledger/internal/service"

	"github.com/go-redis/redis/v8"
	"github.com/gorilla/mux"
	_ "github.com/lib/pq"
)

// Server represents the HTTP server
type Server struct {
	router *mux.Router
	server *http.Server
	db     *sql.DB
	redis  *redis.Client
	logger *slog.Logger
	port   string
}

// NewServer creates a new server instance
func NewServer(cfg *config.Config, logger *slog.Logger) (*Server, error) {
	// Initialize database connection
	db, err := sql.Open("postgres", cfg.GetDBConnectionString())
	if err != nil {
		return nil, err
	}

	db.SetMaxOpenConns(cfg.DBMaxOpenConns)
	db.SetMaxIdleConns(cfg.DBMaxIdleConns)
	db.SetConnMaxLifetime(cfg.DBConnMaxLifetime)

	// Test database connection
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, err
	}

	if logger != nil {
		logger.Info("Successfully connected to database")
	}

	// Redis is optional; the service runs without the account cache.
	var redisClient *redis.Client
	if cfg.RedisAddr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		if err := redisClient.Ping(context.Background()).Err(); err != nil {
			if logger != nil {
				logger.Warn("Redis unavailable, continuing without account cache", "error", err)
			}
			redisClient.Close()
			redisClient = nil
		}
	}

	// Initialize store (Unit of Work)
	store := repository.NewStore(db, logger)
	accountCache := cache.New(redisClient, cfg.CacheTTL, logger)

	// Initialize services and the ledger engine
	engine := ledger.NewEngine(store, accountCache, logger)
	accountService := service.NewAccountService(store, accountCache, logger)
	queryService := service.NewQueryService(store, logger)
	authService := service.NewAuthService(store, cfg.JWTSecret, cfg.JWTExpiry, logger)

	// Initialize handlers
	guard := handler.NewGuard(store, logger)
	userHandler := handler.NewUserHandler(authService)
	accountHandler := handler.NewAccountHandler(accountService, guard)
	transactionHandler := handler.NewTransactionHandler(engine, queryService, guard)
	reportHandler := handler.NewReportHandler(queryService)

	// Setup router
	router := mux.NewRouter()

	// Add middleware for logging
	router.Use(loggingMiddleware(logger))

	// Open routes
	router.HandleFunc("/users", userHandler.Register).Methods("POST")
	router.HandleFunc("/login", userHandler.Login).Methods("POST")

	// Health check
	router.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		if err := db.Ping(); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			json.NewEncoder(w).Encode(map[string]string{"status": "unhealthy", "error": "database unavailable"})
			return
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]string{
			"status":    "healthy",
			"timestamp": time.Now().UTC().Format(time.RFC3339),
		})
	}).Methods("GET")

	// Authenticated routes
	authed := router.NewRoute().Subrouter()
	authed.Use(authMiddleware(authService))

	authed.HandleFunc("/account-types", accountHandler.CreateAccountType).Methods("POST")
	authed.HandleFunc("/account-types", accountHandler.ListAccountTypes).Methods("GET")

	authed.HandleFunc("/accounts", accountHandler.OpenAccount).Methods("POST")
	authed.HandleFunc("/accounts", accountHandler.ListAccounts).Methods("GET")
	authed.HandleFunc("/accounts/{account_id}", accountHandler.GetAccount).Methods("GET")
	authed.HandleFunc("/accounts/{account_id}", accountHandler.CloseAccount).Methods("DELETE")

	authed.HandleFunc("/transactions", transactionHandler.Create).Methods("POST")
	authed.HandleFunc("/transactions", transactionHandler.List).Methods("GET")
	authed.HandleFunc("/transactions/{transaction_id}", transactionHandler.Get).Methods("GET")
	authed.HandleFunc("/transactions/{transaction_id}", transactionHandler.Update).Methods("PUT")
	authed.HandleFunc("/transactions/{transaction_id}", transactionHandler.Delete).Methods("DELETE")

	authed.HandleFunc("/admin/transactions", reportHandler.UserStatement).Methods("GET")

	return &Server{
		router: router,
		db:     db,
		redis:  redisClient,
		logger: logger,
	}, nil
}

// Start starts the HTTP server on the specified port
func (s *Server) Start(port string) (string, error) {
	// Create listener first to get actual port
	listener, err := net.Listen("tcp", ":"+port)
	if err != nil {
		return "", err
	}

	// Get the actual port being used
	addr := listener.Addr().(*net.TCPAddr)
	s.port = strconv.Itoa(addr.Port)

	s.server = &http.Server{
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	if s.logger != nil {
		s.logger.Info("Starting server", "port", s.port)
	}

	// Start server in background
	go func() {
		if err := s.server.Serve(listener); err != nil && err != http.ErrServerClosed {
			if s.logger != nil {
				s.logger.Error("Server failed to start", "error", err)
			}
		}
	}()

	return s.port, nil
}

// Stop gracefully shuts down the server
func (s *Server) Stop(ctx context.Context) error {
	if s.logger != nil {
		s.logger.Info("Shutting down server")
	}

	if s.db != nil {
		s.db.Close()
	}

	if s.redis != nil {
		s.redis.Close()
	}

	if s.server != nil {
		return s.server.Shutdown(ctx)
	}
	return nil
}

// GetPort returns the port the server is listening on
func (s *Server) GetPort() string {
	return s.port
}

// GetBaseURL returns the base URL for the server
func (s *Server) GetBaseURL() string {
	return "http://localhost:" + s.port
}

// GetRouter returns the router for testing purposes
func (s *Server) GetRouter() *mux.Router {
	return s.router
}

// StartServer starts the server with the given configuration
func StartServer(cfg *config.Config) (*Server, string, error) {
	// Initialize logger - use io.Discard for tests to avoid noisy output
	var logger *slog.Logger
	if cfg.ServerPort == "0" {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	} else {
		logger = slog.New(slog.NewJSONHandler(os.Stdout, nil))
	}

	server, err := NewServer(cfg, logger)
	if err != nil {
		return nil, "", err
	}

	port, err := server.Start(cfg.ServerPort)
	if err != nil {
		return nil, "", err
	}

	return server, port, nil
}
