package server

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/mux"

	"bank-ledger/internal/config"
	"bank-ledger/internal/domain"
	"bank-ledger/internal/events"
	"bank-ledger/internal/handler"
	"bank-ledger/internal/repository"
	"bank-ledger/internal/repository/gormstore"
	"bank-ledger/internal/repository/memory"
	"bank-ledger/internal/service"
)

// Server represents the HTTP server
type Server struct {
	router    *mux.Router
	server    *http.Server
	backend   *backend
	publisher events.Publisher
	logger    *slog.Logger
	port      string
}

// backend is an opened ledger together with its health check and teardown.
type backend struct {
	ledger domain.Ledger
	ping   func(ctx context.Context) error
	close  func() error
}

// NewServer opens the configured store and wires services and handlers
// over it.
func NewServer(cfg *config.Config, logger *slog.Logger) (*Server, error) {
	b, err := openBackend(cfg, logger)
	if err != nil {
		return nil, err
	}

	var publisher events.Publisher = events.NopPublisher{}
	if len(cfg.KafkaBrokers) > 0 {
		publisher = events.NewKafkaPublisher(cfg.KafkaBrokers, cfg.KafkaTopic)
		logger.Info("Publishing ledger events", "brokers", cfg.KafkaBrokers, "topic", cfg.KafkaTopic)
	}

	accountService := service.NewAccountService(b.ledger, logger)
	transactionService := service.NewTransactionService(b.ledger, publisher, logger)

	accountHandler := handler.NewAccountHandler(accountService)
	transactionHandler := handler.NewTransactionHandler(transactionService)

	router := mux.NewRouter()
	router.Use(loggingMiddleware(logger))
	handler.RegisterRoutes(router, accountHandler, transactionHandler)

	router.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if err := b.ping(r.Context()); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			json.NewEncoder(w).Encode(map[string]string{"status": "unhealthy", "error": "store unavailable"})
			return
		}

		json.NewEncoder(w).Encode(map[string]string{
			"status":    "healthy",
			"store":     cfg.StoreDriver,
			"timestamp": time.Now().UTC().Format(time.RFC3339),
		})
	}).Methods("GET")

	return &Server{
		router:    router,
		backend:   b,
		publisher: publisher,
		logger:    logger,
	}, nil
}

func openBackend(cfg *config.Config, logger *slog.Logger) (*backend, error) {
	switch cfg.StoreDriver {
	case config.DriverPostgres, config.DriverSQLite:
		dialect, err := repository.DialectFor(cfg.StoreDriver)
		if err != nil {
			return nil, err
		}
		dsn := cfg.GetDBConnectionString()
		if dialect == repository.SQLite {
			dsn = repository.SQLiteDSN(cfg.SQLitePath)
		}

		if cfg.AutoMigrate {
			if err := repository.Migrate(dialect, dsn, logger); err != nil {
				return nil, err
			}
		}

		db, err := repository.Open(dialect, dsn)
		if err != nil {
			return nil, fmt.Errorf("open %s: %w", dialect.Name, err)
		}
		logger.Info("Successfully connected to database", "driver", dialect.Name)

		store := repository.NewStore(db, dialect, logger)
		return &backend{ledger: store, ping: store.Ping, close: db.Close}, nil

	case config.DriverMySQL:
		client, err := gormstore.Open(gormstore.Config{
			Host:            cfg.DBHost,
			Port:            cfg.MySQLPort(),
			User:            cfg.DBUser,
			Password:        cfg.DBPassword,
			DBName:          cfg.DBName,
			MaxOpenConns:    25,
			MaxIdleConns:    25,
			ConnMaxLifetime: 5 * time.Minute,
			LogLevel:        gormLogLevel(cfg.LogLevel),
			ConnectRetries:  5,
		}, logger)
		if err != nil {
			return nil, err
		}
		if cfg.AutoMigrate {
			if err := client.AutoMigrate(); err != nil {
				client.Close()
				return nil, fmt.Errorf("auto migrate: %w", err)
			}
		}
		logger.Info("Successfully connected to database", "driver", config.DriverMySQL)

		ping := func(ctx context.Context) error {
			sqlDB, err := client.DB().DB()
			if err != nil {
				return err
			}
			return sqlDB.PingContext(ctx)
		}
		return &backend{ledger: gormstore.NewStore(client, logger), ping: ping, close: client.Close}, nil

	case config.DriverMemory:
		logger.Warn("Using in-memory store; data is lost on shutdown")
		return &backend{
			ledger: memory.NewStore(logger),
			ping:   func(context.Context) error { return nil },
			close:  func() error { return nil },
		}, nil
	}
	return nil, fmt.Errorf("unknown store driver %q", cfg.StoreDriver)
}

func gormLogLevel(level string) string {
	if strings.EqualFold(level, "debug") {
		return "info"
	}
	return "warn"
}

// loggingMiddleware adds request logging
func loggingMiddleware(logger *slog.Logger) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

			next.ServeHTTP(ww, r)

			logger.Info("request completed",
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.statusCode,
				"duration", time.Since(start),
				"user_agent", r.UserAgent(),
			)
		})
	}
}

// responseWriter wraps http.ResponseWriter to capture status code
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// Start listens on port ("0" picks a free one) and serves in the background.
func (s *Server) Start(port string) (string, error) {
	listener, err := net.Listen("tcp", ":"+port)
	if err != nil {
		return "", err
	}

	addr := listener.Addr().(*net.TCPAddr)
	s.port = strconv.Itoa(addr.Port)

	s.server = &http.Server{
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	s.logger.Info("Starting server", "port", s.port)

	go func() {
		if err := s.server.Serve(listener); err != nil && err != http.ErrServerClosed {
			s.logger.Error("Server failed to start", "error", err)
		}
	}()

	return s.port, nil
}

// Stop drains in-flight requests, then releases the store and publisher.
func (s *Server) Stop(ctx context.Context) error {
	s.logger.Info("Shutting down server")

	var shutdownErr error
	if s.server != nil {
		shutdownErr = s.server.Shutdown(ctx)
	}

	if err := s.publisher.Close(); err != nil {
		s.logger.Warn("Failed to close event publisher", "error", err)
	}
	if err := s.backend.close(); err != nil {
		s.logger.Warn("Failed to close store", "error", err)
	}
	return shutdownErr
}

func (s *Server) GetPort() string {
	return s.port
}

func (s *Server) GetBaseURL() string {
	return "http://localhost:" + s.port
}

// GetRouter returns the router for testing purposes
func (s *Server) GetRouter() *mux.Router {
	return s.router
}

// NewLogger builds the JSON logger at the configured level.
func NewLogger(w io.Writer, level string) *slog.Logger {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: lvl}))
}

// StartServer starts the server with the given configuration
func StartServer(cfg *config.Config) (*Server, string, error) {
	var logger *slog.Logger
	if cfg.ServerPort == "0" {
		// Tests pick a random port and don't want request logs.
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	} else {
		logger = NewLogger(os.Stdout, cfg.LogLevel)
	}

	server, err := NewServer(cfg, logger)
	if err != nil {
		return nil, "", err
	}

	port, err := server.Start(cfg.ServerPort)
	if err != nil {
		server.Stop(context.Background())
		return nil, "", err
	}

	return server, port, nil
}
