// internal/app/server.go
package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"time"

	"taskhub-service/internal/config"
	"taskhub-service/internal/db"
	authHandler "taskhub-service/internal/handlers/auth"
	fileHandler "taskhub-service/internal/handlers/file"
	taskHandler "taskhub-service/internal/handlers/task"
	userHandler "taskhub-service/internal/handlers/user"
	wsHandler "taskhub-service/internal/handlers/websocket"
	"taskhub-service/internal/middleware"
	"taskhub-service/internal/pkg/cache"
	"taskhub-service/internal/pkg/jwt"
	"taskhub-service/internal/pkg/metrics"
	"taskhub-service/internal/pkg/session"
	"taskhub-service/internal/repository/postgres"
	authUsecase "taskhub-service/internal/service/auth"
	fileUsecase "taskhub-service/internal/service/file"
	taskUsecase "taskhub-service/internal/service/task"
	userUsecase "taskhub-service/internal/service/user"
	"taskhub-service/internal/storage"
	"taskhub-service/internal/websocket"
	wsHandlers "taskhub-service/internal/websocket/handler"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

type Server struct {
	cfg     config.AppConfig
	engine  *gin.Engine
	http    *http.Server
	logger  *zap.Logger
	pool    *pgxpool.Pool
	sqlDB   *sql.DB
	redis   *redis.Client
	gateway *websocket.Gateway
	stop    context.CancelFunc
}

// NewServer connects every backing service and wires the application.
// Resources opened before a failure are released.
func NewServer(ctx context.Context, cfg config.AppConfig, logger *zap.Logger) (_ *Server, err error) {
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	s := &Server{cfg: cfg, logger: logger, engine: gin.New()}
	defer func() {
		if err != nil {
			s.closeBackends()
		}
	}()

	// ----- PostgreSQL -----
	s.pool, err = db.ConnectDB(ctx, db.PostgresConfig{
		URL:             cfg.DatabaseURL,
		MaxConns:        20,
		MaxConnLifetime: time.Hour,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to PostgreSQL: %w", err)
	}
	s.sqlDB = db.SQLDB(s.pool)
	if err := db.Migrate(ctx, s.sqlDB); err != nil {
		return nil, fmt.Errorf("failed to migrate: %w", err)
	}
	logger.Info("database ready")

	// ----- Redis (optional) -----
	var (
		cacheStore cache.Store = cache.Noop{}
		limiter    authUsecase.LoginLimiter
	)
	if cfg.RedisAddr != "" {
		client, rerr := db.NewRedisClient(ctx, db.RedisConfig{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPass,
			DB:       cfg.RedisDB,
			PoolSize: 10,
		})
		if rerr != nil {
			logger.Warn("redis unavailable, running without cache and login throttling", zap.Error(rerr))
		} else {
			s.redis = client
			cacheStore = cache.NewRedisCache(client, cache.DefaultTTL, logger)
			limiter = session.NewRateLimiter(client)
		}
	}

	// ----- Tokens, metrics -----
	tokens, err := jwt.LoadAndBuild(cfg.JWT, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build jwt manager: %w", err)
	}
	m := metrics.New()

	// ----- Blob storage -----
	blobs, err := newBlobStore(ctx, cfg)
	if err != nil {
		return nil, err
	}

	// ----- Services -----
	authService := authUsecase.NewAuthService(
		postgres.NewStore(s.sqlDB),
		tokens,
		limiter,
		cacheStore,
		m,
		logger,
		authUsecase.Config{RefreshTTL: cfg.RefreshTTL},
	)

	s.gateway = websocket.NewGateway(authService, m, logger, websocket.Config{
		AuthTimeout:    cfg.WSAuthTimeout,
		AllowedOrigins: cfg.CORSOrigin,
	})
	s.gateway.RegisterHandler(wsHandlers.NewRoomHandler(s.gateway, logger))

	taskService := taskUsecase.NewTaskService(postgres.NewTaskRepository(s.sqlDB), cacheStore, s.gateway, logger)
	userService := userUsecase.NewUserService(postgres.NewUserRepository(s.sqlDB), cacheStore, s.gateway, logger)
	fileService := fileUsecase.NewFileService(postgres.NewFileRepository(s.sqlDB), blobs, cfg.MaxFileSize, logger)

	// ----- Seed admin -----
	if err := authService.EnsureAdmin(ctx, cfg.AdminEmail, cfg.AdminPassword, cfg.AdminName); err != nil {
		// Don't fail startup, just log the error
		logger.Error("failed to ensure admin account", zap.Error(err))
	}

	// ----- Background -----
	bg, stop := context.WithCancel(context.Background())
	s.stop = stop
	go authService.RunSweeper(bg, cfg.RefreshSweepInterval)

	// ----- Middlewares -----
	s.engine.Use(
		middleware.LoggingMiddleware(logger, m),
		middleware.RecoveryMiddleware(logger),
		middleware.CORSMiddleware(cfg.CORSOrigin),
	)

	// ----- Router -----
	SetupRouter(s.engine, &Handlers{
		AuthHandler:    authHandler.NewAuthHandler(authService, logger),
		UserHandler:    userHandler.NewUserHandler(userService, logger),
		TaskHandler:    taskHandler.NewTaskHandler(taskService),
		FileHandler:    fileHandler.NewFileHandler(fileService, logger),
		WSHandler:      wsHandler.NewWebSocketHandler(s.gateway),
		AuthMiddleware: middleware.NewAuthMiddleware(authService),
		Metrics:        m.Handler(),
	})

	s.http = &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s, nil
}

// Start serves HTTP until Shutdown is called.
func (s *Server) Start() error {
	s.logger.Info("server running", zap.String("addr", s.cfg.HTTPAddr), zap.String("env", s.cfg.AppEnv))
	if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown drains HTTP, closes realtime connections, then the backends.
func (s *Server) Shutdown(ctx context.Context) error {
	var errs []error
	if err := s.http.Shutdown(ctx); err != nil {
		errs = append(errs, fmt.Errorf("http shutdown: %w", err))
	}
	// hijacked websocket connections are not tracked by http.Server
	if err := s.gateway.Shutdown(ctx); err != nil {
		errs = append(errs, fmt.Errorf("gateway shutdown: %w", err))
	}
	if s.stop != nil {
		s.stop()
	}
	s.closeBackends()
	return errors.Join(errs...)
}

func (s *Server) closeBackends() {
	if s.redis != nil {
		if err := s.redis.Close(); err != nil {
			s.logger.Warn("failed to close redis", zap.Error(err))
		}
	}
	if s.sqlDB != nil {
		_ = s.sqlDB.Close()
	}
	if s.pool != nil {
		s.pool.Close()
	}
}

func newBlobStore(ctx context.Context, cfg config.AppConfig) (storage.BlobStore, error) {
	switch cfg.StorageDriver {
	case "s3":
		store, err := storage.NewS3Store(ctx, storage.S3Config{
			Bucket:    cfg.S3.Bucket,
			Region:    cfg.S3.Region,
			Endpoint:  cfg.S3.Endpoint,
			AccessKey: cfg.S3.AccessKey,
			SecretKey: cfg.S3.SecretKey,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to configure s3 storage: %w", err)
		}
		return store, nil
	default:
		store, err := storage.NewLocalStore(cfg.UploadDir)
		if err != nil {
			return nil, fmt.Errorf("failed to prepare upload dir: %w", err)
		}
		return store, nil
	}
}
