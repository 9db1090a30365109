package main

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/openfield/identity/internal/db"
	"github.com/openfield/identity/internal/handlers"
	"github.com/openfield/identity/internal/handlers/middleware"
	"github.com/openfield/identity/internal/logger"
	"github.com/openfield/identity/internal/mq"
	"github.com/openfield/identity/internal/repository/postgres"
	"github.com/openfield/identity/internal/service/auth"
	"github.com/openfield/identity/internal/service/auth/tokenmanager"
	"github.com/openfield/identity/internal/service/favorite"
	"github.com/openfield/identity/internal/service/notify"
	"github.com/openfield/identity/internal/service/passreset"
	"github.com/openfield/identity/internal/service/user"
)

const blacklistSweepInterval = time.Hour

type ServerApp struct {
	ListenAddr string
	Handler    http.Handler

	logger    logger.Logger
	blacklist *auth.Blacklist
	publisher *mq.Publisher
}

func NewServerApp(ctx context.Context, c *Config) (*ServerApp, error) {
	log, err := logger.New(c.Environment, c.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("error while initializing logger: %w", err)
	}

	// Connect to the database and run migrations
	pool, err := db.ConnectAndMigrate(ctx, c.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("error while connecting to db. Err: %w", err)
	}

	storage := postgres.NewStorage(pool)

	tokenManager, err := tokenmanager.New(tokenmanager.Config{
		SecretKey:  c.SecretKey,
		AccessTTL:  c.AccessTokenTTL,
		RefreshTTL: c.RefreshTokenTTL,
	})
	if err != nil {
		return nil, fmt.Errorf("error while creating token manager. Err: %w", err)
	}

	// Outgoing mail and events go through the broker when configured,
	// otherwise they are dropped
	var mailer passreset.Mailer = mq.Nop{}
	var events notify.EventPublisher = mq.Nop{}
	var publisher *mq.Publisher
	if c.AMQPURL != "" {
		publisher, err = mq.Connect(c.AMQPURL)
		if err != nil {
			return nil, fmt.Errorf("error while connecting to amqp broker. Err: %w", err)
		}
		mailer = publisher
		events = publisher
	}

	blacklist := auth.NewBlacklist(storage, c.RefreshTokenTTL, tokenManager.Expiry, log)

	authService, err := auth.NewService(auth.Config{Logger: log}, tokenManager, blacklist, storage)
	if err != nil {
		return nil, fmt.Errorf("error while creating auth service. Err: %w", err)
	}
	resetService, err := passreset.NewService(passreset.Config{Logger: log}, storage, mailer)
	if err != nil {
		return nil, fmt.Errorf("error while creating password reset service. Err: %w", err)
	}
	notifyService, err := notify.NewService(notify.Config{Logger: log}, storage, events)
	if err != nil {
		return nil, fmt.Errorf("error while creating notification service. Err: %w", err)
	}
	userService := user.NewService(storage)
	favoriteService := favorite.NewService(storage)

	var rdb *redis.Client
	if c.RedisAddr != "" {
		rdb = redis.NewClient(&redis.Options{Addr: c.RedisAddr})
	}

	mux := handlers.NewRouter(handlers.RouterConfig{
		Auth:          authService,
		Validator:     authService,
		Reset:         resetService,
		Users:         userService,
		Favorites:     favoriteService,
		Notifications: notifyService,
		Redis:         rdb,
		RateLimit:     middleware.DefaultRateLimit(),
		Logger:        log,
	})

	return &ServerApp{
		ListenAddr: c.ListenAddr,
		Handler:    mux,
		logger:     log,
		blacklist:  blacklist,
		publisher:  publisher,
	}, nil
}

// Run starts http server and closes gracefully on context cancellation
func (s *ServerApp) Run(ctx context.Context) error {
	httpServer := &http.Server{
		Addr:    s.ListenAddr,
		Handler: s.Handler,
	}

	idleConnsClosed := make(chan struct{})
	srvCtx, srvCtxCancel := context.WithCancel(ctx)
	defer srvCtxCancel()

	// Expired revocation rows keep no tokens out, only disk space
	go s.blacklist.RunSweeper(srvCtx, blacklistSweepInterval)

	go func() {
		<-srvCtx.Done()

		timeoutCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := httpServer.Shutdown(timeoutCtx); err == context.DeadlineExceeded {
			s.logger.Error("HTTP server shutdown timeout exceeded, forcing shutdown...")
		}

		if s.publisher != nil {
			if err := s.publisher.Close(); err != nil {
				s.logger.Warn("AMQP publisher close failed", "error", err)
			}
		}

		s.logger.Info("HTTP server stopped")
		close(idleConnsClosed)
	}()

	s.logger.Info("Starting server", "addr", s.ListenAddr)
	err := httpServer.ListenAndServe()
	srvCtxCancel()
	<-idleConnsClosed

	return err
}
