// Command server starts the scorekeep auth and user HTTP API.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"

	"github.com/scorekeep/scorekeep/internal/auth"
	"github.com/scorekeep/scorekeep/internal/config"
	"github.com/scorekeep/scorekeep/internal/httpapi"
	"github.com/scorekeep/scorekeep/internal/mail"
	"github.com/scorekeep/scorekeep/internal/password"
	"github.com/scorekeep/scorekeep/internal/store/mongostore"
	"github.com/scorekeep/scorekeep/internal/token"
	"github.com/scorekeep/scorekeep/internal/user"
)

func main() {
	logger, _ := zap.NewProduction()
	defer func() { _ = logger.Sync() }()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("config", zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	mongoClient, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.DatabaseURL))
	if err != nil {
		logger.Fatal("mongo connect", zap.Error(err))
	}
	defer func() {
		disconnectCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = mongoClient.Disconnect(disconnectCtx)
	}()
	if err := mongoClient.Ping(ctx, nil); err != nil {
		logger.Fatal("mongo ping", zap.Error(err))
	}

	users := mongostore.NewUsers(mongoClient.Database(cfg.DatabaseName))
	if err := users.EnsureIndexes(ctx); err != nil {
		logger.Fatal("mongo indexes", zap.Error(err))
	}

	codecs, err := buildCodecs(cfg.Keys)
	if err != nil {
		logger.Fatal("token codecs", zap.Error(err))
	}

	mailer, err := mail.NewSMTP(cfg.SMTP.Host, cfg.SMTP.Port, cfg.SMTP.Username, cfg.SMTP.Password, cfg.SMTP.From)
	if err != nil {
		logger.Fatal("mail client", zap.Error(err))
	}

	hasher := password.NewHasher(cfg.BcryptCost)
	authSvc := auth.NewService(codecs, users, hasher, mailer, cfg.TestPwd, logger)
	userSvc := user.NewService(codecs, users, hasher)

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           httpapi.New(authSvc, userSvc, logger).Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening", zap.String("addr", cfg.Addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("shutdown", zap.Error(err))
		}
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", zap.Error(err))
			os.Exit(1)
		}
	}

	logger.Info("shutdown complete")
}

func buildCodecs(keys config.Keys) (auth.Codecs, error) {
	code, err := token.NewCodec(keys.Code.Encrypt, keys.Code.Sign)
	if err != nil {
		return auth.Codecs{}, err
	}
	access, err := token.NewCodec(keys.Access.Encrypt, keys.Access.Sign)
	if err != nil {
		return auth.Codecs{}, err
	}
	refresh, err := token.NewCodec(keys.Refresh.Encrypt, keys.Refresh.Sign)
	if err != nil {
		return auth.Codecs{}, err
	}
	return auth.Codecs{Code: code, Access: access, Refresh: refresh}, nil
}
