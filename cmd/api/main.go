// Command api runs the CompuPay HR backend HTTP server.
//
// @title                      CompuPay HR API
// @version                    1.0
// @description                Authentication and employee records for the CompuPay payroll suite.
// @BasePath                   /
// @securityDefinitions.apikey BearerAuth
// @in                         header
// @name                       Authorization
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	_ "github.com/compupay/hr-backend/docs"
	"github.com/compupay/hr-backend/internal/api"
	"github.com/compupay/hr-backend/internal/api/handler"
	"github.com/compupay/hr-backend/internal/core/service"
	"github.com/compupay/hr-backend/internal/infrastructure/config"
	"github.com/compupay/hr-backend/internal/infrastructure/db/mongo"
	"github.com/compupay/hr-backend/internal/infrastructure/db/redis"
	"github.com/compupay/hr-backend/internal/infrastructure/mailer"
	"github.com/compupay/hr-backend/internal/infrastructure/queue"
	"github.com/compupay/hr-backend/pkg/logger"
)

const shutdownTimeout = 15 * time.Second

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx); err != nil {
		log := logger.Get()
		log.Fatal().Err(err).Msg("server stopped")
	}
}

func run(ctx context.Context) error {
	cfg, err := config.Load(ctx)
	if err != nil {
		// The logger is not configured yet; fall back to defaults.
		logger.Init(logger.Options{Service: "hr-backend"})
		return err
	}

	log := logger.Init(logger.Options{
		Level:   cfg.LogLevel,
		Pretty:  !cfg.IsProduction(),
		Service: "hr-backend",
	})

	mongoClient, db, err := mongo.Connect(ctx, mongo.Config{URI: cfg.Mongo.URI, Database: cfg.Mongo.Database})
	if err != nil {
		return err
	}
	defer func() {
		dctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = mongoClient.Disconnect(dctx)
	}()

	users := mongo.NewUserRepository(db)
	otps := mongo.NewOtpRepository(db)
	if err := mongo.EnsureIndexes(ctx, users, otps); err != nil {
		return err
	}

	rdb, err := redis.Connect(ctx, redis.Config{Addr: cfg.Redis.Addr, DB: cfg.Redis.DB})
	if err != nil {
		return err
	}
	defer rdb.Close()

	smtp := mailer.NewSMTPMailer(mailer.Config{
		Host:       cfg.Mailer.Host,
		Port:       cfg.Mailer.Port,
		Username:   cfg.Mailer.User,
		Password:   cfg.Mailer.Password,
		From:       cfg.Mailer.From,
		Encryption: cfg.Mailer.Encryption,
	})

	// Workers outlive the signal so queued mail is drained after the
	// server stops accepting requests.
	workerCtx, stopWorkers := context.WithCancel(context.Background())
	dispatcher := queue.NewDispatcher(cfg.Mailer.Workers, smtp, logger.Component("mail-dispatcher"))
	dispatcher.Start(workerCtx)

	serviceLog := logger.Component("auth")
	authService := service.NewAuthService(service.AuthDeps{
		Credentials: service.NewCredentialStore(users, service.NewBcryptHasher(cfg.Auth.BcryptCost)),
		Otps: service.NewOtpStore(otps, service.OtpPolicy{
			TTL:            cfg.Auth.OtpExpiresIn.Duration(),
			ResetDigits:    cfg.Auth.OtpResetDigits,
			RegisterDigits: cfg.Auth.OtpRegisterDigits,
		}),
		Tokens:           service.NewTokenService(cfg.JWTSecret),
		Tx:               mongo.NewTransactor(mongoClient),
		ResetMail:        service.NewAwaitedDelivery(smtp, serviceLog),
		RegistrationMail: service.NewDetachedDelivery(dispatcher, serviceLog),
		FromName:         cfg.Mailer.FromName,
		TTLs: service.TokenTTLs{
			Access:  cfg.Auth.AccessTokenTTL,
			Refresh: cfg.Auth.RefreshTokenTTL,
			Reset:   cfg.Auth.ResetTokenTTL,
		},
		Log: serviceLog,
	})
	userService := service.NewUserService(users, logger.Component("users"))

	router := api.NewRouter(api.Dependencies{
		Auth:    authService,
		Users:   userService,
		Cache:   redis.NewResponseCache(rdb),
		Limiter: redis.NewRateLimiter(rdb, cfg.HTTP.RateLimitRequests, cfg.HTTP.RateLimitWindow),
		Health: map[string]handler.Pinger{
			"mongo": mongo.NewPinger(mongoClient),
			"redis": redis.NewPinger(rdb),
		},
		Log: logger.Component("http"),
	}, api.Options{
		CORSOrigins:      cfg.HTTP.CORSOrigins,
		BodyLimit:        cfg.HTTP.BodyLimit,
		ResponseCacheTTL: cfg.HTTP.ResponseCacheTTL,
		Cookie: handler.CookieOptions{
			Secure: cfg.IsProduction(),
			MaxAge: cfg.Auth.RefreshCookieMaxAge,
		},
	})

	serverErr := make(chan error, 1)
	go func() {
		log.Info().Str("port", cfg.Port).Str("env", cfg.Env).Msg("http server listening")
		if err := router.Start(":" + cfg.Port); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	select {
	case <-ctx.Done():
		log.Info().Msg("shutdown signal received")
	case err := <-serverErr:
		stopWorkers()
		dispatcher.Wait()
		return err
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := router.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("http server shutdown")
	}

	stopWorkers()
	drainMail(dispatcher, log, shutdownTimeout)
	log.Info().Msg("server stopped cleanly")
	return nil
}

// drainMail waits for the dispatcher to flush its queues, giving up after timeout.
func drainMail(d *queue.Dispatcher, log zerolog.Logger, timeout time.Duration) {
	done := make(chan struct{})
	go func() {
		d.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(timeout):
		log.Warn().Dur("timeout", timeout).Msg("mail queue not drained before shutdown")
	}
}
