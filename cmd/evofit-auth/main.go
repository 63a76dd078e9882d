package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5/pgxpool"
	goredis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/drmweyers/evofithealthprotocol-sub012/internal/application/auth"
	"github.com/drmweyers/evofithealthprotocol-sub012/internal/application/ports"
	"github.com/drmweyers/evofithealthprotocol-sub012/internal/application/user"
	"github.com/drmweyers/evofithealthprotocol-sub012/internal/config"
	infraauth "github.com/drmweyers/evofithealthprotocol-sub012/internal/infrastructure/auth"
	httprouter "github.com/drmweyers/evofithealthprotocol-sub012/internal/infrastructure/http"
	"github.com/drmweyers/evofithealthprotocol-sub012/internal/infrastructure/http/handlers"
	"github.com/drmweyers/evofithealthprotocol-sub012/internal/infrastructure/http/middleware"
	"github.com/drmweyers/evofithealthprotocol-sub012/internal/infrastructure/lockout"
	"github.com/drmweyers/evofithealthprotocol-sub012/internal/infrastructure/persistence/postgres"
	redisstore "github.com/drmweyers/evofithealthprotocol-sub012/internal/infrastructure/persistence/redis"
	"github.com/drmweyers/evofithealthprotocol-sub012/internal/infrastructure/queue"
	"github.com/drmweyers/evofithealthprotocol-sub012/internal/infrastructure/security"
	"github.com/drmweyers/evofithealthprotocol-sub012/internal/infrastructure/webhook"
)

func main() {
	log := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("load config")
	}

	ctx := context.Background()
	pool, err := pgxpool.New(ctx, cfg.Database.URL)
	if err != nil {
		log.Fatal().Err(err).Msg("connect to database")
	}
	defer pool.Close()
	if err := pool.Ping(ctx); err != nil {
		log.Fatal().Err(err).Msg("ping database")
	}

	var redisClient *goredis.Client
	if cfg.Redis.URL != "" {
		opt, err := goredis.ParseURL(cfg.Redis.URL)
		if err != nil {
			log.Fatal().Err(err).Msg("parse REDIS_URL")
		}
		redisClient = goredis.NewClient(opt)
		defer redisClient.Close()
		if err := redisClient.Ping(ctx).Err(); err != nil {
			log.Warn().Err(err).Msg("redis ping failed; continuing without redis")
			redisClient = nil
		}
	}

	healthHandler := handlers.NewHealthHandler(pool, redisClient)

	userRepo := postgres.NewUserRepository(pool)
	linkStore := postgres.NewLinkRepository(pool)
	var tokenStore ports.RefreshCredentialStore
	if redisClient != nil {
		tokenStore = redisstore.NewTokenStore(redisClient)
	} else {
		tokenStore = postgres.NewTokenStore(pool)
	}

	var taskEnqueuer ports.TaskEnqueuer
	var asynqWorker *queue.Worker
	if redisClient != nil {
		redisOpt, _ := goredis.ParseURL(cfg.Redis.URL)
		asynqOpt := asynq.RedisClientOpt{Addr: redisOpt.Addr, Password: redisOpt.Password, DB: redisOpt.DB}
		asynqEnq := queue.NewAsynqEnqueuer(asynqOpt, log)
		defer asynqEnq.Close()
		taskEnqueuer = asynqEnq
		var emitter ports.WebhookEmitter
		if cfg.Webhook.URL != "" {
			opts := []webhook.HTTPEmitterOption{}
			if cfg.Webhook.APIKey != "" {
				opts = append(opts, webhook.WithHeader("X-API-Key", cfg.Webhook.APIKey))
			}
			emitter = webhook.NewHTTPEmitter(cfg.Webhook.URL, log, opts...)
		}
		asynqWorker = queue.NewWorker(asynqOpt, emitter, log)
		go func() {
			if err := asynqWorker.Run(); err != nil {
				log.Warn().Err(err).Msg("asynq worker stopped")
			}
		}()
	} else {
		taskEnqueuer = queue.NewNoopEnqueuer()
	}

	purgeCtx, stopPurge := context.WithCancel(ctx)
	defer stopPurge()
	go func() {
		ticker := time.NewTicker(time.Hour)
		defer ticker.Stop()
		for {
			select {
			case <-purgeCtx.Done():
				return
			case <-ticker.C:
				n, err := auth.RunPurgeExpiredCredentials(purgeCtx, tokenStore)
				if err != nil {
					log.Warn().Err(err).Msg("purge expired refresh credentials")
				} else if n > 0 {
					log.Info().Int64("purged", n).Msg("expired refresh credentials removed")
				}
			}
		}
	}()

	hasher := security.NewArgon2Hasher(security.Argon2Params{
		Memory:      cfg.Argon2.Memory,
		Iterations:  cfg.Argon2.Iterations,
		Parallelism: cfg.Argon2.Parallelism,
		SaltLength:  16,
		KeyLength:   32,
	})

	tokens := infraauth.NewTokenIssuer([]byte(cfg.JWT.Secret), cfg.JWT.Issuer, cfg.JWT.Audience)
	issuer := auth.NewIssuer(tokens, tokenStore,
		time.Duration(cfg.JWT.AccessExpiry)*time.Second,
		time.Duration(cfg.JWT.RefreshExpiry)*time.Second)

	lockoutStore := lockout.NewMemoryStore(cfg.Lockout.MaxFailures, cfg.Lockout.CooldownSeconds)

	registerUC := auth.NewRegister(userRepo, hasher, issuer)
	loginUC := auth.NewLogin(userRepo, hasher, issuer, lockoutStore)
	refreshUC := auth.NewRefresh(userRepo, tokenStore, issuer)
	logoutUC := auth.NewLogout(tokenStore)
	oauthCallbackUC := auth.NewOAuthCallback(userRepo, issuer)
	updateProfileUC := user.NewUpdateProfile(userRepo)
	changePasswordUC := user.NewChangePassword(userRepo, hasher)

	handlers.InitOAuthProviders(cfg.OAuth.CallbackBaseURL, cfg.OAuth.SessionSecret,
		cfg.OAuth.GoogleClientID, cfg.OAuth.GoogleClientSecret)

	cookies := middleware.CookieConfig{Secure: cfg.Server.CookieSecure}
	requireAuth := middleware.NewAuthenticator(tokens, userRepo, refreshUC, cookies, log).Handler

	ipLimit, err := middleware.NewIPRateLimiter(cfg.Server.RatePerIP)
	if err != nil {
		log.Fatal().Err(err).Msg("create IP rate limiter")
	}
	secureMiddleware := middleware.NewSecure(middleware.SecureOptions(cfg.Server.IsDevelopment))

	authHandler := handlers.NewAuthHandler(registerUC, loginUC, refreshUC, logoutUC, cookies, taskEnqueuer, log)
	usersHandler := handlers.NewUsersHandler(userRepo, updateProfileUC, changePasswordUC, log)
	customersHandler := handlers.NewCustomersHandler(userRepo, linkStore, log)

	router := httprouter.NewRouter(httprouter.RouterConfig{
		AuthHandler:      authHandler,
		HealthHandler:    healthHandler,
		UsersHandler:     usersHandler,
		CustomersHandler: customersHandler,
		RequireAuth:      requireAuth,
		OAuthBegin:       handlers.OAuthBegin(cookies),
		OAuthCallback:    handlers.OAuthCallback(oauthCallbackUC, cookies, taskEnqueuer, cfg.OAuth.RedirectURL, log),
		Log:              log,
		Secure:           secureMiddleware,
		IPRateLimit:      ipLimit,
		Metrics:          true,
	})

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	go func() {
		log.Info().Str("port", cfg.Server.Port).Msg("server starting")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server shutdown")
	}
	if asynqWorker != nil {
		asynqWorker.Shutdown()
	}
	log.Info().Msg("server stopped")
}
