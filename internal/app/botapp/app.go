package botapp

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/ivankudzin/chatwarden/internal/app/apiapp"
	"github.com/ivankudzin/chatwarden/internal/config"
	tginfra "github.com/ivankudzin/chatwarden/internal/infra/telegram"
	"github.com/ivankudzin/chatwarden/internal/jobs/cleanup"
	pgrepo "github.com/ivankudzin/chatwarden/internal/repo/postgres"
	redrepo "github.com/ivankudzin/chatwarden/internal/repo/redis"
	authsvc "github.com/ivankudzin/chatwarden/internal/services/auth"
	membershipsvc "github.com/ivankudzin/chatwarden/internal/services/membership"
	settingssvc "github.com/ivankudzin/chatwarden/internal/services/settings"
	votebansvc "github.com/ivankudzin/chatwarden/internal/services/voteban"
	"github.com/ivankudzin/chatwarden/internal/transport/http/handlers"
)

const shutdownTimeout = 10 * time.Second

type App struct {
	cfg        config.Config
	logger     *zap.Logger
	postgres   *pgxpool.Pool
	redis      *goredis.Client
	bot        *tginfra.Bot
	router     *router
	cleanupJob *cleanup.Job
	api        *apiapp.App
}

func New(ctx context.Context, cfg config.Config, logger *zap.Logger) (*App, error) {
	if logger == nil {
		return nil, fmt.Errorf("logger is nil")
	}

	pool, err := pgrepo.NewPool(ctx, cfg.Postgres.DSN)
	if err != nil {
		return nil, fmt.Errorf("init postgres for bot app: %w", err)
	}

	redisClient := redrepo.NewClient(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
	if err := redrepo.Ping(ctx, redisClient); err != nil {
		logger.Warn("redis ping failed, membership cache degraded", zap.Error(err))
	}

	var bot *tginfra.Bot
	if strings.TrimSpace(cfg.Bot.Token) != "" {
		bot, err = tginfra.NewBot(cfg.Bot.Token, tginfra.Options{
			PollTimeoutSeconds: cfg.Bot.PollTimeoutSeconds,
			Workers:            cfg.Bot.Workers,
		}, logger.Named("telegram"))
		if err != nil {
			pool.Close()
			_ = redisClient.Close()
			return nil, fmt.Errorf("init telegram bot: %w", err)
		}
	} else {
		logger.Warn("BOT_TOKEN is empty, telegram listener disabled")
	}

	votebanRepo := pgrepo.NewVotebanRepo(pool)
	settingsRepo := pgrepo.NewChatSettingsRepo(pool)
	messageRepo := pgrepo.NewChatMessageRepo(pool)
	cacheRepo := redrepo.NewMembershipCacheRepo(redisClient)

	var (
		settingsService *settingssvc.Service
		membership      *membershipsvc.Service
		votebanService  *votebansvc.Service
		appRouter       *router
	)
	if bot != nil {
		membership = membershipsvc.NewService(bot, cacheRepo, cfg.Redis.AdminCacheTTL, logger.Named("membership"))
		settingsService = settingssvc.NewService(settingsRepo, membership)
		votebanService = votebansvc.NewService(
			votebanRepo,
			messageRepo,
			settingsService,
			membership,
			bot,
			votebansvc.Config{
				Cooldown:     cfg.Voteban.Cooldown,
				SessionTTL:   cfg.Voteban.SessionTTL,
				MaxTextRunes: cfg.Voteban.MaxTextRunes,
			},
			logger.Named("voteban"),
		)
		appRouter = &router{
			voting:   votebanService,
			settings: settingsService,
			oracle:   membership,
			messages: messageRepo,
			chat:     bot,
			logger:   logger,
		}
	} else {
		settingsService = settingssvc.NewService(settingsRepo, nil)
		votebanService = votebansvc.NewService(votebanRepo, nil, nil, nil, nil, votebansvc.Config{
			SessionTTL: cfg.Voteban.SessionTTL,
		}, logger.Named("voteban"))
	}

	cleanupJob := cleanup.NewJob(votebanService, messageRepo, cfg.Voteban.SessionTTL, logger.Named("cleanup"))

	api, err := apiapp.New(cfg, apiapp.Dependencies{
		Tokens:   authsvc.NewJWTManager(cfg.Auth.JWTSecret, cfg.Auth.JWTAccessTTL),
		Settings: settingsService,
		Checks: map[string]handlers.HealthCheck{
			"postgres": pool.Ping,
			"redis": func(ctx context.Context) error {
				return redrepo.Ping(ctx, redisClient)
			},
		},
	}, logger.Named("api"))
	if err != nil {
		pool.Close()
		_ = redisClient.Close()
		return nil, fmt.Errorf("init api app: %w", err)
	}

	return &App{
		cfg:        cfg,
		logger:     logger,
		postgres:   pool,
		redis:      redisClient,
		bot:        bot,
		router:     appRouter,
		cleanupJob: cleanupJob,
		api:        api,
	}, nil
}

func (a *App) Run(ctx context.Context) error {
	a.logger.Info("bot app started")

	group, groupCtx := errgroup.WithContext(ctx)

	group.Go(func() error {
		return a.cleanupJob.Loop(groupCtx, a.cfg.Bot.CleanupInterval)
	})

	if a.bot != nil && a.router != nil {
		group.Go(func() error {
			return a.bot.Listen(groupCtx, a.router.handlers())
		})
	}

	group.Go(a.api.Run)
	group.Go(func() error {
		<-groupCtx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return a.api.Shutdown(shutdownCtx)
	})

	err := group.Wait()
	a.logger.Info("bot app stopped")
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func (a *App) Close() {
	if a.postgres != nil {
		a.postgres.Close()
	}
	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			a.logger.Warn("close redis client", zap.Error(err))
		}
	}
}
