package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/cody-community/cody-backend/api/controllers"
	"github.com/cody-community/cody-backend/api/routes"
	"github.com/cody-community/cody-backend/internal/ledger"
	"github.com/cody-community/cody-backend/internal/members"
	"github.com/cody-community/cody-backend/internal/mentorship"
	"github.com/cody-community/cody-backend/internal/onboarding"
	"github.com/cody-community/cody-backend/internal/profile"
	"github.com/cody-community/cody-backend/internal/rankroles"
	"github.com/cody-community/cody-backend/pkg/config"
	"github.com/cody-community/cody-backend/pkg/db"
	"github.com/cody-community/cody-backend/pkg/discord"
	"github.com/cody-community/cody-backend/pkg/logger"
	"github.com/cody-community/cody-backend/pkg/metrics"
	"github.com/cody-community/cody-backend/pkg/migrate"
	"github.com/cody-community/cody-backend/pkg/redis"
)

const shutdownTimeout = 15 * time.Second

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
		Format:      cfg.App.LogFormat,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	dbClient, err := db.New(ctx, cfg.DB, logg)
	if err != nil {
		logg.Error(ctx, "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(ctx, cfg, logg, dbClient); err != nil {
		logg.Error(ctx, "failed to run dev migrations", err)
		os.Exit(1)
	}

	var redisClient *redis.Client
	if cfg.Redis.Enabled() {
		redisClient, err = redis.New(ctx, cfg.Redis, logg)
		if err != nil {
			logg.Error(ctx, "failed to bootstrap redis", err)
			os.Exit(1)
		}
		defer func() {
			if err := redisClient.Close(); err != nil {
				logg.Error(context.Background(), "error closing redis", err)
			}
		}()
	} else {
		logg.Warn(ctx, "redis not configured; rank role sync runs without a lock")
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	recorder := metrics.NewOnboardingMetrics(registry)

	memberRepo := members.NewRepository(dbClient.DB())
	assignmentRepo := mentorship.NewRepository(dbClient.DB())
	ledgerRepo := ledger.NewRepository(dbClient.DB())

	memberSvc, err := members.NewService(memberRepo)
	requireService(ctx, logg, "members", err)

	mentorSvc, err := mentorship.NewService(assignmentRepo, memberRepo, dbClient, mentorship.Config{
		Capacity: cfg.Onboarding.MentorCapacity,
		MinRank:  cfg.Onboarding.MentorMinRank(),
	}, recorder)
	requireService(ctx, logg, "mentorship", err)

	ledgerSvc, err := ledger.NewService(ledgerRepo)
	requireService(ctx, logg, "ledger", err)

	reconciler, err := buildReconciler(ctx, cfg, logg, redisClient, recorder)
	requireService(ctx, logg, "rank roles", err)

	onboardingSvc, err := onboarding.NewService(onboarding.ServiceParams{
		Tx:          dbClient,
		Members:     memberRepo,
		Assignments: assignmentRepo,
		Decisions:   mentorSvc,
		Rewards:     ledgerSvc,
		Policy: onboarding.RewardPolicy{
			EXP:              cfg.Onboarding.StarterRewardEXP,
			Credit:           cfg.Onboarding.StarterRewardCredit,
			DefaultChannelID: cfg.Onboarding.DefaultChannelID,
		},
		Roles:   reconciler,
		Metrics: recorder,
		Logger:  logg,
	})
	requireService(ctx, logg, "onboarding", err)

	profileSvc, err := profile.NewService(dbClient, memberRepo, assignmentRepo, ledgerRepo)
	requireService(ctx, logg, "profile", err)

	readiness := []controllers.ReadinessCheck{{Name: "database", Pinger: dbClient}}
	if redisClient != nil {
		readiness = append(readiness, controllers.ReadinessCheck{Name: "redis", Pinger: redisClient})
	}

	addr := ":" + cfg.App.Port
	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(cfg, logg, routes.Services{
			Members:    memberSvc,
			Mentorship: mentorSvc,
			Onboarding: onboardingSvc,
			Profile:    profileSvc,
			Ledger:     ledgerSvc,
		}, routes.Dependencies{
			Readiness: readiness,
			Gatherer:  registry,
			HTTP:      metrics.NewHTTPMetrics(registry),
		}),
		ReadHeaderTimeout: 10 * time.Second,
	}

	serverCtx := logg.WithFields(ctx, map[string]any{
		"env":       cfg.App.Env,
		"addr":      addr,
		"db_driver": cfg.DB.Driver,
	})
	logg.Info(serverCtx, "starting api server")

	errCh := make(chan error, 1)
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			logg.Error(serverCtx, "api server stopped unexpectedly", err)
			os.Exit(1)
		}
	case <-ctx.Done():
		logg.Info(serverCtx, "shutdown signal received")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logg.Error(serverCtx, "graceful shutdown failed", err)
	}
}

// buildReconciler returns nil when the role collaborator is not configured.
func buildReconciler(ctx context.Context, cfg *config.Config, logg *logger.Logger, redisClient *redis.Client, recorder *metrics.OnboardingMetrics) (rankroles.Reconciler, error) {
	if !cfg.Discord.Enabled() {
		logg.Warn(ctx, "discord not configured; rank role sync disabled")
		return nil, nil
	}
	client, err := discord.NewClient(cfg.Discord.BotToken, cfg.Discord.GuildID,
		discord.WithBaseURL(cfg.Discord.BaseURL),
		discord.WithTimeout(cfg.Discord.RequestTimeout),
		discord.WithAuditReason(cfg.Discord.AuditReason),
	)
	if err != nil {
		return nil, err
	}

	opts := []rankroles.Option{rankroles.WithLogger(logg), rankroles.WithMetrics(recorder)}
	if redisClient != nil {
		guildID := client.GuildID()
		locker, err := rankroles.NewRedisLocker(redisClient, func(memberID string) string {
			return redisClient.RoleSyncLockKey(guildID, memberID)
		}, cfg.Redis.SyncLockTTL)
		if err != nil {
			return nil, err
		}
		opts = append(opts, rankroles.WithLocker(locker))
	}
	return rankroles.NewReconciler(client, cfg.RankRoles.Mapping(), opts...)
}

func requireService(ctx context.Context, logg *logger.Logger, name string, err error) {
	if err == nil {
		return
	}
	logg.Error(ctx, "failed to create "+name+" service", err)
	os.Exit(1)
}
