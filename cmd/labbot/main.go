package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/wb-go/wbf/dbpg"
	"github.com/wb-go/wbf/redis"
	"github.com/wb-go/wbf/retry"
	"github.com/wb-go/wbf/zlog"

	"github.com/gatorlabs/labbot/internal/calendar"
	"github.com/gatorlabs/labbot/internal/config"
	"github.com/gatorlabs/labbot/internal/dispatch"
	"github.com/gatorlabs/labbot/internal/handler"
	"github.com/gatorlabs/labbot/internal/model"
	"github.com/gatorlabs/labbot/internal/ports"
	"github.com/gatorlabs/labbot/internal/rabbitpublisher"
	"github.com/gatorlabs/labbot/internal/repository"
	"github.com/gatorlabs/labbot/internal/service"
	"github.com/gatorlabs/labbot/pkg/postgres"
)

func main() {
	envFile := flag.String("env-file", "", "path to a .env file (optional)")
	migrationsPath := flag.String("migrations", "file://./db/migration", "migrations source path")
	flag.Parse()

	ctx, ctxStop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer ctxStop()

	cfg, err := config.NewConfig(*envFile, "")
	if err != nil {
		log.Fatal(err)
	}

	zlog.InitConsole()
	if err := zlog.SetLevel(cfg.LogLevel); err != nil {
		log.Fatal(fmt.Errorf("error setting log level to %q: %w", cfg.LogLevel, err))
	}

	zlog.Logger.Info().
		Str("env", cfg.Env).
		Dur("poll_interval", cfg.Scheduler.PollInterval).
		Msg("starting labbot")

	calendars, err := config.LoadCalendars(cfg.Scheduler.CalendarsFile)
	if err != nil {
		zlog.Logger.Fatal().Err(err).Str("file", cfg.Scheduler.CalendarsFile).Msg("invalid calendars file")
	}
	zlog.Logger.Info().Int("calendars", len(calendars)).Msg("loaded calendar configuration")

	postgresStrategy := config.MakeStrategy(cfg.PostgresRetry)
	rabbitStrategy := config.MakeStrategy(cfg.RabbitRetry)
	storeStrategy := config.MakeStrategy(cfg.StoreRetry)

	var postgresDB *dbpg.DB
	err = retry.DoContext(ctx, postgresStrategy, func() error {
		var connErr error
		postgresDB, connErr = dbpg.New(cfg.Database.MasterDSN, cfg.Database.SlaveDSNs,
			&dbpg.Options{
				MaxOpenConns:    cfg.Database.MaxOpenConnections,
				MaxIdleConns:    cfg.Database.MaxIdleConnections,
				ConnMaxLifetime: time.Duration(cfg.Database.ConnectionMaxLifetimeSeconds) * time.Second,
			})
		return connErr
	})
	if err != nil {
		zlog.Logger.Fatal().Err(err).Msg("failed to connect to database")
	}
	zlog.Logger.Info().Msg("connected to postgres")

	if err := postgres.MigrateUp(cfg.Database.MasterDSN, *migrationsPath); err != nil {
		zlog.Logger.Fatal().Err(err).Msg("couldn't migrate postgres on master DSN")
	}
	for i, dsn := range cfg.Database.SlaveDSNs {
		if dsn == "" {
			continue
		}
		if err := postgres.MigrateUp(dsn, *migrationsPath); err != nil {
			zlog.Logger.Fatal().Err(err).Int("dsn_index", i).Msg("couldn't migrate postgres on slave DSN")
		}
	}

	var store ports.DedupStore = repository.NewReminderRepository(postgresDB, storeStrategy)
	if cfg.Redis.Enabled() {
		redisClient := redis.New(
			fmt.Sprintf("%s:%d", cfg.Redis.Host, cfg.Redis.Port),
			cfg.Redis.Password,
			cfg.Redis.DB,
		)
		store = repository.NewCachedStore(store, redisClient, time.Duration(cfg.Redis.Expiration)*time.Second)
		zlog.Logger.Info().Msg("redis dedup cache enabled")
	}

	publisher, err := rabbitpublisher.NewPublisher(ctx, cfg.RabbitMQ, rabbitStrategy, destinationChannels(calendars))
	if err != nil {
		zlog.Logger.Fatal().Err(err).Msg("failed to connect to rabbitmq")
	}
	defer publisher.Close()

	dispatcher := dispatch.NewBrokerDispatcher(publisher)
	source := calendar.NewSource(calendars, cfg.Scheduler.FetchTimeout)

	scheduler := service.NewScheduler(
		calendars,
		source,
		store,
		dispatcher,
		ports.SystemClock{},
		cfg.Scheduler.PollInterval,
		cfg.Scheduler.FetchTimeout,
	)
	scheduler.ValidateCalendars(ctx)

	pruner := cron.New()
	_, err = pruner.AddFunc(cfg.Prune.Schedule, func() {
		cutoff := time.Now().Add(-cfg.Prune.Retention)
		pruned, pruneErr := store.PruneBefore(context.Background(), cutoff)
		if pruneErr != nil {
			zlog.Logger.Error().Err(pruneErr).Msg("reminder pruning failed")
			return
		}
		zlog.Logger.Info().Int64("pruned", pruned).Time("cutoff", cutoff).Msg("pruned old reminder records")
	})
	if err != nil {
		zlog.Logger.Fatal().Err(err).Str("schedule", cfg.Prune.Schedule).Msg("invalid prune schedule")
	}
	pruner.Start()
	defer pruner.Stop()

	router := handler.NewRouter(handler.NewReminderHandler(scheduler, store))
	server := &http.Server{
		Addr:    fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler: router,
	}
	go func() {
		zlog.Logger.Info().Str("addr", server.Addr).Msg("http server listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zlog.Logger.Error().Err(err).Msg("http server stopped unexpectedly")
		}
	}()

	scheduler.Run(ctx)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		zlog.Logger.Error().Err(err).Msg("http server shutdown failed")
	}
	zlog.Logger.Info().Msg("labbot stopped")
}

// destinationChannels collects the distinct routing keys the publisher must
// provision queues for.
func destinationChannels(calendars []model.CalendarConfig) []string {
	seen := make(map[string]struct{}, len(calendars))
	channels := make([]string, 0, len(calendars))
	for _, cal := range calendars {
		if _, ok := seen[cal.Channel]; ok {
			continue
		}
		seen[cal.Channel] = struct{}{}
		channels = append(channels, cal.Channel)
	}
	return channels
}
