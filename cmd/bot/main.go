package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"

	"habit-reminder-bot/internal/adapters/bot"
	"habit-reminder-bot/internal/adapters/repo"
	"habit-reminder-bot/internal/domain"
	"habit-reminder-bot/internal/infra/cache"
	"habit-reminder-bot/internal/infra/config"
	"habit-reminder-bot/internal/infra/db"
	httpinfra "habit-reminder-bot/internal/infra/http"
	applog "habit-reminder-bot/internal/infra/log"
	"habit-reminder-bot/internal/infra/metrics"
	"habit-reminder-bot/internal/infra/queue"
	"habit-reminder-bot/internal/usecase/dispatch"
	"habit-reminder-bot/internal/usecase/profile"
	"habit-reminder-bot/internal/usecase/response"
	"habit-reminder-bot/internal/usecase/rollover"
	"habit-reminder-bot/internal/usecase/schedule"
)

func main() {
	cfg := config.Load()
	logger := applog.NewLogger(cfg.AppEnv)

	loc, err := time.LoadLocation(cfg.TZ)
	if err != nil {
		logger.Fatal().Err(err).Str("tz", cfg.TZ).Msg("некорректный часовой пояс")
	}

	catalog := domain.DefaultCatalog()
	if cfg.CatalogSpec != "" {
		catalog, err = domain.ParseCatalog(cfg.CatalogSpec)
		if err != nil {
			logger.Fatal().Err(err).Msg("некорректный каталог задач")
		}
	}

	if _, err := time.Parse(domain.SlotLayout, cfg.Rollover.At); err != nil {
		logger.Fatal().Err(err).Str("at", cfg.Rollover.At).Msg("некорректное время rollover")
	}

	metrics.MustRegister(prometheus.DefaultRegisterer)

	pool, err := db.Connect(cfg.PGDSN)
	if err != nil {
		logger.Fatal().Err(err).Msg("не удалось подключиться к БД")
	}
	defer pool.Close()

	migrateCtx, migrateCancel := context.WithTimeout(context.Background(), 10*time.Second)
	if err := repo.Migrate(migrateCtx, pool); err != nil {
		migrateCancel()
		logger.Fatal().Err(err).Msg("не удалось применить схему")
	}
	migrateCancel()

	repoAdapter := repo.NewPostgres(pool)

	redisClient := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	defer redisClient.Close()
	onceCache := cache.NewRedis(redisClient)

	var deliveryQueue domain.DeliveryQueue
	switch cfg.Queue.Backend {
	case "rabbit":
		rabbit, err := queue.NewRabbitDeliveryQueue(cfg.Queue.AMQPURL, cfg.Queue.Key)
		if err != nil {
			logger.Fatal().Err(err).Msg("не удалось подключиться к RabbitMQ")
		}
		defer rabbit.Close()
		deliveryQueue = rabbit
	default:
		deliveryQueue = queue.NewRedisDeliveryQueue(redisClient, cfg.Queue.Key)
	}

	botAPI, err := tgbotapi.NewBotAPI(cfg.Telegram.Token)
	if err != nil {
		logger.Fatal().Err(err).Msg("не удалось создать бота")
	}

	schedService := schedule.NewService(logger, repoAdapter, deliveryQueue, catalog, loc)
	responseService := response.NewService(logger, repoAdapter, repoAdapter, loc, cfg.RewardXP)
	profileService := profile.NewService(repoAdapter, repoAdapter, catalog, loc)
	rolloverService := rollover.NewService(logger, repoAdapter, repoAdapter, schedService, deliveryQueue, onceCache, catalog, loc, cfg.Rollover.At)
	notifier := bot.NewNotifier(botAPI, logger)
	worker := dispatch.NewWorker(logger, deliveryQueue, repoAdapter, notifier)
	handler := bot.NewHandler(botAPI, logger, repoAdapter, responseService, profileService, schedService, loc)

	// Куча срабатываний живёт в памяти: после рестарта взводим текущий день
	// заново для всех известных пользователей.
	if users, err := repoAdapter.ListUsers(); err != nil {
		logger.Error().Err(err).Msg("не удалось восстановить расписание")
	} else {
		today := domain.DateOf(time.Now().In(loc))
		for _, user := range users {
			if err := schedService.ProvisionDay(user, today); err != nil {
				logger.Error().Err(err).Int64("user", user.TGUserID).Msg("не удалось взвести день")
			}
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	srv := httpinfra.NewServer(logger)
	go func() {
		if err := srv.Start(fmt.Sprintf(":%d", cfg.Port)); err != nil {
			logger.Error().Err(err).Msg("HTTP сервер остановлен")
		}
	}()

	go schedService.Run(ctx)
	go rolloverService.Run(ctx)
	for i := 0; i < cfg.Dispatch.Workers; i++ {
		go worker.Run(ctx)
	}

	pollErr := make(chan error, 1)
	go func() {
		pollErr <- handler.Run(ctx)
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGTERM, syscall.SIGINT)
	select {
	case <-stop:
		logger.Info().Msg("остановка по сигналу")
	case err := <-pollErr:
		// Смерть транспорта завершает процесс целиком, хостинг перезапустит его.
		logger.Error().Err(err).Msg("polling завершился")
	}

	cancel()
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("не удалось корректно остановить HTTP сервер")
	}
}
