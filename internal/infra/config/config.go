package config

import (
	"log"

	"github.com/kelseyhightower/envconfig"
)

// AppConfig описывает конфигурацию сервиса.
type AppConfig struct {
	AppEnv string `envconfig:"APP_ENV" default:"dev"`
	TZ     string `envconfig:"TZ" default:"Europe/Istanbul"`
	Port   int    `envconfig:"PORT" default:"8080"`

	Telegram struct {
		Token string `envconfig:"TG_BOT_TOKEN"`
	} `envconfig:""`

	PGDSN string `envconfig:"PG_DSN"`

	RedisAddr string `envconfig:"REDIS_ADDR"`

	Queue struct {
		Backend string `envconfig:"QUEUE_BACKEND" default:"redis"`
		Key     string `envconfig:"DELIVERY_QUEUE_KEY" default:"delivery_jobs"`
		AMQPURL string `envconfig:"AMQP_URL"`
	} `envconfig:""`

	Rollover struct {
		At string `envconfig:"ROLLOVER_AT" default:"00:05"`
	} `envconfig:""`

	RewardXP int64 `envconfig:"TASK_REWARD_XP" default:"10"`

	// CatalogSpec переопределяет встроенный каталог, формат "09:05=текст;...".
	CatalogSpec string `envconfig:"TASK_CATALOG"`

	Dispatch struct {
		Workers int `envconfig:"DISPATCH_WORKERS" default:"2"`
	} `envconfig:""`
}

// Load загружает конфиг из окружения.
func Load() AppConfig {
	var cfg AppConfig
	if err := envconfig.Process("", &cfg); err != nil {
		log.Fatalf("не удалось загрузить конфиг: %v", err)
	}
	return cfg
}
