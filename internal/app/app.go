package app

import (
	"context"

	"filegate/internal/bot"
	"filegate/internal/config"
	"filegate/internal/handler"
	"filegate/internal/pkg/cache"
	"filegate/internal/repository"
	"filegate/internal/service"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"
)

func Run(cfg *config.Config, logger *zap.SugaredLogger) error {
	db, err := repository.NewDB(cfg.DSN())
	if err != nil {
		return err
	}

	// schema self-heal runs before anything touches the tables
	schema := repository.NewSchemaManager(db, logger)
	if err := schema.EnsureSchema(context.Background()); err != nil {
		return err
	}

	var c cache.Cache
	if cfg.RedisAddr != "" {
		redisCache, err := cache.NewRedis(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err != nil {
			return err
		}
		c = redisCache
	} else {
		logger.Infow("REDIS_ADDR not set, using in-process cache")
		c = cache.NewMemory()
	}

	api, err := tgbotapi.NewBotAPI(cfg.BotToken)
	if err != nil {
		return err
	}

	telegramBackend := service.NewTelegramStorage(api, cfg.ChannelID, logger)

	var s3Backend service.Backend
	if cfg.S3Configured() {
		s3Storage, err := service.NewS3Storage(cfg, logger)
		if err != nil {
			return err
		}
		s3Backend = s3Storage
	} else {
		logger.Infow("object store not configured, all uploads go to telegram")
	}

	selector := service.NewSelector(s3Backend, telegramBackend)

	fileRepo := repository.NewFileRepository(db)
	categoryRepo := repository.NewCategoryRepository(db)
	settingRepo := repository.NewUserSettingRepository(db)

	fileService := service.NewFileService(
		fileRepo, categoryRepo, selector, c,
		cfg.Domain, cfg.MaxSizeBytes(), cfg.FileCacheTTL, logger)
	categoryService := service.NewCategoryService(categoryRepo, fileRepo, settingRepo, logger)

	tgBot := bot.New(api, settingRepo, fileService, categoryService, selector, c,
		cfg.S3Configured(), cfg.NoticeURL, cfg.MenuCacheTTL, logger)

	server := NewServer(
		cfg,
		handler.NewPageHandler("./static"),
		handler.NewLoginHandler(cfg, logger),
		handler.NewFileHandler(fileService, categoryService, logger),
		handler.NewCategoryHandler(categoryService, logger),
		handler.NewWebhookHandler(tgBot, cfg.WebhookSecret, logger),
		handler.NewBingHandler(c, logger),
		logger,
	)

	return server.Run(cfg.ServerPort)
}
