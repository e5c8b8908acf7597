package main

import (
	"context"
	"flag"
	"log/slog"
	"os"

	"github.com/redis/go-redis/v9"

	"github.com/sushihentaime/blogdesk/internal/common"
	"github.com/sushihentaime/blogdesk/internal/config"
	"github.com/sushihentaime/blogdesk/internal/mailservice"
	"github.com/sushihentaime/blogdesk/internal/postservice"
	"github.com/sushihentaime/blogdesk/internal/userservice"
	"github.com/sushihentaime/blogdesk/internal/viewcache"
)

type application struct {
	config      *config.Config
	logger      *slog.Logger
	userService *userservice.UserService
	postService *postservice.PostService
	mailService *mailservice.MailService
	broker      *common.MessageBroker
	views       *viewcache.Cache
	templates   templateCache
	limiter     *ipRateLimiter
}

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))

	configPath := flag.String("config", envOr("BLOGDESK_CONFIG", ".env"), "path to the dotenv config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Error("failed to load configuration", slog.String("error", err.Error()))
		os.Exit(1)
	}

	db, err := common.NewDB(cfg.DatabaseURL(), common.PoolConfig{
		MaxOpenConns: cfg.DBMaxOpenConns,
		MaxIdleConns: cfg.DBMaxIdleConns,
		MaxIdleTime:  cfg.DBMaxIdleTime,
	})
	if err != nil {
		logger.Error("failed to connect to the database", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer common.CloseDB(db)

	broker, err := common.NewMessageBroker(cfg.AMQPURL())
	if err != nil {
		logger.Error("failed to connect to the message broker", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer broker.Close()

	err = common.SetupUserExchange(broker)
	if err != nil {
		logger.Error("failed to setup the user exchange", slog.String("error", err.Error()))
		os.Exit(1)
	}

	viewQueue, err := common.SetupViewExchange(broker)
	if err != nil {
		logger.Error("failed to setup the view exchange", slog.String("error", err.Error()))
		os.Exit(1)
	}

	store, closeStore, err := newViewStore(cfg)
	if err != nil {
		logger.Error("failed to setup the view cache", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer closeStore()

	templates, err := newTemplateCache()
	if err != nil {
		logger.Error("failed to parse templates", slog.String("error", err.Error()))
		os.Exit(1)
	}

	views := viewcache.NewCache(store, logger)
	invalidator := viewcache.NewInvalidator(views, broker, logger)

	app := &application{
		config:      cfg,
		logger:      logger,
		userService: userservice.NewUserService(db, broker),
		postService: postservice.NewPostService(db, invalidator, logger, cfg.StoreTimeout),
		mailService: mailservice.NewMailService(broker, mailservice.Config{
			Host:     cfg.MailHost,
			Port:     cfg.MailPort,
			Username: cfg.MailUser,
			Password: cfg.MailPassword,
			Sender:   cfg.MailSender,
			BaseURL:  cfg.BaseURL,
		}, logger),
		broker:    broker,
		views:     views,
		templates: templates,
		limiter:   newIPRateLimiter(cfg.LimiterRPS, cfg.LimiterBurst),
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	app.background(func() error { return app.mailService.Run(ctx) }, "activation mailer")
	app.background(func() error { return viewcache.NewListener(views, broker, viewQueue, logger).Run(ctx) }, "view invalidation listener")
	app.background(func() error { app.limiter.cleanup(ctx, limiterSweepInterval); return nil }, "rate limiter sweep")

	err = app.serve(cfg.Port)
	if err != nil {
		logger.Error("failed to start the server", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

// newViewStore picks the view cache backend. The returned func releases it.
func newViewStore(cfg *config.Config) (viewcache.Store, func(), error) {
	if cfg.ViewCacheBackend != viewcache.BackendRedis {
		return viewcache.NewMemoryStore(cfg.ViewCacheTTL), func() {}, nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
	})

	ctx, cancel := context.WithTimeout(context.Background(), connectTimeout)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, nil, err
	}

	return viewcache.NewRedisStore(client, cfg.ViewCacheTTL), func() { client.Close() }, nil
}

// background runs fn in a goroutine and logs how it ended.
func (app *application) background(fn func() error, name string) {
	go func() {
		defer func() {
			if err := recover(); err != nil {
				app.logger.Error("background task panicked", slog.String("task", name), slog.Any("panic", err))
			}
		}()

		if err := fn(); err != nil {
			app.logger.Error("background task stopped", slog.String("task", name), slog.String("error", err.Error()))
		}
	}()
}

func envOr(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}
