// Package subshare собирает HTTP-сервис групп совместной оплаты:
// хранилище, кэш, публикацию событий, сервисы и маршруты.
package subshare

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi"
	"github.com/streadway/amqp"
	"golang.org/x/time/rate"

	"github.com/magabrotheeeer/subshare/internal/cache"
	"github.com/magabrotheeeer/subshare/internal/config"
	"github.com/magabrotheeeer/subshare/internal/lib/jwt"
	"github.com/magabrotheeeer/subshare/internal/lib/sl"
	"github.com/magabrotheeeer/subshare/internal/rabbitmq"
	authservice "github.com/magabrotheeeer/subshare/internal/services/auth"
	paymentservice "github.com/magabrotheeeer/subshare/internal/services/payment"
	subservice "github.com/magabrotheeeer/subshare/internal/services/subscription"
	"github.com/magabrotheeeer/subshare/internal/storage"
)

// App HTTP-приложение.
type App struct {
	server *http.Server
	logger *slog.Logger
	store  storage.Store
	cache  *cache.Cache
	conn   *amqp.Connection
	ch     *amqp.Channel
}

// New собирает приложение по конфигу. Redis и RabbitMQ необязательны:
// без адреса redis кэш отключен, без URL брокера события не публикуются.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	store, err := storage.Open(ctx, cfg.Storage, logger)
	if err != nil {
		return nil, err
	}
	app := &App{logger: logger, store: store}

	var groupCache subservice.Cache
	var paymentCache paymentservice.Cache
	if cfg.AddressRedis != "" {
		c, err := cache.InitServer(ctx, cfg.RedisConnection)
		if err != nil {
			app.close()
			return nil, err
		}
		app.cache = c
		groupCache, paymentCache = c, c
		logger.Info("group details cache enabled", slog.String("address", cfg.AddressRedis))
	}

	var groupPublisher subservice.Publisher
	var paymentPublisher paymentservice.Publisher
	if cfg.RabbitMQ.URL != "" {
		conn, err := rabbitmq.Connect(cfg.RabbitMQ.URL, 5, 2*time.Second)
		if err != nil {
			app.close()
			return nil, err
		}
		app.conn = conn
		ch, err := rabbitmq.SetupChannel(conn, cfg.Exchange, rabbitmq.NotificationQueues())
		if err != nil {
			app.close()
			return nil, err
		}
		app.ch = ch
		p := rabbitmq.NewPublisher(ch, cfg.Exchange)
		groupPublisher, paymentPublisher = p, p
		logger.Info("domain events enabled", slog.String("exchange", cfg.Exchange))
	}

	svc := Services{
		Subscriptions: subservice.NewSubscriptionService(store, groupCache, groupPublisher, logger),
		Payments:      paymentservice.New(store, paymentCache, paymentPublisher, logger),
		Auth:          authservice.NewAuthService(store, jwt.NewJWTMaker(cfg.JWTSecretKey, cfg.TokenTTL)),
		Health:        store,
	}

	router := chi.NewRouter()
	RegisterRoutes(router, logger, svc, rate.NewLimiter(rate.Limit(cfg.RPS), cfg.Burst))

	app.server = &http.Server{
		Addr:         cfg.AddressHTTP,
		Handler:      router,
		ReadTimeout:  cfg.TimeoutHTTP,
		WriteTimeout: cfg.TimeoutHTTP,
		IdleTimeout:  cfg.IdleTimeout,
	}
	return app, nil
}

// Handler возвращает корневой обработчик.
func (a *App) Handler() http.Handler {
	return a.server.Handler
}

// Run запускает HTTP-сервер и останавливает его при отмене ctx.
func (a *App) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		a.logger.Info("HTTP server starting on", slog.String("address", a.server.Addr))
		err := a.server.ListenAndServe()
		if errors.Is(err, http.ErrServerClosed) {
			errCh <- nil
		} else {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		a.close()
		return err
	case <-ctx.Done():
		timeoutCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		a.logger.Info("shutting down HTTP server gracefully")
		err := a.server.Shutdown(timeoutCtx)
		a.close()
		return err
	}
}

func (a *App) close() {
	if a.ch != nil {
		if err := a.ch.Close(); err != nil {
			a.logger.Error("failed to close channel", sl.Err(err))
		}
	}
	if a.conn != nil {
		if err := a.conn.Close(); err != nil {
			a.logger.Error("failed to close connection", sl.Err(err))
		}
	}
	if a.cache != nil {
		if err := a.cache.Close(); err != nil {
			a.logger.Error("failed to close cache", sl.Err(err))
		}
	}
	if err := a.store.Close(); err != nil {
		a.logger.Error("failed to close storage", sl.Err(err))
	}
}
