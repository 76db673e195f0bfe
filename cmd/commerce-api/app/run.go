package app

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/aq2208/gcommerce-api/configs"
	"github.com/aq2208/gcommerce-api/internal/adapter/cache"
	"github.com/aq2208/gcommerce-api/internal/adapter/http"
	"github.com/aq2208/gcommerce-api/internal/adapter/http/middleware"
	"github.com/aq2208/gcommerce-api/internal/adapter/kafka"
	"github.com/aq2208/gcommerce-api/internal/adapter/memrepo"
	"github.com/aq2208/gcommerce-api/internal/adapter/queue"
	"github.com/aq2208/gcommerce-api/internal/adapter/repo"
	"github.com/aq2208/gcommerce-api/internal/logging"
	"github.com/aq2208/gcommerce-api/internal/usecase"
	"github.com/gin-gonic/gin"
	_ "github.com/go-sql-driver/mysql"
	"github.com/rabbitmq/amqp091-go"
	"github.com/redis/go-redis/v9"
)

type App struct {
	Router *gin.Engine
}

func InitWithConfig(cfg configs.Config) (*App, func(), error) {
	logger := logging.Init(cfg.App.Name, cfg.App.LogFile)

	var (
		products usecase.ProductStore
		orders   usecase.OrderStore
		outbox   usecase.OutboxStore
		txm      usecase.TxManager
		cleanups []func()
	)

	if cfg.MySQL.DSN != "" {
		db, err := sql.Open("mysql", cfg.MySQL.DSN)
		if err != nil {
			return nil, nil, err
		}
		db.SetConnMaxLifetime(cfg.MySQL.ConnMaxLifetime)
		db.SetMaxOpenConns(cfg.MySQL.MaxOpenConns)
		db.SetMaxIdleConns(cfg.MySQL.MaxIdleConns)

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		err = db.PingContext(ctx)
		cancel()
		if err != nil {
			return nil, nil, err
		}
		cleanups = append(cleanups, func() { _ = db.Close() })

		products = repo.NewMySQLProductRepo(db)
		orders = repo.NewMySQLOrderRepo(db)
		outbox = repo.NewMySQLOutboxRepo(db)
		txm = repo.NewMySQLTxManager(db)
	} else {
		// storeless dev profile: same ports, in-memory state
		logger.Warn("mysql.dsn empty, using in-memory stores")
		mem := memrepo.New(memrepo.WithLockWait(cfg.Order.LockWaitTimeout))
		products = memrepo.NewProductRepo(mem)
		orders = memrepo.NewOrderRepo(mem)
		outbox = memrepo.NewOutboxRepo(mem)
		txm = mem
	}

	var (
		idem        usecase.IdempotencyStore
		statusCache usecase.StatusCache
	)
	if cfg.Redis.Addr != "" {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       0,
		})
		if err := rdb.Ping(context.Background()).Err(); err != nil {
			return nil, nil, err
		}
		cleanups = append(cleanups, func() { _ = rdb.Close() })
		idem = cache.NewRedisIdempotencyStore(rdb, cfg.Idempotency.TTL)
		statusCache = cache.NewRedisStatusCache(rdb, cfg.Cache.TTL)
	}

	appCtx, stop := context.WithCancel(context.Background())
	cleanups = append(cleanups, stop)

	// drain the outbox to RabbitMQ
	if cfg.Rabbit.URL != "" {
		conn, err := amqp091.Dial(cfg.Rabbit.URL)
		if err != nil {
			return nil, nil, err
		}
		cleanups = append(cleanups, func() { _ = conn.Close() })
		ch, err := conn.Channel()
		if err != nil {
			return nil, nil, err
		}
		producer, err := queue.NewRabbitProducer(ch)
		if err != nil {
			return nil, nil, err
		}
		drainer := queue.NewOutboxDrainer(outbox, producer, cfg.Outbox.Interval, cfg.Outbox.Batch)
		go drainer.Start(appCtx)
	}

	// listen for payment-gateway status changes
	if len(cfg.Kafka.Brokers) > 0 {
		grp, err := kafka.NewGroup(cfg.Kafka.Brokers, cfg.Kafka.GroupID)
		if err != nil {
			return nil, nil, err
		}
		cleanups = append(cleanups, func() { _ = grp.Close() })

		h := kafka.NewStatusChangedHandler(orders, statusCache)
		consumer := kafka.NewConsumer(grp, []string{cfg.Kafka.TopicStatus}, h.Handle)
		go func() {
			if err := consumer.Start(appCtx); err != nil && !errors.Is(err, context.Canceled) {
				logger.Error("kafka consumer stopped", "err", err)
			}
		}()
	}

	place := usecase.NewPlaceOrder(txm, products, orders, outbox, idem)
	queries := usecase.NewOrderQueries(orders, statusCache)

	oh := http.NewOrderHandler(place, queries)
	th := http.NewTokenHandler(cfg)
	authz := middleware.NewAuthz(cfg)
	router := http.NewRouter(oh, th, authz)

	cleanup := func() {
		for i := len(cleanups) - 1; i >= 0; i-- {
			cleanups[i]()
		}
	}
	return &App{Router: router}, cleanup, nil
}
