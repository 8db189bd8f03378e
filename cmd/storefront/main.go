package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/redis/go-redis/v9"
	"gopkg.in/tomb.v2"

	"github.com/dmehra2102/sofa-storefront/pkg/buildinfo"
	"github.com/dmehra2102/sofa-storefront/pkg/config"
	"github.com/dmehra2102/sofa-storefront/pkg/database"
	"github.com/dmehra2102/sofa-storefront/pkg/idempotency"
	"github.com/dmehra2102/sofa-storefront/pkg/logging"
	"github.com/dmehra2102/sofa-storefront/pkg/metrics"
	"github.com/dmehra2102/sofa-storefront/pkg/outbox"
	"github.com/dmehra2102/sofa-storefront/pkg/shutdown"
	"github.com/dmehra2102/sofa-storefront/pkg/tracing"

	accountapp "github.com/dmehra2102/sofa-storefront/internal/account/application"
	accounthttp "github.com/dmehra2102/sofa-storefront/internal/account/infrastructure/http"
	accountpg "github.com/dmehra2102/sofa-storefront/internal/account/infrastructure/postgres"
	accountredis "github.com/dmehra2102/sofa-storefront/internal/account/infrastructure/redis"
	cartapp "github.com/dmehra2102/sofa-storefront/internal/cart/application"
	cartbolt "github.com/dmehra2102/sofa-storefront/internal/cart/infrastructure/bolt"
	carthttp "github.com/dmehra2102/sofa-storefront/internal/cart/infrastructure/http"
	catalogapp "github.com/dmehra2102/sofa-storefront/internal/catalog/application"
	cataloghttp "github.com/dmehra2102/sofa-storefront/internal/catalog/infrastructure/http"
	catalogpg "github.com/dmehra2102/sofa-storefront/internal/catalog/infrastructure/postgres"
	contactapp "github.com/dmehra2102/sofa-storefront/internal/contact/application"
	contacthttp "github.com/dmehra2102/sofa-storefront/internal/contact/infrastructure/http"
	contactpg "github.com/dmehra2102/sofa-storefront/internal/contact/infrastructure/postgres"
	orderapp "github.com/dmehra2102/sofa-storefront/internal/order/application"
	orderdomain "github.com/dmehra2102/sofa-storefront/internal/order/domain"
	orderhttp "github.com/dmehra2102/sofa-storefront/internal/order/infrastructure/http"
	orderkafka "github.com/dmehra2102/sofa-storefront/internal/order/infrastructure/kafka"
	orderpg "github.com/dmehra2102/sofa-storefront/internal/order/infrastructure/postgres"
	paymentapp "github.com/dmehra2102/sofa-storefront/internal/payment/application"
	paymentdomain "github.com/dmehra2102/sofa-storefront/internal/payment/domain"
	paymenthttp "github.com/dmehra2102/sofa-storefront/internal/payment/infrastructure/http"
	"github.com/dmehra2102/sofa-storefront/internal/payment/infrastructure/mpesa"
	paymentpg "github.com/dmehra2102/sofa-storefront/internal/payment/infrastructure/postgres"
)

const serviceName = "storefront"

func main() {
	configPath := flag.String("config", os.Getenv("CONFIG_FILE"), "path to a YAML config file")
	flag.Parse()

	boot := logging.New()
	cfg, err := config.Load(*configPath)
	if err != nil {
		boot.Error("config load failed", "err", err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		boot.Error("invalid config", "err", err)
		os.Exit(1)
	}
	log := logging.NewWith(logging.Options{Level: cfg.LogLevel, Format: cfg.LogFormat})

	ctx, cancel := shutdown.WithSignals(context.Background())
	defer cancel()

	if err := run(ctx, cfg, log); err != nil {
		log.Error("storefront stopped with error", "err", err)
		os.Exit(1)
	}
	log.Info("storefront shutdown complete")
}

func run(ctx context.Context, cfg config.Config, log *slog.Logger) error {
	info, err := buildinfo.Get(serviceName)
	if err != nil {
		return err
	}
	log.Info("starting", "version", info.Version, "commit", info.Commit)

	tp, err := tracing.Init(ctx, serviceName, cfg.JaegerURL, log)
	if err != nil {
		return err
	}
	defer func() { _ = tp.Shutdown(context.Background()) }()

	pool, err := database.Connect(ctx, cfg.PGURL, log)
	if err != nil {
		return err
	}
	defer pool.Close()
	if err := database.Migrate(ctx, pool); err != nil {
		return err
	}

	rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	defer rdb.Close()

	carts, err := cartbolt.Open(cfg.CartDBPath)
	if err != nil {
		return err
	}
	defer carts.Close()

	m := metrics.New("storefront")
	brokers := []string{cfg.KafkaAddr}

	writer := outbox.NewWriter(brokers)
	defer writer.Close()
	dispatch := outbox.NewDispatcher(log, writer, cfg.OrderEventsTopic).
		Route(paymentdomain.AggregateType, cfg.PaymentEventsTopic).
		Route(orderdomain.AggregateType, cfg.OrderEventsTopic)
	host, _ := os.Hostname()
	relay := outbox.NewRelay(log, outbox.NewPGStore(log, pool), dispatch, serviceName+"-"+host, outbox.WithRecorder(m))

	catalogSvc := catalogapp.NewService(log, catalogpg.NewRepository(log, pool))
	orderSvc := orderapp.NewService(log, orderpg.NewRepository(log, pool), orderapp.WithRecorder(m))
	accountSvc := accountapp.NewService(log, accountpg.NewRepository(log, pool),
		accountredis.NewSessionStore(rdb, cfg.SessionTTL), catalogSvc)
	contactSvc := contactapp.NewService(log, contactpg.NewRepository(log, pool))
	cartSvc := cartapp.NewService(log, carts, catalogSvc)

	idem := idempotency.NewStore(rdb, cfg.IdempotencyTTL)
	consumer := orderkafka.NewConsumer(log, brokers, cfg.PaymentEventsTopic, cfg.ConsumerGroup, orderSvc, idem)

	handlers := []routable{
		cataloghttp.NewHandler(log, catalogSvc),
		orderhttp.NewHandler(log, orderSvc),
		accounthttp.NewHandler(log, accountSvc),
		contacthttp.NewHandler(log, contactSvc),
		carthttp.NewHandler(log, cartSvc),
	}

	var sweeper *paymentapp.Sweeper
	if cfg.Mpesa.Enabled {
		paymentSvc := paymentapp.NewService(log,
			paymentpg.NewRepository(log, pool),
			mpesa.NewClient(log, cfg.Mpesa),
			orderSvc,
			idempotency.NewStore(rdb, cfg.IdempotencyTTL),
			paymentapp.WithRecorder(m),
			paymentapp.WithCountryCode(cfg.Mpesa.CountryCode),
			paymentapp.WithExpiry(cfg.Mpesa.PaymentExpiry),
		)
		handlers = append(handlers, paymenthttp.NewHandler(log, paymentSvc))
		sweeper = paymentapp.NewSweeper(log, paymentSvc, cfg.Mpesa.SweepInterval)
	} else {
		log.Warn("mobile money payments disabled")
	}

	checks := map[string]checker{
		"postgres": pool.Ping,
		"redis":    func(ctx context.Context) error { return rdb.Ping(ctx).Err() },
	}
	srv := &http.Server{
		Addr:         cfg.HTTPAddr,
		Handler:      newRouter(log, m, info, checks, handlers...),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: cfg.Mpesa.Timeout + 10*time.Second,
	}

	t, ctx := tomb.WithContext(ctx)
	t.Go(func() error { return relay.Run(ctx) })
	t.Go(func() error { return consumer.Run(ctx) })
	if sweeper != nil {
		t.Go(func() error { return sweeper.Run(ctx) })
	}
	t.Go(func() error {
		log.Info("http listening", "addr", cfg.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	t.Go(func() error {
		<-t.Dying()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	return t.Wait()
}
