package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/Liangwei-zhang/cleaning-service/internal/app"
	"github.com/Liangwei-zhang/cleaning-service/internal/config"
	"github.com/Liangwei-zhang/cleaning-service/internal/handler"
	"github.com/Liangwei-zhang/cleaning-service/internal/postgres"
	"github.com/Liangwei-zhang/cleaning-service/internal/repo"
	"github.com/Liangwei-zhang/cleaning-service/internal/service"
	"github.com/Liangwei-zhang/cleaning-service/pkg/cache"
	"github.com/Liangwei-zhang/cleaning-service/pkg/idem"
	"github.com/Liangwei-zhang/cleaning-service/pkg/lock"
	"github.com/Liangwei-zhang/cleaning-service/pkg/trm"

	"github.com/joho/godotenv"
)

// @title           Cleaning Service API
// @version         1.0
// @description     Gig-style cleaning order coordination: hosts post orders, cleaners race to claim them.
func main() {
	conf := config.New()
	logger := newLogger(conf.Env)
	panicIfErr("invalid config", conf.Validate())

	db, err := postgres.New(conf.Postgres)
	panicIfErr("failed to connect to db", err)
	defer db.Close()
	logger.Info("postgres connected")

	orderRepo := repo.NewPostgresRepo(db)
	txManager := trm.NewManager(db)

	readCache := cache.NewLRUCache(conf.Cache.Capacity, conf.Cache.TTL)
	claimLock := lock.New(conf.Lock.StaleAfter)
	guard := idem.New(conf.Idempotency.Window)

	orderService := service.NewOrderService(logger, txManager, orderRepo, readCache, guard)
	claimService := service.NewClaimService(logger, orderRepo, claimLock, readCache)
	registryService := service.NewRegistryService(logger, orderRepo, readCache)

	kafkaHandler := handler.NewKafkaHandler(logger, conf.Kafka, orderService)
	httpHandler := handler.NewHTTPHandler(logger, claimService, orderService, registryService)

	app := app.New(logger, conf)

	app.SetHTTPHandlers(httpHandler)
	app.SetConsumers(kafkaHandler)
	app.SetStarters(readCache, claimLock, guard)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	panicIfErr("failed to start app", app.Start(ctx))
	<-ctx.Done()
	panicIfErr("failed to stop app", app.Stop())
}

func init() {
	godotenv.Load()
}

func newLogger(env string) *slog.Logger {
	switch env {
	case "production":
		return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	default:
		return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
	}
}

func panicIfErr(prefix string, err error) {
	if err != nil {
		panic(prefix + ": " + err.Error())
	}
}
