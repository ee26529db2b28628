package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/dkravets/go-shop-checkout.git/internal/basket"
	"github.com/dkravets/go-shop-checkout.git/internal/catalog"
	"github.com/dkravets/go-shop-checkout.git/internal/config"
	"github.com/dkravets/go-shop-checkout.git/internal/httpx"
	"github.com/dkravets/go-shop-checkout.git/internal/inventory"
	kafkax "github.com/dkravets/go-shop-checkout.git/internal/kafka"
	"github.com/dkravets/go-shop-checkout.git/internal/orders"
	"github.com/dkravets/go-shop-checkout.git/internal/payment"
	"github.com/dkravets/go-shop-checkout.git/internal/postgres"
	"github.com/dkravets/go-shop-checkout.git/internal/redisx"
)

func main() {
	_ = godotenv.Load()

	log, _ := zap.NewProduction()
	defer log.Sync()

	cfg := config.Load()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// DB
	db, err := postgres.Connect(ctx, cfg.PostgresDSN)
	if err != nil {
		log.Fatal("db connect", zap.Error(err))
	}
	defer db.Close()

	// Redis
	rdb := redisx.New(cfg.RedisAddr)
	defer rdb.Close()

	// Reference data (delivery and payment types) loads once and can be
	// refreshed without a restart.
	ref, err := orders.LoadReference(ctx, db, cfg.DefaultDeliveryType, cfg.DefaultPaymentType)
	if err != nil {
		log.Fatal("reference load", zap.Error(err))
	}

	cat := &catalog.Repo{DB: db}
	ledger := &inventory.Ledger{Log: log}
	orderSvc := &orders.Service{DB: db, Ledger: ledger, Ref: ref, Log: log}
	basketStore := &basket.Store{Redis: rdb, Catalog: cat, Log: log}

	// Kafka producer for charge requests
	charges := kafkax.NewProducer(cfg.KafkaBrokers, payment.TopicChargeRequest, 1024, log)
	charges.Start(ctx)

	orchestrator := &payment.Orchestrator{
		Orders:  orderSvc,
		Charges: charges,
		Service: cfg.ServiceName,
		Log:     log,
	}

	// Payment result listener: finalizes orders when the charge outcome
	// arrives. Runs alongside the HTTP server in the same process.
	listener := &payment.Listener{Orders: orderSvc, Redis: rdb, Log: log}
	group := getenv("RESULTS_GROUP", "checkout-api")
	workers := mustAtoi(os.Getenv("RESULTS_WORKERS"), "4")
	cons := kafkax.NewConsumer(cfg.KafkaBrokers, group, payment.TopicPaymentResult, workers, log)

	go func() {
		log.Info("payment result consumer started",
			zap.String("group", group), zap.Int("workers", workers))
		if err := cons.Start(ctx, listener.HandlePaymentResult); err != nil {
			log.Error("result consumer exit", zap.Error(err))
			cancel()
		}
	}()

	// HTTP
	router := httpx.NewRouter()
	(&httpx.BasketHandler{Basket: basketStore, Log: log}).Register(router)
	(&httpx.OrdersHandler{Orders: orderSvc, Basket: basketStore, Catalog: cat, Log: log}).Register(router)
	(&httpx.PaymentHandler{Pay: orchestrator, Log: log}).Register(router)

	srv := &http.Server{Addr: cfg.HTTPAddr, Handler: router}

	go func() {
		log.Info("HTTP listening", zap.String("addr", cfg.HTTPAddr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("listen", zap.Error(err))
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	log.Info("shutting down...")

	ctx2, cancel2 := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel2()
	_ = srv.Shutdown(ctx2)
	charges.Close()      // close inbox -> flush & close writer
	cancel()             // stop producer loop and consumer
	charges.WaitClosed() // drain
}

func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func mustAtoi(s, def string) int {
	if s == "" {
		s = def
	}
	i, err := strconv.Atoi(s)
	if err != nil {
		return 1
	}
	return i
}
