package main

import (
	"context"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/dkravets/go-shop-checkout.git/internal/config"
	kafkax "github.com/dkravets/go-shop-checkout.git/internal/kafka"
	"github.com/dkravets/go-shop-checkout.git/internal/payment"
)

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

func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func main() {
	_ = godotenv.Load()

	log, _ := zap.NewProduction()
	defer log.Sync()

	cfg := config.Load()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cipher, err := payment.NewCipher(cfg.PaymentKey)
	if err != nil {
		log.Fatal("payment key", zap.Error(err))
	}

	// Producer for charge outcomes
	results := kafkax.NewProducer(cfg.KafkaBrokers, payment.TopicPaymentResult, 1024, log)
	results.Start(ctx)

	worker := payment.NewWorker(cipher, cfg.BankURL, cfg.BankTimeout, results,
		cfg.ServiceName+"-payments", log)

	// Consumer
	group := getenv("PAYMENTS_GROUP", "payments-svc")
	workers := mustAtoi(os.Getenv("PAYMENTS_WORKERS"), "8")
	cons := kafkax.NewConsumer(cfg.KafkaBrokers, group, payment.TopicChargeRequest, workers, log)

	go func() {
		log.Info("charge consumer started",
			zap.String("group", group), zap.Int("workers", workers))
		if err := cons.Start(ctx, worker.HandleChargeRequested); err != nil {
			log.Error("consumer exit", zap.Error(err))
			cancel()
		}
	}()

	// graceful shutdown
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	log.Info("shutting down consumer...")
	cancel()
	time.Sleep(500 * time.Millisecond)
	results.Close()
	results.WaitClosed()
}
