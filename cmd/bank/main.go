package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/dkravets/go-shop-checkout.git/internal/bank"
	"github.com/dkravets/go-shop-checkout.git/internal/config"
	"github.com/dkravets/go-shop-checkout.git/internal/payment"
)

// Stand-in bank for local and test environments. Speaks the same
// encrypted wire format as a real acquirer endpoint would.
func main() {
	_ = godotenv.Load()

	log, _ := zap.NewProduction()
	defer log.Sync()

	cfg := config.Load()

	cipher, err := payment.NewCipher(cfg.PaymentKey)
	if err != nil {
		log.Fatal("payment key", zap.Error(err))
	}

	h := &bank.Handler{Cipher: cipher, Log: log}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Post("/users/payment", h.ChargeUser)

	srv := &http.Server{Addr: cfg.BankAddr, Handler: r}

	go func() {
		log.Info("bank listening", zap.String("addr", cfg.BankAddr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("listen", zap.Error(err))
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = srv.Shutdown(ctx)
}
