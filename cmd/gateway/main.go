package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/okudo-collective/daraja-gateway/internal/config"
	"github.com/okudo-collective/daraja-gateway/internal/daraja"
	"github.com/okudo-collective/daraja-gateway/internal/handler"
	"github.com/okudo-collective/daraja-gateway/internal/middleware"
	"github.com/okudo-collective/daraja-gateway/internal/webhook"
)

// dispatchSink feeds verified callback events into the onward dispatcher.
type dispatchSink struct {
	dispatcher *webhook.Dispatcher
}

func (s dispatchSink) HandleEvent(ctx context.Context, event webhook.Event) error {
	if !s.dispatcher.Enqueue(event) {
		return errors.New("dispatch queue full")
	}
	return nil
}

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	logger := cfg.Logger.NewLogger()
	slog.SetDefault(logger)

	logger.Info("starting daraja gateway service",
		"port", cfg.Server.Port,
		"environment", cfg.Daraja.Environment,
		"log_level", cfg.Logger.Level,
	)

	client, err := daraja.New(daraja.Config{
		ConsumerKey:    cfg.Daraja.ConsumerKey,
		ConsumerSecret: cfg.Daraja.ConsumerSecret,
		Environment:    daraja.Environment(cfg.Daraja.Environment),
		Logger:         logger,
	})
	if err != nil {
		logger.Error("failed to build daraja client", "error", err)
		os.Exit(1)
	}

	if cfg.Daraja.RegisterC2BURLs {
		registerCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		base := strings.TrimSuffix(cfg.Daraja.PublicBaseURL, "/")
		_, err := client.C2BRegisterURL(registerCtx, daraja.C2BRegisterRequest{
			ShortCode:       cfg.Daraja.ShortCode,
			ConfirmationURL: base + "/webhooks/c2b/confirmation",
			ValidationURL:   base + "/webhooks/c2b/validation",
		})
		cancel()
		if err != nil {
			logger.Error("c2b url registration failed", "error", err)
			os.Exit(1)
		}
	}

	dispatcher := webhook.NewDispatcher(cfg.Webhook.SubscriberURLs, nil, webhook.RetryOptions{}, logger)

	h := handler.NewCallbackHandler(dispatchSink{dispatcher: dispatcher}, logger, cfg.Webhook.SkipIPCheck, cfg.Webhook.TrustProxy)

	mux := http.NewServeMux()
	h.RegisterRoutes(mux)

	router := http.Handler(mux)

	wrapped := middleware.Recovery(logger)(router)
	wrapped = middleware.Logging(logger)(wrapped)
	wrapped = middleware.Timeout(cfg.Server.ReadTimeout)(wrapped)

	server := &http.Server{
		Addr:         "0.0.0.0:" + cfg.Server.Port,
		Handler:      wrapped,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	dispatchCtx, cancelDispatch := context.WithCancel(context.Background())
	defer cancelDispatch()

	go dispatcher.Start(dispatchCtx)

	go func() {
		logger.Info("server starting", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server...")

	cancelDispatch()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
	}

	logger.Info("server exited")
}
