package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/MohsinAliJafery/backend/internal/adapters"
	"github.com/MohsinAliJafery/backend/internal/checksum"
	"github.com/MohsinAliJafery/backend/internal/config"
	"github.com/MohsinAliJafery/backend/internal/controller"
	"github.com/MohsinAliJafery/backend/internal/core"
	"github.com/MohsinAliJafery/backend/internal/events"
	"github.com/MohsinAliJafery/backend/internal/metrics"
	"github.com/MohsinAliJafery/backend/internal/ports"
	"github.com/MohsinAliJafery/backend/internal/service"
	"github.com/MohsinAliJafery/backend/internal/settings"
)

func serveCmd(logger *slog.Logger) *cobra.Command {
	var migrate bool
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd.Context(), logger, migrate)
		},
	}
	cmd.Flags().BoolVar(&migrate, "migrate", true, "apply pending schema migrations on start")
	return cmd
}

type app struct {
	service  *service.PaymentService
	registry *prometheus.Registry
	metrics  *metrics.Recorder
	close    func()
}

// buildApp wires the payment service and its collaborators from cfg.
func buildApp(ctx context.Context, cfg *config.Config, migrate bool, logger *slog.Logger) (*app, error) {
	repo, closeStore, err := openStore(ctx, cfg, migrate, logger)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}
	closers := []func(){closeStore}
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	pricing, err := settings.NewStaticPricing(cfg.Pricing)
	if err != nil {
		cleanup()
		return nil, err
	}

	var signer *checksum.Signer
	if cfg.Paytm.MerchantKey != "" {
		if signer, err = checksum.New(cfg.Paytm.MerchantKey); err != nil {
			cleanup()
			return nil, err
		}
	} else {
		logger.Warn("PAYTM_MERCHANT_KEY not set; signed callbacks will be rejected")
	}

	providers := core.NewProviderRegistry()
	if cfg.Paytm.MerchantID != "" && signer != nil {
		paytm, err := adapters.NewPaytmAdapter(cfg.Paytm, cfg.CallbackURL(), signer)
		if err != nil {
			cleanup()
			return nil, err
		}
		providers.Register(paytm)
		logger.Info("payment method enabled", slog.String("method", string(paytm.Name())))
	}
	if cfg.Paypal.ClientID != "" {
		client, err := adapters.NewPaypalClient(cfg.Paypal)
		if err != nil {
			cleanup()
			return nil, err
		}
		paypal := adapters.NewPaypalAdapter(client, cfg.Paypal.BrandName, cfg.FrontendURL)
		providers.Register(paypal)
		logger.Info("payment method enabled", slog.String("method", string(paypal.Name())), slog.Bool("live", cfg.Paypal.Live))
	}

	var publisher ports.IEventPublisher = events.NewLogEventPublisher(logger)
	if cfg.RabbitURL != "" {
		rabbit := events.NewRabbitMQ(cfg.RabbitURL)
		if err := rabbit.Connect(cfg.RabbitExchange); err != nil {
			cleanup()
			return nil, err
		}
		closers = append(closers, rabbit.Close)
		publisher = events.NewRabbitMQPublisher(rabbit.Channel, cfg.RabbitExchange)
		logger.Info("connected to rabbitmq", slog.String("exchange", cfg.RabbitExchange))
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	recorder := metrics.NewRecorder(registry)

	svc := service.NewPaymentService(service.Dependencies{
		Providers:  providers,
		Repository: repo,
		Pricing:    pricing,
		Signer:     signer,
		Publisher:  publisher,
		Metrics:    recorder,
		Logger:     logger,
		Timeout:    cfg.OperationTimeout,
	})

	return &app{service: svc, registry: registry, metrics: recorder, close: cleanup}, nil
}

func runServe(ctx context.Context, logger *slog.Logger, migrate bool) error {
	cfg, err := config.Load(logger)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	a, err := buildApp(ctx, cfg, migrate, logger)
	if err != nil {
		return err
	}
	defer a.close()

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(a.metrics.Middleware)
	r.Handle("/metrics", promhttp.HandlerFor(a.registry, promhttp.HandlerOpts{}))
	controller.NewPaymentController(a.service, adapters.NewHeaderIdentityVerifier(), cfg.FrontendURL, logger).Routes(r)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      r,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		logger.Info("starting HTTP server", slog.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	select {
	case err := <-serverErr:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
	case <-ctx.Done():
	}
	logger.Info("shutting down gracefully")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", slog.String("error", err.Error()))
	}
	return nil
}
