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

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/joao-fontenele/kitchenpos/internal/domain"
	"github.com/joao-fontenele/kitchenpos/internal/kitchen"
	"github.com/joao-fontenele/kitchenpos/internal/messaging"
	"github.com/joao-fontenele/kitchenpos/internal/telemetry"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	shutdownTracer, err := telemetry.InitTracerProvider(ctx, "kitchen", "0.1.0", os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"))
	if err != nil {
		logger.Error("failed to initialize tracer", "error", err)
		os.Exit(1)
	}
	defer func() { _ = shutdownTracer(context.Background()) }()

	kafkaBrokers := os.Getenv("KAFKA_BROKERS")
	if kafkaBrokers == "" {
		logger.Error("KAFKA_BROKERS environment variable is required")
		os.Exit(1)
	}

	posServiceURL := os.Getenv("POS_SERVICE_URL")
	if posServiceURL == "" {
		logger.Error("POS_SERVICE_URL environment variable is required")
		os.Exit(1)
	}

	cookTime := 5 * time.Second
	if v := os.Getenv("COOK_TIME"); v != "" {
		cookTime, err = time.ParseDuration(v)
		if err != nil {
			logger.Error("invalid COOK_TIME", "value", v, "error", err)
			os.Exit(1)
		}
	}

	brokers := strings.Split(kafkaBrokers, ",")
	consumer := messaging.NewConsumer(brokers, domain.TopicOrderCreated, "kitchen")
	defer func() { _ = consumer.Close() }()

	httpClient := &http.Client{
		Timeout:   10 * time.Second,
		Transport: otelhttp.NewTransport(http.DefaultTransport),
	}

	handler := kitchen.NewCookHandler(posServiceURL, cookTime, httpClient, logger)

	logger.Info("starting kitchen worker", "brokers", brokers, "cook_time", cookTime)

	if err := consumer.Consume(ctx, handler.Handle); err != nil {
		if errors.Is(err, context.Canceled) {
			logger.Info("consumer stopped")
			return
		}
		logger.Error("consumer error", "error", err)
		os.Exit(1)
	}
}
