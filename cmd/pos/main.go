package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	_ "github.com/lib/pq"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"golang.org/x/sync/errgroup"

	"github.com/joao-fontenele/kitchenpos/internal/menu"
	"github.com/joao-fontenele/kitchenpos/internal/messaging"
	"github.com/joao-fontenele/kitchenpos/internal/pos"
	"github.com/joao-fontenele/kitchenpos/internal/telemetry"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	metricsHandler, shutdownTelemetry, err := telemetry.Init(ctx, "pos", "0.1.0", os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"))
	if err != nil {
		logger.Error("failed to initialize telemetry", "error", err)
		os.Exit(1)
	}
	defer func() { _ = shutdownTelemetry(context.Background()) }()

	postgresURL := os.Getenv("POSTGRES_URL")
	if postgresURL == "" {
		logger.Error("POSTGRES_URL environment variable is required")
		os.Exit(1)
	}

	menuServiceURL := os.Getenv("MENU_SERVICE_URL")
	if menuServiceURL == "" {
		logger.Error("MENU_SERVICE_URL environment variable is required")
		os.Exit(1)
	}

	strict := false
	if v := os.Getenv("STRICT_STATUS_TRANSITIONS"); v != "" {
		strict, err = strconv.ParseBool(v)
		if err != nil {
			logger.Error("invalid STRICT_STATUS_TRANSITIONS", "value", v, "error", err)
			os.Exit(1)
		}
	}

	schema := os.Getenv("DB_SCHEMA")
	if schema == "" {
		schema = "pos"
	}

	db, err := telemetry.ConnectPostgres(ctx, postgresURL, schema)
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer func() { _ = db.Close() }()

	// Left nil without brokers so the service skips publishing.
	var events pos.EventPublisher
	if kafkaBrokers := os.Getenv("KAFKA_BROKERS"); kafkaBrokers != "" {
		producer := messaging.NewProducer(strings.Split(kafkaBrokers, ","))
		defer func() { _ = producer.Close() }()
		events = producer
	}

	httpClient := &http.Client{
		Timeout:   5 * time.Second,
		Transport: otelhttp.NewTransport(http.DefaultTransport),
	}
	catalog := menu.NewClient(menuServiceURL, httpClient)

	service, err := pos.NewService(pos.NewPostgresStore(db), catalog, events, logger, pos.WithStrictTransitions(strict))
	if err != nil {
		logger.Error("failed to create pos service", "error", err)
		os.Exit(1)
	}

	mux := http.NewServeMux()
	pos.NewHandler(service, logger).Register(mux, telemetry.WithHTTPRoute)
	mux.Handle("GET /metrics", metricsHandler)

	port := os.Getenv("PORT")
	if port == "" {
		port = "8081"
	}

	if err := serve(ctx, logger, "pos", port, mux); err != nil {
		logger.Error("server error", "error", err)
		os.Exit(1)
	}
}

func serve(ctx context.Context, logger *slog.Logger, name, port string, mux *http.ServeMux) error {
	server := &http.Server{
		Addr: ":" + port,
		Handler: otelhttp.NewHandler(mux, name,
			otelhttp.WithSpanNameFormatter(func(_ string, r *http.Request) string {
				if r.Pattern != "" {
					return r.Pattern
				}
				return r.Method + " " + r.URL.Path
			}),
		),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("starting "+name+" service", "port", port)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})
	return g.Wait()
}
