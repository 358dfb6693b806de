// Command server runs the border-crossing document validation API.
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"cruce/internal/audit"
	emetrics "cruce/internal/extraction/metrics"
	"cruce/internal/extraction/openai"
	"cruce/internal/imaging"
	"cruce/internal/platform/config"
	"cruce/internal/platform/httpserver"
	"cruce/internal/platform/kafka/producer"
	"cruce/internal/platform/logger"
	httptransport "cruce/internal/transport/http"
	"cruce/internal/validation"
	"cruce/internal/validation/handler"
	"cruce/internal/validation/matcher"
	vmetrics "cruce/internal/validation/metrics"
	auditstore "cruce/pkg/platform/audit/store/memory"
)

const serviceVersion = "1.0.0"

func main() {
	cfg := config.FromEnv()
	log := logger.New(cfg.LogLevel, cfg.LogFormat)

	if err := cfg.Validate(); err != nil {
		log.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	if err := run(cfg, log); err != nil {
		log.Error("server exited", "error", err)
		os.Exit(1)
	}
}

func run(cfg config.Config, log *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Audit pipeline. Events always reach the log sink; Kafka is attached
	// only when brokers are configured.
	auditOpts := []audit.Option{
		audit.WithLogger(log),
		audit.WithAsyncBuffer(cfg.Audit.Buffer),
		audit.WithSink(audit.NewLogSink(log)),
	}
	if len(cfg.Audit.KafkaBrokers) > 0 {
		kafkaProducer, err := producer.New(producer.Config{
			Brokers:  cfg.Audit.KafkaBrokers,
			ClientID: "cruce-server",
		}, log)
		if err != nil {
			return err
		}
		defer kafkaProducer.Close()
		auditOpts = append(auditOpts, audit.WithSink(audit.NewKafkaSink(kafkaProducer, cfg.Audit.KafkaTopic)))
	}
	publisher := audit.NewPublisher(auditstore.NewInMemoryStore(), auditOpts...)
	defer publisher.Close()

	svc, err := validation.New(validation.Config{
		Thresholds: matcher.Thresholds{
			Strict:  cfg.Validation.StrictThreshold,
			Lenient: cfg.Validation.LenientThreshold,
		},
		DodaMaxAgeDays:   cfg.Validation.DodaMaxAgeDays,
		DescriptionFloor: cfg.Validation.DescriptionWarningFloor,
	},
		validation.WithLogger(log),
		validation.WithMetrics(vmetrics.New()),
		validation.WithAuditEmitter(publisher),
	)
	if err != nil {
		return err
	}

	optimizer, err := imaging.New(cfg.Imaging.MaxDimension, cfg.Imaging.JPEGQuality)
	if err != nil {
		return err
	}

	handlerOpts := []handler.Option{
		handler.WithAuditEmitter(publisher),
		handler.WithOptimizer(optimizer),
	}

	extractionConfigured := cfg.OpenAI.APIKey != ""
	if extractionConfigured {
		client, err := openai.New(openai.Config{
			APIKey:     cfg.OpenAI.APIKey,
			BaseURL:    cfg.OpenAI.BaseURL,
			Model:      cfg.OpenAI.Model,
			Timeout:    cfg.OpenAI.Timeout,
			MaxRetries: cfg.OpenAI.MaxRetries,
			RetryDelay: cfg.OpenAI.RetryDelay,
		}, openai.WithLogger(log), openai.WithMetrics(emetrics.New()))
		if err != nil {
			return err
		}
		handlerOpts = append(handlerOpts, handler.WithExtractor(client))
	} else {
		log.Warn("no OpenAI API key configured, image submission endpoint disabled")
	}

	router := httptransport.NewRouter(httptransport.Config{
		Logger:               log,
		Version:              serviceVersion,
		Validation:           handler.New(svc, log, handlerOpts...),
		ExtractionConfigured: extractionConfigured,
	})

	srv := httpserver.New(cfg.Addr, router)
	errCh := make(chan error, 1)
	go func() {
		log.Info("server listening", "addr", cfg.Addr, "version", serviceVersion)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
