package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/illenko/opspages/internal/api"
	"github.com/illenko/opspages/internal/api/handler"
	"github.com/illenko/opspages/internal/api/helpers"
	"github.com/illenko/opspages/internal/config"
	"github.com/illenko/opspages/internal/events"
	"github.com/illenko/opspages/internal/generator"
	"github.com/illenko/opspages/internal/grafana"
	"github.com/illenko/opspages/internal/objectstore"
	"github.com/illenko/opspages/internal/prometheus"
	"github.com/illenko/opspages/internal/scheduler"
	"github.com/illenko/opspages/internal/service"
	"github.com/illenko/opspages/internal/storage"
	"github.com/spf13/cobra"
)

const shutdownTimeout = 30 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		return serve(cfg)
	},
}

func serve(cfg *config.Config) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	helpers.SetVerboseErrors(cfg.IsDevelopment())
	loc := cfg.ReportingLocation()

	db, err := storage.New(ctx, storage.Config{
		DSN:             cfg.Database.DSN,
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer db.Close()

	if cfg.Database.AutoMigrate {
		if err := db.Migrate(); err != nil {
			return err
		}
	}

	servicesRepo := storage.NewServicesRepository(db)
	pagesRepo := storage.NewPagesRepository(db)
	configsRepo := storage.NewMetricConfigsRepository(db)
	metricsRepo := storage.NewMetricsRepository(db)
	actionItemsRepo := storage.NewActionItemsRepository(db)
	usersRepo := storage.NewUsersRepository(db)
	productsRepo := storage.NewProductsRepository(db)

	checks := map[string]handler.HealthChecker{}

	gen := generator.NewClient(generator.Config{
		BaseURL: cfg.Generator.BaseURL,
		Timeout: cfg.Generator.Timeout,
		Retry: generator.RetryConfig{
			Retries:   cfg.Generator.Retries,
			BaseDelay: cfg.Generator.RetryDelay,
			MaxDelay:  cfg.Generator.MaxRetryDelay,
		},
	})

	var presignCache objectstore.Cache = objectstore.NewMemoryCache()
	if cfg.Cache.RedisAddr != "" {
		redisCache := objectstore.NewRedisCache(objectstore.RedisConfig{
			Addr:     cfg.Cache.RedisAddr,
			Password: cfg.Cache.RedisPassword,
			DB:       cfg.Cache.RedisDB,
		})
		defer redisCache.Close()
		presignCache = redisCache
		checks["redis"] = pingChecker(redisCache.Ping)
		slog.Info("presigned URLs cached in redis", "addr", cfg.Cache.RedisAddr)
	}

	presigner, err := objectstore.NewPresigner(objectstore.Config{
		Endpoint:  cfg.ObjectStore.Endpoint,
		AccessKey: cfg.ObjectStore.AccessKey,
		SecretKey: cfg.ObjectStore.SecretKey,
		Bucket:    cfg.ObjectStore.Bucket,
		Region:    cfg.ObjectStore.Region,
		Expiry:    cfg.ObjectStore.PresignExpiry,
	}, presignCache)
	if err != nil {
		return fmt.Errorf("failed to create object store client: %w", err)
	}

	var publisher events.Publisher = events.Nop{}
	if cfg.Kafka.Brokers != "" {
		kafkaPublisher, err := events.NewKafkaPublisher(cfg.Kafka.Brokers, cfg.Kafka.Topic)
		if err != nil {
			return fmt.Errorf("failed to create kafka publisher: %w", err)
		}
		defer kafkaPublisher.Close()
		publisher = kafkaPublisher
	} else {
		slog.Warn("domain events disabled: kafka.brokers not set")
	}

	var promQL service.PromQLEvaluator
	if cfg.Prometheus.URL != "" {
		promClient, err := prometheus.NewClient(prometheus.Config{
			URL:      cfg.Prometheus.URL,
			Username: cfg.Prometheus.Username,
			Password: cfg.Prometheus.Password,
		})
		if err != nil {
			return fmt.Errorf("failed to create prometheus client: %w", err)
		}
		promQL = promClient
		checks["prometheus"] = promClient
	} else {
		slog.Warn("metrics config previews disabled: prometheus.url not set")
	}

	var dashboards service.DashboardSearcher
	if cfg.Grafana.URL != "" {
		grafanaClient, err := grafana.NewClient(grafana.Config{
			URL:      cfg.Grafana.URL,
			APIToken: cfg.Grafana.APIToken,
			Username: cfg.Grafana.Username,
			Password: cfg.Grafana.Password,
		})
		if err != nil {
			return fmt.Errorf("failed to create grafana client: %w", err)
		}
		dashboards = grafanaClient
		checks["grafana"] = grafanaClient
	} else {
		slog.Warn("dashboard lookup disabled: grafana.url not set")
	}

	metricService := service.NewMetricService(metricsRepo, configsRepo, gen, publisher, cfg.Generator.MaxConcurrency)
	pageService := service.NewPageService(pagesRepo, metricService, presigner, publisher, loc)
	serviceCatalog := service.NewServiceService(servicesRepo, dashboards)
	configCatalog := service.NewMetricsConfigService(configsRepo, promQL, loc)

	sched, err := scheduler.New(serviceCatalog, pageService, scheduler.Config{
		Schedule: cfg.Scheduler.Schedule,
		Location: loc,
	})
	if err != nil {
		return err
	}
	if cfg.Scheduler.Enabled {
		if err := sched.Start(ctx); err != nil {
			return err
		}
		defer sched.Stop()
	}

	server := api.NewServer(api.Handlers{
		Health:        handler.NewHealthHandler(db, checks, version),
		Pages:         handler.NewPagesHandler(pageService),
		Metrics:       handler.NewMetricsHandler(metricService, loc),
		MetricConfigs: handler.NewMetricConfigsHandler(configCatalog),
		Services:      handler.NewServicesHandler(serviceCatalog),
		ActionItems:   handler.NewActionItemsHandler(actionItemsRepo),
		Users:         handler.NewUsersHandler(usersRepo),
		Products:      handler.NewProductsHandler(productsRepo),
		Scheduler:     handler.NewSchedulerHandler(sched),
	}, api.ServerConfig{
		Host:           cfg.Server.Host,
		Port:           cfg.Server.Port,
		ReadTimeout:    cfg.Server.ReadTimeout,
		WriteTimeout:   cfg.Server.WriteTimeout,
		RequestTimeout: cfg.Server.RequestTimeout,
		CORSOrigins:    cfg.Server.CORSOrigins,
	})

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-sigCh
		slog.Info("shutting down...")
		cancel()

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer shutdownCancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("server shutdown error", "error", err)
		}
	}()

	if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}

type pingChecker func(ctx context.Context) error

func (p pingChecker) HealthCheck(ctx context.Context) error { return p(ctx) }
