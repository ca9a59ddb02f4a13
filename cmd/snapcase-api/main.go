package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/snapcaselabs/snapcase/backend/internal/checkout"
	"github.com/snapcaselabs/snapcase/backend/internal/config"
	"github.com/snapcaselabs/snapcase/backend/internal/database"
	"github.com/snapcaselabs/snapcase/backend/internal/logging"
	"github.com/snapcaselabs/snapcase/backend/internal/orders"
	"github.com/snapcaselabs/snapcase/backend/internal/payments"
	"github.com/snapcaselabs/snapcase/backend/internal/printful"
	"github.com/snapcaselabs/snapcase/backend/internal/server"
	"github.com/snapcaselabs/snapcase/backend/internal/templatestore"
	"github.com/snapcaselabs/snapcase/backend/internal/webhooks"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

var (
	cfgFile string
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "snapcase-api",
		Short: "Snapcase order-fulfillment backend service",
		PreRunE: func(cmd *cobra.Command, args []string) error {
			return initConfig()
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context())
		},
	}

	setupFlags(rootCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func setupFlags(cmd *cobra.Command) {
	config.ApplyDefaults(viper.GetViper())
	defaults := config.NewViper()
	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "Path to configuration file")
	cmd.PersistentFlags().String("http-address", defaults.GetString("http.address"), "HTTP listen address")
	cmd.PersistentFlags().String("database-path", defaults.GetString("database.path"), "SQLite database path")
	cmd.PersistentFlags().String("webhook-archive-dir", defaults.GetString("webhook.archive_dir"), "Webhook archive directory")
	cmd.PersistentFlags().String("printful-api-base", defaults.GetString("printful.api_base"), "Printful API base URL")
	cmd.PersistentFlags().String("redis-address", "", "Redis address for the shared template directory (optional)")
	cmd.PersistentFlags().String("log-level", defaults.GetString("log.level"), "Log level (debug, info, warn, error)")
	cmd.PersistentFlags().String("webhook-secret", "", "Webhook signing secret (overrides env)")

	bindFlag(cmd, "http.address", "http-address")
	bindFlag(cmd, "database.path", "database-path")
	bindFlag(cmd, "webhook.archive_dir", "webhook-archive-dir")
	bindFlag(cmd, "printful.api_base", "printful-api-base")
	bindFlag(cmd, "redis.address", "redis-address")
	bindFlag(cmd, "log.level", "log-level")
	bindFlag(cmd, "webhook.secret", "webhook-secret")
}

func bindFlag(cmd *cobra.Command, key, flag string) {
	if err := viper.BindPFlag(key, cmd.PersistentFlags().Lookup(flag)); err != nil {
		panic(err)
	}
}

func initConfig() error {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	}

	if err := viper.ReadInConfig(); err != nil {
		var configNotFound viper.ConfigFileNotFoundError
		if cfgFile != "" && errors.As(err, &configNotFound) {
			return err
		}
	}

	return nil
}

func runServer(ctx context.Context) error {
	appConfig, err := config.Load(viper.GetViper())
	if err != nil {
		return err
	}

	logger, err := logging.NewLogger(appConfig.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync() //nolint:errcheck

	db, err := database.OpenSQLite(appConfig.DatabasePath, logger)
	if err != nil {
		return err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	defer sqlDB.Close()

	var templateBackend templatestore.Backend
	if appConfig.RedisAddress != "" {
		redisClient, err := templatestore.ConnectRedis(appConfig.RedisAddress, appConfig.RedisPassword)
		if err != nil {
			return err
		}
		defer redisClient.Close()
		templateBackend = templatestore.NewRedisBackend(redisClient)
		logger.Info("template directory backed by redis", zap.String("address", appConfig.RedisAddress))
	} else {
		templateBackend = templatestore.NewMemoryBackend()
		logger.Info("template directory backed by process-local memory")
	}

	templateDirectory, err := templatestore.NewDirectory(templatestore.DirectoryConfig{
		Backend: templateBackend,
		TTL:     appConfig.TemplateTTL,
		Logger:  logger,
	})
	if err != nil {
		return err
	}

	gate, err := checkout.NewGate(checkout.GateConfig{
		Templates:              templateDirectory,
		DefaultUnitPriceCents:  appConfig.DefaultUnitPriceCents,
		DefaultCurrency:        appConfig.DefaultCurrency,
		StandardShippingRateID: appConfig.StandardShippingRateID,
		ExpressShippingRateID:  appConfig.ExpressShippingRateID,
		ExpressShippingEnabled: appConfig.ExpressShippingEnabled,
		Logger:                 logger,
	})
	if err != nil {
		return err
	}

	orderService, err := orders.NewService(orders.ServiceConfig{
		Database: db,
		Logger:   logger,
	})
	if err != nil {
		return err
	}

	ingestor, err := webhooks.NewIngestor(webhooks.IngestorConfig{
		Secret:       appConfig.WebhookSecret,
		ArchiveDir:   appConfig.WebhookArchiveDir,
		MaxBodyBytes: appConfig.WebhookMaxBodyBytes,
		Logger:       logger,
	})
	if err != nil {
		return err
	}

	handler, err := server.NewHTTPHandler(server.Dependencies{
		Gate: gate,
		Payments: payments.NewStripeStarter(payments.StarterConfig{
			SecretKey: appConfig.StripeSecretKey,
			Logger:    logger,
		}),
		Templates: templateDirectory,
		Orders:    orderService,
		Nonces: printful.NewClient(printful.ClientConfig{
			Token:   appConfig.PrintfulToken,
			APIBase: appConfig.PrintfulAPIBase,
			Timeout: appConfig.PrintfulTimeout,
			Logger:  logger,
		}),
		Ingestor:            ingestor,
		PrintfulProductMap:  appConfig.PrintfulProductMap,
		WebhookMaxBodyBytes: appConfig.WebhookMaxBodyBytes,
		Logger:              logger,
	})
	if err != nil {
		return err
	}

	httpServer := &http.Server{
		Addr:    appConfig.HTTPAddress,
		Handler: handler,
	}

	signalCtx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server starting", zap.String("address", appConfig.HTTPAddress))
		err := httpServer.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-signalCtx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	case err := <-errCh:
		return err
	}
}
