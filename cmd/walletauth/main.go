package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ThreeDotsLabs/watermill-redisstream/pkg/redisstream"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/gin-gonic/gin"
	"github.com/layer-3/walletauth/adapters/chains"
	"github.com/layer-3/walletauth/adapters/events"
	"github.com/layer-3/walletauth/adapters/store"
	"github.com/layer-3/walletauth/internal/config"
	"github.com/layer-3/walletauth/ports"
	"github.com/layer-3/walletauth/service"
	transporthttp "github.com/layer-3/walletauth/transport/http"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	var addr, backend string

	cmd := &cobra.Command{
		Use:          "walletauth",
		Short:        "Wallet signature challenge-response authentication service",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if addr != "" {
				cfg.HTTPAddr = addr
			}
			if backend != "" {
				cfg.StoreBackend = backend
				if err := cfg.Validate(); err != nil {
					return err
				}
			}

			logger, err := newLogger(cfg)
			if err != nil {
				return err
			}
			defer logger.Sync()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			if err := run(ctx, cfg, logger); err != nil {
				logger.Error("walletauth stopped", zap.Error(err))
				return err
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "HTTP listen address (overrides HTTP_ADDR)")
	cmd.Flags().StringVar(&backend, "store", "", "store backend: redis or memory (overrides STORE_BACKEND)")

	return cmd
}

func newLogger(cfg *config.Config) (*zap.Logger, error) {
	zcfg := zap.NewProductionConfig()
	if cfg.LogDevelopment {
		zcfg = zap.NewDevelopmentConfig()
	}

	level, err := zap.ParseAtomicLevel(cfg.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("invalid log level: %w", err)
	}
	zcfg.Level = level

	return zcfg.Build()
}

func run(ctx context.Context, cfg *config.Config, logger *zap.Logger) error {
	registry, err := chains.NewDefaultRegistry(cfg.DefaultChain)
	if err != nil {
		return err
	}

	st, publisher, closeBackend, err := newBackend(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := closeBackend(); err != nil {
			logger.Warn("failed to close backend", zap.Error(err))
		}
	}()

	promRegistry := prometheus.NewRegistry()
	promRegistry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	opts := service.DefaultOptions()
	opts.ChallengeTTL = cfg.ChallengeTTL
	opts.ResultTTL = cfg.ResultTTL
	opts.RequireIssuedChallenge = cfg.RequireIssuedChallenge
	opts.MessagePrefix = cfg.ChallengePrefix
	opts.Metrics = service.NewMetrics(promRegistry)

	authService := service.NewAuthService(st, registry, events.NewWatermillPublisher(publisher, cfg.EventsTopic), logger, opts)

	if !cfg.LogDevelopment {
		gin.SetMode(gin.ReleaseMode)
	}
	router := transporthttp.SetupRouter(authService, logger, promRegistry)

	server := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening",
			zap.String("addr", cfg.HTTPAddr),
			zap.String("store", cfg.StoreBackend),
			zap.String("default_chain", cfg.DefaultChain.String()))
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("failed to serve: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	logger.Info("shutting down")
	return server.Shutdown(shutdownCtx)
}

// newBackend creates the store and the event publisher sharing one backend.
// The returned func releases both exactly once.
func newBackend(ctx context.Context, cfg *config.Config, logger *zap.Logger) (ports.Store, message.Publisher, func() error, error) {
	wmLogger := events.NewZapLoggerAdapter(logger)

	switch cfg.StoreBackend {
	case config.StoreMemory:
		st, err := store.NewMemoryStore(ctx, store.MemoryConfig{
			ShortWindow: cfg.ChallengeTTL,
			LongWindow:  cfg.MemoryRetention,
			MaxSizeMB:   cfg.MemoryMaxSizeMB,
		})
		if err != nil {
			return nil, nil, nil, err
		}
		publisher := gochannel.NewGoChannel(gochannel.Config{}, wmLogger)

		closeBackend := func() error {
			return errors.Join(publisher.Close(), st.Close())
		}
		return st, publisher, closeBackend, nil

	default:
		redisOpts, err := cfg.RedisOptions()
		if err != nil {
			return nil, nil, nil, err
		}

		client, err := store.NewRedisClient(ctx, redisOpts)
		if err != nil {
			return nil, nil, nil, err
		}

		publisher, err := redisstream.NewPublisher(redisstream.PublisherConfig{Client: client}, wmLogger)
		if err != nil {
			client.Close()
			return nil, nil, nil, fmt.Errorf("failed to create redis publisher: %w", err)
		}

		// the publisher closes the shared client, so the store is not closed separately
		return store.NewRedisStore(client), publisher, publisher.Close, nil
	}
}
