package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/dinepoint/pos-api/internal/auth"
	"github.com/dinepoint/pos-api/internal/config"
	"github.com/dinepoint/pos-api/internal/database"
	"github.com/dinepoint/pos-api/internal/events"
	"github.com/dinepoint/pos-api/internal/router"
	"github.com/dinepoint/pos-api/internal/service"
	"github.com/dinepoint/pos-api/internal/ws"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

func main() {
	root := &cobra.Command{
		Use:           "server",
		Short:         "Restaurant order and billing API",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(serveCmd(), migrateCmd(), resetStockCmd())

	if err := root.Execute(); err != nil {
		log.Fatalf("ERROR: %v", err)
	}
}

func serveCmd() *cobra.Command {
	var migrateFirst bool
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP and websocket server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if migrateFirst {
				if err := database.Migrate(cfg.DatabaseURL); err != nil {
					return err
				}
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return serve(ctx, cfg)
		},
	}
	cmd.Flags().BoolVar(&migrateFirst, "migrate", false, "apply pending migrations before starting")
	return cmd
}

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending database migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if err := database.Migrate(cfg.DatabaseURL); err != nil {
				return err
			}
			log.Println("Migrations applied")
			return nil
		},
	}
}

// resetStockCmd is meant to be run by an external scheduler, typically at
// midnight restaurant time.
func resetStockCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "reset-stock",
		Short: "Clear out-of-stock flags on items without tracked stock",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			pool, err := connect(ctx, cfg.DatabaseURL)
			if err != nil {
				return err
			}
			defer pool.Close()

			svc := newOrderService(pool, events.NewNotifier(events.Multi{}))
			n, err := svc.ResetNonTrackableStock(ctx)
			if err != nil {
				return err
			}
			log.Printf("Reset %d menu items", n)
			return nil
		},
	}
}

func serve(ctx context.Context, cfg *config.Config) error {
	pool, err := connect(ctx, cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer pool.Close()

	hub := ws.NewHub()
	g, ctx := errgroup.WithContext(ctx)

	// Local delivery goes through Redis when it is configured, so every
	// instance sees every event exactly once via its relay.
	publishers := events.Multi{}
	if cfg.RedisURL != "" {
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			return fmt.Errorf("parse redis url: %w", err)
		}
		rdb := redis.NewClient(opts)
		defer rdb.Close()
		if err := rdb.Ping(ctx).Err(); err != nil {
			return fmt.Errorf("ping redis: %w", err)
		}
		publishers = append(publishers, events.NewRedisPublisher(rdb, cfg.RedisEventsChannel))
		relay := events.NewRedisRelay(rdb, cfg.RedisEventsChannel, hub)
		g.Go(func() error { return relay.Run(ctx) })
	} else {
		publishers = append(publishers, hub)
	}

	if len(cfg.KafkaBrokers) > 0 {
		producer, err := events.NewKafkaProducer(cfg.KafkaBrokers)
		if err != nil {
			return err
		}
		sink := events.NewKafkaSink(producer, cfg.KafkaTopic)
		defer sink.Close()
		publishers = append(publishers, sink)
		log.Printf("Producing events to kafka topic %s", cfg.KafkaTopic)
	}

	svc := newOrderService(pool, events.NewNotifier(publishers))
	idp := auth.NewIdentityProvider(cfg.JWTSecret, database.New(pool))

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router.New(cfg, svc, idp, hub),
	}

	g.Go(func() error {
		hub.Run(ctx)
		return nil
	})
	g.Go(func() error {
		log.Printf("Starting server on :%s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("listen: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		log.Println("Shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

func connect(ctx context.Context, databaseURL string) (*pgxpool.Pool, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return pool, nil
}

func newOrderService(pool *pgxpool.Pool, notifier *events.Notifier) *service.OrderService {
	return service.NewOrderService(
		pool,
		database.New(pool),
		func(db database.DBTX) service.Store { return database.New(db) },
		notifier,
	)
}
