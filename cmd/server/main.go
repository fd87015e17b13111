package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"fursa/config"
	"fursa/internal/database"
	"fursa/internal/events"
	"fursa/internal/lock"
	"fursa/internal/repository"
	"fursa/internal/router"
	"fursa/internal/service"
	"fursa/pkg/gateway"
	"fursa/pkg/rabbitmq"

	"github.com/redis/go-redis/v9"
)

func main() {
	cfg := config.Load()
	db, err := database.NewDB(&cfg.Database)
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	if err := database.AutoMigrate(db); err != nil {
		log.Fatalf("migrate: %v", err)
	}
	if err := database.SeedAdmin(db, cfg.Admin.Email, cfg.Admin.Password); err != nil {
		log.Fatalf("seed admin: %v", err)
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err := rdb.Ping(context.Background()).Err(); err != nil {
		// Settlement stays correct without the lease; keep going.
		log.Printf("redis unreachable at %s: %v", cfg.Redis.Addr, err)
	}

	var provider gateway.Provider
	if cfg.Gateway.BaseURL != "" {
		provider = gateway.NewHTTPProvider(cfg.Gateway.BaseURL, cfg.Gateway.APIKey)
	} else {
		log.Printf("GATEWAY_BASE_URL not set, using stub payment provider")
		provider = gateway.NewStubProvider()
	}

	var sink events.Sink = events.LogSink{}
	var publisher *rabbitmq.Publisher
	if cfg.AMQP.URL != "" {
		publisher, err = rabbitmq.NewPublisher(cfg.AMQP.URL, cfg.AMQP.Exchange)
		if err != nil {
			log.Printf("rabbitmq unavailable, events go to the log only: %v", err)
		} else {
			sink = events.Fanout{events.LogSink{}, events.NewAMQPSink(publisher)}
			defer publisher.Close()
		}
	}

	engine := router.Setup(cfg, router.Deps{DB: db, Redis: rdb, Provider: provider, Sink: sink})

	sweep := service.NewSweepService(repository.NewIntentionRepository(db), lock.NewRedisLocker(rdb, ""))
	sweepCtx, stopSweep := context.WithCancel(context.Background())
	defer stopSweep()
	go runSweep(sweepCtx, sweep, cfg.Settlement.SweepInterval)

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      engine,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}
	go func() {
		log.Printf("server listening on :%s", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %v", err)
		}
	}()
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("shutting down...")
	stopSweep()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal("server shutdown:", err)
	}
	log.Println("server stopped")
}

// runSweep expires stale payment intentions on a ticker. The cron endpoint
// triggers the same sweep for deployments that prefer external scheduling.
func runSweep(ctx context.Context, sweep *service.SweepService, interval time.Duration) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := sweep.Run(ctx); err != nil {
				log.Printf("[sweep] run failed: %v", err)
			}
		}
	}
}
