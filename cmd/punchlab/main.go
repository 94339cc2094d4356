package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"punchlab/backend"
	"punchlab/config"
	"punchlab/engine"
	"punchlab/gateway"
	"punchlab/messaging"
	"punchlab/store"
	"punchlab/www"
)

var Version = "dev"

func main() {
	showVersion := flag.Bool("version", false, "print version and exit")
	configPath := flag.String("config", "punchlab.yaml", "path to config file")
	flag.Parse()

	if *showVersion {
		fmt.Println("punchlab", Version)
		return
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	// Database
	db, err := store.Open(&cfg.Database)
	if err != nil {
		log.Fatalf("open database: %v", err)
	}
	defer db.Close()
	log.Printf("punchlab: database open (%s)", cfg.Database.Driver)

	// Redis
	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Address,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	if err := redisClient.Ping(ctx).Err(); err != nil {
		log.Printf("punchlab: redis not available (%v), running without template cache", err)
		redisClient.Close()
		redisClient = nil
	} else {
		log.Printf("punchlab: redis connected (%s)", cfg.Redis.Address)
		defer redisClient.Close()
	}
	cancel()

	// Gateway client and template cache
	gw := gateway.NewClient(cfg.Gateway.BaseURL, cfg.Gateway.Timeout)
	templates := gateway.NewTemplateCache(gw, redisClient, cfg.Redis.TemplateTTL)

	// Audit/session backend
	api := backend.NewClient(cfg.API.BaseURL, cfg.API.Timeout)

	// Messaging client
	msgClient := messaging.NewClient(&cfg.Messaging)
	if err := msgClient.Connect(); err != nil {
		log.Printf("punchlab: messaging connect failed (%v)", err)
	} else {
		log.Printf("punchlab: messaging connected (kafka)")
	}
	defer msgClient.Close()

	// Engine
	eng := engine.New(engine.Config{
		AppConfig:  cfg,
		ConfigPath: *configPath,
		DB:         db,
		Gateway:    gw,
		Templates:  templates,
		Backend:    api,
		MsgClient:  msgClient,
	})
	eng.Start()
	defer eng.Stop()

	// Remote execution requests (inbound from CI and other integrations)
	consumer := messaging.NewConsumer(msgClient, cfg.Messaging.RequestsTopic, eng)
	if err := consumer.Start(); err != nil {
		log.Printf("punchlab: request consumer subscribe failed: %v", err)
	} else {
		log.Printf("punchlab: request consumer listening on %s", cfg.Messaging.RequestsTopic)
	}

	// Outbox drainer (outbound execution results)
	drainer := messaging.NewOutboxDrainer(db, msgClient, cfg.Messaging.OutboxDrainInterval)
	drainer.Start()
	defer drainer.Stop()

	// Web server
	handler, stopWeb := www.NewRouter(eng)

	addr := fmt.Sprintf("%s:%d", cfg.Web.Host, cfg.Web.Port)
	srv := &http.Server{
		Addr:    addr,
		Handler: handler,
	}

	go func() {
		log.Printf("punchlab: web server listening on %s", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("web server: %v", err)
		}
	}()

	log.Printf("punchlab: ready")

	// Wait for shutdown signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	log.Printf("punchlab: shutting down...")
	stopWeb()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	srv.Shutdown(shutdownCtx)

	log.Printf("punchlab: stopped")
}
