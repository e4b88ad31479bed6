package main

import (
	"context"
	"database/sql"
	"flag"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"google.golang.org/grpc"

	"freightdesk.org/internal/audit"
	"freightdesk.org/internal/auth"
	"freightdesk.org/internal/config"
	"freightdesk.org/internal/httpapi"
	"freightdesk.org/internal/obs"
	"freightdesk.org/internal/shipping"
	"freightdesk.org/internal/store/pg"
	"freightdesk.org/internal/stream"
)

var (
	version = "0.3.0"
	commit  = "dev"
)

func main() {
	configPath := flag.String("config", os.Getenv("FREIGHTDESK_CONFIG"), "Path to YAML config")
	flag.Parse()

	obs.Init()
	obs.InitBuildInfo(version, commit)

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	// The token layer reads the signing secret from the environment.
	if cfg.Auth.Secret != "" {
		_ = os.Setenv("FREIGHTDESK_AUTH_SECRET", cfg.Auth.Secret)
	}

	events := stream.New()

	var (
		db        *sql.DB
		directory auth.Directory
		ships     shipping.Service
		recorder  audit.Recorder
	)
	if cfg.Database.DSN != "" {
		store, err := pg.Open(cfg.Database)
		if err != nil {
			log.Fatalf("open db: %v", err)
		}
		store.SetTrackingPublisher(events)
		db = store.DB()
		directory = store
		ships = store
		recorder = store
	} else {
		// No DSN configured: run everything in memory with audit to logs.
		directory = auth.NewInMemoryDirectory()
		ships = shipping.NewInMemory(events)
		recorder = audit.LogRecorder{}
	}

	api := httpapi.New(httpapi.Options{
		Ready:        httpapi.ReadyProbe{DB: db},
		Version:      version,
		RBAC:         auth.NewRBACService(directory),
		Shipping:     ships,
		Stream:       events,
		Recorder:     recorder,
		AccessTTL:    cfg.Auth.AccessTTL.Std(),
		MaxBodyBytes: cfg.HTTP.MaxBodyBytes,
		RatePerSec:   cfg.HTTP.RatePerSec,
		RateBurst:    cfg.HTTP.RateBurst,
	})

	srv := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           api.Handler(),
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	grpcSrv := grpc.NewServer()
	httpapi.NewGRPCServer(httpapi.ReadyProbe{DB: db}, version).Register(grpcSrv)

	log.Printf("Starting freightdesk-api %s on %s (grpc %s)", version, srv.Addr, cfg.Server.GRPCAddr)

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %v", err)
		}
	}()
	go func() {
		lis, err := net.Listen("tcp", cfg.Server.GRPCAddr)
		if err != nil {
			log.Fatalf("grpc listen: %v", err)
		}
		if err := grpcSrv.Serve(lis); err != nil {
			log.Fatalf("grpc serve: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	<-stop
	log.Println("Shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_ = srv.Shutdown(ctx)
	grpcSrv.GracefulStop()
	if db != nil {
		_ = db.Close()
	}
	log.Println("Stopped")
}
