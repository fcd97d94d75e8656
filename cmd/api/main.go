package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"hodhod-backend/internal/config"
	"hodhod-backend/internal/interfaces/router"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("config load: " + err.Error())
	}

	app, db, rdb, sw, err := router.CreateApp(cfg)
	if err != nil {
		panic("app create: " + err.Error())
	}

	// Verify connections before printing startup banners.
	if db != nil {
		sqlDB, err := db.DB()
		if err != nil {
			panic("Postgres: get DB: " + err.Error())
		}
		if err := sqlDB.Ping(); err != nil {
			panic("Postgres connection failed: " + err.Error())
		}
		fmt.Println("Postgres connected")
	}
	if rdb != nil {
		if err := rdb.Ping(context.Background()).Err(); err != nil {
			panic("Redis connection failed: " + err.Error())
		}
		fmt.Println("Redis connected")
	}

	if sw != nil {
		if err := sw.Start(cfg.SweepInterval); err != nil {
			panic("sweeper start: " + err.Error())
		}
	}

	port := cfg.Port
	if port == "" {
		port = "8888"
	}
	fmt.Printf("Server running at http://localhost:%s\n", port)
	fmt.Printf("Health check: http://localhost:%s/health/json\n", port)
	fmt.Println("---")

	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh
		if sw != nil {
			sw.Stop()
		}
		_ = app.Shutdown()
	}()

	if err := app.Listen(":" + port); err != nil {
		panic(err)
	}
}
