package main

import (
	"flag"
	"log"
	"os"

	"ImpulseSaver/internal/di"
	"ImpulseSaver/pkg/config"
)

func main() {
	configPath := flag.String("config", "config/config.yaml", "config file path")
	flag.Parse()

	cfg, err := config.LoadWithEnv(*configPath)
	if err != nil {
		log.Fatalf("config load failed: %v", err)
	}

	log.Printf("env=%s kafka=%v clickhouse=%v redis=%v", cfg.Environment, cfg.Kafka.Enabled, cfg.ClickHouse.Enabled, cfg.Redis.Enabled)

	app, err := di.InitializeApp(cfg)
	if err != nil {
		log.Fatalf("app initialization failed: %v", err)
	}

	// Run application (blocks until signal)
	if err := app.Run(); err != nil {
		log.Printf("app error: %v", err)
		os.Exit(1)
	}
}
