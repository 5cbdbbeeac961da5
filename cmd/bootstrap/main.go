// Package main 系统初始化工具：建立搜索索引与数据库表
package main

import (
	"context"
	"fmt"
	"log"

	"github.com/joho/godotenv"

	"memora-api/internal/config"
	"memora-api/internal/infrastructure/persistence/elastic"
	"memora-api/internal/infrastructure/persistence/postgres"
)

func main() {
	_ = godotenv.Load()

	fmt.Println("Starting system bootstrap...")

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	ctx := context.Background()

	// 1. Elasticsearch 索引
	esClient, err := elastic.NewClient(&cfg.Search.Elasticsearch)
	if err != nil {
		log.Fatalf("failed to connect elasticsearch: %v", err)
	}
	if err := esClient.HealthCheck(ctx); err != nil {
		log.Fatalf("elasticsearch is not reachable: %v", err)
	}
	fmt.Println("Ensuring search indices...")
	if err := esClient.EnsureIndices(ctx); err != nil {
		log.Fatalf("failed to ensure indices: %v", err)
	}
	fmt.Println("Search indices ready.")

	// 2. PostgreSQL 表结构
	pgClient, err := postgres.NewClient(&cfg.Database.Postgres)
	if err != nil {
		log.Fatalf("failed to connect postgres: %v", err)
	}
	defer pgClient.Close()

	fmt.Println("Running database migrations...")
	if err := pgClient.Migrate(); err != nil {
		log.Fatalf("failed to migrate database: %v", err)
	}
	fmt.Println("Database migrations complete.")

	fmt.Println("Bootstrap finished.")
}
