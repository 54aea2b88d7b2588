package bootstrap

import (
	"context"
	"fmt"
	"os"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"pdfqa/internal/ai"
	appsvc "pdfqa/internal/app"
	"pdfqa/internal/config"
	"pdfqa/internal/model"
	mysqlClient "pdfqa/internal/platform/mysql"
	rabbitmqClient "pdfqa/internal/platform/rabbitmq"
	redisClient "pdfqa/internal/platform/redis"
	"pdfqa/internal/repository"
	"pdfqa/internal/worker"
)

type App struct {
	Config       *config.Config
	MySQL        *gorm.DB
	Redis        *redis.Client
	MQConn       *amqp.Connection
	LLM          *ai.Client
	Documents    *appsvc.DocumentService
	IngestWorker *worker.IngestWorker

	StartedAt time.Time
}

func New(ctx context.Context) (*App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config failed: %w", err)
	}

	mysqlDB, err := mysqlClient.New(ctx, cfg.MySQLDSN())
	if err != nil {
		return nil, err
	}
	if err := mysqlDB.AutoMigrate(
		&model.Document{},
		&model.Chunk{},
		&model.ChatSession{},
		&model.ChatMessage{},
	); err != nil {
		return nil, fmt.Errorf("auto migrate tables failed: %w", err)
	}

	redisCli, err := redisClient.New(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
	if err != nil {
		return nil, err
	}

	mqConn, err := rabbitmqClient.New(ctx, cfg.RabbitMQ.URL)
	if err != nil {
		return nil, err
	}

	if err := os.MkdirAll(cfg.Upload.Dir, 0o755); err != nil {
		return nil, fmt.Errorf("create upload dir failed: %w", err)
	}

	llm := ai.NewClient()
	docRepo := repository.NewDocumentRepository(mysqlDB)
	chunkRepo := repository.NewChunkRepository(mysqlDB)
	publisher := rabbitmqClient.NewIngestPublisher(mqConn, cfg.RabbitMQ.IngestQueue)
	documents := appsvc.NewDocumentService(
		docRepo,
		chunkRepo,
		llm,
		publisher,
		ai.EmbeddingConfig{
			BaseURL: cfg.LLM.BaseURL,
			APIKey:  cfg.LLM.APIKey,
			Model:   cfg.LLM.EmbeddingModel,
		},
		cfg.RAG.ChunkSize,
		cfg.RAG.ChunkOverlap,
	)

	ingestWorker := worker.NewIngestWorker(mqConn, documents, cfg.RabbitMQ.IngestQueue)
	if err := ingestWorker.Start(ctx); err != nil {
		return nil, fmt.Errorf("start ingest worker failed: %w", err)
	}

	return &App{
		Config:       cfg,
		MySQL:        mysqlDB,
		Redis:        redisCli,
		MQConn:       mqConn,
		LLM:          llm,
		Documents:    documents,
		IngestWorker: ingestWorker,
		StartedAt:    time.Now(),
	}, nil
}

func (a *App) Close() error {
	var closeErr error
	if a.Redis != nil {
		if err := a.Redis.Close(); err != nil {
			closeErr = err
		}
	}
	if a.IngestWorker != nil {
		a.IngestWorker.Close()
	}
	if a.MQConn != nil {
		if err := a.MQConn.Close(); err != nil {
			closeErr = err
		}
	}
	if a.MySQL != nil {
		sqlDB, err := a.MySQL.DB()
		if err == nil {
			if err := sqlDB.Close(); err != nil {
				closeErr = err
			}
		}
	}
	return closeErr
}
