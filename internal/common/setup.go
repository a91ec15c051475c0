package common

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"credshield-go/internal/api"
	"credshield-go/internal/chaindata"
	"credshield-go/internal/database"
	"credshield-go/internal/formance"
	"credshield-go/internal/lending"
	"credshield-go/internal/lock"
	"credshield-go/internal/models"
	"credshield-go/internal/narrative"
	"credshield-go/internal/reference"
	"credshield-go/internal/scoring"
	"credshield-go/internal/store"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// init loads environment variables from .env file if it exists
func init() {
	// Try to load .env file - if it doesn't exist, that's okay
	// Environment variables can be set via other means (shell export, docker, etc.)
	if err := godotenv.Load(); err != nil {
		log.Printf("Note: No .env file found or unable to load it: %v\n", err)
		log.Println("Make sure to set environment variables via export or other means")
	} else {
		log.Println("✓ Loaded environment variables from .env file")
	}
}

type Services struct {
	Config    *models.Config
	DbService *database.Service
	Registry  *reference.Registry
	Engine    *lending.Engine
	Credit    *api.CreditService

	chain     *chaindata.Client
	redis     *redis.Client
	publisher *formance.Publisher
}

func InitializeLogger() (*zap.Logger, func()) {
	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}

	zap.ReplaceGlobals(logger)

	cleanup := func() {
		if err := logger.Sync(); err != nil {
			if !isIgnorableSyncError(err) {
				log.Printf("Failed to sync logger: %v\n", err)
			}
		}
	}

	return logger, cleanup
}

// InitializeServices wires the database, locks, external ledger, chain data,
// narrative model, lending engine and facade. Optional collaborators that are
// not configured are left out: scoring then falls back to an empty snapshot
// and the deterministic report, and publishing is disabled.
func InitializeServices(ctx context.Context, cfg *models.Config) (*Services, error) {
	s := &Services{Config: cfg}

	dbService, err := database.NewService(ctx, cfg.Database)
	if err != nil {
		return nil, err
	}
	s.DbService = dbService

	registry, err := LoadReferenceTables(cfg.ReferenceFile)
	if err != nil {
		s.Close()
		return nil, fmt.Errorf("failed to load reference tables: %w", err)
	}
	s.Registry = registry
	zap.L().Info("Reference tables loaded",
		zap.Int("protocols", registry.ProtocolCount()),
		zap.Int("tokens", registry.TokenCount()))

	locker, err := s.initLocker(ctx)
	if err != nil {
		s.Close()
		return nil, err
	}

	var publisher store.Publisher = store.NopPublisher{}
	if cfg.Formance.StackURL != "" {
		p, err := formance.NewPublisher(ctx, cfg.Formance)
		if err != nil {
			s.Close()
			return nil, fmt.Errorf("failed to initialize Formance publisher: %w", err)
		}
		s.publisher = p
		publisher = p
	} else {
		zap.L().Info("No Formance stack configured; external ledger publishing disabled")
	}

	engine, err := lending.NewEngine(dbService, locker, publisher, cfg.Lending, time.Now)
	if err != nil {
		s.Close()
		return nil, err
	}
	s.Engine = engine

	creditCfg := api.CreditServiceConfig{
		Engine:       engine,
		Scorer:       scoring.New(registry),
		NativeSymbol: cfg.Chain.NativeSymbol,
	}

	if cfg.Chain.RPCURL != "" {
		chain, err := chaindata.NewClient(ctx, cfg.Chain)
		if err != nil {
			s.Close()
			return nil, fmt.Errorf("failed to initialize chain data client: %w", err)
		}
		s.chain = chain
		creditCfg.Fetcher = chaindata.NewFetcher(chain)
	} else {
		zap.L().Warn("No chain RPC URL configured; wallets will be scored on an empty snapshot")
	}

	httpClient, err := chaindata.NewHttpClient(cfg.Narrative.Timeout)
	if err != nil {
		s.Close()
		return nil, fmt.Errorf("unable to create narrative http client: %w", err)
	}
	if llm := narrative.NewLLM(cfg.Narrative, httpClient); llm != nil {
		creditCfg.Generator = llm
	}

	credit, err := api.NewCreditService(creditCfg)
	if err != nil {
		s.Close()
		return nil, err
	}
	s.Credit = credit

	return s, nil
}

func (s *Services) initLocker(ctx context.Context) (lock.Locker, error) {
	if s.Config.Lock.RedisAddr == "" {
		zap.L().Info("Using in-process borrower locks")
		return lock.NewLocalLocker(), nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     s.Config.Lock.RedisAddr,
		Password: s.Config.Lock.RedisPassword,
		DB:       s.Config.Lock.RedisDB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to redis at %s: %w", s.Config.Lock.RedisAddr, err)
	}
	s.redis = client

	zap.L().Info("Using Redis borrower locks", zap.String("addr", s.Config.Lock.RedisAddr))
	return lock.NewRedisLocker(client, s.Config.Lock.TTL, s.Config.Lock.RetryInterval), nil
}

// InitializeDatabaseOnly initializes just the database service without collaborators
// Useful for read-only operations like ledger reports
func InitializeDatabaseOnly(ctx context.Context, cfg *models.Config) (*database.Service, error) {
	dbService, err := database.NewService(ctx, cfg.Database)
	if err != nil {
		return nil, err
	}
	return dbService, nil
}

func (s *Services) Close() {
	if s.chain != nil {
		s.chain.Close()
	}
	if s.publisher != nil {
		s.publisher.Close()
	}
	if s.redis != nil {
		if err := s.redis.Close(); err != nil {
			zap.L().Warn("Failed to close redis client", zap.Error(err))
		}
	}
	if s.DbService != nil {
		s.DbService.Close()
	}
}

func isIgnorableSyncError(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "sync /dev/stderr: inappropriate ioctl for device") ||
		strings.Contains(msg, "sync /dev/stdout: inappropriate ioctl for device")
}
