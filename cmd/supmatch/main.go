package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"supmatch/internal/config"
	"supmatch/internal/domain"
	"supmatch/internal/embedding/openai"
	"supmatch/internal/logging"
	"supmatch/internal/server"
	"supmatch/internal/service"
	"supmatch/internal/vectorindex/memory"
	"supmatch/internal/vectorindex/milvus"
)

func main() {
	_ = godotenv.Load()

	var cfgPath, listen, milvusURL string
	flag.StringVar(&cfgPath, "config", "", "Path to YAML config file (optional; uses ~/.config/supmatch/config.yaml if not provided)")
	flag.StringVar(&listen, "listen", "", "Listen address override")
	flag.StringVar(&milvusURL, "milvus-url", "", "Milvus URL override")
	flag.Parse()

	var cfg *config.AppConfig
	var err error
	if cfgPath != "" {
		cfg, err = config.Load(cfgPath)
	} else {
		cfg, _, err = config.LoadDefault()
	}
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	if listen != "" {
		cfg.Server.ListenAddr = listen
	}
	if milvusURL != "" && cfg.Index.Milvus != nil {
		cfg.Index.Milvus.URL = milvusURL
	}

	logger, err := logging.New(cfg.Logging)
	if err != nil {
		log.Fatalf("failed to build logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	svc, err := buildService(cfg, logger)
	if err != nil {
		logger.Fatal("failed to assemble service", zap.Error(err))
	}

	// ingestion runs single-writer, before the listener starts
	if err := svc.SetupIfNeeded(); err != nil {
		logger.Fatal("setup failed", zap.Error(err))
	}

	srv := server.New(server.Config{
		ListenAddr:   cfg.Server.ListenAddr,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeoutSecs) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeoutSecs) * time.Second,
	}, svc, logger)

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Start() }()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	select {
	case err := <-errCh:
		if err != nil {
			logger.Fatal("server failed", zap.Error(err))
		}
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(),
			time.Duration(cfg.Server.ShutdownTimeoutSecs)*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("shutdown failed", zap.Error(err))
			os.Exit(1)
		}
	}
}

func buildService(cfg *config.AppConfig, logger *zap.Logger) (*service.Service, error) {
	emb, err := openai.NewClient(openai.Config{
		BaseURL:   cfg.Embedder.BaseURL,
		APIKeyEnv: cfg.Embedder.APIKeyEnv,
		Model:     cfg.Embedder.Model,
		Timeout:   time.Duration(cfg.Embedder.TimeoutSecs) * time.Second,
		Dimension: cfg.Embedder.Dimension,
	})
	if err != nil {
		return nil, err
	}
	index, err := buildIndex(cfg)
	if err != nil {
		return nil, err
	}
	return service.New(emb, index, cfg.Records.Path, cfg.Search.TopK, logger), nil
}

func buildIndex(cfg *config.AppConfig) (domain.VectorIndex, error) {
	switch cfg.Index.Type {
	case "milvus", "":
		m := cfg.Index.Milvus
		return milvus.NewIndex(milvus.Config{
			URL:        m.URL,
			Token:      os.Getenv(m.TokenEnv),
			Collection: m.Collection,
			IndexType:  m.IndexType,
			NList:      m.NList,
			Timeout:    time.Duration(m.TimeoutSecs) * time.Second,
		}), nil
	case "memory":
		return memory.NewIndex(), nil
	default:
		return nil, fmt.Errorf("unknown index type: %s", cfg.Index.Type)
	}
}
