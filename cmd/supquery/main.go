package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"supmatch/internal/config"
	"supmatch/internal/domain"
	"supmatch/internal/embedding/openai"
	"supmatch/internal/service"
	"supmatch/internal/tui"
	"supmatch/internal/vectorindex/memory"
	"supmatch/internal/vectorindex/milvus"
)

// supquery is an interactive terminal client against the same catalog
// the HTTP server uses.
func main() {
	_ = godotenv.Load()

	var cfgPath string
	flag.StringVar(&cfgPath, "config", "", "Path to YAML config file (optional; uses ~/.config/supmatch/config.yaml if not provided)")
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

	// the TUI owns the terminal, keep log output out of the way
	logger := zap.NewNop()

	emb, err := openai.NewClient(openai.Config{
		BaseURL:   cfg.Embedder.BaseURL,
		APIKeyEnv: cfg.Embedder.APIKeyEnv,
		Model:     cfg.Embedder.Model,
		Timeout:   time.Duration(cfg.Embedder.TimeoutSecs) * time.Second,
		Dimension: cfg.Embedder.Dimension,
	})
	if err != nil {
		log.Fatalf("failed to build embedder: %v", err)
	}

	var index domain.VectorIndex
	switch cfg.Index.Type {
	case "milvus", "":
		m := cfg.Index.Milvus
		index = milvus.NewIndex(milvus.Config{
			URL:        m.URL,
			Token:      os.Getenv(m.TokenEnv),
			Collection: m.Collection,
			IndexType:  m.IndexType,
			NList:      m.NList,
			Timeout:    time.Duration(m.TimeoutSecs) * time.Second,
		})
	case "memory":
		index = memory.NewIndex()
	default:
		log.Fatalf("unknown index type: %s", cfg.Index.Type)
	}

	svc := service.New(emb, index, cfg.Records.Path, cfg.Search.TopK, logger)
	if err := svc.SetupIfNeeded(); err != nil {
		log.Fatalf("setup failed: %v", err)
	}

	p := tea.NewProgram(tui.New(svc), tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		fmt.Println("error:", err)
		os.Exit(1)
	}
}
