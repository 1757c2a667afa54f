package config

import (
	"errors"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// EmbedderConfig configures the OpenAI-compatible embedding provider.
// The dimension must match the vector field of the index collection.
type EmbedderConfig struct {
	BaseURL     string `yaml:"base_url"`
	APIKeyEnv   string `yaml:"api_key_env"`
	Model       string `yaml:"model"`
	TimeoutSecs int    `yaml:"timeout_secs"`
	Dimension   int    `yaml:"dimension"`
}

// MilvusConfig contains connection details for a Milvus vector index.
type MilvusConfig struct {
	URL         string `yaml:"url"`
	TokenEnv    string `yaml:"token_env"`
	Collection  string `yaml:"collection"`
	IndexType   string `yaml:"index_type"`
	NList       int    `yaml:"nlist"`
	TimeoutSecs int    `yaml:"timeout_secs"`
}

// IndexConfig selects and configures the vector index implementation.
type IndexConfig struct {
	Type   string        `yaml:"type"`
	Milvus *MilvusConfig `yaml:"milvus,omitempty"`
}

// RecordsConfig points at the supervisor source spreadsheet export.
type RecordsConfig struct {
	Path string `yaml:"path"`
}

// SearchConfig tunes the retrieval engine.
type SearchConfig struct {
	TopK int `yaml:"top_k"`
}

// ServerConfig configures the HTTP listener.
type ServerConfig struct {
	ListenAddr          string `yaml:"listen_addr"`
	ShutdownTimeoutSecs int    `yaml:"shutdown_timeout_secs"`
	ReadTimeoutSecs     int    `yaml:"read_timeout_secs"`
	WriteTimeoutSecs    int    `yaml:"write_timeout_secs"`
}

// LoggingConfig configures structured logging output.
type LoggingConfig struct {
	Level      string `yaml:"level"`
	File       string `yaml:"file,omitempty"`
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
}

// AppConfig is the root application configuration structure. One AppConfig
// is built at startup and passed down explicitly; there are no hidden
// module-level settings.
type AppConfig struct {
	Embedder EmbedderConfig `yaml:"embedder"`
	Index    IndexConfig    `yaml:"index"`
	Records  RecordsConfig  `yaml:"records"`
	Search   SearchConfig   `yaml:"search"`
	Server   ServerConfig   `yaml:"server"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// Load reads a config from a specified path. If the file does not exist, returns defaults.
func Load(path string) (*AppConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			cfg := defaultConfig()
			return cfg, nil
		}
		return nil, err
	}
	var cfg AppConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	applyConfigDefaults(&cfg)
	return &cfg, nil
}

// LoadDefault tries ./config.yaml first, then ~/.config/supmatch/config.yaml.
// If neither exists, it writes defaults to ~/.config/supmatch/config.yaml and returns them.
func LoadDefault() (*AppConfig, string, error) {
	cwdPath := "config.yaml"
	if _, err := os.Stat(cwdPath); err == nil {
		cfg, err := Load(cwdPath)
		return cfg, cwdPath, err
	}
	userPath, err := defaultUserConfigPath()
	if err != nil {
		return nil, "", err
	}
	if _, err := os.Stat(userPath); err == nil {
		cfg, err := Load(userPath)
		return cfg, userPath, err
	}
	cfg := defaultConfig()
	if err := Save(userPath, cfg); err != nil {
		return nil, "", err
	}
	return cfg, userPath, nil
}

// Save writes the config to the given path, creating directories as needed.
func Save(path string, cfg *AppConfig) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

func defaultUserConfigPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "supmatch", "config.yaml"), nil
}

func defaultConfig() *AppConfig {
	cfg := &AppConfig{
		Index: IndexConfig{
			Type: "milvus",
			Milvus: &MilvusConfig{
				URL:        "http://localhost:19530",
				Collection: "supervisor_interests",
			},
		},
		Records: RecordsConfig{Path: "supervisors.csv"},
	}
	applyConfigDefaults(cfg)
	return cfg
}

func applyConfigDefaults(cfg *AppConfig) {
	if cfg.Embedder.BaseURL == "" {
		cfg.Embedder.BaseURL = "https://api.openai.com/v1"
	}
	if cfg.Embedder.APIKeyEnv == "" {
		cfg.Embedder.APIKeyEnv = "OPENAI_API_KEY"
	}
	if cfg.Embedder.Model == "" {
		cfg.Embedder.Model = "text-embedding-ada-002"
	}
	if cfg.Embedder.TimeoutSecs == 0 {
		cfg.Embedder.TimeoutSecs = 30
	}
	if cfg.Embedder.Dimension == 0 {
		cfg.Embedder.Dimension = 1536
	}
	if cfg.Index.Type == "" {
		cfg.Index.Type = "milvus"
	}
	if cfg.Index.Type == "milvus" {
		if cfg.Index.Milvus == nil {
			cfg.Index.Milvus = &MilvusConfig{}
		}
		if cfg.Index.Milvus.URL == "" {
			cfg.Index.Milvus.URL = "http://localhost:19530"
		}
		if cfg.Index.Milvus.Collection == "" {
			cfg.Index.Milvus.Collection = "supervisor_interests"
		}
		if cfg.Index.Milvus.IndexType == "" {
			cfg.Index.Milvus.IndexType = "IVF_FLAT"
		}
		if cfg.Index.Milvus.NList == 0 {
			cfg.Index.Milvus.NList = 128
		}
		if cfg.Index.Milvus.TimeoutSecs == 0 {
			cfg.Index.Milvus.TimeoutSecs = 15
		}
	}
	if cfg.Records.Path == "" {
		cfg.Records.Path = "supervisors.csv"
	}
	if cfg.Search.TopK == 0 {
		cfg.Search.TopK = 100
	}
	if cfg.Server.ListenAddr == "" {
		cfg.Server.ListenAddr = ":8080"
	}
	if cfg.Server.ShutdownTimeoutSecs == 0 {
		cfg.Server.ShutdownTimeoutSecs = 10
	}
	if cfg.Server.ReadTimeoutSecs == 0 {
		cfg.Server.ReadTimeoutSecs = 30
	}
	if cfg.Server.WriteTimeoutSecs == 0 {
		cfg.Server.WriteTimeoutSecs = 60
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.MaxSizeMB == 0 {
		cfg.Logging.MaxSizeMB = 50
	}
	if cfg.Logging.MaxBackups == 0 {
		cfg.Logging.MaxBackups = 3
	}
}
