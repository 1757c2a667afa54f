package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)

	assert.Equal(t, "https://api.openai.com/v1", cfg.Embedder.BaseURL)
	assert.Equal(t, "OPENAI_API_KEY", cfg.Embedder.APIKeyEnv)
	assert.Equal(t, "text-embedding-ada-002", cfg.Embedder.Model)
	assert.Equal(t, 1536, cfg.Embedder.Dimension)
	assert.Equal(t, "milvus", cfg.Index.Type)
	require.NotNil(t, cfg.Index.Milvus)
	assert.Equal(t, "http://localhost:19530", cfg.Index.Milvus.URL)
	assert.Equal(t, "supervisor_interests", cfg.Index.Milvus.Collection)
	assert.Equal(t, "IVF_FLAT", cfg.Index.Milvus.IndexType)
	assert.Equal(t, 128, cfg.Index.Milvus.NList)
	assert.Equal(t, 100, cfg.Search.TopK)
	assert.Equal(t, ":8080", cfg.Server.ListenAddr)
	assert.Equal(t, "info", cfg.Logging.Level)
}

func TestLoadAppliesDefaultsToPartialConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
embedder:
  model: custom-embedding-model
  dimension: 768
index:
  type: milvus
  milvus:
    url: http://milvus.internal:19530
    collection: lab_catalog
search:
  top_k: 50
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "custom-embedding-model", cfg.Embedder.Model)
	assert.Equal(t, 768, cfg.Embedder.Dimension)
	assert.Equal(t, "http://milvus.internal:19530", cfg.Index.Milvus.URL)
	assert.Equal(t, "lab_catalog", cfg.Index.Milvus.Collection)
	assert.Equal(t, 50, cfg.Search.TopK)

	// untouched fields get defaults
	assert.Equal(t, "OPENAI_API_KEY", cfg.Embedder.APIKeyEnv)
	assert.Equal(t, "IVF_FLAT", cfg.Index.Milvus.IndexType)
	assert.Equal(t, "supervisors.csv", cfg.Records.Path)
}

func TestLoadMemoryIndexNeedsNoMilvusBlock(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("index:\n  type: memory\n"), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "memory", cfg.Index.Type)
	assert.Nil(t, cfg.Index.Milvus)
}

func TestLoadRejectsMalformedYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("embedder: [not a map"), 0o644))

	_, err := Load(path)
	require.Error(t, err)
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sub", "config.yaml")
	cfg := defaultConfig()
	cfg.Index.Milvus.Collection = "roundtrip"

	require.NoError(t, Save(path, cfg))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "roundtrip", loaded.Index.Milvus.Collection)
}
