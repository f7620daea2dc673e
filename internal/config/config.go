package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	"resume-assist/internal/models"
)

const (
	SplitterRecursive = "recursive"
	SplitterFixed     = "fixed"

	ProviderOllama  = "ollama"
	ProviderOpenAI  = "openai"
	ProviderBedrock = "bedrock"

	BackendChromem  = "chromem"
	BackendBadger   = "badger"
	BackendPgvector = "pgvector"

	DriverPgdriver = "pgdriver"
	DriverPq       = "pq"
	DriverSqlite   = "sqlite"
)

type Config struct {
	RAG         RAGConfig         `yaml:"rag" toml:"rag"`
	EmbedLLM    LLMConfig         `yaml:"embed_llm" toml:"embed_llm"`
	LLM         LLMConfig         `yaml:"llm" toml:"llm"`
	VectorStore VectorStoreConfig `yaml:"vector_store" toml:"vector_store"`
	Database    DatabaseConfig    `yaml:"database" toml:"database"`
}

// Duration reads "500ms" style strings from both YAML and TOML.
type Duration time.Duration

func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	*d = Duration(v)
	return nil
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(d).String()), nil
}

type RAGConfig struct {
	DataDir        string   `yaml:"data_dir" toml:"data_dir"`
	FileTypes      []string `yaml:"file_types" toml:"file_types"`
	ChunkSize      int      `yaml:"chunk_size" toml:"chunk_size"`
	ChunkOverlap   int      `yaml:"chunk_overlap" toml:"chunk_overlap"`
	Splitter       string   `yaml:"splitter" toml:"splitter"`
	EmbedBatchSize int      `yaml:"embed_batch_size" toml:"embed_batch_size"`
	Workers        int      `yaml:"workers" toml:"workers"`
	TopK           int      `yaml:"top_k" toml:"top_k"`
}

// LLMConfig describes a model endpoint. It is used for the embedder and the chat model.
type LLMConfig struct {
	Provider   string   `yaml:"provider" toml:"provider"`
	BaseURL    string   `yaml:"base_url" toml:"base_url"`
	Model      string   `yaml:"model" toml:"model"`
	Key        string   `yaml:"key" toml:"key"`
	Region     string   `yaml:"region" toml:"region"`
	MaxRetries int      `yaml:"max_retries" toml:"max_retries"`
	RetryDelay Duration `yaml:"retry_delay" toml:"retry_delay"`
	// RateLimit caps provider calls per second; 0 disables the limit.
	RateLimit float64 `yaml:"rate_limit" toml:"rate_limit"`
	// QueryCache is the number of query embeddings kept in memory; 0 disables it.
	QueryCache int `yaml:"query_cache" toml:"query_cache"`
}

type VectorStoreConfig struct {
	Backend       string `yaml:"backend" toml:"backend"`
	Path          string `yaml:"path" toml:"path"`
	Collection    string `yaml:"collection" toml:"collection"`
	InMemory      bool   `yaml:"in_memory" toml:"in_memory"`
	Compress      bool   `yaml:"compress" toml:"compress"`
	EncryptionKey string `yaml:"encryption_key" toml:"encryption_key"`
	SnapshotPath  string `yaml:"snapshot_path" toml:"snapshot_path"`
}

type DatabaseConfig struct {
	Driver string `yaml:"driver" toml:"driver"`
	DSN    string `yaml:"dsn" toml:"dsn"`
	Debug  bool   `yaml:"debug" toml:"debug"`
}

// Default returns the configuration used when a field is left empty in the file.
func Default() *Config {
	return &Config{
		RAG: RAGConfig{
			DataDir:        "data",
			ChunkSize:      1000,
			ChunkOverlap:   200,
			Splitter:       SplitterRecursive,
			EmbedBatchSize: 32,
			Workers:        4,
			TopK:           5,
		},
		EmbedLLM: LLMConfig{
			Provider:   ProviderBedrock,
			Model:      "amazon.titan-embed-text-v1",
			Region:     "us-east-1",
			MaxRetries: 3,
			RetryDelay: Duration(500 * time.Millisecond),
		},
		LLM: LLMConfig{
			Provider: ProviderOllama,
			BaseURL:  "http://localhost:11434",
			Model:    "llama3.2",
		},
		VectorStore: VectorStoreConfig{
			Backend:    BackendChromem,
			Path:       "chroma",
			Collection: "documents",
		},
		Database: DatabaseConfig{
			Driver: DriverPgdriver,
		},
	}
}

// LoadConfig reads a YAML file, or a TOML file when the extension is
// .toml, on top of Default and validates the result.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := Default()
	if strings.EqualFold(filepath.Ext(path), ".toml") {
		err = toml.Unmarshal(data, cfg)
	} else {
		err = yaml.Unmarshal(data, cfg)
	}
	if err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate reports the first unusable value as models.ErrInvalidConfig.
func (c *Config) Validate() error {
	if err := ValidateChunking(c.RAG.ChunkSize, c.RAG.ChunkOverlap); err != nil {
		return err
	}
	switch c.RAG.Splitter {
	case SplitterRecursive, SplitterFixed:
	default:
		return fmt.Errorf("%w: unknown splitter %q", models.ErrInvalidConfig, c.RAG.Splitter)
	}
	if c.RAG.EmbedBatchSize <= 0 {
		return fmt.Errorf("%w: embed_batch_size must be > 0", models.ErrInvalidConfig)
	}
	if c.RAG.TopK <= 0 {
		return fmt.Errorf("%w: top_k must be > 0", models.ErrInvalidConfig)
	}
	switch c.EmbedLLM.Provider {
	case ProviderOllama, ProviderOpenAI, ProviderBedrock:
	default:
		return fmt.Errorf("%w: unknown embedding provider %q", models.ErrInvalidConfig, c.EmbedLLM.Provider)
	}
	if c.EmbedLLM.Model == "" {
		return fmt.Errorf("%w: embed_llm.model is required", models.ErrInvalidConfig)
	}
	if c.EmbedLLM.MaxRetries < 0 {
		return fmt.Errorf("%w: embed_llm.max_retries must be >= 0", models.ErrInvalidConfig)
	}
	if c.EmbedLLM.RateLimit < 0 || c.EmbedLLM.QueryCache < 0 {
		return fmt.Errorf("%w: embed_llm.rate_limit and query_cache must be >= 0", models.ErrInvalidConfig)
	}
	switch c.VectorStore.Backend {
	case BackendChromem, BackendBadger:
		if c.VectorStore.Path == "" && !c.VectorStore.InMemory {
			return fmt.Errorf("%w: vector_store.path is required", models.ErrInvalidConfig)
		}
	case BackendPgvector:
		if c.Database.DSN == "" {
			return fmt.Errorf("%w: database.dsn is required for the pgvector backend", models.ErrInvalidConfig)
		}
	default:
		return fmt.Errorf("%w: unknown vector store backend %q", models.ErrInvalidConfig, c.VectorStore.Backend)
	}
	if c.VectorStore.Collection == "" {
		return fmt.Errorf("%w: vector_store.collection is required", models.ErrInvalidConfig)
	}
	if k := len(c.VectorStore.EncryptionKey); k != 0 && k != 32 {
		return fmt.Errorf("%w: vector_store.encryption_key must be 32 bytes", models.ErrInvalidConfig)
	}
	switch c.Database.Driver {
	case DriverPgdriver, DriverPq, DriverSqlite:
	default:
		return fmt.Errorf("%w: unknown database driver %q", models.ErrInvalidConfig, c.Database.Driver)
	}
	return nil
}

// ValidateChunking checks 0 < size and 0 <= overlap < size.
func ValidateChunking(size, overlap int) error {
	if size <= 0 {
		return fmt.Errorf("%w: chunk_size must be > 0, got %d", models.ErrInvalidConfig, size)
	}
	if overlap < 0 || overlap >= size {
		return fmt.Errorf("%w: chunk_overlap must satisfy 0 <= overlap < chunk_size, got overlap=%d size=%d",
			models.ErrInvalidConfig, overlap, size)
	}
	return nil
}
