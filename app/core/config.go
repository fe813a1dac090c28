package core

import (
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/coursebrain/coursebrain/app/core/srv"
	"github.com/coursebrain/coursebrain/pkg/chunker"
	"github.com/coursebrain/coursebrain/pkg/extract"
)

func MustLoadBaseConfig(path string) CoreConfig {
	if path == "" {
		return LoadBaseConfigFromENV()
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		panic(err)
	}

	conf := &CoreConfig{}
	if err = toml.Unmarshal(raw, conf); err != nil {
		panic(err)
	}

	return *conf
}

func LoadBaseConfigFromENV() CoreConfig {
	var c CoreConfig
	c.FromENV()
	return c
}

type CoreConfig struct {
	Addr        string            `toml:"addr"`
	Log         Log               `toml:"log"`
	Postgres    PGConfig          `toml:"postgres"`
	Redis       RedisConfig       `toml:"redis"`
	FileStorage FileStorageDriver `toml:"file_storage"`

	AI       srv.AIConfig   `toml:"ai"`
	Pipeline PipelineConfig `toml:"pipeline"`
	Sources  SourcesConfig  `toml:"sources"`

	Semaphore SemaphoreConfig `toml:"semaphore"`
}

type FileStorageDriver struct {
	Driver    string    `toml:"driver"`
	LocalRoot string    `toml:"local_root"`
	S3        *S3Config `toml:"s3"`
}

type S3Config struct {
	Bucket    string `toml:"bucket"`
	Region    string `toml:"region"`
	Endpoint  string `toml:"endpoint"`
	Prefix    string `toml:"prefix"`
	AccessKey string `toml:"access_key"`
	SecretKey string `toml:"secret_key"`
}

// PipelineConfig tunes the processing stages. Zero values fall back to
// the stage defaults.
type PipelineConfig struct {
	Chunker chunker.Options `toml:"chunker"`

	EmbeddingBatchSize    int `toml:"embedding_batch_size"`
	EmbeddingBatchDelayMs int `toml:"embedding_batch_delay_ms"`
	EmbeddingMaxRetries   int `toml:"embedding_max_retries"`
	EmbeddingRetryDelayMs int `toml:"embedding_retry_delay_ms"`
	EmbeddingTimeoutSec   int `toml:"embedding_timeout_sec"`

	ExtractionTimeoutSec int     `toml:"extraction_timeout_sec"`
	ConfidenceThreshold  float64 `toml:"confidence_threshold"`

	Workers int `toml:"workers"`
}

func (p PipelineConfig) ChunkerOptions() chunker.Options {
	opts := p.Chunker
	if opts.ChunkSize == 0 {
		opts = chunker.DefaultOptions()
	}
	return opts
}

func (p PipelineConfig) BatchSize() int {
	if p.EmbeddingBatchSize <= 0 {
		return 10
	}
	return p.EmbeddingBatchSize
}

func (p PipelineConfig) BatchDelay() time.Duration {
	if p.EmbeddingBatchDelayMs <= 0 {
		return time.Second
	}
	return time.Duration(p.EmbeddingBatchDelayMs) * time.Millisecond
}

func (p PipelineConfig) MaxRetries() int {
	if p.EmbeddingMaxRetries <= 0 {
		return 3
	}
	return p.EmbeddingMaxRetries
}

func (p PipelineConfig) RetryDelay() time.Duration {
	if p.EmbeddingRetryDelayMs <= 0 {
		return time.Second
	}
	return time.Duration(p.EmbeddingRetryDelayMs) * time.Millisecond
}

func (p PipelineConfig) EmbeddingTimeout() time.Duration {
	if p.EmbeddingTimeoutSec <= 0 {
		return time.Second * 60
	}
	return time.Duration(p.EmbeddingTimeoutSec) * time.Second
}

func (p PipelineConfig) ExtractionTimeout() time.Duration {
	if p.ExtractionTimeoutSec <= 0 {
		return extract.DefaultTimeout
	}
	return time.Duration(p.ExtractionTimeoutSec) * time.Second
}

func (p PipelineConfig) WorkerCount() int {
	if p.Workers <= 0 {
		return 4
	}
	return p.Workers
}

type SourcesConfig struct {
	YouTubeLang string `toml:"youtube_lang"`
	GitHubToken string `toml:"github_token"`

	// Remote extraction engines, keyed by method name.
	Extractors map[string]extract.RemoteEngineConfig `toml:"extractors"`
}

type SemaphoreConfig struct {
	Ingest IngestSemaphoreConfig `toml:"ingest"`
}

type IngestSemaphoreConfig struct {
	MaxConcurrency int `toml:"max_concurrency"`
}

func (c *CoreConfig) FromENV() {
	c.Addr = os.Getenv("CB_API_SERVICE_ADDRESS")
	c.Log.FromENV()
	c.Postgres.FromENV()
	c.Redis.FromENV()
	c.AI.Token = os.Getenv("CB_OPENAI_TOKEN")
	c.AI.Proxy = os.Getenv("CB_OPENAI_PROXY")
	c.Sources.GitHubToken = os.Getenv("CB_GITHUB_TOKEN")
}

type PGConfig struct {
	DSN string `toml:"dsn"`
}

func (m *PGConfig) FromENV() {
	m.DSN = os.Getenv("CB_POSTGRESQL_DSN")
}

func (c PGConfig) FormatDSN() string {
	return c.DSN
}

type RedisConfig struct {
	Addr     string `toml:"addr"`
	Password string `toml:"password"`
	DB       int    `toml:"db"`

	Cluster       bool     `toml:"cluster"`
	ClusterAddrs  []string `toml:"cluster_addrs"`
	ClusterPasswd string   `toml:"cluster_passwd"`

	KeyPrefix string `toml:"key_prefix"`
}

func (r *RedisConfig) FromENV() {
	r.Addr = os.Getenv("CB_REDIS_ADDR")
	r.Password = os.Getenv("CB_REDIS_PASSWORD")
	if dbStr := os.Getenv("CB_REDIS_DB"); dbStr != "" {
		if db, err := strconv.Atoi(dbStr); err == nil {
			r.DB = db
		}
	}
}

type Log struct {
	Level string `toml:"level"`
	Path  string `toml:"path"`
}

func (l *Log) FromENV() {
	l.Level = os.Getenv("CB_API_LOG_LEVEL")
	l.Path = os.Getenv("CB_API_LOG_PATH")
}

func (l *Log) SlogLevel() slog.Level {
	switch strings.ToLower(l.Level) {
	case "info":
		return slog.LevelInfo
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelDebug
	}
}
