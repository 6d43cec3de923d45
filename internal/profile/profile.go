package profile

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/pkg/errors"
)

// Profile is the configuration to start the gateway server.
type Profile struct {
	// Mode can be "prod" or "dev".
	Mode string
	// Addr is the binding address for the server.
	Addr string
	// Port is the binding port for the server.
	Port int
	// DSN points to the Postgres database holding media and vectors.
	DSN string
	// Driver is the database driver. Only "postgres" is supported.
	Driver string
	// Version is the current version of the server.
	Version string

	// EmbedderBaseURL is the base URL of the embedding microservice.
	EmbedderBaseURL string
	// EmbedderTimeout bounds every single call to the embedding service.
	EmbedderTimeout time.Duration
	// EmbeddingDim is the expected dimension of every returned vector.
	EmbeddingDim int
	// EmbeddingModel is the model identifier stored alongside each vector.
	EmbeddingModel string

	// EmbedMaxRetries is how many times a failed batch is retried before splitting.
	EmbedMaxRetries int
	// EmbedBackoffBase is the base of the linear retry backoff (base * attempt).
	EmbedBackoffBase time.Duration
	// EmbedSplitThreshold is the minimum batch size still worth splitting in half.
	EmbedSplitThreshold int

	// QueueCapacity is the size of the bounded ingestion buffer.
	QueueCapacity int
	// QueueBatchSize is the maximum number of tasks dispatched per flush.
	QueueBatchSize int
	// QueueFlushInterval bounds the staleness of a partially filled batch.
	QueueFlushInterval time.Duration
	// QueueOfferTimeout bounds Enqueue when the buffer is full. Zero blocks.
	QueueOfferTimeout time.Duration
	// QueueMaxAttempts is the per-task attempt ceiling before a permanent drop.
	QueueMaxAttempts int
	// QueueRetryDelay is the delay before a failed task is re-enqueued.
	QueueRetryDelay time.Duration

	// MonitorInterval is the embedding service liveness probe interval.
	MonitorInterval time.Duration

	// RateLimitRPS is the per-user request rate for the search API.
	RateLimitRPS float64
	// RateLimitBurst is the per-user burst for the search API.
	RateLimitBurst int
}

func (p *Profile) IsDev() bool {
	return p.Mode != "prod"
}

// ListenAddr returns the host:port the HTTP server binds to.
func (p *Profile) ListenAddr() string {
	return fmt.Sprintf("%s:%d", p.Addr, p.Port)
}

// Validate normalizes the profile and rejects configurations the server
// cannot start with.
func (p *Profile) Validate() error {
	if p.Mode != "dev" && p.Mode != "prod" {
		p.Mode = "dev"
	}
	if p.Port <= 0 || p.Port > 65535 {
		return errors.Errorf("invalid port %d", p.Port)
	}
	if p.Driver == "" {
		p.Driver = "postgres"
	}
	if p.Driver != "postgres" {
		return errors.Errorf("unsupported database driver %q", p.Driver)
	}
	if p.DSN == "" {
		return errors.New("dsn is required")
	}
	if p.EmbedderBaseURL == "" {
		return errors.New("embedder base url is required")
	}
	if _, err := url.Parse(p.EmbedderBaseURL); err != nil {
		return errors.Wrapf(err, "invalid embedder base url %q", p.EmbedderBaseURL)
	}
	p.EmbedderBaseURL = strings.TrimRight(p.EmbedderBaseURL, "/")
	if p.EmbeddingDim <= 0 {
		return errors.Errorf("invalid embedding dimension %d", p.EmbeddingDim)
	}

	if p.EmbedderTimeout <= 0 {
		p.EmbedderTimeout = 30 * time.Second
	}
	if p.EmbedMaxRetries <= 0 {
		p.EmbedMaxRetries = 3
	}
	if p.EmbedBackoffBase <= 0 {
		p.EmbedBackoffBase = 500 * time.Millisecond
	}
	if p.EmbedSplitThreshold <= 1 {
		p.EmbedSplitThreshold = 8
	}

	if p.QueueCapacity <= 0 {
		p.QueueCapacity = 256
	}
	if p.QueueBatchSize <= 0 {
		p.QueueBatchSize = 16
	}
	if p.QueueFlushInterval <= 0 {
		p.QueueFlushInterval = 2 * time.Second
	}
	if p.QueueOfferTimeout < 0 {
		p.QueueOfferTimeout = 0
	}
	if p.QueueMaxAttempts <= 0 {
		p.QueueMaxAttempts = 3
	}
	if p.QueueRetryDelay <= 0 {
		p.QueueRetryDelay = 10 * time.Second
	}

	if p.MonitorInterval <= 0 {
		p.MonitorInterval = 10 * time.Second
	}
	if p.RateLimitRPS <= 0 {
		p.RateLimitRPS = 10
	}
	if p.RateLimitBurst <= 0 {
		p.RateLimitBurst = 20
	}
	return nil
}
