package types

import "time"

// HTTPConfig holds shared HTTP settings used by source clients.
type HTTPConfig struct {
	// Timeout is the HTTP request timeout.
	Timeout time.Duration `json:"timeout" yaml:"timeout"`

	// UserAgent is the User-Agent header sent with HTTP requests
	// (e.g. "citegraph/0.1").
	UserAgent string `json:"user_agent" yaml:"user_agent"`
}

// SourceConfig holds settings for the literature source clients.
type SourceConfig struct {
	HTTPConfig `yaml:",inline"`

	// EnableSemanticScholar controls whether the Semantic Scholar client is used.
	EnableSemanticScholar bool `json:"enable_semantic_scholar" yaml:"enable_semantic_scholar"`

	// EnableOpenAlex controls whether the OpenAlex client is used.
	EnableOpenAlex bool `json:"enable_openalex" yaml:"enable_openalex"`

	// EnableArxiv controls whether the arXiv client is used. arXiv can seed
	// a run but reports no citation lists.
	EnableArxiv bool `json:"enable_arxiv" yaml:"enable_arxiv"`

	// SemanticScholarAPIKey is an optional API key for higher rate limits.
	SemanticScholarAPIKey string `json:"semantic_scholar_api_key,omitempty" yaml:"semantic_scholar_api_key,omitempty"`

	// OpenAlexEmail is sent as the mailto parameter for polite pool access.
	OpenAlexEmail string `json:"openalex_email,omitempty" yaml:"openalex_email,omitempty"`
}

// GovernorConfig holds per-source rate governing settings. One governor is
// shared by every run in the process, so the limits below are a global
// budget per external service, not a per-run one.
type GovernorConfig struct {
	// RatePerSecond is the sustained request rate allowed per source
	// (default 1, matching the public Semantic Scholar budget).
	RatePerSecond float64 `json:"rate_per_second" yaml:"rate_per_second"`

	// Burst is the token bucket burst size per source (default 1).
	Burst int `json:"burst" yaml:"burst"`

	// MaxConcurrent bounds simultaneous in-flight requests per source,
	// independently of the rate limit (default 4).
	MaxConcurrent int64 `json:"max_concurrent" yaml:"max_concurrent"`

	// MaxWait is how long a caller may block waiting for a rate token
	// before the call fails with a rate-limit timeout (default 30s).
	MaxWait time.Duration `json:"max_wait" yaml:"max_wait"`

	// MaxRetries is the retry budget for throttled calls (default 5).
	MaxRetries int `json:"max_retries" yaml:"max_retries"`

	// BackoffBase is the starting backoff delay after a throttling
	// response (default 1s). The delay doubles each attempt with full
	// jitter applied.
	BackoffBase time.Duration `json:"backoff_base" yaml:"backoff_base"`

	// BackoffCap caps the backoff delay (default 60s).
	BackoffCap time.Duration `json:"backoff_cap" yaml:"backoff_cap"`
}

// WithDefaults fills zero fields with the documented defaults.
func (c GovernorConfig) WithDefaults() GovernorConfig {
	if c.RatePerSecond <= 0 {
		c.RatePerSecond = 1
	}
	if c.Burst <= 0 {
		c.Burst = 1
	}
	if c.MaxConcurrent <= 0 {
		c.MaxConcurrent = 4
	}
	if c.MaxWait <= 0 {
		c.MaxWait = 30 * time.Second
	}
	if c.MaxRetries <= 0 {
		c.MaxRetries = 5
	}
	if c.BackoffBase <= 0 {
		c.BackoffBase = time.Second
	}
	if c.BackoffCap <= 0 {
		c.BackoffCap = 60 * time.Second
	}
	return c
}

// ScorerConfig holds settings for the embedding-based relevance scorer.
type ScorerConfig struct {
	// Model is the embedding model identifier (default "text-embedding-3-small").
	Model string `json:"model" yaml:"model"`

	// APIKey authenticates against the embedding API.
	APIKey string `json:"api_key,omitempty" yaml:"api_key,omitempty"`

	// BaseURL overrides the embedding API endpoint, e.g. to point at a
	// local OpenAI-compatible embedding server. Empty uses the default.
	BaseURL string `json:"base_url,omitempty" yaml:"base_url,omitempty"`

	// CacheSize bounds the in-memory embedding cache (default 4096 entries).
	CacheSize int `json:"cache_size" yaml:"cache_size"`
}

// ExploreConfig holds settings for the exploration engine.
type ExploreConfig struct {
	// MaxDepth is how many citation hops to expand from the seeds (default 2).
	MaxDepth int `json:"max_depth" yaml:"max_depth"`

	// Threshold is the minimum relevance score for admission, in [0,1]
	// (default 0.5).
	Threshold float64 `json:"threshold" yaml:"threshold"`

	// SeedLimit is the maximum number of seed papers per source (default 10).
	SeedLimit int `json:"seed_limit" yaml:"seed_limit"`

	// MaxCitationsPerPaper truncates each paper's citation list before
	// expansion, to keep runs within API quota. Zero means no limit.
	MaxCitationsPerPaper int `json:"max_citations_per_paper" yaml:"max_citations_per_paper"`

	// Workers bounds concurrent frontier expansions within one depth level
	// (default 4).
	Workers int `json:"workers" yaml:"workers"`
}

// CacheConfig holds settings for the on-disk paper cache.
type CacheConfig struct {
	// Path is the SQLite database file. Empty disables caching.
	Path string `json:"path" yaml:"path"`

	// TTL is how long a cached record stays fresh. Zero means forever.
	TTL time.Duration `json:"ttl" yaml:"ttl"`
}

// Config groups all stage configurations for the CLI.
type Config struct {
	Sources  SourceConfig   `json:"sources" yaml:"sources"`
	Governor GovernorConfig `json:"governor" yaml:"governor"`
	Scorer   ScorerConfig   `json:"scorer" yaml:"scorer"`
	Explore  ExploreConfig  `json:"explore" yaml:"explore"`
	Cache    CacheConfig    `json:"cache" yaml:"cache"`
}
