// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/pdiddy/citegraph/internal/cache"
	"github.com/pdiddy/citegraph/internal/explore"
	"github.com/pdiddy/citegraph/internal/export"
	"github.com/pdiddy/citegraph/internal/govern"
	"github.com/pdiddy/citegraph/internal/score"
	"github.com/pdiddy/citegraph/internal/source"
	"github.com/pdiddy/citegraph/pkg/types"
)

var exploreCmd = &cobra.Command{
	Use:   "explore [query]",
	Short: "Explore the citation graph around a research query",
	Long: `Explore resolves the query into seed papers, expands citation links
breadth-first up to the depth budget, scores every candidate against the
query via embedding similarity, and prints the resulting knowledge graph.

Candidates below the relevance threshold are recorded for citation fidelity
but excluded from the final graph. Interrupting the run (Ctrl-C) returns
whatever was admitted so far, tagged incomplete.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runExplore,
}

func init() {
	exploreCmd.Flags().Int("max-depth", 2, "citation hops to expand from the seeds (0 = seeds only)")
	exploreCmd.Flags().Float64("threshold", 0.5, "minimum relevance score for admission, in [0,1]")
	exploreCmd.Flags().String("sources", "", "comma-separated sources: semantic_scholar, openalex, arxiv (default from config)")
	exploreCmd.Flags().Int("seed-limit", 10, "maximum seed papers per source")
	exploreCmd.Flags().Int("max-citations", 20, "citation list truncation per paper (0 = no limit)")
	exploreCmd.Flags().String("format", "table", "output format: table, json, yaml, dot")
	exploreCmd.Flags().String("output", "", "write output to file instead of stdout")
	exploreCmd.Flags().Duration("timeout", 0, "abort the run after this duration (0 = no limit)")
	exploreCmd.Flags().Bool("verbose", false, "log exploration progress to stderr")

	rootCmd.AddCommand(exploreCmd)
}

func runExplore(cmd *cobra.Command, args []string) error {
	query := strings.Join(args, " ")

	srcNames, _ := cmd.Flags().GetString("sources")
	format, _ := cmd.Flags().GetString("format")
	output, _ := cmd.Flags().GetString("output")
	timeout, _ := cmd.Flags().GetDuration("timeout")
	verbose, _ := cmd.Flags().GetBool("verbose")

	cfg := loadConfig()
	applyExploreFlags(cmd.Flags(), &cfg.Explore)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	if verbose {
		logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))
	}

	sources, closeCache, err := buildSources(cfg, srcNames, logger)
	if err != nil {
		return err
	}
	if closeCache != nil {
		defer closeCache()
	}

	scorer, err := score.NewScorer(score.NewOpenAIEmbedder(cfg.Scorer), cfg.Scorer.CacheSize)
	if err != nil {
		return err
	}

	engine := explore.New(
		govern.New(cfg.Governor, logger),
		scorer,
		sources,
		cfg.Explore,
		logger,
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	graph, runErr := engine.Run(ctx, explore.Request{
		Query:     query,
		MaxDepth:  cfg.Explore.MaxDepth,
		Threshold: cfg.Explore.Threshold,
	})
	switch {
	case runErr == nil:
	case errors.Is(runErr, explore.ErrNoSeeds):
		fmt.Fprintln(os.Stderr, "No seed papers found for the query.")
	case graph != nil && (errors.Is(runErr, context.Canceled) || errors.Is(runErr, context.DeadlineExceeded)):
		fmt.Fprintf(os.Stderr, "Run interrupted; returning partial graph (%d papers).\n", len(graph.Nodes))
	default:
		return runErr
	}

	w := cmd.OutOrStdout()
	if output != "" {
		f, err := os.Create(output)
		if err != nil {
			return fmt.Errorf("creating output file: %w", err)
		}
		defer f.Close()
		w = f
	}

	switch format {
	case "table":
		export.FormatTable(graph, w)
		return nil
	case "json":
		return export.WriteJSON(graph, w)
	case "yaml":
		return export.WriteYAML(graph, w)
	case "dot":
		return export.WriteDOT(graph, w)
	default:
		return fmt.Errorf("unknown format %q (want table, json, yaml, or dot)", format)
	}
}

// loadConfig merges viper-provided settings with secret files.
func loadConfig() types.Config {
	cfg := types.Config{
		Sources: types.SourceConfig{
			HTTPConfig: types.HTTPConfig{
				Timeout:   viper.GetDuration("sources.timeout"),
				UserAgent: viper.GetString("sources.user_agent"),
			},
			EnableSemanticScholar: viperBoolDefault("sources.enable_semantic_scholar", true),
			EnableOpenAlex:        viper.GetBool("sources.enable_openalex"),
			EnableArxiv:           viper.GetBool("sources.enable_arxiv"),
			SemanticScholarAPIKey: secretDefault("semantic-scholar-api-key", viper.GetString("sources.semantic_scholar_api_key")),
			OpenAlexEmail:         secretDefault("openalex-email", viper.GetString("sources.openalex_email")),
		},
		Governor: types.GovernorConfig{
			RatePerSecond: viper.GetFloat64("governor.rate_per_second"),
			Burst:         viper.GetInt("governor.burst"),
			MaxConcurrent: viper.GetInt64("governor.max_concurrent"),
			MaxWait:       viper.GetDuration("governor.max_wait"),
			MaxRetries:    viper.GetInt("governor.max_retries"),
			BackoffBase:   viper.GetDuration("governor.backoff_base"),
			BackoffCap:    viper.GetDuration("governor.backoff_cap"),
		},
		Scorer: types.ScorerConfig{
			Model:     viper.GetString("scorer.model"),
			APIKey:    secretDefault("openai-api-key", viper.GetString("scorer.api_key")),
			BaseURL:   viper.GetString("scorer.base_url"),
			CacheSize: viper.GetInt("scorer.cache_size"),
		},
		Cache: types.CacheConfig{
			Path: viper.GetString("cache.path"),
			TTL:  viper.GetDuration("cache.ttl"),
		},
		Explore: types.ExploreConfig{
			MaxDepth:             viper.GetInt("explore.max_depth"),
			Threshold:            viper.GetFloat64("explore.threshold"),
			SeedLimit:            viper.GetInt("explore.seed_limit"),
			MaxCitationsPerPaper: viper.GetInt("explore.max_citations_per_paper"),
			Workers:              viper.GetInt("explore.workers"),
		},
	}
	if cfg.Sources.Timeout <= 0 {
		cfg.Sources.Timeout = 20 * time.Second
	}
	if cfg.Sources.UserAgent == "" {
		cfg.Sources.UserAgent = "citegraph/" + version
	}
	return cfg
}

// applyExploreFlags overlays the exploration flags onto the config-file
// values: a flag the user set wins, then the config file, then the flag
// default for keys the file does not mention.
func applyExploreFlags(f *pflag.FlagSet, cfg *types.ExploreConfig) {
	if v, err := f.GetInt("max-depth"); err == nil && (f.Changed("max-depth") || !viper.IsSet("explore.max_depth")) {
		cfg.MaxDepth = v
	}
	if v, err := f.GetFloat64("threshold"); err == nil && (f.Changed("threshold") || !viper.IsSet("explore.threshold")) {
		cfg.Threshold = v
	}
	if v, err := f.GetInt("seed-limit"); err == nil && (f.Changed("seed-limit") || !viper.IsSet("explore.seed_limit")) {
		cfg.SeedLimit = v
	}
	if v, err := f.GetInt("max-citations"); err == nil && (f.Changed("max-citations") || !viper.IsSet("explore.max_citations_per_paper")) {
		cfg.MaxCitationsPerPaper = v
	}
}

// viperBoolDefault reads a bool key, falling back when the key is unset.
func viperBoolDefault(key string, fallback bool) bool {
	if !viper.IsSet(key) {
		return fallback
	}
	return viper.GetBool(key)
}

// enabledSources builds the source list from the config enable flags.
func enabledSources(cfg types.SourceConfig) string {
	var names []string
	if cfg.EnableSemanticScholar {
		names = append(names, "semantic_scholar")
	}
	if cfg.EnableOpenAlex {
		names = append(names, "openalex")
	}
	if cfg.EnableArxiv {
		names = append(names, "arxiv")
	}
	return strings.Join(names, ",")
}

// buildSources constructs the requested source clients, wrapped in the
// SQLite read-through cache when one is configured. An empty names string
// falls back to the config enable flags. The returned func closes the
// cache store, nil when caching is disabled.
func buildSources(cfg types.Config, names string, logger *slog.Logger) ([]source.Source, func() error, error) {
	if names == "" {
		names = enabledSources(cfg.Sources)
	}
	client := &http.Client{Timeout: cfg.Sources.Timeout}

	var store *cache.Store
	if cfg.Cache.Path != "" {
		var err error
		store, err = cache.Open(cfg.Cache, logger)
		if err != nil {
			return nil, nil, err
		}
	}

	var sources []source.Source
	for _, name := range strings.Split(names, ",") {
		var src source.Source
		switch strings.TrimSpace(name) {
		case "semantic_scholar":
			src = &source.SemanticScholar{Client: client, APIKey: cfg.Sources.SemanticScholarAPIKey, Config: cfg.Sources}
		case "openalex":
			src = &source.OpenAlex{Client: client, Email: cfg.Sources.OpenAlexEmail, Config: cfg.Sources}
		case "arxiv":
			src = &source.Arxiv{Client: client, Config: cfg.Sources}
		case "":
			continue
		default:
			return nil, nil, fmt.Errorf("unknown source %q (want semantic_scholar, openalex, or arxiv)", name)
		}
		if store != nil {
			src = store.Wrap(src)
		}
		sources = append(sources, src)
	}
	if len(sources) == 0 {
		return nil, nil, fmt.Errorf("no sources selected")
	}

	if store != nil {
		return sources, store.Close, nil
	}
	return sources, nil, nil
}
