// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"testing"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/citegraph/pkg/types"
)

// exploreFlagSet mirrors the explore command's exploration flags with their
// registered defaults.
func exploreFlagSet() *pflag.FlagSet {
	f := pflag.NewFlagSet("explore", pflag.ContinueOnError)
	f.Int("max-depth", 2, "")
	f.Float64("threshold", 0.5, "")
	f.Int("seed-limit", 10, "")
	f.Int("max-citations", 20, "")
	return f
}

func TestLoadConfigReadsExploreSection(t *testing.T) {
	t.Cleanup(viper.Reset)
	viper.Set("explore.max_depth", 4)
	viper.Set("explore.threshold", 0.7)
	viper.Set("explore.seed_limit", 5)
	viper.Set("explore.max_citations_per_paper", 15)
	viper.Set("explore.workers", 12)

	cfg := loadConfig()

	assert.Equal(t, 4, cfg.Explore.MaxDepth)
	assert.Equal(t, 0.7, cfg.Explore.Threshold)
	assert.Equal(t, 5, cfg.Explore.SeedLimit)
	assert.Equal(t, 15, cfg.Explore.MaxCitationsPerPaper)
	assert.Equal(t, 12, cfg.Explore.Workers)
}

func TestExploreFlagsYieldToConfigFile(t *testing.T) {
	t.Cleanup(viper.Reset)
	viper.Set("explore.max_depth", 4)
	viper.Set("explore.threshold", 0.7)

	cfg := types.ExploreConfig{MaxDepth: 4, Threshold: 0.7}
	applyExploreFlags(exploreFlagSet(), &cfg)

	assert.Equal(t, 4, cfg.MaxDepth, "config file value survives an unset flag")
	assert.Equal(t, 0.7, cfg.Threshold)
	assert.Equal(t, 10, cfg.SeedLimit, "keys the file omits take the flag default")
	assert.Equal(t, 20, cfg.MaxCitationsPerPaper)
}

func TestExploreFlagsOverrideConfigFile(t *testing.T) {
	t.Cleanup(viper.Reset)
	viper.Set("explore.max_depth", 4)
	viper.Set("explore.threshold", 0.7)

	f := exploreFlagSet()
	require.NoError(t, f.Set("max-depth", "3"))

	cfg := types.ExploreConfig{MaxDepth: 4, Threshold: 0.7}
	applyExploreFlags(f, &cfg)

	assert.Equal(t, 3, cfg.MaxDepth, "a flag the user set wins over the config file")
	assert.Equal(t, 0.7, cfg.Threshold, "untouched flags leave the config file value alone")
}
