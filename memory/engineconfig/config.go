// Package engineconfig holds the engine-wide configuration struct and a
// .env loader, following the teacher's convention of environment-variable
// driven provider selection (memory/embed.AutoEmbedder) backed by an
// optional local .env file for development.
package engineconfig

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config bundles the tunables spec §6 calls out: duplicate-detection
// threshold, per-id lock sharding, and default search/ranking behaviour.
type Config struct {
	DuplicateSimilarityThreshold float64
	DefaultSearchThreshold       float64
	PerIDShards                  int
	EmbedCacheCapacity           int
	EmbedRateLimitPerSecond      float64
	EmbedRateLimitBurst          int
	GraphNeighborhoodHops        int
	GraphNeighborhoodLimit       int
	CleanupInterval              time.Duration

	// AssociationDefaultLimit and AssociationDefaultMinWeight seed a
	// store call's auto-association pass when the caller leaves its
	// options at zero value.
	AssociationDefaultLimit     int
	AssociationDefaultMinWeight float64

	// DiversityThreshold, ExpansionFactor and MaxExpansionMultiplier
	// parameterize diversified search when a caller leaves its options
	// at zero value.
	DiversityThreshold     float64
	ExpansionFactor        float64
	MaxExpansionMultiplier float64

	// ScoreWeights blends cosine similarity with recency/importance/
	// source as a tie-break ordering applied only after the
	// similarity-threshold admission filter.
	ScoreWeights ScoreWeights

	// RecencyHalfLife controls how fast the recency component of
	// ScoreWeights decays with a memory's age.
	RecencyHalfLife time.Duration
}

// ScoreWeights blends the components of a search result's weighted
// tie-break score. Grounded on the teacher's engine.ScoreWeights.
type ScoreWeights struct {
	Similarity float64
	Recency    float64
	Importance float64
}

// Default returns the engine's baseline configuration.
func Default() Config {
	return Config{
		DuplicateSimilarityThreshold: 0.97,
		DefaultSearchThreshold:       0.1,
		PerIDShards:                  64,
		EmbedCacheCapacity:           4096,
		EmbedRateLimitPerSecond:      10,
		EmbedRateLimitBurst:          5,
		GraphNeighborhoodHops:        2,
		GraphNeighborhoodLimit:       50,
		CleanupInterval:              time.Hour,
		AssociationDefaultLimit:      5,
		AssociationDefaultMinWeight:  0.7,
		DiversityThreshold:           0.8,
		ExpansionFactor:              2.5,
		MaxExpansionMultiplier:       3.0,
		ScoreWeights:                 ScoreWeights{Similarity: 0.7, Recency: 0.2, Importance: 0.1},
		RecencyHalfLife:              7 * 24 * time.Hour,
	}
}

// LoadDotEnv loads a .env file (if present) into the process environment
// before FromEnv is called, mirroring how the teacher's deployments allow
// provider credentials to be supplied locally without exporting shell vars.
// A missing file is not an error.
func LoadDotEnv(path string) error {
	if path == "" {
		path = ".env"
	}
	err := godotenv.Load(path)
	if os.IsNotExist(err) {
		return nil
	}
	return err
}

// FromEnv overlays environment-variable overrides onto Default().
func FromEnv() Config {
	cfg := Default()
	if v := os.Getenv("MEMEX_DUPLICATE_SIMILARITY_THRESHOLD"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.DuplicateSimilarityThreshold = f
		}
	}
	if v := os.Getenv("MEMEX_DEFAULT_SEARCH_THRESHOLD"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.DefaultSearchThreshold = f
		}
	}
	if v := os.Getenv("MEMEX_PER_ID_SHARDS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.PerIDShards = n
		}
	}
	if v := os.Getenv("MEMEX_EMBED_CACHE_CAPACITY"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.EmbedCacheCapacity = n
		}
	}
	if v := os.Getenv("MEMEX_EMBED_RATE_LIMIT_PER_SECOND"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.EmbedRateLimitPerSecond = f
		}
	}
	if v := os.Getenv("MEMEX_CLEANUP_INTERVAL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.CleanupInterval = d
		}
	}
	return cfg
}
