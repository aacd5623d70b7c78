package engineconfig

import "testing"

func TestDefaultIsInternallyConsistent(t *testing.T) {
	cfg := Default()
	if cfg.PerIDShards <= 0 {
		t.Fatalf("expected positive shard count, got %d", cfg.PerIDShards)
	}
	if cfg.DuplicateSimilarityThreshold <= 0 || cfg.DuplicateSimilarityThreshold > 1 {
		t.Fatalf("expected threshold in (0,1], got %f", cfg.DuplicateSimilarityThreshold)
	}
	sum := cfg.ScoreWeights.Similarity + cfg.ScoreWeights.Recency + cfg.ScoreWeights.Importance
	if sum < 0.99 || sum > 1.01 {
		t.Fatalf("expected score weights to sum to ~1, got %f", sum)
	}
}

func TestFromEnvOverridesDefaults(t *testing.T) {
	t.Setenv("MEMEX_DUPLICATE_SIMILARITY_THRESHOLD", "0.5")
	t.Setenv("MEMEX_PER_ID_SHARDS", "8")
	t.Setenv("MEMEX_CLEANUP_INTERVAL", "30m")

	cfg := FromEnv()
	if cfg.DuplicateSimilarityThreshold != 0.5 {
		t.Fatalf("expected overridden threshold 0.5, got %f", cfg.DuplicateSimilarityThreshold)
	}
	if cfg.PerIDShards != 8 {
		t.Fatalf("expected overridden shard count 8, got %d", cfg.PerIDShards)
	}
	if cfg.CleanupInterval.Minutes() != 30 {
		t.Fatalf("expected overridden cleanup interval 30m, got %v", cfg.CleanupInterval)
	}
}

func TestFromEnvIgnoresInvalidValues(t *testing.T) {
	t.Setenv("MEMEX_PER_ID_SHARDS", "not-a-number")
	cfg := FromEnv()
	if cfg.PerIDShards != Default().PerIDShards {
		t.Fatalf("expected invalid override to be ignored, got %d", cfg.PerIDShards)
	}
}

func TestLoadDotEnvMissingFileIsNotError(t *testing.T) {
	if err := LoadDotEnv("/nonexistent/path/.env"); err != nil {
		t.Fatalf("expected missing .env to be silently ignored, got %v", err)
	}
}
