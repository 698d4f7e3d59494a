package config

import (
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}

	if cfg.HTTPPort != 8080 {
		t.Errorf("expected default HTTP port 8080, got %d", cfg.HTTPPort)
	}
	if cfg.VectorBackend != VectorBackendQdrant {
		t.Errorf("expected default backend qdrant, got %s", cfg.VectorBackend)
	}
	if cfg.LLMProvider != LLMProviderOllama {
		t.Errorf("expected default provider ollama, got %s", cfg.LLMProvider)
	}
	if cfg.EmbeddingDim != 768 {
		t.Errorf("expected default dimension 768, got %d", cfg.EmbeddingDim)
	}
	if cfg.SimilarityThreshold != 0.5 {
		t.Errorf("expected default threshold 0.5, got %f", cfg.SimilarityThreshold)
	}
	if cfg.RerankBatchSize != 10 || cfg.RerankParallelism != 3 || cfg.RerankFilterFloor != 10 {
		t.Errorf("unexpected rerank defaults: batch=%d parallelism=%d floor=%d",
			cfg.RerankBatchSize, cfg.RerankParallelism, cfg.RerankFilterFloor)
	}
	if cfg.RerankBudget != 20*time.Second {
		t.Errorf("expected default rerank budget 20s, got %s", cfg.RerankBudget)
	}
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("VECTOR_BACKEND", "chromem")
	t.Setenv("HTTP_PORT", "9999")
	t.Setenv("RERANK_BUDGET", "5s")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if cfg.VectorBackend != VectorBackendChromem {
		t.Errorf("expected chromem, got %s", cfg.VectorBackend)
	}
	if cfg.HTTPPort != 9999 {
		t.Errorf("expected port 9999, got %d", cfg.HTTPPort)
	}
	if cfg.RerankBudget != 5*time.Second {
		t.Errorf("expected 5s budget, got %s", cfg.RerankBudget)
	}
}

func TestLoad_RejectsUnknownBackend(t *testing.T) {
	t.Setenv("VECTOR_BACKEND", "pinecone")

	if _, err := Load(); err == nil {
		t.Fatal("expected error for unknown backend")
	}
}

func TestLoad_OpenAIRequiresKey(t *testing.T) {
	t.Setenv("LLM_PROVIDER", "openai")
	t.Setenv("OPENAI_API_KEY", "")

	if _, err := Load(); err == nil {
		t.Fatal("expected error for openai without an api key")
	}

	t.Setenv("OPENAI_API_KEY", "sk-test")
	cfg, err := Load()
	if err != nil {
		t.Fatalf("load failed with key set: %v", err)
	}
	if cfg.LLMProvider != LLMProviderOpenAI {
		t.Errorf("expected openai provider, got %s", cfg.LLMProvider)
	}
}
