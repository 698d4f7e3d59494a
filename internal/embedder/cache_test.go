package embedder

import (
	"context"
	"errors"
	"testing"
)

type countingEmbedder struct {
	calls int
	err   error
}

func (c *countingEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	c.calls++
	if c.err != nil {
		return nil, c.err
	}
	return []float32{float32(len(text)), 0, 0}, nil
}

func (c *countingEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		v, err := c.Embed(ctx, t)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

func (c *countingEmbedder) Dimension() int    { return 3 }
func (c *countingEmbedder) ModelName() string { return "counting" }

func TestCached_HitSkipsInner(t *testing.T) {
	inner := &countingEmbedder{}
	cached := WithCache(inner, 10)
	ctx := context.Background()

	first, err := cached.Embed(ctx, "golang")
	if err != nil {
		t.Fatalf("embed failed: %v", err)
	}
	second, err := cached.Embed(ctx, "golang")
	if err != nil {
		t.Fatalf("embed failed: %v", err)
	}

	if inner.calls != 1 {
		t.Errorf("expected 1 inner call, got %d", inner.calls)
	}
	if len(first) != len(second) || first[0] != second[0] {
		t.Error("cached vector differs from original")
	}
}

func TestCached_ErrorNotCached(t *testing.T) {
	inner := &countingEmbedder{err: errors.New("provider down")}
	cached := WithCache(inner, 10)
	ctx := context.Background()

	if _, err := cached.Embed(ctx, "golang"); err == nil {
		t.Fatal("expected error")
	}
	if cached.Len() != 0 {
		t.Errorf("failed embedding must not be cached, got %d entries", cached.Len())
	}

	inner.err = nil
	if _, err := cached.Embed(ctx, "golang"); err != nil {
		t.Fatalf("expected recovery after provider error: %v", err)
	}
	if inner.calls != 2 {
		t.Errorf("expected retry to reach inner, got %d calls", inner.calls)
	}
}

func TestCached_BatchMixesHitsAndMisses(t *testing.T) {
	inner := &countingEmbedder{}
	cached := WithCache(inner, 10)
	ctx := context.Background()

	if _, err := cached.Embed(ctx, "go"); err != nil {
		t.Fatalf("embed failed: %v", err)
	}
	inner.calls = 0

	vecs, err := cached.EmbedBatch(ctx, []string{"go", "python", "rust"})
	if err != nil {
		t.Fatalf("batch failed: %v", err)
	}
	if len(vecs) != 3 {
		t.Fatalf("expected 3 vectors, got %d", len(vecs))
	}
	for i, v := range vecs {
		if v == nil {
			t.Errorf("vector %d is nil", i)
		}
	}
	// Only the two misses should reach the provider.
	if inner.calls != 2 {
		t.Errorf("expected 2 inner calls, got %d", inner.calls)
	}
	if cached.Len() != 3 {
		t.Errorf("expected 3 cached entries, got %d", cached.Len())
	}
}

func TestCached_ResetAtCapacity(t *testing.T) {
	inner := &countingEmbedder{}
	cached := WithCache(inner, 2)
	ctx := context.Background()

	for _, text := range []string{"a", "bb", "ccc"} {
		if _, err := cached.Embed(ctx, text); err != nil {
			t.Fatalf("embed failed: %v", err)
		}
	}

	// The cap reset keeps the cache bounded, not LRU-precise.
	if cached.Len() > 2 {
		t.Errorf("cache exceeded its cap: %d entries", cached.Len())
	}
}

func TestCached_DelegatesMetadata(t *testing.T) {
	cached := WithCache(&countingEmbedder{}, 0)

	if cached.Dimension() != 3 {
		t.Errorf("expected dimension 3, got %d", cached.Dimension())
	}
	if cached.ModelName() != "counting" {
		t.Errorf("expected model name counting, got %s", cached.ModelName())
	}
}

// oversizedBatchEmbedder violates the batch contract by returning more
// vectors than inputs.
type oversizedBatchEmbedder struct {
	countingEmbedder
}

func (o *oversizedBatchEmbedder) EmbedBatch(_ context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts)+1)
	for i := range out {
		out[i] = []float32{1, 0, 0}
	}
	return out, nil
}

func TestCached_BatchLengthMismatchErrors(t *testing.T) {
	cached := WithCache(&oversizedBatchEmbedder{}, 10)

	_, err := cached.EmbedBatch(context.Background(), []string{"go", "rust"})
	if err == nil {
		t.Fatal("expected error for a batch reply longer than the input")
	}
	if cached.Len() != 0 {
		t.Errorf("expected no entries cached after contract violation, got %d", cached.Len())
	}
}
