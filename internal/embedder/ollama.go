package embedder

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"golang.org/x/sync/errgroup"
)

const (
	// DefaultOllamaBaseURL is the default Ollama API base URL.
	DefaultOllamaBaseURL = "http://localhost:11434"

	// DefaultOllamaModel is the default embedding model.
	DefaultOllamaModel = "nomic-embed-text"

	// DefaultOllamaDimension is the embedding dimension of nomic-embed-text.
	DefaultOllamaDimension = 768

	// DefaultBatchConcurrency caps concurrent batch requests to the server.
	DefaultBatchConcurrency = 4

	// ollamaBatchChunk is how many inputs go into one /api/embed call.
	ollamaBatchChunk = 32
)

// OllamaConfig holds configuration for the Ollama embedder.
type OllamaConfig struct {
	// BaseURL is the Ollama API base URL (default: http://localhost:11434).
	BaseURL string

	// Model is the embedding model to use (default: nomic-embed-text).
	Model string

	// Dimension is the expected embedding dimension. Responses with a
	// different dimension are rejected.
	Dimension int

	// BatchConcurrency caps concurrent chunk requests for EmbedBatch.
	BatchConcurrency int

	// HTTPClient is an optional custom HTTP client.
	HTTPClient *http.Client
}

// OllamaEmbedder produces embeddings via Ollama's /api/embed endpoint.
type OllamaEmbedder struct {
	baseURL          string
	model            string
	dimension        int
	batchConcurrency int
	client           *http.Client
}

// The batch form of /api/embed: input may be a string or an array of strings.
type ollamaEmbedRequest struct {
	Model string   `json:"model"`
	Input []string `json:"input"`
}

type ollamaEmbedResponse struct {
	Embeddings [][]float32 `json:"embeddings"`
}

// NewOllamaEmbedder creates a new Ollama embedder with the given configuration.
func NewOllamaEmbedder(cfg OllamaConfig) *OllamaEmbedder {
	e := &OllamaEmbedder{
		baseURL:          cfg.BaseURL,
		model:            cfg.Model,
		dimension:        cfg.Dimension,
		batchConcurrency: cfg.BatchConcurrency,
		client:           cfg.HTTPClient,
	}
	if e.baseURL == "" {
		e.baseURL = DefaultOllamaBaseURL
	}
	if e.model == "" {
		e.model = DefaultOllamaModel
	}
	if e.dimension <= 0 {
		e.dimension = DefaultOllamaDimension
	}
	if e.batchConcurrency <= 0 {
		e.batchConcurrency = DefaultBatchConcurrency
	}
	if e.client == nil {
		e.client = http.DefaultClient
	}
	return e
}

// Embed generates an embedding vector for a single text input.
func (e *OllamaEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	vectors, err := e.embedChunk(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

// EmbedBatch generates embedding vectors for multiple text inputs. Inputs are
// split into chunks sent concurrently; the result preserves input order.
func (e *OllamaEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return [][]float32{}, nil
	}

	results := make([][]float32, len(texts))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(e.batchConcurrency)

	for start := 0; start < len(texts); start += ollamaBatchChunk {
		end := min(start+ollamaBatchChunk, len(texts))
		g.Go(func() error {
			vectors, err := e.embedChunk(ctx, texts[start:end])
			if err != nil {
				return fmt.Errorf("inputs %d-%d: %w", start, end-1, err)
			}
			copy(results[start:], vectors)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

func (e *OllamaEmbedder) embedChunk(ctx context.Context, inputs []string) ([][]float32, error) {
	body, err := json.Marshal(ollamaEmbedRequest{Model: e.model, Input: inputs})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.baseURL+"/api/embed", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEmbeddingFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("%w: ollama API error (status %d): %s", ErrEmbeddingFailed, resp.StatusCode, string(msg))
	}

	var embedResp ollamaEmbedResponse
	if err := json.NewDecoder(resp.Body).Decode(&embedResp); err != nil {
		return nil, fmt.Errorf("%w: decoding response: %v", ErrEmbeddingFailed, err)
	}

	if len(embedResp.Embeddings) != len(inputs) {
		return nil, fmt.Errorf("%w: got %d embeddings for %d inputs", ErrEmbeddingFailed, len(embedResp.Embeddings), len(inputs))
	}
	for i, vec := range embedResp.Embeddings {
		if len(vec) != e.dimension {
			return nil, fmt.Errorf("%w: embedding %d has dimension %d, want %d", ErrEmbeddingFailed, i, len(vec), e.dimension)
		}
	}

	return embedResp.Embeddings, nil
}

// Dimension returns the dimensionality of the embedding vectors.
func (e *OllamaEmbedder) Dimension() int {
	return e.dimension
}

// ModelName returns the name of the embedding model being used.
func (e *OllamaEmbedder) ModelName() string {
	return e.model
}

var _ Embedder = (*OllamaEmbedder)(nil)
