// Package retrieval implements the vector retrieval engine: embedding the
// query, similarity search with metadata filter pushdown, and a direct-match
// path for known names and emails.
package retrieval

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/talentsift/talentsift/internal/embedder"
	"github.com/talentsift/talentsift/internal/repository"
	"github.com/talentsift/talentsift/internal/retry"
	"github.com/talentsift/talentsift/internal/vectorstore"
)

var (
	// ErrInvalidQuery is returned when neither or both of query text and
	// query vector are supplied.
	ErrInvalidQuery = errors.New("exactly one of query text or query vector must be provided")
)

const (
	// DefaultThreshold is the default similarity floor. Deliberately low:
	// pruning happens downstream in scoring and reranking.
	DefaultThreshold = 0.5

	// directMatchLimit caps name-containment lookups.
	directMatchLimit = 5

	// directMatchMaxWords bounds how long a query can be and still plausibly
	// be a person's name.
	directMatchMaxWords = 4

	retryAttempts  = 3
	retryBaseDelay = 200 * time.Millisecond
)

// Query is a retrieval request. Exactly one of Text/Vector must be set.
type Query struct {
	Text    string
	Vector  []float32
	Filters vectorstore.Filters
	Limit   int
	Offset  int

	// OrgID, when set, restricts results to candidates of that organization.
	// Applied as a post-filter against the candidate store because the
	// vector store does not index on tenant.
	OrgID uuid.UUID
}

// Engine performs filtered nearest-neighbor retrieval.
type Engine struct {
	embedder   embedder.Embedder
	vectors    vectorstore.Store
	candidates repository.CandidateStore
	threshold  float32
	chunkType  string
	logger     *slog.Logger
}

// Option is a functional option for configuring Engine.
type Option func(*Engine)

// WithThreshold overrides the default similarity threshold.
func WithThreshold(t float32) Option {
	return func(e *Engine) { e.threshold = t }
}

// WithChunkType restricts queries to a specific chunk type.
func WithChunkType(ct string) Option {
	return func(e *Engine) { e.chunkType = ct }
}

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// NewEngine creates a retrieval engine.
func NewEngine(emb embedder.Embedder, vectors vectorstore.Store, candidates repository.CandidateStore, opts ...Option) *Engine {
	e := &Engine{
		embedder:   emb,
		vectors:    vectors,
		candidates: candidates,
		threshold:  DefaultThreshold,
		chunkType:  vectorstore.ChunkTypeFullProfile,
		logger:     slog.Default().With("component", "retrieval"),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Search executes the query and returns results ordered by similarity
// descending, direct matches first. An empty result set is not an error.
func (e *Engine) Search(ctx context.Context, q Query) ([]vectorstore.Result, error) {
	if (q.Text == "") == (len(q.Vector) == 0) {
		return nil, ErrInvalidQuery
	}
	if len(q.Vector) > 0 {
		if err := vectorstore.ValidateVector(q.Vector, e.embedder.Dimension()); err != nil {
			return nil, err
		}
	}

	limit := q.Limit
	if limit <= 0 {
		limit = 20
	}
	fetch := limit + q.Offset

	var (
		vectorHits []vectorstore.Result
		directHits []vectorstore.Result
	)

	// The vector query and the direct-match lookup are independent reads;
	// run them concurrently and join before filtering.
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		hits, err := e.vectorSearch(gctx, q, fetch)
		if err != nil {
			return err
		}
		vectorHits = hits
		return nil
	})

	if q.Text != "" {
		g.Go(func() error {
			// Direct-match failures are soft: the vector path still answers.
			hits, err := e.directMatch(gctx, q.Text)
			if err != nil {
				e.logger.Warn("direct match lookup failed", "error", err)
				return nil
			}
			directHits = hits
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	merged := mergeResults(directHits, vectorHits)

	filtered := merged[:0:0]
	for _, r := range merged {
		if q.Filters.Matches(r.Metadata) {
			filtered = append(filtered, r)
		}
	}

	if q.OrgID != uuid.Nil {
		var err error
		filtered, err = e.scopeToOrg(ctx, q.OrgID, filtered)
		if err != nil {
			return nil, err
		}
	}

	// Pagination strictly after filtering so an offset never skips
	// candidates that would have passed the filters.
	if q.Offset >= len(filtered) {
		return nil, nil
	}
	filtered = filtered[q.Offset:]
	if len(filtered) > limit {
		filtered = filtered[:limit]
	}
	return filtered, nil
}

func (e *Engine) vectorSearch(ctx context.Context, q Query, fetch int) ([]vectorstore.Result, error) {
	vector := q.Vector
	if len(vector) == 0 {
		var err error
		vector, err = e.embedder.Embed(ctx, q.Text)
		if err != nil {
			return nil, fmt.Errorf("embedding query: %w", err)
		}
		if err := vectorstore.ValidateVector(vector, e.embedder.Dimension()); err != nil {
			return nil, err
		}
	}

	storeQuery := vectorstore.Query{
		Vector:    vector,
		Threshold: e.threshold,
		Limit:     fetch,
		ChunkType: e.chunkType,
		Filters:   &q.Filters,
	}

	var (
		hits     []vectorstore.Result
		fatalErr error
	)
	err := retry.WithBackoff(ctx, func() error {
		h, qerr := e.vectors.Query(ctx, storeQuery)
		if qerr == nil {
			hits = h
			return nil
		}
		if !errors.Is(qerr, vectorstore.ErrUnavailable) {
			// Validation errors are not retryable.
			fatalErr = qerr
			return nil
		}
		return qerr
	}, retryAttempts, retryBaseDelay)
	if fatalErr != nil {
		return nil, fatalErr
	}
	if err != nil {
		return nil, fmt.Errorf("vector query: %w", err)
	}
	return hits, nil
}

// directMatch resolves exact-email or fuzzy-name lookups against the
// candidate store. A literal name token does not embed distinctively, so
// these hits are merged ahead of vector results with similarity 1.0.
func (e *Engine) directMatch(ctx context.Context, text string) ([]vectorstore.Result, error) {
	text = strings.TrimSpace(text)

	if looksLikeEmail(text) {
		cand, err := e.candidates.SearchByEmail(ctx, text)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return nil, nil
			}
			return nil, err
		}
		return []vectorstore.Result{candidateResult(cand)}, nil
	}

	if len(strings.Fields(text)) > directMatchMaxWords {
		return nil, nil
	}

	cands, err := e.candidates.SearchByName(ctx, text, directMatchLimit)
	if err != nil {
		return nil, err
	}
	results := make([]vectorstore.Result, 0, len(cands))
	for _, c := range cands {
		results = append(results, candidateResult(c))
	}
	return results, nil
}

func (e *Engine) scopeToOrg(ctx context.Context, orgID uuid.UUID, results []vectorstore.Result) ([]vectorstore.Result, error) {
	ids := make([]uuid.UUID, 0, len(results))
	for _, r := range results {
		id, err := uuid.Parse(r.EntityID)
		if err != nil {
			continue
		}
		ids = append(ids, id)
	}

	members, err := e.candidates.OrgMembers(ctx, orgID, ids)
	if err != nil {
		return nil, fmt.Errorf("org scoping: %w", err)
	}

	scoped := results[:0:0]
	for _, r := range results {
		id, err := uuid.Parse(r.EntityID)
		if err != nil {
			continue
		}
		if members[id] {
			scoped = append(scoped, r)
		}
	}
	return scoped, nil
}

// mergeResults places direct hits first with synthetic similarity, then
// vector hits, deduplicating by entity id.
func mergeResults(direct, vector []vectorstore.Result) []vectorstore.Result {
	seen := make(map[string]bool, len(direct)+len(vector))
	merged := make([]vectorstore.Result, 0, len(direct)+len(vector))
	for _, r := range direct {
		if seen[r.EntityID] {
			continue
		}
		seen[r.EntityID] = true
		merged = append(merged, r)
	}
	for _, r := range vector {
		if seen[r.EntityID] {
			continue
		}
		seen[r.EntityID] = true
		merged = append(merged, r)
	}
	return merged
}

func candidateResult(c *repository.Candidate) vectorstore.Result {
	meta := vectorstore.Metadata{
		YearsExperience: c.YearsExperience,
		CurrentLevel:    string(c.CurrentLevel),
		CompanyTier:     c.CompanyTier,
		OverallScore:    c.OverallScore,
		Country:         c.Country,
	}
	if spec, ok := c.PrimarySpecialty(); ok {
		meta.PrimarySpecialty = string(spec)
	}
	return vectorstore.Result{
		EntityID:   c.ID.String(),
		Similarity: 1.0,
		Metadata:   meta,
	}
}

func looksLikeEmail(s string) bool {
	return strings.Count(s, "@") == 1 && !strings.ContainsAny(s, " \t")
}
