// Package rerank reorders retrieval candidates with a two-pass LLM protocol:
// a cheap relevance filter followed by batched scoring. Every failure path
// degrades to a deterministic heuristic ranking, so Rerank always returns a
// fully ordered result set and never an error.
package rerank

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/talentsift/talentsift/internal/llm"
	"github.com/talentsift/talentsift/internal/repository"
)

// Candidate is the reranker's view of a retrieval result.
type Candidate struct {
	ID              string
	Name            string
	Title           string
	Level           repository.Level
	YearsExperience float64
	Specialty       repository.Specialty
	Skills          []string

	// BaseScore is the composite score from the scoring stage.
	BaseScore float64

	// Rank is the zero-based position in the pre-rerank ordering.
	Rank int
}

// Request describes the role the candidates are ranked against.
type Request struct {
	RoleTitle       string
	TargetLevel     repository.Level
	TargetSpecialty repository.Specialty
}

// Result is one candidate's rerank outcome. Heuristic marks scores produced
// by the fallback path rather than the model.
type Result struct {
	EntityID  string
	Score     float64
	Rationale string
	Heuristic bool
}

// Stage identifies how far the two-pass protocol progressed.
type Stage string

const (
	StageIdle      Stage = "idle"
	StageFiltering Stage = "filtering"
	StageRanking   Stage = "ranking"
	StageMerged    Stage = "merged"
	StageDone      Stage = "done"
	StageDegraded  Stage = "degraded"
)

// Outcome carries the ordered results plus degradation diagnostics.
type Outcome struct {
	Results  []Result
	Stage    Stage
	Degraded bool
	Reason   string
}

// Config tunes the two-pass protocol.
type Config struct {
	Model       string
	Temperature float32
	MaxTokens   int

	// BatchSize is the number of candidates per ranking call.
	BatchSize int

	// Parallelism caps concurrent ranking calls.
	Parallelism int

	// FilterFloor is the minimum number of candidates the filter pass may
	// leave. Removed candidates are restored in rank order to reach it.
	FilterFloor int

	// SkipFilter disables the filter pass for specialties whose candidate
	// pools are already well targeted by retrieval.
	SkipFilter map[repository.Specialty]bool
}

const (
	DefaultBatchSize   = 10
	DefaultParallelism = 3
	DefaultFilterFloor = 10
)

func (c Config) withDefaults() Config {
	if c.BatchSize <= 0 {
		c.BatchSize = DefaultBatchSize
	}
	if c.Parallelism <= 0 {
		c.Parallelism = DefaultParallelism
	}
	if c.FilterFloor <= 0 {
		c.FilterFloor = DefaultFilterFloor
	}
	return c
}

// Engine runs the two-pass protocol against an LLM client.
type Engine struct {
	llm    llm.Client
	cfg    Config
	logger *slog.Logger
}

func NewEngine(client llm.Client, cfg Config, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default().With("component", "rerank")
	}
	return &Engine{llm: client, cfg: cfg.withDefaults(), logger: logger}
}

// Rerank orders candidates for the request. The returned Outcome always
// contains exactly one Result per input candidate, sorted by score
// descending with the pre-rerank position as tiebreak.
func (e *Engine) Rerank(ctx context.Context, req Request, candidates []Candidate) Outcome {
	if len(candidates) == 0 {
		return Outcome{Stage: StageDone}
	}

	pool := candidates
	var degradedReasons []string

	if e.shouldFilter(req, len(pool)) {
		kept, err := e.filterPass(ctx, req, pool)
		if err != nil {
			e.logger.Warn("filter pass failed, keeping all candidates", "error", err)
			degradedReasons = append(degradedReasons, "filter_unavailable")
		} else {
			pool = kept
		}
	}

	results, failedBatches, totalBatches := e.rankPass(ctx, req, pool)
	if failedBatches > 0 {
		degradedReasons = append(degradedReasons, fmt.Sprintf("ranking_fallback_%d_of_%d_batches", failedBatches, totalBatches))
	}

	// Candidates removed by the filter still appear in the output, scored
	// heuristically below the kept pool's positions.
	seen := make(map[string]bool, len(results))
	for _, r := range results {
		seen[r.EntityID] = true
	}
	for _, c := range candidates {
		if !seen[c.ID] {
			results = append(results, heuristicResult(c, req))
		}
	}

	rankOf := make(map[string]int, len(candidates))
	for _, c := range candidates {
		rankOf[c.ID] = c.Rank
	}
	sort.SliceStable(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		return rankOf[results[i].EntityID] < rankOf[results[j].EntityID]
	})

	out := Outcome{Results: results, Stage: StageDone}
	if len(degradedReasons) > 0 {
		out.Stage = StageDegraded
		out.Degraded = true
		out.Reason = strings.Join(degradedReasons, "; ")
	}
	return out
}

func (e *Engine) shouldFilter(req Request, poolSize int) bool {
	if poolSize <= e.cfg.FilterFloor {
		return false
	}
	if req.TargetSpecialty.Valid() && e.cfg.SkipFilter[req.TargetSpecialty] {
		return false
	}
	return true
}

// filterPass asks the model which candidates are plausibly relevant and
// drops the rest, backfilling in rank order if the keep set falls below the
// floor.
func (e *Engine) filterPass(ctx context.Context, req Request, pool []Candidate) ([]Candidate, error) {
	prompt := buildFilterPrompt(req.RoleTitle, pool)
	comp, err := e.complete(ctx, "filter", prompt)
	if err != nil {
		return nil, err
	}

	keep, err := parseKeepList(comp.Text)
	if err != nil {
		return nil, err
	}

	keepIdx := make(map[int]bool, len(keep))
	for _, n := range keep {
		if n >= 1 && n <= len(pool) {
			keepIdx[n-1] = true
		}
	}
	if len(keepIdx) == 0 {
		return nil, fmt.Errorf("filter kept no candidates")
	}

	kept := make([]Candidate, 0, len(pool))
	for i, c := range pool {
		if keepIdx[i] {
			kept = append(kept, c)
		}
	}
	if len(kept) < e.cfg.FilterFloor {
		for i, c := range pool {
			if len(kept) >= e.cfg.FilterFloor {
				break
			}
			if !keepIdx[i] {
				kept = append(kept, c)
			}
		}
	}

	e.logger.Debug("filter pass complete", "pool", len(pool), "kept", len(kept))
	return kept, nil
}

// rankPass scores the pool in batches. Failed batches and batch members the
// model skipped are backfilled heuristically, so one Result comes back per
// pool member.
func (e *Engine) rankPass(ctx context.Context, req Request, pool []Candidate) (results []Result, failedBatches, totalBatches int) {
	batches := splitBatches(pool, e.cfg.BatchSize)
	totalBatches = len(batches)

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.cfg.Parallelism)

	for _, batch := range batches {
		batch := batch
		g.Go(func() error {
			batchResults, ok := e.rankBatch(gctx, req, batch)
			mu.Lock()
			results = append(results, batchResults...)
			if !ok {
				failedBatches++
			}
			mu.Unlock()
			return nil
		})
	}
	// Workers never return errors; failures become heuristic batches.
	_ = g.Wait()

	return results, failedBatches, totalBatches
}

// rankBatch returns one Result per batch member. ok is false when the whole
// batch fell back to the heuristic.
func (e *Engine) rankBatch(ctx context.Context, req Request, batch []Candidate) ([]Result, bool) {
	comp, err := e.complete(ctx, "rank", buildRankPrompt(req, batch))
	if err != nil {
		e.logger.Warn("ranking call failed, scoring batch heuristically", "batch_size", len(batch), "error", err)
		return heuristicBatch(batch, req), false
	}

	entries, err := parseLLMResponse(comp.Text)
	if err != nil {
		e.logger.Warn("unparseable ranking response, scoring batch heuristically", "batch_size", len(batch), "error", err)
		return heuristicBatch(batch, req), false
	}

	results := make([]Result, 0, len(batch))
	scored := make(map[string]bool, len(batch))
	for _, entry := range entries {
		id, ok := recoverEntityID(entry, batch)
		if !ok || scored[id] {
			continue
		}
		scored[id] = true
		results = append(results, Result{
			EntityID:  id,
			Score:     normalizeScore(entry.Score),
			Rationale: entry.Reason,
		})
	}

	for _, c := range batch {
		if !scored[c.ID] {
			results = append(results, heuristicResult(c, req))
		}
	}
	return results, true
}

func (e *Engine) complete(ctx context.Context, pass, prompt string) (*llm.Completion, error) {
	comp, err := e.llm.Complete(ctx, prompt, llm.Options{
		Model:       e.cfg.Model,
		Temperature: e.cfg.Temperature,
		MaxTokens:   e.cfg.MaxTokens,
	})
	if err != nil {
		return nil, err
	}
	e.logger.Debug("rerank completion",
		"pass", pass,
		"prompt_bytes", comp.PromptBytes,
		"output_bytes", comp.OutputBytes,
		"finish_reason", comp.FinishReason,
	)
	return comp, nil
}

func heuristicBatch(batch []Candidate, req Request) []Result {
	results := make([]Result, 0, len(batch))
	for _, c := range batch {
		results = append(results, heuristicResult(c, req))
	}
	return results
}

func splitBatches(pool []Candidate, size int) [][]Candidate {
	var batches [][]Candidate
	for start := 0; start < len(pool); start += size {
		end := start + size
		if end > len(pool) {
			end = len(pool)
		}
		batches = append(batches, pool[start:end])
	}
	return batches
}

// parseKeepList reads the filter pass response. The prompt pins the shape to
// {"keep": [...]} but truncated or fenced responses are still repaired.
func parseKeepList(raw string) ([]int, error) {
	s := extractSpan(stripFences(raw))
	var wrapper struct {
		Keep []int `json:"keep"`
	}
	if err := json.Unmarshal([]byte(s), &wrapper); err == nil && len(wrapper.Keep) > 0 {
		return wrapper.Keep, nil
	}
	if err := json.Unmarshal([]byte(balanceBrackets(s)), &wrapper); err == nil && len(wrapper.Keep) > 0 {
		return wrapper.Keep, nil
	}
	// Bare array form, balanced on retry so a truncated keep list whose span
	// narrowed to the array still parses.
	var keep []int
	if err := json.Unmarshal([]byte(s), &keep); err == nil && len(keep) > 0 {
		return keep, nil
	}
	if err := json.Unmarshal([]byte(balanceBrackets(s)), &keep); err == nil && len(keep) > 0 {
		return keep, nil
	}
	return nil, fmt.Errorf("%w: no keep list in response", ErrParseFailed)
}
