// Package pipeline orchestrates the full search flow: retrieval, profile
// hydration, composite scoring, and optional LLM reranking. Downstream
// stage failures degrade the response instead of failing it; only the
// retrieval stage is fatal.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/talentsift/talentsift/internal/repository"
	"github.com/talentsift/talentsift/internal/rerank"
	"github.com/talentsift/talentsift/internal/retrieval"
	"github.com/talentsift/talentsift/internal/scoring"
	"github.com/talentsift/talentsift/internal/vectorstore"
)

const (
	// DefaultLimit and MaxLimit bound the result page.
	DefaultLimit = 10
	MaxLimit     = 100

	// poolMultiplier oversizes retrieval so scoring and reranking have
	// headroom to reorder before truncation.
	poolMultiplier = 3

	// DefaultRerankBudget bounds the rerank stage. On expiry the composite
	// scores stand and the response is marked degraded.
	DefaultRerankBudget = 20 * time.Second
)

// Degradation reasons reported in Diagnostics.
const (
	ReasonProfilesUnavailable = "profiles_unavailable"
	ReasonRerankUnavailable   = "rerank_unavailable"
)

// Request is a full search request.
type Request struct {
	QueryText   string
	QueryVector []float32

	RequiredSkills  []scoring.SkillRequirement
	PreferredSkills []scoring.SkillRequirement
	ExperienceLevel repository.Level
	Weights         *scoring.Weights

	RoleTitle       string
	TargetSpecialty repository.Specialty

	Filters vectorstore.Filters
	OrgID   uuid.UUID
	Limit   int
	Offset  int

	// Rerank enables the LLM reranking stage.
	Rerank bool
}

// RankedCandidate is one search hit with its full score breakdown.
type RankedCandidate struct {
	scoring.ScoredCandidate

	// FinalScore orders the response. It is the rerank score when the
	// reranker ran, the composite score otherwise.
	FinalScore float64

	// RerankScore and Rationale are set only when the LLM scored this
	// candidate; RerankHeuristic marks fallback-derived rerank scores.
	RerankScore     *float64
	Rationale       string
	RerankHeuristic bool
}

// Diagnostics reports stage timings and degradation state.
type Diagnostics struct {
	TotalEvaluated int   `json:"total_evaluated"`
	RetrievalMs    int64 `json:"retrieval_ms"`
	ScoringMs      int64 `json:"scoring_ms"`
	RerankMs       int64 `json:"rerank_ms"`
	TotalMs        int64 `json:"total_ms"`

	Degraded       bool   `json:"degraded"`
	DegradedReason string `json:"degraded_reason,omitempty"`
}

// Response is the ordered result page plus diagnostics.
type Response struct {
	Results     []RankedCandidate
	Diagnostics Diagnostics
}

// Pipeline runs searches end to end. Safe for concurrent use.
type Pipeline struct {
	retriever  *retrieval.Engine
	scorer     *scoring.Engine
	reranker   *rerank.Engine // nil disables reranking
	candidates repository.CandidateStore

	rerankBudget time.Duration
	logger       *slog.Logger
}

// Option is a functional option for configuring Pipeline.
type Option func(*Pipeline)

// WithReranker enables the LLM reranking stage.
func WithReranker(r *rerank.Engine) Option {
	return func(p *Pipeline) { p.reranker = r }
}

// WithRerankBudget overrides the rerank stage deadline.
func WithRerankBudget(d time.Duration) Option {
	return func(p *Pipeline) {
		if d > 0 {
			p.rerankBudget = d
		}
	}
}

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Pipeline) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// New creates a search pipeline.
func New(retriever *retrieval.Engine, scorer *scoring.Engine, candidates repository.CandidateStore, opts ...Option) *Pipeline {
	p := &Pipeline{
		retriever:    retriever,
		scorer:       scorer,
		candidates:   candidates,
		rerankBudget: DefaultRerankBudget,
		logger:       slog.Default().With("component", "pipeline"),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Search runs the full flow. The error is non-nil only when retrieval
// itself fails; everything downstream degrades instead.
func (p *Pipeline) Search(ctx context.Context, req Request) (*Response, error) {
	start := time.Now()

	limit := req.Limit
	if limit <= 0 {
		limit = DefaultLimit
	}
	if limit > MaxLimit {
		limit = MaxLimit
	}

	resp := &Response{}

	retrievalStart := time.Now()
	hits, err := p.retriever.Search(ctx, retrieval.Query{
		Text:    req.QueryText,
		Vector:  req.QueryVector,
		Filters: req.Filters,
		Limit:   limit * poolMultiplier,
		Offset:  req.Offset,
		OrgID:   req.OrgID,
	})
	resp.Diagnostics.RetrievalMs = time.Since(retrievalStart).Milliseconds()
	if err != nil {
		return nil, fmt.Errorf("retrieval: %w", err)
	}
	resp.Diagnostics.TotalEvaluated = len(hits)
	if len(hits) == 0 {
		resp.Diagnostics.TotalMs = time.Since(start).Milliseconds()
		return resp, nil
	}

	profiles := p.loadProfiles(ctx, hits, resp)

	scoringStart := time.Now()
	scoreReq := scoring.Request{
		Required:        req.RequiredSkills,
		Preferred:       req.PreferredSkills,
		ExperienceLevel: req.ExperienceLevel,
		Weights:         req.Weights,
	}
	ranked := make([]RankedCandidate, 0, len(hits))
	for i, hit := range hits {
		sc := p.scorer.Score(profiles[hit.EntityID], hit.EntityID, float64(hit.Similarity), i, scoreReq)
		ranked = append(ranked, RankedCandidate{
			ScoredCandidate: *sc,
			FinalScore:      sc.OverallScore,
		})
	}
	resp.Diagnostics.ScoringMs = time.Since(scoringStart).Milliseconds()

	sortByFinalScore(ranked)

	if req.Rerank && p.reranker != nil {
		rerankStart := time.Now()
		p.applyRerank(ctx, req, ranked, resp)
		resp.Diagnostics.RerankMs = time.Since(rerankStart).Milliseconds()
		sortByFinalScore(ranked)
	}

	if len(ranked) > limit {
		ranked = ranked[:limit]
	}
	resp.Results = ranked
	resp.Diagnostics.TotalMs = time.Since(start).Milliseconds()

	p.logger.Info("search complete",
		"evaluated", resp.Diagnostics.TotalEvaluated,
		"returned", len(resp.Results),
		"degraded", resp.Diagnostics.Degraded,
		"total_ms", resp.Diagnostics.TotalMs,
	)
	return resp, nil
}

// loadProfiles hydrates candidate profiles for the hit set. Store failure
// degrades to vector-only scoring rather than failing the search.
func (p *Pipeline) loadProfiles(ctx context.Context, hits []vectorstore.Result, resp *Response) map[string]*repository.Candidate {
	ids := make([]uuid.UUID, 0, len(hits))
	for _, hit := range hits {
		id, err := uuid.Parse(hit.EntityID)
		if err != nil {
			continue
		}
		ids = append(ids, id)
	}

	profiles := make(map[string]*repository.Candidate, len(ids))
	if len(ids) == 0 {
		return profiles
	}

	cands, err := p.candidates.GetByIDs(ctx, ids)
	if err != nil {
		p.logger.Warn("profile load failed, degrading to vector-only scoring", "error", err)
		markDegraded(resp, ReasonProfilesUnavailable)
		return profiles
	}
	for _, c := range cands {
		profiles[c.ID.String()] = c
	}
	return profiles
}

// applyRerank runs the reranker under its time budget and folds the scores
// into the ranked set in place.
func (p *Pipeline) applyRerank(ctx context.Context, req Request, ranked []RankedCandidate, resp *Response) {
	rctx, cancel := context.WithTimeout(ctx, p.rerankBudget)
	defer cancel()

	in := make([]rerank.Candidate, 0, len(ranked))
	for i, rc := range ranked {
		c := rerank.Candidate{
			ID:        rc.EntityID,
			BaseScore: rc.OverallScore,
			Rank:      i,
		}
		if rc.Candidate != nil {
			c.Name = rc.Candidate.Name
			c.Title = rc.Candidate.CurrentTitle
			c.Level = rc.Candidate.CurrentLevel
			c.YearsExperience = rc.Candidate.YearsExperience
			if s, ok := rc.Candidate.PrimarySpecialty(); ok {
				c.Specialty = s
			}
			for _, sa := range rc.Candidate.Skills {
				c.Skills = append(c.Skills, sa.Skill)
			}
		}
		in = append(in, c)
	}

	outcome := p.reranker.Rerank(rctx, rerank.Request{
		RoleTitle:       req.RoleTitle,
		TargetLevel:     req.ExperienceLevel,
		TargetSpecialty: req.TargetSpecialty,
	}, in)

	if outcome.Degraded {
		markDegraded(resp, ReasonRerankUnavailable+": "+outcome.Reason)
	}

	byID := make(map[string]rerank.Result, len(outcome.Results))
	for _, r := range outcome.Results {
		byID[r.EntityID] = r
	}
	for i := range ranked {
		r, ok := byID[ranked[i].EntityID]
		if !ok {
			continue
		}
		score := r.Score
		ranked[i].FinalScore = score
		ranked[i].RerankScore = &score
		ranked[i].Rationale = r.Rationale
		ranked[i].RerankHeuristic = r.Heuristic
	}
}

func sortByFinalScore(ranked []RankedCandidate) {
	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].FinalScore != ranked[j].FinalScore {
			return ranked[i].FinalScore > ranked[j].FinalScore
		}
		return ranked[i].RetrievalRank < ranked[j].RetrievalRank
	})
}

func markDegraded(resp *Response, reason string) {
	resp.Diagnostics.Degraded = true
	if resp.Diagnostics.DegradedReason == "" {
		resp.Diagnostics.DegradedReason = reason
	} else {
		resp.Diagnostics.DegradedReason += "; " + reason
	}
}
