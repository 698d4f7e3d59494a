package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/talentsift/talentsift/internal/pipeline"
	"github.com/talentsift/talentsift/internal/repository"
	"github.com/talentsift/talentsift/internal/retrieval"
	"github.com/talentsift/talentsift/internal/scoring"
	"github.com/talentsift/talentsift/internal/vectorstore"
)

type apiHandler struct {
	pipeline *pipeline.Pipeline
	indexer  *pipeline.Indexer
	logger   *slog.Logger
}

type skillRequirementDTO struct {
	Skill         string  `json:"skill"`
	MinConfidence float64 `json:"min_confidence,omitempty"`
	Weight        float64 `json:"weight,omitempty"`
}

type filtersDTO struct {
	MinYearsExperience float64  `json:"min_years_experience,omitempty"`
	CurrentLevels      []string `json:"current_levels,omitempty"`
	CompanyTiers       []int    `json:"company_tiers,omitempty"`
	MinScore           float64  `json:"min_score,omitempty"`
	Countries          []string `json:"countries,omitempty"`
	Specialties        []string `json:"specialties,omitempty"`
}

type weightsDTO struct {
	SkillMatch       float64 `json:"skill_match"`
	Confidence       float64 `json:"confidence"`
	ExperienceMatch  float64 `json:"experience_match"`
	VectorSimilarity float64 `json:"vector_similarity"`
}

type searchRequest struct {
	Query       string    `json:"query,omitempty"`
	QueryVector []float32 `json:"query_vector,omitempty"`

	RequiredSkills  []skillRequirementDTO `json:"required_skills,omitempty"`
	PreferredSkills []skillRequirementDTO `json:"preferred_skills,omitempty"`
	ExperienceLevel string                `json:"experience_level,omitempty"`
	Weights         *weightsDTO           `json:"weights,omitempty"`

	RoleTitle       string `json:"role_title,omitempty"`
	TargetSpecialty string `json:"target_specialty,omitempty"`

	Filters filtersDTO `json:"filters"`
	OrgID   string     `json:"org_id,omitempty"`
	Limit   int        `json:"limit,omitempty"`
	Offset  int        `json:"offset,omitempty"`
	Rerank  bool       `json:"rerank,omitempty"`
}

type searchResultDTO struct {
	CandidateID string  `json:"candidate_id"`
	Name        string  `json:"name,omitempty"`
	Title       string  `json:"title,omitempty"`
	Level       string  `json:"level,omitempty"`
	Country     string  `json:"country,omitempty"`
	Years       float64 `json:"years_experience,omitempty"`

	FinalScore       float64  `json:"final_score"`
	OverallScore     float64  `json:"overall_score"`
	SkillMatch       float64  `json:"skill_match_score"`
	Confidence       float64  `json:"confidence_score"`
	ExperienceMatch  float64  `json:"experience_match_score"`
	VectorSimilarity float64  `json:"vector_similarity"`
	MatchReasons     []string `json:"match_reasons,omitempty"`

	RerankScore     *float64 `json:"rerank_score,omitempty"`
	Rationale       string   `json:"rationale,omitempty"`
	RerankHeuristic bool     `json:"rerank_heuristic,omitempty"`
}

type searchResponse struct {
	Results     []searchResultDTO    `json:"results"`
	Diagnostics pipeline.Diagnostics `json:"diagnostics"`
}

func (h *apiHandler) handleSearch(w http.ResponseWriter, r *http.Request) {
	var req searchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("invalid request body: %w", err))
		return
	}

	preq, err := req.toPipelineRequest()
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	resp, err := h.pipeline.Search(r.Context(), preq)
	if err != nil {
		if errors.Is(err, retrieval.ErrInvalidQuery) {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		h.logger.Error("search failed", "error", err)
		writeError(w, http.StatusBadGateway, fmt.Errorf("search failed"))
		return
	}

	out := searchResponse{
		Results:     make([]searchResultDTO, 0, len(resp.Results)),
		Diagnostics: resp.Diagnostics,
	}
	for _, rc := range resp.Results {
		dto := searchResultDTO{
			CandidateID:      rc.EntityID,
			FinalScore:       rc.FinalScore,
			OverallScore:     rc.OverallScore,
			SkillMatch:       rc.SkillMatchScore,
			Confidence:       rc.ConfidenceScore,
			ExperienceMatch:  rc.ExperienceMatchScore,
			VectorSimilarity: rc.VectorSimilarity,
			MatchReasons:     rc.MatchReasons,
			RerankScore:      rc.RerankScore,
			Rationale:        rc.Rationale,
			RerankHeuristic:  rc.RerankHeuristic,
		}
		if rc.Candidate != nil {
			dto.Name = rc.Candidate.Name
			dto.Title = rc.Candidate.CurrentTitle
			dto.Level = string(rc.Candidate.CurrentLevel)
			dto.Country = rc.Candidate.Country
			dto.Years = rc.Candidate.YearsExperience
		}
		out.Results = append(out.Results, dto)
	}
	writeJSON(w, http.StatusOK, out)
}

func (req *searchRequest) toPipelineRequest() (pipeline.Request, error) {
	preq := pipeline.Request{
		QueryText:   req.Query,
		QueryVector: req.QueryVector,
		RoleTitle:   req.RoleTitle,
		Limit:       req.Limit,
		Offset:      req.Offset,
		Rerank:      req.Rerank,
		Filters: vectorstore.Filters{
			MinYearsExperience: req.Filters.MinYearsExperience,
			CurrentLevels:      req.Filters.CurrentLevels,
			CompanyTiers:       req.Filters.CompanyTiers,
			MinScore:           req.Filters.MinScore,
			Countries:          req.Filters.Countries,
			Specialties:        req.Filters.Specialties,
		},
	}

	if req.ExperienceLevel != "" {
		level := repository.Level(req.ExperienceLevel)
		if !level.Valid() {
			return preq, fmt.Errorf("unknown experience level %q", req.ExperienceLevel)
		}
		preq.ExperienceLevel = level
	}
	if req.TargetSpecialty != "" {
		specialty := repository.Specialty(req.TargetSpecialty)
		if !specialty.Valid() {
			return preq, fmt.Errorf("unknown specialty %q", req.TargetSpecialty)
		}
		preq.TargetSpecialty = specialty
	}
	if req.OrgID != "" {
		orgID, err := uuid.Parse(req.OrgID)
		if err != nil {
			return preq, fmt.Errorf("invalid org_id: %w", err)
		}
		preq.OrgID = orgID
	}
	if req.Weights != nil {
		preq.Weights = &scoring.Weights{
			SkillMatch:       req.Weights.SkillMatch,
			Confidence:       req.Weights.Confidence,
			ExperienceMatch:  req.Weights.ExperienceMatch,
			VectorSimilarity: req.Weights.VectorSimilarity,
		}
	}
	preq.RequiredSkills = toSkillRequirements(req.RequiredSkills)
	preq.PreferredSkills = toSkillRequirements(req.PreferredSkills)
	return preq, nil
}

func toSkillRequirements(dtos []skillRequirementDTO) []scoring.SkillRequirement {
	if len(dtos) == 0 {
		return nil
	}
	out := make([]scoring.SkillRequirement, len(dtos))
	for i, d := range dtos {
		out[i] = scoring.SkillRequirement{
			Skill:         d.Skill,
			MinConfidence: d.MinConfidence,
			Weight:        d.Weight,
		}
	}
	return out
}

type indexRequest struct {
	Candidate *repository.Candidate `json:"candidate"`
	Profile   *repository.Profile   `json:"profile,omitempty"`
}

// handleIndex embeds and indexes one candidate. When a raw profile document
// is attached it is normalized into skill assertions first.
func (h *apiHandler) handleIndex(w http.ResponseWriter, r *http.Request) {
	var req indexRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("invalid request body: %w", err))
		return
	}
	if req.Candidate == nil || req.Candidate.ID == uuid.Nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("candidate with id is required"))
		return
	}

	if req.Profile != nil {
		skills, exp, err := req.Profile.Normalize()
		if err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		req.Candidate.Skills = skills
		if req.Candidate.YearsExperience == 0 {
			req.Candidate.YearsExperience = exp.Years
		}
		if req.Candidate.CurrentLevel == "" {
			req.Candidate.CurrentLevel = exp.Level
		}
	}

	if err := h.indexer.Index(r.Context(), req.Candidate); err != nil {
		h.logger.Error("index failed", "candidate_id", req.Candidate.ID, "error", err)
		writeError(w, http.StatusBadGateway, fmt.Errorf("index failed"))
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "indexed"})
}

func (h *apiHandler) handleDeindex(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("invalid candidate id"))
		return
	}
	if err := h.indexer.Remove(r.Context(), id); err != nil {
		h.logger.Error("deindex failed", "candidate_id", id, "error", err)
		writeError(w, http.StatusBadGateway, fmt.Errorf("deindex failed"))
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "removed"})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}
