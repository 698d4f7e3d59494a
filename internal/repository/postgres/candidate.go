package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/talentsift/talentsift/internal/repository"
)

// CandidateRepo implements repository.CandidateStore
type CandidateRepo struct {
	db *DB
}

// NewCandidateRepo creates a new candidate repository
func NewCandidateRepo(db *DB) *CandidateRepo {
	return &CandidateRepo{db: db}
}

const candidateColumns = `
	id, org_id, name, email, COALESCE(country, ''), current_title, current_level,
	years_experience, company_tier, specialties, skills, analysis_confidence,
	overall_score, created_at, updated_at
`

// GetByID retrieves a candidate by ID
func (r *CandidateRepo) GetByID(ctx context.Context, id uuid.UUID) (*repository.Candidate, error) {
	query := `SELECT ` + candidateColumns + ` FROM candidates WHERE id = $1`
	row := r.db.Pool.QueryRow(ctx, query, id)
	cand, err := scanCandidate(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get candidate: %w", err)
	}
	return cand, nil
}

// GetByIDs retrieves candidates by ID. Missing ids are skipped, not errors;
// the caller decides how to treat absent profiles.
func (r *CandidateRepo) GetByIDs(ctx context.Context, ids []uuid.UUID) ([]*repository.Candidate, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	query := `SELECT ` + candidateColumns + ` FROM candidates WHERE id = ANY($1)`
	rows, err := r.db.Pool.Query(ctx, query, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to query candidates: %w", err)
	}
	defer rows.Close()

	return collectCandidates(rows)
}

// SearchByName performs a case-insensitive substring search on candidate names.
func (r *CandidateRepo) SearchByName(ctx context.Context, text string, limit int) ([]*repository.Candidate, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, nil
	}
	if limit <= 0 {
		limit = 10
	}

	query := `SELECT ` + candidateColumns + ` FROM candidates WHERE name ILIKE $1 ORDER BY name LIMIT $2`
	rows, err := r.db.Pool.Query(ctx, query, "%"+text+"%", limit)
	if err != nil {
		return nil, fmt.Errorf("failed to search candidates by name: %w", err)
	}
	defer rows.Close()

	return collectCandidates(rows)
}

// SearchByEmail performs an exact (case-insensitive) email lookup.
func (r *CandidateRepo) SearchByEmail(ctx context.Context, email string) (*repository.Candidate, error) {
	query := `SELECT ` + candidateColumns + ` FROM candidates WHERE lower(email) = lower($1)`
	row := r.db.Pool.QueryRow(ctx, query, strings.TrimSpace(email))
	cand, err := scanCandidate(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("failed to search candidate by email: %w", err)
	}
	return cand, nil
}

// OrgMembers reports which of the given ids belong to the organization.
func (r *CandidateRepo) OrgMembers(ctx context.Context, orgID uuid.UUID, ids []uuid.UUID) (map[uuid.UUID]bool, error) {
	members := make(map[uuid.UUID]bool, len(ids))
	if len(ids) == 0 {
		return members, nil
	}

	query := `SELECT id FROM candidates WHERE org_id = $1 AND id = ANY($2)`
	rows, err := r.db.Pool.Query(ctx, query, orgID, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to query org members: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan org member: %w", err)
		}
		members[id] = true
	}
	return members, rows.Err()
}

// rowScanner covers both pgx.Row and pgx.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanCandidate(row rowScanner) (*repository.Candidate, error) {
	var (
		cand            repository.Candidate
		level           string
		specialtiesText []string
		skillsJSON      []byte
	)

	err := row.Scan(
		&cand.ID, &cand.OrgID, &cand.Name, &cand.Email, &cand.Country,
		&cand.CurrentTitle, &level, &cand.YearsExperience, &cand.CompanyTier,
		&specialtiesText, &skillsJSON, &cand.AnalysisConfidence,
		&cand.OverallScore, &cand.CreatedAt, &cand.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	cand.CurrentLevel = repository.Level(level)
	cand.Specialties = make([]repository.Specialty, 0, len(specialtiesText))
	for _, s := range specialtiesText {
		cand.Specialties = append(cand.Specialties, repository.Specialty(s))
	}

	if len(skillsJSON) > 0 {
		var skills []repository.SkillAssertion
		if err := json.Unmarshal(skillsJSON, &skills); err != nil {
			return nil, fmt.Errorf("failed to unmarshal skills: %w", err)
		}
		cand.Skills = repository.DedupeSkills(skills)
	}

	return &cand, nil
}

func collectCandidates(rows pgx.Rows) ([]*repository.Candidate, error) {
	var out []*repository.Candidate
	for rows.Next() {
		cand, err := scanCandidate(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan candidate: %w", err)
		}
		out = append(out, cand)
	}
	return out, rows.Err()
}

// Ensure CandidateRepo implements the store interface
var _ repository.CandidateStore = (*CandidateRepo)(nil)
