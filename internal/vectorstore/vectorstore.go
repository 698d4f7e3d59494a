// Package vectorstore provides interfaces and implementations for vector similarity search
// over candidate profile embeddings.
package vectorstore

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"
)

// ChunkTypeFullProfile is the default logical subset of a profile embedded as one vector.
// Multiple chunk types per entity are allowed (e.g. a skills-only section).
const ChunkTypeFullProfile = "full_profile"

var (
	// ErrDimensionMismatch is returned when a vector's length does not match
	// the store's configured dimension. Never silently coerced.
	ErrDimensionMismatch = errors.New("vector dimension mismatch")

	// ErrInvalidVector is returned when a vector contains NaN or Inf components.
	ErrInvalidVector = errors.New("vector contains non-finite components")

	// ErrUnavailable is returned when the backing store cannot be reached.
	// Callers may retry idempotent reads.
	ErrUnavailable = errors.New("vector store unavailable")
)

// Metadata holds denormalized scalar candidate attributes carried alongside a
// vector for filter pushdown.
type Metadata struct {
	YearsExperience  float64
	CurrentLevel     string
	CompanyTier      int
	OverallScore     float64
	Country          string // empty means unknown
	PrimarySpecialty string // empty means unknown
}

// Record is a stored embedding with its filterable metadata.
type Record struct {
	EntityID     string
	Vector       []float32
	ModelVersion string
	ChunkType    string
	Metadata     Metadata
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Result is a single nearest-neighbor hit. Immutable once returned.
type Result struct {
	EntityID   string
	Similarity float32 // cosine, in [-1, 1]
	Metadata   Metadata
}

// Filters are exact-match metadata constraints combined with the similarity
// threshold. Zero values mean "no constraint". Country and specialty filters
// never exclude records with unknown values, since unknown may simply mean
// the data was not collected.
type Filters struct {
	MinYearsExperience float64
	CurrentLevels      []string
	CompanyTiers       []int
	MinScore           float64
	Countries          []string
	Specialties        []string
}

// Query is a nearest-neighbor query with optional metadata filters.
type Query struct {
	Vector       []float32
	Threshold    float32
	Limit        int
	ModelVersion string
	ChunkType    string
	Filters      *Filters
}

// Health reports the observable health of a vector store backend.
type Health struct {
	Connected        bool
	CollectionExists bool
	TotalCount       uint64
}

// Store defines the interface for vector storage operations
type Store interface {
	// Upsert inserts or updates embedding records.
	Upsert(ctx context.Context, records []Record) error

	// Query performs cosine-similarity search with metadata filtering,
	// ordered by similarity descending.
	Query(ctx context.Context, q Query) ([]Result, error)

	// Delete removes all records for an entity.
	Delete(ctx context.Context, entityID string) error

	// HealthCheck reports backend health.
	HealthCheck(ctx context.Context) (*Health, error)

	// Close releases backend resources.
	Close() error
}

// ValidateVector checks length and finiteness. A mismatched dimension or a
// non-finite component is a validation failure, never repaired.
func ValidateVector(vec []float32, dim int) error {
	if len(vec) != dim {
		return fmt.Errorf("%w: got %d, want %d", ErrDimensionMismatch, len(vec), dim)
	}
	for i, v := range vec {
		f := float64(v)
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return fmt.Errorf("%w: component %d", ErrInvalidVector, i)
		}
	}
	return nil
}

// Matches reports whether a record's metadata passes the filters. Backends
// that cannot push every constraint into the store apply this post-query.
func (f *Filters) Matches(m Metadata) bool {
	if f == nil {
		return true
	}
	if f.MinYearsExperience > 0 && m.YearsExperience < f.MinYearsExperience {
		return false
	}
	if len(f.CurrentLevels) > 0 && !containsString(f.CurrentLevels, m.CurrentLevel) {
		return false
	}
	if len(f.CompanyTiers) > 0 && !containsInt(f.CompanyTiers, m.CompanyTier) {
		return false
	}
	if f.MinScore > 0 && m.OverallScore < f.MinScore {
		return false
	}
	// Unknown country/specialty always passes: absence of data is not a mismatch.
	if len(f.Countries) > 0 && m.Country != "" && !containsString(f.Countries, m.Country) {
		return false
	}
	if len(f.Specialties) > 0 && m.PrimarySpecialty != "" && !containsString(f.Specialties, m.PrimarySpecialty) {
		return false
	}
	return true
}

func containsString(haystack []string, needle string) bool {
	for _, s := range haystack {
		if s == needle {
			return true
		}
	}
	return false
}

func containsInt(haystack []int, needle int) bool {
	for _, n := range haystack {
		if n == needle {
			return true
		}
	}
	return false
}
