package vectorstore

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/philippgille/chromem-go"
)

// ChromemStore implements Store using chromem-go, an embedded vector database.
// It is the single-node alternative to Qdrant for development and tests.
// Chromem's metadata matching is equality-only, so attribute filters are
// applied post-query via Filters.Matches.
type ChromemStore struct {
	db         *chromem.DB
	collection *chromem.Collection
	dimension  int
}

// NewChromemStore creates an embedded vector store. If path is empty the
// store is purely in-memory; otherwise it persists to the given directory.
func NewChromemStore(path, collection string, dimension int) (*ChromemStore, error) {
	var (
		db  *chromem.DB
		err error
	)
	if path == "" {
		db = chromem.NewDB()
	} else {
		db, err = chromem.NewPersistentDB(path, false)
		if err != nil {
			return nil, fmt.Errorf("failed to open chromem db: %w", err)
		}
	}

	// Embeddings are always supplied by the caller; the embedding func must
	// never be reached.
	col, err := db.GetOrCreateCollection(collection, nil, rejectEmbeddingFunc)
	if err != nil {
		return nil, fmt.Errorf("failed to create collection: %w", err)
	}

	return &ChromemStore{db: db, collection: col, dimension: dimension}, nil
}

func rejectEmbeddingFunc(_ context.Context, _ string) ([]float32, error) {
	return nil, errors.New("embeddings must be precomputed")
}

// Close is a no-op; chromem holds no external connections.
func (s *ChromemStore) Close() error { return nil }

// Upsert inserts or updates embedding records
func (s *ChromemStore) Upsert(ctx context.Context, records []Record) error {
	for _, rec := range records {
		if err := ValidateVector(rec.Vector, s.dimension); err != nil {
			return fmt.Errorf("record %s: %w", rec.EntityID, err)
		}

		updatedAt := rec.UpdatedAt
		if updatedAt.IsZero() {
			updatedAt = time.Now().UTC()
		}

		doc := chromem.Document{
			ID:        rec.EntityID,
			Embedding: rec.Vector,
			Content:   rec.EntityID,
			Metadata:  encodeMetadata(rec, updatedAt),
		}
		if err := s.collection.AddDocument(ctx, doc); err != nil {
			return fmt.Errorf("failed to add document %s: %w", rec.EntityID, err)
		}
	}
	return nil
}

// Query performs cosine-similarity search, filtering post-query
func (s *ChromemStore) Query(ctx context.Context, q Query) ([]Result, error) {
	if err := ValidateVector(q.Vector, s.dimension); err != nil {
		return nil, err
	}

	total := s.collection.Count()
	if total == 0 {
		return nil, nil
	}

	limit := q.Limit
	if limit <= 0 {
		limit = 10
	}

	// Chromem only supports equality matching, so fetch everything
	// and apply the filters here.
	hits, err := s.collection.QueryEmbedding(ctx, q.Vector, total, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: query: %v", ErrUnavailable, err)
	}

	results := make([]Result, 0, limit)
	for _, hit := range hits {
		if hit.Similarity < q.Threshold {
			continue
		}
		if q.ModelVersion != "" && hit.Metadata[fieldModelVersion] != q.ModelVersion {
			continue
		}
		if q.ChunkType != "" && hit.Metadata[fieldChunkType] != q.ChunkType {
			continue
		}
		meta := decodeMetadata(hit.Metadata)
		if !q.Filters.Matches(meta) {
			continue
		}
		results = append(results, Result{
			EntityID:   hit.ID,
			Similarity: hit.Similarity,
			Metadata:   meta,
		})
		if len(results) >= limit {
			break
		}
	}
	return results, nil
}

// Delete removes all records for an entity
func (s *ChromemStore) Delete(ctx context.Context, entityID string) error {
	if err := s.collection.Delete(ctx, nil, nil, entityID); err != nil {
		return fmt.Errorf("failed to delete %s: %w", entityID, err)
	}
	return nil
}

// HealthCheck reports collection state
func (s *ChromemStore) HealthCheck(ctx context.Context) (*Health, error) {
	return &Health{
		Connected:        true,
		CollectionExists: true,
		TotalCount:       uint64(s.collection.Count()),
	}, nil
}

func encodeMetadata(rec Record, updatedAt time.Time) map[string]string {
	return map[string]string{
		fieldYearsExperience: strconv.FormatFloat(rec.Metadata.YearsExperience, 'f', -1, 64),
		fieldCurrentLevel:    rec.Metadata.CurrentLevel,
		fieldCompanyTier:     strconv.Itoa(rec.Metadata.CompanyTier),
		fieldOverallScore:    strconv.FormatFloat(rec.Metadata.OverallScore, 'f', -1, 64),
		fieldCountry:         rec.Metadata.Country,
		fieldSpecialty:       rec.Metadata.PrimarySpecialty,
		fieldModelVersion:    rec.ModelVersion,
		fieldChunkType:       rec.ChunkType,
		fieldUpdatedAt:       updatedAt.Format(time.RFC3339),
	}
}

func decodeMetadata(m map[string]string) Metadata {
	years, _ := strconv.ParseFloat(m[fieldYearsExperience], 64)
	tier, _ := strconv.Atoi(m[fieldCompanyTier])
	score, _ := strconv.ParseFloat(m[fieldOverallScore], 64)
	return Metadata{
		YearsExperience:  years,
		CurrentLevel:     m[fieldCurrentLevel],
		CompanyTier:      tier,
		OverallScore:     score,
		Country:          m[fieldCountry],
		PrimarySpecialty: m[fieldSpecialty],
	}
}

// Ensure ChromemStore implements Store
var _ Store = (*ChromemStore)(nil)
