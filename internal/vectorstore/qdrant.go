package vectorstore

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"time"

	"github.com/qdrant/go-client/qdrant"
)

// Payload field names used for filter pushdown
const (
	fieldYearsExperience = "years_experience"
	fieldCurrentLevel    = "current_level"
	fieldCompanyTier     = "company_tier"
	fieldOverallScore    = "overall_score"
	fieldCountry         = "country"
	fieldSpecialty       = "specialty"
	fieldModelVersion    = "model_version"
	fieldChunkType       = "chunk_type"
	fieldUpdatedAt       = "updated_at"
)

// QdrantStore implements Store using Qdrant
type QdrantStore struct {
	client     *qdrant.Client
	collection string
	dimension  int
}

// NewQdrantStore creates a new Qdrant vector store client.
// url should be in format "host:port" (e.g., "localhost:6334")
func NewQdrantStore(ctx context.Context, url, collection string, dimension int) (*QdrantStore, error) {
	host, portStr, err := net.SplitHostPort(url)
	if err != nil {
		// If no port specified, assume default
		host = url
		portStr = "6334"
	}

	port, err := strconv.Atoi(portStr)
	if err != nil {
		return nil, fmt.Errorf("invalid port in qdrant url: %w", err)
	}

	client, err := qdrant.NewClient(&qdrant.Config{
		Host: host,
		Port: port,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create qdrant client: %w", err)
	}

	s := &QdrantStore{client: client, collection: collection, dimension: dimension}
	if err := s.ensureCollection(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

// Close closes the Qdrant client connection
func (s *QdrantStore) Close() error {
	return s.client.Close()
}

func (s *QdrantStore) ensureCollection(ctx context.Context) error {
	exists, err := s.client.CollectionExists(ctx, s.collection)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if exists {
		return nil
	}

	err = s.client.CreateCollection(ctx, &qdrant.CreateCollection{
		CollectionName: s.collection,
		VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
			Size:     uint64(s.dimension),
			Distance: qdrant.Distance_Cosine,
		}),
	})
	if err != nil {
		return fmt.Errorf("failed to create collection: %w", err)
	}
	return nil
}

// Upsert inserts or updates embedding records
func (s *QdrantStore) Upsert(ctx context.Context, records []Record) error {
	if len(records) == 0 {
		return nil
	}

	points := make([]*qdrant.PointStruct, len(records))
	for i, rec := range records {
		if err := ValidateVector(rec.Vector, s.dimension); err != nil {
			return fmt.Errorf("record %s: %w", rec.EntityID, err)
		}

		updatedAt := rec.UpdatedAt
		if updatedAt.IsZero() {
			updatedAt = time.Now().UTC()
		}

		payload := map[string]*qdrant.Value{
			fieldYearsExperience: qdrant.NewValueDouble(rec.Metadata.YearsExperience),
			fieldCurrentLevel:    qdrant.NewValueString(rec.Metadata.CurrentLevel),
			fieldCompanyTier:     qdrant.NewValueInt(int64(rec.Metadata.CompanyTier)),
			fieldOverallScore:    qdrant.NewValueDouble(rec.Metadata.OverallScore),
			fieldCountry:         qdrant.NewValueString(rec.Metadata.Country),
			fieldSpecialty:       qdrant.NewValueString(rec.Metadata.PrimarySpecialty),
			fieldModelVersion:    qdrant.NewValueString(rec.ModelVersion),
			fieldChunkType:       qdrant.NewValueString(rec.ChunkType),
			fieldUpdatedAt:       qdrant.NewValueString(updatedAt.Format(time.RFC3339)),
		}

		points[i] = &qdrant.PointStruct{
			Id:      qdrant.NewIDUUID(rec.EntityID),
			Vectors: qdrant.NewVectors(rec.Vector...),
			Payload: payload,
		}
	}

	_, err := s.client.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: s.collection,
		Points:         points,
	})
	if err != nil {
		return fmt.Errorf("%w: upsert: %v", ErrUnavailable, err)
	}
	return nil
}

// Query performs cosine-similarity search with filter pushdown
func (s *QdrantStore) Query(ctx context.Context, q Query) ([]Result, error) {
	if err := ValidateVector(q.Vector, s.dimension); err != nil {
		return nil, err
	}

	limit := q.Limit
	if limit <= 0 {
		limit = 10
	}

	params := &qdrant.QueryPoints{
		CollectionName: s.collection,
		Query:          qdrant.NewQuery(q.Vector...),
		Limit:          qdrant.PtrOf(uint64(limit)),
		WithPayload:    qdrant.NewWithPayload(true),
		Filter:         buildQdrantFilter(q),
	}
	if q.Threshold > 0 {
		params.ScoreThreshold = qdrant.PtrOf(q.Threshold)
	}

	response, err := s.client.Query(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("%w: query: %v", ErrUnavailable, err)
	}

	results := make([]Result, 0, len(response))
	for _, point := range response {
		results = append(results, Result{
			EntityID:   point.Id.GetUuid(),
			Similarity: point.Score,
			Metadata:   metadataFromPayload(point.Payload),
		})
	}
	return results, nil
}

// Delete removes all records for an entity
func (s *QdrantStore) Delete(ctx context.Context, entityID string) error {
	_, err := s.client.Delete(ctx, &qdrant.DeletePoints{
		CollectionName: s.collection,
		Points: &qdrant.PointsSelector{
			PointsSelectorOneOf: &qdrant.PointsSelector_Points{
				Points: &qdrant.PointsIdsList{
					Ids: []*qdrant.PointId{qdrant.NewIDUUID(entityID)},
				},
			},
		},
	})
	if err != nil {
		return fmt.Errorf("%w: delete: %v", ErrUnavailable, err)
	}
	return nil
}

// HealthCheck reports connectivity, collection existence, and point count
func (s *QdrantStore) HealthCheck(ctx context.Context) (*Health, error) {
	exists, err := s.client.CollectionExists(ctx, s.collection)
	if err != nil {
		return &Health{}, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	health := &Health{Connected: true, CollectionExists: exists}
	if exists {
		count, err := s.client.Count(ctx, &qdrant.CountPoints{CollectionName: s.collection})
		if err != nil {
			return health, fmt.Errorf("%w: count: %v", ErrUnavailable, err)
		}
		health.TotalCount = count
	}
	return health, nil
}

// buildQdrantFilter translates Filters into a Qdrant filter. Country and
// specialty constraints are expressed as should-groups that also accept the
// empty value, so records with unknown attributes are never pruned.
func buildQdrantFilter(q Query) *qdrant.Filter {
	var must []*qdrant.Condition

	if q.ModelVersion != "" {
		must = append(must, qdrant.NewMatch(fieldModelVersion, q.ModelVersion))
	}
	if q.ChunkType != "" {
		must = append(must, qdrant.NewMatch(fieldChunkType, q.ChunkType))
	}

	f := q.Filters
	if f != nil {
		if f.MinYearsExperience > 0 {
			must = append(must, qdrant.NewRange(fieldYearsExperience, &qdrant.Range{
				Gte: qdrant.PtrOf(f.MinYearsExperience),
			}))
		}
		if len(f.CurrentLevels) > 0 {
			must = append(must, qdrant.NewMatchKeywords(fieldCurrentLevel, f.CurrentLevels...))
		}
		if len(f.CompanyTiers) > 0 {
			tiers := make([]int64, len(f.CompanyTiers))
			for i, t := range f.CompanyTiers {
				tiers[i] = int64(t)
			}
			must = append(must, qdrant.NewMatchInts(fieldCompanyTier, tiers...))
		}
		if f.MinScore > 0 {
			must = append(must, qdrant.NewRange(fieldOverallScore, &qdrant.Range{
				Gte: qdrant.PtrOf(f.MinScore),
			}))
		}
		if len(f.Countries) > 0 {
			must = append(must, anyOfOrUnknown(fieldCountry, f.Countries))
		}
		if len(f.Specialties) > 0 {
			must = append(must, anyOfOrUnknown(fieldSpecialty, f.Specialties))
		}
	}

	if len(must) == 0 {
		return nil
	}
	return &qdrant.Filter{Must: must}
}

// anyOfOrUnknown builds "value in set OR value unknown" as a nested should-filter.
func anyOfOrUnknown(field string, values []string) *qdrant.Condition {
	return &qdrant.Condition{
		ConditionOneOf: &qdrant.Condition_Filter{
			Filter: &qdrant.Filter{
				Should: []*qdrant.Condition{
					qdrant.NewMatchKeywords(field, values...),
					qdrant.NewMatch(field, ""),
					{
						ConditionOneOf: &qdrant.Condition_IsEmpty{
							IsEmpty: &qdrant.IsEmptyCondition{Key: field},
						},
					},
				},
			},
		},
	}
}

func metadataFromPayload(payload map[string]*qdrant.Value) Metadata {
	var m Metadata
	if payload == nil {
		return m
	}
	if v, ok := payload[fieldYearsExperience]; ok {
		m.YearsExperience = v.GetDoubleValue()
	}
	if v, ok := payload[fieldCurrentLevel]; ok {
		m.CurrentLevel = v.GetStringValue()
	}
	if v, ok := payload[fieldCompanyTier]; ok {
		m.CompanyTier = int(v.GetIntegerValue())
	}
	if v, ok := payload[fieldOverallScore]; ok {
		m.OverallScore = v.GetDoubleValue()
	}
	if v, ok := payload[fieldCountry]; ok {
		m.Country = v.GetStringValue()
	}
	if v, ok := payload[fieldSpecialty]; ok {
		m.PrimarySpecialty = v.GetStringValue()
	}
	return m
}

// Ensure QdrantStore implements Store
var _ Store = (*QdrantStore)(nil)
