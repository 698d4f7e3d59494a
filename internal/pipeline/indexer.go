package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/talentsift/talentsift/internal/embedder"
	"github.com/talentsift/talentsift/internal/repository"
	"github.com/talentsift/talentsift/internal/vectorstore"
)

// Indexer embeds candidate profiles and writes them to the vector store.
type Indexer struct {
	embedder embedder.Embedder
	vectors  vectorstore.Store
	logger   *slog.Logger
}

// NewIndexer creates a profile indexer.
func NewIndexer(emb embedder.Embedder, vectors vectorstore.Store, logger *slog.Logger) *Indexer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Indexer{
		embedder: emb,
		vectors:  vectors,
		logger:   logger.With("component", "indexer"),
	}
}

// Index embeds one candidate and upserts the record. The embedding is
// validated against the embedder's dimension before it reaches the store.
func (ix *Indexer) Index(ctx context.Context, c *repository.Candidate) error {
	records, err := ix.buildRecords(ctx, []*repository.Candidate{c})
	if err != nil {
		return err
	}
	return ix.vectors.Upsert(ctx, records)
}

// IndexBatch embeds and upserts many candidates in one pass.
func (ix *Indexer) IndexBatch(ctx context.Context, cands []*repository.Candidate) error {
	if len(cands) == 0 {
		return nil
	}
	records, err := ix.buildRecords(ctx, cands)
	if err != nil {
		return err
	}
	if err := ix.vectors.Upsert(ctx, records); err != nil {
		return err
	}
	ix.logger.Info("indexed candidates", "count", len(records))
	return nil
}

// Remove deletes a candidate's records from the vector store.
func (ix *Indexer) Remove(ctx context.Context, id uuid.UUID) error {
	return ix.vectors.Delete(ctx, id.String())
}

func (ix *Indexer) buildRecords(ctx context.Context, cands []*repository.Candidate) ([]vectorstore.Record, error) {
	texts := make([]string, len(cands))
	for i, c := range cands {
		texts[i] = ProfileText(c)
	}

	vecs, err := ix.embedder.EmbedBatch(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("embed profiles: %w", err)
	}
	if len(vecs) != len(cands) {
		return nil, fmt.Errorf("embedder returned %d vectors for %d profiles", len(vecs), len(cands))
	}

	dim := ix.embedder.Dimension()
	now := time.Now()
	records := make([]vectorstore.Record, len(cands))
	for i, c := range cands {
		if err := vectorstore.ValidateVector(vecs[i], dim); err != nil {
			return nil, fmt.Errorf("candidate %s: %w", c.ID, err)
		}
		meta := vectorstore.Metadata{
			YearsExperience: c.YearsExperience,
			CurrentLevel:    string(c.CurrentLevel),
			CompanyTier:     c.CompanyTier,
			OverallScore:    c.OverallScore,
			Country:         c.Country,
		}
		if s, ok := c.PrimarySpecialty(); ok {
			meta.PrimarySpecialty = string(s)
		}
		records[i] = vectorstore.Record{
			EntityID:     c.ID.String(),
			Vector:       vecs[i],
			ModelVersion: ix.embedder.ModelName(),
			ChunkType:    vectorstore.ChunkTypeFullProfile,
			Metadata:     meta,
			CreatedAt:    c.CreatedAt,
			UpdatedAt:    now,
		}
	}
	return records, nil
}

// ProfileText renders the canonical embedding text for a candidate. Field
// order is stable so re-embedding an unchanged profile yields the same text.
func ProfileText(c *repository.Candidate) string {
	var b strings.Builder
	b.WriteString(c.Name)
	if c.CurrentTitle != "" {
		b.WriteString(". ")
		b.WriteString(c.CurrentTitle)
	}
	if c.CurrentLevel != "" {
		fmt.Fprintf(&b, ". Level: %s", c.CurrentLevel)
	}
	if c.YearsExperience > 0 {
		fmt.Fprintf(&b, ". %.0f years of experience", c.YearsExperience)
	}
	if len(c.Specialties) > 0 {
		names := make([]string, len(c.Specialties))
		for i, s := range c.Specialties {
			names[i] = string(s)
		}
		fmt.Fprintf(&b, ". Specialties: %s", strings.Join(names, ", "))
	}
	if len(c.Skills) > 0 {
		names := make([]string, len(c.Skills))
		for i, s := range c.Skills {
			names[i] = s.Skill
		}
		fmt.Fprintf(&b, ". Skills: %s", strings.Join(names, ", "))
	}
	if c.Country != "" {
		fmt.Fprintf(&b, ". Country: %s", c.Country)
	}
	return b.String()
}
