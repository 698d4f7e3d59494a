package retrieval

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/talentsift/talentsift/internal/repository"
	"github.com/talentsift/talentsift/internal/vectorstore"
)

const testDim = 4

type fakeEmbedder struct {
	err error
}

func (f *fakeEmbedder) Embed(_ context.Context, _ string) ([]float32, error) {
	if f.err != nil {
		return nil, f.err
	}
	return []float32{0.1, 0.2, 0.3, 0.4}, nil
}

func (f *fakeEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i := range texts {
		v, err := f.Embed(ctx, texts[i])
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

func (f *fakeEmbedder) Dimension() int    { return testDim }
func (f *fakeEmbedder) ModelName() string { return "fake-embed" }

type fakeStore struct {
	results  []vectorstore.Result
	failures int // number of ErrUnavailable failures before succeeding
	calls    int
}

func (f *fakeStore) Query(_ context.Context, _ vectorstore.Query) ([]vectorstore.Result, error) {
	f.calls++
	if f.failures > 0 {
		f.failures--
		return nil, fmt.Errorf("%w: scripted outage", vectorstore.ErrUnavailable)
	}
	return f.results, nil
}

func (f *fakeStore) Upsert(context.Context, []vectorstore.Record) error { return nil }
func (f *fakeStore) Delete(context.Context, string) error               { return nil }
func (f *fakeStore) HealthCheck(context.Context) (*vectorstore.Health, error) {
	return &vectorstore.Health{Connected: true}, nil
}
func (f *fakeStore) Close() error { return nil }

type fakeCandidates struct {
	byEmail map[string]*repository.Candidate
	byName  []*repository.Candidate
	orgOf   map[uuid.UUID]uuid.UUID
	err     error
}

func (f *fakeCandidates) GetByID(_ context.Context, id uuid.UUID) (*repository.Candidate, error) {
	return nil, repository.ErrNotFound
}

func (f *fakeCandidates) GetByIDs(_ context.Context, ids []uuid.UUID) ([]*repository.Candidate, error) {
	return nil, nil
}

func (f *fakeCandidates) SearchByName(_ context.Context, text string, limit int) ([]*repository.Candidate, error) {
	if f.err != nil {
		return nil, f.err
	}
	if len(f.byName) > limit {
		return f.byName[:limit], nil
	}
	return f.byName, nil
}

func (f *fakeCandidates) SearchByEmail(_ context.Context, email string) (*repository.Candidate, error) {
	if f.err != nil {
		return nil, f.err
	}
	if c, ok := f.byEmail[email]; ok {
		return c, nil
	}
	return nil, repository.ErrNotFound
}

func (f *fakeCandidates) OrgMembers(_ context.Context, orgID uuid.UUID, ids []uuid.UUID) (map[uuid.UUID]bool, error) {
	if f.err != nil {
		return nil, f.err
	}
	out := make(map[uuid.UUID]bool, len(ids))
	for _, id := range ids {
		out[id] = f.orgOf[id] == orgID
	}
	return out, nil
}

func vectorResult(id string, similarity float32) vectorstore.Result {
	return vectorstore.Result{EntityID: id, Similarity: similarity}
}

func TestSearch_RequiresExactlyOneQueryForm(t *testing.T) {
	e := NewEngine(&fakeEmbedder{}, &fakeStore{}, &fakeCandidates{})

	_, err := e.Search(context.Background(), Query{})
	assert.ErrorIs(t, err, ErrInvalidQuery)

	_, err = e.Search(context.Background(), Query{
		Text:   "golang engineer",
		Vector: []float32{0.1, 0.2, 0.3, 0.4},
	})
	assert.ErrorIs(t, err, ErrInvalidQuery)
}

func TestSearch_RejectsWrongDimension(t *testing.T) {
	e := NewEngine(&fakeEmbedder{}, &fakeStore{}, &fakeCandidates{})

	_, err := e.Search(context.Background(), Query{Vector: []float32{0.1, 0.2}})
	assert.ErrorIs(t, err, vectorstore.ErrDimensionMismatch)
}

func TestSearch_VectorOnly(t *testing.T) {
	store := &fakeStore{results: []vectorstore.Result{
		vectorResult(uuid.NewString(), 0.9),
		vectorResult(uuid.NewString(), 0.8),
	}}
	e := NewEngine(&fakeEmbedder{}, store, &fakeCandidates{})

	got, err := e.Search(context.Background(), Query{Vector: []float32{0.1, 0.2, 0.3, 0.4}})
	require.NoError(t, err)
	assert.Len(t, got, 2)
}

func TestSearch_DirectEmailMatchMergedFirst(t *testing.T) {
	match := &repository.Candidate{
		ID:    uuid.New(),
		Name:  "Alice Chen",
		Email: "alice@example.com",
	}
	store := &fakeStore{results: []vectorstore.Result{vectorResult(uuid.NewString(), 0.95)}}
	cands := &fakeCandidates{byEmail: map[string]*repository.Candidate{"alice@example.com": match}}
	e := NewEngine(&fakeEmbedder{}, store, cands)

	got, err := e.Search(context.Background(), Query{Text: "alice@example.com"})
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, match.ID.String(), got[0].EntityID)
	assert.Equal(t, float32(1.0), got[0].Similarity)
}

func TestSearch_DirectNameMatchDeduplicated(t *testing.T) {
	id := uuid.New()
	match := &repository.Candidate{ID: id, Name: "Bob Okafor"}
	store := &fakeStore{results: []vectorstore.Result{
		vectorResult(id.String(), 0.7), // same candidate from the vector path
		vectorResult(uuid.NewString(), 0.6),
	}}
	cands := &fakeCandidates{byName: []*repository.Candidate{match}}
	e := NewEngine(&fakeEmbedder{}, store, cands)

	got, err := e.Search(context.Background(), Query{Text: "Bob Okafor"})
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, id.String(), got[0].EntityID)
	assert.Equal(t, float32(1.0), got[0].Similarity, "direct hit wins over the vector duplicate")
}

func TestSearch_LongQuerySkipsNameLookup(t *testing.T) {
	cands := &fakeCandidates{err: errors.New("name lookup must not be called")}
	cands.byEmail = nil
	store := &fakeStore{results: []vectorstore.Result{vectorResult(uuid.NewString(), 0.8)}}
	e := NewEngine(&fakeEmbedder{}, store, cands)

	// Five words: too long to be a person's name. The direct-match path
	// would error, but it is never reached past the word-count guard.
	got, err := e.Search(context.Background(), Query{Text: "senior golang engineer with kubernetes"})
	require.NoError(t, err)
	assert.Len(t, got, 1)
}

func TestSearch_DirectMatchFailureIsSoft(t *testing.T) {
	store := &fakeStore{results: []vectorstore.Result{vectorResult(uuid.NewString(), 0.8)}}
	cands := &fakeCandidates{err: errors.New("db down")}
	e := NewEngine(&fakeEmbedder{}, store, cands)

	got, err := e.Search(context.Background(), Query{Text: "Alice"})
	require.NoError(t, err, "direct-match failure must not fail the search")
	assert.Len(t, got, 1)
}

func TestSearch_OffsetAppliedAfterFiltering(t *testing.T) {
	results := []vectorstore.Result{
		{EntityID: "a", Similarity: 0.9, Metadata: vectorstore.Metadata{YearsExperience: 10}},
		{EntityID: "b", Similarity: 0.8, Metadata: vectorstore.Metadata{YearsExperience: 1}}, // filtered out
		{EntityID: "c", Similarity: 0.7, Metadata: vectorstore.Metadata{YearsExperience: 8}},
		{EntityID: "d", Similarity: 0.6, Metadata: vectorstore.Metadata{YearsExperience: 7}},
	}
	store := &fakeStore{results: results}
	e := NewEngine(&fakeEmbedder{}, store, &fakeCandidates{})

	got, err := e.Search(context.Background(), Query{
		Vector:  []float32{0.1, 0.2, 0.3, 0.4},
		Filters: vectorstore.Filters{MinYearsExperience: 5},
		Limit:   2,
		Offset:  1,
	})
	require.NoError(t, err)
	// Filter first (a, c, d) then offset 1: (c, d). Offsetting before the
	// filter would have returned (c, d) shifted wrongly or included b.
	require.Len(t, got, 2)
	assert.Equal(t, "c", got[0].EntityID)
	assert.Equal(t, "d", got[1].EntityID)
}

func TestSearch_OffsetBeyondResults(t *testing.T) {
	store := &fakeStore{results: []vectorstore.Result{vectorResult("a", 0.9)}}
	e := NewEngine(&fakeEmbedder{}, store, &fakeCandidates{})

	got, err := e.Search(context.Background(), Query{
		Vector: []float32{0.1, 0.2, 0.3, 0.4},
		Offset: 5,
	})
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestSearch_UnknownCountryIncluded(t *testing.T) {
	results := []vectorstore.Result{
		{EntityID: "known", Similarity: 0.9, Metadata: vectorstore.Metadata{Country: "DE"}},
		{EntityID: "unknown", Similarity: 0.8, Metadata: vectorstore.Metadata{}},
		{EntityID: "other", Similarity: 0.7, Metadata: vectorstore.Metadata{Country: "US"}},
	}
	store := &fakeStore{results: results}
	e := NewEngine(&fakeEmbedder{}, store, &fakeCandidates{})

	got, err := e.Search(context.Background(), Query{
		Vector:  []float32{0.1, 0.2, 0.3, 0.4},
		Filters: vectorstore.Filters{Countries: []string{"DE"}},
	})
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "known", got[0].EntityID)
	assert.Equal(t, "unknown", got[1].EntityID, "unknown country must pass a country filter")
}

func TestSearch_RetriesTransientStoreOutage(t *testing.T) {
	store := &fakeStore{
		results:  []vectorstore.Result{vectorResult("a", 0.9)},
		failures: 2,
	}
	e := NewEngine(&fakeEmbedder{}, store, &fakeCandidates{})

	got, err := e.Search(context.Background(), Query{Vector: []float32{0.1, 0.2, 0.3, 0.4}})
	require.NoError(t, err)
	assert.Len(t, got, 1)
	assert.Equal(t, 3, store.calls)
}

func TestSearch_OrgScoping(t *testing.T) {
	orgID := uuid.New()
	inOrg := uuid.New()
	outOfOrg := uuid.New()
	store := &fakeStore{results: []vectorstore.Result{
		vectorResult(inOrg.String(), 0.9),
		vectorResult(outOfOrg.String(), 0.8),
	}}
	cands := &fakeCandidates{orgOf: map[uuid.UUID]uuid.UUID{inOrg: orgID}}
	e := NewEngine(&fakeEmbedder{}, store, cands)

	got, err := e.Search(context.Background(), Query{
		Vector: []float32{0.1, 0.2, 0.3, 0.4},
		OrgID:  orgID,
	})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, inOrg.String(), got[0].EntityID)
}

func TestLooksLikeEmail(t *testing.T) {
	tests := []struct {
		in   string
		want bool
	}{
		{"alice@example.com", true},
		{"alice@", true}, // single @, no spaces: treated as an email attempt
		{"alice chen", false},
		{"a@b@c", false},
		{"golang engineer", false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, looksLikeEmail(tt.in), "input %q", tt.in)
	}
}
