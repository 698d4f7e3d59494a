package rerank

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

var recoverBatch = []Candidate{
	{ID: "550e8400-e29b-41d4-a716-446655440000", Name: "Alice Chen"},
	{ID: "6ba7b810-9dad-11d1-80b4-00c04fd430c8", Name: "Bob Okafor"},
	{ID: "6ba7b811-9dad-11d1-80b4-00c04fd430c8", Name: "Carol Diaz"},
}

func TestRecoverEntityID_ExactID(t *testing.T) {
	id, ok := recoverEntityID(Entry{ID: recoverBatch[1].ID}, recoverBatch)
	assert.True(t, ok)
	assert.Equal(t, recoverBatch[1].ID, id)
}

func TestRecoverEntityID_PromptIndex(t *testing.T) {
	id, ok := recoverEntityID(Entry{Index: 3}, recoverBatch)
	assert.True(t, ok)
	assert.Equal(t, recoverBatch[2].ID, id)

	_, ok = recoverEntityID(Entry{Index: 4}, recoverBatch)
	assert.False(t, ok, "out-of-range index must not resolve")
}

func TestRecoverEntityID_IDPrefix(t *testing.T) {
	id, ok := recoverEntityID(Entry{ID: "550e8400"}, recoverBatch)
	assert.True(t, ok)
	assert.Equal(t, recoverBatch[0].ID, id)
}

func TestRecoverEntityID_AmbiguousPrefixDropped(t *testing.T) {
	// "6ba7b81" prefixes two different candidates.
	_, ok := recoverEntityID(Entry{ID: "6ba7b81"}, recoverBatch)
	assert.False(t, ok)
}

func TestRecoverEntityID_ShortPrefixRejected(t *testing.T) {
	_, ok := recoverEntityID(Entry{ID: "550"}, recoverBatch)
	assert.False(t, ok)
}

func TestRecoverEntityID_ExactName(t *testing.T) {
	id, ok := recoverEntityID(Entry{Name: "alice chen"}, recoverBatch)
	assert.True(t, ok)
	assert.Equal(t, recoverBatch[0].ID, id)
}

func TestRecoverEntityID_FuzzyName(t *testing.T) {
	id, ok := recoverEntityID(Entry{Name: "Okafor"}, recoverBatch)
	assert.True(t, ok)
	assert.Equal(t, recoverBatch[1].ID, id)
}

func TestRecoverEntityID_NameInIDField(t *testing.T) {
	id, ok := recoverEntityID(Entry{ID: "Carol Diaz"}, recoverBatch)
	assert.True(t, ok)
	assert.Equal(t, recoverBatch[2].ID, id)
}

func TestRecoverEntityID_AmbiguousNameDropped(t *testing.T) {
	batch := []Candidate{
		{ID: "a", Name: "Sam Lee"},
		{ID: "b", Name: "Sam Leeds"},
	}
	_, ok := recoverEntityID(Entry{Name: "Sam"}, batch)
	assert.False(t, ok)
}

func TestRecoverEntityID_Unrecoverable(t *testing.T) {
	_, ok := recoverEntityID(Entry{Name: "Nobody Here"}, recoverBatch)
	assert.False(t, ok)
	_, ok = recoverEntityID(Entry{}, recoverBatch)
	assert.False(t, ok)
}
