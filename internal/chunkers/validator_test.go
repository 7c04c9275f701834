package chunkers

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/docuchunk/docuchunk/pkg/chunkid"
)

func TestValidate_WellFormedHierarchyIsValid(t *testing.T) {
	root := &Chunk{ID: chunkid.New(), Category: CategoryStructural, SequenceNumber: 1}
	child := &Chunk{
		ID: chunkid.New(), ParentID: root.ID, HasParent: true,
		Category: CategoryContent, SequenceNumber: 2, Depth: 1, AncestorIDs: []chunkid.ID{root.ID},
		QualityMetrics: &QualityMetrics{TokenCount: 10},
	}

	result := Validate([]*Chunk{root, child}, ValidateOptions{MaxTokens: 512})
	assert.True(t, result.IsValid)
	assert.Empty(t, result.Issues)
	assert.False(t, result.HasOrphaned)
	assert.False(t, result.HasCycles)
	assert.False(t, result.HasInvalidHierarchy)
}

func TestValidate_DuplicateID(t *testing.T) {
	a := &Chunk{ID: chunkid.New(), SequenceNumber: 1}
	b := &Chunk{ID: a.ID, SequenceNumber: 2}

	result := Validate([]*Chunk{a, b}, ValidateOptions{})
	assert.False(t, result.IsValid)
	require.NotEmpty(t, result.Issues)
	assert.Equal(t, CodeDuplicateID, result.Issues[0].Code)
}

func TestValidate_OrphanedChunk(t *testing.T) {
	c := &Chunk{ID: chunkid.New(), ParentID: chunkid.New(), HasParent: true, SequenceNumber: 1}

	result := Validate([]*Chunk{c}, ValidateOptions{})
	assert.True(t, result.HasOrphaned)
	found := false
	for _, issue := range result.Issues {
		if issue.Code == CodeOrphanedChunk {
			found = true
		}
	}
	assert.True(t, found)
}

func TestValidate_DepthMismatch(t *testing.T) {
	root := &Chunk{ID: chunkid.New(), SequenceNumber: 1}
	child := &Chunk{ID: chunkid.New(), ParentID: root.ID, HasParent: true, SequenceNumber: 2, Depth: 5}

	result := Validate([]*Chunk{root, child}, ValidateOptions{})
	assert.True(t, result.HasInvalidHierarchy)
	assert.False(t, result.IsValid)
}

func TestValidate_AncestorLengthMismatch(t *testing.T) {
	root := &Chunk{ID: chunkid.New(), SequenceNumber: 1, Depth: 0}
	root.AncestorIDs = []chunkid.ID{chunkid.New()}

	result := Validate([]*Chunk{root}, ValidateOptions{})
	assert.True(t, result.HasInvalidHierarchy)
}

func TestValidate_SequenceMustBeIncreasing(t *testing.T) {
	a := &Chunk{ID: chunkid.New(), SequenceNumber: 2}
	b := &Chunk{ID: chunkid.New(), SequenceNumber: 1}

	result := Validate([]*Chunk{a, b}, ValidateOptions{})
	assert.True(t, result.HasInvalidHierarchy)
	assert.False(t, result.IsValid)
}

func TestValidate_CycleDetected(t *testing.T) {
	a := &Chunk{ID: chunkid.New(), HasParent: true, SequenceNumber: 1}
	b := &Chunk{ID: chunkid.New(), HasParent: true, SequenceNumber: 2}
	a.ParentID = b.ID
	b.ParentID = a.ID

	result := Validate([]*Chunk{a, b}, ValidateOptions{})
	assert.True(t, result.HasCycles)
	assert.False(t, result.IsValid)
}

func TestValidate_OversizedAndUndersizedContent(t *testing.T) {
	big := &Chunk{
		ID: chunkid.New(), Category: CategoryContent, SequenceNumber: 1,
		QualityMetrics: &QualityMetrics{TokenCount: 1000},
	}
	small := &Chunk{
		ID: chunkid.New(), Category: CategoryContent, SequenceNumber: 2,
		QualityMetrics: &QualityMetrics{TokenCount: 1},
	}

	result := Validate([]*Chunk{big, small}, ValidateOptions{MaxTokens: 500, MinTokens: 10})
	assert.Contains(t, result.Oversized, big.ID)
	assert.Contains(t, result.Undersized, small.ID)
}

func TestValidate_StructuralChunksExemptFromTokenBudget(t *testing.T) {
	heading := &Chunk{
		ID: chunkid.New(), Category: CategoryStructural, SequenceNumber: 1,
		QualityMetrics: &QualityMetrics{TokenCount: 100000},
	}

	result := Validate([]*Chunk{heading}, ValidateOptions{MaxTokens: 10})
	assert.Empty(t, result.Oversized)
	assert.True(t, result.IsValid)
}
