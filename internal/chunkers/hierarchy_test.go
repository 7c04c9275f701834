package chunkers

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/docuchunk/docuchunk/pkg/chunkid"
)

func newRootChunk() *Chunk {
	return &Chunk{ID: chunkid.New(), Category: CategoryStructural, SpecificType: "heading"}
}

func newChildChunk(parent *Chunk) *Chunk {
	return &Chunk{ID: chunkid.New(), ParentID: parent.ID, HasParent: true, Category: CategoryContent, SpecificType: "paragraph"}
}

func TestBuildHierarchy_LinearChain(t *testing.T) {
	root := newRootChunk()
	child := newChildChunk(root)
	grandchild := newChildChunk(child)

	warnings := BuildHierarchy([]*Chunk{root, child, grandchild})
	assert.Empty(t, warnings)

	assert.Equal(t, 0, root.Depth)
	assert.Empty(t, root.AncestorIDs)

	assert.Equal(t, 1, child.Depth)
	assert.Equal(t, []chunkid.ID{root.ID}, child.AncestorIDs)

	assert.Equal(t, 2, grandchild.Depth)
	assert.Equal(t, []chunkid.ID{root.ID, child.ID}, grandchild.AncestorIDs)
}

func TestBuildHierarchy_OrphanedChunkWarns(t *testing.T) {
	orphan := &Chunk{ID: chunkid.New(), ParentID: chunkid.New(), HasParent: true, Category: CategoryContent}

	warnings := BuildHierarchy([]*Chunk{orphan})
	require.Len(t, warnings, 1)
	assert.Equal(t, CodeOrphanedChunk, warnings[0].Code)
	assert.Equal(t, 0, orphan.Depth)
}

func TestBuildHierarchy_DuplicateIDWarns(t *testing.T) {
	a := newRootChunk()
	b := &Chunk{ID: a.ID, Category: CategoryContent}

	warnings := BuildHierarchy([]*Chunk{a, b})
	require.Len(t, warnings, 1)
	assert.Equal(t, CodeDuplicateID, warnings[0].Code)
}

// TestBuildHierarchy_CycleIsReRooted covers the cycle-detection safety net
// (spec §4.2 step 3): a chunk whose ParentID chain loops back on itself is
// promoted to a root rather than left unresolved.
func TestBuildHierarchy_CycleIsReRooted(t *testing.T) {
	a := &Chunk{ID: chunkid.New(), Category: CategoryStructural, HasParent: true}
	b := &Chunk{ID: chunkid.New(), Category: CategoryStructural, HasParent: true}
	a.ParentID = b.ID
	b.ParentID = a.ID

	warnings := BuildHierarchy([]*Chunk{a, b})
	require.Len(t, warnings, 1)
	assert.Equal(t, CodeCircularReference, warnings[0].Code)

	// The re-rooted chunk is promoted; its cycle partner resolves relative
	// to it rather than looping forever.
	rerooted := warnings[0].ChunkID
	require.NotNil(t, rerooted)
	var target *Chunk
	if *rerooted == a.ID {
		target = a
	} else {
		target = b
	}
	assert.False(t, target.HasParent)
	assert.Equal(t, 0, target.Depth)
}

func TestBuildHierarchy_MultipleRoots(t *testing.T) {
	r1 := newRootChunk()
	r2 := newRootChunk()
	c1 := newChildChunk(r1)

	warnings := BuildHierarchy([]*Chunk{r1, r2, c1})
	assert.Empty(t, warnings)
	assert.Equal(t, 0, r1.Depth)
	assert.Equal(t, 0, r2.Depth)
	assert.Equal(t, 1, c1.Depth)
}
