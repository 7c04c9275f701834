package chunkers

import (
	"github.com/docuchunk/docuchunk/pkg/chunkid"
)

// BuildHierarchy fills Depth and AncestorIDs on a flat, order-preserving
// chunk sequence where ParentID is already set. It runs in O(N) amortized
// time via memoization of per-chunk depth and ancestor chains.
//
// Cycle detection re-roots the offending chunk (clears ParentID, Depth = 0)
// rather than failing the run: per spec §4.2, a well-behaved chunker never
// produces a cycle, so this is strictly a safety net, not a reachable path
// in normal operation. Dangling ParentID references are left untouched and
// recorded as ORPHANED_CHUNK issues.
func BuildHierarchy(chunks []*Chunk) []ChunkingWarning {
	var warnings []ChunkingWarning

	byID := make(map[chunkid.ID]*Chunk, len(chunks))
	for _, c := range chunks {
		if _, dup := byID[c.ID]; dup {
			warnings = append(warnings, ChunkingWarning{
				Level:   LevelError,
				Code:    CodeDuplicateID,
				Message: "duplicate chunk id encountered while building hierarchy",
				ChunkID: idPtr(c.ID),
			})
			continue
		}
		byID[c.ID] = c
	}

	depth := make(map[chunkid.ID]int, len(chunks))
	ancestors := make(map[chunkid.ID][]chunkid.ID, len(chunks))
	resolved := make(map[chunkid.ID]bool, len(chunks))

	for _, c := range chunks {
		if resolved[c.ID] {
			continue
		}
		warnings = append(warnings, resolveChunk(c, byID, depth, ancestors, resolved)...)
	}

	for _, c := range chunks {
		c.Depth = depth[c.ID]
		c.AncestorIDs = ancestors[c.ID]
	}

	return warnings
}

// resolveChunk walks ParentID upward from c, memoizing depth/ancestors for
// every chunk visited along the walk so later calls are O(1) amortized.
func resolveChunk(
	start *Chunk,
	byID map[chunkid.ID]*Chunk,
	depth map[chunkid.ID]int,
	ancestors map[chunkid.ID][]chunkid.ID,
	resolved map[chunkid.ID]bool,
) []ChunkingWarning {
	var warnings []ChunkingWarning

	var path []*Chunk
	seen := make(map[chunkid.ID]bool)

	cur := start
	for {
		if resolved[cur.ID] {
			break
		}
		if seen[cur.ID] {
			// Cycle: promote cur to root, per spec §4.2 step 3.
			cur.HasParent = false
			depth[cur.ID] = 0
			ancestors[cur.ID] = nil
			resolved[cur.ID] = true
			warnings = append(warnings, ChunkingWarning{
				Level:   LevelWarning,
				Code:    CodeCircularReference,
				Message: "circular parent reference detected; chunk promoted to root",
				ChunkID: idPtr(cur.ID),
			})
			break
		}
		seen[cur.ID] = true
		path = append(path, cur)

		if !cur.HasParent {
			depth[cur.ID] = 0
			ancestors[cur.ID] = nil
			resolved[cur.ID] = true
			break
		}

		parent, ok := byID[cur.ParentID]
		if !ok {
			depth[cur.ID] = 0
			ancestors[cur.ID] = nil
			resolved[cur.ID] = true
			warnings = append(warnings, ChunkingWarning{
				Level:   LevelWarning,
				Code:    CodeOrphanedChunk,
				Message: "parent id does not resolve to a chunk in this result",
				ChunkID: idPtr(cur.ID),
			})
			break
		}
		cur = parent
	}

	// path is ordered leaf -> ... -> first-resolved-ancestor (exclusive).
	for i := len(path) - 1; i >= 0; i-- {
		node := path[i]
		if resolved[node.ID] {
			continue
		}
		if !node.HasParent {
			depth[node.ID] = 0
			ancestors[node.ID] = nil
		} else {
			parent := byID[node.ParentID]
			depth[node.ID] = depth[parent.ID] + 1
			chain := make([]chunkid.ID, 0, len(ancestors[parent.ID])+1)
			chain = append(chain, ancestors[parent.ID]...)
			chain = append(chain, parent.ID)
			ancestors[node.ID] = chain
		}
		resolved[node.ID] = true
	}

	return warnings
}

func idPtr(id chunkid.ID) *chunkid.ID {
	return &id
}
