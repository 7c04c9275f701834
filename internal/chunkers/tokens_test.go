package chunkers

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBPECounter_Count(t *testing.T) {
	counter := NewTokenCounter(EncodingCL100K)
	assert.Equal(t, 0, counter.Count(""))
	assert.Greater(t, counter.Count("hello world"), 0)

	short := counter.Count("hi")
	long := counter.Count("hello world this is a much longer piece of text")
	assert.Greater(t, long, short)
}

func TestCharacterCounter_Count(t *testing.T) {
	counter := NewTokenCounter(EncodingCharacterBased)
	assert.Equal(t, 0, counter.Count(""))
	// ceil(len/4)
	assert.Equal(t, 1, counter.Count("ab"))
	assert.Equal(t, 1, counter.Count("abcd"))
	assert.Equal(t, 2, counter.Count("abcde"))
}

// TestSplitBatches_RespectsMaxTokensAndOverlap is the core token-budget
// invariant (spec §4.1): every batch stays within maxTokens, and adjacent
// batches overlap by the requested amount except possibly the final one.
func TestSplitBatches_RespectsMaxTokensAndOverlap(t *testing.T) {
	counter := NewTokenCounter(EncodingCharacterBased)
	text := strings.Repeat("word ", 200)

	batches, err := counter.SplitBatches(text, 20, 5)
	require.NoError(t, err)
	require.Greater(t, len(batches), 1)

	for _, b := range batches {
		assert.LessOrEqual(t, counter.Count(b), 20)
	}
	// 5 overlap tokens are 20 characters under the character-based counter.
	for i := 1; i < len(batches); i++ {
		prev := batches[i-1]
		assert.Equal(t, prev[len(prev)-20:], batches[i][:20])
	}
}

func TestSplitBatches_OverlapMustBeLessThanMax(t *testing.T) {
	counter := NewTokenCounter(EncodingCharacterBased)
	_, err := counter.SplitBatches("some text", 10, 10)
	assert.Error(t, err)
}

func TestSplitBatches_EmptyTextReturnsNoBatches(t *testing.T) {
	counter := NewTokenCounter(EncodingCharacterBased)
	batches, err := counter.SplitBatches("", 10, 2)
	require.NoError(t, err)
	assert.Empty(t, batches)
}

func TestSplitBatches_TextWithinBudgetIsSingleBatch(t *testing.T) {
	counter := NewTokenCounter(EncodingCharacterBased)
	batches, err := counter.SplitBatches("short text", 500, 50)
	require.NoError(t, err)
	require.Len(t, batches, 1)
	assert.Equal(t, "short text", batches[0])
}

func TestFragmentCompleteness(t *testing.T) {
	assert.Equal(t, 1.0, fragmentCompleteness(0, 1))
	assert.Equal(t, 0.7, fragmentCompleteness(0, 3))
	assert.Equal(t, 0.7, fragmentCompleteness(1, 3))
	assert.Equal(t, 1.0, fragmentCompleteness(2, 3))
}

func TestBPECounter_FallsBackOnUnknownEncoding(t *testing.T) {
	// An encoding value outside the known table still must not panic; the
	// BPE lookup fails and Count falls back to character-based counting.
	counter := NewTokenCounter(Encoding(999))
	assert.Greater(t, counter.Count("hello"), 0)
}
