package chunkers

import (
	"sync"
	"unicode/utf8"

	"github.com/pkoukk/tiktoken-go"
)

// Encoding identifies a byte-pair encoding table, or the CharacterBased
// fallback.
type Encoding int

const (
	EncodingCL100K Encoding = iota
	EncodingP50K
	EncodingR50K
	EncodingCharacterBased
)

func (e Encoding) String() string {
	switch e {
	case EncodingCL100K:
		return "cl100k_base"
	case EncodingP50K:
		return "p50k_base"
	case EncodingR50K:
		return "r50k_base"
	default:
		return "character_based"
	}
}

// TokenCounter counts tokens for a chosen encoding and splits text into
// token-bounded, overlapping batches. Implementations are pure and safe for
// concurrent use over shared, immutable encoder tables.
type TokenCounter interface {
	Count(text string) int
	SplitBatches(text string, maxTokens, overlap int) ([]string, error)
}

var (
	encodersMu sync.Mutex
	encoders   = map[Encoding]*tiktoken.Tiktoken{}
)

func getEncoder(enc Encoding) (*tiktoken.Tiktoken, error) {
	encodersMu.Lock()
	defer encodersMu.Unlock()

	if e, ok := encoders[enc]; ok {
		return e, nil
	}
	e, err := tiktoken.GetEncoding(enc.String())
	if err != nil {
		return nil, err
	}
	encoders[enc] = e
	return e, nil
}

// bpeCounter implements TokenCounter over a tiktoken BPE table, falling
// back to CharacterBased silently on any encoder failure (per spec §4.1,
// "never raise to the caller").
type bpeCounter struct {
	encoding Encoding
}

// characterCounter implements the CharacterBased fallback variant:
// count = ceil(len(text) / 4).
type characterCounter struct{}

// NewTokenCounter returns the TokenCounter for the requested encoding.
func NewTokenCounter(enc Encoding) TokenCounter {
	if enc == EncodingCharacterBased {
		return characterCounter{}
	}
	return bpeCounter{encoding: enc}
}

func (c bpeCounter) Count(text string) int {
	if text == "" {
		return 0
	}
	enc, err := getEncoder(c.encoding)
	if err != nil {
		return characterCounter{}.Count(text)
	}
	return len(enc.Encode(text, nil, nil))
}

func (c bpeCounter) SplitBatches(text string, maxTokens, overlap int) ([]string, error) {
	if overlap >= maxTokens {
		return nil, invalidArgf("overlap (%d) must be < maxTokens (%d)", overlap, maxTokens)
	}
	if text == "" {
		return nil, nil
	}

	enc, err := getEncoder(c.encoding)
	if err != nil {
		return characterCounter{}.SplitBatches(text, maxTokens, overlap)
	}

	ids := enc.Encode(text, nil, nil)
	if len(ids) == 0 {
		return nil, nil
	}

	var batches []string
	step := maxTokens - overlap
	for start := 0; start < len(ids); start += step {
		end := start + maxTokens
		if end > len(ids) {
			end = len(ids)
		}

		decoded := decodeExtending(enc, ids, start, end)
		batches = append(batches, decoded)

		if end >= len(ids) {
			break
		}
	}
	return batches, nil
}

// decodeExtending decodes ids[start:end], extending end forward when the
// boundary token decodes to a partial UTF-8 sequence, per spec §4.1: "if
// decoding a boundary token yields a partial UTF-8 sequence, extend the
// slice until the boundary is valid."
func decodeExtending(enc *tiktoken.Tiktoken, ids []int, start, end int) string {
	for e := end; e <= len(ids); e++ {
		s := enc.Decode(ids[start:e])
		if isValidUTF8Tail(s) {
			return s
		}
	}
	return enc.Decode(ids[start:])
}

func isValidUTF8Tail(s string) bool {
	return utf8.ValidString(s)
}

func (characterCounter) Count(text string) int {
	if text == "" {
		return 0
	}
	return (len(text) + 3) / 4
}

func (characterCounter) SplitBatches(text string, maxTokens, overlap int) ([]string, error) {
	if overlap >= maxTokens {
		return nil, invalidArgf("overlap (%d) must be < maxTokens (%d)", overlap, maxTokens)
	}
	if text == "" {
		return nil, nil
	}

	runes := []rune(text)
	// 4 runes per "character token" window.
	const charsPerToken = 4
	maxChars := maxTokens * charsPerToken
	overlapChars := overlap * charsPerToken
	step := maxChars - overlapChars
	if step <= 0 {
		step = maxChars
	}

	var batches []string
	for start := 0; start < len(runes); start += step {
		end := start + maxChars
		if end > len(runes) {
			end = len(runes)
		}
		batches = append(batches, string(runes[start:end]))
		if end >= len(runes) {
			break
		}
	}
	return batches, nil
}

// resolveCounter maps a TokenCountingMethod to a concrete TokenCounter when
// Options.TokenCounter itself is not supplied.
func resolveCounter(opts Options) TokenCounter {
	if opts.TokenCounter != nil {
		return opts.TokenCounter
	}
	return NewTokenCounter(opts.TokenCountingMethod)
}

// fragmentCompleteness scores QualityMetrics.SemanticCompleteness for one
// part of a (possibly split) content block: an intact block, or the final
// fragment of a split one, reads as a complete thought (1.0); an earlier
// fragment was cut off mid-thought by the token budget (0.7).
func fragmentCompleteness(index, total int) float64 {
	if total <= 1 || index == total-1 {
		return 1.0
	}
	return 0.7
}
