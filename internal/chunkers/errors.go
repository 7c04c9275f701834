package chunkers

import (
	"errors"
	"fmt"

	"github.com/docuchunk/docuchunk/pkg/chunkid"
)

// WarningLevel is the severity of a ChunkingWarning or ValidationIssue.
type WarningLevel int

const (
	LevelInfo WarningLevel = iota
	LevelWarning
	LevelError
)

func (l WarningLevel) String() string {
	switch l {
	case LevelInfo:
		return "Info"
	case LevelWarning:
		return "Warning"
	case LevelError:
		return "Error"
	default:
		return "Info"
	}
}

// Code identifies the kind of failure behind a warning or validation issue.
// These are kinds, not Go error types: the engine never lets a chunker-level
// fault cross its boundary as a panic or error return.
type Code string

const (
	CodeUnsupportedFormat  Code = "UNSUPPORTED_FORMAT"
	CodeMalformedInput     Code = "MALFORMED_INPUT"
	CodeDuplicateID        Code = "DUPLICATE_ID"
	CodeOrphanedChunk      Code = "ORPHANED_CHUNK"
	CodeCircularReference  Code = "CIRCULAR_REFERENCE"
	CodeOversizedChunk     Code = "OVERSIZED_CHUNK"
	CodeUndersizedChunk    Code = "UNDERSIZED_CHUNK"
	CodeEncoderUnavailable Code = "ENCODER_UNAVAILABLE"
	CodeProviderFailure    Code = "PROVIDER_FAILURE"
	CodeCancelled          Code = "CANCELLED"
	CodeSkippedMalformedRow Code = "SKIPPED_MALFORMED_ROW"
	CodeInvalidHierarchy   Code = "INVALID_HIERARCHY"
	CodeEmptyDocument      Code = "EMPTY_DOCUMENT"
)

// ChunkingWarning is a single non-fatal deviation surfaced in a
// ChunkingResult. Unlike a Go error, a warning never aborts a run by itself;
// success = true requires zero Error-level warnings.
type ChunkingWarning struct {
	Level   WarningLevel
	Code    Code
	Message string
	ChunkID *chunkid.ID
}

func (w ChunkingWarning) String() string {
	if w.ChunkID != nil {
		return fmt.Sprintf("[%s] %s: %s (chunk %s)", w.Level, w.Code, w.Message, w.ChunkID.String())
	}
	return fmt.Sprintf("[%s] %s: %s", w.Level, w.Code, w.Message)
}

// ErrInvalidArgument is returned (not wrapped into a warning) when the
// caller supplies programmatically invalid input, per spec: "Programming
// errors on the caller side ... do fail fast with InvalidArgument."
var ErrInvalidArgument = errors.New("chunkers: invalid argument")

func invalidArgf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidArgument, fmt.Sprintf(format, args...))
}
