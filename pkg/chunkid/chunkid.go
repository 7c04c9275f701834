// Package chunkid defines the opaque identifier type shared by every chunk
// emitted by the chunking engine.
package chunkid

import (
	"encoding/json"

	"github.com/google/uuid"
)

// ID is a 128-bit opaque handle, unique within a single chunking result.
type ID uuid.UUID

// Nil is the zero value, used to represent an absent optional ID.
var Nil = ID(uuid.Nil)

// New returns a fresh random identifier.
func New() ID {
	return ID(uuid.New())
}

// String renders the canonical hyphenated form.
func (id ID) String() string {
	return uuid.UUID(id).String()
}

// IsNil reports whether id is the zero value.
func (id ID) IsNil() bool {
	return id == Nil
}

func (id ID) MarshalJSON() ([]byte, error) {
	return json.Marshal(uuid.UUID(id).String())
}

func (id *ID) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	u, err := uuid.Parse(s)
	if err != nil {
		return err
	}
	*id = ID(u)
	return nil
}
