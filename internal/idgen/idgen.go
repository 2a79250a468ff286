// Package idgen mints identifiers for local catalog entries.
package idgen

import (
	"github.com/google/uuid"
)

// Generator produces a fresh identifier on every call.
type Generator interface {
	NewID() string
}

// UUIDv7 generates RFC 9562 version 7 identifiers: a 48-bit millisecond
// timestamp followed by random bits, so ids sort roughly by creation time.
type UUIDv7 struct{}

// NewID never fails; if the v7 source errors, a random v4 id is returned instead.
func (UUIDv7) NewID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}

// Func adapts a plain function to Generator.
type Func func() string

func (f Func) NewID() string { return f() }
