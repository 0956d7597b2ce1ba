package file

import (
	"github.com/oklog/ulid/v2"
)

// IDGenerator assigns opaque unique transaction ids.
type IDGenerator interface {
	Generate() string
}

// ULIDGenerator generates ULID-based IDs.
type ULIDGenerator struct{}

// NewULIDGenerator creates a new ULIDGenerator.
func NewULIDGenerator() *ULIDGenerator {
	return &ULIDGenerator{}
}

// Generate generates a new ULID.
func (g *ULIDGenerator) Generate() string {
	return ulid.Make().String()
}
