package id

import (
	"fmt"
	"sync/atomic"

	"github.com/google/uuid"
)

// Generator produces opaque unique identifiers for products and transactions.
type Generator interface {
	NewID() string
}

// UUID generates random (version 4) UUID strings.
type UUID struct{}

func (UUID) NewID() string { return uuid.NewString() }

// Sequence yields prefix-1, prefix-2, ... and is meant for tests and fixtures.
type Sequence struct {
	Prefix string
	n      atomic.Int64
}

func (s *Sequence) NewID() string {
	return fmt.Sprintf("%s-%d", s.Prefix, s.n.Add(1))
}
