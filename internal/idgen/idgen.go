// Package idgen produces link identifiers.
package idgen

import (
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
)

// Generator generates unique identifiers.
// Implementations should be safe for concurrent use.
type Generator interface {
	Generate() (uuid.UUID, error)
}

// Func adapts a plain function to Generator.
type Func func() (uuid.UUID, error)

func (f Func) Generate() (uuid.UUID, error) { return f() }

// NewV4 returns a Generator that produces random UUID v4 values.
func NewV4() Generator {
	return Func(func() (uuid.UUID, error) { return uuid.NewRandom() })
}

// NewV7 returns a Generator of time-ordered UUID v7 values. A failed
// uuid.NewV7 call is retried up to retries more times.
func NewV7(retries int) Generator {
	if retries < 0 {
		retries = 0
	}
	return Func(func() (uuid.UUID, error) {
		var last error
		for range retries + 1 {
			id, err := uuid.NewV7()
			if err == nil {
				return id, nil
			}
			last = err
		}
		return uuid.Nil, fmt.Errorf("uuid v7 generation failed after %d attempts: %w", retries+1, last)
	})
}

// ErrSequenceExhausted is returned by a Sequence that has handed out all its ids.
var ErrSequenceExhausted = errors.New("idgen: sequence exhausted")

// Sequence hands out a fixed list of ids in order. It exists for tests and
// fixtures that need predictable ids.
type Sequence struct {
	mu  sync.Mutex
	ids []uuid.UUID
}

// NewSequence returns a Sequence over ids.
func NewSequence(ids ...uuid.UUID) *Sequence {
	return &Sequence{ids: ids}
}

func (s *Sequence) Generate() (uuid.UUID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.ids) == 0 {
		return uuid.Nil, ErrSequenceExhausted
	}
	id := s.ids[0]
	s.ids = s.ids[1:]
	return id, nil
}
