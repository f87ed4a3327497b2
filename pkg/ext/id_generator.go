package ext

import (
	"fmt"
	"sync/atomic"

	"github.com/google/uuid"
)

// IDGenerator hands out identifiers for scan records.
type IDGenerator interface {
	GenerateID() string
}

// NewUUIDGenerator returns an IDGenerator backed by random UUIDs.
func NewUUIDGenerator() IDGenerator {
	return uuidGenerator{}
}

type uuidGenerator struct{}

func (uuidGenerator) GenerateID() string {
	return uuid.New().String()
}

// NewSequentialIDGenerator returns a deterministic generator for tests,
// counting up from 1.
func NewSequentialIDGenerator() IDGenerator {
	return &sequentialIDGenerator{}
}

type sequentialIDGenerator struct {
	n uint64
}

func (g *sequentialIDGenerator) GenerateID() string {
	return fmt.Sprintf("00000000-0000-0000-0000-%012d", atomic.AddUint64(&g.n, 1))
}
