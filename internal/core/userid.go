package core

import (
	"math/rand/v2"
	"strconv"
	"sync"
)

// UserIDPrefix starts every member id.
const UserIDPrefix = "RW"

// IDSource produces member ids.
type IDSource interface {
	Next() string
}

// IDGenerator draws ids uniformly from RW1000..RW9999. With only 9000
// possible values collisions are expected; callers must not treat the id as
// a key.
type IDGenerator struct {
	mu   sync.Mutex
	intN func(n int) int
}

// NewIDGenerator returns a generator backed by the global math/rand/v2 source.
func NewIDGenerator() *IDGenerator {
	return &IDGenerator{intN: rand.IntN}
}

// NewSeededIDGenerator returns a deterministic generator, for tests.
func NewSeededIDGenerator(seed uint64) *IDGenerator {
	r := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
	return &IDGenerator{intN: r.IntN}
}

// Next returns a new id such as "RW4821".
func (g *IDGenerator) Next() string {
	g.mu.Lock()
	n := 1000 + g.intN(9000)
	g.mu.Unlock()
	return UserIDPrefix + strconv.Itoa(n)
}
