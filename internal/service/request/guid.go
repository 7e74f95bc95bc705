package request

import (
	"io"
	randv2 "math/rand/v2"
	"sync"
	"time"

	"github.com/google/uuid"
)

// GUIDGenerator produces version 4 UUIDs for state, nonce and
// client-request-id values.
type GUIDGenerator struct {
	mu     sync.Mutex
	source io.Reader
}

// NewGUIDGenerator reads randomness from source. A nil source selects a
// time-seeded non-cryptographic generator; hosts should pass crypto/rand.Reader.
func NewGUIDGenerator(source io.Reader) *GUIDGenerator {
	if source == nil {
		source = fallbackSource()
	}
	return &GUIDGenerator{source: source}
}

func fallbackSource() io.Reader {
	var seed [32]byte
	now := uint64(time.Now().UnixNano())
	for i := range seed {
		seed[i] = byte(now >> (8 * (i % 8)))
		if i%8 == 7 {
			now = now*6364136223846793005 + 1442695040888963407
		}
	}
	return randv2.NewChaCha8(seed)
}

// New returns a fresh UUIDv4 string. A failing source is replaced by the
// fallback generator so that callers always receive a value.
func (g *GUIDGenerator) New() string {
	g.mu.Lock()
	defer g.mu.Unlock()

	id, err := uuid.NewRandomFromReader(g.source)
	if err != nil {
		g.source = fallbackSource()
		id = uuid.Must(uuid.NewRandomFromReader(g.source))
	}
	return id.String()
}
