// Package nonce generates printable client nonces.
//
// Random bytes come from a hash-chained generator: each output block is
// H(seed || counter), and the seed is replaced by H(seed || entropy) with
// fresh system entropy every ReseedInterval blocks.
package nonce

import (
	"crypto/rand"
	"encoding/binary"
	"errors"
	"hash"
	"io"
	"sync"

	"github.com/minio/sha256-simd"
)

const (
	// DefaultReseedInterval is the number of output blocks between reseeds
	DefaultReseedInterval = 1024

	// printable ASCII, 0x21 through 0x7e
	alphabetLow  = 0x21
	alphabetSize = 0x7f - alphabetLow
)

var ErrRange = errors.New("nonce: invalid length range")

type Generator struct {
	mu sync.Mutex

	h        hash.Hash
	entropy  io.Reader
	seed     []byte
	counter  uint64
	blocks   int
	interval int

	pool []byte
}

type Option func(*Generator)

// WithHash selects the digest used for chaining
func WithHash(newHash func() hash.Hash) Option {
	return func(g *Generator) {
		g.h = newHash()
	}
}

// WithEntropy replaces crypto/rand as the seed source
func WithEntropy(r io.Reader) Option {
	return func(g *Generator) {
		g.entropy = r
	}
}

func WithReseedInterval(blocks int) Option {
	return func(g *Generator) {
		if blocks > 0 {
			g.interval = blocks
		}
	}
}

func New(opts ...Option) (*Generator, error) {
	g := &Generator{
		h:        sha256.New(),
		entropy:  rand.Reader,
		interval: DefaultReseedInterval,
	}

	for _, o := range opts {
		o(g)
	}

	if err := g.reseed(); err != nil {
		return nil, err
	}

	return g, nil
}

var (
	defaultOnce sync.Once
	defaultGen  *Generator
	defaultErr  error
)

// Default returns a process-wide generator seeded from crypto/rand
func Default() (*Generator, error) {
	defaultOnce.Do(func() {
		defaultGen, defaultErr = New()
	})

	return defaultGen, defaultErr
}

func (g *Generator) reseed() error {
	fresh := make([]byte, g.h.Size())
	if _, err := io.ReadFull(g.entropy, fresh); err != nil {
		return err
	}

	g.h.Reset()
	g.h.Write(g.seed)
	g.h.Write(fresh)
	zero(g.seed)
	g.seed = g.h.Sum(g.seed[:0])
	zero(fresh)

	g.blocks = 0
	return nil
}

func (g *Generator) nextBlock() error {
	if g.blocks >= g.interval {
		if err := g.reseed(); err != nil {
			return err
		}
	}

	var ctr [8]byte
	binary.BigEndian.PutUint64(ctr[:], g.counter)
	g.counter++
	g.blocks++

	g.h.Reset()
	g.h.Write(g.seed)
	g.h.Write(ctr[:])
	g.pool = g.h.Sum(g.pool[:0])
	return nil
}

func (g *Generator) nextByte() (byte, error) {
	if len(g.pool) == 0 {
		if err := g.nextBlock(); err != nil {
			return 0, err
		}
	}

	b := g.pool[0]
	g.pool = g.pool[1:]
	return b, nil
}

// Read fills p with generator output
func (g *Generator) Read(p []byte) (int, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	for i := range p {
		b, err := g.nextByte()
		if err != nil {
			return i, err
		}
		p[i] = b
	}

	return len(p), nil
}

// intn returns a uniform value in [0, n) for 0 < n <= 256
func (g *Generator) intn(n int) (int, error) {
	limit := 256 - 256%n
	for {
		b, err := g.nextByte()
		if err != nil {
			return 0, err
		}
		if int(b) < limit {
			return int(b) % n, nil
		}
	}
}

// Generate returns a nonce whose length is drawn uniformly from
// [minLen, maxLenExclusive) and whose bytes are printable ASCII other
// than ','.
func (g *Generator) Generate(minLen, maxLenExclusive int) ([]byte, error) {
	span := maxLenExclusive - minLen
	if minLen < 1 || span < 1 || span > 256 {
		return nil, ErrRange
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	extra, err := g.intn(span)
	if err != nil {
		return nil, err
	}

	out := make([]byte, minLen+extra)
	for i := range out {
		for {
			v, err := g.intn(alphabetSize)
			if err != nil {
				return nil, err
			}
			c := byte(alphabetLow + v)
			if c != ',' {
				out[i] = c
				break
			}
		}
	}

	return out, nil
}

func zero(b []byte) {
	for i := range b {
		b[i] = 0
	}
}
