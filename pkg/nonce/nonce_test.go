package nonce

import (
	"bytes"
	"crypto/sha1"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingReader struct {
	reads int
}

func (c *countingReader) Read(p []byte) (int, error) {
	c.reads++
	for i := range p {
		p[i] = byte(c.reads + i)
	}
	return len(p), nil
}

func TestGenerateAlphabetAndLength(t *testing.T) {
	g, err := New()
	require.NoError(t, err)

	seen := map[int]bool{}
	for i := 0; i < 500; i++ {
		n, err := g.Generate(24, 33)
		require.NoError(t, err)
		assert.GreaterOrEqual(t, len(n), 24)
		assert.Less(t, len(n), 33)
		seen[len(n)] = true

		for _, c := range n {
			assert.True(t, c >= 0x21 && c < 0x7f, "printable: %#x", c)
			assert.NotEqual(t, byte(','), c)
		}
	}
	assert.Greater(t, len(seen), 1, "length varies")
}

func TestDeterministicWithFixedEntropy(t *testing.T) {
	seed := bytes.Repeat([]byte{7}, 64)

	g1, err := New(WithEntropy(bytes.NewReader(seed)))
	require.NoError(t, err)
	g2, err := New(WithEntropy(bytes.NewReader(seed)))
	require.NoError(t, err)

	n1, err := g1.Generate(16, 17)
	require.NoError(t, err)
	n2, err := g2.Generate(16, 17)
	require.NoError(t, err)
	assert.Equal(t, n1, n2)

	n3, err := g1.Generate(16, 17)
	require.NoError(t, err)
	assert.NotEqual(t, n1, n3, "counter advances")
}

func TestReseed(t *testing.T) {
	src := &countingReader{}
	g, err := New(WithEntropy(src), WithHash(sha1.New), WithReseedInterval(2))
	require.NoError(t, err)
	assert.Equal(t, 1, src.reads)

	// 5 blocks of 20 bytes: reseeds before the 3rd and 5th
	buf := make([]byte, 100)
	_, err = g.Read(buf)
	require.NoError(t, err)
	assert.Equal(t, 3, src.reads)
}

func TestEntropyFailure(t *testing.T) {
	_, err := New(WithEntropy(bytes.NewReader([]byte{1, 2})))
	assert.ErrorIs(t, err, io.ErrUnexpectedEOF)

	g, err := New(WithEntropy(bytes.NewReader(make([]byte, 32))), WithReseedInterval(1))
	require.NoError(t, err)
	_, err = g.Read(make([]byte, 64))
	assert.Error(t, err)
}

func TestBadRange(t *testing.T) {
	g, err := New()
	require.NoError(t, err)

	for _, r := range [][2]int{{0, 5}, {5, 5}, {6, 5}, {1, 300}} {
		_, err := g.Generate(r[0], r[1])
		assert.ErrorIs(t, err, ErrRange, "%v", r)
	}
}

func TestDefault(t *testing.T) {
	g1, err := Default()
	require.NoError(t, err)
	g2, err := Default()
	require.NoError(t, err)
	assert.Same(t, g1, g2)
}
