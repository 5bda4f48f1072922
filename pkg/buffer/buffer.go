// Package buffer provides the growable byte buffers mechanisms write their
// messages into.
package buffer

import (
	"errors"
	"io"
)

// Writer is the write side of a caller-owned output buffer.  Len and Bytes
// cover only what has been written since the buffer's start offset.
type Writer interface {
	io.Writer
	io.ByteWriter
	io.StringWriter
	Len() int
	Bytes() []byte
	Truncate(n int)
}

var ErrTruncateRange = errors.New("buffer: truncation out of range")

// Buffer is a growable byte buffer that writes after a fixed start offset.
// Bytes before the offset belong to the caller and are never touched.
// Growth is sized by the largest length the buffer has reached, so a
// buffer reused across rounds settles on a single allocation.
type Buffer struct {
	buf    []byte
	offset int
	peak   int
}

// New returns an empty buffer with room for capHint bytes
func New(capHint int) *Buffer {
	if capHint < 0 {
		capHint = 0
	}

	return &Buffer{buf: make([]byte, 0, capHint)}
}

// NewAt returns a buffer that appends to b after its current contents
func NewAt(b []byte) *Buffer {
	return &Buffer{buf: b, offset: len(b), peak: cap(b)}
}

func (b *Buffer) Offset() int {
	return b.offset
}

func (b *Buffer) Len() int {
	return len(b.buf) - b.offset
}

// MaxCapacity is the high-water mark of the underlying array
func (b *Buffer) MaxCapacity() int {
	return b.peak
}

// Bytes returns the bytes written after the offset.  The slice aliases the
// buffer and is only valid until the next write.
func (b *Buffer) Bytes() []byte {
	return b.buf[b.offset:]
}

// All returns the whole underlying slice including the caller's prefix
func (b *Buffer) All() []byte {
	return b.buf
}

// Grow makes room for n more bytes and returns the n-byte window at the
// write position, extending Len by n.
func (b *Buffer) Grow(n int) []byte {
	l := len(b.buf)
	b.reserve(n)
	b.buf = b.buf[:l+n]
	return b.buf[l : l+n]
}

func (b *Buffer) reserve(n int) {
	need := len(b.buf) + n
	if need <= cap(b.buf) {
		return
	}

	c := 2 * cap(b.buf)
	if c < b.peak {
		c = b.peak
	}
	if c < need {
		c = need
	}

	nb := make([]byte, len(b.buf), c)
	copy(nb, b.buf)
	zero(b.buf[b.offset:cap(b.buf)])
	b.buf = nb
	b.peak = c
}

func (b *Buffer) Write(p []byte) (int, error) {
	copy(b.Grow(len(p)), p)
	return len(p), nil
}

func (b *Buffer) WriteString(s string) (int, error) {
	copy(b.Grow(len(s)), s)
	return len(s), nil
}

func (b *Buffer) WriteByte(c byte) error {
	b.Grow(1)[0] = c
	return nil
}

// Truncate discards all but the first n written bytes.  It panics if n is
// out of range, like bytes.Buffer.
func (b *Buffer) Truncate(n int) {
	if n < 0 || n > b.Len() {
		panic(ErrTruncateRange)
	}

	zero(b.buf[b.offset+n:])
	b.buf = b.buf[:b.offset+n]
}

// Reset discards the written bytes, keeping the allocation
func (b *Buffer) Reset() {
	b.Truncate(0)
}

// Zero overwrites the whole allocation, including spare capacity, and
// resets the buffer.  The caller's prefix before the offset is left alone.
func (b *Buffer) Zero() {
	zero(b.buf[b.offset:cap(b.buf)])
	b.buf = b.buf[:b.offset]
}

func zero(p []byte) {
	for i := range p {
		p[i] = 0
	}
}

// Naive is a Writer that reallocates on every write.  It has no
// optimisations to get wrong and serves as the reference in tests.
type Naive struct {
	data []byte
}

func (n *Naive) Write(p []byte) (int, error) {
	nd := make([]byte, len(n.data)+len(p))
	copy(nd, n.data)
	copy(nd[len(n.data):], p)
	n.data = nd
	return len(p), nil
}

func (n *Naive) WriteString(s string) (int, error) {
	return n.Write([]byte(s))
}

func (n *Naive) WriteByte(c byte) error {
	_, err := n.Write([]byte{c})
	return err
}

func (n *Naive) Len() int {
	return len(n.data)
}

func (n *Naive) Bytes() []byte {
	return n.data
}

func (n *Naive) Truncate(l int) {
	if l < 0 || l > len(n.data) {
		panic(ErrTruncateRange)
	}

	nd := make([]byte, l)
	copy(nd, n.data)
	n.data = nd
}
