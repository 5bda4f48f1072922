// Package pbkdf2 derives a single-block PBKDF2-HMAC key (RFC 8018), which
// is the Hi() function of RFC 5802.  Intermediate blocks are wiped before
// returning.
package pbkdf2

import (
	"crypto/hmac"
	"errors"
	"hash"
)

var ErrIterations = errors.New("pbkdf2: iteration count must be at least 1")

// Key returns Hi(password, salt, iterations), one digest-sized block:
//
//	U1 = HMAC(password, salt || INT(1))
//	Ui = HMAC(password, Ui-1)
//	Hi = U1 ^ U2 ^ ... ^ Ui
func Key(newHash func() hash.Hash, password, salt []byte, iterations int) ([]byte, error) {
	if iterations < 1 {
		return nil, ErrIterations
	}

	prf := hmac.New(newHash, password)
	defer prf.Reset()

	size := prf.Size()
	acc := make([]byte, size)
	u := make([]byte, 0, size)
	defer Zero(u[:size])

	prf.Write(salt)
	prf.Write([]byte{0, 0, 0, 1})
	u = prf.Sum(u[:0])
	copy(acc, u)

	for i := 2; i <= iterations; i++ {
		prf.Reset()
		prf.Write(u)
		u = prf.Sum(u[:0])
		xorInto(acc, u)
	}

	return acc, nil
}

func xorInto(dst, src []byte) {
	for i := range dst {
		dst[i] ^= src[i]
	}
}

// Zero overwrites b with zeros
func Zero(b []byte) {
	for i := range b {
		b[i] = 0
	}
}
