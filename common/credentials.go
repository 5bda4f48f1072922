// Copyright 2021 Jake Scott. All rights reserved.
// Use of this source code is governed by the Apache License
// version 2.0 that can be found in the LICENSE file.
package common

import (
	"bytes"
	"sync"
)

// KeyFactors identifies the inputs a password digest was derived with
type KeyFactors struct {
	Salt       []byte
	Iterations int
	Size       int
}

func (k KeyFactors) equal(o KeyFactors) bool {
	return k.Iterations == o.Iterations && k.Size == o.Size && bytes.Equal(k.Salt, o.Salt)
}

// Credentials identify the client.  Either Password or PasswordDigest (the
// salted password) must be set; an empty Password counts as absent.
//
// A mechanism that derives the digest from the password stores it back
// into PasswordDigest so that later authentications skip the key
// derivation.  Credentials must not be copied after first use.
type Credentials struct {
	Username       string
	Password       string
	PasswordDigest []byte

	mu      sync.Mutex
	factors *KeyFactors
}

func (c *Credentials) Valid() bool {
	if c == nil {
		return false
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	return c.Password != "" || len(c.PasswordDigest) > 0
}

// CachedDigest returns a copy of the password digest if it can be used for
// the given key factors.  A digest supplied by the caller (rather than one
// cached by a mechanism) is trusted as long as its size matches.
func (c *Credentials) CachedDigest(kf KeyFactors) ([]byte, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if len(c.PasswordDigest) == 0 {
		return nil, false
	}

	if c.factors == nil {
		if len(c.PasswordDigest) != kf.Size {
			return nil, false
		}
	} else if !c.factors.equal(kf) {
		return nil, false
	}

	return append([]byte(nil), c.PasswordDigest...), true
}

// StoreDigest caches digest as the password digest derived with kf
func (c *Credentials) StoreDigest(digest []byte, kf KeyFactors) {
	c.mu.Lock()
	defer c.mu.Unlock()

	zero(c.PasswordDigest)
	c.PasswordDigest = append([]byte(nil), digest...)
	c.factors = &KeyFactors{
		Salt:       append([]byte(nil), kf.Salt...),
		Iterations: kf.Iterations,
		Size:       kf.Size,
	}
}

// Clear zeroes and forgets the password digest
func (c *Credentials) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	zero(c.PasswordDigest)
	c.PasswordDigest = nil
	c.factors = nil
}

func zero(b []byte) {
	for i := range b {
		b[i] = 0
	}
}
