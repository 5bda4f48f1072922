// Copyright 2021 Jake Scott. All rights reserved.
// Use of this source code is governed by the Apache License
// version 2.0 that can be found in the LICENSE file.
package scram

import (
	"crypto/sha1"
	"crypto/sha512"
	"hash"
	"math"
	"strconv"
	"sync/atomic"

	sha256 "github.com/minio/sha256-simd"
	"github.com/pkg/errors"

	"github.com/golang-auth/go-scram/common"
	"github.com/golang-auth/go-scram/pkg/buffer"
	"github.com/golang-auth/go-scram/pkg/loggable"
	"github.com/golang-auth/go-scram/registry"
)

// Hash names a SCRAM variant and its digest
type Hash struct {
	Name string
	New  func() hash.Hash
}

var (
	SHA1   = Hash{Name: "SCRAM-SHA-1", New: sha1.New}
	SHA256 = Hash{Name: "SCRAM-SHA-256", New: sha256.New}
	SHA512 = Hash{Name: "SCRAM-SHA-512", New: sha512.New}
)

// nonce lengths are drawn from [nonceMinLen, nonceMaxLen)
const (
	nonceMinLen = 24
	nonceMaxLen = 33
)

// MechConfig.ExtraProps keys bounding the iteration count a server may
// ask for.  Values are decimal.
const (
	PropMinIterations = "scram.min_iterations"
	PropMaxIterations = "scram.max_iterations"
)

// DefaultMaxIterations caps the key derivation work a server can demand
const DefaultMaxIterations = 1 << 20

var mechProps = common.MechProps{
	MaxSSF:             0,
	SecurityProperties: common.SecNoPlainText | common.SecNoActive | common.SecNoAnonymous | common.SecMutualAuth,
	Features:           common.FeatWantClientFirst | common.FeatSupportsHTTP | common.FeatNeedsPassword,
}

func init() {
	// see: https://www.iana.org/assignments/sasl-mechanisms/sasl-mechanisms.xhtml
	for _, h := range []Hash{SHA1, SHA256, SHA512} {
		h := h
		registry.Register(h.Name, func(cfg common.MechConfig) common.Mech {
			return NewMech(h, cfg)
		}, mechProps)
	}
}

type state int32

const (
	stateInitial state = iota
	stateWaitingServerFirst
	stateWaitingServerFinal
	stateCompleted
	stateFailed
	stateClosed

	// held while a call is running
	stateBusy
)

func (s state) String() string {
	switch s {
	case stateInitial:
		return "initial"
	case stateWaitingServerFirst:
		return "waiting for server-first"
	case stateWaitingServerFinal:
		return "waiting for server-final"
	case stateCompleted:
		return "completed"
	case stateFailed:
		return "failed"
	case stateClosed:
		return "closed"
	case stateBusy:
		return "busy"
	}

	return "unknown"
}

// Mech is the client side of one SCRAM authentication.  Calls are
// single-flight: a call that overlaps another fails with
// ErrConcurrentAccess instead of waiting.
type Mech struct {
	loggable.Loggable
	hash   Hash
	size   int
	config common.MechConfig

	state atomic.Int32

	minIterations int
	maxIterations int
	// set when ExtraProps is unusable; every challenge fails with it
	configErr error

	clientNonce    []byte
	serverNonce    []byte
	salt           []byte
	saltedPassword []byte

	// client-first-bare "," server-first "," client-final-without-proof,
	// followed by a zero sentinel once a fragment is complete
	authMessage *buffer.Buffer
}

func NewMech(h Hash, cfg common.MechConfig) *Mech {
	cfg.Logger.Debugf("new %s mech", h.Name)

	m := &Mech{
		Loggable:    cfg.Logger.With("mech", h.Name),
		hash:        h,
		size:        h.New().Size(),
		config:      cfg,
		authMessage: buffer.New(256),
	}

	m.minIterations, m.maxIterations, m.configErr = iterationBounds(cfg.ExtraProps)
	if m.configErr != nil {
		m.Warnf("scram: %v", m.configErr)
	}

	return m
}

func iterationBounds(props map[string]string) (lo, hi int, err error) {
	lo, hi = 1, DefaultMaxIterations

	prop := func(key string, dflt int) (int, error) {
		v, ok := props[key]
		if !ok {
			return dflt, nil
		}
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			return 0, errors.Errorf("%s must be a positive integer, got %q", key, v)
		}
		return n, nil
	}

	if lo, err = prop(PropMinIterations, lo); err != nil {
		return 0, 0, err
	}
	if hi, err = prop(PropMaxIterations, hi); err != nil {
		return 0, 0, err
	}
	if lo > hi {
		return 0, 0, errors.Errorf("%s (%d) is above %s (%d)", PropMinIterations, lo, PropMaxIterations, hi)
	}

	return lo, hi, nil
}

func (m *Mech) Name() string {
	return m.hash.Name
}

func (m *Mech) MechProperties() common.MechProps {
	return mechProps
}

func (m *Mech) IsEstablished() bool {
	return state(m.state.Load()) == stateCompleted
}

// ContextParams reports no security layer: SCRAM only authenticates
func (m *Mech) ContextParams() common.ContextParams {
	size := m.config.MaxBufSize
	if size > math.MaxUint32 {
		size = math.MaxUint32
	}

	return common.ContextParams{
		SSF:                0,
		MaxPeerMessageSize: uint32(size),
	}
}

// Reset wipes all session material and returns the mech to its initial
// state, ready for a new authentication.
func (m *Mech) Reset() error {
	return m.release(stateInitial)
}

// Close wipes all session material.  The mech cannot be used afterwards.
func (m *Mech) Close() error {
	return m.release(stateClosed)
}

func (m *Mech) release(to state) error {
	cur := state(m.state.Load())
	switch cur {
	case stateBusy:
		return common.NewMechError(common.ErrConcurrentAccess, nil)
	case stateClosed:
		if to == stateClosed {
			return nil
		}
		return common.NewMechError(common.ErrInvalidState, nil)
	}

	if !m.state.CompareAndSwap(int32(cur), int32(stateBusy)) {
		return common.NewMechError(common.ErrConcurrentAccess, nil)
	}

	m.wipe()
	m.state.Store(int32(to))
	m.Debugf("scram: session %s", to)
	return nil
}

func (m *Mech) wipe() {
	zero(m.clientNonce)
	zero(m.serverNonce)
	zero(m.salt)
	zero(m.saltedPassword)
	m.clientNonce, m.serverNonce, m.salt, m.saltedPassword = nil, nil, nil, nil
	m.authMessage.Zero()
}

func zero(b []byte) {
	for i := range b {
		b[i] = 0
	}
}
