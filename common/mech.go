// Copyright 2021 Jake Scott. All rights reserved.
// Use of this source code is governed by the Apache License
// version 2.0 that can be found in the LICENSE file.
package common

import (
	"github.com/golang-auth/go-scram/pkg/buffer"
	"github.com/golang-auth/go-scram/pkg/loggable"
)

type MechProps struct {
	MaxSSF             uint
	SecurityProperties SecurityFlag
	Features           Feature
}

type ContextParams struct {
	SSF                uint
	MaxPeerMessageSize uint32
}

// NonceFunc replaces a mechanism's nonce generator.  Its output is used
// verbatim: it must be printable ASCII and must not contain a comma.
type NonceFunc func() ([]byte, error)

// MechConfig is handed to a mechanism factory.  ExtraProps holds
// mechanism-specific settings; keys a mechanism does not know are ignored.
type MechConfig struct {
	Logger     loggable.Loggable
	MaxBufSize uint
	ExtraProps map[string]string
	NonceFunc  NonceFunc
}

// Status reports whether a challenge round finished the exchange
type Status int

const (
	MoreToCome Status = iota
	Completed
)

func (s Status) String() string {
	switch s {
	case MoreToCome:
		return "MoreToCome"
	case Completed:
		return "Completed"
	}

	return "Unknown"
}

// ChallengeArguments carries the bytes received from the server for one
// round and the caller-owned buffer the reply is appended to.  In is nil
// for the first round of a client-first mechanism.
type ChallengeArguments struct {
	In  []byte
	Out buffer.Writer
}

type Mech interface {
	Name() string
	MechProperties() MechProps
	IsEstablished() bool
	ContextParams() ContextParams
	Challenge(args *ChallengeArguments, creds *Credentials) (n int, status Status, err error)
	Reset() error
	Close() error
}
