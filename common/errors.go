// Copyright 2021 Jake Scott. All rights reserved.
// Use of this source code is governed by the Apache License
// version 2.0 that can be found in the LICENSE file.
package common

import (
	"errors"
	"fmt"
)

var (
	ErrNoMech             = errors.New("no worthy mechs found")
	ErrNotStarted         = errors.New("must use Start() before Step()")
	ErrAlreadyEstablished = errors.New("context is already established")
	ErrNotEstablished     = errors.New("context is not established")
)

type ErrTooWeak struct {
	MechSSF     uint
	ExtSSF      uint
	RequiredSSF uint
}

func (e ErrTooWeak) Error() string {
	if e.ExtSSF > 0 {
		return fmt.Sprintf("negotiated SSF (%d) + external SSF (%d) is less than required SSF (%d)", e.MechSSF, e.ExtSSF, e.RequiredSSF)
	} else {
		return fmt.Sprintf("negotiated SSF (%d) is less than required SSF (%d)", e.MechSSF, e.RequiredSSF)
	}
}

// ErrorCode is the flat set of failures a mechanism reports for a single
// challenge.  The values are stable and may be logged or sent across a
// protocol boundary.
type ErrorCode int

const (
	ErrConcurrentAccess ErrorCode = iota + 1
	ErrInvalidResponseMessageFormat
	ErrInvalidState
	ErrServerSentWrongNonce
	ErrServerSentWrongProof
	ErrClientSuppliedWithInvalidCredentials
)

func (c ErrorCode) String() string {
	switch c {
	case ErrConcurrentAccess:
		return "ConcurrentAccess"
	case ErrInvalidResponseMessageFormat:
		return "InvalidResponseMessageFormat"
	case ErrInvalidState:
		return "InvalidState"
	case ErrServerSentWrongNonce:
		return "ServerSentWrongNonce"
	case ErrServerSentWrongProof:
		return "ServerSentWrongProof"
	case ErrClientSuppliedWithInvalidCredentials:
		return "ClientSuppliedWithInvalidCredentials"
	}

	return fmt.Sprintf("ErrorCode(%d)", int(c))
}

func (c ErrorCode) Error() string {
	switch c {
	case ErrConcurrentAccess:
		return "challenge called while another call is in flight"
	case ErrInvalidResponseMessageFormat:
		return "server response is malformed"
	case ErrInvalidState:
		return "no further challenge rounds are defined"
	case ErrServerSentWrongNonce:
		return "server nonce does not extend the client nonce"
	case ErrServerSentWrongProof:
		return "server signature does not match"
	case ErrClientSuppliedWithInvalidCredentials:
		return "invalid credentials supplied"
	}

	return c.String()
}

// MechError carries an ErrorCode and, optionally, the lower level failure
// that caused it.  errors.Is matches it against its code.
type MechError struct {
	Code ErrorCode
	Err  error
}

func NewMechError(code ErrorCode, cause error) *MechError {
	return &MechError{Code: code, Err: cause}
}

func (e *MechError) Error() string {
	if e.Err == nil {
		return e.Code.Error()
	}

	return e.Code.Error() + ": " + e.Err.Error()
}

func (e *MechError) Unwrap() error {
	return e.Err
}

func (e *MechError) Is(target error) bool {
	code, ok := target.(ErrorCode)
	return ok && code == e.Code
}

// Code extracts the ErrorCode from err, or returns 0 if err does not carry one
func Code(err error) ErrorCode {
	var me *MechError
	if errors.As(err, &me) {
		return me.Code
	}

	var code ErrorCode
	if errors.As(err, &code) {
		return code
	}

	return 0
}
