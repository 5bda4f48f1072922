// Copyright 2021 Jake Scott. All rights reserved.
// Use of this source code is governed by the Apache License
// version 2.0 that can be found in the LICENSE file.
package scram

import (
	"bytes"
	"crypto/hmac"

	"github.com/pkg/errors"

	"github.com/golang-auth/go-scram/common"
	"github.com/golang-auth/go-scram/pkg/buffer"
	"github.com/golang-auth/go-scram/pkg/nonce"
	"github.com/golang-auth/go-scram/pkg/pbkdf2"
	"github.com/golang-auth/go-scram/pkg/saslprep"
)

var (
	clientKeyLabel = []byte("Client Key")
	serverKeyLabel = []byte("Server Key")
)

func mechErr(code common.ErrorCode, cause error) error {
	return common.NewMechError(code, cause)
}

// Challenge runs the next round of the exchange.  The first call writes
// the client-first message; the second consumes the server-first message
// in args.In and writes the client-final message; the third verifies the
// server-final message and writes nothing.
//
// Any error other than ErrClientSuppliedWithInvalidCredentials or
// ErrConcurrentAccess ends the session: Reset must be called before the
// mech can be used again.
func (m *Mech) Challenge(args *common.ChallengeArguments, creds *common.Credentials) (n int, status common.Status, err error) {
	if !creds.Valid() {
		return 0, common.MoreToCome, mechErr(common.ErrClientSuppliedWithInvalidCredentials, nil)
	}
	if args == nil || args.Out == nil {
		return 0, common.MoreToCome, mechErr(common.ErrInvalidState, errors.New("no output buffer"))
	}
	if m.configErr != nil {
		return 0, common.MoreToCome, mechErr(common.ErrInvalidState, m.configErr)
	}

	from, err := m.acquire()
	if err != nil {
		return 0, common.MoreToCome, err
	}

	next := stateFailed
	defer func() {
		m.state.Store(int32(next))
	}()

	start := args.Out.Len()

	switch from {
	case stateInitial:
		err = m.clientFirst(args.Out, creds)
		next, status = stateWaitingServerFirst, common.MoreToCome
	case stateWaitingServerFirst:
		err = m.clientFinal(args.In, args.Out, creds)
		next, status = stateWaitingServerFinal, common.MoreToCome
	case stateWaitingServerFinal:
		err = m.verifyServerFinal(args.In)
		next, status = stateCompleted, common.Completed
	}

	if err != nil {
		next = stateFailed
		args.Out.Truncate(start)
		m.Debugf("scram: round failed in state %q: %v", from, err)
		return 0, common.MoreToCome, err
	}

	n = args.Out.Len() - start
	m.Debugf("scram: %s -> %s, wrote %d bytes", from, next, n)
	return n, status, nil
}

// acquire moves the session to busy and returns the state it left
func (m *Mech) acquire() (state, error) {
	cur := state(m.state.Load())

	switch cur {
	case stateBusy:
		return cur, mechErr(common.ErrConcurrentAccess, nil)
	case stateCompleted, stateFailed, stateClosed:
		return cur, mechErr(common.ErrInvalidState, errors.Errorf("session is %s", cur))
	}

	if !m.state.CompareAndSwap(int32(cur), int32(stateBusy)) {
		return cur, mechErr(common.ErrConcurrentAccess, nil)
	}

	return cur, nil
}

func (m *Mech) newNonce() ([]byte, error) {
	if m.config.NonceFunc != nil {
		return m.config.NonceFunc()
	}

	gen, err := nonce.Default()
	if err != nil {
		return nil, err
	}

	return gen.Generate(nonceMinLen, nonceMaxLen)
}

// clientFirst writes n,,n=<user>,r=<nonce> and retains the bare part
func (m *Mech) clientFirst(out buffer.Writer, creds *common.Credentials) error {
	cnonce, err := m.newNonce()
	if err != nil {
		return mechErr(common.ErrInvalidState, errors.Wrap(err, "client nonce"))
	}

	m.wipe()
	m.clientNonce = append([]byte(nil), cnonce...)

	_, _ = out.WriteString(gs2Header)
	bare := out.Len()

	_, _ = out.WriteString("n=")
	if _, err := saslprep.WriteString(out, creds.Username, saslprep.EscapeSaslName); err != nil {
		return mechErr(common.ErrClientSuppliedWithInvalidCredentials, errors.Wrap(err, "username"))
	}
	_, _ = out.WriteString(",r=")
	_, _ = out.Write(cnonce)

	_, _ = m.authMessage.Write(out.Bytes()[bare:])
	_ = m.authMessage.WriteByte(0)

	return nil
}

// trimSentinel drops the zero byte that closes a complete auth message
// fragment
func (m *Mech) trimSentinel() error {
	l := m.authMessage.Len()
	if l == 0 || m.authMessage.Bytes()[l-1] != 0 {
		return mechErr(common.ErrInvalidState, errors.New("auth message is incomplete"))
	}

	m.authMessage.Truncate(l - 1)
	return nil
}

// saltedPasswordFor returns Hi(Normalize(password), salt, i), reusing
// the digest cached in creds when it matches
func (m *Mech) saltedPasswordFor(creds *common.Credentials, salt []byte, iterations int) ([]byte, error) {
	kf := common.KeyFactors{Salt: salt, Iterations: iterations, Size: m.size}
	if digest, ok := creds.CachedDigest(kf); ok {
		m.Debugf("scram: using cached password digest")
		return digest, nil
	}

	if creds.Password == "" {
		return nil, mechErr(common.ErrClientSuppliedWithInvalidCredentials, errors.New("password digest does not match the server's key factors"))
	}

	password, err := saslprep.Prepare(creds.Password)
	if err != nil {
		return nil, mechErr(common.ErrClientSuppliedWithInvalidCredentials, errors.Wrap(err, "password"))
	}

	pw := []byte(password)
	defer zero(pw)

	digest, err := pbkdf2.Key(m.hash.New, pw, salt, iterations)
	if err != nil {
		return nil, mechErr(common.ErrInvalidResponseMessageFormat, err)
	}

	creds.StoreDigest(digest, kf)
	return digest, nil
}

// clientFinal consumes server-first and writes
// c=biws,r=<nonce>,p=<proof>
func (m *Mech) clientFinal(in []byte, out buffer.Writer, creds *common.Credentials) error {
	sf, err := parseServerFirst(in)
	if err != nil {
		return mechErr(common.ErrInvalidResponseMessageFormat, errors.Wrap(err, "server-first message"))
	}

	if !bytes.HasPrefix(sf.nonce, m.clientNonce) || len(sf.nonce) == len(m.clientNonce) {
		return mechErr(common.ErrServerSentWrongNonce, nil)
	}
	if sf.iterations < m.minIterations || sf.iterations > m.maxIterations {
		return mechErr(common.ErrInvalidResponseMessageFormat,
			errors.Errorf("iteration count %d is outside [%d, %d]", sf.iterations, m.minIterations, m.maxIterations))
	}

	// sf.nonce aliases the caller's buffer
	m.serverNonce = append([]byte(nil), sf.nonce...)
	m.salt = sf.salt

	salted, err := m.saltedPasswordFor(creds, sf.salt, sf.iterations)
	if err != nil {
		return err
	}
	m.saltedPassword = salted

	clientKey := m.mac(salted, clientKeyLabel)
	defer zero(clientKey)
	storedKey := m.digest(clientKey)
	defer zero(storedKey)

	if err := m.trimSentinel(); err != nil {
		return err
	}
	_ = m.authMessage.WriteByte(',')
	_, _ = m.authMessage.Write(in)
	_ = m.authMessage.WriteByte(',')
	withoutProof := m.authMessage.Len()
	_, _ = m.authMessage.WriteString(cbindAttr)
	_, _ = m.authMessage.WriteString(",r=")
	_, _ = m.authMessage.Write(sf.nonce)

	clientSignature := m.mac(storedKey, m.authMessage.Bytes())
	defer zero(clientSignature)

	proof := clientSignature
	for i := range proof {
		proof[i] ^= clientKey[i]
	}

	_, _ = out.Write(m.authMessage.Bytes()[withoutProof:])
	_, _ = out.WriteString(",p=")
	enc := make([]byte, b64.EncodedLen(len(proof)))
	b64.Encode(enc, proof)
	_, _ = out.Write(enc)

	_ = m.authMessage.WriteByte(0)
	return nil
}

// verifyServerFinal checks v=<signature> against HMAC(ServerKey, AuthMessage)
func (m *Mech) verifyServerFinal(in []byte) error {
	sig, err := parseServerFinal(in)
	if err != nil {
		var se *ServerError
		if errors.As(err, &se) {
			return mechErr(common.ErrServerSentWrongProof, se)
		}
		return mechErr(common.ErrInvalidResponseMessageFormat, errors.Wrap(err, "server-final message"))
	}
	if len(sig) != m.size {
		return mechErr(common.ErrInvalidResponseMessageFormat, errors.Errorf("server signature is %d bytes, want %d", len(sig), m.size))
	}

	if err := m.trimSentinel(); err != nil {
		return err
	}

	serverKey := m.mac(m.saltedPassword, serverKeyLabel)
	defer zero(serverKey)
	expected := m.mac(serverKey, m.authMessage.Bytes())
	defer zero(expected)

	if !hmac.Equal(expected, sig) {
		return mechErr(common.ErrServerSentWrongProof, nil)
	}

	return nil
}

func (m *Mech) mac(key, data []byte) []byte {
	h := hmac.New(m.hash.New, key)
	h.Write(data)
	return h.Sum(nil)
}

func (m *Mech) digest(data []byte) []byte {
	h := m.hash.New()
	h.Write(data)
	return h.Sum(nil)
}
