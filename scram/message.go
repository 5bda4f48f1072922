// Copyright 2021 Jake Scott. All rights reserved.
// Use of this source code is governed by the Apache License
// version 2.0 that can be found in the LICENSE file.
package scram

import (
	"bytes"
	"encoding/base64"
	"strconv"

	"github.com/pkg/errors"
)

const gs2Header = "n,,"

// channel binding attribute for a client that does not support binding:
// the base64 of the GS2 header, "biws"
var cbindAttr = "c=" + base64.StdEncoding.EncodeToString([]byte(gs2Header))

var b64 = base64.StdEncoding

// reader walks a server message attribute by attribute
type reader struct {
	buf []byte
	pos int
}

func (r *reader) done() bool {
	return r.pos == len(r.buf)
}

func (r *reader) hasPrefix(p string) bool {
	return bytes.HasPrefix(r.buf[r.pos:], []byte(p))
}

func (r *reader) expect(p string) error {
	if !r.hasPrefix(p) {
		return errors.Errorf("expected %q at offset %d", p, r.pos)
	}

	r.pos += len(p)
	return nil
}

// value returns the bytes up to the next comma (or the end) and consumes
// the comma if there is one
func (r *reader) value() []byte {
	rest := r.buf[r.pos:]
	i := bytes.IndexByte(rest, ',')
	if i < 0 {
		r.pos = len(r.buf)
		return rest
	}

	r.pos += i + 1
	return rest[:i]
}

// attribute reads "<name>=<value>" and returns the value
func (r *reader) attribute(name string) ([]byte, error) {
	if err := r.expect(name + "="); err != nil {
		return nil, err
	}

	return r.value(), nil
}

type serverFirst struct {
	nonce      []byte
	salt       []byte
	iterations int
}

// parseServerFirst parses r=<nonce>,s=<salt>,i=<count> and requires every
// byte to be consumed
func parseServerFirst(msg []byte) (sf serverFirst, err error) {
	r := reader{buf: msg}

	if sf.nonce, err = r.attribute("r"); err != nil {
		return
	}
	if len(sf.nonce) == 0 {
		return sf, errors.New("empty nonce")
	}
	if r.done() {
		return sf, errors.New("message ends after nonce")
	}

	salt, err := r.attribute("s")
	if err != nil {
		return
	}
	if sf.salt, err = decodeBase64(salt); err != nil {
		return sf, errors.Wrap(err, "salt")
	}
	if len(sf.salt) == 0 {
		return sf, errors.New("empty salt")
	}
	if r.done() {
		return sf, errors.New("message ends after salt")
	}

	count, err := r.attribute("i")
	if err != nil {
		return
	}
	if !r.done() || (len(r.buf) > 0 && r.buf[len(r.buf)-1] == ',') {
		return sf, errors.Errorf("unexpected data at offset %d", r.pos)
	}
	if sf.iterations, err = parseCount(count); err != nil {
		return sf, errors.Wrap(err, "iteration count")
	}

	return sf, nil
}

// parseServerFinal returns the decoded v= signature.  A server reporting
// failure with e=<value> yields a *ServerError.
func parseServerFinal(msg []byte) ([]byte, error) {
	r := reader{buf: msg}

	if r.hasPrefix("e=") {
		r.pos += 2
		return nil, &ServerError{Value: string(r.value())}
	}

	v, err := r.attribute("v")
	if err != nil {
		return nil, err
	}
	if !r.done() || msg[len(msg)-1] == ',' {
		return nil, errors.Errorf("unexpected data at offset %d", r.pos)
	}

	sig, err := decodeBase64(v)
	return sig, errors.Wrap(err, "server signature")
}

// parseCount accepts a plain non-negative decimal number: no sign,
// spaces or exponent
func parseCount(b []byte) (int, error) {
	if len(b) == 0 {
		return 0, errors.New("empty")
	}
	for _, c := range b {
		if c < '0' || c > '9' {
			return 0, errors.Errorf("invalid digit %q", c)
		}
	}

	n, err := strconv.ParseInt(string(b), 10, 32)
	if err != nil {
		return 0, err
	}

	return int(n), nil
}

// decodeBase64 rejects the line breaks that encoding/base64 skips
func decodeBase64(b []byte) ([]byte, error) {
	if i := bytes.IndexAny(b, "\r\n"); i >= 0 {
		return nil, errors.Errorf("line break at offset %d", i)
	}

	out := make([]byte, b64.DecodedLen(len(b)))
	n, err := b64.Decode(out, b)
	if err != nil {
		return nil, err
	}

	return out[:n], nil
}

// ServerError is the e= attribute of a server-final message
type ServerError struct {
	Value string
}

func (e *ServerError) Error() string {
	return "server reported error: " + e.Value
}
