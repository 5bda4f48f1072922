// Copyright 2021 Jake Scott. All rights reserved.
// Use of this source code is governed by the Apache License
// version 2.0 that can be found in the LICENSE file.
package sasl

import (
	"github.com/go-kit/log"
	"github.com/go-kit/log/level"

	"github.com/golang-auth/go-scram/common"
	"github.com/golang-auth/go-scram/pkg/buffer"
	"github.com/golang-auth/go-scram/pkg/loggable"
	"github.com/golang-auth/go-scram/registry"

	_ "github.com/golang-auth/go-scram/scram"
)

type SaslClientOption func(*SaslClient) error

// SaslClient drives one named mechanism with whole tokens: it owns the
// output buffer and turns the mechanism's challenge rounds into
// Start/Step calls.  It does not negotiate mechanisms with the server.
type SaslClient struct {
	loggable.Loggable

	mech  common.Mech
	creds *common.Credentials
	out   *buffer.Buffer

	mechName   string
	minSSF     uint
	maxBufSize uint // max the client can receive
	secProps   common.SecurityFlag
	extProps   externalProperties
	nonceFunc  common.NonceFunc
	extraProps map[string]string
}

type externalProperties struct {
	ssf uint
}

func NewSaslClient(mechName string, creds *common.Credentials, opts ...SaslClientOption) (client SaslClient, err error) {
	client = SaslClient{
		mechName:   mechName,
		creds:      creds,
		secProps:   common.SecNoAnonymous | common.SecNoPlainText,
		maxBufSize: 65536,
		extraProps: make(map[string]string),
	}

	for _, o := range opts {
		if err = o(&client); err != nil {
			return
		}
	}

	if !registry.IsRegistered(mechName) {
		client.Debugf("mech %s is not registered", mechName)
		return client, common.ErrNoMech
	}

	mechProps := registry.Properties(mechName)
	if !mechProps.SecurityProperties.Satisfies(client.wantSecProps()) {
		client.Debugf("mech %s does not meet security requirements [%s]", mechName, client.secProps)
		return client, common.ErrNoMech
	}

	client.Debugf("using mech %s", mechName)
	return client, nil
}

func WithMinSSF(ssf uint) SaslClientOption {
	return func(c *SaslClient) error {
		c.minSSF = ssf
		return nil
	}
}

// WithExternalSSF declares the strength of an outer layer such as TLS
func WithExternalSSF(ssf uint) SaslClientOption {
	return func(c *SaslClient) error {
		c.extProps.ssf = ssf
		return nil
	}
}

func WithMaxBufSize(size uint) SaslClientOption {
	return func(c *SaslClient) error {
		c.maxBufSize = size
		return nil
	}
}

func WithSecurityProps(props common.SecurityFlag) SaslClientOption {
	return func(c *SaslClient) error {
		c.secProps = props.Known()
		return nil
	}
}

// WithExtraProps passes a mechanism-specific setting, eg.
// scram.PropMaxIterations
func WithExtraProps(key, value string) SaslClientOption {
	return func(c *SaslClient) error {
		c.extraProps[key] = value
		return nil
	}
}

// WithNonceFunc replaces the mechanism's nonce generator.  The nonce is
// used verbatim, so it must be printable ASCII without commas.
func WithNonceFunc(f common.NonceFunc) SaslClientOption {
	return func(c *SaslClient) error {
		c.nonceFunc = f
		return nil
	}
}

func WithLogger(l log.Logger) SaslClientOption {
	return func(c *SaslClient) error {
		return loggable.WithLogger(l)(&c.Loggable)
	}
}

func WithLogLevel(opt level.Option) SaslClientOption {
	return func(c *SaslClient) error {
		return loggable.WithLevel(opt)(&c.Loggable)
	}
}

// a strong enough external layer makes plaintext protection redundant
func (c *SaslClient) wantSecProps() common.SecurityFlag {
	want := c.secProps
	if (c.extProps.ssf > c.minSSF) && (c.extProps.ssf > 1) {
		want &^= common.SecNoPlainText
	}

	return want
}

func (c *SaslClient) IsEstablished() bool {
	if c.mech != nil {
		return c.mech.IsEstablished()
	} else {
		return false
	}
}

// Start creates a fresh mechanism context and returns the initial
// response
func (c *SaslClient) Start() (outToken []byte, err error) {
	if c.mech != nil {
		_ = c.mech.Close()
		c.mech = nil
	}

	// SCRAM offers no security layer, so the external layer must cover the
	// whole requirement
	if c.minSSF > c.extProps.ssf {
		return nil, common.ErrTooWeak{MechSSF: registry.Properties(c.mechName).MaxSSF, ExtSSF: c.extProps.ssf, RequiredSSF: c.minSSF}
	}

	cfg := common.MechConfig{
		Logger:     c.Loggable,
		MaxBufSize: c.maxBufSize,
		ExtraProps: c.extraProps,
		NonceFunc:  c.nonceFunc,
	}
	c.mech = registry.NewMech(c.mechName, cfg)
	if c.mech == nil {
		return nil, common.ErrNoMech
	}
	if c.out == nil {
		c.out = buffer.New(256)
	}

	c.Debugf("started mech %s", c.mechName)

	// Don't return a token if the mech wants the server to go first
	if c.mech.MechProperties().Features&common.FeatServerFirst != 0 {
		return nil, nil
	}

	// otherwise execute the first step
	return c.step(nil)
}

func (c *SaslClient) Step(inToken []byte) (outToken []byte, err error) {
	if c.mech == nil {
		return nil, common.ErrNotStarted
	}

	if c.IsEstablished() {
		return nil, common.ErrAlreadyEstablished
	}

	if inToken == nil {
		inToken = []byte{}
	}

	return c.step(inToken)
}

func (c *SaslClient) step(inToken []byte) ([]byte, error) {
	c.out.Reset()

	_, status, err := c.mech.Challenge(&common.ChallengeArguments{In: inToken, Out: c.out}, c.creds)
	if err != nil {
		c.Warnf("%s failed: %v", c.mechName, err)
		return nil, err
	}

	if status == common.Completed {
		c.Infof("%s authentication complete", c.mechName)
	}

	// the buffer is reused by the next step
	return append([]byte{}, c.out.Bytes()...), nil
}

// Reset wipes the mechanism's session so Start can be called again
func (c *SaslClient) Reset() error {
	if c.out != nil {
		c.out.Zero()
	}
	if c.mech == nil {
		return nil
	}

	err := c.mech.Close()
	c.mech = nil
	return err
}

func (c *SaslClient) ContextParams() (params common.ContextParams, err error) {
	if c.mech == nil {
		err = common.ErrNotStarted
		return
	}

	if !c.IsEstablished() {
		err = common.ErrNotEstablished
		return
	}

	return c.mech.ContextParams(), nil
}

// Encode returns input unchanged once the exchange is complete: SCRAM
// negotiates no security layer
func (c *SaslClient) Encode(input []byte) (outToken []byte, err error) {
	if c.mech == nil {
		return nil, common.ErrNotStarted
	}

	if !c.IsEstablished() {
		return nil, common.ErrNotEstablished
	}

	return input, nil
}

func (c *SaslClient) Decode(inputToken []byte) (output []byte, err error) {
	if c.mech == nil {
		return nil, common.ErrNotStarted
	}

	if !c.IsEstablished() {
		return nil, common.ErrNotEstablished
	}

	return inputToken, nil
}
