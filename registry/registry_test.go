// Copyright 2021 Jake Scott. All rights reserved.
// Use of this source code is governed by the Apache License
// version 2.0 that can be found in the LICENSE file.
package registry

import (
	"testing"

	"github.com/golang-auth/go-scram/common"
	"github.com/stretchr/testify/assert"
)

type dummyMech struct {
	rand int
}

func (m dummyMech) Name() string {
	return "MOCK"
}
func (m dummyMech) MechProperties() common.MechProps {
	return common.MechProps{}
}
func (m dummyMech) IsEstablished() bool {
	return false
}
func (m dummyMech) ContextParams() common.ContextParams {
	return common.ContextParams{}
}
func (m dummyMech) Challenge(*common.ChallengeArguments, *common.Credentials) (int, common.Status, error) {
	return 0, common.Completed, nil
}
func (m dummyMech) Reset() error {
	return nil
}
func (m dummyMech) Close() error {
	return nil
}

func reset() {
	mu.Lock()
	mechs = make(map[string]mech)
	mu.Unlock()
}

func TestRegister(t *testing.T) {
	reset()
	mf := func(common.MechConfig) common.Mech {
		return dummyMech{rand: 123}
	}
	props := common.MechProps{}

	assert.NotPanics(t, func() { Register("TEST", mf, props) })

	// panics because its already registered
	assert.Panics(t, func() { Register("TEST", mf, props) })

	// panics because the mech name isn't valid (lower case not allowed)
	assert.Panics(t, func() { Register("bad-mech-name", mf, props) })
	assert.Panics(t, func() { Register("SCRAM-SHA-256-PLUS-TOO-LONG", mf, props) })
}

func TestIsRegistered(t *testing.T) {
	reset()
	mf := func(common.MechConfig) common.Mech {
		return dummyMech{rand: 456}
	}

	assert.NotPanics(t, func() { Register("TEST1", mf, common.MechProps{}) })
	assert.True(t, IsRegistered("TEST1"))
	assert.False(t, IsRegistered("NEVER_REGISTERED"))
}

func TestMechs(t *testing.T) {
	reset()
	mf := func(common.MechConfig) common.Mech {
		return dummyMech{rand: 789}
	}

	assert.NotPanics(t, func() { Register("TEST3", mf, common.MechProps{}) })
	assert.NotPanics(t, func() { Register("TEST2", mf, common.MechProps{}) })

	assert.Equal(t, []string{"TEST2", "TEST3"}, Mechs())
}

func TestNewMech(t *testing.T) {
	reset()
	mf1 := func(common.MechConfig) common.Mech {
		return dummyMech{rand: 98765}
	}
	mf2 := func(common.MechConfig) common.Mech {
		return dummyMech{rand: 54321}
	}

	assert.NotPanics(t, func() { Register("TEST5", mf1, common.MechProps{}) })
	assert.NotPanics(t, func() { Register("TEST6", mf2, common.MechProps{}) })

	mech1 := NewMech("TEST5", common.MechConfig{})
	mech2 := NewMech("TEST6", common.MechConfig{})
	mech3 := NewMech("no-such-mech", common.MechConfig{})

	assert.NotNil(t, mech1)
	assert.NotNil(t, mech2)
	assert.Nil(t, mech3)

	testMech1, ok1 := mech1.(dummyMech)
	testMech2, ok2 := mech2.(dummyMech)
	assert.True(t, ok1)
	assert.True(t, ok2)

	assert.Equal(t, 98765, testMech1.rand)
	assert.Equal(t, 54321, testMech2.rand)
}

func TestSatisfying(t *testing.T) {
	reset()
	mf := func(common.MechConfig) common.Mech { return dummyMech{} }

	Register("STRONG", mf, common.MechProps{SecurityProperties: common.SecNoPlainText | common.SecMutualAuth})
	Register("WEAK", mf, common.MechProps{SecurityProperties: common.SecNoAnonymous})

	assert.Equal(t, []string{"STRONG"}, Satisfying(common.SecMutualAuth))
	assert.Equal(t, []string{"STRONG", "WEAK"}, Satisfying(0))
	assert.Empty(t, Satisfying(common.SecForwardSecrecy))
	assert.Equal(t, common.SecNoAnonymous, Properties("WEAK").SecurityProperties)
}
