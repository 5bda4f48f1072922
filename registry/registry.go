// Copyright 2021 Jake Scott. All rights reserved.
// Use of this source code is governed by the Apache License
// version 2.0 that can be found in the LICENSE file.
package registry

import (
	"regexp"
	"sort"
	"sync"

	"github.com/golang-auth/go-scram/common"
)

// See RFC 4422 § 3.1
var saslMechRegexp = regexp.MustCompile(`^[A-Z0-9-_]{1,20}$`)

type MechFactory func(common.MechConfig) common.Mech

type mech struct {
	factory    MechFactory
	properties common.MechProps
}

var (
	mu    sync.RWMutex
	mechs = make(map[string]mech)
)

// Register should be called by Mech implementations, usually from init,
// to make a mechanism available by name
func Register(name string, f MechFactory, props common.MechProps) {
	if !saslMechRegexp.MatchString(name) {
		panic("Bad mech name: " + name)
	}

	mu.Lock()
	defer mu.Unlock()

	// can't register two mechs with the same name
	if _, ok := mechs[name]; ok {
		panic("Cannot have two mechs named " + name)
	}

	mechs[name] = mech{
		factory:    f,
		properties: props,
	}
}

// IsRegistered can be used to find out whether a named
// mechanism is registered or not
func IsRegistered(name string) bool {
	mu.RLock()
	defer mu.RUnlock()

	_, ok := mechs[name]
	return ok
}

// NewMech returns a new mechanism context by name, or nil if no mechanism
// of that name is registered
func NewMech(name string, cfg common.MechConfig) common.Mech {
	mu.RLock()
	m, ok := mechs[name]
	mu.RUnlock()

	if !ok {
		return nil
	}

	return m.factory(cfg)
}

func Properties(name string) common.MechProps {
	mu.RLock()
	defer mu.RUnlock()

	return mechs[name].properties
}

// Mechs returns the sorted names of the registered mechanisms
func Mechs() []string {
	mu.RLock()
	l := make([]string, 0, len(mechs))
	for name := range mechs {
		l = append(l, name)
	}
	mu.RUnlock()

	sort.Strings(l)
	return l
}

// Satisfying returns the sorted names of the registered mechanisms whose
// security properties cover want
func Satisfying(want common.SecurityFlag) []string {
	var l []string
	for _, name := range Mechs() {
		if Properties(name).SecurityProperties.Satisfies(want) {
			l = append(l, name)
		}
	}

	return l
}
