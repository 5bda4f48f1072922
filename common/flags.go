// Copyright 2021 Jake Scott. All rights reserved.
// Use of this source code is governed by the Apache License
// version 2.0 that can be found in the LICENSE file.
package common

import "strings"

type SecurityFlag uint32

const (
	SecNoPlainText     SecurityFlag = 1 << iota // don't permit mechs susceptible to simple passive attack (eg. PLAIN, LOGIN)
	SecNoActive                                 // protection from active (non-dictionary) attacks
	SecNoDictionary                             // don't permit mechanisms susceptible to passive dictionary attack
	SecForwardSecrecy                           // require forward secrecy between sessions
	SecNoAnonymous                              // don't permit mechanisms that allow anonymous login
	SecPassCredentials                          // require mechanisms that pass client credentials
	SecMutualAuth                               // require mechanisms that provide mutual authentication

	secAll = SecNoPlainText | SecNoActive | SecNoDictionary | SecForwardSecrecy | SecNoAnonymous | SecPassCredentials | SecMutualAuth
)

var securityFlagNames = map[SecurityFlag]string{
	SecNoPlainText:     "No plain text mechanisms",
	SecNoActive:        "Active attack protection",
	SecNoDictionary:    "No mechanisms susceptible to dictionary attacks",
	SecForwardSecrecy:  "Require forward secrecy",
	SecNoAnonymous:     "No anonymous mechanisms",
	SecPassCredentials: "Require passing of client credentials",
	SecMutualAuth:      "Require mutual authentication",
}

// Satisfies reports whether a mechanism offering f meets every requirement in want
func (f SecurityFlag) Satisfies(want SecurityFlag) bool {
	return (want &^ f) == 0
}

// Known strips bits that do not name a security property
func (f SecurityFlag) Known() SecurityFlag {
	return f & secAll
}

// List returns the individual flags set in f
func (f SecurityFlag) List() (fl []SecurityFlag) {
	for _, b := range bits(uint32(f)) {
		fl = append(fl, SecurityFlag(b))
	}

	return
}

func (f SecurityFlag) String() string {
	if name, ok := securityFlagNames[f]; ok {
		return name
	}

	var names []string
	for _, b := range f.List() {
		name, ok := securityFlagNames[b]
		if !ok {
			name = "Unknown"
		}
		names = append(names, name)
	}
	if len(names) == 0 {
		return "None"
	}

	return strings.Join(names, ", ")
}

type Feature uint32

const (
	FeatWantClientFirst Feature = 1 << iota // mech prefers client to send first
	FeatServerFirst                         // mech only supports server-first
	FeatSupportsHTTP                        // mechanism can be used for HTTP authentication
	FeatChannelBindings                     // mechanism supports channel bindings
	FeatNeedsPassword                       // mechanism needs a password or password digest
)

var featureNames = map[Feature]string{
	FeatWantClientFirst: "Mechanism prefers client-first protocol",
	FeatServerFirst:     "Mechanism requires server-first protocol",
	FeatSupportsHTTP:    "Mechanism supports HTTP authentication",
	FeatChannelBindings: "Mechanism supports channel bindings",
	FeatNeedsPassword:   "Mechanism needs a password",
}

func (f Feature) List() (fl []Feature) {
	for _, b := range bits(uint32(f)) {
		fl = append(fl, Feature(b))
	}

	return
}

func (f Feature) String() string {
	if name, ok := featureNames[f]; ok {
		return name
	}

	var names []string
	for _, b := range f.List() {
		name, ok := featureNames[b]
		if !ok {
			name = "Unknown"
		}
		names = append(names, name)
	}
	if len(names) == 0 {
		return "None"
	}

	return strings.Join(names, ", ")
}

func bits(v uint32) (out []uint32) {
	for t := uint32(1); t != 0; t <<= 1 {
		if v&t != 0 {
			out = append(out, t)
		}
	}

	return
}
