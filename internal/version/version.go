// Copyright (c) 2013-2014 The btcsuite developers
// Copyright (c) 2015-2018 The Decred developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package version holds the btcscript version and the script rule set it
// reports alongside it.
package version

import (
	"fmt"
	"runtime"
	"strings"
)

// AppName is the name the tool reports itself as.
const AppName = "btcscript"

// Semantic version of btcscript (http://semver.org/).
const (
	Major uint = 0
	Minor uint = 1
	Patch uint = 0
)

// Allowed characters of the pre-release and build metadata parts.
const (
	preReleaseAlphabet = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz-"
	buildAlphabet      = preReleaseAlphabet + "."
)

var (
	// PreRelease may be overridden at build time with
	// '-ldflags "-X github.com/btcsuite/btcscript/internal/version.PreRelease=beta"'.
	// Characters outside preReleaseAlphabet are dropped.
	PreRelease = "pre"

	// BuildMetadata may be overridden at build time with
	// '-ldflags "-X github.com/btcsuite/btcscript/internal/version.BuildMetadata=$(git rev-parse --short HEAD)"'.
	// Characters outside buildAlphabet are dropped.
	BuildMetadata = "dev"
)

// ScriptRules lists the script rule sets the engine implements, in the order
// they were deployed.
var ScriptRules = []string{"bip16", "bip65", "bip66", "low-s", "nulldummy",
	"forkid"}

// String returns the semantic version, such as 0.1.0-pre+dev.
func String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%d.%d.%d", Major, Minor, Patch)
	if preRelease := filterAlphabet(PreRelease, preReleaseAlphabet); preRelease != "" {
		b.WriteByte('-')
		b.WriteString(preRelease)
	}
	if build := filterAlphabet(BuildMetadata, buildAlphabet); build != "" {
		b.WriteByte('+')
		b.WriteString(build)
	}
	return b.String()
}

// Full returns the line printed by --version: the application name, its
// version, the Go runtime and the supported script rules.
func Full() string {
	return fmt.Sprintf("%s version %s (Go %s %s/%s) rules: %s", AppName,
		String(), runtime.Version(), runtime.GOOS, runtime.GOARCH,
		strings.Join(ScriptRules, ","))
}

// filterAlphabet drops every rune of str that is not in alphabet.
func filterAlphabet(str, alphabet string) string {
	return strings.Map(func(r rune) rune {
		if strings.ContainsRune(alphabet, r) {
			return r
		}
		return -1
	}, str)
}
