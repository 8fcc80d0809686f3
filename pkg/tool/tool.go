// Copyright 2026 shaderfuzz project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

// Package tool contains helpers shared by the sfz-* command line tools.
package tool

import (
	"flag"
	"fmt"
	"os"
)

func Failf(msg string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, msg+"\n", args...)
	os.Exit(1)
}

func Fail(err error) {
	Failf("%v", err)
}

// Init parses command line flags of the default flag set, adding
// -cpuprofile/-memprofile. The returned function must be deferred by main
// to write the profiles.
func Init() func() {
	return InitFlagSet(flag.CommandLine, os.Args[1:])
}

func InitFlagSet(set *flag.FlagSet, args []string) func() {
	cpuprof := set.String("cpuprofile", "", "write CPU profile to this file")
	memprof := set.String("memprofile", "", "write memory profile to this file")
	if err := set.Parse(args); err != nil {
		Fail(err)
	}
	return installProfiling(*cpuprof, *memprof)
}
