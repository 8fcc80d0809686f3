// Copyright 2026 shaderfuzz project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

// Package log is a levelled logger shared by all shaderfuzz packages:
// messages with level v are printed if v <= -vv, and the most recent
// low-level messages can be kept in memory to be attached to crash reports.
package log

import (
	"flag"
	"fmt"
	golog "log"
	"strings"
	"sync"
	"time"
)

var (
	flagV       = flag.Int("vv", 0, "verbosity")
	mu          sync.Mutex
	cache       *ringCache
	prependTime = true // for testing
)

type ringCache struct {
	entries []string
	pos     int
	mem     int
	maxMem  int
}

// EnableLogCaching keeps up to maxLines of level 0 and 1 output in memory,
// but no more than maxMem bytes. The output can be queried with CachedLogOutput.
func EnableLogCaching(maxLines, maxMem int) {
	mu.Lock()
	defer mu.Unlock()
	if cache != nil {
		Fatalf("log caching is already enabled")
	}
	if maxLines < 1 || maxMem < 1 {
		panic("invalid maxLines/maxMem")
	}
	cache = &ringCache{
		entries: make([]string, maxLines),
		maxMem:  maxMem,
	}
}

func CachedLogOutput() string {
	mu.Lock()
	defer mu.Unlock()
	if cache == nil {
		return ""
	}
	var buf strings.Builder
	for i := range cache.entries {
		entry := cache.entries[(cache.pos+i)%len(cache.entries)]
		if entry != "" {
			buf.WriteString(entry)
			buf.WriteByte('\n')
		}
	}
	return buf.String()
}

func (c *ringCache) add(entry string) {
	c.mem -= len(c.entries[c.pos])
	c.entries[c.pos] = entry
	c.mem += len(entry)
	c.pos = (c.pos + 1) % len(c.entries)
	// Evict the oldest entries, but always keep the one just added.
	for i := 0; i < len(c.entries)-1 && c.mem > c.maxMem; i++ {
		pos := (c.pos + i) % len(c.entries)
		c.mem -= len(c.entries[pos])
		c.entries[pos] = ""
	}
	if c.mem < 0 {
		panic("log cache size underflow")
	}
}

// V says if messages of the given level are printed.
func V(v int) bool {
	return v <= *flagV
}

// SetVerbosity overrides the -vv flag value.
func SetVerbosity(v int) {
	*flagV = v
}

func Logf(v int, msg string, args ...interface{}) {
	mu.Lock()
	if cache != nil && v <= 1 {
		prefix := ""
		if prependTime {
			prefix = time.Now().Format("2006/01/02 15:04:05 ")
		}
		cache.add(prefix + fmt.Sprintf(msg, args...))
	}
	mu.Unlock()
	if V(v) {
		golog.Printf(msg, args...)
	}
}

// Errorf logs an error unconditionally.
func Errorf(msg string, args ...interface{}) {
	Logf(0, "ERROR: "+msg, args...)
}

func Fatal(err error) {
	golog.Fatal(err)
}

func Fatalf(msg string, args ...interface{}) {
	golog.Fatalf(msg, args...)
}

// CrashReport formats a message describing a broken invariant and appends
// the cached log output, so that a panic shows what led to it.
func CrashReport(msg string, args ...interface{}) string {
	report := fmt.Sprintf(msg, args...)
	if out := CachedLogOutput(); out != "" {
		report += "\n\nrecent log:\n" + out
	}
	return report
}
